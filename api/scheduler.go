/*
scheduler.go - Background conflict cache refresh

PURPOSE:
  Keeps the conflict cache warm. Reads rebuild a stale cache on demand;
  the scheduler makes sure that rebuild usually happens here instead of
  on a user request.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Refreshes only when the cache reports Stale (TTL passed or expired
    after a failed conflict check)
  - A failed rebuild is logged; the cache keeps serving the old state

CONFIGURATION:
  - CheckInterval: How often to check (CACHE_REFRESH_INTERVAL, default 5m)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewRefreshScheduler(cache, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RefreshConflicts endpoint (manual refresh)
  - leave/cache.go: ConflictCache
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Refresher is the part of the conflict cache the scheduler drives.
type Refresher interface {
	Stale() bool
	Refresh(ctx context.Context) error
}

// RefreshScheduler periodically rebuilds a stale conflict cache.
type RefreshScheduler struct {
	Cache         Refresher
	CheckInterval time.Duration
	Enabled       bool
	Logger        logrus.FieldLogger

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRefreshScheduler creates a new scheduler.
func NewRefreshScheduler(cache Refresher, logger logrus.FieldLogger) *RefreshScheduler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RefreshScheduler{
		Cache:         cache,
		CheckInterval: 5 * time.Minute,
		Enabled:       true,
		Logger:        logger.WithField("component", "refresh-scheduler"),
	}
}

// Start begins the scheduler.
func (rs *RefreshScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		rs.Logger.Info("disabled, not starting")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.stop = make(chan struct{})
	rs.wg.Add(1)

	go rs.run()

	rs.Logger.WithField("interval", rs.CheckInterval).Info("started")
}

// Stop stops the scheduler and waits for a running refresh to finish.
func (rs *RefreshScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		rs.Logger.Info("stopped")
	}
}

func (rs *RefreshScheduler) run() {
	defer rs.wg.Done()

	// Warm the cache right away
	rs.checkAndRefresh()

	for {
		select {
		case <-rs.ticker.C:
			rs.checkAndRefresh()
		case <-rs.stop:
			return
		}
	}
}

func (rs *RefreshScheduler) checkAndRefresh() bool {
	if !rs.Cache.Stale() {
		return false
	}
	started := time.Now()
	if err := rs.Cache.Refresh(context.Background()); err != nil {
		rs.Logger.WithError(err).Warn("conflict cache refresh failed")
		return false
	}
	rs.Logger.WithField("took", time.Since(started)).Debug("conflict cache refreshed")
	return true
}

// RunNow triggers an immediate check. It reports whether a refresh ran
// and succeeded.
func (rs *RefreshScheduler) RunNow() bool {
	return rs.checkAndRefresh()
}
