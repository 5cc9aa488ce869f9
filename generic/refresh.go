package generic

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// REFRESHABLE - Caches that rebuild themselves when stale
// =============================================================================

// Refreshable is implemented by derived-state caches. Callers (a background
// scheduler, or the cache itself before reads) call Refresh when Stale.
type Refreshable interface {
	Refresh(ctx context.Context) error
	Stale() bool
}

// Expiry tracks when a cache was last rebuilt. It is meant to be embedded
// or held by a cache; the zero value is stale and never expires by time.
type Expiry struct {
	// TTL after which a successful refresh is considered stale. Zero means
	// only explicit Expire (or never having refreshed) makes it stale.
	TTL time.Duration
	// Now is the clock, time.Now when nil.
	Now func() time.Time

	mu          sync.Mutex
	lastRefresh time.Time
	expired     bool
	expiredAt   time.Time
}

func (e *Expiry) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Stale reports whether a refresh is due.
func (e *Expiry) Stale() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.expired || e.lastRefresh.IsZero() {
		return true
	}
	return e.TTL > 0 && e.now().Sub(e.lastRefresh) >= e.TTL
}

// MarkRefreshed records a successful rebuild started at startedAt. An
// Expire that happened after startedAt keeps the cache stale.
func (e *Expiry) MarkRefreshed(startedAt time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastRefresh = startedAt
	if e.expired && e.expiredAt.After(startedAt) {
		return
	}
	e.expired = false
}

// Expire forces the next Stale call to report true.
func (e *Expiry) Expire() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.expired = true
	e.expiredAt = e.now()
}

// LastRefresh returns when the cache was last rebuilt (zero if never).
func (e *Expiry) LastRefresh() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastRefresh
}
