/*
cache.go - Conflict flags of current and future leave records

PURPOSE:
  UI badges and exports ask "does this record have a conflict?" and "how
  many conflicting records does this user have?" far more often than
  records change. The cache keeps both answers in memory.

UPDATE PATHS:
  Refresh        full rebuild from one CurrentAndFutureRecords batch
  UpdateVacation incremental patch after a single record was saved

CONSISTENCY:
  One mutex guards the id set and the per-employee lists together, so
  readers never see them disagree. A rebuild runs off-lock against a
  private state; patches applied while it runs are also journaled and
  replayed onto the new state before it is swapped in. A patch is
  therefore never lost to a rebuild that started before it.

STALENESS:
  Every public operation first rebuilds the cache when it is stale
  (never built, TTL elapsed or Expire called). A failed rebuild is
  logged and the previous generation keeps being served.

SEE ALSO:
  - conflict.go: CheckConflict
  - generic/refresh.go: Refreshable, Expiry
*/
package leave

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/warp/leave-engine/generic"
)

// conflictState is one generation of cached conflicts.
type conflictState struct {
	ids        map[RecordID]struct{}
	byEmployee map[EmployeeID][]Record
}

func newConflictState() *conflictState {
	return &conflictState{
		ids:        make(map[RecordID]struct{}),
		byEmployee: make(map[EmployeeID][]Record),
	}
}

func (s *conflictState) set(record Record, conflict bool) {
	list := s.byEmployee[record.EmployeeID]
	kept := list[:0:0]
	for _, r := range list {
		if r.ID != record.ID {
			kept = append(kept, r)
		}
	}
	if conflict {
		s.ids[record.ID] = struct{}{}
		kept = append(kept, record)
	} else {
		delete(s.ids, record.ID)
	}
	if len(kept) == 0 {
		delete(s.byEmployee, record.EmployeeID)
		return
	}
	s.byEmployee[record.EmployeeID] = kept
}

type cachePatch struct {
	record   Record
	conflict bool
}

// CacheOption configures a ConflictCache.
type CacheOption func(*ConflictCache)

// WithTTL sets how long a rebuild stays fresh.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *ConflictCache) { c.expiry.TTL = ttl }
}

// WithCacheLogger replaces the standard logrus logger.
func WithCacheLogger(logger logrus.FieldLogger) CacheOption {
	return func(c *ConflictCache) { c.logger = logger }
}

// WithRegisterer exports the cache metrics.
func WithRegisterer(reg prometheus.Registerer) CacheOption {
	return func(c *ConflictCache) { c.registerer = reg }
}

// WithCacheClock overrides the wall clock used for TTL and for "today".
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *ConflictCache) { c.expiry.Now = now }
}

// ConflictCache implements generic.Refreshable.
type ConflictCache struct {
	records    RecordStore
	employees  EmployeeDirectory
	logger     logrus.FieldLogger
	registerer prometheus.Registerer
	metrics    *cacheMetrics
	expiry     *generic.Expiry

	refreshMu sync.Mutex // one rebuild at a time

	mu         sync.Mutex
	state      *conflictState
	refreshing bool
	journal    []cachePatch
}

var _ generic.Refreshable = (*ConflictCache)(nil)

// NewConflictCache creates an empty, stale cache.
func NewConflictCache(records RecordStore, employees EmployeeDirectory, opts ...CacheOption) *ConflictCache {
	c := &ConflictCache{
		records:   records,
		employees: employees,
		logger:    logrus.StandardLogger(),
		expiry:    &generic.Expiry{},
		state:     newConflictState(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.metrics = newCacheMetrics(c.registerer)
	return c
}

func (c *ConflictCache) now() time.Time {
	if c.expiry.Now != nil {
		return c.expiry.Now()
	}
	return time.Now()
}

// Stale reports whether the next operation will rebuild.
func (c *ConflictCache) Stale() bool { return c.expiry.Stale() }

// Expire forces a rebuild on the next operation.
func (c *ConflictCache) Expire() { c.expiry.Expire() }

// LastRefresh is the start time of the last successful rebuild.
func (c *ConflictCache) LastRefresh() time.Time { return c.expiry.LastRefresh() }

// Refresh rebuilds the cache from all current and future records.
func (c *ConflictCache) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	return c.rebuild(ctx)
}

func (c *ConflictCache) rebuild(ctx context.Context) error {
	started := c.now()
	begin := time.Now()

	c.mu.Lock()
	c.refreshing = true
	c.journal = nil
	c.mu.Unlock()

	next, err := c.build(ctx, generic.DateOf(started))

	c.mu.Lock()
	if err == nil {
		for _, p := range c.journal {
			next.set(p.record, p.conflict)
		}
		c.state = next
		c.metrics.conflicting.Set(float64(len(next.ids)))
	}
	c.refreshing = false
	c.journal = nil
	c.mu.Unlock()

	took := time.Since(begin)
	c.metrics.refreshed(err, took.Seconds())
	if err != nil {
		return err
	}
	c.expiry.MarkRefreshed(started)
	c.logger.WithFields(logrus.Fields{
		"conflicts": len(next.ids),
		"duration":  took.String(),
	}).Debug("conflict cache rebuilt")
	return nil
}

func (c *ConflictCache) build(ctx context.Context, today generic.Date) (*conflictState, error) {
	records, err := c.records.CurrentAndFutureRecords(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("load current and future records: %w", err)
	}

	byEmployee := make(map[EmployeeID][]Record)
	for _, r := range records {
		if r.IsActive() {
			byEmployee[r.EmployeeID] = append(byEmployee[r.EmployeeID], r)
		}
	}

	state := newConflictState()
	for _, r := range records {
		if !r.IsActive() || r.ID == "" {
			continue
		}
		var others []Record
		for _, id := range Replacements(r) {
			for _, o := range byEmployee[id] {
				if o.Period().Overlaps(r.Period()) {
					others = append(others, o)
				}
			}
		}
		if CheckConflict(r, others) {
			state.set(r, true)
		}
	}
	return state, nil
}

func (c *ConflictCache) ensureFresh(ctx context.Context) {
	if !c.expiry.Stale() {
		return
	}
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	if !c.expiry.Stale() {
		return
	}
	if err := c.rebuild(ctx); err != nil {
		c.logger.WithError(err).Warn("conflict cache refresh failed, serving previous state")
	}
}

// UpdateVacation records the freshly computed conflict flag of one record.
// Inactive records and records without replacements are stored as
// conflict-free whatever flag is passed.
func (c *ConflictCache) UpdateVacation(ctx context.Context, record Record, conflict bool) {
	if record.ID == "" {
		c.logger.WithField("employee_id", record.EmployeeID).Warn("conflict cache update without record id ignored")
		return
	}
	conflict = conflict && record.IsActive() && len(Replacements(record)) > 0
	c.ensureFresh(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.set(record, conflict)
	if c.refreshing {
		c.journal = append(c.journal, cachePatch{record: record, conflict: conflict})
	}
	c.metrics.conflicting.Set(float64(len(c.state.ids)))
}

// HasConflict reports whether the record with id has a conflict.
func (c *ConflictCache) HasConflict(ctx context.Context, id RecordID) bool {
	c.ensureFresh(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.state.ids[id]
	return ok
}

// HasConflictRecord is HasConflict for an unsaved record: always false.
func (c *ConflictCache) HasConflictRecord(ctx context.Context, record Record) bool {
	if record.ID == "" {
		return false
	}
	return c.HasConflict(ctx, record.ID)
}

// Conflicts returns a copy of the employee's conflicting records.
func (c *ConflictCache) Conflicts(ctx context.Context, employeeID EmployeeID) []Record {
	c.ensureFresh(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.state.byEmployee[employeeID]
	out := make([]Record, len(list))
	copy(out, list)
	return out
}

// NumberOfConflicts counts the conflicting records of the employee behind
// a login account; 0 for accounts without an employee.
func (c *ConflictCache) NumberOfConflicts(ctx context.Context, userID string) (int, error) {
	employeeID, ok, err := c.employees.EmployeeIDForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("resolve user %s: %w", userID, err)
	}
	if !ok {
		return 0, nil
	}
	c.ensureFresh(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.state.byEmployee[employeeID]), nil
}
