package leave_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/memory"
)

// =============================================================================
// HELPERS
// =============================================================================

// gatedStore blocks CurrentAndFutureRecords until released, or fails it.
type gatedStore struct {
	*memory.Store
	entered chan struct{}
	release chan struct{}
	fail    error
}

func (g *gatedStore) CurrentAndFutureRecords(ctx context.Context, today generic.Date) ([]leave.Record, error) {
	if g.fail != nil {
		return nil, g.fail
	}
	if g.entered != nil {
		g.entered <- struct{}{}
		<-g.release
	}
	return g.Store.CurrentAndFutureRecords(ctx, today)
}

// seedConflicts books bob away over alice's request (conflict) and gives
// carol a free substitute (no conflict).
func seedConflicts(t *testing.T, f *fixture) (alice, carol leave.Record) {
	t.Helper()
	for _, id := range []string{"alice", "bob", "carol", "dave"} {
		f.employee(t, id, 30, "2020-01-01")
	}
	f.book(t, record("bob", "2025-03-03", "2025-03-05"))

	a := record("alice", "2025-03-03", "2025-03-05")
	a.Replacement = "bob"
	alice = f.book(t, a)

	c := record("carol", "2025-03-03", "2025-03-05")
	c.Replacement = "dave"
	carol = f.book(t, c)
	return alice, carol
}

// =============================================================================
// REBUILD
// =============================================================================

func TestConflictCache_FirstReadBuilds(t *testing.T) {
	f := newFixture(t, "2025-02-10")
	alice, carol := seedConflicts(t, f)

	require.True(t, f.cache.Stale())
	assert.True(t, f.cache.HasConflict(f.ctx, alice.ID))
	assert.False(t, f.cache.HasConflict(f.ctx, carol.ID))
	assert.False(t, f.cache.Stale())

	n, err := f.cache.NumberOfConflicts(f.ctx, "user-alice")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, f.cache.Conflicts(f.ctx, "alice"), 1)

	n, err = f.cache.NumberOfConflicts(f.ctx, "unknown-user")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestConflictCache_UpdateThenRefreshMatchesRecomputation(t *testing.T) {
	// GIVEN: A built cache
	// WHEN: carol's record is patched to conflicting
	// THEN: The patch is visible until the next refresh
	// WHEN: The cache is refreshed
	// THEN: Every record's flag equals a fresh Detector run

	f := newFixture(t, "2025-02-10")
	alice, carol := seedConflicts(t, f)
	require.NoError(t, f.cache.Refresh(f.ctx))

	f.cache.UpdateVacation(f.ctx, carol, true)
	assert.True(t, f.cache.HasConflict(f.ctx, carol.ID))
	assert.Len(t, f.cache.Conflicts(f.ctx, "carol"), 1)

	require.NoError(t, f.cache.Refresh(f.ctx))

	for _, r := range []leave.Record{alice, carol} {
		expected, err := f.detector.HasConflict(f.ctx, r)
		require.NoError(t, err)
		assert.Equal(t, expected, f.cache.HasConflict(f.ctx, r.ID), "record of %s", r.EmployeeID)
	}
	assert.Empty(t, f.cache.Conflicts(f.ctx, "carol"))
}

func TestConflictCache_UpdateToFalseRemovesRecord(t *testing.T) {
	f := newFixture(t, "2025-02-10")
	alice, _ := seedConflicts(t, f)
	require.NoError(t, f.cache.Refresh(f.ctx))

	f.cache.UpdateVacation(f.ctx, alice, false)

	assert.False(t, f.cache.HasConflict(f.ctx, alice.ID))
	assert.Empty(t, f.cache.Conflicts(f.ctx, "alice"))
}

func TestConflictCache_UpdateIgnoresImpossibleConflicts(t *testing.T) {
	// GIVEN: A built cache
	// WHEN: A record without replacements and a rejected record are patched to conflicting
	// THEN: Neither is reported, since neither can lack a substitute
	f := newFixture(t, "2025-02-10")
	_, carol := seedConflicts(t, f)
	require.NoError(t, f.cache.Refresh(f.ctx))

	alone := f.book(t, record("dave", "2025-03-10", "2025-03-12"))
	f.cache.UpdateVacation(f.ctx, alone, true)
	assert.False(t, f.cache.HasConflict(f.ctx, alone.ID))
	n, err := f.cache.NumberOfConflicts(f.ctx, "user-dave")
	require.NoError(t, err)
	assert.Zero(t, n)

	carol.Status = leave.StatusRejected
	f.cache.UpdateVacation(f.ctx, carol, true)
	assert.False(t, f.cache.HasConflict(f.ctx, carol.ID))
	assert.Empty(t, f.cache.Conflicts(f.ctx, "carol"))
}

func TestConflictCache_UnsavedRecordHasNoConflict(t *testing.T) {
	f := newFixture(t, "2025-02-10")
	assert.False(t, f.cache.HasConflictRecord(f.ctx, record("alice", "2025-03-03", "2025-03-05")))
}

func TestConflictCache_PatchDuringRefreshSurvivesSwap(t *testing.T) {
	// GIVEN: A fresh cache whose next rebuild blocks in the store read
	// WHEN: carol's record is patched while the rebuild is blocked
	// THEN: The patch is not lost when the rebuilt state is swapped in

	f := newFixture(t, "2025-02-10")
	_, carol := seedConflicts(t, f)
	gated := &gatedStore{Store: f.store}
	cache := leave.NewConflictCache(gated, f.store,
		leave.WithCacheClock(func() time.Time { return f.today.Time() }),
	)
	require.NoError(t, cache.Refresh(f.ctx))

	gated.entered = make(chan struct{})
	gated.release = make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	var refreshErr error
	go func() {
		defer wg.Done()
		refreshErr = cache.Refresh(f.ctx)
	}()
	<-gated.entered

	cache.UpdateVacation(f.ctx, carol, true)
	close(gated.release)
	wg.Wait()

	require.NoError(t, refreshErr)
	assert.True(t, cache.HasConflict(f.ctx, carol.ID))
}

// =============================================================================
// STALENESS AND FAILURES
// =============================================================================

func TestConflictCache_TTLExpires(t *testing.T) {
	f := newFixture(t, "2025-02-10")
	now := f.today.Time()
	cache := leave.NewConflictCache(f.store, f.store,
		leave.WithTTL(time.Hour),
		leave.WithCacheClock(func() time.Time { return now }),
	)
	require.NoError(t, cache.Refresh(f.ctx))
	assert.False(t, cache.Stale())

	now = now.Add(59 * time.Minute)
	assert.False(t, cache.Stale())
	now = now.Add(time.Minute)
	assert.True(t, cache.Stale())

	require.NoError(t, cache.Refresh(f.ctx))
	cache.Expire()
	assert.True(t, cache.Stale())
}

func TestConflictCache_FailedRefreshServesPreviousState(t *testing.T) {
	// GIVEN: A built cache with one conflict
	// WHEN: The cache expires and the store read fails
	// THEN: The old state is served, a warning is logged, metrics count the error

	f := newFixture(t, "2025-02-10")
	alice, _ := seedConflicts(t, f)
	gated := &gatedStore{Store: f.store}
	reg := prometheus.NewRegistry()
	logger, hook := logtest.NewNullLogger()
	cache := leave.NewConflictCache(gated, f.store,
		leave.WithCacheClock(func() time.Time { return f.today.Time() }),
		leave.WithCacheLogger(logger),
		leave.WithRegisterer(reg),
	)
	require.NoError(t, cache.Refresh(f.ctx))

	gated.fail = errors.New("database is locked")
	cache.Expire()
	assert.True(t, cache.HasConflict(f.ctx, alice.ID))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	expected := `
# HELP leave_conflict_cache_refreshes_total Full conflict cache rebuilds by result.
# TYPE leave_conflict_cache_refreshes_total counter
leave_conflict_cache_refreshes_total{result="error"} 1
leave_conflict_cache_refreshes_total{result="success"} 1
# HELP leave_conflict_cache_conflicting_records Leave records currently without an available substitute.
# TYPE leave_conflict_cache_conflicting_records gauge
leave_conflict_cache_conflicting_records 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"leave_conflict_cache_refreshes_total", "leave_conflict_cache_conflicting_records"))

	err := cache.Refresh(f.ctx)
	assert.ErrorContains(t, err, "database is locked")
}
