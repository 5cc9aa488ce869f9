package leave_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/leave"
)

func TestReplacements_DeduplicatedWithoutSelf(t *testing.T) {
	r := record("alice", "2025-03-03", "2025-03-05")
	r.Replacement = "bob"
	r.OtherReplacements = []leave.EmployeeID{"carol", "bob", "", "alice"}

	assert.Equal(t, []leave.EmployeeID{"bob", "carol"}, leave.Replacements(r))
}

func TestCheckConflict_NoReplacements(t *testing.T) {
	r := record("alice", "2025-03-03", "2025-03-05")
	assert.False(t, leave.CheckConflict(r, nil))
}

func TestCheckConflict_DayCoverage(t *testing.T) {
	// GIVEN: A 3-day request with replacements bob and carol
	//   bob is away days 1-2
	// WHEN: carol is away days 2-3
	// THEN: day 2 has nobody -> conflict
	// WHEN: carol is only away day 3
	// THEN: every day has someone -> no conflict

	r := record("alice", "2025-03-03", "2025-03-05")
	r.Replacement = "bob"
	r.OtherReplacements = []leave.EmployeeID{"carol"}
	bob := record("bob", "2025-03-03", "2025-03-04")

	assert.True(t, leave.CheckConflict(r, []leave.Record{bob, record("carol", "2025-03-04", "2025-03-05")}))
	assert.False(t, leave.CheckConflict(r, []leave.Record{bob, record("carol", "2025-03-05", "2025-03-05")}))
}

func TestCheckConflict_UnbookedReplacementShortCircuits(t *testing.T) {
	// GIVEN: bob is away the whole request, carol has no records at all
	// THEN: carol covers every day -> no conflict
	r := record("alice", "2025-03-03", "2025-03-05")
	r.Replacement = "bob"
	r.OtherReplacements = []leave.EmployeeID{"carol"}

	others := []leave.Record{
		record("bob", "2025-03-01", "2025-03-10"),
		record("dave", "2025-03-01", "2025-03-10"), // not a replacement
	}
	assert.False(t, leave.CheckConflict(r, others))
}

func TestCheckConflict_SingleReplacementAway(t *testing.T) {
	r := record("alice", "2025-03-03", "2025-03-05")
	r.Replacement = "bob"

	assert.True(t, leave.CheckConflict(r, []leave.Record{record("bob", "2025-03-05", "2025-03-12")}))
}

func TestCheckConflict_ReversedRangeTerminates(t *testing.T) {
	r := record("alice", "2025-03-05", "2025-03-03")
	r.Replacement = "bob"

	assert.False(t, leave.CheckConflict(r, []leave.Record{record("bob", "2025-03-01", "2025-03-10")}))
}

func TestDetector_IgnoresInactiveRecords(t *testing.T) {
	// GIVEN: bob has a rejected and a deleted booking over alice's request
	// THEN: neither blocks bob -> no conflict
	f := newFixture(t, "2025-02-10")
	rejected := record("bob", "2025-03-03", "2025-03-05")
	rejected.Status = leave.StatusRejected
	f.book(t, rejected)
	deleted := f.book(t, record("bob", "2025-03-03", "2025-03-05"))
	require.NoError(t, f.store.DeleteRecord(f.ctx, deleted.ID))

	r := record("alice", "2025-03-03", "2025-03-05")
	r.Replacement = "bob"
	conflict, err := f.detector.HasConflict(f.ctx, r)
	require.NoError(t, err)
	assert.False(t, conflict)

	f.book(t, record("bob", "2025-03-04", "2025-03-04"))
	conflict, err = f.detector.HasConflict(f.ctx, r)
	require.NoError(t, err)
	assert.True(t, conflict)
}

func TestDetector_InactiveRecordNeverConflicts(t *testing.T) {
	f := newFixture(t, "2025-02-10")
	f.book(t, record("bob", "2025-03-03", "2025-03-05"))

	r := record("alice", "2025-03-03", "2025-03-05")
	r.Replacement = "bob"
	r.Status = leave.StatusRejected
	conflict, err := f.detector.HasConflict(f.ctx, r)
	require.NoError(t, err)
	assert.False(t, conflict)
}

func TestDetector_OngoingRecordAgreesWithRebuild(t *testing.T) {
	// GIVEN: alice is off Mon-Fri, today is Wednesday and her only
	//        substitute bob was off Mon-Tue
	// WHEN: The detector and a cache rebuild judge alice's record
	// THEN: Both ignore bob's finished leave and report no conflict
	f := newFixture(t, "2025-03-05")
	for _, id := range []string{"alice", "bob"} {
		f.employee(t, id, 30, "2020-01-01")
	}
	f.book(t, record("bob", "2025-03-03", "2025-03-04"))
	a := record("alice", "2025-03-03", "2025-03-07")
	a.Replacement = "bob"
	alice := f.book(t, a)

	conflict, err := f.detector.HasConflict(f.ctx, alice)
	require.NoError(t, err)
	assert.False(t, conflict)

	require.NoError(t, f.cache.Refresh(f.ctx))
	assert.Equal(t, conflict, f.cache.HasConflict(f.ctx, alice.ID))

	// bob's leave reaching into today still counts
	f.book(t, record("bob", "2025-03-05", "2025-03-07"))
	conflict, err = f.detector.HasConflict(f.ctx, alice)
	require.NoError(t, err)
	assert.True(t, conflict)
	require.NoError(t, f.cache.Refresh(f.ctx))
	assert.True(t, f.cache.HasConflict(f.ctx, alice.ID))
}
