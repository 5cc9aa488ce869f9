package sqlite_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

var d = generic.MustParseDate

func TestStore_EmployeeRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	emp := leave.Employee{
		ID:                "alice",
		UserID:            "u-alice",
		Name:              "Alice",
		JoinDate:          d("2020-01-15"),
		AnnualEntitlement: decimal.RequireFromString("26.5"),
		PrimarySubstitute: "bob",
		Substitutes:       []leave.EmployeeID{"carol", "dave"},
	}
	require.NoError(t, store.SaveEmployee(ctx, emp))

	got, err := store.Employee(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, emp.JoinDate, got.JoinDate)
	assert.True(t, got.LeaveDate.IsZero())
	assert.True(t, emp.AnnualEntitlement.Equal(got.AnnualEntitlement))
	assert.Equal(t, emp.Substitutes, got.Substitutes)
	assert.Equal(t, leave.EmployeeID("bob"), got.PrimarySubstitute)

	id, ok, err := store.EmployeeIDForUser(ctx, "u-alice")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, leave.EmployeeID("alice"), id)

	missing, err := store.Employee(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_EntitlementChanges(t *testing.T) {
	// GIVEN: 24 days base, raised to 28 from July 2025
	// THEN: asOf before July sees 24, asOf Dec 31 sees 28
	ctx := context.Background()
	store := newStore(t)
	emp := leave.Employee{ID: "alice", Name: "Alice", AnnualEntitlement: decimal.NewFromInt(24)}
	require.NoError(t, store.SaveEmployee(ctx, emp))
	require.NoError(t, store.AddEntitlementChange(ctx, "alice", d("2025-07-01"), decimal.NewFromInt(28)))

	before, err := store.AnnualEntitlement(ctx, emp, d("2025-06-30"))
	require.NoError(t, err)
	assert.True(t, before.Equal(decimal.NewFromInt(24)))

	after, err := store.AnnualEntitlement(ctx, emp, d("2025-12-31"))
	require.NoError(t, err)
	assert.True(t, after.Equal(decimal.NewFromInt(28)))
}

func TestStore_Records(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	saved, err := store.SaveRecord(ctx, leave.Record{
		EmployeeID:        "alice",
		Start:             d("2025-03-03"),
		End:               d("2025-03-07"),
		HalfDayEnd:        true,
		Status:            leave.StatusInProgress,
		Replacement:       "bob",
		OtherReplacements: []leave.EmployeeID{"carol", "dave"},
		Comment:           "skiing",
	})
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)

	special, err := store.SaveRecord(ctx, leave.Record{
		EmployeeID: "alice", Start: d("2025-03-10"), End: d("2025-03-10"),
		Status: leave.StatusApproved, Special: true,
	})
	require.NoError(t, err)

	got, err := store.Record(ctx, saved.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, saved, *got)

	all, err := store.RecordsOverlapping(ctx, "alice", d("2025-03-07"), d("2025-03-31"), true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	regular, err := store.RecordsOverlapping(ctx, "alice", d("2025-03-07"), d("2025-03-31"), false)
	require.NoError(t, err)
	require.Len(t, regular, 1)
	assert.Equal(t, saved.ID, regular[0].ID)

	open, err := store.OpenRequestCount(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 1, open)

	// Update replaces the additional substitutes.
	saved.OtherReplacements = []leave.EmployeeID{"erin"}
	saved.Status = leave.StatusApproved
	_, err = store.SaveRecord(ctx, saved)
	require.NoError(t, err)
	got, err = store.Record(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, []leave.EmployeeID{"erin"}, got.OtherReplacements)

	open, err = store.OpenRequestCount(ctx, "bob")
	require.NoError(t, err)
	assert.Zero(t, open)

	// Soft delete hides the record from range queries.
	require.NoError(t, store.DeleteRecord(ctx, special.ID))
	current, err := store.CurrentAndFutureRecords(ctx, d("2025-03-08"))
	require.NoError(t, err)
	assert.Empty(t, current)
	current, err = store.CurrentAndFutureRecords(ctx, d("2025-03-07"))
	require.NoError(t, err)
	assert.Len(t, current, 1)

	deleted, err := store.Record(ctx, special.ID)
	require.NoError(t, err)
	assert.True(t, deleted.Deleted)

	err = store.DeleteRecord(ctx, "missing")
	assert.ErrorIs(t, err, generic.ErrRecordNotFound)
	_, err = store.SaveRecord(ctx, leave.Record{ID: "missing", EmployeeID: "alice", Start: d("2025-03-03"), End: d("2025-03-03"), Status: leave.StatusApproved})
	assert.ErrorIs(t, err, generic.ErrRecordNotFound)
}

func TestStore_CurrentAndFutureRecords_AttachesReplacementsInBatches(t *testing.T) {
	// GIVEN: More records than fit into one replacement lookup
	// WHEN: The current-and-future batch is loaded
	// THEN: Every record carries its own additional substitutes
	ctx := context.Background()
	store := newStore(t)

	const n = 1201
	for i := 0; i < n; i++ {
		_, err := store.SaveRecord(ctx, leave.Record{
			EmployeeID:        leave.EmployeeID(fmt.Sprintf("emp-%04d", i)),
			Start:             d("2025-03-03"),
			End:               d("2025-03-07"),
			Status:            leave.StatusApproved,
			OtherReplacements: []leave.EmployeeID{leave.EmployeeID(fmt.Sprintf("sub-%04d", i))},
		})
		require.NoError(t, err)
	}

	records, err := store.CurrentAndFutureRecords(ctx, d("2025-03-01"))
	require.NoError(t, err)
	require.Len(t, records, n)
	for _, r := range records {
		want := leave.EmployeeID("sub-" + string(r.EmployeeID)[len("emp-"):])
		assert.Equal(t, []leave.EmployeeID{want}, r.OtherReplacements, "record of %s", r.EmployeeID)
	}
}

func TestStore_CarryOverMemo(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	v, err := store.CarryOver(ctx, "alice", 2025)
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, store.PutCarryOver(ctx, "alice", 2025, decimal.RequireFromString("4.5")))
	require.NoError(t, store.PutCarryOver(ctx, "alice", 2025, decimal.RequireFromString("5.5")))
	v, err = store.CarryOver(ctx, "alice", 2025)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "5.5", v.String())

	require.NoError(t, store.DeleteCarryOver(ctx, "alice", 2025))
	v, err = store.CarryOver(ctx, "alice", 2025)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestStore_AccountEntries(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	_, err := store.AddAccountEntry(ctx, leave.AccountEntry{EmployeeID: "alice", Year: 2025, Date: d("2025-01-02"), Amount: decimal.NewFromInt(2), Description: "overtime"})
	require.NoError(t, err)
	_, err = store.AddAccountEntry(ctx, leave.AccountEntry{EmployeeID: "alice", Year: 2024, Amount: decimal.NewFromInt(-1)})
	require.NoError(t, err)

	entries, err := store.EntriesFor(ctx, "alice", 2025)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "overtime", entries[0].Description)
	assert.NotEmpty(t, entries[0].ID)
}

func TestStore_HolidaysSurviveReopen(t *testing.T) {
	// GIVEN: A file database with a half-day holiday
	// WHEN: The store is reopened
	// THEN: The holiday is loaded into the calendar again

	ctx := context.Background()
	path := t.TempDir() + "/leave.db"
	store, err := sqlite.New(path)
	require.NoError(t, err)
	h, err := store.AddHoliday(ctx, generic.Holiday{Date: d("2025-12-24"), Name: "Christmas Eve", WorkFraction: generic.HalfDay, Recurring: true})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	got, ok := reopened.Holiday(d("2026-12-24"))
	require.True(t, ok)
	assert.Equal(t, h.ID, got.ID)
	assert.True(t, generic.NewWorkCalendar(reopened).WorkFraction(d("2026-12-24")).Equal(generic.HalfDay))

	require.NoError(t, reopened.DeleteHoliday(ctx, h.ID))
	_, ok = reopened.Holiday(d("2026-12-24"))
	assert.False(t, ok)
	assert.True(t, generic.IsNotFound(reopened.DeleteHoliday(ctx, h.ID)))
}
