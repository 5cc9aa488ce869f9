package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/memory"
)

func TestStore_RecordsDoNotShareSubstitutes(t *testing.T) {
	// GIVEN: A record saved with additional substitutes
	// WHEN: The caller mutates its own slice and the slices handed back
	// THEN: The stored record keeps its original substitutes
	ctx := context.Background()
	store := memory.New()

	others := []leave.EmployeeID{"carol", "dave"}
	saved, err := store.SaveRecord(ctx, leave.Record{
		EmployeeID:        "alice",
		Start:             generic.MustParseDate("2025-03-03"),
		End:               generic.MustParseDate("2025-03-07"),
		Status:            leave.StatusApproved,
		Replacement:       "bob",
		OtherReplacements: others,
	})
	require.NoError(t, err)
	others[0] = "mallory"
	saved.OtherReplacements[1] = "mallory"

	got, err := store.Record(ctx, saved.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []leave.EmployeeID{"carol", "dave"}, got.OtherReplacements)
	got.OtherReplacements[0] = "mallory"

	listed, err := store.RecordsOverlapping(ctx, "alice", generic.MustParseDate("2025-03-01"), generic.MustParseDate("2025-03-31"), true)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, []leave.EmployeeID{"carol", "dave"}, listed[0].OtherReplacements)
	listed[0].OtherReplacements[0] = "mallory"

	current, err := store.CurrentAndFutureRecords(ctx, generic.MustParseDate("2025-03-01"))
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, []leave.EmployeeID{"carol", "dave"}, current[0].OtherReplacements)
}
