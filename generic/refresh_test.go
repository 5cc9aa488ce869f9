package generic_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/warp/leave-engine/generic"
)

func TestExpiry(t *testing.T) {
	now := time.Date(2025, 2, 10, 9, 0, 0, 0, time.UTC)
	e := &generic.Expiry{TTL: 10 * time.Minute, Now: func() time.Time { return now }}

	assert.True(t, e.Stale(), "never refreshed")

	e.MarkRefreshed(now)
	assert.False(t, e.Stale())
	assert.Equal(t, now, e.LastRefresh())

	now = now.Add(10 * time.Minute)
	assert.True(t, e.Stale(), "TTL elapsed")
}

func TestExpiry_ExpireDuringRefreshKeepsStale(t *testing.T) {
	// GIVEN: A refresh starting at t0
	// WHEN: Expire happens at t1 > t0, then the refresh finishes
	// THEN: Still stale; the refresh may have missed what caused Expire

	t0 := time.Date(2025, 2, 10, 9, 0, 0, 0, time.UTC)
	now := t0
	e := &generic.Expiry{Now: func() time.Time { return now }}

	now = t0.Add(time.Second)
	e.Expire()
	e.MarkRefreshed(t0)
	assert.True(t, e.Stale())

	e.MarkRefreshed(now.Add(time.Second))
	assert.False(t, e.Stale())
}
