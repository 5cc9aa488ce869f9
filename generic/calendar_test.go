package generic_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/warp/leave-engine/generic"
)

// 2025-03-03 is a Monday.
var d = generic.MustParseDate

func assertDays(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.Truef(t, generic.MustParseDecimal(expected).Equal(actual), "expected %s, got %s", expected, actual)
}

func TestWorkingDays_WeekendsDoNotCount(t *testing.T) {
	cal := generic.NewWorkCalendar(nil)
	assertDays(t, "5", cal.WorkingDays(d("2025-03-03"), d("2025-03-09"), false, false))
	assertDays(t, "0", cal.WorkingDays(d("2025-03-08"), d("2025-03-09"), false, false))
}

func TestWorkingDays_HalfDays(t *testing.T) {
	cal := generic.NewWorkCalendar(nil)
	tests := []struct {
		name       string
		start, end string
		hb, he     bool
		expected   string
	}{
		{"single day, both flags", "2025-03-03", "2025-03-03", true, true, "0.5"},
		{"single day, begin only", "2025-03-03", "2025-03-03", true, false, "0.5"},
		{"half begin", "2025-03-03", "2025-03-05", true, false, "2.5"},
		{"half begin and end", "2025-03-03", "2025-03-05", true, true, "2"},
		{"half begin on Saturday", "2025-03-08", "2025-03-10", true, false, "1"},
		{"weekend only with flags", "2025-03-08", "2025-03-09", true, true, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertDays(t, tt.expected, cal.WorkingDays(d(tt.start), d(tt.end), tt.hb, tt.he))
		})
	}
}

func TestWorkingDays_HolidayFractions(t *testing.T) {
	// GIVEN: A full holiday on Wednesday and a recurring half day on Christmas Eve
	holidays := generic.NewStaticCalendar(
		generic.Holiday{Date: d("2025-03-05"), Name: "Founders Day", WorkFraction: decimal.Zero},
		generic.Holiday{Date: d("2020-12-24"), Name: "Christmas Eve", WorkFraction: generic.HalfDay, Recurring: true},
	)
	cal := generic.NewWorkCalendar(holidays)

	assertDays(t, "4", cal.WorkingDays(d("2025-03-03"), d("2025-03-07"), false, false))
	assertDays(t, "2.5", cal.WorkingDays(d("2025-12-22"), d("2025-12-24"), false, false))

	// A half-day flag on a partial working day is ignored.
	assertDays(t, "0.5", cal.WorkingDays(d("2025-12-24"), d("2025-12-24"), true, true))
	assert.False(t, cal.IsWorkingDay(d("2025-03-05")))
	assert.True(t, cal.IsWorkingDay(d("2025-12-24")))
	assert.False(t, cal.IsFullWorkingDay(d("2025-12-24")))
	assert.Len(t, holidays.Holidays(2025), 2)
}

func TestWorkingDaysIn_ClippedEdgeLosesHalfDay(t *testing.T) {
	// GIVEN: Fri Mar 28 .. Tue Apr 1 with half days at both ends
	cal := generic.NewWorkCalendar(nil)
	window := generic.Period{Start: d("2025-01-01"), End: d("2025-03-31")}

	// THEN: Fri 0.5 + Mon 1; Apr 1 is outside and its half day dropped
	assertDays(t, "1.5", cal.WorkingDaysIn(d("2025-03-28"), d("2025-04-01"), true, true, window))
	assertDays(t, "0", cal.WorkingDaysIn(d("2025-04-01"), d("2025-04-04"), false, false, window))
}

func TestPeriod_ClipAndOverlap(t *testing.T) {
	p := generic.Period{Start: d("2025-03-28"), End: d("2025-04-03")}
	window := generic.Period{Start: d("2025-01-01"), End: d("2025-03-31")}

	clipped, ok := p.Clip(window)
	assert.True(t, ok)
	assert.Equal(t, d("2025-03-31"), clipped.End)
	assert.True(t, p.Overlaps(window))
	assert.False(t, generic.Period{Start: d("2025-04-01"), End: d("2025-04-02")}.Overlaps(window))
	assert.False(t, generic.Period{Start: d("2025-04-02"), End: d("2025-04-01")}.Valid())
	assert.Len(t, p.Days(3), 3)
}

func TestParseDate(t *testing.T) {
	got, err := generic.ParseDate("")
	assert.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = generic.ParseDate("31.03.2025")
	assert.Error(t, err)

	assert.Equal(t, "2025-03-31", d("2025-03-31").String())
}
