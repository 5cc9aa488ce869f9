/*
calendar.go - Holidays and working-day arithmetic

PURPOSE:
  Answers "how many working days does this leave cost?". Weekends never
  count, holidays count with their configured work fraction (0 for a full
  holiday, 0.5 for e.g. Christmas Eve), every other day counts 1.

HALF DAYS:
  A leave record may start and/or end with a half day. The half day only
  applies at the record's true boundary and only when that boundary is a
  full working day:

    Mon (half begin) .. Wed           = 2.5
    Mon (half begin + half end) .. Mon = 0.5 (single day, subtracted once)
    Sat (half begin) .. Mon            = 1   (Sat is not a working day)

  When a record is clipped to a query period (a year, the carry-over
  window) the clipped edge loses its half-day flag: the record does not
  really begin or end there.

SEE ALSO:
  - store/sqlite/sqlite.go: persistent HolidayCalendar
  - leave/entitlement.go: sums working days per year
*/
package generic

import (
	"sync"

	"github.com/shopspring/decimal"
)

// =============================================================================
// HOLIDAY CALENDAR
// =============================================================================

// Holiday is a day off for everyone, or a partial working day.
type Holiday struct {
	ID   string
	Date Date
	Name string
	// WorkFraction is the share of a normal working day still worked
	// (0 = full holiday, 0.5 = half day). Values outside [0,1] are clamped.
	WorkFraction decimal.Decimal
	// Recurring holidays repeat every year on the same month/day.
	Recurring bool
}

// HolidayCalendar provides holiday lookup.
type HolidayCalendar interface {
	// Holiday returns the holiday on date, if any.
	Holiday(date Date) (Holiday, bool)

	// Holidays returns all holidays of a year, recurring ones moved into it.
	Holidays(year int) []Holiday
}

// NoHolidays is the calendar with weekends only.
type NoHolidays struct{}

func (NoHolidays) Holiday(Date) (Holiday, bool) { return Holiday{}, false }
func (NoHolidays) Holidays(int) []Holiday       { return nil }

// StaticCalendar is an in-memory HolidayCalendar.
type StaticCalendar struct {
	mu       sync.RWMutex
	holidays map[Date]Holiday
	// recurring keyed by month*100+day
	recurring map[int]Holiday
}

// NewStaticCalendar creates a calendar holding the given holidays.
func NewStaticCalendar(holidays ...Holiday) *StaticCalendar {
	c := &StaticCalendar{
		holidays:  make(map[Date]Holiday),
		recurring: make(map[int]Holiday),
	}
	for _, h := range holidays {
		c.Add(h)
	}
	return c
}

// Add registers a holiday, replacing any existing one on the same day.
func (c *StaticCalendar) Add(h Holiday) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h.Recurring {
		c.recurring[int(h.Date.Month())*100+h.Date.Day()] = h
		return
	}
	c.holidays[h.Date] = h
}

// Remove drops the holiday with id. It reports whether one was found.
func (c *StaticCalendar) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, h := range c.holidays {
		if h.ID == id {
			delete(c.holidays, k)
			return true
		}
	}
	for k, h := range c.recurring {
		if h.ID == id {
			delete(c.recurring, k)
			return true
		}
	}
	return false
}

func (c *StaticCalendar) Holiday(date Date) (Holiday, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if h, ok := c.holidays[date]; ok {
		return h, true
	}
	if h, ok := c.recurring[int(date.Month())*100+date.Day()]; ok {
		h.Date = date
		return h, true
	}
	return Holiday{}, false
}

func (c *StaticCalendar) Holidays(year int) []Holiday {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var result []Holiday
	for _, h := range c.holidays {
		if h.Date.Year() == year {
			result = append(result, h)
		}
	}
	for _, h := range c.recurring {
		h.Date = NewDate(year, h.Date.Month(), h.Date.Day())
		result = append(result, h)
	}
	return result
}

// =============================================================================
// WORK CALENDAR - Working-day fractions
// =============================================================================

var (
	// HalfDay is the amount a half-day flag takes off a full working day.
	HalfDay = decimal.New(5, -1)
	one     = decimal.NewFromInt(1)
)

// WorkCalendar combines weekends with a HolidayCalendar.
type WorkCalendar struct {
	Holidays HolidayCalendar
}

// NewWorkCalendar wraps holidays; nil means weekends only.
func NewWorkCalendar(holidays HolidayCalendar) WorkCalendar {
	if holidays == nil {
		holidays = NoHolidays{}
	}
	return WorkCalendar{Holidays: holidays}
}

// WorkFraction returns how much of a working day date is: 0, 1 or the
// holiday's partial fraction.
func (c WorkCalendar) WorkFraction(date Date) decimal.Decimal {
	if date.IsWeekend() {
		return decimal.Zero
	}
	if c.Holidays != nil {
		if h, ok := c.Holidays.Holiday(date); ok {
			f := h.WorkFraction
			if f.IsNegative() {
				return decimal.Zero
			}
			if f.GreaterThan(one) {
				return one
			}
			return f
		}
	}
	return one
}

// IsWorkingDay reports whether any work is expected on date.
func (c WorkCalendar) IsWorkingDay(date Date) bool {
	return c.WorkFraction(date).IsPositive()
}

// IsFullWorkingDay reports whether date is a complete working day.
func (c WorkCalendar) IsFullWorkingDay(date Date) bool {
	return c.WorkFraction(date).Equal(one)
}

// WorkingDays counts working days in [start, end] including half-day
// handling at the boundaries. Zero or reversed ranges count 0.
func (c WorkCalendar) WorkingDays(start, end Date, halfDayBegin, halfDayEnd bool) decimal.Decimal {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return decimal.Zero
	}
	total := decimal.Zero
	for d := start; d.BeforeOrEqual(end); d = d.AddDays(1) {
		total = total.Add(c.WorkFraction(d))
	}
	if total.IsZero() {
		return total
	}
	if halfDayBegin && c.IsFullWorkingDay(start) {
		total = total.Sub(HalfDay)
	}
	if halfDayEnd && c.IsFullWorkingDay(end) && !(halfDayBegin && start.Equal(end)) {
		total = total.Sub(HalfDay)
	}
	return total
}

// WorkingDaysIn counts the working days of [start, end] that fall inside
// bounds. A half-day flag is dropped when its edge was clipped away.
func (c WorkCalendar) WorkingDaysIn(start, end Date, halfDayBegin, halfDayEnd bool, bounds Period) decimal.Decimal {
	clipped, ok := Period{Start: start, End: end}.Clip(bounds)
	if !ok {
		return decimal.Zero
	}
	if !clipped.Start.Equal(start) {
		halfDayBegin = false
	}
	if !clipped.End.Equal(end) {
		halfDayEnd = false
	}
	return c.WorkingDays(clipped.Start, clipped.End, halfDayBegin, halfDayEnd)
}
