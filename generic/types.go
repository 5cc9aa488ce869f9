/*
Package generic provides the domain-agnostic building blocks of the leave
engine.

PURPOSE:
  Calendar dates, periods, working-day arithmetic, decimal helpers and the
  refresh-on-stale capability used by caches. Nothing in here knows what a
  leave record or an employee is.

KEY CONCEPTS:
  - Date:            calendar day, no clock, no timezone
  - Period:          inclusive [Start, End] date range
  - WorkCalendar:    weekends + holidays -> working-day fractions
  - Refreshable:     cache capability "rebuild when stale"

DESIGN PRINCIPLES:
  1. Precision: day amounts use decimal.Decimal (half days, 1/12 pro-ration)
  2. Rounding is explicit and half-up, never banker's rounding
  3. No hidden clocks: callers pass the base date in

SEE ALSO:
  - calendar.go: working days and half-day handling
  - refresh.go:  Refreshable and Expiry
  - errors.go:   sentinel errors
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// DECIMAL HELPERS
// =============================================================================

// MustParseDecimal parses s, returning zero on malformed input.
func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// RoundHalfUp rounds to places decimals, halves away from zero.
// decimal.Round already rounds half away from zero; the name documents it.
func RoundHalfUp(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}

// Sum adds up amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// NonNegative clamps d at zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
