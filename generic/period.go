package generic

// =============================================================================
// PERIOD - Inclusive date range
// =============================================================================

// Period is the inclusive range [Start, End].
//
// Examples:
//   - Calendar year 2025: Jan 1 - Dec 31
//   - Carry-over overlap window 2025: Jan 1 - Mar 31
//   - A leave record: its first and last day
type Period struct {
	Start Date
	End   Date
}

// YearPeriod returns Jan 1 - Dec 31 of year.
func YearPeriod(year int) Period {
	return Period{Start: StartOfYear(year), End: EndOfYear(year)}
}

// Valid reports whether both bounds are set and End is not before Start.
func (p Period) Valid() bool {
	return !p.Start.IsZero() && !p.End.IsZero() && !p.End.Before(p.Start)
}

// Contains returns true if d is within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Overlaps returns true if the two periods share at least one day.
func (p Period) Overlaps(other Period) bool {
	return !p.End.Before(other.Start) && !other.End.Before(p.Start)
}

// Clip returns the intersection of p with bounds. ok is false when they do
// not overlap.
func (p Period) Clip(bounds Period) (clipped Period, ok bool) {
	clipped = Period{Start: MaxDate(p.Start, bounds.Start), End: MinDate(p.End, bounds.End)}
	if clipped.End.Before(clipped.Start) {
		return Period{}, false
	}
	return clipped, true
}

// Days returns all days in the period, at most limit of them (limit <= 0
// means no limit).
func (p Period) Days(limit int) []Date {
	var days []Date
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		if limit > 0 && len(days) >= limit {
			break
		}
		days = append(days, current)
	}
	return days
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
