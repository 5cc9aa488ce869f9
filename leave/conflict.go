package leave

import (
	"context"
	"fmt"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// CONFLICT DETECTION - Is somebody left to cover for the absent employee?
// =============================================================================

// MaxConflictDays bounds the day-by-day scan so corrupted ranges cannot hang
// a cache rebuild.
const MaxConflictDays = 10000

// Replacements returns the record's substitutes, primary first, without
// duplicates, empty ids or the absent employee itself.
func Replacements(r Record) []EmployeeID {
	seen := make(map[EmployeeID]bool)
	var result []EmployeeID
	add := func(id EmployeeID) {
		if id == "" || id == r.EmployeeID || seen[id] {
			return
		}
		seen[id] = true
		result = append(result, id)
	}
	add(r.Replacement)
	for _, id := range r.OtherReplacements {
		add(id)
	}
	return result
}

// CheckConflict reports whether at least one day of record has no
// replacement available. others are the replacements' own leave records
// overlapping the request; records of other employees are ignored.
//
// A replacement without any record in others is available on every day, so
// the result is false as soon as one such replacement exists.
func CheckConflict(record Record, others []Record) bool {
	replacements := Replacements(record)
	if len(replacements) == 0 {
		return false
	}

	byReplacement := make(map[EmployeeID][]Record, len(replacements))
	for _, id := range replacements {
		byReplacement[id] = nil
	}
	for _, o := range others {
		if _, ok := byReplacement[o.EmployeeID]; ok {
			byReplacement[o.EmployeeID] = append(byReplacement[o.EmployeeID], o)
		}
	}
	for _, id := range replacements {
		if len(byReplacement[id]) == 0 {
			return false
		}
	}

	if record.Start.IsZero() || record.End.IsZero() {
		return false
	}
	for _, day := range record.Period().Days(MaxConflictDays) {
		if !anyAvailable(replacements, byReplacement, day) {
			return true
		}
	}
	return false
}

func anyAvailable(replacements []EmployeeID, byReplacement map[EmployeeID][]Record, day generic.Date) bool {
	for _, id := range replacements {
		away := false
		for _, o := range byReplacement[id] {
			if o.Covers(day) {
				away = true
				break
			}
		}
		if !away {
			return true
		}
	}
	return false
}

// =============================================================================
// DETECTOR - CheckConflict fed from the record store
// =============================================================================

// Detector computes the conflict flag of a single record.
type Detector struct {
	Records RecordStore
	// Today is the clock; generic.Today when nil.
	Today func() generic.Date
}

func (d *Detector) today() generic.Date {
	if d.Today != nil {
		return d.Today()
	}
	return generic.Today()
}

// HasConflict loads the replacements' active records overlapping the
// request and runs CheckConflict. Inactive records never conflict.
//
// Replacement records that ended before today are not loaded, matching the
// current-and-future batch a ConflictCache rebuild works from.
func (d *Detector) HasConflict(ctx context.Context, record Record) (bool, error) {
	if !record.IsActive() || !record.Period().Valid() {
		return false, nil
	}
	replacements := Replacements(record)
	if len(replacements) == 0 {
		return false, nil
	}
	from := record.Start
	if today := d.today(); from.Before(today) {
		from = today
	}
	if from.After(record.End) {
		return false, nil
	}
	var others []Record
	for _, id := range replacements {
		records, err := d.Records.RecordsOverlapping(ctx, id, from, record.End, true)
		if err != nil {
			return false, fmt.Errorf("load records of replacement %s: %w", id, err)
		}
		for _, o := range records {
			if o.IsActive() {
				others = append(others, o)
			}
		}
	}
	return CheckConflict(record, others), nil
}
