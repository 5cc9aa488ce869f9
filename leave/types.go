// Package leave implements paid-leave accounting and substitute-conflict
// detection on top of the generic calendar primitives.
package leave

import (
	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type RecordID string

// =============================================================================
// EMPLOYEE
// =============================================================================

// Employee is the contract data the engine needs about a person.
type Employee struct {
	ID     EmployeeID
	UserID string // login account, used by per-user badges
	Name   string

	JoinDate  generic.Date // zero = unknown
	LeaveDate generic.Date // zero = still employed

	// AnnualEntitlement in days per full year; may be fractional.
	AnnualEntitlement decimal.Decimal

	// Default substitutes for new leave records, primary first.
	PrimarySubstitute EmployeeID
	Substitutes       []EmployeeID
}

// =============================================================================
// LEAVE RECORD
// =============================================================================

type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusApproved   Status = "APPROVED"
	StatusRejected   Status = "REJECTED"
)

// ActiveStatuses are the statuses that consume entitlement and block days.
var ActiveStatuses = []Status{StatusApproved, StatusInProgress}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusInProgress, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Record is a leave request/booking. Start and End are inclusive and lie in
// the same calendar year.
type Record struct {
	ID         RecordID // empty until persisted
	EmployeeID EmployeeID

	Start        generic.Date
	End          generic.Date
	HalfDayBegin bool
	HalfDayEnd   bool

	Status  Status
	Deleted bool
	// Special leave does not consume entitlement but still needs cover.
	Special bool

	Replacement       EmployeeID
	OtherReplacements []EmployeeID

	Comment string
}

// IsNew reports whether the record has never been persisted.
func (r Record) IsNew() bool { return r.ID == "" }

// Period returns [Start, End].
func (r Record) Period() generic.Period {
	return generic.Period{Start: r.Start, End: r.End}
}

// IsActive reports whether the record is live and approved or in progress.
func (r Record) IsActive() bool {
	return !r.Deleted && hasStatus(r.Status, ActiveStatuses)
}

// Covers reports whether the employee is away on day.
func (r Record) Covers(day generic.Date) bool {
	return r.Period().Contains(day)
}

func hasStatus(s Status, statuses []Status) bool {
	for _, candidate := range statuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// =============================================================================
// LEAVE ACCOUNT ENTRY - Manual correction
// =============================================================================

// AccountEntry is an administrative grant (positive) or deduction (negative)
// added to a year's balance as-is.
type AccountEntry struct {
	ID          string
	EmployeeID  EmployeeID
	Year        int
	Date        generic.Date
	Amount      decimal.Decimal
	Description string
}

// =============================================================================
// YEAR BALANCE - Computed, never persisted
// =============================================================================

// YearBalance is the leave account of one employee for one calendar year.
//
//	LeftInYearWithoutCarry = min(RemainingFromPreviousYear, AllocatedInOverlapPeriod)
//	                         + EntitlementFromContract
//	                         - UsedInProgressAndApproved
//	                         + LeaveAccountCorrectionsSum
//	LeftInYear             = LeftInYearWithoutCarry
//	                         + UnusedRemainingFromPreviousYear (only while BaseDate <= EndOfCarryPeriod)
type YearBalance struct {
	EmployeeID EmployeeID
	Year       int
	BaseDate   generic.Date

	EntitlementFromContract   decimal.Decimal
	RemainingFromPreviousYear decimal.Decimal

	UsedInProgressAndApproved decimal.Decimal
	UsedApproved              decimal.Decimal
	UsedInProgress            decimal.Decimal
	SpecialUsedApproved       decimal.Decimal
	SpecialUsedInProgress     decimal.Decimal

	// AllocatedInOverlapPeriod is non-special usage in [Jan 1, EndOfCarryPeriod].
	AllocatedInOverlapPeriod   decimal.Decimal
	LeaveAccountCorrectionsSum decimal.Decimal
	EndOfCarryPeriod           generic.Date

	UnusedRemainingFromPreviousYear decimal.Decimal
	LeftInYearWithoutCarry          decimal.Decimal
	LeftInYear                      decimal.Decimal

	// LastYearStats is set when the carry-over was computed in this call.
	LastYearStats *YearBalance
}

// OverlapPeriod returns the carry-over window [Jan 1, EndOfCarryPeriod].
func (b *YearBalance) OverlapPeriod() generic.Period {
	return generic.Period{Start: generic.StartOfYear(b.Year), End: b.EndOfCarryPeriod}
}

// CarryUsable reports whether unused carry-over still counts on BaseDate.
func (b *YearBalance) CarryUsable() bool {
	return b.BaseDate.BeforeOrEqual(b.EndOfCarryPeriod)
}

// derive fills the computed fields from the summed inputs.
func (b *YearBalance) derive() {
	b.UnusedRemainingFromPreviousYear = generic.NonNegative(
		b.RemainingFromPreviousYear.Sub(b.AllocatedInOverlapPeriod))
	b.LeftInYearWithoutCarry = decimal.Min(b.RemainingFromPreviousYear, b.AllocatedInOverlapPeriod).
		Add(b.EntitlementFromContract).
		Sub(b.UsedInProgressAndApproved).
		Add(b.LeaveAccountCorrectionsSum)
	b.LeftInYear = b.LeftInYearWithoutCarry
	if b.CarryUsable() {
		b.LeftInYear = b.LeftInYear.Add(b.UnusedRemainingFromPreviousYear)
	}
}
