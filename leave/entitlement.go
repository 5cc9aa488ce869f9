/*
entitlement.go - Per-employee, per-year leave balance

PURPOSE:
  Answers "how many days of leave does this employee have left this year?"
  including days carried over from the previous year.

CARRY-OVER:
  Days left at the end of year Y-1 may be used in year Y until the
  configured cutoff (default March 31). Days booked inside the overlap
  window [Jan 1, cutoff] consume carry-over first. Whatever carry-over is
  still unused after the cutoff is lost.

  The carry-over of year Y is memoized in a CarryOverMemo the first time it
  is computed. It is computed on demand only for the base date's own year,
  by computing the balance of Y-1 (whose own carry-over is only ever read
  from the memo). The recursion is therefore at most one level deep.

PRO-RATION:
  An employee joining or leaving mid-year gets 1/12 of the annual
  entitlement per month under contract. A month counts if at least ~15 days
  of it were worked: joined on or before the 14th, or left on or after the
  15th. Rounding: annual/12 to 2 places, times months, to 0 places (half-up).

  Example: 24 days/year, joined June 10 -> Jun..Dec = 7 months
           -> round(2.00 * 7) = 14 days

SEE ALSO:
  - generic/calendar.go: working days and half days
  - validator.go: uses YearBalanceWithout for NOT_ENOUGH_DAYS_LEFT
*/
package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// CALCULATOR
// =============================================================================

// Calculator computes YearBalances.
type Calculator struct {
	Records     RecordStore
	Memo        CarryOverMemo
	Corrections AccountEntryStore
	Contracts   ContractInfo
	CarryPeriod CarryPeriodProvider
	Calendar    generic.WorkCalendar
	Logger      logrus.FieldLogger
}

// NewCalculator wires a calculator. contracts may be nil (EmployeeContract).
func NewCalculator(
	records RecordStore,
	memo CarryOverMemo,
	corrections AccountEntryStore,
	contracts ContractInfo,
	carryPeriod CarryPeriodProvider,
	calendar generic.WorkCalendar,
) *Calculator {
	if contracts == nil {
		contracts = EmployeeContract{}
	}
	return &Calculator{
		Records:     records,
		Memo:        memo,
		Corrections: corrections,
		Contracts:   contracts,
		CarryPeriod: carryPeriod,
		Calendar:    calendar,
		Logger:      logrus.StandardLogger(),
	}
}

func (c *Calculator) log() logrus.FieldLogger {
	if c.Logger == nil {
		return logrus.StandardLogger()
	}
	return c.Logger
}

// YearBalance computes the balance of emp for year as seen on baseDate.
// A nil employee yields an empty balance and a warning.
func (c *Calculator) YearBalance(ctx context.Context, emp *Employee, year int, baseDate generic.Date) (*YearBalance, error) {
	return c.YearBalanceWithout(ctx, emp, year, baseDate)
}

// YearBalanceWithout is YearBalance ignoring the given records, e.g. the
// record being validated or its previous version.
func (c *Calculator) YearBalanceWithout(ctx context.Context, emp *Employee, year int, baseDate generic.Date, excluded ...RecordID) (*YearBalance, error) {
	if emp == nil {
		c.log().WithField("year", year).Warn("year balance requested without employee")
		return &YearBalance{Year: year, BaseDate: baseDate, EndOfCarryPeriod: c.endOfCarryPeriod(year)}, nil
	}
	if baseDate.IsZero() {
		baseDate = generic.Today()
	}
	return c.yearBalance(ctx, emp, year, baseDate, excluded)
}

func (c *Calculator) yearBalance(ctx context.Context, emp *Employee, year int, baseDate generic.Date, excluded []RecordID) (*YearBalance, error) {
	b := &YearBalance{
		EmployeeID:       emp.ID,
		Year:             year,
		BaseDate:         baseDate,
		EndOfCarryPeriod: c.endOfCarryPeriod(year),
	}

	entitlement, err := c.EntitlementFromContract(ctx, emp, year)
	if err != nil {
		return nil, err
	}
	b.EntitlementFromContract = entitlement

	remaining, lastYear, err := c.remainingFromPreviousYear(ctx, emp, year, baseDate)
	if err != nil {
		return nil, err
	}
	b.RemainingFromPreviousYear = remaining
	b.LastYearStats = lastYear

	records, err := c.Records.RecordsOverlapping(ctx, emp.ID, generic.StartOfYear(year), generic.EndOfYear(year), true)
	if err != nil {
		return nil, fmt.Errorf("load records of %s/%d: %w", emp.ID, year, err)
	}
	records = withoutRecords(records, excluded)

	yearPeriod := generic.YearPeriod(year)
	b.UsedApproved = c.sumWorkingDays(records, yearPeriod, false, StatusApproved)
	b.UsedInProgress = c.sumWorkingDays(records, yearPeriod, false, StatusInProgress)
	b.UsedInProgressAndApproved = b.UsedApproved.Add(b.UsedInProgress)
	b.SpecialUsedApproved = c.sumWorkingDays(records, yearPeriod, true, StatusApproved)
	b.SpecialUsedInProgress = c.sumWorkingDays(records, yearPeriod, true, StatusInProgress)
	b.AllocatedInOverlapPeriod = c.sumWorkingDays(records, b.OverlapPeriod(), false, ActiveStatuses...)

	corrections, err := c.correctionsSum(ctx, emp.ID, year)
	if err != nil {
		return nil, err
	}
	b.LeaveAccountCorrectionsSum = corrections

	b.derive()
	return b, nil
}

// =============================================================================
// CONTRACT ENTITLEMENT
// =============================================================================

// EntitlementFromContract returns the entitlement of year, pro-rated by the
// months under contract.
func (c *Calculator) EntitlementFromContract(ctx context.Context, emp *Employee, year int) (decimal.Decimal, error) {
	if emp == nil {
		c.log().WithField("year", year).Warn("entitlement requested without employee")
		return decimal.Zero, nil
	}
	months := EmployedMonths(emp.JoinDate, emp.LeaveDate, year)
	if months == 0 {
		return decimal.Zero, nil
	}

	asOf := generic.EndOfYear(year)
	if !emp.LeaveDate.IsZero() && emp.LeaveDate.Before(asOf) {
		asOf = emp.LeaveDate
	}
	annual, err := c.Contracts.AnnualEntitlement(ctx, *emp, asOf)
	if err != nil {
		return decimal.Zero, fmt.Errorf("annual entitlement of %s: %w", emp.ID, err)
	}
	if months == 12 {
		return annual, nil
	}
	return ProRate(annual, months), nil
}

// ProRate returns round(round(annual/12, 2) * months, 0).
func ProRate(annual decimal.Decimal, months int) decimal.Decimal {
	perMonth := generic.RoundHalfUp(annual.Div(decimal.NewFromInt(12)), 2)
	return generic.RoundHalfUp(perMonth.Mul(decimal.NewFromInt(int64(months))), 0)
}

// EmployedMonths counts the months of year under contract. A join month
// counts if joined on or before the 14th, a leave month if left on or after
// the 15th.
func EmployedMonths(joinDate, leaveDate generic.Date, year int) int {
	first, last := 1, 12
	if !joinDate.IsZero() {
		switch {
		case joinDate.Year() > year:
			return 0
		case joinDate.Year() == year:
			first = int(joinDate.Month())
			if joinDate.Day() > 14 {
				first++
			}
		}
	}
	if !leaveDate.IsZero() {
		switch {
		case leaveDate.Year() < year:
			return 0
		case leaveDate.Year() == year:
			last = int(leaveDate.Month())
			if leaveDate.Day() < 15 {
				last--
			}
		}
	}
	if last < first {
		return 0
	}
	return last - first + 1
}

// =============================================================================
// CARRY-OVER
// =============================================================================

func (c *Calculator) remainingFromPreviousYear(ctx context.Context, emp *Employee, year int, baseDate generic.Date) (decimal.Decimal, *YearBalance, error) {
	memo, err := c.memoized(ctx, emp.ID, year)
	if err != nil {
		return decimal.Zero, nil, err
	}
	if memo != nil {
		return *memo, nil, nil
	}

	switch {
	case !emp.JoinDate.IsZero() && emp.JoinDate.Year() >= year,
		year > baseDate.Year(),
		year < baseDate.Year()-1:
		return decimal.Zero, nil, nil

	case year == baseDate.Year():
		lastYear, err := c.yearBalance(ctx, emp, year-1, baseDate, nil)
		if err != nil {
			return decimal.Zero, nil, err
		}
		carry := lastYear.LeftInYear
		if c.Memo != nil {
			if err := c.Memo.PutCarryOver(ctx, emp.ID, year, carry); err != nil {
				return decimal.Zero, nil, fmt.Errorf("memoize carry-over %s/%d: %w", emp.ID, year, err)
			}
		}
		c.log().WithFields(logrus.Fields{
			"employee_id": emp.ID,
			"year":        year,
			"carry_over":  carry.String(),
		}).Debug("carry-over computed")
		return carry, lastYear, nil

	default:
		// year == baseDate.Year()-1 is only ever filled by a call based in
		// that year, and the memo was already consulted above.
		return decimal.Zero, nil, nil
	}
}

func (c *Calculator) memoized(ctx context.Context, employeeID EmployeeID, year int) (*decimal.Decimal, error) {
	if c.Memo == nil {
		return nil, nil
	}
	v, err := c.Memo.CarryOver(ctx, employeeID, year)
	if err != nil {
		return nil, fmt.Errorf("read carry-over %s/%d: %w", employeeID, year, err)
	}
	return v, nil
}

func (c *Calculator) endOfCarryPeriod(year int) generic.Date {
	if c.CarryPeriod == nil {
		return generic.NewDate(year, time.March, 31)
	}
	return c.CarryPeriod.EndOfCarryPeriod(year)
}

// =============================================================================
// USAGE
// =============================================================================

// UsedDays sums the working days of emp's records inside period. Only
// records matching special and one of statuses count (APPROVED and
// IN_PROGRESS when none are given).
func (c *Calculator) UsedDays(ctx context.Context, emp *Employee, period generic.Period, special bool, statuses ...Status) (decimal.Decimal, error) {
	if emp == nil {
		c.log().Warn("used days requested without employee")
		return decimal.Zero, nil
	}
	if !period.Valid() {
		return decimal.Zero, generic.ErrInvalidPeriod
	}
	if len(statuses) == 0 {
		statuses = ActiveStatuses
	}
	records, err := c.Records.RecordsOverlapping(ctx, emp.ID, period.Start, period.End, special)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load records of %s: %w", emp.ID, err)
	}
	return c.sumWorkingDays(records, period, special, statuses...), nil
}

// WorkingDays is the full length of a record in working days.
func (c *Calculator) WorkingDays(r Record) decimal.Decimal {
	if r.Start.IsZero() || r.End.IsZero() {
		c.log().WithField("record_id", r.ID).Warn("working days of record without dates")
		return decimal.Zero
	}
	return c.Calendar.WorkingDays(r.Start, r.End, r.HalfDayBegin, r.HalfDayEnd)
}

// WorkingDaysIn is the part of a record inside period.
func (c *Calculator) WorkingDaysIn(r Record, period generic.Period) decimal.Decimal {
	if r.Start.IsZero() || r.End.IsZero() {
		c.log().WithField("record_id", r.ID).Warn("working days of record without dates")
		return decimal.Zero
	}
	return c.Calendar.WorkingDaysIn(r.Start, r.End, r.HalfDayBegin, r.HalfDayEnd, period)
}

func (c *Calculator) sumWorkingDays(records []Record, period generic.Period, special bool, statuses ...Status) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		if r.Deleted || r.Special != special || !hasStatus(r.Status, statuses) {
			continue
		}
		total = total.Add(c.WorkingDaysIn(r, period))
	}
	return total
}

func (c *Calculator) correctionsSum(ctx context.Context, employeeID EmployeeID, year int) (decimal.Decimal, error) {
	if c.Corrections == nil {
		return decimal.Zero, nil
	}
	entries, err := c.Corrections.EntriesFor(ctx, employeeID, year)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load leave account entries %s/%d: %w", employeeID, year, err)
	}
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return total, nil
}

func withoutRecords(records []Record, excluded []RecordID) []Record {
	if len(excluded) == 0 {
		return records
	}
	skip := make(map[RecordID]bool, len(excluded))
	for _, id := range excluded {
		if id != "" {
			skip[id] = true
		}
	}
	result := records[:0:0]
	for _, r := range records {
		if !skip[r.ID] {
			result = append(result, r)
		}
	}
	return result
}
