/*
validator.go - Rule chain run before a leave record is persisted

RULES (first failure wins):
   1. start or end missing                        DATE_NOT_SET
   2. end before start                            END_DATE_BEFORE_START_DATE
   3. start before the employee joined            DATE_BEFORE_JOINING
   4. new record starting in the past             START_DATE_BEFORE_NOW
      (unless the caller has elevated access)
   5. start and end in different years            VACATION_IN_2YEARS
   6. deleted, or not APPROVED/IN_PROGRESS        -> valid, stop
   7. overlaps another record of the employee     COLLISION
   8. half-day begin and no working day left      ZERO_NUMBER_OF_DAYS
   9. special leave                               -> valid, stop
  10. more days than left in the year             NOT_ENOUGH_DAYS_LEFT
      (carry-over counts for the part of the request inside the
       carry-over window, as far as it is unused)

RESULT:
  Validate returns the Code, or "" when valid. With throwOnError the same
  Code is also returned wrapped in *ValidationError so callers can simply
  propagate err. Infrastructure failures are always returned as err.
*/
package leave

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// CODES
// =============================================================================

// Code is a validation outcome. The empty Code means valid.
type Code string

const (
	CodeDateNotSet             Code = "DATE_NOT_SET"
	CodeEndDateBeforeStartDate Code = "END_DATE_BEFORE_START_DATE"
	CodeDateBeforeJoining      Code = "DATE_BEFORE_JOINING"
	CodeStartDateBeforeNow     Code = "START_DATE_BEFORE_NOW"
	CodeVacationIn2Years       Code = "VACATION_IN_2YEARS"
	CodeCollision              Code = "COLLISION"
	CodeZeroNumberOfDays       Code = "ZERO_NUMBER_OF_DAYS"
	CodeNotEnoughDaysLeft      Code = "NOT_ENOUGH_DAYS_LEFT"
)

// MessageKey is the i18n key of the user-facing message.
func (c Code) MessageKey() string {
	return "vacation.validate." + strings.ToLower(string(c))
}

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("leave validation failed")

// ValidationError carries a failed Code.
type ValidationError struct {
	Code     Code
	RecordID RecordID
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("leave validation failed: %s", e.Code)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// MessageKey of the failed code.
func (e *ValidationError) MessageKey() string { return e.Code.MessageKey() }

// =============================================================================
// ELEVATED ACCESS
// =============================================================================

type elevatedAccessKey struct{}

// WithElevatedAccess marks ctx as coming from an HR/admin user who may book
// leave in the past.
func WithElevatedAccess(ctx context.Context) context.Context {
	return context.WithValue(ctx, elevatedAccessKey{}, true)
}

// HasElevatedAccess reports whether ctx carries the override.
func HasElevatedAccess(ctx context.Context) bool {
	v, _ := ctx.Value(elevatedAccessKey{}).(bool)
	return v
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator runs the rule chain.
type Validator struct {
	Employees  EmployeeDirectory
	Records    RecordStore
	Calculator *Calculator
	// Today is the clock; generic.Today when nil.
	Today  func() generic.Date
	Logger logrus.FieldLogger
}

// NewValidator wires a validator.
func NewValidator(employees EmployeeDirectory, records RecordStore, calc *Calculator) *Validator {
	return &Validator{
		Employees:  employees,
		Records:    records,
		Calculator: calc,
		Logger:     logrus.StandardLogger(),
	}
}

func (v *Validator) today() generic.Date {
	if v.Today != nil {
		return v.Today()
	}
	return generic.Today()
}

// Validate checks record. previous is the stored version when record is an
// update, nil otherwise.
func (v *Validator) Validate(ctx context.Context, record Record, previous *Record, throwOnError bool) (Code, error) {
	code, err := v.check(ctx, record, previous)
	if err != nil {
		return "", err
	}
	if code != "" {
		if v.Logger != nil {
			v.Logger.WithFields(logrus.Fields{
				"employee_id": record.EmployeeID,
				"record_id":   record.ID,
				"code":        code,
			}).Debug("leave record rejected")
		}
		if throwOnError {
			return code, &ValidationError{Code: code, RecordID: record.ID}
		}
	}
	return code, nil
}

func (v *Validator) check(ctx context.Context, record Record, previous *Record) (Code, error) {
	if record.Start.IsZero() || record.End.IsZero() {
		return CodeDateNotSet, nil
	}
	if record.End.Before(record.Start) {
		return CodeEndDateBeforeStartDate, nil
	}

	emp, err := v.Employees.Employee(ctx, record.EmployeeID)
	if err != nil {
		return "", fmt.Errorf("load employee %s: %w", record.EmployeeID, err)
	}
	if emp == nil {
		return "", &generic.NotFoundError{Kind: "employee", ID: string(record.EmployeeID)}
	}

	if !emp.JoinDate.IsZero() && record.Start.Before(emp.JoinDate) {
		return CodeDateBeforeJoining, nil
	}
	if record.IsNew() && record.Start.Before(v.today()) && !HasElevatedAccess(ctx) {
		return CodeStartDateBeforeNow, nil
	}
	if record.Start.Year() != record.End.Year() {
		return CodeVacationIn2Years, nil
	}
	if !record.IsActive() {
		return "", nil
	}

	collision, err := v.collides(ctx, record)
	if err != nil {
		return "", err
	}
	if collision {
		return CodeCollision, nil
	}

	requested := v.Calculator.WorkingDays(record)
	if record.HalfDayBegin && !requested.IsPositive() {
		return CodeZeroNumberOfDays, nil
	}
	if record.Special {
		return "", nil
	}

	enough, err := v.enoughDaysLeft(ctx, emp, record, previous, requested)
	if err != nil {
		return "", err
	}
	if !enough {
		return CodeNotEnoughDaysLeft, nil
	}
	return "", nil
}

func (v *Validator) collides(ctx context.Context, record Record) (bool, error) {
	others, err := v.Records.RecordsOverlapping(ctx, record.EmployeeID, record.Start, record.End, true)
	if err != nil {
		return false, fmt.Errorf("load records of %s: %w", record.EmployeeID, err)
	}
	for _, o := range others {
		if o.Deleted || (!record.IsNew() && o.ID == record.ID) {
			continue
		}
		if o.Period().Overlaps(record.Period()) {
			return true, nil
		}
	}
	return false, nil
}

func (v *Validator) enoughDaysLeft(ctx context.Context, emp *Employee, record Record, previous *Record, requested decimal.Decimal) (bool, error) {
	excluded := []RecordID{record.ID}
	if previous != nil {
		excluded = append(excluded, previous.ID)
	}
	balance, err := v.Calculator.YearBalanceWithout(ctx, emp, record.Start.Year(), v.today(), excluded...)
	if err != nil {
		return false, err
	}
	if requested.LessThanOrEqual(balance.LeftInYearWithoutCarry) {
		return true, nil
	}

	// Only the part of the request inside the carry-over window may use
	// carry-over, and only as much of it as is still unused.
	inOverlap := v.Calculator.WorkingDaysIn(record, balance.OverlapPeriod())
	usableCarry := decimal.Min(inOverlap, balance.UnusedRemainingFromPreviousYear)
	return requested.LessThanOrEqual(balance.LeftInYearWithoutCarry.Add(usableCarry)), nil
}
