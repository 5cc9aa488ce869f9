/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupled from the
  leave package's domain types.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNTS:
  Day amounts are decimals and serialize as JSON strings ("14.5") so that
  no client ever sees a float rounding artefact.

DATES:
  YYYY-MM-DD strings. Empty means "not set".
*/
package api

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// LEAVE RECORDS
// =============================================================================

// LeaveRequest is the body of POST /api/leave, PUT /api/leave/{id} and
// POST /api/leave/validate.
type LeaveRequest struct {
	ID                string   `json:"id,omitempty"`
	EmployeeID        string   `json:"employee_id"`
	Start             string   `json:"start"`
	End               string   `json:"end"`
	HalfDayBegin      bool     `json:"half_day_begin"`
	HalfDayEnd        bool     `json:"half_day_end"`
	Status            string   `json:"status,omitempty"`
	Special           bool     `json:"special"`
	Replacement       string   `json:"replacement,omitempty"`
	OtherReplacements []string `json:"other_replacements,omitempty"`
	Comment           string   `json:"comment,omitempty"`
}

// toRecord converts the request. Missing dates stay zero so the validator
// can report them.
func (req LeaveRequest) toRecord() (leave.Record, error) {
	start, err := parseOptionalDate(req.Start)
	if err != nil {
		return leave.Record{}, fmt.Errorf("%w: start: %v", generic.ErrInvalidInput, err)
	}
	end, err := parseOptionalDate(req.End)
	if err != nil {
		return leave.Record{}, fmt.Errorf("%w: end: %v", generic.ErrInvalidInput, err)
	}
	others := make([]leave.EmployeeID, 0, len(req.OtherReplacements))
	for _, id := range req.OtherReplacements {
		others = append(others, leave.EmployeeID(id))
	}
	return leave.Record{
		ID:                leave.RecordID(req.ID),
		EmployeeID:        leave.EmployeeID(req.EmployeeID),
		Start:             start,
		End:               end,
		HalfDayBegin:      req.HalfDayBegin,
		HalfDayEnd:        req.HalfDayEnd,
		Status:            leave.Status(req.Status),
		Special:           req.Special,
		Replacement:       leave.EmployeeID(req.Replacement),
		OtherReplacements: others,
		Comment:           req.Comment,
	}, nil
}

// RecordDTO represents a leave record in API responses.
type RecordDTO struct {
	ID                string          `json:"id"`
	EmployeeID        string          `json:"employee_id"`
	Start             string          `json:"start"`
	End               string          `json:"end"`
	HalfDayBegin      bool            `json:"half_day_begin"`
	HalfDayEnd        bool            `json:"half_day_end"`
	Status            string          `json:"status"`
	Special           bool            `json:"special"`
	Replacement       string          `json:"replacement,omitempty"`
	OtherReplacements []string        `json:"other_replacements"`
	Comment           string          `json:"comment,omitempty"`
	WorkingDays       decimal.Decimal `json:"working_days"`
	Conflict          bool            `json:"conflict"`
}

// ValidationDTO is the result of a dry-run validation.
type ValidationDTO struct {
	Valid      bool   `json:"valid"`
	Code       string `json:"code"`
	MessageKey string `json:"message_key,omitempty"`
}

// ConflictDTO answers GET /api/leave/{id}/conflict.
type ConflictDTO struct {
	RecordID string `json:"record_id"`
	Conflict bool   `json:"conflict"`
}

// =============================================================================
// BALANCE
// =============================================================================

// BalanceDTO represents a YearBalance.
type BalanceDTO struct {
	EmployeeID string `json:"employee_id"`
	Year       int    `json:"year"`
	BaseDate   string `json:"base_date"`

	EntitlementFromContract   decimal.Decimal `json:"entitlement_from_contract"`
	RemainingFromPreviousYear decimal.Decimal `json:"remaining_from_previous_year"`

	UsedInProgressAndApproved decimal.Decimal `json:"used_in_progress_and_approved"`
	UsedApproved              decimal.Decimal `json:"used_approved"`
	UsedInProgress            decimal.Decimal `json:"used_in_progress"`
	SpecialUsedApproved       decimal.Decimal `json:"special_used_approved"`
	SpecialUsedInProgress     decimal.Decimal `json:"special_used_in_progress"`

	AllocatedInOverlapPeriod   decimal.Decimal `json:"allocated_in_overlap_period"`
	LeaveAccountCorrectionsSum decimal.Decimal `json:"leave_account_corrections_sum"`
	EndOfCarryPeriod           string          `json:"end_of_carry_period"`

	UnusedRemainingFromPreviousYear decimal.Decimal `json:"unused_remaining_from_previous_year"`
	LeftInYearWithoutCarry          decimal.Decimal `json:"left_in_year_without_carry"`
	LeftInYear                      decimal.Decimal `json:"left_in_year"`

	LastYear *BalanceDTO `json:"last_year,omitempty"`
}

func toBalanceDTO(b *leave.YearBalance) *BalanceDTO {
	if b == nil {
		return nil
	}
	return &BalanceDTO{
		EmployeeID:                      string(b.EmployeeID),
		Year:                            b.Year,
		BaseDate:                        b.BaseDate.String(),
		EntitlementFromContract:         b.EntitlementFromContract,
		RemainingFromPreviousYear:       b.RemainingFromPreviousYear,
		UsedInProgressAndApproved:       b.UsedInProgressAndApproved,
		UsedApproved:                    b.UsedApproved,
		UsedInProgress:                  b.UsedInProgress,
		SpecialUsedApproved:             b.SpecialUsedApproved,
		SpecialUsedInProgress:           b.SpecialUsedInProgress,
		AllocatedInOverlapPeriod:        b.AllocatedInOverlapPeriod,
		LeaveAccountCorrectionsSum:      b.LeaveAccountCorrectionsSum,
		EndOfCarryPeriod:                b.EndOfCarryPeriod.String(),
		UnusedRemainingFromPreviousYear: b.UnusedRemainingFromPreviousYear,
		LeftInYearWithoutCarry:          b.LeftInYearWithoutCarry,
		LeftInYear:                      b.LeftInYear,
		LastYear:                        toBalanceDTO(b.LastYearStats),
	}
}

// =============================================================================
// BADGES
// =============================================================================

// BadgesDTO holds the counters shown next to a user's name.
type BadgesDTO struct {
	UserID       string `json:"user_id"`
	Conflicts    int    `json:"conflicts"`
	OpenRequests int    `json:"open_requests"`
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// HolidayDTO represents a holiday.
type HolidayDTO struct {
	ID           string          `json:"id"`
	Date         string          `json:"date"`
	Name         string          `json:"name"`
	WorkFraction decimal.Decimal `json:"work_fraction"`
	Recurring    bool            `json:"recurring"`
}

// CreateHolidayRequest is the body of POST /api/holidays. WorkFraction
// defaults to 0 (full day off).
type CreateHolidayRequest struct {
	Date         string           `json:"date"`
	Name         string           `json:"name"`
	WorkFraction *decimal.Decimal `json:"work_fraction,omitempty"`
	Recurring    bool             `json:"recurring"`
}

func toHolidayDTO(h generic.Holiday) HolidayDTO {
	return HolidayDTO{
		ID:           h.ID,
		Date:         h.Date.String(),
		Name:         h.Name,
		WorkFraction: h.WorkFraction,
		Recurring:    h.Recurring,
	}
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Code       string `json:"code,omitempty"`
	MessageKey string `json:"message_key,omitempty"`
}

func parseOptionalDate(s string) (generic.Date, error) {
	if s == "" {
		return generic.Date{}, nil
	}
	return generic.ParseDate(s)
}
