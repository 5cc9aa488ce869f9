/*
handlers.go - HTTP API handlers for the leave engine

PURPOSE:
  Exposes balances, leave record writes and conflict flags via REST.
  Handles HTTP request/response and JSON serialization; all rules live in
  the leave package.

ENDPOINTS:
  Employees:
    GET    /api/employees/{id}/balance?year=&base_date=  Year balance
    GET    /api/employees/{id}/conflicts                 Conflicting records

  Leave:
    POST   /api/leave               Create a leave record
    PUT    /api/leave/{id}          Update a leave record
    POST   /api/leave/validate      Dry-run validation, nothing is stored
    DELETE /api/leave/{id}          Soft delete
    GET    /api/leave/{id}/conflict Conflict flag of a record

  Users:
    GET    /api/users/{userID}/badges  Conflict and open request counters

  Holidays:
    GET    /api/holidays?year=      Holidays of a year
    POST   /api/holidays            Add a holiday
    DELETE /api/holidays/{id}       Remove a holiday

  Admin:
    POST   /api/admin/conflicts/refresh  Rebuild the conflict cache now

ERROR HANDLING:
  All errors return JSON: {"error": "message", "details": "...", "code": "..."}
  Status codes:
    400 - Bad request (invalid input)
    404 - Not found
    409 - Conflict (COLLISION with another record)
    422 - Validation failed (code + message_key)
    500 - Internal error
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// HolidayStore is the holiday administration the handlers need.
type HolidayStore interface {
	AddHoliday(ctx context.Context, h generic.Holiday) (generic.Holiday, error)
	DeleteHoliday(ctx context.Context, id string) error
	Holidays(year int) []generic.Holiday
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service  *leave.Service
	Holidays HolidayStore
	Logger   logrus.FieldLogger
}

// NewHandler creates a handler. The service must have its Cache set.
func NewHandler(service *leave.Service, holidays HolidayStore, logger logrus.FieldLogger) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Handler{Service: service, Holidays: holidays, Logger: logger}
}

func (h *Handler) today() generic.Date {
	if h.Service.Today != nil {
		return h.Service.Today()
	}
	return generic.Today()
}

// =============================================================================
// ELEVATED ACCESS
// =============================================================================

// ElevatedHeader marks a request from a user allowed to book in the past.
const ElevatedHeader = "X-Leave-Elevated"

func elevatedAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ok, _ := strconv.ParseBool(r.Header.Get(ElevatedHeader)); ok {
			r = r.WithContext(leave.WithElevatedAccess(r.Context()))
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// GetBalance returns the year balance of an employee.
// GET /api/employees/{id}/balance?year=2025&base_date=2025-03-01
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	employeeID := leave.EmployeeID(chi.URLParam(r, "id"))
	today := h.today()

	year := today.Year()
	if s := r.URL.Query().Get("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil || y < 1 {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		year = y
	}
	baseDate := today
	if s := r.URL.Query().Get("base_date"); s != "" {
		d, err := generic.ParseDate(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid base_date (use YYYY-MM-DD)", err)
			return
		}
		baseDate = d
	}

	balance, err := h.Service.Balance(r.Context(), employeeID, year, baseDate)
	if err != nil {
		h.writeServiceError(w, "Failed to compute balance", err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(balance))
}

// GetConflicts returns the conflicting current and future records of an
// employee.
// GET /api/employees/{id}/conflicts
func (h *Handler) GetConflicts(w http.ResponseWriter, r *http.Request) {
	employeeID := leave.EmployeeID(chi.URLParam(r, "id"))
	records := h.Service.Cache.Conflicts(r.Context(), employeeID)

	dtos := make([]RecordDTO, 0, len(records))
	for _, rec := range records {
		dtos = append(dtos, h.toRecordDTO(rec, true))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"employee_id": employeeID,
		"conflicts":   dtos,
	})
}

// =============================================================================
// LEAVE HANDLERS
// =============================================================================

// CreateLeave validates and stores a new leave record.
// POST /api/leave
func (h *Handler) CreateLeave(w http.ResponseWriter, r *http.Request) {
	record, ok := decodeLeave(w, r)
	if !ok {
		return
	}
	record.ID = ""
	h.saveLeave(w, r, record, http.StatusCreated)
}

// UpdateLeave validates and stores a changed leave record.
// PUT /api/leave/{id}
func (h *Handler) UpdateLeave(w http.ResponseWriter, r *http.Request) {
	record, ok := decodeLeave(w, r)
	if !ok {
		return
	}
	record.ID = leave.RecordID(chi.URLParam(r, "id"))
	h.saveLeave(w, r, record, http.StatusOK)
}

func (h *Handler) saveLeave(w http.ResponseWriter, r *http.Request, record leave.Record, status int) {
	saved, err := h.Service.Save(r.Context(), record)
	if err != nil {
		h.writeServiceError(w, "Failed to save leave record", err)
		return
	}
	conflict := h.Service.Cache.HasConflict(r.Context(), saved.ID)
	writeJSON(w, status, h.toRecordDTO(saved, conflict))
}

// ValidateLeave runs the validator without storing anything.
// POST /api/leave/validate
func (h *Handler) ValidateLeave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	record, ok := decodeLeave(w, r)
	if !ok {
		return
	}
	if record.Status == "" {
		record.Status = leave.StatusInProgress
	}

	var previous *leave.Record
	if !record.IsNew() {
		stored, err := h.Service.Records.Record(ctx, record.ID)
		if err != nil {
			h.writeServiceError(w, "Failed to load leave record", err)
			return
		}
		if stored == nil {
			writeError(w, http.StatusNotFound, "Leave record not found", nil)
			return
		}
		previous = stored
	}

	code, err := h.Service.Validator.Validate(ctx, record, previous, false)
	if err != nil {
		h.writeServiceError(w, "Failed to validate leave record", err)
		return
	}
	resp := ValidationDTO{Valid: code == "", Code: string(code)}
	if code != "" {
		resp.MessageKey = code.MessageKey()
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeleteLeave soft-deletes a leave record.
// DELETE /api/leave/{id}
func (h *Handler) DeleteLeave(w http.ResponseWriter, r *http.Request) {
	id := leave.RecordID(chi.URLParam(r, "id"))
	if err := h.Service.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, "Failed to delete leave record", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "deleted",
		"id":     id,
	})
}

// GetLeaveConflict returns the cached conflict flag of a record.
// GET /api/leave/{id}/conflict
func (h *Handler) GetLeaveConflict(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := leave.RecordID(chi.URLParam(r, "id"))

	record, err := h.Service.Records.Record(ctx, id)
	if err != nil {
		h.writeServiceError(w, "Failed to load leave record", err)
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "Leave record not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, ConflictDTO{
		RecordID: string(id),
		Conflict: h.Service.Cache.HasConflictRecord(ctx, *record),
	})
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// GetBadges returns the counters for a login account.
// GET /api/users/{userID}/badges
func (h *Handler) GetBadges(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "userID")

	conflicts, err := h.Service.Cache.NumberOfConflicts(ctx, userID)
	if err != nil {
		h.writeServiceError(w, "Failed to count conflicts", err)
		return
	}
	open, err := h.Service.OpenRequestCount(ctx, userID)
	if err != nil {
		h.writeServiceError(w, "Failed to count open requests", err)
		return
	}
	writeJSON(w, http.StatusOK, BadgesDTO{
		UserID:       userID,
		Conflicts:    conflicts,
		OpenRequests: open,
	})
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListHolidays returns the holidays of a year, recurring ones included.
// GET /api/holidays?year=2025
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	year := h.today().Year()
	if s := r.URL.Query().Get("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid year", err)
			return
		}
		year = y
	}

	holidays := h.Holidays.Holidays(year)
	dtos := make([]HolidayDTO, 0, len(holidays))
	for _, hol := range holidays {
		dtos = append(dtos, toHolidayDTO(hol))
	}
	writeJSON(w, http.StatusOK, map[string]any{"holidays": dtos})
}

// CreateHoliday adds a holiday. Balances computed afterwards see it; the
// conflict cache does not depend on holidays.
// POST /api/holidays
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req CreateHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Date == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "Date and name are required", nil)
		return
	}
	date, err := generic.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	fraction := decimal.Zero
	if req.WorkFraction != nil {
		fraction = *req.WorkFraction
		if fraction.IsNegative() || fraction.GreaterThan(decimal.NewFromInt(1)) {
			writeError(w, http.StatusBadRequest, "work_fraction must be between 0 and 1", nil)
			return
		}
	}

	holiday, err := h.Holidays.AddHoliday(r.Context(), generic.Holiday{
		Date:         date,
		Name:         req.Name,
		WorkFraction: fraction,
		Recurring:    req.Recurring,
	})
	if err != nil {
		h.writeServiceError(w, "Failed to create holiday", err)
		return
	}
	h.Logger.WithFields(logrus.Fields{"holiday_id": holiday.ID, "date": holiday.Date}).Info("holiday added")
	writeJSON(w, http.StatusCreated, toHolidayDTO(holiday))
}

// DeleteHoliday removes a holiday.
// DELETE /api/holidays/{id}
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Holidays.DeleteHoliday(r.Context(), id); err != nil {
		h.writeServiceError(w, "Failed to delete holiday", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "deleted",
		"id":     id,
	})
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// RefreshConflicts rebuilds the conflict cache synchronously.
// POST /api/admin/conflicts/refresh
func (h *Handler) RefreshConflicts(w http.ResponseWriter, r *http.Request) {
	cache := h.Service.Cache
	if err := cache.Refresh(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to refresh conflict cache", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "refreshed",
		"last_refresh": cache.LastRefresh(),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func decodeLeave(w http.ResponseWriter, r *http.Request) (leave.Record, bool) {
	var req LeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return leave.Record{}, false
	}
	if req.EmployeeID == "" {
		writeError(w, http.StatusBadRequest, "employee_id is required", nil)
		return leave.Record{}, false
	}
	record, err := req.toRecord()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return leave.Record{}, false
	}
	return record, true
}

func (h *Handler) toRecordDTO(r leave.Record, conflict bool) RecordDTO {
	others := make([]string, 0, len(r.OtherReplacements))
	for _, id := range r.OtherReplacements {
		others = append(others, string(id))
	}
	return RecordDTO{
		ID:                string(r.ID),
		EmployeeID:        string(r.EmployeeID),
		Start:             r.Start.String(),
		End:               r.End.String(),
		HalfDayBegin:      r.HalfDayBegin,
		HalfDayEnd:        r.HalfDayEnd,
		Status:            string(r.Status),
		Special:           r.Special,
		Replacement:       string(r.Replacement),
		OtherReplacements: others,
		Comment:           r.Comment,
		WorkingDays:       h.Service.Calculator.WorkingDays(r),
		Conflict:          conflict,
	}
}

// writeServiceError maps domain errors to status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, message string, err error) {
	var verr *leave.ValidationError
	switch {
	case errors.As(err, &verr):
		status := http.StatusUnprocessableEntity
		if verr.Code == leave.CodeCollision {
			status = http.StatusConflict
		}
		writeJSON(w, status, ErrorResponse{
			Error:      message,
			Details:    err.Error(),
			Code:       string(verr.Code),
			MessageKey: verr.MessageKey(),
		})
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Logger.WithError(err).Error(message)
		writeError(w, http.StatusInternalServerError, message, fmt.Errorf("internal error"))
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
