package leave

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// SERVICE - Write path of leave records
// =============================================================================

// Service validates, persists and keeps derived state in step with leave
// records. Conflicts of other employees' records that name the saved
// employee as substitute are picked up by the next cache rebuild.
type Service struct {
	Records    RecordRepository
	Employees  EmployeeDirectory
	Memo       CarryOverMemo
	Validator  *Validator
	Calculator *Calculator
	Detector   *Detector
	Cache      *ConflictCache
	Today      func() generic.Date
	Logger     logrus.FieldLogger
}

func (s *Service) today() generic.Date {
	if s.Today != nil {
		return s.Today()
	}
	return generic.Today()
}

func (s *Service) log() logrus.FieldLogger {
	if s.Logger == nil {
		return logrus.StandardLogger()
	}
	return s.Logger
}

// =============================================================================
// SAVE
// =============================================================================

// Save creates (empty ID) or updates a record. Validation failures are
// returned as *ValidationError.
func (s *Service) Save(ctx context.Context, record Record) (Record, error) {
	if record.Status == "" {
		record.Status = StatusInProgress
	}
	if !record.Status.Valid() {
		return Record{}, fmt.Errorf("%w: unknown status %q", generic.ErrInvalidInput, record.Status)
	}

	var previous *Record
	if !record.IsNew() {
		stored, err := s.Records.Record(ctx, record.ID)
		if err != nil {
			return Record{}, err
		}
		if stored == nil {
			return Record{}, &generic.NotFoundError{Kind: "record", ID: string(record.ID)}
		}
		previous = stored
	}

	if _, err := s.Validator.Validate(ctx, record, previous, true); err != nil {
		return Record{}, err
	}

	if record.Replacement == "" && len(record.OtherReplacements) == 0 {
		emp, err := s.Employees.Employee(ctx, record.EmployeeID)
		if err != nil {
			return Record{}, err
		}
		if emp != nil {
			record.Replacement = emp.PrimarySubstitute
			record.OtherReplacements = append([]EmployeeID(nil), emp.Substitutes...)
		}
	}

	saved, err := s.Records.SaveRecord(ctx, record)
	if err != nil {
		return Record{}, fmt.Errorf("save leave record: %w", err)
	}

	s.updateConflict(ctx, saved)
	s.invalidateCarryOver(ctx, saved)
	if previous != nil && previous.Start.Year() != saved.Start.Year() {
		s.invalidateCarryOver(ctx, *previous)
	}

	s.log().WithFields(logrus.Fields{
		"record_id":   saved.ID,
		"employee_id": saved.EmployeeID,
		"status":      saved.Status,
	}).Info("leave record saved")
	return saved, nil
}

// =============================================================================
// DELETE
// =============================================================================

// Delete flags a record as deleted and clears its conflict.
func (s *Service) Delete(ctx context.Context, id RecordID) error {
	record, err := s.Records.Record(ctx, id)
	if err != nil {
		return err
	}
	if record == nil {
		return &generic.NotFoundError{Kind: "record", ID: string(id)}
	}
	if err := s.Records.DeleteRecord(ctx, id); err != nil {
		return fmt.Errorf("delete leave record: %w", err)
	}
	record.Deleted = true
	if s.Cache != nil {
		s.Cache.UpdateVacation(ctx, *record, false)
	}
	s.invalidateCarryOver(ctx, *record)
	s.log().WithFields(logrus.Fields{"record_id": id, "employee_id": record.EmployeeID}).Info("leave record deleted")
	return nil
}

// =============================================================================
// READS
// =============================================================================

// Balance resolves the employee and computes the year balance.
func (s *Service) Balance(ctx context.Context, employeeID EmployeeID, year int, baseDate generic.Date) (*YearBalance, error) {
	emp, err := s.Employees.Employee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, &generic.NotFoundError{Kind: "employee", ID: string(employeeID)}
	}
	return s.Calculator.YearBalance(ctx, emp, year, baseDate)
}

// OpenRequestCount counts requests waiting on the user as primary
// substitute; 0 for accounts without an employee.
func (s *Service) OpenRequestCount(ctx context.Context, userID string) (int, error) {
	employeeID, ok, err := s.Employees.EmployeeIDForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return s.Records.OpenRequestCount(ctx, employeeID)
}

// =============================================================================
// DERIVED STATE
// =============================================================================

func (s *Service) updateConflict(ctx context.Context, saved Record) {
	if s.Cache == nil {
		return
	}
	conflict, err := s.Detector.HasConflict(ctx, saved)
	if err != nil {
		s.log().WithError(err).WithField("record_id", saved.ID).Warn("conflict check failed, expiring cache")
		s.Cache.Expire()
		return
	}
	s.Cache.UpdateVacation(ctx, saved, conflict)
}

// invalidateCarryOver drops memoized carry-overs that depend on the year of
// record when that year is already over.
func (s *Service) invalidateCarryOver(ctx context.Context, record Record) {
	if s.Memo == nil || record.Start.IsZero() {
		return
	}
	current := s.today().Year()
	for year := record.Start.Year() + 1; year <= current; year++ {
		if err := s.Memo.DeleteCarryOver(ctx, record.EmployeeID, year); err != nil {
			s.log().WithError(err).WithFields(logrus.Fields{
				"employee_id": record.EmployeeID,
				"year":        year,
			}).Warn("failed to drop memoized carry-over")
		}
	}
}
