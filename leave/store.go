/*
store.go - Collaborator contracts consumed by the leave engine

PURPOSE:
  The engine never talks to a database directly. Everything it reads or
  memoizes goes through these interfaces so that the calculator, the
  validator and the conflict cache can run against SQLite in production
  and against the in-memory store in tests.

IMPLEMENTATIONS:
  - store/sqlite: database/sql + go-sqlite3
  - store/memory: maps behind a RWMutex

CONTRACT NOTES:
  RecordsOverlapping returns every non-deleted record of the employee that
  shares at least one day with [from, to], whatever its status. Callers
  filter by status themselves.

  CurrentAndFutureRecords returns every non-deleted record ending on or
  after today. The conflict cache reads it in one batch per rebuild.
*/
package leave

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/generic"
)

// RecordStore is read access to leave records.
type RecordStore interface {
	RecordsOverlapping(ctx context.Context, employeeID EmployeeID, from, to generic.Date, includeSpecial bool) ([]Record, error)
	CurrentAndFutureRecords(ctx context.Context, today generic.Date) ([]Record, error)
	// OpenRequestCount counts non-deleted IN_PROGRESS records that name the
	// employee as primary replacement, i.e. requests still waiting on them.
	OpenRequestCount(ctx context.Context, employeeID EmployeeID) (int, error)
}

// RecordRepository adds single-record reads and writes.
type RecordRepository interface {
	RecordStore
	Record(ctx context.Context, id RecordID) (*Record, error)
	// SaveRecord inserts (empty ID, one is assigned) or updates a record.
	SaveRecord(ctx context.Context, r Record) (Record, error)
	// DeleteRecord flags the record as deleted.
	DeleteRecord(ctx context.Context, id RecordID) error
}

// CarryOverMemo persists the carry-over of (employee, year) once computed.
type CarryOverMemo interface {
	// CarryOver returns nil when nothing is memoized.
	CarryOver(ctx context.Context, employeeID EmployeeID, year int) (*decimal.Decimal, error)
	PutCarryOver(ctx context.Context, employeeID EmployeeID, year int, value decimal.Decimal) error
	DeleteCarryOver(ctx context.Context, employeeID EmployeeID, year int) error
}

// AccountEntryStore reads manual leave account corrections.
type AccountEntryStore interface {
	EntriesFor(ctx context.Context, employeeID EmployeeID, year int) ([]AccountEntry, error)
}

// EmployeeDirectory resolves employees.
type EmployeeDirectory interface {
	// Employee returns nil, nil when the employee does not exist.
	Employee(ctx context.Context, id EmployeeID) (*Employee, error)
	// EmployeeIDForUser maps a login account to its employee.
	EmployeeIDForUser(ctx context.Context, userID string) (EmployeeID, bool, error)
}

// ContractInfo answers contract questions that may change over time.
type ContractInfo interface {
	AnnualEntitlement(ctx context.Context, emp Employee, asOf generic.Date) (decimal.Decimal, error)
}

// CarryPeriodProvider returns the last day carry-over from year-1 may be
// used in year.
type CarryPeriodProvider interface {
	EndOfCarryPeriod(year int) generic.Date
}

// EmployeeContract is the ContractInfo that trusts Employee.AnnualEntitlement.
type EmployeeContract struct{}

func (EmployeeContract) AnnualEntitlement(_ context.Context, emp Employee, _ generic.Date) (decimal.Decimal, error) {
	return emp.AnnualEntitlement, nil
}
