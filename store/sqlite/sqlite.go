/*
Package sqlite provides a SQLite-backed implementation of the leave stores.

PURPOSE:
  Implements every collaborator contract the leave engine consumes
  (leave.RecordRepository, leave.CarryOverMemo, leave.AccountEntryStore,
  leave.EmployeeDirectory, leave.ContractInfo) plus generic.HolidayCalendar.

KEY TABLES:
  employees:             contract data (join/leave date, entitlement)
  employee_substitutes:  default substitutes, ordered
  entitlement_changes:   annual entitlement valid from a date
  leave_records:         leave requests/bookings (soft-deleted)
  leave_replacements:    additional substitutes of a record, ordered
  carry_over_memo:       memoized carry-over per (employee, year)
  leave_account_entries: manual corrections
  holidays:              public holidays with work fraction

DATES AND AMOUNTS:
  Dates are stored as YYYY-MM-DD text so range predicates compare
  lexically. Day amounts are decimal strings, never floats.

HOLIDAYS:
  Working-day arithmetic asks for one holiday per day, so holidays are
  loaded into a generic.StaticCalendar on New and kept in step on writes.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, like the rest of the stores.

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - leave/store.go: Interface definitions
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db       *sql.DB
	mu       sync.RWMutex
	holidays *generic.StaticCalendar
}

var (
	_ leave.RecordRepository  = (*Store)(nil)
	_ leave.CarryOverMemo     = (*Store)(nil)
	_ leave.AccountEntryStore = (*Store)(nil)
	_ leave.EmployeeDirectory = (*Store)(nil)
	_ leave.ContractInfo      = (*Store)(nil)
	_ generic.HolidayCalendar = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, holidays: generic.NewStaticCalendar()}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := store.loadHolidays(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		name TEXT NOT NULL,
		join_date TEXT,
		leave_date TEXT,
		annual_entitlement TEXT NOT NULL DEFAULT '0',
		primary_substitute TEXT,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_employees_user
		ON employees(user_id) WHERE user_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS employee_substitutes (
		employee_id TEXT NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
		substitute_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (employee_id, substitute_id)
	);

	CREATE TABLE IF NOT EXISTS entitlement_changes (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
		valid_from TEXT NOT NULL,
		annual_entitlement TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entitlement_changes_employee
		ON entitlement_changes(employee_id, valid_from DESC);

	CREATE TABLE IF NOT EXISTS leave_records (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		half_day_begin INTEGER NOT NULL DEFAULT 0,
		half_day_end INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		deleted INTEGER NOT NULL DEFAULT 0,
		special INTEGER NOT NULL DEFAULT 0,
		replacement_id TEXT,
		comment TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Overlap queries per employee (hot path of balances and conflicts)
	CREATE INDEX IF NOT EXISTS idx_leave_records_employee_dates
		ON leave_records(employee_id, start_date, end_date) WHERE deleted = 0;

	-- Conflict cache rebuild
	CREATE INDEX IF NOT EXISTS idx_leave_records_end
		ON leave_records(end_date) WHERE deleted = 0;

	-- Open request badge
	CREATE INDEX IF NOT EXISTS idx_leave_records_replacement
		ON leave_records(replacement_id, status) WHERE deleted = 0;

	CREATE TABLE IF NOT EXISTS leave_replacements (
		record_id TEXT NOT NULL REFERENCES leave_records(id) ON DELETE CASCADE,
		employee_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (record_id, employee_id)
	);

	CREATE TABLE IF NOT EXISTS carry_over_memo (
		employee_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		value TEXT NOT NULL,
		computed_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, year)
	);

	CREATE TABLE IF NOT EXISTS leave_account_entries (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		entry_date TEXT,
		amount TEXT NOT NULL,
		description TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_leave_account_entries_employee_year
		ON leave_account_entries(employee_id, year);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		holiday_date TEXT NOT NULL,
		name TEXT NOT NULL,
		work_fraction TEXT NOT NULL DEFAULT '0',
		recurring INTEGER NOT NULL DEFAULT 0
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EMPLOYEES (leave.EmployeeDirectory, leave.ContractInfo)
// =============================================================================

// SaveEmployee inserts or replaces an employee and its default substitutes.
func (s *Store) SaveEmployee(ctx context.Context, emp leave.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO employees (id, user_id, name, join_date, leave_date, annual_entitlement, primary_substitute, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			name = excluded.name,
			join_date = excluded.join_date,
			leave_date = excluded.leave_date,
			annual_entitlement = excluded.annual_entitlement,
			primary_substitute = excluded.primary_substitute
	`,
		emp.ID,
		nullString(emp.UserID),
		emp.Name,
		nullDate(emp.JoinDate),
		nullDate(emp.LeaveDate),
		emp.AnnualEntitlement.String(),
		nullString(string(emp.PrimarySubstitute)),
		now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}

	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM employee_substitutes WHERE employee_id = ?", emp.ID); err != nil {
		return fmt.Errorf("failed to clear substitutes: %w", err)
	}
	for i, sub := range emp.Substitutes {
		_, err := sqlTx.ExecContext(ctx,
			"INSERT OR IGNORE INTO employee_substitutes (employee_id, substitute_id, position) VALUES (?, ?, ?)",
			emp.ID, sub, i)
		if err != nil {
			return fmt.Errorf("failed to save substitute: %w", err)
		}
	}

	return sqlTx.Commit()
}

// Employee returns nil, nil when no such employee exists.
func (s *Store) Employee(ctx context.Context, id leave.EmployeeID) (*leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		emp                 leave.Employee
		userID, primary     sql.NullString
		joinDate, leaveDate sql.NullString
		annual              string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, join_date, leave_date, annual_entitlement, primary_substitute
		FROM employees WHERE id = ?
	`, id).Scan(&emp.ID, &userID, &emp.Name, &joinDate, &leaveDate, &annual, &primary)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}

	emp.UserID = userID.String
	emp.PrimarySubstitute = leave.EmployeeID(primary.String)
	if emp.JoinDate, err = parseNullDate(joinDate); err != nil {
		return nil, err
	}
	if emp.LeaveDate, err = parseNullDate(leaveDate); err != nil {
		return nil, err
	}
	if emp.AnnualEntitlement, err = decimal.NewFromString(annual); err != nil {
		return nil, fmt.Errorf("invalid entitlement of employee %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT substitute_id FROM employee_substitutes WHERE employee_id = ? ORDER BY position", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query substitutes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sub leave.EmployeeID
		if err := rows.Scan(&sub); err != nil {
			return nil, fmt.Errorf("failed to scan substitute: %w", err)
		}
		emp.Substitutes = append(emp.Substitutes, sub)
	}
	return &emp, rows.Err()
}

func (s *Store) EmployeeIDForUser(ctx context.Context, userID string) (leave.EmployeeID, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var id leave.EmployeeID
	err := s.db.QueryRowContext(ctx, "SELECT id FROM employees WHERE user_id = ?", userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve user: %w", err)
	}
	return id, true, nil
}

// AddEntitlementChange records a new annual entitlement valid from a date.
func (s *Store) AddEntitlementChange(ctx context.Context, employeeID leave.EmployeeID, validFrom generic.Date, annual decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entitlement_changes (id, employee_id, valid_from, annual_entitlement)
		VALUES (?, ?, ?, ?)
	`, uuid.New().String(), employeeID, validFrom.String(), annual.String())
	if err != nil {
		return fmt.Errorf("failed to save entitlement change: %w", err)
	}
	return nil
}

// AnnualEntitlement returns the entitlement change in effect on asOf, or
// the employee's base entitlement when there is none.
func (s *Store) AnnualEntitlement(ctx context.Context, emp leave.Employee, asOf generic.Date) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var annual string
	err := s.db.QueryRowContext(ctx, `
		SELECT annual_entitlement FROM entitlement_changes
		WHERE employee_id = ? AND valid_from <= ?
		ORDER BY valid_from DESC LIMIT 1
	`, emp.ID, asOf.String()).Scan(&annual)
	if errors.Is(err, sql.ErrNoRows) {
		return emp.AnnualEntitlement, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get entitlement: %w", err)
	}
	return decimal.NewFromString(annual)
}

// =============================================================================
// LEAVE RECORDS (leave.RecordRepository)
// =============================================================================

const recordColumns = `id, employee_id, start_date, end_date, half_day_begin, half_day_end,
	status, deleted, special, replacement_id, comment`

// Record returns nil, nil when no such record exists. Deleted records are
// returned with Deleted set.
func (s *Store) Record(ctx context.Context, id leave.RecordID) (*leave.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, err := s.queryRecords(ctx, "SELECT "+recordColumns+" FROM leave_records WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// SaveRecord inserts a record (assigning an ID) or updates an existing one.
func (s *Store) SaveRecord(ctx context.Context, r leave.Record) (leave.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return leave.Record{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	ts := now()
	if r.ID == "" {
		r.ID = leave.RecordID(uuid.New().String())
		_, err = sqlTx.ExecContext(ctx, `
			INSERT INTO leave_records (`+recordColumns+`, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			r.ID, r.EmployeeID, r.Start.String(), r.End.String(), r.HalfDayBegin, r.HalfDayEnd,
			r.Status, r.Deleted, r.Special, nullString(string(r.Replacement)), nullString(r.Comment),
			ts, ts,
		)
		if err != nil {
			return leave.Record{}, fmt.Errorf("failed to insert leave record: %w", err)
		}
	} else {
		res, err := sqlTx.ExecContext(ctx, `
			UPDATE leave_records SET
				employee_id = ?, start_date = ?, end_date = ?, half_day_begin = ?, half_day_end = ?,
				status = ?, deleted = ?, special = ?, replacement_id = ?, comment = ?, updated_at = ?
			WHERE id = ?
		`,
			r.EmployeeID, r.Start.String(), r.End.String(), r.HalfDayBegin, r.HalfDayEnd,
			r.Status, r.Deleted, r.Special, nullString(string(r.Replacement)), nullString(r.Comment),
			ts, r.ID,
		)
		if err != nil {
			return leave.Record{}, fmt.Errorf("failed to update leave record: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return leave.Record{}, &generic.NotFoundError{Kind: "record", ID: string(r.ID)}
		}
		if _, err := sqlTx.ExecContext(ctx, "DELETE FROM leave_replacements WHERE record_id = ?", r.ID); err != nil {
			return leave.Record{}, fmt.Errorf("failed to clear replacements: %w", err)
		}
	}

	for i, id := range r.OtherReplacements {
		_, err := sqlTx.ExecContext(ctx,
			"INSERT OR IGNORE INTO leave_replacements (record_id, employee_id, position) VALUES (?, ?, ?)",
			r.ID, id, i)
		if err != nil {
			return leave.Record{}, fmt.Errorf("failed to save replacement: %w", err)
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return leave.Record{}, fmt.Errorf("failed to commit leave record: %w", err)
	}
	return r, nil
}

// DeleteRecord soft-deletes a record.
func (s *Store) DeleteRecord(ctx context.Context, id leave.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE leave_records SET deleted = 1, updated_at = ? WHERE id = ?", now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete leave record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &generic.NotFoundError{Kind: "record", ID: string(id)}
	}
	return nil
}

func (s *Store) RecordsOverlapping(ctx context.Context, employeeID leave.EmployeeID, from, to generic.Date, includeSpecial bool) ([]leave.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + recordColumns + ` FROM leave_records
		WHERE employee_id = ? AND deleted = 0 AND start_date <= ? AND end_date >= ?`
	if !includeSpecial {
		query += " AND special = 0"
	}
	query += " ORDER BY start_date ASC, id ASC"
	return s.queryRecords(ctx, query, employeeID, to.String(), from.String())
}

func (s *Store) CurrentAndFutureRecords(ctx context.Context, today generic.Date) ([]leave.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryRecords(ctx, "SELECT "+recordColumns+` FROM leave_records
		WHERE deleted = 0 AND end_date >= ?
		ORDER BY start_date ASC, id ASC`, today.String())
}

func (s *Store) OpenRequestCount(ctx context.Context, employeeID leave.EmployeeID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM leave_records
		WHERE replacement_id = ? AND status = ? AND deleted = 0
	`, employeeID, leave.StatusInProgress).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count open requests: %w", err)
	}
	return count, nil
}

// queryRecords runs a record query and attaches the additional
// replacements. Rows are fully read before the second query so a single
// connection suffices.
func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]leave.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leave records: %w", err)
	}

	var records []leave.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		records = append(records, r)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}

	if err := s.attachReplacements(ctx, records); err != nil {
		return nil, err
	}
	return records, nil
}

// replacementBatch caps the ids per IN list, well below SQLite's host
// parameter limit.
const replacementBatch = 500

func (s *Store) attachReplacements(ctx context.Context, records []leave.Record) error {
	index := make(map[leave.RecordID]int, len(records))
	for i, r := range records {
		index[r.ID] = i
	}
	for lo := 0; lo < len(records); lo += replacementBatch {
		hi := min(lo+replacementBatch, len(records))
		if err := s.attachReplacementBatch(ctx, records, records[lo:hi], index); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) attachReplacementBatch(ctx context.Context, records, batch []leave.Record, index map[leave.RecordID]int) error {
	placeholders := make([]string, len(batch))
	args := make([]any, len(batch))
	for i, r := range batch {
		placeholders[i] = "?"
		args[i] = r.ID
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT record_id, employee_id FROM leave_replacements
		WHERE record_id IN (`+strings.Join(placeholders, ",")+`)
		ORDER BY record_id, position
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to query replacements: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var recordID leave.RecordID
		var employeeID leave.EmployeeID
		if err := rows.Scan(&recordID, &employeeID); err != nil {
			return fmt.Errorf("failed to scan replacement: %w", err)
		}
		i := index[recordID]
		records[i].OtherReplacements = append(records[i].OtherReplacements, employeeID)
	}
	return rows.Err()
}

func scanRecord(rows *sql.Rows) (leave.Record, error) {
	var (
		r                  leave.Record
		start, end         string
		replacement, notes sql.NullString
	)
	err := rows.Scan(
		&r.ID, &r.EmployeeID, &start, &end, &r.HalfDayBegin, &r.HalfDayEnd,
		&r.Status, &r.Deleted, &r.Special, &replacement, &notes,
	)
	if err != nil {
		return r, fmt.Errorf("failed to scan leave record: %w", err)
	}
	if r.Start, err = generic.ParseDate(start); err != nil {
		return r, err
	}
	if r.End, err = generic.ParseDate(end); err != nil {
		return r, err
	}
	r.Replacement = leave.EmployeeID(replacement.String)
	r.Comment = notes.String
	return r, nil
}

// =============================================================================
// CARRY-OVER MEMO (leave.CarryOverMemo)
// =============================================================================

func (s *Store) CarryOver(ctx context.Context, employeeID leave.EmployeeID, year int) (*decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM carry_over_memo WHERE employee_id = ? AND year = ?", employeeID, year).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get carry-over: %w", err)
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid carry-over %s/%d: %w", employeeID, year, err)
	}
	return &d, nil
}

func (s *Store) PutCarryOver(ctx context.Context, employeeID leave.EmployeeID, year int, value decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO carry_over_memo (employee_id, year, value, computed_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(employee_id, year) DO UPDATE SET value = excluded.value, computed_at = excluded.computed_at
	`, employeeID, year, value.String(), now())
	if err != nil {
		return fmt.Errorf("failed to save carry-over: %w", err)
	}
	return nil
}

func (s *Store) DeleteCarryOver(ctx context.Context, employeeID leave.EmployeeID, year int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM carry_over_memo WHERE employee_id = ? AND year = ?", employeeID, year)
	if err != nil {
		return fmt.Errorf("failed to delete carry-over: %w", err)
	}
	return nil
}

// =============================================================================
// ACCOUNT CORRECTIONS (leave.AccountEntryStore)
// =============================================================================

// AddAccountEntry stores a correction, assigning an ID when empty.
func (s *Store) AddAccountEntry(ctx context.Context, e leave.AccountEntry) (leave.AccountEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leave_account_entries (id, employee_id, year, entry_date, amount, description)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.EmployeeID, e.Year, nullDate(e.Date), e.Amount.String(), nullString(e.Description))
	if err != nil {
		return leave.AccountEntry{}, fmt.Errorf("failed to save account entry: %w", err)
	}
	return e, nil
}

func (s *Store) EntriesFor(ctx context.Context, employeeID leave.EmployeeID, year int) ([]leave.AccountEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, year, entry_date, amount, description
		FROM leave_account_entries WHERE employee_id = ? AND year = ?
		ORDER BY entry_date ASC, id ASC
	`, employeeID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query account entries: %w", err)
	}
	defer rows.Close()

	var entries []leave.AccountEntry
	for rows.Next() {
		var (
			e           leave.AccountEntry
			date, descr sql.NullString
			amount      string
		)
		if err := rows.Scan(&e.ID, &e.EmployeeID, &e.Year, &date, &amount, &descr); err != nil {
			return nil, fmt.Errorf("failed to scan account entry: %w", err)
		}
		if e.Date, err = parseNullDate(date); err != nil {
			return nil, err
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("invalid amount of entry %s: %w", e.ID, err)
		}
		e.Description = descr.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// HOLIDAYS (generic.HolidayCalendar)
// =============================================================================

func (s *Store) loadHolidays(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, holiday_date, name, work_fraction, recurring FROM holidays")
	if err != nil {
		return fmt.Errorf("failed to load holidays: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			h        generic.Holiday
			date     string
			fraction string
		)
		if err := rows.Scan(&h.ID, &date, &h.Name, &fraction, &h.Recurring); err != nil {
			return fmt.Errorf("failed to scan holiday: %w", err)
		}
		if h.Date, err = generic.ParseDate(date); err != nil {
			return err
		}
		if h.WorkFraction, err = decimal.NewFromString(fraction); err != nil {
			return fmt.Errorf("invalid work fraction of holiday %s: %w", h.ID, err)
		}
		s.holidays.Add(h)
	}
	return rows.Err()
}

// AddHoliday stores a holiday, assigning an ID when empty.
func (s *Store) AddHoliday(ctx context.Context, h generic.Holiday) (generic.Holiday, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h.Date.IsZero() {
		return generic.Holiday{}, fmt.Errorf("%w: holiday without date", generic.ErrInvalidInput)
	}
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holidays (id, holiday_date, name, work_fraction, recurring) VALUES (?, ?, ?, ?, ?)
	`, h.ID, h.Date.String(), h.Name, h.WorkFraction.String(), h.Recurring)
	if err != nil {
		return generic.Holiday{}, fmt.Errorf("failed to save holiday: %w", err)
	}
	s.holidays.Add(h)
	return h, nil
}

// DeleteHoliday removes a holiday.
func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete holiday: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &generic.NotFoundError{Kind: "holiday", ID: id}
	}
	s.holidays.Remove(id)
	return nil
}

func (s *Store) Holiday(date generic.Date) (generic.Holiday, bool) {
	return s.holidays.Holiday(date)
}

func (s *Store) Holidays(year int) []generic.Holiday {
	return s.holidays.Holidays(year)
}

// =============================================================================
// HELPERS
// =============================================================================

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(d generic.Date) sql.NullString {
	return nullString(d.String())
}

func parseNullDate(s sql.NullString) (generic.Date, error) {
	if !s.Valid {
		return generic.Date{}, nil
	}
	return generic.ParseDate(s.String)
}
