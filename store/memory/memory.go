// Package memory provides an in-memory implementation of the leave stores
// (for testing/dev).
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Store struct {
	mu        sync.RWMutex
	employees map[leave.EmployeeID]leave.Employee
	users     map[string]leave.EmployeeID
	records   map[leave.RecordID]leave.Record
	memo      map[memoKey]decimal.Decimal
	entries   map[leave.EmployeeID][]leave.AccountEntry
}

type memoKey struct {
	EmployeeID leave.EmployeeID
	Year       int
}

var (
	_ leave.RecordRepository  = (*Store)(nil)
	_ leave.CarryOverMemo     = (*Store)(nil)
	_ leave.AccountEntryStore = (*Store)(nil)
	_ leave.EmployeeDirectory = (*Store)(nil)
)

func New() *Store {
	return &Store{
		employees: make(map[leave.EmployeeID]leave.Employee),
		users:     make(map[string]leave.EmployeeID),
		records:   make(map[leave.RecordID]leave.Record),
		memo:      make(map[memoKey]decimal.Decimal),
		entries:   make(map[leave.EmployeeID][]leave.AccountEntry),
	}
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// SaveEmployee inserts or replaces an employee.
func (s *Store) SaveEmployee(_ context.Context, emp leave.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.employees[emp.ID]; ok && old.UserID != "" {
		delete(s.users, old.UserID)
	}
	s.employees[emp.ID] = emp
	if emp.UserID != "" {
		s.users[emp.UserID] = emp.ID
	}
	return nil
}

func (s *Store) Employee(_ context.Context, id leave.EmployeeID) (*leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	emp, ok := s.employees[id]
	if !ok {
		return nil, nil
	}
	return &emp, nil
}

func (s *Store) EmployeeIDForUser(_ context.Context, userID string) (leave.EmployeeID, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.users[userID]
	return id, ok, nil
}

// =============================================================================
// LEAVE RECORDS
// =============================================================================

func (s *Store) Record(_ context.Context, id leave.RecordID) (*leave.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	r = cloneRecord(r)
	return &r, nil
}

func (s *Store) SaveRecord(_ context.Context, r leave.Record) (leave.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = leave.RecordID(uuid.New().String())
	} else if _, ok := s.records[r.ID]; !ok {
		return leave.Record{}, &generic.NotFoundError{Kind: "record", ID: string(r.ID)}
	}
	s.records[r.ID] = cloneRecord(r)
	return cloneRecord(r), nil
}

func (s *Store) DeleteRecord(_ context.Context, id leave.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return &generic.NotFoundError{Kind: "record", ID: string(id)}
	}
	r.Deleted = true
	s.records[id] = r
	return nil
}

func (s *Store) RecordsOverlapping(_ context.Context, employeeID leave.EmployeeID, from, to generic.Date, includeSpecial bool) ([]leave.Record, error) {
	window := generic.Period{Start: from, End: to}
	return s.filter(func(r leave.Record) bool {
		return r.EmployeeID == employeeID &&
			(includeSpecial || !r.Special) &&
			r.Period().Overlaps(window)
	}), nil
}

func (s *Store) CurrentAndFutureRecords(_ context.Context, today generic.Date) ([]leave.Record, error) {
	return s.filter(func(r leave.Record) bool {
		return r.End.AfterOrEqual(today)
	}), nil
}

func (s *Store) OpenRequestCount(_ context.Context, employeeID leave.EmployeeID) (int, error) {
	return len(s.filter(func(r leave.Record) bool {
		return r.Status == leave.StatusInProgress && r.Replacement == employeeID
	})), nil
}

// cloneRecord detaches the substitute list so callers never share it with
// the store.
func cloneRecord(r leave.Record) leave.Record {
	if r.OtherReplacements != nil {
		r.OtherReplacements = append([]leave.EmployeeID(nil), r.OtherReplacements...)
	}
	return r
}

// filter returns the matching non-deleted records ordered by start date.
func (s *Store) filter(match func(leave.Record) bool) []leave.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []leave.Record
	for _, r := range s.records {
		if !r.Deleted && match(r) {
			result = append(result, cloneRecord(r))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Start.Equal(result[j].Start) {
			return result[i].ID < result[j].ID
		}
		return result[i].Start.Before(result[j].Start)
	})
	return result
}

// =============================================================================
// CARRY-OVER MEMO
// =============================================================================

func (s *Store) CarryOver(_ context.Context, employeeID leave.EmployeeID, year int) (*decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.memo[memoKey{employeeID, year}]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (s *Store) PutCarryOver(_ context.Context, employeeID leave.EmployeeID, year int, value decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memo[memoKey{employeeID, year}] = value
	return nil
}

func (s *Store) DeleteCarryOver(_ context.Context, employeeID leave.EmployeeID, year int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.memo, memoKey{employeeID, year})
	return nil
}

// =============================================================================
// ACCOUNT CORRECTIONS
// =============================================================================

// AddAccountEntry stores a correction, assigning an ID when empty.
func (s *Store) AddAccountEntry(_ context.Context, e leave.AccountEntry) (leave.AccountEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	s.entries[e.EmployeeID] = append(s.entries[e.EmployeeID], e)
	return e, nil
}

func (s *Store) EntriesFor(_ context.Context, employeeID leave.EmployeeID, year int) ([]leave.AccountEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []leave.AccountEntry
	for _, e := range s.entries[employeeID] {
		if e.Year == year {
			result = append(result, e)
		}
	}
	return result, nil
}
