package leave_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/memory"
)

// =============================================================================
// TEST FIXTURE - Engine wired to the in-memory store
// =============================================================================

type fixture struct {
	ctx       context.Context
	store     *memory.Store
	calc      *leave.Calculator
	validator *leave.Validator
	detector  *leave.Detector
	cache     *leave.ConflictCache
	service   *leave.Service
	logs      *logtest.Hook
	today     generic.Date
}

func newFixture(t *testing.T, today string) *fixture {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	f := &fixture{
		ctx:   context.Background(),
		store: memory.New(),
		logs:  hook,
		today: generic.MustParseDate(today),
	}
	clock := func() generic.Date { return f.today }

	f.calc = leave.NewCalculator(f.store, f.store, f.store, nil, nil, generic.NewWorkCalendar(nil))
	f.calc.Logger = logger
	f.validator = leave.NewValidator(f.store, f.store, f.calc)
	f.validator.Today = clock
	f.validator.Logger = logger
	f.detector = &leave.Detector{Records: f.store, Today: clock}
	f.cache = leave.NewConflictCache(f.store, f.store,
		leave.WithCacheLogger(logger),
		leave.WithCacheClock(func() time.Time { return f.today.Time() }),
	)
	f.service = &leave.Service{
		Records:    f.store,
		Employees:  f.store,
		Memo:       f.store,
		Validator:  f.validator,
		Calculator: f.calc,
		Detector:   f.detector,
		Cache:      f.cache,
		Today:      clock,
		Logger:     logger,
	}
	return f
}

func (f *fixture) employee(t *testing.T, id string, annual float64, joined string) leave.Employee {
	t.Helper()
	emp := leave.Employee{
		ID:                leave.EmployeeID(id),
		UserID:            "user-" + id,
		Name:              id,
		AnnualEntitlement: decimal.NewFromFloat(annual),
	}
	if joined != "" {
		emp.JoinDate = generic.MustParseDate(joined)
	}
	require.NoError(t, f.store.SaveEmployee(f.ctx, emp))
	return emp
}

// book stores a record directly, bypassing validation.
func (f *fixture) book(t *testing.T, r leave.Record) leave.Record {
	t.Helper()
	if r.Status == "" {
		r.Status = leave.StatusApproved
	}
	saved, err := f.store.SaveRecord(f.ctx, r)
	require.NoError(t, err)
	return saved
}

func record(emp string, start, end string) leave.Record {
	return leave.Record{
		EmployeeID: leave.EmployeeID(emp),
		Start:      generic.MustParseDate(start),
		End:        generic.MustParseDate(end),
		Status:     leave.StatusApproved,
	}
}

func days(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func requireDays(t *testing.T, expected float64, actual decimal.Decimal, msg string) {
	t.Helper()
	require.Truef(t, days(expected).Equal(actual), "%s: expected %v, got %s", msg, expected, actual)
}
