package leave_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairwork/leave-engine/leave"
	"github.com/fairwork/leave-engine/leave/store"
)

func newTestLedger(t *testing.T) (*leave.Ledger, *store.Memory) {
	t.Helper()

	mem := newSeededStore(t)
	resolver := leave.NewResolver(mem, mem, mem)
	ledger := leave.NewLedger(mem, resolver)
	ledger.Now = func() time.Time { return leave.Date(2025, 7, 1) }
	return ledger, mem
}

// =============================================================================
// ROW LIFECYCLE
// =============================================================================

func TestLedger_GetOrCreate_ZeroRow(t *testing.T) {
	// GIVEN: An employee with no balance rows
	// WHEN: Touching the annual balance
	// THEN: A zeroed row appears with LastAccrual at the service start

	ledger, mem := newTestLedger(t)
	ctx := context.Background()

	b, err := ledger.GetOrCreate(ctx, "emp-1", leave.CategoryAnnual)
	require.NoError(t, err)

	assert.True(t, b.Opening.IsZero())
	assert.True(t, b.Accrued.IsZero())
	assert.True(t, b.Available.IsZero())
	assert.Equal(t, leave.Date(2024, 7, 1), b.LastAccrual)

	// Row is persisted.
	stored, err := mem.Balance(ctx, "emp-1", leave.CategoryAnnual)
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestLedger_GetOrCreate_Idempotent(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	first, err := ledger.GetOrCreate(ctx, "emp-1", leave.CategoryAnnual)
	require.NoError(t, err)
	first.Opening = dec(10)
	first.Recalculate()
	require.NoError(t, ledger.Store.SaveBalance(ctx, first))

	again, err := ledger.GetOrCreate(ctx, "emp-1", leave.CategoryAnnual)
	require.NoError(t, err)
	assert.True(t, again.Opening.Equal(dec(10)), "second touch returns the existing row")
}

// =============================================================================
// ACCRUAL
// =============================================================================

func TestLedger_Accrue_FullYear(t *testing.T) {
	// GIVEN: Full-timer whose service started exactly a year before asOf
	// WHEN: Accruing annual leave
	// THEN: The full 152-hour entitlement lands in Accrued

	ledger, _ := newTestLedger(t)
	ctx := context.Background()
	asOf := leave.Date(2025, 7, 1)

	require.NoError(t, ledger.Accrue(ctx, "emp-1", leave.CategoryAnnual, asOf))

	b, err := ledger.GetOrCreate(ctx, "emp-1", leave.CategoryAnnual)
	require.NoError(t, err)
	assert.True(t, b.Accrued.Equal(dec(152)), "got %s", b.Accrued)
	assert.True(t, b.Available.Equal(dec(152)))
	assert.Equal(t, asOf, b.LastAccrual)
}

func TestLedger_Accrue_WatermarkPreventsDoubleAccrual(t *testing.T) {
	// GIVEN: A balance already accrued to asOf
	// WHEN: Accruing to the same day again, and to an earlier day
	// THEN: The balance does not change

	ledger, _ := newTestLedger(t)
	ctx := context.Background()
	asOf := leave.Date(2025, 7, 1)

	require.NoError(t, ledger.Accrue(ctx, "emp-1", leave.CategoryAnnual, asOf))
	require.NoError(t, ledger.Accrue(ctx, "emp-1", leave.CategoryAnnual, asOf))
	require.NoError(t, ledger.Accrue(ctx, "emp-1", leave.CategoryAnnual, leave.Date(2025, 1, 1)))

	b, err := ledger.GetOrCreate(ctx, "emp-1", leave.CategoryAnnual)
	require.NoError(t, err)
	assert.True(t, b.Accrued.Equal(dec(152)), "got %s", b.Accrued)
}

func TestLedger_Accrue_Incremental(t *testing.T) {
	// Accruing in two steps matches accruing in one.
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.Accrue(ctx, "emp-1", leave.CategoryAnnual, leave.Date(2025, 1, 1)))
	require.NoError(t, ledger.Accrue(ctx, "emp-1", leave.CategoryAnnual, leave.Date(2025, 7, 1)))

	b, err := ledger.GetOrCreate(ctx, "emp-1", leave.CategoryAnnual)
	require.NoError(t, err)
	f, _ := b.Accrued.Float64()
	assert.InDelta(t, 152.0, f, 0.02)
}

func TestLedger_Accrue_MissingServiceStart(t *testing.T) {
	ledger, mem := newTestLedger(t)
	mem.PutEmployee(leave.Employee{
		ID: "emp-nostart", EntityID: "entity-au",
		EmploymentType: leave.FullTime, Status: leave.StatusActive, HoursPerWeek: 38,
	})

	err := ledger.Accrue(context.Background(), "emp-nostart", leave.CategoryAnnual, leave.Date(2025, 7, 1))
	assert.True(t, errors.Is(err, leave.ErrMissingServiceStart))
}

func TestLedger_Accrue_StopsAtTermination(t *testing.T) {
	// GIVEN: An employee terminated half a year into service
	// WHEN: Accruing well past the termination date
	// THEN: Accrual stops at termination

	ledger, mem := newTestLedger(t)
	emp := fullTimer("emp-term")
	terminated := leave.Date(2024, 12, 31)
	emp.TerminatedAt = &terminated
	mem.PutEmployee(emp)
	ctx := context.Background()

	require.NoError(t, ledger.Accrue(ctx, "emp-term", leave.CategoryAnnual, leave.Date(2025, 7, 1)))

	b, err := ledger.GetOrCreate(ctx, "emp-term", leave.CategoryAnnual)
	require.NoError(t, err)
	assert.Equal(t, terminated, b.LastAccrual)
	// 183 days of the 365-day year: 152 x 183/365
	f, _ := b.Accrued.Float64()
	assert.InDelta(t, 76.21, f, 0.02)
}

func TestLedger_Accrue_NoPolicyNoEntitlement(t *testing.T) {
	// A nil resolved policy is a valid no-entitlement state, not an error.
	mem := store.NewMemory()
	mem.PutEmployee(fullTimer("emp-1"))
	resolver := leave.NewResolver(mem, mem, mem)
	ledger := leave.NewLedger(mem, resolver)
	ctx := context.Background()

	require.NoError(t, ledger.Accrue(ctx, "emp-1", leave.CategoryAnnual, leave.Date(2025, 7, 1)))

	b, err := ledger.GetOrCreate(ctx, "emp-1", leave.CategoryAnnual)
	require.NoError(t, err)
	assert.True(t, b.Accrued.IsZero())
}

func TestLedger_Balances_BringsAllCategoriesCurrent(t *testing.T) {
	ledger, _ := newTestLedger(t)

	balances, err := ledger.Balances(context.Background(), "emp-1", leave.Date(2025, 7, 1))
	require.NoError(t, err)
	require.Len(t, balances, 3)

	byCat := map[leave.Category]leave.Balance{}
	for _, b := range balances {
		byCat[b.Category] = b
	}
	assert.True(t, byCat[leave.CategoryAnnual].Accrued.Equal(dec(152)))
	assert.True(t, byCat[leave.CategoryPersonal].Accrued.Equal(dec(76)))
	assert.True(t, byCat[leave.CategoryLongService].Accrued.IsZero(), "one year of service is behind the LSL gate")
}

// =============================================================================
// DEDUCT / RESTORE / ADJUST
// =============================================================================

func TestLedger_DeductRestore_RoundTrip(t *testing.T) {
	// GIVEN: An accrued annual balance
	// WHEN: Deducting 38 hours and restoring the same amount
	// THEN: Available returns exactly to its prior value

	ledger, _ := newTestLedger(t)
	ctx := context.Background()
	require.NoError(t, ledger.Accrue(ctx, "emp-1", leave.CategoryAnnual, leave.Date(2025, 7, 1)))

	require.NoError(t, ledger.Deduct(ctx, "emp-1", leave.CategoryAnnual, dec(38)))
	b, err := ledger.GetOrCreate(ctx, "emp-1", leave.CategoryAnnual)
	require.NoError(t, err)
	assert.True(t, b.Taken.Equal(dec(38)))
	assert.True(t, b.Available.Equal(dec(114)))

	require.NoError(t, ledger.Restore(ctx, "emp-1", leave.CategoryAnnual, dec(38)))
	b, err = ledger.GetOrCreate(ctx, "emp-1", leave.CategoryAnnual)
	require.NoError(t, err)
	assert.True(t, b.Taken.IsZero())
	assert.True(t, b.Available.Equal(dec(152)))
}

func TestLedger_Deduct_MissingRowIsNoOp(t *testing.T) {
	ledger, mem := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.Deduct(ctx, "emp-1", leave.CategoryAnnual, dec(10)))

	b, err := mem.Balance(ctx, "emp-1", leave.CategoryAnnual)
	require.NoError(t, err)
	assert.Nil(t, b, "no row is created by a deduct against nothing")
}

func TestLedger_Adjust(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.Adjust(ctx, "emp-1", leave.CategoryAnnual, dec(12.5)))
	require.NoError(t, ledger.Adjust(ctx, "emp-1", leave.CategoryAnnual, dec(-2.5)))

	b, err := ledger.GetOrCreate(ctx, "emp-1", leave.CategoryAnnual)
	require.NoError(t, err)
	assert.True(t, b.Adjusted.Equal(dec(10)))
	assert.True(t, b.Available.Equal(dec(10)))
}

// =============================================================================
// RECALCULATION
// =============================================================================

func TestLedger_RecalculateAll_RebuildsAccruedOnly(t *testing.T) {
	// GIVEN: A balance with accrued, taken and adjusted hours
	// WHEN: Recalculating from service start
	// THEN: Accrued is re-derived; Taken and Adjusted survive

	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.Accrue(ctx, "emp-1", leave.CategoryAnnual, leave.Date(2025, 1, 1)))
	require.NoError(t, ledger.Deduct(ctx, "emp-1", leave.CategoryAnnual, dec(7.6)))
	require.NoError(t, ledger.Adjust(ctx, "emp-1", leave.CategoryAnnual, dec(5)))

	require.NoError(t, ledger.RecalculateAll(ctx, "emp-1"))

	b, err := ledger.GetOrCreate(ctx, "emp-1", leave.CategoryAnnual)
	require.NoError(t, err)
	assert.True(t, b.Accrued.Equal(dec(152)), "re-derived to the ledger clock, got %s", b.Accrued)
	assert.True(t, b.Taken.Equal(dec(7.6)))
	assert.True(t, b.Adjusted.Equal(dec(5)))
	assert.True(t, b.Available.Equal(dec(149.4)))
}

// =============================================================================
// SUFFICIENCY
// =============================================================================

func TestSufficient(t *testing.T) {
	assert.True(t, leave.Sufficient(dec(100), dec(100), false))
	assert.True(t, leave.Sufficient(dec(100), dec(100.01), false), "within epsilon")
	assert.False(t, leave.Sufficient(dec(100), dec(100.02), false))
	assert.False(t, leave.Sufficient(dec(10), dec(15.2), false))
	assert.True(t, leave.Sufficient(dec(0), dec(500), true), "negative balances allowed")
}
