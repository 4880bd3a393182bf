package leave_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairwork/leave-engine/leave"
)

// =============================================================================
// CHARGEABLE DAYS
// =============================================================================

func TestChargeableDays_FullWorkingWeek(t *testing.T) {
	// GIVEN: A full-time employee on 38h/week
	// WHEN: Requesting Monday through Friday
	// THEN: 5 chargeable days at 7.6 hours each, 38 hours deducted

	mem := newSeededStore(t)
	calc := leave.NewWorkdayCalculator(mem, mem)
	ctx := context.Background()

	count, err := calc.ChargeableDays(ctx, "emp-1",
		leave.Date(2025, 3, 3), leave.Date(2025, 3, 7), leave.FullDay)
	require.NoError(t, err)

	assert.Equal(t, 5, count.TotalDays)
	assert.True(t, count.ChargeableDays.Equal(dec(5)))
	assert.True(t, count.HoursPerDay.Equal(dec(7.6)))
	assert.True(t, count.HoursDeducted.Equal(dec(38)))
}

func TestChargeableDays_SpanningWeekend(t *testing.T) {
	// GIVEN: A range from Friday to the following Monday
	// WHEN: Counting chargeable days
	// THEN: Saturday and Sunday are free; 2 of 4 days charge

	mem := newSeededStore(t)
	calc := leave.NewWorkdayCalculator(mem, mem)

	count, err := calc.ChargeableDays(context.Background(), "emp-1",
		leave.Date(2025, 3, 7), leave.Date(2025, 3, 10), leave.FullDay)
	require.NoError(t, err)

	assert.Equal(t, 4, count.TotalDays)
	assert.True(t, count.ChargeableDays.Equal(dec(2)))
	assert.True(t, count.HoursDeducted.Equal(dec(15.2)))
}

func TestChargeableDays_WeekendOnly(t *testing.T) {
	mem := newSeededStore(t)
	calc := leave.NewWorkdayCalculator(mem, mem)

	count, err := calc.ChargeableDays(context.Background(), "emp-1",
		leave.Date(2025, 3, 8), leave.Date(2025, 3, 9), leave.FullDay)
	require.NoError(t, err)

	assert.Equal(t, 2, count.TotalDays)
	assert.True(t, count.ChargeableDays.IsZero())
	assert.True(t, count.HoursDeducted.IsZero())
}

func TestChargeableDays_PublicHolidaySkipped(t *testing.T) {
	// GIVEN: A public holiday on the Wednesday of the requested week
	// WHEN: Requesting Monday through Friday
	// THEN: Only 4 days charge

	mem := newSeededStore(t)
	mem.PutHoliday(leave.Holiday{
		ID: "hol-1", EntityID: "entity-au",
		Date: leave.Date(2025, 3, 5), Name: "Test Holiday",
	})
	calc := leave.NewWorkdayCalculator(mem, mem)

	count, err := calc.ChargeableDays(context.Background(), "emp-1",
		leave.Date(2025, 3, 3), leave.Date(2025, 3, 7), leave.FullDay)
	require.NoError(t, err)

	assert.True(t, count.ChargeableDays.Equal(dec(4)))
	assert.True(t, count.HoursDeducted.Equal(dec(30.4)))
}

func TestChargeableDays_OtherEntityHolidayIgnored(t *testing.T) {
	// GIVEN: A holiday observed only by a different legal entity
	// WHEN: Counting chargeable days for emp-1's entity
	// THEN: The holiday does not reduce the charge

	mem := newSeededStore(t)
	mem.PutHoliday(leave.Holiday{
		ID: "hol-nz", EntityID: "entity-nz",
		Date: leave.Date(2025, 3, 5), Name: "Elsewhere Day",
	})
	calc := leave.NewWorkdayCalculator(mem, mem)

	count, err := calc.ChargeableDays(context.Background(), "emp-1",
		leave.Date(2025, 3, 3), leave.Date(2025, 3, 7), leave.FullDay)
	require.NoError(t, err)

	assert.True(t, count.ChargeableDays.Equal(dec(5)))
}

func TestChargeableDays_GlobalHolidayApplies(t *testing.T) {
	// A holiday with no entity is observed everywhere.
	mem := newSeededStore(t)
	mem.PutHoliday(leave.Holiday{
		ID: "hol-global", EntityID: "",
		Date: leave.Date(2025, 3, 5), Name: "Everywhere Day",
	})
	calc := leave.NewWorkdayCalculator(mem, mem)

	count, err := calc.ChargeableDays(context.Background(), "emp-1",
		leave.Date(2025, 3, 3), leave.Date(2025, 3, 7), leave.FullDay)
	require.NoError(t, err)

	assert.True(t, count.ChargeableDays.Equal(dec(4)))
}

func TestChargeableDays_SingleDayHalf(t *testing.T) {
	// GIVEN: A single-day request flagged as a half day
	// WHEN: Counting chargeable days
	// THEN: 0.5 days charge, 3.8 hours deducted

	mem := newSeededStore(t)
	calc := leave.NewWorkdayCalculator(mem, mem)

	count, err := calc.ChargeableDays(context.Background(), "emp-1",
		leave.Date(2025, 3, 4), leave.Date(2025, 3, 4), leave.HalfDayAM)
	require.NoError(t, err)

	assert.Equal(t, 1, count.TotalDays)
	assert.True(t, count.ChargeableDays.Equal(dec(0.5)))
	assert.True(t, count.HoursDeducted.Equal(dec(3.8)))
}

func TestChargeableDays_HalfFlagIgnoredAcrossMultipleDays(t *testing.T) {
	// The half-day discount only applies to single-day ranges. Multi-day
	// half-day requests are rejected upstream; the calculator charges full
	// days.
	mem := newSeededStore(t)
	calc := leave.NewWorkdayCalculator(mem, mem)

	count, err := calc.ChargeableDays(context.Background(), "emp-1",
		leave.Date(2025, 3, 3), leave.Date(2025, 3, 4), leave.HalfDayPM)
	require.NoError(t, err)

	assert.True(t, count.ChargeableDays.Equal(dec(2)))
}

func TestChargeableDays_DefensiveDefaults(t *testing.T) {
	mem := newSeededStore(t)
	calc := leave.NewWorkdayCalculator(mem, mem)
	ctx := context.Background()

	// Unknown employee yields a zeroed count, not an error.
	count, err := calc.ChargeableDays(ctx, "ghost",
		leave.Date(2025, 3, 3), leave.Date(2025, 3, 7), leave.FullDay)
	require.NoError(t, err)
	assert.True(t, count.ChargeableDays.IsZero())

	// Reversed dates yield a zeroed count.
	count, err = calc.ChargeableDays(ctx, "emp-1",
		leave.Date(2025, 3, 7), leave.Date(2025, 3, 3), leave.FullDay)
	require.NoError(t, err)
	assert.True(t, count.ChargeableDays.IsZero())
}
