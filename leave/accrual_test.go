package leave_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fairwork/leave-engine/leave"
)

// =============================================================================
// BASE ACCRUAL FORMULA
// =============================================================================

func TestAccrualForPeriod_FullTime_FullYear(t *testing.T) {
	// GIVEN: 4 weeks/year annual policy, full-time 38h/week employee
	// WHEN: Accruing over a full 365-day year
	// THEN: Exactly 152.00 hours accrue (4 x 38)

	policy := stdAnnualPolicy()
	policy.Normalize()
	emp := fullTimer("emp-1")

	got := leave.AccrualForPeriod(&policy, 365, 0, &emp)

	assert.True(t, got.Equal(dec(152)), "expected 152 hours, got %s", got)
}

func TestAccrualForPeriod_PartTime_ScalesByFTE(t *testing.T) {
	// GIVEN: Same annual policy, part-time employee on 19h/week (half of 38)
	// WHEN: Accruing over a full year
	// THEN: Half the full-time entitlement accrues

	policy := stdAnnualPolicy()
	policy.Normalize()
	emp := fullTimer("emp-2")
	emp.EmploymentType = leave.PartTime
	emp.HoursPerWeek = 19

	got := leave.AccrualForPeriod(&policy, 365, 0, &emp)

	assert.True(t, got.Equal(dec(76)), "expected 76 hours, got %s", got)
}

func TestAccrualForPeriod_PartialYear(t *testing.T) {
	// GIVEN: 4 weeks/year annual policy, full-time employee
	// WHEN: Accruing over 73 days (one fifth of a year)
	// THEN: One fifth of the annual entitlement accrues

	policy := stdAnnualPolicy()
	policy.Normalize()
	emp := fullTimer("emp-1")

	got := leave.AccrualForPeriod(&policy, 73, 0, &emp)

	f, _ := got.Float64()
	assert.InDelta(t, 30.4, f, 0.01)
}

func TestAccrualForPeriod_DaysPerYearUnit(t *testing.T) {
	// GIVEN: 10 days/year personal policy with the 7.6-hour standard day
	// WHEN: Accruing over a full year
	// THEN: 76.00 hours accrue

	policy := stdPersonalPolicy()
	policy.Normalize()
	emp := fullTimer("emp-1")

	got := leave.AccrualForPeriod(&policy, 365, 0, &emp)

	assert.True(t, got.Equal(dec(76)), "expected 76 hours, got %s", got)
}

func TestAccrualForPeriod_ZeroCases(t *testing.T) {
	policy := stdAnnualPolicy()
	policy.Normalize()
	emp := fullTimer("emp-1")

	assert.True(t, leave.AccrualForPeriod(nil, 365, 0, &emp).IsZero(), "nil policy")
	assert.True(t, leave.AccrualForPeriod(&policy, 0, 0, &emp).IsZero(), "zero days")
	assert.True(t, leave.AccrualForPeriod(&policy, -10, 0, &emp).IsZero(), "negative days")

	policy.AccrualRate = 0
	assert.True(t, leave.AccrualForPeriod(&policy, 365, 0, &emp).IsZero(), "zero rate")
}

func TestAccrualForPeriod_RateOverride(t *testing.T) {
	// GIVEN: A policy with a zero base rate
	// WHEN: Accruing with a positive override rate
	// THEN: The override drives the accrual

	policy := stdLSLPolicy()
	policy.Normalize()
	emp := fullTimer("emp-1")

	got := leave.AccrualForPeriod(&policy, 365, 0.867, &emp)

	// 0.867 weeks x 38 hours = 32.946 hours/year
	f, _ := got.Float64()
	assert.InDelta(t, 32.95, f, 0.01)
}

// =============================================================================
// FTE AND DERIVED HOURS
// =============================================================================

func TestFTE(t *testing.T) {
	ft := fullTimer("a")
	assert.True(t, ft.FTE(38).Equal(dec(1)), "full-time is always 1.0")

	pt := fullTimer("b")
	pt.EmploymentType = leave.PartTime
	pt.HoursPerWeek = 19
	assert.True(t, pt.FTE(38).Equal(dec(0.5)))

	// More hours than the reference caps at 1.
	over := fullTimer("c")
	over.EmploymentType = leave.PartTime
	over.HoursPerWeek = 45
	assert.True(t, over.FTE(38).Equal(dec(1)))

	// Unknown hours default to full-time.
	unknown := fullTimer("d")
	unknown.EmploymentType = leave.PartTime
	unknown.HoursPerWeek = 0
	assert.True(t, unknown.FTE(38).Equal(dec(1)))
}

func TestHoursPerDay(t *testing.T) {
	emp := fullTimer("a")
	assert.True(t, emp.HoursPerDay().Equal(dec(7.6)), "38/5 = 7.6")

	emp.HoursPerWeek = 20
	assert.True(t, emp.HoursPerDay().Equal(dec(4)))

	emp.HoursPerWeek = 0
	assert.True(t, emp.HoursPerDay().Equal(leave.StandardDayHours), "unknown hours fall back to the standard day")
}

// =============================================================================
// LONG SERVICE LEAVE GATE
// =============================================================================

func TestLSLAccrual_BeforeThreshold_NothingAccrues(t *testing.T) {
	// GIVEN: LSL gated at 7 years, employee with 5 years of service
	// WHEN: Computing LSL accrual
	// THEN: Not eligible, zero hours, no partial accrual

	policy := stdLSLPolicy()
	policy.Normalize()
	emp := fullTimer("emp-1")
	emp.ServiceStart = leave.Date(2020, 1, 1)

	res := leave.LSLAccrual(&policy, &emp, emp.ServiceStart, leave.Date(2025, 1, 1))

	assert.False(t, res.Eligible)
	assert.True(t, res.AccruedHours.IsZero())
	assert.False(t, res.EligibilityDate.IsZero())
}

func TestLSLAccrual_AfterThreshold_AccruesFromEligibility(t *testing.T) {
	// GIVEN: LSL gated at 7 years, employee past the gate, no prior accrual
	// WHEN: Computing accrual one year after the eligibility date
	// THEN: Only the post-eligibility year accrues, at the threshold rate

	policy := stdLSLPolicy()
	policy.Normalize()
	emp := fullTimer("emp-1")
	emp.ServiceStart = leave.Date(2017, 1, 1)

	gate := leave.LSLAccrual(&policy, &emp, emp.ServiceStart, leave.Date(2025, 1, 1))
	assert.True(t, gate.Eligible)

	asOf := gate.EligibilityDate.AddDate(0, 0, 365)
	res := leave.LSLAccrual(&policy, &emp, emp.ServiceStart, asOf)

	assert.True(t, res.Eligible)
	// 0.867 weeks x 38 hours over one year
	f, _ := res.AccruedHours.Float64()
	assert.InDelta(t, 32.95, f, 0.01)
}

func TestLSLAccrual_WatermarkAfterEligibility(t *testing.T) {
	// GIVEN: An eligible employee whose last accrual ran after the gate opened
	// WHEN: Accruing again 100 days later
	// THEN: Only the 100 days since the watermark accrue

	policy := stdLSLPolicy()
	policy.Normalize()
	emp := fullTimer("emp-1")
	emp.ServiceStart = leave.Date(2015, 1, 1)

	last := leave.Date(2024, 1, 1)
	res := leave.LSLAccrual(&policy, &emp, last, leave.Date(2024, 4, 10))

	assert.True(t, res.Eligible)
	// 32.946 hours/year x 100/365 days
	f, _ := res.AccruedHours.Float64()
	assert.InDelta(t, 9.03, f, 0.01)
}

func TestLSLAccrual_MissingServiceStart(t *testing.T) {
	policy := stdLSLPolicy()
	policy.Normalize()

	empty := leave.Employee{ID: "no-start"}
	res := leave.LSLAccrual(&policy, &empty, empty.ServiceStart, leave.Date(2025, 1, 1))

	assert.False(t, res.Eligible)
	assert.True(t, res.AccruedHours.IsZero())
}
