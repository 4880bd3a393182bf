/*
accrual.go - Accrual formulas

PURPOSE:
  Pure accrual arithmetic. A policy's rate converts to annual hours, scales by
  the employee's FTE fraction, spreads over a 365-day year, and multiplies by
  elapsed days. Long-service leave adds an eligibility gate: nothing accrues
  before the minimum service years, and once eligible only the days after the
  eligibility date count.

ROUNDING:
  Every returned quantity is rounded to 2 decimal places. Balance comparisons
  elsewhere use a 0.01-hour tolerance, so 2-place rounding never produces
  spurious insufficiency.

SEE ALSO:
  - ledger.go: drives these formulas from LastAccrual watermarks
  - types.go: LeavePolicy.AnnualHours, Employee.FTE
*/
package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

var daysPerYear = decimal.NewFromInt(365)

// AccrualForPeriod computes hours accrued over daysElapsed days under the
// policy, scaled by the employee's FTE. rateOverride, when positive, replaces
// the policy's base rate. Non-positive elapsed time or a zero rate yields
// zero.
func AccrualForPeriod(p *LeavePolicy, daysElapsed int, rateOverride float64, emp *Employee) decimal.Decimal {
	if p == nil || daysElapsed <= 0 {
		return decimal.Zero
	}

	rate := p.AccrualRate
	if rateOverride > 0 {
		rate = rateOverride
	}
	annual := p.AnnualHours(rate)
	if annual.IsZero() {
		return decimal.Zero
	}

	fte := emp.FTE(p.HoursPerWeekReference)

	return annual.Mul(fte).
		Div(daysPerYear).
		Mul(decimal.NewFromInt(int64(daysElapsed))).
		Round(2)
}

// LSLResult reports long-service accrual for a period, including the gate
// outcome. AccruedHours is zero whenever Eligible is false: there is no
// partial accrual before the threshold.
type LSLResult struct {
	Eligible        bool
	EligibilityDate time.Time
	YearsOfService  decimal.Decimal
	AccruedHours    decimal.Decimal
}

// LSLAccrual applies the long-service gate and, once open, accrues for the
// days since the later of lastAccrual and the eligibility date. The years of
// service figure uses the same 365-day year as the accrual spread.
func LSLAccrual(p *LeavePolicy, emp *Employee, lastAccrual, asOf time.Time) LSLResult {
	if p == nil || emp == nil || emp.ServiceStart.IsZero() {
		return LSLResult{}
	}

	serviceDays := DaysBetween(emp.ServiceStart, asOf)
	years := decimal.NewFromInt(int64(serviceDays)).Div(daysPerYear)

	gateDays := int(p.MinServiceYears * 365)
	eligibilityDate := Day(emp.ServiceStart).AddDate(0, 0, gateDays)

	result := LSLResult{
		EligibilityDate: eligibilityDate,
		YearsOfService:  years.Round(2),
	}

	if p.MinServiceYears > 0 && Day(asOf).Before(eligibilityDate) {
		result.AccruedHours = decimal.Zero
		return result
	}
	result.Eligible = true

	accrueFrom := eligibilityDate
	if !lastAccrual.IsZero() && Day(lastAccrual).After(eligibilityDate) {
		accrueFrom = Day(lastAccrual)
	}

	result.AccruedHours = AccrualForPeriod(p, DaysBetween(accrueFrom, asOf), p.RateAfterThreshold, emp)
	return result
}
