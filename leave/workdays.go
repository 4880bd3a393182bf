/*
workdays.go - Chargeable days calculation

PURPOSE:
  Converts a date range plus a half-day flag into the number of payable leave
  days. Weekends never charge; public holidays observed by the employee's
  entity never charge; a single-day half-day request charges 0.5.

DEFENSIVE DEFAULTS:
  A missing employee or missing dates yields a zeroed DayCount, not an error.
  Upstream display paths call this freely without guarding.

SEE ALSO:
  - request.go: charges requests using these figures
  - store.go: HolidayProvider interface
*/
package leave

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DayCount is the outcome of a chargeable-day calculation.
type DayCount struct {
	TotalDays      int
	ChargeableDays decimal.Decimal
	HoursPerDay    decimal.Decimal
	HoursDeducted  decimal.Decimal
}

// WorkdayCalculator computes chargeable days for an employee's date range.
type WorkdayCalculator struct {
	Directory Directory
	Holidays  HolidayProvider
}

func NewWorkdayCalculator(dir Directory, holidays HolidayProvider) *WorkdayCalculator {
	return &WorkdayCalculator{Directory: dir, Holidays: holidays}
}

// ChargeableDays counts payable days in [start, end] inclusive for the given
// employee. Unknown employees and zero dates produce a zeroed count.
func (w *WorkdayCalculator) ChargeableDays(ctx context.Context, employeeID string, start, end time.Time, partial PartialDayType) (DayCount, error) {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return DayCount{ChargeableDays: decimal.Zero, HoursPerDay: decimal.Zero, HoursDeducted: decimal.Zero}, nil
	}

	emp, err := w.Directory.Employee(ctx, employeeID)
	if err != nil {
		if IsNotFound(err) {
			return DayCount{ChargeableDays: decimal.Zero, HoursPerDay: decimal.Zero, HoursDeducted: decimal.Zero}, nil
		}
		return DayCount{}, err
	}

	start, end = Day(start), Day(end)

	holidays := map[time.Time]bool{}
	if w.Holidays != nil {
		hs, err := w.Holidays.HolidaysInRange(ctx, emp.EntityID, start, end)
		if err != nil {
			return DayCount{}, err
		}
		for _, h := range hs {
			holidays[Day(h.Date)] = true
		}
	}

	singleDayHalf := partial.IsHalf() && SameDay(start, end)

	count := DayCount{
		ChargeableDays: decimal.Zero,
		HoursPerDay:    emp.HoursPerDay(),
	}

	half := decimal.NewFromFloat(0.5)
	one := decimal.NewFromInt(1)

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		count.TotalDays++
		if IsWeekend(day) || holidays[day] {
			continue
		}
		if singleDayHalf {
			count.ChargeableDays = count.ChargeableDays.Add(half)
		} else {
			count.ChargeableDays = count.ChargeableDays.Add(one)
		}
	}

	count.HoursDeducted = count.ChargeableDays.Mul(count.HoursPerDay).Round(2)
	return count, nil
}
