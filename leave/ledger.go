/*
ledger.go - The balance ledger

PURPOSE:
  Owns every mutation of per-employee, per-category balance rows. Rows are
  created lazily through GetOrCreate with a documented zero state. Accrue is
  idempotent per day: the LastAccrual watermark prevents double-accrual no
  matter how often a scheduler fires.

OPERATIONS:
  GetOrCreate    zero-initialized row, LastAccrual seeded from service start
  Accrue         watermark-guarded accrual up to an as-of date
  Deduct/Restore move hours in and out of Taken
  Adjust         administrative correction into Adjusted
  RecalculateAll re-derive Accrued from service start under current policy

TOLERANCE:
  Sufficiency checks compare needed against available plus Epsilon (0.01
  hours) to absorb floating-point drift from upstream systems.

SEE ALSO:
  - accrual.go: the formulas Accrue applies
  - request.go: calls Deduct/Restore around approvals and cancellations
*/
package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Epsilon is the balance comparison tolerance in hours.
var Epsilon = decimal.NewFromFloat(0.01)

// Sufficient reports whether an available balance covers the needed hours
// within tolerance, or unconditionally when negative balances are allowed.
func Sufficient(available, needed decimal.Decimal, allowNegative bool) bool {
	if allowNegative {
		return true
	}
	return needed.LessThanOrEqual(available.Add(Epsilon))
}

// Ledger mutates balance rows. All operations are idempotent with respect to
// their named effect.
type Ledger struct {
	Store    Store
	Resolver *Resolver

	// Now is the clock, overridable in tests. Defaults to Today.
	Now func() time.Time
}

func NewLedger(store Store, resolver *Resolver) *Ledger {
	return &Ledger{Store: store, Resolver: resolver, Now: Today}
}

// =============================================================================
// ROW LIFECYCLE
// =============================================================================

// GetOrCreate returns the balance row for employee and category, creating a
// zero-initialized row on first touch. LastAccrual seeds from the employee's
// service start so the first Accrue covers the full service period.
func (l *Ledger) GetOrCreate(ctx context.Context, employeeID string, category Category) (*Balance, error) {
	b, err := l.Store.Balance(ctx, employeeID, category)
	if err != nil {
		return nil, err
	}
	if b != nil {
		return b, nil
	}

	emp, err := l.Store.Employee(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	b = &Balance{
		EmployeeID:  employeeID,
		Category:    category,
		Opening:     decimal.Zero,
		Accrued:     decimal.Zero,
		Adjusted:    decimal.Zero,
		Taken:       decimal.Zero,
		LastAccrual: Day(emp.ServiceStart),
		UpdatedAt:   l.now(),
	}
	b.Recalculate()

	if err := l.Store.SaveBalance(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Balances returns the employee's balance rows across all categories,
// accruing each up to asOf first so the figures are current.
func (l *Ledger) Balances(ctx context.Context, employeeID string, asOf time.Time) ([]Balance, error) {
	for _, category := range Categories() {
		if err := l.Accrue(ctx, employeeID, category, asOf); err != nil {
			return nil, err
		}
	}
	return l.Store.BalancesByEmployee(ctx, employeeID)
}

// =============================================================================
// ACCRUAL
// =============================================================================

// Accrue advances the balance's accrued hours up to asOf. Calling it twice
// with the same asOf changes the balance once: the LastAccrual watermark
// swallows the second call. Terminated employees stop accruing at their
// termination date. A nil resolved policy means no entitlement and is not an
// error.
func (l *Ledger) Accrue(ctx context.Context, employeeID string, category Category, asOf time.Time) error {
	emp, err := l.Store.Employee(ctx, employeeID)
	if err != nil {
		return err
	}
	if emp.ServiceStart.IsZero() {
		return fmt.Errorf("accrue %s/%s: %w", employeeID, category, ErrMissingServiceStart)
	}

	asOf = Day(asOf)
	if emp.TerminatedAt != nil && asOf.After(Day(*emp.TerminatedAt)) {
		asOf = Day(*emp.TerminatedAt)
	}

	b, err := l.GetOrCreate(ctx, employeeID, category)
	if err != nil {
		return err
	}
	if !b.LastAccrual.Before(asOf) {
		return nil // already accrued to this day or later
	}

	policy, err := l.Resolver.Resolve(ctx, emp, category)
	if err != nil {
		return err
	}
	if policy == nil {
		return nil
	}

	var delta decimal.Decimal
	if category == CategoryLongService {
		delta = LSLAccrual(policy, emp, b.LastAccrual, asOf).AccruedHours
	} else {
		delta = AccrualForPeriod(policy, DaysBetween(b.LastAccrual, asOf), 0, emp)
	}

	b.Accrued = b.Accrued.Add(delta)
	b.LastAccrual = asOf
	b.UpdatedAt = l.now()
	b.Recalculate()
	return l.Store.SaveBalance(ctx, b)
}

// RecalculateAll re-derives each category's accrued hours from the service
// start to today under the currently resolved policy. Opening, Taken and
// Adjusted are untouched; only Accrued is rebuilt. Used after policy or
// service-date corrections.
func (l *Ledger) RecalculateAll(ctx context.Context, employeeID string) error {
	emp, err := l.Store.Employee(ctx, employeeID)
	if err != nil {
		return err
	}
	if emp.ServiceStart.IsZero() {
		return fmt.Errorf("recalculate %s: %w", employeeID, ErrMissingServiceStart)
	}

	asOf := l.now()
	if emp.TerminatedAt != nil && asOf.After(Day(*emp.TerminatedAt)) {
		asOf = Day(*emp.TerminatedAt)
	}

	for _, category := range Categories() {
		b, err := l.GetOrCreate(ctx, employeeID, category)
		if err != nil {
			return err
		}

		policy, err := l.Resolver.Resolve(ctx, emp, category)
		if err != nil {
			return err
		}

		accrued := decimal.Zero
		if policy != nil {
			if category == CategoryLongService {
				accrued = LSLAccrual(policy, emp, time.Time{}, asOf).AccruedHours
			} else {
				accrued = AccrualForPeriod(policy, DaysBetween(emp.ServiceStart, asOf), 0, emp)
			}
		}

		b.Accrued = accrued
		b.LastAccrual = asOf
		b.UpdatedAt = l.now()
		b.Recalculate()
		if err := l.Store.SaveBalance(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// DEDUCT / RESTORE / ADJUST
// =============================================================================

// Deduct moves hours into Taken. A missing balance row is a successful no-op
// so that defensive upstream paths are never blocked.
func (l *Ledger) Deduct(ctx context.Context, employeeID string, category Category, hours decimal.Decimal) error {
	return l.shiftTaken(ctx, employeeID, category, hours)
}

// Restore moves hours back out of Taken, exactly reversing a prior Deduct of
// the same amount.
func (l *Ledger) Restore(ctx context.Context, employeeID string, category Category, hours decimal.Decimal) error {
	return l.shiftTaken(ctx, employeeID, category, hours.Neg())
}

func (l *Ledger) shiftTaken(ctx context.Context, employeeID string, category Category, hours decimal.Decimal) error {
	b, err := l.Store.Balance(ctx, employeeID, category)
	if err != nil {
		return err
	}
	if b == nil {
		return nil
	}
	b.Taken = b.Taken.Add(hours)
	b.UpdatedAt = l.now()
	b.Recalculate()
	return l.Store.SaveBalance(ctx, b)
}

// Adjust applies an administrative correction into Adjusted. Creates the row
// if absent.
func (l *Ledger) Adjust(ctx context.Context, employeeID string, category Category, deltaHours decimal.Decimal) error {
	b, err := l.GetOrCreate(ctx, employeeID, category)
	if err != nil {
		return err
	}
	b.Adjusted = b.Adjusted.Add(deltaHours)
	b.UpdatedAt = l.now()
	b.Recalculate()
	return l.Store.SaveBalance(ctx, b)
}

func (l *Ledger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return Today()
}

// withStore returns a ledger bound to a different store view, used inside
// transactions.
func (l *Ledger) withStore(s Store) *Ledger {
	return &Ledger{Store: s, Resolver: &Resolver{Directory: s, Policies: s, Balances: s}, Now: l.Now}
}
