/*
Package leave implements paid-leave entitlement tracking: policy resolution,
accrual calculation, chargeable-day counting, the per-employee balance ledger,
and the leave-request lifecycle that mutates it.

KEY CONCEPTS IN THIS FILE (types.go):
  - Category: the three balance categories (annual, personal, long_service)
  - Employee/Agreement: directory records referenced (not owned) by the engine
  - LeavePolicy: configurable accrual rules, admin-managed
  - Balance: the authoritative hours ledger per employee and category
  - LeaveRequest: a dated request with a frozen chargeable-day count

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for every hour quantity, rounded to 2 places
  2. Explicit classification: leave-type codes map to categories through a
     validated table; ambiguous codes fail at load time instead of silently
     landing in the annual bucket
  3. Frozen charges: a request's TotalDays and HoursPerDay are fixed when the
     request is created and never recomputed retroactively

SEE ALSO:
  - policy.go: policy resolution priority chain
  - accrual.go: accrual formulas and the long-service gate
  - ledger.go: balance mutations
  - request.go: the request state machine
*/
package leave

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BALANCE CATEGORIES
// =============================================================================

// Category is a leave balance bucket. Every leave type classifies into
// exactly one category; balances are tracked per employee per category.
type Category string

const (
	CategoryAnnual      Category = "annual"
	CategoryPersonal    Category = "personal"
	CategoryLongService Category = "long_service"
)

// Categories lists all balance categories in a stable order.
func Categories() []Category {
	return []Category{CategoryAnnual, CategoryPersonal, CategoryLongService}
}

// IsPaid reports whether the category represents paid leave, which casual
// employees are never entitled to request.
func (c Category) IsPaid() bool {
	return c == CategoryAnnual || c == CategoryPersonal
}

// categoryKeywords drives code classification. A code must match keywords of
// exactly one category; anything else is a configuration error.
var categoryKeywords = map[Category][]string{
	CategoryPersonal:    {"personal", "sick", "carer"},
	CategoryLongService: {"long", "lsl"},
	CategoryAnnual:      {"annual", "holiday", "vacation", "recreation"},
}

// ClassifyCode maps a leave-type code (or name) to its balance category by
// case-insensitive substring match. Codes matching keywords of more than one
// category return AmbiguousCodeError; codes matching none return
// UnclassifiedCodeError. There is no silent default.
func ClassifyCode(code string) (Category, error) {
	lower := strings.ToLower(code)

	var matches []Category
	for _, cat := range Categories() {
		for _, kw := range categoryKeywords[cat] {
			if strings.Contains(lower, kw) {
				matches = append(matches, cat)
				break
			}
		}
	}

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", &UnclassifiedCodeError{Code: code}
	default:
		return "", &AmbiguousCodeError{Code: code, Matches: matches}
	}
}

// =============================================================================
// EMPLOYEES AND AGREEMENTS (directory records, referenced only)
// =============================================================================

type EmploymentType string

const (
	FullTime   EmploymentType = "full_time"
	PartTime   EmploymentType = "part_time"
	Casual     EmploymentType = "casual"
	Contractor EmploymentType = "contractor"

	// ScopeAny is valid only as a policy employment scope, never as an
	// employee's employment type.
	ScopeAny EmploymentType = "any"
)

type EmployeeStatus string

const (
	StatusActive      EmployeeStatus = "active"
	StatusOnboarding  EmployeeStatus = "onboarding"
	StatusOffboarding EmployeeStatus = "offboarding"
	StatusTerminated  EmployeeStatus = "terminated"
)

// Employee is the slice of the directory record the engine reads. The engine
// never writes employees; it only resolves entitlements against them.
type Employee struct {
	ID             string
	Name           string
	EntityID       string // legal entity, scopes the public-holiday calendar
	ManagerID      string // empty means no manager: requests auto-approve
	AgreementID    string // employment agreement, second resolution step
	EmploymentType EmploymentType
	Status         EmployeeStatus
	HoursPerWeek   float64    // 0 means unknown
	ServiceStart   time.Time  // zero means not configured
	TerminatedAt   *time.Time // accrual stops here
	IsAdmin        bool

	// PolicyOverrides pins a specific policy per category, taking priority
	// over every other resolution step.
	PolicyOverrides map[Category]string
}

// HoursPerDay derives the employee's working hours per day from a five-day
// week, falling back to the statutory standard day when hours are unknown.
func (e *Employee) HoursPerDay() decimal.Decimal {
	if e != nil && e.HoursPerWeek > 0 {
		return decimal.NewFromFloat(e.HoursPerWeek).Div(decimal.NewFromInt(5)).Round(2)
	}
	return StandardDayHours
}

// FTE is the employee's full-time-equivalent fraction against the policy's
// weekly reference hours, capped at 1. Full-time employees and employees with
// unknown hours count as 1.
func (e *Employee) FTE(referenceHoursPerWeek float64) decimal.Decimal {
	if e == nil || e.EmploymentType == FullTime || e.HoursPerWeek <= 0 || referenceHoursPerWeek <= 0 {
		return decimal.NewFromInt(1)
	}
	fte := decimal.NewFromFloat(e.HoursPerWeek).Div(decimal.NewFromFloat(referenceHoursPerWeek))
	if fte.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return fte
}

// Agreement is an employment agreement that may declare a default policy per
// category (resolution step 2).
type Agreement struct {
	ID               string
	Name             string
	DefaultPolicyIDs map[Category]string
}

// =============================================================================
// LEAVE TYPES AND POLICIES
// =============================================================================

// LeaveType is a named, coded kind of leave. Category is assigned by
// ClassifyCode when the type is loaded, never guessed at request time.
type LeaveType struct {
	ID       string
	Code     string
	Name     string
	Category Category
}

type AccrualUnit string

const (
	HoursPerYear AccrualUnit = "hours_per_year"
	DaysPerYear  AccrualUnit = "days_per_year"
	WeeksPerYear AccrualUnit = "weeks_per_year"
)

// Statutory defaults used when a policy leaves them unset.
var (
	StandardDayHours  = decimal.NewFromFloat(7.6)
	StandardWeekHours = decimal.NewFromFloat(38)
)

// LeavePolicy is the configurable accrual rule set for one category. Policies
// are admin-managed and rarely change at runtime.
type LeavePolicy struct {
	ID              string
	Name            string
	Category        Category
	EmploymentScope EmploymentType // full_time, part_time, casual, contractor, or any
	CountryCode     string

	AccrualUnit           AccrualUnit
	AccrualRate           float64
	StandardHoursPerDay   float64 // default 7.6
	HoursPerWeekReference float64 // default 38

	IsDefault bool
	IsActive  bool

	// Long-service gate: no accrual at all before this many years of
	// service. RateAfterThreshold, when set, replaces AccrualRate once the
	// gate opens.
	MinServiceYears    float64
	RateAfterThreshold float64

	AllowNegativeBalance bool
}

// Normalize fills statutory defaults for unset reference fields.
func (p *LeavePolicy) Normalize() {
	if p.StandardHoursPerDay <= 0 {
		p.StandardHoursPerDay, _ = StandardDayHours.Float64()
	}
	if p.HoursPerWeekReference <= 0 {
		p.HoursPerWeekReference, _ = StandardWeekHours.Float64()
	}
}

// AnnualHours converts the policy's accrual rate to an annual hours figure.
// A zero rate yields zero regardless of unit.
func (p *LeavePolicy) AnnualHours(rate float64) decimal.Decimal {
	if rate == 0 {
		return decimal.Zero
	}
	r := decimal.NewFromFloat(rate)
	switch p.AccrualUnit {
	case HoursPerYear:
		return r
	case WeeksPerYear:
		ref := p.HoursPerWeekReference
		if ref <= 0 {
			ref, _ = StandardWeekHours.Float64()
		}
		return r.Mul(decimal.NewFromFloat(ref))
	default: // days_per_year and unset units
		std := p.StandardHoursPerDay
		if std <= 0 {
			std, _ = StandardDayHours.Float64()
		}
		return r.Mul(decimal.NewFromFloat(std))
	}
}

// =============================================================================
// BALANCES
// =============================================================================

// Balance is the authoritative hours record for one employee and category.
// Available is derived; Recalculate keeps it consistent after any mutation.
type Balance struct {
	EmployeeID string
	Category   Category

	// PolicyID is a legacy per-balance policy override kept for
	// back-compatibility (resolution step 3).
	PolicyID string

	Opening  decimal.Decimal
	Accrued  decimal.Decimal
	Adjusted decimal.Decimal
	Taken    decimal.Decimal

	// Available = Opening + Accrued + Adjusted - Taken
	Available decimal.Decimal

	LastAccrual time.Time
	UpdatedAt   time.Time
}

// Recalculate re-derives Available from the component fields.
func (b *Balance) Recalculate() {
	b.Available = b.Opening.Add(b.Accrued).Add(b.Adjusted).Sub(b.Taken)
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

type PartialDayType string

const (
	FullDay    PartialDayType = "full"
	HalfDayAM  PartialDayType = "half_am"
	HalfDayPM  PartialDayType = "half_pm"
)

func (p PartialDayType) IsHalf() bool { return p == HalfDayAM || p == HalfDayPM }

type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestApproved  RequestStatus = "approved"
	RequestDeclined  RequestStatus = "declined"
	RequestCancelled RequestStatus = "cancelled"
)

// Finalized reports whether the status is terminal for approval and decline.
// Approved requests can still be recalled into cancelled while future-dated.
func (s RequestStatus) Finalized() bool {
	return s != RequestPending
}

// LeaveRequest is a dated request against one leave type. TotalDays and
// HoursPerDay are frozen when the request is created; balance mutations always
// use the frozen figures, never a recomputation.
type LeaveRequest struct {
	ID          string
	EmployeeID  string
	LeaveTypeID string
	Category    Category

	StartDate time.Time
	EndDate   time.Time

	TotalDays   decimal.Decimal // chargeable days, frozen at creation
	HoursPerDay decimal.Decimal // frozen at creation

	PartialDay PartialDayType
	Status     RequestStatus
	ManagerID  string
	Reason     string

	DeclineReason string
	ApprovedBy    string
	ApprovedAt    *time.Time
	CancelledAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HoursCharged is the balance impact of the request: chargeable days times
// the frozen hours per day.
func (r *LeaveRequest) HoursCharged() decimal.Decimal {
	return r.TotalDays.Mul(r.HoursPerDay).Round(2)
}

// Overlaps reports whether the request's date range intersects [from, to].
func (r *LeaveRequest) Overlaps(from, to time.Time) bool {
	return !r.StartDate.After(to) && !r.EndDate.Before(from)
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// Holiday is a public holiday observed by one legal entity. An empty EntityID
// marks a holiday observed everywhere.
type Holiday struct {
	ID       string
	EntityID string
	Date     time.Time
	Name     string
}
