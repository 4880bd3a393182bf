/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator struct tags; handlers run
  h.validate.Struct before touching domain logic. DTOs stay pure data
  carriers.

DATES:
  All calendar dates travel as YYYY-MM-DD strings. Hour quantities travel as
  float64 for clients; the engine keeps decimals internally.

SEE ALSO:
  - handlers.go: Uses these types
  - leave/types.go: the domain model these wrap
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fairwork/leave-engine/leave"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	EntityID       string  `json:"entity_id,omitempty"`
	ManagerID      string  `json:"manager_id,omitempty"`
	AgreementID    string  `json:"agreement_id,omitempty"`
	EmploymentType string  `json:"employment_type"`
	Status         string  `json:"status"`
	HoursPerWeek   float64 `json:"hours_per_week,omitempty"`
	ServiceStart   string  `json:"service_start,omitempty"`
	IsAdmin        bool    `json:"is_admin,omitempty"`
}

// CreateEmployeeRequest is the request to create or update an employee.
type CreateEmployeeRequest struct {
	ID             string  `json:"id" validate:"required"`
	Name           string  `json:"name" validate:"required"`
	EntityID       string  `json:"entity_id"`
	ManagerID      string  `json:"manager_id"`
	AgreementID    string  `json:"agreement_id"`
	EmploymentType string  `json:"employment_type" validate:"required,oneof=full_time part_time casual contractor"`
	HoursPerWeek   float64 `json:"hours_per_week" validate:"gte=0,lte=168"`
	ServiceStart   string  `json:"service_start" validate:"omitempty,datetime=2006-01-02"`
	IsAdmin        bool    `json:"is_admin"`
}

// BalanceDTO represents one category balance for an employee.
type BalanceDTO struct {
	EmployeeID  string  `json:"employee_id"`
	Category    string  `json:"category"`
	Opening     float64 `json:"opening"`
	Accrued     float64 `json:"accrued"`
	Adjusted    float64 `json:"adjusted"`
	Taken       float64 `json:"taken"`
	Available   float64 `json:"available"`
	LastAccrual string  `json:"last_accrual,omitempty"`
}

// ChargeableDaysRequest asks how many days a date range would charge.
type ChargeableDaysRequest struct {
	StartDate  string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate    string `json:"end_date" validate:"required,datetime=2006-01-02"`
	PartialDay string `json:"partial_day" validate:"omitempty,oneof=full half_am half_pm"`
}

// ChargeableDaysDTO is the day-count breakdown for a prospective request.
type ChargeableDaysDTO struct {
	TotalDays      int     `json:"total_days"`
	ChargeableDays float64 `json:"chargeable_days"`
	HoursPerDay    float64 `json:"hours_per_day"`
	HoursDeducted  float64 `json:"hours_deducted"`
}

// SubmitLeaveRequest is the request body to create a leave request.
type SubmitLeaveRequest struct {
	LeaveTypeID string `json:"leave_type_id" validate:"required"`
	StartDate   string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate     string `json:"end_date" validate:"required,datetime=2006-01-02"`
	PartialDay  string `json:"partial_day" validate:"omitempty,oneof=full half_am half_pm"`
	Reason      string `json:"reason"`

	// OnBehalfOf routes the request through manager/admin authorization and
	// skips the pending stage when set.
	OnBehalfOf string `json:"on_behalf_of,omitempty"`
}

// RequestDTO represents a leave request in API responses.
type RequestDTO struct {
	ID            string  `json:"id"`
	EmployeeID    string  `json:"employee_id"`
	LeaveTypeID   string  `json:"leave_type_id"`
	Category      string  `json:"category"`
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
	TotalDays     float64 `json:"total_days"`
	HoursPerDay   float64 `json:"hours_per_day"`
	HoursCharged  float64 `json:"hours_charged"`
	PartialDay    string  `json:"partial_day"`
	Status        string  `json:"status"`
	ManagerID     string  `json:"manager_id,omitempty"`
	Reason        string  `json:"reason,omitempty"`
	DeclineReason string  `json:"decline_reason,omitempty"`
	ApprovedBy    string  `json:"approved_by,omitempty"`
	CreatedAt     string  `json:"created_at,omitempty"`
}

// ResultDTO wraps the engine's structured operation outcome.
type ResultDTO struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
	Request *RequestDTO `json:"request,omitempty"`
}

// DecisionRequest carries an approval or decline decision.
type DecisionRequest struct {
	ActorID string `json:"actor_id" validate:"required"`
	Comment string `json:"comment"`
	Reason  string `json:"reason"`
}

// PolicyDTO represents a leave policy.
type PolicyDTO struct {
	ID                    string  `json:"id"`
	Name                  string  `json:"name"`
	Category              string  `json:"category"`
	EmploymentScope       string  `json:"employment_scope"`
	CountryCode           string  `json:"country_code,omitempty"`
	AccrualUnit           string  `json:"accrual_unit"`
	AccrualRate           float64 `json:"accrual_rate"`
	StandardHoursPerDay   float64 `json:"standard_hours_per_day"`
	HoursPerWeekReference float64 `json:"hours_per_week_reference"`
	IsDefault             bool    `json:"is_default"`
	IsActive              bool    `json:"is_active"`
	MinServiceYears       float64 `json:"min_service_years,omitempty"`
	RateAfterThreshold    float64 `json:"rate_after_threshold,omitempty"`
	AllowNegativeBalance  bool    `json:"allow_negative_balance,omitempty"`
}

// LeaveTypeDTO represents a leave type with its resolved category.
type LeaveTypeDTO struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// AdjustmentRequest is a manual balance correction.
type AdjustmentRequest struct {
	EmployeeID string  `json:"employee_id" validate:"required"`
	Category   string  `json:"category" validate:"required,oneof=annual personal long_service"`
	DeltaHours float64 `json:"delta_hours" validate:"required"`
	Reason     string  `json:"reason" validate:"required"`
	ActorID    string  `json:"actor_id" validate:"required"`
}

// HolidayDTO represents a public holiday.
type HolidayDTO struct {
	ID       string `json:"id"`
	EntityID string `json:"entity_id,omitempty"`
	Date     string `json:"date"`
	Name     string `json:"name"`
}

// CreateHolidayRequest adds a public holiday to a calendar.
type CreateHolidayRequest struct {
	EntityID string `json:"entity_id"`
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
	Name     string `json:"name" validate:"required"`
}

// FindingDTO represents a compliance finding.
type FindingDTO struct {
	PolicyID string `json:"policy_id"`
	Severity string `json:"severity"`
	Rule     string `json:"rule"`
	Message  string `json:"message"`
}

// AuditEntryDTO represents one audit record.
type AuditEntryDTO struct {
	ID          string `json:"id"`
	At          string `json:"at"`
	ActorID     string `json:"actor_id,omitempty"`
	EventType   string `json:"event_type"`
	EntityID    string `json:"entity_id,omitempty"`
	Description string `json:"description,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toEmployeeDTO(e *leave.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:             e.ID,
		Name:           e.Name,
		EntityID:       e.EntityID,
		ManagerID:      e.ManagerID,
		AgreementID:    e.AgreementID,
		EmploymentType: string(e.EmploymentType),
		Status:         string(e.Status),
		HoursPerWeek:   e.HoursPerWeek,
		IsAdmin:        e.IsAdmin,
	}
	if !e.ServiceStart.IsZero() {
		dto.ServiceStart = e.ServiceStart.Format("2006-01-02")
	}
	return dto
}

func toBalanceDTO(b leave.Balance) BalanceDTO {
	dto := BalanceDTO{
		EmployeeID: b.EmployeeID,
		Category:   string(b.Category),
		Opening:    decToFloat(b.Opening),
		Accrued:    decToFloat(b.Accrued),
		Adjusted:   decToFloat(b.Adjusted),
		Taken:      decToFloat(b.Taken),
		Available:  decToFloat(b.Available),
	}
	if !b.LastAccrual.IsZero() {
		dto.LastAccrual = b.LastAccrual.Format("2006-01-02")
	}
	return dto
}

func toRequestDTO(r *leave.LeaveRequest) *RequestDTO {
	if r == nil {
		return nil
	}
	dto := &RequestDTO{
		ID:            r.ID,
		EmployeeID:    r.EmployeeID,
		LeaveTypeID:   r.LeaveTypeID,
		Category:      string(r.Category),
		StartDate:     r.StartDate.Format("2006-01-02"),
		EndDate:       r.EndDate.Format("2006-01-02"),
		TotalDays:     decToFloat(r.TotalDays),
		HoursPerDay:   decToFloat(r.HoursPerDay),
		HoursCharged:  decToFloat(r.HoursCharged()),
		PartialDay:    string(r.PartialDay),
		Status:        string(r.Status),
		ManagerID:     r.ManagerID,
		Reason:        r.Reason,
		DeclineReason: r.DeclineReason,
		ApprovedBy:    r.ApprovedBy,
	}
	if !r.CreatedAt.IsZero() {
		dto.CreatedAt = r.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toRequestDTOs(rs []leave.LeaveRequest) []RequestDTO {
	dtos := make([]RequestDTO, len(rs))
	for i := range rs {
		dtos[i] = *toRequestDTO(&rs[i])
	}
	return dtos
}

func toResultDTO(res *leave.Result) ResultDTO {
	return ResultDTO{
		Success: res.Success,
		Error:   string(res.Error),
		Message: res.Message,
		Request: toRequestDTO(res.Request),
	}
}

func toPolicyDTO(p leave.LeavePolicy) PolicyDTO {
	return PolicyDTO{
		ID:                    p.ID,
		Name:                  p.Name,
		Category:              string(p.Category),
		EmploymentScope:       string(p.EmploymentScope),
		CountryCode:           p.CountryCode,
		AccrualUnit:           string(p.AccrualUnit),
		AccrualRate:           p.AccrualRate,
		StandardHoursPerDay:   p.StandardHoursPerDay,
		HoursPerWeekReference: p.HoursPerWeekReference,
		IsDefault:             p.IsDefault,
		IsActive:              p.IsActive,
		MinServiceYears:       p.MinServiceYears,
		RateAfterThreshold:    p.RateAfterThreshold,
		AllowNegativeBalance:  p.AllowNegativeBalance,
	}
}

func decToFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func decimalFromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}
