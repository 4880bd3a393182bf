/*
handlers.go - HTTP API handlers for the leave engine

PURPOSE:
  Exposes the leave engine via REST API. Handles HTTP request/response, JSON
  serialization, input validation, and delegates to domain logic.

ENDPOINTS:
  Employees:
    GET    /api/employees                    List all employees
    POST   /api/employees                    Create/update employee
    GET    /api/employees/{id}               Get employee details
    GET    /api/employees/{id}/balances      Balances (accruals brought current)
    GET    /api/employees/{id}/requests      Request history
    POST   /api/employees/{id}/requests      Submit leave request
    POST   /api/employees/{id}/chargeable-days  Preview day charge
    GET    /api/employees/{id}/policy        Resolved policy per category

  Requests:
    GET    /api/requests/pending             Pending requests for a manager
    POST   /api/requests/{id}/approve        Approve
    POST   /api/requests/{id}/decline        Decline (reason required)
    POST   /api/requests/{id}/cancel         Cancel / recall

  Policies:
    GET    /api/policies                     List policies
    POST   /api/policies                     Create/update policy
    GET    /api/policies/{id}                Get policy
    GET    /api/policies/compliance          NES compliance scan
    GET    /api/leave-types                  List leave types

  Admin:
    POST   /api/admin/adjustments            Manual balance adjustment
    POST   /api/admin/accrue                 Run accrual for all active employees
    POST   /api/admin/recalculate/{id}       Rebuild accruals from service start
    GET    /api/admin/audit                  Recent audit entries

  Holidays:
    GET    /api/holidays                     List holidays
    POST   /api/holidays                     Add holiday
    DELETE /api/holidays/{id}                Remove holiday

ERROR HANDLING:
  Infrastructure errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 500: Internal errors
  Business failures from the request state machine travel inside the
  ResultDTO envelope; the engine's stable error codes are the contract, not
  the HTTP status.

SECURITY NOTE:
  Actor identity comes from request bodies or the X-Actor-ID header. There is
  no authentication middleware; deploy behind one.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/fairwork/leave-engine/factory"
	"github.com/fairwork/leave-engine/leave"
	"github.com/fairwork/leave-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Requests *leave.RequestService
	Ledger   *leave.Ledger
	Workdays *leave.WorkdayCalculator
	Resolver *leave.Resolver

	validate *validator.Validate
}

// NewHandler creates a new handler with the given store. The store doubles as
// the audit log; notifications go to the process log.
func NewHandler(store *sqlite.Store) *Handler {
	svc := leave.NewRequestService(store)
	svc.Audit = store
	svc.Notifier = LogNotifier{}

	return &Handler{
		Store:    store,
		Requests: svc,
		Ledger:   svc.Ledger,
		Workdays: svc.Workdays,
		Resolver: svc.Resolver,
		validate: validator.New(),
	}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i := range employees {
		dtos[i] = toEmployeeDTO(&employees[i])
	}

	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	emp, err := h.Store.Employee(r.Context(), id)
	if err != nil {
		if leave.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Employee not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return
	}

	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// CreateEmployee creates or updates an employee.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	emp := &leave.Employee{
		ID:             req.ID,
		Name:           req.Name,
		EntityID:       req.EntityID,
		ManagerID:      req.ManagerID,
		AgreementID:    req.AgreementID,
		EmploymentType: leave.EmploymentType(req.EmploymentType),
		Status:         leave.StatusActive,
		HoursPerWeek:   req.HoursPerWeek,
		IsAdmin:        req.IsAdmin,
	}
	if req.ServiceStart != "" {
		emp.ServiceStart, _ = time.Parse("2006-01-02", req.ServiceStart)
	}

	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save employee", err)
		return
	}

	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// =============================================================================
// BALANCE HANDLERS
// =============================================================================

// GetBalances brings the employee's accruals current and returns all
// category balances.
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	asOf := time.Now().UTC()
	if s := r.URL.Query().Get("as_of"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "as_of must be YYYY-MM-DD", err)
			return
		}
		asOf = parsed
	}

	balances, err := h.Ledger.Balances(r.Context(), id, asOf)
	if err != nil {
		if leave.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Employee not found", nil)
			return
		}
		if errors.Is(err, leave.ErrMissingServiceStart) {
			writeError(w, http.StatusBadRequest, "Employee has no service start date", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to load balances", err)
		return
	}

	dtos := make([]BalanceDTO, len(balances))
	for i, b := range balances {
		dtos[i] = toBalanceDTO(b)
	}

	writeJSON(w, http.StatusOK, dtos)
}

// PreviewChargeableDays computes the day charge for a prospective range
// without creating anything.
func (h *Handler) PreviewChargeableDays(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ChargeableDaysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	start, _ := time.Parse("2006-01-02", req.StartDate)
	end, _ := time.Parse("2006-01-02", req.EndDate)
	partial := leave.PartialDayType(req.PartialDay)
	if partial == "" {
		partial = leave.FullDay
	}

	count, err := h.Workdays.ChargeableDays(r.Context(), id, start, end, partial)
	if err != nil {
		if leave.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Employee not found", nil)
			return
		}
		writeError(w, http.StatusBadRequest, "Failed to compute chargeable days", err)
		return
	}

	writeJSON(w, http.StatusOK, ChargeableDaysDTO{
		TotalDays:      count.TotalDays,
		ChargeableDays: decToFloat(count.ChargeableDays),
		HoursPerDay:    decToFloat(count.HoursPerDay),
		HoursDeducted:  decToFloat(count.HoursDeducted),
	})
}

// GetResolvedPolicies returns the policy the resolver picks for each
// category, for entitlement display and debugging.
func (h *Handler) GetResolvedPolicies(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	emp, err := h.Store.Employee(ctx, id)
	if err != nil {
		if leave.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Employee not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get employee", err)
		return
	}

	resolved := make(map[string]*PolicyDTO, len(leave.Categories()))
	for _, cat := range leave.Categories() {
		policy, err := h.Resolver.Resolve(ctx, emp, cat)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to resolve policy", err)
			return
		}
		if policy == nil {
			resolved[string(cat)] = nil
			continue
		}
		dto := toPolicyDTO(*policy)
		resolved[string(cat)] = &dto
	}

	writeJSON(w, http.StatusOK, resolved)
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

// SubmitRequest creates a leave request for the employee in the URL. With
// on_behalf_of set in the body, the URL employee acts as the submitter and
// on_behalf_of names the target.
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "id")

	var req SubmitLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	start, _ := time.Parse("2006-01-02", req.StartDate)
	end, _ := time.Parse("2006-01-02", req.EndDate)

	in := leave.CreateInput{
		EmployeeID:  employeeID,
		LeaveTypeID: req.LeaveTypeID,
		StartDate:   start,
		EndDate:     end,
		PartialDay:  leave.PartialDayType(req.PartialDay),
		Reason:      req.Reason,
	}

	var res *leave.Result
	if req.OnBehalfOf != "" && req.OnBehalfOf != employeeID {
		in.EmployeeID = req.OnBehalfOf
		res = h.Requests.CreateOnBehalf(r.Context(), in, employeeID)
	} else {
		res = h.Requests.Create(r.Context(), in)
	}

	writeResult(w, res)
}

// ListRequests returns the employee's full request history.
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	requests, err := h.Store.RequestsByEmployee(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list requests", err)
		return
	}

	writeJSON(w, http.StatusOK, toRequestDTOs(requests))
}

// ListPendingRequests returns pending requests routed to a manager.
func (h *Handler) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	managerID := r.URL.Query().Get("manager_id")
	if managerID == "" {
		managerID = actorFrom(r)
	}
	if managerID == "" {
		writeError(w, http.StatusBadRequest, "manager_id query parameter is required", nil)
		return
	}

	requests, err := h.Store.PendingForManager(r.Context(), managerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list pending requests", err)
		return
	}

	writeJSON(w, http.StatusOK, toRequestDTOs(requests))
}

// ApproveRequest approves a pending request.
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")

	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	writeResult(w, h.Requests.Approve(r.Context(), requestID, req.ActorID, req.Comment))
}

// DeclineRequest declines a pending request. The reason requirement is
// enforced by the engine so the error code stays uniform across transports.
func (h *Handler) DeclineRequest(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")

	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	writeResult(w, h.Requests.Decline(r.Context(), requestID, req.ActorID, req.Reason))
}

// CancelRequest cancels or recalls a request.
func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "id")

	actorID := actorFrom(r)
	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.ActorID != "" {
		actorID = req.ActorID
	}
	if actorID == "" {
		writeError(w, http.StatusBadRequest, "actor_id is required", nil)
		return
	}

	writeResult(w, h.Requests.Cancel(r.Context(), requestID, actorID))
}

// =============================================================================
// POLICY HANDLERS
// =============================================================================

// ListPolicies returns all policies, active and inactive.
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.Store.ListPolicies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list policies", err)
		return
	}

	dtos := make([]PolicyDTO, len(policies))
	for i, p := range policies {
		dtos[i] = toPolicyDTO(p)
	}

	writeJSON(w, http.StatusOK, dtos)
}

// GetPolicy returns a single policy.
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	policy, err := h.Store.Policy(r.Context(), id)
	if err != nil {
		if leave.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Policy not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get policy", err)
		return
	}

	writeJSON(w, http.StatusOK, toPolicyDTO(*policy))
}

// CreatePolicy creates or updates a policy from its JSON definition. The
// body uses the same shape as factory bundles.
func (h *Handler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	var pj factory.PolicyJSON
	if err := json.NewDecoder(r.Body).Decode(&pj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	policy, err := factory.PolicyFromJSON(pj)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid policy definition", err)
		return
	}

	if err := h.Store.SavePolicy(r.Context(), policy); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save policy", err)
		return
	}

	writeJSON(w, http.StatusCreated, toPolicyDTO(*policy))
}

// CheckCompliance runs the NES minimum scan over all stored policies.
func (h *Handler) CheckCompliance(w http.ResponseWriter, r *http.Request) {
	policies, err := h.Store.ListPolicies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list policies", err)
		return
	}

	findings := leave.CheckCompliance(policies)
	dtos := make([]FindingDTO, len(findings))
	for i, f := range findings {
		dtos[i] = FindingDTO{
			PolicyID: f.PolicyID,
			Severity: string(f.Severity),
			Rule:     f.Rule,
			Message:  f.Message,
		}
	}

	writeJSON(w, http.StatusOK, dtos)
}

// ListLeaveTypes returns all leave types.
func (h *Handler) ListLeaveTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Store.ListLeaveTypes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list leave types", err)
		return
	}

	dtos := make([]LeaveTypeDTO, len(types))
	for i, lt := range types {
		dtos[i] = LeaveTypeDTO{
			ID:       lt.ID,
			Code:     lt.Code,
			Name:     lt.Name,
			Category: string(lt.Category),
		}
	}

	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// CreateAdjustment applies a manual balance correction and audits it.
func (h *Handler) CreateAdjustment(w http.ResponseWriter, r *http.Request) {
	var req AdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	ctx := r.Context()
	category := leave.Category(req.Category)
	if err := h.Ledger.Adjust(ctx, req.EmployeeID, category, decimalFromFloat(req.DeltaHours)); err != nil {
		if leave.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Employee not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to apply adjustment", err)
		return
	}

	h.Store.Record(ctx, leave.AuditEntry{
		ID:          uuid.NewString(),
		At:          time.Now().UTC(),
		ActorID:     req.ActorID,
		EventType:   leave.AuditBalanceAdjusted,
		EntityID:    req.EmployeeID,
		Description: req.Reason,
	})

	balance, err := h.Store.Balance(ctx, req.EmployeeID, category)
	if err != nil || balance == nil {
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(*balance))
}

// RunAccruals runs accrual for every active employee across all categories.
// Same path the scheduler takes, exposed for admin use.
func (h *Handler) RunAccruals(w http.ResponseWriter, r *http.Request) {
	processed, failed := accrueAll(r.Context(), h.Store, h.Ledger)
	writeJSON(w, http.StatusOK, map[string]int{"processed": processed, "failed": failed})
}

// RecalculateBalances rebuilds an employee's accrued hours from their service
// start. Opening, adjustments and taken hours are preserved.
func (h *Handler) RecalculateBalances(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Ledger.RecalculateAll(r.Context(), id); err != nil {
		if leave.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Employee not found", nil)
			return
		}
		if errors.Is(err, leave.ErrMissingServiceStart) {
			writeError(w, http.StatusBadRequest, "Employee has no service start date", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to recalculate", err)
		return
	}

	balances, err := h.Store.BalancesByEmployee(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load balances", err)
		return
	}
	dtos := make([]BalanceDTO, len(balances))
	for i, b := range balances {
		dtos[i] = toBalanceDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RecentAudit returns the newest audit entries.
func (h *Handler) RecentAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Store.RecentAudit(r.Context(), 100)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load audit log", err)
		return
	}

	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = AuditEntryDTO{
			ID:          e.ID,
			At:          e.At.Format(time.RFC3339),
			ActorID:     e.ActorID,
			EventType:   e.EventType,
			EntityID:    e.EntityID,
			Description: e.Description,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListHolidays returns holidays, optionally scoped to an entity.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	entityID := r.URL.Query().Get("entity_id")

	holidays, err := h.Store.ListHolidays(r.Context(), entityID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list holidays", err)
		return
	}

	dtos := make([]HolidayDTO, len(holidays))
	for i, hol := range holidays {
		dtos[i] = HolidayDTO{
			ID:       hol.ID,
			EntityID: hol.EntityID,
			Date:     hol.Date.Format("2006-01-02"),
			Name:     hol.Name,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHoliday adds a public holiday.
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req CreateHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return
	}

	date, _ := time.Parse("2006-01-02", req.Date)
	hol := &leave.Holiday{
		ID:       uuid.NewString(),
		EntityID: req.EntityID,
		Date:     date,
		Name:     req.Name,
	}

	if err := h.Store.SaveHoliday(r.Context(), hol); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save holiday", err)
		return
	}

	writeJSON(w, http.StatusCreated, HolidayDTO{
		ID:       hol.ID,
		EntityID: hol.EntityID,
		Date:     hol.Date.Format("2006-01-02"),
		Name:     hol.Name,
	})
}

// DeleteHoliday removes a holiday.
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Store.DeleteHoliday(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete holiday", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeResult maps a Result envelope onto HTTP. Success is 200; business
// failures are 422 with the engine's error code in the body; missing
// resources and authorization failures keep their conventional statuses.
func writeResult(w http.ResponseWriter, res *leave.Result) {
	status := http.StatusOK
	if !res.Success {
		switch res.Error {
		case leave.CodeNotFound:
			status = http.StatusNotFound
		case leave.CodeInternal:
			status = http.StatusInternalServerError
		case leave.CodeNotAuthorized:
			status = http.StatusForbidden
		default:
			status = http.StatusUnprocessableEntity
		}
	}
	writeJSON(w, status, toResultDTO(res))
}

func actorFrom(r *http.Request) string {
	return r.Header.Get("X-Actor-ID")
}
