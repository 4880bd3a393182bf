/*
request.go - Leave request state machine

PURPOSE:
  Orchestrates the lifecycle of leave requests: creation with validation and
  balance checks, approval with deduction, decline, and cancellation with
  restoration. Status moves forward only, except the future-dated recall of an
  approved request into cancelled.

TRANSACTIONS:
  Persisting a request and mutating its balance happen inside a single store
  transaction. A failed deduction rolls the request write back, so the ledger
  can never drift from the request history.

RESULTS:
  Every operation returns a Result. Business failures carry a stable error
  code; only infrastructure faults surface as Go errors (logged, returned as
  CodeInternal).

SEE ALSO:
  - workdays.go: charge computation at creation time
  - ledger.go: Deduct/Restore
  - errors.go: error codes and the Result envelope
*/
package leave

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
)

// RequestService runs the leave request state machine.
type RequestService struct {
	Store    TxStore
	Workdays *WorkdayCalculator
	Resolver *Resolver
	Ledger   *Ledger

	Notifier Notifier // optional
	Audit    AuditLog // optional

	// Now is the clock, overridable in tests. Defaults to Today.
	Now func() time.Time
}

func NewRequestService(store TxStore) *RequestService {
	resolver := NewResolver(store, store, store)
	return &RequestService{
		Store:    store,
		Workdays: NewWorkdayCalculator(store, store),
		Resolver: resolver,
		Ledger:   NewLedger(store, resolver),
		Now:      Today,
	}
}

// CreateInput describes a new leave request.
type CreateInput struct {
	EmployeeID  string
	LeaveTypeID string
	StartDate   time.Time
	EndDate     time.Time
	PartialDay  PartialDayType
	Reason      string
}

// =============================================================================
// CREATE
// =============================================================================

// Create validates and persists a new request. Employees without a manager
// are auto-approved and charged immediately; everyone else lands in pending
// and their manager is notified.
func (s *RequestService) Create(ctx context.Context, in CreateInput) *Result {
	return s.create(ctx, in, "", false)
}

// CreateOnBehalf creates and immediately approves a request for an employee,
// on the authority of an admin or the employee's direct manager. The same
// validation, overlap and balance rules apply; only the pending stage is
// skipped.
func (s *RequestService) CreateOnBehalf(ctx context.Context, in CreateInput, actorID string) *Result {
	actor, err := s.Store.Employee(ctx, actorID)
	if err != nil {
		if IsNotFound(err) {
			return fail(CodeNotFound, "actor %s not found", actorID)
		}
		return s.internal("load actor", err)
	}

	emp, err := s.Store.Employee(ctx, in.EmployeeID)
	if err != nil {
		if IsNotFound(err) {
			return fail(CodeNotFound, "employee %s not found", in.EmployeeID)
		}
		return s.internal("load employee", err)
	}

	if !actor.IsAdmin && emp.ManagerID != actor.ID {
		return fail(CodeNotAuthorized, "only an admin or the employee's manager may request on their behalf")
	}

	return s.create(ctx, in, actorID, true)
}

func (s *RequestService) create(ctx context.Context, in CreateInput, actorID string, autoApprove bool) *Result {
	if in.PartialDay == "" {
		in.PartialDay = FullDay
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() || in.EndDate.Before(in.StartDate) {
		return fail(CodeInvalidDates, "start and end dates are required and must be ordered")
	}
	if in.PartialDay.IsHalf() && !SameDay(in.StartDate, in.EndDate) {
		return fail(CodeHalfDaySingleDay, "a half-day request must start and end on the same day")
	}

	emp, err := s.Store.Employee(ctx, in.EmployeeID)
	if err != nil {
		if IsNotFound(err) {
			return fail(CodeNotFound, "employee %s not found", in.EmployeeID)
		}
		return s.internal("load employee", err)
	}

	leaveType, err := s.Store.LeaveType(ctx, in.LeaveTypeID)
	if err != nil {
		if IsNotFound(err) {
			return fail(CodeNotFound, "leave type %s not found", in.LeaveTypeID)
		}
		return s.internal("load leave type", err)
	}

	if emp.EmploymentType == Casual && leaveType.Category.IsPaid() {
		return fail(CodePaidLeaveCasual, "casual employees are not entitled to paid %s leave", leaveType.Category)
	}

	start, end := Day(in.StartDate), Day(in.EndDate)

	open, err := s.Store.OpenRequests(ctx, emp.ID)
	if err != nil {
		return s.internal("load open requests", err)
	}
	for i := range open {
		if open[i].Overlaps(start, end) {
			return fail(CodeOverlappingLeave, "overlaps existing %s request %s", open[i].Status, open[i].ID)
		}
	}

	count, err := s.Workdays.ChargeableDays(ctx, emp.ID, start, end, in.PartialDay)
	if err != nil {
		return s.internal("compute chargeable days", err)
	}

	policy, err := s.Resolver.Resolve(ctx, emp, leaveType.Category)
	if err != nil {
		return s.internal("resolve policy", err)
	}
	allowNegative := policy != nil && policy.AllowNegativeBalance

	// Bring the accrual current before judging sufficiency, so a first request
	// before any scheduled sweep sees the hours the employee has earned.
	// Employees without a service start simply have nothing to accrue.
	if err := s.Ledger.Accrue(ctx, emp.ID, leaveType.Category, s.now()); err != nil && !errors.Is(err, ErrMissingServiceStart) {
		return s.internal("accrue balance", err)
	}

	balance, err := s.Ledger.GetOrCreate(ctx, emp.ID, leaveType.Category)
	if err != nil {
		return s.internal("load balance", err)
	}
	if !Sufficient(balance.Available, count.HoursDeducted, allowNegative) {
		return fail(CodeInsufficientBalance, "need %s hours, %s available",
			count.HoursDeducted.StringFixed(2), balance.Available.StringFixed(2))
	}

	now := s.now()
	req := &LeaveRequest{
		ID:          uuid.NewString(),
		EmployeeID:  emp.ID,
		LeaveTypeID: leaveType.ID,
		Category:    leaveType.Category,
		StartDate:   start,
		EndDate:     end,
		TotalDays:   count.ChargeableDays,
		HoursPerDay: count.HoursPerDay,
		PartialDay:  in.PartialDay,
		Status:      RequestPending,
		ManagerID:   emp.ManagerID,
		Reason:      in.Reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	approve := autoApprove || emp.ManagerID == ""

	err = s.Store.WithTx(ctx, func(tx Store) error {
		if approve {
			req.Status = RequestApproved
			req.ApprovedAt = &now
			req.ApprovedBy = actorID
			if err := s.Ledger.withStore(tx).Deduct(ctx, emp.ID, req.Category, req.HoursCharged()); err != nil {
				return err
			}
		}
		return tx.SaveRequest(ctx, req)
	})
	if err != nil {
		return s.internal("persist request", err)
	}

	if req.Status == RequestPending && emp.ManagerID != "" {
		s.notify(ctx, emp.ManagerID, "leave_request_pending",
			emp.Name+" requested leave awaiting your approval", "/leave/requests/"+req.ID)
	}
	s.audit(ctx, actorOrEmployee(actorID, emp.ID), AuditRequestCreated, req.ID,
		"leave request created for "+emp.ID)

	return ok(req)
}

// =============================================================================
// APPROVE / DECLINE / CANCEL
// =============================================================================

// Approve moves a pending request to approved and charges the balance with
// the request's frozen hours.
func (s *RequestService) Approve(ctx context.Context, requestID, approverID, comment string) *Result {
	req, err := s.Store.Request(ctx, requestID)
	if err != nil {
		if IsNotFound(err) {
			return fail(CodeNotFound, "request %s not found", requestID)
		}
		return s.internal("load request", err)
	}
	if req.Status.Finalized() {
		return fail(CodeAlreadyFinalised, "request is already %s", req.Status)
	}

	now := s.now()
	req.Status = RequestApproved
	req.ApprovedAt = &now
	req.ApprovedBy = approverID
	req.UpdatedAt = now

	err = s.Store.WithTx(ctx, func(tx Store) error {
		if err := s.Ledger.withStore(tx).Deduct(ctx, req.EmployeeID, req.Category, req.HoursCharged()); err != nil {
			return err
		}
		return tx.SaveRequest(ctx, req)
	})
	if err != nil {
		return s.internal("persist approval", err)
	}

	s.notify(ctx, req.EmployeeID, "leave_request_approved",
		"Your leave request was approved", "/leave/requests/"+req.ID)
	s.audit(ctx, approverID, AuditRequestApproved, req.ID, comment)

	return ok(req)
}

// Decline moves a pending request to declined. A non-empty reason is
// required. The balance is untouched: pending requests never consumed it.
func (s *RequestService) Decline(ctx context.Context, requestID, actorID, reason string) *Result {
	if reason == "" {
		return fail(CodeDeclineReasonRequired, "a decline reason is required")
	}

	req, err := s.Store.Request(ctx, requestID)
	if err != nil {
		if IsNotFound(err) {
			return fail(CodeNotFound, "request %s not found", requestID)
		}
		return s.internal("load request", err)
	}
	if req.Status.Finalized() {
		return fail(CodeAlreadyFinalised, "request is already %s", req.Status)
	}

	req.Status = RequestDeclined
	req.DeclineReason = reason
	req.UpdatedAt = s.now()

	if err := s.Store.SaveRequest(ctx, req); err != nil {
		return s.internal("persist decline", err)
	}

	s.notify(ctx, req.EmployeeID, "leave_request_declined",
		"Your leave request was declined: "+reason, "/leave/requests/"+req.ID)
	s.audit(ctx, actorID, AuditRequestDeclined, req.ID, reason)

	return ok(req)
}

// Cancel cancels a pending request outright, or recalls an approved request
// whose start date is today or later, restoring the charged hours. Declined
// and cancelled requests are terminal.
func (s *RequestService) Cancel(ctx context.Context, requestID, actorID string) *Result {
	req, err := s.Store.Request(ctx, requestID)
	if err != nil {
		if IsNotFound(err) {
			return fail(CodeNotFound, "request %s not found", requestID)
		}
		return s.internal("load request", err)
	}

	switch req.Status {
	case RequestDeclined, RequestCancelled:
		return fail(CodeAlreadyFinalised, "request is already %s", req.Status)
	case RequestApproved:
		if Day(req.StartDate).Before(Day(s.now())) {
			return fail(CodeAlreadyFinalised, "an approved request can only be recalled before it starts")
		}
	}

	wasApproved := req.Status == RequestApproved
	now := s.now()
	req.Status = RequestCancelled
	req.CancelledAt = &now
	req.UpdatedAt = now

	err = s.Store.WithTx(ctx, func(tx Store) error {
		if wasApproved {
			if err := s.Ledger.withStore(tx).Restore(ctx, req.EmployeeID, req.Category, req.HoursCharged()); err != nil {
				return err
			}
		}
		return tx.SaveRequest(ctx, req)
	})
	if err != nil {
		return s.internal("persist cancellation", err)
	}

	if req.ManagerID != "" {
		s.notify(ctx, req.ManagerID, "leave_request_cancelled",
			"A leave request you manage was cancelled", "/leave/requests/"+req.ID)
	}
	s.audit(ctx, actorID, AuditRequestCancelled, req.ID, "leave request cancelled")

	return ok(req)
}

// =============================================================================
// FIRE-AND-FORGET SIDE EFFECTS
// =============================================================================

func (s *RequestService) notify(ctx context.Context, userID, kind, message, link string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Notify(ctx, userID, kind, message, link); err != nil {
		log.Printf("[Leave] notification %s to %s failed: %v", kind, userID, err)
	}
}

func (s *RequestService) audit(ctx context.Context, actorID, eventType, entityID, description string) {
	if s.Audit == nil {
		return
	}
	entry := AuditEntry{
		ID:          uuid.NewString(),
		At:          time.Now().UTC(),
		ActorID:     actorID,
		EventType:   eventType,
		EntityID:    entityID,
		Description: description,
	}
	if err := s.Audit.Record(ctx, entry); err != nil {
		log.Printf("[Leave] audit %s for %s failed: %v", eventType, entityID, err)
	}
}

func (s *RequestService) internal(op string, err error) *Result {
	log.Printf("[Leave] %s failed: %v", op, err)
	return fail(CodeInternal, "internal error")
}

func (s *RequestService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return Today()
}

func actorOrEmployee(actorID, employeeID string) string {
	if actorID != "" {
		return actorID
	}
	return employeeID
}
