/*
errors.go - Centralized error types for the leave engine

PURPOSE:
  Sentinel errors for not-found and configuration failures, structured error
  types carrying context, and the Result envelope the orchestration layer
  returns instead of raw errors.

PROPAGATION POLICY:
  Business-rule failures (validation, insufficient balance, state conflicts)
  travel as Result values with a stable error code for user display. Storage
  failures are logged and surface as a generic failure. Notification and audit
  failures are swallowed entirely and never abort a balance mutation.

SEE ALSO:
  - request.go: builds Results from these codes
  - types.go: ClassifyCode returns the classification error types
*/
package leave

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEmployeeNotFound is returned by direct employee lookups.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrRequestNotFound is returned by direct request lookups.
	ErrRequestNotFound = errors.New("leave request not found")

	// ErrPolicyNotFound is returned by direct policy lookups.
	ErrPolicyNotFound = errors.New("leave policy not found")

	// ErrLeaveTypeNotFound is returned by direct leave-type lookups.
	ErrLeaveTypeNotFound = errors.New("leave type not found")

	// ErrAgreementNotFound is returned by direct agreement lookups.
	ErrAgreementNotFound = errors.New("employment agreement not found")

	// ErrMissingServiceStart marks an employee with no service start date.
	// Accrual against such a record is a configuration error, not a zero.
	ErrMissingServiceStart = errors.New("employee has no service start date")
)

// IsNotFound reports whether the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrRequestNotFound) ||
		errors.Is(err, ErrPolicyNotFound) ||
		errors.Is(err, ErrLeaveTypeNotFound) ||
		errors.Is(err, ErrAgreementNotFound)
}

// =============================================================================
// CLASSIFICATION ERRORS
// =============================================================================

// AmbiguousCodeError marks a leave-type code matching more than one category.
type AmbiguousCodeError struct {
	Code    string
	Matches []Category
}

func (e *AmbiguousCodeError) Error() string {
	parts := make([]string, len(e.Matches))
	for i, m := range e.Matches {
		parts[i] = string(m)
	}
	return fmt.Sprintf("leave code %q is ambiguous: matches %s", e.Code, strings.Join(parts, ", "))
}

// UnclassifiedCodeError marks a leave-type code matching no category.
type UnclassifiedCodeError struct {
	Code string
}

func (e *UnclassifiedCodeError) Error() string {
	return fmt.Sprintf("leave code %q matches no balance category", e.Code)
}

// =============================================================================
// RESULT ENVELOPE AND ERROR CODES
// =============================================================================

// ErrorCode is a stable machine-readable failure code for callers.
type ErrorCode string

const (
	// Validation failures.
	CodeHalfDaySingleDay      ErrorCode = "HALF_DAY_MUST_BE_SINGLE_DAY"
	CodePaidLeaveCasual       ErrorCode = "PAID_LEAVE_NOT_ALLOWED_FOR_CASUAL"
	CodeOverlappingLeave      ErrorCode = "OVERLAPPING_LEAVE"
	CodeInsufficientBalance   ErrorCode = "INSUFFICIENT_BALANCE"
	CodeDeclineReasonRequired ErrorCode = "DECLINE_REASON_REQUIRED"
	CodeInvalidDates          ErrorCode = "INVALID_DATES"

	// State conflicts.
	CodeAlreadyFinalised ErrorCode = "LEAVE_ALREADY_FINALISED"

	// Authorization.
	CodeNotAuthorized ErrorCode = "NOT_AUTHORIZED"

	// Converted not-found conditions.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// Storage and other non-recoverable failures, details logged server-side.
	CodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Result is the structured outcome of every request-lifecycle operation.
// Business failures populate Error and Message; they are not Go errors.
type Result struct {
	Success bool
	Error   ErrorCode
	Message string
	Request *LeaveRequest
}

func ok(req *LeaveRequest) *Result {
	return &Result{Success: true, Request: req}
}

func fail(code ErrorCode, format string, args ...any) *Result {
	return &Result{Success: false, Error: code, Message: fmt.Sprintf(format, args...)}
}

// Retryable reports whether the failure might succeed if retried by the
// caller. The engine itself never retries.
func (r *Result) Retryable() bool {
	return !r.Success && r.Error == CodeInternal
}
