/*
store.go - Persistence and collaborator interfaces

PURPOSE:
  Defines the narrow interfaces between the engine and the rest of the
  system. The engine reads directory records and holidays, and owns balances,
  requests, policies and leave types. Notifications and audit records are
  fire-and-forget: a failure there never aborts a leave mutation.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite store (all interfaces)
  - leave/store: in-memory store for tests and demos

SEE ALSO:
  - request.go: uses TxStore to keep the request write and the balance
    deduction inside a single transaction
*/
package leave

import (
	"context"
	"time"
)

// =============================================================================
// DIRECTORY - Read-only employee and agreement records
// =============================================================================

// Directory reads employee and agreement records. The engine never writes
// them; direct id lookups return a not-found sentinel when absent.
type Directory interface {
	Employee(ctx context.Context, id string) (*Employee, error)
	Agreement(ctx context.Context, id string) (*Agreement, error)
	ActiveEmployees(ctx context.Context) ([]Employee, error)
}

// HolidayProvider resolves public holidays for a legal entity. Holidays with
// an empty entity id apply to every entity.
type HolidayProvider interface {
	HolidaysInRange(ctx context.Context, entityID string, from, to time.Time) ([]Holiday, error)
}

// =============================================================================
// ENGINE-OWNED STORES
// =============================================================================

// PolicyStore reads policy and leave-type configuration.
type PolicyStore interface {
	Policy(ctx context.Context, id string) (*LeavePolicy, error)
	ActivePolicies(ctx context.Context) ([]LeavePolicy, error)
	LeaveType(ctx context.Context, id string) (*LeaveType, error)
}

// BalanceStore persists balance rows. Balance returns (nil, nil) when no row
// exists; rows are created lazily through the ledger's GetOrCreate.
type BalanceStore interface {
	Balance(ctx context.Context, employeeID string, category Category) (*Balance, error)
	BalancesByEmployee(ctx context.Context, employeeID string) ([]Balance, error)
	SaveBalance(ctx context.Context, b *Balance) error
}

// RequestStore persists leave requests.
type RequestStore interface {
	Request(ctx context.Context, id string) (*LeaveRequest, error)
	SaveRequest(ctx context.Context, r *LeaveRequest) error

	// OpenRequests returns the employee's pending and approved requests,
	// the set that participates in overlap checks.
	OpenRequests(ctx context.Context, employeeID string) ([]LeaveRequest, error)
}

// Store aggregates everything the engine needs from persistence.
type Store interface {
	Directory
	HolidayProvider
	PolicyStore
	BalanceStore
	RequestStore
}

// TxStore wraps Store with transaction support. The request state machine
// uses it so that persisting a request and mutating the balance either both
// happen or neither does.
type TxStore interface {
	Store

	// WithTx executes fn against a transactional view of the store. If fn
	// returns an error the transaction rolls back.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// FIRE-AND-FORGET COLLABORATORS
// =============================================================================

// Notifier delivers a user-facing notification. Errors are logged by callers
// and otherwise ignored.
type Notifier interface {
	Notify(ctx context.Context, userID, kind, message, link string) error
}

// AuditEntry records who did what to which record.
type AuditEntry struct {
	ID          string
	At          time.Time
	ActorID     string
	EventType   string
	EntityID    string
	Description string
}

const (
	AuditRequestCreated   = "leave_request_created"
	AuditRequestApproved  = "leave_request_approved"
	AuditRequestDeclined  = "leave_request_declined"
	AuditRequestCancelled = "leave_request_cancelled"
	AuditBalanceAdjusted  = "leave_balance_adjusted"
)

// AuditLog stores audit entries, append-only. Errors are logged by callers
// and otherwise ignored.
type AuditLog interface {
	Record(ctx context.Context, entry AuditEntry) error
}
