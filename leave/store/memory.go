// Package store provides an in-memory leave.TxStore for tests and demos.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fairwork/leave-engine/leave"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type balanceKey struct {
	EmployeeID string
	Category   leave.Category
}

type Memory struct {
	mu         sync.RWMutex
	employees  map[string]leave.Employee
	agreements map[string]leave.Agreement
	policies   map[string]leave.LeavePolicy
	leaveTypes map[string]leave.LeaveType
	balances   map[balanceKey]leave.Balance
	requests   map[string]leave.LeaveRequest
	holidays   []leave.Holiday

	// Recorded side effects, exposed for test assertions.
	Notifications []Notification
	AuditEntries  []leave.AuditEntry
}

// Notification is one recorded Notify call.
type Notification struct {
	UserID  string
	Kind    string
	Message string
	Link    string
}

func NewMemory() *Memory {
	return &Memory{
		employees:  make(map[string]leave.Employee),
		agreements: make(map[string]leave.Agreement),
		policies:   make(map[string]leave.LeavePolicy),
		leaveTypes: make(map[string]leave.LeaveType),
		balances:   make(map[balanceKey]leave.Balance),
		requests:   make(map[string]leave.LeaveRequest),
	}
}

// -----------------------------------------------------------------------------
// Seeding (tests and demos write directory/config records directly)
// -----------------------------------------------------------------------------

func (m *Memory) PutEmployee(e leave.Employee) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[e.ID] = e
}

func (m *Memory) PutAgreement(a leave.Agreement) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agreements[a.ID] = a
}

func (m *Memory) PutPolicy(p leave.LeavePolicy) {
	p.Normalize()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policies[p.ID] = p
}

func (m *Memory) PutLeaveType(lt leave.LeaveType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaveTypes[lt.ID] = lt
}

func (m *Memory) PutHoliday(h leave.Holiday) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holidays = append(m.holidays, h)
}

// -----------------------------------------------------------------------------
// Directory
// -----------------------------------------------------------------------------

func (m *Memory) Employee(_ context.Context, id string) (*leave.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.employeeLocked(id)
}

func (m *Memory) employeeLocked(id string) (*leave.Employee, error) {
	e, ok := m.employees[id]
	if !ok {
		return nil, leave.ErrEmployeeNotFound
	}
	return &e, nil
}

func (m *Memory) Agreement(_ context.Context, id string) (*leave.Agreement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.agreementLocked(id)
}

func (m *Memory) agreementLocked(id string) (*leave.Agreement, error) {
	a, ok := m.agreements[id]
	if !ok {
		return nil, leave.ErrAgreementNotFound
	}
	return &a, nil
}

func (m *Memory) ActiveEmployees(_ context.Context) ([]leave.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeEmployeesLocked()
}

func (m *Memory) activeEmployeesLocked() ([]leave.Employee, error) {
	var result []leave.Employee
	for _, e := range m.employees {
		if e.Status == leave.StatusActive || e.Status == leave.StatusOnboarding {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// -----------------------------------------------------------------------------
// Holidays
// -----------------------------------------------------------------------------

func (m *Memory) HolidaysInRange(_ context.Context, entityID string, from, to time.Time) ([]leave.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.holidaysLocked(entityID, from, to)
}

func (m *Memory) holidaysLocked(entityID string, from, to time.Time) ([]leave.Holiday, error) {
	var result []leave.Holiday
	for _, h := range m.holidays {
		if h.EntityID != "" && h.EntityID != entityID {
			continue
		}
		if h.Date.Before(from) || h.Date.After(to) {
			continue
		}
		result = append(result, h)
	}
	return result, nil
}

// -----------------------------------------------------------------------------
// Policies and leave types
// -----------------------------------------------------------------------------

func (m *Memory) Policy(_ context.Context, id string) (*leave.LeavePolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.policyLocked(id)
}

func (m *Memory) policyLocked(id string) (*leave.LeavePolicy, error) {
	p, ok := m.policies[id]
	if !ok {
		return nil, leave.ErrPolicyNotFound
	}
	return &p, nil
}

func (m *Memory) ActivePolicies(_ context.Context) ([]leave.LeavePolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activePoliciesLocked()
}

func (m *Memory) activePoliciesLocked() ([]leave.LeavePolicy, error) {
	var result []leave.LeavePolicy
	for _, p := range m.policies {
		if p.IsActive {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) LeaveType(_ context.Context, id string) (*leave.LeaveType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.leaveTypeLocked(id)
}

func (m *Memory) leaveTypeLocked(id string) (*leave.LeaveType, error) {
	lt, ok := m.leaveTypes[id]
	if !ok {
		return nil, leave.ErrLeaveTypeNotFound
	}
	return &lt, nil
}

// -----------------------------------------------------------------------------
// Balances
// -----------------------------------------------------------------------------

func (m *Memory) Balance(_ context.Context, employeeID string, category leave.Category) (*leave.Balance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balanceLocked(employeeID, category)
}

func (m *Memory) balanceLocked(employeeID string, category leave.Category) (*leave.Balance, error) {
	b, ok := m.balances[balanceKey{EmployeeID: employeeID, Category: category}]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (m *Memory) BalancesByEmployee(_ context.Context, employeeID string) ([]leave.Balance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balancesByEmployeeLocked(employeeID)
}

func (m *Memory) balancesByEmployeeLocked(employeeID string) ([]leave.Balance, error) {
	var result []leave.Balance
	for _, cat := range leave.Categories() {
		if b, ok := m.balances[balanceKey{EmployeeID: employeeID, Category: cat}]; ok {
			result = append(result, b)
		}
	}
	return result, nil
}

func (m *Memory) SaveBalance(_ context.Context, b *leave.Balance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveBalanceLocked(b)
}

func (m *Memory) saveBalanceLocked(b *leave.Balance) error {
	m.balances[balanceKey{EmployeeID: b.EmployeeID, Category: b.Category}] = *b
	return nil
}

// -----------------------------------------------------------------------------
// Requests
// -----------------------------------------------------------------------------

func (m *Memory) Request(_ context.Context, id string) (*leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestLocked(id)
}

func (m *Memory) requestLocked(id string) (*leave.LeaveRequest, error) {
	r, ok := m.requests[id]
	if !ok {
		return nil, leave.ErrRequestNotFound
	}
	return &r, nil
}

func (m *Memory) SaveRequest(_ context.Context, r *leave.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveRequestLocked(r)
}

func (m *Memory) saveRequestLocked(r *leave.LeaveRequest) error {
	m.requests[r.ID] = *r
	return nil
}

func (m *Memory) OpenRequests(_ context.Context, employeeID string) ([]leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.openRequestsLocked(employeeID)
}

func (m *Memory) openRequestsLocked(employeeID string) ([]leave.LeaveRequest, error) {
	var result []leave.LeaveRequest
	for _, r := range m.requests {
		if r.EmployeeID != employeeID {
			continue
		}
		if r.Status == leave.RequestPending || r.Status == leave.RequestApproved {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// -----------------------------------------------------------------------------
// Fire-and-forget collaborators
// -----------------------------------------------------------------------------

func (m *Memory) Notify(_ context.Context, userID, kind, message, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Notifications = append(m.Notifications, Notification{
		UserID: userID, Kind: kind, Message: message, Link: link,
	})
	return nil
}

func (m *Memory) Record(_ context.Context, entry leave.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AuditEntries = append(m.AuditEntries, entry)
	return nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// WithTx executes fn against a transactional view of the store. For the memory
// store this is simulated with a snapshot that is restored on error.
func (m *Memory) WithTx(_ context.Context, fn func(leave.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshotLocked()

	if err := fn(&txMemoryView{parent: m}); err != nil {
		m.restoreLocked(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	balances map[balanceKey]leave.Balance
	requests map[string]leave.LeaveRequest
}

func (m *Memory) snapshotLocked() memorySnapshot {
	balCopy := make(map[balanceKey]leave.Balance, len(m.balances))
	for k, v := range m.balances {
		balCopy[k] = v
	}
	reqCopy := make(map[string]leave.LeaveRequest, len(m.requests))
	for k, v := range m.requests {
		reqCopy[k] = v
	}
	return memorySnapshot{balances: balCopy, requests: reqCopy}
}

func (m *Memory) restoreLocked(s memorySnapshot) {
	m.balances = s.balances
	m.requests = s.requests
}

// txMemoryView routes every call to the parent's locked variants. It only
// exists while the parent's write lock is held.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) Employee(_ context.Context, id string) (*leave.Employee, error) {
	return tv.parent.employeeLocked(id)
}

func (tv *txMemoryView) Agreement(_ context.Context, id string) (*leave.Agreement, error) {
	return tv.parent.agreementLocked(id)
}

func (tv *txMemoryView) ActiveEmployees(_ context.Context) ([]leave.Employee, error) {
	return tv.parent.activeEmployeesLocked()
}

func (tv *txMemoryView) HolidaysInRange(_ context.Context, entityID string, from, to time.Time) ([]leave.Holiday, error) {
	return tv.parent.holidaysLocked(entityID, from, to)
}

func (tv *txMemoryView) Policy(_ context.Context, id string) (*leave.LeavePolicy, error) {
	return tv.parent.policyLocked(id)
}

func (tv *txMemoryView) ActivePolicies(_ context.Context) ([]leave.LeavePolicy, error) {
	return tv.parent.activePoliciesLocked()
}

func (tv *txMemoryView) LeaveType(_ context.Context, id string) (*leave.LeaveType, error) {
	return tv.parent.leaveTypeLocked(id)
}

func (tv *txMemoryView) Balance(_ context.Context, employeeID string, category leave.Category) (*leave.Balance, error) {
	return tv.parent.balanceLocked(employeeID, category)
}

func (tv *txMemoryView) BalancesByEmployee(_ context.Context, employeeID string) ([]leave.Balance, error) {
	return tv.parent.balancesByEmployeeLocked(employeeID)
}

func (tv *txMemoryView) SaveBalance(_ context.Context, b *leave.Balance) error {
	return tv.parent.saveBalanceLocked(b)
}

func (tv *txMemoryView) Request(_ context.Context, id string) (*leave.LeaveRequest, error) {
	return tv.parent.requestLocked(id)
}

func (tv *txMemoryView) SaveRequest(_ context.Context, r *leave.LeaveRequest) error {
	return tv.parent.saveRequestLocked(r)
}

func (tv *txMemoryView) OpenRequests(_ context.Context, employeeID string) ([]leave.LeaveRequest, error) {
	return tv.parent.openRequestsLocked(employeeID)
}
