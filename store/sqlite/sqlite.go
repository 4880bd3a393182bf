/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements leave.TxStore and leave.AuditLog using SQLite, plus the write
  methods the HTTP admin surface needs (employees, agreements, policies, leave
  types, holidays). In production the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

KEY TABLES:
  employees:       Directory records, written by admin endpoints only
  agreements:      Employment agreements with per-category default policies
  leave_types:     Coded leave types with their resolved category
  leave_policies:  Accrual rule configuration
  leave_balances:  One row per employee per category (the ledger)
  leave_requests:  Request lifecycle records with frozen day counts
  holidays:        Public holidays per legal entity ('' = everywhere)
  audit_log:       Append-only record of balance-affecting actions

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. WithTx holds the write lock for the
  whole transaction; the transactional view routes every call through the
  *sql.Tx with no additional locking.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency.

DECIMALS AND DATES:
  Hour quantities are stored as decimal strings, never floats. Dates
  (request ranges, holidays, accrual watermarks) are stored as YYYY-MM-DD;
  timestamps as RFC3339.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper migration
  tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - leave/store.go: Interface definitions
  - leave/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/fairwork/leave-engine/leave"
)

// Store implements leave.TxStore and leave.AuditLog using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// dbtx is the subset of *sql.DB and *sql.Tx the query helpers need.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Employees (directory records)
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		entity_id TEXT NOT NULL DEFAULT '',
		manager_id TEXT NOT NULL DEFAULT '',
		agreement_id TEXT NOT NULL DEFAULT '',
		employment_type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		hours_per_week REAL NOT NULL DEFAULT 0,
		service_start TEXT,
		terminated_at TEXT,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		policy_overrides_json TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_status
		ON employees(status);
	CREATE INDEX IF NOT EXISTS idx_employees_manager
		ON employees(manager_id);

	-- Employment agreements
	CREATE TABLE IF NOT EXISTS agreements (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		default_policies_json TEXT,
		created_at TEXT NOT NULL
	);

	-- Leave types (category resolved at load time, never at request time)
	CREATE TABLE IF NOT EXISTS leave_types (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_leave_types_code
		ON leave_types(code);

	-- Leave policies (accrual configuration)
	CREATE TABLE IF NOT EXISTS leave_policies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		employment_scope TEXT NOT NULL DEFAULT 'any',
		country_code TEXT NOT NULL DEFAULT '',
		accrual_unit TEXT NOT NULL,
		accrual_rate REAL NOT NULL DEFAULT 0,
		standard_hours_per_day REAL NOT NULL DEFAULT 7.6,
		hours_per_week_reference REAL NOT NULL DEFAULT 38,
		is_default BOOLEAN NOT NULL DEFAULT FALSE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		min_service_years REAL NOT NULL DEFAULT 0,
		rate_after_threshold REAL NOT NULL DEFAULT 0,
		allow_negative BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_policies_category_active
		ON leave_policies(category, is_active);

	-- Balances (one row per employee per category, hours as decimal strings)
	CREATE TABLE IF NOT EXISTS leave_balances (
		employee_id TEXT NOT NULL,
		category TEXT NOT NULL,
		policy_id TEXT NOT NULL DEFAULT '',
		opening TEXT NOT NULL DEFAULT '0',
		accrued TEXT NOT NULL DEFAULT '0',
		adjusted TEXT NOT NULL DEFAULT '0',
		taken TEXT NOT NULL DEFAULT '0',
		available TEXT NOT NULL DEFAULT '0',
		last_accrual TEXT,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, category)
	);

	-- Leave requests (frozen day counts, lifecycle status)
	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		leave_type_id TEXT NOT NULL,
		category TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		total_days TEXT NOT NULL,
		hours_per_day TEXT NOT NULL,
		partial_day TEXT NOT NULL DEFAULT 'full',
		status TEXT NOT NULL DEFAULT 'pending',
		manager_id TEXT NOT NULL DEFAULT '',
		reason TEXT,
		decline_reason TEXT,
		approved_by TEXT NOT NULL DEFAULT '',
		approved_at TEXT,
		cancelled_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_requests_employee
		ON leave_requests(employee_id);
	CREATE INDEX IF NOT EXISTS idx_requests_status
		ON leave_requests(status);
	CREATE INDEX IF NOT EXISTS idx_requests_employee_status
		ON leave_requests(employee_id, status);

	-- Public holidays ('' entity = observed everywhere)
	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		entity_id TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_entity_date
		ON holidays(entity_id, date);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_unique
		ON holidays(entity_id, date, name);

	-- Audit log (append-only)
	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		at TEXT NOT NULL,
		actor_id TEXT NOT NULL DEFAULT '',
		event_type TEXT NOT NULL,
		entity_id TEXT NOT NULL DEFAULT '',
		description TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_event
		ON audit_log(event_type);
	CREATE INDEX IF NOT EXISTS idx_audit_entity
		ON audit_log(entity_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// DIRECTORY
// =============================================================================

const employeeColumns = `id, name, entity_id, manager_id, agreement_id, employment_type,
	status, hours_per_week, service_start, terminated_at, is_admin, policy_overrides_json`

// Employee retrieves an employee by ID.
func (s *Store) Employee(ctx context.Context, id string) (*leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getEmployee(ctx, s.db, id)
}

func getEmployee(ctx context.Context, q dbtx, id string) (*leave.Employee, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+employeeColumns+" FROM employees WHERE id = ?", id)
	emp, err := scanEmployee(row.Scan)
	if err == sql.ErrNoRows {
		return nil, leave.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load employee: %w", err)
	}
	return emp, nil
}

func scanEmployee(scan func(...any) error) (*leave.Employee, error) {
	var (
		emp           leave.Employee
		serviceStart  sql.NullString
		terminatedAt  sql.NullString
		overridesJSON sql.NullString
	)

	err := scan(
		&emp.ID, &emp.Name, &emp.EntityID, &emp.ManagerID, &emp.AgreementID,
		&emp.EmploymentType, &emp.Status, &emp.HoursPerWeek,
		&serviceStart, &terminatedAt, &emp.IsAdmin, &overridesJSON,
	)
	if err != nil {
		return nil, err
	}

	emp.ServiceStart = parseDate(serviceStart.String)
	if terminatedAt.Valid && terminatedAt.String != "" {
		t := parseDate(terminatedAt.String)
		emp.TerminatedAt = &t
	}
	if overridesJSON.Valid && overridesJSON.String != "" {
		json.Unmarshal([]byte(overridesJSON.String), &emp.PolicyOverrides)
	}
	return &emp, nil
}

// ActiveEmployees returns employees eligible for accrual, ordered by id.
func (s *Store) ActiveEmployees(ctx context.Context) ([]leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return activeEmployees(ctx, s.db)
}

func activeEmployees(ctx context.Context, q dbtx) ([]leave.Employee, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+employeeColumns+" FROM employees WHERE status IN ('active', 'onboarding') ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []leave.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows.Scan)
		if err != nil {
			return nil, err
		}
		employees = append(employees, *emp)
	}
	return employees, rows.Err()
}

// ListEmployees returns every employee regardless of status.
func (s *Store) ListEmployees(ctx context.Context) ([]leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+employeeColumns+" FROM employees ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []leave.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows.Scan)
		if err != nil {
			return nil, err
		}
		employees = append(employees, *emp)
	}
	return employees, rows.Err()
}

// SaveEmployee upserts an employee record.
func (s *Store) SaveEmployee(ctx context.Context, emp *leave.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var overridesJSON any
	if len(emp.PolicyOverrides) > 0 {
		b, _ := json.Marshal(emp.PolicyOverrides)
		overridesJSON = string(b)
	}

	var terminatedAt any
	if emp.TerminatedAt != nil {
		terminatedAt = fmtDate(*emp.TerminatedAt)
	}

	query := `
		INSERT INTO employees
		(id, name, entity_id, manager_id, agreement_id, employment_type, status,
		 hours_per_week, service_start, terminated_at, is_admin, policy_overrides_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			entity_id = excluded.entity_id,
			manager_id = excluded.manager_id,
			agreement_id = excluded.agreement_id,
			employment_type = excluded.employment_type,
			status = excluded.status,
			hours_per_week = excluded.hours_per_week,
			service_start = excluded.service_start,
			terminated_at = excluded.terminated_at,
			is_admin = excluded.is_admin,
			policy_overrides_json = excluded.policy_overrides_json
	`

	_, err := s.db.ExecContext(ctx, query,
		emp.ID, emp.Name, emp.EntityID, emp.ManagerID, emp.AgreementID,
		emp.EmploymentType, emp.Status, emp.HoursPerWeek,
		fmtDate(emp.ServiceStart), terminatedAt, emp.IsAdmin, overridesJSON,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// Agreement retrieves an agreement by ID.
func (s *Store) Agreement(ctx context.Context, id string) (*leave.Agreement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getAgreement(ctx, s.db, id)
}

func getAgreement(ctx context.Context, q dbtx, id string) (*leave.Agreement, error) {
	var (
		a        leave.Agreement
		defaults sql.NullString
	)

	err := q.QueryRowContext(ctx,
		"SELECT id, name, default_policies_json FROM agreements WHERE id = ?", id,
	).Scan(&a.ID, &a.Name, &defaults)

	if err == sql.ErrNoRows {
		return nil, leave.ErrAgreementNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load agreement: %w", err)
	}

	if defaults.Valid && defaults.String != "" {
		json.Unmarshal([]byte(defaults.String), &a.DefaultPolicyIDs)
	}
	return &a, nil
}

// SaveAgreement upserts an agreement.
func (s *Store) SaveAgreement(ctx context.Context, a *leave.Agreement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var defaults any
	if len(a.DefaultPolicyIDs) > 0 {
		b, _ := json.Marshal(a.DefaultPolicyIDs)
		defaults = string(b)
	}

	query := `
		INSERT INTO agreements (id, name, default_policies_json, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			default_policies_json = excluded.default_policies_json
	`

	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.Name, defaults, time.Now().UTC().Format(time.RFC3339))
	return err
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// HolidaysInRange returns holidays for an entity within [from, to] inclusive,
// including global holidays stored with an empty entity id.
func (s *Store) HolidaysInRange(ctx context.Context, entityID string, from, to time.Time) ([]leave.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return holidaysInRange(ctx, s.db, entityID, from, to)
}

func holidaysInRange(ctx context.Context, q dbtx, entityID string, from, to time.Time) ([]leave.Holiday, error) {
	query := `
		SELECT id, entity_id, date, name
		FROM holidays
		WHERE (entity_id = ? OR entity_id = '')
		  AND date >= ? AND date <= ?
		ORDER BY date ASC
	`

	rows, err := q.QueryContext(ctx, query, entityID, fmtDate(from), fmtDate(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var holidays []leave.Holiday
	for rows.Next() {
		var h leave.Holiday
		var dateStr string
		if err := rows.Scan(&h.ID, &h.EntityID, &dateStr, &h.Name); err != nil {
			return nil, err
		}
		h.Date = parseDate(dateStr)
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// SaveHoliday upserts a holiday.
func (s *Store) SaveHoliday(ctx context.Context, h *leave.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO holidays (id, entity_id, date, name, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(entity_id, date, name) DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query,
		h.ID, h.EntityID, fmtDate(h.Date), h.Name,
		time.Now().UTC().Format(time.RFC3339))
	return err
}

// DeleteHoliday deletes a holiday by ID.
func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ?", id)
	return err
}

// ListHolidays returns all holidays visible to an entity.
func (s *Store) ListHolidays(ctx context.Context, entityID string) ([]leave.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, entity_id, date, name
		FROM holidays
		WHERE entity_id = ? OR entity_id = ''
		ORDER BY date ASC
	`

	rows, err := s.db.QueryContext(ctx, query, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []leave.Holiday
	for rows.Next() {
		var h leave.Holiday
		var dateStr string
		if err := rows.Scan(&h.ID, &h.EntityID, &dateStr, &h.Name); err != nil {
			return nil, err
		}
		h.Date = parseDate(dateStr)
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// =============================================================================
// POLICIES AND LEAVE TYPES
// =============================================================================

const policyColumns = `id, name, category, employment_scope, country_code, accrual_unit,
	accrual_rate, standard_hours_per_day, hours_per_week_reference,
	is_default, is_active, min_service_years, rate_after_threshold, allow_negative`

// Policy retrieves a policy by ID.
func (s *Store) Policy(ctx context.Context, id string) (*leave.LeavePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getPolicy(ctx, s.db, id)
}

func getPolicy(ctx context.Context, q dbtx, id string) (*leave.LeavePolicy, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+policyColumns+" FROM leave_policies WHERE id = ?", id)
	p, err := scanPolicy(row.Scan)
	if err == sql.ErrNoRows {
		return nil, leave.ErrPolicyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load policy: %w", err)
	}
	return p, nil
}

func scanPolicy(scan func(...any) error) (*leave.LeavePolicy, error) {
	var p leave.LeavePolicy
	err := scan(
		&p.ID, &p.Name, &p.Category, &p.EmploymentScope, &p.CountryCode,
		&p.AccrualUnit, &p.AccrualRate, &p.StandardHoursPerDay, &p.HoursPerWeekReference,
		&p.IsDefault, &p.IsActive, &p.MinServiceYears, &p.RateAfterThreshold,
		&p.AllowNegativeBalance,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ActivePolicies returns all active policies, ordered by id.
func (s *Store) ActivePolicies(ctx context.Context) ([]leave.LeavePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return activePolicies(ctx, s.db)
}

func activePolicies(ctx context.Context, q dbtx) ([]leave.LeavePolicy, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+policyColumns+" FROM leave_policies WHERE is_active = TRUE ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query policies: %w", err)
	}
	defer rows.Close()

	var policies []leave.LeavePolicy
	for rows.Next() {
		p, err := scanPolicy(rows.Scan)
		if err != nil {
			return nil, err
		}
		policies = append(policies, *p)
	}
	return policies, rows.Err()
}

// ListPolicies returns every policy including inactive ones.
func (s *Store) ListPolicies(ctx context.Context) ([]leave.LeavePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+policyColumns+" FROM leave_policies ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []leave.LeavePolicy
	for rows.Next() {
		p, err := scanPolicy(rows.Scan)
		if err != nil {
			return nil, err
		}
		policies = append(policies, *p)
	}
	return policies, rows.Err()
}

// SavePolicy upserts a policy.
func (s *Store) SavePolicy(ctx context.Context, p *leave.LeavePolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.Normalize()

	query := `
		INSERT INTO leave_policies
		(id, name, category, employment_scope, country_code, accrual_unit,
		 accrual_rate, standard_hours_per_day, hours_per_week_reference,
		 is_default, is_active, min_service_years, rate_after_threshold,
		 allow_negative, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			employment_scope = excluded.employment_scope,
			country_code = excluded.country_code,
			accrual_unit = excluded.accrual_unit,
			accrual_rate = excluded.accrual_rate,
			standard_hours_per_day = excluded.standard_hours_per_day,
			hours_per_week_reference = excluded.hours_per_week_reference,
			is_default = excluded.is_default,
			is_active = excluded.is_active,
			min_service_years = excluded.min_service_years,
			rate_after_threshold = excluded.rate_after_threshold,
			allow_negative = excluded.allow_negative,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Category, p.EmploymentScope, p.CountryCode, p.AccrualUnit,
		p.AccrualRate, p.StandardHoursPerDay, p.HoursPerWeekReference,
		p.IsDefault, p.IsActive, p.MinServiceYears, p.RateAfterThreshold,
		p.AllowNegativeBalance, now, now,
	)
	return err
}

// LeaveType retrieves a leave type by ID.
func (s *Store) LeaveType(ctx context.Context, id string) (*leave.LeaveType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getLeaveType(ctx, s.db, id)
}

func getLeaveType(ctx context.Context, q dbtx, id string) (*leave.LeaveType, error) {
	var lt leave.LeaveType
	err := q.QueryRowContext(ctx,
		"SELECT id, code, name, category FROM leave_types WHERE id = ?", id,
	).Scan(&lt.ID, &lt.Code, &lt.Name, &lt.Category)

	if err == sql.ErrNoRows {
		return nil, leave.ErrLeaveTypeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load leave type: %w", err)
	}
	return &lt, nil
}

// ListLeaveTypes returns all leave types ordered by code.
func (s *Store) ListLeaveTypes(ctx context.Context) ([]leave.LeaveType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, code, name, category FROM leave_types ORDER BY code")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []leave.LeaveType
	for rows.Next() {
		var lt leave.LeaveType
		if err := rows.Scan(&lt.ID, &lt.Code, &lt.Name, &lt.Category); err != nil {
			return nil, err
		}
		types = append(types, lt)
	}
	return types, rows.Err()
}

// SaveLeaveType upserts a leave type.
func (s *Store) SaveLeaveType(ctx context.Context, lt *leave.LeaveType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO leave_types (id, code, name, category, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			code = excluded.code,
			name = excluded.name,
			category = excluded.category
	`

	_, err := s.db.ExecContext(ctx, query,
		lt.ID, lt.Code, lt.Name, lt.Category,
		time.Now().UTC().Format(time.RFC3339))
	return err
}

// =============================================================================
// BALANCES
// =============================================================================

const balanceColumns = `employee_id, category, policy_id, opening, accrued, adjusted,
	taken, available, last_accrual, updated_at`

// Balance retrieves the balance row for one employee and category.
// Returns (nil, nil) when no row exists; rows are created lazily.
func (s *Store) Balance(ctx context.Context, employeeID string, category leave.Category) (*leave.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getBalance(ctx, s.db, employeeID, category)
}

func getBalance(ctx context.Context, q dbtx, employeeID string, category leave.Category) (*leave.Balance, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+balanceColumns+" FROM leave_balances WHERE employee_id = ? AND category = ?",
		employeeID, category)
	b, err := scanBalance(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load balance: %w", err)
	}
	return b, nil
}

func scanBalance(scan func(...any) error) (*leave.Balance, error) {
	var (
		b                                            leave.Balance
		opening, accrued, adjusted, taken, available string
		lastAccrual                                  sql.NullString
		updatedAt                                    string
	)

	err := scan(
		&b.EmployeeID, &b.Category, &b.PolicyID,
		&opening, &accrued, &adjusted, &taken, &available,
		&lastAccrual, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.Opening = parseDecimal(opening)
	b.Accrued = parseDecimal(accrued)
	b.Adjusted = parseDecimal(adjusted)
	b.Taken = parseDecimal(taken)
	b.Available = parseDecimal(available)
	b.LastAccrual = parseDate(lastAccrual.String)
	b.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &b, nil
}

// BalancesByEmployee returns all balance rows for an employee.
func (s *Store) BalancesByEmployee(ctx context.Context, employeeID string) ([]leave.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return balancesByEmployee(ctx, s.db, employeeID)
}

func balancesByEmployee(ctx context.Context, q dbtx, employeeID string) ([]leave.Balance, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+balanceColumns+" FROM leave_balances WHERE employee_id = ? ORDER BY category",
		employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query balances: %w", err)
	}
	defer rows.Close()

	var balances []leave.Balance
	for rows.Next() {
		b, err := scanBalance(rows.Scan)
		if err != nil {
			return nil, err
		}
		balances = append(balances, *b)
	}
	return balances, rows.Err()
}

// SaveBalance upserts a balance row.
func (s *Store) SaveBalance(ctx context.Context, b *leave.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveBalance(ctx, s.db, b)
}

func saveBalance(ctx context.Context, q dbtx, b *leave.Balance) error {
	query := `
		INSERT INTO leave_balances
		(employee_id, category, policy_id, opening, accrued, adjusted, taken,
		 available, last_accrual, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, category) DO UPDATE SET
			policy_id = excluded.policy_id,
			opening = excluded.opening,
			accrued = excluded.accrued,
			adjusted = excluded.adjusted,
			taken = excluded.taken,
			available = excluded.available,
			last_accrual = excluded.last_accrual,
			updated_at = excluded.updated_at
	`

	_, err := q.ExecContext(ctx, query,
		b.EmployeeID, b.Category, b.PolicyID,
		b.Opening.String(), b.Accrued.String(), b.Adjusted.String(),
		b.Taken.String(), b.Available.String(),
		fmtDate(b.LastAccrual),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save balance: %w", err)
	}
	return nil
}

// =============================================================================
// REQUESTS
// =============================================================================

const requestColumns = `id, employee_id, leave_type_id, category, start_date, end_date,
	total_days, hours_per_day, partial_day, status, manager_id, reason,
	decline_reason, approved_by, approved_at, cancelled_at, created_at, updated_at`

// Request retrieves a request by ID.
func (s *Store) Request(ctx context.Context, id string) (*leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getRequest(ctx, s.db, id)
}

func getRequest(ctx context.Context, q dbtx, id string) (*leave.LeaveRequest, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+requestColumns+" FROM leave_requests WHERE id = ?", id)
	r, err := scanRequest(row.Scan)
	if err == sql.ErrNoRows {
		return nil, leave.ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load request: %w", err)
	}
	return r, nil
}

func scanRequest(scan func(...any) error) (*leave.LeaveRequest, error) {
	var (
		r                       leave.LeaveRequest
		startDate, endDate      string
		totalDays, hoursPerDay  string
		reason, declineReason   sql.NullString
		approvedAt, cancelledAt sql.NullString
		createdAt, updatedAt    string
	)

	err := scan(
		&r.ID, &r.EmployeeID, &r.LeaveTypeID, &r.Category,
		&startDate, &endDate, &totalDays, &hoursPerDay,
		&r.PartialDay, &r.Status, &r.ManagerID, &reason,
		&declineReason, &r.ApprovedBy, &approvedAt, &cancelledAt,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.StartDate = parseDate(startDate)
	r.EndDate = parseDate(endDate)
	r.TotalDays = parseDecimal(totalDays)
	r.HoursPerDay = parseDecimal(hoursPerDay)
	r.Reason = reason.String
	r.DeclineReason = declineReason.String
	if approvedAt.Valid && approvedAt.String != "" {
		t, _ := time.Parse(time.RFC3339, approvedAt.String)
		r.ApprovedAt = &t
	}
	if cancelledAt.Valid && cancelledAt.String != "" {
		t, _ := time.Parse(time.RFC3339, cancelledAt.String)
		r.CancelledAt = &t
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &r, nil
}

// SaveRequest upserts a request. Frozen fields are written on every save; the
// caller never mutates them after creation.
func (s *Store) SaveRequest(ctx context.Context, r *leave.LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveRequest(ctx, s.db, r)
}

func saveRequest(ctx context.Context, q dbtx, r *leave.LeaveRequest) error {
	var approvedAt, cancelledAt any
	if r.ApprovedAt != nil {
		approvedAt = r.ApprovedAt.UTC().Format(time.RFC3339)
	}
	if r.CancelledAt != nil {
		cancelledAt = r.CancelledAt.UTC().Format(time.RFC3339)
	}

	query := `
		INSERT INTO leave_requests
		(id, employee_id, leave_type_id, category, start_date, end_date,
		 total_days, hours_per_day, partial_day, status, manager_id, reason,
		 decline_reason, approved_by, approved_at, cancelled_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			decline_reason = excluded.decline_reason,
			approved_by = excluded.approved_by,
			approved_at = excluded.approved_at,
			cancelled_at = excluded.cancelled_at,
			updated_at = excluded.updated_at
	`

	_, err := q.ExecContext(ctx, query,
		r.ID, r.EmployeeID, r.LeaveTypeID, r.Category,
		fmtDate(r.StartDate), fmtDate(r.EndDate),
		r.TotalDays.String(), r.HoursPerDay.String(),
		r.PartialDay, r.Status, r.ManagerID, r.Reason,
		r.DeclineReason, r.ApprovedBy, approvedAt, cancelledAt,
		r.CreatedAt.UTC().Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save request: %w", err)
	}
	return nil
}

// OpenRequests returns the employee's pending and approved requests.
func (s *Store) OpenRequests(ctx context.Context, employeeID string) ([]leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return openRequests(ctx, s.db, employeeID)
}

func openRequests(ctx context.Context, q dbtx, employeeID string) ([]leave.LeaveRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM leave_requests
		WHERE employee_id = ? AND status IN ('pending', 'approved')
		ORDER BY start_date ASC
	`
	return queryRequests(ctx, q, query, employeeID)
}

// RequestsByEmployee returns all requests for an employee, newest first.
func (s *Store) RequestsByEmployee(ctx context.Context, employeeID string) ([]leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ` + requestColumns + `
		FROM leave_requests
		WHERE employee_id = ?
		ORDER BY created_at DESC
	`
	return queryRequests(ctx, s.db, query, employeeID)
}

// PendingForManager returns pending requests routed to a manager.
func (s *Store) PendingForManager(ctx context.Context, managerID string) ([]leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ` + requestColumns + `
		FROM leave_requests
		WHERE manager_id = ? AND status = 'pending'
		ORDER BY created_at ASC
	`
	return queryRequests(ctx, s.db, query, managerID)
}

func queryRequests(ctx context.Context, q dbtx, query string, args ...any) ([]leave.LeaveRequest, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var requests []leave.LeaveRequest
	for rows.Next() {
		r, err := scanRequest(rows.Scan)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *r)
	}
	return requests, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE (leave.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction. The write lock is
// held for the whole transaction; the transactional view must not call back
// into the locked public methods.
func (s *Store) WithTx(ctx context.Context, fn func(store leave.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore routes every Store call through the open *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) Employee(ctx context.Context, id string) (*leave.Employee, error) {
	return getEmployee(ctx, ts.tx, id)
}

func (ts *txStore) Agreement(ctx context.Context, id string) (*leave.Agreement, error) {
	return getAgreement(ctx, ts.tx, id)
}

func (ts *txStore) ActiveEmployees(ctx context.Context) ([]leave.Employee, error) {
	return activeEmployees(ctx, ts.tx)
}

func (ts *txStore) HolidaysInRange(ctx context.Context, entityID string, from, to time.Time) ([]leave.Holiday, error) {
	return holidaysInRange(ctx, ts.tx, entityID, from, to)
}

func (ts *txStore) Policy(ctx context.Context, id string) (*leave.LeavePolicy, error) {
	return getPolicy(ctx, ts.tx, id)
}

func (ts *txStore) ActivePolicies(ctx context.Context) ([]leave.LeavePolicy, error) {
	return activePolicies(ctx, ts.tx)
}

func (ts *txStore) LeaveType(ctx context.Context, id string) (*leave.LeaveType, error) {
	return getLeaveType(ctx, ts.tx, id)
}

func (ts *txStore) Balance(ctx context.Context, employeeID string, category leave.Category) (*leave.Balance, error) {
	return getBalance(ctx, ts.tx, employeeID, category)
}

func (ts *txStore) BalancesByEmployee(ctx context.Context, employeeID string) ([]leave.Balance, error) {
	return balancesByEmployee(ctx, ts.tx, employeeID)
}

func (ts *txStore) SaveBalance(ctx context.Context, b *leave.Balance) error {
	return saveBalance(ctx, ts.tx, b)
}

func (ts *txStore) Request(ctx context.Context, id string) (*leave.LeaveRequest, error) {
	return getRequest(ctx, ts.tx, id)
}

func (ts *txStore) SaveRequest(ctx context.Context, r *leave.LeaveRequest) error {
	return saveRequest(ctx, ts.tx, r)
}

func (ts *txStore) OpenRequests(ctx context.Context, employeeID string) ([]leave.LeaveRequest, error) {
	return openRequests(ctx, ts.tx, employeeID)
}

// =============================================================================
// AUDIT LOG (leave.AuditLog interface)
// =============================================================================

// Record appends an audit entry. Append-only: no update or delete paths exist.
func (s *Store) Record(ctx context.Context, entry leave.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	at := entry.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO audit_log (id, at, actor_id, event_type, entity_id, description) VALUES (?, ?, ?, ?, ?, ?)",
		entry.ID, at.UTC().Format(time.RFC3339),
		entry.ActorID, entry.EventType, entry.EntityID, entry.Description,
	)
	return err
}

// RecentAudit returns the newest audit entries, up to limit.
func (s *Store) RecentAudit(ctx context.Context, limit int) ([]leave.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, at, actor_id, event_type, entity_id, description FROM audit_log ORDER BY at DESC LIMIT ?",
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []leave.AuditEntry
	for rows.Next() {
		var e leave.AuditEntry
		var at string
		var description sql.NullString
		if err := rows.Scan(&e.ID, &at, &e.ActorID, &e.EventType, &e.EntityID, &description); err != nil {
			return nil, err
		}
		e.At, _ = time.Parse(time.RFC3339, at)
		e.Description = description.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"leave_requests", "leave_balances", "audit_log",
		"holidays", "leave_types", "leave_policies", "agreements", "employees",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func fmtDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		// Older rows may carry full timestamps.
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t
}

func parseDecimal(s string) decimal.Decimal {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
