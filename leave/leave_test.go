package leave_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fairwork/leave-engine/leave"
	"github.com/fairwork/leave-engine/leave/store"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

func dec(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func stdAnnualPolicy() leave.LeavePolicy {
	return leave.LeavePolicy{
		ID:              "annual-std",
		Name:            "Annual Leave (Standard)",
		Category:        leave.CategoryAnnual,
		EmploymentScope: leave.ScopeAny,
		AccrualUnit:     leave.WeeksPerYear,
		AccrualRate:     4,
		IsDefault:       true,
		IsActive:        true,
	}
}

func stdPersonalPolicy() leave.LeavePolicy {
	return leave.LeavePolicy{
		ID:              "personal-std",
		Name:            "Personal/Carer's Leave (Standard)",
		Category:        leave.CategoryPersonal,
		EmploymentScope: leave.ScopeAny,
		AccrualUnit:     leave.DaysPerYear,
		AccrualRate:     10,
		IsDefault:       true,
		IsActive:        true,
	}
}

func stdLSLPolicy() leave.LeavePolicy {
	return leave.LeavePolicy{
		ID:                 "lsl-std",
		Name:               "Long Service Leave (Standard)",
		Category:           leave.CategoryLongService,
		EmploymentScope:    leave.ScopeAny,
		AccrualUnit:        leave.WeeksPerYear,
		AccrualRate:        0,
		IsDefault:          true,
		IsActive:           true,
		MinServiceYears:    7,
		RateAfterThreshold: 0.867,
	}
}

func fullTimer(id string) leave.Employee {
	return leave.Employee{
		ID:             id,
		Name:           "Employee " + id,
		EntityID:       "entity-au",
		EmploymentType: leave.FullTime,
		Status:         leave.StatusActive,
		HoursPerWeek:   38,
		ServiceStart:   leave.Date(2024, 7, 1),
	}
}

// newSeededStore builds a memory store with the standard policies,
// leave types, and a full-time employee "emp-1".
func newSeededStore(t *testing.T) *store.Memory {
	t.Helper()

	mem := store.NewMemory()
	mem.PutPolicy(stdAnnualPolicy())
	mem.PutPolicy(stdPersonalPolicy())
	mem.PutPolicy(stdLSLPolicy())
	mem.PutLeaveType(leave.LeaveType{ID: "lt-annual", Code: "ANNUAL", Name: "Annual Leave", Category: leave.CategoryAnnual})
	mem.PutLeaveType(leave.LeaveType{ID: "lt-personal", Code: "PERSONAL", Name: "Personal/Carer's Leave", Category: leave.CategoryPersonal})
	mem.PutLeaveType(leave.LeaveType{ID: "lt-lsl", Code: "LSL", Name: "Long Service Leave", Category: leave.CategoryLongService})
	mem.PutEmployee(fullTimer("emp-1"))
	return mem
}
