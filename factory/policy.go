/*
Package factory provides JSON to Go policy and leave-type conversion.

PURPOSE:
  Converts JSON policy and leave-type definitions into leave.LeavePolicy and
  leave.LeaveType objects. This enables policy configuration without code
  changes - HR can define policies in JSON, and the factory creates the proper
  Go structs.

WHY JSON?
  - Non-developers can modify policies
  - Easy integration with admin UI
  - Version control for policy definitions
  - Database storage of policy configs

JSON SCHEMA:
  {
    "policies": [
      {
        "id": "annual-std",
        "name": "Annual Leave (Full Time)",
        "category": "annual",
        "employment_scope": "full_time",
        "accrual_unit": "weeks_per_year",
        "accrual_rate": 4,
        "is_default": true
      }
    ],
    "leave_types": [
      {"id": "lt-annual", "code": "ANNUAL", "name": "Annual Leave"}
    ]
  }

CLASSIFICATION:
  Leave types never carry a category in JSON; it is resolved from the code via
  leave.ClassifyCode at load time. Codes that match no category, or more than
  one, fail the whole load.

USAGE:
  bundle, err := factory.ParseBundle(jsonBytes)
  // or from a file at startup:
  bundle, err := factory.LoadBundle("./config/policies.json")

SEE ALSO:
  - leave/types.go: LeavePolicy and LeaveType definitions
  - cmd/server: loads a bundle into the store with -seed
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fairwork/leave-engine/leave"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// Bundle is a parsed configuration set ready to load into a store.
type Bundle struct {
	Policies   []leave.LeavePolicy
	LeaveTypes []leave.LeaveType
}

// BundleJSON is the top-level JSON document.
type BundleJSON struct {
	Policies   []PolicyJSON    `json:"policies"`
	LeaveTypes []LeaveTypeJSON `json:"leave_types"`
}

// PolicyJSON is the JSON representation of a leave policy.
type PolicyJSON struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Category        string `json:"category"`
	EmploymentScope string `json:"employment_scope,omitempty"` // default "any"
	CountryCode     string `json:"country_code,omitempty"`

	AccrualUnit           string  `json:"accrual_unit"`
	AccrualRate           float64 `json:"accrual_rate"`
	StandardHoursPerDay   float64 `json:"standard_hours_per_day,omitempty"`   // default 7.6
	HoursPerWeekReference float64 `json:"hours_per_week_reference,omitempty"` // default 38

	IsDefault bool  `json:"is_default,omitempty"`
	IsActive  *bool `json:"is_active,omitempty"` // default true

	MinServiceYears    float64 `json:"min_service_years,omitempty"`
	RateAfterThreshold float64 `json:"rate_after_threshold,omitempty"`

	AllowNegativeBalance bool `json:"allow_negative_balance,omitempty"`
}

// LeaveTypeJSON is the JSON representation of a leave type. Category is
// intentionally absent: it is classified from the code.
type LeaveTypeJSON struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// =============================================================================
// PARSING
// =============================================================================

// ParseBundle parses a JSON document into policies and leave types. Any
// invalid policy or unclassifiable leave-type code fails the whole parse.
func ParseBundle(data []byte) (*Bundle, error) {
	var bj BundleJSON
	if err := json.Unmarshal(data, &bj); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	bundle := &Bundle{}

	for i, pj := range bj.Policies {
		p, err := PolicyFromJSON(pj)
		if err != nil {
			return nil, fmt.Errorf("policy %d (%s): %w", i, pj.ID, err)
		}
		bundle.Policies = append(bundle.Policies, *p)
	}

	for i, tj := range bj.LeaveTypes {
		lt, err := LeaveTypeFromJSON(tj)
		if err != nil {
			return nil, fmt.Errorf("leave type %d (%s): %w", i, tj.ID, err)
		}
		bundle.LeaveTypes = append(bundle.LeaveTypes, *lt)
	}

	return bundle, nil
}

// LoadBundle reads and parses a JSON config file.
func LoadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseBundle(data)
}

// PolicyFromJSON converts PolicyJSON to a validated leave.LeavePolicy.
func PolicyFromJSON(pj PolicyJSON) (*leave.LeavePolicy, error) {
	if pj.ID == "" {
		return nil, fmt.Errorf("missing id")
	}
	if pj.Name == "" {
		return nil, fmt.Errorf("missing name")
	}

	category, err := parseCategory(pj.Category)
	if err != nil {
		return nil, err
	}

	unit, err := parseAccrualUnit(pj.AccrualUnit)
	if err != nil {
		return nil, err
	}

	scope, err := parseScope(pj.EmploymentScope)
	if err != nil {
		return nil, err
	}

	if pj.AccrualRate < 0 {
		return nil, fmt.Errorf("negative accrual_rate %v", pj.AccrualRate)
	}
	if pj.MinServiceYears < 0 {
		return nil, fmt.Errorf("negative min_service_years %v", pj.MinServiceYears)
	}

	p := &leave.LeavePolicy{
		ID:                    pj.ID,
		Name:                  pj.Name,
		Category:              category,
		EmploymentScope:       scope,
		CountryCode:           pj.CountryCode,
		AccrualUnit:           unit,
		AccrualRate:           pj.AccrualRate,
		StandardHoursPerDay:   pj.StandardHoursPerDay,
		HoursPerWeekReference: pj.HoursPerWeekReference,
		IsDefault:             pj.IsDefault,
		IsActive:              true,
		MinServiceYears:       pj.MinServiceYears,
		RateAfterThreshold:    pj.RateAfterThreshold,
		AllowNegativeBalance:  pj.AllowNegativeBalance,
	}
	if pj.IsActive != nil {
		p.IsActive = *pj.IsActive
	}
	p.Normalize()

	return p, nil
}

// LeaveTypeFromJSON converts LeaveTypeJSON to a leave.LeaveType, classifying
// the code into a category. Classification failures propagate unchanged.
func LeaveTypeFromJSON(tj LeaveTypeJSON) (*leave.LeaveType, error) {
	if tj.ID == "" {
		return nil, fmt.Errorf("missing id")
	}
	if tj.Code == "" {
		return nil, fmt.Errorf("missing code")
	}

	category, err := leave.ClassifyCode(tj.Code)
	if err != nil {
		// Fall back to the display name before giving up: some sources
		// carry opaque codes but descriptive names.
		if tj.Name != "" {
			if byName, nameErr := leave.ClassifyCode(tj.Name); nameErr == nil {
				category = byName
				err = nil
			}
		}
		if err != nil {
			return nil, err
		}
	}

	name := tj.Name
	if name == "" {
		name = tj.Code
	}

	return &leave.LeaveType{
		ID:       tj.ID,
		Code:     tj.Code,
		Name:     name,
		Category: category,
	}, nil
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseCategory(s string) (leave.Category, error) {
	switch leave.Category(s) {
	case leave.CategoryAnnual, leave.CategoryPersonal, leave.CategoryLongService:
		return leave.Category(s), nil
	case "":
		return "", fmt.Errorf("missing category")
	default:
		return "", fmt.Errorf("unknown category %q", s)
	}
}

func parseAccrualUnit(s string) (leave.AccrualUnit, error) {
	switch leave.AccrualUnit(s) {
	case leave.HoursPerYear, leave.DaysPerYear, leave.WeeksPerYear:
		return leave.AccrualUnit(s), nil
	case "":
		return "", fmt.Errorf("missing accrual_unit")
	default:
		return "", fmt.Errorf("unknown accrual_unit %q", s)
	}
}

func parseScope(s string) (leave.EmploymentType, error) {
	switch leave.EmploymentType(s) {
	case leave.FullTime, leave.PartTime, leave.Casual, leave.Contractor, leave.ScopeAny:
		return leave.EmploymentType(s), nil
	case "":
		return leave.ScopeAny, nil
	default:
		return "", fmt.Errorf("unknown employment_scope %q", s)
	}
}

// =============================================================================
// PRESET POLICIES
// =============================================================================

// StandardBundleJSON returns a NES-aligned starter configuration: 4 weeks
// annual leave, 10 days personal leave, and long service leave gated at 7
// years with a 0.867 weeks/year rate.
func StandardBundleJSON() string {
	return `{
	  "policies": [
	    {
	      "id": "annual-std",
	      "name": "Annual Leave (Standard)",
	      "category": "annual",
	      "employment_scope": "any",
	      "accrual_unit": "weeks_per_year",
	      "accrual_rate": 4,
	      "is_default": true
	    },
	    {
	      "id": "personal-std",
	      "name": "Personal/Carer's Leave (Standard)",
	      "category": "personal",
	      "employment_scope": "any",
	      "accrual_unit": "days_per_year",
	      "accrual_rate": 10,
	      "is_default": true
	    },
	    {
	      "id": "lsl-std",
	      "name": "Long Service Leave (Standard)",
	      "category": "long_service",
	      "employment_scope": "any",
	      "accrual_unit": "weeks_per_year",
	      "accrual_rate": 0,
	      "min_service_years": 7,
	      "rate_after_threshold": 0.867,
	      "is_default": true
	    }
	  ],
	  "leave_types": [
	    {"id": "lt-annual", "code": "ANNUAL", "name": "Annual Leave"},
	    {"id": "lt-personal", "code": "PERSONAL", "name": "Personal/Carer's Leave"},
	    {"id": "lt-sick", "code": "SICK", "name": "Sick Leave"},
	    {"id": "lt-lsl", "code": "LSL", "name": "Long Service Leave"}
	  ]
	}`
}
