package factory_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairwork/leave-engine/factory"
	"github.com/fairwork/leave-engine/leave"
)

// =============================================================================
// POLICY PARSING
// =============================================================================

func TestPolicyFromJSON_Complete(t *testing.T) {
	p, err := factory.PolicyFromJSON(factory.PolicyJSON{
		ID:              "annual-ft",
		Name:            "Annual Leave (Full Time)",
		Category:        "annual",
		EmploymentScope: "full_time",
		AccrualUnit:     "weeks_per_year",
		AccrualRate:     4,
		IsDefault:       true,
	})
	require.NoError(t, err)

	assert.Equal(t, leave.CategoryAnnual, p.Category)
	assert.Equal(t, leave.FullTime, p.EmploymentScope)
	assert.Equal(t, leave.WeeksPerYear, p.AccrualUnit)
	assert.True(t, p.IsActive, "active by default")
	assert.Equal(t, 7.6, p.StandardHoursPerDay, "statutory defaults applied")
	assert.Equal(t, 38.0, p.HoursPerWeekReference)
}

func TestPolicyFromJSON_Defaults(t *testing.T) {
	p, err := factory.PolicyFromJSON(factory.PolicyJSON{
		ID: "p1", Name: "P1", Category: "personal", AccrualUnit: "days_per_year", AccrualRate: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, leave.ScopeAny, p.EmploymentScope, "empty scope defaults to any")

	inactive := false
	p, err = factory.PolicyFromJSON(factory.PolicyJSON{
		ID: "p2", Name: "P2", Category: "personal", AccrualUnit: "days_per_year",
		AccrualRate: 10, IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.False(t, p.IsActive, "explicit is_active=false survives")
}

func TestPolicyFromJSON_Invalid(t *testing.T) {
	cases := []struct {
		name string
		pj   factory.PolicyJSON
	}{
		{"missing id", factory.PolicyJSON{Name: "X", Category: "annual", AccrualUnit: "days_per_year"}},
		{"missing name", factory.PolicyJSON{ID: "x", Category: "annual", AccrualUnit: "days_per_year"}},
		{"missing category", factory.PolicyJSON{ID: "x", Name: "X", AccrualUnit: "days_per_year"}},
		{"bad category", factory.PolicyJSON{ID: "x", Name: "X", Category: "bereavement", AccrualUnit: "days_per_year"}},
		{"missing unit", factory.PolicyJSON{ID: "x", Name: "X", Category: "annual"}},
		{"bad unit", factory.PolicyJSON{ID: "x", Name: "X", Category: "annual", AccrualUnit: "minutes_per_year"}},
		{"bad scope", factory.PolicyJSON{ID: "x", Name: "X", Category: "annual", AccrualUnit: "days_per_year", EmploymentScope: "intern"}},
		{"negative rate", factory.PolicyJSON{ID: "x", Name: "X", Category: "annual", AccrualUnit: "days_per_year", AccrualRate: -1}},
		{"negative gate", factory.PolicyJSON{ID: "x", Name: "X", Category: "long_service", AccrualUnit: "weeks_per_year", MinServiceYears: -7}},
	}

	for _, tc := range cases {
		_, err := factory.PolicyFromJSON(tc.pj)
		assert.Error(t, err, tc.name)
	}
}

// =============================================================================
// LEAVE TYPE CLASSIFICATION
// =============================================================================

func TestLeaveTypeFromJSON_ClassifiesFromCode(t *testing.T) {
	lt, err := factory.LeaveTypeFromJSON(factory.LeaveTypeJSON{ID: "lt1", Code: "SICK"})
	require.NoError(t, err)

	assert.Equal(t, leave.CategoryPersonal, lt.Category)
	assert.Equal(t, "SICK", lt.Name, "name defaults to the code")
}

func TestLeaveTypeFromJSON_FallsBackToName(t *testing.T) {
	// Opaque code, descriptive name: classification uses the name.
	lt, err := factory.LeaveTypeFromJSON(factory.LeaveTypeJSON{
		ID: "lt2", Code: "T-204", Name: "Annual Leave",
	})
	require.NoError(t, err)
	assert.Equal(t, leave.CategoryAnnual, lt.Category)
}

func TestLeaveTypeFromJSON_UnclassifiableFails(t *testing.T) {
	_, err := factory.LeaveTypeFromJSON(factory.LeaveTypeJSON{
		ID: "lt3", Code: "T-999", Name: "Jury Duty",
	})
	require.Error(t, err)

	var unclassified *leave.UnclassifiedCodeError
	assert.ErrorAs(t, err, &unclassified)
}

func TestLeaveTypeFromJSON_AmbiguousFails(t *testing.T) {
	_, err := factory.LeaveTypeFromJSON(factory.LeaveTypeJSON{
		ID: "lt4", Code: "PERSONAL_HOLIDAY",
	})
	require.Error(t, err)

	var ambiguous *leave.AmbiguousCodeError
	assert.ErrorAs(t, err, &ambiguous)
}

// =============================================================================
// BUNDLES
// =============================================================================

func TestParseBundle_StandardBundle(t *testing.T) {
	bundle, err := factory.ParseBundle([]byte(factory.StandardBundleJSON()))
	require.NoError(t, err)

	require.Len(t, bundle.Policies, 3)
	require.Len(t, bundle.LeaveTypes, 4)

	byID := map[string]leave.LeavePolicy{}
	for _, p := range bundle.Policies {
		byID[p.ID] = p
	}
	assert.Equal(t, 4.0, byID["annual-std"].AccrualRate)
	assert.Equal(t, 7.0, byID["lsl-std"].MinServiceYears)
	assert.Equal(t, 0.867, byID["lsl-std"].RateAfterThreshold)

	// The standard bundle passes its own compliance scan.
	assert.Empty(t, leave.CheckCompliance(bundle.Policies))
}

func TestParseBundle_FailsLoudlyOnBadEntry(t *testing.T) {
	// One bad leave type poisons the whole bundle; there is no partial load.
	_, err := factory.ParseBundle([]byte(`{
	  "policies": [],
	  "leave_types": [
	    {"id": "lt-good", "code": "ANNUAL", "name": "Annual Leave"},
	    {"id": "lt-bad", "code": "MYSTERY", "name": "Mystery"}
	  ]
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lt-bad")
}

func TestParseBundle_MalformedJSON(t *testing.T) {
	_, err := factory.ParseBundle([]byte(`{"policies": [`))
	assert.Error(t, err)
}

func TestLoadBundle_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.json")
	require.NoError(t, os.WriteFile(path, []byte(factory.StandardBundleJSON()), 0o644))

	bundle, err := factory.LoadBundle(path)
	require.NoError(t, err)
	assert.Len(t, bundle.Policies, 3)

	_, err = factory.LoadBundle(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
