package leave_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairwork/leave-engine/leave"
)

func findByRule(findings []leave.Finding, rule string) *leave.Finding {
	for i := range findings {
		if findings[i].Rule == rule {
			return &findings[i]
		}
	}
	return nil
}

// =============================================================================
// NES MINIMUMS
// =============================================================================

func TestCheckCompliance_StandardBundleIsClean(t *testing.T) {
	// The standard 4-week annual, 10-day personal, gated LSL set produces no
	// findings.
	policies := []leave.LeavePolicy{stdAnnualPolicy(), stdPersonalPolicy(), stdLSLPolicy()}
	for i := range policies {
		policies[i].Normalize()
	}

	findings := leave.CheckCompliance(policies)
	assert.Empty(t, findings)
}

func TestCheckCompliance_AnnualBelowMinimum(t *testing.T) {
	// GIVEN: An annual policy granting 3 weeks/year
	// WHEN: Scanning
	// THEN: An error finding names the NES annual minimum

	p := stdAnnualPolicy()
	p.AccrualRate = 3
	p.Normalize()

	findings := leave.CheckCompliance([]leave.LeavePolicy{p})
	f := findByRule(findings, "nes_annual_minimum")
	require.NotNil(t, f)
	assert.Equal(t, leave.SeverityError, f.Severity)
	assert.Equal(t, p.ID, f.PolicyID)
	assert.Contains(t, f.Message, "3")
}

func TestCheckCompliance_PersonalBelowMinimum(t *testing.T) {
	p := stdPersonalPolicy()
	p.AccrualRate = 8
	p.Normalize()

	findings := leave.CheckCompliance([]leave.LeavePolicy{p})
	f := findByRule(findings, "nes_personal_minimum")
	require.NotNil(t, f)
	assert.Equal(t, leave.SeverityError, f.Severity)
}

func TestCheckCompliance_ShiftworkerEntitlementNote(t *testing.T) {
	// 5 weeks/year is legitimate for shiftworkers and flagged as
	// informational only.
	p := stdAnnualPolicy()
	p.AccrualRate = 5
	p.Normalize()

	findings := leave.CheckCompliance([]leave.LeavePolicy{p})
	assert.Nil(t, findByRule(findings, "nes_annual_minimum"))
	f := findByRule(findings, "shiftworker_entitlement")
	require.NotNil(t, f)
	assert.Equal(t, leave.SeverityInfo, f.Severity)
}

func TestCheckCompliance_CasualPaidLeave(t *testing.T) {
	// GIVEN: A casual-scoped policy accruing paid annual leave
	// WHEN: Scanning
	// THEN: Flagged as an error

	p := stdAnnualPolicy()
	p.ID = "annual-casual"
	p.EmploymentScope = leave.Casual
	p.Normalize()

	findings := leave.CheckCompliance([]leave.LeavePolicy{p})
	f := findByRule(findings, "casual_paid_leave")
	require.NotNil(t, f)
	assert.Equal(t, leave.SeverityError, f.Severity)
}

func TestCheckCompliance_CasualZeroRateAccepted(t *testing.T) {
	// A casual-scoped paid category with a zero rate is a placeholder, not a
	// violation.
	p := stdAnnualPolicy()
	p.EmploymentScope = leave.Casual
	p.AccrualRate = 0
	p.Normalize()

	findings := leave.CheckCompliance([]leave.LeavePolicy{p})
	assert.Nil(t, findByRule(findings, "casual_paid_leave"))
}

func TestCheckCompliance_MissingConfiguration(t *testing.T) {
	p := leave.LeavePolicy{
		ID: "broken", Name: "Broken", Category: leave.CategoryAnnual,
		EmploymentScope: leave.ScopeAny, IsActive: true,
	}

	findings := leave.CheckCompliance([]leave.LeavePolicy{p})
	f := findByRule(findings, "missing_configuration")
	require.NotNil(t, f)
	assert.Equal(t, leave.SeverityError, f.Severity)
}

func TestCheckCompliance_GatedLSLRateIsNotMissing(t *testing.T) {
	// A zero base rate with a positive post-threshold rate is a valid LSL
	// configuration.
	p := stdLSLPolicy()
	p.Normalize()

	findings := leave.CheckCompliance([]leave.LeavePolicy{p})
	assert.Nil(t, findByRule(findings, "missing_configuration"))
}

func TestCheckCompliance_InactiveSkipped(t *testing.T) {
	p := stdAnnualPolicy()
	p.AccrualRate = 1
	p.IsActive = false
	p.Normalize()

	findings := leave.CheckCompliance([]leave.LeavePolicy{p})
	assert.Empty(t, findings)
}

func TestCheckCompliance_ForeignJurisdictionSkipped(t *testing.T) {
	// GIVEN: A substandard annual policy scoped to a non-Australian country
	// WHEN: Scanning
	// THEN: The NES minimums do not apply to it; the same policy scoped to AU
	//       or left unscoped is still flagged

	p := stdAnnualPolicy()
	p.AccrualRate = 3
	p.CountryCode = "NZ"
	p.Normalize()

	findings := leave.CheckCompliance([]leave.LeavePolicy{p})
	assert.Empty(t, findings)

	p.CountryCode = "AU"
	findings = leave.CheckCompliance([]leave.LeavePolicy{p})
	require.NotNil(t, findByRule(findings, "nes_annual_minimum"))

	p.CountryCode = ""
	findings = leave.CheckCompliance([]leave.LeavePolicy{p})
	require.NotNil(t, findByRule(findings, "nes_annual_minimum"))
}

func TestCheckCompliance_ContractorScopeNotHeldToMinimums(t *testing.T) {
	// Statutory minimums do not apply to contractor-scoped policies.
	p := stdAnnualPolicy()
	p.EmploymentScope = leave.Contractor
	p.AccrualRate = 1
	p.Normalize()

	findings := leave.CheckCompliance([]leave.LeavePolicy{p})
	assert.Empty(t, findings)
}
