/*
compliance.go - Statutory minimum checks over policy configuration

PURPOSE:
  An offline, administrative scan of active policies against National
  Employment Standards minimums. NES rules bind the Australian jurisdiction
  only: policies scoped to another country code are skipped, while unscoped
  policies are checked. The checker never mutates anything and never
  participates in the request/approval runtime path.

RULES:
  - Full-time/part-time annual leave below 4 weeks per year
  - Full-time/part-time personal leave below 10 days per year
  - Casual-scoped policies accruing paid annual/personal leave
  - Missing required configuration fields
  - Informational note on 5-week shiftworker annual entitlements
*/
package leave

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Finding is a single compliance observation against one policy.
type Finding struct {
	PolicyID string
	Severity Severity
	Rule     string
	Message  string
}

// nesJurisdiction is the country code the NES minimums apply to.
const nesJurisdiction = "AU"

// Statutory minimums.
var (
	minAnnualWeeks       = decimal.NewFromInt(4)
	minPersonalDays      = decimal.NewFromInt(10)
	shiftworkerWeeks     = decimal.NewFromInt(5)
	shiftworkerTolerance = decimal.NewFromFloat(0.05)
)

// CheckCompliance scans the supplied policies and returns every finding.
// Inactive policies and policies scoped to a country other than AU are
// skipped; a policy with no country code is treated as in scope. The input
// is never mutated.
func CheckCompliance(policies []LeavePolicy) []Finding {
	findings := []Finding{}

	for i := range policies {
		p := policies[i]
		if !p.IsActive {
			continue
		}
		if p.CountryCode != "" && p.CountryCode != nesJurisdiction {
			continue
		}

		if missing := missingConfig(&p); missing != "" {
			findings = append(findings, Finding{
				PolicyID: p.ID,
				Severity: SeverityError,
				Rule:     "missing_configuration",
				Message:  fmt.Sprintf("policy %q is missing required configuration: %s", p.Name, missing),
			})
			continue
		}

		if p.EmploymentScope == Casual && p.Category.IsPaid() && p.AccrualRate != 0 {
			findings = append(findings, Finding{
				PolicyID: p.ID,
				Severity: SeverityError,
				Rule:     "casual_paid_leave",
				Message:  fmt.Sprintf("casual-scoped policy %q accrues paid %s leave", p.Name, p.Category),
			})
			continue
		}

		if p.EmploymentScope != FullTime && p.EmploymentScope != PartTime && p.EmploymentScope != ScopeAny {
			continue
		}

		annualHours := p.AnnualHours(p.AccrualRate)
		weekRef := decimal.NewFromFloat(p.HoursPerWeekReference)
		dayRef := decimal.NewFromFloat(p.StandardHoursPerDay)

		switch p.Category {
		case CategoryAnnual:
			weeks := annualHours.Div(weekRef)
			if weeks.LessThan(minAnnualWeeks) {
				findings = append(findings, Finding{
					PolicyID: p.ID,
					Severity: SeverityError,
					Rule:     "nes_annual_minimum",
					Message: fmt.Sprintf("policy %q grants %s weeks/year of annual leave; the NES minimum is 4",
						p.Name, weeks.Round(2)),
				})
			}
			if weeks.Sub(shiftworkerWeeks).Abs().LessThanOrEqual(shiftworkerTolerance) {
				findings = append(findings, Finding{
					PolicyID: p.ID,
					Severity: SeverityInfo,
					Rule:     "shiftworker_entitlement",
					Message:  fmt.Sprintf("policy %q grants 5 weeks/year, the shiftworker entitlement; confirm the scope is intentional", p.Name),
				})
			}
		case CategoryPersonal:
			days := annualHours.Div(dayRef)
			if days.LessThan(minPersonalDays) {
				findings = append(findings, Finding{
					PolicyID: p.ID,
					Severity: SeverityError,
					Rule:     "nes_personal_minimum",
					Message: fmt.Sprintf("policy %q grants %s days/year of personal leave; the NES minimum is 10",
						p.Name, days.Round(2)),
				})
			}
		}
	}

	return findings
}

func missingConfig(p *LeavePolicy) string {
	switch {
	case p.Category == "":
		return "category"
	case p.AccrualUnit == "":
		return "accrual unit"
	case p.EmploymentScope != Casual && p.AccrualRate <= 0 && p.RateAfterThreshold <= 0:
		return "accrual rate"
	case p.HoursPerWeekReference <= 0:
		return "hours per week reference"
	case p.StandardHoursPerDay <= 0:
		return "standard hours per day"
	}
	return ""
}
