// Package validation checks a claim against its policy and scores fraud risk.
package validation

import (
	"fmt"
	"math"
	"time"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/claim"
)

// #region validator
// Validator runs claim validation. Immutable after construction.
type Validator struct {
	config Config
	clock  func() time.Time
}

// NewValidator creates a validator with the given configuration.
func NewValidator(config Config) *Validator {
	return &Validator{config: config, clock: time.Now}
}

// WithClock overrides the reference time for late-report checks when the
// claim carries no reported date.
func (v *Validator) WithClock(clock func() time.Time) *Validator {
	v.clock = clock
	return v
}

// Validate checks coverage and documentation and scores fraud risk. policy is
// nil when the policy could not be verified; coverage checks are skipped then.
func (v *Validator) Validate(c claim.ClaimDetails, policy *claim.PolicyRecord) Result {
	issues := []string{}
	var metrics []Metric
	fraud := 0.0

	// 1. Coverage
	if policy != nil {
		covered := true
		if !policy.Active() {
			issues = append(issues, fmt.Sprintf("Policy status is %q", policy.Status))
			covered = false
		}
		if policy.Excludes(c.ClaimType) {
			issues = append(issues, fmt.Sprintf("Claim type '%s' is excluded by policy", c.ClaimType))
			covered = false
		} else if len(policy.AdditionalCoverages) > 0 {
			if _, ok := policy.AdditionalCoverages[c.ClaimType]; !ok {
				issues = append(issues, fmt.Sprintf("Claim type '%s' not covered under policy", c.ClaimType))
				covered = false
			}
		}
		metrics = append(metrics, Metric{Name: "coverage", Value: boolValue(covered), Pass: covered})

		withinLimit := c.EstimatedAmount <= policy.CoverageAmount
		if !withinLimit {
			issues = append(issues, fmt.Sprintf("Claim amount $%.2f exceeds policy limit $%.2f", c.EstimatedAmount, policy.CoverageAmount))
		}
		metrics = append(metrics, Metric{Name: "coverage_limit", Value: c.EstimatedAmount, Pass: withinLimit})
	}

	// 2. Claim value
	highValue := c.EstimatedAmount > v.config.HighValueAmount
	if highValue {
		fraud += v.config.HighValueWeight
	}
	metrics = append(metrics, Metric{Name: "claim_value", Value: c.EstimatedAmount, Pass: !highValue})

	// 3. Reporting delay
	if days, ok := v.reportingDelay(c); ok {
		late := days > v.config.LateReportDays
		if late {
			fraud += v.config.LateReportWeight
		}
		metrics = append(metrics, Metric{Name: "reporting_delay_days", Value: float64(days), Pass: !late})
	}

	// 4. Documentation
	docs := len(c.SupportingDocuments)
	enoughDocs := docs >= v.config.MinDocuments
	if !enoughDocs {
		fraud += v.config.MissingDocsWeight
		issues = append(issues, "Insufficient supporting documentation")
	}
	metrics = append(metrics, Metric{Name: "supporting_documents", Value: float64(docs), Pass: enoughDocs})

	fraud = math.Max(math.Min(fraud, 1), 0)
	investigate := fraud > v.config.InvestigationScore
	valid := len(issues) == 0 && fraud < v.config.InvalidFraudScore

	return Result{
		Valid:                 valid,
		FraudRiskScore:        fraud,
		Issues:                issues,
		RecommendedAction:     recommendedAction(valid, investigate),
		RequiresInvestigation: investigate,
		Complexity:            v.complexity(c, issues, investigate),
		Metrics:               metrics,
	}
}

// #endregion validator

// #region helpers

// reportingDelay returns whole days between incident and report. The report
// date defaults to the clock when absent.
func (v *Validator) reportingDelay(c claim.ClaimDetails) (int, bool) {
	incident, ok := parseDate(c.IncidentDate)
	if !ok {
		return 0, false
	}
	reported := v.clock()
	if c.ReportedDate != "" {
		if reported, ok = parseDate(c.ReportedDate); !ok {
			return 0, false
		}
	}
	return int(reported.Sub(incident).Hours() / 24), true
}

func (v *Validator) complexity(c claim.ClaimDetails, issues []string, investigate bool) Complexity {
	switch {
	case c.EstimatedAmount > v.config.HighComplexityAmount || investigate:
		return ComplexityHigh
	case len(issues) > 0:
		return ComplexityModerate
	default:
		return ComplexityLow
	}
}

func recommendedAction(valid, investigate bool) string {
	switch {
	case valid:
		return "approve_for_settlement"
	case investigate:
		return "refer_to_investigation"
	default:
		return "request_additional_information"
	}
}

// parseDate accepts a calendar date or an RFC 3339 timestamp.
func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers
