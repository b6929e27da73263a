// Package compliance evaluates a proposed settlement against internal approval
// thresholds and per-jurisdiction settlement rules.
package compliance

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/claim"
)

// #region engine

// Engine evaluates settlements. It holds no mutable state apart from the
// clock, which only decides the weekend warning.
type Engine struct {
	config        Config
	jurisdictions map[string]Jurisdiction
	clock         func() time.Time
}

// NewEngine validates config and builds an engine. Jurisdiction codes are
// matched case-insensitively.
func NewEngine(config Config) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	table := make(map[string]Jurisdiction, len(config.Jurisdictions))
	for code, j := range config.Jurisdictions {
		table[strings.ToUpper(code)] = j
	}
	return &Engine{
		config:        config,
		jurisdictions: table,
		clock:         time.Now,
	}, nil
}

// WithClock overrides the processing-day clock for deterministic testing.
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	e.clock = clock
	return e
}

// Jurisdiction returns the rules for code or a ConfigurationError naming the
// missing table entry.
func (e *Engine) Jurisdiction(code string) (Jurisdiction, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	j, ok := e.jurisdictions[code]
	if !ok {
		return Jurisdiction{}, &claim.ConfigurationError{
			Key:    "compliance.jurisdictions." + code,
			Detail: "no settlement rules configured for jurisdiction",
		}
	}
	return j, nil
}

// IsAutoClaim reports whether claimType belongs to the auto-claim family.
func (e *Engine) IsAutoClaim(claimType string) bool {
	t := strings.ToLower(claimType)
	for _, p := range e.config.AutoClaimPrefixes {
		p = strings.ToLower(p)
		if t == p || strings.HasPrefix(t, p+"_") {
			return true
		}
	}
	return false
}

// Evaluate applies the rules in order. Effects are cumulative: a later rule
// only adds approvals, documents, violations or risk.
func (e *Engine) Evaluate(amount float64, claimType, jurisdiction string) (Report, error) {
	j, err := e.Jurisdiction(jurisdiction)
	if err != nil {
		return Report{}, err
	}
	code := strings.ToUpper(strings.TrimSpace(jurisdiction))

	r := Report{
		Violations:              []string{},
		Warnings:                []string{},
		RequiredApprovals:       []string{},
		AdditionalDocumentation: []string{},
		RiskLevel:               RiskLow,
		Jurisdiction:            code,
	}

	// 1. Senior manager tier
	if amount > e.config.SeniorManagerThreshold {
		r.RequiredApprovals = append(r.RequiredApprovals, "senior_manager", "legal_department")
		r.AdditionalDocumentation = append(r.AdditionalDocumentation, "detailed_justification_report")
		r.RiskLevel = r.RiskLevel.AtLeast(RiskHigh)
	}

	// 2. Executive tier
	if amount > e.config.ExecutiveThreshold {
		r.RequiredApprovals = append(r.RequiredApprovals, "executive_approval")
		r.AdditionalDocumentation = append(r.AdditionalDocumentation, "external_legal_review")
		r.RiskLevel = r.RiskLevel.AtLeast(RiskCritical)
	}

	// 3. Jurisdiction rules
	if e.IsAutoClaim(claimType) {
		r.ApplicableCap = j.MaxAutoSettlement
		if amount > j.MaxAutoSettlement {
			r.Violations = append(r.Violations, fmt.Sprintf(
				"Settlement of $%s exceeds %s maximum auto settlement of $%s",
				money(amount), code, money(j.MaxAutoSettlement),
			))
			r.RiskLevel = r.RiskLevel.AtLeast(RiskMedium)
		}
	}
	r.AdditionalDocumentation = append(r.AdditionalDocumentation, j.RequiredDisclosure)

	// 4. Processing day
	switch e.clock().Weekday() {
	case time.Saturday, time.Sunday:
		r.Warnings = append(r.Warnings, "Settlement processed on weekend - verify business day requirements")
	}

	r.Compliant = len(r.Violations) == 0
	r.RegulatoryNotes = fmt.Sprintf("Compliance check completed for %s jurisdiction", code)
	return r, nil
}

// #endregion engine

// #region report-err

// Err returns a ComplianceViolationError when the report is not compliant.
func (r Report) Err() error {
	if r.Compliant {
		return nil
	}
	return &claim.ComplianceViolationError{Violations: r.Violations}
}

// Merge combines two evaluations of the same negotiation, such as the check
// on a proposed amount and the check on the amount finally offered. Findings
// are unioned in order and the risk level is the higher of the two.
func (r Report) Merge(other Report) Report {
	out := Report{
		Violations:              union(r.Violations, other.Violations),
		Warnings:                union(r.Warnings, other.Warnings),
		RequiredApprovals:       union(r.RequiredApprovals, other.RequiredApprovals),
		AdditionalDocumentation: union(r.AdditionalDocumentation, other.AdditionalDocumentation),
		RegulatoryNotes:         r.RegulatoryNotes,
		RiskLevel:               r.RiskLevel.AtLeast(other.RiskLevel),
		Jurisdiction:            r.Jurisdiction,
		ApplicableCap:           r.ApplicableCap,
	}
	if out.RegulatoryNotes == "" {
		out.RegulatoryNotes = other.RegulatoryNotes
	}
	if out.Jurisdiction == "" {
		out.Jurisdiction = other.Jurisdiction
	}
	if out.ApplicableCap == 0 {
		out.ApplicableCap = other.ApplicableCap
	}
	out.Compliant = len(out.Violations) == 0
	return out
}

// #endregion report-err

// #region validate

// Validate fails fast on a missing threshold or an incomplete jurisdiction entry.
func (c Config) Validate() error {
	if c.SeniorManagerThreshold <= 0 {
		return &claim.ConfigurationError{Key: "compliance.senior_manager_threshold"}
	}
	if c.ExecutiveThreshold <= 0 {
		return &claim.ConfigurationError{Key: "compliance.executive_threshold"}
	}
	if c.ExecutiveThreshold < c.SeniorManagerThreshold {
		return &claim.ConfigurationError{
			Key:    "compliance.executive_threshold",
			Detail: "must not be below senior_manager_threshold",
		}
	}
	if len(c.Jurisdictions) == 0 {
		return &claim.ConfigurationError{Key: "compliance.jurisdictions"}
	}
	for code, j := range c.Jurisdictions {
		if j.MaxAutoSettlement <= 0 {
			return &claim.ConfigurationError{Key: "compliance.jurisdictions." + code + ".max_auto_settlement"}
		}
		if j.RequiredDisclosure == "" {
			return &claim.ConfigurationError{Key: "compliance.jurisdictions." + code + ".required_disclosure"}
		}
	}
	return nil
}

// #endregion validate

// #region helpers
func money(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}

func union(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]bool, len(a)+len(b))
	for _, xs := range [][]string{a, b} {
		for _, x := range xs {
			if !seen[x] {
				seen[x] = true
				out = append(out, x)
			}
		}
	}
	return out
}

// #endregion helpers
