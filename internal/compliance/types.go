package compliance

// #region risk-level

// RiskLevel grades a settlement's regulatory exposure.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

var riskRank = map[RiskLevel]int{
	RiskLow:      0,
	RiskMedium:   1,
	RiskHigh:     2,
	RiskCritical: 3,
}

// AtLeast returns the higher of r and floor. Risk is never downgraded.
func (r RiskLevel) AtLeast(floor RiskLevel) RiskLevel {
	if riskRank[floor] > riskRank[r] {
		return floor
	}
	return r
}

// #endregion risk-level

// #region config

// Jurisdiction holds the settlement rules of one state.
type Jurisdiction struct {
	MaxAutoSettlement  float64 `mapstructure:"max_auto_settlement" yaml:"max_auto_settlement" json:"max_auto_settlement"`
	RequiredDisclosure string  `mapstructure:"required_disclosure" yaml:"required_disclosure" json:"required_disclosure"`
}

// Config holds approval thresholds and the jurisdiction table.
type Config struct {
	SeniorManagerThreshold float64                 `mapstructure:"senior_manager_threshold" yaml:"senior_manager_threshold"`
	ExecutiveThreshold     float64                 `mapstructure:"executive_threshold" yaml:"executive_threshold"`
	AutoClaimPrefixes      []string                `mapstructure:"auto_claim_prefixes" yaml:"auto_claim_prefixes"`
	Jurisdictions          map[string]Jurisdiction `mapstructure:"jurisdictions" yaml:"jurisdictions"`
}

// DefaultConfig returns the production thresholds and the four supported states.
func DefaultConfig() Config {
	return Config{
		SeniorManagerThreshold: 100000,
		ExecutiveThreshold:     250000,
		AutoClaimPrefixes:      []string{"auto"},
		Jurisdictions: map[string]Jurisdiction{
			"CA": {MaxAutoSettlement: 50000, RequiredDisclosure: "california_consumer_privacy_notice"},
			"NY": {MaxAutoSettlement: 45000, RequiredDisclosure: "new_york_insurance_disclosure"},
			"TX": {MaxAutoSettlement: 55000, RequiredDisclosure: "texas_insurance_disclosure"},
			"FL": {MaxAutoSettlement: 48000, RequiredDisclosure: "florida_insurance_disclosure"},
		},
	}
}

// #endregion config

// #region report

// Report is the outcome of one compliance evaluation.
type Report struct {
	Compliant               bool      `json:"compliant"`
	Violations              []string  `json:"violations"`
	Warnings                []string  `json:"warnings"`
	RequiredApprovals       []string  `json:"required_approvals"`
	AdditionalDocumentation []string  `json:"additional_documentation"`
	RegulatoryNotes         string    `json:"regulatory_notes"`
	RiskLevel               RiskLevel `json:"risk_level"`
	Jurisdiction            string    `json:"jurisdiction"`
	ApplicableCap           float64   `json:"applicable_cap,omitempty"` // auto settlement cap when the claim is auto family
}

// #endregion report
