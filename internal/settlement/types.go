package settlement

import "github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/claim"

// #region config

// Config holds the tuning knobs for offers, precedent analysis and options.
type Config struct {
	HighStressThreshold     float64 `mapstructure:"high_stress_threshold" yaml:"high_stress_threshold"`
	VeryHighStressThreshold float64 `mapstructure:"very_high_stress_threshold" yaml:"very_high_stress_threshold"`
	EmpathyFactor           float64 `mapstructure:"empathy_factor" yaml:"empathy_factor"`
	HighAngerFactor         float64 `mapstructure:"high_anger_factor" yaml:"high_anger_factor"`
	MinAdjustment           float64 `mapstructure:"min_adjustment" yaml:"min_adjustment"`
	MaxAdjustment           float64 `mapstructure:"max_adjustment" yaml:"max_adjustment"`
	ApprovalFraction        float64 `mapstructure:"approval_fraction" yaml:"approval_fraction"` // of policy coverage

	PrecedentTolerance float64 `mapstructure:"precedent_tolerance" yaml:"precedent_tolerance"` // relative amount window
	MaxPrecedents      int     `mapstructure:"max_precedents" yaml:"max_precedents"`
	HighValueClaim     float64 `mapstructure:"high_value_claim" yaml:"high_value_claim"`
	LowSatisfaction    float64 `mapstructure:"low_satisfaction" yaml:"low_satisfaction"`

	FallbackPercentage     float64 `mapstructure:"fallback_percentage" yaml:"fallback_percentage"`
	FallbackConfidence     float64 `mapstructure:"fallback_confidence" yaml:"fallback_confidence"`
	FallbackRangeMin       float64 `mapstructure:"fallback_range_min" yaml:"fallback_range_min"`
	FallbackRangeMax       float64 `mapstructure:"fallback_range_max" yaml:"fallback_range_max"`
	FallbackResolutionDays int     `mapstructure:"fallback_resolution_days" yaml:"fallback_resolution_days"`

	OptionBaselineConfidence float64 `mapstructure:"option_baseline_confidence" yaml:"option_baseline_confidence"`
}

// DefaultConfig returns the production settlement parameters.
func DefaultConfig() Config {
	return Config{
		HighStressThreshold:     0.7,
		VeryHighStressThreshold: 0.8,
		EmpathyFactor:           1.05,
		HighAngerFactor:         1.07,
		MinAdjustment:           0.9,
		MaxAdjustment:           1.1,
		ApprovalFraction:        0.8,

		PrecedentTolerance: 0.5,
		MaxPrecedents:      10,
		HighValueClaim:     50000,
		LowSatisfaction:    3.5,

		FallbackPercentage:     0.85,
		FallbackConfidence:     0.3,
		FallbackRangeMin:       0.7,
		FallbackRangeMax:       0.95,
		FallbackResolutionDays: 21,

		OptionBaselineConfidence: 0.6,
	}
}

// #endregion config

// #region offer

// Offer is the result of the base settlement calculation.
type Offer struct {
	Amount           float64 `json:"amount"`
	BaseAmount       float64 `json:"base_amount"`
	AdjustmentFactor float64 `json:"adjustment_factor"`
	Confidence       float64 `json:"confidence"`
	RequiresApproval bool    `json:"requires_approval"`
	Reasoning        string  `json:"reasoning"`
}

// #endregion offer

// #region precedent-analysis

// PrecedentAnalysis summarises the comparable historical cases for a claim.
type PrecedentAnalysis struct {
	RecommendedAmount   float64  `json:"recommended_amount"`
	Confidence          float64  `json:"confidence"`
	RangeMin            float64  `json:"range_min"`
	RangeMax            float64  `json:"range_max"`
	ResolutionDays      int      `json:"resolution_days"`
	AverageSatisfaction float64  `json:"average_satisfaction,omitempty"`
	MatchedCases        int      `json:"matched_cases"`
	RiskFactors         []string `json:"risk_factors"`
	UsedFallback        bool     `json:"used_fallback"`
}

// #endregion precedent-analysis

// #region creative-option

// OptionType names an alternative settlement structure.
type OptionType string

const (
	OptionImmediatePartial OptionType = "immediate_partial"
	OptionStructured       OptionType = "structured"
	OptionEnhancedService  OptionType = "enhanced_service"
	OptionFastTrack        OptionType = "fast_track"
)

// CreativeOption is one alternative to a lump-sum settlement.
type CreativeOption struct {
	Type                OptionType `json:"type"`
	Description         string     `json:"description"`
	Amount              float64    `json:"amount"`
	ImmediatePayment    float64    `json:"immediate_payment,omitempty"`
	BalancePaymentDays  int        `json:"balance_payment_days,omitempty"`
	MonthlyPayment      float64    `json:"monthly_payment,omitempty"`
	PaymentPeriodMonths int        `json:"payment_period_months,omitempty"`
	AdditionalServices  []string   `json:"additional_services,omitempty"`
	PaymentWithinDays   int        `json:"payment_within_days,omitempty"`
	Benefit             string     `json:"benefit"`
	BestFor             []string   `json:"best_for"`
	ConfidenceScore     float64    `json:"confidence_score"`
	Recommended         bool       `json:"recommended"`
}

// #endregion creative-option

// #region recommendation

// Request bundles everything Recommend needs. Policy is nil when the policy
// could not be verified; ComplianceCap is 0 when no jurisdiction cap applies.
type Request struct {
	Claim            claim.ClaimDetails
	Policy           *claim.PolicyRecord
	Emotion          claim.EmotionalSignal
	Precedents       PrecedentAnalysis
	DamageAssessment float64
	ComplianceCap    float64
}

// Recommendation is the settlement the pipeline proposes.
type Recommendation struct {
	RecommendedAmount float64          `json:"recommended_amount"`
	ConfidenceLevel   float64          `json:"confidence_level"`
	RangeMin          float64          `json:"settlement_range_min"`
	RangeMax          float64          `json:"settlement_range_max"`
	RiskFactors       []string         `json:"risk_factors"`
	CreativeOptions   []CreativeOption `json:"creative_options"`
	RequiresApproval  bool             `json:"requires_approval"`
	AdjustmentFactor  float64          `json:"adjustment_factor"`
	ResolutionDays    int              `json:"expected_resolution_days"`
	Reasoning         string           `json:"reasoning"`
	UsedFallback      bool             `json:"used_fallback"`
}

// #endregion recommendation
