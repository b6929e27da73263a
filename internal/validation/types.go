package validation

// #region config
// Config holds the fraud-scoring weights and validity thresholds.
type Config struct {
	HighValueAmount      float64 `mapstructure:"high_value_amount" yaml:"high_value_amount"`
	HighValueWeight      float64 `mapstructure:"high_value_weight" yaml:"high_value_weight"`
	LateReportDays       int     `mapstructure:"late_report_days" yaml:"late_report_days"`
	LateReportWeight     float64 `mapstructure:"late_report_weight" yaml:"late_report_weight"`
	MinDocuments         int     `mapstructure:"min_documents" yaml:"min_documents"`
	MissingDocsWeight    float64 `mapstructure:"missing_docs_weight" yaml:"missing_docs_weight"`
	InvalidFraudScore    float64 `mapstructure:"invalid_fraud_score" yaml:"invalid_fraud_score"`
	InvestigationScore   float64 `mapstructure:"investigation_score" yaml:"investigation_score"`
	HighComplexityAmount float64 `mapstructure:"high_complexity_amount" yaml:"high_complexity_amount"`
}

// DefaultConfig returns the production validation parameters.
func DefaultConfig() Config {
	return Config{
		HighValueAmount:      50000,
		HighValueWeight:      0.2,
		LateReportDays:       30,
		LateReportWeight:     0.1,
		MinDocuments:         2,
		MissingDocsWeight:    0.3,
		InvalidFraudScore:    0.7,
		InvestigationScore:   0.5,
		HighComplexityAmount: 100000,
	}
}

// #endregion config

// #region result
// Complexity grades how much human attention a claim needs.
type Complexity string

const (
	ComplexityLow      Complexity = "low"
	ComplexityModerate Complexity = "moderate"
	ComplexityHigh     Complexity = "high"
)

// Metric captures a single validation check result.
type Metric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Pass  bool    `json:"pass"`
}

// Result is the outcome of claim validation.
type Result struct {
	Valid                 bool       `json:"is_valid"`
	FraudRiskScore        float64    `json:"fraud_risk_score"`
	Issues                []string   `json:"validation_issues"`
	RecommendedAction     string     `json:"recommended_action"`
	RequiresInvestigation bool       `json:"requires_investigation"`
	Complexity            Complexity `json:"complexity"`
	Metrics               []Metric   `json:"metrics"`
}

// #endregion result
