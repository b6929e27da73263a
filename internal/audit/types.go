package audit

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrChainBroken    = errors.New("audit hash chain is broken")
	ErrDuplicateEntry = errors.New("audit entry id already recorded")
)

// #region action-type
// ActionType names what an audit entry records.
type ActionType string

const (
	ActionIntake               ActionType = "intake"
	ActionEmotionAnalysis      ActionType = "emotion_analysis"
	ActionPolicyVerification   ActionType = "policy_verification"
	ActionClaimValidation      ActionType = "claim_validation"
	ActionPrecedentAnalysis    ActionType = "precedent_analysis"
	ActionComplianceCheck      ActionType = "compliance_check"
	ActionSettlementOffer      ActionType = "settlement_offer"
	ActionEscalationEvaluation ActionType = "escalation_evaluation"
	ActionAuditReview          ActionType = "audit_review"
	ActionPipelineError        ActionType = "pipeline_error"
	ActionPipelineTimeout      ActionType = "pipeline_timeout"
)

// #endregion action-type

// #region entry
// Entry is one immutable audit record. Entries are partitioned by PlanRunID
// and chained within a partition: PreviousHash is the EntryHash of the entry
// with the preceding Sequence, or "genesis" for the first.
type Entry struct {
	EntryID         string          `json:"entry_id"`
	Timestamp       time.Time       `json:"timestamp"`
	ActionType      ActionType      `json:"action_type"`
	ToolName        string          `json:"tool_name"`
	Arguments       json.RawMessage `json:"arguments"`
	Result          json.RawMessage `json:"result"`
	UserID          string          `json:"user_id"`
	PlanRunID       string          `json:"plan_run_id"`
	StepIndex       int             `json:"step_index"`
	ComplianceFlags []string        `json:"compliance_flags"`
	RiskIndicators  []string        `json:"risk_indicators"`
	Justification   string          `json:"justification"`

	Sequence     uint64 `json:"sequence"`
	PreviousHash string `json:"previous_hash"`
	EntryHash    string `json:"entry_hash"`
}

// Arguments are the fields of Entry.Arguments the compliance re-check reads.
type Arguments struct {
	Amount        float64  `json:"amount,omitempty"`
	Approvals     []string `json:"approvals,omitempty"`
	Complexity    string   `json:"complexity,omitempty"`
	Documentation []string `json:"documentation,omitempty"`
}

// #endregion entry

// #region config
// Config holds the rules of the independent compliance re-check.
type Config struct {
	ApprovalThreshold         float64  `mapstructure:"approval_threshold" yaml:"approval_threshold"`
	RequiredApprovals         []string `mapstructure:"required_approvals" yaml:"required_approvals"`
	ComplexClaimDocumentation []string `mapstructure:"complex_claim_documentation" yaml:"complex_claim_documentation"`
}

// DefaultConfig returns the production audit rules.
func DefaultConfig() Config {
	return Config{
		ApprovalThreshold:         25000,
		RequiredApprovals:         []string{"supervisor_approval", "compliance_review"},
		ComplexClaimDocumentation: []string{"detailed_justification", "legal_review"},
	}
}

// #endregion config

// #region report
// Report is the compliance report for one negotiation. It is derived from the
// stored entries on demand and never stored itself.
type Report struct {
	ReportID             string    `json:"report_id"`
	PlanRunID            string    `json:"plan_run_id"`
	GeneratedAt          time.Time `json:"generated_at"`
	TotalActions         int       `json:"total_actions"`
	ComplianceViolations []string  `json:"compliance_violations"`
	HighRiskActions      []string  `json:"high_risk_actions"`
	RegulatoryNotes      []string  `json:"regulatory_notes"`
	Summary              string    `json:"summary"`
}

// #endregion report
