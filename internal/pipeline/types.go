package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/claim"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/compliance"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/emotion"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/escalation"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/session"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/settlement"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/validation"
)

// #region state

// State is a position in the negotiation state machine.
type State string

const (
	StateIntake              State = "INTAKE"
	StateEmotionAnalyzed     State = "EMOTION_ANALYZED"
	StatePolicyVerified      State = "POLICY_VERIFIED"
	StateClaimValidated      State = "CLAIM_VALIDATED"
	StatePrecedentAnalyzed   State = "PRECEDENT_ANALYZED"
	StateComplianceChecked   State = "COMPLIANCE_CHECKED"
	StateSettlementGenerated State = "SETTLEMENT_GENERATED"
	StateEscalationEvaluated State = "ESCALATION_EVALUATED"
	StateAudited             State = "AUDITED"

	StateNegotiationComplete State = "NEGOTIATION_COMPLETE"
	StateEscalated           State = "ESCALATED"
	StateError               State = "ERROR"
)

// Status is the caller-facing outcome of a negotiation.
type Status string

const (
	StatusComplete   Status = "negotiation_complete"
	StatusEscalation Status = "requires_escalation"
	StatusError      Status = "error"
)

// FallbackEscalate is the recommended action whenever a negotiation errors.
const FallbackEscalate = "escalate_to_human"

// #endregion state

// #region config

// Config holds orchestration settings.
type Config struct {
	DefaultJurisdiction string        `mapstructure:"default_jurisdiction" yaml:"default_jurisdiction"`
	Budget              time.Duration `mapstructure:"budget" yaml:"budget"`
	UserID              string        `mapstructure:"user_id" yaml:"user_id"`
}

// DefaultConfig returns a 30 second budget and California as the default
// jurisdiction.
func DefaultConfig() Config {
	return Config{
		DefaultJurisdiction: "CA",
		Budget:              30 * time.Second,
		UserID:              "claim_negotiator",
	}
}

// Validate fails fast on settings the pipeline cannot run without.
func (c Config) Validate() error {
	if c.DefaultJurisdiction == "" {
		return &claim.ConfigurationError{Key: "pipeline.default_jurisdiction"}
	}
	if c.Budget <= 0 {
		return &claim.ConfigurationError{Key: "pipeline.budget", Detail: fmt.Sprintf("must be positive, got %s", c.Budget)}
	}
	return nil
}

// #endregion config

// #region request

// Request is one negotiation turn. Emotion is nil when the caller has no
// reading; the pipeline then asks the emotion service, if one is wired, or
// proceeds with the neutral signal.
type Request struct {
	Claim            claim.ClaimDetails     `json:"claim"`
	Emotion          *claim.EmotionalSignal `json:"emotion,omitempty"`
	Conversation     []claim.Turn           `json:"conversation,omitempty"`
	Approvals        []string               `json:"approvals,omitempty"`
	Documentation    []string               `json:"documentation,omitempty"`
	DamageAssessment float64                `json:"damage_assessment,omitempty"`
	PlanRunID        string                 `json:"plan_run_id,omitempty"`
	UserID           string                 `json:"user_id,omitempty"`

	// InputErrors are decoding problems found before the request was built,
	// recorded as risk indicators at intake.
	InputErrors []*claim.InputError `json:"-"`
}

// #endregion request

// #region result

// Result is the terminal outcome of Negotiate.
type Result struct {
	Status               Status                    `json:"status"`
	AuditTrailID         string                    `json:"audit_trail_id"`
	SettlementOffer      *settlement.Recommendation `json:"settlement_offer,omitempty"`
	EscalationEvaluation *escalation.Evaluation    `json:"escalation_evaluation,omitempty"`
	ComplianceStatus     *compliance.Report        `json:"compliance_status,omitempty"`
	ClaimValidation      *validation.Result        `json:"claim_validation,omitempty"`
	EmotionalAnalysis    *claim.EmotionalSignal    `json:"emotional_analysis,omitempty"`
	ResponseStrategy     *emotion.Strategy         `json:"response_strategy,omitempty"`
	Handoff              *escalation.HandoffPackage `json:"handoff,omitempty"`
	Clarification        *escalation.Clarification `json:"clarification,omitempty"`
	RiskIndicators       []string                  `json:"risk_indicators"`
	StateHistory         []State                   `json:"state_history"`
	Message              string                    `json:"message"`
	FallbackAction       string                    `json:"fallback_action,omitempty"`
	FailedStage          State                     `json:"failed_stage,omitempty"`
	Session              *session.Summary          `json:"session,omitempty"`
}

// #endregion result

// #region stage-error

// StageError attributes a fatal failure to the stage and input that caused it.
type StageError struct {
	Stage State
	Input string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s (%s): %v", e.Stage, e.Input, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// #endregion stage-error

// #region collaborators

// EmotionAnalyzer fetches a reading when the request carries none.
// *emotion.Client implements it.
type EmotionAnalyzer interface {
	Analyze(ctx context.Context, req emotion.Request) (claim.EmotionalSignal, []*claim.InputError, error)
}

// #endregion collaborators
