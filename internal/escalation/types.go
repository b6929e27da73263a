package escalation

import (
	"time"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/claim"
)

// #region severity
// Severity is the weight class of a trigger.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Points converts a severity to its contribution to the severity score.
func (s Severity) Points() int {
	switch s {
	case SeverityMedium:
		return 3
	case SeverityHigh:
		return 5
	case SeverityCritical:
		return 10
	default:
		return 1
	}
}

// #endregion severity

// #region trigger-kind
// TriggerKind names one of the five escalation triggers.
type TriggerKind string

const (
	TriggerLegalThreat         TriggerKind = "legal_threat"
	TriggerExtremeDistress     TriggerKind = "extreme_distress"
	TriggerHighValue           TriggerKind = "high_value"
	TriggerFraudSuspicion      TriggerKind = "fraud_suspicion"
	TriggerRegulatoryViolation TriggerKind = "regulatory_violation"
)

// CanonicalOrder is the order in which triggered reasons are reported.
var CanonicalOrder = []TriggerKind{
	TriggerLegalThreat,
	TriggerExtremeDistress,
	TriggerHighValue,
	TriggerFraudSuspicion,
	TriggerRegulatoryViolation,
}

// #endregion trigger-kind

// #region escalation-type
// Type is the escalation category routed to the human team.
type Type string

const (
	TypeCompliance       Type = "compliance_escalation"
	TypeLegal            Type = "legal_escalation"
	TypeEmotionalSupport Type = "emotional_support_escalation"
	TypeFraud            Type = "fraud_investigation_escalation"
	TypeGeneral          Type = "general_escalation"
	TypeNone             Type = "none"
)

// #endregion escalation-type

// #region config
// Config holds trigger thresholds shared by both evaluation entry points.
type Config struct {
	LegalKeywords      []string `mapstructure:"legal_keywords" yaml:"legal_keywords"`
	DistressThreshold  float64  `mapstructure:"distress_threshold" yaml:"distress_threshold"`
	AngerThreshold     float64  `mapstructure:"anger_threshold" yaml:"anger_threshold"`
	HighValueThreshold float64  `mapstructure:"high_value_threshold" yaml:"high_value_threshold"`
	FraudThreshold     float64  `mapstructure:"fraud_threshold" yaml:"fraud_threshold"`
}

// DefaultConfig returns the production trigger thresholds.
func DefaultConfig() Config {
	return Config{
		LegalKeywords:      []string{"lawyer", "sue", "court", "legal action", "attorney", "litigation"},
		DistressThreshold:  0.8,
		AngerThreshold:     0.9,
		HighValueThreshold: 50000,
		FraudThreshold:     0.7,
	}
}

// #endregion config

// #region context
// Context is everything one evaluation looks at. Built fresh per call.
type Context struct {
	Conversation     []claim.Turn          `json:"conversation_history"`
	Emotion          claim.EmotionalSignal `json:"emotion_analysis"`
	Claim            claim.ClaimDetails    `json:"claim_details"`
	SettlementAmount float64               `json:"settlement_amount"`
	LegalIndicators  []string              `json:"legal_indicators"`
	ComplianceFlags  []string              `json:"compliance_flags"`
	FraudScore       float64               `json:"fraud_score"`
	RiskIndicators   []string              `json:"risk_indicators"`
	CustomerID       string                `json:"customer_id"`
}

// Text is the conversation and transcript as one string, used for keyword matching.
func (c Context) Text() string {
	text := claim.JoinTurns(c.Conversation)
	if c.Emotion.Transcript != "" {
		if text != "" {
			text += " "
		}
		text += c.Emotion.Transcript
	}
	return text
}

// Analysis is the partial result the simplified entry point receives.
type Analysis struct {
	FraudScore       float64  `json:"fraud_score"`
	ComplianceFlags  []string `json:"compliance_flags"`
	SettlementAmount float64  `json:"settlement_amount"`
}

// #endregion context

// #region evaluation
// Evaluation is the escalation decision. ShouldEscalate is true exactly when
// TriggeredReasons is non-empty.
type Evaluation struct {
	ShouldEscalate   bool          `json:"should_escalate"`
	TriggeredReasons []TriggerKind `json:"triggered_reasons"`
	SeverityScore    int           `json:"severity_score"`
	EscalationType   Type          `json:"escalation_type"`
	LegalIndicators  []string      `json:"legal_indicators,omitempty"`
}

// Has reports whether kind fired.
func (e Evaluation) Has(kind TriggerKind) bool {
	for _, r := range e.TriggeredReasons {
		if r == kind {
			return true
		}
	}
	return false
}

// ClaimEvaluation is the simplified entry point's result.
type ClaimEvaluation struct {
	Evaluation
	EscalationTriggers []string `json:"escalation_triggers"`
	UrgencyLevel       string   `json:"urgency_level"`
	RecommendedAction  string   `json:"recommended_action"`
}

// #endregion evaluation

// #region handoff
// HandoffPackage preserves context for the human agent taking over.
type HandoffPackage struct {
	HandoffTimestamp     time.Time            `json:"handoff_timestamp"`
	EscalationReasons    []TriggerKind        `json:"escalation_reasons"`
	EscalationType       Type                 `json:"escalation_type"`
	CustomerProfile      CustomerProfile      `json:"customer_profile"`
	ClaimSummary         ClaimSummary         `json:"claim_summary"`
	AgentRecommendations AgentRecommendations `json:"agent_recommendations"`
	RegulatoryNotes      string               `json:"regulatory_notes"`
}

type CustomerProfile struct {
	CustomerID       string                `json:"customer_id"`
	EmotionalState   claim.EmotionalSignal `json:"emotional_state"`
	StressIndicators []string              `json:"stress_indicators"`
}

type ClaimSummary struct {
	ClaimID            string       `json:"claim_id"`
	ClaimType          string       `json:"claim_type"`
	CurrentOffer       float64      `json:"current_offer"`
	NegotiationHistory []claim.Turn `json:"negotiation_history"`
	ComplianceStatus   []string     `json:"compliance_status"`
}

type AgentRecommendations struct {
	SuggestedApproach  string   `json:"suggested_approach"`
	RiskFactors        []string `json:"risk_factors"`
	SuccessProbability float64  `json:"success_probability"`
}

// #endregion handoff

// #region clarification
// ClarificationKind says what the human reviewer is asked to do.
type ClarificationKind string

const (
	ClarifyVerification   ClarificationKind = "user_verification"
	ClarifyAction         ClarificationKind = "action"
	ClarifyMultipleChoice ClarificationKind = "multiple_choice"
)

// Clarification is the request put in front of a human reviewer when a
// negotiation escalates.
type Clarification struct {
	Kind                ClarificationKind `json:"kind"`
	UserGuidance        string            `json:"user_guidance"`
	ActionURL           string            `json:"action_url,omitempty"`
	Choices             []string          `json:"choices,omitempty"`
	RequireConfirmation bool              `json:"require_confirmation"`
}

// #endregion clarification
