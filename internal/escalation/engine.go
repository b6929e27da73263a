// Package escalation decides whether a negotiation must be handed to a human
// and assembles the context the human agent receives.
package escalation

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/claim"
)

// #region engine
// Engine evaluates the trigger table. Immutable after construction and safe
// for concurrent use.
type Engine struct {
	config   Config
	triggers []Trigger
	clock    func() time.Time
}

// NewEngine validates config and builds the trigger table.
func NewEngine(config Config) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		config:   config,
		triggers: config.Triggers(),
		clock:    time.Now,
	}, nil
}

// WithClock overrides the handoff timestamp source.
func (e *Engine) WithClock(clock func() time.Time) *Engine {
	e.clock = clock
	return e
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

// #endregion engine

// #region evaluate

// Evaluate runs every trigger against ectx concurrently. The result does not
// depend on the order in which triggers complete.
func (e *Engine) Evaluate(ctx context.Context, ectx Context) (Evaluation, error) {
	return e.EvaluateOrder(ctx, ectx, e.triggers)
}

// EvaluateOrder evaluates the given triggers, in any order, and reports the
// fired ones in canonical order.
func (e *Engine) EvaluateOrder(ctx context.Context, ectx Context, triggers []Trigger) (Evaluation, error) {
	in := factsFrom(ectx)
	results := make([]outcome, len(CanonicalOrder))

	slots := make([]int, len(triggers))
	for i, t := range triggers {
		slots[i] = canonicalIndex(t.Kind())
		if slots[i] < 0 {
			return Evaluation{}, fmt.Errorf("evaluate: unknown trigger %q", t.Kind())
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, t := range triggers {
		t := t
		slot := slots[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[slot] = t.check(in)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Evaluation{}, fmt.Errorf("evaluate triggers: %w", err)
	}

	eval := Evaluation{TriggeredReasons: []TriggerKind{}}
	severities := severityByKind(triggers)
	for i, r := range results {
		if !r.fired {
			continue
		}
		kind := CanonicalOrder[i]
		eval.TriggeredReasons = append(eval.TriggeredReasons, kind)
		eval.SeverityScore += severities[kind].Points()
		if kind == TriggerLegalThreat {
			eval.LegalIndicators = r.matched
		}
	}
	eval.ShouldEscalate = len(eval.TriggeredReasons) > 0
	eval.EscalationType = escalationType(eval)
	return eval, nil
}

// EvaluateClaim is the simplified entry point for callers holding only a claim,
// an emotional reading and a partial analysis. It uses the same trigger table
// as Evaluate. The settlement amount defaults to the claimed amount and the
// fraud score is the larger of the analysis score and the claim's own score.
func (e *Engine) EvaluateClaim(c claim.ClaimDetails, emotion claim.EmotionalSignal, a Analysis) (ClaimEvaluation, error) {
	amount := a.SettlementAmount
	if amount <= 0 {
		amount = c.EstimatedAmount
	}
	eval, err := e.Evaluate(context.Background(), Context{
		Emotion:          emotion,
		Claim:            c,
		SettlementAmount: amount,
		ComplianceFlags:  a.ComplianceFlags,
		FraudScore:       math.Max(a.FraudScore, c.FraudRiskScore),
		CustomerID:       c.CustomerID,
	})
	if err != nil {
		return ClaimEvaluation{}, err
	}

	labels := make([]string, 0, len(eval.TriggeredReasons))
	for _, r := range eval.TriggeredReasons {
		labels = append(labels, triggerLabels[r])
	}
	return ClaimEvaluation{
		Evaluation:         eval,
		EscalationTriggers: labels,
		UrgencyLevel:       urgency(len(labels)),
		RecommendedAction:  recommendedAction(eval),
	}, nil
}

// #endregion evaluate

// #region handoff

// Handoff assembles the package handed to the human agent.
func (e *Engine) Handoff(ectx Context, eval Evaluation) HandoffPackage {
	customerID := ectx.CustomerID
	if customerID == "" {
		customerID = ectx.Claim.CustomerID
	}
	return HandoffPackage{
		HandoffTimestamp:  e.clock().UTC(),
		EscalationReasons: eval.TriggeredReasons,
		EscalationType:    eval.EscalationType,
		CustomerProfile: CustomerProfile{
			CustomerID:       customerID,
			EmotionalState:   ectx.Emotion,
			StressIndicators: stressIndicators(ectx.Emotion),
		},
		ClaimSummary: ClaimSummary{
			ClaimID:            ectx.Claim.ClaimID,
			ClaimType:          ectx.Claim.ClaimType,
			CurrentOffer:       ectx.SettlementAmount,
			NegotiationHistory: ectx.Conversation,
			ComplianceStatus:   ectx.ComplianceFlags,
		},
		AgentRecommendations: AgentRecommendations{
			SuggestedApproach:  suggestedApproach(eval),
			RiskFactors:        e.riskFactors(ectx, eval),
			SuccessProbability: e.successProbability(ectx, eval),
		},
		RegulatoryNotes: regulatorySummary(ectx.ComplianceFlags),
	}
}

// Clarify builds the reviewer request for an escalated negotiation.
func (e *Engine) Clarify(ectx Context, eval Evaluation) Clarification {
	switch {
	case eval.Has(TriggerRegulatoryViolation):
		return Clarification{
			Kind:                ClarifyVerification,
			UserGuidance:        "CRITICAL: Regulatory compliance issue detected. This claim requires immediate supervisor review and legal department approval before proceeding.",
			RequireConfirmation: true,
		}
	case eval.Has(TriggerLegalThreat):
		return Clarification{
			Kind:                ClarifyAction,
			UserGuidance:        fmt.Sprintf("Legal escalation triggered. Customer mentioned: %s. Transferring to legal-trained senior agent.", strings.Join(legalIndicators(ectx, eval), ", ")),
			ActionURL:           "/transfer-to-legal-specialist",
			RequireConfirmation: true,
		}
	case eval.Has(TriggerExtremeDistress):
		return Clarification{
			Kind:         ClarifyMultipleChoice,
			UserGuidance: "High emotional distress detected. How would you like to proceed?",
			Choices: []string{
				"Transfer to senior empathy-trained agent",
				"Offer immediate supervisor callback",
				"Provide crisis support resources",
				"Continue with enhanced emotional support protocol",
			},
		}
	}
	reasons := make([]string, len(eval.TriggeredReasons))
	for i, r := range eval.TriggeredReasons {
		reasons[i] = string(r)
	}
	return Clarification{
		Kind:         ClarifyAction,
		UserGuidance: fmt.Sprintf("Escalation triggered due to: %s. Human oversight required.", strings.Join(reasons, ", ")),
		ActionURL:    "/escalate-to-supervisor",
	}
}

func (e *Engine) riskFactors(ectx Context, eval Evaluation) []string {
	risks := []string{}
	if ectx.Emotion.StressLevel > 0.8 {
		risks = append(risks, "high_emotional_distress")
	}
	if ectx.SettlementAmount > e.config.HighValueThreshold {
		risks = append(risks, "high_value_claim")
	}
	if len(legalIndicators(ectx, eval)) > 0 {
		risks = append(risks, "potential_legal_action")
	}
	return append(risks, ectx.RiskIndicators...)
}

func (e *Engine) successProbability(ectx Context, eval Evaluation) float64 {
	p := 0.7 - ectx.Emotion.StressLevel*0.3
	if ectx.SettlementAmount > e.config.HighValueThreshold {
		p -= 0.1
	}
	if len(legalIndicators(ectx, eval)) > 0 {
		p -= 0.2
	}
	return math.Max(0.1, math.Min(0.95, p))
}

// #endregion handoff

// #region helpers
var triggerLabels = map[TriggerKind]string{
	TriggerLegalThreat:         "Legal threat detected",
	TriggerExtremeDistress:     "Extreme emotional distress detected",
	TriggerHighValue:           "High-value claim requires review",
	TriggerFraudSuspicion:      "Fraud risk requires investigation",
	TriggerRegulatoryViolation: "Regulatory compliance issue detected",
}

func canonicalIndex(kind TriggerKind) int {
	for i, k := range CanonicalOrder {
		if k == kind {
			return i
		}
	}
	return -1
}

func severityByKind(triggers []Trigger) map[TriggerKind]Severity {
	out := make(map[TriggerKind]Severity, len(triggers))
	for _, t := range triggers {
		out[t.Kind()] = t.Severity()
	}
	return out
}

// escalationType applies the fixed precedence: compliance, legal, emotional
// support, fraud, then general.
func escalationType(eval Evaluation) Type {
	switch {
	case !eval.ShouldEscalate:
		return TypeNone
	case eval.Has(TriggerRegulatoryViolation):
		return TypeCompliance
	case eval.Has(TriggerLegalThreat):
		return TypeLegal
	case eval.Has(TriggerExtremeDistress):
		return TypeEmotionalSupport
	case eval.Has(TriggerFraudSuspicion):
		return TypeFraud
	default:
		return TypeGeneral
	}
}

func urgency(n int) string {
	switch {
	case n >= 3:
		return "critical"
	case n == 2:
		return "high"
	case n == 1:
		return "medium"
	default:
		return "low"
	}
}

func recommendedAction(eval Evaluation) string {
	switch {
	case eval.Has(TriggerLegalThreat):
		return "Immediate supervisor and legal review required"
	case len(eval.TriggeredReasons) >= 2:
		return "Supervisor review required"
	default:
		return "Continue with enhanced monitoring"
	}
}

func suggestedApproach(eval Evaluation) string {
	switch {
	case eval.Has(TriggerExtremeDistress):
		return "Use empathetic communication and provide emotional support"
	case eval.Has(TriggerLegalThreat):
		return "Document all communication and follow legal protocols"
	case eval.Has(TriggerHighValue):
		return "Follow high-value claim procedures and obtain necessary approvals"
	default:
		return "Standard escalation with full context provided"
	}
}

func stressIndicators(s claim.EmotionalSignal) []string {
	indicators := []string{}
	if s.StressLevel > 0.7 {
		indicators = append(indicators, "high_stress")
	}
	for _, emo := range []claim.Emotion{claim.EmotionAnger, claim.EmotionDistress, claim.EmotionAnxiety, claim.EmotionFrustration} {
		if s.DerivedScore(emo) > 0.6 {
			indicators = append(indicators, string(emo))
		}
	}
	return indicators
}

// legalIndicators merges indicators supplied on the context with the keywords
// the legal trigger matched.
func legalIndicators(ectx Context, eval Evaluation) []string {
	seen := map[string]bool{}
	var out []string
	for _, group := range [][]string{ectx.LegalIndicators, eval.LegalIndicators} {
		for _, s := range group {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

func regulatorySummary(flags []string) string {
	if len(flags) == 0 {
		return "No immediate regulatory compliance issues detected."
	}
	return fmt.Sprintf("Compliance issues detected: %s. Requires regulatory review.", strings.Join(flags, ", "))
}

// #endregion helpers
