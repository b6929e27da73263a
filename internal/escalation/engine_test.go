package escalation

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/claim"
)

// #region helpers
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultConfig())
	require.NoError(t, err)
	return e
}

type scenario struct {
	name       string
	claim      claim.ClaimDetails
	emotion    claim.EmotionalSignal
	escalate   bool
	reasons    []TriggerKind
	escalation Type
}

// scenarios are shared by both entry points.
func scenarios() []scenario {
	return []scenario{
		{
			name:       "low value calm customer",
			claim:      claim.ClaimDetails{ClaimID: "CLM-1", EstimatedAmount: 10000},
			emotion:    claim.EmotionalSignal{PrimaryEmotion: claim.EmotionNeutral, StressLevel: 0.2},
			escalate:   false,
			reasons:    []TriggerKind{},
			escalation: TypeNone,
		},
		{
			name:       "distressed customer",
			claim:      claim.ClaimDetails{ClaimID: "CLM-2", EstimatedAmount: 25000},
			emotion:    claim.EmotionalSignal{PrimaryEmotion: claim.EmotionDistress, StressLevel: 0.9},
			escalate:   true,
			reasons:    []TriggerKind{TriggerExtremeDistress},
			escalation: TypeEmotionalSupport,
		},
		{
			name:       "high value neutral",
			claim:      claim.ClaimDetails{ClaimID: "CLM-3", EstimatedAmount: 150000},
			emotion:    claim.NeutralSignal(),
			escalate:   true,
			reasons:    []TriggerKind{TriggerHighValue},
			escalation: TypeGeneral,
		},
		{
			name:       "legal threat",
			claim:      claim.ClaimDetails{ClaimID: "CLM-4", EstimatedAmount: 5000},
			emotion:    claim.EmotionalSignal{PrimaryEmotion: claim.EmotionAnger, StressLevel: 0.5, Transcript: "I need to call my lawyer"},
			escalate:   true,
			reasons:    []TriggerKind{TriggerLegalThreat},
			escalation: TypeLegal,
		},
	}
}

// #endregion helpers

// #region scenario-tests
func TestEvaluate_Scenarios(t *testing.T) {
	e := newTestEngine(t)
	for _, sc := range scenarios() {
		t.Run(sc.name, func(t *testing.T) {
			eval, err := e.Evaluate(context.Background(), Context{
				Emotion:          sc.emotion,
				Claim:            sc.claim,
				SettlementAmount: sc.claim.EstimatedAmount,
			})
			require.NoError(t, err)
			assert.Equal(t, sc.escalate, eval.ShouldEscalate)
			assert.Equal(t, sc.reasons, eval.TriggeredReasons)
			assert.Equal(t, sc.escalation, eval.EscalationType)
		})
	}
}

func TestEvaluateClaim_Scenarios(t *testing.T) {
	e := newTestEngine(t)
	for _, sc := range scenarios() {
		t.Run(sc.name, func(t *testing.T) {
			ce, err := e.EvaluateClaim(sc.claim, sc.emotion, Analysis{})
			require.NoError(t, err)
			assert.Equal(t, sc.escalate, ce.ShouldEscalate)
			assert.Equal(t, sc.reasons, ce.TriggeredReasons)
			assert.Equal(t, sc.escalation, ce.EscalationType)
			assert.Len(t, ce.EscalationTriggers, len(sc.reasons))
		})
	}
}

func TestEvaluate_LegalTakesPrecedenceOverDistress(t *testing.T) {
	e := newTestEngine(t)
	eval, err := e.Evaluate(context.Background(), Context{
		Conversation: []claim.Turn{
			{Speaker: "customer", Text: "This is unacceptable."},
			{Speaker: "customer", Text: "My ATTORNEY will hear about this, see you in court"},
		},
		Emotion: claim.EmotionalSignal{PrimaryEmotion: claim.EmotionAnger, StressLevel: 0.95},
	})
	require.NoError(t, err)

	assert.Equal(t, []TriggerKind{TriggerLegalThreat, TriggerExtremeDistress}, eval.TriggeredReasons)
	assert.Equal(t, 10, eval.SeverityScore)
	assert.Equal(t, TypeLegal, eval.EscalationType)
	assert.Equal(t, []string{"court", "attorney"}, eval.LegalIndicators)
}

func TestEvaluate_RegulatoryViolationHasTopPrecedence(t *testing.T) {
	e := newTestEngine(t)
	eval, err := e.Evaluate(context.Background(), Context{
		Emotion:          claim.EmotionalSignal{Transcript: "I will sue"},
		SettlementAmount: 60000,
		FraudScore:       0.9,
		ComplianceFlags:  []string{"Settlement exceeds CA cap"},
	})
	require.NoError(t, err)

	assert.Equal(t, []TriggerKind{TriggerLegalThreat, TriggerHighValue, TriggerFraudSuspicion, TriggerRegulatoryViolation}, eval.TriggeredReasons)
	assert.Equal(t, 5+3+5+10, eval.SeverityScore)
	assert.Equal(t, TypeCompliance, eval.EscalationType)
}

func TestEvaluate_FraudOnly(t *testing.T) {
	e := newTestEngine(t)
	eval, err := e.Evaluate(context.Background(), Context{FraudScore: 0.71})
	require.NoError(t, err)
	assert.Equal(t, TypeFraud, eval.EscalationType)
	assert.Equal(t, 5, eval.SeverityScore)
}

func TestEvaluate_ExplicitAngerScore(t *testing.T) {
	e := newTestEngine(t)
	eval, err := e.Evaluate(context.Background(), Context{
		Emotion: claim.EmotionalSignal{
			PrimaryEmotion: claim.EmotionFrustration,
			StressLevel:    0.5,
			EmotionScores:  map[string]float64{"anger": 0.95},
		},
	})
	require.NoError(t, err)
	assert.True(t, eval.Has(TriggerExtremeDistress))
}

func TestEvaluate_CancelledContext(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Evaluate(ctx, Context{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEvaluateClaim_UrgencyAndAction(t *testing.T) {
	e := newTestEngine(t)

	ce, err := e.EvaluateClaim(
		claim.ClaimDetails{EstimatedAmount: 80000, FraudRiskScore: 0.8},
		claim.NeutralSignal(),
		Analysis{},
	)
	require.NoError(t, err)
	assert.Equal(t, "high", ce.UrgencyLevel)
	assert.Equal(t, "Supervisor review required", ce.RecommendedAction)
	assert.Equal(t, []string{"High-value claim requires review", "Fraud risk requires investigation"}, ce.EscalationTriggers)

	ce, err = e.EvaluateClaim(
		claim.ClaimDetails{EstimatedAmount: 80000},
		claim.EmotionalSignal{PrimaryEmotion: claim.EmotionDistress, StressLevel: 0.95, Transcript: "my lawyer says"},
		Analysis{ComplianceFlags: []string{"missing disclosure"}},
	)
	require.NoError(t, err)
	assert.Equal(t, "critical", ce.UrgencyLevel)
	assert.Equal(t, "Immediate supervisor and legal review required", ce.RecommendedAction)

	ce, err = e.EvaluateClaim(claim.ClaimDetails{EstimatedAmount: 100}, claim.NeutralSignal(), Analysis{})
	require.NoError(t, err)
	assert.Equal(t, "low", ce.UrgencyLevel)
	assert.Equal(t, "Continue with enhanced monitoring", ce.RecommendedAction)
}

func TestEvaluateClaim_SettlementAmountOverridesClaim(t *testing.T) {
	e := newTestEngine(t)
	ce, err := e.EvaluateClaim(
		claim.ClaimDetails{EstimatedAmount: 150000},
		claim.NeutralSignal(),
		Analysis{SettlementAmount: 40000},
	)
	require.NoError(t, err)
	assert.False(t, ce.ShouldEscalate)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LegalKeywords = nil
	_, err := NewEngine(cfg)

	var ce *claim.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "escalation.legal_keywords", ce.Key)
}

// #endregion scenario-tests

// #region handoff-tests
func TestHandoff(t *testing.T) {
	at := time.Date(2026, 3, 2, 15, 4, 5, 0, time.UTC)
	e := newTestEngine(t).WithClock(func() time.Time { return at })

	ectx := Context{
		Conversation:     []claim.Turn{{Speaker: "customer", Text: "I'll get a lawyer"}},
		Emotion:          claim.EmotionalSignal{PrimaryEmotion: claim.EmotionAnger, StressLevel: 0.9, EmotionScores: map[string]float64{"anxiety": 0.7}},
		Claim:            claim.ClaimDetails{ClaimID: "CLM-9", ClaimType: "auto_collision", CustomerID: "CUST-9"},
		SettlementAmount: 60000,
		ComplianceFlags:  []string{"cap exceeded"},
		RiskIndicators:   []string{"no_precedent_data"},
	}
	eval, err := e.Evaluate(context.Background(), ectx)
	require.NoError(t, err)

	pkg := e.Handoff(ectx, eval)

	assert.Equal(t, at, pkg.HandoffTimestamp)
	assert.Equal(t, eval.TriggeredReasons, pkg.EscalationReasons)
	assert.Equal(t, "CUST-9", pkg.CustomerProfile.CustomerID)
	assert.Equal(t, []string{"high_stress", "anger", "anxiety"}, pkg.CustomerProfile.StressIndicators)
	assert.Equal(t, 60000.0, pkg.ClaimSummary.CurrentOffer)
	assert.Equal(t, "CLM-9", pkg.ClaimSummary.ClaimID)
	assert.Equal(t, "Document all communication and follow legal protocols", pkg.AgentRecommendations.SuggestedApproach)
	assert.Equal(t, []string{"high_emotional_distress", "high_value_claim", "potential_legal_action", "no_precedent_data"}, pkg.AgentRecommendations.RiskFactors)
	assert.InDelta(t, 0.13, pkg.AgentRecommendations.SuccessProbability, 1e-9) // 0.7 - 0.27 - 0.1 - 0.2
	assert.Equal(t, "Compliance issues detected: cap exceeded. Requires regulatory review.", pkg.RegulatoryNotes)
}

func TestHandoff_SuccessProbabilityCalm(t *testing.T) {
	e := newTestEngine(t)
	ectx := Context{Emotion: claim.EmotionalSignal{StressLevel: 0.5}, SettlementAmount: 1000}
	eval, err := e.Evaluate(context.Background(), ectx)
	require.NoError(t, err)

	pkg := e.Handoff(ectx, eval)
	assert.InDelta(t, 0.55, pkg.AgentRecommendations.SuccessProbability, 1e-9)
	assert.Equal(t, "Standard escalation with full context provided", pkg.AgentRecommendations.SuggestedApproach)
	assert.Equal(t, "No immediate regulatory compliance issues detected.", pkg.RegulatoryNotes)
	assert.Empty(t, pkg.AgentRecommendations.RiskFactors)
}

func TestClarify(t *testing.T) {
	e := newTestEngine(t)

	c := e.Clarify(Context{}, Evaluation{ShouldEscalate: true, TriggeredReasons: []TriggerKind{TriggerRegulatoryViolation}})
	assert.Equal(t, ClarifyVerification, c.Kind)
	assert.True(t, c.RequireConfirmation)

	c = e.Clarify(Context{LegalIndicators: []string{"lawyer"}}, Evaluation{ShouldEscalate: true, TriggeredReasons: []TriggerKind{TriggerLegalThreat}})
	assert.Equal(t, ClarifyAction, c.Kind)
	assert.Contains(t, c.UserGuidance, "Customer mentioned: lawyer.")
	assert.Equal(t, "/transfer-to-legal-specialist", c.ActionURL)

	c = e.Clarify(Context{}, Evaluation{ShouldEscalate: true, TriggeredReasons: []TriggerKind{TriggerExtremeDistress}})
	assert.Equal(t, ClarifyMultipleChoice, c.Kind)
	assert.Len(t, c.Choices, 4)

	c = e.Clarify(Context{}, Evaluation{ShouldEscalate: true, TriggeredReasons: []TriggerKind{TriggerHighValue, TriggerFraudSuspicion}})
	assert.Equal(t, "Escalation triggered due to: high_value, fraud_suspicion. Human oversight required.", c.UserGuidance)
	assert.Equal(t, "/escalate-to-supervisor", c.ActionURL)
}

// #endregion handoff-tests

// #region properties

// permutation returns the n-th permutation (mod 5!) of the trigger table.
func permutation(triggers []Trigger, n int) []Trigger {
	pool := append([]Trigger(nil), triggers...)
	out := make([]Trigger, 0, len(pool))
	for len(pool) > 0 {
		i := n % len(pool)
		n /= len(pool)
		out = append(out, pool[i])
		pool = append(pool[:i], pool[i+1:]...)
	}
	return out
}

func genContext() gopter.Gen {
	return gopter.CombineGens(
		gen.Float64Range(0, 1),
		gen.IntRange(0, 5),
		gen.Float64Range(0, 200000),
		gen.Float64Range(0, 1),
		gen.Bool(),
		gen.Bool(),
	).Map(func(vals []interface{}) Context {
		emotions := []claim.Emotion{
			claim.EmotionNeutral, claim.EmotionAnger, claim.EmotionFrustration,
			claim.EmotionSadness, claim.EmotionAnxiety, claim.EmotionDistress,
		}
		c := Context{
			Emotion: claim.EmotionalSignal{
				PrimaryEmotion: emotions[vals[1].(int)],
				StressLevel:    vals[0].(float64),
			},
			SettlementAmount: vals[2].(float64),
			FraudScore:       vals[3].(float64),
		}
		if vals[4].(bool) {
			c.Conversation = []claim.Turn{{Text: "I am calling my attorney"}}
		}
		if vals[5].(bool) {
			c.ComplianceFlags = []string{"violation"}
		}
		return c
	})
}

func TestEvaluate_Properties(t *testing.T) {
	e := newTestEngine(t)
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("should_escalate iff reasons non-empty", prop.ForAll(
		func(c Context) bool {
			eval, err := e.Evaluate(context.Background(), c)
			if err != nil {
				return false
			}
			return eval.ShouldEscalate == (len(eval.TriggeredReasons) > 0) &&
				(eval.EscalationType == TypeNone) == !eval.ShouldEscalate
		},
		genContext(),
	))

	properties.Property("trigger order does not change the result", prop.ForAll(
		func(c Context, n int) bool {
			want, err := e.Evaluate(context.Background(), c)
			if err != nil {
				return false
			}
			got, err := e.EvaluateOrder(context.Background(), c, permutation(e.triggers, n))
			if err != nil {
				return false
			}
			return assert.ObjectsAreEqual(want, got)
		},
		genContext(),
		gen.IntRange(0, 119),
	))

	properties.Property("both entry points agree", prop.ForAll(
		func(c Context) bool {
			c.Conversation = nil
			c.Emotion.Transcript = "I am calling my attorney"
			full, err := e.Evaluate(context.Background(), c)
			if err != nil {
				return false
			}
			simple, err := e.EvaluateClaim(
				claim.ClaimDetails{EstimatedAmount: c.SettlementAmount},
				c.Emotion,
				Analysis{FraudScore: c.FraudScore, ComplianceFlags: c.ComplianceFlags},
			)
			if err != nil {
				return false
			}
			return assert.ObjectsAreEqual(full, simple.Evaluation)
		},
		genContext(),
	))

	properties.TestingRun(t)
}

// #endregion properties
