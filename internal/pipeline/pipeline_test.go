package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/audit"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/claim"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/compliance"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/emotion"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/escalation"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/normalize"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/records"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/settlement"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/validation"
)

// #region fixtures

var wednesday = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

func testDeps(t *testing.T) Deps {
	t.Helper()
	n, err := normalize.New("CA")
	require.NoError(t, err)
	comp, err := compliance.NewEngine(compliance.DefaultConfig())
	require.NoError(t, err)
	sett, err := settlement.NewEngine(settlement.DefaultConfig())
	require.NoError(t, err)
	esc, err := escalation.NewEngine(escalation.DefaultConfig())
	require.NoError(t, err)
	resp, err := emotion.NewResponder(emotion.DefaultResponses())
	require.NoError(t, err)

	store := records.NewFileStore(records.Dataset{
		Policies: []claim.PolicyRecord{
			{PolicyNumber: "POL-1", CustomerID: "CUST-1", PolicyType: "auto", CoverageAmount: 200000, Deductible: 500, Status: "active"},
			{PolicyNumber: "POL-NEG", CustomerID: "CUST-1", CoverageAmount: -1, Status: "active"},
		},
	})

	clock := func() time.Time { return wednesday }
	return Deps{
		Normalizer: n,
		Compliance: comp.WithClock(clock),
		Settlement: sett,
		Escalation: esc.WithClock(clock),
		Validator:  validation.NewValidator(validation.DefaultConfig()).WithClock(clock),
		Responder:  resp,
		Audit:      audit.NewManager(audit.NewMemoryStore(), audit.DefaultConfig(), zerolog.Nop()).WithClock(clock),
		Policies:   store,
		Precedents: store,
	}
}

func newTestPipeline(t *testing.T, deps Deps, mutate ...func(*Config)) *Pipeline {
	t.Helper()
	config := DefaultConfig()
	for _, m := range mutate {
		m(&config)
	}
	p, err := New(deps, config, zerolog.Nop())
	require.NoError(t, err)
	return p
}

func claimOf(claimType string, amount float64) claim.ClaimDetails {
	return claim.ClaimDetails{
		ClaimID:             "CLM-1",
		PolicyNumber:        "POL-1",
		ClaimType:           claimType,
		EstimatedAmount:     amount,
		CustomerID:          "CUST-1",
		SupportingDocuments: []string{"police_report.pdf", "photos.zip"},
		Jurisdiction:        "CA",
	}
}

func signal(e claim.Emotion, stress float64) *claim.EmotionalSignal {
	return &claim.EmotionalSignal{PrimaryEmotion: e, StressLevel: stress, Confidence: 0.8}
}

func actions(entries []audit.Entry) []audit.ActionType {
	out := make([]audit.ActionType, len(entries))
	for i, e := range entries {
		out[i] = e.ActionType
	}
	return out
}

var fullTrail = []audit.ActionType{
	audit.ActionIntake,
	audit.ActionEmotionAnalysis,
	audit.ActionPolicyVerification,
	audit.ActionClaimValidation,
	audit.ActionPrecedentAnalysis,
	audit.ActionComplianceCheck,
	audit.ActionSettlementOffer,
	audit.ActionEscalationEvaluation,
	audit.ActionAuditReview,
}

var stageHistory = []State{
	StateIntake,
	StateEmotionAnalyzed,
	StatePolicyVerified,
	StateClaimValidated,
	StatePrecedentAnalyzed,
	StateComplianceChecked,
	StateSettlementGenerated,
	StateEscalationEvaluated,
	StateAudited,
}

type blockingPrecedents struct {
	onEnter func()
}

func (b blockingPrecedents) Precedents(ctx context.Context, _ string) ([]claim.PrecedentCase, error) {
	if b.onEnter != nil {
		b.onEnter()
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

type panickingPolicies struct{}

func (panickingPolicies) Policy(context.Context, string) (claim.PolicyRecord, error) {
	panic("policy index corrupted")
}

type failingAnalyzer struct{}

func (failingAnalyzer) Analyze(context.Context, emotion.Request) (claim.EmotionalSignal, []*claim.InputError, error) {
	return claim.EmotionalSignal{}, nil, errors.New("connection refused")
}

type stubAnalyzer struct {
	reply claim.EmotionalSignal
	seen  emotion.Request
}

func (s *stubAnalyzer) Analyze(_ context.Context, req emotion.Request) (claim.EmotionalSignal, []*claim.InputError, error) {
	s.seen = req
	return s.reply, nil, nil
}

// #endregion fixtures

// #region scenarios

func TestNegotiate_LowValueCalmClaimCompletes(t *testing.T) {
	deps := testDeps(t)
	p := newTestPipeline(t, deps)

	res := p.Negotiate(context.Background(), Request{
		Claim:   claimOf("auto_collision", 10000),
		Emotion: signal(claim.EmotionNeutral, 0.2),
	})

	require.Equal(t, StatusComplete, res.Status, res.Message)
	assert.False(t, res.EscalationEvaluation.ShouldEscalate)
	assert.Empty(t, res.EscalationEvaluation.TriggeredReasons)
	assert.InDelta(t, 8500, res.SettlementOffer.RecommendedAmount, 1e-9)
	assert.True(t, res.ComplianceStatus.Compliant)
	assert.True(t, res.ClaimValidation.Valid)
	assert.Nil(t, res.Handoff)
	assert.Equal(t, append(append([]State{}, stageHistory...), StateNegotiationComplete), res.StateHistory)
	assert.Contains(t, res.RiskIndicators, "no_precedent_data")
	assert.Contains(t, res.Message, "$8,500")
	assert.Empty(t, res.FallbackAction)

	entries, err := deps.Audit.Entries(context.Background(), res.AuditTrailID)
	require.NoError(t, err)
	assert.Equal(t, fullTrail, actions(entries))
	for i, e := range entries {
		assert.Equal(t, i, e.StepIndex)
		assert.Equal(t, "claim_negotiator", e.UserID)
	}
	assert.NoError(t, deps.Audit.Verify(context.Background(), res.AuditTrailID))
}

func TestNegotiate_DistressEscalates(t *testing.T) {
	p := newTestPipeline(t, testDeps(t))

	res := p.Negotiate(context.Background(), Request{
		Claim:   claimOf("auto_collision", 25000),
		Emotion: signal(claim.EmotionDistress, 0.9),
	})

	require.Equal(t, StatusEscalation, res.Status, res.Message)
	assert.Contains(t, res.EscalationEvaluation.TriggeredReasons, escalation.TriggerExtremeDistress)
	assert.Equal(t, escalation.TypeEmotionalSupport, res.EscalationEvaluation.EscalationType)
	require.NotNil(t, res.Clarification)
	assert.Equal(t, escalation.ClarifyMultipleChoice, res.Clarification.Kind)
	assert.Equal(t, res.Clarification.UserGuidance, res.Message)
	require.NotNil(t, res.Handoff)
	assert.Equal(t, "CLM-1", res.Handoff.ClaimSummary.ClaimID)
	assert.Equal(t, StateEscalated, res.StateHistory[len(res.StateHistory)-1])
}

func TestNegotiate_HighValueOnly(t *testing.T) {
	p := newTestPipeline(t, testDeps(t))

	res := p.Negotiate(context.Background(), Request{
		Claim:   claimOf("home_fire", 150000),
		Emotion: &claim.EmotionalSignal{PrimaryEmotion: claim.EmotionNeutral},
	})

	require.Equal(t, StatusEscalation, res.Status, res.Message)
	assert.Equal(t, []escalation.TriggerKind{escalation.TriggerHighValue}, res.EscalationEvaluation.TriggeredReasons)
	assert.Equal(t, escalation.TypeGeneral, res.EscalationEvaluation.EscalationType)
	assert.Equal(t, compliance.RiskHigh, res.ComplianceStatus.RiskLevel)
	assert.Contains(t, res.RiskIndicators, "compliance_risk_high")
}

func TestNegotiate_FallbackRisksOnlyReachTheHandoff(t *testing.T) {
	p := newTestPipeline(t, testDeps(t))

	calm := p.Negotiate(context.Background(), Request{
		Claim:   claimOf("auto_collision", 10000),
		Emotion: signal(claim.EmotionNeutral, 0.1),
	})
	require.Equal(t, StatusComplete, calm.Status, calm.Message)
	assert.Contains(t, calm.RiskIndicators, "no_precedent_data")
	assert.Empty(t, calm.EscalationEvaluation.TriggeredReasons)

	high := p.Negotiate(context.Background(), Request{
		Claim:   claimOf("home_fire", 150000),
		Emotion: signal(claim.EmotionNeutral, 0.1),
	})
	require.Equal(t, StatusEscalation, high.Status, high.Message)
	require.NotNil(t, high.Handoff)
	assert.Contains(t, high.Handoff.AgentRecommendations.RiskFactors, "no_precedent_data")
	assert.Contains(t, high.Handoff.AgentRecommendations.RiskFactors, "high_value_claim")
}

func TestNegotiate_LegalThreatTakesLegalRoute(t *testing.T) {
	p := newTestPipeline(t, testDeps(t))

	res := p.Negotiate(context.Background(), Request{
		Claim:        claimOf("auto_collision", 5000),
		Emotion:      signal(claim.EmotionFrustration, 0.4),
		Conversation: []claim.Turn{{Speaker: "customer", Text: "This is taking forever. I need to call my lawyer."}},
	})

	require.Equal(t, StatusEscalation, res.Status, res.Message)
	assert.Equal(t, []escalation.TriggerKind{escalation.TriggerLegalThreat}, res.EscalationEvaluation.TriggeredReasons)
	assert.Equal(t, escalation.TypeLegal, res.EscalationEvaluation.EscalationType)
	assert.Equal(t, "/transfer-to-legal-specialist", res.Clarification.ActionURL)
	assert.Contains(t, res.Clarification.UserGuidance, "lawyer")
}

func TestNegotiate_AutoCapViolationIsFlaggedAndCapped(t *testing.T) {
	deps := testDeps(t)
	p := newTestPipeline(t, deps)

	res := p.Negotiate(context.Background(), Request{
		Claim:   claimOf("auto_collision", 60000),
		Emotion: signal(claim.EmotionNeutral, 0.1),
	})

	require.Equal(t, StatusEscalation, res.Status, res.Message)
	assert.False(t, res.ComplianceStatus.Compliant)
	require.Len(t, res.ComplianceStatus.Violations, 1)
	assert.Contains(t, res.ComplianceStatus.Violations[0], "CA maximum auto settlement")
	assert.Equal(t, 50000.0, res.SettlementOffer.RecommendedAmount)
	assert.Contains(t, res.SettlementOffer.RiskFactors, "capped_by_jurisdiction_limit")
	assert.Equal(t, escalation.TypeCompliance, res.EscalationEvaluation.EscalationType)
	assert.Equal(t, escalation.ClarifyVerification, res.Clarification.Kind)

	entries, err := deps.Audit.Entries(context.Background(), res.AuditTrailID)
	require.NoError(t, err)
	require.Len(t, entries, len(fullTrail))
	assert.Equal(t, res.ComplianceStatus.Violations, entries[5].ComplianceFlags)

	report, err := deps.Audit.Report(context.Background(), res.AuditTrailID)
	require.NoError(t, err)
	assert.NotEmpty(t, report.ComplianceViolations)
}

func TestNegotiate_ComplianceCoversTheAmountOffered(t *testing.T) {
	deps := testDeps(t)
	p := newTestPipeline(t, deps)

	res := p.Negotiate(context.Background(), Request{
		Claim:            claimOf("home_fire", 115000),
		Emotion:          signal(claim.EmotionNeutral, 0.1),
		DamageAssessment: 115000,
	})

	require.Equal(t, StatusEscalation, res.Status, res.Message)
	require.Greater(t, res.SettlementOffer.RecommendedAmount, 100000.0)
	assert.Equal(t, compliance.RiskHigh, res.ComplianceStatus.RiskLevel)
	assert.Subset(t, res.ComplianceStatus.RequiredApprovals, []string{"senior_manager", "legal_department"})
	assert.Contains(t, res.ComplianceStatus.AdditionalDocumentation, "detailed_justification_report")
	assert.Contains(t, res.RiskIndicators, "compliance_risk_high")

	entries, err := deps.Audit.Entries(context.Background(), res.AuditTrailID)
	require.NoError(t, err)
	require.Equal(t, fullTrail, actions(entries))

	var proposed compliance.Report
	require.NoError(t, json.Unmarshal(entries[5].Result, &proposed))
	assert.Equal(t, compliance.RiskLow, proposed.RiskLevel)

	var offered settlementResult
	require.NoError(t, json.Unmarshal(entries[6].Result, &offered))
	assert.InDelta(t, res.SettlementOffer.RecommendedAmount, offered.RecommendedAmount, 1e-9)
	assert.Equal(t, compliance.RiskHigh, offered.Compliance.RiskLevel)
	assert.Contains(t, offered.Compliance.RequiredApprovals, "senior_manager")
	assert.Contains(t, entries[6].RiskIndicators, "compliance_risk_high")
}

func TestNegotiate_CappedOfferKeepsTheProposedViolation(t *testing.T) {
	deps := testDeps(t)
	p := newTestPipeline(t, deps)

	res := p.Negotiate(context.Background(), Request{
		Claim:   claimOf("auto_collision", 60000),
		Emotion: signal(claim.EmotionNeutral, 0.1),
	})

	entries, err := deps.Audit.Entries(context.Background(), res.AuditTrailID)
	require.NoError(t, err)
	require.Len(t, entries, len(fullTrail))

	var offered settlementResult
	require.NoError(t, json.Unmarshal(entries[6].Result, &offered))
	assert.True(t, offered.Compliance.Compliant)
	assert.Empty(t, entries[6].ComplianceFlags)
	assert.Equal(t, compliance.RiskMedium, res.ComplianceStatus.RiskLevel)
	assert.Equal(t, res.ComplianceStatus.Violations, res.Handoff.ClaimSummary.ComplianceStatus)
}

// #endregion scenarios

// #region inputs

func TestNegotiate_PrecedentsDriveTheOffer(t *testing.T) {
	deps := testDeps(t)
	store := records.NewFileStore(records.Dataset{
		Precedents: []claim.PrecedentCase{
			{ClaimType: "auto_collision", OriginalClaim: 19000, SettlementPercentage: 0.8, ResolutionTimeDays: 10, CustomerSatisfactionScore: 4.5},
			{ClaimType: "auto_collision", OriginalClaim: 21000, SettlementPercentage: 0.8, ResolutionTimeDays: 14, CustomerSatisfactionScore: 4.0},
			{ClaimType: "auto_collision", OriginalClaim: 20000, SettlementPercentage: 0.8, ResolutionTimeDays: 12, CustomerSatisfactionScore: 4.2},
			{ClaimType: "home_fire", OriginalClaim: 20000, SettlementPercentage: 0.5},
		},
	})
	deps.Precedents = store
	p := newTestPipeline(t, deps)

	res := p.Negotiate(context.Background(), Request{
		Claim:   claimOf("auto_collision", 20000),
		Emotion: signal(claim.EmotionNeutral, 0.1),
	})

	require.Equal(t, StatusComplete, res.Status, res.Message)
	assert.InDelta(t, 16000, res.SettlementOffer.RecommendedAmount, 1e-9)
	assert.False(t, res.SettlementOffer.UsedFallback)
	assert.Equal(t, 12, res.SettlementOffer.ResolutionDays)
	assert.NotContains(t, res.RiskIndicators, "no_precedent_data")
}

func TestNegotiate_UnknownPolicyContinuesUnverified(t *testing.T) {
	deps := testDeps(t)
	p := newTestPipeline(t, deps)

	c := claimOf("auto_collision", 10000)
	c.PolicyNumber = "POL-404"
	res := p.Negotiate(context.Background(), Request{Claim: c, Emotion: signal(claim.EmotionNeutral, 0.2)})

	require.Equal(t, StatusComplete, res.Status, res.Message)
	assert.Contains(t, res.RiskIndicators, "policy_not_found")

	entries, err := deps.Audit.Entries(context.Background(), res.AuditTrailID)
	require.NoError(t, err)
	assert.Equal(t, audit.ActionPolicyVerification, entries[2].ActionType)
	assert.Contains(t, entries[2].ComplianceFlags, "policy_not_verified")
}

func TestNegotiate_MissingEmotionDefaultsNeutral(t *testing.T) {
	p := newTestPipeline(t, testDeps(t))

	res := p.Negotiate(context.Background(), Request{Claim: claimOf("auto_collision", 10000)})

	require.Equal(t, StatusComplete, res.Status, res.Message)
	assert.Equal(t, claim.NeutralSignal(), *res.EmotionalAnalysis)
	assert.Contains(t, res.RiskIndicators, "input_defaulted:emotion")
}

func TestNegotiate_EmotionServiceOutageDegrades(t *testing.T) {
	deps := testDeps(t)
	deps.Analyzer = failingAnalyzer{}
	p := newTestPipeline(t, deps)

	res := p.Negotiate(context.Background(), Request{Claim: claimOf("auto_collision", 10000)})

	require.Equal(t, StatusComplete, res.Status, res.Message)
	assert.Equal(t, claim.EmotionNeutral, res.EmotionalAnalysis.PrimaryEmotion)
	assert.Contains(t, res.RiskIndicators, "emotion_service_unavailable")
}

func TestNegotiate_EmotionServiceReadingUsed(t *testing.T) {
	deps := testDeps(t)
	analyzer := &stubAnalyzer{reply: claim.EmotionalSignal{PrimaryEmotion: claim.EmotionAnger, StressLevel: 0.95}}
	deps.Analyzer = analyzer
	p := newTestPipeline(t, deps)

	res := p.Negotiate(context.Background(), Request{
		Claim:        claimOf("auto_collision", 10000),
		Conversation: []claim.Turn{{Text: "Why is this"}, {Text: "so slow?"}},
	})

	assert.Equal(t, "Why is this so slow?", analyzer.seen.Transcript)
	assert.Equal(t, "CLM-1", analyzer.seen.ClaimID)
	require.Equal(t, StatusEscalation, res.Status, res.Message)
	assert.Equal(t, []escalation.TriggerKind{escalation.TriggerExtremeDistress}, res.EscalationEvaluation.TriggeredReasons)
	assert.Equal(t, claim.EmotionAnger, res.ResponseStrategy.Emotion)
}

func TestNegotiate_InputErrorsBecomeRiskIndicators(t *testing.T) {
	p := newTestPipeline(t, testDeps(t))

	c := claimOf("auto_collision", -20)
	res := p.Negotiate(context.Background(), Request{
		Claim:       c,
		Emotion:     signal(claim.EmotionNeutral, 3),
		InputErrors: []*claim.InputError{{Field: "supporting_documents", Reason: "not a list"}},
	})

	assert.Contains(t, res.RiskIndicators, "input_defaulted:supporting_documents")
	assert.Contains(t, res.RiskIndicators, "input_defaulted:estimated_amount")
	assert.Contains(t, res.RiskIndicators, "input_defaulted:stress_level")
	assert.Equal(t, 1.0, res.EmotionalAnalysis.StressLevel)
}

// #endregion inputs

// #region failures

func TestNegotiate_UnknownJurisdictionIsFatal(t *testing.T) {
	deps := testDeps(t)
	p := newTestPipeline(t, deps)

	c := claimOf("auto_collision", 10000)
	c.Jurisdiction = "ZZ"
	res := p.Negotiate(context.Background(), Request{Claim: c, Emotion: signal(claim.EmotionNeutral, 0.2)})

	require.Equal(t, StatusError, res.Status)
	assert.Equal(t, StateComplianceChecked, res.FailedStage)
	assert.Equal(t, FallbackEscalate, res.FallbackAction)
	assert.Contains(t, res.Message, "compliance.jurisdictions.ZZ")
	assert.Equal(t, StateError, res.StateHistory[len(res.StateHistory)-1])
	assert.Nil(t, res.SettlementOffer)

	entries, err := deps.Audit.Entries(context.Background(), res.AuditTrailID)
	require.NoError(t, err)
	last := entries[len(entries)-1]
	assert.Equal(t, audit.ActionPipelineError, last.ActionType)
	assert.Equal(t, "compliance_checker", last.ToolName)
	assert.JSONEq(t, `{"stage": "COMPLIANCE_CHECKED", "input": "amount 8500.00, claim type auto_collision, jurisdiction ZZ"}`, string(last.Arguments))
}

func TestNegotiate_PanickingStageIsContained(t *testing.T) {
	deps := testDeps(t)
	deps.Policies = panickingPolicies{}
	p := newTestPipeline(t, deps)

	res := p.Negotiate(context.Background(), Request{Claim: claimOf("auto_collision", 10000)})

	require.Equal(t, StatusError, res.Status)
	assert.Equal(t, StatePolicyVerified, res.FailedStage)
	assert.NotContains(t, res.Message, "corrupted")
	assert.Contains(t, res.RiskIndicators, "stage_failed:policy_verified")

	entries, err := deps.Audit.Entries(context.Background(), res.AuditTrailID)
	require.NoError(t, err)
	assert.Equal(t, []audit.ActionType{audit.ActionIntake, audit.ActionEmotionAnalysis, audit.ActionPipelineError}, actions(entries))
	assert.Contains(t, string(entries[2].Result), "policy index corrupted")
}

func TestNegotiate_UncomputableSettlementIsFatal(t *testing.T) {
	p := newTestPipeline(t, testDeps(t))

	c := claimOf("auto_collision", 10000)
	c.PolicyNumber = "POL-NEG"
	res := p.Negotiate(context.Background(), Request{Claim: c, Emotion: signal(claim.EmotionNeutral, 0.2)})

	require.Equal(t, StatusError, res.Status)
	assert.Equal(t, StateSettlementGenerated, res.FailedStage)
	assert.Contains(t, res.Message, "settlement could not be calculated")
}

func TestNegotiate_BudgetExceeded(t *testing.T) {
	deps := testDeps(t)
	deps.Precedents = blockingPrecedents{}
	p := newTestPipeline(t, deps, func(c *Config) { c.Budget = 50 * time.Millisecond })

	res := p.Negotiate(context.Background(), Request{Claim: claimOf("auto_collision", 10000)})

	require.Equal(t, StatusError, res.Status)
	assert.Equal(t, StatePrecedentAnalyzed, res.FailedStage)
	assert.Equal(t, FallbackEscalate, res.FallbackAction)
	assert.Contains(t, res.Message, "processing budget")
	assert.Contains(t, res.RiskIndicators, "pipeline_abandoned")

	// The abandoned run keeps executing in the background; none of its
	// later stages may reach the trail.
	time.Sleep(100 * time.Millisecond)
	entries, err := deps.Audit.Entries(context.Background(), res.AuditTrailID)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	assert.Equal(t, audit.ActionPipelineTimeout, entries[4].ActionType)
	assert.Equal(t, "precedent_analyzer", entries[4].ToolName)
	assert.NoError(t, deps.Audit.Verify(context.Background(), res.AuditTrailID))
}

func TestNegotiate_CallerCancellation(t *testing.T) {
	deps := testDeps(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	deps.Precedents = blockingPrecedents{onEnter: cancel}
	p := newTestPipeline(t, deps)

	res := p.Negotiate(ctx, Request{Claim: claimOf("auto_collision", 10000), PlanRunID: "run-cancel"})

	require.Equal(t, StatusError, res.Status)
	assert.Equal(t, "run-cancel", res.AuditTrailID)
	assert.Contains(t, res.Message, "cancelled")

	entries, err := deps.Audit.Entries(context.Background(), "run-cancel")
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, audit.ActionPipelineError, entries[len(entries)-1].ActionType)
}

// #endregion failures

// #region construction

func TestNew_MissingComponent(t *testing.T) {
	deps := testDeps(t)
	deps.Audit = nil
	_, err := New(deps, DefaultConfig(), zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit")
}

func TestNew_DefaultJurisdictionMustExist(t *testing.T) {
	config := DefaultConfig()
	config.DefaultJurisdiction = "ZZ"
	_, err := New(testDeps(t), config, zerolog.Nop())
	var cfgErr *claim.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "compliance.jurisdictions.ZZ", cfgErr.Key)
}

func TestNew_RejectsNonPositiveBudget(t *testing.T) {
	config := DefaultConfig()
	config.Budget = 0
	_, err := New(testDeps(t), config, zerolog.Nop())
	var cfgErr *claim.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "pipeline.budget", cfgErr.Key)
}

// #endregion construction

func TestNegotiate_ConcurrentRunsAreIsolated(t *testing.T) {
	deps := testDeps(t)
	p := newTestPipeline(t, deps)

	const n = 16
	results := make([]Result, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := claimOf("auto_collision", float64(5000+i*1000))
			c.ClaimID = fmt.Sprintf("CLM-%d", i)
			results[i] = p.Negotiate(context.Background(), Request{Claim: c, Emotion: signal(claim.EmotionNeutral, 0.1)})
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i, res := range results {
		require.Equal(t, StatusComplete, res.Status, res.Message)
		require.False(t, seen[res.AuditTrailID])
		seen[res.AuditTrailID] = true

		entries, err := deps.Audit.Entries(context.Background(), res.AuditTrailID)
		require.NoError(t, err)
		require.Equal(t, fullTrail, actions(entries))
		assert.Contains(t, string(entries[0].Arguments), fmt.Sprintf("CLM-%d", i))
		assert.NoError(t, deps.Audit.Verify(context.Background(), res.AuditTrailID))
	}
}
