package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"runtime/debug"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/audit"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/claim"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/compliance"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/emotion"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/escalation"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/health"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/normalize"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/settlement"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/validation"
)

// #region stage

// outcome is what a successful stage contributes to its audit entry.
type outcome struct {
	args          any
	result        any
	flags         []string
	risks         []string
	justification string
}

type stage struct {
	state  State
	action audit.ActionType
	input  func() string
	run    func(ctx context.Context) (outcome, error)
}

var tools = map[State]string{
	StateIntake:              "claim_intake",
	StateEmotionAnalyzed:     "emotion_analyzer",
	StatePolicyVerified:      "policy_lookup",
	StateClaimValidated:      "claim_validator",
	StatePrecedentAnalyzed:   "precedent_analyzer",
	StateComplianceChecked:   "compliance_checker",
	StateSettlementGenerated: "settlement_calculator",
	StateEscalationEvaluated: "escalation_evaluator",
	StateAudited:             "audit_reviewer",
}

func toolFor(s State) string {
	if t, ok := tools[s]; ok {
		return t
	}
	return "pipeline"
}

// settlementArgs and validationArgs embed the fields the audit re-check reads.
type settlementArgs struct {
	audit.Arguments
	ClaimID       string  `json:"claim_id"`
	ApplicableCap float64 `json:"applicable_cap,omitempty"`
	Coverage      float64 `json:"coverage,omitempty"`
}

// settlementResult records the offer with the compliance check of the amount
// actually offered.
type settlementResult struct {
	settlement.Recommendation
	Compliance compliance.Report `json:"offer_compliance"`
}

type validationArgs struct {
	audit.Arguments
	ClaimID string `json:"claim_id"`
	Policy  string `json:"policy_number"`
}

// #endregion stage

// #region execute

// execute runs every stage in order and builds the result. State history and
// risk indicators are filled in by complete; the result of an abandoned run
// is discarded.
func (r *run) execute(ctx context.Context) Result {
	var (
		details   claim.ClaimDetails
		signal    claim.EmotionalSignal
		strategy  emotion.Strategy
		policy    *claim.PolicyRecord
		validated validation.Result
		precedent settlement.PrecedentAnalysis
		report    compliance.Report
		offer     settlement.Recommendation
		ectx      escalation.Context
		eval      escalation.Evaluation
	)
	deps := r.p.deps
	claimInput := func() string { return "claim " + r.req.Claim.ClaimID }

	stages := []stage{
		{
			state:  StateIntake,
			action: audit.ActionIntake,
			input:  claimInput,
			run: func(ctx context.Context) (outcome, error) {
				var errs []*claim.InputError
				details, errs = deps.Normalizer.Details(r.req.Claim)
				all := append(append([]*claim.InputError{}, r.req.InputErrors...), errs...)
				reasons := make([]string, len(all))
				for i, e := range all {
					reasons[i] = e.Error()
				}
				return outcome{
					args:          details,
					result:        map[string]any{"input_errors": reasons},
					risks:         normalize.RiskIndicators(all),
					justification: fmt.Sprintf("Claim %s received for %s", details.ClaimID, money(details.EstimatedAmount)),
				}, nil
			},
		},
		{
			state:  StateEmotionAnalyzed,
			action: audit.ActionEmotionAnalysis,
			input:  claimInput,
			run: func(ctx context.Context) (outcome, error) {
				var (
					errs   []*claim.InputError
					risks  []string
					source = "request"
				)
				switch {
				case r.req.Emotion != nil:
					signal, errs = deps.Normalizer.Signal(*r.req.Emotion)
				case deps.Analyzer != nil:
					source = "emotion_service"
					s, serviceErrs, err := deps.Analyzer.Analyze(ctx, emotion.Request{
						ClaimID:    details.ClaimID,
						CustomerID: details.CustomerID,
						Transcript: claim.JoinTurns(r.req.Conversation),
					})
					if err != nil {
						deps.Health.RecordError(health.ComponentEmotion, err)
						r.logger.Warn().Err(err).Msg("emotion service unavailable, continuing with neutral signal")
						signal = claim.NeutralSignal()
						risks = append(risks, "emotion_service_unavailable")
						source = "fallback"
					} else {
						deps.Health.RecordSuccess(health.ComponentEmotion)
						signal, errs = s, serviceErrs
					}
				default:
					signal, errs = deps.Normalizer.Emotion(nil)
					source = "fallback"
				}
				strategy = deps.Responder.Strategy(signal)
				return outcome{
					args:          map[string]any{"source": source, "turns": len(r.req.Conversation)},
					result:        signal,
					risks:         append(risks, normalize.RiskIndicators(errs)...),
					justification: fmt.Sprintf("Primary emotion %s at stress %.2f", signal.PrimaryEmotion, signal.StressLevel),
				}, nil
			},
		},
		{
			state:  StatePolicyVerified,
			action: audit.ActionPolicyVerification,
			input:  func() string { return "policy " + details.PolicyNumber },
			run: func(ctx context.Context) (outcome, error) {
				args := map[string]any{"policy_number": details.PolicyNumber}
				notVerified := func(risk, why string) (outcome, error) {
					return outcome{
						args:          args,
						result:        map[string]any{"verified": false},
						flags:         []string{"policy_not_verified"},
						risks:         []string{risk},
						justification: why,
					}, nil
				}
				if deps.Policies == nil {
					return notVerified("policy_not_found", "No policy source configured")
				}

				p, err := deps.Policies.Policy(ctx, details.PolicyNumber)
				var nf *claim.PolicyNotFoundError
				switch {
				case errors.As(err, &nf):
					deps.Health.RecordSuccess(health.ComponentPolicy)
					return notVerified("policy_not_found", fmt.Sprintf("Policy %s not found", details.PolicyNumber))
				case err != nil:
					deps.Health.RecordError(health.ComponentPolicy, err)
					r.logger.Warn().Err(err).Msg("policy lookup failed, continuing unverified")
					return notVerified("policy_service_unavailable", "Policy lookup failed")
				}

				deps.Health.RecordSuccess(health.ComponentPolicy)
				policy = &p
				var risks []string
				if !p.Active() {
					risks = append(risks, "policy_inactive")
				}
				if p.CustomerID != "" && details.CustomerID != "" && p.CustomerID != details.CustomerID {
					risks = append(risks, "policy_customer_mismatch")
				}
				return outcome{
					args:          args,
					result:        p,
					risks:         risks,
					justification: fmt.Sprintf("Policy %s verified with coverage %s", p.PolicyNumber, money(p.CoverageAmount)),
				}, nil
			},
		},
		{
			state:  StateClaimValidated,
			action: audit.ActionClaimValidation,
			input:  claimInput,
			run: func(ctx context.Context) (outcome, error) {
				validated = deps.Validator.Validate(details, policy)
				var risks []string
				if !validated.Valid {
					risks = append(risks, "claim_validation_failed")
				}
				if validated.RequiresInvestigation {
					risks = append(risks, "fraud_investigation_required")
				}
				return outcome{
					args: validationArgs{
						Arguments: audit.Arguments{Complexity: string(validated.Complexity), Documentation: r.req.Documentation},
						ClaimID:   details.ClaimID,
						Policy:    details.PolicyNumber,
					},
					result:        validated,
					risks:         risks,
					justification: fmt.Sprintf("Validation %s: %s", validity(validated.Valid), validated.RecommendedAction),
				}, nil
			},
		},
		{
			state:  StatePrecedentAnalyzed,
			action: audit.ActionPrecedentAnalysis,
			input:  func() string { return "claim type " + details.ClaimType },
			run: func(ctx context.Context) (outcome, error) {
				var (
					cases []claim.PrecedentCase
					risks []string
				)
				if deps.Precedents != nil {
					c, err := deps.Precedents.Precedents(ctx, details.ClaimType)
					if err != nil {
						deps.Health.RecordError(health.ComponentPrecedents, err)
						r.logger.Warn().Err(err).Msg("precedent source failed, using fallback analysis")
						risks = append(risks, "precedent_source_unavailable")
					} else {
						deps.Health.RecordSuccess(health.ComponentPrecedents)
						cases = c
					}
				}
				precedent = deps.Settlement.AnalyzePrecedents(details.ClaimType, details.EstimatedAmount, cases)
				return outcome{
					args:          map[string]any{"claim_type": details.ClaimType, "claim_amount": details.EstimatedAmount, "candidates": len(cases)},
					result:        precedent,
					risks:         append(risks, precedent.RiskFactors...),
					justification: fmt.Sprintf("%d comparable cases, recommended %s", precedent.MatchedCases, money(precedent.RecommendedAmount)),
				}, nil
			},
		},
		{
			state:  StateComplianceChecked,
			action: audit.ActionComplianceCheck,
			input: func() string {
				return fmt.Sprintf("amount %.2f, claim type %s, jurisdiction %s", precedent.RecommendedAmount, details.ClaimType, details.Jurisdiction)
			},
			run: func(ctx context.Context) (outcome, error) {
				rep, err := deps.Compliance.Evaluate(precedent.RecommendedAmount, details.ClaimType, details.Jurisdiction)
				if err != nil {
					return outcome{}, err
				}
				report = rep
				var risks []string
				if rep.RiskLevel == compliance.RiskHigh || rep.RiskLevel == compliance.RiskCritical {
					risks = append(risks, "compliance_risk_"+string(rep.RiskLevel))
				}
				return outcome{
					args: map[string]any{
						"amount":       precedent.RecommendedAmount,
						"claim_type":   details.ClaimType,
						"jurisdiction": details.Jurisdiction,
					},
					result:        rep,
					flags:         rep.Violations,
					risks:         risks,
					justification: fmt.Sprintf("Compliance %s at %s risk", validity(rep.Compliant), rep.RiskLevel),
				}, nil
			},
		},
		{
			state:  StateSettlementGenerated,
			action: audit.ActionSettlementOffer,
			input:  claimInput,
			run: func(ctx context.Context) (outcome, error) {
				rec, err := deps.Settlement.Recommend(settlement.Request{
					Claim:            details,
					Policy:           policy,
					Emotion:          signal,
					Precedents:       precedent,
					DamageAssessment: r.req.DamageAssessment,
					ComplianceCap:    report.ApplicableCap,
				})
				if err != nil {
					return outcome{}, err
				}
				offer = rec

				offered, err := deps.Compliance.Evaluate(rec.RecommendedAmount, details.ClaimType, details.Jurisdiction)
				if err != nil {
					return outcome{}, err
				}
				report = offered.Merge(report)
				risks := append([]string{}, rec.RiskFactors...)
				if offered.RiskLevel == compliance.RiskHigh || offered.RiskLevel == compliance.RiskCritical {
					risks = append(risks, "compliance_risk_"+string(offered.RiskLevel))
				}

				strategy = deps.Responder.Adapt(
					fmt.Sprintf("We can offer %s to settle claim %s.", money(rec.RecommendedAmount), details.ClaimID),
					signal,
				)

				args := settlementArgs{
					Arguments:     audit.Arguments{Amount: rec.RecommendedAmount, Approvals: r.req.Approvals},
					ClaimID:       details.ClaimID,
					ApplicableCap: report.ApplicableCap,
				}
				if policy != nil {
					args.Coverage = policy.CoverageAmount
				}
				return outcome{
					args:          args,
					result:        settlementResult{Recommendation: rec, Compliance: offered},
					flags:         offered.Violations,
					risks:         risks,
					justification: rec.Reasoning,
				}, nil
			},
		},
		{
			state:  StateEscalationEvaluated,
			action: audit.ActionEscalationEvaluation,
			input:  claimInput,
			run: func(ctx context.Context) (outcome, error) {
				_, risks := r.snapshot()
				ectx = escalation.Context{
					Conversation:     r.req.Conversation,
					Emotion:          signal,
					Claim:            details,
					SettlementAmount: offer.RecommendedAmount,
					ComplianceFlags:  report.Violations,
					FraudScore:       math.Max(validated.FraudRiskScore, details.FraudRiskScore),
					RiskIndicators:   risks,
					CustomerID:       details.CustomerID,
				}
				e, err := deps.Escalation.Evaluate(ctx, ectx)
				if err != nil {
					return outcome{}, err
				}
				eval = e
				ectx.LegalIndicators = e.LegalIndicators

				reasons := make([]string, len(e.TriggeredReasons))
				for i, k := range e.TriggeredReasons {
					reasons[i] = string(k)
				}
				return outcome{
					args: map[string]any{
						"settlement_amount": ectx.SettlementAmount,
						"fraud_score":       ectx.FraudScore,
						"compliance_flags":  ectx.ComplianceFlags,
						"stress_level":      signal.StressLevel,
					},
					result:        e,
					risks:         reasons,
					justification: fmt.Sprintf("Escalation %s (%s, severity %d)", validity(!e.ShouldEscalate), e.EscalationType, e.SeverityScore),
				}, nil
			},
		},
		{
			state:  StateAudited,
			action: audit.ActionAuditReview,
			input:  func() string { return "plan run " + r.runID },
			run: func(ctx context.Context) (outcome, error) {
				rep, err := deps.Audit.Report(context.WithoutCancel(ctx), r.runID)
				if err != nil {
					deps.Health.RecordError(health.ComponentAudit, err)
					r.logger.Warn().Err(err).Msg("audit report unavailable")
					return outcome{
						result:        map[string]any{"error": err.Error()},
						risks:         []string{"audit_report_unavailable"},
						justification: "Audit review skipped",
					}, nil
				}
				return outcome{
					args: map[string]any{"plan_run_id": r.runID},
					result: map[string]any{
						"report_id":             rep.ReportID,
						"total_actions":         rep.TotalActions,
						"compliance_violations": len(rep.ComplianceViolations),
						"high_risk_actions":     len(rep.HighRiskActions),
					},
					justification: rep.Summary,
				}, nil
			},
		},
	}

	for _, s := range stages {
		if err := r.runStage(ctx, s); err != nil {
			return r.fail(ctx, err)
		}
	}

	res := Result{
		Status:               StatusComplete,
		AuditTrailID:         r.runID,
		SettlementOffer:      &offer,
		EscalationEvaluation: &eval,
		ComplianceStatus:     &report,
		ClaimValidation:      &validated,
		EmotionalAnalysis:    &signal,
		ResponseStrategy:     &strategy,
		Message:              strategy.AdaptedResponse,
	}
	if eval.ShouldEscalate {
		handoff := deps.Escalation.Handoff(ectx, eval)
		clarification := deps.Escalation.Clarify(ectx, eval)
		res.Status = StatusEscalation
		res.Handoff = &handoff
		res.Clarification = &clarification
		res.Message = clarification.UserGuidance
	}

	r.logger.Info().
		Str("status", string(res.Status)).
		Float64("settlement", offer.RecommendedAmount).
		Int("severity", eval.SeverityScore).
		Msg("negotiation finished")
	return res
}

// #endregion execute

// #region run-stage

// runStage executes one stage, recovering panics, and records its entry.
// Failed stages are recorded by fail. A stage whose entry could not be
// recorded because the run ended counts as failed.
func (r *run) runStage(ctx context.Context, s stage) error {
	if err := ctx.Err(); err != nil {
		return &StageError{Stage: s.state, Input: s.input(), Err: err}
	}
	r.begin(s.state)
	out, err := r.protect(ctx, s)
	if err != nil {
		return &StageError{Stage: s.state, Input: s.input(), Err: err}
	}
	recorded := r.record(ctx, audit.Entry{
		ActionType:      s.action,
		ToolName:        toolFor(s.state),
		Arguments:       marshal(out.args),
		Result:          marshal(out.result),
		ComplianceFlags: out.flags,
		RiskIndicators:  out.risks,
		Justification:   out.justification,
	})
	if !recorded {
		return &StageError{Stage: s.state, Input: s.input(), Err: ctx.Err()}
	}
	r.addRisks(out.risks...)
	r.advance(s.state)
	return nil
}

func (r *run) protect(ctx context.Context, s stage) (out outcome, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
			r.logger.Error().
				Str("stage", string(s.state)).
				Str("stack", string(debug.Stack())).
				Msg("stage panicked")
		}
	}()
	return s.run(ctx)
}

// fail records the failed stage and returns the error result. The message
// names the failure class, never internal detail.
func (r *run) fail(ctx context.Context, err error) Result {
	var serr *StageError
	if !errors.As(err, &serr) {
		serr = &StageError{Stage: StateError, Err: err}
	}

	var (
		cfgErr    *claim.ConfigurationError
		calcErr   *claim.SettlementCalculationError
		message   string
		riskLabel = "stage_failed:" + strings.ToLower(string(serr.Stage))
	)
	switch {
	case errors.As(err, &cfgErr):
		message = fmt.Sprintf("Negotiation stopped: configuration is incomplete (%s). A human agent must take over.", cfgErr.Key)
	case errors.As(err, &calcErr):
		message = "Negotiation stopped: the settlement could not be calculated. A human agent must take over."
	case errors.Is(err, context.DeadlineExceeded):
		message = fmt.Sprintf("Negotiation exceeded its processing budget during %s. A human agent must take over.", serr.Stage)
	case errors.Is(err, context.Canceled):
		message = fmt.Sprintf("Negotiation cancelled during %s. A human agent must take over.", serr.Stage)
	default:
		message = fmt.Sprintf("Negotiation stopped at %s due to an internal error. A human agent must take over.", serr.Stage)
	}

	r.addRisks(riskLabel)
	r.record(ctx, audit.Entry{
		ActionType:     audit.ActionPipelineError,
		ToolName:       toolFor(serr.Stage),
		Arguments:      marshal(map[string]any{"stage": serr.Stage, "input": serr.Input}),
		Result:         marshal(map[string]any{"error": serr.Err.Error()}),
		RiskIndicators: []string{riskLabel},
		Justification:  message,
	})
	r.logger.Error().Err(err).Str("stage", string(serr.Stage)).Msg("negotiation failed")

	return Result{
		Status:         StatusError,
		AuditTrailID:   r.runID,
		Message:        message,
		FallbackAction: FallbackEscalate,
		FailedStage:    serr.Stage,
	}
}

// #endregion run-stage

// #region format

func money(v float64) string {
	return "$" + humanize.FormatFloat("#,###.##", v)
}

func validity(ok bool) string {
	if ok {
		return "passed"
	}
	return "failed"
}

func marshal(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		b, _ = json.Marshal(map[string]string{"marshal_error": err.Error()})
	}
	return b
}

// #endregion format
