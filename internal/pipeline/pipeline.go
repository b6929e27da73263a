// Package pipeline sequences the negotiation stages into a state machine and
// is the single entry point exposed to callers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/audit"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/compliance"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/emotion"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/escalation"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/health"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/normalize"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/records"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/session"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/settlement"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/validation"
)

// #region pipeline

// Deps are the components a pipeline sequences. Policies, Precedents and
// Analyzer are optional; their absence is handled like an outage. Without
// Sessions every negotiation stands alone; without Health nothing is counted.
type Deps struct {
	Normalizer *normalize.Normalizer
	Compliance *compliance.Engine
	Settlement *settlement.Engine
	Escalation *escalation.Engine
	Validator  *validation.Validator
	Responder  *emotion.Responder
	Audit      *audit.Manager

	Policies   records.PolicySource
	Precedents records.PrecedentSource
	Analyzer   EmotionAnalyzer

	Sessions *session.Manager
	Health   *health.Monitor
}

// Pipeline runs negotiations. It holds no per-negotiation state, so one
// instance serves concurrent negotiations.
type Pipeline struct {
	deps   Deps
	config Config
	logger zerolog.Logger
}

// New checks that every required component is present.
func New(deps Deps, config Config, logger zerolog.Logger) (*Pipeline, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	missing := ""
	switch {
	case deps.Normalizer == nil:
		missing = "normalizer"
	case deps.Compliance == nil:
		missing = "compliance"
	case deps.Settlement == nil:
		missing = "settlement"
	case deps.Escalation == nil:
		missing = "escalation"
	case deps.Validator == nil:
		missing = "validator"
	case deps.Responder == nil:
		missing = "responder"
	case deps.Audit == nil:
		missing = "audit"
	}
	if missing != "" {
		return nil, fmt.Errorf("pipeline: missing %s component", missing)
	}
	if _, err := deps.Compliance.Jurisdiction(config.DefaultJurisdiction); err != nil {
		return nil, err
	}
	return &Pipeline{
		deps:   deps,
		config: config,
		logger: logger.With().Str("component", "pipeline").Logger(),
	}, nil
}

// Audit returns the audit manager the pipeline records to.
func (p *Pipeline) Audit() *audit.Manager {
	return p.deps.Audit
}

// Sessions returns the session manager, nil when sessions are not kept.
func (p *Pipeline) Sessions() *session.Manager {
	return p.deps.Sessions
}

// #endregion pipeline

// #region negotiate

// Negotiate runs one negotiation to a terminal state. It never returns an
// error: failures surface as StatusError with a fallback action, and every
// stage leaves an audit entry under Result.AuditTrailID.
//
// With sessions enabled, a PlanRunID naming a live session continues it:
// the stored turns precede req.Conversation, the stored claim stands in for
// an empty req.Claim, and the audit trail keeps growing under the same id.
func (p *Pipeline) Negotiate(ctx context.Context, req Request) Result {
	runID := req.PlanRunID
	if runID == "" {
		runID = uuid.New().String()
	}
	userID := req.UserID
	if userID == "" {
		userID = p.config.UserID
	}
	logger := p.logger.With().Str("plan_run_id", runID).Logger()

	sess, step, sessErr := p.resume(ctx, runID, &req, logger)

	res := p.negotiate(ctx, &run{
		p:      p,
		req:    req,
		runID:  runID,
		userID: userID,
		step:   step,
		logger: logger,
	})

	if res.Status == StatusError {
		p.deps.Health.RecordError(health.ComponentPipeline, errors.New(res.Message))
	} else {
		p.deps.Health.RecordSuccess(health.ComponentPipeline)
	}
	if sess != nil {
		sessErr = errors.Join(sessErr, p.remember(ctx, *sess, req, &res))
	}
	if sessErr != nil {
		p.deps.Health.RecordError(health.ComponentSessions, sessErr)
		logger.Warn().Err(sessErr).Msg("session state not kept")
		if !contains(res.RiskIndicators, "session_store_unavailable") {
			res.RiskIndicators = append(res.RiskIndicators, "session_store_unavailable")
		}
	} else if sess != nil {
		p.deps.Health.RecordSuccess(health.ComponentSessions)
	}
	return res
}

func (p *Pipeline) negotiate(ctx context.Context, r *run) Result {
	ctx, cancel := context.WithTimeout(ctx, p.config.Budget)
	defer cancel()

	done := make(chan Result, 1)
	go func() {
		res := r.execute(ctx)
		if r.complete(ctx, &res) {
			done <- res
		}
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		if res, ok := r.abandon(ctx, ctx.Err()); ok {
			return res
		}
		return <-done
	}
}

// #endregion negotiate

// #region run

// run is the mutable state of one negotiation. The executing goroutine and
// an abandoning caller share it under mu; exactly one of complete and abandon
// wins.
type run struct {
	p      *Pipeline
	req    Request
	runID  string
	userID string
	logger zerolog.Logger

	mu        sync.Mutex
	history   []State
	current   State
	risks     []string
	abandoned bool
	finished  bool
	step      int
}

func (r *run) advance(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.abandoned {
		r.history = append(r.history, s)
	}
}

func (r *run) begin(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.abandoned {
		r.current = s
	}
}

func (r *run) addRisks(risks ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.abandoned {
		r.addRisksLocked(risks...)
	}
}

func (r *run) addRisksLocked(risks ...string) {
	for _, risk := range risks {
		if !contains(r.risks, risk) {
			r.risks = append(r.risks, risk)
		}
	}
}

func (r *run) snapshot() ([]State, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.history...), append([]string{}, r.risks...)
}

// record appends an audit entry and reports whether it did. Nothing is
// recorded once the run is abandoned or its context has ended; the abandoning
// caller writes the terminal entry instead. Audit failures are logged and
// swallowed: the trail must never fail the negotiation.
func (r *run) record(ctx context.Context, e audit.Entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.abandoned || r.finished || ctx.Err() != nil {
		return false
	}
	r.appendLocked(ctx, e)
	return true
}

func (r *run) appendLocked(ctx context.Context, e audit.Entry) {
	e.PlanRunID = r.runID
	e.UserID = r.userID
	e.StepIndex = r.step
	r.step++
	if _, err := r.p.deps.Audit.Log(context.WithoutCancel(ctx), e); err != nil {
		r.p.deps.Health.RecordError(health.ComponentAudit, err)
		r.logger.Warn().Err(err).Str("action_type", string(e.ActionType)).Msg("audit entry dropped")
		return
	}
	r.p.deps.Health.RecordSuccess(health.ComponentAudit)
}

// complete claims the run for the executing goroutine and moves it to the
// terminal state of res. It fails when the run was abandoned or its context
// ended first.
func (r *run) complete(ctx context.Context, res *Result) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.abandoned || ctx.Err() != nil {
		return false
	}
	r.finished = true
	r.history = append(r.history, terminalState(res.Status))
	res.StateHistory = append([]State(nil), r.history...)
	res.RiskIndicators = append([]string{}, r.risks...)
	return true
}

// abandon stops a run that exceeded its budget or was cancelled, writes the
// terminal entry and returns the error result. ok is false when the run
// completed first.
func (r *run) abandon(ctx context.Context, cause error) (Result, bool) {
	r.mu.Lock()
	if r.finished {
		r.mu.Unlock()
		return Result{}, false
	}
	r.abandoned = true
	stage := r.current
	action := audit.ActionPipelineError
	message := fmt.Sprintf("Negotiation cancelled during %s.", stage)
	if errors.Is(cause, context.DeadlineExceeded) {
		action = audit.ActionPipelineTimeout
		message = fmt.Sprintf("Negotiation exceeded its %s processing budget during %s.", r.p.config.Budget, stage)
	}
	r.history = append(r.history, StateError)
	r.addRisksLocked("pipeline_abandoned")
	r.appendLocked(ctx, audit.Entry{
		ActionType:     action,
		ToolName:       toolFor(stage),
		Arguments:      marshal(map[string]any{"stage": stage, "budget": r.p.config.Budget.String()}),
		Result:         marshal(map[string]any{"error": cause.Error()}),
		RiskIndicators: []string{"pipeline_abandoned"},
		Justification:  message,
	})
	r.mu.Unlock()

	r.logger.Error().Err(cause).Str("stage", string(stage)).Msg("negotiation abandoned")

	history, risks := r.snapshot()
	return Result{
		Status:         StatusError,
		AuditTrailID:   r.runID,
		RiskIndicators: risks,
		StateHistory:   history,
		Message:        message,
		FallbackAction: FallbackEscalate,
		FailedStage:    stage,
	}, true
}

// #endregion run

// #region helpers

func terminalState(s Status) State {
	switch s {
	case StatusComplete:
		return StateNegotiationComplete
	case StatusEscalation:
		return StateEscalated
	default:
		return StateError
	}
}

func contains(xs []string, want string) bool {
	for _, x := range xs {
		if x == want {
			return true
		}
	}
	return false
}

// #endregion helpers
