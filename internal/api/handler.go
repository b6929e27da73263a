package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/emicklei/go-restful/v3"
	"github.com/rs/zerolog"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/audit"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/claim"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/compliance"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/escalation"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/health"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/normalize"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/pipeline"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/session"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/setup"
)

// maxBody caps request bodies at 1 MiB.
const maxBody = 1 << 20

// #region types

// HealthResponse is returned by GET /health. Status is "ok" while every
// component is healthy and "degraded" otherwise.
type HealthResponse struct {
	Status     string        `json:"status"`
	Version    string        `json:"version"`
	Components health.Report `json:"components"`
}

// NegotiateRequest carries the claim and emotion documents raw so the
// normalizer can drop malformed fields instead of rejecting the request.
type NegotiateRequest struct {
	Claim            json.RawMessage `json:"claim"`
	Emotion          json.RawMessage `json:"emotion,omitempty"`
	Conversation     []claim.Turn    `json:"conversation,omitempty"`
	Approvals        []string        `json:"approvals,omitempty"`
	Documentation    []string        `json:"documentation,omitempty"`
	DamageAssessment float64         `json:"damage_assessment,omitempty"`
	PlanRunID        string          `json:"plan_run_id,omitempty"`
	UserID           string          `json:"user_id,omitempty"`
}

// ComplianceRequest is the body of POST /compliance/check. An empty
// jurisdiction uses the configured default.
type ComplianceRequest struct {
	Amount       float64 `json:"amount"`
	ClaimType    string  `json:"claim_type"`
	Jurisdiction string  `json:"jurisdiction,omitempty"`
}

// EvaluateRequest is the body of POST /escalation/evaluate.
type EvaluateRequest struct {
	Claim    json.RawMessage     `json:"claim"`
	Emotion  json.RawMessage     `json:"emotion,omitempty"`
	Analysis escalation.Analysis `json:"analysis"`
}

// TurnRequest is the body of POST /sessions/{plan_run_id}/turns. The claim
// comes from the session.
type TurnRequest struct {
	Emotion          json.RawMessage `json:"emotion,omitempty"`
	Conversation     []claim.Turn    `json:"conversation"`
	Approvals        []string        `json:"approvals,omitempty"`
	Documentation    []string        `json:"documentation,omitempty"`
	DamageAssessment float64         `json:"damage_assessment,omitempty"`
	UserID           string          `json:"user_id,omitempty"`
}

// SessionResponse is a stored session with its summary.
type SessionResponse struct {
	Session session.Session `json:"session"`
	Summary session.Summary `json:"summary"`
}

// SessionsResponse lists stored sessions.
type SessionsResponse struct {
	Sessions []session.Summary `json:"sessions"`
}

// RunsResponse lists stored audit trails.
type RunsResponse struct {
	Runs []string `json:"runs"`
}

// VerifyResponse reports whether a trail's hash chain is intact.
type VerifyResponse struct {
	PlanRunID string `json:"plan_run_id"`
	Entries   int    `json:"entries"`
	Valid     bool   `json:"valid"`
	Error     string `json:"error,omitempty"`
}

// #endregion types

// #region handler

// Handler serves the negotiation API.
type Handler struct {
	pipeline   *pipeline.Pipeline
	audit      *audit.Manager
	normalizer *normalize.Normalizer
	compliance *compliance.Engine
	escalation *escalation.Engine
	sessions   *session.Manager
	health     *health.Monitor
	version    string
	logger     zerolog.Logger
}

func NewHandler(deps *setup.Dependencies, version string, logger zerolog.Logger) *Handler {
	return &Handler{
		pipeline:   deps.Pipeline,
		audit:      deps.Audit,
		normalizer: deps.Normalizer,
		compliance: deps.Compliance,
		escalation: deps.Escalation,
		sessions:   deps.Sessions,
		health:     deps.Health,
		version:    version,
		logger:     logger.With().Str("component", "api").Logger(),
	}
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(req *restful.Request, resp *restful.Response) {
	report := h.health.Report()
	status := "ok"
	if report.Degraded {
		status = "degraded"
	}
	_ = resp.WriteHeaderAndEntity(http.StatusOK, HealthResponse{Status: status, Version: h.version, Components: report})
}

// Negotiate handles POST /api/v1/negotiations. A body that is not JSON, or a
// claim that is not an object, is a 400; everything else negotiates and the
// outcome, including pipeline errors, is a 200 Result.
func (h *Handler) Negotiate(req *restful.Request, resp *restful.Response) {
	var body NegotiateRequest
	if err := readJSON(req, &body); err != nil {
		HandleError(resp, err, http.StatusBadRequest)
		return
	}

	details, inputErrs, err := h.normalizer.Claim(body.Claim)
	if err != nil {
		h.logger.Warn().Err(err).Msg("rejected claim document")
		HandleError(resp, err, http.StatusBadRequest)
		return
	}

	signal, emotionErrs := h.emotion(body.Emotion)
	inputErrs = append(inputErrs, emotionErrs...)

	h.logger.Info().
		Str("claim_id", details.ClaimID).
		Str("claim_type", details.ClaimType).
		Float64("amount", details.EstimatedAmount).
		Msg("negotiation requested")

	res := h.pipeline.Negotiate(req.Request.Context(), pipeline.Request{
		Claim:            details,
		Emotion:          signal,
		Conversation:     body.Conversation,
		Approvals:        body.Approvals,
		Documentation:    body.Documentation,
		DamageAssessment: body.DamageAssessment,
		PlanRunID:        body.PlanRunID,
		UserID:           body.UserID,
		InputErrors:      inputErrs,
	})

	h.logger.Info().
		Str("plan_run_id", res.AuditTrailID).
		Str("status", string(res.Status)).
		Msg("negotiation finished")

	_ = resp.WriteHeaderAndEntity(http.StatusOK, res)
}

func (h *Handler) emotion(raw json.RawMessage) (*claim.EmotionalSignal, []*claim.InputError) {
	if len(raw) == 0 {
		return nil, nil
	}
	s, errs := h.normalizer.Emotion(raw)
	return &s, errs
}

// CheckCompliance handles POST /api/v1/compliance/check. An unknown
// jurisdiction is a 400.
func (h *Handler) CheckCompliance(req *restful.Request, resp *restful.Response) {
	var body ComplianceRequest
	if err := readJSON(req, &body); err != nil {
		HandleError(resp, err, http.StatusBadRequest)
		return
	}
	if body.Jurisdiction == "" {
		body.Jurisdiction = h.normalizer.DefaultJurisdiction()
	}
	report, err := h.compliance.Evaluate(body.Amount, body.ClaimType, body.Jurisdiction)
	var cfgErr *claim.ConfigurationError
	switch {
	case errors.As(err, &cfgErr):
		HandleError(resp, err, http.StatusBadRequest)
		return
	case err != nil:
		HandleError(resp, err, http.StatusInternalServerError)
		return
	}
	_ = resp.WriteHeaderAndEntity(http.StatusOK, report)
}

// EvaluateEscalation handles POST /api/v1/escalation/evaluate.
func (h *Handler) EvaluateEscalation(req *restful.Request, resp *restful.Response) {
	var body EvaluateRequest
	if err := readJSON(req, &body); err != nil {
		HandleError(resp, err, http.StatusBadRequest)
		return
	}
	details, _, err := h.normalizer.Claim(body.Claim)
	if err != nil {
		HandleError(resp, err, http.StatusBadRequest)
		return
	}
	signal, _ := h.normalizer.Emotion(body.Emotion)

	eval, err := h.escalation.EvaluateClaim(details, signal, body.Analysis)
	if err != nil {
		HandleError(resp, err, http.StatusInternalServerError)
		return
	}
	_ = resp.WriteHeaderAndEntity(http.StatusOK, eval)
}

// Runs handles GET /api/v1/audit/runs.
func (h *Handler) Runs(req *restful.Request, resp *restful.Response) {
	runs, err := h.audit.Runs(req.Request.Context())
	if err != nil {
		HandleError(resp, err, http.StatusInternalServerError)
		return
	}
	_ = resp.WriteHeaderAndEntity(http.StatusOK, RunsResponse{Runs: runs})
}

// Report handles GET /api/v1/audit/{plan_run_id}/report.
func (h *Handler) Report(req *restful.Request, resp *restful.Response) {
	entries, ok := h.trail(req, resp)
	if !ok {
		return
	}
	report, err := h.audit.Report(req.Request.Context(), entries[0].PlanRunID)
	if err != nil {
		HandleError(resp, err, http.StatusInternalServerError)
		return
	}
	_ = resp.WriteHeaderAndEntity(http.StatusOK, report)
}

// Export handles GET /api/v1/audit/{plan_run_id}/export.
func (h *Handler) Export(req *restful.Request, resp *restful.Response) {
	entries, ok := h.trail(req, resp)
	if !ok {
		return
	}
	_ = resp.WriteHeaderAndEntity(http.StatusOK, entries)
}

// Verify handles GET /api/v1/audit/{plan_run_id}/verify. A broken chain is
// reported in the body, not as an HTTP error.
func (h *Handler) Verify(req *restful.Request, resp *restful.Response) {
	entries, ok := h.trail(req, resp)
	if !ok {
		return
	}
	out := VerifyResponse{PlanRunID: entries[0].PlanRunID, Entries: len(entries), Valid: true}
	if err := audit.VerifyEntries(entries); err != nil {
		out.Valid = false
		out.Error = err.Error()
	}
	_ = resp.WriteHeaderAndEntity(http.StatusOK, out)
}

// Sessions handles GET /api/v1/sessions.
func (h *Handler) Sessions(req *restful.Request, resp *restful.Response) {
	if !h.sessionsKept(resp) {
		return
	}
	list, err := h.sessions.List(req.Request.Context())
	if err != nil {
		HandleError(resp, err, http.StatusInternalServerError)
		return
	}
	_ = resp.WriteHeaderAndEntity(http.StatusOK, SessionsResponse{Sessions: list})
}

// Session handles GET /api/v1/sessions/{plan_run_id}.
func (h *Handler) Session(req *restful.Request, resp *restful.Response) {
	s, ok := h.session(req, resp)
	if !ok {
		return
	}
	_ = resp.WriteHeaderAndEntity(http.StatusOK, SessionResponse{Session: s, Summary: s.Summary()})
}

// EndSession handles DELETE /api/v1/sessions/{plan_run_id}.
func (h *Handler) EndSession(req *restful.Request, resp *restful.Response) {
	if !h.sessionsKept(resp) {
		return
	}
	runID := req.PathParameter("plan_run_id")
	err := h.sessions.End(req.Request.Context(), runID)
	switch {
	case errors.Is(err, session.ErrNotFound):
		HandleError(resp, fmt.Errorf("no session for run %q", runID), http.StatusNotFound)
		return
	case err != nil:
		HandleError(resp, err, http.StatusInternalServerError)
		return
	}
	resp.WriteHeader(http.StatusNoContent)
}

// AddTurns handles POST /api/v1/sessions/{plan_run_id}/turns: the new turns
// are appended to the session and the stored claim is negotiated again.
func (h *Handler) AddTurns(req *restful.Request, resp *restful.Response) {
	s, ok := h.session(req, resp)
	if !ok {
		return
	}
	var body TurnRequest
	if err := readJSON(req, &body); err != nil {
		HandleError(resp, err, http.StatusBadRequest)
		return
	}
	if s.Claim == nil {
		HandleError(resp, fmt.Errorf("session %q has no claim to negotiate", s.ID), http.StatusConflict)
		return
	}
	signal, inputErrs := h.emotion(body.Emotion)

	res := h.pipeline.Negotiate(req.Request.Context(), pipeline.Request{
		Emotion:          signal,
		Conversation:     body.Conversation,
		Approvals:        body.Approvals,
		Documentation:    body.Documentation,
		DamageAssessment: body.DamageAssessment,
		PlanRunID:        s.ID,
		UserID:           body.UserID,
		InputErrors:      inputErrs,
	})
	h.logger.Info().
		Str("plan_run_id", res.AuditTrailID).
		Str("status", string(res.Status)).
		Int("turns", len(body.Conversation)).
		Msg("session turn negotiated")

	_ = resp.WriteHeaderAndEntity(http.StatusOK, res)
}

func (h *Handler) sessionsKept(resp *restful.Response) bool {
	if h.sessions == nil {
		HandleError(resp, errors.New("sessions are not kept"), http.StatusNotFound)
		return false
	}
	return true
}

// session loads the session named by the plan_run_id path parameter and
// writes a 404 when there is none.
func (h *Handler) session(req *restful.Request, resp *restful.Response) (session.Session, bool) {
	if !h.sessionsKept(resp) {
		return session.Session{}, false
	}
	runID := req.PathParameter("plan_run_id")
	s, err := h.sessions.Get(req.Request.Context(), runID)
	switch {
	case errors.Is(err, session.ErrNotFound):
		HandleError(resp, fmt.Errorf("no session for run %q", runID), http.StatusNotFound)
		return session.Session{}, false
	case err != nil:
		HandleError(resp, err, http.StatusInternalServerError)
		return session.Session{}, false
	}
	return s, true
}

// trail loads the entries named by the plan_run_id path parameter and writes a
// 404 when there are none.
func (h *Handler) trail(req *restful.Request, resp *restful.Response) ([]audit.Entry, bool) {
	runID := req.PathParameter("plan_run_id")
	entries, err := h.audit.Entries(req.Request.Context(), runID)
	if err != nil {
		HandleError(resp, err, http.StatusInternalServerError)
		return nil, false
	}
	if len(entries) == 0 {
		HandleError(resp, fmt.Errorf("no audit trail for run %q", runID), http.StatusNotFound)
		return nil, false
	}
	return entries, true
}

// #endregion handler

func readJSON(req *restful.Request, out any) error {
	raw, err := io.ReadAll(io.LimitReader(req.Request.Body, maxBody))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(raw) == 0 {
		return errors.New("empty request body")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}
