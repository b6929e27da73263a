// Package audit records every decision-relevant action of a negotiation as
// an immutable, hash-chained entry and derives compliance reports from them.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// #region manager
// Manager is the audit trail front end used by the pipeline and the API.
type Manager struct {
	store  Store
	config Config
	logger zerolog.Logger
	clock  func() time.Time
}

// NewManager creates a manager over store.
func NewManager(store Store, config Config, logger zerolog.Logger) *Manager {
	return &Manager{
		store:  store,
		config: config,
		logger: logger.With().Str("component", "audit").Logger(),
		clock:  time.Now,
	}
}

// WithClock overrides the timestamp source.
func (m *Manager) WithClock(clock func() time.Time) *Manager {
	m.clock = clock
	return m
}

// #endregion manager

// #region log

// Log assigns an id and timestamp and appends e. A caller-supplied id is kept
// and must be unique across all runs; the store rejects a reused one with
// ErrDuplicateEntry. Entries are stored whether or not they pass the
// compliance re-check.
func (m *Manager) Log(ctx context.Context, e Entry) (Entry, error) {
	if e.EntryID == "" {
		e.EntryID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = m.clock()
	}
	e.Timestamp = e.Timestamp.UTC()
	if e.ComplianceFlags == nil {
		e.ComplianceFlags = []string{}
	}
	if e.RiskIndicators == nil {
		e.RiskIndicators = []string{}
	}
	if len(e.Arguments) == 0 {
		e.Arguments = nil
	}
	if len(e.Result) == 0 {
		e.Result = nil
	}

	stored, err := m.store.Append(ctx, e)
	if err != nil {
		m.logger.Error().Err(err).
			Str("plan_run_id", e.PlanRunID).
			Str("action_type", string(e.ActionType)).
			Msg("audit append failed")
		return Entry{}, fmt.Errorf("log audit entry: %w", err)
	}

	m.logger.Debug().
		Str("plan_run_id", stored.PlanRunID).
		Str("action_type", string(stored.ActionType)).
		Uint64("sequence", stored.Sequence).
		Msg("audit entry logged")
	return stored, nil
}

// #endregion log

// #region check-compliance

// CheckCompliance re-checks one entry independently of the pipeline's own
// compliance stage and returns its violations, the entry's flags included.
func (m *Manager) CheckCompliance(e Entry) []string {
	violations := []string{}

	var args Arguments
	if len(e.Arguments) > 0 {
		if err := json.Unmarshal(e.Arguments, &args); err != nil {
			violations = append(violations, "Unreadable arguments: compliance could not be verified")
		}
	}

	switch e.ActionType {
	case ActionSettlementOffer:
		if args.Amount > m.config.ApprovalThreshold {
			if missing := missingFrom(m.config.RequiredApprovals, args.Approvals); len(missing) > 0 {
				violations = append(violations, fmt.Sprintf("Missing required approvals: [%s]", strings.Join(missing, ", ")))
			}
		}
	case ActionClaimValidation:
		if args.Complexity == "high" {
			if missing := missingFrom(m.config.ComplexClaimDocumentation, args.Documentation); len(missing) > 0 {
				violations = append(violations, fmt.Sprintf("Missing required documentation for complex claim: [%s]", strings.Join(missing, ", ")))
			}
		}
	}

	return append(violations, e.ComplianceFlags...)
}

// #endregion check-compliance

// #region report

// Report builds the compliance report for a run. The same entries always
// produce the same report id, totals and findings.
func (m *Manager) Report(ctx context.Context, planRunID string) (Report, error) {
	entries, err := m.store.Entries(ctx, planRunID)
	if err != nil {
		return Report{}, fmt.Errorf("report %s: %w", planRunID, err)
	}

	r := Report{
		PlanRunID:            planRunID,
		GeneratedAt:          m.clock().UTC(),
		TotalActions:         len(entries),
		ComplianceViolations: []string{},
		HighRiskActions:      []string{},
		RegulatoryNotes:      []string{},
	}

	hashes := make([]string, 0, len(entries))
	flagged := 0
	for _, e := range entries {
		hashes = append(hashes, e.EntryHash)

		violations := m.CheckCompliance(e)
		r.ComplianceViolations = append(r.ComplianceViolations, violations...)
		if len(violations) > 0 {
			flagged++
		}
		if len(e.RiskIndicators) > 0 || len(violations) > 0 {
			r.HighRiskActions = append(r.HighRiskActions, fmt.Sprintf("%s - %s", e.ActionType, e.ToolName))
		}
		if e.Justification != "" {
			r.RegulatoryNotes = append(r.RegulatoryNotes, fmt.Sprintf("%s: %s", e.ActionType, e.Justification))
		}
	}

	if flagged > 0 {
		r.Summary = fmt.Sprintf("Compliance issues detected in %d out of %d actions.", flagged, r.TotalActions)
	} else {
		r.Summary = fmt.Sprintf("All %d actions compliant with regulations.", r.TotalActions)
	}

	r.ReportID, err = reportID(planRunID, hashes)
	if err != nil {
		return Report{}, fmt.Errorf("report %s: %w", planRunID, err)
	}
	return r, nil
}

func reportID(planRunID string, hashes []string) (string, error) {
	raw, err := json.Marshal(map[string]any{
		"plan_run_id": planRunID,
		"entries":     hashes,
	})
	if err != nil {
		return "", fmt.Errorf("marshal report seed: %w", err)
	}
	h, err := canonicalHash(raw)
	if err != nil {
		return "", err
	}
	return "rpt-" + strings.TrimPrefix(h, "sha256:")[:16], nil
}

// #endregion report

// #region export

// Entries returns a run's entries in sequence order.
func (m *Manager) Entries(ctx context.Context, planRunID string) ([]Entry, error) {
	entries, err := m.store.Entries(ctx, planRunID)
	if err != nil {
		return nil, fmt.Errorf("entries %s: %w", planRunID, err)
	}
	return entries, nil
}

// Export serializes a run's entries as an indented JSON array.
func (m *Manager) Export(ctx context.Context, planRunID string) ([]byte, error) {
	entries, err := m.Entries(ctx, planRunID)
	if err != nil {
		return nil, err
	}
	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", planRunID, err)
	}
	return out, nil
}

// ParseExport reads entries back from Export output.
func ParseExport(data []byte) ([]Entry, error) {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse export: %w", err)
	}
	return entries, nil
}

// Verify checks the hash chain of a stored run.
func (m *Manager) Verify(ctx context.Context, planRunID string) error {
	entries, err := m.Entries(ctx, planRunID)
	if err != nil {
		return err
	}
	return VerifyEntries(entries)
}

// Runs lists the stored plan run ids.
func (m *Manager) Runs(ctx context.Context) ([]string, error) {
	return m.store.Runs(ctx)
}

// #endregion export

// #region helpers
func missingFrom(required, present []string) []string {
	have := make(map[string]bool, len(present))
	for _, p := range present {
		have[p] = true
	}
	var missing []string
	for _, r := range required {
		if !have[r] {
			missing = append(missing, r)
		}
	}
	return missing
}

// #endregion helpers
