package setup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/claim"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/config"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/health"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/pipeline"
)

const recordsYAML = `
policies:
  - policy_number: POL-1
    customer_id: CUST-1
    policy_type: auto
    coverage_amount: 100000
    status: active
precedents:
  - claim_type: auto_collision
    original_claim: 10000
    settlement_percentage: 0.9
    resolution_time_days: 7
    customer_satisfaction_score: 4.6
`

func TestWire_MemoryDefaults(t *testing.T) {
	deps, err := Wire(config.Default(), zerolog.Nop())
	require.NoError(t, err)
	defer deps.Close()

	assert.Nil(t, deps.Records)
	res := deps.Pipeline.Negotiate(context.Background(), pipeline.Request{
		Claim: claim.ClaimDetails{ClaimID: "CLM-1", ClaimType: "auto_collision", EstimatedAmount: 1000},
	})
	assert.NotEqual(t, pipeline.StatusError, res.Status, res.Message)
	assert.Contains(t, res.RiskIndicators, "policy_not_found")
}

func TestWire_SQLiteAndRecords(t *testing.T) {
	dir := t.TempDir()
	recordsPath := filepath.Join(dir, "records.yaml")
	require.NoError(t, os.WriteFile(recordsPath, []byte(recordsYAML), 0o644))

	cfg := config.Default()
	cfg.Audit.Store = "sqlite"
	cfg.Audit.Path = filepath.Join(dir, "audit.db")
	cfg.Records.Path = recordsPath
	cfg.Sessions.Store = "sqlite"
	cfg.Sessions.Path = filepath.Join(dir, "sessions.db")

	deps, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)

	res := deps.Pipeline.Negotiate(context.Background(), pipeline.Request{
		PlanRunID: "run-wired",
		Claim: claim.ClaimDetails{
			ClaimID:             "CLM-1",
			PolicyNumber:        "POL-1",
			ClaimType:           "auto_collision",
			EstimatedAmount:     10000,
			CustomerID:          "CUST-1",
			SupportingDocuments: []string{"a.pdf", "b.pdf"},
		},
	})
	require.NotEqual(t, pipeline.StatusError, res.Status, res.Message)
	assert.NotContains(t, res.RiskIndicators, "policy_not_found")
	require.NotNil(t, res.SettlementOffer)
	assert.Greater(t, res.SettlementOffer.RecommendedAmount, 0.0)
	require.NoError(t, deps.Audit.Verify(context.Background(), res.AuditTrailID))
	require.NoError(t, deps.Close())

	// Entries survive a reopen.
	deps, err = Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer deps.Close()
	entries, err := deps.Audit.Entries(context.Background(), res.AuditTrailID)
	require.NoError(t, err)
	assert.Len(t, entries, 9)

	// So does the session.
	sess, err := deps.Sessions.Get(context.Background(), "run-wired")
	require.NoError(t, err)
	require.NotNil(t, sess.Claim)
	assert.Equal(t, "CLM-1", sess.Claim.ClaimID)
	assert.Equal(t, 1, sess.Negotiations)
}

func TestWire_HealthTracksWiredComponents(t *testing.T) {
	deps, err := Wire(config.Default(), zerolog.Nop())
	require.NoError(t, err)
	defer deps.Close()

	r := deps.Health.Report()
	assert.Equal(t, health.StatusHealthy, r.Overall)
	assert.Equal(t, []string{
		health.ComponentAudit,
		health.ComponentPipeline,
		health.ComponentPolicy,
		health.ComponentPrecedents,
		health.ComponentSessions,
	}, r.Names())

	deps.Pipeline.Negotiate(context.Background(), pipeline.Request{
		Claim: claim.ClaimDetails{ClaimID: "CLM-1", ClaimType: "auto_collision", EstimatedAmount: 1000},
	})
	assert.Equal(t, 1, deps.Health.Report().Components[health.ComponentSessions].Successes)
}

func TestWire_UnknownSessionStore(t *testing.T) {
	cfg := config.Default()
	cfg.Sessions.Store = "redis"

	_, err := Wire(cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "unknown session store")
}

func TestWire_BadRecordsFile(t *testing.T) {
	cfg := config.Default()
	cfg.Records.Path = filepath.Join(t.TempDir(), "records.csv")
	require.NoError(t, os.WriteFile(cfg.Records.Path, []byte("x"), 0o644))

	_, err := Wire(cfg, zerolog.Nop())
	assert.Error(t, err)
}
