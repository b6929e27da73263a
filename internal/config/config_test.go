package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/claim"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, used, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, used)
	assert.Equal(t, "CA", cfg.Pipeline.DefaultJurisdiction)
	assert.Equal(t, 30*time.Second, cfg.Pipeline.Budget)
	assert.Equal(t, 50000.0, cfg.Escalation.HighValueThreshold)
	assert.Equal(t, "memory", cfg.Audit.Store)
	assert.Len(t, cfg.Compliance.Jurisdictions, 4)
	assert.Contains(t, cfg.Emotion.Responses, "neutral")
	assert.Equal(t, []string{"lawyer", "sue", "court", "legal action", "attorney", "litigation"}, cfg.Escalation.LegalKeywords)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
pipeline:
  default_jurisdiction: NY
  budget: 5s
escalation:
  high_value_threshold: 75000
compliance:
  jurisdictions:
    WA:
      max_auto_settlement: 40000
      required_disclosure: washington_insurance_disclosure
audit:
  store: sqlite
  path: /tmp/audit.db
`)

	cfg, used, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, used)
	assert.Equal(t, "NY", cfg.Pipeline.DefaultJurisdiction)
	assert.Equal(t, 5*time.Second, cfg.Pipeline.Budget)
	assert.Equal(t, 75000.0, cfg.Escalation.HighValueThreshold)
	assert.Equal(t, 0.7, cfg.Escalation.FraudThreshold)
	assert.Len(t, cfg.Compliance.Jurisdictions, 5)
	assert.Equal(t, "sqlite", cfg.Audit.Store)
}

func TestLoad_EnvironmentWins(t *testing.T) {
	path := writeConfig(t, "pipeline:\n  budget: 5s\n")
	t.Setenv("NEGOTIATOR_PIPELINE_BUDGET", "2s")
	t.Setenv("NEGOTIATOR_ESCALATION_FRAUD_THRESHOLD", "0.55")
	t.Setenv("NEGOTIATOR_LOG_LEVEL", "debug")

	cfg, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Pipeline.Budget)
	assert.Equal(t, 0.55, cfg.Escalation.FraudThreshold)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_SessionSettings(t *testing.T) {
	path := writeConfig(t, `
sessions:
  store: sqlite
  path: /tmp/sessions.db
  expiry:
    idle_timeout: 10m
`)
	t.Setenv("NEGOTIATOR_SESSIONS_EXPIRY_CLEANUP_INTERVAL", "1m")

	cfg, _, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Sessions.Store)
	assert.Equal(t, "/tmp/sessions.db", cfg.Sessions.Path)
	assert.Equal(t, 10*time.Minute, cfg.Sessions.Expiry.IdleTimeout)
	assert.Equal(t, time.Minute, cfg.Sessions.Expiry.CleanupInterval)
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_UnknownDefaultJurisdiction(t *testing.T) {
	path := writeConfig(t, "pipeline:\n  default_jurisdiction: ZZ\n")

	_, _, err := Load(path)
	var cfgErr *claim.ConfigurationError
	require.True(t, errors.As(err, &cfgErr), "got %v", err)
	assert.Equal(t, "compliance.jurisdictions.ZZ", cfgErr.Key)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		key    string
	}{
		{"sqlite without path", func(c *Config) { c.Audit.Store = "sqlite" }, "audit.path"},
		{"unknown store", func(c *Config) { c.Audit.Store = "s3" }, "audit.store"},
		{"session sqlite without path", func(c *Config) { c.Sessions.Store = "sqlite" }, "sessions.path"},
		{"unknown session store", func(c *Config) { c.Sessions.Store = "redis" }, "sessions.store"},
		{"zero session timeout", func(c *Config) { c.Sessions.Expiry.IdleTimeout = 0 }, "sessions.expiry.idle_timeout"},
		{"no neutral posture", func(c *Config) { delete(c.Emotion.Responses, "neutral") }, "emotion.responses.neutral"},
		{"zero budget", func(c *Config) { c.Pipeline.Budget = 0 }, "pipeline.budget"},
		{"no legal keywords", func(c *Config) { c.Escalation.LegalKeywords = nil }, "escalation.legal_keywords"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			var cfgErr *claim.ConfigurationError
			require.True(t, errors.As(cfg.Validate(), &cfgErr))
			assert.Equal(t, tc.key, cfgErr.Key)
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestMarshal_LoadsBack(t *testing.T) {
	out, err := Marshal(Default())
	require.NoError(t, err)
	assert.Contains(t, string(out), "budget: 30s")

	cfg, _, err := Load(writeConfig(t, string(out)))
	require.NoError(t, err)
	assert.Equal(t, Default().Pipeline, cfg.Pipeline)
	assert.Equal(t, Default().Escalation, cfg.Escalation)
	assert.Equal(t, Default().Emotion.Client, cfg.Emotion.Client)
}
