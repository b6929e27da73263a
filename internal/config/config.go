// Package config loads the negotiator configuration. Precedence, highest
// first: environment variables (NEGOTIATOR_*), the config file, built-in
// defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/audit"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/claim"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/compliance"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/emotion"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/escalation"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/logging"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/pipeline"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/records"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/session"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/settlement"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/validation"
)

// EnvPrefix prefixes every environment override, e.g.
// NEGOTIATOR_PIPELINE_BUDGET=10s.
const EnvPrefix = "NEGOTIATOR"

// #region config

// Config is the full negotiator configuration.
type Config struct {
	Log        logging.Config    `mapstructure:"log" yaml:"log"`
	Pipeline   pipeline.Config   `mapstructure:"pipeline" yaml:"pipeline"`
	Compliance compliance.Config `mapstructure:"compliance" yaml:"compliance"`
	Settlement settlement.Config `mapstructure:"settlement" yaml:"settlement"`
	Escalation escalation.Config `mapstructure:"escalation" yaml:"escalation"`
	Validation validation.Config `mapstructure:"validation" yaml:"validation"`
	Audit      AuditConfig       `mapstructure:"audit" yaml:"audit"`
	Sessions   SessionConfig     `mapstructure:"sessions" yaml:"sessions"`
	Emotion    EmotionConfig     `mapstructure:"emotion" yaml:"emotion"`
	Records    records.Config    `mapstructure:"records" yaml:"records"`
	Server     ServerConfig      `mapstructure:"server" yaml:"server"`
}

// AuditConfig selects the audit store and the re-check rules.
type AuditConfig struct {
	Store string       `mapstructure:"store" yaml:"store"` // "memory" or "sqlite"
	Path  string       `mapstructure:"path" yaml:"path"`
	Rules audit.Config `mapstructure:"rules" yaml:"rules"`
}

// SessionConfig selects the session store and its expiry.
type SessionConfig struct {
	Store  string         `mapstructure:"store" yaml:"store"` // "memory" or "sqlite"
	Path   string         `mapstructure:"path" yaml:"path"`
	Expiry session.Config `mapstructure:"expiry" yaml:"expiry"`
}

// EmotionConfig configures the emotion service client and the response
// postures.
type EmotionConfig struct {
	Client    emotion.ClientConfig              `mapstructure:"client" yaml:"client"`
	Responses map[string]emotion.ResponseConfig `mapstructure:"responses" yaml:"responses"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Address        string        `mapstructure:"address" yaml:"address"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:        logging.DefaultConfig(),
		Pipeline:   pipeline.DefaultConfig(),
		Compliance: compliance.DefaultConfig(),
		Settlement: settlement.DefaultConfig(),
		Escalation: escalation.DefaultConfig(),
		Validation: validation.DefaultConfig(),
		Audit: AuditConfig{
			Store: "memory",
			Rules: audit.DefaultConfig(),
		},
		Sessions: SessionConfig{
			Store:  "memory",
			Expiry: session.DefaultConfig(),
		},
		Emotion: EmotionConfig{
			Client:    emotion.DefaultClientConfig(),
			Responses: emotion.DefaultResponses(),
		},
		Records: records.DefaultConfig(),
		Server: ServerConfig{
			Address:        ":8080",
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   45 * time.Second,
			IdleTimeout:    60 * time.Second,
			AllowedOrigins: []string{"*"},
		},
	}
}

// #endregion config

// #region load

// DefaultPath is $HOME/.negotiator/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	return filepath.Join(home, ".negotiator", "config.yaml"), nil
}

// Load reads path over the defaults and applies environment overrides. An
// empty path uses the default location, which may be absent; an explicit
// path must exist. The returned string is the config file actually used.
func Load(path string) (Config, string, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := setDefaults(v, Default()); err != nil {
		return Config{}, "", err
	}

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}
	used := ""
	if path != "" {
		v.SetConfigFile(path)
		err := v.ReadInConfig()
		var notFound viper.ConfigFileNotFoundError
		switch {
		case err == nil:
			used = v.ConfigFileUsed()
		case !explicit && (errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)):
		default:
			return Config{}, "", fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, "", fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, "", err
	}
	return cfg, used, nil
}

// setDefaults registers every leaf of defaults so AutomaticEnv can override
// keys that no config file mentions.
func setDefaults(v *viper.Viper, defaults Config) error {
	raw, err := yaml.Marshal(defaults)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}
	flatten("", tree, v.SetDefault)
	return nil
}

func flatten(prefix string, node map[string]any, set func(string, any)) {
	for k, val := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := val.(map[string]any); ok && len(child) > 0 {
			flatten(key, child, set)
			continue
		}
		set(key, val)
	}
}

// #endregion load

// #region validate

// Validate checks every section and that the default jurisdiction has rules.
func (c Config) Validate() error {
	if err := c.Pipeline.Validate(); err != nil {
		return err
	}
	if err := c.Compliance.Validate(); err != nil {
		return err
	}
	found := false
	for code := range c.Compliance.Jurisdictions {
		if strings.EqualFold(code, c.Pipeline.DefaultJurisdiction) {
			found = true
			break
		}
	}
	if !found {
		return &claim.ConfigurationError{
			Key:    "compliance.jurisdictions." + strings.ToUpper(c.Pipeline.DefaultJurisdiction),
			Detail: "default jurisdiction has no settlement rules",
		}
	}
	if err := c.Settlement.Validate(); err != nil {
		return err
	}
	if err := c.Escalation.Validate(); err != nil {
		return err
	}
	switch c.Audit.Store {
	case "memory":
	case "sqlite":
		if c.Audit.Path == "" {
			return &claim.ConfigurationError{Key: "audit.path", Detail: "required for the sqlite store"}
		}
	default:
		return &claim.ConfigurationError{Key: "audit.store", Detail: fmt.Sprintf("unknown store %q", c.Audit.Store)}
	}
	switch c.Sessions.Store {
	case "memory":
	case "sqlite":
		if c.Sessions.Path == "" {
			return &claim.ConfigurationError{Key: "sessions.path", Detail: "required for the sqlite store"}
		}
	default:
		return &claim.ConfigurationError{Key: "sessions.store", Detail: fmt.Sprintf("unknown store %q", c.Sessions.Store)}
	}
	if err := c.Sessions.Expiry.Validate(); err != nil {
		return err
	}
	if _, ok := c.Emotion.Responses[string(claim.EmotionNeutral)]; !ok {
		return &claim.ConfigurationError{Key: "emotion.responses.neutral"}
	}
	return nil
}

// #endregion validate

// #region write

// Marshal renders c as YAML, the format Load reads.
func Marshal(c Config) ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return out, nil
}

// #endregion write
