// Package setup wires the configured components into a ready pipeline.
package setup

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/audit"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/compliance"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/config"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/emotion"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/escalation"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/health"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/normalize"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/pipeline"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/records"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/session"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/settlement"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/validation"
)

// Dependencies are the long-lived components built from one configuration.
type Dependencies struct {
	Pipeline   *pipeline.Pipeline
	Audit      *audit.Manager
	Normalizer *normalize.Normalizer
	Compliance *compliance.Engine
	Escalation *escalation.Engine
	Records    *records.Cache // nil when no records file is configured
	Sessions   *session.Manager
	Health     *health.Monitor
	Logger     zerolog.Logger

	closers []func() error
}

// Close releases the audit and session databases and the emotion service
// connection.
func (d *Dependencies) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i]())
	}
	return errors.Join(errs...)
}

// Option adjusts how Wire builds components.
type Option func(*options)

type options struct {
	dataset *records.Dataset
}

// WithRecords serves policies and precedents from ds instead of the
// configured records file.
func WithRecords(ds records.Dataset) Option {
	return func(o *options) {
		o.dataset = &ds
	}
}

// Wire builds every component from cfg. On error, anything already opened
// is closed.
func Wire(cfg config.Config, logger zerolog.Logger, opts ...Option) (deps *Dependencies, err error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	deps = &Dependencies{Logger: logger}
	defer func() {
		if err != nil {
			_ = deps.Close()
			deps = nil
		}
	}()

	n, err := normalize.New(cfg.Pipeline.DefaultJurisdiction)
	if err != nil {
		return nil, err
	}
	comp, err := compliance.NewEngine(cfg.Compliance)
	if err != nil {
		return nil, err
	}
	sett, err := settlement.NewEngine(cfg.Settlement)
	if err != nil {
		return nil, err
	}
	esc, err := escalation.NewEngine(cfg.Escalation)
	if err != nil {
		return nil, err
	}
	responder, err := emotion.NewResponder(cfg.Emotion.Responses)
	if err != nil {
		return nil, err
	}

	store, err := openAuditStore(cfg.Audit, deps)
	if err != nil {
		return nil, err
	}
	manager := audit.NewManager(store, cfg.Audit.Rules, logger)

	sessionStore, err := openSessionStore(cfg.Sessions, deps)
	if err != nil {
		return nil, err
	}
	sessions := session.NewManager(sessionStore, cfg.Sessions.Expiry, logger)
	components := []string{
		health.ComponentPipeline,
		health.ComponentAudit,
		health.ComponentSessions,
		health.ComponentPolicy,
		health.ComponentPrecedents,
	}
	if cfg.Emotion.Client.Address != "" {
		components = append(components, health.ComponentEmotion)
	}
	monitor := health.NewMonitor(logger, components...)

	pd := pipeline.Deps{
		Normalizer: n,
		Compliance: comp,
		Settlement: sett,
		Escalation: esc,
		Validator:  validation.NewValidator(cfg.Validation),
		Responder:  responder,
		Audit:      manager,
		Sessions:   sessions,
		Health:     monitor,
	}

	var fs *records.FileStore
	switch {
	case o.dataset != nil:
		fs = records.NewFileStore(*o.dataset)
	case cfg.Records.Path != "":
		fs, err = records.LoadFile(cfg.Records.Path)
		if err != nil {
			return nil, err
		}
	}
	if fs != nil {
		cache := records.NewCache(fs, fs, cfg.Records.CacheTTL, cfg.Records.CleanupInterval)
		pd.Policies, pd.Precedents = cache, cache
		deps.Records = cache
	} else {
		logger.Warn().Msg("no records file configured; policies will not verify and precedents fall back")
	}

	if cfg.Emotion.Client.Address != "" {
		client, err := emotion.NewClient(cfg.Emotion.Client, n, logger)
		if err != nil {
			return nil, err
		}
		deps.closers = append(deps.closers, client.Close)
		pd.Analyzer = client
	}

	p, err := pipeline.New(pd, cfg.Pipeline, logger)
	if err != nil {
		return nil, err
	}

	deps.Pipeline = p
	deps.Audit = manager
	deps.Normalizer = n
	deps.Compliance = comp
	deps.Escalation = esc
	deps.Sessions = sessions
	deps.Health = monitor
	return deps, nil
}

func openAuditStore(cfg config.AuditConfig, deps *Dependencies) (audit.Store, error) {
	switch cfg.Store {
	case "", "memory":
		return audit.NewMemoryStore(), nil
	case "sqlite":
		s, err := audit.OpenSQLiteStore(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open audit store: %w", err)
		}
		deps.closers = append(deps.closers, s.Close)
		return s, nil
	default:
		return nil, fmt.Errorf("unknown audit store %q", cfg.Store)
	}
}

func openSessionStore(cfg config.SessionConfig, deps *Dependencies) (session.Store, error) {
	switch cfg.Store {
	case "", "memory":
		return session.NewMemoryStore(), nil
	case "sqlite":
		s, err := session.OpenSQLiteStore(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open session store: %w", err)
		}
		deps.closers = append(deps.closers, s.Close)
		return s, nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Store)
	}
}
