package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Manager applies expiry on top of a Store.
type Manager struct {
	store  Store
	config Config
	clock  func() time.Time
	logger zerolog.Logger
}

// NewManager builds a manager over store.
func NewManager(store Store, config Config, logger zerolog.Logger) *Manager {
	return &Manager{
		store:  store,
		config: config,
		clock:  time.Now,
		logger: logger.With().Str("component", "session").Logger(),
	}
}

// WithClock overrides the time source.
func (m *Manager) WithClock(clock func() time.Time) *Manager {
	m.clock = clock
	return m
}

func (m *Manager) now() time.Time {
	return m.clock().UTC()
}

// #region lifecycle

// Resume returns the live session for id, or a new one when none is stored
// or the stored one has been idle past the timeout. resumed is true only
// for a live stored session.
func (m *Manager) Resume(ctx context.Context, id string) (Session, bool, error) {
	now := m.now()
	s, err := m.store.Get(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		return New(id, now), false, nil
	case err != nil:
		return Session{}, false, fmt.Errorf("load session %s: %w", id, err)
	}
	if s.IdleSince(now.Add(-m.config.IdleTimeout)) {
		m.logger.Info().Str("session_id", id).Time("updated_at", s.UpdatedAt).Msg("session expired; starting over")
		return New(id, now), false, nil
	}
	return s, true, nil
}

// Save stamps UpdatedAt, and any unstamped reading, and stores s.
func (m *Manager) Save(ctx context.Context, s Session) (Session, error) {
	now := m.now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	for i := range s.Readings {
		if s.Readings[i].At.IsZero() {
			s.Readings[i].At = now
		}
	}
	if err := m.store.Put(ctx, s); err != nil {
		return Session{}, fmt.Errorf("save session %s: %w", s.ID, err)
	}
	if s.EscalationNeeded {
		m.logger.Warn().Str("session_id", s.ID).Str("reason", s.EscalationReason).Msg("session flagged for escalation")
	}
	return s, nil
}

// Get returns the stored session whether or not it has expired.
func (m *Manager) Get(ctx context.Context, id string) (Session, error) {
	return m.store.Get(ctx, id)
}

// End removes the session.
func (m *Manager) End(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	m.logger.Info().Str("session_id", id).Msg("session ended")
	return nil
}

// List summarizes every stored session, ordered by id.
func (m *Manager) List(ctx context.Context) ([]Summary, error) {
	sessions, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Summary())
	}
	return out, nil
}

// #endregion lifecycle

// #region expiry

// Cleanup deletes sessions idle past the timeout.
func (m *Manager) Cleanup(ctx context.Context) (int, error) {
	n, err := m.store.DeleteIdleSince(ctx, m.now().Add(-m.config.IdleTimeout))
	if err != nil {
		return 0, fmt.Errorf("clean up sessions: %w", err)
	}
	if n > 0 {
		m.logger.Info().Int("removed", n).Msg("expired sessions removed")
	}
	return n, nil
}

// Run sweeps expired sessions every CleanupInterval until ctx ends.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Cleanup(ctx); err != nil && ctx.Err() == nil {
				m.logger.Warn().Err(err).Msg("session cleanup failed")
			}
		}
	}
}

// #endregion expiry
