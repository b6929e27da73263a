// Package session keeps the conversation state of a negotiation across
// turns: the claim under discussion, the transcript, the emotional readings
// and the latest outcome, keyed by plan run id.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/claim"
)

// ErrNotFound reports a session id with no stored session.
var ErrNotFound = errors.New("session not found")

// Speakers counted by Summary.
const (
	SpeakerCustomer = "customer"
	SpeakerAgent    = "agent"
)

// Claim statuses a session can carry besides a pipeline status.
const (
	StatusInProgress = "in_progress"
	StatusNoClaim    = "no_claim"
)

// #region config

// Config controls session expiry.
type Config struct {
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" yaml:"cleanup_interval"`
}

// DefaultConfig expires sessions idle for 30 minutes and sweeps every 5.
func DefaultConfig() Config {
	return Config{
		IdleTimeout:     30 * time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

// Validate rejects non-positive durations.
func (c Config) Validate() error {
	if c.IdleTimeout <= 0 {
		return &claim.ConfigurationError{Key: "sessions.expiry.idle_timeout", Detail: fmt.Sprintf("must be positive, got %s", c.IdleTimeout)}
	}
	if c.CleanupInterval <= 0 {
		return &claim.ConfigurationError{Key: "sessions.expiry.cleanup_interval", Detail: fmt.Sprintf("must be positive, got %s", c.CleanupInterval)}
	}
	return nil
}

// #endregion config

// #region session

// Reading is one emotional signal observed during the session.
type Reading struct {
	PrimaryEmotion claim.Emotion `json:"primary_emotion"`
	StressLevel    float64       `json:"stress_level"`
	At             time.Time     `json:"at"`
}

// Session is the stored state of one negotiation conversation.
type Session struct {
	ID               string              `json:"session_id"`
	Claim            *claim.ClaimDetails `json:"claim,omitempty"`
	Turns            []claim.Turn        `json:"turns"`
	Readings         []Reading           `json:"emotional_readings"`
	Status           string              `json:"status"`
	SettlementOffer  float64             `json:"settlement_offer,omitempty"`
	EscalationNeeded bool                `json:"escalation_needed"`
	EscalationReason string              `json:"escalation_reason,omitempty"`
	Negotiations     int                 `json:"negotiations"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// New starts an empty session.
func New(id string, now time.Time) Session {
	return Session{
		ID:        id,
		Turns:     []claim.Turn{},
		Readings:  []Reading{},
		Status:    StatusNoClaim,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a copy that shares no slices with s.
func (s Session) Clone() Session {
	out := s
	if s.Claim != nil {
		c := *s.Claim
		c.SupportingDocuments = append([]string(nil), s.Claim.SupportingDocuments...)
		out.Claim = &c
	}
	out.Turns = append([]claim.Turn{}, s.Turns...)
	out.Readings = append([]Reading{}, s.Readings...)
	return out
}

// FlagEscalation marks the session for a human. The flag never clears; the
// first reason is kept.
func (s *Session) FlagEscalation(reason string) {
	if !s.EscalationNeeded || s.EscalationReason == "" {
		s.EscalationReason = reason
	}
	s.EscalationNeeded = true
}

// IdleSince reports whether the session was last touched before cutoff.
func (s Session) IdleSince(cutoff time.Time) bool {
	return s.UpdatedAt.Before(cutoff)
}

// #endregion session

// #region summary

// Summary condenses a session for listings and handoffs.
type Summary struct {
	SessionID         string          `json:"session_id"`
	ClaimID           string          `json:"claim_id,omitempty"`
	TotalTurns        int             `json:"total_turns"`
	CustomerTurns     int             `json:"customer_turns"`
	AgentTurns        int             `json:"agent_turns"`
	DurationMinutes   float64         `json:"duration_minutes"`
	EmotionsDetected  []claim.Emotion `json:"emotions_detected"`
	CurrentStress     float64         `json:"current_stress"`
	EscalationNeeded  bool            `json:"escalation_needed"`
	EscalationReason  string          `json:"escalation_reason,omitempty"`
	ClaimStatus       string          `json:"claim_status"`
	SettlementOffered bool            `json:"settlement_offered"`
	Negotiations      int             `json:"negotiations"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Summary counts turns by speaker and lists the emotions seen in order.
func (s Session) Summary() Summary {
	sum := Summary{
		SessionID:         s.ID,
		TotalTurns:        len(s.Turns),
		DurationMinutes:   s.UpdatedAt.Sub(s.CreatedAt).Minutes(),
		EmotionsDetected:  make([]claim.Emotion, 0, len(s.Readings)),
		EscalationNeeded:  s.EscalationNeeded,
		EscalationReason:  s.EscalationReason,
		ClaimStatus:       s.Status,
		SettlementOffered: s.SettlementOffer > 0,
		Negotiations:      s.Negotiations,
		UpdatedAt:         s.UpdatedAt,
	}
	if s.Claim != nil {
		sum.ClaimID = s.Claim.ClaimID
	}
	for _, t := range s.Turns {
		switch t.Speaker {
		case SpeakerCustomer:
			sum.CustomerTurns++
		case SpeakerAgent:
			sum.AgentTurns++
		}
	}
	for _, r := range s.Readings {
		sum.EmotionsDetected = append(sum.EmotionsDetected, r.PrimaryEmotion)
	}
	if n := len(s.Readings); n > 0 {
		sum.CurrentStress = s.Readings[n-1].StressLevel
	}
	return sum
}

// #endregion summary

// #region store

// Store persists sessions. Get and Delete return ErrNotFound for an unknown
// id; Put replaces any stored session with the same id.
type Store interface {
	Get(ctx context.Context, id string) (Session, error)
	Put(ctx context.Context, s Session) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Session, error)
	// DeleteIdleSince removes every session last updated before cutoff and
	// returns how many it removed.
	DeleteIdleSince(ctx context.Context, cutoff time.Time) (int, error)
}

// #endregion store
