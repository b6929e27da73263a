// Package emotion adapts the conversation to the customer's emotional state
// and talks to the external emotion-recognition service.
package emotion

import (
	"fmt"
	"strings"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/claim"
)

// #region responder

// Responder picks a response posture for an emotional signal.
type Responder struct {
	responses map[string]ResponseConfig
}

// NewResponder validates the posture table. A "neutral" entry is required.
func NewResponder(responses map[string]ResponseConfig) (*Responder, error) {
	table := make(map[string]ResponseConfig, len(responses))
	for name, rc := range responses {
		table[strings.ToLower(name)] = rc
	}
	if _, ok := table[string(claim.EmotionNeutral)]; !ok {
		return nil, &claim.ConfigurationError{Key: "emotion.responses.neutral"}
	}
	for name, rc := range table {
		if rc.EscalationThreshold <= 0 || rc.EscalationThreshold > 1 {
			return nil, &claim.ConfigurationError{
				Key:    fmt.Sprintf("emotion.responses.%s.escalation_threshold", name),
				Detail: fmt.Sprintf("must be in (0,1], got %v", rc.EscalationThreshold),
			}
		}
	}
	return &Responder{responses: table}, nil
}

// Strategy returns the posture for the signal's primary emotion, falling
// back to neutral.
func (r *Responder) Strategy(s claim.EmotionalSignal) Strategy {
	rc, ok := r.responses[string(s.PrimaryEmotion)]
	if !ok {
		rc = r.responses[string(claim.EmotionNeutral)]
	}

	st := Strategy{
		Emotion:         s.PrimaryEmotion,
		Templates:       append([]string(nil), rc.Templates...),
		ToneIndicators:  append([]string(nil), rc.Tone...),
		NeedsEscalation: s.StressLevel > rc.EscalationThreshold,
	}
	if st.NeedsEscalation {
		st.EscalationReason = fmt.Sprintf("High stress level (%.2f) for %s", s.StressLevel, s.PrimaryEmotion)
	}
	return st
}

// Adapt prefixes base with the posture's opening line and returns the full
// strategy with the adapted text filled in.
func (r *Responder) Adapt(base string, s claim.EmotionalSignal) Strategy {
	st := r.Strategy(s)
	st.AdaptedResponse = base
	if len(st.Templates) > 0 {
		st.AdaptedResponse = strings.TrimSpace(st.Templates[0] + " " + base)
	}
	return st
}

// #endregion responder
