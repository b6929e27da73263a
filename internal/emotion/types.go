package emotion

import (
	"time"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/claim"
)

// #region response-config

// ResponseConfig is the conversational posture for one primary emotion.
type ResponseConfig struct {
	Templates           []string `mapstructure:"templates" yaml:"templates"`
	Tone                []string `mapstructure:"tone" yaml:"tone"`
	EscalationThreshold float64  `mapstructure:"escalation_threshold" yaml:"escalation_threshold"`
}

// DefaultResponses returns the built-in postures. "neutral" doubles as the
// fallback for emotions without an entry.
func DefaultResponses() map[string]ResponseConfig {
	return map[string]ResponseConfig{
		"anger": {
			Templates: []string{
				"I understand you're frustrated with this situation.",
				"I can hear your concern and want to help resolve this.",
				"Let's work together to address your specific concerns.",
			},
			Tone:                []string{"calm", "understanding", "solution-focused"},
			EscalationThreshold: 0.8,
		},
		"sadness": {
			Templates: []string{
				"I'm truly sorry for what you're going through.",
				"This must be a difficult time for you and your family.",
				"I'm here to support you through this process.",
			},
			Tone:                []string{"empathetic", "gentle", "supportive"},
			EscalationThreshold: 0.7,
		},
		"anxiety": {
			Templates: []string{
				"I can see you're worried about this claim.",
				"Let me walk you through what happens next.",
				"I'll make sure to keep you informed every step of the way.",
			},
			Tone:                []string{"reassuring", "clear", "patient"},
			EscalationThreshold: 0.6,
		},
		"neutral": {
			Templates: []string{
				"Thank you for contacting us about your claim.",
				"I'm here to help you with your insurance needs.",
				"Let's review your claim details together.",
			},
			Tone:                []string{"professional", "clear", "helpful"},
			EscalationThreshold: 0.5,
		},
	}
}

// Strategy is how the agent should speak to the customer this turn.
type Strategy struct {
	Emotion          claim.Emotion `json:"emotion"`
	Templates        []string      `json:"response_templates"`
	ToneIndicators   []string      `json:"tone_indicators"`
	NeedsEscalation  bool          `json:"needs_escalation"`
	EscalationReason string        `json:"escalation_reason,omitempty"`
	AdaptedResponse  string        `json:"adapted_response,omitempty"`
}

// #endregion response-config

// #region client-config

// ClientConfig configures the emotion service client. An empty Address
// disables the client.
type ClientConfig struct {
	Address       string        `mapstructure:"address" yaml:"address"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second" yaml:"rate_per_second"`
	Burst         int           `mapstructure:"burst" yaml:"burst"`
	MaxRetries    int           `mapstructure:"max_retries" yaml:"max_retries"` // for Unavailable, ResourceExhausted, Aborted
}

// DefaultClientConfig returns a disabled client with production limits.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:       2 * time.Second,
		RatePerSecond: 10,
		Burst:         5,
		MaxRetries:    defaultMaxRetries,
	}
}

// Request identifies the utterance to analyze.
type Request struct {
	ClaimID    string
	CustomerID string
	Transcript string
}

// #endregion client-config
