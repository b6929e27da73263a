package emotion

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/claim"
)

func newTestResponder(t *testing.T) *Responder {
	t.Helper()
	r, err := NewResponder(DefaultResponses())
	require.NoError(t, err)
	return r
}

func TestStrategy_PerEmotion(t *testing.T) {
	r := newTestResponder(t)

	cases := []struct {
		emotion  claim.Emotion
		stress   float64
		tone     string
		escalate bool
	}{
		{claim.EmotionAnger, 0.9, "calm", true},
		{claim.EmotionAnger, 0.8, "calm", false},
		{claim.EmotionSadness, 0.75, "empathetic", true},
		{claim.EmotionAnxiety, 0.5, "reassuring", false},
		{claim.EmotionNeutral, 0.55, "professional", true},
	}
	for _, tc := range cases {
		t.Run(string(tc.emotion), func(t *testing.T) {
			st := r.Strategy(claim.EmotionalSignal{PrimaryEmotion: tc.emotion, StressLevel: tc.stress})
			assert.Equal(t, tc.tone, st.ToneIndicators[0])
			assert.Len(t, st.Templates, 3)
			assert.Equal(t, tc.escalate, st.NeedsEscalation)
			if tc.escalate {
				assert.NotEmpty(t, st.EscalationReason)
			} else {
				assert.Empty(t, st.EscalationReason)
			}
		})
	}
}

func TestStrategy_UnknownEmotionFallsBackToNeutral(t *testing.T) {
	r := newTestResponder(t)
	st := r.Strategy(claim.EmotionalSignal{PrimaryEmotion: claim.EmotionDistress, StressLevel: 0.9})

	assert.Equal(t, []string{"professional", "clear", "helpful"}, st.ToneIndicators)
	assert.True(t, st.NeedsEscalation)
	assert.Equal(t, "High stress level (0.90) for distress", st.EscalationReason)
}

func TestAdapt_PrefixesFirstTemplate(t *testing.T) {
	r := newTestResponder(t)
	st := r.Adapt("We can offer $9,500.00 today.", claim.EmotionalSignal{PrimaryEmotion: claim.EmotionAnxiety, StressLevel: 0.3})
	assert.Equal(t, "I can see you're worried about this claim. We can offer $9,500.00 today.", st.AdaptedResponse)
}

func TestAdapt_NoTemplates(t *testing.T) {
	r, err := NewResponder(map[string]ResponseConfig{"Neutral": {EscalationThreshold: 0.5}})
	require.NoError(t, err)
	st := r.Adapt("Offer ready.", claim.NeutralSignal())
	assert.Equal(t, "Offer ready.", st.AdaptedResponse)
}

func TestNewResponder_Validation(t *testing.T) {
	var cfgErr *claim.ConfigurationError

	_, err := NewResponder(map[string]ResponseConfig{"anger": {EscalationThreshold: 0.8}})
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "emotion.responses.neutral", cfgErr.Key)

	responses := DefaultResponses()
	responses["sadness"] = ResponseConfig{EscalationThreshold: 0}
	_, err = NewResponder(responses)
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "emotion.responses.sadness.escalation_threshold", cfgErr.Key)
}
