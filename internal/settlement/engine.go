// Package settlement computes settlement offers from claim economics,
// historical precedent and the customer's emotional state.
package settlement

import (
	"fmt"
	"math"
	"strings"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/claim"
)

// #region engine

// Engine computes offers. Safe for concurrent use.
type Engine struct {
	config Config
}

// NewEngine creates a settlement engine after validating config.
func NewEngine(config Config) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Engine{config: config}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

// #endregion engine

// #region offer

// Offer computes the conservative base settlement: the smallest of claim,
// coverage and damage, adjusted for empathy and bounded by coverage.
func (e *Engine) Offer(claimAmount, coverage, damage float64, emotion claim.EmotionalSignal) (Offer, error) {
	inputs := []struct {
		name string
		v    float64
	}{
		{"claim_amount", claimAmount},
		{"policy_coverage", coverage},
		{"damage_assessment", damage},
	}
	for _, in := range inputs {
		if math.IsNaN(in.v) || math.IsInf(in.v, 0) || in.v < 0 {
			return Offer{}, &claim.SettlementCalculationError{
				Reason: fmt.Sprintf("%s must be a finite non-negative amount, got %v", in.name, in.v),
			}
		}
	}

	base := math.Min(claimAmount, math.Min(coverage, damage))
	factor := e.emotionalAdjustment(emotion)
	final := math.Min(base*factor, coverage)
	confidence := offerConfidence(claimAmount, coverage, damage)

	return Offer{
		Amount:           final,
		BaseAmount:       base,
		AdjustmentFactor: factor,
		Confidence:       confidence,
		RequiresApproval: final > coverage*e.config.ApprovalFraction,
		Reasoning:        reasoning(base, final, emotion.PrimaryEmotion, factor, confidence),
	}, nil
}

// emotionalAdjustment returns the empathy factor, clamped to the configured band.
// Very high stress on anger or frustration takes the larger factor.
func (e *Engine) emotionalAdjustment(emotion claim.EmotionalSignal) float64 {
	adj := 1.0
	switch emotion.PrimaryEmotion {
	case claim.EmotionAnger, claim.EmotionFrustration:
		if emotion.StressLevel > e.config.VeryHighStressThreshold {
			adj = e.config.HighAngerFactor
		} else if emotion.StressLevel > e.config.HighStressThreshold {
			adj = e.config.EmpathyFactor
		}
	case claim.EmotionSadness:
		if emotion.StressLevel > e.config.HighStressThreshold {
			adj = e.config.EmpathyFactor
		}
	}
	return clamp(adj, e.config.MinAdjustment, e.config.MaxAdjustment)
}

// offerConfidence decreases with the spread of the three input amounts.
func offerConfidence(values ...float64) float64 {
	hi, lo := values[0], values[0]
	for _, v := range values[1:] {
		hi = math.Max(hi, v)
		lo = math.Min(lo, v)
	}
	if hi == 0 {
		return 0.5
	}
	return clamp(1-(hi-lo)/hi, 0.1, 0.95)
}

func reasoning(base, final float64, emotion claim.Emotion, factor, confidence float64) string {
	var parts []string
	if base != final {
		parts = append(parts, fmt.Sprintf("Adjusted from base amount of $%.2f", base))
	}
	if factor != 1.0 {
		parts = append(parts, fmt.Sprintf("Emotional adjustment applied for %s context", emotion))
	}
	if confidence < 0.7 {
		parts = append(parts, "Lower confidence due to data variance")
	}
	if len(parts) == 0 {
		return "Standard settlement calculation applied"
	}
	return strings.Join(parts, "; ")
}

// #endregion offer

// #region validate

// Validate fails fast on settlement parameters that cannot produce a bounded offer.
func (c Config) Validate() error {
	switch {
	case c.MinAdjustment <= 0:
		return &claim.ConfigurationError{Key: "settlement.min_adjustment"}
	case c.MaxAdjustment < c.MinAdjustment:
		return &claim.ConfigurationError{Key: "settlement.max_adjustment", Detail: "must not be below min_adjustment"}
	case c.ApprovalFraction <= 0:
		return &claim.ConfigurationError{Key: "settlement.approval_fraction"}
	case c.MaxPrecedents <= 0:
		return &claim.ConfigurationError{Key: "settlement.max_precedents"}
	case c.PrecedentTolerance <= 0:
		return &claim.ConfigurationError{Key: "settlement.precedent_tolerance"}
	case c.FallbackPercentage <= 0:
		return &claim.ConfigurationError{Key: "settlement.fallback_percentage"}
	case c.FallbackRangeMin > c.FallbackPercentage || c.FallbackRangeMax < c.FallbackPercentage:
		return &claim.ConfigurationError{Key: "settlement.fallback_range_min", Detail: "fallback range must contain fallback_percentage"}
	}
	return nil
}

// #endregion validate

// #region helpers
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// #endregion helpers
