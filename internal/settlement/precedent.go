package settlement

import (
	"math"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/claim"
)

// #region analyze

// AnalyzePrecedents recommends an amount from comparable cases: same claim
// type and an original claim within the tolerance window. Cases are taken in
// the order given, capped at MaxPrecedents. With no comparable cases the
// conservative fallback is returned instead of an error.
func (e *Engine) AnalyzePrecedents(claimType string, claimAmount float64, cases []claim.PrecedentCase) PrecedentAnalysis {
	matched := e.relevantPrecedents(claimType, claimAmount, cases)
	if len(matched) == 0 {
		return e.FallbackAnalysis(claimAmount)
	}

	var pctSum, satSum float64
	var daysSum int
	for _, c := range matched {
		pctSum += c.SettlementPercentage
		satSum += c.CustomerSatisfactionScore
		daysSum += c.ResolutionTimeDays
	}
	n := float64(len(matched))
	avgPct := pctSum / n
	avgSat := satSum / n
	recommended := claimAmount * avgPct

	return PrecedentAnalysis{
		RecommendedAmount:   recommended,
		Confidence:          math.Min(n/10.0, 1.0),
		RangeMin:            recommended * 0.9,
		RangeMax:            recommended * 1.1,
		ResolutionDays:      int(math.Round(float64(daysSum) / n)),
		AverageSatisfaction: avgSat,
		MatchedCases:        len(matched),
		RiskFactors:         e.precedentRiskFactors(claimAmount, len(matched), avgSat),
	}
}

// FallbackAnalysis is the conservative recommendation used when no
// precedent data is available.
func (e *Engine) FallbackAnalysis(claimAmount float64) PrecedentAnalysis {
	return PrecedentAnalysis{
		RecommendedAmount: claimAmount * e.config.FallbackPercentage,
		Confidence:        e.config.FallbackConfidence,
		RangeMin:          claimAmount * e.config.FallbackRangeMin,
		RangeMax:          claimAmount * e.config.FallbackRangeMax,
		ResolutionDays:    e.config.FallbackResolutionDays,
		RiskFactors:       []string{"no_precedent_data"},
		UsedFallback:      true,
	}
}

// #endregion analyze

// #region helpers
func (e *Engine) relevantPrecedents(claimType string, claimAmount float64, cases []claim.PrecedentCase) []claim.PrecedentCase {
	if claimAmount <= 0 {
		return nil
	}
	var out []claim.PrecedentCase
	for _, c := range cases {
		if c.ClaimType != claimType {
			continue
		}
		if math.Abs(c.OriginalClaim-claimAmount)/claimAmount >= e.config.PrecedentTolerance {
			continue
		}
		out = append(out, c)
		if len(out) == e.config.MaxPrecedents {
			break
		}
	}
	return out
}

func (e *Engine) precedentRiskFactors(claimAmount float64, matched int, avgSatisfaction float64) []string {
	risks := []string{}
	if claimAmount > e.config.HighValueClaim {
		risks = append(risks, "high_value_claim")
	}
	if matched < 3 {
		risks = append(risks, "limited_precedent_data")
	}
	if avgSatisfaction < e.config.LowSatisfaction {
		risks = append(risks, "historically_low_satisfaction")
	}
	return risks
}

// #endregion helpers
