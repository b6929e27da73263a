package settlement

import (
	"math"
)

// #region recommend

// Recommend combines the precedent analysis, the base offer and the policy
// and compliance ceilings into one recommendation. Every amount it returns,
// creative options included, is bounded by coverage (when a policy is known)
// and by the compliance cap (when one applies).
func (e *Engine) Recommend(req Request) (Recommendation, error) {
	claimAmount := req.Claim.EstimatedAmount

	coverage := claimAmount
	if req.Policy != nil {
		coverage = req.Policy.CoverageAmount
	}

	damage := req.DamageAssessment
	if damage <= 0 {
		damage = req.Precedents.RecommendedAmount
	}
	if damage <= 0 {
		damage = claimAmount
	}

	offer, err := e.Offer(claimAmount, coverage, damage, req.Emotion)
	if err != nil {
		return Recommendation{}, err
	}

	risks := append([]string{}, req.Precedents.RiskFactors...)
	amount := offer.Amount
	ceiling := math.Inf(1)
	if req.Policy != nil {
		ceiling = coverage
	}
	if req.ComplianceCap > 0 && req.ComplianceCap < ceiling {
		ceiling = req.ComplianceCap
	}
	if amount > ceiling {
		amount = ceiling
		risks = append(risks, "capped_by_jurisdiction_limit")
	}
	if offer.RequiresApproval {
		risks = append(risks, "requires_special_approval")
	}

	rangeMin := math.Min(req.Precedents.RangeMin, amount)
	rangeMax := math.Min(math.Max(req.Precedents.RangeMax, amount), ceiling)
	if rangeMin < 0 {
		rangeMin = 0
	}

	emotion := req.Emotion
	satisfaction := 0.0
	if !req.Precedents.UsedFallback {
		satisfaction = req.Precedents.AverageSatisfaction
	}

	return Recommendation{
		RecommendedAmount: amount,
		ConfidenceLevel:   math.Min(offer.Confidence, req.Precedents.Confidence),
		RangeMin:          rangeMin,
		RangeMax:          rangeMax,
		RiskFactors:       risks,
		CreativeOptions:   e.CreativeOptions(amount, &emotion, satisfaction),
		RequiresApproval:  offer.RequiresApproval,
		AdjustmentFactor:  offer.AdjustmentFactor,
		ResolutionDays:    req.Precedents.ResolutionDays,
		Reasoning:         offer.Reasoning,
		UsedFallback:      req.Precedents.UsedFallback,
	}, nil
}

// #endregion recommend
