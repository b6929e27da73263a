package settlement

import (
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/claim"
)

// #region templates

type optionTemplate struct {
	kind        OptionType
	description string
	multiplier  float64
	benefit     string
	bestFor     []string
	fill        func(o *CreativeOption, base float64)
}

// optionTemplates returns the four structures in presentation order.
func optionTemplates() []optionTemplate {
	return []optionTemplate{
		{
			kind:        OptionImmediatePartial,
			description: "Immediate partial payment with balance paid later",
			multiplier:  0.7,
			benefit:     "Provides immediate financial relief",
			bestFor:     []string{"urgent_financial_need", "high_stress", "grief"},
			fill: func(o *CreativeOption, base float64) {
				o.ImmediatePayment = base * 0.4
				o.BalancePaymentDays = 15
			},
		},
		{
			kind:        OptionStructured,
			description: "Structured monthly payments over time",
			multiplier:  0.95,
			benefit:     "Consistent income stream",
			bestFor:     []string{"anxiety", "long_term_planning", "income_replacement"},
			fill: func(o *CreativeOption, _ float64) {
				o.PaymentPeriodMonths = 12
				o.MonthlyPayment = o.Amount / 12
			},
		},
		{
			kind:        OptionEnhancedService,
			description: "Standard settlement plus additional services",
			multiplier:  0.9,
			benefit:     "Additional support beyond monetary settlement",
			bestFor:     []string{"frustration", "service_recovery", "property_repair"},
			fill: func(o *CreativeOption, _ float64) {
				o.AdditionalServices = []string{"rental_car_voucher", "home_repair_assessment"}
			},
		},
		{
			kind:        OptionFastTrack,
			description: "Expedited lump-sum payment with simplified paperwork",
			multiplier:  0.85,
			benefit:     "Fastest path to closure",
			bestFor:     []string{"high_stress", "grief", "closure_seeking"},
			fill: func(o *CreativeOption, _ float64) {
				o.PaymentWithinDays = 3
			},
		},
	}
}

// #endregion templates

// #region creative-options

// CreativeOptions always returns the four option structures derived from
// base. When emotion is non-nil, options matching the customer's state are
// flagged Recommended; none are removed. satisfaction is the mean precedent
// satisfaction on a 1-5 scale, or 0 when unknown.
func (e *Engine) CreativeOptions(base float64, emotion *claim.EmotionalSignal, satisfaction float64) []CreativeOption {
	confidence := e.config.OptionBaselineConfidence
	if satisfaction > 0 {
		confidence = clamp(satisfaction/5.0, 0.1, 0.95)
	}

	recommended := e.recommendedOptions(emotion)
	templates := optionTemplates()
	options := make([]CreativeOption, 0, len(templates))
	for _, t := range templates {
		o := CreativeOption{
			Type:            t.kind,
			Description:     t.description,
			Amount:          base * t.multiplier,
			Benefit:         t.benefit,
			BestFor:         t.bestFor,
			ConfidenceScore: confidence,
			Recommended:     recommended[t.kind],
		}
		t.fill(&o, base)
		options = append(options, o)
	}
	return options
}

func (e *Engine) recommendedOptions(emotion *claim.EmotionalSignal) map[OptionType]bool {
	rec := map[OptionType]bool{}
	if emotion == nil {
		return rec
	}
	switch emotion.PrimaryEmotion {
	case claim.EmotionSadness, claim.EmotionDistress:
		rec[OptionFastTrack] = true
		rec[OptionImmediatePartial] = true
	case claim.EmotionAnxiety:
		rec[OptionStructured] = true
	case claim.EmotionAnger, claim.EmotionFrustration:
		rec[OptionEnhancedService] = true
	}
	if emotion.StressLevel > e.config.HighStressThreshold {
		rec[OptionFastTrack] = true
		rec[OptionImmediatePartial] = true
	}
	return rec
}

// #endregion creative-options
