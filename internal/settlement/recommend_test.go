package settlement

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/claim"
)

var allEmotions = []claim.Emotion{
	claim.EmotionNeutral, claim.EmotionAnger, claim.EmotionFrustration,
	claim.EmotionSadness, claim.EmotionAnxiety, claim.EmotionDistress,
}

// #region option-tests
func TestCreativeOptions_AlwaysFour(t *testing.T) {
	e := newTestEngine(t)

	opts := e.CreativeOptions(10000, nil, 0)
	require.Len(t, opts, 4)

	assert.Equal(t, OptionImmediatePartial, opts[0].Type)
	assert.InDelta(t, 7000, opts[0].Amount, 1e-9)
	assert.InDelta(t, 4000, opts[0].ImmediatePayment, 1e-9)
	assert.Equal(t, 15, opts[0].BalancePaymentDays)

	assert.Equal(t, OptionStructured, opts[1].Type)
	assert.InDelta(t, 9500, opts[1].Amount, 1e-9)
	assert.Equal(t, 12, opts[1].PaymentPeriodMonths)
	assert.InDelta(t, 9500.0/12, opts[1].MonthlyPayment, 1e-9)

	assert.Equal(t, OptionEnhancedService, opts[2].Type)
	assert.InDelta(t, 9000, opts[2].Amount, 1e-9)
	assert.Equal(t, []string{"rental_car_voucher", "home_repair_assessment"}, opts[2].AdditionalServices)

	assert.Equal(t, OptionFastTrack, opts[3].Type)
	assert.InDelta(t, 8500, opts[3].Amount, 1e-9)
	assert.Equal(t, 3, opts[3].PaymentWithinDays)

	for _, o := range opts {
		assert.False(t, o.Recommended)
		assert.Equal(t, 0.6, o.ConfidenceScore)
	}
}

func TestCreativeOptions_Recommended(t *testing.T) {
	tests := []struct {
		name string
		emo  claim.EmotionalSignal
		want []OptionType
	}{
		{"sadness", signal(claim.EmotionSadness, 0.3), []OptionType{OptionImmediatePartial, OptionFastTrack}},
		{"anxiety", signal(claim.EmotionAnxiety, 0.3), []OptionType{OptionStructured}},
		{"anger", signal(claim.EmotionAnger, 0.3), []OptionType{OptionEnhancedService}},
		{"neutral high stress", signal(claim.EmotionNeutral, 0.9), []OptionType{OptionImmediatePartial, OptionFastTrack}},
		{"neutral calm", signal(claim.EmotionNeutral, 0.1), nil},
	}

	e := newTestEngine(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emo := tt.emo
			opts := e.CreativeOptions(10000, &emo, 0)
			require.Len(t, opts, 4)

			var got []OptionType
			for _, o := range opts {
				if o.Recommended {
					got = append(got, o.Type)
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreativeOptions_ConfidenceFromSatisfaction(t *testing.T) {
	e := newTestEngine(t)
	opts := e.CreativeOptions(10000, nil, 4)
	assert.InDelta(t, 0.8, opts[0].ConfidenceScore, 1e-9)
}

// #endregion option-tests

// #region recommend-tests
func TestRecommend_CappedByJurisdiction(t *testing.T) {
	e := newTestEngine(t)
	c := claim.ClaimDetails{ClaimType: "auto_collision", EstimatedAmount: 75000}
	policy := &claim.PolicyRecord{CoverageAmount: 100000}

	rec, err := e.Recommend(Request{
		Claim:         c,
		Policy:        policy,
		Emotion:       claim.NeutralSignal(),
		Precedents:    e.AnalyzePrecedents(c.ClaimType, c.EstimatedAmount, nil),
		ComplianceCap: 50000,
	})
	require.NoError(t, err)

	assert.Equal(t, 50000.0, rec.RecommendedAmount)
	assert.LessOrEqual(t, rec.RangeMax, 50000.0)
	assert.LessOrEqual(t, rec.RangeMin, rec.RecommendedAmount)
	assert.Contains(t, rec.RiskFactors, "capped_by_jurisdiction_limit")
	assert.Contains(t, rec.RiskFactors, "no_precedent_data")
	assert.True(t, rec.UsedFallback)
	assert.Len(t, rec.CreativeOptions, 4)
	for _, o := range rec.CreativeOptions {
		assert.LessOrEqual(t, o.Amount, 50000.0)
	}
}

func TestRecommend_UsesPrecedentAsDamage(t *testing.T) {
	e := newTestEngine(t)
	c := claim.ClaimDetails{ClaimType: "home", EstimatedAmount: 20000}
	precedents := []claim.PrecedentCase{
		{ClaimType: "home", OriginalClaim: 20000, SettlementPercentage: 0.75, ResolutionTimeDays: 12, CustomerSatisfactionScore: 4},
	}

	rec, err := e.Recommend(Request{
		Claim:      c,
		Policy:     &claim.PolicyRecord{CoverageAmount: 50000},
		Emotion:    claim.NeutralSignal(),
		Precedents: e.AnalyzePrecedents(c.ClaimType, c.EstimatedAmount, precedents),
	})
	require.NoError(t, err)

	assert.InDelta(t, 15000, rec.RecommendedAmount, 1e-6)
	assert.Equal(t, 12, rec.ResolutionDays)
	assert.InDelta(t, 0.1, rec.ConfidenceLevel, 1e-9) // one precedent
	assert.False(t, rec.UsedFallback)
}

func TestRecommend_PropagatesCalculationError(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Recommend(Request{Claim: claim.ClaimDetails{EstimatedAmount: -5}})

	var se *claim.SettlementCalculationError
	assert.ErrorAs(t, err, &se)
}

func TestRecommend_Properties(t *testing.T) {
	e := newTestEngine(t)
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	build := func(amount, coverage, stress float64, emoIdx int, capped bool) Recommendation {
		c := claim.ClaimDetails{ClaimType: "auto_collision", EstimatedAmount: amount}
		limit := 0.0
		if capped {
			limit = 50000
		}
		rec, err := e.Recommend(Request{
			Claim:         c,
			Policy:        &claim.PolicyRecord{CoverageAmount: coverage},
			Emotion:       signal(allEmotions[emoIdx], stress),
			Precedents:    e.AnalyzePrecedents(c.ClaimType, amount, nil),
			ComplianceCap: limit,
		})
		if err != nil {
			t.Fatalf("recommend: %v", err)
		}
		return rec
	}

	properties.Property("range contains recommended amount", prop.ForAll(
		func(amount, coverage, stress float64, emoIdx int, capped bool) bool {
			rec := build(amount, coverage, stress, emoIdx, capped)
			return rec.RangeMin <= rec.RecommendedAmount && rec.RecommendedAmount <= rec.RangeMax
		},
		gen.Float64Range(1, 500000),
		gen.Float64Range(1, 500000),
		gen.Float64Range(0, 1),
		gen.IntRange(0, len(allEmotions)-1),
		gen.Bool(),
	))

	properties.Property("recommended amount bounded by coverage and cap", prop.ForAll(
		func(amount, coverage, stress float64, emoIdx int, capped bool) bool {
			rec := build(amount, coverage, stress, emoIdx, capped)
			if rec.RecommendedAmount > coverage {
				return false
			}
			return !capped || rec.RecommendedAmount <= 50000
		},
		gen.Float64Range(1, 500000),
		gen.Float64Range(1, 500000),
		gen.Float64Range(0, 1),
		gen.IntRange(0, len(allEmotions)-1),
		gen.Bool(),
	))

	properties.Property("always four creative options", prop.ForAll(
		func(amount, coverage, stress float64, emoIdx int, capped bool) bool {
			return len(build(amount, coverage, stress, emoIdx, capped).CreativeOptions) == 4
		},
		gen.Float64Range(1, 500000),
		gen.Float64Range(1, 500000),
		gen.Float64Range(0, 1),
		gen.IntRange(0, len(allEmotions)-1),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// #endregion recommend-tests
