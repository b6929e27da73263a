// Package claim holds the canonical entities shared by every stage of the
// negotiation pipeline. Values are created once per negotiation and passed
// by value downstream.
package claim

import "strings"

// #region emotion

// Emotion names a primary emotional category reported by the emotion service.
type Emotion string

const (
	EmotionNeutral     Emotion = "neutral"
	EmotionAnger       Emotion = "anger"
	EmotionFrustration Emotion = "frustration"
	EmotionSadness     Emotion = "sadness"
	EmotionAnxiety     Emotion = "anxiety"
	EmotionDistress    Emotion = "distress"
)

// EmotionalSignal is one turn's pre-computed emotional reading of the customer.
type EmotionalSignal struct {
	PrimaryEmotion Emotion            `json:"primary_emotion"`
	StressLevel    float64            `json:"stress_level"`
	Confidence     float64            `json:"confidence"`
	EmotionScores  map[string]float64 `json:"emotion_scores,omitempty"`
	Transcript     string             `json:"transcript,omitempty"`
}

// NeutralSignal is the signal used when no reading is available.
func NeutralSignal() EmotionalSignal {
	return EmotionalSignal{
		PrimaryEmotion: EmotionNeutral,
		StressLevel:    0,
		Confidence:     0,
	}
}

// Score returns the named emotion score, 0 when absent.
func (s EmotionalSignal) Score(name string) float64 {
	if s.EmotionScores == nil {
		return 0
	}
	return s.EmotionScores[name]
}

// DerivedScore returns the named emotion score, raised to the stress level
// when that emotion is also the primary one. A reading of "distress at 0.9
// stress" with no explicit score therefore counts as distress 0.9.
func (s EmotionalSignal) DerivedScore(e Emotion) float64 {
	score := s.Score(string(e))
	if s.PrimaryEmotion == e && s.StressLevel > score {
		score = s.StressLevel
	}
	return score
}

// #endregion emotion

// #region claim-details

// ClaimDetails is the intake record of a claim. Read-only after intake.
type ClaimDetails struct {
	ClaimID             string   `json:"claim_id"`
	PolicyNumber        string   `json:"policy_number"`
	ClaimType           string   `json:"claim_type"`
	EstimatedAmount     float64  `json:"estimated_amount"`
	CustomerID          string   `json:"customer_id"`
	IncidentDate        string   `json:"incident_date,omitempty"`
	ReportedDate        string   `json:"reported_date,omitempty"`
	Description         string   `json:"description,omitempty"`
	SupportingDocuments []string `json:"supporting_documents,omitempty"`
	Jurisdiction        string   `json:"jurisdiction,omitempty"`
	FraudRiskScore      float64  `json:"fraud_risk_score,omitempty"`
}

// #endregion claim-details

// #region policy

// PolicyRecord is the policy as returned by the policy store.
type PolicyRecord struct {
	PolicyNumber        string         `json:"policy_number" yaml:"policy_number"`
	CustomerID          string         `json:"customer_id" yaml:"customer_id"`
	PolicyType          string         `json:"policy_type" yaml:"policy_type"`
	CoverageAmount      float64        `json:"coverage_amount" yaml:"coverage_amount"`
	Deductible          float64        `json:"deductible" yaml:"deductible"`
	Status              string         `json:"status" yaml:"status"`
	Exclusions          []string       `json:"exclusions,omitempty" yaml:"exclusions"`
	AdditionalCoverages map[string]any `json:"additional_coverages,omitempty" yaml:"additional_coverages"`
}

// Active reports whether the policy can back a settlement.
func (p PolicyRecord) Active() bool {
	return p.Status == "" || p.Status == "active"
}

// Excludes reports whether claimType is listed as an exclusion.
func (p PolicyRecord) Excludes(claimType string) bool {
	for _, e := range p.Exclusions {
		if e == claimType {
			return true
		}
	}
	return false
}

// #endregion policy

// #region precedent

// PrecedentCase is one historical settled claim.
type PrecedentCase struct {
	ClaimType                 string   `json:"claim_type" yaml:"claim_type"`
	OriginalClaim             float64  `json:"original_claim" yaml:"original_claim"`
	SettlementPercentage      float64  `json:"settlement_percentage" yaml:"settlement_percentage"`
	ResolutionTimeDays        int      `json:"resolution_time_days" yaml:"resolution_time_days"`
	CustomerSatisfactionScore float64  `json:"customer_satisfaction_score" yaml:"customer_satisfaction_score"`
	SpecialCircumstances      []string `json:"special_circumstances,omitempty" yaml:"special_circumstances"`
}

// #endregion precedent

// #region conversation

// Turn is one utterance in the negotiation conversation.
type Turn struct {
	Speaker string `json:"speaker,omitempty"`
	Text    string `json:"text"`
}

// JoinTurns concatenates turn texts with single spaces.
func JoinTurns(turns []Turn) string {
	texts := make([]string, len(turns))
	for i, t := range turns {
		texts[i] = t.Text
	}
	return strings.Join(texts, " ")
}

// #endregion conversation
