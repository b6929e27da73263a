package escalation

import (
	"strings"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/claim"
)

// #region trigger
// Trigger is one of the five escalation checks. The set is closed: only the
// types in this file implement it.
type Trigger interface {
	Kind() TriggerKind
	Severity() Severity
	check(in facts) outcome
}

// facts are the values derived once from a Context and shared by every trigger.
type facts struct {
	text            string
	distress        float64
	anger           float64
	amount          float64
	fraud           float64
	complianceFlags []string
}

type outcome struct {
	fired   bool
	matched []string
}

func factsFrom(c Context) facts {
	return facts{
		text:            strings.ToLower(c.Text()),
		distress:        c.Emotion.DerivedScore(claim.EmotionDistress),
		anger:           c.Emotion.DerivedScore(claim.EmotionAnger),
		amount:          c.SettlementAmount,
		fraud:           c.FraudScore,
		complianceFlags: c.ComplianceFlags,
	}
}

// #endregion trigger

// #region legal-threat
// LegalThreat fires when any keyword appears in the conversation text.
type LegalThreat struct {
	Keywords []string
}

func (LegalThreat) Kind() TriggerKind  { return TriggerLegalThreat }
func (LegalThreat) Severity() Severity { return SeverityHigh }

func (t LegalThreat) check(in facts) outcome {
	var matched []string
	for _, kw := range t.Keywords {
		if strings.Contains(in.text, strings.ToLower(kw)) {
			matched = append(matched, kw)
		}
	}
	return outcome{fired: len(matched) > 0, matched: matched}
}

// #endregion legal-threat

// #region extreme-distress
// ExtremeDistress fires on derived distress or anger above threshold.
type ExtremeDistress struct {
	DistressThreshold float64
	AngerThreshold    float64
}

func (ExtremeDistress) Kind() TriggerKind  { return TriggerExtremeDistress }
func (ExtremeDistress) Severity() Severity { return SeverityHigh }

func (t ExtremeDistress) check(in facts) outcome {
	return outcome{fired: in.distress > t.DistressThreshold || in.anger > t.AngerThreshold}
}

// #endregion extreme-distress

// #region high-value
type HighValue struct {
	Threshold float64
}

func (HighValue) Kind() TriggerKind  { return TriggerHighValue }
func (HighValue) Severity() Severity { return SeverityMedium }

func (t HighValue) check(in facts) outcome {
	return outcome{fired: in.amount > t.Threshold}
}

// #endregion high-value

// #region fraud-suspicion
type FraudSuspicion struct {
	Threshold float64
}

func (FraudSuspicion) Kind() TriggerKind  { return TriggerFraudSuspicion }
func (FraudSuspicion) Severity() Severity { return SeverityHigh }

func (t FraudSuspicion) check(in facts) outcome {
	return outcome{fired: in.fraud > t.Threshold}
}

// #endregion fraud-suspicion

// #region regulatory-violation
// RegulatoryViolation fires whenever compliance flags are present.
type RegulatoryViolation struct{}

func (RegulatoryViolation) Kind() TriggerKind  { return TriggerRegulatoryViolation }
func (RegulatoryViolation) Severity() Severity { return SeverityCritical }

func (RegulatoryViolation) check(in facts) outcome {
	return outcome{fired: len(in.complianceFlags) > 0}
}

// #endregion regulatory-violation

// #region table
// Triggers builds the trigger table from config, in canonical order.
func (c Config) Triggers() []Trigger {
	return []Trigger{
		LegalThreat{Keywords: c.LegalKeywords},
		ExtremeDistress{DistressThreshold: c.DistressThreshold, AngerThreshold: c.AngerThreshold},
		HighValue{Threshold: c.HighValueThreshold},
		FraudSuspicion{Threshold: c.FraudThreshold},
		RegulatoryViolation{},
	}
}

// Validate fails fast on a trigger table that cannot be evaluated.
func (c Config) Validate() error {
	switch {
	case len(c.LegalKeywords) == 0:
		return &claim.ConfigurationError{Key: "escalation.legal_keywords"}
	case c.DistressThreshold <= 0:
		return &claim.ConfigurationError{Key: "escalation.distress_threshold"}
	case c.AngerThreshold <= 0:
		return &claim.ConfigurationError{Key: "escalation.anger_threshold"}
	case c.HighValueThreshold <= 0:
		return &claim.ConfigurationError{Key: "escalation.high_value_threshold"}
	case c.FraudThreshold <= 0:
		return &claim.ConfigurationError{Key: "escalation.fraud_threshold"}
	}
	return nil
}

// #endregion table
