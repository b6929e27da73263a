package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/claim"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/escalation"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/pipeline"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/records"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture: the records
// the cases negotiate against and the cases themselves.
type Fixture struct {
	Description string          `json:"description"`
	Records     records.Dataset `json:"records"`
	Cases       []FixtureCase   `json:"cases"`
}

// FixtureCase is one recorded negotiation turn. Claim and Emotion stay raw so
// they pass through the same normalization as live input.
type FixtureCase struct {
	Name         string          `json:"name"`
	Claim        json.RawMessage `json:"claim"`
	Emotion      json.RawMessage `json:"emotion,omitempty"`
	Conversation []claim.Turn    `json:"conversation,omitempty"`
	Approvals    []string        `json:"approvals,omitempty"`
	Expected     Expectation     `json:"expected"`
}

// Expectation is what a case must produce. Zero fields are not checked;
// listed triggers must all fire but others may too.
type Expectation struct {
	Status            pipeline.Status          `json:"status"`
	TriggeredReasons  []escalation.TriggerKind `json:"triggered_reasons,omitempty"`
	EscalationType    escalation.Type          `json:"escalation_type,omitempty"`
	RecommendedAmount *float64                 `json:"recommended_amount,omitempty"`
	RiskIndicators    []string                 `json:"risk_indicators,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if len(f.Cases) == 0 {
		return nil, fmt.Errorf("fixture %s has no cases", path)
	}
	for i, c := range f.Cases {
		if c.Name == "" {
			return nil, fmt.Errorf("fixture %s: case %d has no name", path, i)
		}
	}
	return &f, nil
}

// #endregion fixture-loader
