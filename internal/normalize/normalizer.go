// Package normalize turns raw claim and emotion inputs into the canonical
// entities of package claim. Malformed fields never abort a negotiation: they
// are replaced by documented defaults and reported as *claim.InputError so the
// pipeline can record a risk indicator for each one.
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/claim"
)

// #region normalizer

// Normalizer validates and sanitizes inputs. Immutable after construction and
// safe for concurrent use.
type Normalizer struct {
	claimSchema         *jsonschema.Schema
	emotionSchema       *jsonschema.Schema
	defaultJurisdiction string
}

// New compiles the input schemas. defaultJurisdiction is applied to claims
// that carry none.
func New(defaultJurisdiction string) (*Normalizer, error) {
	jurisdiction := strings.ToUpper(strings.TrimSpace(defaultJurisdiction))
	if jurisdiction == "" {
		return nil, &claim.ConfigurationError{Key: "pipeline.default_jurisdiction"}
	}
	cs, err := compile(claimSchemaURL, claimSchema)
	if err != nil {
		return nil, err
	}
	es, err := compile(emotionSchemaURL, emotionSchema)
	if err != nil {
		return nil, err
	}
	return &Normalizer{claimSchema: cs, emotionSchema: es, defaultJurisdiction: jurisdiction}, nil
}

// DefaultJurisdiction returns the jurisdiction applied to claims without one.
func (n *Normalizer) DefaultJurisdiction() string {
	return n.defaultJurisdiction
}

func compile(url, schema string) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(url, strings.NewReader(schema)); err != nil {
		return nil, fmt.Errorf("load schema %s: %w", url, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", url, err)
	}
	return compiled, nil
}

// #endregion normalizer

// #region claim

// Claim decodes a raw claim document. Fields of the wrong shape are dropped
// and reported; a document that is not a JSON object is an error because
// there is nothing to negotiate.
func (n *Normalizer) Claim(raw []byte) (claim.ClaimDetails, []*claim.InputError, error) {
	doc, err := decodeObject(raw)
	if err != nil {
		return claim.ClaimDetails{}, nil, fmt.Errorf("decode claim: %w", err)
	}
	errs := prune(n.claimSchema, doc)

	var c claim.ClaimDetails
	if err := remarshal(doc, &c); err != nil {
		return claim.ClaimDetails{}, nil, fmt.Errorf("decode claim: %w", err)
	}
	c, more := n.Details(c)
	return c, append(errs, more...), nil
}

// Details sanitizes an already typed claim: negative or non-finite amounts
// become 0, the fraud score is clamped to [0,1], the jurisdiction is
// upper-cased and defaulted, and duplicate document ids are removed.
func (n *Normalizer) Details(c claim.ClaimDetails) (claim.ClaimDetails, []*claim.InputError) {
	var errs []*claim.InputError

	if math.IsNaN(c.EstimatedAmount) || math.IsInf(c.EstimatedAmount, 0) || c.EstimatedAmount < 0 {
		errs = append(errs, &claim.InputError{
			Field:  "estimated_amount",
			Reason: fmt.Sprintf("%v is not a non-negative amount; defaulted to 0", c.EstimatedAmount),
		})
		c.EstimatedAmount = 0
	}
	if v, ok := unit(c.FraudRiskScore); !ok {
		errs = append(errs, &claim.InputError{
			Field:  "fraud_risk_score",
			Reason: fmt.Sprintf("%v outside [0,1]; clamped to %v", c.FraudRiskScore, v),
		})
		c.FraudRiskScore = v
	}

	c.ClaimType = strings.ToLower(strings.TrimSpace(c.ClaimType))
	c.Jurisdiction = strings.ToUpper(strings.TrimSpace(c.Jurisdiction))
	if c.Jurisdiction == "" {
		c.Jurisdiction = n.defaultJurisdiction
	}
	c.SupportingDocuments = dedupe(c.SupportingDocuments)
	return c, errs
}

// #endregion claim

// #region emotion

// Emotion decodes a raw emotion reading. It always returns a usable signal:
// absent or unreadable input yields the neutral signal.
func (n *Normalizer) Emotion(raw []byte) (claim.EmotionalSignal, []*claim.InputError) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return claim.NeutralSignal(), []*claim.InputError{{Field: "emotion", Reason: "no emotional signal supplied"}}
	}
	doc, err := decodeObject(trimmed)
	if err != nil {
		return claim.NeutralSignal(), []*claim.InputError{{Field: "emotion", Reason: err.Error()}}
	}
	errs := prune(n.emotionSchema, doc)

	var s claim.EmotionalSignal
	if err := remarshal(doc, &s); err != nil {
		return claim.NeutralSignal(), append(errs, &claim.InputError{Field: "emotion", Reason: err.Error()})
	}
	s, more := n.Signal(s)
	return s, append(errs, more...)
}

// EmotionFromMap normalizes a reading delivered as a generic map, as decoded
// from a protobuf Struct.
func (n *Normalizer) EmotionFromMap(m map[string]any) (claim.EmotionalSignal, []*claim.InputError) {
	if m == nil {
		return n.Emotion(nil)
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return claim.NeutralSignal(), []*claim.InputError{{Field: "emotion", Reason: err.Error()}}
	}
	return n.Emotion(raw)
}

// Signal sanitizes an already typed reading: levels and scores are clamped to
// [0,1] and a missing primary emotion becomes neutral.
func (n *Normalizer) Signal(s claim.EmotionalSignal) (claim.EmotionalSignal, []*claim.InputError) {
	var errs []*claim.InputError

	s.PrimaryEmotion = claim.Emotion(strings.ToLower(strings.TrimSpace(string(s.PrimaryEmotion))))
	if s.PrimaryEmotion == "" {
		s.PrimaryEmotion = claim.EmotionNeutral
		errs = append(errs, &claim.InputError{Field: "primary_emotion", Reason: "missing; defaulted to neutral"})
	}
	if v, ok := unit(s.StressLevel); !ok {
		errs = append(errs, &claim.InputError{Field: "stress_level", Reason: fmt.Sprintf("%v outside [0,1]; clamped to %v", s.StressLevel, v)})
		s.StressLevel = v
	}
	if v, ok := unit(s.Confidence); !ok {
		errs = append(errs, &claim.InputError{Field: "confidence", Reason: fmt.Sprintf("%v outside [0,1]; clamped to %v", s.Confidence, v)})
		s.Confidence = v
	}

	if len(s.EmotionScores) > 0 {
		names := make([]string, 0, len(s.EmotionScores))
		for name := range s.EmotionScores {
			names = append(names, name)
		}
		sort.Strings(names)

		scores := make(map[string]float64, len(names))
		for _, name := range names {
			raw := s.EmotionScores[name]
			v, ok := unit(raw)
			if !ok {
				errs = append(errs, &claim.InputError{Field: "emotion_scores." + name, Reason: fmt.Sprintf("%v outside [0,1]; clamped to %v", raw, v)})
			}
			scores[strings.ToLower(name)] = v
		}
		s.EmotionScores = scores
	}
	return s, errs
}

// #endregion emotion

// #region risk-indicators

// RiskIndicators maps input errors to their audit risk indicators, without
// duplicates, in input order.
func RiskIndicators(errs []*claim.InputError) []string {
	out := make([]string, 0, len(errs))
	seen := make(map[string]bool, len(errs))
	for _, e := range errs {
		if e == nil {
			continue
		}
		ri := e.RiskIndicator()
		if seen[ri] {
			continue
		}
		seen[ri] = true
		out = append(out, ri)
	}
	return out
}

// #endregion risk-indicators

// #region helpers

func decodeObject(raw []byte) (map[string]any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	doc, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("expected a JSON object")
	}
	return doc, nil
}

func remarshal(doc map[string]any, out any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// prune validates doc and deletes every offending field, returning one input
// error per deleted field sorted by field name.
func prune(schema *jsonschema.Schema, doc map[string]any) []*claim.InputError {
	err := schema.Validate(doc)
	if err == nil {
		return nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return []*claim.InputError{{Field: "document", Reason: err.Error()}}
	}

	var out []*claim.InputError
	seen := map[string]bool{}
	for _, leaf := range leaves(verr) {
		field := drop(doc, leaf.InstanceLocation)
		if field == "" || seen[field] {
			continue
		}
		seen[field] = true
		out = append(out, &claim.InputError{Field: field, Reason: leaf.Message})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

func leaves(e *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(e.Causes) == 0 {
		return []*jsonschema.ValidationError{e}
	}
	var out []*jsonschema.ValidationError
	for _, c := range e.Causes {
		out = append(out, leaves(c)...)
	}
	return out
}

// drop removes the value at a JSON pointer. Map entries one level down are
// removed individually; anything deeper takes its top-level field with it.
func drop(doc map[string]any, pointer string) string {
	if pointer == "" || pointer == "/" {
		return ""
	}
	segs := strings.Split(strings.TrimPrefix(pointer, "/"), "/")
	for i, s := range segs {
		segs[i] = strings.NewReplacer("~1", "/", "~0", "~").Replace(s)
	}
	top := segs[0]
	if len(segs) == 2 {
		if m, ok := doc[top].(map[string]any); ok {
			delete(m, segs[1])
			return top + "." + segs[1]
		}
	}
	delete(doc, top)
	return top
}

// unit clamps v to [0,1]; ok is false when v had to change.
func unit(v float64) (float64, bool) {
	switch {
	case math.IsNaN(v):
		return 0, false
	case v < 0:
		return 0, false
	case v > 1:
		return 1, false
	default:
		return v, true
	}
}

func dedupe(xs []string) []string {
	if len(xs) == 0 {
		return nil
	}
	out := make([]string, 0, len(xs))
	seen := make(map[string]bool, len(xs))
	for _, x := range xs {
		x = strings.TrimSpace(x)
		if x == "" || seen[x] {
			continue
		}
		seen[x] = true
		out = append(out, x)
	}
	return out
}

// #endregion helpers
