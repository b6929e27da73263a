package replay

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/claim"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/normalize"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/pipeline"
)

// #region types

// Negotiator runs one negotiation. *pipeline.Pipeline implements it.
type Negotiator interface {
	Negotiate(ctx context.Context, req pipeline.Request) pipeline.Result
}

// Config bounds a replay run.
type Config struct {
	Concurrency int // cases in flight at once; <= 0 means one
}

// Result is the outcome of replaying one case.
type Result struct {
	Case       string          `json:"case"`
	Action     string          `json:"action"` // "pass" | "fail" | "invalid"
	Mismatches []string        `json:"mismatches,omitempty"`
	Outcome    pipeline.Result `json:"outcome"`
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	TotalCases int                     `json:"total_cases"`
	Passed     int                     `json:"passed"`
	Failed     int                     `json:"failed"`
	Invalid    int                     `json:"invalid"`
	ByStatus   map[pipeline.Status]int `json:"by_status"`
}

// #endregion types

// #region replay

// Replay negotiates every case and compares the outcome to its expectation.
// Results keep the order of cases. A claim document that does not decode is
// reported as "invalid" without negotiating.
func Replay(ctx context.Context, n Negotiator, norm *normalize.Normalizer, cases []FixtureCase, config Config) []Result {
	results := make([]Result, len(cases))

	g, ctx := errgroup.WithContext(ctx)
	limit := config.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, c := range cases {
		i, c := i, c
		g.Go(func() error {
			results[i] = replayCase(ctx, n, norm, c)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func replayCase(ctx context.Context, n Negotiator, norm *normalize.Normalizer, c FixtureCase) Result {
	details, inputErrs, err := norm.Claim(c.Claim)
	if err != nil {
		return Result{Case: c.Name, Action: "invalid", Mismatches: []string{err.Error()}}
	}
	var signal *claim.EmotionalSignal
	if len(c.Emotion) > 0 {
		s, errs := norm.Emotion(c.Emotion)
		signal = &s
		inputErrs = append(inputErrs, errs...)
	}

	out := n.Negotiate(ctx, pipeline.Request{
		Claim:        details,
		Emotion:      signal,
		Conversation: c.Conversation,
		Approvals:    c.Approvals,
		InputErrors:  inputErrs,
	})

	mismatches := Compare(c.Expected, out)
	action := "pass"
	if len(mismatches) > 0 {
		action = "fail"
	}
	return Result{Case: c.Name, Action: action, Mismatches: mismatches, Outcome: out}
}

// Compare lists every way out falls short of want.
func Compare(want Expectation, out pipeline.Result) []string {
	var m []string
	if want.Status != "" && out.Status != want.Status {
		m = append(m, fmt.Sprintf("status: want %s, got %s", want.Status, out.Status))
	}
	if len(want.TriggeredReasons) > 0 || want.EscalationType != "" {
		if out.EscalationEvaluation == nil {
			m = append(m, "escalation: no evaluation")
		} else {
			got := out.EscalationEvaluation
			for _, r := range want.TriggeredReasons {
				found := false
				for _, g := range got.TriggeredReasons {
					if g == r {
						found = true
						break
					}
				}
				if !found {
					m = append(m, fmt.Sprintf("trigger %s did not fire", r))
				}
			}
			if want.EscalationType != "" && got.EscalationType != want.EscalationType {
				m = append(m, fmt.Sprintf("escalation type: want %s, got %s", want.EscalationType, got.EscalationType))
			}
		}
	}
	if want.RecommendedAmount != nil {
		switch {
		case out.SettlementOffer == nil:
			m = append(m, "settlement: no offer")
		case math.Abs(out.SettlementOffer.RecommendedAmount-*want.RecommendedAmount) > 0.005:
			m = append(m, fmt.Sprintf("recommended amount: want %.2f, got %.2f",
				*want.RecommendedAmount, out.SettlementOffer.RecommendedAmount))
		}
	}
	for _, risk := range want.RiskIndicators {
		found := false
		for _, g := range out.RiskIndicators {
			if g == risk {
				found = true
				break
			}
		}
		if !found {
			m = append(m, fmt.Sprintf("risk indicator %s missing", risk))
		}
	}
	return m
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []Result) Summary {
	s := Summary{
		TotalCases: len(results),
		ByStatus:   make(map[pipeline.Status]int),
	}
	for _, r := range results {
		switch r.Action {
		case "pass":
			s.Passed++
		case "fail":
			s.Failed++
		case "invalid":
			s.Invalid++
			continue
		}
		s.ByStatus[r.Outcome.Status]++
	}
	return s
}

// #endregion replay
