package pipeline

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/claim"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/session"
)

// #region session

// resume loads the session for runID and folds it into req. It returns a nil
// session when sessions are off or the stored one could not be read; an
// unreadable session is never overwritten. step is where the audit trail of
// runID continues.
func (p *Pipeline) resume(ctx context.Context, runID string, req *Request, logger zerolog.Logger) (*session.Session, int, error) {
	if p.deps.Sessions == nil {
		return nil, 0, nil
	}
	s, resumed, err := p.deps.Sessions.Resume(ctx, runID)
	if err != nil {
		return nil, 0, err
	}

	step := 0
	if req.PlanRunID != "" {
		entries, err := p.deps.Audit.Entries(ctx, runID)
		if err != nil {
			logger.Warn().Err(err).Msg("audit trail unreadable, step indexes restart")
		}
		step = len(entries)
	}
	if !resumed {
		return &s, step, nil
	}

	if req.Claim.ClaimID == "" && s.Claim != nil {
		req.Claim = *s.Claim
	}
	req.Conversation = append(append([]claim.Turn{}, s.Turns...), req.Conversation...)
	logger.Info().
		Int("turns", len(s.Turns)).
		Int("negotiations", s.Negotiations).
		Msg("session resumed")
	return &s, step, nil
}

// remember stores the outcome of res in s and attaches the session summary
// to res.
func (p *Pipeline) remember(ctx context.Context, s session.Session, req Request, res *Result) error {
	s.Turns = append([]claim.Turn{}, req.Conversation...)
	if req.Claim.ClaimID != "" {
		c := req.Claim
		s.Claim = &c
	}
	s.Status = string(res.Status)
	s.Negotiations++
	if res.SettlementOffer != nil {
		s.SettlementOffer = res.SettlementOffer.RecommendedAmount
	}
	if res.EmotionalAnalysis != nil {
		s.Readings = append(s.Readings, session.Reading{
			PrimaryEmotion: res.EmotionalAnalysis.PrimaryEmotion,
			StressLevel:    res.EmotionalAnalysis.StressLevel,
		})
	}
	switch {
	case res.Status == StatusEscalation && res.EscalationEvaluation != nil:
		reasons := make([]string, 0, len(res.EscalationEvaluation.TriggeredReasons))
		for _, k := range res.EscalationEvaluation.TriggeredReasons {
			reasons = append(reasons, string(k))
		}
		s.FlagEscalation(strings.Join(reasons, ","))
	case res.Status == StatusError:
		s.FlagEscalation("pipeline_error:" + strings.ToLower(string(res.FailedStage)))
	}

	saved, err := p.deps.Sessions.Save(context.WithoutCancel(ctx), s)
	if err != nil {
		return err
	}
	sum := saved.Summary()
	res.Session = &sum
	return nil
}

// #endregion session
