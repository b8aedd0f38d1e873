package grader

import (
	"context"
	"math"

	"token-scout/internal/behavior"
	"token-scout/internal/domain"
)

// Heuristic grades from the behavior report alone, for runs without an
// API key. Confidence maps straight onto the 0-100 grade scale, so the
// funnel cutoff keeps its meaning across modes.
type Heuristic struct {
	scorer *behavior.Scorer
}

// NewHeuristic builds the local grader. A nil scorer gets the standard limits.
func NewHeuristic(scorer *behavior.Scorer) *Heuristic {
	if scorer == nil {
		scorer = behavior.NewScorer(behavior.DefaultLimits())
	}
	return &Heuristic{scorer: scorer}
}

// Grade converts the request's behavior report into a grade. When the
// report is missing (zero value), the scorer is run on candidate and
// observation data directly.
func (h *Heuristic) Grade(_ context.Context, req Request) (*domain.Grade, error) {
	report := req.Behavior
	if report.Summary == "" && req.Candidate != nil && req.Observation != nil {
		report = h.scorer.Score(behavior.InputsFrom(req.Candidate, req.Observation, req.Security))
	}

	return &domain.Grade{
		Decision:    report.Decision,
		Score:       int(math.Round(report.Confidence * 100)),
		Reasoning:   report.Summary,
		PotentialMC: 0,
	}, nil
}
