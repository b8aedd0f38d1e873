// Package grader turns an observed candidate into a graded WATCH or
// IGNORE call. Two implementations: an LLM-backed grader and a local
// heuristic fallback built on the behavior scorer.
package grader

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"token-scout/internal/behavior"
	"token-scout/internal/domain"
)

// Request carries everything a grader may weigh for one candidate.
type Request struct {
	Candidate   *domain.Candidate
	Observation *domain.Observation
	Behavior    domain.BehaviorReport
	Score       int // running funnel score at grading time
	Security    *domain.SecurityProfile
}

// Grader assesses one vetted candidate.
type Grader interface {
	Grade(ctx context.Context, req Request) (*domain.Grade, error)
}

// Grading modes.
const (
	ModeAuto      = "auto" // AI when a key is configured, else heuristic
	ModeAI        = "ai"
	ModeHeuristic = "heuristic"
)

// Options selects and configures the grading implementation.
type Options struct {
	Mode    string
	BaseURL string
	Model   string
	APIKey  string
	Timeout int // seconds, 0 means default
	Logger  *logrus.Entry
	Scorer  *behavior.Scorer // heuristic fallback, defaults to standard limits
}

// New returns the grader for the configured mode.
func New(opts Options) Grader {
	if opts.Logger == nil {
		silent := logrus.New()
		silent.SetOutput(io.Discard)
		opts.Logger = logrus.NewEntry(silent)
	}

	mode := opts.Mode
	if mode == "" || mode == ModeAuto {
		mode = ModeHeuristic
		if opts.APIKey != "" {
			mode = ModeAI
		}
	}

	if mode == ModeAI {
		return NewDeepSeek(opts)
	}
	return NewHeuristic(opts.Scorer)
}
