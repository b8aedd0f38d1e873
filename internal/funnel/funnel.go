// Package funnel runs candidates through the ordered vetting stages.
// Cheap arithmetic gates run first so the security oracle, the live
// observation window, and the grader are only consulted for candidates
// that already survived everything cheaper.
package funnel

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"token-scout/internal/behavior"
	"token-scout/internal/domain"
	"token-scout/internal/grader"
	"token-scout/internal/observability"
)

// Owners renounce by burning ownership to the system address.
const renouncedOwner = "11111111111111111111111111111111"

// SecuritySource yields a normalized security profile for a token.
type SecuritySource interface {
	Profile(ctx context.Context, chainID, tokenAddress string) (*domain.SecurityProfile, error)
}

// Observer watches a pair for a bounded window and summarizes it.
type Observer interface {
	Watch(ctx context.Context, key domain.PairKey) (*domain.Observation, error)
}

// Grader turns an observed candidate into a graded decision.
type Grader interface {
	Grade(ctx context.Context, req grader.Request) (*domain.Grade, error)
}

// Config holds the stage thresholds and penalties.
type Config struct {
	MinLiquidityUSD  float64
	LowCapUSD        float64
	HighCapUSD       float64
	HighLiquidityUSD float64

	PenaltyMCLow      int
	PenaltyMCHigh     int
	PenaltyLiqHigh    int
	MinScoreToProceed int

	MaxBuyTaxPct  float64
	MaxSellTaxPct float64

	MinHolders       int
	TopHolderSoftPct float64
	TopHolderHardPct float64

	GradeCutoff int
}

// DefaultConfig returns the standard vetting thresholds.
func DefaultConfig() Config {
	return Config{
		MinLiquidityUSD:   2500,
		LowCapUSD:         6000,
		HighCapUSD:        150000,
		HighLiquidityUSD:  150000,
		PenaltyMCLow:      -2,
		PenaltyMCHigh:     -1,
		PenaltyLiqHigh:    -1,
		MinScoreToProceed: -1,
		MaxBuyTaxPct:      8,
		MaxSellTaxPct:     8,
		MinHolders:        20,
		TopHolderSoftPct:  15,
		TopHolderHardPct:  30,
		GradeCutoff:       80,
	}
}

// Options configures a Funnel.
type Options struct {
	Config   Config
	Logger   *logrus.Entry
	Security SecuritySource
	Observer Observer
	Grader   Grader
	Scorer   *behavior.Scorer // defaults to behavior.DefaultLimits
}

// Funnel owns stage ordering. It holds no per-candidate state; one
// Evaluate call is one complete pass.
type Funnel struct {
	cfg      Config
	log      *logrus.Entry
	security SecuritySource
	observer Observer
	grader   Grader
	scorer   *behavior.Scorer
}

// New creates a funnel with the given collaborators.
func New(opts Options) *Funnel {
	if opts.Logger == nil {
		silent := logrus.New()
		silent.SetOutput(io.Discard)
		opts.Logger = logrus.NewEntry(silent)
	}
	if opts.Scorer == nil {
		opts.Scorer = behavior.NewScorer(behavior.DefaultLimits())
	}
	return &Funnel{
		cfg:      opts.Config,
		log:      opts.Logger,
		security: opts.Security,
		observer: opts.Observer,
		grader:   opts.Grader,
		scorer:   opts.Scorer,
	}
}

// Evaluate passes one candidate through every stage and returns the
// verdict. Rejections are verdict values, never errors.
func (f *Funnel) Evaluate(ctx context.Context, c *domain.Candidate) *domain.Verdict {
	v := &domain.Verdict{Decision: domain.DecisionIgnore}

	if f.checkLiquidityFloor(c, v) {
		return v
	}
	f.scoreMetadata(c, v)
	if f.checkGate(c, v, domain.StageGatekeeper) {
		return v
	}

	profile, rejected := f.checkSecurity(ctx, c, v)
	if rejected {
		return v
	}
	if f.checkHolders(c, profile, v) {
		return v
	}
	if f.checkGate(c, v, domain.StageScoreRecheck) {
		return v
	}

	return f.behaviorGate(ctx, c, profile, v)
}

// checkLiquidityFloor is stage 1: an instant reject on thin pools.
func (f *Funnel) checkLiquidityFloor(c *domain.Candidate, v *domain.Verdict) bool {
	if c.LiquidityUSD >= f.cfg.MinLiquidityUSD {
		return false
	}
	f.reject(c, v, domain.StageLiquidityFloor,
		fmt.Sprintf("liquidity below floor ($%.0f < $%.0f)", c.LiquidityUSD, f.cfg.MinLiquidityUSD))
	return true
}

// scoreMetadata is stage 2: market-cap and liquidity band penalties.
// It never rejects on its own; the gatekeeper reads the running score.
func (f *Funnel) scoreMetadata(c *domain.Candidate, v *domain.Verdict) {
	if c.FDV < f.cfg.LowCapUSD {
		v.Score += f.cfg.PenaltyMCLow
		v.Reasons = append(v.Reasons,
			fmt.Sprintf("MC < %s (%d)", compactUSD(f.cfg.LowCapUSD), f.cfg.PenaltyMCLow))
	}
	if c.FDV > f.cfg.HighCapUSD {
		v.Score += f.cfg.PenaltyMCHigh
		v.Reasons = append(v.Reasons,
			fmt.Sprintf("MC > %s (%d)", compactUSD(f.cfg.HighCapUSD), f.cfg.PenaltyMCHigh))
	}
	if c.LiquidityUSD > f.cfg.HighLiquidityUSD {
		v.Score += f.cfg.PenaltyLiqHigh
		v.Reasons = append(v.Reasons,
			fmt.Sprintf("Liq > %s (%d)", compactUSD(f.cfg.HighLiquidityUSD), f.cfg.PenaltyLiqHigh))
	}

	f.log.WithFields(logrus.Fields{
		"symbol": c.Symbol,
		"score":  v.Score,
	}).Debug("metadata scored")
}

// checkGate rejects when the running score is under the bar. It runs
// twice: before the security oracle and again after holder penalties.
func (f *Funnel) checkGate(c *domain.Candidate, v *domain.Verdict, stage string) bool {
	if v.Score >= f.cfg.MinScoreToProceed {
		return false
	}
	f.reject(c, v, stage, fmt.Sprintf("score %d below gate %d", v.Score, f.cfg.MinScoreToProceed))
	return true
}

// checkSecurity is stage 4: fetch the profile and apply the hard rules.
// Any rule hit is terminal; rules never average against each other.
func (f *Funnel) checkSecurity(ctx context.Context, c *domain.Candidate, v *domain.Verdict) (*domain.SecurityProfile, bool) {
	profile, err := f.security.Profile(ctx, c.Key.ChainID, c.TokenAddress)
	if err != nil || profile == nil {
		if err != nil {
			f.log.WithError(err).WithField("symbol", c.Symbol).Warn("security lookup failed")
		}
		f.reject(c, v, domain.StageSecurity, "security data unavailable")
		return nil, true
	}

	if reason := f.hardRuleViolation(profile); reason != "" {
		f.reject(c, v, domain.StageSecurity, reason)
		return nil, true
	}

	// Informational line for the audit trail and the launch alert.
	v.Reasons = append(v.Reasons,
		fmt.Sprintf("security clean (tax %.1f/%.1f, holders %d)",
			profile.BuyTaxPct, profile.SellTaxPct, profile.HolderCount))
	return profile, false
}

// hardRuleViolation returns the first tripped hard rule, empty when clean.
func (f *Funnel) hardRuleViolation(p *domain.SecurityProfile) string {
	if p.Honeypot {
		return "HONEYPOT DETECTED"
	}
	if p.BuyTaxPct > f.cfg.MaxBuyTaxPct || p.SellTaxPct > f.cfg.MaxSellTaxPct {
		return fmt.Sprintf("High Tax (Buy: %.1f%%, Sell: %.1f%%)", p.BuyTaxPct, p.SellTaxPct)
	}
	if p.Mintable {
		return "Mintable Contract"
	}
	if p.Blacklisted {
		return "Blacklist Functionality Detected"
	}
	if p.OwnerAddress != "" && !strings.Contains(p.OwnerAddress, renouncedOwner) && p.CanTakeBackOwnership {
		return "Owner Privileges Detected"
	}
	if !p.OpenSource {
		return "Unverified Contract (Source Not Open)"
	}
	return ""
}

// checkHolders is stage 5: concentration ceilings and the holder-count
// floor. The soft ceiling only dents the score; the rest is terminal.
func (f *Funnel) checkHolders(c *domain.Candidate, p *domain.SecurityProfile, v *domain.Verdict) bool {
	top1 := p.TopHolderPct()
	if top1 > f.cfg.TopHolderHardPct {
		f.reject(c, v, domain.StageHolders,
			fmt.Sprintf("Top Holder %.1f%% > %.0f%% (Critical Concentration)", top1, f.cfg.TopHolderHardPct))
		return true
	}
	if top1 > f.cfg.TopHolderSoftPct {
		v.Score--
		v.Reasons = append(v.Reasons, fmt.Sprintf("Top Holder %.1f%% (-1)", top1))
	}

	if p.HolderCount < f.cfg.MinHolders {
		f.reject(c, v, domain.StageHolders,
			fmt.Sprintf("Holders %d < %d (Too Risky)", p.HolderCount, f.cfg.MinHolders))
		return true
	}
	return false
}

// behaviorGate is the final stage: observe the pair live, score the
// behavior, and let the grader make the call against the cutoff.
func (f *Funnel) behaviorGate(ctx context.Context, c *domain.Candidate, profile *domain.SecurityProfile, v *domain.Verdict) *domain.Verdict {
	obs, err := f.observer.Watch(ctx, c.Key)
	if err != nil || obs == nil {
		if err != nil {
			f.log.WithError(err).WithField("symbol", c.Symbol).Warn("observation failed")
		}
		f.reject(c, v, domain.StageBehavior, "observation unavailable")
		return v
	}

	report := f.scorer.Score(behavior.InputsFrom(c, obs, profile))
	v.Confidence = report.Confidence
	v.Reasons = append(v.Reasons, report.Summary)

	grade, err := f.grader.Grade(ctx, grader.Request{
		Candidate:   c,
		Observation: obs,
		Behavior:    report,
		Score:       v.Score,
		Security:    profile,
	})
	if err != nil || grade == nil {
		// Graders are expected to degrade to a conservative default
		// rather than error; treat a broken one the same way.
		grade = &domain.Grade{Decision: domain.DecisionWatch, Reasoning: "grader unavailable"}
	}

	v.Stage = domain.StageBehavior
	v.Grade = grade.Score
	v.GradeReasoning = grade.Reasoning
	v.PotentialMC = grade.PotentialMC

	if grade.Decision == domain.DecisionWatch && grade.Score >= f.cfg.GradeCutoff {
		v.Decision = domain.DecisionWatch
		v.Reasons = append(v.Reasons, fmt.Sprintf("graded %d/100", grade.Score))
		observability.RecordWatchVerdict()

		f.log.WithFields(logrus.Fields{
			"symbol":       c.Symbol,
			"grade":        grade.Score,
			"potential_mc": grade.PotentialMC,
		}).Info("candidate accepted")
		return v
	}

	reason := fmt.Sprintf("grade %d/100 below cutoff %d", grade.Score, f.cfg.GradeCutoff)
	if grade.Decision != domain.DecisionWatch {
		reason = fmt.Sprintf("graded IGNORE (%d/100)", grade.Score)
	}
	f.reject(c, v, domain.StageBehavior, reason)
	return v
}

// reject marks the verdict terminal at the given stage.
func (f *Funnel) reject(c *domain.Candidate, v *domain.Verdict, stage, reason string) {
	v.Decision = domain.DecisionIgnore
	v.Stage = stage
	v.Reasons = append(v.Reasons, reason)

	observability.RecordFunnelRejection(stage)
	f.log.WithFields(logrus.Fields{
		"symbol": c.Symbol,
		"pair":   c.Key.String(),
		"stage":  stage,
		"reason": reason,
	}).Info("candidate rejected")
}

// compactUSD renders thresholds the way traders write them: 6k, 150k, 2M.
func compactUSD(v float64) string {
	switch {
	case v >= 1e6:
		return fmt.Sprintf("%gM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%gk", v/1e3)
	default:
		return fmt.Sprintf("%g", v)
	}
}
