// Package behavior scores early-launch market behavior. The scorer is
// deterministic and does no I/O: red-flag pre-checks short-circuit to a
// zero-confidence IGNORE, otherwise five weighted pillars roll up into
// a confidence score in [0,1].
package behavior

import (
	"fmt"
	"math"

	"token-scout/internal/domain"
)

// Pillar weights. They sum to 1 so confidence stays in [0,1].
const (
	weightDemandQuality  = 0.25
	weightSellAbsorption = 0.25
	weightLiquidity      = 0.20
	weightHolders        = 0.15
	weightActivity       = 0.15
)

// WATCH requires the weighted confidence to clear this bar and every
// pillar to stay above the critical minimum.
const (
	watchConfidence  = 0.75
	criticalMinScore = 0.4
)

// Limits are the red-flag thresholds checked before any scoring.
type Limits struct {
	MaxLiquidityDropPct float64 // liquidity change below -this rejects
	MaxTop5Pct          float64 // combined top-5 share above this rejects
	MinTxPerMin         float64 // velocity below this rejects
	MaxPriceCrashPct    float64 // observed crash beyond -this rejects
}

// DefaultLimits returns the standard red-flag thresholds.
func DefaultLimits() Limits {
	return Limits{
		MaxLiquidityDropPct: 5,
		MaxTop5Pct:          40,
		MinTxPerMin:         5,
		MaxPriceCrashPct:    60,
	}
}

// Inputs are the behavior metrics for one observed candidate.
// Consistency, growth, and trend values outside their named vocabulary
// are treated as neutral.
type Inputs struct {
	BuySellRatio       float64
	BuyConsistency     string  // "steady" or "spiky"
	RecoverySeconds    float64 // average seconds for price to recover after sells
	LiquidityUSD       float64
	LiquidityChangePct float64
	HolderGrowth       string // "smooth" or "bursty"
	Top5Trend          string // "decreasing" or "increasing"
	Top5HolderPct      float64
	TxPerMin           float64
	AvgTxSizeUSD       float64
	PriceChangePct     float64 // over the observation window
}

// Scorer evaluates launch behavior against fixed pillar rules and
// configurable red-flag limits.
type Scorer struct {
	limits Limits
}

// NewScorer builds a scorer with the given red-flag limits.
func NewScorer(limits Limits) *Scorer {
	return &Scorer{limits: limits}
}

// Score produces the behavior report for one set of inputs.
func (s *Scorer) Score(in Inputs) domain.BehaviorReport {
	if flag := s.redFlag(in); flag != "" {
		return domain.BehaviorReport{
			Decision:         domain.DecisionIgnore,
			Confidence:       0.0,
			NegativePatterns: []string{flag},
			Summary:          fmt.Sprintf("Risk Guard: %s", flag),
		}
	}

	var positives, negatives []string
	scores := make(map[string]float64, 5)

	record := func(pillar string, score float64, pos, neg []string) {
		scores[pillar] = score
		positives = append(positives, pos...)
		negatives = append(negatives, neg...)
	}

	dq, pos, neg := scoreDemandQuality(in)
	record(domain.PillarDemandQuality, dq, pos, neg)

	sa, pos, neg := scoreSellAbsorption(in)
	record(domain.PillarSellAbsorption, sa, pos, neg)

	ls, pos, neg := scoreLiquidity(in)
	record(domain.PillarLiquidity, ls, pos, neg)

	hg, pos, neg := scoreHolders(in)
	record(domain.PillarHolders, hg, pos, neg)

	ma, pos, neg := scoreActivity(in)
	record(domain.PillarActivity, ma, pos, neg)

	confidence := roundTo2(weightDemandQuality*scores[domain.PillarDemandQuality] +
		weightSellAbsorption*scores[domain.PillarSellAbsorption] +
		weightLiquidity*scores[domain.PillarLiquidity] +
		weightHolders*scores[domain.PillarHolders] +
		weightActivity*scores[domain.PillarActivity])

	decision := domain.DecisionIgnore
	if confidence >= watchConfidence {
		decision = domain.DecisionWatch
	}

	// A single weak pillar vetoes the average.
	if minScore(scores) < criticalMinScore {
		decision = domain.DecisionIgnore
		negatives = append(negatives, "Critical weakness detected in one or more metrics")
	}

	return domain.BehaviorReport{
		Decision:         decision,
		Confidence:       confidence,
		SubScores:        scores,
		PositivePatterns: positives,
		NegativePatterns: negatives,
		Summary:          summarize(decision, confidence, positives, negatives),
	}
}

// redFlag returns the first tripped hard constraint, empty when clean.
func (s *Scorer) redFlag(in Inputs) string {
	if in.LiquidityChangePct < -s.limits.MaxLiquidityDropPct {
		return fmt.Sprintf("Liquidity removed (>%.0f%%)", s.limits.MaxLiquidityDropPct)
	}
	if in.Top5HolderPct > s.limits.MaxTop5Pct {
		return fmt.Sprintf("Extreme holder concentration (>%.0f%%)", s.limits.MaxTop5Pct)
	}
	if in.TxPerMin < s.limits.MinTxPerMin {
		return fmt.Sprintf("insufficient transaction volume (<%.0f tx/min)", s.limits.MinTxPerMin)
	}
	if in.PriceChangePct <= -s.limits.MaxPriceCrashPct {
		return fmt.Sprintf("Panic dump in progress (>%.0f%% crash)", s.limits.MaxPriceCrashPct)
	}
	return ""
}

// scoreDemandQuality rates buy vs sell behavior.
func scoreDemandQuality(in Inputs) (float64, []string, []string) {
	score := 0.5
	var pos, neg []string

	switch {
	case in.BuySellRatio > 2.5:
		score += 0.2
		pos = append(pos, "Strong buy dominance")
	case in.BuySellRatio > 1.2:
		score += 0.1
		pos = append(pos, "Healthy buy pressure")
	case in.BuySellRatio < 0.5:
		score -= 0.3
		neg = append(neg, "Heavy sell pressure")
	}

	switch in.BuyConsistency {
	case "steady":
		score += 0.2
		pos = append(pos, "Steady buying (organic signal)")
	case "spiky":
		score -= 0.2
		neg = append(neg, "Spiky buying patterns (bot-like)")
	}

	return clamp01(score), pos, neg
}

// scoreSellAbsorption rates how quickly price recovers after sells.
func scoreSellAbsorption(in Inputs) (float64, []string, []string) {
	score := 0.5
	var pos, neg []string

	switch {
	case in.RecoverySeconds < 45:
		score += 0.3
		pos = append(pos, "Rapid sell absorption (<45s)")
	case in.RecoverySeconds < 120:
		score += 0.1
		pos = append(pos, "Moderate sell absorption")
	default:
		score -= 0.2
		neg = append(neg, "Slow price recovery")
	}

	return clamp01(score), pos, neg
}

// scoreLiquidity rates pool depth and stability.
func scoreLiquidity(in Inputs) (float64, []string, []string) {
	score := 0.5
	var pos, neg []string

	if in.LiquidityUSD < 5000 {
		score -= 0.2
		neg = append(neg, "Very low liquidity")
	} else if in.LiquidityUSD > 20000 {
		score += 0.1
		pos = append(pos, "Deep liquidity base")
	}

	if math.Abs(in.LiquidityChangePct) < 2.0 {
		score += 0.2
		pos = append(pos, "Liquidity locked/stable")
	} else if in.LiquidityChangePct < 0 {
		score -= 0.3
		neg = append(neg, "Liquidity reduction detected")
	}

	return clamp01(score), pos, neg
}

// scoreHolders rates growth and distribution patterns.
func scoreHolders(in Inputs) (float64, []string, []string) {
	score := 0.5
	var pos, neg []string

	switch in.HolderGrowth {
	case "smooth":
		score += 0.2
		pos = append(pos, "Organic holder growth")
	case "bursty":
		score -= 0.2
		neg = append(neg, "Artificial/bot holder inflation")
	}

	switch in.Top5Trend {
	case "decreasing":
		score += 0.1
		pos = append(pos, "Improving distribution")
	case "increasing":
		score -= 0.2
		neg = append(neg, "Whale accumulation risk")
	}

	return clamp01(score), pos, neg
}

// scoreActivity rates transaction velocity and sizing.
func scoreActivity(in Inputs) (float64, []string, []string) {
	score := 0.5
	var pos, neg []string

	if in.TxPerMin > 30 {
		score += 0.2
		pos = append(pos, "High transaction velocity")
	} else if in.TxPerMin > 10 {
		score += 0.1
	}

	if in.AvgTxSizeUSD < 10 {
		score -= 0.2
		neg = append(neg, "Micro-transaction spam suspected")
	} else if in.AvgTxSizeUSD > 100 {
		score += 0.1
		pos = append(pos, "Healthy trade sizing")
	}

	return clamp01(score), pos, neg
}

func summarize(decision domain.Decision, confidence float64, positives, negatives []string) string {
	if decision == domain.DecisionIgnore {
		lead := "Insufficient quality"
		if len(negatives) > 0 {
			lead = negatives[0]
		}
		return fmt.Sprintf("Metrics display instability (Score: %g). %s.", confidence, lead)
	}

	strengths := positives
	if len(strengths) > 2 {
		strengths = strengths[:2]
	}
	return fmt.Sprintf("Behavior aligns with organic launch patterns (Score: %g). Strengths: %s.",
		confidence, joinComma(strengths))
}

func joinComma(items []string) string {
	out := ""
	for i, item := range items {
		if i > 0 {
			out += ", "
		}
		out += item
	}
	return out
}

func minScore(scores map[string]float64) float64 {
	min := math.Inf(1)
	for _, v := range scores {
		if v < min {
			min = v
		}
	}
	return min
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0.0), 1.0)
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
