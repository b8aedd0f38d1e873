package domain

// Behavioral pillar names, used as sub-score map keys.
const (
	PillarDemandQuality  = "demand_quality"
	PillarSellAbsorption = "sell_absorption"
	PillarLiquidity      = "liquidity"
	PillarHolders        = "holders"
	PillarActivity       = "activity"
)

// BehaviorReport is the behavioral scorer's output for one candidate:
// five pillar sub-scores in [0,1], the weighted confidence they roll up
// to, and the signal strings that moved each pillar.
type BehaviorReport struct {
	Decision         Decision
	Confidence       float64 // weighted average of sub-scores, rounded to 2 decimals
	SubScores        map[string]float64
	PositivePatterns []string
	NegativePatterns []string
	Summary          string
}
