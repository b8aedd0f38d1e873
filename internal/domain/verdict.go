package domain

// Decision is a terminal call on a candidate.
type Decision string

// Decision values
const (
	DecisionWatch  Decision = "WATCH"
	DecisionIgnore Decision = "IGNORE"
)

// Vetting stage names, in evaluation order. A verdict records the
// stage that terminated evaluation.
const (
	StageLiquidityFloor = "liquidity_floor"
	StageMetadataScore  = "metadata_score"
	StageGatekeeper     = "gatekeeper"
	StageSecurity       = "security"
	StageHolders        = "holders"
	StageScoreRecheck   = "score_recheck"
	StageBehavior       = "behavior"
)

// Verdict is the vetting funnel's audit trail for one candidate in one
// cycle: the final decision plus every reason accumulated on the way.
type Verdict struct {
	Decision Decision
	Score    int      // running pre-screen score, negative is worse
	Reasons  []string // accumulated in evaluation order
	Stage    string   // stage that produced the decision

	// Populated only when evaluation reached the behavioral stage.
	Grade          int     // 0-100
	GradeReasoning string
	PotentialMC    float64 // forecast peak market cap, 0 when none
	Confidence     float64 // behavioral confidence in [0,1]
}
