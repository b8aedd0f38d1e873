package domain

// Grade is the grading collaborator's assessment of one observed candidate.
type Grade struct {
	Decision    Decision
	Score       int     // 0-100, higher is stronger
	Reasoning   string  // single-sentence explanation
	PotentialMC float64 // forecast peak market cap in USD, 0 when none given
}
