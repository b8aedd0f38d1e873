package domain

// Seed names a freshly launched token worth vetting. The launch feed
// supplies just enough identity to fetch full market data; everything
// else is rebuilt from the pair lookup before the funnel runs.
type Seed struct {
	Key          PairKey
	TokenAddress string // token mint / contract address
	Name         string
	Symbol       string
	Source       string // feed that produced the event
}
