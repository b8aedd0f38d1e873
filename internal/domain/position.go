package domain

import "time"

// Position is one open simulated position. It is owned by the trade
// manager and mutated only through the manager's operations; callers
// always receive copies.
type Position struct {
	Symbol string
	Key    PairKey

	// Entry
	EntryPrice float64
	EntryMC    float64
	SizeUSD    float64 // capital committed at open
	TokensHeld float64 // remaining token quantity
	OpenedAt   time.Time

	// Live state
	CurrentPrice  float64
	HighWaterMark float64 // highest price seen since open, never decreases

	// Exit plan
	TargetPrice     float64 // price implied by the forecast market cap
	TargetMC        float64
	NextLadderPrice float64 // first rung at 2x entry, doubles per trigger
	TargetHit       bool    // the 70% target sale fired already

	RealizedPnL float64 // gross proceeds banked so far
}

// ROIPct is the unrealized return against entry, in percent.
func (p *Position) ROIPct() float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	return (p.CurrentPrice - p.EntryPrice) / p.EntryPrice * 100
}

// BagValueUSD values the remaining tokens at the current price.
func (p *Position) BagValueUSD() float64 {
	return p.TokensHeld * p.CurrentPrice
}

// ClosedTrade is the terminal record of a position, kept in history
// after the full exit.
type ClosedTrade struct {
	TradeID string // deterministic hash
	Position
	ExitReason string  // human-readable, e.g. "TRAILING STOP (-50% from $0.000120)"
	NetPnL     float64 // total proceeds minus committed size
	ClosedAt   time.Time
}
