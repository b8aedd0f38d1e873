package domain

// Price trend classifications over an observation window.
const (
	TrendStable    = "stable"
	TrendUptrend   = "uptrend"
	TrendDowntrend = "downtrend"
	TrendVolatile  = "volatile"
)

// Activity level classifications.
const (
	ActivityHigh = "high"
	ActivityLow  = "low"
)

// MarketSnapshot is one polled view of a pair's live market state.
type MarketSnapshot struct {
	PriceUSD     float64
	LiquidityUSD float64
	Buys5m       int
	Sells5m      int
}

// Observation summarizes a bounded live-watch window over one pair.
// Produced by the observer, consumed by the behavioral scorer and the
// grading prompt.
type Observation struct {
	PriceTrend         string  // one of the Trend* constants
	Volatility         float64 // sample stddev of observed prices
	PriceChangePct     float64 // first snapshot to last, percent
	LiquidityChangePct float64 // first snapshot to last, percent
	BuySellRatio       float64 // from the final snapshot's 5m counters
	Buys5m             int     // final snapshot
	Sells5m            int     // final snapshot
	ActivityLevel      string  // one of the Activity* constants
	Snapshots          int     // samples actually collected
}
