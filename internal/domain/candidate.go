package domain

import "time"

// PairKey identifies one trading pair on one chain. It is the identity
// used for de-duplication, open positions, and price lookups.
type PairKey struct {
	ChainID     string // e.g. "solana", "base"
	PairAddress string // AMM pair / pool address
}

// String renders the key as "chain/address".
func (k PairKey) String() string {
	return k.ChainID + "/" + k.PairAddress
}

// Candidate represents one freshly listed pair as seen at fetch time.
// A candidate is a snapshot: the scanner rebuilds it from market data
// on every cycle rather than mutating a prior copy.
type Candidate struct {
	Key          PairKey
	TokenAddress string // base token mint / contract address
	Name         string
	Symbol       string
	URL          string // DexScreener pair page

	// Market state
	PriceUSD     float64
	LiquidityUSD float64
	FDV          float64 // fully diluted value, used as the market cap proxy
	MarketCap    float64 // circulating market cap when reported, else 0

	// Recent activity (5-minute and 1-hour windows)
	Buys5m        int
	Sells5m       int
	Buys1h        int
	Sells1h       int
	VolumeM5      float64
	VolumeH1      float64
	PriceChangeM5 float64 // percent
	PriceChangeH1 float64 // percent

	PairCreatedAt time.Time
	AgeMinutes    float64 // minutes since pair creation, at fetch time
	FetchedAt     time.Time
}

// BuySellRatio returns buys/sells over the 5-minute window. With no
// sells the buy count itself is the ratio; with no activity at all the
// ratio is neutral 1.0 so downstream scoring treats it as balanced.
func (c *Candidate) BuySellRatio() float64 {
	if c.Sells5m > 0 {
		return float64(c.Buys5m) / float64(c.Sells5m)
	}
	if c.Buys5m > 0 {
		return float64(c.Buys5m)
	}
	return 1.0
}

// TxPerMin returns transaction velocity derived from the 5-minute window.
func (c *Candidate) TxPerMin() float64 {
	return float64(c.Buys5m+c.Sells5m) / 5.0
}

// AvgTxSizeUSD returns mean trade size over the 5-minute window,
// 0 when the window had no transactions.
func (c *Candidate) AvgTxSizeUSD() float64 {
	total := c.Buys5m + c.Sells5m
	if total == 0 {
		return 0
	}
	return c.VolumeM5 / float64(total)
}
