package dexscreener

import (
	"strconv"
	"time"

	"token-scout/internal/domain"
)

// Wire types mirroring the public DexScreener pair schema. Only the
// fields the pipeline reads are declared.

// Token is one side of a pair.
type Token struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// TxnCounts is a buys/sells tally over one window.
type TxnCounts struct {
	Buys  int `json:"buys"`
	Sells int `json:"sells"`
}

// TxnWindows groups transaction tallies by lookback window.
type TxnWindows struct {
	M5  TxnCounts `json:"m5"`
	H1  TxnCounts `json:"h1"`
	H6  TxnCounts `json:"h6"`
	H24 TxnCounts `json:"h24"`
}

// VolumeWindows is USD volume by lookback window.
type VolumeWindows struct {
	M5  float64 `json:"m5"`
	H1  float64 `json:"h1"`
	H6  float64 `json:"h6"`
	H24 float64 `json:"h24"`
}

// ChangeWindows is price change percent by lookback window.
type ChangeWindows struct {
	M5  float64 `json:"m5"`
	H1  float64 `json:"h1"`
	H6  float64 `json:"h6"`
	H24 float64 `json:"h24"`
}

// Liquidity is the pool depth breakdown.
type Liquidity struct {
	USD   float64 `json:"usd"`
	Base  float64 `json:"base"`
	Quote float64 `json:"quote"`
}

// Social is one linked social account.
type Social struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Info carries the optional profile block.
type Info struct {
	ImageURL string   `json:"imageUrl"`
	Socials  []Social `json:"socials"`
}

// Pair is one indexed trading pair.
type Pair struct {
	ChainID       string        `json:"chainId"`
	DexID         string        `json:"dexId"`
	URL           string        `json:"url"`
	PairAddress   string        `json:"pairAddress"`
	BaseToken     Token         `json:"baseToken"`
	QuoteToken    Token         `json:"quoteToken"`
	PriceNative   string        `json:"priceNative"`
	PriceUSD      string        `json:"priceUsd"`
	Txns          TxnWindows    `json:"txns"`
	Volume        VolumeWindows `json:"volume"`
	PriceChange   ChangeWindows `json:"priceChange"`
	Liquidity     Liquidity     `json:"liquidity"`
	FDV           float64       `json:"fdv"`
	MarketCap     float64       `json:"marketCap"`
	PairCreatedAt int64         `json:"pairCreatedAt"` // unix milliseconds
	Info          *Info         `json:"info,omitempty"`
}

// pairsResponse is the envelope both the pair and search endpoints use.
type pairsResponse struct {
	SchemaVersion string `json:"schemaVersion"`
	Pairs         []Pair `json:"pairs"`
}

// Key returns the pair's identity.
func (p *Pair) Key() domain.PairKey {
	return domain.PairKey{ChainID: p.ChainID, PairAddress: p.PairAddress}
}

// PriceUSDFloat parses the string-typed price, 0 when absent.
func (p *Pair) PriceUSDFloat() float64 {
	v, err := strconv.ParseFloat(p.PriceUSD, 64)
	if err != nil {
		return 0
	}
	return v
}

// AgeMinutes returns minutes since pair creation, 0 when the creation
// timestamp is missing.
func (p *Pair) AgeMinutes(now time.Time) float64 {
	if p.PairCreatedAt <= 0 {
		return 0
	}
	return now.Sub(time.UnixMilli(p.PairCreatedAt)).Minutes()
}

// Candidate converts the wire pair into the domain snapshot, computing
// the derived age at the given clock time.
func (p *Pair) Candidate(now time.Time) *domain.Candidate {
	return &domain.Candidate{
		Key:          p.Key(),
		TokenAddress: p.BaseToken.Address,
		Name:         p.BaseToken.Name,
		Symbol:       p.BaseToken.Symbol,
		URL:          p.URL,

		PriceUSD:     p.PriceUSDFloat(),
		LiquidityUSD: p.Liquidity.USD,
		FDV:          p.FDV,
		MarketCap:    p.MarketCap,

		Buys5m:        p.Txns.M5.Buys,
		Sells5m:       p.Txns.M5.Sells,
		Buys1h:        p.Txns.H1.Buys,
		Sells1h:       p.Txns.H1.Sells,
		VolumeM5:      p.Volume.M5,
		VolumeH1:      p.Volume.H1,
		PriceChangeM5: p.PriceChange.M5,
		PriceChangeH1: p.PriceChange.H1,

		PairCreatedAt: time.UnixMilli(p.PairCreatedAt),
		AgeMinutes:    p.AgeMinutes(now),
		FetchedAt:     now,
	}
}
