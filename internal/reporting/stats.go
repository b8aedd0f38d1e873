// Package reporting condenses trading activity into the scheduled
// digest posted to the alert channel: headline portfolio numbers plus
// summary statistics over the closed-trade history.
package reporting

import (
	"sort"

	"token-scout/internal/domain"
)

// Stats summarizes a closed-trade history.
type Stats struct {
	Trades  int
	Wins    int
	Losses  int
	WinRate float64 // wins / trades, 0 with no trades

	NetPnL    float64 // sum of per-trade net PnL
	MeanPnL   float64
	MedianPnL float64

	Best  TradeMark
	Worst TradeMark

	// MaxLossStreak is the longest run of consecutive non-winning
	// trades in close order.
	MaxLossStreak int
}

// TradeMark names one extreme trade.
type TradeMark struct {
	Symbol string
	NetPnL float64
}

// Compute aggregates the history. A trade counts as a win when its net
// PnL is positive; breakeven counts as a loss.
func Compute(history []domain.ClosedTrade) Stats {
	n := len(history)
	if n == 0 {
		return Stats{}
	}

	// Order by close time so streak counting is deterministic even if
	// the caller hands over an unsorted copy.
	trades := make([]domain.ClosedTrade, n)
	copy(trades, history)
	sort.Slice(trades, func(i, j int) bool {
		return trades[i].ClosedAt.Before(trades[j].ClosedAt)
	})

	s := Stats{Trades: n}
	pnls := make([]float64, n)
	best, worst := trades[0], trades[0]
	streak := 0

	for i, t := range trades {
		pnls[i] = t.NetPnL
		s.NetPnL += t.NetPnL

		if t.NetPnL > 0 {
			s.Wins++
			streak = 0
		} else {
			s.Losses++
			streak++
			if streak > s.MaxLossStreak {
				s.MaxLossStreak = streak
			}
		}

		if t.NetPnL > best.NetPnL {
			best = t
		}
		if t.NetPnL < worst.NetPnL {
			worst = t
		}
	}

	s.WinRate = float64(s.Wins) / float64(n)
	s.MeanPnL = s.NetPnL / float64(n)

	sort.Float64s(pnls)
	s.MedianPnL = percentile(pnls, 0.50)

	s.Best = TradeMark{Symbol: best.Symbol, NetPnL: best.NetPnL}
	s.Worst = TradeMark{Symbol: worst.Symbol, NetPnL: worst.NetPnL}
	return s
}

// percentile interpolates linearly between closest ranks of a sorted
// slice.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
