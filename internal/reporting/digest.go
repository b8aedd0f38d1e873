package reporting

import (
	"fmt"
	"strings"
	"time"

	"token-scout/internal/domain"
	"token-scout/internal/trading"
)

// Digest is one scheduled portfolio summary.
type Digest struct {
	GeneratedAt time.Time
	Summary     trading.Summary
	Open        []domain.Position
	Stats       Stats
}

// Build assembles a digest from manager snapshots at the given time.
func Build(now time.Time, summary trading.Summary, open []domain.Position, history []domain.ClosedTrade) Digest {
	return Digest{
		GeneratedAt: now,
		Summary:     summary,
		Open:        open,
		Stats:       Compute(history),
	}
}

// Render formats the digest as plain text for the alert channel.
func Render(d Digest) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "📊 DAILY SUMMARY %s\n\n", d.GeneratedAt.Format("2006-01-02"))
	fmt.Fprintf(&sb, "💵 Capital: $%.2f (started $%.2f)\n",
		d.Summary.CapitalUSD, d.Summary.InitialCapitalUSD)
	fmt.Fprintf(&sb, "📈 Realized PnL: $%+.2f\n", d.Summary.RealizedPnL)
	fmt.Fprintf(&sb, "🔄 Open: %d/%d slots ($%.2f at last price)\n",
		d.Summary.OpenCount, d.Summary.MaxOpen, d.Summary.OpenValueUSD)

	if d.Stats.Trades == 0 {
		sb.WriteString("\nNo closed trades yet.\n")
	} else {
		fmt.Fprintf(&sb, "\nClosed: %d trades, %d W / %d L (%.0f%% win rate)\n",
			d.Stats.Trades, d.Stats.Wins, d.Stats.Losses, d.Stats.WinRate*100)
		fmt.Fprintf(&sb, "Per trade: mean $%+.2f, median $%+.2f\n",
			d.Stats.MeanPnL, d.Stats.MedianPnL)
		fmt.Fprintf(&sb, "Best: %s $%+.2f | Worst: %s $%+.2f\n",
			d.Stats.Best.Symbol, d.Stats.Best.NetPnL,
			d.Stats.Worst.Symbol, d.Stats.Worst.NetPnL)
		if d.Stats.MaxLossStreak >= 3 {
			fmt.Fprintf(&sb, "⚠️ Longest losing streak: %d\n", d.Stats.MaxLossStreak)
		}
	}

	if len(d.Open) > 0 {
		sb.WriteString("\nOpen positions:\n")
		for _, p := range d.Open {
			fmt.Fprintf(&sb, "• %s entry $%.6f now $%.6f (%+.1f%%), bag $%.2f\n",
				p.Symbol, p.EntryPrice, p.CurrentPrice, p.ROIPct(), p.BagValueUSD())
		}
	}

	return sb.String()
}
