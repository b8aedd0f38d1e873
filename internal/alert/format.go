package alert

import (
	"fmt"
	"strings"

	"token-scout/internal/domain"
	"token-scout/internal/trading"
)

const helpText = `Commands:
/balance - capital, realized PnL, open slots
/active - open positions with entry, current price and ROI
/help - this message`

// FormatStartup is the banner posted once when the daemon comes up.
func FormatStartup(chainID string, capitalUSD float64, maxOpen int) string {
	return fmt.Sprintf("🚀 SCOUT ACTIVATED\nChain: %s\nCapital: $%.2f | Slots: %d\nWaiting for gems...",
		strings.ToUpper(chainID), capitalUSD, maxOpen)
}

// FormatLaunch renders the launch alert for a WATCH verdict: the
// behavioral call, market snapshot, the vetting trail and a pair link.
func FormatLaunch(c domain.Candidate, v domain.Verdict) string {
	header := "👀 NEW LAUNCH WATCH"
	if v.Confidence > 0.8 {
		header = "🚨 GEM FOUND"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s | %s\n\n", header, c.Symbol)
	fmt.Fprintf(&sb, "🧠 Verdict: %s (%d%%), grade %d/100\n",
		v.Decision, int(v.Confidence*100), v.Grade)
	if v.PotentialMC > 0 {
		fmt.Fprintf(&sb, "🚀 Potential: $%.0f MC\n", v.PotentialMC)
	}
	if v.GradeReasoning != "" {
		fmt.Fprintf(&sb, "📝 %s\n", v.GradeReasoning)
	}

	sb.WriteString("\n📊 Market\n")
	fmt.Fprintf(&sb, "• Liq: $%.0f\n", c.LiquidityUSD)
	fmt.Fprintf(&sb, "• MC: $%.0f\n", c.FDV)
	fmt.Fprintf(&sb, "• Age: %.0fm\n", c.AgeMinutes)

	if len(v.Reasons) > 0 {
		sb.WriteString("\n🛡️ Vetting\n")
		for _, r := range v.Reasons {
			fmt.Fprintf(&sb, "• %s\n", r)
		}
	}

	fmt.Fprintf(&sb, "\n📜 Contract: %s\n", c.Key.PairAddress)
	sb.WriteString(pairURL(c))
	return sb.String()
}

// FormatTradeEvent renders one manager action for the alert channel.
func FormatTradeEvent(ev trading.Event) string {
	p := ev.Position
	switch ev.Kind {
	case trading.EventOpen:
		return fmt.Sprintf(
			"🟢 TRADE OPEN: %s\nSize: $%.2f\nEntry: $%.6f | MC: $%.0f\nTarget: $%.6f (MC $%.0f)\nSlots: %d/%d",
			p.Symbol, p.SizeUSD, p.EntryPrice, p.EntryMC,
			p.TargetPrice, p.TargetMC, ev.SlotsUsed, ev.SlotsMax)
	case trading.EventPartialSell:
		return fmt.Sprintf(
			"🔵 SELL %s (%s)\nSold: %.0f%% | Cash back: $%.2f\nRemaining bag: $%.2f",
			p.Symbol, ev.Reason, ev.SoldFraction*100, ev.Proceeds, p.BagValueUSD())
	case trading.EventClose:
		return fmt.Sprintf(
			"🟣 CLOSED %s (%s)\nNet PnL: $%+.2f\nCapital: $%.2f\nSlots: %d/%d",
			p.Symbol, ev.Reason, ev.NetPnL, ev.CapitalUSD, ev.SlotsUsed, ev.SlotsMax)
	default:
		return fmt.Sprintf("%s %s: %s", ev.Kind, p.Symbol, ev.Reason)
	}
}

// FormatBalance renders the /balance reply.
func FormatBalance(s trading.Summary) string {
	return fmt.Sprintf(
		"💰 WALLET STATUS\n\n💵 Capital: $%.2f\n📈 Realized PnL: $%+.2f\n🔄 Active Trades: %d/%d",
		s.CapitalUSD, s.RealizedPnL, s.OpenCount, s.MaxOpen)
}

// FormatActive renders the /active reply.
func FormatActive(positions []domain.Position) string {
	if len(positions) == 0 {
		return "💤 No active trades."
	}

	var sb strings.Builder
	sb.WriteString("🚀 ACTIVE TRADES\n")
	for _, p := range positions {
		fmt.Fprintf(&sb, "\n%s\nEntry: $%.6f\nCurrent: $%.6f\nPnL: %+.2f%%\nValue: $%.2f\n",
			p.Symbol, p.EntryPrice, p.CurrentPrice, p.ROIPct(), p.BagValueUSD())
	}
	return sb.String()
}

func pairURL(c domain.Candidate) string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("https://dexscreener.com/%s/%s", c.Key.ChainID, c.Key.PairAddress)
}
