package behavior

import "token-scout/internal/domain"

// Recovery-time stand-ins by observed trend. The live window is too
// short to measure per-sell recovery directly, so the trend classifies
// absorption speed instead.
const (
	recoveryFast     = 30.0
	recoveryModerate = 90.0
	recoverySlow     = 240.0
)

// InputsFrom merges a candidate snapshot, its observation window, and
// the security profile into scorer inputs. Holder growth and top-5
// trend stay neutral: one funnel pass holds no holder history.
func InputsFrom(c *domain.Candidate, obs *domain.Observation, profile *domain.SecurityProfile) Inputs {
	in := Inputs{
		BuySellRatio:       obs.BuySellRatio,
		LiquidityUSD:       c.LiquidityUSD,
		LiquidityChangePct: obs.LiquidityChangePct,
		TxPerMin:           c.TxPerMin(),
		AvgTxSizeUSD:       c.AvgTxSizeUSD(),
		PriceChangePct:     obs.PriceChangePct,
	}

	switch obs.PriceTrend {
	case domain.TrendUptrend:
		in.BuyConsistency = "steady"
		in.RecoverySeconds = recoveryFast
	case domain.TrendStable:
		in.BuyConsistency = "steady"
		in.RecoverySeconds = recoveryModerate
	case domain.TrendVolatile:
		in.BuyConsistency = "spiky"
		in.RecoverySeconds = recoverySlow
	default:
		in.RecoverySeconds = recoverySlow
	}

	if profile != nil {
		in.Top5HolderPct = profile.TopHoldersPct(5)
	}

	return in
}
