package behavior

import (
	"math"
	"strings"
	"testing"

	"token-scout/internal/domain"
)

// healthyInputs passes every red flag and scores well on all pillars.
func healthyInputs() Inputs {
	return Inputs{
		BuySellRatio:       3.0,
		BuyConsistency:     "steady",
		RecoverySeconds:    30,
		LiquidityUSD:       25000,
		LiquidityChangePct: 1.0,
		HolderGrowth:       "smooth",
		Top5Trend:          "decreasing",
		Top5HolderPct:      20,
		TxPerMin:           40,
		AvgTxSizeUSD:       150,
		PriceChangePct:     12,
	}
}

func TestScorer_RedFlags(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Inputs)
		wantFlag string
	}{
		{
			name:     "liquidity pulled",
			mutate:   func(in *Inputs) { in.LiquidityChangePct = -10 },
			wantFlag: "Liquidity removed (>5%)",
		},
		{
			name:     "whale concentration",
			mutate:   func(in *Inputs) { in.Top5HolderPct = 45 },
			wantFlag: "Extreme holder concentration (>40%)",
		},
		{
			name:     "dead volume",
			mutate:   func(in *Inputs) { in.TxPerMin = 3 },
			wantFlag: "insufficient transaction volume (<5 tx/min)",
		},
		{
			name:     "panic dump",
			mutate:   func(in *Inputs) { in.PriceChangePct = -65 },
			wantFlag: "Panic dump in progress (>60% crash)",
		},
	}

	scorer := NewScorer(DefaultLimits())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := healthyInputs()
			tt.mutate(&in)

			report := scorer.Score(in)

			if report.Decision != domain.DecisionIgnore {
				t.Errorf("Decision = %s, want IGNORE", report.Decision)
			}
			if report.Confidence != 0.0 {
				t.Errorf("Confidence = %v, want 0.0", report.Confidence)
			}
			if len(report.NegativePatterns) != 1 || report.NegativePatterns[0] != tt.wantFlag {
				t.Errorf("NegativePatterns = %v, want [%s]", report.NegativePatterns, tt.wantFlag)
			}
			wantSummary := "Risk Guard: " + tt.wantFlag
			if report.Summary != wantSummary {
				t.Errorf("Summary = %q, want %q", report.Summary, wantSummary)
			}
		})
	}
}

func TestScorer_RedFlagBoundaries(t *testing.T) {
	scorer := NewScorer(DefaultLimits())

	// Exactly -5% liquidity change is not a removal.
	in := healthyInputs()
	in.LiquidityChangePct = -5.0
	if report := scorer.Score(in); report.Confidence == 0.0 {
		t.Error("liquidity change of exactly -5% should not trip the red flag")
	}

	// Exactly 5 tx/min is acceptable volume.
	in = healthyInputs()
	in.TxPerMin = 5.0
	if report := scorer.Score(in); report.Confidence == 0.0 {
		t.Error("exactly 5 tx/min should not trip the red flag")
	}

	// Exactly -60% price change is already a dump.
	in = healthyInputs()
	in.PriceChangePct = -60.0
	if report := scorer.Score(in); report.Confidence != 0.0 {
		t.Error("price change of exactly -60% should trip the panic dump flag")
	}
}

func TestScorer_RedFlagPrecedence(t *testing.T) {
	// With several flags tripped the liquidity check reports first.
	in := healthyInputs()
	in.LiquidityChangePct = -50
	in.Top5HolderPct = 90
	in.TxPerMin = 0

	report := NewScorer(DefaultLimits()).Score(in)
	if got := report.NegativePatterns[0]; got != "Liquidity removed (>5%)" {
		t.Errorf("first flag = %q, want liquidity removal", got)
	}
}

func TestScorer_WatchOnStrongBehavior(t *testing.T) {
	report := NewScorer(DefaultLimits()).Score(healthyInputs())

	if report.Decision != domain.DecisionWatch {
		t.Fatalf("Decision = %s, want WATCH (confidence %v, scores %v)",
			report.Decision, report.Confidence, report.SubScores)
	}
	if report.Confidence < 0.75 {
		t.Errorf("Confidence = %v, want >= 0.75", report.Confidence)
	}
	if len(report.PositivePatterns) == 0 {
		t.Error("expected positive patterns for strong behavior")
	}
	if !strings.Contains(report.Summary, "organic launch patterns") {
		t.Errorf("Summary = %q, want organic launch wording", report.Summary)
	}

	// Expected pillar scores for these inputs.
	want := map[string]float64{
		domain.PillarDemandQuality:  0.9,
		domain.PillarSellAbsorption: 0.8,
		domain.PillarLiquidity:      0.8,
		domain.PillarHolders:        0.8,
		domain.PillarActivity:       0.8,
	}
	for pillar, w := range want {
		if got := report.SubScores[pillar]; math.Abs(got-w) > 1e-9 {
			t.Errorf("SubScores[%s] = %v, want %v", pillar, got, w)
		}
	}
}

func TestScorer_CriticalWeaknessVetoesAverage(t *testing.T) {
	// Four strong pillars and one weak pillar: the weighted average
	// still clears the bar but the minimum rule forces IGNORE.
	in := healthyInputs()
	in.TxPerMin = 8     // no velocity bonus, still above the red flag
	in.AvgTxSizeUSD = 5 // micro-transaction penalty drops activity to 0.3

	report := NewScorer(DefaultLimits()).Score(in)

	if report.Confidence < 0.75 {
		t.Fatalf("Confidence = %v, want >= 0.75 so the veto is what rejects", report.Confidence)
	}
	if report.Decision != domain.DecisionIgnore {
		t.Errorf("Decision = %s, want IGNORE via critical weakness", report.Decision)
	}

	found := false
	for _, n := range report.NegativePatterns {
		if n == "Critical weakness detected in one or more metrics" {
			found = true
		}
	}
	if !found {
		t.Errorf("NegativePatterns = %v, missing critical weakness entry", report.NegativePatterns)
	}
}

func TestScorer_MixedSignalsBelowBar(t *testing.T) {
	// Decent but unspectacular behavior lands under 0.75 and is ignored.
	in := Inputs{
		BuySellRatio:       1.5, // +0.1
		BuyConsistency:     "neutral",
		RecoverySeconds:    200, // -0.2
		LiquidityUSD:       12000,
		LiquidityChangePct: 1.0, // +0.2
		Top5HolderPct:      25,
		TxPerMin:           15, // +0.1
		AvgTxSizeUSD:       50,
		PriceChangePct:     3,
	}

	report := NewScorer(DefaultLimits()).Score(in)

	if report.Decision != domain.DecisionIgnore {
		t.Errorf("Decision = %s, want IGNORE", report.Decision)
	}
	if report.Confidence >= 0.75 {
		t.Errorf("Confidence = %v, want < 0.75", report.Confidence)
	}
	if !strings.Contains(report.Summary, "instability") {
		t.Errorf("Summary = %q, want instability wording", report.Summary)
	}
}

func TestScorer_ConfidenceRounding(t *testing.T) {
	report := NewScorer(DefaultLimits()).Score(healthyInputs())

	// Two-decimal rounding.
	scaled := report.Confidence * 100
	if math.Abs(scaled-math.Round(scaled)) > 1e-9 {
		t.Errorf("Confidence = %v, want a two-decimal value", report.Confidence)
	}
}

func TestScorer_Deterministic(t *testing.T) {
	scorer := NewScorer(DefaultLimits())
	in := healthyInputs()

	first := scorer.Score(in)
	for i := 0; i < 5; i++ {
		again := scorer.Score(in)
		if again.Decision != first.Decision || again.Confidence != first.Confidence {
			t.Fatalf("run %d diverged: %s/%v vs %s/%v",
				i, again.Decision, again.Confidence, first.Decision, first.Confidence)
		}
	}
}

func TestInputsFrom(t *testing.T) {
	c := &domain.Candidate{
		LiquidityUSD: 18000,
		Buys5m:       60,
		Sells5m:      30,
		VolumeM5:     4500,
	}
	profile := &domain.SecurityProfile{
		TopHolders: []domain.HolderStake{
			{Percent: 10}, {Percent: 8}, {Percent: 6}, {Percent: 4}, {Percent: 2}, {Percent: 1},
		},
	}

	tests := []struct {
		name            string
		trend           string
		wantConsistency string
		wantRecovery    float64
	}{
		{"uptrend reads steady and fast", domain.TrendUptrend, "steady", recoveryFast},
		{"stable reads steady and moderate", domain.TrendStable, "steady", recoveryModerate},
		{"volatile reads spiky and slow", domain.TrendVolatile, "spiky", recoverySlow},
		{"downtrend reads neutral and slow", domain.TrendDowntrend, "", recoverySlow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := &domain.Observation{
				PriceTrend:         tt.trend,
				BuySellRatio:       2.0,
				LiquidityChangePct: 1.5,
				PriceChangePct:     4.0,
			}

			in := InputsFrom(c, obs, profile)

			if in.BuyConsistency != tt.wantConsistency {
				t.Errorf("BuyConsistency = %q, want %q", in.BuyConsistency, tt.wantConsistency)
			}
			if in.RecoverySeconds != tt.wantRecovery {
				t.Errorf("RecoverySeconds = %v, want %v", in.RecoverySeconds, tt.wantRecovery)
			}
			if in.BuySellRatio != 2.0 {
				t.Errorf("BuySellRatio = %v, want 2.0", in.BuySellRatio)
			}
			if in.TxPerMin != 18 {
				t.Errorf("TxPerMin = %v, want 18", in.TxPerMin)
			}
			if in.AvgTxSizeUSD != 50 {
				t.Errorf("AvgTxSizeUSD = %v, want 50", in.AvgTxSizeUSD)
			}
			// Top five of six holders: 10+8+6+4+2.
			if in.Top5HolderPct != 30 {
				t.Errorf("Top5HolderPct = %v, want 30", in.Top5HolderPct)
			}
		})
	}

	t.Run("nil profile stays neutral", func(t *testing.T) {
		obs := &domain.Observation{PriceTrend: domain.TrendStable}
		in := InputsFrom(c, obs, nil)
		if in.Top5HolderPct != 0 {
			t.Errorf("Top5HolderPct = %v, want 0", in.Top5HolderPct)
		}
	})
}
