// Package main vets one trading pair through the full funnel and
// prints the verdict. Exit code 0 means WATCH, 1 means IGNORE, and 2
// means the pair could not be evaluated at all.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/joho/godotenv"

	"token-scout/internal/behavior"
	"token-scout/internal/config"
	"token-scout/internal/dexscreener"
	"token-scout/internal/domain"
	"token-scout/internal/funnel"
	"token-scout/internal/grader"
	"token-scout/internal/logging"
	"token-scout/internal/observer"
	"token-scout/internal/security"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("SCOUT_CONFIG"), "Path to the YAML config file (optional)")
	chain := flag.String("chain", "", "Chain ID (defaults to the configured chain)")
	pair := flag.String("pair", "", "Pair address to vet")
	asJSON := flag.Bool("json", false, "Print the verdict as JSON")
	verbose := flag.Bool("verbose", false, "Log funnel stages while vetting")
	flag.Parse()

	if *pair == "" {
		fmt.Fprintln(os.Stderr, "Error: --pair is required")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if *chain == "" {
		*chain = cfg.Chain
	}

	// The verdict is the output; logs stay quiet unless asked for.
	level := "warn"
	if *verbose {
		level = "debug"
	}
	log, err := logging.Init(logging.Config{Level: level})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	market := dexscreener.NewClient(dexscreener.Options{
		Logger: logging.Component(log, "dexscreener"),
	})

	scorer := behavior.NewScorer(behavior.Limits{
		MaxLiquidityDropPct: cfg.Behavior.MaxLiquidityDropPct,
		MaxTop5Pct:          cfg.Behavior.MaxTop5Pct,
		MinTxPerMin:         cfg.Behavior.MinTxPerMin,
		MaxPriceCrashPct:    cfg.Behavior.MaxPriceCrashPct,
	})

	vetter := funnel.New(funnel.Options{
		Config: funnel.Config{
			MinLiquidityUSD:   cfg.Funnel.MinLiquidityUSD,
			LowCapUSD:         cfg.Funnel.LowCapUSD,
			HighCapUSD:        cfg.Funnel.HighCapUSD,
			HighLiquidityUSD:  cfg.Funnel.HighLiquidityUSD,
			PenaltyMCLow:      cfg.Funnel.PenaltyMCLow,
			PenaltyMCHigh:     cfg.Funnel.PenaltyMCHigh,
			PenaltyLiqHigh:    cfg.Funnel.PenaltyLiqHigh,
			MinScoreToProceed: cfg.Funnel.MinScoreToProceed,
			MaxBuyTaxPct:      cfg.Funnel.MaxBuyTaxPct,
			MaxSellTaxPct:     cfg.Funnel.MaxSellTaxPct,
			MinHolders:        cfg.Funnel.MinHolders,
			TopHolderSoftPct:  cfg.Funnel.TopHolderSoftPct,
			TopHolderHardPct:  cfg.Funnel.TopHolderHardPct,
			GradeCutoff:       cfg.Funnel.GradeCutoff,
		},
		Logger: logging.Component(log, "funnel"),
		Security: security.NewClient(security.Options{
			BaseURL:       cfg.Security.BaseURL,
			APIKey:        cfg.Security.APIKey,
			RetryAttempts: cfg.Security.RetryAttempts,
			RetryWait:     cfg.Security.RetryWait(),
			Logger:        logging.Component(log, "security"),
		}),
		Observer: observer.New(observer.Options{
			Window:       cfg.Observer.Window(),
			PollInterval: cfg.Observer.PollInterval(),
			Source:       market,
			Logger:       logging.Component(log, "observer"),
		}),
		Grader: grader.New(grader.Options{
			Mode:    cfg.Grader.Mode,
			BaseURL: cfg.Grader.BaseURL,
			Model:   cfg.Grader.Model,
			APIKey:  cfg.Grader.APIKey,
			Timeout: cfg.Grader.TimeoutSeconds,
			Logger:  logging.Component(log, "grader"),
			Scorer:  scorer,
		}),
		Scorer: scorer,
	})

	ctx := context.Background()

	key := domain.PairKey{ChainID: *chain, PairAddress: *pair}
	details, err := market.PairDetails(ctx, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: fetch pair: %v\n", err)
		os.Exit(2)
	}

	candidate := details.Candidate(time.Now())
	verdict := vetter.Evaluate(ctx, candidate)

	if *asJSON {
		printJSON(candidate, verdict)
	} else {
		printText(candidate, verdict)
	}

	if verdict.Decision == domain.DecisionWatch {
		os.Exit(0)
	}
	os.Exit(1)
}

func printText(c *domain.Candidate, v *domain.Verdict) {
	fmt.Printf("%s (%s) on %s\n", c.Symbol, c.Name, c.Key.ChainID)
	fmt.Printf("  Pair:      %s\n", c.Key.PairAddress)
	fmt.Printf("  Token:     %s\n", c.TokenAddress)
	fmt.Printf("  Price:     $%.6f\n", c.PriceUSD)
	fmt.Printf("  Liquidity: $%.0f\n", c.LiquidityUSD)
	fmt.Printf("  MC (FDV):  $%.0f\n", c.FDV)
	fmt.Printf("  Age:       %.1f minutes\n", c.AgeMinutes)
	fmt.Println()

	fmt.Printf("Verdict: %s (stage %s, score %d)\n", v.Decision, v.Stage, v.Score)
	if v.Grade > 0 {
		fmt.Printf("Grade:   %d/100\n", v.Grade)
	}
	if v.GradeReasoning != "" {
		fmt.Printf("Notes:   %s\n", v.GradeReasoning)
	}
	if v.Confidence > 0 {
		fmt.Printf("Confidence: %.0f%%\n", v.Confidence*100)
	}
	if v.PotentialMC > 0 {
		fmt.Printf("Potential:  $%.0f MC\n", v.PotentialMC)
	}

	fmt.Println("Trail:")
	for _, reason := range v.Reasons {
		fmt.Printf("  - %s\n", reason)
	}
}

func printJSON(c *domain.Candidate, v *domain.Verdict) {
	out := struct {
		Chain          string   `json:"chain"`
		Pair           string   `json:"pair"`
		Token          string   `json:"token"`
		Symbol         string   `json:"symbol"`
		Name           string   `json:"name"`
		PriceUSD       float64  `json:"price_usd"`
		LiquidityUSD   float64  `json:"liquidity_usd"`
		FDVUSD         float64  `json:"fdv_usd"`
		AgeMinutes     float64  `json:"age_minutes"`
		Decision       string   `json:"decision"`
		Stage          string   `json:"stage"`
		Score          int      `json:"score"`
		Grade          int      `json:"grade"`
		GradeReasoning string   `json:"grade_reasoning,omitempty"`
		Confidence     float64  `json:"confidence"`
		PotentialMC    float64  `json:"potential_mc,omitempty"`
		Reasons        []string `json:"reasons"`
	}{
		Chain:          c.Key.ChainID,
		Pair:           c.Key.PairAddress,
		Token:          c.TokenAddress,
		Symbol:         c.Symbol,
		Name:           c.Name,
		PriceUSD:       c.PriceUSD,
		LiquidityUSD:   c.LiquidityUSD,
		FDVUSD:         c.FDV,
		AgeMinutes:     c.AgeMinutes,
		Decision:       string(v.Decision),
		Stage:          v.Stage,
		Score:          v.Score,
		Grade:          v.Grade,
		GradeReasoning: v.GradeReasoning,
		Confidence:     v.Confidence,
		PotentialMC:    v.PotentialMC,
		Reasons:        v.Reasons,
	}

	data, err := sonic.MarshalIndent(out, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: encode verdict: %v\n", err)
		os.Exit(2)
	}
	fmt.Println(string(data))
}
