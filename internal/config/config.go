// Package config loads and validates the scanner configuration: a YAML
// file for tunables, environment variables for secrets. The loaded
// Config is treated as immutable; components receive the sections they
// need through their constructors.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config is the full configuration surface.
type Config struct {
	Chain      string `yaml:"chain"`
	ListenAddr string `yaml:"listen_addr"`

	Scan     ScanConfig     `yaml:"scan"`
	Funnel   FunnelConfig   `yaml:"funnel"`
	Trading  TradingConfig  `yaml:"trading"`
	Observer ObserverConfig `yaml:"observer"`
	Behavior BehaviorConfig `yaml:"behavior"`
	Security SecurityConfig `yaml:"security"`
	Grader   GraderConfig   `yaml:"grader"`
	Telegram TelegramConfig `yaml:"telegram"`
	Feed     FeedConfig     `yaml:"feed"`
	Report   ReportConfig   `yaml:"report"`
	Log      LogConfig      `yaml:"log"`
}

// ScanConfig controls the discovery loop.
type ScanConfig struct {
	IntervalSeconds int     `yaml:"interval_seconds"`
	SearchQuery     string  `yaml:"search_query"`
	MinAgeMinutes   float64 `yaml:"min_age_minutes"`
	MaxAgeMinutes   float64 `yaml:"max_age_minutes"`
}

// Interval returns the scan tick as a duration.
func (s ScanConfig) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

// FunnelConfig holds every vetting threshold.
type FunnelConfig struct {
	MinLiquidityUSD  float64 `yaml:"min_liquidity_usd"`
	LowCapUSD        float64 `yaml:"low_cap_usd"`
	HighCapUSD       float64 `yaml:"high_cap_usd"`
	HighLiquidityUSD float64 `yaml:"high_liquidity_usd"`

	PenaltyMCLow   int `yaml:"penalty_mc_low"`   // applied when FDV is under LowCapUSD
	PenaltyMCHigh  int `yaml:"penalty_mc_high"`  // applied when FDV is over HighCapUSD
	PenaltyLiqHigh int `yaml:"penalty_liq_high"` // applied when liquidity is over HighLiquidityUSD

	MinScoreToProceed int `yaml:"min_score_to_proceed"`

	MaxBuyTaxPct     float64 `yaml:"max_buy_tax_pct"`
	MaxSellTaxPct    float64 `yaml:"max_sell_tax_pct"`
	MinHolders       int     `yaml:"min_holders"`
	TopHolderSoftPct float64 `yaml:"top_holder_soft_pct"` // above this costs a point
	TopHolderHardPct float64 `yaml:"top_holder_hard_pct"` // above this rejects outright

	GradeCutoff int `yaml:"grade_cutoff"` // minimum grade score for a WATCH
}

// TradingConfig sizes and exits simulated positions.
type TradingConfig struct {
	InitialCapitalUSD     float64 `yaml:"initial_capital_usd"`
	RiskPerTrade          float64 `yaml:"risk_per_trade"` // fraction of current capital
	MaxOpenPositions      int     `yaml:"max_open_positions"`
	TrailingStopPct       float64 `yaml:"trailing_stop_pct"` // drop from peak that closes, 50 means -50%
	TargetSellFraction    float64 `yaml:"target_sell_fraction"`
	LadderSellFraction    float64 `yaml:"ladder_sell_fraction"`
	DefaultTargetMultiple float64 `yaml:"default_target_multiple"` // used when no forecast MC is given
}

// ObserverConfig bounds the live-watch window.
type ObserverConfig struct {
	WindowSeconds int `yaml:"window_seconds"`
	PollSeconds   int `yaml:"poll_seconds"`
}

// Window returns the total observation duration.
func (o ObserverConfig) Window() time.Duration {
	return time.Duration(o.WindowSeconds) * time.Second
}

// PollInterval returns the gap between snapshots.
func (o ObserverConfig) PollInterval() time.Duration {
	return time.Duration(o.PollSeconds) * time.Second
}

// BehaviorConfig holds the scorer's red-flag thresholds.
type BehaviorConfig struct {
	MaxLiquidityDropPct float64 `yaml:"max_liquidity_drop_pct"`
	MaxTop5Pct          float64 `yaml:"max_top5_pct"`
	MinTxPerMin         float64 `yaml:"min_tx_per_min"`
	MaxPriceCrashPct    float64 `yaml:"max_price_crash_pct"`
}

// SecurityConfig points at the token security oracle.
type SecurityConfig struct {
	BaseURL          string `yaml:"base_url"`
	APIKey           string `yaml:"-"` // env GOPLUS_API_KEY only
	RetryAttempts    int    `yaml:"retry_attempts"`
	RetryWaitSeconds int    `yaml:"retry_wait_seconds"`
}

// RetryWait returns the pause between oracle retries.
func (s SecurityConfig) RetryWait() time.Duration {
	return time.Duration(s.RetryWaitSeconds) * time.Second
}

// GraderConfig selects and configures the grading collaborator.
type GraderConfig struct {
	Mode           string `yaml:"mode"` // auto, ai, heuristic
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	APIKey         string `yaml:"-"` // env DEEPSEEK_API_KEY only
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the grading request deadline.
func (g GraderConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// TelegramConfig carries the alert channel credentials. Both values
// come from the environment, never from the YAML file.
type TelegramConfig struct {
	Token  string `yaml:"-"` // env TELEGRAM_BOT_TOKEN
	ChatID int64  `yaml:"-"` // env TELEGRAM_CHAT_ID
}

// Enabled reports whether alerting is configured at all.
func (t TelegramConfig) Enabled() bool {
	return t.Token != "" && t.ChatID != 0
}

// FeedConfig controls the optional launch websocket feed.
type FeedConfig struct {
	Enabled    bool   `yaml:"enabled"`
	URL        string `yaml:"url"`
	BufferSize int    `yaml:"buffer_size"`
}

// ReportConfig schedules the daily summary.
type ReportConfig struct {
	Cron string `yaml:"cron"`
}

// LogConfig mirrors logging.Config in YAML form.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Load reads the YAML file at path (optional, empty path skips the
// file), applies defaults, pulls secrets from the environment, and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		Chain:      "solana",
		ListenAddr: ":8080",
		Scan: ScanConfig{
			IntervalSeconds: 10,
			SearchQuery:     "solana",
			MinAgeMinutes:   0.75,
			MaxAgeMinutes:   15,
		},
		Funnel: FunnelConfig{
			MinLiquidityUSD:   2500,
			LowCapUSD:         6000,
			HighCapUSD:        150000,
			HighLiquidityUSD:  150000,
			PenaltyMCLow:      -2,
			PenaltyMCHigh:     -1,
			PenaltyLiqHigh:    -1,
			MinScoreToProceed: -1,
			MaxBuyTaxPct:      8,
			MaxSellTaxPct:     8,
			MinHolders:        20,
			TopHolderSoftPct:  15,
			TopHolderHardPct:  30,
			GradeCutoff:       80,
		},
		Trading: TradingConfig{
			InitialCapitalUSD:     200,
			RiskPerTrade:          0.05,
			MaxOpenPositions:      4,
			TrailingStopPct:       50,
			TargetSellFraction:    0.70,
			LadderSellFraction:    0.50,
			DefaultTargetMultiple: 10,
		},
		Observer: ObserverConfig{
			WindowSeconds: 60,
			PollSeconds:   10,
		},
		Behavior: BehaviorConfig{
			MaxLiquidityDropPct: 5,
			MaxTop5Pct:          40,
			MinTxPerMin:         5,
			MaxPriceCrashPct:    60,
		},
		Security: SecurityConfig{
			BaseURL:          "https://api.gopluslabs.io",
			RetryAttempts:    3,
			RetryWaitSeconds: 2,
		},
		Grader: GraderConfig{
			Mode:           "auto",
			BaseURL:        "https://api.deepseek.com",
			Model:          "deepseek-chat",
			TimeoutSeconds: 20,
		},
		Feed: FeedConfig{
			Enabled:    false,
			BufferSize: 256,
		},
		Report: ReportConfig{
			Cron: "0 9 * * *",
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}
}

// applyEnv fills secrets from the environment. YAML never carries
// credentials.
func (c *Config) applyEnv() {
	c.Security.APIKey = os.Getenv("GOPLUS_API_KEY")
	c.Grader.APIKey = os.Getenv("DEEPSEEK_API_KEY")
	c.Telegram.Token = os.Getenv("TELEGRAM_BOT_TOKEN")
	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			c.Telegram.ChatID = id
		}
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}

// Validate rejects configurations the components cannot run with.
func (c *Config) Validate() error {
	if c.Chain == "" {
		return fmt.Errorf("chain must be set")
	}
	if c.Scan.IntervalSeconds <= 0 {
		return fmt.Errorf("scan.interval_seconds must be positive, got %d", c.Scan.IntervalSeconds)
	}
	if c.Scan.MinAgeMinutes < 0 || c.Scan.MaxAgeMinutes <= c.Scan.MinAgeMinutes {
		return fmt.Errorf("scan age window invalid: min %.2f max %.2f", c.Scan.MinAgeMinutes, c.Scan.MaxAgeMinutes)
	}

	if c.Funnel.MinLiquidityUSD < 0 {
		return fmt.Errorf("funnel.min_liquidity_usd must not be negative")
	}
	if c.Funnel.TopHolderHardPct <= c.Funnel.TopHolderSoftPct {
		return fmt.Errorf("funnel.top_holder_hard_pct (%.1f) must exceed top_holder_soft_pct (%.1f)",
			c.Funnel.TopHolderHardPct, c.Funnel.TopHolderSoftPct)
	}
	if c.Funnel.GradeCutoff < 0 || c.Funnel.GradeCutoff > 100 {
		return fmt.Errorf("funnel.grade_cutoff must be in [0,100], got %d", c.Funnel.GradeCutoff)
	}

	if c.Trading.InitialCapitalUSD <= 0 {
		return fmt.Errorf("trading.initial_capital_usd must be positive, got %.2f", c.Trading.InitialCapitalUSD)
	}
	if c.Trading.RiskPerTrade <= 0 || c.Trading.RiskPerTrade >= 1 {
		return fmt.Errorf("trading.risk_per_trade must be in (0,1), got %.3f", c.Trading.RiskPerTrade)
	}
	if c.Trading.MaxOpenPositions <= 0 {
		return fmt.Errorf("trading.max_open_positions must be positive, got %d", c.Trading.MaxOpenPositions)
	}
	if c.Trading.TrailingStopPct <= 0 || c.Trading.TrailingStopPct > 100 {
		return fmt.Errorf("trading.trailing_stop_pct must be in (0,100], got %.1f", c.Trading.TrailingStopPct)
	}
	if f := c.Trading.TargetSellFraction; f <= 0 || f > 1 {
		return fmt.Errorf("trading.target_sell_fraction must be in (0,1], got %.2f", f)
	}
	if f := c.Trading.LadderSellFraction; f <= 0 || f > 1 {
		return fmt.Errorf("trading.ladder_sell_fraction must be in (0,1], got %.2f", f)
	}
	if c.Trading.DefaultTargetMultiple <= 1 {
		return fmt.Errorf("trading.default_target_multiple must exceed 1, got %.1f", c.Trading.DefaultTargetMultiple)
	}

	if c.Observer.WindowSeconds <= 0 || c.Observer.PollSeconds <= 0 {
		return fmt.Errorf("observer window and poll interval must be positive")
	}
	if c.Observer.PollSeconds > c.Observer.WindowSeconds {
		return fmt.Errorf("observer.poll_seconds (%d) must not exceed window_seconds (%d)",
			c.Observer.PollSeconds, c.Observer.WindowSeconds)
	}

	if c.Security.RetryAttempts <= 0 {
		return fmt.Errorf("security.retry_attempts must be positive, got %d", c.Security.RetryAttempts)
	}

	switch c.Grader.Mode {
	case "auto", "ai", "heuristic":
	default:
		return fmt.Errorf("grader.mode must be auto, ai, or heuristic, got %q", c.Grader.Mode)
	}

	if c.Feed.Enabled {
		if c.Feed.URL == "" {
			return fmt.Errorf("feed.url required when the feed is enabled")
		}
		if c.Chain != "solana" {
			return fmt.Errorf("feed only supports solana, chain is %q", c.Chain)
		}
		if c.Feed.BufferSize <= 0 {
			return fmt.Errorf("feed.buffer_size must be positive, got %d", c.Feed.BufferSize)
		}
	}

	if _, err := cron.ParseStandard(c.Report.Cron); err != nil {
		return fmt.Errorf("report.cron %q: %w", c.Report.Cron, err)
	}

	return nil
}
