// Package main runs the scout daemon: the discovery scanner with its
// vetting funnel, the simulated portfolio, the optional launch feed
// and Telegram command bot, plus an HTTP sidecar for health, metrics,
// and status.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"token-scout/internal/alert"
	"token-scout/internal/behavior"
	"token-scout/internal/config"
	"token-scout/internal/dexscreener"
	"token-scout/internal/feed"
	"token-scout/internal/funnel"
	"token-scout/internal/grader"
	"token-scout/internal/logging"
	"token-scout/internal/observability"
	"token-scout/internal/observer"
	"token-scout/internal/scanner"
	"token-scout/internal/security"
	"token-scout/internal/trading"
)

// Server bundles the long-running components and the read-only state
// the status endpoint reports.
type Server struct {
	cfg     *config.Config
	log     *logrus.Logger
	started time.Time

	scanner  *scanner.Scanner
	manager  *trading.Manager
	telegram *alert.Telegram
	feed     *feed.Feed
}

func main() {
	// A .env file is optional; real deployments set the environment
	// directly.
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("SCOUT_CONFIG"), "Path to the YAML config file (optional)")
	logLevel := flag.String("log-level", "", "Override log level (debug, info, warn, error)")
	listenAddr := flag.String("listen", "", "Override HTTP listen address")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}

	log, err := logging.Init(logging.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}

	server := newServer(cfg, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signals completion of Run so the shutdown goroutine stands down.
	done := make(chan error, 1)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.WithField("signal", sig.String()).Info("shutting down")
		cancel()

		select {
		case sig := <-sigCh:
			log.WithField("signal", sig.String()).Warn("second signal, forcing exit")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			log.Warn("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	go server.startHTTPServer(cfg.ListenAddr)

	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		log.WithError(err).Fatal("scout stopped")
	}
	log.Info("shutdown complete")
}

// newServer wires every component from the loaded configuration.
func newServer(cfg *config.Config, log *logrus.Logger) *Server {
	market := dexscreener.NewClient(dexscreener.Options{
		Logger: logging.Component(log, "dexscreener"),
	})

	oracle := security.NewClient(security.Options{
		BaseURL:       cfg.Security.BaseURL,
		APIKey:        cfg.Security.APIKey,
		RetryAttempts: cfg.Security.RetryAttempts,
		RetryWait:     cfg.Security.RetryWait(),
		Logger:        logging.Component(log, "security"),
	})

	watcher := observer.New(observer.Options{
		Window:       cfg.Observer.Window(),
		PollInterval: cfg.Observer.PollInterval(),
		Source:       market,
		Logger:       logging.Component(log, "observer"),
	})

	scorer := behavior.NewScorer(behavior.Limits{
		MaxLiquidityDropPct: cfg.Behavior.MaxLiquidityDropPct,
		MaxTop5Pct:          cfg.Behavior.MaxTop5Pct,
		MinTxPerMin:         cfg.Behavior.MinTxPerMin,
		MaxPriceCrashPct:    cfg.Behavior.MaxPriceCrashPct,
	})

	grade := grader.New(grader.Options{
		Mode:    cfg.Grader.Mode,
		BaseURL: cfg.Grader.BaseURL,
		Model:   cfg.Grader.Model,
		APIKey:  cfg.Grader.APIKey,
		Timeout: cfg.Grader.TimeoutSeconds,
		Logger:  logging.Component(log, "grader"),
		Scorer:  scorer,
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
		Logger:   logging.Component(log, "funnel"),
		Security: oracle,
		Observer: watcher,
		Grader:   grade,
		Scorer:   scorer,
	})

	manager := trading.NewManager(trading.Options{
		Config: trading.Config{
			InitialCapitalUSD:     cfg.Trading.InitialCapitalUSD,
			RiskPerTrade:          cfg.Trading.RiskPerTrade,
			MaxOpenPositions:      cfg.Trading.MaxOpenPositions,
			TrailingStopPct:       cfg.Trading.TrailingStopPct,
			TargetSellFraction:    cfg.Trading.TargetSellFraction,
			LadderSellFraction:    cfg.Trading.LadderSellFraction,
			DefaultTargetMultiple: cfg.Trading.DefaultTargetMultiple,
		},
		Logger: logging.Component(log, "trading"),
	})

	// A nil Telegram is a valid no-op notifier, so a bad token degrades
	// to running without alerts instead of refusing to start.
	var telegram *alert.Telegram
	if cfg.Telegram.Enabled() {
		tg, err := alert.New(alert.Options{
			Token:     cfg.Telegram.Token,
			ChatID:    cfg.Telegram.ChatID,
			Portfolio: manager,
			Logger:    logging.Component(log, "telegram"),
		})
		if err != nil {
			log.WithError(err).Warn("telegram unavailable, alerts disabled")
		} else {
			telegram = tg
		}
	}

	var launchFeed *feed.Feed
	if cfg.Feed.Enabled {
		launchFeed = feed.New(feed.Options{
			Config: feed.Config{
				URL:        cfg.Feed.URL,
				ChainID:    cfg.Chain,
				BufferSize: cfg.Feed.BufferSize,
			},
			Logger: logging.Component(log, "feed"),
		})
	}

	scanOpts := scanner.Options{
		Config: scanner.Config{
			ChainID:       cfg.Chain,
			Interval:      cfg.Scan.Interval(),
			SearchQuery:   cfg.Scan.SearchQuery,
			MinAgeMinutes: cfg.Scan.MinAgeMinutes,
			MaxAgeMinutes: cfg.Scan.MaxAgeMinutes,
			ReportCron:    cfg.Report.Cron,
		},
		Market:  market,
		Funnel:  vetter,
		Manager: manager,
		Alert:   telegram,
		Logger:  logging.Component(log, "scanner"),
	}
	if launchFeed != nil {
		scanOpts.Feed = launchFeed
	}

	return &Server{
		cfg:      cfg,
		log:      log,
		started:  time.Now(),
		scanner:  scanner.New(scanOpts),
		manager:  manager,
		telegram: telegram,
		feed:     launchFeed,
	}
}

// Run starts the scanner, the command bot, and the feed, then blocks
// until the context ends or a component fails.
func (s *Server) Run(ctx context.Context) error {
	s.log.WithFields(logrus.Fields{
		"chain":    s.cfg.Chain,
		"capital":  s.manager.Balance(),
		"max_open": s.manager.MaxOpen(),
	}).Info("scout starting")

	errCh := make(chan error, 2)

	if s.feed != nil {
		go s.feed.Run(ctx)
	}

	go func() {
		if err := s.telegram.Run(ctx); err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("telegram: %w", err)
		}
	}()

	go func() {
		if err := s.scanner.Run(ctx); err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("scanner: %w", err)
		}
	}()

	s.telegram.Startup(s.cfg.Chain, s.manager.Balance(), s.manager.MaxOpen())

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// startHTTPServer serves health, Prometheus metrics, and status.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", observability.Handler())

	mux.HandleFunc("/status", s.handleStatus)

	s.log.WithField("addr", addr).Info("http server listening")
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.log.WithError(err).Error("http server failed")
	}
}

// StatusResponse is the JSON document served at /status.
type StatusResponse struct {
	Status         string    `json:"status"`
	Chain          string    `json:"chain"`
	Started        time.Time `json:"started"`
	Uptime         string    `json:"uptime"`
	CapitalUSD     float64   `json:"capital_usd"`
	RealizedPnLUSD float64   `json:"realized_pnl_usd"`
	OpenPositions  int       `json:"open_positions"`
	MaxPositions   int       `json:"max_positions"`
	PairsSeen      int       `json:"pairs_seen"`
	AlertsEnabled  bool      `json:"alerts_enabled"`
	FeedConnected  bool      `json:"feed_connected"`
}

// handleStatus returns a portfolio and scanner snapshot as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:         "running",
		Chain:          s.cfg.Chain,
		Started:        s.started,
		Uptime:         time.Since(s.started).String(),
		CapitalUSD:     s.manager.Balance(),
		RealizedPnLUSD: s.manager.RealizedPnL(),
		OpenPositions:  s.manager.OpenCount(),
		MaxPositions:   s.manager.MaxOpen(),
		PairsSeen:      s.scanner.SeenCount(),
		AlertsEnabled:  s.telegram != nil,
	}
	if s.feed != nil {
		resp.FeedConnected = s.feed.Connected()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
