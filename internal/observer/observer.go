// Package observer watches one pair for a bounded window, polling the
// market source on a fixed interval, and condenses the samples into a
// single Observation for the funnel's behavioral stage.
package observer

import (
	"context"
	"errors"
	"io"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"token-scout/internal/domain"
)

// ErrNoSamples means every poll in the window failed; the funnel
// treats the observation as unavailable.
var ErrNoSamples = errors.New("observer: no samples collected")

// Default observation window.
const (
	defaultWindow       = 60 * time.Second
	defaultPollInterval = 10 * time.Second
)

// Thresholds for classifying the window.
const (
	trendBandPct      = 2.0 // |change| under this is stable, over is a trend
	activityMinPrices = 3   // more distinct prices than this reads as active
)

// MarketSource yields the live market state of a pair.
type MarketSource interface {
	Snapshot(ctx context.Context, key domain.PairKey) (domain.MarketSnapshot, error)
}

// Options configures an Observer.
type Options struct {
	Window       time.Duration
	PollInterval time.Duration
	Source       MarketSource
	Logger       *logrus.Entry
}

// Observer polls and summarizes. Safe for concurrent Watch calls; all
// state is per-call.
type Observer struct {
	window time.Duration
	poll   time.Duration
	source MarketSource
	log    *logrus.Entry
}

// New creates an observer with the given options.
func New(opts Options) *Observer {
	if opts.Logger == nil {
		silent := logrus.New()
		silent.SetOutput(io.Discard)
		opts.Logger = logrus.NewEntry(silent)
	}
	if opts.Window <= 0 {
		opts.Window = defaultWindow
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	return &Observer{
		window: opts.Window,
		poll:   opts.PollInterval,
		source: opts.Source,
		log:    opts.Logger,
	}
}

// Watch polls the pair until the window closes, then summarizes.
// Individual poll failures are skipped; a window with zero successful
// polls returns ErrNoSamples. Cancellation aborts between polls.
func (o *Observer) Watch(ctx context.Context, key domain.PairKey) (*domain.Observation, error) {
	o.log.WithFields(logrus.Fields{
		"pair":   key.String(),
		"window": o.window.String(),
	}).Info("observing pair")

	deadline := time.NewTimer(o.window)
	defer deadline.Stop()
	ticker := time.NewTicker(o.poll)
	defer ticker.Stop()

	var samples []domain.MarketSnapshot
	for {
		snap, err := o.source.Snapshot(ctx, key)
		if err != nil {
			o.log.WithError(err).WithField("pair", key.String()).Debug("poll failed, sample skipped")
		} else {
			samples = append(samples, snap)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return summarize(samples)
		case <-ticker.C:
		}
	}
}

// summarize condenses the window's samples into an Observation.
func summarize(samples []domain.MarketSnapshot) (*domain.Observation, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}

	first, last := samples[0], samples[len(samples)-1]

	var priceChange float64
	if first.PriceUSD != 0 {
		priceChange = (last.PriceUSD - first.PriceUSD) / first.PriceUSD * 100
	}

	var liqChange float64
	if first.LiquidityUSD != 0 {
		liqChange = (last.LiquidityUSD - first.LiquidityUSD) / first.LiquidityUSD * 100
	}

	// Exactly +-2.0 deliberately falls through to volatile.
	trend := domain.TrendVolatile
	switch {
	case math.Abs(priceChange) < trendBandPct:
		trend = domain.TrendStable
	case priceChange > trendBandPct:
		trend = domain.TrendUptrend
	case priceChange < -trendBandPct:
		trend = domain.TrendDowntrend
	}

	ratio := 1.0
	switch {
	case last.Sells5m > 0:
		ratio = float64(last.Buys5m) / float64(last.Sells5m)
	case last.Buys5m > 0:
		ratio = float64(last.Buys5m)
	}

	activity := domain.ActivityLow
	if distinctPrices(samples) > activityMinPrices {
		activity = domain.ActivityHigh
	}

	return &domain.Observation{
		PriceTrend:         trend,
		Volatility:         sampleStddev(samples),
		PriceChangePct:     priceChange,
		LiquidityChangePct: liqChange,
		BuySellRatio:       ratio,
		Buys5m:             last.Buys5m,
		Sells5m:            last.Sells5m,
		ActivityLevel:      activity,
		Snapshots:          len(samples),
	}, nil
}

// sampleStddev returns the sample standard deviation of observed
// prices, 0 with fewer than two samples.
func sampleStddev(samples []domain.MarketSnapshot) float64 {
	n := len(samples)
	if n < 2 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		sum += s.PriceUSD
	}
	mean := sum / float64(n)

	var sq float64
	for _, s := range samples {
		d := s.PriceUSD - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(n-1))
}

func distinctPrices(samples []domain.MarketSnapshot) int {
	seen := make(map[float64]struct{}, len(samples))
	for _, s := range samples {
		seen[s.PriceUSD] = struct{}{}
	}
	return len(seen)
}
