// Package scanner owns the discovery loop. Each tick does two ordered
// steps: update every open position so exits run on fresh prices, then
// vet new pairs from the launch feed and the search endpoint through
// the funnel, opening simulated positions on WATCH verdicts. A single
// goroutine drives the loop, so trading state has one writer.
package scanner

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"token-scout/internal/dexscreener"
	"token-scout/internal/domain"
	"token-scout/internal/idhash"
	"token-scout/internal/observability"
	"token-scout/internal/reporting"
	"token-scout/internal/trading"
)

// Market is the market-data surface the scanner consumes.
type Market interface {
	Search(ctx context.Context, query string) ([]dexscreener.Pair, error)
	PairDetails(ctx context.Context, key domain.PairKey) (*dexscreener.Pair, error)
	Price(ctx context.Context, key domain.PairKey) (float64, error)
}

// Vetter runs one candidate through the vetting stages.
type Vetter interface {
	Evaluate(ctx context.Context, c *domain.Candidate) *domain.Verdict
}

// SeedSource hands over buffered launch events between cycles.
type SeedSource interface {
	Drain() []domain.Seed
}

// Alerter is the notification surface the scanner talks to.
type Alerter interface {
	Send(text string)
	Launch(c domain.Candidate, v domain.Verdict)
	TradeEvent(ev *trading.Event)
}

// Config tunes the loop.
type Config struct {
	ChainID       string
	Interval      time.Duration
	SearchQuery   string
	MinAgeMinutes float64
	MaxAgeMinutes float64
	// ReportCron schedules the digest; empty disables it.
	ReportCron string
}

// Options wires a Scanner. Feed and Alert are optional.
type Options struct {
	Config  Config
	Market  Market
	Funnel  Vetter
	Manager *trading.Manager
	Feed    SeedSource
	Alert   Alerter
	Logger  *logrus.Entry
	Now     func() time.Time // defaults to time.Now
}

// Scanner runs the cycle loop and owns the seen-pair set.
type Scanner struct {
	cfg     Config
	market  Market
	funnel  Vetter
	manager *trading.Manager
	feed    SeedSource
	alert   Alerter
	log     *logrus.Entry
	now     func() time.Time

	mu   sync.RWMutex
	seen map[domain.PairKey]struct{}

	cron *cron.Cron
}

// New creates a scanner.
func New(opts Options) *Scanner {
	if opts.Logger == nil {
		silent := logrus.New()
		silent.SetOutput(io.Discard)
		opts.Logger = logrus.NewEntry(silent)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Config.Interval <= 0 {
		opts.Config.Interval = 10 * time.Second
	}

	return &Scanner{
		cfg:     opts.Config,
		market:  opts.Market,
		funnel:  opts.Funnel,
		manager: opts.Manager,
		feed:    opts.Feed,
		alert:   opts.Alert,
		log:     opts.Logger,
		now:     opts.Now,
		seen:    make(map[domain.PairKey]struct{}),
	}
}

// Run drives cycles until ctx is cancelled. The first cycle starts
// immediately. The report schedule fires on its own goroutine but
// reads manager snapshots only, so it never races the cycle body.
func (s *Scanner) Run(ctx context.Context) error {
	if s.cfg.ReportCron != "" {
		if err := s.scheduleReport(); err != nil {
			return err
		}
		s.cron.Start()
		defer s.cron.Stop()
	}

	s.log.WithFields(logrus.Fields{
		"interval": s.cfg.Interval.String(),
		"query":    s.cfg.SearchQuery,
	}).Info("scanner started")

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		s.Cycle(ctx)

		select {
		case <-ctx.Done():
			s.log.Info("scanner stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Cycle runs one tick: positions first, then new candidates. Exported
// so the one-shot path and tests can drive ticks directly.
func (s *Scanner) Cycle(ctx context.Context) {
	started := time.Now()

	s.updatePositions(ctx)
	s.drainSeeds(ctx)
	s.searchCandidates(ctx)

	observability.RecordScanCycle(time.Since(started).Seconds())
}

// SeenCount reports the size of the de-duplication set.
func (s *Scanner) SeenCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}

// updatePositions refreshes every open position. A failed price lookup
// leaves that position untouched until the next cycle; a position must
// never exit on a price we did not actually observe.
func (s *Scanner) updatePositions(ctx context.Context) {
	keys := s.manager.OpenKeys()
	if len(keys) == 0 {
		return
	}
	s.log.WithField("positions", len(keys)).Debug("updating open positions")

	for _, key := range keys {
		if ctx.Err() != nil {
			return
		}

		price, err := s.market.Price(ctx, key)
		if err != nil {
			s.log.WithError(err).WithField("pair", key.String()).Warn("price fetch failed, position left as is")
			continue
		}
		if price <= 0 {
			s.log.WithField("pair", key.String()).Warn("price missing, position left as is")
			continue
		}

		if ev, fired := s.manager.Update(key, price); fired {
			s.alertEvent(ev)
		}
	}
}

// drainSeeds vets buffered launch events. Every seed still goes
// through PairDetails so the funnel sees a full market snapshot.
func (s *Scanner) drainSeeds(ctx context.Context) {
	if s.feed == nil {
		return
	}

	for _, seed := range s.feed.Drain() {
		if ctx.Err() != nil {
			return
		}
		if !s.markSeen(seed.Key) {
			continue
		}

		pair, err := s.market.PairDetails(ctx, seed.Key)
		if err != nil {
			// Fresh launches often precede indexing; the pair stays
			// reachable through search until it ages out.
			s.log.WithError(err).WithFields(logrus.Fields{
				"pair":   seed.Key.String(),
				"source": seed.Source,
			}).Debug("seed not indexed yet")
			continue
		}
		s.evaluate(ctx, pair.Candidate(s.now()))
	}
}

// searchCandidates pulls the search page and vets every unseen pair on
// the configured chain inside the age window.
func (s *Scanner) searchCandidates(ctx context.Context) {
	pairs, err := s.market.Search(ctx, s.cfg.SearchQuery)
	if err != nil {
		s.log.WithError(err).Warn("search failed, cycle continues on feed seeds only")
		return
	}

	now := s.now()
	fresh := 0
	for i := range pairs {
		if ctx.Err() != nil {
			return
		}

		pair := &pairs[i]
		if pair.ChainID != s.cfg.ChainID {
			continue
		}
		if age := pair.AgeMinutes(now); age < s.cfg.MinAgeMinutes || age > s.cfg.MaxAgeMinutes {
			continue
		}
		if !s.markSeen(pair.Key()) {
			continue
		}

		fresh++
		s.evaluate(ctx, pair.Candidate(now))
	}

	if fresh == 0 {
		s.log.Debug("no new pairs in the age window")
	}
}

// evaluate runs the funnel and, on WATCH, alerts and opens a position.
// The alert goes out even when every slot is taken: the signal is
// about the token, capital is the manager's concern.
func (s *Scanner) evaluate(ctx context.Context, c *domain.Candidate) {
	observability.RecordCandidateScanned()
	s.log.WithFields(logrus.Fields{
		"symbol": c.Symbol,
		"pair":   c.Key.String(),
		"id":     idhash.ComputeCandidateID(c.Key.ChainID, c.Key.PairAddress),
	}).Info("evaluating candidate")

	v := s.funnel.Evaluate(ctx, c)
	if v.Decision != domain.DecisionWatch {
		return
	}

	if s.alert != nil {
		s.alert.Launch(*c, *v)
	}

	if c.PriceUSD <= 0 {
		s.log.WithField("symbol", c.Symbol).Warn("watch verdict without a price, not opening")
		return
	}

	ev, ok := s.manager.Open(trading.OpenRequest{
		Symbol:      c.Symbol,
		Key:         c.Key,
		EntryPrice:  c.PriceUSD,
		EntryMC:     c.FDV,
		PotentialMC: v.PotentialMC,
	})
	if !ok {
		return
	}
	s.alertEvent(ev)
}

// markSeen records the key, reporting whether it was new. The set is
// append-only: one funnel evaluation per pair per process.
func (s *Scanner) markSeen(key domain.PairKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

func (s *Scanner) alertEvent(ev *trading.Event) {
	if ev == nil || s.alert == nil {
		return
	}
	s.alert.TradeEvent(ev)
}

// scheduleReport registers the digest job.
func (s *Scanner) scheduleReport() error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.cfg.ReportCron, s.postDigest); err != nil {
		return errors.Wrapf(err, "report schedule %q", s.cfg.ReportCron)
	}
	return nil
}

// postDigest renders and posts the summary from manager snapshots.
func (s *Scanner) postDigest() {
	d := reporting.Build(s.now(), s.manager.Summarize(), s.manager.OpenPositions(), s.manager.History())
	s.log.Info("summary digest generated")
	if s.alert != nil {
		s.alert.Send(reporting.Render(d))
	}
}
