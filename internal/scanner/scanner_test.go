package scanner

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"token-scout/internal/dexscreener"
	"token-scout/internal/domain"
	"token-scout/internal/trading"
)

// The fakes share one call journal so tests can assert the ordering of
// steps inside a cycle.
type journal struct {
	entries []string
}

func (j *journal) add(entry string) { j.entries = append(j.entries, entry) }

func (j *journal) indexOf(entry string) int {
	for i, e := range j.entries {
		if e == entry {
			return i
		}
	}
	return -1
}

func (j *journal) count(entry string) int {
	n := 0
	for _, e := range j.entries {
		if e == entry {
			n++
		}
	}
	return n
}

type fakeMarket struct {
	j *journal

	prices   map[domain.PairKey]float64
	priceErr map[domain.PairKey]error

	searchPairs []dexscreener.Pair
	searchErr   error

	details map[domain.PairKey]*dexscreener.Pair
}

func (m *fakeMarket) Search(_ context.Context, _ string) ([]dexscreener.Pair, error) {
	m.j.add("search")
	return m.searchPairs, m.searchErr
}

func (m *fakeMarket) PairDetails(_ context.Context, key domain.PairKey) (*dexscreener.Pair, error) {
	m.j.add("details " + key.PairAddress)
	p, ok := m.details[key]
	if !ok {
		return nil, dexscreener.ErrPairNotFound
	}
	return p, nil
}

func (m *fakeMarket) Price(_ context.Context, key domain.PairKey) (float64, error) {
	m.j.add("price " + key.PairAddress)
	if err := m.priceErr[key]; err != nil {
		return 0, err
	}
	return m.prices[key], nil
}

type fakeVetter struct {
	j        *journal
	verdicts map[string]*domain.Verdict // keyed by symbol
}

func (v *fakeVetter) Evaluate(_ context.Context, c *domain.Candidate) *domain.Verdict {
	v.j.add("evaluate " + c.Symbol)
	if verdict, ok := v.verdicts[c.Symbol]; ok {
		return verdict
	}
	return &domain.Verdict{Decision: domain.DecisionIgnore, Stage: domain.StageBehavior}
}

type fakeAlerter struct {
	sends    []string
	launches []string // symbols
	events   []string // event kinds
}

func (a *fakeAlerter) Send(text string) { a.sends = append(a.sends, text) }

func (a *fakeAlerter) Launch(c domain.Candidate, _ domain.Verdict) {
	a.launches = append(a.launches, c.Symbol)
}

func (a *fakeAlerter) TradeEvent(ev *trading.Event) { a.events = append(a.events, ev.Kind) }

type fakeFeed struct {
	seeds []domain.Seed
}

func (f *fakeFeed) Drain() []domain.Seed {
	out := f.seeds
	f.seeds = nil
	return out
}

func searchPair(address, symbol string, createdAgo time.Duration, now time.Time) dexscreener.Pair {
	return dexscreener.Pair{
		ChainID:       "solana",
		PairAddress:   address,
		URL:           "https://dexscreener.com/solana/" + address,
		BaseToken:     dexscreener.Token{Address: "Mint" + address, Symbol: symbol},
		PriceUSD:      "0.001",
		Liquidity:     dexscreener.Liquidity{USD: 12000},
		FDV:           50000,
		PairCreatedAt: now.Add(-createdAgo).UnixMilli(),
	}
}

func watchVerdict() *domain.Verdict {
	return &domain.Verdict{
		Decision:    domain.DecisionWatch,
		Stage:       domain.StageBehavior,
		Grade:       86,
		Confidence:  0.85,
		PotentialMC: 500000,
	}
}

type harness struct {
	scanner *Scanner
	market  *fakeMarket
	vetter  *fakeVetter
	alerter *fakeAlerter
	feed    *fakeFeed
	manager *trading.Manager
	j       *journal
	now     time.Time
}

func newHarness() *harness {
	j := &journal{}
	now := time.Unix(1700000000, 0)

	h := &harness{
		j:   j,
		now: now,
		market: &fakeMarket{
			j:        j,
			prices:   make(map[domain.PairKey]float64),
			priceErr: make(map[domain.PairKey]error),
			details:  make(map[domain.PairKey]*dexscreener.Pair),
		},
		vetter:  &fakeVetter{j: j, verdicts: make(map[string]*domain.Verdict)},
		alerter: &fakeAlerter{},
		feed:    &fakeFeed{},
	}
	h.manager = trading.NewManager(trading.Options{
		Config: trading.DefaultConfig(),
		Now:    func() time.Time { return now },
	})
	h.scanner = New(Options{
		Config: Config{
			ChainID:       "solana",
			Interval:      10 * time.Second,
			SearchQuery:   "solana",
			MinAgeMinutes: 0.75,
			MaxAgeMinutes: 15,
		},
		Market:  h.market,
		Funnel:  h.vetter,
		Manager: h.manager,
		Feed:    h.feed,
		Alert:   h.alerter,
		Now:     func() time.Time { return now },
	})
	return h
}

func TestScanner_WatchOpensPositionAndAlerts(t *testing.T) {
	h := newHarness()
	h.market.searchPairs = []dexscreener.Pair{searchPair("PairA", "GEM", 5*time.Minute, h.now)}
	h.vetter.verdicts["GEM"] = watchVerdict()

	h.scanner.Cycle(context.Background())

	if h.manager.OpenCount() != 1 {
		t.Fatalf("OpenCount = %d, want 1", h.manager.OpenCount())
	}
	pos := h.manager.OpenPositions()[0]
	if pos.Symbol != "GEM" || pos.EntryPrice != 0.001 {
		t.Errorf("position = %s at %v, want GEM at 0.001", pos.Symbol, pos.EntryPrice)
	}
	if pos.TargetMC != 500000 {
		t.Errorf("TargetMC = %v, want the 500000 forecast carried into the open", pos.TargetMC)
	}
	if len(h.alerter.launches) != 1 || h.alerter.launches[0] != "GEM" {
		t.Errorf("launches = %v, want [GEM]", h.alerter.launches)
	}
	if len(h.alerter.events) != 1 || h.alerter.events[0] != trading.EventOpen {
		t.Errorf("events = %v, want one OPEN", h.alerter.events)
	}
}

func TestScanner_IgnoreVerdictDoesNotOpen(t *testing.T) {
	h := newHarness()
	h.market.searchPairs = []dexscreener.Pair{searchPair("PairA", "DUD", 5*time.Minute, h.now)}

	h.scanner.Cycle(context.Background())

	if h.j.count("evaluate DUD") != 1 {
		t.Fatalf("journal = %v, want DUD evaluated once", h.j.entries)
	}
	if h.manager.OpenCount() != 0 {
		t.Errorf("OpenCount = %d, want 0", h.manager.OpenCount())
	}
	if len(h.alerter.launches) != 0 {
		t.Errorf("launches = %v, want none for IGNORE", h.alerter.launches)
	}
}

func TestScanner_PositionsUpdateBeforeNewCandidates(t *testing.T) {
	h := newHarness()
	key := domain.PairKey{ChainID: "solana", PairAddress: "PairHeld"}
	h.manager.Open(trading.OpenRequest{Symbol: "HELD", Key: key, EntryPrice: 0.001, EntryMC: 50000})
	h.market.prices[key] = 0.0011
	h.market.searchPairs = []dexscreener.Pair{searchPair("PairB", "NEW", 5*time.Minute, h.now)}

	h.scanner.Cycle(context.Background())

	priceAt := h.j.indexOf("price PairHeld")
	evalAt := h.j.indexOf("evaluate NEW")
	if priceAt == -1 || evalAt == -1 || priceAt > evalAt {
		t.Errorf("journal = %v, want the held position priced before any evaluation", h.j.entries)
	}
	if got := h.manager.OpenPositions()[0].CurrentPrice; got != 0.0011 {
		t.Errorf("CurrentPrice = %v, want refreshed to 0.0011", got)
	}
}

func TestScanner_DeduplicatesAcrossCycles(t *testing.T) {
	h := newHarness()
	h.market.searchPairs = []dexscreener.Pair{searchPair("PairA", "GEM", 5*time.Minute, h.now)}

	h.scanner.Cycle(context.Background())
	h.scanner.Cycle(context.Background())

	if got := h.j.count("evaluate GEM"); got != 1 {
		t.Errorf("evaluations = %d, want exactly 1 across cycles", got)
	}
	if h.scanner.SeenCount() != 1 {
		t.Errorf("SeenCount = %d, want 1", h.scanner.SeenCount())
	}
}

func TestScanner_AgeAndChainFilters(t *testing.T) {
	h := newHarness()
	wrongChain := searchPair("PairC", "EVM", 5*time.Minute, h.now)
	wrongChain.ChainID = "base"
	h.market.searchPairs = []dexscreener.Pair{
		searchPair("PairA", "YOUNG", 30*time.Second, h.now),
		searchPair("PairB", "OLD", 20*time.Minute, h.now),
		wrongChain,
		searchPair("PairD", "FRESH", 5*time.Minute, h.now),
	}

	h.scanner.Cycle(context.Background())

	for _, skipped := range []string{"YOUNG", "OLD", "EVM"} {
		if h.j.count("evaluate "+skipped) != 0 {
			t.Errorf("%s was evaluated, want filtered out", skipped)
		}
	}
	if h.j.count("evaluate FRESH") != 1 {
		t.Errorf("journal = %v, want FRESH evaluated", h.j.entries)
	}
	if h.scanner.SeenCount() != 1 {
		t.Errorf("SeenCount = %d, want only the evaluated pair remembered", h.scanner.SeenCount())
	}
}

func TestScanner_PriceFailureLeavesPositionUntouched(t *testing.T) {
	newHeld := func(t *testing.T) (*harness, domain.PairKey) {
		t.Helper()
		h := newHarness()
		key := domain.PairKey{ChainID: "solana", PairAddress: "PairHeld"}
		h.manager.Open(trading.OpenRequest{Symbol: "HELD", Key: key, EntryPrice: 0.001, EntryMC: 50000})
		return h, key
	}

	t.Run("lookup error", func(t *testing.T) {
		h, key := newHeld(t)
		h.market.priceErr[key] = errors.New("api down")

		h.scanner.Cycle(context.Background())

		if got := h.manager.OpenPositions()[0].CurrentPrice; got != 0.001 {
			t.Errorf("CurrentPrice = %v, want untouched entry price", got)
		}
		if len(h.alerter.events) != 0 {
			t.Errorf("events = %v, want none", h.alerter.events)
		}
	})

	t.Run("zero price", func(t *testing.T) {
		h, key := newHeld(t)
		h.market.prices[key] = 0

		h.scanner.Cycle(context.Background())

		if got := h.manager.OpenPositions()[0].CurrentPrice; got != 0.001 {
			t.Errorf("CurrentPrice = %v, a zero price must not reach the manager", got)
		}
	})
}

func TestScanner_SearchFailureStillUpdatesPositions(t *testing.T) {
	h := newHarness()
	key := domain.PairKey{ChainID: "solana", PairAddress: "PairHeld"}
	h.manager.Open(trading.OpenRequest{Symbol: "HELD", Key: key, EntryPrice: 0.001, EntryMC: 50000})
	h.market.prices[key] = 0.0012
	h.market.searchErr = errors.New("rate limited")

	h.scanner.Cycle(context.Background())

	if got := h.manager.OpenPositions()[0].CurrentPrice; got != 0.0012 {
		t.Errorf("CurrentPrice = %v, want 0.0012 despite the search failure", got)
	}
}

func TestScanner_SeedsVettedThroughDetails(t *testing.T) {
	h := newHarness()
	seedKey := domain.PairKey{ChainID: "solana", PairAddress: "PairSeed"}
	pair := searchPair("PairSeed", "SEED", 2*time.Minute, h.now)
	h.market.details[seedKey] = &pair
	h.feed.seeds = []domain.Seed{{Key: seedKey, Symbol: "SEED", Source: "launch_feed"}}

	h.scanner.Cycle(context.Background())

	detailsAt := h.j.indexOf("details PairSeed")
	evalAt := h.j.indexOf("evaluate SEED")
	if detailsAt == -1 || evalAt == -1 || detailsAt > evalAt {
		t.Errorf("journal = %v, want details fetched before evaluation", h.j.entries)
	}
}

func TestScanner_UnindexedSeedIsNotRetried(t *testing.T) {
	h := newHarness()
	seedKey := domain.PairKey{ChainID: "solana", PairAddress: "PairSeed"}
	h.feed.seeds = []domain.Seed{{Key: seedKey, Symbol: "SEED", Source: "launch_feed"}}

	h.scanner.Cycle(context.Background())

	if h.j.count("evaluate SEED") != 0 {
		t.Fatal("an unindexed seed must not reach the funnel")
	}
	if h.scanner.SeenCount() != 1 {
		t.Errorf("SeenCount = %d, want the seed remembered", h.scanner.SeenCount())
	}

	// The same pair showing up in search later stays de-duplicated.
	h.market.searchPairs = []dexscreener.Pair{searchPair("PairSeed", "SEED", 5*time.Minute, h.now)}
	h.scanner.Cycle(context.Background())

	if h.j.count("evaluate SEED") != 0 {
		t.Error("a seen pair was re-evaluated from search")
	}
}

func TestScanner_FullSlotsStillAlerts(t *testing.T) {
	h := newHarness()
	for i, addr := range []string{"P1", "P2", "P3", "P4"} {
		h.manager.Open(trading.OpenRequest{
			Symbol:     addr,
			Key:        domain.PairKey{ChainID: "solana", PairAddress: addr},
			EntryPrice: 0.001 + float64(i)*0.0001,
			EntryMC:    50000,
		})
	}
	h.market.searchPairs = []dexscreener.Pair{searchPair("PairE", "GEM", 5*time.Minute, h.now)}
	h.vetter.verdicts["GEM"] = watchVerdict()

	h.scanner.Cycle(context.Background())

	if len(h.alerter.launches) != 1 {
		t.Errorf("launches = %v, want the signal sent even with full slots", h.alerter.launches)
	}
	if h.manager.OpenCount() != 4 {
		t.Errorf("OpenCount = %d, want the slot cap respected", h.manager.OpenCount())
	}
	if len(h.alerter.events) != 0 {
		t.Errorf("events = %v, want no OPEN event", h.alerter.events)
	}
}

func TestScanner_DigestRendersFromManagerSnapshots(t *testing.T) {
	h := newHarness()
	h.manager.Open(trading.OpenRequest{
		Symbol:     "HELD",
		Key:        domain.PairKey{ChainID: "solana", PairAddress: "PairHeld"},
		EntryPrice: 0.001,
		EntryMC:    50000,
	})

	h.scanner.postDigest()

	if len(h.alerter.sends) != 1 {
		t.Fatalf("sends = %d, want the digest posted once", len(h.alerter.sends))
	}
	text := h.alerter.sends[0]
	for _, want := range []string{"DAILY SUMMARY", "HELD", "1/4 slots"} {
		if !strings.Contains(text, want) {
			t.Errorf("digest missing %q:\n%s", want, text)
		}
	}
}

func TestScanner_RunRejectsBadCron(t *testing.T) {
	h := newHarness()
	s := New(Options{
		Config: Config{
			ChainID:     "solana",
			Interval:    time.Second,
			SearchQuery: "solana",
			ReportCron:  "61 9 * * *",
		},
		Market:  h.market,
		Funnel:  h.vetter,
		Manager: h.manager,
	})

	if err := s.Run(context.Background()); err == nil {
		t.Fatal("Run accepted an unparseable schedule")
	}
}
