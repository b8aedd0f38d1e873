// Package trading simulates position lifecycle against a capital
// ledger: fixed-fraction sizing at open, then three exit rules checked
// in strict priority on every price update (trailing stop, one-shot
// target sell, doubling ladder).
package trading

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"token-scout/internal/domain"
	"token-scout/internal/idhash"
	"token-scout/internal/observability"
)

// Config holds the sizing and exit parameters.
type Config struct {
	InitialCapitalUSD     float64
	RiskPerTrade          float64 // fraction of current capital per position
	MaxOpenPositions      int
	TrailingStopPct       float64 // close on this drop from peak, 50 means -50%
	TargetSellFraction    float64 // sold when the forecast target is reached
	LadderSellFraction    float64 // sold on every ladder rung
	DefaultTargetMultiple float64 // target MC multiple when no forecast is given
}

// DefaultConfig returns the standard simulation parameters.
func DefaultConfig() Config {
	return Config{
		InitialCapitalUSD:     200,
		RiskPerTrade:          0.05,
		MaxOpenPositions:      4,
		TrailingStopPct:       50,
		TargetSellFraction:    0.70,
		LadderSellFraction:    0.50,
		DefaultTargetMultiple: 10,
	}
}

// OpenRequest asks the manager to open one simulated position.
type OpenRequest struct {
	Symbol      string
	Key         domain.PairKey
	EntryPrice  float64
	EntryMC     float64
	PotentialMC float64 // forecast market cap, 0 when none
}

// Options configures a Manager.
type Options struct {
	Config Config
	Logger *logrus.Entry
	Now    func() time.Time // defaults to time.Now
}

// Manager owns every open position and the ledger. All mutations go
// through Open and Update; snapshot accessors are safe for concurrent
// readers such as the command bot.
type Manager struct {
	mu        sync.RWMutex
	cfg       Config
	log       *logrus.Entry
	ledger    *Ledger
	positions map[domain.PairKey]*domain.Position
	now       func() time.Time
}

// NewManager creates a manager with the given options.
func NewManager(opts Options) *Manager {
	if opts.Logger == nil {
		silent := logrus.New()
		silent.SetOutput(io.Discard)
		opts.Logger = logrus.NewEntry(silent)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		cfg:       opts.Config,
		log:       opts.Logger,
		ledger:    NewLedger(opts.Config.InitialCapitalUSD),
		positions: make(map[domain.PairKey]*domain.Position),
		now:       opts.Now,
	}
}

// CanOpen reports whether a position slot is free.
func (m *Manager) CanOpen() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.positions) < m.cfg.MaxOpenPositions
}

// Open opens a simulated position sized at the risk fraction of current
// capital. Returns false without side effects when slots are full, the
// key already has an open position, or the entry numbers are unusable.
func (m *Manager) Open(req OpenRequest) (*Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.positions) >= m.cfg.MaxOpenPositions {
		m.log.WithField("symbol", req.Symbol).
			Warnf("trade rejected: all %d slots full", m.cfg.MaxOpenPositions)
		return nil, false
	}
	if _, exists := m.positions[req.Key]; exists {
		m.log.WithField("pair", req.Key.String()).Warn("trade rejected: position already open")
		return nil, false
	}
	if req.EntryPrice <= 0 || req.EntryMC <= 0 {
		m.log.WithField("symbol", req.Symbol).Warn("trade rejected: non-positive entry price or market cap")
		return nil, false
	}

	size := m.ledger.Balance() * m.cfg.RiskPerTrade

	targetMC := req.PotentialMC
	if targetMC <= 0 {
		targetMC = req.EntryMC * m.cfg.DefaultTargetMultiple
	}
	targetPrice := req.EntryPrice * (targetMC / req.EntryMC)

	pos := &domain.Position{
		Symbol:          req.Symbol,
		Key:             req.Key,
		EntryPrice:      req.EntryPrice,
		EntryMC:         req.EntryMC,
		SizeUSD:         size,
		TokensHeld:      size / req.EntryPrice,
		OpenedAt:        m.now(),
		CurrentPrice:    req.EntryPrice,
		HighWaterMark:   req.EntryPrice,
		TargetPrice:     targetPrice,
		TargetMC:        targetMC,
		NextLadderPrice: req.EntryPrice * 2.0,
	}

	m.positions[req.Key] = pos
	m.ledger.Debit(size)

	m.log.WithFields(logrus.Fields{
		"symbol":       pos.Symbol,
		"pair":         pos.Key.String(),
		"size_usd":     size,
		"entry_price":  pos.EntryPrice,
		"entry_mc":     pos.EntryMC,
		"target_price": pos.TargetPrice,
		"target_mc":    pos.TargetMC,
		"slots":        fmt.Sprintf("%d/%d", len(m.positions), m.cfg.MaxOpenPositions),
	}).Info("position opened")

	observability.RecordTradeOpened()
	observability.UpdatePortfolio(len(m.positions), m.ledger.Balance())

	return m.event(EventOpen, "", pos, "", 0, 0), true
}

// Update applies a fresh price to the keyed position and checks the
// exit rules in priority order; the first rule that fires wins the
// call. Unknown keys and non-positive prices are no-ops.
func (m *Manager) Update(key domain.PairKey, price float64) (*Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.positions[key]
	if !ok || price <= 0 {
		return nil, false
	}

	pos.CurrentPrice = price
	if price > pos.HighWaterMark {
		pos.HighWaterMark = price
	}

	// 1. Trailing stop: full exit on the configured drop from peak.
	peak := pos.HighWaterMark
	dropPct := (price - peak) / peak * 100
	if dropPct <= -m.cfg.TrailingStopPct {
		reason := fmt.Sprintf("TRAILING STOP (-%.0f%% from $%.6f)", m.cfg.TrailingStopPct, peak)
		return m.closeFull(pos, price, reason), true
	}

	// 2. One-shot target sell when the forecast price is reached.
	if price >= pos.TargetPrice && !pos.TargetHit {
		ev := m.sellPartial(pos, m.cfg.TargetSellFraction, price,
			"TP TARGET (Potential Reached)", TriggerTarget)
		pos.TargetHit = true
		return ev, true
	}

	// 3. Doubling ladder: partial exit every time price doubles again.
	if price >= pos.NextLadderPrice {
		mult := price / pos.EntryPrice
		ev := m.sellPartial(pos, m.cfg.LadderSellFraction, price,
			fmt.Sprintf("TP LADDER (%.1fx)", mult), TriggerLadder)
		pos.NextLadderPrice *= 2.0
		return ev, true
	}

	return nil, false
}

// sellPartial sells a fraction of the remaining tokens at price and
// credits the proceeds immediately. Caller holds the lock.
func (m *Manager) sellPartial(pos *domain.Position, fraction, price float64, reason, trigger string) *Event {
	sold := pos.TokensHeld * fraction
	proceeds := sold * price

	pos.TokensHeld -= sold
	pos.RealizedPnL += proceeds
	m.ledger.Credit(proceeds)

	m.log.WithFields(logrus.Fields{
		"symbol":    pos.Symbol,
		"reason":    reason,
		"sold_pct":  fraction * 100,
		"proceeds":  proceeds,
		"bag_value": pos.TokensHeld * price,
	}).Info("partial sell")

	observability.RecordPartialSell(trigger)
	observability.UpdatePortfolio(len(m.positions), m.ledger.Balance())

	return m.event(EventPartialSell, trigger, pos, reason, fraction, proceeds)
}

// closeFull liquidates the whole position, records the trade, and
// frees the slot. Caller holds the lock.
func (m *Manager) closeFull(pos *domain.Position, price float64, reason string) *Event {
	proceeds := pos.TokensHeld * price
	pos.TokensHeld = 0
	pos.RealizedPnL += proceeds
	m.ledger.Credit(proceeds)

	net := pos.RealizedPnL - pos.SizeUSD
	closedAt := m.now()

	m.ledger.Record(domain.ClosedTrade{
		TradeID: idhash.ComputeTradeID(
			pos.Key.ChainID, pos.Key.PairAddress, pos.Symbol, pos.OpenedAt.UnixNano()),
		Position:   *pos,
		ExitReason: reason,
		NetPnL:     net,
		ClosedAt:   closedAt,
	})
	delete(m.positions, pos.Key)

	m.log.WithFields(logrus.Fields{
		"symbol":  pos.Symbol,
		"reason":  reason,
		"net_pnl": net,
		"capital": m.ledger.Balance(),
		"slots":   fmt.Sprintf("%d/%d", len(m.positions), m.cfg.MaxOpenPositions),
	}).Info("position closed")

	observability.RecordTradeClosed(TriggerTrailingStop)
	observability.UpdatePortfolio(len(m.positions), m.ledger.Balance())

	ev := m.event(EventClose, TriggerTrailingStop, pos, reason, 1, proceeds)
	ev.NetPnL = net
	ev.Closed = true
	return ev
}

// event snapshots the position and portfolio into an Event. Caller
// holds the lock.
func (m *Manager) event(kind, trigger string, pos *domain.Position, reason string, fraction, proceeds float64) *Event {
	return &Event{
		Kind:         kind,
		Trigger:      trigger,
		Position:     *pos,
		Reason:       reason,
		SoldFraction: fraction,
		Proceeds:     proceeds,
		CapitalUSD:   m.ledger.Balance(),
		SlotsUsed:    len(m.positions),
		SlotsMax:     m.cfg.MaxOpenPositions,
	}
}

// Balance returns current free capital.
func (m *Manager) Balance() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ledger.Balance()
}

// OpenCount returns the number of open positions.
func (m *Manager) OpenCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.positions)
}

// MaxOpen returns the slot capacity.
func (m *Manager) MaxOpen() int {
	return m.cfg.MaxOpenPositions
}

// OpenPositions returns copies of all open positions, oldest first.
func (m *Manager) OpenPositions() []domain.Position {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Position, 0, len(m.positions))
	for _, pos := range m.positions {
		out = append(out, *pos)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OpenedAt.Before(out[j].OpenedAt)
	})
	return out
}

// OpenKeys returns the keys of all open positions, oldest first.
func (m *Manager) OpenKeys() []domain.PairKey {
	positions := m.OpenPositions()
	keys := make([]domain.PairKey, len(positions))
	for i, pos := range positions {
		keys[i] = pos.Key
	}
	return keys
}

// History returns a copy of the closed-trade records.
func (m *Manager) History() []domain.ClosedTrade {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ledger.History()
}

// RealizedPnL sums net PnL over all closed trades.
func (m *Manager) RealizedPnL() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ledger.RealizedPnL()
}

// Summary is a point-in-time portfolio snapshot.
type Summary struct {
	CapitalUSD        float64
	InitialCapitalUSD float64
	RealizedPnL       float64
	OpenCount         int
	MaxOpen           int
	ClosedCount       int
	OpenValueUSD      float64 // remaining bags at their last seen price
}

// Summarize returns the current portfolio snapshot.
func (m *Manager) Summarize() Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var openValue float64
	for _, pos := range m.positions {
		openValue += pos.BagValueUSD()
	}

	return Summary{
		CapitalUSD:        m.ledger.Balance(),
		InitialCapitalUSD: m.ledger.InitialCapital(),
		RealizedPnL:       m.ledger.RealizedPnL(),
		OpenCount:         len(m.positions),
		MaxOpen:           m.cfg.MaxOpenPositions,
		ClosedCount:       m.ledger.ClosedCount(),
		OpenValueUSD:      openValue,
	}
}
