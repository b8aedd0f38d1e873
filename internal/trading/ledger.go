package trading

import "token-scout/internal/domain"

// Ledger tracks free capital and the append-only closed-trade history.
// Capital moves only two ways: a debit when a position opens and a
// credit for every sell's proceeds. It is free cash, not mark-to-market
// equity. The Ledger itself is not goroutine safe; the Manager's lock
// guards it.
type Ledger struct {
	initial float64
	capital float64
	history []domain.ClosedTrade
}

// NewLedger starts a ledger at the given capital.
func NewLedger(initialCapital float64) *Ledger {
	return &Ledger{initial: initialCapital, capital: initialCapital}
}

// Debit removes committed capital at position open.
func (l *Ledger) Debit(amount float64) {
	l.capital -= amount
}

// Credit adds sell proceeds back to free capital.
func (l *Ledger) Credit(amount float64) {
	l.capital += amount
}

// Balance returns current free capital.
func (l *Ledger) Balance() float64 {
	return l.capital
}

// InitialCapital returns the starting balance.
func (l *Ledger) InitialCapital() float64 {
	return l.initial
}

// Record appends a finished trade to history.
func (l *Ledger) Record(trade domain.ClosedTrade) {
	l.history = append(l.history, trade)
}

// History returns a copy of the closed-trade records in close order.
func (l *Ledger) History() []domain.ClosedTrade {
	out := make([]domain.ClosedTrade, len(l.history))
	copy(out, l.history)
	return out
}

// ClosedCount returns the number of finished trades.
func (l *Ledger) ClosedCount() int {
	return len(l.history)
}

// RealizedPnL sums net PnL over all closed trades.
func (l *Ledger) RealizedPnL() float64 {
	var total float64
	for _, t := range l.history {
		total += t.NetPnL
	}
	return total
}
