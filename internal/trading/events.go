package trading

import "token-scout/internal/domain"

// Event kinds
const (
	EventOpen        = "OPEN"
	EventPartialSell = "PARTIAL_SELL"
	EventClose       = "CLOSE"
)

// Exit trigger labels, used for metrics and event classification.
const (
	TriggerTrailingStop = "trailing_stop"
	TriggerTarget       = "target"
	TriggerLadder       = "ladder"
)

// Event describes one manager action: a position opened, a partial
// sell, or a full close. Position is a snapshot taken after the action
// was applied.
type Event struct {
	Kind     string
	Trigger  string // which exit rule fired, empty for opens
	Position domain.Position
	Reason   string // human-readable, e.g. "TP LADDER (2.1x)"

	SoldFraction float64 // fraction of held tokens sold, partial sells only
	Proceeds     float64 // USD credited by this action
	NetPnL       float64 // full closes only
	Closed       bool    // the position no longer exists

	// Portfolio state after the action
	CapitalUSD float64
	SlotsUsed  int
	SlotsMax   int
}
