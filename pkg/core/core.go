package core

import (
	"context"
)

// Feeder is the market data side of an exchange
type Feeder interface {
	// Symbols returns every pair listed by the exchange, in BASE/QUOTE form
	Symbols(ctx context.Context) ([]string, error)
	// CandlesByLimit returns the last closed candles of a pair, oldest first
	CandlesByLimit(ctx context.Context, pair, timeframe string, limit int) ([]Candle, error)
}

// Notifier delivers alert text to the operator. Implementations are best
// effort: they log delivery failures and never return them.
type Notifier interface {
	Notify(text string)
	OnError(err error)
}

// StateStore keeps the last signal state of each pair
type StateStore interface {
	// State returns the recorded state of the pair, SignalNone when never recorded
	State(pair string) (SignalState, error)
	SetState(pair string, state SignalState) error
	States() (map[string]SignalState, error)
}
