package core

import "time"

// SignalState is the last alert direction recorded for a pair
type SignalState string

const (
	SignalNone    SignalState = ""
	SignalBuy     SignalState = "buy"
	SignalSell    SignalState = "sell"
	SignalNeutral SignalState = "neutral"
)

func (s SignalState) String() string {
	if s == SignalNone {
		return "none"
	}
	return string(s)
}

// Snapshot holds the latest indicator values computed from a candle window
type Snapshot struct {
	Time      time.Time
	Price     float64
	RSI       float64
	EMA       float64
	EMAPeriod int
	UpperBand float64
	MidBand   float64
	LowerBand float64
}
