// Package signal turns indicator snapshots into buy and sell alerts,
// firing once per state transition of a pair.
package signal

import (
	"fmt"
	"strings"
	"time"

	"github.com/raykavin/pairwatch/pkg/core"
)

const DefaultTimeLayout = "2006-01-02 15:04:05"

// Thresholds holds the trigger levels and the stop-loss / target
// multipliers applied to the price when an alert fires
type Thresholds struct {
	Oversold   float64
	Overbought float64

	BuyStopLoss  float64
	BuyTarget    float64
	SellStopLoss float64
	SellTarget   float64
}

// DefaultThresholds returns RSI 30/70 with 3% stops and 5% targets
func DefaultThresholds() Thresholds {
	return Thresholds{
		Oversold:     30,
		Overbought:   70,
		BuyStopLoss:  0.97,
		BuyTarget:    1.05,
		SellStopLoss: 1.03,
		SellTarget:   0.95,
	}
}

// Validate checks that the thresholds are consistent
func (t Thresholds) Validate() error {
	if t.Oversold < 0 || t.Overbought > 100 || t.Oversold >= t.Overbought {
		return fmt.Errorf("invalid rsi thresholds: oversold %g, overbought %g", t.Oversold, t.Overbought)
	}
	for name, v := range map[string]float64{
		"buy stop loss":  t.BuyStopLoss,
		"buy target":     t.BuyTarget,
		"sell stop loss": t.SellStopLoss,
		"sell target":    t.SellTarget,
	} {
		if v <= 0 {
			return fmt.Errorf("%s multiplier must be positive, got %g", name, v)
		}
	}
	return nil
}

// Alert is a triggered buy or sell signal
type Alert struct {
	Pair      string
	Direction core.SignalState
	Time      time.Time
	Snapshot  core.Snapshot
	StopLoss  float64
	Target    float64

	layout string
}

func (a Alert) banner() string {
	switch a.Direction {
	case core.SignalBuy:
		return "🚀 BUY SIGNAL"
	case core.SignalSell:
		return "🔻 SELL SIGNAL"
	default:
		return strings.ToUpper(a.Direction.String()) + " SIGNAL"
	}
}

// String renders the alert as the message sent to the sinks
func (a Alert) String() string {
	var sb strings.Builder
	sb.WriteString(Describe(a.Pair, a.Snapshot, a.Time, a.layout))
	sb.WriteString("\n\n")
	sb.WriteString(a.banner())
	sb.WriteString(fmt.Sprintf("\nSL: %.2f | TP: %.2f", a.StopLoss, a.Target))
	return sb.String()
}

// Describe renders the indicator header shared by every message
func Describe(pair string, snap core.Snapshot, at time.Time, layout string) string {
	if layout == "" {
		layout = DefaultTimeLayout
	}
	return fmt.Sprintf("[%s]\nPair: %s\nPrice: %.2f\nRSI: %.2f\nEMA%d: %.2f",
		at.Format(layout), pair, snap.Price, snap.RSI, snap.EMAPeriod, snap.EMA)
}

// Evaluator classifies snapshots against thresholds
type Evaluator struct {
	thresholds Thresholds
	layout     string
	now        func() time.Time
}

// Option configures an Evaluator
type Option func(*Evaluator)

// WithTimeLayout sets the timestamp layout used in alert messages
func WithTimeLayout(layout string) Option {
	return func(e *Evaluator) {
		e.layout = layout
	}
}

// WithClock replaces the clock stamped on alerts
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		e.now = now
	}
}

func NewEvaluator(thresholds Thresholds, options ...Option) *Evaluator {
	evaluator := &Evaluator{
		thresholds: thresholds,
		layout:     DefaultTimeLayout,
		now:        time.Now,
	}
	for _, option := range options {
		option(evaluator)
	}
	return evaluator
}

// Thresholds returns the levels the evaluator applies
func (e *Evaluator) Thresholds() Thresholds {
	return e.thresholds
}

// Evaluate returns the new state of the pair and, when the pair enters a
// buy or sell state it was not already in, the alert to send.
// A pair keeps its direction while the condition holds and falls back to
// neutral once it clears.
func (e *Evaluator) Evaluate(pair string, snap core.Snapshot, prior core.SignalState) (core.SignalState, *Alert) {
	var (
		state            core.SignalState
		stopLoss, target float64
	)

	switch {
	case snap.RSI < e.thresholds.Oversold && snap.Price < snap.LowerBand:
		state = core.SignalBuy
		stopLoss = snap.Price * e.thresholds.BuyStopLoss
		target = snap.Price * e.thresholds.BuyTarget
	case snap.RSI > e.thresholds.Overbought && snap.Price > snap.UpperBand:
		state = core.SignalSell
		stopLoss = snap.Price * e.thresholds.SellStopLoss
		target = snap.Price * e.thresholds.SellTarget
	default:
		return core.SignalNeutral, nil
	}

	if prior == state {
		return state, nil
	}

	return state, &Alert{
		Pair:      pair,
		Direction: state,
		Time:      e.now(),
		Snapshot:  snap,
		StopLoss:  stopLoss,
		Target:    target,
		layout:    e.layout,
	}
}

// Apply evaluates snap against the state recorded for pair and stores the
// new state before returning. The alert, if any, is left to the caller.
func (e *Evaluator) Apply(store core.StateStore, pair string, snap core.Snapshot) (core.SignalState, *Alert, error) {
	prior, err := store.State(pair)
	if err != nil {
		return core.SignalNone, nil, fmt.Errorf("read state of %s: %w", pair, err)
	}

	state, alert := e.Evaluate(pair, snap, prior)
	if err := store.SetState(pair, state); err != nil {
		return state, nil, fmt.Errorf("write state of %s: %w", pair, err)
	}

	return state, alert, nil
}

// Message renders the alert, or a neutral status line when there is none
func (e *Evaluator) Message(pair string, snap core.Snapshot, alert *Alert) string {
	if alert != nil {
		return alert.String()
	}
	return Describe(pair, snap, e.now(), e.layout)
}
