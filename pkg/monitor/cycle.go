// Package monitor runs the signal detection cycle over the configured
// pairs and keeps it running on a schedule.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/raykavin/pairwatch/pkg/core"
	"github.com/raykavin/pairwatch/pkg/indicator"
	"github.com/raykavin/pairwatch/pkg/logger"
	"github.com/raykavin/pairwatch/pkg/market"
	"github.com/raykavin/pairwatch/pkg/signal"
	"github.com/samber/lo"
)

// MarketData is the exchange side of a cycle
type MarketData interface {
	ValidatePairs(ctx context.Context, requested []string) ([]string, error)
	FetchCandles(ctx context.Context, pair string) ([]core.Candle, error)
}

// PairResult is the outcome of checking one pair
type PairResult struct {
	Pair     string
	Candles  int
	Snapshot core.Snapshot
	State    core.SignalState
	Alerted  bool
	Skipped  bool
	Err      error
}

// Status summarizes the result in one word
func (r PairResult) Status() string {
	switch {
	case r.Alerted:
		return "alert"
	case r.Skipped:
		return "skipped"
	case r.Err != nil:
		return "error"
	default:
		return "ok"
	}
}

// Report is the outcome of one cycle
type Report struct {
	ID        string
	Started   time.Time
	Finished  time.Time
	Requested []string
	Validated []string
	Results   []PairResult
}

// Alerts returns how many pairs produced an alert
func (r Report) Alerts() int {
	return lo.CountBy(r.Results, func(result PairResult) bool { return result.Alerted })
}

// Failures returns how many pairs could not be evaluated
func (r Report) Failures() int {
	return lo.CountBy(r.Results, func(result PairResult) bool { return result.Err != nil })
}

// Monitor runs cycles over a list of pairs
type Monitor struct {
	market    MarketData
	engine    indicator.Engine
	evaluator *signal.Evaluator
	store     core.StateStore
	notifier  core.Notifier
	log       logger.Logger

	window          int
	alertPairErrors bool
	observer        func(PairResult)
	now             func() time.Time
}

// Option is a function that configures a Monitor
type Option func(*Monitor)

// WithWindow sets the minimum number of candles a pair needs to be evaluated
func WithWindow(candles int) Option {
	return func(m *Monitor) {
		m.window = candles
	}
}

// WithPairErrorAlerts controls whether unexpected pair failures are alerted
func WithPairErrorAlerts(enabled bool) Option {
	return func(m *Monitor) {
		m.alertPairErrors = enabled
	}
}

// WithObserver registers a callback invoked after each pair
func WithObserver(observer func(PairResult)) Option {
	return func(m *Monitor) {
		m.observer = observer
	}
}

func NewMonitor(data MarketData, engine indicator.Engine, evaluator *signal.Evaluator,
	store core.StateStore, notifier core.Notifier, log logger.Logger, options ...Option) *Monitor {
	m := &Monitor{
		market:          data,
		engine:          engine,
		evaluator:       evaluator,
		store:           store,
		notifier:        notifier,
		log:             log,
		window:          market.DefaultCandleLimit,
		alertPairErrors: true,
		now:             time.Now,
	}

	for _, option := range options {
		option(m)
	}

	return m
}

// RunCycle validates pairs once and checks every listed pair in order.
// A failing pair never stops the others. The returned error is either the
// catalogue failure or the context error.
func (m *Monitor) RunCycle(ctx context.Context, pairs []string) (Report, error) {
	report := Report{
		ID:        uuid.NewString(),
		Started:   m.now(),
		Requested: pairs,
	}
	log := m.log.WithField("cycle", report.ID)

	log.Infof("starting monitoring cycle over %d pairs", len(pairs))

	validated, err := m.market.ValidatePairs(ctx, pairs)
	report.Validated = validated
	if err != nil {
		report.Finished = m.now()
		return report, fmt.Errorf("cycle %s: %w", report.ID, err)
	}

	for idx, pair := range validated {
		if err := ctx.Err(); err != nil {
			report.Finished = m.now()
			return report, err
		}

		log.Debugf("checking %d/%d: %s", idx+1, len(validated), pair)
		result := m.checkPair(ctx, log.WithField("pair", pair), pair)
		report.Results = append(report.Results, result)

		if m.observer != nil {
			m.observer(result)
		}
	}

	report.Finished = m.now()
	log.WithFields(logger.Fields{
		"pairs":    len(report.Results),
		"alerts":   report.Alerts(),
		"failures": report.Failures(),
		"elapsed":  report.Finished.Sub(report.Started).Round(time.Millisecond).String(),
	}).Info("monitoring cycle finished")

	return report, nil
}

func (m *Monitor) checkPair(ctx context.Context, log logger.Logger, pair string) (result PairResult) {
	result.Pair = pair

	defer func() {
		if r := recover(); r != nil {
			result.Err = core.NewPairError(pair, fmt.Errorf("panic: %v", r))
			m.handlePairError(ctx, log, result.Err)
		}
	}()

	candles, err := m.market.FetchCandles(ctx, pair)
	if err != nil {
		result.Err = core.NewPairError(pair, err)
		m.handlePairError(ctx, log, result.Err)
		return result
	}
	result.Candles = len(candles)

	if len(candles) < m.window {
		result.Skipped = true
		result.Err = core.NewPairError(pair, fmt.Errorf("%w: got %d candles, need %d",
			core.ErrInsufficientData, len(candles), m.window))
		m.handlePairError(ctx, log, result.Err)
		return result
	}

	snap, err := m.engine.Compute(candles)
	if err != nil {
		result.Skipped = errors.Is(err, core.ErrInsufficientData)
		result.Err = core.NewPairError(pair, err)
		m.handlePairError(ctx, log, result.Err)
		return result
	}
	result.Snapshot = snap

	state, alert, err := m.evaluator.Apply(m.store, pair, snap)
	result.State = state
	if err != nil {
		result.Err = core.NewPairError(pair, err)
		m.handlePairError(ctx, log, result.Err)
		return result
	}

	if alert == nil {
		log.WithField("state", state).Debugf("no signal: %s", m.evaluator.Message(pair, snap, nil))
		return result
	}

	log.WithField("state", state).Info("signal triggered")
	m.notifier.Notify(alert.String())
	result.Alerted = true

	return result
}

// handlePairError logs err at the level its kind calls for. Only
// unexpected errors are alerted.
func (m *Monitor) handlePairError(ctx context.Context, log logger.Logger, err error) {
	switch {
	case ctx.Err() != nil:
		log.Debug("pair check interrupted")
	case errors.Is(err, core.ErrTransport), errors.Is(err, core.ErrNoData), errors.Is(err, core.ErrUnsupportedPair):
		log.WithError(err).Info("no data this cycle, skipping pair")
	case errors.Is(err, core.ErrInsufficientData):
		log.WithError(err).Warn("insufficient data, skipping pair")
	default:
		log.WithError(err).Error("failed to check pair")
		if m.alertPairErrors {
			m.notifier.OnError(err)
		}
	}
}
