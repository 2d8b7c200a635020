package monitor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/raykavin/pairwatch/pkg/core"
	"github.com/raykavin/pairwatch/pkg/indicator"
	"github.com/raykavin/pairwatch/pkg/logger/zerolog"
	"github.com/raykavin/pairwatch/pkg/signal"
	"github.com/raykavin/pairwatch/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(text string) { m.Called(text) }
func (m *mockNotifier) OnError(err error)  { m.Called(err) }

type fakeMarket struct {
	listed     []string
	catalogErr error
	candles    map[string][]core.Candle
	errs       map[string]error
	panics     map[string]bool
	fetched    []string
}

func (f *fakeMarket) ValidatePairs(_ context.Context, requested []string) ([]string, error) {
	if f.catalogErr != nil {
		return []string{}, f.catalogErr
	}
	var valid []string
	for _, pair := range requested {
		for _, l := range f.listed {
			if l == pair {
				valid = append(valid, pair)
			}
		}
	}
	return valid, nil
}

func (f *fakeMarket) FetchCandles(_ context.Context, pair string) ([]core.Candle, error) {
	f.fetched = append(f.fetched, pair)
	if f.panics[pair] {
		panic("unexpected kline layout")
	}
	if err := f.errs[pair]; err != nil {
		return nil, err
	}
	return f.candles[pair], nil
}

// series oscillates around 100 and ends on last
func series(pair string, n int, last float64) []core.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]core.Candle, n)
	for i := range candles {
		price := 100.0 + float64(i%2)
		if i == n-1 {
			price = last
		}
		candles[i] = core.Candle{Pair: pair, Time: start.Add(time.Duration(i) * time.Hour), Close: price}
	}
	return candles
}

func newTestMonitor(data MarketData, notifier core.Notifier, options ...Option) (*Monitor, core.StateStore) {
	store := storage.NewMemoryStorage()
	evaluator := signal.NewEvaluator(signal.DefaultThresholds())
	return NewMonitor(data, indicator.NewEngine(), evaluator, store, notifier, zerolog.Nop(), options...), store
}

func isBuy(text string) bool  { return strings.Contains(text, "BUY SIGNAL") }
func isSell(text string) bool { return strings.Contains(text, "SELL SIGNAL") }

func TestMonitor_RunCycle(t *testing.T) {
	data := &fakeMarket{
		listed: []string{"BTC/USDT", "ETH/USDT", "SOL/USDT"},
		candles: map[string][]core.Candle{
			"BTC/USDT": series("BTC/USDT", 100, 80),
			"ETH/USDT": series("ETH/USDT", 100, 120),
			"SOL/USDT": series("SOL/USDT", 100, 100),
		},
	}

	notifier := &mockNotifier{}
	notifier.On("Notify", mock.MatchedBy(func(text string) bool {
		return isBuy(text) && strings.Contains(text, "Pair: BTC/USDT")
	})).Once()
	notifier.On("Notify", mock.MatchedBy(func(text string) bool {
		return isSell(text) && strings.Contains(text, "Pair: ETH/USDT")
	})).Once()

	monitor, store := newTestMonitor(data, notifier)

	report, err := monitor.RunCycle(context.Background(), []string{"BTC/USDT", "MOG/USDT", "ETH/USDT", "SOL/USDT"})
	require.NoError(t, err)
	notifier.AssertExpectations(t)

	assert.NotEmpty(t, report.ID)
	assert.Equal(t, []string{"BTC/USDT", "ETH/USDT", "SOL/USDT"}, report.Validated)
	require.Len(t, report.Results, 3)
	assert.Equal(t, 2, report.Alerts())
	assert.Equal(t, 0, report.Failures())
	assert.Equal(t, "alert", report.Results[0].Status())
	assert.Equal(t, "ok", report.Results[2].Status())

	states, err := store.States()
	require.NoError(t, err)
	assert.Equal(t, map[string]core.SignalState{
		"BTC/USDT": core.SignalBuy,
		"ETH/USDT": core.SignalSell,
		"SOL/USDT": core.SignalNeutral,
	}, states)

	// same conditions on the next cycle do not alert again
	_, err = monitor.RunCycle(context.Background(), []string{"BTC/USDT", "ETH/USDT", "SOL/USDT"})
	require.NoError(t, err)
	notifier.AssertNumberOfCalls(t, "Notify", 2)
}

func TestMonitor_FetchFailureIsolated(t *testing.T) {
	data := &fakeMarket{
		listed: []string{"AAA/USDT", "BBB/USDT"},
		errs:   map[string]error{"AAA/USDT": core.ErrTransport},
		candles: map[string][]core.Candle{
			"BBB/USDT": series("BBB/USDT", 100, 80),
		},
	}

	notifier := &mockNotifier{}
	notifier.On("Notify", mock.MatchedBy(isBuy)).Once()

	monitor, _ := newTestMonitor(data, notifier)

	report, err := monitor.RunCycle(context.Background(), []string{"AAA/USDT", "BBB/USDT"})
	require.NoError(t, err)

	assert.Equal(t, []string{"AAA/USDT", "BBB/USDT"}, data.fetched)
	require.Len(t, report.Results, 2)
	assert.ErrorIs(t, report.Results[0].Err, core.ErrTransport)
	assert.True(t, report.Results[1].Alerted)

	// transport errors are not alerted
	notifier.AssertNotCalled(t, "OnError", mock.Anything)
	notifier.AssertExpectations(t)
}

func TestMonitor_UnexpectedErrors(t *testing.T) {
	newData := func() *fakeMarket {
		return &fakeMarket{
			listed: []string{"AAA/USDT", "BBB/USDT", "CCC/USDT"},
			errs:   map[string]error{"AAA/USDT": errors.New("decoder exploded")},
			panics: map[string]bool{"BBB/USDT": true},
			candles: map[string][]core.Candle{
				"CCC/USDT": series("CCC/USDT", 100, 100),
			},
		}
	}

	t.Run("alerted", func(t *testing.T) {
		notifier := &mockNotifier{}
		notifier.On("OnError", mock.MatchedBy(func(err error) bool {
			var pairErr *core.PairError
			return errors.As(err, &pairErr)
		})).Twice()

		data := newData()
		monitor, store := newTestMonitor(data, notifier)

		report, err := monitor.RunCycle(context.Background(), []string{"AAA/USDT", "BBB/USDT", "CCC/USDT"})
		require.NoError(t, err)
		notifier.AssertExpectations(t)

		require.Len(t, report.Results, 3)
		assert.Equal(t, "error", report.Results[0].Status())
		assert.Contains(t, report.Results[1].Err.Error(), "panic")
		assert.Equal(t, 2, report.Failures())

		state, err := store.State("CCC/USDT")
		require.NoError(t, err)
		assert.Equal(t, core.SignalNeutral, state)
	})

	t.Run("log only", func(t *testing.T) {
		notifier := &mockNotifier{}
		monitor, _ := newTestMonitor(newData(), notifier, WithPairErrorAlerts(false))

		report, err := monitor.RunCycle(context.Background(), []string{"AAA/USDT", "BBB/USDT", "CCC/USDT"})
		require.NoError(t, err)
		assert.Len(t, report.Results, 3)
		notifier.AssertNotCalled(t, "OnError", mock.Anything)
	})
}

func TestMonitor_InsufficientData(t *testing.T) {
	data := &fakeMarket{
		listed:  []string{"NEW/USDT"},
		candles: map[string][]core.Candle{"NEW/USDT": series("NEW/USDT", 42, 80)},
	}
	notifier := &mockNotifier{}

	var observed []PairResult
	monitor, store := newTestMonitor(data, notifier, WithObserver(func(r PairResult) { observed = append(observed, r) }))

	report, err := monitor.RunCycle(context.Background(), []string{"NEW/USDT"})
	require.NoError(t, err)

	require.Len(t, report.Results, 1)
	assert.True(t, report.Results[0].Skipped)
	assert.Equal(t, 42, report.Results[0].Candles)
	assert.ErrorIs(t, report.Results[0].Err, core.ErrInsufficientData)
	assert.Equal(t, report.Results, observed)

	state, err := store.State("NEW/USDT")
	require.NoError(t, err)
	assert.Equal(t, core.SignalNone, state)
	notifier.AssertNotCalled(t, "Notify", mock.Anything)
	notifier.AssertNotCalled(t, "OnError", mock.Anything)
}

func TestMonitor_CatalogueFailure(t *testing.T) {
	data := &fakeMarket{catalogErr: core.ErrTransport}
	monitor, _ := newTestMonitor(data, &mockNotifier{})

	report, err := monitor.RunCycle(context.Background(), []string{"BTC/USDT"})
	require.ErrorIs(t, err, core.ErrTransport)
	assert.Empty(t, report.Results)
	assert.Empty(t, data.fetched)
}

func TestMonitor_Canceled(t *testing.T) {
	data := &fakeMarket{listed: []string{"BTC/USDT"}}
	monitor, _ := newTestMonitor(data, &mockNotifier{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := monitor.RunCycle(ctx, []string{"BTC/USDT"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, data.fetched)
}
