package signal

import (
	"errors"
	"testing"
	"time"

	"github.com/raykavin/pairwatch/pkg/core"
	"github.com/raykavin/pairwatch/pkg/indicator"
	"github.com/raykavin/pairwatch/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 9, 14, 0, 0, 0, time.UTC)

func newTestEvaluator() *Evaluator {
	return NewEvaluator(DefaultThresholds(), WithClock(func() time.Time { return fixedNow }))
}

func oversold() core.Snapshot {
	return core.Snapshot{Price: 95, RSI: 25, EMA: 101.234, EMAPeriod: 20, LowerBand: 100, UpperBand: 120}
}

func overbought() core.Snapshot {
	return core.Snapshot{Price: 105, RSI: 75, EMA: 98.5, EMAPeriod: 20, LowerBand: 80, UpperBand: 100}
}

func TestEvaluator_Evaluate(t *testing.T) {
	evaluator := newTestEvaluator()

	t.Run("buy", func(t *testing.T) {
		state, alert := evaluator.Evaluate("BTC/USDT", oversold(), core.SignalNeutral)
		require.Equal(t, core.SignalBuy, state)
		require.NotNil(t, alert)
		assert.Equal(t, core.SignalBuy, alert.Direction)
		assert.InDelta(t, 92.15, alert.StopLoss, 1e-9)
		assert.InDelta(t, 99.75, alert.Target, 1e-9)
	})

	t.Run("repeated buy", func(t *testing.T) {
		state, alert := evaluator.Evaluate("BTC/USDT", oversold(), core.SignalBuy)
		require.Equal(t, core.SignalBuy, state)
		require.Nil(t, alert)
	})

	t.Run("sell", func(t *testing.T) {
		state, alert := evaluator.Evaluate("ETH/USDT", overbought(), core.SignalNeutral)
		require.Equal(t, core.SignalSell, state)
		require.NotNil(t, alert)
		assert.InDelta(t, 108.15, alert.StopLoss, 1e-9)
		assert.InDelta(t, 99.75, alert.Target, 1e-9)
	})

	t.Run("sell after buy", func(t *testing.T) {
		state, alert := evaluator.Evaluate("ETH/USDT", overbought(), core.SignalBuy)
		require.Equal(t, core.SignalSell, state)
		require.NotNil(t, alert)
	})

	t.Run("neutral", func(t *testing.T) {
		snap := oversold()
		snap.RSI = 50

		for _, prior := range []core.SignalState{core.SignalNone, core.SignalBuy, core.SignalSell, core.SignalNeutral} {
			state, alert := evaluator.Evaluate("BTC/USDT", snap, prior)
			assert.Equal(t, core.SignalNeutral, state, prior.String())
			assert.Nil(t, alert, prior.String())
		}
	})

	t.Run("rsi alone is not enough", func(t *testing.T) {
		snap := oversold()
		snap.Price = 100 // on the band, not below

		state, alert := evaluator.Evaluate("BTC/USDT", snap, core.SignalNone)
		assert.Equal(t, core.SignalNeutral, state)
		assert.Nil(t, alert)
	})
}

func candles(closes []float64) []core.Candle {
	result := make([]core.Candle, len(closes))
	for i, c := range closes {
		result[i] = core.Candle{Pair: "SHIB/USDT", Time: fixedNow.Add(time.Duration(i-len(closes)) * time.Hour), Close: c}
	}
	return result
}

func TestEvaluator_NoAlertInsideBands(t *testing.T) {
	evaluator := newTestEvaluator()
	engine := indicator.NewEngine()

	t.Run("flat market", func(t *testing.T) {
		for _, price := range []float64{0.1, 0.07, 1.234e-05} {
			closes := make([]float64, 100)
			for i := range closes {
				closes[i] = price
			}

			snap, err := engine.Compute(candles(closes))
			require.NoError(t, err)

			state, alert := evaluator.Evaluate("SHIB/USDT", snap, core.SignalNone)
			assert.Equal(t, core.SignalNeutral, state, "%g", price)
			assert.Nil(t, alert, "%g", price)
		}
	})

	t.Run("low priced downtrend inside the band", func(t *testing.T) {
		closes := make([]float64, 100)
		for i := range closes {
			closes[i] = 1.30e-5 - float64(i)*3e-9 + float64(i%3)*2e-9
		}

		snap, err := engine.Compute(candles(closes))
		require.NoError(t, err)
		require.Less(t, snap.RSI, 30.0)

		state, alert := evaluator.Evaluate("SHIB/USDT", snap, core.SignalNone)
		assert.Equal(t, core.SignalNeutral, state)
		assert.Nil(t, alert)
	})
}

func TestAlert_String(t *testing.T) {
	_, alert := newTestEvaluator().Evaluate("BTC/USDT", oversold(), core.SignalNone)
	require.NotNil(t, alert)

	expected := "[2024-03-09 14:00:00]\n" +
		"Pair: BTC/USDT\n" +
		"Price: 95.00\n" +
		"RSI: 25.00\n" +
		"EMA20: 101.23\n" +
		"\n" +
		"🚀 BUY SIGNAL\n" +
		"SL: 92.15 | TP: 99.75"
	assert.Equal(t, expected, alert.String())

	_, alert = newTestEvaluator().Evaluate("ETH/USDT", overbought(), core.SignalNone)
	require.NotNil(t, alert)
	assert.Contains(t, alert.String(), "🔻 SELL SIGNAL\nSL: 108.15 | TP: 99.75")
}

func TestEvaluator_Message(t *testing.T) {
	evaluator := NewEvaluator(DefaultThresholds(),
		WithClock(func() time.Time { return fixedNow }),
		WithTimeLayout(time.RFC3339))

	msg := evaluator.Message("BTC/USDT", overbought(), nil)
	assert.Equal(t, "[2024-03-09T14:00:00Z]\nPair: BTC/USDT\nPrice: 105.00\nRSI: 75.00\nEMA20: 98.50", msg)
}

func TestEvaluator_Apply(t *testing.T) {
	evaluator := newTestEvaluator()
	store := storage.NewMemoryStorage()

	state, alert, err := evaluator.Apply(store, "BTC/USDT", oversold())
	require.NoError(t, err)
	require.Equal(t, core.SignalBuy, state)
	require.NotNil(t, alert)

	state, alert, err = evaluator.Apply(store, "BTC/USDT", oversold())
	require.NoError(t, err)
	require.Equal(t, core.SignalBuy, state)
	require.Nil(t, alert)

	neutral := oversold()
	neutral.RSI = 50
	state, alert, err = evaluator.Apply(store, "BTC/USDT", neutral)
	require.NoError(t, err)
	require.Equal(t, core.SignalNeutral, state)
	require.Nil(t, alert)

	// condition returns after clearing, so it alerts again
	_, alert, err = evaluator.Apply(store, "BTC/USDT", oversold())
	require.NoError(t, err)
	require.NotNil(t, alert)

	recorded, err := store.State("BTC/USDT")
	require.NoError(t, err)
	require.Equal(t, core.SignalBuy, recorded)
}

type failingStore struct {
	core.StateStore
	err error
}

func (f failingStore) State(string) (core.SignalState, error) { return core.SignalNone, f.err }

func TestEvaluator_ApplyStoreError(t *testing.T) {
	boom := errors.New("boom")

	_, alert, err := newTestEvaluator().Apply(failingStore{err: boom}, "BTC/USDT", oversold())
	require.ErrorIs(t, err, boom)
	require.Nil(t, alert)
}

func TestThresholds_Validate(t *testing.T) {
	require.NoError(t, DefaultThresholds().Validate())

	th := DefaultThresholds()
	th.Oversold = 80
	require.Error(t, th.Validate())

	th = DefaultThresholds()
	th.SellTarget = 0
	require.Error(t, th.Validate())
}
