package pairwatch

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/raykavin/pairwatch/internal/config"
	"github.com/raykavin/pairwatch/pkg/core"
	"github.com/raykavin/pairwatch/pkg/logger"
	"github.com/raykavin/pairwatch/pkg/logger/zerolog"
	"github.com/raykavin/pairwatch/pkg/market"
	"github.com/raykavin/pairwatch/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeFeeder struct {
	symbols []string
	closes  map[string]float64
	onFetch func(pair string)
}

func (f *fakeFeeder) Symbols(context.Context) ([]string, error) {
	return f.symbols, nil
}

func (f *fakeFeeder) CandlesByLimit(_ context.Context, pair, _ string, limit int) ([]core.Candle, error) {
	if f.onFetch != nil {
		defer f.onFetch(pair)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]core.Candle, limit)
	for i := range candles {
		price := 100.0 + float64(i%2)
		if i == limit-1 {
			price = f.closes[pair]
		}
		candles[i] = core.Candle{Pair: pair, Time: start.Add(time.Duration(i) * time.Hour), Close: price}
	}
	return candles, nil
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(text string) { m.Called(text) }
func (m *mockNotifier) OnError(err error)  { m.Called(err) }

func contains(s string) any {
	return mock.MatchedBy(func(text string) bool { return strings.Contains(text, s) })
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	chdir(t, t.TempDir())
	t.Setenv("PAIRWATCH_ALERT_DRIVER", "log")
	t.Setenv("PAIRWATCH_SERVER_ENABLED", "false")
	t.Setenv("PAIRWATCH_PAIRS", "BTC/USDT,MOG/USDT,ETH/USDT")

	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func testFeeder() *fakeFeeder {
	return &fakeFeeder{
		symbols: []string{"BTC/USDT", "ETH/USDT", "SOL/USDT"},
		closes:  map[string]float64{"BTC/USDT": 80, "ETH/USDT": 100},
	}
}

func TestApp_Check(t *testing.T) {
	app, err := New(context.Background(), testConfig(t),
		WithFeeder(testFeeder()),
		WithLogger(zerolog.Nop()),
		WithMarketOptions(market.WithRequestDelay(0)),
	)
	require.NoError(t, err)
	defer app.Close()

	var out bytes.Buffer
	report, err := app.Check(context.Background(), &out)
	require.NoError(t, err)

	assert.Equal(t, []string{"BTC/USDT", "ETH/USDT"}, report.Validated)
	assert.Equal(t, 1, report.Alerts())
	assert.Equal(t, 0, report.Failures())

	table := out.String()
	assert.Contains(t, table, "BTC/USDT")
	assert.Contains(t, table, "buy")
	assert.Contains(t, table, "neutral")
	assert.Contains(t, table, "1 not listed")

	// check never touches the long running state
	states, err := app.Store().States()
	require.NoError(t, err)
	assert.Empty(t, states)
}

func TestApp_Run(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feeder := testFeeder()
	feeder.onFetch = func(pair string) {
		if pair == "ETH/USDT" {
			cancel()
		}
	}

	notifier := &mockNotifier{}
	notifier.On("Notify", contains("starting up")).Once()
	notifier.On("Notify", contains("Unsupported pairs on binance: MOG/USDT")).Once()
	notifier.On("Notify", contains("BUY SIGNAL")).Once()

	store := storage.NewMemoryStorage()
	app, err := New(ctx, testConfig(t),
		WithFeeder(feeder),
		WithNotifier(notifier),
		WithStorage(store),
		WithLogger(zerolog.Nop()),
		WithMarketOptions(market.WithRequestDelay(0)),
	)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}

	notifier.AssertExpectations(t)

	states, err := store.States()
	require.NoError(t, err)
	assert.Equal(t, map[string]core.SignalState{
		"BTC/USDT": core.SignalBuy,
		"ETH/USDT": core.SignalNeutral,
	}, states)
}

func TestNew(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Driver = storage.DriverBuntDB

	app, err := New(context.Background(), cfg, WithLogger(zerolog.Nop()), WithLogLevel(logger.WarnLevel))
	require.NoError(t, err)
	require.NoError(t, app.Close())

	assert.Equal(t, logger.WarnLevel, app.Logger().GetLevel())
	assert.IsType(t, &storage.BuntStorage{}, app.Store())

	cfg.Exchange.Name = "mexc"
	_, err = New(context.Background(), cfg, WithLogger(zerolog.Nop()))
	require.Error(t, err)

	_, err = New(context.Background(), nil)
	require.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	for _, driver := range []string{"zerolog", "logrus"} {
		log, err := NewLogger(config.LogConfig{Driver: driver, Level: "warn", TimeFormat: time.RFC3339})
		require.NoError(t, err, driver)
		assert.Equal(t, logger.WarnLevel, log.GetLevel(), driver)
	}

	_, err := NewLogger(config.LogConfig{Driver: "glog", Level: "info"})
	require.Error(t, err)

	_, err = NewLogger(config.LogConfig{Driver: "zerolog", Level: "loud"})
	require.Error(t, err)
}
