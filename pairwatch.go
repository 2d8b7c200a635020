// Package pairwatch wires the market data client, the indicator engine,
// the signal evaluator and the alert sinks into a running monitor.
package pairwatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/raykavin/pairwatch/internal/config"
	"github.com/raykavin/pairwatch/internal/server"
	"github.com/raykavin/pairwatch/pkg/core"
	"github.com/raykavin/pairwatch/pkg/exchange/binance"
	"github.com/raykavin/pairwatch/pkg/logger"
	"github.com/raykavin/pairwatch/pkg/market"
	"github.com/raykavin/pairwatch/pkg/monitor"
	"github.com/raykavin/pairwatch/pkg/notification"
	"github.com/raykavin/pairwatch/pkg/signal"
	"github.com/raykavin/pairwatch/pkg/storage"
	"github.com/schollz/progressbar/v3"
	"github.com/xhit/go-str2duration/v2"
)

// App is a configured pair monitor
type App struct {
	config *config.Config
	log    logger.Logger
	level  *logger.Level

	feeder   core.Feeder
	notifier core.Notifier
	store    storage.Store
	telegram *notification.Telegram

	market     *market.Client
	monitor    *monitor.Monitor
	supervisor *monitor.Supervisor
	server     *server.Server

	marketOptions []market.Option
	ownsStore     bool
}

// New builds every component described by cfg. Options replace the
// defaults built from the configuration.
func New(_ context.Context, cfg *config.Config, options ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &App{config: cfg}

	for _, option := range options {
		option(app)
	}

	if err := app.initializeLogger(); err != nil {
		return nil, err
	}

	if err := app.initializeFeeder(); err != nil {
		return nil, err
	}

	if err := app.initializeStorage(); err != nil {
		return nil, err
	}

	if err := app.initializeNotifications(); err != nil {
		app.Close()
		return nil, err
	}

	app.market = app.newMarketClient(app.notifier)
	app.monitor = app.newMonitor(app.market, app.store, app.notifier)
	app.supervisor = monitor.NewSupervisor(app.monitor, cfg.Pairs, app.notifier, app.log, monitor.Schedule{
		PollInterval:    cfg.Schedule.PollInterval,
		ErrorBackoff:    cfg.Schedule.ErrorBackoff,
		MaxErrorBackoff: cfg.Schedule.MaxErrorBackoff,
	})

	if cfg.Server.Enabled {
		app.server = server.New(cfg.Server.Address, app.store, app.log)
	}

	return app, nil
}

func (a *App) initializeLogger() error {
	if a.log == nil {
		log, err := NewLogger(a.config.Log)
		if err != nil {
			return err
		}
		a.log = log
	}

	if a.level != nil {
		a.log.SetLevel(*a.level)
	}
	return nil
}

func (a *App) initializeFeeder() error {
	if a.feeder != nil {
		return nil
	}

	if a.config.Exchange.Name != "binance" {
		return fmt.Errorf("unsupported exchange: %s", a.config.Exchange.Name)
	}

	feeder, err := binance.NewExchange(a.log, binance.Config{
		Type:       binance.MarketType(a.config.Exchange.Market),
		APIKey:     a.config.Exchange.APIKey,
		APISecret:  a.config.Exchange.APISecret,
		UseTestnet: a.config.Exchange.Testnet,
		BaseURL:    a.config.Exchange.BaseURL,
	})
	if err != nil {
		return err
	}

	a.feeder = feeder
	return nil
}

// initializeStorage opens the configured store unless one was injected
func (a *App) initializeStorage() error {
	if a.store != nil {
		return nil
	}

	store, err := storage.New(a.config.Storage.Driver, a.config.Storage.Path)
	if err != nil {
		return err
	}

	a.log.Infof("[SETUP] Keeping signal states in %s storage", a.config.Storage.Driver)
	a.store = store
	a.ownsStore = true
	return nil
}

func (a *App) initializeNotifications() error {
	if a.notifier != nil {
		return nil
	}

	notifier, telegram, err := buildNotifier(a.config.Alert, a.store, a.log)
	if err != nil {
		return err
	}

	a.notifier = notifier
	a.telegram = telegram
	return nil
}

func (a *App) newMarketClient(notifier core.Notifier) *market.Client {
	options := append([]market.Option{
		market.WithExchangeName(a.config.Exchange.Name),
		market.WithTimeframe(a.config.Exchange.Timeframe),
		market.WithCandleLimit(a.config.Exchange.CandleLimit),
		market.WithRequestDelay(a.config.Exchange.RequestDelay),
	}, a.marketOptions...)

	return market.NewClient(a.feeder, notifier, a.log, options...)
}

func (a *App) newMonitor(data monitor.MarketData, store core.StateStore, notifier core.Notifier,
	options ...monitor.Option) *monitor.Monitor {
	evaluator := signal.NewEvaluator(a.config.Thresholds(), signal.WithTimeLayout(a.config.Signal.TimeFormat))

	options = append([]monitor.Option{
		monitor.WithWindow(a.config.Exchange.CandleLimit),
		monitor.WithPairErrorAlerts(a.config.Alert.PairErrors),
	}, options...)

	return monitor.NewMonitor(data, a.config.Engine(), evaluator, store, notifier, a.log, options...)
}

// Logger returns the application logger
func (a *App) Logger() logger.Logger {
	return a.log
}

// Store returns the signal state store
func (a *App) Store() core.StateStore {
	return a.store
}

func (a *App) banner() string {
	window := a.config.Exchange.Timeframe
	if d, err := a.config.TimeframeDuration(); err == nil {
		window = str2duration.String(d * time.Duration(a.config.Exchange.CandleLimit))
	}

	return fmt.Sprintf("pairwatch starting up! 🚀\nExchange: %s %s\nPairs: %d\nTimeframe: %s (%d candles, %s)",
		a.config.Exchange.Name, a.config.Exchange.Market, len(a.config.Pairs),
		a.config.Exchange.Timeframe, a.config.Exchange.CandleLimit, window)
}

// ping checks the exchange when the feeder supports it. A failure is
// only a warning, the supervisor retries on its own.
func (a *App) ping(ctx context.Context) {
	pinger, ok := a.feeder.(interface{ Ping(context.Context) error })
	if !ok {
		return
	}

	if err := pinger.Ping(ctx); err != nil {
		a.log.WithError(err).Warn("exchange is not reachable yet")
	}
}

// Run sends the startup banner, starts the liveness server and monitors
// the pairs until ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	a.log.Infof("[SETUP] Watching %v", a.config.Pairs)

	a.ping(ctx)
	a.notifier.Notify(a.banner())

	if a.telegram != nil {
		a.telegram.Start()
		defer a.telegram.Stop()
	}

	serverDone := make(chan struct{})
	if a.server != nil {
		go func() {
			defer close(serverDone)
			if err := a.server.Run(ctx); err != nil {
				a.log.WithError(err).Error("liveness server stopped")
				a.notifier.OnError(fmt.Errorf("liveness server: %w", err))
			}
		}()
	} else {
		close(serverDone)
	}

	err := a.supervisor.Run(ctx)
	<-serverDone

	return err
}

// Check runs a single cycle with a fresh in-memory state and alerts
// written to the log, then prints a table of the results to w.
func (a *App) Check(ctx context.Context, w io.Writer) (monitor.Report, error) {
	sink := notification.NewLog(a.log)
	store := storage.NewMemoryStorage()

	bar := progressbar.NewOptions(len(a.config.Pairs),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("checking pairs"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	cycle := a.newMonitor(a.newMarketClient(sink), store, sink,
		monitor.WithObserver(func(result monitor.PairResult) {
			bar.Describe(result.Pair)
			_ = bar.Add(1)
		}))

	report, err := cycle.RunCycle(ctx, a.config.Pairs)
	_ = bar.Finish()
	if err != nil {
		return report, err
	}

	if err := renderReport(w, report); err != nil {
		return report, err
	}

	return report, nil
}

// Close releases the store when the app opened it
func (a *App) Close() error {
	if a.ownsStore && a.store != nil {
		return a.store.Close()
	}
	return nil
}
