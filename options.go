package pairwatch

import (
	"github.com/raykavin/pairwatch/pkg/core"
	"github.com/raykavin/pairwatch/pkg/logger"
	"github.com/raykavin/pairwatch/pkg/market"
	"github.com/raykavin/pairwatch/pkg/storage"
)

// Option customizes an App before its components are built
type Option func(*App)

// WithFeeder sets the market data source, by default a Binance spot client
func WithFeeder(feeder core.Feeder) Option {
	return func(app *App) {
		app.feeder = feeder
	}
}

// WithNotifier replaces the notifier built from the alert configuration
func WithNotifier(notifier core.Notifier) Option {
	return func(app *App) {
		app.notifier = notifier
	}
}

// WithStorage sets the signal state store, by default the configured driver
func WithStorage(store storage.Store) Option {
	return func(app *App) {
		app.store = store
	}
}

// WithLogger sets the logger, by default the one described by the log configuration
func WithLogger(log logger.Logger) Option {
	return func(app *App) {
		app.log = log
	}
}

// WithLogLevel sets the log level. eg: logger.DebugLevel, logger.InfoLevel, logger.WarnLevel
func WithLogLevel(level logger.Level) Option {
	return func(app *App) {
		app.level = &level
	}
}

// WithMarketOptions appends options to the market data client built from
// the exchange configuration
func WithMarketOptions(options ...market.Option) Option {
	return func(app *App) {
		app.marketOptions = append(app.marketOptions, options...)
	}
}
