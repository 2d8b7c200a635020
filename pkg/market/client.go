// Package market validates trading pairs against the exchange catalogue
// and fetches candle windows at a throttled pace.
package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/StudioSol/set"
	"github.com/raykavin/pairwatch/pkg/core"
	"github.com/raykavin/pairwatch/pkg/logger"
	"github.com/samber/lo"
)

// Defaults applied by NewClient
const (
	DefaultTimeframe    = "1h"
	DefaultCandleLimit  = 100
	DefaultRequestDelay = time.Second
)

// MinRequestDelay is the smallest request spacing a configuration may ask for
const MinRequestDelay = time.Second

// Client is the market data side of the monitor
type Client struct {
	feeder   core.Feeder
	notifier core.Notifier
	log      logger.Logger

	exchange  string
	timeframe string
	limit     int
	throttle  *Throttle

	mu     sync.RWMutex
	listed *set.LinkedHashSetString
}

// Option is a function that configures a Client
type Option func(*Client)

// WithTimeframe sets the candle interval, e.g. 1h
func WithTimeframe(timeframe string) Option {
	return func(c *Client) {
		c.timeframe = timeframe
	}
}

// WithCandleLimit sets how many closed candles are fetched per pair
func WithCandleLimit(limit int) Option {
	return func(c *Client) {
		c.limit = limit
	}
}

// WithRequestDelay sets the minimum spacing between exchange requests
func WithRequestDelay(delay time.Duration) Option {
	return func(c *Client) {
		c.throttle = NewThrottle(delay)
	}
}

// WithExchangeName sets the name used in alerts
func WithExchangeName(name string) Option {
	return func(c *Client) {
		c.exchange = name
	}
}

func NewClient(feeder core.Feeder, notifier core.Notifier, log logger.Logger, options ...Option) *Client {
	client := &Client{
		feeder:    feeder,
		notifier:  notifier,
		log:       log,
		exchange:  "binance",
		timeframe: DefaultTimeframe,
		limit:     DefaultCandleLimit,
		throttle:  NewThrottle(DefaultRequestDelay),
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// Timeframe returns the candle interval
func (c *Client) Timeframe() string { return c.timeframe }

// CandleLimit returns the candle window size
func (c *Client) CandleLimit() int { return c.limit }

// ValidatePairs loads the exchange catalogue and returns the requested
// pairs it lists, in the requested order. Unlisted pairs are reported in
// a single warning alert. When the catalogue cannot be loaded the failure
// is alerted and an empty list is returned with an error wrapping
// core.ErrTransport.
func (c *Client) ValidatePairs(ctx context.Context, requested []string) ([]string, error) {
	if err := c.throttle.Wait(ctx); err != nil {
		return []string{}, err
	}

	symbols, err := c.feeder.Symbols(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return []string{}, ctx.Err()
		}
		if !errors.Is(err, core.ErrTransport) {
			err = fmt.Errorf("%w: %w", core.ErrTransport, err)
		}

		c.log.WithError(err).Errorf("failed to load %s markets", c.exchange)
		c.notifier.Notify(fmt.Sprintf("Error loading markets on %s: %v", c.exchange, err))
		return []string{}, fmt.Errorf("load markets: %w", err)
	}

	listed := set.NewLinkedHashSetString()
	for _, symbol := range symbols {
		listed.Add(symbol)
	}

	c.mu.Lock()
	c.listed = listed
	c.mu.Unlock()

	supported := lo.Filter(requested, func(pair string, _ int) bool { return listed.InArray(pair) })
	unsupported := lo.Without(requested, supported...)

	if len(unsupported) > 0 {
		names := strings.Join(unsupported, ", ")
		c.log.Warnf("unsupported pairs on %s: %s", c.exchange, names)
		c.notifier.Notify(fmt.Sprintf("⚠️ Unsupported pairs on %s: %s", c.exchange, names))
	}

	c.log.Debugf("%d of %d pairs listed on %s", len(supported), len(requested), c.exchange)
	return supported, nil
}

func (c *Client) isListed(pair string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	// nothing loaded yet, let the exchange decide
	if c.listed == nil {
		return true
	}
	return c.listed.InArray(pair)
}

// FetchCandles returns the last closed candles of pair, oldest first.
// Failures are logged and returned as errors wrapping
// core.ErrUnsupportedPair, core.ErrNoData or core.ErrTransport. Nothing is
// retried.
func (c *Client) FetchCandles(ctx context.Context, pair string) ([]core.Candle, error) {
	log := c.log.WithField("pair", pair)

	if !c.isListed(pair) {
		log.Warnf("pair not found on %s", c.exchange)
		return nil, fmt.Errorf("%w: %s not listed on %s", core.ErrUnsupportedPair, pair, c.exchange)
	}

	if err := c.throttle.Wait(ctx); err != nil {
		return nil, err
	}

	candles, err := c.feeder.CandlesByLimit(ctx, pair, c.timeframe, c.limit)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(err, core.ErrUnsupportedPair):
		log.WithError(err).Warnf("pair rejected by %s", c.exchange)
		return nil, err
	case errors.Is(err, core.ErrTransport):
		log.WithError(err).Error("failed to fetch candles")
		return nil, err
	default:
		log.WithError(err).Error("failed to fetch candles")
		return nil, fmt.Errorf("%w: %w", core.ErrTransport, err)
	}

	if len(candles) == 0 {
		log.Warn("no data received")
		return nil, fmt.Errorf("%w: %s %s", core.ErrNoData, pair, c.timeframe)
	}

	return candles, nil
}
