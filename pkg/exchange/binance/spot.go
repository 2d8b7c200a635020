package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/raykavin/pairwatch/pkg/core"
	"github.com/raykavin/pairwatch/pkg/exchange"
	"github.com/raykavin/pairwatch/pkg/logger"
)

// binance answers -1121 for symbols it does not list
const codeInvalidSymbol = -1121

// Spot is a read only client for the Binance spot market data API
type Spot struct {
	client *binance.Client
	log    logger.Logger
	now    func() time.Time

	apiKey     string
	apiSecret  string
	baseURL    string
	testnet    bool
	httpClient *http.Client
}

// SpotOption is a function that configures a Spot client
type SpotOption func(*Spot)

// WithCredentials sets the API credentials for the Spot client
func WithCredentials(key, secret string) SpotOption {
	return func(s *Spot) {
		s.apiKey = key
		s.apiSecret = secret
	}
}

// WithTestNet points the client at the Binance spot testnet
func WithTestNet() SpotOption {
	return func(s *Spot) {
		s.testnet = true
	}
}

// WithBaseURL overrides the REST endpoint, for Binance compatible mirrors
func WithBaseURL(url string) SpotOption {
	return func(s *Spot) {
		s.baseURL = url
	}
}

// WithHTTPClient sets the HTTP client used for every request
func WithHTTPClient(client *http.Client) SpotOption {
	return func(s *Spot) {
		s.httpClient = client
	}
}

// WithClock replaces the clock used to tell closed candles from open ones
func WithClock(now func() time.Time) SpotOption {
	return func(s *Spot) {
		s.now = now
	}
}

// NewSpot creates a new Binance spot market data client. No request is
// made until the first call.
func NewSpot(log logger.Logger, options ...SpotOption) *Spot {
	spot := &Spot{
		log: log,
		now: time.Now,
	}

	for _, option := range options {
		option(spot)
	}

	spot.client = binance.NewClient(spot.apiKey, spot.apiSecret)

	switch {
	case spot.baseURL != "":
		spot.client.BaseURL = spot.baseURL
	case spot.testnet:
		spot.client.BaseURL = binance.BaseAPITestnetURL
	}

	if spot.httpClient != nil {
		spot.client.HTTPClient = spot.httpClient
	}

	return spot
}

// Ping checks that the exchange answers
func (s *Spot) Ping(ctx context.Context) error {
	if err := s.client.NewPingService().Do(ctx); err != nil {
		return fmt.Errorf("%w: binance ping: %w", core.ErrTransport, err)
	}
	return nil
}

// Symbols returns every spot pair listed by the exchange in BASE/QUOTE form
func (s *Spot) Symbols(ctx context.Context) ([]string, error) {
	info, err := s.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: exchange info: %w", core.ErrTransport, err)
	}

	pairs := make([]string, 0, len(info.Symbols))
	for _, symbol := range info.Symbols {
		if symbol.BaseAsset == "" || symbol.QuoteAsset == "" {
			continue
		}
		pairs = append(pairs, exchange.AssetQuote{Asset: symbol.BaseAsset, Quote: symbol.QuoteAsset}.Pair())
	}

	s.log.Debugf("binance lists %d spot symbols", len(pairs))
	return pairs, nil
}

// CandlesByLimit returns up to limit closed candles of the pair, oldest first
func (s *Spot) CandlesByLimit(ctx context.Context, pair, timeframe string, limit int) ([]core.Candle, error) {
	symbol, err := exchange.Symbol(pair)
	if err != nil {
		return nil, err
	}

	data, err := s.client.NewKlinesService().
		Symbol(symbol).
		Interval(timeframe).
		Limit(limit + 1). // +1 to make up for the candle still open
		Do(ctx)
	if err != nil {
		var apiErr *common.APIError
		if errors.As(err, &apiErr) && apiErr.Code == codeInvalidSymbol {
			return nil, fmt.Errorf("%w: %s: %s", core.ErrUnsupportedPair, pair, apiErr.Message)
		}
		return nil, fmt.Errorf("%w: klines %s: %w", core.ErrTransport, symbol, err)
	}

	now := s.now()
	candles := make([]core.Candle, 0, len(data))
	for _, kline := range data {
		// skip the candle of the running period
		if time.UnixMilli(kline.CloseTime).After(now) {
			continue
		}

		candle, err := convertKlineToCandle(pair, kline)
		if err != nil {
			return nil, fmt.Errorf("%w: klines %s: %w", core.ErrTransport, symbol, err)
		}

		candles = append(candles, candle)
	}

	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}

	return candles, nil
}

// convertKlineToCandle converts a Binance kline to a core.Candle
func convertKlineToCandle(pair string, k *binance.Kline) (core.Candle, error) {
	candle := core.Candle{
		Pair:     pair,
		Time:     time.UnixMilli(k.OpenTime),
		Complete: true,
	}

	fields := []struct {
		raw string
		dst *float64
	}{
		{k.Open, &candle.Open},
		{k.High, &candle.High},
		{k.Low, &candle.Low},
		{k.Close, &candle.Close},
		{k.Volume, &candle.Volume},
	}

	for _, field := range fields {
		value, err := strconv.ParseFloat(field.raw, 64)
		if err != nil {
			return core.Candle{}, fmt.Errorf("invalid kline value %q: %w", field.raw, err)
		}
		*field.dst = value
	}

	return candle, nil
}
