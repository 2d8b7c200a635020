// Package binance implements core.Feeder on top of the Binance REST API.
package binance

import (
	"fmt"

	"github.com/raykavin/pairwatch/pkg/core"
	"github.com/raykavin/pairwatch/pkg/logger"
)

// MarketType represents the type of market
type MarketType string

const (
	// MarketTypeSpot represents the spot market
	MarketTypeSpot MarketType = "spot"
)

// Config represents the configuration of a Binance market data client
type Config struct {
	// Market type, only spot is supported
	Type MarketType

	// API credentials, optional for market data
	APIKey    string
	APISecret string

	// Use testnet
	UseTestnet bool

	// Custom REST endpoint
	BaseURL string
}

// NewExchange creates a new market data client based on the provided configuration
func NewExchange(log logger.Logger, config Config) (core.Feeder, error) {
	switch config.Type {
	case MarketTypeSpot, "":
		return newSpotExchange(log, config), nil
	default:
		return nil, fmt.Errorf("unsupported market type: %s", config.Type)
	}
}

func newSpotExchange(log logger.Logger, config Config) *Spot {
	options := []SpotOption{}

	if config.APIKey != "" && config.APISecret != "" {
		options = append(options, WithCredentials(config.APIKey, config.APISecret))
	}

	if config.UseTestnet {
		options = append(options, WithTestNet())
	}

	if config.BaseURL != "" {
		options = append(options, WithBaseURL(config.BaseURL))
	}

	log.Infof("[SETUP] Using Binance %s market data", MarketTypeSpot)
	return NewSpot(log, options...)
}
