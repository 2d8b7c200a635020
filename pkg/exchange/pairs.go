// Package exchange holds helpers shared by the exchange adapters.
package exchange

import (
	"fmt"
	"strings"

	"github.com/raykavin/pairwatch/pkg/core"
)

const pairSeparator = "/"

// AssetQuote is a trading pair split into its base asset and quote asset
type AssetQuote struct {
	Asset string `json:"asset"`
	Quote string `json:"quote"`
}

// Pair returns the BASE/QUOTE form
func (a AssetQuote) Pair() string {
	return a.Asset + pairSeparator + a.Quote
}

// Symbol returns the exchange symbol, e.g. BTCUSDT
func (a AssetQuote) Symbol() string {
	return a.Asset + a.Quote
}

// SplitAssetQuote splits a BASE/QUOTE pair into its components
func SplitAssetQuote(pair string) (AssetQuote, error) {
	asset, quote, found := strings.Cut(pair, pairSeparator)
	asset, quote = strings.TrimSpace(asset), strings.TrimSpace(quote)
	if !found || asset == "" || quote == "" || strings.Contains(quote, pairSeparator) {
		return AssetQuote{}, fmt.Errorf("%w: %q, expected BASE/QUOTE", core.ErrInvalidPair, pair)
	}

	return AssetQuote{
		Asset: strings.ToUpper(asset),
		Quote: strings.ToUpper(quote),
	}, nil
}

// NormalizePair returns the canonical upper case BASE/QUOTE form of pair
func NormalizePair(pair string) (string, error) {
	aq, err := SplitAssetQuote(pair)
	if err != nil {
		return "", err
	}
	return aq.Pair(), nil
}

// Symbol converts a BASE/QUOTE pair to the exchange symbol
func Symbol(pair string) (string, error) {
	aq, err := SplitAssetQuote(pair)
	if err != nil {
		return "", err
	}
	return aq.Symbol(), nil
}
