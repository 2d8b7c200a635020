// Package indicator computes the technical indicators used for signal
// detection on top of go-talib and gonum.
package indicator

import (
	"errors"
	"fmt"
	"math"

	"github.com/raykavin/pairwatch/pkg/core"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"
)

// Default indicator parameters
const (
	DefaultRSIPeriod   = 14
	DefaultEMAPeriod   = 20
	DefaultBBPeriod    = 20
	DefaultBBDeviation = 2.0
)

var ErrInvalidPrice = errors.New("invalid price in series")

// Engine computes an indicator snapshot from a candle window.
// The zero value is not usable, use NewEngine or fill every field.
type Engine struct {
	RSIPeriod   int
	EMAPeriod   int
	BBPeriod    int
	BBDeviation float64
}

// NewEngine returns an engine with the default parameters
func NewEngine() Engine {
	return Engine{
		RSIPeriod:   DefaultRSIPeriod,
		EMAPeriod:   DefaultEMAPeriod,
		BBPeriod:    DefaultBBPeriod,
		BBDeviation: DefaultBBDeviation,
	}
}

// Validate checks the engine parameters
func (e Engine) Validate() error {
	if e.RSIPeriod < 2 {
		return fmt.Errorf("rsi period must be at least 2, got %d", e.RSIPeriod)
	}
	if e.EMAPeriod < 1 {
		return fmt.Errorf("ema period must be positive, got %d", e.EMAPeriod)
	}
	if e.BBPeriod < 2 {
		return fmt.Errorf("bollinger period must be at least 2, got %d", e.BBPeriod)
	}
	if e.BBDeviation <= 0 {
		return fmt.Errorf("bollinger deviation must be positive, got %g", e.BBDeviation)
	}
	return nil
}

// MinCandles returns the smallest window every indicator can be computed on
func (e Engine) MinCandles() int {
	return max(e.RSIPeriod+1, e.EMAPeriod, e.BBPeriod)
}

// Compute returns the latest indicator values over the closing prices of
// candles, which must be ordered oldest first.
func (e Engine) Compute(candles []core.Candle) (core.Snapshot, error) {
	if err := e.Validate(); err != nil {
		return core.Snapshot{}, err
	}

	if len(candles) < e.MinCandles() {
		return core.Snapshot{}, fmt.Errorf("%w: got %d candles, need %d",
			core.ErrInsufficientData, len(candles), e.MinCandles())
	}

	closes := core.Closes(candles)
	if lo.SomeBy(closes, func(v float64) bool { return math.IsNaN(v) || math.IsInf(v, 0) || v < 0 }) {
		return core.Snapshot{}, ErrInvalidPrice
	}

	// talib compares against absolute epsilons, so work on prices relative
	// to the last close and scale the results back
	scale := closes.Last(0)
	if scale == 0 {
		scale = 1
	}
	relative := lo.Map(closes, func(v float64, _ int) float64 { return v / scale })

	ema := core.Series[float64](EMA(relative, e.EMAPeriod))
	middle, deviation := stat.PopMeanStdDev(relative[len(relative)-e.BBPeriod:], nil)

	last := candles[len(candles)-1]
	return core.Snapshot{
		Time:      last.Time,
		Price:     closes.Last(0),
		RSI:       e.rsi(relative),
		EMA:       ema.Last(0) * scale,
		EMAPeriod: e.EMAPeriod,
		UpperBand: (middle + e.BBDeviation*deviation) * scale,
		MidBand:   middle * scale,
		LowerBand: (middle - e.BBDeviation*deviation) * scale,
	}, nil
}

// rsi is the Wilder RSI of closes. A window without a single loss is 100,
// a flat one included.
func (e Engine) rsi(closes []float64) float64 {
	noLoss := true
	for i := 1; i < len(closes); i++ {
		if closes[i] < closes[i-1] {
			noLoss = false
			break
		}
	}
	if noLoss {
		return 100
	}

	return core.Series[float64](RSI(closes, e.RSIPeriod)).Last(0)
}
