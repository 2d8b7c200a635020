package core

import "time"

// Candle represents one OHLCV observation of a trading pair
type Candle struct {
	Pair     string
	Time     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
	Complete bool
}

// Closes extracts the closing prices of the candles, preserving their order
func Closes(candles []Candle) Series[float64] {
	closes := make(Series[float64], len(candles))
	for i, candle := range candles {
		closes[i] = candle.Close
	}
	return closes
}
