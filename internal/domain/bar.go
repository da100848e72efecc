package domain

import "time"

// DailyBar is one instrument's OHLCV for one trade date. Identity is
// (InstrumentRef, TradeDate); upserts overwrite rather than duplicate.
type DailyBar struct {
	InstrumentRef string
	TradeDate     string // YYYY-MM-DD
	Open          float64
	High          float64
	Low           float64
	Close         float64
	Volume        uint64
	InsertedAt    time.Time
	UpdatedAt     time.Time
}

// Bars is a most-recent-first sequence of bars for a single instrument.
type Bars []DailyBar

// Closes extracts the close prices, preserving order.
func (b Bars) Closes() []float64 {
	out := make([]float64, len(b))
	for i, bar := range b {
		out[i] = bar.Close
	}
	return out
}

// Highs extracts the high prices, preserving order.
func (b Bars) Highs() []float64 {
	out := make([]float64, len(b))
	for i, bar := range b {
		out[i] = bar.High
	}
	return out
}

// Lows extracts the low prices, preserving order.
func (b Bars) Lows() []float64 {
	out := make([]float64, len(b))
	for i, bar := range b {
		out[i] = bar.Low
	}
	return out
}

// Volumes extracts the volumes, preserving order.
func (b Bars) Volumes() []float64 {
	out := make([]float64, len(b))
	for i, bar := range b {
		out[i] = float64(bar.Volume)
	}
	return out
}
