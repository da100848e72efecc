// Package indicators computes technical indicators over most-recent-first
// price series. Every function is pure: given the same input it always
// returns the same output, and an input shorter than the required period
// yields the zero value plus ok=false rather than a panic or error.
package indicators

// BandPosition classifies a price against a Bollinger band.
type BandPosition string

const (
	BandUpper  BandPosition = "UPPER"
	BandMiddle BandPosition = "MIDDLE"
	BandLower  BandPosition = "LOWER"
)

// Bollinger is a single Bollinger Bands reading.
type Bollinger struct {
	Mid    float64
	Stddev float64
	Upper  float64
	Lower  float64
}

// MACD is a single MACD reading with the spec's approximated signal line.
type MACD struct {
	Value  float64
	Signal float64
}

// Ichimoku is a single Ichimoku Kinko Hyo reading (the five lines this
// screener needs; no future-shifted cloud projection).
type Ichimoku struct {
	Tenkan float64
	Kijun  float64
	SpanA  float64
	SpanB  float64
	Chikou float64
}
