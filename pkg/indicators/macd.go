package indicators

// MACD12269 computes MACD(12,26,9) with the spec's approximated signal
// line: signal = 0.9 * macd, rather than a canonical 9-period EMA of the
// MACD series. Returns ok=false unless both EMA12 and EMA26 are available.
func MACD12269(closes []float64) (MACD, bool) {
	ema12, ok12 := EMA(12, closes)
	ema26, ok26 := EMA(26, closes)
	if !ok12 || !ok26 {
		return MACD{}, false
	}
	value := ema12 - ema26
	return MACD{Value: value, Signal: value * 0.9}, true
}
