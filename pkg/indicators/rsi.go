package indicators

import "github.com/markcheno/go-talib"

// RSI14 computes the classical Wilder RSI over the first 14 diffs of
// closes (most-recent-first), i.e. the 15 most recent closes. Returns
// ok=false if fewer than 15 closes are available. If avg_loss is zero the
// result is 100, matching Wilder's definition at the boundary.
func RSI14(closes []float64) (float64, bool) {
	const period = 14
	if len(closes) < period+1 {
		return 0, false
	}

	window := closes[:period+1]
	chrono := make([]float64, len(window))
	for i, v := range window {
		chrono[len(window)-1-i] = v
	}

	out := talib.Rsi(chrono, period)
	last := out[len(out)-1]
	if last == 0 {
		// talib reports 0 both for an all-loss window and, through its
		// zero-denominator guard, for a flat window; only the flat window
		// has a zero avg_loss, which is treated as RSI 100.
		var lossSum float64
		for i := 1; i < len(chrono); i++ {
			if d := chrono[i] - chrono[i-1]; d < 0 {
				lossSum += -d
			}
		}
		if lossSum == 0 {
			return 100, true
		}
	}
	return last, true
}
