package indicators

// EMA seeds on the arithmetic mean of the oldest p entries available, then
// walks forward through up to 2p entries total with smoothing factor
// 2/(p+1), returning the most recent value. This is the spec's specific
// approximation, not the canonical all-history EMA: it deliberately only
// ever looks at a 2p window. Returns ok=false if prices is shorter than p.
func EMA(p int, prices []float64) (float64, bool) {
	if p <= 0 || len(prices) < p {
		return 0, false
	}
	window := 2 * p
	if window > len(prices) {
		window = len(prices)
	}

	// prices is most-recent-first; walk chronologically, oldest to newest.
	chrono := make([]float64, window)
	for i, v := range prices[:window] {
		chrono[window-1-i] = v
	}

	var seed float64
	for _, v := range chrono[:p] {
		seed += v
	}
	seed /= float64(p)

	alpha := 2.0 / (float64(p) + 1.0)
	ema := seed
	for _, v := range chrono[p:] {
		ema = alpha*v + (1-alpha)*ema
	}
	return ema, true
}
