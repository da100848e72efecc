package indicators

// IchimokuReading computes the five Ichimoku Kinko Hyo lines this screener
// needs from most-recent-first highs/lows/closes. Requires at least 52
// bars; returns ok=false otherwise.
func IchimokuReading(highs, lows, closes []float64) (Ichimoku, bool) {
	const (
		tenkanPeriod = 9
		kijunPeriod  = 26
		senkouPeriod = 52
	)
	if len(highs) < senkouPeriod || len(lows) < senkouPeriod || len(closes) < senkouPeriod {
		return Ichimoku{}, false
	}

	hi9, lo9 := extreme(highs[:tenkanPeriod], lows[:tenkanPeriod])
	hi26, lo26 := extreme(highs[:kijunPeriod], lows[:kijunPeriod])
	hi52, lo52 := extreme(highs[:senkouPeriod], lows[:senkouPeriod])

	tenkan := (hi9 + lo9) / 2
	kijun := (hi26 + lo26) / 2
	spanA := (tenkan + kijun) / 2
	spanB := (hi52 + lo52) / 2

	return Ichimoku{
		Tenkan: tenkan,
		Kijun:  kijun,
		SpanA:  spanA,
		SpanB:  spanB,
		Chikou: closes[0],
	}, true
}

func extreme(highs, lows []float64) (hi, lo float64) {
	hi, lo = highs[0], lows[0]
	for i := 1; i < len(highs); i++ {
		if highs[i] > hi {
			hi = highs[i]
		}
		if lows[i] < lo {
			lo = lows[i]
		}
	}
	return hi, lo
}
