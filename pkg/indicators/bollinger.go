package indicators

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// BollingerBands computes the mid/upper/lower bands over the first p
// entries of prices using the population standard deviation (not the
// sample stddev gonum defaults to). Returns ok=false if prices is shorter
// than p.
func BollingerBands(p int, k float64, prices []float64) (Bollinger, bool) {
	if p <= 0 || len(prices) < p {
		return Bollinger{}, false
	}
	window := prices[:p]
	mid := stat.Mean(window, nil)
	sd := populationStddev(window, mid)
	return Bollinger{
		Mid:    mid,
		Stddev: sd,
		Upper:  mid + k*sd,
		Lower:  mid - k*sd,
	}, true
}

func populationStddev(xs []float64, mean float64) float64 {
	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)))
}

// BandPositionOf classifies price against a Bollinger reading.
func BandPositionOf(price float64, b Bollinger) BandPosition {
	switch {
	case price >= b.Upper:
		return BandUpper
	case price <= b.Lower:
		return BandLower
	default:
		return BandMiddle
	}
}
