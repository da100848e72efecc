package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMA(t *testing.T) {
	prices := []float64{5, 4, 3, 2, 1}
	v, ok := SMA(3, prices)
	require.True(t, ok)
	assert.InDelta(t, 4.0, v, 1e-9)

	_, ok = SMA(6, prices)
	assert.False(t, ok)
}

func TestEMAFlatSeriesEqualsConstant(t *testing.T) {
	// Flat series: EMA of a constant series equals that constant.
	prices := make([]float64, 10)
	for i := range prices {
		prices[i] = 42
	}
	v, ok := EMA(5, prices)
	require.True(t, ok)
	assert.InDelta(t, 42.0, v, 1e-9)
}

func TestEMAShortInput(t *testing.T) {
	_, ok := EMA(5, []float64{1, 2})
	assert.False(t, ok)
}

func TestBollingerBandsFlat(t *testing.T) {
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = 100
	}
	b, ok := BollingerBands(20, 2, prices)
	require.True(t, ok)
	assert.InDelta(t, 100.0, b.Mid, 1e-9)
	assert.InDelta(t, 0.0, b.Stddev, 1e-9)
	assert.Equal(t, BandMiddle, BandPositionOf(100, b))
}

func TestBandPositionBoundaries(t *testing.T) {
	b := Bollinger{Mid: 100, Upper: 110, Lower: 90}
	assert.Equal(t, BandUpper, BandPositionOf(110, b))
	assert.Equal(t, BandLower, BandPositionOf(90, b))
	assert.Equal(t, BandMiddle, BandPositionOf(100, b))
}

func TestRSI14AllGains(t *testing.T) {
	closes := make([]float64, 15)
	for i := range closes {
		// most-recent-first: closes[0] is the newest and largest value,
		// so walking chronologically (oldest->newest) is monotonically up.
		closes[14-i] = float64(i + 1)
	}
	v, ok := RSI14(closes)
	require.True(t, ok)
	assert.Equal(t, 100.0, v)
}

func TestRSI14ShortInput(t *testing.T) {
	_, ok := RSI14(make([]float64, 10))
	assert.False(t, ok)
}

func TestMACDRequiresBothEMAs(t *testing.T) {
	_, ok := MACD12269(make([]float64, 10))
	assert.False(t, ok)

	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = float64(60 - i)
	}
	m, ok := MACD12269(closes)
	require.True(t, ok)
	assert.InDelta(t, m.Value*0.9, m.Signal, 1e-9)
}

func TestIchimokuRequires52Bars(t *testing.T) {
	_, ok := IchimokuReading(make([]float64, 51), make([]float64, 51), make([]float64, 51))
	assert.False(t, ok)

	highs := make([]float64, 52)
	lows := make([]float64, 52)
	closes := make([]float64, 52)
	for i := range highs {
		highs[i] = float64(200 - i)
		lows[i] = float64(100 - i)
		closes[i] = float64(150 - i)
	}
	ich, ok := IchimokuReading(highs, lows, closes)
	require.True(t, ok)
	assert.Equal(t, closes[0], ich.Chikou)
}

func TestMAAligned(t *testing.T) {
	assert.True(t, MAAligned(5, 4, 3, 2, true, true, true, true))
	assert.False(t, MAAligned(2, 4, 3, 2, true, true, true, true))
	assert.False(t, MAAligned(5, 4, 3, 2, true, false, true, true))
}

func TestPercentOfMA(t *testing.T) {
	assert.InDelta(t, 110.0, PercentOfMA(110, 100), 1e-9)
	assert.Equal(t, 0.0, PercentOfMA(110, 0))
}
