package screening

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stockhunter/internal/domain"
)

type memPrices struct{ byRef map[string]domain.Bars }

func (m *memPrices) Bars(ref string, limit int) (domain.Bars, error) {
	bars := m.byRef[ref]
	if len(bars) > limit {
		bars = bars[:limit]
	}
	return bars, nil
}

type memNames struct{ names map[string]string }

func (m *memNames) NameOf(code string) (string, bool, error) {
	n, ok := m.names[code]
	return n, ok, nil
}

func descendingCloses(n int, start float64, step float64) domain.Bars {
	bars := make(domain.Bars, n)
	for i := 0; i < n; i++ {
		bars[i] = domain.DailyBar{
			TradeDate: "2026-01-01",
			Close:     start - float64(i)*step,
			High:      start - float64(i)*step + 1,
			Low:       start - float64(i)*step - 1,
			Open:      start - float64(i)*step,
			Volume:    1000,
		}
	}
	return bars
}

func TestScreenExcludesEmptyBars(t *testing.T) {
	prices := &memPrices{byRef: map[string]domain.Bars{}}
	names := &memNames{names: map[string]string{}}
	e := New(prices, names, nil, zerolog.Nop())

	universe := []domain.Instrument{{ID: "005930", Market: domain.MarketKOSPI}}
	result, err := e.Screen(context.Background(), "kr", universe, domain.ScreeningCondition{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalScanned)
	assert.Equal(t, 0, result.MatchedCount)
}

func TestScreenMA112GateExcludesAbsentIndicator(t *testing.T) {
	prices := &memPrices{byRef: map[string]domain.Bars{
		"KOSPI:005930": descendingCloses(30, 110, 0.2),
	}}
	names := &memNames{names: map[string]string{"005930": "Samsung Electronics"}}
	e := New(prices, names, nil, zerolog.Nop())

	cond := domain.ScreeningCondition{MA112: domain.MAGate{Enabled: true, Min: 95, Max: 105}}
	universe := []domain.Instrument{{ID: "005930", Market: domain.MarketKOSPI}}
	result, err := e.Screen(context.Background(), "kr", universe, cond)
	require.NoError(t, err)
	assert.Equal(t, 0, result.MatchedCount)
}

func TestScreenBollingerUpperGateExcludesLowerBandPrice(t *testing.T) {
	bars := make(domain.Bars, 20)
	for i := range bars {
		bars[i] = domain.DailyBar{TradeDate: "2026-01-01", Close: 100, High: 101, Low: 99, Volume: 1000}
	}
	bars[0].Close = 95 // current price, lowest of the window
	prices := &memPrices{byRef: map[string]domain.Bars{"KOSPI:005930": bars}}
	names := &memNames{names: map[string]string{"005930": "Samsung Electronics"}}
	e := New(prices, names, nil, zerolog.Nop())

	cond := domain.ScreeningCondition{Bollinger: domain.BollingerGate{
		Enabled: true, Period: 20, Multiplier: 2, Position: domain.BollingerUpper,
	}}
	universe := []domain.Instrument{{ID: "005930", Market: domain.MarketKOSPI}}
	result, err := e.Screen(context.Background(), "kr", universe, cond)
	require.NoError(t, err)
	assert.Equal(t, 0, result.MatchedCount, "position=upper should exclude a lower-band price")
}

func TestScreenNoGatesPassesEverything(t *testing.T) {
	prices := &memPrices{byRef: map[string]domain.Bars{
		"KOSPI:005930": descendingCloses(5, 110, 2),
	}}
	names := &memNames{names: map[string]string{}}
	e := New(prices, names, nil, zerolog.Nop())

	universe := []domain.Instrument{{ID: "005930", Market: domain.MarketKOSPI}}
	result, err := e.Screen(context.Background(), "kr", universe, domain.ScreeningCondition{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.MatchedCount)
	assert.Equal(t, "005930", result.Matches[0].Instrument.ID)
}

func TestFilterByCodes(t *testing.T) {
	universe := []domain.Instrument{{ID: "A"}, {ID: "B"}, {ID: "C"}}
	out := filterByCodes(universe, []string{"B"})
	require.Len(t, out, 1)
	assert.Equal(t, "B", out[0].ID)
}
