// Package screening evaluates a ScreeningCondition against the price
// store's bars for each instrument in a universe, in parallel chunks
// (spec.md §4.H).
package screening

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/stockhunter/internal/broker"
	"github.com/aristath/stockhunter/internal/domain"
	"github.com/aristath/stockhunter/pkg/indicators"
)

const (
	fetchBars  = 280
	chunkSize  = 100
	avgVolumeP = 20
)

// PriceReader is the subset of *store.PriceStore the engine needs.
type PriceReader interface {
	Bars(ref string, limit int) (domain.Bars, error)
}

// NameReader is the subset of *store.MasterCache the engine needs.
type NameReader interface {
	NameOf(code string) (string, bool, error)
}

// Engine runs screening over a universe.
type Engine struct {
	prices       PriceReader
	names        NameReader
	capabilities map[domain.Market]broker.MarketCapability
	log          zerolog.Logger
	now          func() time.Time
}

// New constructs an Engine.
func New(prices PriceReader, names NameReader, capabilities map[domain.Market]broker.MarketCapability, log zerolog.Logger) *Engine {
	return &Engine{
		prices:       prices,
		names:        names,
		capabilities: capabilities,
		log:          log.With().Str("component", "screening.Engine").Logger(),
		now:          time.Now,
	}
}

// Screen evaluates cond against every instrument in universe, chunked in
// groups of 100 evaluated in parallel, sequential within a chunk.
func (e *Engine) Screen(ctx context.Context, universeLabel string, universe []domain.Instrument, cond domain.ScreeningCondition) (domain.ScreeningResult, error) {
	start := e.now()

	if len(cond.TargetCodes) > 0 {
		universe = filterByCodes(universe, cond.TargetCodes)
	}

	chunks := chunk(universe, chunkSize)
	matchesPerChunk := make([][]domain.ScreeningMatch, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range chunks {
		i, c := i, c
		g.Go(func() error {
			matchesPerChunk[i] = e.evaluateChunk(gctx, c, cond)
			return nil
		})
	}
	_ = g.Wait() // per-instrument failures are isolated inside evaluateChunk

	var matches []domain.ScreeningMatch
	for _, m := range matchesPerChunk {
		matches = append(matches, m...)
	}

	return domain.ScreeningResult{
		Matches:       matches,
		TotalScanned:  len(universe),
		MatchedCount:  len(matches),
		ExecutionMs:   e.now().Sub(start).Milliseconds(),
		CapturedAt:    e.now(),
		UniverseLabel: universeLabel,
	}, nil
}

func (e *Engine) evaluateChunk(ctx context.Context, instruments []domain.Instrument, cond domain.ScreeningCondition) []domain.ScreeningMatch {
	var out []domain.ScreeningMatch
	for _, inst := range instruments {
		match, ok, err := e.evaluateOne(ctx, inst, cond)
		if err != nil {
			e.log.Warn().Err(err).Str("instrument", inst.Key()).Msg("screening evaluation failed, skipping")
			continue
		}
		if ok {
			out = append(out, match)
		}
	}
	return out
}

func (e *Engine) evaluateOne(ctx context.Context, inst domain.Instrument, cond domain.ScreeningCondition) (domain.ScreeningMatch, bool, error) {
	bars, err := e.prices.Bars(inst.Key(), fetchBars)
	if err != nil {
		return domain.ScreeningMatch{}, false, err
	}
	if len(bars) == 0 {
		return domain.ScreeningMatch{}, false, nil
	}

	name := inst.Name
	if resolved, ok, err := e.names.NameOf(inst.ID); err == nil && ok {
		name = resolved
	}

	capa, hasCapability := e.capabilities[inst.Market]
	if hasCapability && excludedByName(cond, inst, name, capa) {
		return domain.ScreeningMatch{}, false, nil
	}

	closes := bars.Closes()
	volumes := bars.Volumes()
	currentPrice := closes[0]
	prevPrice := currentPrice
	if len(closes) > 1 {
		prevPrice = closes[1]
	}
	currentVolume := bars[0].Volume

	ma5, ma5OK := indicators.SMA(5, closes)
	ma20, ma20OK := indicators.SMA(20, closes)
	ma60, ma60OK := indicators.SMA(60, closes)
	ma112, ma112OK := indicators.SMA(112, closes)
	ma224, ma224OK := indicators.SMA(224, closes)

	if !maGatePasses(cond.MA60, currentPrice, ma60, ma60OK) {
		return domain.ScreeningMatch{}, false, nil
	}
	if !maGatePasses(cond.MA112, currentPrice, ma112, ma112OK) {
		return domain.ScreeningMatch{}, false, nil
	}
	if !maGatePasses(cond.MA224, currentPrice, ma224, ma224OK) {
		return domain.ScreeningMatch{}, false, nil
	}

	aligned := indicators.MAAligned(ma5, ma20, ma60, ma112, ma5OK, ma20OK, ma60OK, ma112OK)
	if cond.MAAlignment && !aligned {
		return domain.ScreeningMatch{}, false, nil
	}

	var bands indicators.Bollinger
	var bandPosition indicators.BandPosition = indicators.BandMiddle
	if cond.Bollinger.Enabled {
		period := cond.Bollinger.Period
		if period == 0 {
			period = 20
		}
		multiplier := cond.Bollinger.Multiplier
		if multiplier == 0 {
			multiplier = 2.0
		}
		var ok bool
		bands, ok = indicators.BollingerBands(period, multiplier, closes)
		if !ok {
			return domain.ScreeningMatch{}, false, nil
		}
		if !bollingerGatePasses(cond.Bollinger, currentPrice, bands) {
			return domain.ScreeningMatch{}, false, nil
		}
		bandPosition = indicators.BandPositionOf(currentPrice, bands)
	}

	avgVolume, avgVolumeOK := indicators.AvgVolume(avgVolumeP, volumes)
	if !avgVolumeOK {
		avgVolume = 0
	}
	if !volumeGatePasses(cond.Volume, float64(currentVolume), avgVolume) {
		return domain.ScreeningMatch{}, false, nil
	}

	changePct := 0.0
	if prevPrice != 0 {
		changePct = 100 * (currentPrice - prevPrice) / prevPrice
	}
	if !priceChangeGatePasses(cond.PriceChange, changePct) {
		return domain.ScreeningMatch{}, false, nil
	}

	var marketCap, per, pbr *float64
	if fundamentalGateEnabled(cond) {
		if !hasCapability {
			return domain.ScreeningMatch{}, false, nil
		}
		quote, err := capa.Quote(ctx, inst.ID)
		if err != nil {
			e.log.Warn().Err(err).Str("instrument", inst.Key()).Msg("fundamentals fetch failed")
		} else {
			marketCap, per, pbr = quote.MarketCap, quote.PER, quote.PBR
		}
		if !marketCapGatePasses(cond.MarketCap, marketCap) {
			return domain.ScreeningMatch{}, false, nil
		}
		if !ratioGatePasses(cond.PER, per) {
			return domain.ScreeningMatch{}, false, nil
		}
		if !ratioGatePasses(cond.PBR, pbr) {
			return domain.ScreeningMatch{}, false, nil
		}
	}

	match := domain.ScreeningMatch{
		Instrument:   inst,
		Close:        roundN(currentPrice, decimalsFor(inst.Market)),
		ChangePct:    roundN(changePct, 2),
		Volume:       currentVolume,
		AvgVolume:    roundN(avgVolume, 2),
		MA5:          roundN(ma5, 2),
		MA20:         roundN(ma20, 2),
		MA60:         roundN(ma60, 2),
		MA112:        roundN(ma112, 2),
		MA224:        roundN(ma224, 2),
		MAAligned:    aligned,
		BandPosition: string(bandPosition),
		MarketCap:    marketCap,
		PER:          per,
		PBR:          pbr,
	}
	return match, true, nil
}

func decimalsFor(market domain.Market) int {
	if market.IsKorean() {
		return 0
	}
	return 2
}

func roundN(v float64, decimals int) float64 {
	mult := math.Pow(10, float64(decimals))
	return math.Round(v*mult) / mult
}

func filterByCodes(universe []domain.Instrument, codes []string) []domain.Instrument {
	wanted := make(map[string]bool, len(codes))
	for _, c := range codes {
		wanted[c] = true
	}
	var out []domain.Instrument
	for _, inst := range universe {
		if wanted[inst.ID] {
			out = append(out, inst)
		}
	}
	return out
}

func chunk(instruments []domain.Instrument, size int) [][]domain.Instrument {
	var out [][]domain.Instrument
	for i := 0; i < len(instruments); i += size {
		end := i + size
		if end > len(instruments) {
			end = len(instruments)
		}
		out = append(out, instruments[i:end])
	}
	return out
}
