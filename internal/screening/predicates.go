package screening

import (
	"strings"

	"github.com/aristath/stockhunter/internal/broker"
	"github.com/aristath/stockhunter/internal/domain"
	"github.com/aristath/stockhunter/pkg/indicators"
)

// usETFExclusionTickers is the additional pattern list spec.md §4.H step 3
// calls for on US identifiers, independent of whatever MarketCapability
// already knows.
var usETFExclusionTickers = map[string]bool{
	"QQQ": true, "SPY": true, "DIA": true, "IWM": true,
	"EEM": true, "GLD": true, "SLV": true,
}

// excludedByName applies the name-based prefilter of spec.md §4.H step 3.
func excludedByName(cond domain.ScreeningCondition, inst domain.Instrument, name string, capa broker.MarketCapability) bool {
	if cond.ExcludeETF && (capa.LooksLikeETF(name) || (!inst.Market.IsKorean() && usETFExclusionTickers[strings.ToUpper(inst.ID)])) {
		return true
	}
	if cond.ExcludeETN && capa.LooksLikeETN(name) {
		return true
	}
	if cond.ExcludeManagement && capa.LooksLikeManagementCompany(name) {
		return true
	}
	return false
}

// maGatePasses evaluates an MAGate against price and an indicator value
// that may be absent. A gate pointing at an absent indicator excludes the
// instrument (spec.md §4.H step 5).
func maGatePasses(gate domain.MAGate, price, ma float64, maOK bool) bool {
	if !gate.Enabled {
		return true
	}
	if !maOK {
		return false
	}
	ratio := indicators.PercentOfMA(price, ma)
	return ratio >= float64(gate.Min) && ratio <= float64(gate.Max)
}

// bollingerGatePasses evaluates the Bollinger gate's position and break
// conditions, per spec.md §4.H step 8.
func bollingerGatePasses(gate domain.BollingerGate, price float64, bands indicators.Bollinger) bool {
	if !gate.Enabled {
		return true
	}
	pos := indicators.BandPositionOf(price, bands)

	switch gate.Position {
	case domain.BollingerUpper:
		if pos != indicators.BandUpper {
			return false
		}
	case domain.BollingerMiddle:
		if pos != indicators.BandMiddle {
			return false
		}
	case domain.BollingerLower:
		if pos != indicators.BandLower {
			return false
		}
	case domain.BollingerAny, "":
		// any position passes
	}

	if gate.UpperBreak && price < bands.Upper {
		return false
	}
	if gate.LowerBreak && price > bands.Lower {
		return false
	}
	return true
}

// volumeGatePasses requires current volume to be at least Multiple times
// the average volume.
func volumeGatePasses(gate domain.VolumeGate, currentVolume, avgVolume float64) bool {
	if !gate.Enabled {
		return true
	}
	if avgVolume == 0 {
		return false
	}
	return currentVolume/avgVolume >= gate.Multiple
}

// priceChangeGatePasses bounds the day-over-day percentage change.
func priceChangeGatePasses(gate domain.PriceChangeGate, changePct float64) bool {
	if !gate.Enabled {
		return true
	}
	return changePct >= gate.Min && changePct <= gate.Max
}

// marketCapGatePasses bounds market capitalisation; a nil value with the
// gate enabled excludes conservatively.
func marketCapGatePasses(gate domain.MarketCapGate, marketCap *float64) bool {
	if !gate.Enabled {
		return true
	}
	if marketCap == nil {
		return false
	}
	v := int64(*marketCap)
	return v >= gate.Min && v <= gate.Max
}

// ratioGatePasses bounds a nullable fundamental ratio (PER, PBR); a nil
// value with the gate enabled excludes conservatively.
func ratioGatePasses(gate domain.RatioGate, value *float64) bool {
	if !gate.Enabled {
		return true
	}
	if value == nil {
		return false
	}
	return *value >= gate.Min && *value <= gate.Max
}

// fundamentalGateEnabled reports whether any gate needing a current_quote
// call is enabled, so the engine fetches fundamentals at most once per
// instrument (spec.md §4.H step 11).
func fundamentalGateEnabled(cond domain.ScreeningCondition) bool {
	return cond.MarketCap.Enabled || cond.PER.Enabled || cond.PBR.Enabled
}
