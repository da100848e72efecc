package universe

import (
	"time"

	"github.com/aristath/stockhunter/internal/domain"
)

// MasterCache is the subset of *store.MasterCache this package needs,
// kept as a local interface so this package does not import
// internal/store.
type MasterCache interface {
	ByMarket(market domain.Market) ([]domain.Instrument, error)
}

// MetaSource reads the stock_master_refreshed_at timestamp.
type MetaSource interface {
	GetMeta(key string) (string, bool, error)
}

// Source identifies which precedence tier produced a Resolve result.
type Source string

const (
	SourceDurableStore  Source = "durable_store"
	SourceOperatorFile  Source = "operator_upload"
	SourcePackagedCSV   Source = "packaged_csv"
	SourceHardcoded     Source = "hardcoded_fallback"
)

// DefaultTTL is how long a durable-store snapshot is trusted before a
// fresh upload/CSV/hard-coded resolution is preferred instead.
const DefaultTTL = 7 * 24 * time.Hour

// Resolve implements the four-tier precedence of spec.md §4.E. uploaded is
// nil when no operator upload is available for this call.
func Resolve(market domain.Market, cache MasterCache, meta MetaSource, now time.Time, uploaded []domain.Instrument) ([]domain.Instrument, Source, error) {
	if raw, ok, err := meta.GetMeta(stockMasterRefreshedAtKey); err == nil && ok {
		if refreshedAt, err := time.Parse(time.RFC3339, raw); err == nil && now.Sub(refreshedAt) <= DefaultTTL {
			instruments, err := cache.ByMarket(market)
			if err == nil && len(instruments) > 0 {
				return instruments, SourceDurableStore, nil
			}
		}
	}

	if len(uploaded) > 0 {
		return uploaded, SourceOperatorFile, nil
	}

	if csvInstruments, err := PackagedCSV(market); err == nil && len(csvInstruments) > 0 {
		return csvInstruments, SourcePackagedCSV, nil
	}

	return HardcodedFallback(market), SourceHardcoded, nil
}

// stockMasterRefreshedAtKey mirrors store.MetaStockMasterRefreshedAt; kept
// as a literal here so this package does not import internal/store.
const stockMasterRefreshedAtKey = "stock_master_refreshed_at"
