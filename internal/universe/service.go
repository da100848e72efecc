package universe

import (
	"time"

	"github.com/aristath/stockhunter/internal/domain"
)

// Refresher is the subset of *store.MasterCache Service needs beyond
// MasterCache: the ability to persist a freshly resolved universe.
type Refresher interface {
	MasterCache
	Refresh(market domain.Market, instruments []domain.Instrument) error
}

// MetaStore is the subset of *store.DB Service needs: reading and bumping
// the stock_master_refreshed_at timestamp.
type MetaStore interface {
	MetaSource
	SetMeta(key, value string) error
}

// Service ties Resolve to the durable store, giving callers (the HTTP
// layer's universe lookups, the scheduled refresh job) one entrypoint instead of
// threading cache/meta/now through each call site.
type Service struct {
	cache Refresher
	meta  MetaStore
	now   func() time.Time
}

// NewService constructs a Service. now defaults to time.Now when nil.
func NewService(cache Refresher, meta MetaStore, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{cache: cache, meta: meta, now: now}
}

// Resolve runs the four-tier precedence for market, passing uploaded
// through unchanged.
func (s *Service) Resolve(market domain.Market, uploaded []domain.Instrument) ([]domain.Instrument, Source, error) {
	return Resolve(market, s.cache, s.meta, s.now(), uploaded)
}

// Refresh re-resolves market's universe and persists it, bumping
// stock_master_refreshed_at. When the durable store is still within its
// TTL, Resolve returns that same snapshot and this returns without writing
// or bumping the timestamp; only a stale store pulls a fresh set from the
// packaged CSV or hard-coded fallback and replaces it.
func (s *Service) Refresh(market domain.Market) error {
	instruments, source, err := Resolve(market, s.cache, s.meta, s.now(), nil)
	if err != nil {
		return err
	}
	if source == SourceDurableStore {
		return nil
	}
	if err := s.cache.Refresh(market, instruments); err != nil {
		return err
	}
	return s.meta.SetMeta(stockMasterRefreshedAtKey, s.now().Format(time.RFC3339))
}
