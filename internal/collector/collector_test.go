package collector

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stockhunter/internal/broker"
	"github.com/aristath/stockhunter/internal/domain"
)

type memStore struct {
	bars          map[string]domain.Bars
	prunedHorizon int
	prunedToday   time.Time
}

func newMemStore() *memStore { return &memStore{bars: map[string]domain.Bars{}} }

func (s *memStore) UpsertBatch(ref string, bars domain.Bars) error {
	existing := map[string]domain.DailyBar{}
	for _, b := range s.bars[ref] {
		existing[b.TradeDate] = b
	}
	for _, b := range bars {
		existing[b.TradeDate] = b
	}
	var out domain.Bars
	for _, b := range existing {
		out = append(out, b)
	}
	s.bars[ref] = out
	return nil
}

func (s *memStore) LatestDate(ref string) (string, error) {
	var latest string
	for _, b := range s.bars[ref] {
		if b.TradeDate > latest {
			latest = b.TradeDate
		}
	}
	return latest, nil
}

func (s *memStore) AllInstrumentsWithBars() ([]string, error) {
	var out []string
	for ref := range s.bars {
		out = append(out, ref)
	}
	return out, nil
}

func (s *memStore) PruneOlderThan(horizonDays int, today time.Time) error {
	s.prunedHorizon = horizonDays
	s.prunedToday = today
	return nil
}

type memMeta struct{ values map[string]string }

func newMemMeta() *memMeta { return &memMeta{values: map[string]string{}} }

func (m *memMeta) GetMeta(key string) (string, bool, error) {
	v, ok := m.values[key]
	return v, ok, nil
}
func (m *memMeta) SetMeta(key, value string) error {
	m.values[key] = value
	return nil
}

type memMasterCache struct{ instruments []domain.Instrument }

func (m *memMasterCache) AllActive() ([]domain.Instrument, error) { return m.instruments, nil }

type fakeCapability struct {
	market domain.Market
	bars   []broker.Bar
	err    error
	gotN   int
}

func (f *fakeCapability) Market() domain.Market { return f.market }
func (f *fakeCapability) RecentBars(ctx context.Context, id string, n int) ([]broker.Bar, error) {
	f.gotN = n
	return f.bars, f.err
}
func (f *fakeCapability) HistoricalBars(ctx context.Context, id, start, end string) ([]broker.Bar, error) {
	return f.bars, f.err
}
func (f *fakeCapability) Quote(ctx context.Context, id string) (broker.Quote, error) {
	return broker.Quote{}, nil
}
func (f *fakeCapability) Name(ctx context.Context, id string) (string, error) { return "", nil }
func (f *fakeCapability) ValidID(id string) bool                             { return true }
func (f *fakeCapability) LooksLikeETF(name string) bool                     { return false }
func (f *fakeCapability) LooksLikeETN(name string) bool                     { return false }
func (f *fakeCapability) LooksLikeManagementCompany(name string) bool       { return false }

type fixedClock struct{ today time.Time }

func (f fixedClock) TodayIn(domain.Market) time.Time { return f.today }

type perMarketClock map[domain.Market]time.Time

func (c perMarketClock) TodayIn(market domain.Market) time.Time { return c[market] }

func TestFullBackfillRejectsWithoutForceWhenAlreadyPopulated(t *testing.T) {
	st := newMemStore()
	st.bars["KOSPI:005930"] = domain.Bars{{TradeDate: "2026-07-30"}}
	c := New(st, newMemMeta(), &memMasterCache{}, nil, &Tracker{}, nil, zerolog.Nop())

	err := c.FullBackfill(context.Background(), false)
	require.Error(t, err)
	assert.Equal(t, domain.KindAlreadyInitialised, domain.KindOf(err))
}

func TestFullBackfillCollectsAndPrunes(t *testing.T) {
	st := newMemStore()
	meta := newMemMeta()
	mc := &memMasterCache{instruments: []domain.Instrument{{ID: "005930", Market: domain.MarketKOSPI, IsActive: true}}}
	caps := map[domain.Market]broker.MarketCapability{
		domain.MarketKOSPI: &fakeCapability{market: domain.MarketKOSPI, bars: []broker.Bar{
			{TradeDate: "20260730", Close: 100, Volume: 10},
			{TradeDate: "20260729", Close: 99, Volume: 9},
		}},
	}
	c := New(st, meta, mc, caps, &Tracker{}, nil, zerolog.Nop())

	err := c.FullBackfill(context.Background(), true)
	require.NoError(t, err)

	bars := st.bars["KOSPI:005930"]
	assert.Len(t, bars, 2)
	assert.Equal(t, RetentionDays, st.prunedHorizon)

	_, ok, err := meta.GetMeta("last_full_init")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIncrementalUpdateRequestsWindowSizedToTheGap(t *testing.T) {
	today := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	gapStart := today.AddDate(0, 0, -10)

	st := newMemStore()
	ref := "KOSPI:005930"
	st.bars[ref] = domain.Bars{{TradeDate: gapStart.Format("2006-01-02"), Close: 100}}

	capa := &fakeCapability{market: domain.MarketKOSPI, bars: []broker.Bar{
		{TradeDate: today.Format("2006-01-02"), Close: 110, Volume: 1},
	}}
	caps := map[domain.Market]broker.MarketCapability{domain.MarketKOSPI: capa}

	c := New(st, newMemMeta(), &memMasterCache{}, caps, &Tracker{}, fixedClock{today: today}, zerolog.Nop())
	c.now = func() time.Time { return today }

	require.NoError(t, c.IncrementalUpdate(context.Background()))

	// A 10-day gap must be covered by a single window of size 11 (today
	// plus the 10 missing days), not silently fall back to a 1-day probe.
	assert.Equal(t, 11, capa.gotN)
}

func TestFullBackfillPrunesUsingEarlierMarketDay(t *testing.T) {
	krToday := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	usToday := krToday.AddDate(0, 0, -1) // US still on the prior calendar day

	st := newMemStore()
	mc := &memMasterCache{instruments: []domain.Instrument{{ID: "005930", Market: domain.MarketKOSPI, IsActive: true}}}
	caps := map[domain.Market]broker.MarketCapability{
		domain.MarketKOSPI: &fakeCapability{market: domain.MarketKOSPI, bars: []broker.Bar{
			{TradeDate: "2026-07-30", Close: 100, Volume: 1},
		}},
	}
	clock := perMarketClock{domain.MarketKOSPI: krToday, domain.MarketNASDAQ: usToday}
	c := New(st, newMemMeta(), mc, caps, &Tracker{}, clock, zerolog.Nop())

	require.NoError(t, c.FullBackfill(context.Background(), true))

	assert.Equal(t, RetentionDays, st.prunedHorizon)
	assert.True(t, st.prunedToday.Equal(usToday), "expected prune cutoff to use the earlier (US) market day, got %v", st.prunedToday)
}

func TestIncrementalUpdateSkipsUnknownMarket(t *testing.T) {
	st := newMemStore()
	st.bars["BOGUS:XYZ"] = domain.Bars{{TradeDate: "2026-07-01"}}
	c := New(st, newMemMeta(), &memMasterCache{}, map[domain.Market]broker.MarketCapability{}, &Tracker{}, nil, zerolog.Nop())

	err := c.IncrementalUpdate(context.Background())
	require.NoError(t, err)
	snap := c.tracker.Snapshot()
	assert.Equal(t, 1, snap.Total)
	assert.Contains(t, snap.Failed, "BOGUS:XYZ")
}
