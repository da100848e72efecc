// Package collector runs the two operations that populate the price
// store: a one-shot full backfill and a recurring incremental update
// (spec.md §4.G).
package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/stockhunter/internal/broker"
	"github.com/aristath/stockhunter/internal/domain"
)

// RetentionDays bounds how much history a full backfill keeps, per
// spec.md §4.G step 3 and invariant 7.
const RetentionDays = 400

const (
	backfillWindowDays = 100
	backfillBatches    = 6
	instrumentParallel = 8
)

// PriceStore is the subset of *store.PriceStore the collector needs.
type PriceStore interface {
	UpsertBatch(ref string, bars domain.Bars) error
	LatestDate(ref string) (string, error)
	AllInstrumentsWithBars() ([]string, error)
	PruneOlderThan(horizonDays int, today time.Time) error
}

// MetaStore is the subset of *store.DB the collector needs.
type MetaStore interface {
	GetMeta(key string) (string, bool, error)
	SetMeta(key, value string) error
}

// MasterCacheReader is the subset of *store.MasterCache the collector
// needs to enumerate active instruments. Names are written through the
// setName callback passed to SyncStockNames, not through this interface.
type MasterCacheReader interface {
	AllActive() ([]domain.Instrument, error)
}

// MarketClock resolves "today" in a market's own timezone. KR and US
// trading days differ by several hours around each market's midnight
// (spec.md line 49, §3): backfill windows, incremental gap sizing, and the
// retention cutoff must be computed against the calendar day the relevant
// market is actually on, not a single process-wide clock.
type MarketClock interface {
	TodayIn(market domain.Market) time.Time
}

// utcClock is the MarketClock fallback when the caller has no calendar
// service wired up: every market is treated as being on the UTC day.
type utcClock struct{}

func (utcClock) TodayIn(domain.Market) time.Time {
	n := time.Now().UTC()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}

// Collector orchestrates backfill/update across every market it has a
// MarketCapability for.
type Collector struct {
	store        PriceStore
	meta         MetaStore
	masterCache  MasterCacheReader
	capabilities map[domain.Market]broker.MarketCapability
	tracker      *Tracker
	clock        MarketClock
	log          zerolog.Logger
	now          func() time.Time
}

// New constructs a Collector. capabilities must contain one entry per
// market the deployment serves. clock may be nil, in which case every
// market is dated off the UTC calendar day.
func New(store PriceStore, meta MetaStore, masterCache MasterCacheReader, capabilities map[domain.Market]broker.MarketCapability, tracker *Tracker, clock MarketClock, log zerolog.Logger) *Collector {
	if clock == nil {
		clock = utcClock{}
	}
	return &Collector{
		store:        store,
		meta:         meta,
		masterCache:  masterCache,
		capabilities: capabilities,
		tracker:      tracker,
		clock:        clock,
		log:          log.With().Str("component", "collector").Logger(),
		now:          time.Now,
	}
}

// FullBackfill constructs ~400 calendar days of history for every active
// instrument. If forceRebuild is false and the store already holds bars
// for at least one instrument, it returns a NotInitialised-free
// AlreadyInitialised error instead of doing any work.
func (c *Collector) FullBackfill(ctx context.Context, forceRebuild bool) error {
	existing, err := c.store.AllInstrumentsWithBars()
	if err != nil {
		return err
	}
	if !forceRebuild && len(existing) > 0 {
		return domain.NewError(domain.KindAlreadyInitialised, "collector.FullBackfill", fmt.Errorf("%d instruments already have bars", len(existing)))
	}

	instruments, err := c.masterCache.AllActive()
	if err != nil {
		return err
	}

	today := c.now()
	handle := c.tracker.Start("full_backfill", len(instruments), today)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(instrumentParallel)

	for _, inst := range instruments {
		inst := inst
		g.Go(func() error {
			c.backfillOne(gctx, inst, forceRebuild, handle)
			return nil
		})
	}
	_ = g.Wait() // per-instrument failures are already isolated in backfillOne

	// Prune against whichever covered market's calendar day is behind: a
	// KR/US split never results in evicting a bar before its own market's
	// retention cutoff, only in pruning slightly later than strictly
	// necessary for whichever side is ahead.
	pruneToday := c.clock.TodayIn(domain.MarketKOSPI)
	if usToday := c.clock.TodayIn(domain.MarketNASDAQ); usToday.Before(pruneToday) {
		pruneToday = usToday
	}
	if err := c.store.PruneOlderThan(RetentionDays, pruneToday); err != nil {
		return err
	}
	handle.Complete(c.now())
	return c.meta.SetMeta("last_full_init", today.Format(time.RFC3339))
}

func (c *Collector) backfillOne(ctx context.Context, inst domain.Instrument, forceRebuild bool, handle *ProgressHandle) {
	defer handle.Advance(inst.ID)
	today := c.clock.TodayIn(inst.Market)

	if !forceRebuild {
		latest, err := c.store.LatestDate(inst.Key())
		if err == nil && latest != "" {
			return
		}
	}

	capa, ok := c.capabilities[inst.Market]
	if !ok {
		c.log.Warn().Str("instrument", inst.Key()).Msg("no market capability registered, skipping")
		handle.Fail(inst.Key())
		return
	}

	collected := map[string]broker.Bar{}
	for batch := 0; batch < backfillBatches; batch++ {
		end := today.AddDate(0, 0, -batch*backfillWindowDays)
		start := end.AddDate(0, 0, -(backfillWindowDays - 1))
		bars, err := capa.HistoricalBars(ctx, inst.ID, start.Format("20060102"), end.Format("20060102"))
		if err != nil {
			if batch == 0 {
				c.log.Warn().Err(err).Str("instrument", inst.Key()).Msg("first backfill batch failed, aborting instrument")
				handle.Fail(inst.Key())
				return
			}
			c.log.Warn().Err(err).Str("instrument", inst.Key()).Int("batch", batch).Msg("backfill batch failed, persisting partial result")
			break
		}
		for _, b := range bars {
			collected[b.TradeDate] = b
		}
	}

	if len(collected) == 0 {
		c.log.Info().Str("instrument", inst.Key()).Msg("zero bars collected across all batches, skipping")
		handle.Fail(inst.Key())
		return
	}

	bars := make(domain.Bars, 0, len(collected))
	for _, b := range collected {
		bars = append(bars, domain.DailyBar{
			InstrumentRef: inst.Key(),
			TradeDate:     b.TradeDate,
			Open:          b.Open,
			High:          b.High,
			Low:           b.Low,
			Close:         b.Close,
			Volume:        b.Volume,
		})
	}
	if err := c.store.UpsertBatch(inst.Key(), bars); err != nil {
		c.log.Error().Err(err).Str("instrument", inst.Key()).Msg("failed to persist collected bars")
		handle.Fail(inst.Key())
	}
}

// IncrementalUpdate gap-fills every instrument already present in the
// store up to today. No retention prune runs here (spec.md §4.G, §3).
func (c *Collector) IncrementalUpdate(ctx context.Context) error {
	refs, err := c.store.AllInstrumentsWithBars()
	if err != nil {
		return err
	}

	today := c.now()
	handle := c.tracker.Start("incremental_update", len(refs), today)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(instrumentParallel)

	for _, ref := range refs {
		ref := ref
		g.Go(func() error {
			c.updateOne(gctx, ref, handle)
			return nil
		})
	}
	_ = g.Wait()

	handle.Complete(c.now())
	return c.meta.SetMeta("last_daily_update", today.Format(time.RFC3339))
}

func (c *Collector) updateOne(ctx context.Context, ref string, handle *ProgressHandle) {
	defer handle.Advance(ref)

	market, id, ok := splitRef(ref)
	if !ok {
		handle.Fail(ref)
		return
	}
	capa, ok := c.capabilities[market]
	if !ok {
		handle.Fail(ref)
		return
	}
	today := c.clock.TodayIn(market)

	latest, err := c.store.LatestDate(ref)
	if err != nil {
		handle.Fail(ref)
		return
	}

	n := 1
	var latestDate time.Time
	if latest != "" {
		latestDate, err = time.Parse("2006-01-02", latest)
		if err != nil {
			latestDate, err = time.Parse(time.RFC3339, latest)
		}
		if err == nil {
			daysMissing := int(today.Sub(latestDate).Hours() / 24)
			n = daysMissing + 1
			if n > 100 {
				n = 100
			}
			if n < 1 {
				n = 1
			}
		}
	}

	bars, err := capa.RecentBars(ctx, id, n)
	if err != nil {
		c.log.Warn().Err(err).Str("instrument", ref).Msg("incremental update failed, next cycle will retry")
		handle.Fail(ref)
		return
	}

	var fresh domain.Bars
	for _, b := range bars {
		if latest != "" && b.TradeDate <= normalizeDate(latest) {
			continue
		}
		fresh = append(fresh, domain.DailyBar{
			InstrumentRef: ref,
			TradeDate:     b.TradeDate,
			Open:          b.Open,
			High:          b.High,
			Low:           b.Low,
			Close:         b.Close,
			Volume:        b.Volume,
		})
	}
	if len(fresh) == 0 {
		return
	}
	if err := c.store.UpsertBatch(ref, fresh); err != nil {
		c.log.Error().Err(err).Str("instrument", ref).Msg("failed to persist incremental bars")
		handle.Fail(ref)
	}
}

// SyncStockNames backfills missing master-cache names via the broker's
// name lookup, for instruments whose name is empty or unknown.
func (c *Collector) SyncStockNames(ctx context.Context, needsName func(domain.Instrument) bool, setName func(code, name string) error) error {
	instruments, err := c.masterCache.AllActive()
	if err != nil {
		return err
	}

	today := c.now()
	var targets []domain.Instrument
	for _, inst := range instruments {
		if needsName(inst) {
			targets = append(targets, inst)
		}
	}
	handle := c.tracker.Start("sync_stock_names", len(targets), today)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(instrumentParallel)

	for _, inst := range targets {
		inst := inst
		g.Go(func() error {
			defer handle.Advance(inst.Key())
			capa, ok := c.capabilities[inst.Market]
			if !ok {
				handle.Fail(inst.Key())
				return nil
			}
			name, err := capa.Name(gctx, inst.ID)
			if err != nil {
				c.log.Warn().Err(err).Str("instrument", inst.Key()).Msg("name lookup failed")
				handle.Fail(inst.Key())
				return nil
			}
			if err := setName(inst.ID, name); err != nil {
				c.log.Error().Err(err).Str("instrument", inst.Key()).Msg("failed to persist resolved name")
				handle.Fail(inst.Key())
			}
			return nil
		})
	}
	_ = g.Wait()

	handle.Complete(c.now())
	return nil
}

// splitRef reverses domain.Instrument.Key()'s "market:id" format.
func splitRef(ref string) (domain.Market, string, bool) {
	for i := 0; i < len(ref); i++ {
		if ref[i] == ':' {
			return domain.Market(ref[:i]), ref[i+1:], true
		}
	}
	return "", "", false
}

func normalizeDate(s string) string {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format("2006-01-02")
	}
	return s
}
