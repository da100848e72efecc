package store

import (
	"database/sql"
	"sync"
	"time"

	"github.com/aristath/stockhunter/internal/domain"
)

// PriceStore is the durable per-instrument daily-bar store (spec.md §4.F).
// Upserts are serialised through writeMu so a partial batch is never
// visible to a concurrent reader; reads take no lock and may run freely.
type PriceStore struct {
	db      *DB
	writeMu sync.Mutex
}

// NewPriceStore wraps an opened DB.
func NewPriceStore(db *DB) *PriceStore {
	return &PriceStore{db: db}
}

// UpsertBatch inserts or replaces bars for one instrument. Idempotent:
// applying the same batch twice leaves row count and values unchanged.
// Atomic per instrument via a single transaction.
func (s *PriceStore) UpsertBatch(ref string, bars domain.Bars) error {
	if len(bars) == 0 {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.conn.Begin()
	if err != nil {
		return domain.NewError(domain.KindStoreFailure, "store.UpsertBatch", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO daily_prices (instrument, trade_date, open, high, low, close, volume, inserted_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(instrument, trade_date) DO UPDATE SET
			open=excluded.open, high=excluded.high, low=excluded.low,
			close=excluded.close, volume=excluded.volume, updated_at=excluded.updated_at
	`)
	if err != nil {
		return domain.NewError(domain.KindStoreFailure, "store.UpsertBatch", err)
	}
	defer stmt.Close()

	now := nowString()
	for _, bar := range bars {
		if _, err := stmt.Exec(ref, bar.TradeDate, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume, now, now); err != nil {
			return domain.NewError(domain.KindStoreFailure, "store.UpsertBatch", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.NewError(domain.KindStoreFailure, "store.UpsertBatch", err)
	}
	return nil
}

// Bars returns up to limit bars for ref, newest-first.
func (s *PriceStore) Bars(ref string, limit int) (domain.Bars, error) {
	rows, err := s.db.conn.Query(`
		SELECT instrument, trade_date, open, high, low, close, volume, inserted_at, updated_at
		FROM daily_prices WHERE instrument = ? ORDER BY trade_date DESC LIMIT ?
	`, ref, limit)
	if err != nil {
		return nil, domain.NewError(domain.KindStoreFailure, "store.Bars", err)
	}
	defer rows.Close()

	var out domain.Bars
	for rows.Next() {
		var b domain.DailyBar
		var insertedAt, updatedAt string
		if err := rows.Scan(&b.InstrumentRef, &b.TradeDate, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &insertedAt, &updatedAt); err != nil {
			return nil, domain.NewError(domain.KindStoreFailure, "store.Bars", err)
		}
		b.InsertedAt, _ = time.Parse(time.RFC3339, insertedAt)
		b.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		out = append(out, b)
	}
	return out, rows.Err()
}

// LatestDate returns the most recent trade_date for ref, or "" if none.
func (s *PriceStore) LatestDate(ref string) (string, error) {
	var date sql.NullString
	err := s.db.conn.QueryRow(`SELECT MAX(trade_date) FROM daily_prices WHERE instrument = ?`, ref).Scan(&date)
	if err != nil {
		return "", domain.NewError(domain.KindStoreFailure, "store.LatestDate", err)
	}
	return date.String, nil
}

// AllInstrumentsWithBars lists every distinct instrument reference that
// has at least one bar, for incremental-update iteration.
func (s *PriceStore) AllInstrumentsWithBars() ([]string, error) {
	rows, err := s.db.conn.Query(`SELECT DISTINCT instrument FROM daily_prices`)
	if err != nil {
		return nil, domain.NewError(domain.KindStoreFailure, "store.AllInstrumentsWithBars", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, domain.NewError(domain.KindStoreFailure, "store.AllInstrumentsWithBars", err)
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

// PruneOlderThan removes every bar whose trade_date is before today minus
// horizonDays.
func (s *PriceStore) PruneOlderThan(horizonDays int, today time.Time) error {
	cutoff := today.AddDate(0, 0, -horizonDays).Format("2006-01-02")
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, err := s.db.conn.Exec(`DELETE FROM daily_prices WHERE trade_date < ?`, cutoff)
	if err != nil {
		return domain.NewError(domain.KindStoreFailure, "store.PruneOlderThan", err)
	}
	return nil
}

// Statistics summarises the store's bar coverage.
type Statistics struct {
	InstrumentCount int
	BarCount        int
	OldestDate      string
	NewestDate      string
}

// Statistics returns aggregate counts across the whole bar store.
func (s *PriceStore) Statistics() (Statistics, error) {
	var stats Statistics
	var oldest, newest sql.NullString
	err := s.db.conn.QueryRow(`
		SELECT COUNT(DISTINCT instrument), COUNT(*), MIN(trade_date), MAX(trade_date)
		FROM daily_prices
	`).Scan(&stats.InstrumentCount, &stats.BarCount, &oldest, &newest)
	if err != nil {
		return Statistics{}, domain.NewError(domain.KindStoreFailure, "store.Statistics", err)
	}
	stats.OldestDate = oldest.String
	stats.NewestDate = newest.String
	return stats, nil
}

func nowString() string {
	return time.Now().UTC().Format(time.RFC3339)
}
