package store

import (
	"database/sql"
	"strings"
	"time"

	"github.com/aristath/stockhunter/internal/domain"
)

// MasterCache is the durable list of known instruments per market
// (spec.md §4.E), backed by the stock_master table.
type MasterCache struct {
	db *DB
}

// NewMasterCache wraps an opened DB.
func NewMasterCache(db *DB) *MasterCache {
	return &MasterCache{db: db}
}

// AllActive returns every instrument flagged active, across all markets.
func (c *MasterCache) AllActive() ([]domain.Instrument, error) {
	return c.query(`SELECT code, market, name, is_active FROM stock_master WHERE is_active = 1`)
}

// ByMarket returns every instrument (active or not) for one market.
func (c *MasterCache) ByMarket(market domain.Market) ([]domain.Instrument, error) {
	rows, err := c.db.conn.Query(`SELECT code, market, name, is_active FROM stock_master WHERE market = ?`, string(market))
	if err != nil {
		return nil, domain.NewError(domain.KindStoreFailure, "store.ByMarket", err)
	}
	defer rows.Close()
	return scanInstruments(rows)
}

func (c *MasterCache) query(q string, args ...any) ([]domain.Instrument, error) {
	rows, err := c.db.conn.Query(q, args...)
	if err != nil {
		return nil, domain.NewError(domain.KindStoreFailure, "store.MasterCache.query", err)
	}
	defer rows.Close()
	return scanInstruments(rows)
}

func scanInstruments(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]domain.Instrument, error) {
	var out []domain.Instrument
	for rows.Next() {
		var inst domain.Instrument
		var market string
		var active int
		if err := rows.Scan(&inst.ID, &market, &inst.Name, &active); err != nil {
			return nil, domain.NewError(domain.KindStoreFailure, "store.scanInstruments", err)
		}
		inst.Market = domain.Market(market)
		inst.IsActive = active != 0
		inst.IsETF = strings.Contains(strings.ToUpper(inst.Name), "ETF")
		inst.IsETN = strings.Contains(strings.ToUpper(inst.Name), "ETN")
		out = append(out, inst)
	}
	return out, rows.Err()
}

// NameOf returns the cached name for code, and ok=false if unknown.
func (c *MasterCache) NameOf(code string) (string, bool, error) {
	var name string
	err := c.db.conn.QueryRow(`SELECT name FROM stock_master WHERE code = ?`, code).Scan(&name)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, domain.NewError(domain.KindStoreFailure, "store.NameOf", err)
	}
	return name, true, nil
}

// Stats summarises the master cache's coverage.
type Stats struct {
	Total       int
	PerMarket   map[domain.Market]int
	LastRefresh time.Time
}

// Stats returns instrument counts and the last refresh timestamp recorded
// under MetaStockMasterRefreshedAt.
func (c *MasterCache) Stats() (Stats, error) {
	rows, err := c.db.conn.Query(`SELECT market, COUNT(*) FROM stock_master WHERE is_active = 1 GROUP BY market`)
	if err != nil {
		return Stats{}, domain.NewError(domain.KindStoreFailure, "store.Stats", err)
	}
	defer rows.Close()

	stats := Stats{PerMarket: map[domain.Market]int{}}
	for rows.Next() {
		var market string
		var count int
		if err := rows.Scan(&market, &count); err != nil {
			return Stats{}, domain.NewError(domain.KindStoreFailure, "store.Stats", err)
		}
		stats.PerMarket[domain.Market(market)] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return Stats{}, domain.NewError(domain.KindStoreFailure, "store.Stats", err)
	}

	if raw, ok, err := c.db.GetMeta(MetaStockMasterRefreshedAt); err == nil && ok {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			stats.LastRefresh = t
		}
	}
	return stats, nil
}

// UpdateName sets the display name for an already-known code, used by the
// collector's sync-stock-names operation to fill in names the upload/CSV
// source left blank.
func (c *MasterCache) UpdateName(code, name string) error {
	_, err := c.db.conn.Exec(`UPDATE stock_master SET name = ?, updated_at = ? WHERE code = ?`, name, nowString(), code)
	if err != nil {
		return domain.NewError(domain.KindStoreFailure, "store.UpdateName", err)
	}
	return nil
}

// Refresh transactionally replaces the market's snapshot: every instrument
// in instruments is upserted active, and any existing row for this market
// not present in instruments is flagged inactive rather than deleted, so
// bar history for delisted instruments remains addressable.
func (c *MasterCache) Refresh(market domain.Market, instruments []domain.Instrument) error {
	tx, err := c.db.conn.Begin()
	if err != nil {
		return domain.NewError(domain.KindStoreFailure, "store.Refresh", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE stock_master SET is_active = 0, updated_at = ? WHERE market = ?`, nowString(), string(market)); err != nil {
		return domain.NewError(domain.KindStoreFailure, "store.Refresh", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO stock_master (code, market, name, is_active, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			market=excluded.market, name=excluded.name, is_active=1, updated_at=excluded.updated_at
	`)
	if err != nil {
		return domain.NewError(domain.KindStoreFailure, "store.Refresh", err)
	}
	defer stmt.Close()

	now := nowString()
	for _, inst := range instruments {
		if _, err := stmt.Exec(inst.ID, string(market), inst.Name, now, now); err != nil {
			return domain.NewError(domain.KindStoreFailure, "store.Refresh", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.NewError(domain.KindStoreFailure, "store.Refresh", err)
	}
	return nil
}
