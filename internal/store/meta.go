package store

import (
	"database/sql"

	"github.com/aristath/stockhunter/internal/domain"
)

// Well-known db_metadata keys, per spec.md §4.F.
const (
	MetaLastFullInit           = "last_full_init"
	MetaLastDailyUpdate        = "last_daily_update"
	MetaStockMasterRefreshedAt = "stock_master_refreshed_at"
)

// GetMeta returns the value stored under key, and ok=false if absent.
func (db *DB) GetMeta(key string) (string, bool, error) {
	var value string
	err := db.conn.QueryRow(`SELECT value FROM db_metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, domain.NewError(domain.KindStoreFailure, "store.GetMeta", err)
	}
	return value, true, nil
}

// SetMeta upserts key/value.
func (db *DB) SetMeta(key, value string) error {
	_, err := db.conn.Exec(`
		INSERT INTO db_metadata (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at
	`, key, value, nowString())
	if err != nil {
		return domain.NewError(domain.KindStoreFailure, "store.SetMeta", err)
	}
	return nil
}
