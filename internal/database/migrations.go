package database

import "fmt"

// migrations run in order; each entry is one schema version. Versions
// already applied are skipped via the schema_version table.
var migrations = []string{
	// v1: position ledger
	`CREATE TABLE IF NOT EXISTS positions (
		symbol        TEXT PRIMARY KEY,
		shares        INTEGER NOT NULL,
		cost_price    REAL NOT NULL,
		cost_currency TEXT NOT NULL DEFAULT 'JPY',
		account       TEXT NOT NULL DEFAULT '',
		purchase_date TEXT NOT NULL DEFAULT '',
		memo          TEXT NOT NULL DEFAULT '',
		updated_at    TEXT NOT NULL DEFAULT (datetime('now'))
	)`,

	// v2: per-symbol fundamentals cache with fetch timestamps
	`CREATE TABLE IF NOT EXISTS fundamentals_cache (
		symbol            TEXT PRIMARY KEY,
		name              TEXT NOT NULL DEFAULT '',
		sector            TEXT NOT NULL DEFAULT '',
		country           TEXT NOT NULL DEFAULT '',
		currency          TEXT NOT NULL DEFAULT '',
		dividend_yield    REAL NOT NULL DEFAULT 0,
		beta              REAL NOT NULL DEFAULT 0,
		trailing_pe       REAL NOT NULL DEFAULT 0,
		price_to_book     REAL NOT NULL DEFAULT 0,
		market_cap        INTEGER NOT NULL DEFAULT 0,
		target_mean_price REAL NOT NULL DEFAULT 0,
		target_high_price REAL NOT NULL DEFAULT 0,
		target_low_price  REAL NOT NULL DEFAULT 0,
		current_price     REAL NOT NULL DEFAULT 0,
		fetched_at        TEXT NOT NULL DEFAULT (datetime('now'))
	)`,

	// v3: latest FX rates against the base currency
	`CREATE TABLE IF NOT EXISTS fx_rates (
		pair       TEXT PRIMARY KEY,
		rate       REAL NOT NULL,
		fetched_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`,
}

// Migrate brings the schema up to the current version
func (db *DB) Migrate() error {
	if _, err := db.conn.Exec(
		`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)`,
	); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var current int
	if err := db.conn.QueryRow(
		`SELECT COALESCE(MAX(version), 0) FROM schema_version`,
	).Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for i := current; i < len(migrations); i++ {
		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", i+1, err)
		}
	}

	return nil
}
