package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteWriter persists card price records to a local SQLite file.
type SQLiteWriter struct {
	sqlStore
}

// NewSQLiteWriter opens (or creates) the database at path and migrates it.
func NewSQLiteWriter(ctx context.Context, path string) (*SQLiteWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("sqlite: create dir: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	sw := &SQLiteWriter{sqlStore{
		db:     db,
		driver: "sqlite",
		bind:   func(int) string { return "?" },
	}}
	if err := sw.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return sw, nil
}

func (sw *SQLiteWriter) migrate(ctx context.Context) error {
	_, err := sw.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS card_price_records (
		card_key             TEXT PRIMARY KEY,
		subject              TEXT NOT NULL,
		year                 INTEGER NOT NULL DEFAULT 0,
		brand                TEXT NOT NULL DEFAULT '',
		set_name             TEXT NOT NULL DEFAULT '',
		card_number          TEXT NOT NULL DEFAULT '',
		print_run            TEXT NOT NULL DEFAULT '',
		raw_average_price    TEXT NOT NULL DEFAULT '0',
		raw_sample_count     INTEGER NOT NULL DEFAULT 0,
		grade9_average_price TEXT NOT NULL DEFAULT '0',
		grade9_sample_count  INTEGER NOT NULL DEFAULT 0,
		grade10_price        TEXT,
		grade10_sold_at      DATETIME,
		multiplier           TEXT,
		anomaly_flag         BOOLEAN NOT NULL DEFAULT 0,
		last_updated         DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS price_samples (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id           TEXT NOT NULL,
		card_key         TEXT NOT NULL REFERENCES card_price_records(card_key),
		bucket           TEXT NOT NULL,
		price            TEXT NOT NULL,
		sample_timestamp DATETIME NOT NULL,
		seq              INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_samples_card ON price_samples(card_key);

	CREATE TABLE IF NOT EXISTS batch_runs (
		run_id             TEXT PRIMARY KEY,
		listings_in        INTEGER NOT NULL,
		listings_excluded  INTEGER NOT NULL,
		duplicates_removed INTEGER NOT NULL,
		anomalies_detected INTEGER NOT NULL,
		exclusion_reasons  TEXT NOT NULL DEFAULT '{}',
		started_at         DATETIME NOT NULL,
		finished_at        DATETIME NOT NULL
	);
	`)
	return err
}
