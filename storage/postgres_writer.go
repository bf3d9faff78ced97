package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "github.com/lib/pq"
)

// PostgresWriter persists card price records to PostgreSQL.
type PostgresWriter struct {
	sqlStore
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(ctx context.Context, dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, fmt.Errorf("postgres: ping: %w", ctx.Err())
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{sqlStore{
		db:     db,
		driver: "postgres",
		bind:   func(n int) string { return "$" + strconv.Itoa(n) },
	}}
	if err := pw.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS card_price_records (
			card_key             TEXT          PRIMARY KEY,
			subject              TEXT          NOT NULL,
			year                 INTEGER       NOT NULL DEFAULT 0,
			brand                TEXT          NOT NULL DEFAULT '',
			set_name             TEXT          NOT NULL DEFAULT '',
			card_number          TEXT          NOT NULL DEFAULT '',
			print_run            TEXT          NOT NULL DEFAULT '',
			raw_average_price    NUMERIC(14,4) NOT NULL DEFAULT 0,
			raw_sample_count     INTEGER       NOT NULL DEFAULT 0,
			grade9_average_price NUMERIC(14,4) NOT NULL DEFAULT 0,
			grade9_sample_count  INTEGER       NOT NULL DEFAULT 0,
			grade10_price        NUMERIC(14,2),
			grade10_sold_at      TIMESTAMPTZ,
			multiplier           NUMERIC(10,4),
			anomaly_flag         BOOLEAN       NOT NULL DEFAULT FALSE,
			last_updated         TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS price_samples (
			id               BIGSERIAL     PRIMARY KEY,
			run_id           TEXT          NOT NULL,
			card_key         TEXT          NOT NULL REFERENCES card_price_records(card_key),
			bucket           VARCHAR(16)   NOT NULL,
			price            NUMERIC(14,2) NOT NULL,
			sample_timestamp TIMESTAMPTZ   NOT NULL,
			seq              INTEGER       NOT NULL
		);

		CREATE TABLE IF NOT EXISTS batch_runs (
			run_id             TEXT        PRIMARY KEY,
			listings_in        INTEGER     NOT NULL,
			listings_excluded  INTEGER     NOT NULL,
			duplicates_removed INTEGER     NOT NULL,
			anomalies_detected INTEGER     NOT NULL,
			exclusion_reasons  JSONB       NOT NULL DEFAULT '{}',
			started_at         TIMESTAMPTZ NOT NULL,
			finished_at        TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_records_anomaly ON card_price_records(anomaly_flag);
		CREATE INDEX IF NOT EXISTS idx_samples_card    ON price_samples(card_key);
		CREATE INDEX IF NOT EXISTS idx_samples_run     ON price_samples(run_id);
	`)
	return err
}
