package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"cardprice/models"
)

const loadChunk = 500

// sqlStore implements RecordStore over database/sql. The Postgres and SQLite
// writers differ only in their schema text and bind-parameter syntax.
type sqlStore struct {
	db     *sql.DB
	driver string
	bind   func(n int) string
}

func (s *sqlStore) params(start, n int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = s.bind(start + i)
	}
	return strings.Join(out, ",")
}

const recordColumns = `card_key, subject, year, brand, set_name, card_number, print_run,
	raw_average_price, raw_sample_count, grade9_average_price, grade9_sample_count,
	grade10_price, grade10_sold_at, multiplier, anomaly_flag, last_updated`

// Load returns stored records for keys, or all records when keys is empty.
func (s *sqlStore) Load(ctx context.Context, keys []string) ([]*models.CardPriceRecord, error) {
	if len(keys) == 0 {
		return s.query(ctx, `SELECT `+recordColumns+` FROM card_price_records ORDER BY card_key`)
	}

	var out []*models.CardPriceRecord
	for i := 0; i < len(keys); i += loadChunk {
		end := i + loadChunk
		if end > len(keys) {
			end = len(keys)
		}
		args := make([]interface{}, 0, end-i)
		for _, k := range keys[i:end] {
			args = append(args, k)
		}
		recs, err := s.query(ctx,
			`SELECT `+recordColumns+` FROM card_price_records WHERE card_key IN (`+s.params(1, end-i)+`) ORDER BY card_key`,
			args...)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

func (s *sqlStore) query(ctx context.Context, q string, args ...interface{}) ([]*models.CardPriceRecord, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: load records: %w", s.driver, err)
	}
	defer rows.Close()

	var records []*models.CardPriceRecord
	for rows.Next() {
		r := &models.CardPriceRecord{}
		var soldAt sql.NullTime
		if err := rows.Scan(
			&r.Key, &r.Identity.Subject, &r.Identity.Year, &r.Identity.Brand, &r.Identity.SetName,
			&r.Identity.CardNumber, &r.Identity.PrintRun,
			&r.RawAveragePrice, &r.RawSampleCount, &r.Grade9AveragePrice, &r.Grade9SampleCount,
			&r.Grade10Price, &soldAt, &r.Multiplier, &r.AnomalyFlag, &r.LastUpdated,
		); err != nil {
			return nil, fmt.Errorf("%s: scan record: %w", s.driver, err)
		}
		if soldAt.Valid {
			r.Grade10SoldAt = soldAt.Time
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Apply writes the touched records, the delta samples and the batch summary
// in a single transaction.
func (s *sqlStore) Apply(ctx context.Context, result *models.BatchResult) error {
	if result == nil {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", s.driver, err)
	}
	defer tx.Rollback()

	upsert := fmt.Sprintf(`
		INSERT INTO card_price_records (%s)
		VALUES (%s)
		ON CONFLICT (card_key) DO UPDATE SET
			raw_average_price    = excluded.raw_average_price,
			raw_sample_count     = excluded.raw_sample_count,
			grade9_average_price = excluded.grade9_average_price,
			grade9_sample_count  = excluded.grade9_sample_count,
			grade10_price        = excluded.grade10_price,
			grade10_sold_at      = excluded.grade10_sold_at,
			multiplier           = excluded.multiplier,
			anomaly_flag         = excluded.anomaly_flag,
			last_updated         = excluded.last_updated
	`, recordColumns, s.params(1, 16))

	for _, r := range result.Records {
		soldAt := sql.NullTime{Time: r.Grade10SoldAt, Valid: !r.Grade10SoldAt.IsZero()}
		if _, err := tx.ExecContext(ctx, upsert,
			r.Key, r.Identity.Subject, r.Identity.Year, r.Identity.Brand, r.Identity.SetName,
			r.Identity.CardNumber, r.Identity.PrintRun,
			r.RawAveragePrice.Round(4), r.RawSampleCount, r.Grade9AveragePrice.Round(4), r.Grade9SampleCount,
			r.Grade10Price, soldAt, r.Multiplier, r.AnomalyFlag, r.LastUpdated,
		); err != nil {
			return fmt.Errorf("%s: upsert %q: %w", s.driver, r.Key, err)
		}
	}

	sample := fmt.Sprintf(`
		INSERT INTO price_samples (run_id, card_key, bucket, price, sample_timestamp, seq)
		VALUES (%s)
	`, s.params(1, 6))
	for _, u := range result.Upserts {
		if _, err := tx.ExecContext(ctx, sample,
			result.Summary.RunID, u.Key, string(u.Bucket), u.Price, u.SampleTimestamp, u.Seq,
		); err != nil {
			return fmt.Errorf("%s: insert sample: %w", s.driver, err)
		}
	}

	reasons, err := json.Marshal(result.Summary.ExclusionReasons)
	if err != nil {
		return fmt.Errorf("%s: encode reasons: %w", s.driver, err)
	}
	sum := result.Summary
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO batch_runs (run_id, listings_in, listings_excluded, duplicates_removed,
			anomalies_detected, exclusion_reasons, started_at, finished_at)
		VALUES (%s)
	`, s.params(1, 8)),
		sum.RunID, sum.ListingsIn, sum.ListingsExcluded, sum.DuplicatesRemoved,
		sum.AnomaliesDetected, string(reasons), sum.StartedAt, sum.FinishedAt,
	); err != nil {
		return fmt.Errorf("%s: insert batch run: %w", s.driver, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", s.driver, err)
	}
	return nil
}

// SampleCount returns the number of stored delta samples for a card.
func (s *sqlStore) SampleCount(ctx context.Context, key string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM price_samples WHERE card_key = `+s.bind(1), key).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%s: count samples: %w", s.driver, err)
	}
	return n, nil
}

// Samples returns the stored prices for a card in the given bucket, oldest
// run first. Audits use them to recompute exact averages.
func (s *sqlStore) Samples(ctx context.Context, key string, bucket models.GradeBucket) ([]decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT price FROM price_samples WHERE card_key = `+s.bind(1)+` AND bucket = `+s.bind(2)+` ORDER BY id`,
		key, string(bucket))
	if err != nil {
		return nil, fmt.Errorf("%s: load samples: %w", s.driver, err)
	}
	defer rows.Close()

	var prices []decimal.Decimal
	for rows.Next() {
		var p decimal.Decimal
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("%s: scan sample: %w", s.driver, err)
		}
		prices = append(prices, p)
	}
	return prices, rows.Err()
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}
