package services

import (
	"context"
	"hash/fnv"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"cardprice/models"
	"cardprice/utils"
)

// Aggregator keeps running per-card statistics. Records are partitioned by a
// hash of the card key and each partition is only ever written by one
// goroutine, so no record needs a lock.
type Aggregator struct {
	shards []*shard
	logger *utils.Logger
	clock  func() time.Time
}

type shard struct {
	records map[string]*models.CardPriceRecord
	touched map[string]bool
}

// NewAggregator creates an Aggregator with the given number of partitions.
// A nil clock means time.Now.
func NewAggregator(partitions int, logger *utils.Logger, clock func() time.Time) *Aggregator {
	if partitions < 1 {
		partitions = 1
	}
	if clock == nil {
		clock = time.Now
	}
	a := &Aggregator{logger: logger, clock: clock}
	for i := 0; i < partitions; i++ {
		a.shards = append(a.shards, &shard{
			records: make(map[string]*models.CardPriceRecord),
			touched: make(map[string]bool),
		})
	}
	return a
}

func (a *Aggregator) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return a.shards[h.Sum32()%uint32(len(a.shards))]
}

// Seed loads previously persisted records so running averages continue
// across batches. It must not be called concurrently with Apply.
func (a *Aggregator) Seed(records []*models.CardPriceRecord) {
	for _, r := range records {
		cp := *r
		if cp.Key == "" {
			cp.Key = cp.Identity.Key()
		}
		a.shardFor(cp.Key).records[cp.Key] = &cp
	}
}

// Apply folds classified listings into the running statistics. Excluded and
// unresolved listings are skipped. Each listing updates its record
// completely or not at all; on cancellation Apply stops between listings and
// returns the upserts applied so far together with the context error.
func (a *Aggregator) Apply(ctx context.Context, listings []models.ClassifiedListing) ([]models.Upsert, error) {
	parts := make([][]models.ClassifiedListing, len(a.shards))
	index := make(map[*shard]int, len(a.shards))
	for i, s := range a.shards {
		index[s] = i
	}
	for _, l := range listings {
		if l.Excluded() || l.CanonicalSubjectName == models.UnresolvedSubject {
			continue
		}
		i := index[a.shardFor(l.Identity().Key())]
		parts[i] = append(parts[i], l)
	}

	results := make([][]models.Upsert, len(a.shards))
	g, gctx := errgroup.WithContext(ctx)
	for i := range a.shards {
		i := i
		g.Go(func() error {
			s := a.shards[i]
			for _, l := range parts[i] {
				if err := gctx.Err(); err != nil {
					return err
				}
				results[i] = append(results[i], a.applyOne(s, l))
			}
			return nil
		})
	}
	err := g.Wait()

	var upserts []models.Upsert
	for _, r := range results {
		upserts = append(upserts, r...)
	}
	sort.Slice(upserts, func(i, j int) bool { return upserts[i].Seq < upserts[j].Seq })

	if err != nil {
		trace.SpanFromContext(ctx).AddEvent("aggregation stopped", trace.WithAttributes(
			attribute.Int("upserts.applied", len(upserts)),
		))
		a.logger.Warn("[aggregator] Stopped after %d of %d samples: %v", len(upserts), countAggregatable(listings), err)
		return upserts, err
	}
	return upserts, nil
}

func countAggregatable(listings []models.ClassifiedListing) int {
	n := 0
	for _, l := range listings {
		if !l.Excluded() && l.CanonicalSubjectName != models.UnresolvedSubject {
			n++
		}
	}
	return n
}

func (a *Aggregator) applyOne(s *shard, l models.ClassifiedListing) models.Upsert {
	id := l.Identity()
	key := id.Key()
	now := a.clock()

	rec, ok := s.records[key]
	if !ok {
		rec = &models.CardPriceRecord{Key: key, Identity: id}
		s.records[key] = rec
	}

	switch l.Bucket {
	case models.BucketRaw:
		rec.RawAveragePrice = runningMean(rec.RawAveragePrice, rec.RawSampleCount, l.Price)
		rec.RawSampleCount++
	case models.BucketGrade9:
		rec.Grade9AveragePrice = runningMean(rec.Grade9AveragePrice, rec.Grade9SampleCount, l.Price)
		rec.Grade9SampleCount++
	case models.BucketGrade10:
		if supersedes(l.SoldAt, rec.Grade10SoldAt, rec.Grade10Price.Valid) {
			rec.Grade10Price = decimal.NewNullDecimal(l.Price)
			rec.Grade10SoldAt = l.SoldAt
		}
	}

	wasAnomalous := rec.AnomalyFlag
	derive(rec)
	rec.LastUpdated = now
	s.touched[key] = true

	if rec.AnomalyFlag && !wasAnomalous {
		a.logger.Warn("[aggregator] Anomaly on %s: raw average %s above grade 10 price %s",
			key, rec.RawAveragePrice.StringFixed(2), rec.Grade10Price.Decimal.StringFixed(2))
	}

	// Sample timestamps come from the listing alone: sold date, then scrape
	// time, else zero.
	ts := l.SoldAt
	if ts.IsZero() {
		ts = l.ScrapedAt
	}
	return models.Upsert{
		Key:             key,
		Identity:        id,
		Bucket:          l.Bucket,
		Price:           l.Price,
		SampleTimestamp: ts,
		Seq:             l.Seq,
	}
}

// runningMean folds x into a mean over n samples.
func runningMean(mean decimal.Decimal, n int, x decimal.Decimal) decimal.Decimal {
	if n == 0 {
		return x
	}
	total := mean.Mul(decimal.NewFromInt(int64(n))).Add(x)
	return total.Div(decimal.NewFromInt(int64(n + 1)))
}

// supersedes applies the grade 10 policy: the most recent sale by sold date
// wins. A missing date is older than any real one, and on equal dates the
// listing seen later wins.
func supersedes(soldAt, current time.Time, hasCurrent bool) bool {
	if !hasCurrent {
		return true
	}
	return !soldAt.Before(current)
}

// derive recomputes the multiplier and anomaly flag. The anomaly flag never
// suppresses the multiplier.
func derive(rec *models.CardPriceRecord) {
	rec.Multiplier = decimal.NullDecimal{}
	rec.AnomalyFlag = false
	if rec.RawSampleCount == 0 || !rec.Grade10Price.Valid {
		return
	}
	if rec.RawAveragePrice.IsPositive() {
		rec.Multiplier = decimal.NewNullDecimal(rec.Grade10Price.Decimal.Div(rec.RawAveragePrice).Round(4))
	}
	rec.AnomalyFlag = rec.RawAveragePrice.GreaterThan(rec.Grade10Price.Decimal)
}

// Records returns copies of every record, sorted by key.
func (a *Aggregator) Records() []*models.CardPriceRecord {
	return a.collect(func(*shard, string) bool { return true })
}

// Touched returns copies of the records updated since the aggregator was
// created, sorted by key.
func (a *Aggregator) Touched() []*models.CardPriceRecord {
	return a.collect(func(s *shard, key string) bool { return s.touched[key] })
}

func (a *Aggregator) collect(keep func(*shard, string) bool) []*models.CardPriceRecord {
	var out []*models.CardPriceRecord
	for _, s := range a.shards {
		for key, rec := range s.records {
			if keep(s, key) {
				cp := *rec
				out = append(out, &cp)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Recompute builds exact statistics from a full classified list instead of
// running means. Audits compare its output with the running records.
func Recompute(listings []models.ClassifiedListing, at time.Time) []*models.CardPriceRecord {
	type sums struct {
		raw, g9 decimal.Decimal
	}
	records := make(map[string]*models.CardPriceRecord)
	totals := make(map[string]*sums)

	for _, l := range listings {
		if l.Excluded() || l.CanonicalSubjectName == models.UnresolvedSubject {
			continue
		}
		id := l.Identity()
		key := id.Key()
		rec, ok := records[key]
		if !ok {
			rec = &models.CardPriceRecord{Key: key, Identity: id, LastUpdated: at}
			records[key] = rec
			totals[key] = &sums{}
		}
		t := totals[key]
		switch l.Bucket {
		case models.BucketRaw:
			t.raw = t.raw.Add(l.Price)
			rec.RawSampleCount++
		case models.BucketGrade9:
			t.g9 = t.g9.Add(l.Price)
			rec.Grade9SampleCount++
		case models.BucketGrade10:
			if supersedes(l.SoldAt, rec.Grade10SoldAt, rec.Grade10Price.Valid) {
				rec.Grade10Price = decimal.NewNullDecimal(l.Price)
				rec.Grade10SoldAt = l.SoldAt
			}
		}
	}

	out := make([]*models.CardPriceRecord, 0, len(records))
	for key, rec := range records {
		t := totals[key]
		if rec.RawSampleCount > 0 {
			rec.RawAveragePrice = t.raw.Div(decimal.NewFromInt(int64(rec.RawSampleCount)))
		}
		if rec.Grade9SampleCount > 0 {
			rec.Grade9AveragePrice = t.g9.Div(decimal.NewFromInt(int64(rec.Grade9SampleCount)))
		}
		derive(rec)
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
