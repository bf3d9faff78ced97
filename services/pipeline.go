package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"cardprice/config"
	"cardprice/models"
	"cardprice/utils"
)

var tracer = otel.Tracer("cardprice/services")

// PipelineConfig holds the tunables of one pipeline.
type PipelineConfig struct {
	CorrelationWindow int
	MinYear           int
	MaxYear           int
	Workers           int
	Partitions        int
	// AllowMissingYear aggregates listings without a card year under an
	// identity with an empty year instead of rejecting them.
	AllowMissingYear bool
	// Clock stamps run start/finish and record LastUpdated. Nil means
	// time.Now. Sample timestamps never read it.
	Clock func() time.Time
}

// Pipeline runs raw listings through cleaning, extraction, name resolution,
// classification, deduplication and aggregation. The vocabulary is injected
// once and never mutated. A Pipeline is not safe for concurrent Runs.
type Pipeline struct {
	cfg    PipelineConfig
	logger *utils.Logger

	cleaner    *Cleaner
	extractor  *Extractor
	resolver   *Resolver
	correlator *Correlator
	classifier *Classifier
	dedupe     *Deduplicator

	records []*models.CardPriceRecord
}

// NewPipeline validates vocab and wires the stages. A malformed vocabulary
// fails here with config.ErrInvalidVocabulary, before any listing is seen.
func NewPipeline(cfg PipelineConfig, vocab *config.Vocabulary, logger *utils.Logger) (*Pipeline, error) {
	if vocab == nil {
		return nil, fmt.Errorf("%w: no vocabulary", config.ErrInvalidVocabulary)
	}
	if err := vocab.Validate(); err != nil {
		return nil, err
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Pipeline{
		cfg:        cfg,
		logger:     logger,
		cleaner:    NewCleaner(logger),
		extractor:  NewExtractor(vocab, cfg.MinYear, cfg.MaxYear),
		resolver:   NewResolver(vocab, logger),
		correlator: NewCorrelator(cfg.CorrelationWindow, logger),
		classifier: NewClassifier(vocab),
		dedupe:     NewDeduplicator(logger),
	}, nil
}

// Extractor exposes the field extractor, e.g. for page candidate detection.
func (p *Pipeline) Extractor() *Extractor { return p.extractor }

// Seed sets the persisted records that running statistics continue from.
func (p *Pipeline) Seed(records []*models.CardPriceRecord) {
	p.records = records
}

// Records returns the running records after the last successful Run.
func (p *Pipeline) Records() []*models.CardPriceRecord {
	return p.records
}

// Process classifies a single raw listing. It is pure and safe to call from
// many goroutines. A non-empty reason means the listing was rejected.
func (p *Pipeline) Process(seq int, raw models.RawListing) (models.ClassifiedListing, models.Reason) {
	clean, reason := p.cleaner.Clean(raw)
	if reason != models.ReasonNone {
		return models.ClassifiedListing{}, reason
	}

	normalized := NormalizeTitle(clean.Title)
	fields := p.extractor.Extract(normalized)
	res := p.resolver.Resolve(fields.SubjectNameCandidate, normalized)
	if res.Name == models.UnresolvedSubject {
		return models.ClassifiedListing{}, models.ReasonUnresolvedSubject
	}
	if !fields.HasYear() && !p.cfg.AllowMissingYear {
		return models.ClassifiedListing{}, models.ReasonMissingYear
	}

	return p.classifier.Classify(models.CorrelatedListing{
		ResolvedListing: models.ResolvedListing{
			NormalizedTitle:      normalized,
			CanonicalSubjectName: res.Name,
			Year:                 fields.Year,
			Brand:                fields.Brand,
			SetName:              fields.SetName,
			CardNumber:           fields.CardNumber,
			PrintRun:             fields.PrintRun,
			IsRookie:             fields.IsRookie,
			IsAutograph:          fields.IsAutograph,
			GradeToken:           fields.GradeToken,
			SubjectFromOverride:  res.FromOverride,
			SubjectSuggestion:    res.Suggestion,
		},
		Seq:           seq,
		Price:         clean.Price,
		ItemID:        clean.ItemID,
		SourceURL:     clean.SourceURL,
		ConditionText: clean.ConditionText,
		SoldAt:        clean.SoldAt,
		ScrapedAt:     clean.ScrapedAt,
	}), models.ReasonNone
}

type outcome struct {
	listing models.ClassifiedListing
	reason  models.Reason
}

// Run processes one batch of raw listings in scrape order. Per-listing
// failures become rejections; only cancellation returns an error, and then
// the running records are left exactly as they were before the call.
func (p *Pipeline) Run(ctx context.Context, raw []models.RawListing) (*models.BatchResult, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()
	span.SetAttributes(attribute.Int("listings.in", len(raw)))

	started := p.cfg.Clock()
	p.logger.Info("[pipeline] Processing %d listings", len(raw))

	outcomes, err := p.classifyAll(ctx, raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result := &models.BatchResult{
		Summary: models.BatchSummary{
			RunID:            uuid.NewString(),
			ListingsIn:       len(raw),
			ExclusionReasons: make(map[models.Reason]int),
			StartedAt:        started,
		},
		Input: raw,
	}

	var classified []models.ClassifiedListing
	for i, o := range outcomes {
		if o.reason != models.ReasonNone {
			result.Rejections = append(result.Rejections, models.Rejection{
				Seq:    i,
				Title:  normaliseText(raw[i].Title),
				Reason: o.reason,
			})
			continue
		}
		classified = append(classified, o.listing)
	}

	kept, removed := p.dedupe.Dedupe(classified)
	result.Classified = kept
	result.Summary.DuplicatesRemoved = removed

	for _, r := range result.Rejections {
		result.Summary.ExclusionReasons[r.Reason]++
	}
	for _, l := range kept {
		if l.Excluded() {
			p.logger.Debug("[pipeline] %s: %q", l.ExclusionReason, l.NormalizedTitle)
			result.Summary.ExclusionReasons[l.ExclusionReason]++
		}
	}
	for _, n := range result.Summary.ExclusionReasons {
		result.Summary.ListingsExcluded += n
	}

	agg := NewAggregator(p.cfg.Partitions, p.logger, p.cfg.Clock)
	agg.Seed(p.records)

	aggCtx, aggSpan := tracer.Start(ctx, "Aggregate")
	upserts, err := agg.Apply(aggCtx, kept)
	aggSpan.End()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("pipeline: aggregate: %w", err)
	}
	result.Upserts = upserts

	result.Records = agg.Touched()
	for _, r := range result.Records {
		if r.AnomalyFlag {
			result.Summary.AnomaliesDetected++
		}
	}
	p.records = agg.Records()

	result.Summary.FinishedAt = p.cfg.Clock()
	span.SetAttributes(
		attribute.Int("listings.excluded", result.Summary.ListingsExcluded),
		attribute.Int("duplicates.removed", removed),
		attribute.Int("upserts", len(upserts)),
	)
	p.logger.Info("[pipeline] Batch %s: %d in, %d excluded, %d duplicates, %d samples, %d anomalies",
		result.Summary.RunID, result.Summary.ListingsIn, result.Summary.ListingsExcluded,
		removed, len(upserts), result.Summary.AnomaliesDetected)
	return result, nil
}

// classifyAll runs the pure per-listing stages on a worker pool. Results land
// in their input slot so scrape order survives the fan-out.
func (p *Pipeline) classifyAll(ctx context.Context, raw []models.RawListing) ([]outcome, error) {
	_, span := tracer.Start(ctx, "Classify")
	defer span.End()

	outcomes := make([]outcome, len(raw))
	pool := utils.NewWorkerPool(p.cfg.Workers, 0)
	for i := range raw {
		if err := ctx.Err(); err != nil {
			pool.Wait()
			return nil, fmt.Errorf("pipeline: classify: %w", err)
		}
		i := i
		pool.Submit(ctx, func() {
			l, reason := p.Process(i, raw[i])
			outcomes[i] = outcome{listing: l, reason: reason}
		})
	}
	pool.Wait()
	return outcomes, nil
}

// RunPage correlates one unstructured page and runs the resulting listings.
// Titles without a price in the window are reported as rejections. Every Seq
// in the result (rejections, classified listings, upserts) is the title's
// position on the page in source order.
func (p *Pipeline) RunPage(ctx context.Context, page models.Page) (*models.BatchResult, error) {
	listings, rejected := p.correlator.Correlate(page)
	for i := range listings {
		listings[i].ScrapedAt = page.FetchedAt
	}

	result, err := p.Run(ctx, listings)
	if err != nil {
		return nil, err
	}

	result.Summary.ListingsIn += len(rejected)
	result.Summary.ListingsExcluded += len(rejected)
	for _, r := range rejected {
		result.Summary.ExclusionReasons[r.Reason]++
	}

	positions := titlePositions(len(listings), rejected)
	for i := range result.Rejections {
		result.Rejections[i].Seq = positions[result.Rejections[i].Seq]
	}
	for i := range result.Classified {
		result.Classified[i].Seq = positions[result.Classified[i].Seq]
	}
	for i := range result.Upserts {
		result.Upserts[i].Seq = positions[result.Upserts[i].Seq]
	}
	result.Rejections = append(rejected, result.Rejections...)
	sort.SliceStable(result.Rejections, func(i, j int) bool {
		return result.Rejections[i].Seq < result.Rejections[j].Seq
	})
	return result, nil
}

// titlePositions maps the index of each correlated listing to its title's
// position on the page. The correlator emits listings in title order and
// skips exactly the rejected titles.
func titlePositions(n int, rejected []models.Rejection) []int {
	skip := make(map[int]bool, len(rejected))
	for _, r := range rejected {
		skip[r.Seq] = true
	}
	out := make([]int, 0, n)
	for pos := 0; len(out) < n; pos++ {
		if !skip[pos] {
			out = append(out, pos)
		}
	}
	return out
}
