package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CardIdentity is the composite key identifying a distinct collectible.
type CardIdentity struct {
	Subject    string
	Year       int
	Brand      string
	SetName    string
	CardNumber string
	PrintRun   string
}

// Key renders the identity as a stable, case-insensitive storage key.
func (c CardIdentity) Key() string {
	year := ""
	if c.Year != 0 {
		year = strconv.Itoa(c.Year)
	}
	parts := []string{c.Subject, year, c.Brand, c.SetName, c.CardNumber, c.PrintRun}
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(parts, "|")
}

// CardPriceRecord is the long-lived per-card aggregate. Averages are only
// meaningful when the matching sample count is positive.
type CardPriceRecord struct {
	Key                string
	Identity           CardIdentity
	RawAveragePrice    decimal.Decimal
	RawSampleCount     int
	Grade9AveragePrice decimal.Decimal
	Grade9SampleCount  int
	Grade10Price       decimal.NullDecimal
	Grade10SoldAt      time.Time
	Multiplier         decimal.NullDecimal
	AnomalyFlag        bool
	LastUpdated        time.Time
}

// Upsert is one delta sample to apply against a CardPriceRecord.
type Upsert struct {
	Key             string
	Identity        CardIdentity
	Bucket          GradeBucket
	Price           decimal.Decimal
	SampleTimestamp time.Time
	Seq             int
}

// Rejection records a listing dropped before or during classification. Seq
// is the listing's position in the batch input; for a page run it is the
// title's position on the page.
type Rejection struct {
	Seq    int
	Title  string
	Reason Reason
}

// BatchSummary is the batch-level tally handed to the persistence side.
type BatchSummary struct {
	RunID             string
	ListingsIn        int
	ListingsExcluded  int
	ExclusionReasons  map[Reason]int
	DuplicatesRemoved int
	AnomaliesDetected int
	StartedAt         time.Time
	FinishedAt        time.Time
}

// BatchResult is everything one pipeline run produces.
type BatchResult struct {
	Summary    BatchSummary
	Input      []RawListing
	Classified []ClassifiedListing
	Rejections []Rejection
	Upserts    []Upsert
	Records    []*CardPriceRecord
}
