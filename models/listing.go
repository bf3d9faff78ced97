package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawListing holds unprocessed scraped data exactly as the scraper saw it.
// Optional fields are empty strings when the page did not carry them.
// This is written to CSV before any cleaning or transformation.
type RawListing struct {
	Title         string
	PriceText     string
	ConditionText string
	SourceURL     string
	ItemID        string
	SoldDate      string
	ScrapedAt     time.Time
}

// GradeToken is the single grade signal found in a listing title.
type GradeToken int

const (
	GradeTokenNone GradeToken = iota
	GradeTokenRaw
	GradeTokenGrade9
	GradeTokenGrade10
	GradeTokenOtherCompany
)

func (g GradeToken) String() string {
	switch g {
	case GradeTokenRaw:
		return "raw"
	case GradeTokenGrade9:
		return "grade9"
	case GradeTokenGrade10:
		return "grade10"
	case GradeTokenOtherCompany:
		return "other_company"
	default:
		return "none"
	}
}

// ExtractedFields is the typed output of the field extractor. Year is 0 when
// no plausible card year was present; it is never guessed.
type ExtractedFields struct {
	SubjectNameCandidate string
	Year                 int
	Brand                string
	SetName              string
	CardNumber           string
	PrintRun             string
	IsRookie             bool
	IsAutograph          bool
	GradeToken           GradeToken
}

// HasYear reports whether a year was extracted.
func (f ExtractedFields) HasYear() bool { return f.Year != 0 }

// UnresolvedSubject marks a listing whose subject could not be recovered.
// Aggregation refuses to bucket it.
const UnresolvedSubject = "(unresolved)"

// ResolvedListing is ExtractedFields after name resolution.
type ResolvedListing struct {
	NormalizedTitle      string
	CanonicalSubjectName string
	Year                 int
	Brand                string
	SetName              string
	CardNumber           string
	PrintRun             string
	IsRookie             bool
	IsAutograph          bool
	GradeToken           GradeToken
	SubjectFromOverride  bool
	SubjectSuggestion    string
}

// Identity returns the card identity the listing aggregates under.
func (r ResolvedListing) Identity() CardIdentity {
	return CardIdentity{
		Subject:    r.CanonicalSubjectName,
		Year:       r.Year,
		Brand:      r.Brand,
		SetName:    r.SetName,
		CardNumber: r.CardNumber,
		PrintRun:   r.PrintRun,
	}
}

// CorrelatedListing is a resolved listing bound to a price.
type CorrelatedListing struct {
	ResolvedListing
	Seq           int
	Price         decimal.Decimal
	ItemID        string
	SourceURL     string
	ConditionText string
	SoldAt        time.Time
	ScrapedAt     time.Time
}

// GradeBucket is the terminal classification of a listing.
type GradeBucket string

const (
	BucketRaw      GradeBucket = "raw"
	BucketGrade9   GradeBucket = "grade9"
	BucketGrade10  GradeBucket = "grade10"
	BucketExcluded GradeBucket = "excluded"
)

// ClassifiedListing is never reclassified after creation.
type ClassifiedListing struct {
	CorrelatedListing
	Bucket          GradeBucket
	ExclusionReason Reason
}

// Excluded reports whether the listing is kept out of aggregation.
func (c ClassifiedListing) Excluded() bool { return c.Bucket == BucketExcluded }
