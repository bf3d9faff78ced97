package services

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"cardprice/models"
	"cardprice/utils"
)

var (
	// priceRegexp captures the first amount, with or without thousands separators
	priceRegexp = regexp.MustCompile(`\d{1,3}(?:,\d{3})+(?:\.\d{1,2})?|\d+(?:\.\d{1,2})?`)
	// soldPrefix strips marketplace labels such as "Sold  Oct 5, 2024"
	soldPrefix = regexp.MustCompile(`(?i)^(?:sold|ended)\s*:?\s*`)
)

var soldDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"2 Jan 2006",
	"01/02/2006",
	"1/2/2006",
}

// CleanListing is a RawListing with its text fields tidied and its price and
// sold date parsed.
type CleanListing struct {
	Title         string
	ConditionText string
	SourceURL     string
	ItemID        string
	Price         decimal.Decimal
	SoldAt        time.Time
	ScrapedAt     time.Time
}

// Cleaner parses the free-text price and date fields of raw listings.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean tidies one raw listing. A listing without a usable positive price
// comes back with models.ReasonUnparseablePrice; an unreadable sold date is
// not an error and leaves SoldAt zero.
func (c *Cleaner) Clean(r models.RawListing) (CleanListing, models.Reason) {
	out := CleanListing{
		Title:         normaliseText(r.Title),
		ConditionText: normaliseText(r.ConditionText),
		SourceURL:     strings.TrimSpace(r.SourceURL),
		ItemID:        strings.TrimSpace(r.ItemID),
		SoldAt:        c.parseSoldDate(r.SoldDate),
		ScrapedAt:     r.ScrapedAt,
	}

	price, ok := c.parsePrice(r.PriceText)
	if !ok {
		c.logger.Debug("[cleaner] %s: %q (price text %q)", models.ReasonUnparseablePrice, out.Title, r.PriceText)
		return out, models.ReasonUnparseablePrice
	}
	out.Price = price
	return out, models.ReasonNone
}

// parsePrice extracts the first amount from a price string.
// Examples:
//
//	"$1,234.50"   → 1234.50
//	"US $45.00"   → 45.00
//	"45 USD"      → 45
//	"$10 to $20"  → 10
func (c *Cleaner) parsePrice(raw string) (decimal.Decimal, bool) {
	match := priceRegexp.FindString(raw)
	if match == "" {
		return decimal.Zero, false
	}

	price, err := decimal.NewFromString(strings.ReplaceAll(match, ",", ""))
	if err != nil {
		return decimal.Zero, false
	}
	if !price.IsPositive() {
		return decimal.Zero, false
	}
	return price, true
}

// parseSoldDate returns the zero time when no layout matches.
func (c *Cleaner) parseSoldDate(raw string) time.Time {
	s := normaliseText(soldPrefix.ReplaceAllString(strings.TrimSpace(raw), ""))
	if s == "" {
		return time.Time{}
	}
	for _, layout := range soldDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	c.logger.Debug("[cleaner] Unrecognised sold date %q", raw)
	return time.Time{}
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
