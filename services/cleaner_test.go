package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"cardprice/models"
	"cardprice/utils"
)

func newTestLogger() *utils.Logger { return utils.NewDiscardLogger() }

func TestCleanerParsePrice(t *testing.T) {
	c := NewCleaner(newTestLogger())

	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"$1,234.50", "1234.5", true},
		{"US $45.00", "45", true},
		{"45 USD", "45", true},
		{"$10 to $20", "10", true},
		{"£3,500", "3500", true},
		{"$12345", "12345", true},
		{"", "0", false},
		{"Best Offer", "0", false},
		{"$0.00", "0", false},
	}

	for _, tt := range tests {
		got, ok := c.parsePrice(tt.raw)
		if ok != tt.ok || !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("parsePrice(%q) = %s, %v; want %s, %v", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCleanerParseSoldDate(t *testing.T) {
	c := NewCleaner(newTestLogger())

	tests := []struct {
		raw  string
		want time.Time
	}{
		{"Sold  Oct 5, 2024", time.Date(2024, 10, 5, 0, 0, 0, 0, time.UTC)},
		{"2024-10-05", time.Date(2024, 10, 5, 0, 0, 0, 0, time.UTC)},
		{"10/05/2024", time.Date(2024, 10, 5, 0, 0, 0, 0, time.UTC)},
		{"Ended: 2024-10-05 14:30:00", time.Date(2024, 10, 5, 14, 30, 0, 0, time.UTC)},
		{"yesterday", time.Time{}},
		{"", time.Time{}},
	}

	for _, tt := range tests {
		got := c.parseSoldDate(tt.raw)
		if !got.Equal(tt.want) {
			t.Errorf("parseSoldDate(%q) = %v; want %v", tt.raw, got, tt.want)
		}
	}
}

func TestCleanerClean(t *testing.T) {
	c := NewCleaner(newTestLogger())

	got, reason := c.Clean(models.RawListing{
		Title:         "  2024 Topps Chrome \t JR Smith ",
		PriceText:     "$250.00",
		ConditionText: " Graded  - PSA 10 ",
		ItemID:        " 123456789012 ",
		SoldDate:      "Oct 5, 2024",
	})
	if reason != models.ReasonNone {
		t.Fatalf("Clean() reason = %q; want none", reason)
	}
	if got.Title != "2024 Topps Chrome JR Smith" {
		t.Errorf("Title = %q", got.Title)
	}
	if got.ConditionText != "Graded - PSA 10" {
		t.Errorf("ConditionText = %q", got.ConditionText)
	}
	if got.ItemID != "123456789012" {
		t.Errorf("ItemID = %q", got.ItemID)
	}
	if !got.Price.Equal(decimal.NewFromInt(250)) {
		t.Errorf("Price = %s; want 250", got.Price)
	}
	if got.SoldAt.IsZero() {
		t.Errorf("SoldAt is zero; want Oct 5, 2024")
	}
}

func TestCleanerRejectsMissingPrice(t *testing.T) {
	c := NewCleaner(newTestLogger())

	_, reason := c.Clean(models.RawListing{Title: "2024 Topps Chrome JR Smith", PriceText: "See description"})
	if reason != models.ReasonUnparseablePrice {
		t.Errorf("Clean() reason = %q; want %q", reason, models.ReasonUnparseablePrice)
	}
}

func TestCleanerKeepsUnreadableDate(t *testing.T) {
	c := NewCleaner(newTestLogger())

	got, reason := c.Clean(models.RawListing{Title: "2024 Topps Chrome JR Smith", PriceText: "$5", SoldDate: "last week"})
	if reason != models.ReasonNone {
		t.Fatalf("Clean() reason = %q; want none", reason)
	}
	if !got.SoldAt.IsZero() {
		t.Errorf("SoldAt = %v; want zero", got.SoldAt)
	}
}
