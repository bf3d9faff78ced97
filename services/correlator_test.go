package services

import (
	"testing"

	"cardprice/models"
)

func TestCorrelatorWindowIsInclusiveAndBounded(t *testing.T) {
	const window = 400
	c := NewCorrelator(window, newTestLogger())

	page := models.Page{
		Titles: []models.Candidate{{Offset: 1000, Text: "2024 Topps Chrome JR Smith"}},
		Prices: []models.Candidate{
			{Offset: 1000 + window + 1, Text: "$99.00"},
			{Offset: 1000 + window - 1, Text: "$25.00"},
		},
	}
	listings, rejections := c.Correlate(page)
	if len(rejections) != 0 {
		t.Fatalf("got %d rejections; want 0", len(rejections))
	}
	if len(listings) != 1 || listings[0].PriceText != "$25.00" {
		t.Fatalf("Correlate() = %+v; want the price inside the window", listings)
	}

	page.Prices = []models.Candidate{{Offset: 1000 + window, Text: "$30.00"}}
	listings, _ = c.Correlate(page)
	if len(listings) != 1 || listings[0].PriceText != "$30.00" {
		t.Errorf("price exactly %d chars away was not attached: %+v", window, listings)
	}
}

func TestCorrelatorFailsClosed(t *testing.T) {
	c := NewCorrelator(100, newTestLogger())

	listings, rejections := c.Correlate(models.Page{
		Titles: []models.Candidate{{Offset: 10, Text: "2024 Topps Chrome JR Smith"}},
		Prices: []models.Candidate{{Offset: 500, Text: "$25.00"}},
	})
	if len(listings) != 0 {
		t.Errorf("got %d listings; want 0", len(listings))
	}
	if len(rejections) != 1 || rejections[0].Reason != models.ReasonNoPriceInWindow {
		t.Fatalf("rejections = %+v; want one %s", rejections, models.ReasonNoPriceInWindow)
	}
	if rejections[0].Title != "2024 Topps Chrome JR Smith" {
		t.Errorf("rejection title = %q", rejections[0].Title)
	}
}

func TestCorrelatorNearest(t *testing.T) {
	c := NewCorrelator(100, newTestLogger())

	tests := []struct {
		name   string
		prices []models.Candidate
		want   string
	}{
		{"closer after", []models.Candidate{{Offset: 60, Text: "before"}, {Offset: 130, Text: "after"}}, "after"},
		{"closer before", []models.Candidate{{Offset: 90, Text: "before"}, {Offset: 150, Text: "after"}}, "before"},
		{"tie prefers after", []models.Candidate{{Offset: 80, Text: "before"}, {Offset: 120, Text: "after"}}, "after"},
	}

	for _, tt := range tests {
		listings, _ := c.Correlate(models.Page{
			Titles: []models.Candidate{{Offset: 100, Text: "title"}},
			Prices: tt.prices,
		})
		if len(listings) != 1 || listings[0].PriceText != tt.want {
			t.Errorf("%s: got %+v; want price %q", tt.name, listings, tt.want)
		}
	}
}

func TestCorrelatorSharesPricesAndKeepsOrder(t *testing.T) {
	c := NewCorrelator(100, newTestLogger())

	listings, rejections := c.Correlate(models.Page{
		Titles: []models.Candidate{
			{Offset: 200, Text: "second"},
			{Offset: 100, Text: "first"},
		},
		Prices:  []models.Candidate{{Offset: 150, Text: "$10.00"}},
		ItemIDs: []models.Candidate{{Offset: 160, Text: "123456789012"}},
	})
	if len(rejections) != 0 {
		t.Fatalf("got %d rejections; want 0", len(rejections))
	}
	if len(listings) != 2 {
		t.Fatalf("got %d listings; want 2", len(listings))
	}
	if listings[0].Title != "first" || listings[1].Title != "second" {
		t.Errorf("titles out of source order: %q, %q", listings[0].Title, listings[1].Title)
	}
	for _, l := range listings {
		if l.PriceText != "$10.00" {
			t.Errorf("%s: price %q; want the shared $10.00", l.Title, l.PriceText)
		}
	}
	if listings[0].ItemID != "123456789012" {
		t.Errorf("first: item id %q; want 123456789012", listings[0].ItemID)
	}
	if listings[1].ItemID != "123456789012" {
		t.Errorf("second: item id %q; want the id within its window too", listings[1].ItemID)
	}
}

func TestCorrelatorItemIDIsOptional(t *testing.T) {
	c := NewCorrelator(50, newTestLogger())

	listings, _ := c.Correlate(models.Page{
		Titles:  []models.Candidate{{Offset: 0, Text: "title"}},
		Prices:  []models.Candidate{{Offset: 20, Text: "$5"}},
		ItemIDs: []models.Candidate{{Offset: 900, Text: "123456789012"}},
	})
	if len(listings) != 1 {
		t.Fatalf("got %d listings; want 1", len(listings))
	}
	if listings[0].ItemID != "" {
		t.Errorf("ItemID = %q; want none outside the window", listings[0].ItemID)
	}
}
