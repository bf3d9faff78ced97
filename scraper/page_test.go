package scraper

import (
	"strings"
	"testing"
)

const resultsPage = `<!DOCTYPE html>
<html>
<head><title>2024 Topps Chrome results</title><script>var featured = "$999.99";</script></head>
<body>
<ul class="results">
  <li>
    <a href="https://www.ebay.com/itm/2024-topps-chrome-jr-smith/123456789012?hash=item1c"><span>2024 Topps Chrome JR Smith #15 PSA 10</span></a>
    <span class="price">$250.00</span>
  </li>
  <li>
    <a href="https://www.ebay.com/itm/987654321098"><span>2023 Panini Prizm Victor Wembanyama RC</span></a>
    <span class="price">US $1,200.00</span>
    <span>Item number: 555555555555</span>
  </li>
</ul>
<style>.price { color: red }</style>
</body>
</html>`

func cardTitle(text string) bool {
	return strings.Contains(text, "Topps") || strings.Contains(text, "Prizm")
}

func TestExtractCandidates(t *testing.T) {
	page, err := ExtractCandidates(strings.NewReader(resultsPage), "https://example.com/results", cardTitle)
	if err != nil {
		t.Fatalf("ExtractCandidates() error: %v", err)
	}

	if page.SourceURL != "https://example.com/results" {
		t.Errorf("SourceURL = %q", page.SourceURL)
	}

	if len(page.Titles) != 2 {
		t.Fatalf("titles: got %d, want 2 (%+v)", len(page.Titles), page.Titles)
	}
	if page.Titles[0].Text != "2024 Topps Chrome JR Smith #15 PSA 10" {
		t.Errorf("first title = %q", page.Titles[0].Text)
	}
	if page.Titles[1].Text != "2023 Panini Prizm Victor Wembanyama RC" {
		t.Errorf("second title = %q", page.Titles[1].Text)
	}

	if len(page.Prices) != 2 {
		t.Fatalf("prices: got %d, want 2 (script and head text must be skipped): %+v", len(page.Prices), page.Prices)
	}
	if page.Prices[0].Text != "$250.00" || page.Prices[1].Text != "US $1,200.00" {
		t.Errorf("prices = %q, %q", page.Prices[0].Text, page.Prices[1].Text)
	}

	for i, title := range page.Titles {
		price := page.Prices[i]
		if price.Offset <= title.Offset {
			t.Errorf("price %q (offset %d) should follow title %q (offset %d)", price.Text, price.Offset, title.Text, title.Offset)
		}
	}

	ids := make(map[string]int)
	for _, c := range page.ItemIDs {
		ids[c.Text] = c.Offset
	}
	for _, want := range []string{"123456789012", "987654321098", "555555555555"} {
		if _, ok := ids[want]; !ok {
			t.Errorf("item id %s not found in %+v", want, page.ItemIDs)
		}
	}
	if ids["123456789012"] != page.Titles[0].Offset {
		t.Errorf("anchor item id offset = %d; want the offset of its title text %d", ids["123456789012"], page.Titles[0].Offset)
	}
}

func TestExtractCandidatesWithoutMatcher(t *testing.T) {
	page, err := ExtractCandidates(strings.NewReader(resultsPage), "", nil)
	if err != nil {
		t.Fatalf("ExtractCandidates() error: %v", err)
	}
	if len(page.Titles) != 0 {
		t.Errorf("titles: got %d, want 0 without a matcher", len(page.Titles))
	}
	if len(page.Prices) != 2 {
		t.Errorf("prices: got %d, want 2", len(page.Prices))
	}
}
