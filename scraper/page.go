package scraper

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"cardprice/models"
)

var (
	// priceText matches currency amounts such as "$1,234.50", "US $45.00" or "£30"
	priceText = regexp.MustCompile(`(?:US\s?)?[$£€]\s?(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d{2})?`)
	// itemHref captures the numeric listing id of an item link
	itemHref = regexp.MustCompile(`/itm/(?:[^/?#]+/)?(\d{9,14})`)
	// itemText captures "Item number: 123456789012" style labels
	itemText = regexp.MustCompile(`(?i)item\s+(?:number|no\.?|#)\s*:?\s*(\d{9,14})`)
)

// TitleMatcher decides whether a run of page text reads like a listing title.
type TitleMatcher func(text string) bool

// ExtractCandidates flattens an HTML page's visible text nodes into one
// string in document order and returns the title, price and item-id
// candidates found in it, each tagged with its offset in that string.
// Nothing here pairs them up; that is the correlator's job.
func ExtractCandidates(r io.Reader, sourceURL string, isTitle TitleMatcher) (models.Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return models.Page{}, fmt.Errorf("scraper: parse page %s: %w", sourceURL, err)
	}

	page := models.Page{SourceURL: sourceURL}

	var (
		flat    strings.Builder
		anchors = make(map[*html.Node]int)
	)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template", "head":
				return
			case "a":
				anchors[n] = flat.Len()
			}
		}
		if n.Type == html.TextNode {
			text := strings.Join(strings.Fields(n.Data), " ")
			if text != "" {
				offset := flat.Len()
				if isTitle != nil && isTitle(text) {
					page.Titles = append(page.Titles, models.Candidate{Offset: offset, Text: text})
				}
				flat.WriteString(text)
				flat.WriteByte('\n')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}

	text := flat.String()
	for _, loc := range priceText.FindAllStringIndex(text, -1) {
		page.Prices = append(page.Prices, models.Candidate{Offset: loc[0], Text: text[loc[0]:loc[1]]})
	}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		m := itemHref.FindStringSubmatch(href)
		if m == nil {
			return
		}
		offset, ok := anchors[s.Get(0)]
		if !ok {
			return
		}
		page.ItemIDs = append(page.ItemIDs, models.Candidate{Offset: offset, Text: m[1]})
	})
	for _, loc := range itemText.FindAllStringSubmatchIndex(text, -1) {
		page.ItemIDs = append(page.ItemIDs, models.Candidate{Offset: loc[0], Text: text[loc[2]:loc[3]]})
	}

	return page, nil
}
