package services

import (
	"sort"

	"cardprice/models"
	"cardprice/utils"
)

// Correlator pairs independently extracted title, price and item-id
// candidates of one page by character-offset distance. It is greedy per
// title and fails closed: a title with no price inside the window is
// rejected, never given a farther price.
type Correlator struct {
	window int
	logger *utils.Logger
}

// NewCorrelator creates a Correlator accepting candidates at most window
// characters away from a title (inclusive).
func NewCorrelator(window int, logger *utils.Logger) *Correlator {
	return &Correlator{window: window, logger: logger}
}

// Correlate turns one page into raw listings in title source order. A price
// may serve more than one title; each title independently takes the nearest
// price within the window. Item ids are attached the same way but are
// optional.
func (c *Correlator) Correlate(page models.Page) ([]models.RawListing, []models.Rejection) {
	titles := append([]models.Candidate(nil), page.Titles...)
	sort.SliceStable(titles, func(i, j int) bool { return titles[i].Offset < titles[j].Offset })

	var (
		listings   []models.RawListing
		rejections []models.Rejection
	)
	for seq, t := range titles {
		price, ok := c.nearest(t.Offset, page.Prices)
		if !ok {
			c.logger.Debug("[correlator] %s: %q at offset %d has no price within %d chars",
				models.ReasonNoPriceInWindow, t.Text, t.Offset, c.window)
			rejections = append(rejections, models.Rejection{
				Seq:    seq,
				Title:  t.Text,
				Reason: models.ReasonNoPriceInWindow,
			})
			continue
		}

		listing := models.RawListing{Title: t.Text, PriceText: price.Text}
		if id, ok := c.nearest(t.Offset, page.ItemIDs); ok {
			listing.ItemID = id.Text
		}
		listings = append(listings, listing)
	}

	c.logger.Debug("[correlator] %s: %d titles, %d correlated, %d rejected",
		page.SourceURL, len(titles), len(listings), len(rejections))
	return listings, rejections
}

// nearest returns the candidate closest to offset. Equal distances prefer
// the candidate after the title, then the lower offset.
func (c *Correlator) nearest(offset int, candidates []models.Candidate) (models.Candidate, bool) {
	var (
		best     models.Candidate
		bestDist int
		found    bool
	)
	for _, cand := range candidates {
		dist := abs(cand.Offset - offset)
		if dist > c.window {
			continue
		}
		if !found || dist < bestDist || (dist == bestDist && preferLater(cand, best, offset)) {
			best, bestDist, found = cand, dist, true
		}
	}
	return best, found
}

func preferLater(cand, best models.Candidate, offset int) bool {
	candAfter := cand.Offset >= offset
	bestAfter := best.Offset >= offset
	if candAfter != bestAfter {
		return candAfter
	}
	return cand.Offset < best.Offset
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
