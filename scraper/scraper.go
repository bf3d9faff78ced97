package scraper

import (
	"context"
	"errors"
	"strings"
	"time"

	"cardprice/models"
	"cardprice/utils"
)

// Scraper fetches result pages through a PageSource and turns each into
// offset-tagged candidate lists.
type Scraper struct {
	source  PageSource
	isTitle TitleMatcher
	logger  *utils.Logger

	workers     int
	rateLimitMs int
	visited     *utils.URLSet
}

// New creates a Scraper fetching at most workers pages at once with at
// least rateLimitMs between requests.
func New(source PageSource, isTitle TitleMatcher, workers, rateLimitMs int, logger *utils.Logger) *Scraper {
	return &Scraper{
		source:      source,
		isTitle:     isTitle,
		logger:      logger,
		workers:     workers,
		rateLimitMs: rateLimitMs,
		visited:     utils.NewURLSet(),
	}
}

// Scrape fetches every url once, skipping urls already visited by this
// Scraper. Pages come back in input order; pages that failed are left out
// and their errors joined into the returned error.
func (s *Scraper) Scrape(ctx context.Context, urls []string) ([]models.Page, error) {
	pages := make([]*models.Page, len(urls))
	errs := make([]error, len(urls))

	pool := utils.NewWorkerPool(s.workers, time.Duration(s.rateLimitMs)*time.Millisecond)
	for i, url := range urls {
		if !s.visited.Add(url) {
			s.logger.Debug("[scraper] Already visited %s", url)
			continue
		}
		if ctx.Err() != nil {
			errs[i] = ctx.Err()
			continue
		}
		i, url := i, strings.TrimSpace(url)
		pool.Submit(ctx, func() {
			if ctx.Err() != nil {
				errs[i] = ctx.Err()
				return
			}
			body, err := s.source.Fetch(ctx, url)
			if err != nil {
				s.logger.Error("[scraper] %s failed: %v", url, err)
				errs[i] = err
				return
			}
			page, err := ExtractCandidates(strings.NewReader(body), url, s.isTitle)
			if err != nil {
				errs[i] = err
				return
			}
			s.logger.Info("[scraper] %s: %d titles, %d prices, %d item ids",
				url, len(page.Titles), len(page.Prices), len(page.ItemIDs))
			page.FetchedAt = time.Now().UTC()
			pages[i] = &page
		})
	}
	pool.Wait()

	out := make([]models.Page, 0, len(urls))
	for _, p := range pages {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out, errors.Join(errs...)
}
