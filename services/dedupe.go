package services

import (
	"strings"

	"cardprice/models"
	"cardprice/utils"
)

// Deduplicator collapses repeated listings. For each listing only its most
// specific available key is consulted: item id, then normalized source URL,
// then normalized title plus price. The earliest listing of a duplicate set
// is kept.
type Deduplicator struct {
	logger *utils.Logger
}

func NewDeduplicator(logger *utils.Logger) *Deduplicator {
	return &Deduplicator{logger: logger}
}

// Dedupe returns the surviving listings in their original order and the
// number removed.
func (d *Deduplicator) Dedupe(listings []models.ClassifiedListing) ([]models.ClassifiedListing, int) {
	seen := make(map[string]int)
	kept := make([]models.ClassifiedListing, 0, len(listings))

	for _, l := range listings {
		keys := dedupeKeys(l)
		if first, dup := seen[keys[0]]; dup {
			d.logger.Debug("[dedupe] listing %d duplicates listing %d on %s", l.Seq, first, keys[0])
			continue
		}
		for _, k := range keys {
			if _, taken := seen[k]; !taken {
				seen[k] = l.Seq
			}
		}
		kept = append(kept, l)
	}

	removed := len(listings) - len(kept)
	if removed > 0 {
		d.logger.Info("[dedupe] Removed %d duplicate listings", removed)
	}
	return kept, removed
}

// dedupeKeys lists every key a listing carries, most specific first.
func dedupeKeys(l models.ClassifiedListing) []string {
	var keys []string
	if id := strings.TrimSpace(l.ItemID); id != "" {
		keys = append(keys, "id:"+id)
	}
	if u := utils.NormalizeURL(l.SourceURL); u != "" {
		keys = append(keys, "url:"+u)
	}
	title := strings.ToLower(collapseSpace(l.NormalizedTitle))
	return append(keys, "title:"+title+"|"+l.Price.StringFixed(2))
}
