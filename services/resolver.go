package services

import (
	"strings"

	"github.com/antzucaro/matchr"

	"cardprice/config"
	"cardprice/models"
	"cardprice/utils"
)

// suggestionThreshold is the Jaro-Winkler similarity above which a near-miss
// override key is reported to curators.
const suggestionThreshold = 0.92

// Resolution is the Name Resolver's answer for one listing.
type Resolution struct {
	Name         string
	FromOverride bool
	// Suggestion names an override entry that almost matched. It is only
	// reported, never applied.
	Suggestion string
}

// Resolver maps subject-name candidates to canonical names. The override
// table always wins over the formatting heuristics.
type Resolver struct {
	overrides map[string]string
	titles    *phraseTable
	keys      []string
	logger    *utils.Logger
}

// NewResolver indexes the subject override table of v. Canonical names are
// indexed too, so a candidate that already is a canonical name resolves to
// itself through the table.
func NewResolver(v *config.Vocabulary, logger *utils.Logger) *Resolver {
	r := &Resolver{
		overrides: make(map[string]string, len(v.Subjects)*2),
		titles:    newEntryTable(v.Subjects),
		logger:    logger,
	}
	for _, e := range v.Subjects {
		name := strings.TrimSpace(e.Name)
		for _, k := range []string{config.NormalizePhrase(e.Match), config.NormalizePhrase(e.Name)} {
			if _, dup := r.overrides[k]; dup {
				continue
			}
			r.overrides[k] = name
			r.keys = append(r.keys, k)
		}
	}
	return r
}

// Resolve returns the canonical subject for candidate. An empty candidate
// falls back to override phrases found in normalizedTitle and otherwise
// resolves to models.UnresolvedSubject, never to an empty string.
func (r *Resolver) Resolve(candidate, normalizedTitle string) Resolution {
	key := config.NormalizePhrase(candidate)
	if name, ok := r.overrides[key]; ok {
		return Resolution{Name: name, FromOverride: true}
	}

	if key == "" {
		if s, ok := r.titles.best(tokenize(normalizedTitle)); ok {
			return Resolution{Name: s.name, FromOverride: true}
		}
		r.logger.Debug("[resolver] no subject in %q", normalizedTitle)
		return Resolution{Name: models.UnresolvedSubject}
	}

	res := Resolution{Name: FormatName(candidate)}
	if s, score := r.nearest(key); score >= suggestionThreshold {
		res.Suggestion = r.overrides[s]
		r.logger.Debug("[resolver] %q resembles override %q (%.2f)", res.Name, res.Suggestion, score)
	}
	return res
}

func (r *Resolver) nearest(key string) (string, float64) {
	best, bestScore := "", 0.0
	for _, k := range r.keys {
		if score := matchr.JaroWinkler(key, k, false); score > bestScore {
			best, bestScore = k, score
		}
	}
	return best, bestScore
}
