package services

import (
	"strings"
	"unicode"

	"cardprice/config"
)

// token is one whitespace-delimited word of a normalized title with edge
// punctuation removed. Matching everywhere in this package is token-based,
// which gives word-boundary semantics for free.
type token struct {
	text  string
	lower string
}

const edgePunct = ",;:!?()[]{}\"*|~"

func tokenize(s string) []token {
	fields := strings.Fields(s)
	out := make([]token, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, edgePunct)
		f = strings.TrimRight(f, ".")
		if f == "" {
			continue
		}
		out = append(out, token{text: f, lower: strings.ToLower(f)})
	}
	return out
}

// isAlphabetic reports whether a token is a word that could be part of a
// person's name: at least one letter and nothing but letters, apostrophes,
// hyphens and periods.
func isAlphabetic(s string) bool {
	hasLetter := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case r == '\'' || r == '-' || r == '.':
		default:
			return false
		}
	}
	return hasLetter
}

type phrase struct {
	words []string
	name  string
	chars int
}

// span is a half-open token range [start, end) matched by a phrase.
type span struct {
	start, end int
	name       string
	chars      int
}

// phraseTable matches multi-word phrases against a token slice.
type phraseTable struct {
	phrases []phrase
}

func newEntryTable(entries []config.Entry) *phraseTable {
	t := &phraseTable{}
	for _, e := range entries {
		t.add(e.Match, strings.TrimSpace(e.Name))
	}
	return t
}

func newWordTable(words []string) *phraseTable {
	t := &phraseTable{}
	for _, w := range words {
		t.add(w, config.NormalizePhrase(w))
	}
	return t
}

func (t *phraseTable) add(match, name string) {
	norm := config.NormalizePhrase(match)
	if norm == "" {
		return
	}
	t.phrases = append(t.phrases, phrase{words: strings.Fields(norm), name: name, chars: len(norm)})
}

func (p phrase) matchesAt(toks []token, i int) bool {
	if i+len(p.words) > len(toks) {
		return false
	}
	for j, w := range p.words {
		if toks[i+j].lower != w {
			return false
		}
	}
	return true
}

// all returns every occurrence of every phrase, in token order.
func (t *phraseTable) all(toks []token) []span {
	var out []span
	for i := range toks {
		for _, p := range t.phrases {
			if p.matchesAt(toks, i) {
				out = append(out, span{start: i, end: i + len(p.words), name: p.name, chars: p.chars})
			}
		}
	}
	return out
}

// best returns the longest matching phrase; ties go to the earliest position.
func (t *phraseTable) best(toks []token) (span, bool) {
	var found span
	ok := false
	for _, s := range t.all(toks) {
		if !ok || s.chars > found.chars || (s.chars == found.chars && s.start < found.start) {
			found = s
			ok = true
		}
	}
	return found, ok
}

func (t *phraseTable) contains(toks []token) bool {
	for i := range toks {
		for _, p := range t.phrases {
			if p.matchesAt(toks, i) {
				return true
			}
		}
	}
	return false
}

func (t *phraseTable) lookup(s string) (string, bool) {
	norm := config.NormalizePhrase(s)
	for _, p := range t.phrases {
		if strings.Join(p.words, " ") == norm {
			return p.name, true
		}
	}
	return "", false
}

func claim(claimed []bool, s span) {
	for i := s.start; i < s.end && i < len(claimed); i++ {
		claimed[i] = true
	}
}
