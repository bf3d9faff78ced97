package services

import (
	"regexp"
	"sort"
	"strings"

	"cardprice/config"
)

var gradeNumber = regexp.MustCompile(`^(10|[1-9](?:\.5)?)$`)

// gradeHit is one grading-authority mention and the grade found near it.
type gradeHit struct {
	authority string
	grade     string
	tracked   bool
}

// gradeScan is the grade evidence found in one piece of text.
type gradeScan struct {
	hits    []gradeHit
	claimed []int
}

func (g gradeScan) competing() bool {
	for _, h := range g.hits {
		if !h.tracked {
			return true
		}
	}
	return false
}

// trackedGrades returns the distinct grades attached to the tracked authority
// across scans. An empty string stands for mentions with no grade in range; it
// is only reported when no mention carries a grade, so "PSA 10 ... PSA" is a
// single grade.
func trackedGrades(scans ...gradeScan) map[string]bool {
	out := make(map[string]bool)
	for _, g := range scans {
		for _, h := range g.hits {
			if h.tracked {
				out[h.grade] = true
			}
		}
	}
	if len(out) > 1 {
		delete(out, "")
	}
	return out
}

func (g gradeScan) any() bool { return len(g.hits) > 0 }

// gradeScanner finds grading-authority names by whole-token comparison and
// accepts a grade number only within a proximity window of such a name.
type gradeScanner struct {
	tracked     string
	authorities map[string]bool
	prefixes    []string // authorities, longest first
	gradeWords  map[string]bool
	proximity   int
}

func newGradeScanner(g config.Grading) *gradeScanner {
	s := &gradeScanner{
		tracked:     config.NormalizePhrase(g.Tracked),
		authorities: make(map[string]bool),
		gradeWords:  make(map[string]bool),
		proximity:   g.Proximity,
	}
	for _, a := range g.Authorities {
		a = config.NormalizePhrase(a)
		if !s.authorities[a] {
			s.authorities[a] = true
			s.prefixes = append(s.prefixes, a)
		}
	}
	sort.Slice(s.prefixes, func(i, j int) bool {
		if len(s.prefixes[i]) != len(s.prefixes[j]) {
			return len(s.prefixes[i]) > len(s.prefixes[j])
		}
		return s.prefixes[i] < s.prefixes[j]
	})
	for _, w := range g.GradeWords {
		s.gradeWords[config.NormalizePhrase(w)] = true
	}
	return s
}

// splitAuthority recognizes "psa", "psa10", "psa-10" and "bgs9.5". Glued
// forms try the longest authority name first.
func (s *gradeScanner) splitAuthority(tok string) (authority, glued string, ok bool) {
	if s.authorities[tok] {
		return tok, "", true
	}
	for _, a := range s.prefixes {
		if !strings.HasPrefix(tok, a) {
			continue
		}
		rest := strings.TrimPrefix(strings.TrimPrefix(tok, a), "-")
		if gradeNumber.MatchString(rest) {
			return a, rest, true
		}
	}
	return "", "", false
}

func (s *gradeScanner) scan(toks []token) gradeScan {
	var out gradeScan
	for i, t := range toks {
		authority, glued, ok := s.splitAuthority(t.lower)
		if !ok {
			continue
		}
		hit := gradeHit{authority: authority, tracked: authority == s.tracked, grade: glued}
		out.claimed = append(out.claimed, i)

		if hit.grade == "" {
			hit.grade = s.gradeAfter(toks, i, &out)
		}
		if hit.grade == "" {
			hit.grade = s.gradeBefore(toks, i, &out)
		}
		out.hits = append(out.hits, hit)
	}
	return out
}

func (s *gradeScanner) gradeAfter(toks []token, i int, out *gradeScan) string {
	var words []int
	for j := i + 1; j < len(toks) && j <= i+s.proximity; j++ {
		lower := toks[j].lower
		if _, _, isAuth := s.splitAuthority(lower); isAuth {
			return ""
		}
		if gradeNumber.MatchString(lower) {
			out.claimed = append(out.claimed, words...)
			out.claimed = append(out.claimed, j)
			return lower
		}
		if s.gradeWords[lower] {
			words = append(words, j)
		}
	}
	return ""
}

func (s *gradeScanner) gradeBefore(toks []token, i int, out *gradeScan) string {
	for j := i - 1; j >= 0 && j >= i-s.proximity; j-- {
		lower := toks[j].lower
		if _, _, isAuth := s.splitAuthority(lower); isAuth {
			return ""
		}
		if gradeNumber.MatchString(lower) {
			out.claimed = append(out.claimed, j)
			return lower
		}
		if !s.gradeWords[lower] {
			return ""
		}
	}
	return ""
}
