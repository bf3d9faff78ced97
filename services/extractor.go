package services

import (
	"regexp"
	"strconv"
	"strings"

	"cardprice/config"
	"cardprice/models"
)

var (
	yearToken   = regexp.MustCompile(`^(\d{4})$`)
	seasonToken = regexp.MustCompile(`^(\d{4})[-/](\d{2}|\d{4})$`)
	cardNumber  = regexp.MustCompile(`^#([A-Za-z0-9][A-Za-z0-9-]*)$`)
	printRun    = regexp.MustCompile(`^#?(\d{1,5})?/(\d{1,5})$`)
)

// Extractor pulls typed fields out of a normalized title. Each field has its
// own ordered rule list and no field rule reads another field's result. The
// one exception is the subject name: it is taken from the tokens that no
// other rule claimed, so extractSubject runs last and receives the claims
// explicitly.
type Extractor struct {
	minYear, maxYear int

	brands    *phraseTable
	sets      *phraseTable
	subjects  *phraseTable
	parallels *phraseTable
	stopwords *phraseTable
	teams     *phraseTable
	rookie    *phraseTable
	autograph *phraseTable
	raw       *phraseTable
	bulk      *phraseTable
	grades    *gradeScanner
}

// NewExtractor builds an Extractor over a validated vocabulary. Years outside
// [minYear, maxYear] are never treated as card years.
func NewExtractor(v *config.Vocabulary, minYear, maxYear int) *Extractor {
	return &Extractor{
		minYear:   minYear,
		maxYear:   maxYear,
		brands:    newEntryTable(v.Brands),
		sets:      newEntryTable(v.Sets),
		subjects:  newEntryTable(v.Subjects),
		parallels: newWordTable(v.Parallels),
		stopwords: newWordTable(v.Stopwords),
		teams:     newWordTable(v.Teams),
		rookie:    newWordTable(v.RookieWords),
		autograph: newWordTable(v.AutographWords),
		raw:       newWordTable(v.RawWords),
		bulk:      newWordTable(v.BulkMarkers),
		grades:    newGradeScanner(v.Grading),
	}
}

// Extract is a pure function of the normalized title.
func (e *Extractor) Extract(normalized string) models.ExtractedFields {
	toks := tokenize(normalized)
	claimed := make([]bool, len(toks))

	var f models.ExtractedFields

	if year, i, ok := e.extractYear(toks); ok {
		f.Year = year
		claimed[i] = true
	}
	if s, ok := e.brands.best(toks); ok {
		f.Brand = s.name
		claim(claimed, s)
	}
	if s, ok := e.sets.best(toks); ok {
		f.SetName = s.name
		claim(claimed, s)
	}
	if num, i, ok := extractCardNumber(toks); ok {
		f.CardNumber = num
		claimed[i] = true
	}
	if run, i, ok := extractPrintRun(toks); ok {
		f.PrintRun = run
		claimed[i] = true
	}

	f.IsRookie = e.rookie.contains(toks)
	f.IsAutograph = e.autograph.contains(toks)

	scan := e.grades.scan(toks)
	f.GradeToken = e.gradeToken(toks, scan)

	for _, i := range scan.claimed {
		claimed[i] = true
	}
	e.claimKeywords(toks, claimed)

	f.SubjectNameCandidate = e.extractSubject(toks, claimed)
	return f
}

// LooksLikeTitle reports whether a text run reads like a card listing title.
// Page candidate extraction uses it to tell titles from other page text. A
// year alone is not enough ("Sold Oct 5, 2024"); it needs a card number or a
// grading authority next to it.
func (e *Extractor) LooksLikeTitle(text string) bool {
	normalized := NormalizeTitle(text)
	if len(normalized) < 12 {
		return false
	}
	toks := tokenize(normalized)
	if e.brands.contains(toks) || e.sets.contains(toks) {
		return true
	}
	if _, _, ok := e.extractYear(toks); !ok {
		return false
	}
	if _, _, ok := extractCardNumber(toks); ok {
		return true
	}
	return e.grades.scan(toks).any()
}

func (e *Extractor) extractYear(toks []token) (int, int, bool) {
	for i, t := range toks {
		var digits string
		if m := yearToken.FindStringSubmatch(t.text); m != nil {
			digits = m[1]
		} else if m := seasonToken.FindStringSubmatch(t.text); m != nil {
			digits = m[1]
		} else {
			continue
		}
		year, err := strconv.Atoi(digits)
		if err != nil || year < e.minYear || year > e.maxYear {
			continue
		}
		return year, i, true
	}
	return 0, 0, false
}

func extractCardNumber(toks []token) (string, int, bool) {
	for i, t := range toks {
		m := cardNumber.FindStringSubmatch(t.text)
		if m == nil {
			continue
		}
		// "#d" and "#'d" mean serial-numbered, not a card number.
		if strings.EqualFold(m[1], "d") {
			continue
		}
		return "#" + m[1], i, true
	}
	return "", 0, false
}

func extractPrintRun(toks []token) (string, int, bool) {
	for i, t := range toks {
		m := printRun.FindStringSubmatch(t.text)
		if m == nil {
			continue
		}
		denom, err := strconv.Atoi(m[2])
		if err != nil || denom == 0 {
			continue
		}
		if m[1] != "" {
			serial, err := strconv.Atoi(m[1])
			if err != nil || serial == 0 || serial > denom {
				continue
			}
		}
		return "/" + strconv.Itoa(denom), i, true
	}
	return "", 0, false
}

func (e *Extractor) gradeToken(toks []token, scan gradeScan) models.GradeToken {
	if scan.any() {
		if scan.competing() {
			return models.GradeTokenOtherCompany
		}
		grades := trackedGrades(scan)
		if len(grades) == 1 {
			switch {
			case grades["10"]:
				return models.GradeTokenGrade10
			case grades["9"]:
				return models.GradeTokenGrade9
			}
		}
		return models.GradeTokenOtherCompany
	}
	if e.raw.contains(toks) {
		return models.GradeTokenRaw
	}
	return models.GradeTokenNone
}

func (e *Extractor) claimKeywords(toks []token, claimed []bool) {
	tables := []*phraseTable{
		e.parallels, e.stopwords, e.teams,
		e.rookie, e.autograph, e.raw, e.bulk,
	}
	for _, table := range tables {
		for _, s := range table.all(toks) {
			claim(claimed, s)
		}
	}
}

// extractSubject depends on every other rule having claimed its tokens.
// The override table is consulted first over the full title; otherwise the
// longest run of unclaimed alphabetic tokens wins (token count, then
// characters, then earliest).
func (e *Extractor) extractSubject(toks []token, claimed []bool) string {
	if s, ok := e.subjects.best(toks); ok {
		return s.name
	}

	bestStart, bestLen, bestChars := -1, 0, 0
	for i := 0; i < len(toks); {
		if claimed[i] || !isAlphabetic(toks[i].text) {
			i++
			continue
		}
		j, chars := i, 0
		for j < len(toks) && !claimed[j] && isAlphabetic(toks[j].text) {
			chars += len(toks[j].text)
			j++
		}
		if n := j - i; n > bestLen || (n == bestLen && chars > bestChars) {
			bestStart, bestLen, bestChars = i, n, chars
		}
		i = j
	}
	if bestStart < 0 {
		return ""
	}

	words := make([]string, 0, bestLen)
	for _, t := range toks[bestStart : bestStart+bestLen] {
		words = append(words, t.text)
	}
	return TitleCase(strings.Join(words, " "))
}
