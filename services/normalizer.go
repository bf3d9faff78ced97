package services

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// initialsConcat3 captures "A.B.C.Word" where the word was glued on.
	initialsConcat3 = regexp.MustCompile(`\b([A-Za-z])\.([A-Za-z])\.([A-Za-z])\.([A-Za-z]{2,})`)
	// initials3 captures a standalone three-letter initialism "A.B.C."
	initials3 = regexp.MustCompile(`\b([A-Za-z])\.([A-Za-z])\.([A-Za-z])\b\.?`)
	// initialsConcat2 captures "J.R.Smith" / "J.R.smith".
	initialsConcat2 = regexp.MustCompile(`\b([A-Za-z])\.([A-Za-z])\.([A-Za-z][a-z]+)`)
	// initials2 captures "J.R." followed by whitespace or end of text.
	initials2 = regexp.MustCompile(`\b([A-Za-z])\.([A-Za-z])\.(\s|$)`)
)

var typographic = strings.NewReplacer(
	"‘", "'", "’", "'", "ʼ", "'",
	"“", `"`, "”", `"`,
	"–", "-", "—", "-",
	" ", " ",
)

// NormalizeTitle turns raw listing title text into the canonical working
// string: diacritics folded, typographic punctuation mapped to ASCII,
// whitespace collapsed, and period-separated initials repaired
// ("J.R.  Smith" and "J.R.Smith" both become "JR Smith"). Text that matches
// none of the initials patterns keeps its punctuation.
func NormalizeTitle(raw string) string {
	s := foldDiacritics(raw)
	s = typographic.Replace(s)
	s = collapseSpace(s)

	s = initialsConcat3.ReplaceAllStringFunc(s, func(m string) string {
		g := initialsConcat3.FindStringSubmatch(m)
		return strings.ToUpper(g[1]+g[2]+g[3]) + " " + g[4]
	})
	s = initials3.ReplaceAllStringFunc(s, func(m string) string {
		g := initials3.FindStringSubmatch(m)
		return strings.ToUpper(g[1] + g[2] + g[3])
	})
	s = initialsConcat2.ReplaceAllStringFunc(s, func(m string) string {
		g := initialsConcat2.FindStringSubmatch(m)
		return strings.ToUpper(g[1]+g[2]) + " " + g[3]
	})
	s = initials2.ReplaceAllStringFunc(s, func(m string) string {
		g := initials2.FindStringSubmatch(m)
		return strings.ToUpper(g[1]+g[2]) + g[3]
	})

	return collapseSpace(s)
}

func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
