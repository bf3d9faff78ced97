package services

import (
	"strings"
	"unicode"
)

var nameSuffixes = map[string]string{
	"jr":  "Jr.",
	"sr":  "Sr.",
	"ii":  "II",
	"iii": "III",
	"iv":  "IV",
}

// TitleCase capitalizes each word of s. Two-letter all-caps initialisms such
// as "JR" or "DK" are kept, as are segments after hyphens and apostrophes
// ("O'Neal", "Smith-Njigba"). A trailing possessive "'s" stays lowercase.
func TitleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = titleWord(w)
	}
	return strings.Join(words, " ")
}

// FormatName applies the name punctuation conventions on top of TitleCase:
// generational suffixes become "Jr.", "Sr.", "II", "III" or "IV" when they
// follow a first word.
func FormatName(s string) string {
	words := strings.Fields(TitleCase(s))
	for i, w := range words {
		if i == 0 {
			continue
		}
		if suffix, ok := nameSuffixes[strings.ToLower(strings.TrimRight(w, "."))]; ok {
			words[i] = suffix
		}
	}
	return strings.Join(words, " ")
}

func titleWord(w string) string {
	if keepInitialism(w) {
		return w
	}
	lower := strings.ToLower(w)
	possessive := strings.HasSuffix(lower, "'s") && len(lower) > 2
	if possessive {
		lower = strings.TrimSuffix(lower, "'s")
	}

	var b strings.Builder
	upperNext := true
	for _, r := range lower {
		if upperNext && unicode.IsLetter(r) {
			b.WriteRune(unicode.ToUpper(r))
			upperNext = false
			continue
		}
		b.WriteRune(r)
		if r == '-' || r == '\'' || r == '.' {
			upperNext = true
		}
	}
	out := b.String()

	if len(out) > 2 && strings.HasPrefix(out, "Mc") {
		out = "Mc" + strings.ToUpper(out[2:3]) + out[3:]
	}
	if possessive {
		out += "'s"
	}
	return out
}

// keepInitialism matches two-letter capitals that read as initials rather
// than a word: no vowel ("DK", "TJ") or ending in J ("AJ", "CJ").
func keepInitialism(w string) bool {
	if len(w) != 2 || strings.ToUpper(w) != w {
		return false
	}
	for _, r := range w {
		if !unicode.IsUpper(r) {
			return false
		}
	}
	if w[1] == 'J' {
		return true
	}
	return !strings.ContainsAny(w, "AEIOUY")
}
