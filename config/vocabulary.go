package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

//go:embed vocabulary.yaml
var defaultVocabulary []byte

// ErrInvalidVocabulary marks a malformed vocabulary. It is the only error
// class that aborts a whole batch.
var ErrInvalidVocabulary = errors.New("invalid vocabulary")

// Entry pairs a match phrase with its canonical output.
type Entry struct {
	Match string `yaml:"match"`
	Name  string `yaml:"name"`
}

// Grading configures grade detection.
type Grading struct {
	Tracked     string   `yaml:"tracked"`
	Authorities []string `yaml:"authorities"`
	GradeWords  []string `yaml:"grade_words"`
	Proximity   int      `yaml:"proximity"`
}

// Vocabulary is the static data the extraction rules read. It is loaded once
// per run, validated, and then treated as read-only.
type Vocabulary struct {
	Brands         []Entry  `yaml:"brands"`
	Sets           []Entry  `yaml:"sets"`
	Subjects       []Entry  `yaml:"subjects"`
	Parallels      []string `yaml:"parallels"`
	Stopwords      []string `yaml:"stopwords"`
	Teams          []string `yaml:"teams"`
	RookieWords    []string `yaml:"rookie_words"`
	AutographWords []string `yaml:"autograph_words"`
	RawWords       []string `yaml:"raw_words"`
	BulkMarkers    []string `yaml:"bulk_markers"`
	Grading        Grading  `yaml:"grading"`
}

// DefaultVocabulary returns the built-in vocabulary.
func DefaultVocabulary() (*Vocabulary, error) {
	return ParseVocabulary(defaultVocabulary)
}

// ParseVocabulary decodes and validates a YAML vocabulary document.
func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: parse yaml: %v", ErrInvalidVocabulary, err)
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return &v, nil
}

// LoadVocabulary reads the vocabulary at path (the built-in one when path is
// empty) and merges the optional overlay on top of it. Overlay lists are
// appended; overlay scalars replace the base values.
func LoadVocabulary(path, overlayPath string) (*Vocabulary, error) {
	data := defaultVocabulary
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("vocabulary: read %q: %w", path, err)
		}
		data = raw
	}

	var base Vocabulary
	if err := yaml.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("%w: parse %q: %v", ErrInvalidVocabulary, path, err)
	}

	if overlayPath != "" {
		raw, err := os.ReadFile(overlayPath)
		if err != nil {
			return nil, fmt.Errorf("vocabulary: read overlay %q: %w", overlayPath, err)
		}
		var overlay Vocabulary
		if err := yaml.Unmarshal(raw, &overlay); err != nil {
			return nil, fmt.Errorf("%w: parse overlay %q: %v", ErrInvalidVocabulary, overlayPath, err)
		}
		if err := mergo.Merge(&base, overlay, mergo.WithOverride, mergo.WithAppendSlice); err != nil {
			return nil, fmt.Errorf("vocabulary: merge overlay: %w", err)
		}
	}

	if err := base.Validate(); err != nil {
		return nil, err
	}
	return &base, nil
}

// Validate reports every structural problem in the vocabulary at once.
func (v *Vocabulary) Validate() error {
	var problems []string

	tables := []struct {
		name    string
		entries []Entry
	}{
		{"brands", v.Brands},
		{"sets", v.Sets},
		{"subjects", v.Subjects},
	}
	for _, t := range tables {
		seen := make(map[string]string, len(t.entries))
		for i, e := range t.entries {
			match := NormalizePhrase(e.Match)
			name := strings.TrimSpace(e.Name)
			if match == "" || name == "" {
				problems = append(problems, fmt.Sprintf("%s[%d]: match and name are required", t.name, i))
				continue
			}
			if prev, dup := seen[match]; dup && prev != name {
				problems = append(problems, fmt.Sprintf("%s[%d]: %q maps to both %q and %q", t.name, i, match, prev, name))
				continue
			}
			seen[match] = name
		}
	}

	lists := map[string][]string{
		"parallels":       v.Parallels,
		"stopwords":       v.Stopwords,
		"teams":           v.Teams,
		"rookie_words":    v.RookieWords,
		"autograph_words": v.AutographWords,
		"raw_words":       v.RawWords,
		"bulk_markers":    v.BulkMarkers,
		"grade_words":     v.Grading.GradeWords,
		"authorities":     v.Grading.Authorities,
	}
	for name, list := range lists {
		for i, phrase := range list {
			if NormalizePhrase(phrase) == "" {
				problems = append(problems, fmt.Sprintf("%s[%d]: empty phrase", name, i))
			}
		}
	}

	if len(v.BulkMarkers) == 0 {
		problems = append(problems, "bulk_markers: at least one marker is required")
	}
	if len(v.Grading.Authorities) == 0 {
		problems = append(problems, "grading.authorities: at least one authority is required")
	}
	tracked := NormalizePhrase(v.Grading.Tracked)
	if tracked == "" {
		problems = append(problems, "grading.tracked: required")
	} else {
		found := false
		for _, a := range v.Grading.Authorities {
			if NormalizePhrase(a) == tracked {
				found = true
				break
			}
		}
		if !found {
			problems = append(problems, fmt.Sprintf("grading.tracked: %q is not listed in grading.authorities", tracked))
		}
	}
	if v.Grading.Proximity < 1 {
		problems = append(problems, fmt.Sprintf("grading.proximity: must be >= 1, got %d", v.Grading.Proximity))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidVocabulary, strings.Join(problems, "; "))
	}
	return nil
}

// NormalizePhrase lowercases a phrase and collapses its whitespace so table
// entries compare equal to tokenized title text.
func NormalizePhrase(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
