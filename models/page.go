package models

import "time"

// Candidate is one independently extracted value tagged with its character
// offset in the flattened page text.
type Candidate struct {
	Offset int
	Text   string
}

// Page holds the three unordered candidate lists of one unstructured scrape.
type Page struct {
	SourceURL string
	FetchedAt time.Time
	Titles    []Candidate
	Prices    []Candidate
	ItemIDs   []Candidate
}
