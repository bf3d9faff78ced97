package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cardprice/models"
)

var csvHeader = []string{
	"title", "price", "condition", "source_url", "item_id", "sold_date", "scraped_at",
}

// CSVWriter archives raw (uncleaned) listings to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteRaw appends raw listings to the CSV file.
func (c *CSVWriter) WriteRaw(listings []models.RawListing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range listings {
		scraped := ""
		if !l.ScrapedAt.IsZero() {
			scraped = l.ScrapedAt.Format(time.RFC3339)
		}
		row := []string{
			l.Title,
			l.PriceText,
			l.ConditionText,
			l.SourceURL,
			l.ItemID,
			l.SoldDate,
			scraped,
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}

// ReadRawCSV reads listings written by CSVWriter. Columns are matched by
// header name, so files with extra or reordered columns still load; a
// "title" and a "price" column are required.
func ReadRawCSV(r io.Reader) ([]models.RawListing, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"title", "price"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("csv: missing %q column", required)
		}
	}

	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var listings []models.RawListing
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: line %d: %w", line, err)
		}
		l := models.RawListing{
			Title:         field(row, "title"),
			PriceText:     field(row, "price"),
			ConditionText: field(row, "condition"),
			SourceURL:     field(row, "source_url"),
			ItemID:        field(row, "item_id"),
			SoldDate:      field(row, "sold_date"),
		}
		if ts := field(row, "scraped_at"); ts != "" {
			if t, err := time.Parse(time.RFC3339, ts); err == nil {
				l.ScrapedAt = t
			}
		}
		listings = append(listings, l)
	}
	return listings, nil
}

// ReadRawCSVFile opens path and reads it with ReadRawCSV.
func ReadRawCSVFile(path string) ([]models.RawListing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", path, err)
	}
	defer f.Close()
	return ReadRawCSV(f)
}
