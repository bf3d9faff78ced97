package scraper

import (
	"context"
	"fmt"
	"os"
)

// PageSource fetches the HTML of one results page.
type PageSource interface {
	Fetch(ctx context.Context, url string) (string, error)
	Close() error
}

// FileSource serves pages saved to disk; the url is the file path.
type FileSource struct{}

func (FileSource) Fetch(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("scraper: read %q: %w", path, err)
	}
	return string(data), nil
}

func (FileSource) Close() error { return nil }
