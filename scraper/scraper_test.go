package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardprice/utils"
)

type fakeSource struct {
	mu     sync.Mutex
	pages  map[string]string
	counts map[string]int
}

func (f *fakeSource) Fetch(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[url]++
	body, ok := f.pages[url]
	if !ok {
		return "", errors.New("not found")
	}
	return body, nil
}

func (f *fakeSource) Close() error { return nil }

func TestScrapeKeepsOrderAndReportsFailures(t *testing.T) {
	src := &fakeSource{
		pages: map[string]string{
			"a": resultsPage,
			"b": `<html><body><p>2019 Topps Pete Alonso</p><p>$12.00</p></body></html>`,
		},
		counts: make(map[string]int),
	}
	s := New(src, cardTitle, 3, 0, utils.NewDiscardLogger())

	pages, err := s.Scrape(context.Background(), []string{"a", "missing", "b", "a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	require.Len(t, pages, 2)
	assert.Equal(t, "a", pages[0].SourceURL)
	assert.Equal(t, "b", pages[1].SourceURL)
	assert.Len(t, pages[1].Titles, 1)
	assert.Len(t, pages[1].Prices, 1)
	assert.False(t, pages[0].FetchedAt.IsZero())

	assert.Equal(t, 1, src.counts["a"], "a visited url is fetched once")
}

func TestScrapeCancelled(t *testing.T) {
	src := &fakeSource{pages: map[string]string{"a": resultsPage}, counts: make(map[string]int)}
	s := New(src, cardTitle, 1, 0, utils.NewDiscardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pages, err := s.Scrape(ctx, []string{"a"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, pages)
	assert.Zero(t, src.counts["a"])
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.html")
	require.NoError(t, os.WriteFile(path, []byte(resultsPage), 0644))

	body, err := FileSource{}.Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, resultsPage, body)

	_, err = FileSource{}.Fetch(context.Background(), filepath.Join(t.TempDir(), "missing.html"))
	assert.Error(t, err)
}

func TestHTTPSource(t *testing.T) {
	var gone atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/results" {
			gone.Add(1)
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(resultsPage))
	}))
	defer srv.Close()

	src := NewHTTPSource(3, utils.NewDiscardLogger())
	defer src.Close()

	body, err := src.Fetch(context.Background(), srv.URL+"/results")
	require.NoError(t, err)
	assert.Equal(t, resultsPage, body)

	_, err = src.Fetch(context.Background(), srv.URL+"/gone")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.Equal(t, int32(1), gone.Load(), "a 404 is not retried")
}
