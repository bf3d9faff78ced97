package utils

import (
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/purell"
)

// trackingParams are query keys that vary per visit without changing which
// listing a URL points to.
var trackingParams = []string{"_trksid", "_trkparms", "hash", "amdata", "mkevt", "mkcid", "mkrid", "campid", "customid", "toolid"}

// NormalizeURL canonicalizes a listing URL so that visits to the same
// listing compare equal: tracking parameters and fragments are removed and
// the query is sorted. Input without a scheme and host yields "".
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}

	q := u.Query()
	for k := range q {
		if isTrackingParam(k) {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()

	return purell.NormalizeURL(u,
		purell.FlagsSafe|
			purell.FlagsUsuallySafeGreedy|
			purell.FlagRemoveFragment|
			purell.FlagSortQuery,
	)
}

func isTrackingParam(key string) bool {
	key = strings.ToLower(key)
	if strings.HasPrefix(key, "utm_") {
		return true
	}
	for _, p := range trackingParams {
		if key == p {
			return true
		}
	}
	return false
}

// URLSet is a thread-safe set of visited page locations. Web URLs are keyed
// by their canonical form; anything else, such as a file path, by its
// trimmed text.
type URLSet struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

func NewURLSet() *URLSet {
	return &URLSet{seen: make(map[string]struct{})}
}

func urlKey(raw string) string {
	if u := NormalizeURL(raw); u != "" {
		return u
	}
	return strings.TrimSpace(raw)
}

// Add reports whether the location was newly added.
func (s *URLSet) Add(raw string) bool {
	key := urlKey(raw)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[key]; exists {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

func (s *URLSet) Contains(raw string) bool {
	key := urlKey(raw)
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.seen[key]
	return exists
}

func (s *URLSet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}
