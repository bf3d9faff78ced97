package scraper

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"cardprice/utils"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// HTTPSource fetches server-rendered pages with a plain HTTP client.
type HTTPSource struct {
	client *resty.Client
	retry  *utils.RetryConfig
	logger *utils.Logger
}

// NewHTTPSource creates an HTTPSource retrying failed fetches up to
// maxRetries times.
func NewHTTPSource(maxRetries int, logger *utils.Logger) *HTTPSource {
	client := resty.New().
		SetTimeout(30*time.Second).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept-Language", "en-US,en;q=0.9")
	return &HTTPSource{
		client: client,
		retry: &utils.RetryConfig{
			MaxAttempts: maxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		logger: logger,
	}
}

func (h *HTTPSource) Fetch(ctx context.Context, url string) (string, error) {
	var body string
	err := h.retry.Do(ctx, "fetch "+url, func() error {
		res, err := h.client.R().
			SetContext(ctx).
			Get(url)
		if err != nil {
			return err
		}
		if res.IsError() {
			err := fmt.Errorf("status %d", res.StatusCode())
			// Client errors other than throttling will not change on retry.
			if code := res.StatusCode(); code < 500 && code != http.StatusTooManyRequests {
				return utils.Permanent(err)
			}
			return err
		}
		body = res.String()
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("scraper: %w", err)
	}
	h.logger.Debug("[http] Fetched %s (%d bytes)", url, len(body))
	return body, nil
}

func (h *HTTPSource) Close() error { return nil }
