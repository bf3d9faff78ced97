package storage

import (
	"context"

	"cardprice/models"
)

// RecordStore is the interface any card record backend must satisfy.
type RecordStore interface {
	// Load returns the stored records for keys, or every record when keys
	// is empty.
	Load(ctx context.Context, keys []string) ([]*models.CardPriceRecord, error)
	// Apply persists one batch atomically: touched records, delta samples
	// and the batch summary.
	Apply(ctx context.Context, result *models.BatchResult) error
	Close() error
}

// RawListingWriter is the interface for persisting unprocessed scraped data.
type RawListingWriter interface {
	WriteRaw(listings []models.RawListing) error
	Close() error
}
