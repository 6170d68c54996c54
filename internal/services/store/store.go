package store

import (
	"context"
	"errors"

	"github.com/phambaophuc/image-seo-metadata/internal/models"
)

var ErrNotFound = errors.New("batch not found")

// Repository persists one BatchRecord per processed batch.
type Repository interface {
	// Save creates the record with Downloadable=true.
	Save(ctx context.Context, batchID string, items []models.ItemResult) (*models.BatchRecord, error)
	Get(ctx context.Context, batchID string) (*models.BatchRecord, error)
	// MarkUndownloadable flips Downloadable to false. It never flips back.
	MarkUndownloadable(ctx context.Context, batchID string) (*models.BatchRecord, error)
	// UpdateItemFields merges upd into the metadata of one item.
	UpdateItemFields(ctx context.Context, batchID, itemID string, upd models.MetadataUpdate) (*models.ItemResult, error)
	Close() error
}
