package contract

import (
	"context"
	"errors"

	"ai-docqa-be/internal/entity"
)

// CollectionRepository is the vector collection store. Implementations hand back only entity records.
type CollectionRepository interface {
	// Create is get-or-create; creating an existing collection is not an error.
	Create(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]string, error)
	Count(ctx context.Context, name string) (int64, error)
	// Upsert inserts or replaces records by id within the named collection.
	Upsert(ctx context.Context, name string, records []*entity.ChunkRecord) error
	// Query returns at most n matches ordered by ascending distance. Records of a different
	// dimension than vector are never compared.
	Query(ctx context.Context, name string, vector []float32, n int) ([]*entity.ChunkMatch, error)
	Delete(ctx context.Context, name string) error
	// Reset destroys the whole store and leaves an empty, usable one behind.
	Reset(ctx context.Context) error
	// Location describes where the data lives, for diagnostics.
	Location() string
	Backend() string
}

var ErrCollectionNotFound = errors.New("collection not found")
