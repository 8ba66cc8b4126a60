package deduplication

import (
	"context"

	"github.com/alejandroruanova/esg-pipeline/internal/core/domain"
)

// Result describes the outcome of a duplicate check for one file
type Result struct {
	Hash      string               `json:"hash"`
	Size      int64                `json:"size"`
	Duplicate bool                 `json:"duplicate"`
	Original  *domain.IngestionLog `json:"original,omitempty"`
}

// HashRepository looks up previously ingested files by content hash
type HashRepository interface {
	// FindByHash returns the log entry for hash, or nil when unseen
	FindByHash(ctx context.Context, hash string) (*domain.IngestionLog, error)
}

// Hasher computes the content hash and size of a file
type Hasher interface {
	Hash(ctx context.Context, path string) (string, int64, error)
}

// Deduplicator defines the interface for file deduplication
type Deduplicator interface {
	// Check hashes path and reports whether the content was ingested before
	Check(ctx context.Context, path string) (*Result, error)
}
