package deduplication

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
)

// Service implements the Deduplicator interface. Identity is the SHA-256 of
// the file content, so a renamed copy of an ingested file is a duplicate.
type Service struct {
	hasher   Hasher
	hashRepo HashRepository
	logger   *slog.Logger
}

// NewService creates a new deduplication service
func NewService(hasher Hasher, hashRepo HashRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		hasher:   hasher,
		hashRepo: hashRepo,
		logger:   logger,
	}
}

// Check hashes path and looks the hash up in the ingestion log
func (s *Service) Check(ctx context.Context, path string) (*Result, error) {
	hash, size, err := s.hasher.Hash(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to hash file: %w", err)
	}

	result := &Result{Hash: hash, Size: size}

	original, err := s.hashRepo.FindByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to look up file hash: %w", err)
	}

	if original != nil {
		result.Duplicate = true
		result.Original = original

		s.logger.Info("duplicate file skipped",
			slog.String("file", filepath.Base(path)),
			slog.String("hash", hash),
			slog.String("original_file", original.FileName),
			slog.Time("original_ingested_at", original.IngestedAt))
		return result, nil
	}

	s.logger.Debug("file hash not seen before",
		slog.String("file", filepath.Base(path)),
		slog.String("hash", hash),
		slog.Int64("size", size))

	return result, nil
}
