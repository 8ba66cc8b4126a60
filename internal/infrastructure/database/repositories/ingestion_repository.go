package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/alejandroruanova/esg-pipeline/internal/core/domain"
)

// insertBatchSize bounds the rows per INSERT statement
const insertBatchSize = 500

// IngestionRepository persists ingested rows together with their file log
type IngestionRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewIngestionRepository creates a new repository instance
func NewIngestionRepository(db *gorm.DB, logger *slog.Logger) *IngestionRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &IngestionRepository{
		db:     db,
		logger: logger,
	}
}

// FindByHash returns the log entry for a content hash, or nil when the
// content was never ingested
func (r *IngestionRepository) FindByHash(ctx context.Context, hash string) (*domain.IngestionLog, error) {
	var entry domain.IngestionLog

	err := r.db.WithContext(ctx).
		Where("file_hash = ?", hash).
		First(&entry).
		Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("failed to look up file hash",
			slog.String("hash", hash),
			slog.Any("error", err))
		return nil, fmt.Errorf("database query failed: %w", err)
	}

	return &entry, nil
}

// SaveIngestion writes the staged rows, the file log and the audit entry in
// one transaction
func (r *IngestionRepository) SaveIngestion(
	ctx context.Context,
	entry *domain.IngestionLog,
	transactions []domain.Transaction,
	suppliers []domain.Supplier,
	audit *domain.AuditLog,
) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(transactions) > 0 {
			if err := tx.CreateInBatches(&transactions, insertBatchSize).Error; err != nil {
				return fmt.Errorf("failed to insert transactions: %w", err)
			}
		}
		if len(suppliers) > 0 {
			if err := tx.CreateInBatches(&suppliers, insertBatchSize).Error; err != nil {
				return fmt.Errorf("failed to insert suppliers: %w", err)
			}
		}
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("failed to insert ingestion log: %w", err)
		}
		if audit != nil {
			if err := tx.Create(audit).Error; err != nil {
				return fmt.Errorf("failed to insert audit entry: %w", err)
			}
		}
		return nil
	})

	if err != nil {
		r.logger.Error("failed to save ingestion",
			slog.String("file", entry.FileName),
			slog.String("hash", entry.FileHash),
			slog.Any("error", err))
		return err
	}

	r.logger.Info("saved ingestion",
		slog.String("file", entry.FileName),
		slog.Int("transactions", len(transactions)),
		slog.Int("suppliers", len(suppliers)),
		slog.String("status", entry.Status))

	return nil
}

// History returns the most recent ingestion log entries, newest first
func (r *IngestionRepository) History(ctx context.Context, limit int) ([]domain.IngestionLog, error) {
	var entries []domain.IngestionLog

	q := r.db.WithContext(ctx).Order("ingested_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	if err := q.Find(&entries).Error; err != nil {
		r.logger.Error("failed to load ingestion history", slog.Any("error", err))
		return nil, fmt.Errorf("database query failed: %w", err)
	}

	return entries, nil
}
