package repositories

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/alejandroruanova/esg-pipeline/internal/core/domain"
)

// AuditRepository appends to and reads the audit trail
type AuditRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewAuditRepository creates a new repository instance
func NewAuditRepository(db *gorm.DB, logger *slog.Logger) *AuditRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditRepository{db: db, logger: logger}
}

// Append writes one audit entry
func (r *AuditRepository) Append(ctx context.Context, entry *domain.AuditLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		r.logger.Error("failed to append audit entry",
			slog.String("action", entry.Action),
			slog.Any("error", err))
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// Recent returns the newest entries first
func (r *AuditRepository) Recent(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	var out []domain.AuditLog
	q := r.db.WithContext(ctx).Order("timestamp DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return out, nil
}

// Reset deletes every row of every pipeline table, then records the reset
func (r *AuditRepository) Reset(ctx context.Context) error {
	models := domain.Models()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		global := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		for i := len(models) - 1; i >= 0; i-- {
			if err := global.Delete(models[i]).Error; err != nil {
				return fmt.Errorf("failed to clear %T: %w", models[i], err)
			}
		}
		return tx.Create(domain.NewAuditLog(domain.AuditDatabaseReset, "database", "all", "all tables cleared")).Error
	})
	if err != nil {
		r.logger.Error("database reset failed", slog.Any("error", err))
		return err
	}

	r.logger.Warn("database reset", slog.Int("tables", len(models)))
	return nil
}
