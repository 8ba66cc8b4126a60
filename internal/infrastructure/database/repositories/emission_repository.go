package repositories

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/alejandroruanova/esg-pipeline/internal/core/domain"
)

// EmissionRepository stores calculated emission records
type EmissionRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewEmissionRepository creates a new repository instance
func NewEmissionRepository(db *gorm.DB, logger *slog.Logger) *EmissionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmissionRepository{db: db, logger: logger}
}

// ReplacePeriod deletes every record of (company, period) and inserts
// records in their place, all in one transaction
func (r *EmissionRepository) ReplacePeriod(
	ctx context.Context,
	companyID uuid.UUID,
	period string,
	records []domain.EmissionRecord,
	audit *domain.AuditLog,
) error {
	var deleted int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("company_id = ? AND period = ?", companyID, period).
			Delete(&domain.EmissionRecord{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete previous records: %w", res.Error)
		}
		deleted = res.RowsAffected

		if len(records) > 0 {
			if err := tx.Create(&records).Error; err != nil {
				return fmt.Errorf("failed to insert records: %w", err)
			}
		}
		if audit != nil {
			if err := tx.Create(audit).Error; err != nil {
				return fmt.Errorf("failed to insert audit entry: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Error("failed to replace emission records",
			slog.String("company_id", companyID.String()),
			slog.String("period", period),
			slog.Any("error", err))
		return err
	}

	r.logger.Info("emission records replaced",
		slog.String("company_id", companyID.String()),
		slog.String("period", period),
		slog.Int64("deleted", deleted),
		slog.Int("inserted", len(records)))
	return nil
}

// ListByCompany returns every record of the company across periods
func (r *EmissionRepository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]domain.EmissionRecord, error) {
	var records []domain.EmissionRecord
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at ASC, scope ASC, category ASC").
		Find(&records).
		Error
	if err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return records, nil
}
