package repositories

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/alejandroruanova/esg-pipeline/internal/core/domain"
)

// ReportRepository tracks generated report versions
type ReportRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewReportRepository creates a new repository instance
func NewReportRepository(db *gorm.DB, logger *slog.Logger) *ReportRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportRepository{db: db, logger: logger}
}

// NextVersion returns the version number the next report of this type gets
func (r *ReportRepository) NextVersion(ctx context.Context, companyID uuid.UUID, reportType string) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.ReportVersion{}).
		Where("company_id = ? AND report_type = ?", companyID, reportType).
		Count(&count).
		Error
	if err != nil {
		return 0, fmt.Errorf("database query failed: %w", err)
	}
	return int(count) + 1, nil
}

// Create records a generated report and its audit entry
func (r *ReportRepository) Create(ctx context.Context, version *domain.ReportVersion, audit *domain.AuditLog) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(version).Error; err != nil {
			return fmt.Errorf("failed to insert report version: %w", err)
		}
		if audit != nil {
			return tx.Create(audit).Error
		}
		return nil
	})
	if err != nil {
		r.logger.Error("failed to record report",
			slog.String("company_id", version.CompanyID.String()),
			slog.Any("error", err))
		return err
	}
	return nil
}

// ListByCompany returns report versions, newest first
func (r *ReportRepository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]domain.ReportVersion, error) {
	var out []domain.ReportVersion
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("version_number DESC").
		Find(&out).
		Error
	if err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return out, nil
}
