package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/alejandroruanova/esg-pipeline/internal/core/domain"
)

// MappingRepository stores account to category assignments
type MappingRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewMappingRepository creates a new repository instance
func NewMappingRepository(db *gorm.DB, logger *slog.Logger) *MappingRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &MappingRepository{db: db, logger: logger}
}

// ListByCompany returns the company's mappings ordered by account number
func (r *MappingRepository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]domain.AccountMapping, error) {
	var mappings []domain.AccountMapping
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("account_number ASC").
		Find(&mappings).
		Error
	if err != nil {
		r.logger.Error("failed to load mappings",
			slog.String("company_id", companyID.String()),
			slog.Any("error", err))
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return mappings, nil
}

// FindByAccount returns the mapping for one account, or nil
func (r *MappingRepository) FindByAccount(ctx context.Context, companyID uuid.UUID, account string) (*domain.AccountMapping, error) {
	var m domain.AccountMapping
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND account_number = ?", companyID, account).
		First(&m).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return &m, nil
}

// FindConfirmedByName returns confirmed mappings of any company whose
// account name equals name
func (r *MappingRepository) FindConfirmedByName(ctx context.Context, name string) ([]domain.AccountMapping, error) {
	var mappings []domain.AccountMapping
	err := r.db.WithContext(ctx).
		Where("account_name = ? AND confirmed_by IN ?", name,
			[]string{domain.ConfirmedByHuman, domain.ConfirmedByAuto, domain.ConfirmedByAutoHighConfidence}).
		Find(&mappings).
		Error
	if err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return mappings, nil
}

// Save inserts or overwrites the mapping of (company, account) and appends
// the audit entry in the same transaction
func (r *MappingRepository) Save(ctx context.Context, m *domain.AccountMapping, audit *domain.AuditLog) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "company_id"}, {Name: "account_number"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"account_name", "esg_category", "confidence_score", "confirmed_by",
				"confirmed_at", "source", "rationale", "updated_at",
			}),
		}).Create(m).Error
		if err != nil {
			return fmt.Errorf("failed to upsert mapping: %w", err)
		}
		if audit != nil {
			return tx.Create(audit).Error
		}
		return nil
	})
	if err != nil {
		r.logger.Error("failed to save mapping",
			slog.String("account", m.AccountNumber),
			slog.Any("error", err))
		return err
	}
	return nil
}
