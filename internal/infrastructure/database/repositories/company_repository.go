package repositories

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/alejandroruanova/esg-pipeline/internal/core/domain"
	apperrors "github.com/alejandroruanova/esg-pipeline/internal/pkg/errors"
)

// CompanyRepository stores the root aggregate
type CompanyRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewCompanyRepository creates a new repository instance
func NewCompanyRepository(db *gorm.DB, logger *slog.Logger) *CompanyRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &CompanyRepository{db: db, logger: logger}
}

// Create inserts a company and its audit entry
func (r *CompanyRepository) Create(ctx context.Context, company *domain.Company) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(company).Error; err != nil {
			return fmt.Errorf("failed to insert company: %w", err)
		}
		audit := domain.NewAuditLog(domain.AuditCompanyCreated, "company", company.ID.String(),
			fmt.Sprintf("name=%s", company.Name))
		return tx.Create(audit).Error
	})
	if err != nil {
		r.logger.Error("failed to create company",
			slog.String("name", company.Name),
			slog.Any("error", err))
		return err
	}

	r.logger.Info("company created",
		slog.String("company_id", company.ID.String()),
		slog.String("name", company.Name))
	return nil
}

// FindByID loads a company. A missing company yields COMPANY_NOT_FOUND.
func (r *CompanyRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Company, error) {
	var company domain.Company

	err := r.db.WithContext(ctx).Where("id = ?", id).First(&company).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.CompanyNotFound(id.String())
	}
	if err != nil {
		r.logger.Error("failed to load company",
			slog.String("company_id", id.String()),
			slog.Any("error", err))
		return nil, fmt.Errorf("database query failed: %w", err)
	}

	return &company, nil
}

// List returns all companies ordered by onboarding date
func (r *CompanyRepository) List(ctx context.Context) ([]domain.Company, error) {
	var companies []domain.Company
	if err := r.db.WithContext(ctx).Order("onboarding_date ASC").Find(&companies).Error; err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return companies, nil
}
