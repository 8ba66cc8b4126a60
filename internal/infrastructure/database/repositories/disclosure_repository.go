package repositories

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/alejandroruanova/esg-pipeline/internal/core/domain"
)

// DisclosureRepository stores the latest assessment per checklist item
type DisclosureRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewDisclosureRepository creates a new repository instance
func NewDisclosureRepository(db *gorm.DB, logger *slog.Logger) *DisclosureRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &DisclosureRepository{db: db, logger: logger}
}

// UpsertAll writes each disclosure keyed by (company, standard ref),
// overwriting the previous assessment
func (r *DisclosureRepository) UpsertAll(ctx context.Context, disclosures []domain.Disclosure) error {
	if len(disclosures) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range disclosures {
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "company_id"}, {Name: "standard_ref"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"disclosure_title", "status", "data_available", "gap_notes", "last_assessed_at",
				}),
			}).Create(&disclosures[i]).Error
			if err != nil {
				return fmt.Errorf("failed to upsert %s: %w", disclosures[i].StandardRef, err)
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Error("failed to save disclosures", slog.Any("error", err))
		return err
	}
	return nil
}

// ListByCompany returns the stored assessments ordered by reference
func (r *DisclosureRepository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]domain.Disclosure, error) {
	var out []domain.Disclosure
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("standard_ref ASC").
		Find(&out).
		Error
	if err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return out, nil
}
