package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/alejandroruanova/esg-pipeline/internal/core/domain"
)

// TransactionRepository reads ledger rows and supplier rows. Both are
// written only through IngestionRepository.
type TransactionRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewTransactionRepository creates a new repository instance
func NewTransactionRepository(db *gorm.DB, logger *slog.Logger) *TransactionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &TransactionRepository{db: db, logger: logger}
}

// ListByCompany returns the company's transactions. A non-empty period
// filters by ISO date prefix ("2024", "2024-03").
func (r *TransactionRepository) ListByCompany(ctx context.Context, companyID uuid.UUID, period string) ([]domain.Transaction, error) {
	var txs []domain.Transaction

	q := r.db.WithContext(ctx).Where("company_id = ?", companyID)
	if period != "" {
		q = q.Where("date LIKE ?", period+"%")
	}

	if err := q.Order("date ASC, row_number ASC").Find(&txs).Error; err != nil {
		r.logger.Error("failed to load transactions",
			slog.String("company_id", companyID.String()),
			slog.Any("error", err))
		return nil, fmt.Errorf("database query failed: %w", err)
	}

	return txs, nil
}

// DistinctAccounts returns the sorted set of account numbers booked by the company
func (r *TransactionRepository) DistinctAccounts(ctx context.Context, companyID uuid.UUID) ([]string, error) {
	var accounts []string

	err := r.db.WithContext(ctx).
		Model(&domain.Transaction{}).
		Where("company_id = ?", companyID).
		Distinct("account_number").
		Pluck("account_number", &accounts).
		Error
	if err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}

	sort.Strings(accounts)
	return accounts, nil
}

// RecentByAccount returns the newest transactions of one account
func (r *TransactionRepository) RecentByAccount(ctx context.Context, companyID uuid.UUID, account string, limit int) ([]domain.Transaction, error) {
	var txs []domain.Transaction

	err := r.db.WithContext(ctx).
		Where("company_id = ? AND account_number = ?", companyID, account).
		Order("date DESC").
		Limit(limit).
		Find(&txs).
		Error
	if err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}

	return txs, nil
}

// SumByAccount returns the signed total booked on one account
func (r *TransactionRepository) SumByAccount(ctx context.Context, companyID uuid.UUID, account string) (float64, error) {
	var total float64

	err := r.db.WithContext(ctx).
		Model(&domain.Transaction{}).
		Select("COALESCE(SUM(amount_eur), 0)").
		Where("company_id = ? AND account_number = ?", companyID, account).
		Scan(&total).
		Error
	if err != nil {
		return 0, fmt.Errorf("database query failed: %w", err)
	}

	return total, nil
}

// CountByCompany returns the number of transactions of the company
func (r *TransactionRepository) CountByCompany(ctx context.Context, companyID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Transaction{}).
		Where("company_id = ?", companyID).
		Count(&count).
		Error
	if err != nil {
		return 0, fmt.Errorf("database query failed: %w", err)
	}
	return count, nil
}

// CountSuppliers returns the number of suppliers of the company
func (r *TransactionRepository) CountSuppliers(ctx context.Context, companyID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Supplier{}).
		Where("company_id = ?", companyID).
		Count(&count).
		Error
	if err != nil {
		return 0, fmt.Errorf("database query failed: %w", err)
	}
	return count, nil
}
