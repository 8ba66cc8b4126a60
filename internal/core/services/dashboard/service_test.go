package dashboard

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/alejandroruanova/esg-pipeline/internal/core/domain"
	"github.com/alejandroruanova/esg-pipeline/internal/infrastructure/database/repositories"
	apperrors "github.com/alejandroruanova/esg-pipeline/internal/pkg/errors"
	"github.com/alejandroruanova/esg-pipeline/internal/pkg/logger"
)

func setup(t *testing.T) (*gorm.DB, *Service) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "dashboard.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(domain.Models()...))

	log := logger.Discard()
	svc := NewService(Repositories{
		Companies:    repositories.NewCompanyRepository(db, log),
		Transactions: repositories.NewTransactionRepository(db, log),
		Emissions:    repositories.NewEmissionRepository(db, log),
		Mappings:     repositories.NewMappingRepository(db, log),
		Disclosures:  repositories.NewDisclosureRepository(db, log),
		Reports:      repositories.NewReportRepository(db, log),
		Audit:        repositories.NewAuditRepository(db, log),
	}, log)
	return db, svc
}

func TestBuild_UnknownCompany(t *testing.T) {
	_, svc := setup(t)

	_, err := svc.Build(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrCompanyNotFound))
}

func TestBuild_EmptyCompany(t *testing.T) {
	db, svc := setup(t)
	company := &domain.Company{Name: "Leer GmbH"}
	require.NoError(t, db.Create(company).Error)

	d, err := svc.Build(context.Background(), company.ID)
	require.NoError(t, err)
	assert.Equal(t, "N/A", d.Period)
	assert.Zero(t, d.TxCount)
	assert.Empty(t, d.Mappings)
	assert.Equal(t, GapCounts{}, d.GapCounts)
}

func TestBuild_Aggregates(t *testing.T) {
	db, svc := setup(t)
	ctx := context.Background()

	company := &domain.Company{Name: "Muster GmbH"}
	require.NoError(t, db.Create(company).Error)

	txs := []domain.Transaction{
		{CompanyID: company.ID, Date: "2024-01-15", AccountNumber: "7200", AmountEUR: 100.004, SourceFile: "f.csv", RowNumber: 2},
		{CompanyID: company.ID, Date: "2024-02-01", AccountNumber: "7200", AmountEUR: 50, SourceFile: "f.csv", RowNumber: 3},
		{CompanyID: company.ID, Date: "2024-02-10", AccountNumber: "4000", AmountEUR: -300, SourceFile: "f.csv", RowNumber: 4},
		{CompanyID: company.ID, Date: "1900-01-01", AccountNumber: "7300", AmountEUR: 20, SourceFile: "f.csv", RowNumber: 5},
	}
	require.NoError(t, db.Create(&txs).Error)

	mappings := []domain.AccountMapping{
		{CompanyID: company.ID, AccountNumber: "7300", AccountName: "Wasser", Category: domain.CategoryWater},
		{CompanyID: company.ID, AccountNumber: "7200", AccountName: "Strom", Category: domain.CategoryEnergyElectricity},
	}
	require.NoError(t, db.Create(&mappings).Error)

	records := []domain.EmissionRecord{
		{CompanyID: company.ID, Period: "2024", Scope: 2, Category: domain.CategoryEnergyElectricity, ValueTCO2e: 0.12345, FactorSource: "x", CalculationMethod: "m"},
		{CompanyID: company.ID, Period: "2024", Scope: 3, Category: domain.CategoryWater, ValueTCO2e: 0.5, FactorSource: "x", CalculationMethod: "m"},
	}
	require.NoError(t, db.Create(&records).Error)

	disclosures := []domain.Disclosure{
		{CompanyID: company.ID, StandardRef: "E1-5", Status: domain.DisclosurePartial},
		{CompanyID: company.ID, StandardRef: "E1-1", Status: domain.DisclosureGap},
		{CompanyID: company.ID, StandardRef: "E1-6", Status: domain.DisclosureMet},
	}
	require.NoError(t, repositories.NewDisclosureRepository(db, logger.Discard()).UpsertAll(ctx, disclosures))

	d, err := svc.Build(ctx, company.ID)
	require.NoError(t, err)

	assert.Equal(t, "2024", d.Period)
	assert.Equal(t, 4, d.TxCount)
	assert.Equal(t, 170.0, d.TotalExpenses)
	assert.Equal(t, 300.0, d.TotalRevenue)
	assert.Equal(t, "2024-01-15", d.DateFrom)
	assert.Equal(t, "2024-02-10", d.DateTo)
	assert.Equal(t, map[string]float64{"2024-01": 100.0, "2024-02": 50.0}, d.MonthlySpend)
	assert.Equal(t, map[string]float64{"2024-02": 300.0}, d.MonthlyRevenue)

	require.Len(t, d.Mappings, 2)
	assert.Equal(t, "7200", d.Mappings[0].AccountNumber)
	assert.Equal(t, 150.0, d.Mappings[0].SpendEUR)
	assert.Equal(t, 20.0, d.CategorySpend[domain.CategoryWater])

	assert.Equal(t, 0.12, d.Emissions.Scope2)
	assert.Equal(t, 0.5, d.Emissions.Scope3)
	assert.Equal(t, 0.62, d.Emissions.Total)
	assert.Equal(t, 0.1235, d.Emissions.ByCategory[domain.CategoryEnergyElectricity])

	assert.Equal(t, GapCounts{Met: 1, Partial: 1, Gap: 1}, d.GapCounts)
	require.Len(t, d.GapAnalysis, 3)
	assert.Equal(t, "E1-1", d.GapAnalysis[0].StandardRef)
}
