package repositories

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
	apperrors "github.com/alejandroruanova/esg-pipeline/internal/pkg/errors"
	"github.com/alejandroruanova/esg-pipeline/internal/pkg/logger"
)

func setupDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "repo.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(domain.Models()...))
	return db
}

func createCompany(t *testing.T, db *gorm.DB) *domain.Company {
	company := &domain.Company{Name: "Muster GmbH"}
	require.NoError(t, NewCompanyRepository(db, logger.Discard()).Create(context.Background(), company))
	return company
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestCompanyRepository(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := NewCompanyRepository(db, logger.Discard())

	company := createCompany(t, db)

	loaded, err := repo.FindByID(ctx, company.ID)
	require.NoError(t, err)
	assert.Equal(t, "Muster GmbH", loaded.Name)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.True(t, errors.Is(err, apperrors.ErrCompanyNotFound))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	assert.Equal(t, int64(1), countRows(t, db, &domain.AuditLog{}))
}

func TestIngestionRepository_SaveAndFind(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	company := createCompany(t, db)
	repo := NewIngestionRepository(db, logger.Discard())

	missing, err := repo.FindByHash(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	txs := []domain.Transaction{
		{CompanyID: company.ID, Date: "2024-01-15", AccountNumber: "7200", AmountEUR: 100, SourceFile: "a.csv", RowNumber: 2},
		{CompanyID: company.ID, Date: "2024-02-15", AccountNumber: "7300", AmountEUR: 50, SourceFile: "a.csv", RowNumber: 3},
	}
	entry := &domain.IngestionLog{
		CompanyID: &company.ID,
		FileName:  "a.csv",
		FileHash:  "hash-a",
		FileKind:  domain.FileKindLedger,
		RowsValid: 2,
		Status:    domain.IngestionStatusSuccess,
	}
	audit := domain.NewAuditLog(domain.AuditFileIngested, "file", "a.csv", "type=FIBU, valid=2, quarantined=0")

	require.NoError(t, repo.SaveIngestion(ctx, entry, txs, nil, audit))

	found, err := repo.FindByHash(ctx, "hash-a")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "a.csv", found.FileName)
	assert.Equal(t, int64(2), countRows(t, db, &domain.Transaction{}))

	history, err := repo.History(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestIngestionRepository_SaveRollsBackOnDuplicateHash(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	company := createCompany(t, db)
	repo := NewIngestionRepository(db, logger.Discard())

	first := &domain.IngestionLog{FileName: "a.csv", FileHash: "same", Status: domain.IngestionStatusSuccess}
	require.NoError(t, repo.SaveIngestion(ctx, first, nil, nil, nil))

	txs := []domain.Transaction{{CompanyID: company.ID, Date: "2024-01-01", AccountNumber: "7200", SourceFile: "b.csv"}}
	second := &domain.IngestionLog{FileName: "b.csv", FileHash: "same", Status: domain.IngestionStatusSuccess}
	assert.Error(t, repo.SaveIngestion(ctx, second, txs, nil, nil))

	assert.Equal(t, int64(0), countRows(t, db, &domain.Transaction{}))
}

func TestTransactionRepository_Queries(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	company := createCompany(t, db)

	rows := []domain.Transaction{
		{CompanyID: company.ID, Date: "2023-12-31", AccountNumber: "7200", AmountEUR: 10, SourceFile: "f"},
		{CompanyID: company.ID, Date: "2024-01-10", AccountNumber: "7200", AmountEUR: 20, SourceFile: "f"},
		{CompanyID: company.ID, Date: "2024-03-01", AccountNumber: "7200", AmountEUR: -5, SourceFile: "f"},
		{CompanyID: company.ID, Date: "2024-02-01", AccountNumber: "4000", AmountEUR: 99, SourceFile: "f"},
	}
	require.NoError(t, db.Create(&rows).Error)

	repo := NewTransactionRepository(db, logger.Discard())

	accounts, err := repo.DistinctAccounts(ctx, company.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"4000", "7200"}, accounts)

	recent, err := repo.RecentByAccount(ctx, company.ID, "7200", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "2024-03-01", recent[0].Date)
	assert.Equal(t, "2024-01-10", recent[1].Date)

	total, err := repo.SumByAccount(ctx, company.ID, "7200")
	require.NoError(t, err)
	assert.InDelta(t, 25.0, total, 1e-9)

	in2024, err := repo.ListByCompany(ctx, company.ID, "2024")
	require.NoError(t, err)
	assert.Len(t, in2024, 3)

	count, err := repo.CountByCompany(ctx, company.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestMappingRepository_SaveUpsertsAndAudits(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	company := createCompany(t, db)
	repo := NewMappingRepository(db, logger.Discard())

	m := &domain.AccountMapping{
		CompanyID:     company.ID,
		AccountNumber: "7200",
		AccountName:   "7200",
		Category:      domain.CategoryOther,
		ConfirmedBy:   domain.ConfirmedByNeedsReview,
	}
	require.NoError(t, repo.Save(ctx, m, domain.NewAuditLog(domain.AuditAccountMapped, "account_mapping", "7200", "")))

	updated := &domain.AccountMapping{
		CompanyID:       company.ID,
		AccountNumber:   "7200",
		AccountName:     "7200",
		Category:        domain.CategoryEnergyElectricity,
		ConfidenceScore: 1,
		ConfirmedBy:     domain.ConfirmedByHuman,
	}
	require.NoError(t, repo.Save(ctx, updated, nil))

	all, err := repo.ListByCompany(ctx, company.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, domain.CategoryEnergyElectricity, all[0].Category)

	confirmed, err := repo.FindConfirmedByName(ctx, "7200")
	require.NoError(t, err)
	assert.Len(t, confirmed, 1)

	none, err := repo.FindByAccount(ctx, company.ID, "9999")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestMappingRepository_FindConfirmedSkipsNeedsReview(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	repo := NewMappingRepository(db, logger.Discard())

	require.NoError(t, repo.Save(ctx, &domain.AccountMapping{
		CompanyID: uuid.New(), AccountNumber: "5000", AccountName: "5000",
		Category: domain.CategoryFuel, ConfirmedBy: domain.ConfirmedByNeedsReview,
	}, nil))

	confirmed, err := repo.FindConfirmedByName(ctx, "5000")
	require.NoError(t, err)
	assert.Empty(t, confirmed)
}

func TestEmissionRepository_ReplacePeriod(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	company := createCompany(t, db)
	repo := NewEmissionRepository(db, logger.Discard())

	records := func() []domain.EmissionRecord {
		return []domain.EmissionRecord{
			{CompanyID: company.ID, Period: "2024", Scope: 2, Category: domain.CategoryEnergyElectricity,
				ValueTCO2e: 0.3227, FactorSource: "src", CalculationMethod: "m"},
			{CompanyID: company.ID, Period: "2024", Scope: 1, Category: domain.CategoryFuel,
				ValueTCO2e: 1.76, FactorSource: "src", CalculationMethod: "m"},
		}
	}

	require.NoError(t, repo.ReplacePeriod(ctx, company.ID, "2024", records(), nil))
	require.NoError(t, repo.ReplacePeriod(ctx, company.ID, "2024", records(), nil))

	all, err := repo.ListByCompany(ctx, company.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, repo.ReplacePeriod(ctx, company.ID, "2024", nil, nil))
	all, err = repo.ListByCompany(ctx, company.ID)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestDisclosureRepository_UpsertAll(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	company := createCompany(t, db)
	repo := NewDisclosureRepository(db, logger.Discard())

	require.NoError(t, repo.UpsertAll(ctx, []domain.Disclosure{
		{CompanyID: company.ID, StandardRef: "E1-5", Status: domain.DisclosureGap},
	}))
	require.NoError(t, repo.UpsertAll(ctx, []domain.Disclosure{
		{CompanyID: company.ID, StandardRef: "E1-5", Status: domain.DisclosureMet, DataAvailable: true},
	}))

	stored, err := repo.ListByCompany(ctx, company.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, domain.DisclosureMet, stored[0].Status)
	assert.True(t, stored[0].DataAvailable)
}

func TestReportRepository_Versions(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	company := createCompany(t, db)
	repo := NewReportRepository(db, logger.Discard())

	next, err := repo.NextVersion(ctx, company.ID, domain.ReportTypeESRSE1Gap)
	require.NoError(t, err)
	assert.Equal(t, 1, next)

	require.NoError(t, repo.Create(ctx, &domain.ReportVersion{
		CompanyID: company.ID, ReportType: domain.ReportTypeESRSE1Gap, VersionNumber: next, FilePath: "r.xlsx",
	}, nil))

	next, err = repo.NextVersion(ctx, company.ID, domain.ReportTypeESRSE1Gap)
	require.NoError(t, err)
	assert.Equal(t, 2, next)
}

func TestAuditRepository_ResetClearsEverything(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	company := createCompany(t, db)
	require.NoError(t, db.Create(&domain.Transaction{CompanyID: company.ID, Date: "2024-01-01", AccountNumber: "1", SourceFile: "f"}).Error)

	repo := NewAuditRepository(db, logger.Discard())
	require.NoError(t, repo.Reset(ctx))

	assert.Equal(t, int64(0), countRows(t, db, &domain.Company{}))
	assert.Equal(t, int64(0), countRows(t, db, &domain.Transaction{}))

	recent, err := repo.Recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, domain.AuditDatabaseReset, recent[0].Action)
}
