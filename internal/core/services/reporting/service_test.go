package reporting

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/alejandroruanova/esg-pipeline/internal/core/domain"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/gapassessment"
	"github.com/alejandroruanova/esg-pipeline/internal/infrastructure/database/repositories"
	apperrors "github.com/alejandroruanova/esg-pipeline/internal/pkg/errors"
	"github.com/alejandroruanova/esg-pipeline/internal/pkg/logger"
)

// captureRenderer writes a marker file and keeps the data it was given
type captureRenderer struct {
	data *Data
	err  error
}

func (r *captureRenderer) Render(ctx context.Context, data *Data, path string) error {
	if r.err != nil {
		return r.err
	}
	r.data = data
	return os.WriteFile(path, []byte("report"), 0644)
}

func (r *captureRenderer) Extension() string { return "txt" }

type fixture struct {
	svc       *Service
	db        *gorm.DB
	renderer  *captureRenderer
	companyID uuid.UUID
	outDir    string
}

func setup(t *testing.T) *fixture {
	dir := t.TempDir()
	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(domain.Models()...))

	l := logger.Discard()
	companies := repositories.NewCompanyRepository(db, l)
	mappings := repositories.NewMappingRepository(db, l)
	emissions := repositories.NewEmissionRepository(db, l)
	assessor := gapassessment.NewService(companies, mappings, emissions,
		repositories.NewDisclosureRepository(db, l), l)

	renderer := &captureRenderer{}
	svc := NewService(companies, assessor, emissions, mappings,
		repositories.NewTransactionRepository(db, l),
		repositories.NewReportRepository(db, l), renderer, l)
	svc.now = func() time.Time { return time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC) }

	company := &domain.Company{Name: "Muster GmbH"}
	require.NoError(t, db.Create(company).Error)

	return &fixture{svc: svc, db: db, renderer: renderer, companyID: company.ID, outDir: filepath.Join(dir, "out")}
}

func TestGenerate_WithoutEmissions(t *testing.T) {
	f := setup(t)

	report, err := f.svc.Generate(context.Background(), f.companyID, f.outDir)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Version)
	assert.Equal(t, PeriodNotAvailable, report.Period)
	assert.Equal(t, 0, report.Met)
	assert.Equal(t, 9, report.Gap)
	assert.Equal(t, filepath.Join(f.outDir, "ESRS_E1_Report_Muster_GmbH_N-A_2025-02-01.txt"), report.Path)
	assert.FileExists(t, report.Path)

	var versions []domain.ReportVersion
	require.NoError(t, f.db.Find(&versions).Error)
	require.Len(t, versions, 1)
	assert.Equal(t, "draft", versions[0].Status)
	assert.Equal(t, domain.ReportTypeESRSE1Gap, versions[0].ReportType)

	var audit domain.AuditLog
	require.NoError(t, f.db.Where("action = ?", domain.AuditReportGenerated).First(&audit).Error)
	assert.Equal(t, "type=esrs_e1_gap, version=1, met=0, partial=0, gap=9", audit.Details)
}

func TestGenerate_CollectsEmissionsAndCounts(t *testing.T) {
	f := setup(t)

	require.NoError(t, f.db.Create(&domain.AccountMapping{
		CompanyID: f.companyID, AccountNumber: "7200", Category: domain.CategoryEnergyElectricity,
	}).Error)
	require.NoError(t, f.db.Create(&domain.Transaction{
		CompanyID: f.companyID, Date: "2024-03-05", AccountNumber: "7200", AmountEUR: 1000, SourceFile: "fibu.csv",
	}).Error)
	for _, r := range []domain.EmissionRecord{
		{CompanyID: f.companyID, Period: "2024", Scope: 2, Category: domain.CategoryEnergyElectricity, ValueTCO2e: 0.3227, FactorSource: "UBA", CalculationMethod: "m"},
		{CompanyID: f.companyID, Period: "2024", Scope: 3, Category: domain.CategoryLogistics, ValueTCO2e: 0.062, FactorSource: "UBA", CalculationMethod: "m"},
	} {
		r := r
		require.NoError(t, f.db.Create(&r).Error)
	}

	report, err := f.svc.Generate(context.Background(), f.companyID, f.outDir)
	require.NoError(t, err)

	assert.Equal(t, "2024", report.Period)
	assert.Equal(t, 2, report.Met)

	d := f.renderer.data
	require.NotNil(t, d)
	assert.Equal(t, 1, d.MappingCount)
	assert.Equal(t, int64(1), d.TransactionCount)
	assert.InDelta(t, 0.3847, d.TotalTCO2e, 1e-9)
	assert.Len(t, d.EmissionsByScope(3), 1)

	second, err := f.svc.Generate(context.Background(), f.companyID, f.outDir)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)
}

func TestGenerate_RendererFailureRecordsNothing(t *testing.T) {
	f := setup(t)
	f.renderer.err = errors.New("disk full")

	_, err := f.svc.Generate(context.Background(), f.companyID, f.outDir)
	require.Error(t, err)

	var n int64
	require.NoError(t, f.db.Model(&domain.ReportVersion{}).Count(&n).Error)
	assert.Equal(t, int64(0), n)
}

func TestGenerate_UnknownCompany(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Generate(context.Background(), uuid.New(), f.outDir)
	assert.True(t, errors.Is(err, apperrors.ErrCompanyNotFound))
}

func TestFileName(t *testing.T) {
	at := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "ESRS_E1_Report_Muster_GmbH_2023-2024_2025-02-01.xlsx",
		FileName("Muster GmbH", "2023-2024", at, "xlsx"))
	assert.Equal(t, "ESRS_E1_Report_A-B_KG_N-A_2025-02-01.xlsx",
		FileName("A/B KG", "N/A", at, "xlsx"))
}
