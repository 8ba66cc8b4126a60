// Package reporting assembles the ESRS E1 gap report of a company and
// records each generated file as a new draft version.
package reporting

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alejandroruanova/esg-pipeline/internal/core/domain"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/gapassessment"
)

// Service implements Generator
type Service struct {
	companies CompanyFinder
	assessor  gapassessment.Assessor
	emissions EmissionLister
	mappings  MappingLister
	txs       TransactionCounter
	versions  VersionStore
	renderer  Renderer
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a new reporting service
func NewService(
	companies CompanyFinder,
	assessor gapassessment.Assessor,
	emissions EmissionLister,
	mappings MappingLister,
	txs TransactionCounter,
	versions VersionStore,
	renderer Renderer,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		companies: companies,
		assessor:  assessor,
		emissions: emissions,
		mappings:  mappings,
		txs:       txs,
		versions:  versions,
		renderer:  renderer,
		logger:    logger,
		now:       time.Now,
	}
}

// Generate runs the gap assessment, renders the report into outputDir and
// records it as the next draft version
func (s *Service) Generate(ctx context.Context, companyID uuid.UUID, outputDir string) (*Report, error) {
	company, err := s.companies.FindByID(ctx, companyID)
	if err != nil {
		return nil, err
	}

	assessments, err := s.assessor.Assess(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("gap assessment: %w", err)
	}

	data, err := s.collect(ctx, company, assessments)
	if err != nil {
		return nil, err
	}

	version, err := s.versions.NextVersion(ctx, companyID, domain.ReportTypeESRSE1Gap)
	if err != nil {
		return nil, err
	}
	data.Version = version

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(outputDir, FileName(company.Name, data.Period, data.GeneratedAt, s.renderer.Extension()))

	if err := s.renderer.Render(ctx, data, path); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}

	record := &domain.ReportVersion{
		CompanyID:     companyID,
		ReportType:    domain.ReportTypeESRSE1Gap,
		VersionNumber: version,
		FilePath:      path,
	}
	audit := domain.NewAuditLog(domain.AuditReportGenerated, "report", path,
		fmt.Sprintf("type=%s, version=%d, met=%d, partial=%d, gap=%d",
			domain.ReportTypeESRSE1Gap, version, data.Met, data.Partial, data.Gap)).
		WithMetadata("company_id", companyID.String())

	if err := s.versions.Create(ctx, record, audit); err != nil {
		return nil, err
	}

	s.logger.Info("report generated",
		slog.String("company_id", companyID.String()),
		slog.String("path", path),
		slog.Int("version", version),
		slog.Int("met", data.Met),
		slog.Int("partial", data.Partial),
		slog.Int("gap", data.Gap))

	return &Report{
		ID:      record.ID,
		Path:    path,
		Version: version,
		Period:  data.Period,
		Met:     data.Met,
		Partial: data.Partial,
		Gap:     data.Gap,
	}, nil
}

func (s *Service) collect(ctx context.Context, company *domain.Company, assessments []gapassessment.Assessment) (*Data, error) {
	records, err := s.emissions.ListByCompany(ctx, company.ID)
	if err != nil {
		return nil, err
	}
	mappings, err := s.mappings.ListByCompany(ctx, company.ID)
	if err != nil {
		return nil, err
	}
	txCount, err := s.txs.CountByCompany(ctx, company.ID)
	if err != nil {
		return nil, err
	}

	data := &Data{
		Company:          *company,
		Period:           PeriodNotAvailable,
		GeneratedAt:      s.now(),
		Assessments:      assessments,
		Emissions:        records,
		ScopeTotals:      map[int]float64{1: 0, 2: 0, 3: 0},
		MappingCount:     len(mappings),
		TransactionCount: txCount,
	}
	if len(records) > 0 {
		data.Period = records[0].Period
	}
	for _, r := range records {
		data.ScopeTotals[r.Scope] += r.ValueTCO2e
	}
	data.TotalTCO2e = data.ScopeTotals[1] + data.ScopeTotals[2] + data.ScopeTotals[3]
	data.Met, data.Partial, data.Gap = gapassessment.Count(assessments)

	return data, nil
}

// FileName builds ESRS_E1_Report_<company>_<period>_<date>.<ext>. Spaces
// in the company name become underscores, path separators become dashes.
func FileName(company, period string, at time.Time, ext string) string {
	safe := strings.NewReplacer("/", "-", "\\", "-")
	name := safe.Replace(strings.ReplaceAll(company, " ", "_"))
	return fmt.Sprintf("ESRS_E1_Report_%s_%s_%s.%s", name, safe.Replace(period), at.Format("2006-01-02"), ext)
}
