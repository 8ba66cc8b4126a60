package reporting

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/alejandroruanova/esg-pipeline/internal/core/domain"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/gapassessment"
)

// PeriodNotAvailable labels reports without emission records
const PeriodNotAvailable = "N/A"

// Data is everything a renderer needs for one report
type Data struct {
	Company          domain.Company
	Period           string
	GeneratedAt      time.Time
	Version          int
	Assessments      []gapassessment.Assessment
	Emissions        []domain.EmissionRecord
	ScopeTotals      map[int]float64
	TotalTCO2e       float64
	MappingCount     int
	TransactionCount int64
	Met              int
	Partial          int
	Gap              int
}

// EmissionsByScope returns the records of one scope in stored order
func (d *Data) EmissionsByScope(scope int) []domain.EmissionRecord {
	var out []domain.EmissionRecord
	for _, e := range d.Emissions {
		if e.Scope == scope {
			out = append(out, e)
		}
	}
	return out
}

// Report describes a generated file
type Report struct {
	ID      uuid.UUID `json:"id"`
	Path    string    `json:"path"`
	Version int       `json:"version"`
	Period  string    `json:"period"`
	Met     int       `json:"met"`
	Partial int       `json:"partial"`
	Gap     int       `json:"gap"`
}

// Renderer writes a report document to path
type Renderer interface {
	Render(ctx context.Context, data *Data, path string) error
	Extension() string
}

// CompanyFinder loads a company or fails with COMPANY_NOT_FOUND
type CompanyFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Company, error)
}

// EmissionLister lists the emission records of a company
type EmissionLister interface {
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]domain.EmissionRecord, error)
}

// MappingLister lists the account mappings of a company
type MappingLister interface {
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]domain.AccountMapping, error)
}

// TransactionCounter counts the transactions of a company
type TransactionCounter interface {
	CountByCompany(ctx context.Context, companyID uuid.UUID) (int64, error)
}

// VersionStore numbers and records generated reports
type VersionStore interface {
	NextVersion(ctx context.Context, companyID uuid.UUID, reportType string) (int, error)
	Create(ctx context.Context, version *domain.ReportVersion, audit *domain.AuditLog) error
}

// Generator defines the report operation
type Generator interface {
	Generate(ctx context.Context, companyID uuid.UUID, outputDir string) (*Report, error)
}
