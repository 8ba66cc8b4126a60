package emissions

import (
	"context"

	"github.com/google/uuid"

	"github.com/alejandroruanova/esg-pipeline/internal/core/domain"
)

// PeriodUnknown labels a calculation over transactions without usable dates
const PeriodUnknown = "unknown"

// Detail is the result for one category
type Detail struct {
	Category       domain.Category `json:"category"`
	Scope          int             `json:"scope"`
	SpendEUR       float64         `json:"spend_eur"`
	Quantity       float64         `json:"quantity"`
	Unit           string          `json:"unit"`
	Factor         float64         `json:"factor"`
	FactorSource   string          `json:"factor_source"`
	EmissionsTCO2e float64         `json:"emissions_tco2e"`
	Method         string          `json:"calculation_method"`
}

// Summary of one calculation run
type Summary struct {
	CompanyID     uuid.UUID                   `json:"company_id"`
	Period        string                      `json:"period"`
	Scope1TCO2e   float64                     `json:"scope_1_tco2e"`
	Scope2TCO2e   float64                     `json:"scope_2_tco2e"`
	Scope3TCO2e   float64                     `json:"scope_3_tco2e"`
	TotalTCO2e    float64                     `json:"total_tco2e"`
	Details       []Detail                    `json:"details"`
	CategorySpend map[domain.Category]float64 `json:"category_spend"`
}

// CompanyFinder loads a company or fails with COMPANY_NOT_FOUND
type CompanyFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Company, error)
}

// MappingLister lists the account mappings of a company
type MappingLister interface {
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]domain.AccountMapping, error)
}

// TransactionLister lists transactions, optionally filtered by a date prefix
type TransactionLister interface {
	ListByCompany(ctx context.Context, companyID uuid.UUID, period string) ([]domain.Transaction, error)
}

// RecordStore replaces the records of one (company, period)
type RecordStore interface {
	ReplacePeriod(ctx context.Context, companyID uuid.UUID, period string, records []domain.EmissionRecord, audit *domain.AuditLog) error
}

// Calculator defines the emissions operation
type Calculator interface {
	Calculate(ctx context.Context, companyID uuid.UUID, period string) (*Summary, error)
}
