package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alejandroruanova/esg-pipeline/internal/core/domain"
	"github.com/alejandroruanova/esg-pipeline/internal/pkg/locale"
)

// auditLimit caps the audit trail shown on the dashboard
const auditLimit = 50

// EmissionsView groups the emission records of a company
type EmissionsView struct {
	Total      float64                     `json:"total"`
	Scope1     float64                     `json:"scope_1"`
	Scope2     float64                     `json:"scope_2"`
	Scope3     float64                     `json:"scope_3"`
	Details    []domain.EmissionRecord     `json:"details"`
	ByCategory map[domain.Category]float64 `json:"by_category"`
}

// MappingView is one account mapping with the spend booked on it
type MappingView struct {
	AccountNumber   string          `json:"account_number"`
	AccountName     string          `json:"account_name"`
	Category        domain.Category `json:"esg_category"`
	ConfidenceScore float64         `json:"confidence_score"`
	ConfirmedBy     string          `json:"confirmed_by"`
	Source          string          `json:"source"`
	SpendEUR        float64         `json:"spend_eur"`
}

// GapCounts counts disclosures per status
type GapCounts struct {
	Met     int `json:"met"`
	Partial int `json:"partial"`
	Gap     int `json:"gap"`
}

// Dashboard is the read model behind the company overview
type Dashboard struct {
	Company        domain.Company              `json:"company"`
	Period         string                      `json:"period"`
	TxCount        int                         `json:"tx_count"`
	TotalExpenses  float64                     `json:"total_expenses"`
	TotalRevenue   float64                     `json:"total_revenue"`
	DateFrom       string                      `json:"date_from,omitempty"`
	DateTo         string                      `json:"date_to,omitempty"`
	Emissions      EmissionsView               `json:"emissions"`
	Mappings       []MappingView               `json:"mappings"`
	CategorySpend  map[domain.Category]float64 `json:"category_spend"`
	GapAnalysis    []domain.Disclosure         `json:"gap_analysis"`
	GapCounts      GapCounts                   `json:"gap_counts"`
	Reports        []domain.ReportVersion      `json:"reports"`
	AuditLog       []domain.AuditLog           `json:"audit_log"`
	MonthlySpend   map[string]float64          `json:"monthly_spend"`
	MonthlyRevenue map[string]float64          `json:"monthly_revenue"`
}

// CompanyFinder loads a company or fails with COMPANY_NOT_FOUND
type CompanyFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Company, error)
}

// TransactionLister lists transactions, optionally filtered by a date prefix
type TransactionLister interface {
	ListByCompany(ctx context.Context, companyID uuid.UUID, period string) ([]domain.Transaction, error)
}

// EmissionLister lists the emission records of a company
type EmissionLister interface {
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]domain.EmissionRecord, error)
}

// MappingLister lists the account mappings of a company
type MappingLister interface {
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]domain.AccountMapping, error)
}

// DisclosureLister lists the stored gap assessment
type DisclosureLister interface {
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]domain.Disclosure, error)
}

// ReportLister lists generated report versions
type ReportLister interface {
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]domain.ReportVersion, error)
}

// AuditReader returns the newest audit entries
type AuditReader interface {
	Recent(ctx context.Context, limit int) ([]domain.AuditLog, error)
}

// Repositories bundles the read sides used by the dashboard
type Repositories struct {
	Companies    CompanyFinder
	Transactions TransactionLister
	Emissions    EmissionLister
	Mappings     MappingLister
	Disclosures  DisclosureLister
	Reports      ReportLister
	Audit        AuditReader
}

// Service assembles dashboards
type Service struct {
	repos  Repositories
	logger *slog.Logger
}

// NewService creates a new dashboard service
func NewService(repos Repositories, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repos: repos, logger: logger}
}

// Build reads everything stored for a company into one view. Amounts are
// rounded to cents, emissions to four decimals.
func (s *Service) Build(ctx context.Context, companyID uuid.UUID) (*Dashboard, error) {
	company, err := s.repos.Companies.FindByID(ctx, companyID)
	if err != nil {
		return nil, err
	}

	txs, err := s.repos.Transactions.ListByCompany(ctx, companyID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	records, err := s.repos.Emissions.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load emissions: %w", err)
	}
	mappings, err := s.repos.Mappings.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load mappings: %w", err)
	}
	disclosures, err := s.repos.Disclosures.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load disclosures: %w", err)
	}
	reports, err := s.repos.Reports.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reports: %w", err)
	}
	audit, err := s.repos.Audit.Recent(ctx, auditLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load audit log: %w", err)
	}

	d := &Dashboard{
		Company:        *company,
		Period:         "N/A",
		TxCount:        len(txs),
		CategorySpend:  make(map[domain.Category]float64),
		GapAnalysis:    disclosures,
		Reports:        reports,
		AuditLog:       audit,
		MonthlySpend:   make(map[string]float64),
		MonthlyRevenue: make(map[string]float64),
	}

	accountSpend := make(map[string]float64)
	for _, t := range txs {
		switch {
		case t.AmountEUR > 0:
			d.TotalExpenses += t.AmountEUR
			accountSpend[t.AccountNumber] += t.AmountEUR
		case t.AmountEUR < 0:
			d.TotalRevenue += -t.AmountEUR
		}

		if t.Date == "" || t.Date == locale.SentinelDate {
			continue
		}
		if d.DateFrom == "" || t.Date < d.DateFrom {
			d.DateFrom = t.Date
		}
		if t.Date > d.DateTo {
			d.DateTo = t.Date
		}
		if len(t.Date) >= 7 {
			month := t.Date[:7]
			if t.AmountEUR > 0 {
				d.MonthlySpend[month] += t.AmountEUR
			} else if t.AmountEUR < 0 {
				d.MonthlyRevenue[month] += -t.AmountEUR
			}
		}
	}
	d.TotalExpenses = round(d.TotalExpenses, 2)
	d.TotalRevenue = round(d.TotalRevenue, 2)
	roundAll(d.MonthlySpend, 2)
	roundAll(d.MonthlyRevenue, 2)

	d.Emissions = emissionsView(records)
	if len(records) > 0 {
		d.Period = records[0].Period
	}

	d.Mappings = make([]MappingView, 0, len(mappings))
	for _, m := range mappings {
		spend := accountSpend[m.AccountNumber]
		d.Mappings = append(d.Mappings, MappingView{
			AccountNumber:   m.AccountNumber,
			AccountName:     m.AccountName,
			Category:        m.Category,
			ConfidenceScore: m.ConfidenceScore,
			ConfirmedBy:     m.ConfirmedBy,
			Source:          m.Source,
			SpendEUR:        round(spend, 2),
		})
		d.CategorySpend[m.Category] += spend
	}
	sort.Slice(d.Mappings, func(i, j int) bool {
		return d.Mappings[i].AccountNumber < d.Mappings[j].AccountNumber
	})
	for c, v := range d.CategorySpend {
		d.CategorySpend[c] = round(v, 2)
	}

	for _, disc := range disclosures {
		switch disc.Status {
		case domain.DisclosureMet:
			d.GapCounts.Met++
		case domain.DisclosurePartial:
			d.GapCounts.Partial++
		default:
			d.GapCounts.Gap++
		}
	}

	s.logger.Debug("dashboard built",
		slog.String("company_id", companyID.String()),
		slog.Int("transactions", len(txs)),
		slog.Int("emission_records", len(records)))

	return d, nil
}

func emissionsView(records []domain.EmissionRecord) EmissionsView {
	v := EmissionsView{
		Details:    records,
		ByCategory: make(map[domain.Category]float64),
	}
	for _, r := range records {
		switch r.Scope {
		case 1:
			v.Scope1 += r.ValueTCO2e
		case 2:
			v.Scope2 += r.ValueTCO2e
		case 3:
			v.Scope3 += r.ValueTCO2e
		}
		v.ByCategory[r.Category] += r.ValueTCO2e
	}
	v.Total = round(v.Scope1+v.Scope2+v.Scope3, 2)
	v.Scope1 = round(v.Scope1, 2)
	v.Scope2 = round(v.Scope2, 2)
	v.Scope3 = round(v.Scope3, 2)
	roundAll(v.ByCategory, 4)
	return v
}

func round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

func roundAll[K comparable](m map[K]float64, places int32) {
	for k, v := range m {
		m[k] = round(v, places)
	}
}
