// Package emissions turns mapped EUR spend into tCO2e using fixed Austrian
// price and emission factor tables. No external calls are made; every
// record carries the formula with its intermediate values.
package emissions

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alejandroruanova/esg-pipeline/internal/core/domain"
	apperrors "github.com/alejandroruanova/esg-pipeline/internal/pkg/errors"
	"github.com/alejandroruanova/esg-pipeline/internal/pkg/locale"
)

// Service implements Calculator
type Service struct {
	companies CompanyFinder
	mappings  MappingLister
	txs       TransactionLister
	records   RecordStore
	logger    *slog.Logger
}

// NewService creates a new emissions service
func NewService(
	companies CompanyFinder,
	mappings MappingLister,
	txs TransactionLister,
	records RecordStore,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		companies: companies,
		mappings:  mappings,
		txs:       txs,
		records:   records,
		logger:    logger,
	}
}

// Calculate recomputes the emission records of a company. period filters
// transactions by date prefix ("2024", "2024-03"); when empty it is derived
// from the transaction years. Existing records of the period are replaced.
func (s *Service) Calculate(ctx context.Context, companyID uuid.UUID, period string) (*Summary, error) {
	if _, err := s.companies.FindByID(ctx, companyID); err != nil {
		return nil, err
	}

	mappings, err := s.mappings.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if len(mappings) == 0 {
		return nil, apperrors.ErrNoMappings
	}

	txs, err := s.txs.ListByCompany(ctx, companyID, period)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, apperrors.ErrNoTransactions
	}

	if period == "" {
		period = DerivePeriod(txs)
	}

	log := s.logger.With(
		slog.String("company_id", companyID.String()),
		slog.String("period", period))

	spend := AggregateSpend(txs, mappings)

	summary := &Summary{
		CompanyID:     companyID,
		Period:        period,
		Details:       []Detail{},
		CategorySpend: make(map[domain.Category]float64, len(spend)),
	}
	for c, v := range spend {
		summary.CategorySpend[c] = round(v, 2)
	}

	var records []domain.EmissionRecord
	scopeTotals := map[int]float64{}

	for _, conv := range conversions {
		amount := spend[conv.Category]
		if amount <= 0 {
			continue
		}

		factor := factors[conv.FactorKey]
		detail := compute(conv, factor, amount)
		scopeTotals[factor.Scope] += detail.EmissionsTCO2e

		detail.SpendEUR = round(detail.SpendEUR, 2)
		detail.Quantity = round(detail.Quantity, 2)
		detail.EmissionsTCO2e = round(detail.EmissionsTCO2e, 4)
		summary.Details = append(summary.Details, detail)

		records = append(records, domain.EmissionRecord{
			CompanyID:          companyID,
			Period:             period,
			Scope:              factor.Scope,
			Category:           conv.Category,
			ValueTCO2e:         detail.EmissionsTCO2e,
			Quantity:           detail.Quantity,
			Unit:               conv.Unit,
			EmissionFactorUsed: factor.Factor,
			FactorSource:       factor.Source,
			FactorVintage:      factor.Vintage,
			CalculationMethod:  detail.Method,
		})
	}

	total := scopeTotals[1] + scopeTotals[2] + scopeTotals[3]

	audit := domain.NewAuditLog(domain.AuditEmissionsCalculated, "company", companyID.String(),
		fmt.Sprintf("period=%s, scope1=%.2f, scope2=%.2f, scope3=%.2f tCO2e",
			period, scopeTotals[1], scopeTotals[2], scopeTotals[3])).
		WithMetadata("records", len(records))

	if err := s.records.ReplacePeriod(ctx, companyID, period, records, audit); err != nil {
		return nil, err
	}

	summary.Scope1TCO2e = round(scopeTotals[1], 4)
	summary.Scope2TCO2e = round(scopeTotals[2], 4)
	summary.Scope3TCO2e = round(scopeTotals[3], 4)
	summary.TotalTCO2e = round(total, 4)

	log.Info("emissions calculated",
		slog.Int("transactions", len(txs)),
		slog.Int("mapped_accounts", len(mappings)),
		slog.Int("records", len(records)),
		slog.Float64("total_tco2e", summary.TotalTCO2e))

	return summary, nil
}

func compute(conv Conversion, factor Factor, spend float64) Detail {
	quantity := spend / conv.EURPerUnit
	kg := quantity * factor.Factor
	tonnes := kg / 1000

	method := fmt.Sprintf(
		"spend_eur=%.2f / price_per_%s=%s = %.2f %s x factor=%s %s = %.2f kg CO2e = %.4f tCO2e",
		spend, conv.Unit, formatFloat(conv.EURPerUnit), quantity, conv.Unit,
		formatFloat(factor.Factor), factor.Unit, kg, tonnes)

	return Detail{
		Category:       conv.Category,
		Scope:          factor.Scope,
		SpendEUR:       spend,
		Quantity:       quantity,
		Unit:           conv.Unit,
		Factor:         factor.Factor,
		FactorSource:   factor.Source,
		EmissionsTCO2e: tonnes,
		Method:         method,
	}
}

// AggregateSpend sums positive amounts per category. Accounts without a
// mapping count as other. Negative amounts are credits and refunds and are
// left out: spend estimates consumption from cost, not net cash flow.
func AggregateSpend(txs []domain.Transaction, mappings []domain.AccountMapping) map[domain.Category]float64 {
	byAccount := make(map[string]domain.Category, len(mappings))
	for _, m := range mappings {
		byAccount[m.AccountNumber] = m.Category
	}

	spend := make(map[domain.Category]float64)
	for _, tx := range txs {
		if tx.AmountEUR <= 0 {
			continue
		}
		cat, ok := byAccount[tx.AccountNumber]
		if !ok {
			cat = domain.CategoryOther
		}
		spend[cat] += tx.AmountEUR
	}
	return spend
}

// DerivePeriod joins the distinct transaction years with "-". Sentinel
// dates do not count; without any usable date the period is "unknown".
func DerivePeriod(txs []domain.Transaction) string {
	years := map[string]struct{}{}
	for _, tx := range txs {
		if tx.Date == "" || tx.Date == locale.SentinelDate || len(tx.Date) < 4 {
			continue
		}
		years[tx.Date[:4]] = struct{}{}
	}
	if len(years) == 0 {
		return PeriodUnknown
	}

	sorted := make([]string, 0, len(years))
	for y := range years {
		sorted = append(sorted, y)
	}
	sort.Strings(sorted)
	return strings.Join(sorted, "-")
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
