// Package gapassessment rates a company's readiness for the ESRS E1
// climate disclosures from its account mappings and emission records.
package gapassessment

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alejandroruanova/esg-pipeline/internal/core/domain"
)

// Assessment is the result for one checklist item
type Assessment struct {
	Ref        string `json:"ref"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	Notes      string `json:"notes"`
	DataSource string `json:"data_source"`
	DataNeeded string `json:"data_needed"`
}

// CompanyFinder loads a company or fails with COMPANY_NOT_FOUND
type CompanyFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Company, error)
}

// MappingLister lists the account mappings of a company
type MappingLister interface {
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]domain.AccountMapping, error)
}

// EmissionLister lists the emission records of a company
type EmissionLister interface {
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]domain.EmissionRecord, error)
}

// DisclosureStore persists assessments per (company, standard ref)
type DisclosureStore interface {
	UpsertAll(ctx context.Context, disclosures []domain.Disclosure) error
}

// Assessor defines the gap assessment operation
type Assessor interface {
	Assess(ctx context.Context, companyID uuid.UUID) ([]Assessment, error)
}

// Service implements Assessor
type Service struct {
	companies   CompanyFinder
	mappings    MappingLister
	emissions   EmissionLister
	disclosures DisclosureStore
	logger      *slog.Logger
	now         func() time.Time
}

// NewService creates a new gap assessment service
func NewService(
	companies CompanyFinder,
	mappings MappingLister,
	emissions EmissionLister,
	disclosures DisclosureStore,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		companies:   companies,
		mappings:    mappings,
		emissions:   emissions,
		disclosures: disclosures,
		logger:      logger,
		now:         time.Now,
	}
}

// coverage is what the stored data says about a company
type coverage struct {
	mapped     map[domain.Category]bool
	calculated map[domain.Category]bool
	scopes     map[int]bool
}

// Assess evaluates every checklist item and stores the results, replacing
// earlier assessments of the same items
func (s *Service) Assess(ctx context.Context, companyID uuid.UUID) ([]Assessment, error) {
	if _, err := s.companies.FindByID(ctx, companyID); err != nil {
		return nil, err
	}

	mappings, err := s.mappings.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	records, err := s.emissions.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	cov := coverage{
		mapped:     make(map[domain.Category]bool),
		calculated: make(map[domain.Category]bool),
		scopes:     make(map[int]bool),
	}
	for _, m := range mappings {
		cov.mapped[m.Category] = true
	}
	for _, r := range records {
		cov.calculated[r.Category] = true
		cov.scopes[r.Scope] = true
	}

	now := s.now().UTC()
	assessments := make([]Assessment, 0, len(checklist))
	disclosures := make([]domain.Disclosure, 0, len(checklist))

	for _, req := range checklist {
		status, notes := evaluate(req, cov)
		assessments = append(assessments, Assessment{
			Ref:        req.Ref,
			Title:      req.Title,
			Status:     status,
			Notes:      notes,
			DataSource: req.DataSource,
			DataNeeded: req.DataNeeded,
		})
		disclosures = append(disclosures, domain.Disclosure{
			CompanyID:      companyID,
			StandardRef:    req.Ref,
			Title:          req.Title,
			Status:         status,
			DataAvailable:  domain.HasData(status),
			GapNotes:       notes,
			LastAssessedAt: &now,
		})
	}

	if err := s.disclosures.UpsertAll(ctx, disclosures); err != nil {
		return nil, err
	}

	met, partial, gap := Count(assessments)
	s.logger.Info("gap assessment complete",
		slog.String("company_id", companyID.String()),
		slog.Int("met", met),
		slog.Int("partial", partial),
		slog.Int("gap", gap))

	return assessments, nil
}

func evaluate(req Requirement, cov coverage) (string, string) {
	switch {
	case len(req.CheckCategories) > 0:
		return evaluateCategories(req.CheckCategories, cov)
	case len(req.CheckScopes) > 0:
		return evaluateScopes(req.CheckScopes, cov)
	default:
		return domain.DisclosureGap, fmt.Sprintf(
			"Requires management input. Data source: %s. Cannot be auto-assessed from accounting data.",
			req.DataSource)
	}
}

// evaluateCategories: met when a required category is mapped and has
// emissions, partial when mapped only
func evaluateCategories(required []domain.Category, cov coverage) (string, string) {
	var found []string
	calculated := false
	for _, c := range required {
		if cov.mapped[c] {
			found = append(found, string(c))
			if cov.calculated[c] {
				calculated = true
			}
		}
	}

	switch {
	case len(found) > 0 && calculated:
		return domain.DisclosureMet, fmt.Sprintf(
			"Data available from BMD FIBU. Categories mapped: %s.", strings.Join(found, ", "))
	case len(found) > 0:
		return domain.DisclosurePartial, fmt.Sprintf(
			"Account mappings exist (%s) but emissions not yet calculated.", strings.Join(found, ", "))
	default:
		names := make([]string, len(required))
		for i, c := range required {
			names[i] = string(c)
		}
		return domain.DisclosureGap, fmt.Sprintf(
			"Required categories (%s) not found in account mappings.", strings.Join(names, ", "))
	}
}

// evaluateScopes: met when scope 3 is among at least two covered scopes
func evaluateScopes(required []int, cov coverage) (string, string) {
	var found []int
	for _, sc := range required {
		if cov.scopes[sc] {
			found = append(found, sc)
		}
	}
	sort.Ints(found)

	hasScope3 := false
	labels := make([]string, len(found))
	for i, sc := range found {
		labels[i] = strconv.Itoa(sc)
		if sc == 3 {
			hasScope3 = true
		}
	}

	switch {
	case len(found) >= 2 && hasScope3:
		return domain.DisclosureMet, fmt.Sprintf(
			"Emissions calculated for Scope(s) %s.", strings.Join(labels, ", "))
	case len(found) >= 2:
		return domain.DisclosurePartial, fmt.Sprintf(
			"Emissions calculated for Scope(s) %s. Scope 3 data incomplete.", strings.Join(labels, ", "))
	case len(found) == 1:
		return domain.DisclosurePartial, fmt.Sprintf("Only Scope %s available.", labels[0])
	default:
		return domain.DisclosureGap, "No emissions data calculated yet."
	}
}

// Count tallies assessments by status
func Count(assessments []Assessment) (met, partial, gap int) {
	for _, a := range assessments {
		switch a.Status {
		case domain.DisclosureMet:
			met++
		case domain.DisclosurePartial:
			partial++
		default:
			gap++
		}
	}
	return met, partial, gap
}
