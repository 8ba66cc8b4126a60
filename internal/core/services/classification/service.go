package classification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alejandroruanova/esg-pipeline/internal/core/domain"
	apperrors "github.com/alejandroruanova/esg-pipeline/internal/pkg/errors"
)

// Service maps the ledger accounts of a company to ESG categories
type Service struct {
	companies  CompanyFinder
	txs        TransactionReader
	mappings   MappingRepository
	library    *Library
	classifier Classifier
	cache      SuggestionCache
	builder    *RequestBuilder
	cfg        Config
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates a classification service. classifier and cache may be
// nil: suggestions then come from the library or Unconfigured.
func NewService(
	companies CompanyFinder,
	txs TransactionReader,
	mappings MappingRepository,
	classifier Classifier,
	cache SuggestionCache,
	cfg Config,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if classifier == nil {
		classifier = Unconfigured{}
	}
	def := DefaultConfig()
	if cfg.AutoThreshold <= 0 {
		cfg.AutoThreshold = def.AutoThreshold
	}
	if cfg.InteractiveThreshold <= 0 {
		cfg.InteractiveThreshold = def.InteractiveThreshold
	}
	if cfg.RecentTransactions <= 0 {
		cfg.RecentTransactions = def.RecentTransactions
	}

	return &Service{
		companies:  companies,
		txs:        txs,
		mappings:   mappings,
		library:    NewLibrary(mappings, logger),
		classifier: classifier,
		cache:      cache,
		builder:    NewRequestBuilder(cfg.RecentTransactions, logger),
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// Unmapped returns the accounts with transactions but no mapping, sorted
func (s *Service) Unmapped(ctx context.Context, companyID uuid.UUID) ([]string, error) {
	accounts, err := s.txs.DistinctAccounts(ctx, companyID)
	if err != nil {
		return nil, err
	}

	existing, err := s.mappings.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	mapped := make(map[string]struct{}, len(existing))
	for _, m := range existing {
		mapped[m.AccountNumber] = struct{}{}
	}

	var out []string
	for _, a := range accounts {
		if _, ok := mapped[a]; !ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// MapAccounts suggests and stores a mapping for every unmapped account.
// Existing mappings are left alone, so a second run maps nothing.
func (s *Service) MapAccounts(ctx context.Context, companyID uuid.UUID, opts Options) (*Summary, error) {
	if _, err := s.companies.FindByID(ctx, companyID); err != nil {
		return nil, err
	}

	mode := opts.Mode
	if mode == "" {
		mode = ModeAuto
	}
	if mode == ModeInteractive && opts.Confirmer == nil {
		return nil, apperrors.BadRequest("interactive mapping needs a confirmer")
	}

	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = s.cfg.AutoThreshold
		if mode == ModeInteractive {
			threshold = s.cfg.InteractiveThreshold
		}
	}

	unmapped, err := s.Unmapped(ctx, companyID)
	if err != nil {
		return nil, err
	}

	log := s.logger.With(
		slog.String("company_id", companyID.String()),
		slog.String("mode", string(mode)))
	log.Info("mapping accounts", slog.Int("unmapped", len(unmapped)))

	summary := &Summary{NeedsReview: []Outcome{}, Outcomes: []Outcome{}}

	for _, account := range unmapped {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		req, err := s.request(ctx, companyID, account)
		if err != nil {
			return summary, err
		}

		suggestion := s.suggest(ctx, req, threshold)

		mapping := &domain.AccountMapping{
			CompanyID:       companyID,
			AccountNumber:   account,
			AccountName:     req.AccountName,
			Category:        suggestion.Category,
			ConfidenceScore: suggestion.Confidence,
			Source:          suggestion.Source,
			Rationale:       suggestion.Rationale,
		}

		now := s.now().UTC()
		switch {
		case mode == ModeInteractive && suggestion.Confidence >= threshold && suggestion.Source != SourceNoAPIKey:
			mapping.ConfirmedBy = domain.ConfirmedByAutoHighConfidence
			mapping.ConfirmedAt = &now
			summary.AutoAccepted++
		case mode == ModeInteractive:
			answer, err := opts.Confirmer.Confirm(ctx, req, suggestion)
			if err != nil {
				return summary, fmt.Errorf("confirm account %s: %w", account, err)
			}
			if cat, err := domain.ParseCategory(answer); err == nil {
				mapping.Category = cat
			} else if answer != "" {
				log.Warn("invalid category from confirmer, keeping suggestion",
					slog.String("account", account),
					slog.String("answer", answer))
			}
			mapping.ConfirmedBy = domain.ConfirmedByHuman
			mapping.ConfirmedAt = &now
			summary.HumanConfirmed++
		case suggestion.Confidence >= threshold:
			mapping.ConfirmedBy = domain.ConfirmedByAuto
			mapping.ConfirmedAt = &now
			summary.AutoAccepted++
		default:
			mapping.ConfirmedBy = domain.ConfirmedByNeedsReview
		}

		if err := s.mappings.Save(ctx, mapping, mappingAudit(mapping)); err != nil {
			return summary, err
		}

		outcome := Outcome{
			AccountNumber: account,
			Category:      mapping.Category,
			Confidence:    mapping.ConfidenceScore,
			ConfirmedBy:   mapping.ConfirmedBy,
			Source:        mapping.Source,
			Rationale:     mapping.Rationale,
		}
		summary.Outcomes = append(summary.Outcomes, outcome)
		if mapping.ConfirmedBy == domain.ConfirmedByNeedsReview {
			summary.NeedsReview = append(summary.NeedsReview, outcome)
		}
		summary.Mapped++

		log.Info("account mapped",
			slog.String("account", account),
			slog.String("category", string(mapping.Category)),
			slog.Float64("confidence", mapping.ConfidenceScore),
			slog.String("confirmed_by", mapping.ConfirmedBy))
	}

	return summary, nil
}

// ConfirmMapping stores an operator decision for one account, replacing
// whatever was suggested before
func (s *Service) ConfirmMapping(ctx context.Context, companyID uuid.UUID, account, category string) (*domain.AccountMapping, error) {
	if _, err := s.companies.FindByID(ctx, companyID); err != nil {
		return nil, err
	}

	cat, err := domain.ParseCategory(category)
	if err != nil {
		return nil, err
	}

	existing, err := s.mappings.FindByAccount(ctx, companyID, account)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	mapping := &domain.AccountMapping{
		CompanyID:       companyID,
		AccountNumber:   account,
		AccountName:     account,
		Category:        cat,
		ConfidenceScore: 1,
		ConfirmedBy:     domain.ConfirmedByHuman,
		ConfirmedAt:     &now,
		Source:          SourceManual,
		Rationale:       "confirmed by operator",
	}
	if existing != nil {
		mapping.ID = existing.ID
		mapping.AccountName = existing.AccountName
	}

	if err := s.mappings.Save(ctx, mapping, mappingAudit(mapping)); err != nil {
		return nil, err
	}
	return mapping, nil
}

// ReviewQueue lists the mappings still waiting for an operator
func (s *Service) ReviewQueue(ctx context.Context, companyID uuid.UUID) ([]domain.AccountMapping, error) {
	all, err := s.mappings.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	out := []domain.AccountMapping{}
	for _, m := range all {
		if m.ConfirmedBy == domain.ConfirmedByNeedsReview {
			out = append(out, m)
		}
	}
	return out, nil
}

// request gathers the account context. The account number doubles as its
// name because BMD exports carry no account master.
func (s *Service) request(ctx context.Context, companyID uuid.UUID, account string) (*Request, error) {
	recent, err := s.txs.RecentByAccount(ctx, companyID, account, s.cfg.RecentTransactions)
	if err != nil {
		return nil, err
	}
	total, err := s.txs.SumByAccount(ctx, companyID, account)
	if err != nil {
		return nil, err
	}
	return s.builder.Build(account, account, recent, total), nil
}

// suggest tries the library, then the cache, then the classifier. A
// failing classifier yields other at zero confidence.
func (s *Service) suggest(ctx context.Context, req *Request, threshold float64) *Suggestion {
	log := s.logger.With(slog.String("account", req.AccountNumber))

	lib, err := s.library.Lookup(ctx, req.AccountName)
	if err != nil {
		log.Warn("library lookup failed", slog.Any("error", err))
	}
	if lib != nil && lib.Confidence >= threshold {
		return lib
	}

	key := s.builder.Fingerprint(req)
	if s.cache != nil {
		cached, ok, err := s.cache.GetSuggestion(ctx, key)
		if err != nil {
			log.Warn("suggestion cache read failed", slog.Any("error", err))
		}
		if ok && cached != nil {
			log.Debug("suggestion cache hit")
			return cached
		}
	}

	suggestion, err := s.classifier.Classify(ctx, req)
	if err != nil {
		log.Error("classifier failed", slog.Any("error", err))
		return &Suggestion{
			Category:   domain.CategoryOther,
			Confidence: 0,
			Rationale:  err.Error(),
			Source:     SourceError,
		}
	}
	if !suggestion.Category.IsValid() {
		suggestion.Category = domain.CategoryOther
	}
	suggestion.Confidence = clamp(suggestion.Confidence)

	if s.cache != nil && cacheable(suggestion) {
		if err := s.cache.SetSuggestion(ctx, key, suggestion); err != nil {
			log.Warn("suggestion cache write failed", slog.Any("error", err))
		}
	}
	return suggestion
}

func cacheable(s *Suggestion) bool {
	return s.Source != SourceNoAPIKey && s.Source != SourceError && s.Source != SourceLibrary
}

func mappingAudit(m *domain.AccountMapping) *domain.AuditLog {
	return domain.NewAuditLog(domain.AuditAccountMapped, "account_mapping", m.AccountNumber,
		fmt.Sprintf("category=%s, confidence=%.2f, source=%s", m.Category, m.ConfidenceScore, m.Source)).
		WithMetadata("company_id", m.CompanyID.String()).
		WithMetadata("confirmed_by", m.ConfirmedBy)
}
