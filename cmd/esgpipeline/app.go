package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alejandroruanova/esg-pipeline/internal/core/services/classification"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/dashboard"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/deduplication"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/emissions"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/gapassessment"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/ingestion"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/pipeline"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/reporting"
	"github.com/alejandroruanova/esg-pipeline/internal/infrastructure/cache"
	"github.com/alejandroruanova/esg-pipeline/internal/infrastructure/classifier"
	"github.com/alejandroruanova/esg-pipeline/internal/infrastructure/database"
	"github.com/alejandroruanova/esg-pipeline/internal/infrastructure/database/repositories"
	"github.com/alejandroruanova/esg-pipeline/internal/infrastructure/parsers"
	"github.com/alejandroruanova/esg-pipeline/internal/infrastructure/reports"
	"github.com/alejandroruanova/esg-pipeline/internal/infrastructure/storage"
	"github.com/alejandroruanova/esg-pipeline/internal/pkg/config"
	apperrors "github.com/alejandroruanova/esg-pipeline/internal/pkg/errors"
	"github.com/alejandroruanova/esg-pipeline/internal/pkg/logger"
)

// app holds the opened stores and repositories of one CLI invocation
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *database.Database
	storage *storage.LocalStorage
	redis   *cache.RedisCache

	companies    *repositories.CompanyRepository
	transactions *repositories.TransactionRepository
	ingestions   *repositories.IngestionRepository
	mappings     *repositories.MappingRepository
	emissions    *repositories.EmissionRepository
	disclosures  *repositories.DisclosureRepository
	reports      *repositories.ReportRepository
	audit        *repositories.AuditRepository

	closers []func() error
}

// newApp loads configuration, opens the database, runs migrations and
// prepares the drop folders
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.Initialize(cfg.Environment, cfg.LogLevel)

	db, err := database.Open(&cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}

	store, err := storage.NewLocalStorage(&storage.LocalStorageConfig{
		InboxDir:      cfg.Storage.InboxDir,
		ProcessedDir:  cfg.Storage.ProcessedDir,
		QuarantineDir: cfg.Storage.QuarantineDir,
		OutputDir:     cfg.Storage.OutputDir,
	}, logger.NewServiceLogger("storage"))
	if err != nil {
		db.Close()
		return nil, err
	}

	repoLog := logger.NewServiceLogger("repository")
	a := &app{
		cfg:          cfg,
		logger:       log,
		db:           db,
		storage:      store,
		companies:    repositories.NewCompanyRepository(db.DB, repoLog),
		transactions: repositories.NewTransactionRepository(db.DB, repoLog),
		ingestions:   repositories.NewIngestionRepository(db.DB, repoLog),
		mappings:     repositories.NewMappingRepository(db.DB, repoLog),
		emissions:    repositories.NewEmissionRepository(db.DB, repoLog),
		disclosures:  repositories.NewDisclosureRepository(db.DB, repoLog),
		reports:      repositories.NewReportRepository(db.DB, repoLog),
		audit:        repositories.NewAuditRepository(db.DB, repoLog),
	}
	a.closers = append(a.closers, db.Close)
	return a, nil
}

// Close releases everything opened by newApp and the service builders
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", slog.Any("error", err))
		}
	}
}

func (a *app) ingestionService() *ingestion.Service {
	parserCfg := parsers.DefaultParserConfig()
	if a.cfg.Storage.MaxFileSizeMB > 0 {
		parserCfg.MaxFileSize = a.cfg.Storage.MaxFileSizeMB * 1024 * 1024
	}
	dedup := deduplication.NewService(a.storage, a.ingestions, logger.NewServiceLogger("deduplication"))
	return ingestion.NewService(
		dedup,
		parsers.NewDelimitedParser(parserCfg),
		a.ingestions,
		a.storage,
		logger.NewServiceLogger("ingestion"),
	)
}

// classifier picks the suggestion source: the HTTP endpoint when a URL is
// configured, else a mapping file, else none. mappingFile overrides the
// configured MAPPING_FILE.
func (a *app) classifier(mappingFile string) (classification.Classifier, error) {
	if a.cfg.Classifier.URL != "" {
		c, err := classifier.New(classifier.Config{
			URL:     a.cfg.Classifier.URL,
			APIKey:  a.cfg.Classifier.APIKey,
			Model:   a.cfg.Classifier.Model,
			Timeout: time.Duration(a.cfg.Classifier.TimeoutSeconds) * time.Second,
		}, logger.NewServiceLogger("classifier"))
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	if mappingFile == "" {
		mappingFile = a.cfg.Classifier.MappingFile
	}
	if mappingFile != "" {
		fc, err := classification.LoadMappingFile(mappingFile)
		if err != nil {
			return nil, err
		}
		return fc, nil
	}
	return classification.Unconfigured{}, nil
}

// suggestionCache returns Redis when enabled, else an in-process cache
func (a *app) suggestionCache() classification.SuggestionCache {
	if a.cfg.Cache.RedisEnabled {
		rc, err := cache.NewRedisCache(&a.cfg.Cache, logger.NewServiceLogger("cache"))
		if err == nil {
			a.closers = append(a.closers, rc.Close)
			a.redis = rc
			return rc
		}
		a.logger.Warn("redis cache unavailable, using memory cache", slog.Any("error", err))
	}
	return cache.NewMemoryCache(a.cfg.Cache.TTLHours)
}

func (a *app) classificationService(mappingFile string) (*classification.Service, error) {
	c, err := a.classifier(mappingFile)
	if err != nil {
		return nil, err
	}
	return classification.NewService(
		a.companies,
		a.transactions,
		a.mappings,
		c,
		a.suggestionCache(),
		classification.Config{
			AutoThreshold:        a.cfg.Mapping.AutoThreshold,
			InteractiveThreshold: a.cfg.Mapping.InteractiveThreshold,
			RecentTransactions:   a.cfg.Mapping.RecentTransactions,
		},
		logger.NewServiceLogger("classification"),
	), nil
}

func (a *app) emissionsService() *emissions.Service {
	return emissions.NewService(a.companies, a.mappings, a.transactions, a.emissions,
		logger.NewServiceLogger("emissions"))
}

func (a *app) assessor() *gapassessment.Service {
	return gapassessment.NewService(a.companies, a.mappings, a.emissions, a.disclosures,
		logger.NewServiceLogger("gapassessment"))
}

func (a *app) reportingService() *reporting.Service {
	return reporting.NewService(
		a.companies,
		a.assessor(),
		a.emissions,
		a.mappings,
		a.transactions,
		a.reports,
		reports.NewXLSXRenderer(logger.NewServiceLogger("reports")),
		logger.NewServiceLogger("reporting"),
	)
}

func (a *app) runner(mapper pipeline.AccountMapper) *pipeline.Runner {
	return pipeline.NewRunner(
		a.ingestionService(),
		mapper,
		a.emissionsService(),
		a.reportingService(),
		a.transactions,
		logger.NewServiceLogger("pipeline"),
	)
}

func (a *app) dashboardService() *dashboard.Service {
	return dashboard.NewService(dashboard.Repositories{
		Companies:    a.companies,
		Transactions: a.transactions,
		Emissions:    a.emissions,
		Mappings:     a.mappings,
		Disclosures:  a.disclosures,
		Reports:      a.reports,
		Audit:        a.audit,
	}, logger.NewServiceLogger("dashboard"))
}

// resolveCompany parses the --company flag. Without it the only registered
// company is used.
func (a *app) resolveCompany(ctx context.Context, flag string) (uuid.UUID, error) {
	if flag != "" {
		id, err := uuid.Parse(flag)
		if err != nil {
			return uuid.Nil, apperrors.BadRequest(fmt.Sprintf("invalid company id %q", flag))
		}
		if _, err := a.companies.FindByID(ctx, id); err != nil {
			return uuid.Nil, err
		}
		return id, nil
	}

	companies, err := a.companies.List(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	switch len(companies) {
	case 0:
		return uuid.Nil, apperrors.BadRequest("no company registered, run 'company create' first")
	case 1:
		return companies[0].ID, nil
	default:
		return uuid.Nil, apperrors.BadRequest("several companies registered, pass --company")
	}
}
