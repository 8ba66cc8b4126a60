package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/alejandroruanova/esg-pipeline/internal/core/services/classification"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/emissions"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/ingestion"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/reporting"
	apperrors "github.com/alejandroruanova/esg-pipeline/internal/pkg/errors"
)

// InboxIngester ingests every file waiting in the inbox
type InboxIngester interface {
	IngestInbox(ctx context.Context, companyID uuid.UUID) ([]ingestion.InboxResult, error)
}

// AccountMapper maps the accounts that have no mapping yet
type AccountMapper interface {
	MapAccounts(ctx context.Context, companyID uuid.UUID, opts classification.Options) (*classification.Summary, error)
}

// Handlers runs pipeline steps for queued tasks
type Handlers struct {
	ingester   InboxIngester
	mapper     AccountMapper
	calculator emissions.Calculator
	generator  reporting.Generator
	enqueuer   Enqueuer
	outputDir  string
	maxRetry   int
	logger     *slog.Logger
}

// HandlersConfig lists the collaborators of Handlers. Mapper and Enqueuer are
// optional: without a mapper chained runs skip auto-mapping, without an
// enqueuer chaining is off.
type HandlersConfig struct {
	Ingester   InboxIngester
	Mapper     AccountMapper
	Calculator emissions.Calculator
	Generator  reporting.Generator
	Enqueuer   Enqueuer
	OutputDir  string
	MaxRetry   int
}

// NewHandlers creates the task handlers
func NewHandlers(cfg HandlersConfig, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		ingester:   cfg.Ingester,
		mapper:     cfg.Mapper,
		calculator: cfg.Calculator,
		generator:  cfg.Generator,
		enqueuer:   cfg.Enqueuer,
		outputDir:  cfg.OutputDir,
		maxRetry:   cfg.MaxRetry,
		logger:     logger,
	}
}

// Register installs the handlers on the server
func (h *Handlers) Register(server *AsynqServer) {
	server.Use(LoggingMiddleware(h.logger))
	server.HandleFunc(TaskIngestInbox, h.HandleIngestInbox)
	server.HandleFunc(TaskCalculateEmissions, h.HandleCalculateEmissions)
	server.HandleFunc(TaskGenerateReport, h.HandleGenerateReport)
}

// HandleIngestInbox ingests the inbox. In a chained run new accounts are
// auto-mapped and the emissions step is enqueued.
func (h *Handlers) HandleIngestInbox(ctx context.Context, t *asynq.Task) error {
	p, err := ParsePayload(t)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	results, err := h.ingester.IngestInbox(ctx, p.CompanyID)
	if err != nil {
		return permanent(err)
	}

	h.logger.Info("inbox ingested",
		slog.String("company_id", p.CompanyID.String()),
		slog.Int("files", len(results)))

	if !p.Chain {
		return nil
	}

	if h.mapper != nil {
		summary, err := h.mapper.MapAccounts(ctx, p.CompanyID, classification.Options{Mode: classification.ModeAuto})
		if err != nil {
			return permanent(err)
		}
		h.logger.Info("accounts mapped",
			slog.String("company_id", p.CompanyID.String()),
			slog.Int("mapped", summary.Mapped),
			slog.Int("needs_review", len(summary.NeedsReview)))
	}

	return h.next(ctx, TaskCalculateEmissions, p)
}

// HandleCalculateEmissions calculates emissions for the payload period
func (h *Handlers) HandleCalculateEmissions(ctx context.Context, t *asynq.Task) error {
	p, err := ParsePayload(t)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	summary, err := h.calculator.Calculate(ctx, p.CompanyID, p.Period)
	if err != nil {
		return permanent(err)
	}

	h.logger.Info("emissions calculated",
		slog.String("company_id", p.CompanyID.String()),
		slog.String("period", summary.Period),
		slog.Float64("total_tco2e", summary.TotalTCO2e))

	return h.next(ctx, TaskGenerateReport, p)
}

// HandleGenerateReport assesses the disclosures and writes the workbook
func (h *Handlers) HandleGenerateReport(ctx context.Context, t *asynq.Task) error {
	p, err := ParsePayload(t)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	report, err := h.generator.Generate(ctx, p.CompanyID, h.outputDir)
	if err != nil {
		return permanent(err)
	}

	h.logger.Info("report generated",
		slog.String("company_id", p.CompanyID.String()),
		slog.String("path", report.Path),
		slog.Int("version", report.Version))
	return nil
}

func (h *Handlers) next(ctx context.Context, taskType string, p Payload) error {
	if !p.Chain || h.enqueuer == nil {
		return nil
	}
	task, err := newTask(taskType, p, h.maxRetry)
	if err != nil {
		return err
	}
	if _, err := h.enqueuer.EnqueueContext(ctx, task, asynq.Queue(QueueCritical)); err != nil {
		return apperrors.QueueError(err)
	}
	return nil
}

// permanent marks precondition failures as not retryable. Other errors are
// returned as is and retried with backoff.
func permanent(err error) error {
	if errors.Is(err, apperrors.ErrCompanyNotFound) ||
		errors.Is(err, apperrors.ErrNoMappings) ||
		errors.Is(err, apperrors.ErrNoTransactions) {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return err
}
