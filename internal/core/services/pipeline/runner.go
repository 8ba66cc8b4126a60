package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/alejandroruanova/esg-pipeline/internal/core/services/classification"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/emissions"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/ingestion"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/reporting"
	apperrors "github.com/alejandroruanova/esg-pipeline/internal/pkg/errors"
)

// ModeSkip keeps the stored mappings and runs no mapping step
const ModeSkip classification.Mode = "skip"

// InboxIngester ingests every file waiting in the inbox
type InboxIngester interface {
	IngestInbox(ctx context.Context, companyID uuid.UUID) ([]ingestion.InboxResult, error)
}

// AccountMapper maps accounts that have no mapping yet
type AccountMapper interface {
	MapAccounts(ctx context.Context, companyID uuid.UUID, opts classification.Options) (*classification.Summary, error)
}

// TransactionCounter counts the staged transactions of a company
type TransactionCounter interface {
	CountByCompany(ctx context.Context, companyID uuid.UUID) (int64, error)
}

// Options controls one run
type Options struct {
	Period    string
	Mapping   classification.Options
	OutputDir string
}

// Result collects the outcome of every step
type Result struct {
	CompanyID uuid.UUID               `json:"company_id"`
	Inbox     []ingestion.InboxResult `json:"inbox"`
	Mapping   *classification.Summary `json:"mapping,omitempty"`
	Emissions *emissions.Summary      `json:"emissions"`
	Report    *reporting.Report       `json:"report"`
}

// Runner executes ingest, map, calculate and report in order. Each step
// commits on its own; a failing step leaves earlier steps in place.
type Runner struct {
	ingester     InboxIngester
	mapper       AccountMapper
	calculator   emissions.Calculator
	generator    reporting.Generator
	transactions TransactionCounter
	logger       *slog.Logger
}

// NewRunner creates a pipeline runner
func NewRunner(
	ingester InboxIngester,
	mapper AccountMapper,
	calculator emissions.Calculator,
	generator reporting.Generator,
	transactions TransactionCounter,
	logger *slog.Logger,
) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		ingester:     ingester,
		mapper:       mapper,
		calculator:   calculator,
		generator:    generator,
		transactions: transactions,
		logger:       logger,
	}
}

// Run processes the inbox of a company end to end. With an empty inbox the
// run continues on previously staged transactions; with none at all it stops
// with NO_TRANSACTIONS before mapping.
func (r *Runner) Run(ctx context.Context, companyID uuid.UUID, opts Options) (*Result, error) {
	res := &Result{CompanyID: companyID}

	inbox, err := r.ingester.IngestInbox(ctx, companyID)
	if err != nil {
		return res, err
	}
	res.Inbox = inbox

	if len(inbox) == 0 {
		count, err := r.transactions.CountByCompany(ctx, companyID)
		if err != nil {
			return res, err
		}
		if count == 0 {
			r.logger.Warn("nothing to process",
				slog.String("company_id", companyID.String()))
			return res, apperrors.ErrNoTransactions
		}
		r.logger.Info("inbox empty, using staged transactions",
			slog.String("company_id", companyID.String()),
			slog.Int64("transactions", count))
	}

	if opts.Mapping.Mode != ModeSkip {
		mode := opts.Mapping
		if mode.Mode == "" {
			mode.Mode = classification.ModeAuto
		}
		summary, err := r.mapper.MapAccounts(ctx, companyID, mode)
		if err != nil {
			return res, err
		}
		res.Mapping = summary
	}

	summary, err := r.calculator.Calculate(ctx, companyID, opts.Period)
	if err != nil {
		return res, err
	}
	res.Emissions = summary

	report, err := r.generator.Generate(ctx, companyID, opts.OutputDir)
	if err != nil {
		return res, err
	}
	res.Report = report

	r.logger.Info("pipeline complete",
		slog.String("company_id", companyID.String()),
		slog.Int("files", len(inbox)),
		slog.String("report", report.Path))

	return res, nil
}
