package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/alejandroruanova/esg-pipeline/internal/core/domain"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/deduplication"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/schema"
	"github.com/alejandroruanova/esg-pipeline/internal/infrastructure/parsers"
)

// Service implements the Ingester interface
type Service struct {
	dedup  deduplication.Deduplicator
	parser Parser
	repo   Repository
	files  FileStore
	logger *slog.Logger
}

// NewService creates a new ingestion service
func NewService(
	dedup deduplication.Deduplicator,
	parser Parser,
	repo Repository,
	files FileStore,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		dedup:  dedup,
		parser: parser,
		repo:   repo,
		files:  files,
		logger: logger,
	}
}

// IngestFile loads one ledger or supplier export for a company. Duplicate
// content, unparseable files and missing mandatory columns are reported in
// the Result; the returned error is reserved for I/O and database failures.
func (s *Service) IngestFile(ctx context.Context, path string, companyID uuid.UUID) (*Result, error) {
	fileName := filepath.Base(path)
	log := s.logger.With(slog.String("file", fileName))

	check, err := s.dedup.Check(ctx, path)
	if err != nil {
		return nil, err
	}

	result := &Result{FileName: fileName, FileHash: check.Hash}

	if check.Duplicate {
		result.Status = StatusDuplicate
		result.OriginalLogID = &check.Original.ID
		result.OriginalIngestedAt = &check.Original.IngestedAt
		return result, nil
	}

	encoding, err := s.parser.DetectEncoding(path)
	if err != nil {
		return nil, fmt.Errorf("failed to detect encoding: %w", err)
	}
	result.Encoding = encoding

	entry := &domain.IngestionLog{
		CompanyID:        &companyID,
		FileName:         fileName,
		FileHash:         check.Hash,
		FileSize:         check.Size,
		EncodingDetected: encoding,
		FileKind:         domain.FileKindUnknown,
	}

	ds, err := s.parser.Parse(ctx, path, encoding)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return s.failFile(ctx, path, entry, result, err)
	}

	result.Delimiter = parsers.DelimiterString(ds.Delimiter)
	result.RowsTotal = ds.Len()
	entry.Delimiter = result.Delimiter
	entry.RowsParsed = ds.Len()

	kind := schema.DetectFileKind(ds.Columns())
	result.FileKind = kind
	entry.FileKind = kind

	log.Info("file parsed",
		slog.String("encoding", encoding),
		slog.String("delimiter", result.Delimiter),
		slog.String("kind", string(kind)),
		slog.Int("columns", len(ds.Columns())),
		slog.Int("rows", ds.Len()))

	var (
		transactions []domain.Transaction
		suppliers    []domain.Supplier
		q            quarantine
		stageErr     error
	)

	switch kind {
	case domain.FileKindSupplier:
		var rows *supplierRows
		if rows, stageErr = stageSuppliers(ds, companyID, fileName); stageErr == nil {
			suppliers, q = rows.suppliers, rows.quarantine
		}
	default:
		if kind == domain.FileKindUnknown {
			log.Warn("unknown file kind, trying ledger layout")
		}
		var rows *ledgerRows
		if rows, stageErr = stageLedger(ds, companyID, fileName); stageErr == nil {
			transactions, q = rows.transactions, rows.quarantine
		}
	}

	valid := len(transactions) + len(suppliers)
	result.RowsValid = valid
	result.RowsQuarantined = q.count
	result.QuarantineReasons = q.reasons

	entry.RowsValid = valid
	entry.RowsQuarantined = q.count
	entry.QuarantineReasons = q.reasons
	entry.Status = domain.IngestionStatusFailed
	if valid > 0 {
		entry.Status = domain.IngestionStatusSuccess
	}
	if stageErr != nil {
		result.Error = stageErr.Error()
		entry.ErrorMessage = stageErr.Error()
		log.Warn("file rejected", slog.Any("error", stageErr))
	}
	result.Status = Status(entry.Status)

	audit := fileAudit(fileName, kind, valid, q.count)
	if err := s.repo.SaveIngestion(ctx, entry, transactions, suppliers, audit); err != nil {
		return nil, err
	}
	result.LogID = entry.ID

	log.Info("file ingested",
		slog.String("status", string(result.Status)),
		slog.Int("rows_valid", valid),
		slog.Int("rows_quarantined", q.count))

	return result, nil
}

// failFile records a file that could not be read as a table and moves it
// to quarantine
func (s *Service) failFile(ctx context.Context, path string, entry *domain.IngestionLog, result *Result, cause error) (*Result, error) {
	entry.Status = domain.IngestionStatusFailed
	entry.ErrorMessage = cause.Error()

	result.Status = StatusFailed
	result.FileKind = domain.FileKindUnknown
	result.Error = cause.Error()

	audit := fileAudit(entry.FileName, domain.FileKindUnknown, 0, 0).
		WithMetadata("error", cause.Error())
	if err := s.repo.SaveIngestion(ctx, entry, nil, nil, audit); err != nil {
		return nil, err
	}
	result.LogID = entry.ID

	if _, err := s.files.MoveToQuarantine(ctx, path); err != nil {
		s.logger.Warn("failed to quarantine file",
			slog.String("file", entry.FileName),
			slog.Any("error", err))
	}

	s.logger.Error("file could not be parsed",
		slog.String("file", entry.FileName),
		slog.Any("error", cause))

	return result, nil
}

func fileAudit(fileName string, kind domain.FileKind, valid, quarantined int) *domain.AuditLog {
	return domain.NewAuditLog(domain.AuditFileIngested, "file", fileName,
		fmt.Sprintf("type=%s, valid=%d, quarantined=%d", kind, valid, quarantined))
}

// IngestInbox ingests every CSV waiting in the inbox in name order. Files
// that ingest successfully move to the processed folder; duplicates and
// failures stay where they are.
func (s *Service) IngestInbox(ctx context.Context, companyID uuid.UUID) ([]InboxResult, error) {
	files, err := s.files.ListInbox(ctx)
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		s.logger.Info("inbox is empty")
		return nil, nil
	}

	results := make([]InboxResult, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		item := InboxResult{Path: path}

		res, err := s.IngestFile(ctx, path, companyID)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return results, err
			}
			s.logger.Error("ingestion failed",
				slog.String("file", filepath.Base(path)),
				slog.Any("error", err))
			item.Error = err.Error()
			results = append(results, item)
			continue
		}
		item.Result = res

		if res.Status == StatusSuccess {
			dest, err := s.files.MoveToProcessed(ctx, path)
			if err != nil {
				item.Error = err.Error()
			} else {
				item.MovedTo = dest
			}
		}

		results = append(results, item)
	}

	return results, nil
}
