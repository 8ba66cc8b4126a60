package ingestion

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/alejandroruanova/esg-pipeline/internal/core/domain"
	"github.com/alejandroruanova/esg-pipeline/internal/infrastructure/parsers"
)

// Status is the terminal outcome of one file
type Status string

const (
	StatusSuccess   Status = domain.IngestionStatusSuccess
	StatusFailed    Status = domain.IngestionStatusFailed
	StatusDuplicate Status = domain.IngestionStatusDuplicate
)

// Result summarizes the ingestion of one file
type Result struct {
	FileName          string          `json:"file_name"`
	Status            Status          `json:"status"`
	FileKind          domain.FileKind `json:"file_kind,omitempty"`
	Encoding          string          `json:"encoding,omitempty"`
	Delimiter         string          `json:"delimiter,omitempty"`
	RowsTotal         int             `json:"rows_total"`
	RowsValid         int             `json:"rows_valid"`
	RowsQuarantined   int             `json:"rows_quarantined"`
	QuarantineReasons []string        `json:"quarantine_reasons,omitempty"`
	Error             string          `json:"error,omitempty"`
	FileHash          string          `json:"file_hash"`
	LogID             uuid.UUID       `json:"log_id,omitempty"`

	// Set for duplicates only
	OriginalLogID      *uuid.UUID `json:"original_log_id,omitempty"`
	OriginalIngestedAt *time.Time `json:"original_ingested_at,omitempty"`
}

// InboxResult is the outcome of one inbox file
type InboxResult struct {
	Path    string  `json:"path"`
	Result  *Result `json:"result,omitempty"`
	MovedTo string  `json:"moved_to,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// Parser reads a delimited export into a text table
type Parser interface {
	DetectEncoding(filePath string) (string, error)
	Parse(ctx context.Context, filePath, encodingName string) (*parsers.Dataset, error)
}

// Repository persists one file's staged rows, its log entry and audit entry
// atomically
type Repository interface {
	SaveIngestion(
		ctx context.Context,
		entry *domain.IngestionLog,
		transactions []domain.Transaction,
		suppliers []domain.Supplier,
		audit *domain.AuditLog,
	) error
}

// FileStore owns the drop folders
type FileStore interface {
	ListInbox(ctx context.Context) ([]string, error)
	MoveToProcessed(ctx context.Context, path string) (string, error)
	MoveToQuarantine(ctx context.Context, path string) (string, error)
}

// Ingester defines the ingestion operations used by the front ends
type Ingester interface {
	IngestFile(ctx context.Context, path string, companyID uuid.UUID) (*Result, error)
	IngestInbox(ctx context.Context, companyID uuid.UUID) ([]InboxResult, error)
}
