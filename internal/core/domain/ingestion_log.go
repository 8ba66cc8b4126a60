package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FileKind identifies which export family a CSV belongs to
type FileKind string

const (
	FileKindLedger   FileKind = "FIBU"
	FileKindSupplier FileKind = "WAWI"
	FileKindUnknown  FileKind = "UNKNOWN"
)

// Ingestion statuses
const (
	IngestionStatusSuccess   = "success"
	IngestionStatusFailed    = "failed"
	IngestionStatusDuplicate = "duplicate"
)

// MaxQuarantineReasons caps the reasons kept per file
const MaxQuarantineReasons = 20

// IngestionLog records one processed source file. FileHash is unique: a
// file whose content hash is already logged is never processed again.
type IngestionLog struct {
	ID                uuid.UUID                   `gorm:"type:uuid;primary_key" json:"id"`
	CompanyID         *uuid.UUID                  `gorm:"type:uuid;index" json:"company_id,omitempty"`
	FileName          string                      `gorm:"type:varchar(500);not null" json:"file_name"`
	FileHash          string                      `gorm:"type:varchar(64);uniqueIndex;not null" json:"file_hash"`
	FileSize          int64                       `json:"file_size"`
	EncodingDetected  string                      `gorm:"type:varchar(50)" json:"encoding_detected"`
	Delimiter         string                      `gorm:"type:varchar(4)" json:"delimiter"`
	FileKind          FileKind                    `gorm:"type:varchar(20)" json:"file_kind"`
	RowsParsed        int                         `gorm:"default:0" json:"rows_parsed"`
	RowsValid         int                         `gorm:"default:0" json:"rows_valid"`
	RowsQuarantined   int                         `gorm:"default:0" json:"rows_quarantined"`
	Status            string                      `gorm:"type:varchar(20);not null;default:'success'" json:"status"`
	ErrorMessage      string                      `gorm:"type:text" json:"error_message,omitempty"`
	QuarantineReasons datatypes.JSONSlice[string] `json:"quarantine_reasons,omitempty"`
	IngestedAt        time.Time                   `gorm:"autoCreateTime" json:"ingested_at"`
}

// TableName specifies the table name for GORM
func (IngestionLog) TableName() string {
	return "file_ingestion_log"
}

// BeforeCreate GORM hook - called before creating a record
func (l *IngestionLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// ValidIngestionStatuses returns the statuses a persisted log may carry
func ValidIngestionStatuses() []string {
	return []string{IngestionStatusSuccess, IngestionStatusFailed}
}

// IsValidIngestionStatus checks if a status is valid
func IsValidIngestionStatus(status string) bool {
	for _, s := range ValidIngestionStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// CapReasons truncates reasons to MaxQuarantineReasons
func CapReasons(reasons []string) []string {
	if len(reasons) > MaxQuarantineReasons {
		return reasons[:MaxQuarantineReasons]
	}
	return reasons
}
