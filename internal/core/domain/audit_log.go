package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog is the append-only trail of pipeline actions
type AuditLog struct {
	ID           uuid.UUID         `gorm:"type:uuid;primary_key" json:"id"`
	Timestamp    time.Time         `gorm:"autoCreateTime;index" json:"timestamp"`
	Action       string            `gorm:"type:varchar(50);not null;index" json:"action"`
	ResourceType string            `gorm:"type:varchar(50)" json:"resource_type"`
	ResourceID   string            `gorm:"type:text" json:"resource_id"`
	Details      string            `gorm:"type:text" json:"details"`
	User         string            `gorm:"column:user_name;type:varchar(100);default:'system'" json:"user"`
	Metadata     datatypes.JSONMap `json:"metadata,omitempty"`
}

// TableName specifies the table name for GORM
func (AuditLog) TableName() string {
	return "audit_log"
}

// BeforeCreate GORM hook
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.User == "" {
		a.User = "system"
	}
	return nil
}

// Audit actions
const (
	AuditFileIngested        = "file_ingested"
	AuditAccountMapped       = "account_mapped"
	AuditEmissionsCalculated = "emissions_calculated"
	AuditReportGenerated     = "report_generated"
	AuditCompanyCreated      = "company_created"
	AuditDatabaseReset       = "database_reset"
)

// NewAuditLog builds an entry attributed to the system user
func NewAuditLog(action, resourceType, resourceID, details string) *AuditLog {
	return &AuditLog{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
		User:         "system",
	}
}

// WithMetadata attaches structured values next to the details text
func (a *AuditLog) WithMetadata(key string, value interface{}) *AuditLog {
	if a.Metadata == nil {
		a.Metadata = datatypes.JSONMap{}
	}
	a.Metadata[key] = value
	return a
}
