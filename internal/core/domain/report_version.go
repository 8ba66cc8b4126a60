package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportTypeESRSE1Gap is the only report type generated today
const ReportTypeESRSE1Gap = "esrs_e1_gap"

// ReportVersion tracks each generated report file. Versions count up per
// (company, report type) and always start as drafts.
type ReportVersion struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	CompanyID     uuid.UUID `gorm:"type:uuid;not null;index" json:"company_id"`
	ReportType    string    `gorm:"type:varchar(50);not null" json:"report_type"`
	VersionNumber int       `gorm:"not null" json:"version_number"`
	Status        string    `gorm:"type:varchar(20);default:'draft'" json:"status"`
	ReviewedBy    string    `gorm:"type:varchar(255)" json:"reviewed_by,omitempty"`
	ReviewNotes   string    `gorm:"type:text" json:"review_notes,omitempty"`
	FilePath      string    `gorm:"type:text" json:"file_path"`
	GeneratedAt   time.Time `gorm:"autoCreateTime" json:"generated_at"`
}

// TableName specifies the table name for GORM
func (ReportVersion) TableName() string {
	return "report_versions"
}

// BeforeCreate GORM hook
func (r *ReportVersion) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = "draft"
	}
	return nil
}

// Models lists every persisted type, in migration order
func Models() []interface{} {
	return []interface{}{
		&Company{},
		&Transaction{},
		&Supplier{},
		&IngestionLog{},
		&AccountMapping{},
		&EmissionRecord{},
		&Disclosure{},
		&ReportVersion{},
		&AuditLog{},
	}
}
