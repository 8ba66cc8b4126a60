package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Disclosure assessment statuses
const (
	DisclosureMet     = "met"
	DisclosurePartial = "partial"
	DisclosureGap     = "gap"
)

// Disclosure holds the latest assessment of one ESRS checklist item for a
// company. (company_id, standard_ref) is unique.
type Disclosure struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	CompanyID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_disclosure_company_ref" json:"company_id"`
	StandardRef    string     `gorm:"type:varchar(16);not null;uniqueIndex:idx_disclosure_company_ref" json:"standard_ref"`
	Title          string     `gorm:"column:disclosure_title;type:varchar(255)" json:"disclosure_title"`
	Status         string     `gorm:"type:varchar(10);not null;default:'gap'" json:"status"`
	DataAvailable  bool       `gorm:"default:false" json:"data_available"`
	GapNotes       string     `gorm:"type:text" json:"gap_notes"`
	LastAssessedAt *time.Time `json:"last_assessed_at,omitempty"`
}

// TableName specifies the table name for GORM
func (Disclosure) TableName() string {
	return "esrs_disclosures"
}

// BeforeCreate GORM hook
func (d *Disclosure) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// ValidDisclosureStatuses returns list of valid assessment statuses
func ValidDisclosureStatuses() []string {
	return []string{DisclosureMet, DisclosurePartial, DisclosureGap}
}

// IsValidDisclosureStatus checks if status is valid
func IsValidDisclosureStatus(status string) bool {
	for _, s := range ValidDisclosureStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// HasData reports whether a status counts as data being available
func HasData(status string) bool {
	return status == DisclosureMet || status == DisclosurePartial
}
