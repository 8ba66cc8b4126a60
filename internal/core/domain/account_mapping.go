package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Who (or what) confirmed a mapping
const (
	ConfirmedByHuman              = "human"
	ConfirmedByAuto               = "auto"
	ConfirmedByAutoHighConfidence = "auto_high_confidence"
	ConfirmedByNeedsReview        = "needs_review"
)

// AccountMapping assigns a ledger account of one company to an ESG category.
// (company_id, account_number) is unique.
type AccountMapping struct {
	ID              uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	CompanyID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_mapping_company_account" json:"company_id"`
	AccountNumber   string     `gorm:"type:text;not null;uniqueIndex:idx_mapping_company_account" json:"account_number"`
	AccountName     string     `gorm:"type:text;index:idx_mapping_account_name" json:"account_name"`
	Category        Category   `gorm:"column:esg_category;type:varchar(50);not null;index" json:"esg_category"`
	ConfidenceScore float64    `json:"confidence_score"`
	ConfirmedBy     string     `gorm:"type:varchar(30)" json:"confirmed_by"`
	ConfirmedAt     *time.Time `json:"confirmed_at,omitempty"`
	Source          string     `gorm:"type:varchar(50);default:'auto'" json:"source"`
	Rationale       string     `gorm:"type:text" json:"rationale,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (AccountMapping) TableName() string {
	return "account_mappings"
}

// BeforeCreate GORM hook
func (m *AccountMapping) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// IsConfirmed reports whether the mapping can seed the cross-company library
func (m AccountMapping) IsConfirmed() bool {
	switch m.ConfirmedBy {
	case ConfirmedByHuman, ConfirmedByAuto, ConfirmedByAutoHighConfidence:
		return true
	default:
		return false
	}
}

// ValidConfirmations returns the accepted ConfirmedBy values
func ValidConfirmations() []string {
	return []string{ConfirmedByHuman, ConfirmedByAuto, ConfirmedByAutoHighConfidence, ConfirmedByNeedsReview}
}
