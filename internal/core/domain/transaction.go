package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Transaction is one ledger booking line. Created by ingestion only and
// never updated afterwards.
type Transaction struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	CompanyID      uuid.UUID `gorm:"type:uuid;not null;index:idx_transactions_company_account" json:"company_id"`
	Date           string    `gorm:"type:text;not null;index" json:"date"`
	AccountNumber  string    `gorm:"type:text;not null;index:idx_transactions_company_account" json:"account_number"`
	CounterAccount *string   `gorm:"type:text" json:"counter_account,omitempty"`
	AmountEUR      float64   `gorm:"not null;default:0" json:"amount_eur"`
	VATCode        *string   `gorm:"type:text" json:"vat_code,omitempty"`
	CostCenter     *string   `gorm:"type:text" json:"cost_center,omitempty"`
	DocumentRef    *string   `gorm:"type:text" json:"document_ref,omitempty"`
	BookingText    *string   `gorm:"type:text" json:"booking_text,omitempty"`
	SourceFile     string    `gorm:"type:varchar(500);not null" json:"source_file"`
	RowNumber      int       `json:"row_number"`
	IngestedAt     time.Time `gorm:"autoCreateTime" json:"ingested_at"`
}

// TableName specifies the table name for GORM
func (Transaction) TableName() string {
	return "transactions"
}

// BeforeCreate GORM hook
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Supplier is one row of the supplier master export
type Supplier struct {
	ID             uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	CompanyID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"company_id"`
	Name           string     `gorm:"type:text;not null" json:"name"`
	UIDVat         *string    `gorm:"type:text" json:"uid_vat,omitempty"`
	Country        *string    `gorm:"type:text" json:"country,omitempty"`
	SpendEURAnnual *float64   `json:"spend_eur_annual,omitempty"`
	OutreachStatus string     `gorm:"type:varchar(20);default:'pending'" json:"outreach_status"`
	ResponseDate   *time.Time `json:"response_date,omitempty"`
	SourceFile     string     `gorm:"type:varchar(500)" json:"source_file"`
	RowNumber      int        `json:"row_number"`
}

// TableName specifies the table name for GORM
func (Supplier) TableName() string {
	return "suppliers"
}

// BeforeCreate GORM hook
func (s *Supplier) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.OutreachStatus == "" {
		s.OutreachStatus = "pending"
	}
	return nil
}
