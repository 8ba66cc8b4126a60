package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Company is the root aggregate; every other record belongs to one
type Company struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name           string    `gorm:"type:varchar(255);not null" json:"name"`
	UIDVat         *string   `gorm:"type:varchar(32);uniqueIndex" json:"uid_vat,omitempty"`
	NaceCode       string    `gorm:"type:varchar(16)" json:"nace_code,omitempty"`
	SizeEmployees  int       `json:"size_employees,omitempty"`
	BMDClientID    string    `gorm:"type:varchar(64)" json:"bmd_client_id,omitempty"`
	Status         string    `gorm:"type:varchar(20);not null;default:'onboarding'" json:"status"`
	OnboardingDate time.Time `gorm:"autoCreateTime" json:"onboarding_date"`
}

// TableName specifies the table name for GORM
func (Company) TableName() string {
	return "companies"
}

// BeforeCreate GORM hook
func (c *Company) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = "onboarding"
	}
	return nil
}
