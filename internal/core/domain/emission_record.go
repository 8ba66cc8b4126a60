package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EmissionRecord is one calculated category total for a (company, period).
// Records of a period are replaced as a whole on recalculation.
type EmissionRecord struct {
	ID                 uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	CompanyID          uuid.UUID `gorm:"type:uuid;not null;index:idx_emissions_company_period" json:"company_id"`
	Period             string    `gorm:"type:text;not null;index:idx_emissions_company_period" json:"period"`
	Scope              int       `gorm:"not null" json:"scope"`
	Category           Category  `gorm:"type:varchar(50)" json:"category"`
	ValueTCO2e         float64   `gorm:"column:value_tco2e;not null" json:"value_tco2e"`
	Quantity           float64   `json:"quantity"`
	Unit               string    `gorm:"type:varchar(20)" json:"unit"`
	EmissionFactorUsed float64   `json:"emission_factor_used"`
	FactorSource       string    `gorm:"type:varchar(255);not null" json:"factor_source"`
	FactorVintage      int       `json:"factor_vintage"`
	CalculationMethod  string    `gorm:"type:text;not null" json:"calculation_method"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for GORM
func (EmissionRecord) TableName() string {
	return "emission_records"
}

// BeforeCreate GORM hook
func (e *EmissionRecord) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
