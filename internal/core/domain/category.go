package domain

import (
	"strings"

	apperrors "github.com/alejandroruanova/esg-pipeline/internal/pkg/errors"
)

// Category is the closed set of ESG spend categories an account can map to
type Category string

const (
	CategoryEnergyElectricity Category = "energy_electricity"
	CategoryEnergyGas         Category = "energy_gas"
	CategoryFuel              Category = "fuel"
	CategoryWater             Category = "water"
	CategoryWaste             Category = "waste"
	CategoryLogistics         Category = "logistics"
	CategoryMaterials         Category = "materials"
	CategoryTravel            Category = "travel"
	CategoryHRPayroll         Category = "hr_payroll"
	CategoryRentFacilities    Category = "rent_facilities"
	CategoryInsurance         Category = "insurance"
	CategoryProfessionalFees  Category = "professional_fees"
	CategoryRevenue           Category = "revenue"
	CategoryFinancial         Category = "financial"
	CategoryTax               Category = "tax"
	CategoryDepreciation      Category = "depreciation"
	CategoryOther             Category = "other"
)

var categoryDescriptions = []struct {
	category Category
	hint     string
}{
	{CategoryEnergyElectricity, "Electricity costs (Strom)"},
	{CategoryEnergyGas, "Natural gas costs (Erdgas, Gas)"},
	{CategoryFuel, "Diesel, petrol, heating oil (Treibstoff, Heizoel)"},
	{CategoryWater, "Water consumption (Wasser)"},
	{CategoryWaste, "Waste disposal, recycling (Abfall, Entsorgung, Muell)"},
	{CategoryLogistics, "Freight, transport, shipping (Fracht, Transport, Versand)"},
	{CategoryMaterials, "Raw materials, office supplies (Material, Rohstoffe, Buero)"},
	{CategoryTravel, "Business travel (Reise, Dienstreise, Flug)"},
	{CategoryHRPayroll, "Wages, salaries, social costs (Loehne, Gehaelter, Sozialaufwand)"},
	{CategoryRentFacilities, "Rent, building costs (Miete, Gebaeude, Betriebskosten)"},
	{CategoryInsurance, "Insurance (Versicherung)"},
	{CategoryProfessionalFees, "Legal, consulting, audit (Rechtsberatung, Beratung, Pruefung)"},
	{CategoryRevenue, "Sales revenue (Umsatz, Erloes), not relevant for emissions"},
	{CategoryFinancial, "Bank charges, interest (Zinsen, Bankspesen, Finanzaufwand)"},
	{CategoryTax, "Tax payments (Steuer, KoeSt, USt)"},
	{CategoryDepreciation, "Depreciation (Abschreibung, AfA)"},
	{CategoryOther, "Cannot determine from available information"},
}

// Categories returns every category in canonical order
func Categories() []Category {
	out := make([]Category, 0, len(categoryDescriptions))
	for _, d := range categoryDescriptions {
		out = append(out, d.category)
	}
	return out
}

// CategoryHint returns the short bilingual description used in prompts
func CategoryHint(c Category) string {
	for _, d := range categoryDescriptions {
		if d.category == c {
			return d.hint
		}
	}
	return ""
}

// IsValid reports whether c is one of the known categories
func (c Category) IsValid() bool {
	return CategoryHint(c) != ""
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory validates a label coming from outside the core
func ParseCategory(raw string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(raw)))
	if !c.IsValid() {
		return CategoryOther, apperrors.InvalidCategory(raw)
	}
	return c, nil
}
