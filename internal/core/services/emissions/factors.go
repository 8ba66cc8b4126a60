package emissions

import "github.com/alejandroruanova/esg-pipeline/internal/core/domain"

// Factor is an emission factor in kg CO2e per physical unit
type Factor struct {
	Key     string
	Factor  float64
	Unit    string
	Scope   int
	Source  string
	Vintage int
	Notes   string
}

// Conversion estimates a physical quantity from EUR spend
type Conversion struct {
	Category   domain.Category
	EURPerUnit float64
	Unit       string
	FactorKey  string
}

var factors = map[string]Factor{
	"electricity_austria": {
		Key: "electricity_austria", Factor: 0.071, Unit: "kWh", Scope: 2, Vintage: 2024,
		Source: "Umweltbundesamt Austria - Stromkennzeichnung",
		Notes:  "Austrian grid average including renewables (~78% renewable share)",
	},
	"electricity_eu_average": {
		Key: "electricity_eu_average", Factor: 0.233, Unit: "kWh", Scope: 2, Vintage: 2023,
		Source: "European Environment Agency",
		Notes:  "EU-27 average for comparison",
	},
	"district_heating_austria": {
		Key: "district_heating_austria", Factor: 0.124, Unit: "kWh", Scope: 2, Vintage: 2024,
		Source: "Umweltbundesamt Austria - Fernwaerme",
		Notes:  "Austrian district heating average",
	},
	"natural_gas_scope2": {
		Key: "natural_gas_scope2", Factor: 0.201, Unit: "kWh", Scope: 2, Vintage: 2024,
		Source: "Umweltbundesamt Austria - Erdgas",
		Notes:  "Natural gas purchased as energy",
	},
	"natural_gas_scope1": {
		Key: "natural_gas_scope1", Factor: 0.201, Unit: "kWh", Scope: 1, Vintage: 2024,
		Source: "Umweltbundesamt Austria - Erdgas",
		Notes:  "Natural gas burned on-site (boilers, furnaces)",
	},
	"heating_oil": {
		Key: "heating_oil", Factor: 0.266, Unit: "kWh", Scope: 1, Vintage: 2024,
		Source: "Umweltbundesamt Austria - Heizoel Extra Leicht",
		Notes:  "Heizoel EL, about 10 kWh per litre",
	},
	"diesel": {
		Key: "diesel", Factor: 2.64, Unit: "litre", Scope: 1, Vintage: 2024,
		Source: "Umweltbundesamt Austria - Diesel",
		Notes:  "Diesel for company vehicles and machinery",
	},
	"petrol": {
		Key: "petrol", Factor: 2.37, Unit: "litre", Scope: 1, Vintage: 2024,
		Source: "Umweltbundesamt Austria - Benzin",
		Notes:  "Petrol for company vehicles",
	},
	"business_travel_flight_short": {
		Key: "business_travel_flight_short", Factor: 0.255, Unit: "passenger-km", Scope: 3, Vintage: 2024,
		Source: "Umweltbundesamt Austria / DEFRA 2024",
		Notes:  "Short-haul flights (<1500km), economy class",
	},
	"business_travel_flight_long": {
		Key: "business_travel_flight_long", Factor: 0.195, Unit: "passenger-km", Scope: 3, Vintage: 2024,
		Source: "Umweltbundesamt Austria / DEFRA 2024",
		Notes:  "Long-haul flights (>1500km), economy class",
	},
	"business_travel_train": {
		Key: "business_travel_train", Factor: 0.006, Unit: "passenger-km", Scope: 3, Vintage: 2024,
		Source: "OeBB Umweltbilanz",
		Notes:  "Austrian rail on renewable traction power",
	},
	"freight_road": {
		Key: "freight_road", Factor: 0.062, Unit: "tonne-km", Scope: 3, Vintage: 2024,
		Source: "Umweltbundesamt Austria - Strassengueterverkehr",
		Notes:  "Road freight, average truck",
	},
}

// Average Austrian SME prices. Order is the calculation order.
var conversions = []Conversion{
	{Category: domain.CategoryEnergyElectricity, EURPerUnit: 0.22, Unit: "kWh", FactorKey: "electricity_austria"},
	{Category: domain.CategoryEnergyGas, EURPerUnit: 0.08, Unit: "kWh", FactorKey: "natural_gas_scope1"},
	{Category: domain.CategoryFuel, EURPerUnit: 1.50, Unit: "litre", FactorKey: "diesel"},
	{Category: domain.CategoryLogistics, EURPerUnit: 0.15, Unit: "tonne-km", FactorKey: "freight_road"},
}

// LookupFactor returns a copy of the factor stored under key
func LookupFactor(key string) (Factor, bool) {
	f, ok := factors[key]
	return f, ok
}

// Factors returns a copy of the factor table
func Factors() map[string]Factor {
	out := make(map[string]Factor, len(factors))
	for k, v := range factors {
		out[k] = v
	}
	return out
}

// Conversions returns a copy of the conversion table in calculation order
func Conversions() []Conversion {
	out := make([]Conversion, len(conversions))
	copy(out, conversions)
	return out
}

// ConversionFor returns the conversion of category, if any
func ConversionFor(category domain.Category) (Conversion, bool) {
	for _, c := range conversions {
		if c.Category == category {
			return c, true
		}
	}
	return Conversion{}, false
}
