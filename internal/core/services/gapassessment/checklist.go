package gapassessment

import "github.com/alejandroruanova/esg-pipeline/internal/core/domain"

// Data sources named in the checklist
const (
	SourceManagementInput   = "management_input"
	SourceLedger            = "bmd_fibu"
	SourceCalculationEngine = "calculation_engine"
)

// Requirement is one ESRS E1 disclosure item. Items with CheckCategories or
// CheckScopes are assessed from stored data, all others need management input.
type Requirement struct {
	Ref             string
	Title           string
	DataNeeded      string
	DataSource      string
	CheckCategories []domain.Category
	CheckScopes     []int
}

// AutoAssessable reports whether the item can be judged from stored data
func (r Requirement) AutoAssessable() bool {
	return len(r.CheckCategories) > 0 || len(r.CheckScopes) > 0
}

var checklist = []Requirement{
	{
		Ref:        "E1-1",
		Title:      "Transition plan for climate change mitigation",
		DataNeeded: "Strategic climate targets, decarbonisation pathway, capex plans",
		DataSource: SourceManagementInput,
	},
	{
		Ref:        "E1-2",
		Title:      "Policies related to climate change mitigation and adaptation",
		DataNeeded: "Documented climate/energy policies",
		DataSource: SourceManagementInput,
	},
	{
		Ref:        "E1-3",
		Title:      "Actions and resources related to climate change",
		DataNeeded: "Climate actions taken, resources allocated",
		DataSource: SourceManagementInput,
	},
	{
		Ref:        "E1-4",
		Title:      "Targets related to climate change mitigation and adaptation",
		DataNeeded: "GHG reduction targets with base year and timeline",
		DataSource: SourceManagementInput,
	},
	{
		Ref:             "E1-5",
		Title:           "Energy consumption and mix",
		DataNeeded:      "Total energy consumption in MWh, breakdown by source (electricity, gas, fuel, renewable share)",
		DataSource:      SourceLedger,
		CheckCategories: []domain.Category{domain.CategoryEnergyElectricity, domain.CategoryEnergyGas},
	},
	{
		Ref:         "E1-6",
		Title:       "Gross Scopes 1, 2, 3 and Total GHG emissions",
		DataNeeded:  "Scope 1/2/3 GHG emissions in tCO2e with calculation methodology",
		DataSource:  SourceCalculationEngine,
		CheckScopes: []int{1, 2, 3},
	},
	{
		Ref:        "E1-7",
		Title:      "GHG removals and GHG mitigation projects",
		DataNeeded: "Carbon offsets purchased, removal credits, nature-based solutions",
		DataSource: SourceManagementInput,
	},
	{
		Ref:        "E1-8",
		Title:      "Internal carbon pricing",
		DataNeeded: "Internal carbon price applied to investment decisions",
		DataSource: SourceManagementInput,
	},
	{
		Ref:        "E1-9",
		Title:      "Anticipated financial effects from material physical and transition risks",
		DataNeeded: "Financial impact assessment of climate risks and opportunities",
		DataSource: SourceManagementInput,
	},
}

// Checklist returns a copy of the ESRS E1 items in reporting order
func Checklist() []Requirement {
	out := make([]Requirement, len(checklist))
	for i, r := range checklist {
		out[i] = r
		out[i].CheckCategories = append([]domain.Category(nil), r.CheckCategories...)
		out[i].CheckScopes = append([]int(nil), r.CheckScopes...)
	}
	return out
}
