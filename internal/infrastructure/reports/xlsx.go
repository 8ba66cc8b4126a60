// Package reports renders gap reports as XLSX workbooks
package reports

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/alejandroruanova/esg-pipeline/internal/core/domain"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/reporting"
)

// Sheet names in workbook order
const (
	SheetSummary     = "Summary"
	SheetGapAnalysis = "Gap Analysis"
	SheetEmissions   = "Emissions"
	SheetMethodology = "Methodology"
)

// Status fills, matching the traffic light used in reviews
var statusColors = map[string]string{
	domain.DisclosureMet:     "#C8E6C9",
	domain.DisclosurePartial: "#FFE0B2",
	domain.DisclosureGap:     "#FFCDD2",
}

// XLSXRenderer implements reporting.Renderer with excelize
type XLSXRenderer struct {
	logger *slog.Logger
}

// NewXLSXRenderer creates a new renderer
func NewXLSXRenderer(logger *slog.Logger) *XLSXRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXRenderer{logger: logger}
}

// Extension implements reporting.Renderer
func (r *XLSXRenderer) Extension() string {
	return "xlsx"
}

// Render implements reporting.Renderer
func (r *XLSXRenderer) Render(ctx context.Context, data *reporting.Data, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetGapAnalysis, SheetEmissions, SheetMethodology} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	steps := []func(*excelize.File, *reporting.Data, int) error{
		r.writeSummary,
		r.writeGapAnalysis,
		r.writeEmissions,
		r.writeMethodology,
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step(f, data, bold); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	r.logger.Debug("workbook written", slog.String("path", path))
	return nil
}

func (r *XLSXRenderer) writeSummary(f *excelize.File, d *reporting.Data, bold int) error {
	w := newSheetWriter(f, SheetSummary)

	w.row("ESRS E1 Climate Disclosure - Gap Analysis & Emissions Report")
	w.style(bold)
	w.row("DRAFT - REQUIRES HUMAN REVIEW")
	w.style(bold)
	w.row()
	w.row("Company", d.Company.Name)
	w.row("UID", valueOr(d.Company.UIDVat, "N/A"))
	w.row("Period", d.Period)
	w.row("Generated", d.GeneratedAt.Format("2006-01-02 15:04"))
	w.row("Version", d.Version)
	w.row()
	w.row("Transactions", d.TransactionCount)
	w.row("Mapped accounts", d.MappingCount)
	w.row()
	w.row("Disclosures met", d.Met)
	w.row("Partially met", d.Partial)
	w.row("Gaps", d.Gap)
	w.row()
	w.row("Scope 1 (tCO2e)", round4(d.ScopeTotals[1]))
	w.row("Scope 2 (tCO2e)", round4(d.ScopeTotals[2]))
	w.row("Scope 3 (tCO2e)", round4(d.ScopeTotals[3]))
	w.row("Total (tCO2e)", round4(d.TotalTCO2e))
	w.style(bold)
	w.row()
	w.row("Quantities are estimated from EUR spend using average Austrian prices. " +
		"Replace them with metered consumption before using figures in an audited report.")

	w.widths(map[string]float64{"A": 24, "B": 60})
	return w.err
}

func (r *XLSXRenderer) writeGapAnalysis(f *excelize.File, d *reporting.Data, bold int) error {
	w := newSheetWriter(f, SheetGapAnalysis)

	w.row("Reference", "Disclosure Requirement", "Status", "Data Source", "Notes")
	w.style(bold)

	for _, a := range d.Assessments {
		w.row(a.Ref, a.Title, strings.ToUpper(a.Status), a.DataSource, a.Notes)
		if color, ok := statusColors[a.Status]; ok {
			w.fill(3, color)
		}
	}

	w.widths(map[string]float64{"A": 10, "B": 60, "C": 10, "D": 20, "E": 90})
	return w.err
}

func (r *XLSXRenderer) writeEmissions(f *excelize.File, d *reporting.Data, bold int) error {
	w := newSheetWriter(f, SheetEmissions)

	if len(d.Emissions) == 0 {
		w.row("No emissions calculated yet.")
		return w.err
	}

	w.row("Scope", "Category", "Quantity", "Unit", "Factor (kg CO2e/unit)", "tCO2e", "Source", "Vintage", "Calculation")
	w.style(bold)

	for scope := 1; scope <= 3; scope++ {
		records := d.EmissionsByScope(scope)
		if len(records) == 0 {
			continue
		}
		subtotal := 0.0
		for _, e := range records {
			w.row(e.Scope, string(e.Category), e.Quantity, e.Unit, e.EmissionFactorUsed,
				round4(e.ValueTCO2e), e.FactorSource, e.FactorVintage, e.CalculationMethod)
			subtotal += e.ValueTCO2e
		}
		w.row(fmt.Sprintf("Scope %d Total", scope), "", "", "", "", round4(subtotal))
		w.style(bold)
	}

	w.widths(map[string]float64{"B": 22, "E": 20, "G": 45, "I": 110})
	return w.err
}

func (r *XLSXRenderer) writeMethodology(f *excelize.File, d *reporting.Data, bold int) error {
	w := newSheetWriter(f, SheetMethodology)

	sections := []struct{ title, text string }{
		{"Data collection", fmt.Sprintf(
			"Financial data was taken from BMD NTCS CSV exports (%d transactions). Files were decoded "+
				"(UTF-8 or Windows-1252), matched against the BMD column vocabulary and stored with "+
				"source file and row number.", d.TransactionCount)},
		{"Account classification", fmt.Sprintf(
			"%d accounts were mapped to ESG categories from confirmed mappings, rule files or an "+
				"external classifier. Low-confidence suggestions are held for review.", d.MappingCount)},
		{"Emission factors", "Factors from Umweltbundesamt Austria, EEA, DEFRA and OeBB. Formula: " +
			"quantity x emission factor = kg CO2e. Quantities are estimated from EUR spend at average " +
			"Austrian prices; negative amounts (credits, refunds) are excluded from spend."},
		{"Limitations", "Covers ESRS E1 only. Scope 3 is limited to categories with a price conversion " +
			"(road freight). A full Scope 3 inventory needs supplier data."},
		{"Audit trail", "Report figure -> emission_records (method, factor source) -> transactions " +
			"(source_file, row_number) -> original BMD export. All steps are written to audit_log."},
	}

	for _, s := range sections {
		w.row(s.title)
		w.style(bold)
		w.row(s.text)
		w.row()
	}

	w.widths(map[string]float64{"A": 140})
	return w.err
}

func valueOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}

func round4(v float64) float64 {
	return decimal.NewFromFloat(v).Round(4).InexactFloat64()
}
