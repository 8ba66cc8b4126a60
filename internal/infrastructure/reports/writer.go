package reports

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// sheetWriter appends rows to one sheet and keeps the first error
type sheetWriter struct {
	f     *excelize.File
	sheet string
	next  int
	cols  int
	err   error
}

func newSheetWriter(f *excelize.File, sheet string) *sheetWriter {
	return &sheetWriter{f: f, sheet: sheet, next: 1}
}

// row writes values into the next row, strings sanitized
func (w *sheetWriter) row(values ...interface{}) {
	if w.err != nil {
		return
	}
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, w.next)
		if err != nil {
			w.err = err
			return
		}
		if s, ok := v.(string); ok {
			v = SanitizeCell(s)
		}
		if err := w.f.SetCellValue(w.sheet, cell, v); err != nil {
			w.err = fmt.Errorf("failed to write %s!%s: %w", w.sheet, cell, err)
			return
		}
	}
	w.cols = len(values)
	w.next++
}

// style applies a style to the row written last
func (w *sheetWriter) style(styleID int) {
	if w.err != nil || w.cols == 0 {
		return
	}
	last := w.next - 1
	from, _ := excelize.CoordinatesToCellName(1, last)
	to, _ := excelize.CoordinatesToCellName(w.cols, last)
	if err := w.f.SetCellStyle(w.sheet, from, to, styleID); err != nil {
		w.err = fmt.Errorf("failed to style %s row %d: %w", w.sheet, last, err)
	}
}

// fill colors one cell of the row written last
func (w *sheetWriter) fill(col int, color string) {
	if w.err != nil {
		return
	}
	id, err := w.f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		w.err = err
		return
	}
	cell, _ := excelize.CoordinatesToCellName(col, w.next-1)
	if err := w.f.SetCellStyle(w.sheet, cell, cell, id); err != nil {
		w.err = err
	}
}

func (w *sheetWriter) widths(cols map[string]float64) {
	if w.err != nil {
		return
	}
	for col, width := range cols {
		if err := w.f.SetColWidth(w.sheet, col, col, width); err != nil {
			w.err = err
			return
		}
	}
}

// SanitizeCell stops spreadsheet applications from evaluating text that
// came from ledger exports as a formula
func SanitizeCell(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
