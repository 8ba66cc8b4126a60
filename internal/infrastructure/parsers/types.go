package parsers

import (
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Dataset is a parsed delimited file. Every cell is text; typing happens
// later in the ingestion step.
type Dataset struct {
	Encoding  string
	Delimiter rune
	df        dataframe.DataFrame
	index     map[string]int
	overlong  map[int]int
}

func newDataset(df dataframe.DataFrame, encoding string, delimiter rune, overlong map[int]int) *Dataset {
	names := df.Names()
	index := make(map[string]int, len(names))
	for i, n := range names {
		index[n] = i
	}
	return &Dataset{Encoding: encoding, Delimiter: delimiter, df: df, index: index, overlong: overlong}
}

// Columns returns the header row in file order
func (d *Dataset) Columns() []string {
	return d.df.Names()
}

// Len returns the number of data rows
func (d *Dataset) Len() int {
	return d.df.Nrow()
}

// Value returns the cell at row for column. ok is false when the column does
// not exist. Missing cells (gota NA) read as empty strings.
func (d *Dataset) Value(row int, column string) (value string, ok bool) {
	c, ok := d.index[column]
	if !ok {
		return "", false
	}
	elem := d.df.Elem(row, c)
	if elem.IsNA() {
		return "", true
	}
	return elem.String(), true
}

// FieldCount returns the number of fields row had in the file when it was
// longer than the header. ok is false for rows that fit. Such rows are cut
// to the header width in the frame.
func (d *Dataset) FieldCount(row int) (n int, ok bool) {
	n, ok = d.overlong[row]
	return n, ok
}

// Frame exposes the underlying dataframe
func (d *Dataset) Frame() dataframe.DataFrame {
	return d.df
}

// ParserConfig holds configuration for the delimited parser
type ParserConfig struct {
	// Delimiters are tried in order; the first yielding more than MinColumns wins
	Delimiters []rune

	// MinColumns is the column count a delimiter must exceed
	MinColumns int

	// SampleSize is the number of leading bytes used for encoding detection
	SampleSize int

	// MaxFileSize is the maximum file size in bytes (0 = unlimited)
	MaxFileSize int64
}

// DefaultParserConfig returns the BMD export defaults
func DefaultParserConfig() *ParserConfig {
	return &ParserConfig{
		Delimiters:  []rune{';', ',', '\t'},
		MinColumns:  2,
		SampleSize:  10000,
		MaxFileSize: 500 * 1024 * 1024, // 500 MB
	}
}

// loadOptions keep every column as text. Only gota's own "NaN" marker reads
// as missing, so a literal "NA" in free text survives.
func loadOptions() []dataframe.LoadOption {
	return []dataframe.LoadOption{
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.HasHeader(true),
		dataframe.NaNValues(nil),
	}
}
