package parsers

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"

	"github.com/go-gota/gota/dataframe"

	apperrors "github.com/alejandroruanova/esg-pipeline/internal/pkg/errors"
)

// DelimitedParser reads BMD CSV exports whose delimiter is not known upfront
type DelimitedParser struct {
	config *ParserConfig
}

// NewDelimitedParser creates a new delimited parser
func NewDelimitedParser(config *ParserConfig) *DelimitedParser {
	if config == nil {
		config = DefaultParserConfig()
	}
	return &DelimitedParser{
		config: config,
	}
}

// DetectEncoding samples the head of filePath
func (p *DelimitedParser) DetectEncoding(filePath string) (string, error) {
	return DetectFileEncoding(filePath, p.config.SampleSize)
}

// Parse decodes filePath with the given encoding and tries each configured
// delimiter. A file no delimiter can split into enough columns yields a
// FILE_PARSE_ERROR.
func (p *DelimitedParser) Parse(ctx context.Context, filePath, encodingName string) (*Dataset, error) {
	// Check file size if limit is set
	if p.config.MaxFileSize > 0 {
		stat, err := os.Stat(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to stat file: %w", err)
		}
		if stat.Size() > p.config.MaxFileSize {
			return nil, apperrors.FileTooLarge(p.config.MaxFileSize / (1024 * 1024))
		}
	}

	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return p.ParseBytes(ctx, raw, encodingName)
}

// ParseBytes is Parse over in-memory content
func (p *DelimitedParser) ParseBytes(ctx context.Context, raw []byte, encodingName string) (*Dataset, error) {
	dec, err := decoderFor(encodingName)
	if err != nil {
		return nil, apperrors.FileParseError(err)
	}
	text, err := dec.Bytes(raw)
	if err != nil {
		return nil, apperrors.FileParseError(fmt.Errorf("failed to decode %s: %w", encodingName, err))
	}

	var lastErr error
	for _, delim := range p.config.Delimiters {
		// Check context cancellation
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		records, overlong, err := readRecords(text, delim)
		if err != nil {
			lastErr = err
			continue
		}
		if len(records[0]) <= p.config.MinColumns {
			continue
		}
		df := dataframe.LoadRecords(records, loadOptions()...)
		if df.Err != nil {
			lastErr = df.Err
			continue
		}
		return newDataset(df, encodingName, delim, overlong), nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no delimiter produced more than %d columns", p.config.MinColumns)
	}
	return nil, apperrors.FileParseError(lastErr)
}

// readRecords splits text on delim. Rows shorter than the header are padded
// with empty cells; longer rows are cut to the header width and their field
// counts returned by data row index.
func readRecords(text []byte, delim rune) ([][]string, map[int]int, error) {
	r := csv.NewReader(bytes.NewReader(text))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, errors.New("file has no header row")
	}

	width := len(records[0])
	var overlong map[int]int
	for i := 1; i < len(records); i++ {
		rec := records[i]
		switch {
		case len(rec) < width:
			records[i] = append(rec, make([]string, width-len(rec))...)
		case len(rec) > width:
			if overlong == nil {
				overlong = make(map[int]int)
			}
			overlong[i-1] = len(rec)
			records[i] = rec[:width]
		}
	}
	return records, overlong, nil
}

// DelimiterString renders a delimiter for logs and the ingestion log
func DelimiterString(r rune) string {
	if r == '\t' {
		return `\t`
	}
	return string(r)
}
