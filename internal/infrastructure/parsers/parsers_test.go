package parsers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	apperrors "github.com/alejandroruanova/esg-pipeline/internal/pkg/errors"
)

const ledgerCSV = "Buchungsdatum;Konto;Gegenkonto;Betrag;Buchungstext\n" +
	"15.01.2024;7200;2800;1.234,56;Strom Jänner\n" +
	"16.01.2024;7300;2800;500,00;Gas\n"

func writeFile(t *testing.T, name string, content []byte) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

func TestDetectEncoding(t *testing.T) {
	latin, err := charmap.Windows1252.NewEncoder().Bytes([]byte("Konto;Text\n7200;Müll"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		sample []byte
		want   string
	}{
		{"plain ascii", []byte("Konto;Betrag\n1;2"), EncodingUTF8},
		{"utf-8 umlaut", []byte("Strom Jänner"), EncodingUTF8},
		{"windows-1252", latin, EncodingWindows1252},
		{"empty", []byte{}, EncodingUTF8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectEncoding(tt.sample))
		})
	}
}

func TestDetectEncoding_RuneCutAtSampleBoundary(t *testing.T) {
	full := []byte("abc ä")
	// Drop the last byte of the two-byte 'ä'
	sample := full[:len(full)-1]
	assert.Equal(t, EncodingUTF8, DetectEncoding(sample))
}

func TestDelimitedParser_Semicolon(t *testing.T) {
	path := writeFile(t, "fibu.csv", []byte(ledgerCSV))
	parser := NewDelimitedParser(nil)

	enc, err := parser.DetectEncoding(path)
	require.NoError(t, err)
	assert.Equal(t, EncodingUTF8, enc)

	ds, err := parser.Parse(context.Background(), path, enc)
	require.NoError(t, err)

	assert.Equal(t, ';', ds.Delimiter)
	assert.Equal(t, []string{"Buchungsdatum", "Konto", "Gegenkonto", "Betrag", "Buchungstext"}, ds.Columns())
	assert.Equal(t, 2, ds.Len())

	v, ok := ds.Value(0, "Betrag")
	assert.True(t, ok)
	assert.Equal(t, "1.234,56", v)

	v, ok = ds.Value(0, "Buchungstext")
	assert.True(t, ok)
	assert.Equal(t, "Strom Jänner", v)

	_, ok = ds.Value(0, "Kostenstelle")
	assert.False(t, ok)
}

func TestDelimitedParser_KeepsLeadingZeros(t *testing.T) {
	content := "Konto;Betrag;Text\n0720;10;a\n"
	ds, err := NewDelimitedParser(nil).ParseBytes(context.Background(), []byte(content), EncodingUTF8)
	require.NoError(t, err)

	v, _ := ds.Value(0, "Konto")
	assert.Equal(t, "0720", v)
}

func TestDelimitedParser_CommaAndTab(t *testing.T) {
	parser := NewDelimitedParser(nil)

	ds, err := parser.ParseBytes(context.Background(), []byte("Konto,Betrag,Text\n7200,10,a\n"), EncodingUTF8)
	require.NoError(t, err)
	assert.Equal(t, ',', ds.Delimiter)

	ds, err = parser.ParseBytes(context.Background(), []byte("Konto\tBetrag\tText\n7200\t10\ta\n"), EncodingUTF8)
	require.NoError(t, err)
	assert.Equal(t, '\t', ds.Delimiter)
	assert.Equal(t, `\t`, DelimiterString(ds.Delimiter))
}

func TestDelimitedParser_Windows1252(t *testing.T) {
	latin, err := charmap.Windows1252.NewEncoder().Bytes([]byte("Konto;Betrag;Buchungstext\n7500;12,50;Müllabfuhr\n"))
	require.NoError(t, err)
	path := writeFile(t, "latin.csv", latin)

	parser := NewDelimitedParser(nil)
	enc, err := parser.DetectEncoding(path)
	require.NoError(t, err)
	assert.Equal(t, EncodingWindows1252, enc)

	ds, err := parser.Parse(context.Background(), path, enc)
	require.NoError(t, err)
	v, _ := ds.Value(0, "Buchungstext")
	assert.Equal(t, "Müllabfuhr", v)
}

func TestDelimitedParser_StripsBOM(t *testing.T) {
	content := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Konto;Betrag;Text\n7200;1;x\n")...)
	ds, err := NewDelimitedParser(nil).ParseBytes(context.Background(), content, EncodingUTF8)
	require.NoError(t, err)
	assert.Equal(t, "Konto", ds.Columns()[0])
}

func TestDelimitedParser_TooFewColumns(t *testing.T) {
	_, err := NewDelimitedParser(nil).ParseBytes(context.Background(), []byte("Konto;Betrag\n7200;1\n"), EncodingUTF8)
	require.Error(t, err)

	appErr, ok := apperrors.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeFileParseError, appErr.Code)
}

func TestDelimitedParser_FileTooLarge(t *testing.T) {
	path := writeFile(t, "big.csv", []byte(ledgerCSV))
	parser := NewDelimitedParser(&ParserConfig{Delimiters: []rune{';'}, MinColumns: 2, SampleSize: 100, MaxFileSize: 10})

	_, err := parser.Parse(context.Background(), path, EncodingUTF8)
	require.Error(t, err)
	appErr, ok := apperrors.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeFileTooLarge, appErr.Code)
}

func TestDelimitedParser_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDelimitedParser(nil).ParseBytes(ctx, []byte(ledgerCSV), EncodingUTF8)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDataset_MissingCellIsEmpty(t *testing.T) {
	content := "Konto;Betrag;Text\n7200;NaN;x\n"
	ds, err := NewDelimitedParser(nil).ParseBytes(context.Background(), []byte(content), EncodingUTF8)
	require.NoError(t, err)

	v, ok := ds.Value(0, "Betrag")
	assert.True(t, ok)
	assert.Equal(t, "", v)
}

func TestDelimitedParser_RaggedRows(t *testing.T) {
	content := "Konto;Betrag;Text\n7200;1\n7300;2;x;extra\n7400;3;y\n"
	ds, err := NewDelimitedParser(nil).ParseBytes(context.Background(), []byte(content), EncodingUTF8)
	require.NoError(t, err)
	require.Equal(t, 3, ds.Len())
	assert.Equal(t, ';', ds.Delimiter)

	v, ok := ds.Value(0, "Text")
	assert.True(t, ok)
	assert.Equal(t, "", v)
	_, long := ds.FieldCount(0)
	assert.False(t, long)

	n, long := ds.FieldCount(1)
	assert.True(t, long)
	assert.Equal(t, 4, n)
	v, _ = ds.Value(1, "Text")
	assert.Equal(t, "x", v)

	v, _ = ds.Value(2, "Text")
	assert.Equal(t, "y", v)
}

func TestDataset_KeepsLiteralNA(t *testing.T) {
	content := "Konto;Betrag;Text\n7200;1;NA\n"
	ds, err := NewDelimitedParser(nil).ParseBytes(context.Background(), []byte(content), EncodingUTF8)
	require.NoError(t, err)

	v, ok := ds.Value(0, "Text")
	assert.True(t, ok)
	assert.Equal(t, "NA", v)
}
