package parsers

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Encoding names reported by DetectEncoding
const (
	EncodingUTF8        = "utf-8"
	EncodingWindows1252 = "windows-1252"
)

// latinAliases collapse onto windows-1252, the superset BMD actually writes
var latinAliases = map[string]bool{
	"iso-8859-1": true,
	"latin-1":    true,
	"latin1":     true,
	"ascii":      true,
	"us-ascii":   true,
}

// DetectEncoding inspects a leading byte sample. Strict UTF-8 wins; anything
// else goes through the HTML charset sniffer and falls back to windows-1252.
func DetectEncoding(sample []byte) string {
	if utf8.Valid(trimPartialRune(sample)) {
		return EncodingUTF8
	}

	_, name, _ := charset.DetermineEncoding(sample, "text/plain")
	name = strings.ToLower(strings.TrimSpace(name))
	// The sniffer only looks at a 1 KiB prefix; a UTF-8 verdict there does
	// not hold for a sample that already failed the strict check.
	if name == "" || name == EncodingUTF8 || latinAliases[name] {
		return EncodingWindows1252
	}
	if _, canonical := charset.Lookup(name); canonical == "" {
		return EncodingWindows1252
	}
	return name
}

// DetectFileEncoding reads up to sampleSize bytes of path and detects its encoding
func DetectFileEncoding(path string, sampleSize int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	buf := make([]byte, sampleSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("failed to read sample: %w", err)
	}
	return DetectEncoding(buf[:n]), nil
}

// trimPartialRune drops an incomplete multi-byte sequence cut off by the
// sample boundary
func trimPartialRune(sample []byte) []byte {
	for i := 1; i <= utf8.UTFMax-1 && i <= len(sample); i++ {
		start := len(sample) - i
		if utf8.RuneStart(sample[start]) {
			if !utf8.FullRune(sample[start:]) {
				return sample[:start]
			}
			return sample
		}
	}
	return sample
}

// decoderFor returns the decoder for a detected encoding name. UTF-8 input
// has a leading BOM removed.
func decoderFor(name string) (*encoding.Decoder, error) {
	switch name {
	case EncodingUTF8:
		return unicode.UTF8BOM.NewDecoder(), nil
	case EncodingWindows1252:
		return charmap.Windows1252.NewDecoder(), nil
	}
	enc, _ := charset.Lookup(name)
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return enc.NewDecoder(), nil
}
