// Package locale converts Austrian export formats (D.M.YYYY dates, decimal
// comma numbers) into ISO dates and floats. Malformed input never produces
// an error: dates report ok=false and numbers degrade to 0.
package locale

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// SentinelDate is stored when a ledger row carries no usable date.
const SentinelDate = "1900-01-01"

// Patterns are anchored at the start only; trailing text such as a time
// component is ignored.
var (
	dayMonthYear4 = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})`)
	dayMonthYear2 = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{2})`)
	isoDate       = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})`)
)

// NormalizeDate converts a local date string to YYYY-MM-DD. Two digit
// years below 50 map to 20xx, the rest to 19xx. Strings that already start
// with an ISO date are returned unchanged (trimmed).
func NormalizeDate(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	if m := dayMonthYear4.FindStringSubmatch(s); m != nil {
		return isoFrom(m[3], m[2], m[1]), true
	}

	if m := dayMonthYear2.FindStringSubmatch(s); m != nil {
		yy, _ := strconv.Atoi(m[3])
		century := "19"
		if yy < 50 {
			century = "20"
		}
		return isoFrom(century+m[3], m[2], m[1]), true
	}

	if isoDate.MatchString(s) {
		return s, true
	}

	return "", false
}

// DateOrSentinel is NormalizeDate with the ledger fallback applied.
func DateOrSentinel(raw string) string {
	if d, ok := NormalizeDate(raw); ok {
		return d
	}
	return SentinelDate
}

func isoFrom(year, month, day string) string {
	return fmt.Sprintf("%s-%s-%s", year, zeroPad(month), zeroPad(day))
}

func zeroPad(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// NormalizeNumber converts raw into a float. Numeric values pass through.
// For strings: when both '.' and ',' appear, dots are thousands separators
// and the comma is the decimal point; a lone ',' is the decimal point.
// Anything unparseable, NaN or infinite yields 0.
func NormalizeNumber(raw any) float64 {
	var f float64

	switch v := raw.(type) {
	case nil:
		return 0
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case string:
		f = parseLocalNumber(v)
	case fmt.Stringer:
		f = parseLocalNumber(v.String())
	default:
		return 0
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func parseLocalNumber(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}

	hasDot := strings.Contains(s, ".")
	hasComma := strings.Contains(s, ",")

	switch {
	case hasDot && hasComma:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case hasComma:
		s = strings.ReplaceAll(s, ",", ".")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
