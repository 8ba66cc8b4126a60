package refinery

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// Invoice and voucher references: "RE 2024-0815", "Beleg-Nr. 4711", "AR12/24"
	documentCodePattern = regexp.MustCompile(`(?i)\b(?:RE|AR|ER|RG|RNR|RECHNUNG|BELEG(?:NR)?|BELEG-NR)\.?\s*[-:#]?\s*\d[\w/-]*`)

	// Quarters, calendar weeks, month/year stamps and bare years
	periodCodePattern = regexp.MustCompile(`(?i)\b(?:Q[1-4]|KW\s?\d{1,2}|\d{1,2}/\d{2,4}|(?:19|20)\d{2})\b`)

	whitespacePattern = regexp.MustCompile(`\s+`)

	germanFolds = strings.NewReplacer(
		"ä", "ae", "ö", "oe", "ü", "ue",
		"Ä", "Ae", "Ö", "Oe", "Ü", "Ue",
		"ß", "ss",
	)
)

// ProcessingNodes contains reusable text processing methods. Every node is
// a no-op unless its flag is set in the config.
type ProcessingNodes struct {
	config      *RefineryConfig
	policy      *bluemonday.Policy
	toKeepSet   map[string]bool
	toRemoveSet map[string]bool
}

// NewProcessingNodes creates a new ProcessingNodes with the given config
func NewProcessingNodes(config *RefineryConfig) *ProcessingNodes {
	toKeepSet := make(map[string]bool, len(config.ToKeep))
	for _, word := range config.ToKeep {
		toKeepSet[strings.ToUpper(word)] = true
	}

	toRemoveSet := make(map[string]bool, len(config.ToRemove))
	for _, word := range config.ToRemove {
		toRemoveSet[strings.ToUpper(word)] = true
	}

	return &ProcessingNodes{
		config:      config,
		policy:      bluemonday.StrictPolicy(),
		toKeepSet:   toKeepSet,
		toRemoveSet: toRemoveSet,
	}
}

// StripMarkup drops any HTML that found its way into a booking text
func (p *ProcessingNodes) StripMarkup(text string) string {
	if !p.config.StripMarkup {
		return text
	}
	return strings.TrimSpace(html.UnescapeString(p.policy.Sanitize(text)))
}

// RemoveDocumentCodes removes invoice and voucher references
func (p *ProcessingNodes) RemoveDocumentCodes(text string) string {
	if !p.config.RemoveDocumentCodes {
		return text
	}
	return strings.TrimSpace(documentCodePattern.ReplaceAllString(text, " "))
}

// FoldGermanLetters transliterates umlauts and sharp s, then strips any
// remaining combining marks
func (p *ProcessingNodes) FoldGermanLetters(text string) string {
	if !p.config.FoldGermanLetters {
		return text
	}
	text = germanFolds.Replace(norm.NFC.String(text))

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return result
}

// RemovePeriodCodes removes quarter, week and year stamps
func (p *ProcessingNodes) RemovePeriodCodes(text string) string {
	if !p.config.RemovePeriodCodes {
		return text
	}
	return strings.TrimSpace(periodCodePattern.ReplaceAllString(text, " "))
}

// MakeUppercase converts text to uppercase
func (p *ProcessingNodes) MakeUppercase(text string) string {
	if !p.config.MakeUppercase {
		return text
	}
	return strings.ToUpper(text)
}

// ReplaceSeparators replaces separator characters with spaces
func (p *ProcessingNodes) ReplaceSeparators(text string) string {
	if !p.config.ReplaceSeparatorsWithSpaces {
		return text
	}

	replacement := p.config.SeparatorReplacement
	if replacement == "" {
		replacement = " "
	}

	var result strings.Builder
	for _, r := range text {
		if strings.ContainsRune(p.config.SepChars, r) {
			result.WriteString(replacement)
			continue
		}
		result.WriteRune(r)
	}
	return result.String()
}

// RemoveSpecialChars keeps letters, digits and spaces
func (p *ProcessingNodes) RemoveSpecialChars(text string) string {
	if !p.config.RemoveSpecialChars {
		return text
	}

	var result strings.Builder
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// RemoveWordsFromList removes month names and filler words
func (p *ProcessingNodes) RemoveWordsFromList(text string) string {
	if !p.config.RemoveWordsFromList {
		return text
	}
	return p.filterWords(text, func(word string) bool {
		return !p.toRemoveSet[strings.ToUpper(word)]
	})
}

// RemoveAllNumbersWordsExcept removes words that are all digits unless kept
func (p *ProcessingNodes) RemoveAllNumbersWordsExcept(text string) string {
	if !p.config.RemoveAllNumbersWordsExcept {
		return text
	}
	return p.filterWords(text, func(word string) bool {
		return !isNumeric(word)
	})
}

// RemoveWordsByMinLen removes words shorter than the minimum length
func (p *ProcessingNodes) RemoveWordsByMinLen(text string) string {
	if !p.config.RemoveWordsByMinLen {
		return text
	}
	return p.filterWords(text, func(word string) bool {
		return len([]rune(word)) >= p.config.MinLen
	})
}

// RemoveMultipleWhitespace collapses runs of whitespace into one space
func (p *ProcessingNodes) RemoveMultipleWhitespace(text string) string {
	if !p.config.RemoveMultipleWhitespace {
		return text
	}
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

// Truncate cuts text to MaxLen runes
func (p *ProcessingNodes) Truncate(text string) string {
	if !p.config.Truncate || p.config.MaxLen <= 0 {
		return text
	}
	r := []rune(text)
	if len(r) <= p.config.MaxLen {
		return text
	}
	return strings.TrimSpace(string(r[:p.config.MaxLen]))
}

// filterWords keeps the words accepted by keep or listed in ToKeep
func (p *ProcessingNodes) filterWords(text string, keep func(string) bool) string {
	words := strings.Fields(text)
	filtered := words[:0]
	for _, word := range words {
		if keep(word) || p.toKeepSet[strings.ToUpper(word)] {
			filtered = append(filtered, word)
		}
	}
	return strings.Join(filtered, " ")
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}
