// Package refinery cleans free-text booking descriptions from BMD exports.
// A refinery is a fixed chain of small text steps; the chain is chosen by
// version or alias through the registry.
package refinery

// BaseRefinery defines the interface that all refinery implementations must follow
type BaseRefinery interface {
	// Process cleans a single text string through the refinery pipeline
	Process(text string) string

	// GetVersion returns the version identifier (e.g., "v1", "display")
	GetVersion() string

	// GetName returns a human-readable name
	GetName() string

	// GetDescription returns what this refinery does
	GetDescription() string

	// GetPipelineSteps returns the list of processing steps in order
	GetPipelineSteps() []string
}

// ProcessingStep represents a single text transformation function
type ProcessingStep func(string) string

// RefineryConfig holds configuration for a refinery
type RefineryConfig struct {
	// Word filters
	ToKeep               []string `json:"to_keep"`
	ToRemove             []string `json:"to_remove"`
	MinLen               int      `json:"min_len"`
	SepChars             string   `json:"sep_chars"`
	SeparatorReplacement string   `json:"separator_replacement"`
	MaxLen               int      `json:"max_len"`

	// Processing flags
	StripMarkup                 bool `json:"strip_markup"`
	RemoveDocumentCodes         bool `json:"remove_document_codes"`
	FoldGermanLetters           bool `json:"fold_german_letters"`
	RemovePeriodCodes           bool `json:"remove_period_codes"`
	MakeUppercase               bool `json:"make_uppercase"`
	ReplaceSeparatorsWithSpaces bool `json:"replace_separators_with_spaces"`
	RemoveSpecialChars          bool `json:"remove_special_chars"`
	RemoveWordsFromList         bool `json:"remove_words_from_list"`
	RemoveAllNumbersWordsExcept bool `json:"remove_all_numbers_words_except"`
	RemoveWordsByMinLen         bool `json:"remove_words_by_min_len"`
	RemoveMultipleWhitespace    bool `json:"remove_multiple_whitespace"`
	Truncate                    bool `json:"truncate"`
}

// applyCustomConfig overrides config fields present in custom
func applyCustomConfig(config *RefineryConfig, custom map[string]interface{}) {
	if v, ok := custom["to_keep"].([]string); ok {
		config.ToKeep = v
	}
	if v, ok := custom["to_remove"].([]string); ok {
		config.ToRemove = v
	}
	if v, ok := custom["min_len"].(int); ok {
		config.MinLen = v
	}
	if v, ok := custom["max_len"].(int); ok {
		config.MaxLen = v
	}
	if v, ok := custom["sep_chars"].(string); ok {
		config.SepChars = v
	}
	if v, ok := custom["separator_replacement"].(string); ok {
		config.SeparatorReplacement = v
	}

	flags := map[string]*bool{
		"strip_markup":                    &config.StripMarkup,
		"remove_document_codes":           &config.RemoveDocumentCodes,
		"fold_german_letters":             &config.FoldGermanLetters,
		"remove_period_codes":             &config.RemovePeriodCodes,
		"make_uppercase":                  &config.MakeUppercase,
		"replace_separators_with_spaces":  &config.ReplaceSeparatorsWithSpaces,
		"remove_special_chars":            &config.RemoveSpecialChars,
		"remove_words_from_list":          &config.RemoveWordsFromList,
		"remove_all_numbers_words_except": &config.RemoveAllNumbersWordsExcept,
		"remove_words_by_min_len":         &config.RemoveWordsByMinLen,
		"remove_multiple_whitespace":      &config.RemoveMultipleWhitespace,
		"truncate":                        &config.Truncate,
	}
	for key, target := range flags {
		if v, ok := custom[key].(bool); ok {
			*target = v
		}
	}
}
