package refinery

// namedStep pairs a node with the name reported by GetPipelineSteps
type namedStep struct {
	name string
	fn   ProcessingStep
}

// chainRefinery runs its steps in order
type chainRefinery struct {
	version     string
	name        string
	description string
	config      *RefineryConfig
	steps       []namedStep
}

// Process processes text through the configured pipeline
func (r *chainRefinery) Process(text string) string {
	for _, step := range r.steps {
		text = step.fn(text)
	}
	return text
}

// GetVersion returns the version identifier
func (r *chainRefinery) GetVersion() string {
	return r.version
}

// GetName returns the human-readable name
func (r *chainRefinery) GetName() string {
	return r.name
}

// GetDescription returns what this refinery does
func (r *chainRefinery) GetDescription() string {
	return r.description
}

// GetPipelineSteps returns the list of processing steps
func (r *chainRefinery) GetPipelineSteps() []string {
	names := make([]string, len(r.steps))
	for i, s := range r.steps {
		names[i] = s.name
	}
	return names
}

// NewRefineryV1German builds the matching refinery: booking texts are
// folded to upper-case ASCII keywords so that the same expense booked in
// different months or with different voucher numbers yields the same text.
func NewRefineryV1German(customConfig map[string]interface{}) BaseRefinery {
	config := &RefineryConfig{
		ToKeep: []string{"KFZ", "LKW", "PKW", "EVU", "OEBB", "GAS", "OEL"},
		ToRemove: []string{
			"JAENNER", "JANUAR", "FEBER", "FEBRUAR", "MAERZ", "APRIL", "MAI", "JUNI",
			"JULI", "AUGUST", "SEPTEMBER", "OKTOBER", "NOVEMBER", "DEZEMBER",
			"JAN", "FEB", "MRZ", "APR", "JUN", "JUL", "AUG", "SEP", "SEPT", "OKT", "NOV", "DEZ",
			"FUER", "UND", "DER", "DIE", "DAS", "VON", "ZUM", "ZUR", "IM", "AM", "BIS",
		},
		MinLen:               3,
		SepChars:             ".,;:-/+&|_()[]",
		SeparatorReplacement: " ",

		StripMarkup:                 true,
		RemoveDocumentCodes:         true,
		FoldGermanLetters:           true,
		RemovePeriodCodes:           true,
		MakeUppercase:               true,
		ReplaceSeparatorsWithSpaces: true,
		RemoveSpecialChars:          true,
		RemoveWordsFromList:         true,
		RemoveAllNumbersWordsExcept: true,
		RemoveWordsByMinLen:         true,
		RemoveMultipleWhitespace:    true,
	}

	if customConfig != nil {
		applyCustomConfig(config, customConfig)
	}

	nodes := NewProcessingNodes(config)

	return &chainRefinery{
		version:     "v1",
		name:        "German Booking Text Keywords",
		description: "Folds BMD booking texts to upper-case keywords without voucher numbers, periods or month names",
		config:      config,
		steps: []namedStep{
			{"strip_markup", nodes.StripMarkup},
			{"remove_document_codes", nodes.RemoveDocumentCodes},
			{"fold_german_letters", nodes.FoldGermanLetters},
			{"make_uppercase", nodes.MakeUppercase},
			{"remove_period_codes", nodes.RemovePeriodCodes},
			{"replace_separators", nodes.ReplaceSeparators},
			{"remove_special_chars", nodes.RemoveSpecialChars},
			{"remove_words_from_list", nodes.RemoveWordsFromList},
			{"remove_all_numbers_words_except", nodes.RemoveAllNumbersWordsExcept},
			{"remove_words_by_min_len", nodes.RemoveWordsByMinLen},
			{"remove_multiple_whitespace", nodes.RemoveMultipleWhitespace},
		},
	}
}

// NewRefineryDisplay builds the light refinery used for texts that are sent
// to the classifier or shown to reviewers: markup out, whitespace collapsed,
// length capped. Wording is left intact.
func NewRefineryDisplay(customConfig map[string]interface{}) BaseRefinery {
	config := &RefineryConfig{
		MaxLen: 200,

		StripMarkup:              true,
		RemoveMultipleWhitespace: true,
		Truncate:                 true,
	}

	if customConfig != nil {
		applyCustomConfig(config, customConfig)
	}

	nodes := NewProcessingNodes(config)

	return &chainRefinery{
		version:     "display",
		name:        "Booking Text Display",
		description: "Strips markup and collapses whitespace, keeping the original wording",
		config:      config,
		steps: []namedStep{
			{"strip_markup", nodes.StripMarkup},
			{"remove_multiple_whitespace", nodes.RemoveMultipleWhitespace},
			{"truncate", nodes.Truncate},
		},
	}
}
