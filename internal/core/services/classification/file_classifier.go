package classification

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/alejandroruanova/esg-pipeline/internal/core/domain"
)

// Default confidences per rule kind when a rule leaves it at zero
const (
	defaultAccountConfidence = 0.95
	defaultPrefixConfidence  = 0.85
	defaultKeywordConfidence = 0.75
)

// Rule maps to a category with a confidence
type Rule struct {
	Category   string  `yaml:"category"`
	Confidence float64 `yaml:"confidence"`
	Rationale  string  `yaml:"rationale"`
}

// KeywordRule matches booking texts containing Match (case-insensitive)
type KeywordRule struct {
	Match string `yaml:"match"`
	Rule  `yaml:",inline"`
}

// MappingFile is the on-disk format of a rule based classifier:
//
//	accounts:
//	  "7200": {category: energy_electricity}
//	prefixes:
//	  "73": {category: travel, confidence: 0.8}
//	keywords:
//	  - {match: "DIESEL", category: fleet_fuel}
type MappingFile struct {
	Accounts map[string]Rule `yaml:"accounts"`
	Prefixes map[string]Rule `yaml:"prefixes"`
	Keywords []KeywordRule   `yaml:"keywords"`
}

type compiledRule struct {
	key        string
	category   domain.Category
	confidence float64
	rationale  string
}

// FileClassifier classifies accounts from a YAML rule file. Exact account
// rules win over prefixes (longest first), prefixes over keywords.
type FileClassifier struct {
	accounts map[string]compiledRule
	prefixes []compiledRule
	keywords []compiledRule
}

// LoadMappingFile reads and compiles a rule file
func LoadMappingFile(path string) (*FileClassifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file: %w", err)
	}
	return ParseMappingFile(data)
}

// ParseMappingFile compiles rules from YAML. Unknown categories are rejected.
func ParseMappingFile(data []byte) (*FileClassifier, error) {
	var mf MappingFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("failed to parse mapping file: %w", err)
	}

	c := &FileClassifier{accounts: make(map[string]compiledRule, len(mf.Accounts))}

	for account, r := range mf.Accounts {
		cr, err := compile(strings.TrimSpace(account), r, defaultAccountConfidence)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", account, err)
		}
		c.accounts[cr.key] = cr
	}

	for prefix, r := range mf.Prefixes {
		cr, err := compile(strings.TrimSpace(prefix), r, defaultPrefixConfidence)
		if err != nil {
			return nil, fmt.Errorf("prefix %s: %w", prefix, err)
		}
		c.prefixes = append(c.prefixes, cr)
	}
	sort.Slice(c.prefixes, func(i, j int) bool {
		if len(c.prefixes[i].key) != len(c.prefixes[j].key) {
			return len(c.prefixes[i].key) > len(c.prefixes[j].key)
		}
		return c.prefixes[i].key < c.prefixes[j].key
	})

	for _, k := range mf.Keywords {
		if strings.TrimSpace(k.Match) == "" {
			return nil, fmt.Errorf("keyword rule without match")
		}
		cr, err := compile(strings.ToUpper(strings.TrimSpace(k.Match)), k.Rule, defaultKeywordConfidence)
		if err != nil {
			return nil, fmt.Errorf("keyword %s: %w", k.Match, err)
		}
		c.keywords = append(c.keywords, cr)
	}

	return c, nil
}

func compile(key string, r Rule, defaultConfidence float64) (compiledRule, error) {
	cat, err := domain.ParseCategory(r.Category)
	if err != nil {
		return compiledRule{}, err
	}
	conf := r.Confidence
	if conf <= 0 {
		conf = defaultConfidence
	}
	return compiledRule{key: key, category: cat, confidence: clamp(conf), rationale: r.Rationale}, nil
}

// Classify implements Classifier
func (c *FileClassifier) Classify(ctx context.Context, req *Request) (*Suggestion, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	if r, ok := c.accounts[req.AccountNumber]; ok {
		return r.suggestion("account rule " + r.key), nil
	}

	for _, r := range c.prefixes {
		if strings.HasPrefix(req.AccountNumber, r.key) {
			return r.suggestion("prefix rule " + r.key), nil
		}
	}

	for _, r := range c.keywords {
		for _, t := range req.RecentTransactions {
			if strings.Contains(strings.ToUpper(t.Text), r.key) {
				return r.suggestion("keyword rule " + r.key), nil
			}
		}
	}

	return &Suggestion{
		Category:   domain.CategoryOther,
		Confidence: 0,
		Rationale:  "no rule matched",
		Source:     SourceMappingFile,
	}, nil
}

func (r compiledRule) suggestion(fallback string) *Suggestion {
	rationale := r.rationale
	if rationale == "" {
		rationale = fallback
	}
	return &Suggestion{
		Category:   r.category,
		Confidence: r.confidence,
		Rationale:  rationale,
		Source:     SourceMappingFile,
	}
}

// Unconfigured answers every request with other at zero confidence. It
// stands in when neither a classifier endpoint nor a rule file is set.
type Unconfigured struct{}

// Classify implements Classifier
func (Unconfigured) Classify(ctx context.Context, req *Request) (*Suggestion, error) {
	return &Suggestion{
		Category:   domain.CategoryOther,
		Confidence: 0,
		Rationale:  "no classifier configured",
		Source:     SourceNoAPIKey,
	}, nil
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
