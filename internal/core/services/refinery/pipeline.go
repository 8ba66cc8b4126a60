package refinery

import (
	"fmt"
	"sort"
)

// Pipeline orchestrates the text cleaning process using a specific refinery
type Pipeline struct {
	refinery BaseRefinery
}

// NewPipeline creates a new refinery pipeline. refineryType is a version
// ("v1", "display") or an alias ("german", "classifier").
func NewPipeline(refineryType string, customConfig map[string]interface{}) (*Pipeline, error) {
	refinery, err := Create(refineryType, customConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create refinery: %w", err)
	}
	return &Pipeline{refinery: refinery}, nil
}

// MustPipeline is NewPipeline for the built-in refineries
func MustPipeline(refineryType string) *Pipeline {
	p, err := NewPipeline(refineryType, nil)
	if err != nil {
		panic(err)
	}
	return p
}

// CleanText processes a single text string
func (p *Pipeline) CleanText(text string) string {
	return p.refinery.Process(text)
}

// CleanBatch processes a batch of texts
func (p *Pipeline) CleanBatch(texts []string) []string {
	results := make([]string, len(texts))
	for i, text := range texts {
		results[i] = p.refinery.Process(text)
	}
	return results
}

// Distinct cleans texts and returns the sorted set of non-empty results
func (p *Pipeline) Distinct(texts []string) []string {
	seen := make(map[string]bool, len(texts))
	out := make([]string, 0, len(texts))
	for _, t := range p.CleanBatch(texts) {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// GetVersion returns the refinery version being used
func (p *Pipeline) GetVersion() string {
	return p.refinery.GetVersion()
}

// GetName returns the refinery name
func (p *Pipeline) GetName() string {
	return p.refinery.GetName()
}

// GetPipelineSteps returns the processing steps
func (p *Pipeline) GetPipelineSteps() []string {
	return p.refinery.GetPipelineSteps()
}
