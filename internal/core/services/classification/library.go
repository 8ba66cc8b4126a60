package classification

import (
	"context"
	"log/slog"

	"github.com/alejandroruanova/esg-pipeline/internal/core/domain"
)

// Library reuses confirmed mappings of other companies. Accounts with the
// same name tend to carry the same category across BMD clients.
type Library struct {
	repo   MappingRepository
	logger *slog.Logger
}

// NewLibrary creates a mapping library over repo
func NewLibrary(repo MappingRepository, logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{repo: repo, logger: logger}
}

// Lookup returns the most common confirmed category for accountName with
// confidence equal to its share of all matches, or nil without matches.
// Ties go to the category listed first in the canonical order.
func (l *Library) Lookup(ctx context.Context, accountName string) (*Suggestion, error) {
	matches, err := l.repo.FindConfirmedByName(ctx, accountName)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}

	counts := make(map[domain.Category]int)
	for _, m := range matches {
		counts[m.Category]++
	}

	var best domain.Category
	bestCount := 0
	for _, c := range domain.Categories() {
		if counts[c] > bestCount {
			best, bestCount = c, counts[c]
		}
	}
	if bestCount == 0 {
		return nil, nil
	}

	s := &Suggestion{
		Category:   best,
		Confidence: float64(bestCount) / float64(len(matches)),
		Rationale:  "confirmed for the same account name in other companies",
		Source:     SourceLibrary,
		Matches:    len(matches),
	}

	l.logger.Debug("library match",
		slog.String("account_name", accountName),
		slog.String("category", string(best)),
		slog.Int("matches", len(matches)),
		slog.Float64("confidence", s.Confidence))

	return s, nil
}
