package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/alejandroruanova/esg-pipeline/internal/core/services/classification"
)

// MemoryCache keeps classifier suggestions in process. Used when Redis is
// disabled; answers survive for one CLI run or one server lifetime.
type MemoryCache struct {
	items *gocache.Cache
}

// NewMemoryCache creates a cache whose entries expire after ttlHours
// (never when zero)
func NewMemoryCache(ttlHours int) *MemoryCache {
	ttl := ttlFromHours(ttlHours)
	if ttl == 0 {
		ttl = gocache.NoExpiration
	}
	return &MemoryCache{items: gocache.New(ttl, 10*time.Minute)}
}

// GetSuggestion implements classification.SuggestionCache
func (m *MemoryCache) GetSuggestion(ctx context.Context, key string) (*classification.Suggestion, bool, error) {
	v, found := m.items.Get(key)
	if !found {
		return nil, false, nil
	}
	s := v.(classification.Suggestion)
	return &s, true, nil
}

// SetSuggestion implements classification.SuggestionCache
func (m *MemoryCache) SetSuggestion(ctx context.Context, key string, s *classification.Suggestion) error {
	m.items.SetDefault(key, *s)
	return nil
}

// Flush removes every entry and returns how many there were
func (m *MemoryCache) Flush(ctx context.Context) (int, error) {
	n := m.items.ItemCount()
	m.items.Flush()
	return n, nil
}
