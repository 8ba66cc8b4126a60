package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alejandroruanova/esg-pipeline/internal/core/services/classification"
	"github.com/alejandroruanova/esg-pipeline/internal/pkg/config"
)

// suggestionPrefix namespaces classifier answers in Redis
const suggestionPrefix = "esg:suggestion:"

// RedisCache stores classifier suggestions in Redis so that workers and
// CLI runs share them
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache creates a new Redis cache client
func NewRedisCache(cfg *config.CacheConfig, logger *slog.Logger) (*RedisCache, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  time.Duration(cfg.DialTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	// Ping to verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Info("redis connection established",
		slog.String("host", cfg.Host),
		slog.Int("port", cfg.Port),
		slog.Int("db", cfg.DB),
	)

	return &RedisCache{
		client: client,
		ttl:    ttlFromHours(cfg.TTLHours),
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (r *RedisCache) Close() error {
	r.logger.Info("closing redis connection")
	return r.client.Close()
}

// GetSuggestion implements classification.SuggestionCache
func (r *RedisCache) GetSuggestion(ctx context.Context, key string) (*classification.Suggestion, bool, error) {
	data, err := r.client.Get(ctx, suggestionPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read suggestion: %w", err)
	}

	var s classification.Suggestion
	if err := json.Unmarshal(data, &s); err != nil {
		r.logger.Warn("dropping unreadable cached suggestion",
			slog.String("key", key),
			slog.Any("error", err))
		r.client.Del(ctx, suggestionPrefix+key)
		return nil, false, nil
	}
	return &s, true, nil
}

// SetSuggestion implements classification.SuggestionCache
func (r *RedisCache) SetSuggestion(ctx context.Context, key string, s *classification.Suggestion) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode suggestion: %w", err)
	}
	if err := r.client.Set(ctx, suggestionPrefix+key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store suggestion: %w", err)
	}
	return nil
}

// Flush removes every cached suggestion and returns how many were removed
func (r *RedisCache) Flush(ctx context.Context) (int, error) {
	removed := 0
	iter := r.client.Scan(ctx, 0, suggestionPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return removed, fmt.Errorf("failed to delete %s: %w", iter.Val(), err)
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("failed to scan suggestions: %w", err)
	}
	return removed, nil
}

// Ping checks if Redis is alive
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Health returns health status of Redis
func (r *RedisCache) Health(ctx context.Context) map[string]interface{} {
	if err := r.Ping(ctx); err != nil {
		return map[string]interface{}{"status": "down", "error": err.Error()}
	}

	stats := r.client.PoolStats()
	return map[string]interface{}{
		"status":      "up",
		"hits":        stats.Hits,
		"misses":      stats.Misses,
		"timeouts":    stats.Timeouts,
		"total_conns": stats.TotalConns,
		"idle_conns":  stats.IdleConns,
	}
}

func ttlFromHours(hours int) time.Duration {
	if hours <= 0 {
		return 0
	}
	return time.Duration(hours) * time.Hour
}
