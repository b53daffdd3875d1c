// Package cache provides an optional Redis-backed cache for batch
// recommendation responses. When caching is disabled a no-op
// implementation is used so callers never branch on configuration.
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/opsagent/opsagent/internal/config"
	"github.com/opsagent/opsagent/internal/domain"
)

const (
	recommendationKeyPrefix = "opsagent:recommend"
	scanBatchSize           = 100
	defaultCacheTTL         = time.Minute
)

type RecommendationCache interface {
	Get(ctx context.Context, key string) (*domain.BatchRecommendations, bool, error)
	Set(ctx context.Context, key string, result *domain.BatchRecommendations) error
	InvalidateAll(ctx context.Context) error
}

type redisRecommendationCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopRecommendationCache struct{}

// NewRecommendationCache returns a Redis-backed cache when enabled in the
// configuration and a no-op cache otherwise.
func NewRecommendationCache(cfg config.CacheConfig) (RecommendationCache, error) {
	if !cfg.Enabled {
		return &noopRecommendationCache{}, nil
	}

	opts, err := buildRedisOptions(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	return &redisRecommendationCache{client: client, ttl: ttl}, nil
}

func NewNoopRecommendationCache() RecommendationCache {
	return &noopRecommendationCache{}
}

// BuildKey hashes the request parameters into a stable cache key.
func BuildKey(parts ...string) string {
	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return recommendationKeyPrefix + ":" + hex.EncodeToString(sum[:])
}

func (c *redisRecommendationCache) Get(ctx context.Context, key string) (*domain.BatchRecommendations, bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var result domain.BatchRecommendations
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, false, fmt.Errorf("decode recommendation cache: %w", err)
	}

	return &result, true, nil
}

func (c *redisRecommendationCache) Set(ctx context.Context, key string, result *domain.BatchRecommendations) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode recommendation cache: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

func (c *redisRecommendationCache) InvalidateAll(ctx context.Context) error {
	var cursor uint64
	pattern := recommendationKeyPrefix + "*"
	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("redis scan failed: %w", err)
		}

		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis delete failed: %w", err)
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			return nil
		}
	}
}

func (c *noopRecommendationCache) Get(ctx context.Context, key string) (*domain.BatchRecommendations, bool, error) {
	return nil, false, nil
}

func (c *noopRecommendationCache) Set(ctx context.Context, key string, result *domain.BatchRecommendations) error {
	return nil
}

func (c *noopRecommendationCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildRedisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opt, nil
	}

	host := cfg.RedisHost
	if host == "" {
		host = "127.0.0.1"
	}

	port := cfg.RedisPort
	if port == "" {
		port = "6379"
	}

	return &redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}
