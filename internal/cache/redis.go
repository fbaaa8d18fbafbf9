package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"listing-catalog/internal/badges"
	"listing-catalog/internal/catalog"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "catalog"

// Cache is a thin JSON layer over a Redis client.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis at the given URL and returns a Cache.
// URL format: redis://localhost:6379/0
func New(redisURL string, ttl time.Duration) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("cache: invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("cache: redis ping failed: %w", err)
	}

	return &Cache{client: client, ttl: ttl}, nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}

// getJSON decodes the value at key into dst. ok is false on a miss.
func (c *Cache) getJSON(ctx context.Context, key string, dst interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return true, nil
}

func (c *Cache) setJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: marshal error: %w", err)
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

// CachedStore serves repeated catalog reads from Redis. Cache failures fall
// through to the wrapped store; only successful reads are cached.
type CachedStore struct {
	next   catalog.Store
	cache  *Cache
	logger *slog.Logger
}

func NewCachedStore(next catalog.Store, cache *Cache, logger *slog.Logger) *CachedStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedStore{next: next, cache: cache, logger: logger.With("component", "cache")}
}

func (s *CachedStore) Select(ctx context.Context, req catalog.SelectRequest) (catalog.SelectResult, error) {
	key, err := selectKey(req)
	if err != nil {
		return s.next.Select(ctx, req)
	}

	var cached catalog.SelectResult
	ok, err := s.cache.getJSON(ctx, key, &cached)
	if err != nil {
		s.logger.Warn("cache read failed", "error", err)
	}
	if ok {
		return cached, nil
	}

	res, err := s.next.Select(ctx, req)
	if err != nil {
		return res, err
	}

	if err := s.cache.setJSON(ctx, key, res, s.cache.ttl); err != nil {
		s.logger.Warn("cache write failed", "error", err)
	}
	return res, nil
}

// selectKey hashes the full request so any filter, sort or window change is a new key.
func selectKey(req catalog.SelectRequest) (string, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	hash := sha256.Sum256(raw)
	return fmt.Sprintf("%s:select:%x", keyPrefix, hash[:12]), nil
}

const tagsKey = keyPrefix + ":badges"

// TagCache stores the computed badge map.
type TagCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewTagCache keeps badge maps for ttl; the scheduler refreshes them before expiry.
func NewTagCache(cache *Cache, ttl time.Duration) *TagCache {
	return &TagCache{cache: cache, ttl: ttl}
}

func (t *TagCache) SaveTags(ctx context.Context, tags map[string]badges.Tag) error {
	return t.cache.setJSON(ctx, tagsKey, tags, t.ttl)
}

func (t *TagCache) LoadTags(ctx context.Context) (map[string]badges.Tag, bool, error) {
	var tags map[string]badges.Tag
	ok, err := t.cache.getJSON(ctx, tagsKey, &tags)
	if err != nil || !ok {
		return nil, false, err
	}
	return tags, true, nil
}
