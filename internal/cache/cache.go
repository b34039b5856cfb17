package cache

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prospectgrid/prospectgrid/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// TTLs per use site. Negative coverage expires sooner than positive because
// street-level coverage is extended over time: a "no imagery" answer goes
// stale much faster than a "covered" one.
const (
	TTLGeocode    = 30 * 24 * time.Hour
	TTLCoverage   = 30 * 24 * time.Hour
	TTLNoCoverage = 7 * 24 * time.Hour
	TTLSession    = 24 * time.Hour
	TTLCampaign   = 7 * 24 * time.Hour
)

// Cache wraps a Redis client with graceful degradation: any backend error,
// including an absent backend, is treated as a miss or a no-op. Caching is a
// performance optimization here, never a correctness dependency.
type Cache struct {
	client *redis.Client
}

// New connects to the given Redis URL. An empty URL or a failed connection
// yields a disabled cache, not an error.
func New(ctx context.Context, redisURL string) *Cache {
	if redisURL == "" {
		zap.S().Named("cache").Info("REDIS_URL not set, caching disabled")
		return &Cache{}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		zap.S().Named("cache").Warnf("invalid redis url, caching disabled: %v", err)
		return &Cache{}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		zap.S().Named("cache").Warnf("redis connection failed, caching disabled: %v", err)
		return &Cache{}
	}

	zap.S().Named("cache").Info("redis cache connected")
	return &Cache{client: client}
}

// NewWithClient wraps an existing client. Used by tests and by the shared
// rate limiter, which reuses the cache's connection.
func NewWithClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// Client exposes the underlying connection for collaborators that need raw
// Redis (the shared rate limiter). Nil when the cache is disabled.
func (c *Cache) Client() *redis.Client {
	if c == nil {
		return nil
	}
	return c.client
}

// Get unmarshals the cached value for key into dest and reports whether the
// key was present. Backend errors count as misses.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	if !c.Enabled() {
		return false
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			zap.S().Named("cache").Warnf("get failed for %s: %v", key, err)
			metrics.IncreaseCacheRequests("error")
		} else {
			metrics.IncreaseCacheRequests("miss")
		}
		return false
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		zap.S().Named("cache").Warnf("corrupted entry for %s: %v", key, err)
		metrics.IncreaseCacheRequests("error")
		return false
	}

	metrics.IncreaseCacheRequests("hit")
	return true
}

// Set stores value under key with the given TTL. Failures are logged and
// swallowed.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if !c.Enabled() {
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		zap.S().Named("cache").Warnf("marshal failed for %s: %v", key, err)
		return
	}

	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		zap.S().Named("cache").Warnf("set failed for %s: %v", key, err)
	}
}

// Delete removes key. Failures are logged and swallowed.
func (c *Cache) Delete(ctx context.Context, key string) {
	if !c.Enabled() {
		return
	}

	if err := c.client.Del(ctx, key).Err(); err != nil {
		zap.S().Named("cache").Warnf("delete failed for %s: %v", key, err)
	}
}

// GeocodeKey builds a deterministic key for geocoding results. The address
// is lowercased and whitespace-collapsed before hashing so equivalent
// spellings share an entry.
func GeocodeKey(address string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(address)), " ")
	return fmt.Sprintf("geo:%x", md5.Sum([]byte(normalized)))
}

// CoverageKey builds a key for imagery coverage, with coordinates rounded
// to 5 decimal places (~1.1 m), precise enough for a coverage lookup.
func CoverageKey(lat, lng float64) string {
	return fmt.Sprintf("sv:%.5f:%.5f", lat, lng)
}

// SessionKey builds a key for upload sessions held in the cache.
func SessionKey(sessionID string) string {
	return "session:" + sessionID
}

// CampaignKey builds a key for campaign snapshots.
func CampaignKey(campaignID string) string {
	return "campaign:" + campaignID
}
