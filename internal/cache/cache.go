package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/opensource-finance/fhi/internal/domain"
)

// ErrTenantRequired is returned when a cache call omits the tenant.
var ErrTenantRequired = eris.New("cache: tenantID is required")

const (
	resultPrefix  = "result:"
	counterPrefix = "counter:"
)

// New creates a cache from configuration.
//
//	memory                      -> LRUCache
//	redis                       -> RedisCache
//	redis + enable_two_phase    -> TwoPhaseCache (LRU in front of Redis)
func New(cfg domain.CacheConfig) (domain.Cache, error) {
	switch cfg.Type {
	case "memory", "":
		return NewLRUCache(cfg.LocalMaxSize), nil

	case "redis":
		if cfg.EnableTwoPhase {
			return NewTwoPhaseCache(cfg)
		}
		return NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	default:
		return nil, eris.Errorf("cache: unsupported type %q", cfg.Type)
	}
}

func resultKey(fingerprint string) string {
	return resultPrefix + fingerprint
}

func encodeResult(result *domain.ScoreResult) ([]byte, error) {
	if result == nil {
		return nil, eris.New("cache: nil score result")
	}
	b, err := json.Marshal(result)
	if err != nil {
		return nil, eris.Wrap(err, "cache: encode score result")
	}
	return b, nil
}

func decodeResult(b []byte) (*domain.ScoreResult, error) {
	if b == nil {
		return nil, nil
	}
	var result domain.ScoreResult
	if err := json.Unmarshal(b, &result); err != nil {
		return nil, eris.Wrap(err, "cache: decode score result")
	}
	return &result, nil
}

// TwoPhaseCache reads through a local LRU (L1) to Redis (L2).
// Writes go to both layers; L1 entries never outlive LocalTTL.
type TwoPhaseCache struct {
	local  *LRUCache
	remote *RedisCache
	l1TTL  time.Duration
}

// NewTwoPhaseCache creates a two-phase cache with LRU + Redis.
func NewTwoPhaseCache(cfg domain.CacheConfig) (*TwoPhaseCache, error) {
	remote, err := NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, err
	}
	return newTwoPhase(NewLRUCache(cfg.LocalMaxSize), remote, cfg.LocalTTL), nil
}

func newTwoPhase(local *LRUCache, remote *RedisCache, l1TTL time.Duration) *TwoPhaseCache {
	if l1TTL <= 0 {
		l1TTL = 5 * time.Minute
	}
	return &TwoPhaseCache{local: local, remote: remote, l1TTL: l1TTL}
}

func (c *TwoPhaseCache) localTTL(ttl time.Duration) time.Duration {
	if ttl > 0 && ttl < c.l1TTL {
		return ttl
	}
	return c.l1TTL
}

// Get retrieves from L1 first, then L2. An L2 hit populates L1.
func (c *TwoPhaseCache) Get(ctx context.Context, tenantID string, key string) ([]byte, error) {
	val, err := c.local.Get(ctx, tenantID, key)
	if err != nil || val != nil {
		return val, err
	}

	val, err = c.remote.Get(ctx, tenantID, key)
	if err != nil {
		return nil, err
	}
	if val != nil {
		_ = c.local.Set(ctx, tenantID, key, val, c.l1TTL)
	}
	return val, nil
}

// Set writes to both L1 and L2.
func (c *TwoPhaseCache) Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error {
	if err := c.local.Set(ctx, tenantID, key, value, c.localTTL(ttl)); err != nil {
		return err
	}
	return c.remote.Set(ctx, tenantID, key, value, ttl)
}

// Delete removes from both L1 and L2.
func (c *TwoPhaseCache) Delete(ctx context.Context, tenantID string, key string) error {
	if err := c.local.Delete(ctx, tenantID, key); err != nil {
		return err
	}
	return c.remote.Delete(ctx, tenantID, key)
}

// GetResult retrieves a cached score result.
func (c *TwoPhaseCache) GetResult(ctx context.Context, tenantID string, fingerprint string) (*domain.ScoreResult, error) {
	b, err := c.Get(ctx, tenantID, resultKey(fingerprint))
	if err != nil {
		return nil, err
	}
	return decodeResult(b)
}

// SetResult caches a score result in both layers.
func (c *TwoPhaseCache) SetResult(ctx context.Context, tenantID string, fingerprint string, result *domain.ScoreResult, ttl time.Duration) error {
	b, err := encodeResult(result)
	if err != nil {
		return err
	}
	return c.Set(ctx, tenantID, resultKey(fingerprint), b, ttl)
}

// IncrementCounter always goes to Redis so quotas hold across nodes.
func (c *TwoPhaseCache) IncrementCounter(ctx context.Context, tenantID string, key string, window time.Duration) (int64, error) {
	return c.remote.IncrementCounter(ctx, tenantID, key, window)
}

// Ping checks both L1 and L2 health.
func (c *TwoPhaseCache) Ping(ctx context.Context) error {
	if err := c.local.Ping(ctx); err != nil {
		return eris.Wrap(err, "cache: L1 ping")
	}
	if err := c.remote.Ping(ctx); err != nil {
		return eris.Wrap(err, "cache: L2 ping")
	}
	return nil
}

// Close closes both L1 and L2.
func (c *TwoPhaseCache) Close() error {
	_ = c.local.Close()
	return c.remote.Close()
}

// Stats returns L1 cache statistics.
func (c *TwoPhaseCache) Stats() (size int, capacity int) {
	return c.local.Stats()
}
