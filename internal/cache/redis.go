package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/opensource-finance/fhi/internal/domain"
)

const keyPrefix = "fhi:"

// incrWindow increments a counter and arms its expiry on the first hit.
var incrWindow = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return current
`)

// RedisCache implements domain.Cache on Redis. It is shared across nodes and
// serves as L2 in two-phase caching.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, eris.Wrapf(err, "cache: connect to redis at %s", addr)
	}
	return &RedisCache{client: client}, nil
}

func key(tenantID, k string) string {
	return keyPrefix + tenantID + ":" + k
}

// Get returns the value for k, or nil on a miss.
func (c *RedisCache) Get(ctx context.Context, tenantID string, k string) ([]byte, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	val, err := c.client.Get(ctx, key(tenantID, k)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "cache: redis get")
	}
	return val, nil
}

// Set stores value under k for ttl.
func (c *RedisCache) Set(ctx context.Context, tenantID string, k string, value []byte, ttl time.Duration) error {
	if tenantID == "" {
		return ErrTenantRequired
	}
	if err := c.client.Set(ctx, key(tenantID, k), value, ttl).Err(); err != nil {
		return eris.Wrap(err, "cache: redis set")
	}
	return nil
}

// Delete removes k.
func (c *RedisCache) Delete(ctx context.Context, tenantID string, k string) error {
	if tenantID == "" {
		return ErrTenantRequired
	}
	if err := c.client.Del(ctx, key(tenantID, k)).Err(); err != nil {
		return eris.Wrap(err, "cache: redis delete")
	}
	return nil
}

// GetResult returns the cached result for a profile fingerprint.
func (c *RedisCache) GetResult(ctx context.Context, tenantID string, fingerprint string) (*domain.ScoreResult, error) {
	b, err := c.Get(ctx, tenantID, resultKey(fingerprint))
	if err != nil {
		return nil, err
	}
	return decodeResult(b)
}

// SetResult caches a result under a profile fingerprint.
func (c *RedisCache) SetResult(ctx context.Context, tenantID string, fingerprint string, result *domain.ScoreResult, ttl time.Duration) error {
	b, err := encodeResult(result)
	if err != nil {
		return err
	}
	return c.Set(ctx, tenantID, resultKey(fingerprint), b, ttl)
}

// IncrementCounter atomically increments a fixed-window counter.
func (c *RedisCache) IncrementCounter(ctx context.Context, tenantID string, k string, window time.Duration) (int64, error) {
	if tenantID == "" {
		return 0, ErrTenantRequired
	}
	n, err := incrWindow.Run(ctx, c.client, []string{key(tenantID, counterPrefix+k)}, window.Milliseconds()).Int64()
	if err != nil {
		return 0, eris.Wrap(err, "cache: redis increment")
	}
	return n, nil
}

// Ping checks Redis connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
