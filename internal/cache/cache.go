// Package cache keeps the registry snapshot and ingestion locks in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/ukaji3/schedstruct-go/internal/logging"
	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/models"
)

const keyPrefix = "schedstruct:"

// ErrLockHeld indicates another holder owns the lock.
var ErrLockHeld = errors.New("lock held by another owner")

// ErrLockNotHeld indicates a release of a lock this holder does not own.
var ErrLockNotHeld = errors.New("lock not held")

// Config configures the Redis connection.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewClient connects to Redis and verifies the connection.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// RegistryCache stores the registry snapshot as JSON.
type RegistryCache struct {
	rdb *redis.Client
	ttl time.Duration
	log logging.Logger
}

// NewRegistryCache returns a cache whose entries expire after ttl.
func NewRegistryCache(rdb *redis.Client, ttl time.Duration, log logging.Logger) *RegistryCache {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &RegistryCache{rdb: rdb, ttl: ttl, log: log}
}

func registryKey() string { return keyPrefix + "registry" }

// Get returns the cached registry; ok is false on a miss.
func (c *RegistryCache) Get(ctx context.Context) (reg *models.Registry, ok bool, err error) {
	raw, err := c.rdb.Get(ctx, registryKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get registry: %w", err)
	}
	reg = &models.Registry{}
	if err := json.Unmarshal(raw, reg); err != nil {
		// A corrupt entry is treated as a miss and will be overwritten.
		c.log.Warn("discarding undecodable registry cache entry", logging.Err(err))
		return nil, false, nil
	}
	return reg, true, nil
}

// Set caches reg.
func (c *RegistryCache) Set(ctx context.Context, reg *models.Registry) error {
	raw, err := json.Marshal(reg)
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}
	if err := c.rdb.Set(ctx, registryKey(), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set registry: %w", err)
	}
	return nil
}

// Invalidate drops the cached registry.
func (c *RegistryCache) Invalidate(ctx context.Context) error {
	if err := c.rdb.Del(ctx, registryKey()).Err(); err != nil {
		return fmt.Errorf("invalidate registry: %w", err)
	}
	return nil
}

const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

var releaser = redis.NewScript(releaseScript)

// Locker hands out exclusive, expiring locks.
type Locker struct {
	rdb      *redis.Client
	newToken func() string
}

// NewLocker returns a Locker over rdb.
func NewLocker(rdb *redis.Client) *Locker {
	return &Locker{rdb: rdb, newToken: uuid.NewString}
}

// Lock is one acquired lock.
type Lock struct {
	rdb   *redis.Client
	key   string
	token string
}

func lockKey(name string) string { return keyPrefix + "lock:" + name }

// Acquire takes the lock named name for ttl, or returns ErrLockHeld.
func (l *Locker) Acquire(ctx context.Context, name string, ttl time.Duration) (*Lock, error) {
	key := lockKey(name)
	token := l.newToken()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLockHeld, key)
	}
	return &Lock{rdb: l.rdb, key: key, token: token}, nil
}

// Release frees the lock if this holder still owns it.
func (k *Lock) Release(ctx context.Context) error {
	n, err := releaser.Eval(ctx, k.rdb, []string{k.key}, k.token).Int64()
	if err != nil {
		return fmt.Errorf("release %s: %w", k.key, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrLockNotHeld, k.key)
	}
	return nil
}
