package redisclient

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"produce-ledger/internal/util"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

//go:embed scripts/release_lock.lua
var releaseLockScript string

//go:embed scripts/extend_lock.lua
var extendLockScript string

const (
	lockRetryInterval = 50 * time.Millisecond
	releaseTimeout    = 2 * time.Second
)

// ErrLockNotHeld is returned when a lock expired or changed owner while held
var ErrLockNotHeld = errors.New("lock not held")

// Client wraps go-redis with table locks and idempotency keys
type Client struct {
	rdb           *redis.Client
	lockTTL       time.Duration
	releaseScript *redis.Script
	extendScript  *redis.Script
	logger        *zap.Logger
}

// NewClient creates a new Redis client and verifies connectivity
func NewClient(addr, password string, db int, lockTTL time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return newClient(rdb, lockTTL), nil
}

func newClient(rdb *redis.Client, lockTTL time.Duration) *Client {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &Client{
		rdb:           rdb,
		lockTTL:       lockTTL,
		releaseScript: redis.NewScript(releaseLockScript),
		extendScript:  redis.NewScript(extendLockScript),
		logger:        util.Named("redis"),
	}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks connectivity, used by the readiness probe
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Acquire blocks until the named distributed lock is held or ctx is done.
// The lock is kept alive while held and expires after the configured TTL
// if the holder dies.
func (c *Client) Acquire(ctx context.Context, name string) (func(), error) {
	key := lockKey(name)
	token := uuid.New().String()

	for {
		ok, err := c.rdb.SetNX(ctx, key, token, c.lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", name, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire lock %s: %w", name, ctx.Err())
		case <-time.After(lockRetryInterval):
		}
	}

	stop := make(chan struct{})
	go c.keepAlive(name, token, stop)

	var once sync.Once
	release := func() {
		once.Do(func() {
			close(stop)

			// The caller's ctx may already be done; release on a fresh one.
			rctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()

			if err := c.releaseScript.Run(rctx, c.rdb, []string{key}, token).Err(); err != nil {
				c.logger.Error("Failed to release lock", zap.String("lock", name), zap.Error(err))
			}
		})
	}
	return release, nil
}

// keepAlive extends a held lock every third of its TTL until stop is closed
func (c *Client) keepAlive(name, token string, stop <-chan struct{}) {
	ticker := time.NewTicker(c.lockTTL / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			err := c.extend(ctx, name, token)
			cancel()
			if errors.Is(err, ErrLockNotHeld) {
				c.logger.Warn("Lock expired while held", zap.String("lock", name))
				return
			}
			if err != nil {
				c.logger.Error("Failed to extend lock", zap.String("lock", name), zap.Error(err))
			}
		}
	}
}

// extend pushes the expiry of a lock held with token out by the lock TTL
func (c *Client) extend(ctx context.Context, name, token string) error {
	n, err := c.extendScript.Run(ctx, c.rdb, []string{lockKey(name)}, token, c.lockTTL.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", name, err)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// SetIdempotencyKey records the result of a request under key, only if the key is new.
// It reports whether the key was stored.
func (c *Client) SetIdempotencyKey(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, idempotencyKey(key), value, ttl).Result()
}

// GetIdempotencyKey returns the value stored under key, or "" when absent
func (c *Client) GetIdempotencyKey(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, idempotencyKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func lockKey(name string) string {
	return fmt.Sprintf("lock:%s", name)
}

func idempotencyKey(key string) string {
	return fmt.Sprintf("idempotency:%s", key)
}
