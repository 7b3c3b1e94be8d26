package redisclient

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "lock:table:orders", lockKey("table:orders"))
	assert.Equal(t, "idempotency:alice:k1", idempotencyKey("alice:k1"))
}

func TestNewClientDefaultsLockTTL(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer rdb.Close()

	c := newClient(rdb, 0)
	assert.Equal(t, 30*time.Second, c.lockTTL)
	assert.NotEmpty(t, c.releaseScript.Hash())
	assert.NotEmpty(t, c.extendScript.Hash())
}

// testClient connects to REDIS_TEST_ADDR, skipping when it is unset
func testClient(t *testing.T) *Client {
	t.Helper()

	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set, skipping Redis integration test")
	}

	c, err := NewClient(addr, "", 0, 3*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestAcquireSerializes(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	name := "test:" + uuid.New().String()

	release, err := c.Acquire(ctx, name)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	_, err = c.Acquire(waitCtx, name)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release()

	release2, err := c.Acquire(ctx, name)
	require.NoError(t, err)
	release2()
}

func TestAcquireConcurrent(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	name := "test:" + uuid.New().String()

	var mu sync.Mutex
	inside := 0
	maxInside := 0

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := c.Acquire(ctx, name)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxInside {
				maxInside = inside
			}
			mu.Unlock()

			time.Sleep(20 * time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInside)
}

func TestLockOutlivesTTLWhileHeld(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	name := "test:" + uuid.New().String()

	release, err := c.Acquire(ctx, name)
	require.NoError(t, err)
	defer release()

	time.Sleep(c.lockTTL + time.Second)

	ttl, err := c.rdb.PTTL(ctx, lockKey(name)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestIdempotencyKey(t *testing.T) {
	c := testClient(t)
	ctx := context.Background()
	key := "test:" + uuid.New().String()

	val, err := c.GetIdempotencyKey(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, val)

	stored, err := c.SetIdempotencyKey(ctx, key, "order-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, stored)

	stored, err = c.SetIdempotencyKey(ctx, key, "order-2", time.Minute)
	require.NoError(t, err)
	assert.False(t, stored)

	val, err = c.GetIdempotencyKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "order-1", val)
}
