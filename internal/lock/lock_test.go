package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-ledger/internal/logger"
)

// setupTestRedis creates a Redis client backed by miniredis
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		mr.Close()
		t.Fatalf("Failed to connect to miniredis: %v", err)
	}

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestMutexSerialises(t *testing.T) {
	m := NewMutex()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		inside  int
		maxSeen int
		mu      sync.Mutex
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := m.Lock(ctx, "ledger")
			if !assert.NoError(t, err) {
				return
			}

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			assert.NoError(t, unlock(ctx))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
}

func TestMutexHonoursContext(t *testing.T) {
	m := NewMutex()
	unlock, err := m.Lock(context.Background(), "ledger")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = m.Lock(ctx, "ledger")
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(context.Background()))
	unlock, err = m.Lock(context.Background(), "ledger")
	require.NoError(t, err)
	assert.NoError(t, unlock(context.Background()))
}

func TestRedisLockIsExclusive(t *testing.T) {
	client, _ := setupTestRedis(t)
	l := NewRedis(client, time.Minute)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "ledger")
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, err = l.Lock(waitCtx, "ledger")
	assert.ErrorIs(t, err, ErrLockTimeout)

	// a different key is independent
	other, err := l.Lock(ctx, "other")
	require.NoError(t, err)
	assert.NoError(t, other(ctx))

	require.NoError(t, unlock(ctx))
	unlock, err = l.Lock(ctx, "ledger")
	require.NoError(t, err)
	assert.NoError(t, unlock(ctx))
}

func TestRedisLockWaitsForRelease(t *testing.T) {
	client, _ := setupTestRedis(t)
	l := NewRedis(client, time.Minute)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "ledger")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		second, err := l.Lock(ctx, "ledger")
		if assert.NoError(t, err) {
			close(acquired)
			_ = second(ctx)
		}
	}()

	time.Sleep(50 * time.Millisecond)
	select {
	case <-acquired:
		t.Fatal("second holder acquired a held lock")
	default:
	}

	require.NoError(t, unlock(ctx))
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("second holder never acquired the lock")
	}
}

func TestRedisLockExpiredLease(t *testing.T) {
	client, mr := setupTestRedis(t)
	l := NewRedis(client, time.Second)
	ctx := context.Background()

	stale, err := l.Lock(ctx, "ledger")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	fresh, err := l.Lock(ctx, "ledger")
	require.NoError(t, err)

	// the stale holder must not release the new lease
	assert.ErrorIs(t, stale(ctx), ErrLockLost)
	assert.True(t, mr.Exists(keyPrefix+"ledger"))
	assert.NoError(t, fresh(ctx))
	assert.False(t, mr.Exists(keyPrefix+"ledger"))
}

func TestRedisLockRenewsLease(t *testing.T) {
	client, mr := setupTestRedis(t)
	l := NewRedis(client, 200*time.Millisecond)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "ledger")
	require.NoError(t, err)

	// the holder outlives several TTLs of wall time
	for i := 0; i < 3; i++ {
		mr.FastForward(150 * time.Millisecond)
		require.True(t, mr.Exists(keyPrefix+"ledger"))
		assert.Eventually(t, func() bool {
			return mr.TTL(keyPrefix+"ledger") > 150*time.Millisecond
		}, 2*time.Second, 10*time.Millisecond)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, err = l.Lock(waitCtx, "ledger")
	assert.ErrorIs(t, err, ErrLockTimeout)

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists(keyPrefix+"ledger"))
}

func TestNewRedisClient(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := NewRedisClient(context.Background(), mr.Addr(), "", 0, logger.Discard())
	require.NoError(t, err)
	defer client.Close()

	addr := mr.Addr()
	mr.Close()
	_, err = NewRedisClient(context.Background(), addr, "", 0, logger.Discard())
	assert.Error(t, err)
}
