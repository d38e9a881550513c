package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	DefaultTTL           = 10 * time.Second
	DefaultRetryInterval = 25 * time.Millisecond
	keyPrefix            = "ledger_lock:"
)

// compare-and-delete so a holder never releases a lease it no longer owns
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extends the lease only while this holder still owns it
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Redis holds a lease under SET NX PX with a random token per holder. The
// lease is renewed every TTL/2 until the holder unlocks, so a call that runs
// longer than TTL keeps it.
type Redis struct {
	Client        redis.UniversalClient
	TTL           time.Duration
	RetryInterval time.Duration
}

func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{
		Client:        client,
		TTL:           ttl,
		RetryInterval: DefaultRetryInterval,
	}
}

func (r *Redis) Lock(ctx context.Context, key string) (Unlock, error) {
	redisKey := keyPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(r.RetryInterval)
	defer ticker.Stop()

	for {
		ok, err := r.Client.SetNX(ctx, redisKey, token, r.TTL).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Join(ErrLockTimeout, ctx.Err())
			}
			return nil, fmt.Errorf("lock %s: %w", key, err)
		}
		if ok {
			return r.hold(ctx, redisKey, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrLockTimeout, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (r *Redis) hold(ctx context.Context, redisKey, token string) Unlock {
	renewCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.renew(renewCtx, redisKey, token)
	}()

	release := r.unlocker(redisKey, token)
	return func(ctx context.Context) error {
		stop()
		<-done
		return release(ctx)
	}
}

// renew keeps extending the lease until ctx is cancelled or the lease is
// found to belong to someone else.
func (r *Redis) renew(ctx context.Context, redisKey, token string) {
	interval := r.TTL / 2
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		extended, err := renewScript.Run(ctx, r.Client, []string{redisKey}, token, r.TTL.Milliseconds()).Int()
		if err != nil {
			// transient errors retry on the next tick
			continue
		}
		if extended == 0 {
			return
		}
	}
}

func (r *Redis) unlocker(redisKey, token string) Unlock {
	return func(ctx context.Context) error {
		deleted, err := releaseScript.Run(ctx, r.Client, []string{redisKey}, token).Int()
		if err != nil {
			return fmt.Errorf("unlock %s: %w", redisKey, err)
		}
		if deleted == 0 {
			return ErrLockLost
		}
		return nil
	}
}
