package lock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "lock:"

// KEYS[1]: lock key
// ARGV[1]: token of the holder
const releaseScript = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// Redis is a lease lock shared by every process talking to the same redis.
// A holder that outlives ttl loses the lease, so ttl must exceed the longest operation.
type Redis struct {
	client        *redis.Client
	logger        *slog.Logger
	ttl           time.Duration
	retryInterval time.Duration
	release       *redis.Script
}

func NewRedis(logger *slog.Logger, client *redis.Client, ttl, retryInterval time.Duration) *Redis {
	return &Redis{
		client:        client,
		logger:        logger.With("component", "redis_lock"),
		ttl:           ttl,
		retryInterval: retryInterval,
		release:       redis.NewScript(releaseScript),
	}
}

func (that *Redis) Lock(ctx context.Context, key string) (Unlock, error) {
	log := that.logger.With("method", "Lock", "key", key)

	lockKey := keyPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(that.retryInterval)
	defer ticker.Stop()

	for {
		ok, err := that.client.SetNX(ctx, lockKey, token, that.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}

		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", ErrNotAcquired, key, ctx.Err())
		case <-ticker.C:
		}
	}

	var once sync.Once

	return func() {
		once.Do(func() {
			// the caller context may already be done, release still has to reach redis
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), that.ttl)
			defer cancel()

			deleted, err := that.release.Run(releaseCtx, that.client, []string{lockKey}, token).Int()
			if err != nil {
				log.Error("failed to release lock", "error", err)
				return
			}

			if deleted == 0 {
				log.Warn("lock lease expired before release")
			}
		})
	}, nil
}
