package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisKeyPrefix = "lock:"

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker shares locks between service replicas. Every key carries a TTL so a
// crashed holder cannot block a record forever.
type RedisLocker struct {
	client    *redis.Client
	ttl       time.Duration
	retryWait time.Duration
	logger    zerolog.Logger
}

func NewRedis(client *redis.Client, ttl, retryWait time.Duration, logger zerolog.Logger) *RedisLocker {
	if retryWait <= 0 {
		retryWait = 25 * time.Millisecond
	}
	return &RedisLocker{
		client:    client,
		ttl:       ttl,
		retryWait: retryWait,
		logger:    logger,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = normalize(keys)
	token := uuid.New().String()
	acquired := make([]string, 0, len(keys))

	release := func() {
		// Release must not depend on the caller's context, which may already be cancelled.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for i := len(acquired) - 1; i >= 0; i-- {
			key := redisKeyPrefix + acquired[i]
			if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
				l.logger.Error().Err(err).Str("key", key).Msg("Failed to release lock")
			}
		}
	}

	for _, key := range keys {
		if err := l.acquire(ctx, redisKeyPrefix+key, token); err != nil {
			release()
			return nil, err
		}
		acquired = append(acquired, key)
	}

	return release, nil
}

func (l *RedisLocker) acquire(ctx context.Context, key, token string) error {
	ticker := time.NewTicker(l.retryWait)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s", ErrLockTimeout, key)
		case <-ticker.C:
		}
	}
}
