package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockPrefix = "lock:"

// releaseScript deletes the key only while it still holds our token, so a
// lock that expired and was taken over is never released by the old owner.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker implements a per-key mutual exclusion lock on Redis.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
	poll   time.Duration
}

// NewLocker creates a Redis-backed locker. ttl bounds how long a crashed
// holder can keep a key locked.
func NewLocker(client *redis.Client, ttl time.Duration) *Locker {
	return &Locker{
		client: client,
		ttl:    ttl,
		poll:   50 * time.Millisecond,
	}
}

// Lock blocks until key is held or ctx is done. The returned function
// releases the lock and is safe to call once.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := lockPrefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis acquire lock %s: %w", key, err)
		}
		if ok {
			return func() {
				// The caller's context may already be cancelled.
				_ = releaseScript.Run(context.Background(), l.client, []string{redisKey}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for lock %s: %w", key, ctx.Err())
		case <-time.After(l.poll):
		}
	}
}
