package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultCleanupLeaseKey = "device_guard:cleanup:lease"

var releaseLeaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisCleanupLease struct {
	client redis.UniversalClient
	key    string
}

func NewRedisCleanupLease(client redis.UniversalClient, key string) *RedisCleanupLease {
	if key == "" {
		key = defaultCleanupLeaseKey
	}
	return &RedisCleanupLease{client: client, key: key}
}

func (l *RedisCleanupLease) Acquire(ctx context.Context, ttl time.Duration) (string, bool, error) {
	if l.client == nil {
		return "", true, nil
	}
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release deletes the lease only while it still carries token, so an expired holder cannot
// drop a lease another replica has since taken.
func (l *RedisCleanupLease) Release(ctx context.Context, token string) error {
	if l.client == nil || token == "" {
		return nil
	}
	return releaseLeaseScript.Run(ctx, l.client, []string{l.key}, token).Err()
}
