package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/archfirm/gatehouse/core"
)

const redisKeyPrefix = "gatehouse:attempts:"

// hitScript increments the counter and starts the window on the first hit.
// It returns {attempts, milliseconds until the window resets}.
var hitScript = redis.NewScript(`
local attempts = redis.call("INCR", KEYS[1])
if attempts == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {attempts, ttl}
`)

// RedisStore shares attempt windows between instances through Redis
type RedisStore struct {
	client      redis.UniversalClient
	prefix      string
	maxAttempts int
	window      time.Duration
}

// NewRedisStore creates a new Redis attempt store
func NewRedisStore(client redis.UniversalClient, maxAttempts int, windowSize time.Duration) *RedisStore {
	maxAttempts, windowSize = normalize(maxAttempts, windowSize)
	return &RedisStore{
		client:      client,
		prefix:      redisKeyPrefix,
		maxAttempts: maxAttempts,
		window:      windowSize,
	}
}

// Hit records an attempt for identifier
func (s *RedisStore) Hit(ctx context.Context, identifier string) (core.Attempt, error) {
	res, err := hitScript.Run(ctx, s.client, []string{s.key(identifier)}, s.window.Milliseconds()).Int64Slice()
	if err != nil {
		return core.Attempt{}, fmt.Errorf("%w: %w", core.ErrStoreOperationFailed, err)
	}
	if len(res) != 2 {
		return core.Attempt{}, fmt.Errorf("%w: unexpected script reply %v", core.ErrStoreOperationFailed, res)
	}

	return verdict(int(res[0]), s.maxAttempts, time.Duration(res[1])*time.Millisecond), nil
}

// Reset deletes the counter for identifier
func (s *RedisStore) Reset(ctx context.Context, identifier string) error {
	if err := s.client.Del(ctx, s.key(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %w", core.ErrStoreOperationFailed, err)
	}
	return nil
}

func (s *RedisStore) key(identifier string) string {
	return s.prefix + identifier
}
