package authz

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Mindburn-Labs/screenpilot/pkg/identity"
)

const redisKeyPrefix = "permissions:"

// RedisStore keeps each user's grants in a Redis set.
type RedisStore struct {
	client redis.Cmdable
	closer func() error
}

func NewRedisStore(addr, password string, db int) *RedisStore {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	return &RedisStore{client: c, closer: c.Close}
}

// NewRedisStoreWithClient wraps an existing client; Close is then a no-op.
func NewRedisStoreWithClient(c redis.Cmdable) *RedisStore {
	return &RedisStore{client: c}
}

func redisKey(userID string) string {
	return redisKeyPrefix + userID
}

func (s *RedisStore) HasPermission(ctx context.Context, user identity.User, resource string) (bool, error) {
	if user.ID == "" {
		return false, nil
	}
	ok, err := s.client.SIsMember(ctx, redisKey(user.ID), resource).Result()
	if err != nil {
		return false, fmt.Errorf("redis permission check: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) Grant(ctx context.Context, userID, resource string) error {
	if err := s.client.SAdd(ctx, redisKey(userID), resource).Err(); err != nil {
		return fmt.Errorf("redis grant: %w", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
