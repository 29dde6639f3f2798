package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/comdesk/sessiond/internal/common"
)

const redisKeyPrefix = "cred:"

// RedisRepository keeps credentials in Redis, one key per username. Redis
// executes commands for a key serially, so SET is an atomic replacement.
type RedisRepository struct {
	client *redis.Client
}

func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

func (r *RedisRepository) Save(ctx context.Context, username, token string) error {
	if err := r.client.Set(ctx, redisKeyPrefix+username, token, 0).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (r *RedisRepository) Get(ctx context.Context, username string) (string, error) {
	token, err := r.client.Get(ctx, redisKeyPrefix+username).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("redis error: %w", err)
	}
	return token, nil
}

func (r *RedisRepository) Delete(ctx context.Context, username string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+username).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}
