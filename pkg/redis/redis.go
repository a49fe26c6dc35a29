package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type RedisDB struct {
	Client *redis.Client
	cfg    Config
}

// NewRedisDB builds the client right away; the connection is checked in Start.
func NewRedisDB(config Config) *RedisDB {
	address := fmt.Sprintf("%s:%s",
		config.Host,
		config.Port,
	)

	return &RedisDB{
		cfg: config,
		Client: redis.NewClient(&redis.Options{
			Addr:     address,
			Password: config.Password,
			DB:       config.DB,
		}),
	}
}

func (r *RedisDB) Start(ctx context.Context) error {
	if _, err := r.Client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping redis %s: %w", r.Client.Options().Addr, err)
	}

	return nil
}

func (r *RedisDB) Stop(ctx context.Context) error {
	return r.Client.Close()
}

func (r *RedisDB) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := r.Client.Set(ctx, key, value, expiration).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Get returns "" without error when the key does not exist.
func (r *RedisDB) Get(ctx context.Context, key string) (string, error) {
	val, err := r.Client.Get(ctx, key).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("failed to get %s: %w", key, err)
	}
	return val, nil
}

func (r *RedisDB) Del(ctx context.Context, key string) error {
	if err := r.Client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
