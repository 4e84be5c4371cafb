package profiles

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/birokt/smittevern/internal/config"
)

// NewRedisClient connects to the profile cache and pings it
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}
