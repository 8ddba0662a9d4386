package db

import (
	"github.com/redis/go-redis/v9"

	"github.com/ivoyovchev/climbingtracker99-sub004/internal/config"
)

// ConnectRedis returns nil when no address is configured; callers treat a
// nil client as "redis unavailable" and fall back accordingly.
func ConnectRedis(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}

	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}
