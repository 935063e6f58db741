package redis

import (
	"github.com/redis/go-redis/v9"

	"sudooom.im.typing/internal/config"
)

// NewClient 创建 Redis 客户端
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}
