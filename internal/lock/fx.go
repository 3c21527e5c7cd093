package lock

import (
	"github.com/agencyhub/entitlex/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewClient builds the optional Redis client. Nil when REDIS_ADDR is unset.
func NewClient(cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	log.Info("redis lock enabled", zap.String("addr", cfg.RedisAddr))
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// Module wires the optional per-tenant locker.
var Module = fx.Module("lock",
	fx.Provide(NewClient),
	fx.Provide(NewLocker),
)
