package app

import (
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/heirloom-backend/internal/clients/redis"
	"github.com/yungbote/heirloom-backend/internal/platform/locks"
	"github.com/yungbote/heirloom-backend/internal/platform/logger"
)

type Clients struct {
	Redis  *goredis.Client
	Locker locks.Locker
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...", "lock_backend", cfg.LockBackend)

	if cfg.LockBackend != LockBackendRedis {
		return Clients{Locker: locks.NewMemoryLocker()}, nil
	}

	// Redis
	rdb, err := redis.NewClientFromEnv()
	if err != nil {
		return Clients{}, fmt.Errorf("init redis lock backend: %w", err)
	}
	return Clients{
		Redis:  rdb,
		Locker: redis.NewLocker(rdb, log, cfg.LockPrefix, cfg.LockTTL),
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
