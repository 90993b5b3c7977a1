package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/heirloom-backend/internal/platform/locks"
	"github.com/yungbote/heirloom-backend/internal/platform/logger"
)

// releaseScript deletes a key only while it still carries our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type lockerImpl struct {
	log    *logger.Logger
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewLocker returns a Redis-backed locks.Locker. Keys expire after ttl so a crashed
// holder cannot wedge a person forever.
func NewLocker(rdb goredis.UniversalClient, log *logger.Logger, prefix string, ttl time.Duration) locks.Locker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if prefix == "" {
		prefix = "heirloom:lock:"
	}
	return &lockerImpl{log: log.With("service", "RedisLocker"), rdb: rdb, prefix: prefix, ttl: ttl}
}

func (l *lockerImpl) Acquire(ctx context.Context, keys []string, wait time.Duration) (locks.Lease, error) {
	if l == nil || l.rdb == nil {
		return nil, fmt.Errorf("redis locker not initialized")
	}
	keys = locks.NormalizeKeys(keys)
	token := uuid.New().String()
	lease := &lease{owner: l, token: token}

	err := locks.RetryUntil(ctx, wait, func() (bool, error) {
		for _, k := range keys {
			ok, err := l.rdb.SetNX(ctx, l.prefix+k, token, l.ttl).Result()
			if err != nil {
				_ = lease.Release(ctx)
				return false, err
			}
			if !ok {
				_ = lease.Release(ctx)
				return false, nil
			}
			lease.keys = append(lease.keys, l.prefix+k)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return lease, nil
}

type lease struct {
	owner *lockerImpl
	token string
	keys  []string
}

func (s *lease) Release(ctx context.Context) error {
	var firstErr error
	for _, k := range s.keys {
		if err := releaseScript.Run(ctx, s.owner.rdb, []string{k}, s.token).Err(); err != nil && err != goredis.Nil {
			if firstErr == nil {
				firstErr = err
			}
			s.owner.log.Warn("lock release failed", "key", k, "error", err)
		}
	}
	s.keys = nil
	return firstErr
}
