package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/heirloom-backend/internal/platform/locks"
	"github.com/yungbote/heirloom-backend/internal/platform/logger"
)

func TestRedisLockerExclusive(t *testing.T) {
	if os.Getenv("REDIS_ADDR") == "" {
		t.Skip("set REDIS_ADDR to run redis locker tests")
	}
	rdb, err := NewClientFromEnv()
	require.NoError(t, err)
	defer rdb.Close()

	ctx := context.Background()
	l := NewLocker(rdb, logger.Nop(), "heirloom:test:"+uuid.NewString()+":", 5*time.Second)

	first, err := l.Acquire(ctx, []string{locks.PersonKey("a"), locks.PersonKey("b")}, 0)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, []string{locks.PersonKey("b")}, 20*time.Millisecond)
	require.True(t, errors.Is(err, locks.ErrNotAcquired), "want ErrNotAcquired, got %v", err)

	require.NoError(t, first.Release(ctx))

	second, err := l.Acquire(ctx, []string{locks.PersonKey("b")}, 0)
	require.NoError(t, err)
	require.NoError(t, second.Release(ctx))
}
