package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pawmart/pawmart-backend/pkg/logger"
)

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	LockKey(name string) string
}

// RedisLock serializes a named job across worker replicas. The lock value is
// unique per acquisition so release cannot drop a lock another replica took
// after ours expired.
type RedisLock struct {
	store lockStore
	logg  *logger.Logger
}

// NewRedisLock wires the distributed lock helper.
func NewRedisLock(store lockStore, logg *logger.Logger) (*RedisLock, error) {
	if store == nil {
		return nil, fmt.Errorf("lock store required")
	}
	return &RedisLock{store: store, logg: logg}, nil
}

// Acquire tries to take the named lock for ttl. It returns a release func on
// success and ok=false when another replica holds the lock.
func (l *RedisLock) Acquire(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error) {
	key := l.store.LockKey(name)
	token := uuid.NewString()

	taken, err := l.store.SetNX(ctx, key, token, ttl)
	if err != nil {
		return nil, false, fmt.Errorf("acquiring lock %s: %w", name, err)
	}
	if !taken {
		return nil, false, nil
	}

	release = func() {
		current, getErr := l.store.Get(context.Background(), key)
		if getErr != nil {
			if getErr != goredis.Nil && l.logg != nil {
				l.logg.Warn(context.Background(), "reading lock token during release failed")
			}
			return
		}
		if current != token {
			return
		}
		if delErr := l.store.Del(context.Background(), key); delErr != nil && l.logg != nil {
			l.logg.Warn(context.Background(), "releasing cron lock failed")
		}
	}
	return release, true, nil
}
