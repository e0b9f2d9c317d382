package cron

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pawmart/pawmart-backend/pkg/config"
)

// memLockStore is an in-process stand-in for the redis lock backend.
type memLockStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemLockStore() *memLockStore {
	return &memLockStore{values: make(map[string]string)}
}

func (s *memLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.values[key]; exists {
		return false, nil
	}
	s.values[key] = value.(string)
	return true, nil
}

func (s *memLockStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, exists := s.values[key]
	if !exists {
		return "", goredis.Nil
	}
	return value, nil
}

func (s *memLockStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func (s *memLockStore) LockKey(name string) string {
	return "lock:" + name
}

type countingJob struct {
	name string
	runs int
	err  error
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(context.Context) error {
	j.runs++
	return j.err
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&countingJob{name: "audit"}))

	err := registry.Register(&countingJob{name: "audit"})
	require.Error(t, err)
	assert.Len(t, registry.Jobs(), 1)
}

func TestRegistryRejectsEmptyName(t *testing.T) {
	registry := NewRegistry()
	require.Error(t, registry.Register(&countingJob{name: ""}))
	require.Error(t, registry.Register(nil))
}

func TestRunOnceExecutesAllJobs(t *testing.T) {
	registry := NewRegistry()
	first := &countingJob{name: "first"}
	second := &countingJob{name: "second", err: errors.New("boom")}
	require.NoError(t, registry.Register(first))
	require.NoError(t, registry.Register(second))

	lock, err := NewRedisLock(newMemLockStore(), nil)
	require.NoError(t, err)
	svc, err := NewService(registry, lock, config.CronConfig{}, nil, nil)
	require.NoError(t, err)

	svc.RunOnce(context.Background())
	assert.Equal(t, 1, first.runs)
	assert.Equal(t, 1, second.runs, "one job failing must not stop the others")

	// Locks were released, so a second cycle runs both again.
	svc.RunOnce(context.Background())
	assert.Equal(t, 2, first.runs)
	assert.Equal(t, 2, second.runs)
}

func TestRunOnceSkipsHeldLock(t *testing.T) {
	registry := NewRegistry()
	job := &countingJob{name: "held"}
	require.NoError(t, registry.Register(job))

	store := newMemLockStore()
	// Another replica holds the lock.
	_, err := store.SetNX(context.Background(), store.LockKey("held"), "other-replica", time.Minute)
	require.NoError(t, err)

	lock, err := NewRedisLock(store, nil)
	require.NoError(t, err)
	svc, err := NewService(registry, lock, config.CronConfig{}, nil, nil)
	require.NoError(t, err)

	svc.RunOnce(context.Background())
	assert.Equal(t, 0, job.runs)
}

func TestLockReleaseKeepsForeignToken(t *testing.T) {
	store := newMemLockStore()
	lock, err := NewRedisLock(store, nil)
	require.NoError(t, err)

	release, ok, err := lock.Acquire(context.Background(), "job", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// Simulate expiry plus takeover by another replica.
	key := store.LockKey("job")
	require.NoError(t, store.Del(context.Background(), key))
	_, err = store.SetNX(context.Background(), key, "other-token", time.Minute)
	require.NoError(t, err)

	release()

	value, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "other-token", value, "release must not drop another replica's lock")
}
