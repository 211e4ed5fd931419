package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotObtained is returned when another holder keeps the lock past the wait
var ErrLockNotObtained = errors.New("operación en curso, intente de nuevo")

// Lock is a held lock
type Lock interface {
	Release(ctx context.Context) error
}

// Locker hands out named locks
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

// RedisLocker coordinates several API instances through Redis
type RedisLocker struct {
	client *redislock.Client
	wait   time.Duration
}

// NewRedisLocker retries for up to wait before giving up
func NewRedisLocker(client *redis.Client, wait time.Duration) *RedisLocker {
	return &RedisLocker{client: redislock.New(client), wait: wait}
}

func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	backoff := 100 * time.Millisecond
	retries := int(l.wait / backoff)
	lock, err := l.client.Obtain(ctx, "lock:"+key, ttl, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(backoff), retries),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLockNotObtained
	}
	if err != nil {
		return nil, err
	}
	return lock, nil
}

// LocalLocker serializes callers within one process
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
	wait  time.Duration
}

func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{slots: make(map[string]chan struct{}), wait: wait}
}

func (l *LocalLocker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

func (l *LocalLocker) Obtain(ctx context.Context, key string, _ time.Duration) (Lock, error) {
	ch := l.slot(key)
	timer := time.NewTimer(l.wait)
	defer timer.Stop()
	select {
	case ch <- struct{}{}:
		return localLock{ch: ch}, nil
	case <-timer.C:
		return nil, ErrLockNotObtained
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type localLock struct {
	ch chan struct{}
}

func (l localLock) Release(context.Context) error {
	select {
	case <-l.ch:
	default:
	}
	return nil
}
