package locking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-petr/movement-engine/internal/domain"
	"github.com/go-redis/redis/v8"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v8"
	"github.com/rs/zerolog"
)

// ErrLockNotHeld indicates that the lock expired before it was released.
var ErrLockNotHeld = errors.New("lock was not held or already expired")

// RedisOptions configures the distributed lock.
type RedisOptions struct {
	// Expiry bounds how long a crashed holder can keep the key.
	Expiry time.Duration
	// Tries is the number of acquisition attempts before reporting contention.
	Tries int
	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration
	// Prefix namespaces the redis keys.
	Prefix string
}

// DefaultRedisOptions returns options tuned for short balance critical sections.
func DefaultRedisOptions() RedisOptions {
	return RedisOptions{
		Expiry:     5 * time.Second,
		Tries:      20,
		RetryDelay: 50 * time.Millisecond,
		Prefix:     "lock:",
	}
}

// RedisLocker is a Locker shared by every process talking to the same redis.
type RedisLocker struct {
	rs   *redsync.Redsync
	opts RedisOptions
}

// NewRedisLocker returns a redsync based Locker.
func NewRedisLocker(client *redis.Client, opts RedisOptions) *RedisLocker {
	pool := goredis.NewPool(client)

	return &RedisLocker{
		rs:   redsync.New(pool),
		opts: opts,
	}
}

// Lock acquires key or fails with a ContentionError after the configured tries
// or once ctx is done.
func (l *RedisLocker) Lock(ctx context.Context, key string) (Unlocker, error) {
	mutex := l.rs.NewMutex(
		l.opts.Prefix+key,
		redsync.WithExpiry(l.opts.Expiry),
		redsync.WithTries(l.opts.Tries),
		redsync.WithRetryDelay(l.opts.RetryDelay),
	)

	if err := mutex.LockContext(ctx); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("lock_key", key).Msg("cannot acquire lock")
		return nil, &domain.ContentionError{Key: key}
	}

	return &redisHandle{mutex: mutex}, nil
}

type redisHandle struct {
	mutex *redsync.Mutex
}

func (h *redisHandle) Unlock(ctx context.Context) error {
	ok, err := h.mutex.UnlockContext(ctx)
	if err != nil {
		return fmt.Errorf("unlock %s: %w", h.mutex.Name(), err)
	}

	if !ok {
		return ErrLockNotHeld
	}

	return nil
}
