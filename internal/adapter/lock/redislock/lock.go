// Package redislock implements domain.UserLocker with a single Redis key per lock.
package redislock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another holder is never released by us.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// Locker acquires advisory locks with SET NX PX.
type Locker struct {
	rdb     redis.UniversalClient
	ttl     time.Duration
	retry   time.Duration
	prefix  string
	release *redis.Script
}

// New returns a Locker whose locks expire after ttl.
func New(rdb redis.UniversalClient, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Locker{
		rdb:     rdb,
		ttl:     ttl,
		retry:   25 * time.Millisecond,
		prefix:  "lock:",
		release: redis.NewScript(releaseScript),
	}
}

// Lock blocks until key is acquired or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	k := l.prefix + key
	token := ulid.Make().String()
	for {
		ok, err := l.rdb.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("op=redislock.lock: %w", err)
		}
		if ok {
			return func() { l.unlock(k, token) }, nil
		}
		t := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, fmt.Errorf("op=redislock.lock: %w", ctx.Err())
		case <-t.C:
		}
	}
}

func (l *Locker) unlock(key, token string) {
	// The caller's ctx may already be cancelled; release must still run.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := l.release.Run(ctx, l.rdb, []string{key}, token).Err(); err != nil {
		slog.Warn("redis lock release failed; key expires by ttl", slog.String("key", key), slog.Any("error", err))
	}
}
