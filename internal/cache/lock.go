package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/jason-s-yu/blackjack/internal/game"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// unlockScript deletes the key only while it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

const defaultRetryInterval = 25 * time.Millisecond

// RedisLocker is a game.Locker shared by every server instance using the same Redis.
// A held lock expires after ttl even if its holder dies.
type RedisLocker struct {
	rdb   *redis.Client
	ttl   time.Duration
	retry time.Duration
	clock quartz.Clock
	log   logrus.FieldLogger
}

var _ game.Locker = (*RedisLocker)(nil)

func NewRedisLocker(rdb *redis.Client, ttl time.Duration, log logrus.FieldLogger) *RedisLocker {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RedisLocker{
		rdb:   rdb,
		ttl:   ttl,
		retry: defaultRetryInterval,
		clock: quartz.NewReal(),
		log:   log,
	}
}

// Acquire polls SET NX until it wins or ctx ends. A context deadline maps to game.ErrLockTimeout.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		switch {
		case err == nil && ok:
			return l.releaser(key, token), nil
		case err != nil && ctx.Err() == nil:
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}

		t := l.clock.NewTimer(l.retry, "cache", "lock_retry")
		select {
		case <-ctx.Done():
			t.Stop()
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, game.ErrLockTimeout
			}
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

func (l *RedisLocker) releaser(key, token string) func() {
	var released bool
	return func() {
		if released {
			return
		}
		released = true
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := unlockScript.Run(ctx, l.rdb, []string{key}, token).Err(); err != nil {
			l.log.WithError(err).WithField("key", key).Warn("failed to release game lock")
		}
	}
}
