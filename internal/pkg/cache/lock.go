package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultLockTTL   = 30 * time.Second
	defaultLockRetry = 50 * time.Millisecond
	lockKeyPrefix    = "bizdesk:lock:"
)

// ErrLockTimeout is returned when a key stays locked until the context ends.
var ErrLockTimeout = errors.New("cache: lock wait timed out")

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// KeyLocker serializes work per key using SET NX PX with an owner token.
type KeyLocker struct {
	rdb   redis.UniversalClient
	ttl   time.Duration
	retry time.Duration
}

// NewKeyLocker returns a locker on rdb. ttl bounds how long a crashed holder blocks others.
func NewKeyLocker(rdb redis.UniversalClient, ttl time.Duration) *KeyLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &KeyLocker{rdb: rdb, ttl: ttl, retry: defaultLockRetry}
}

// Lock blocks until key is acquired or ctx is done. The returned func releases
// the lock only if this caller still owns it.
func (l *KeyLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := lockKeyPrefix + key
	token := uuid.NewString()

	for {
		ok, err := l.rdb.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				_ = unlockScript.Run(context.Background(), l.rdb, []string{redisKey}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ErrLockTimeout
		case <-time.After(l.retry):
		}
	}
}
