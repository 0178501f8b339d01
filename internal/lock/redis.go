package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultRedisTTL   = 10 * time.Second
	defaultRedisRetry = 25 * time.Millisecond
)

// снимаем блокировку, только если она всё ещё наша
var redisUnlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker распределённая блокировка для нескольких экземпляров сервиса.
// TTL ограничивает время удержания, если процесс упал, не сняв блокировку.
type RedisLocker struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
	retry  time.Duration
	logger *zap.Logger
}

// NewRedisLocker создаёт блокировку поверх redis клиента
func NewRedisLocker(rdb redis.UniversalClient, prefix string, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}
	if prefix == "" {
		prefix = "lock"
	}
	return &RedisLocker{
		rdb:    rdb,
		prefix: prefix,
		ttl:    ttl,
		retry:  defaultRedisRetry,
		logger: logger,
	}
}

// Lock опрашивает redis, пока ключ не будет захвачен или контекст не истечёт
func (rl *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := rl.prefix + ":" + key
	token := uuid.NewString()

	ticker := time.NewTicker(rl.retry)
	defer ticker.Stop()

	for {
		ok, err := rl.rdb.SetNX(ctx, redisKey, token, rl.ttl).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("acquire lock %s: %w", redisKey, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// контекст запроса мог уже истечь, а блокировку снять нужно
			unlockCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			if err := redisUnlockScript.Run(unlockCtx, rl.rdb, []string{redisKey}, token).Err(); err != nil {
				rl.logger.Warn("Failed to release redis lock",
					zap.String("key", redisKey),
					zap.Error(err))
			}
		})
	}, nil
}
