package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pragati08ps/design-approval-system/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still carries our token, so an
// expired lease taken over by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker shares keys across processes with SET NX PX leases.
type RedisLocker struct {
	client   redis.UniversalClient
	prefix   string
	timeout  time.Duration
	ttl      time.Duration
	interval time.Duration
}

func NewRedisLocker(client redis.UniversalClient, timeout, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{
		client:   client,
		prefix:   "design-approval:lock:",
		timeout:  timeout,
		ttl:      ttl,
		interval: 20 * time.Millisecond,
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (Release, error) {
	waitCtx, cancel := deadline(ctx, l.timeout)
	defer cancel()

	redisKey := l.prefix + key
	token := uuid.New().String()

	for {
		ok, err := l.client.SetNX(waitCtx, redisKey, token, l.ttl).Result()
		if err != nil && waitCtx.Err() == nil {
			return nil, err
		}
		if ok {
			break
		}

		select {
		case <-time.After(l.interval):
		case <-waitCtx.Done():
			return nil, waitErr(ctx)
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err(); err != nil {
				logger.Warn().Err(err).Str("key", redisKey).Msg("failed to release redis lock")
			}
		})
	}, nil
}

// NewRedisClient opens a client and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
