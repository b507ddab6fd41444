package lock

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const DefaultRedisPrefix = "naturedex:slot:"

// releaseScript deletes the key only while it still carries our token, so
// an expired lease that another process has since taken is left alone.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript pushes the expiry out while the key still carries our token.
var renewScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Redis leases slots with SET NX PX so several bot processes sharing one
// database also share slots. A held lease is renewed every third of its TTL,
// so the TTL only bounds how long a crashed holder keeps an owner locked out.
type Redis struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
	log    *slog.Logger
}

func NewRedis(ctx context.Context, addr string, ttl time.Duration, logger *slog.Logger) (*Redis, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisFromClient(rdb, ttl, logger), nil
}

func NewRedisFromClient(rdb *goredis.Client, ttl time.Duration, logger *slog.Logger) *Redis {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis{rdb: rdb, prefix: DefaultRedisPrefix, ttl: ttl, log: logger}
}

func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	redisKey := r.prefix + key
	ok, err := r.rdb.SetNX(ctx, redisKey, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis acquire: %w", err)
	}
	if !ok {
		return nil, ErrHeld
	}

	renewCtx, stopRenew := context.WithCancel(context.WithoutCancel(ctx))
	renewed := make(chan struct{})
	go func() {
		defer close(renewed)
		r.renew(renewCtx, redisKey, token)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			stopRenew()
			<-renewed
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, r.rdb, []string{redisKey}, token).Err(); err != nil {
				r.log.Warn("redis slot release failed, owner stays locked until the lease expires",
					"key", redisKey, "ttl", r.ttl.String(), "err", err)
			}
		})
	}, nil
}

// renew keeps the lease alive until ctx is cancelled or the lease is lost.
func (r *Redis) renew(ctx context.Context, key, token string) {
	ticker := time.NewTicker(max(r.ttl/3, time.Millisecond))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := renewScript.Run(ctx, r.rdb, []string{key}, token, r.ttl.Milliseconds()).Int()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				r.log.Warn("redis slot renewal failed", "key", key, "err", err)
				continue
			}
			if n == 0 {
				r.log.Warn("redis slot lease lost", "key", key)
				return
			}
		}
	}
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
