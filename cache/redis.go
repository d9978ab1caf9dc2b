package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const opTimeout = 2 * time.Second

// Redis is a Store backed by a shared Redis instance. Failures degrade to
// cache misses rather than surfacing to callers.
type Redis struct {
	client *redis.Client
	log    *zap.SugaredLogger
}

// NewRedis wraps an already-configured client.
func NewRedis(client *redis.Client, log *zap.SugaredLogger) *Redis {
	return &Redis{client: client, log: log}
}

func (r *Redis) GetBytes(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	b, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil && r.log != nil {
			r.log.Warnf("cache get failed key=%s err=%v", key, err)
		}
		return nil, false
	}
	return b, true
}

func (r *Redis) SetBytes(key string, b []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := r.client.Set(ctx, key, b, ttl).Err(); err != nil && r.log != nil {
		r.log.Warnf("cache set failed key=%s err=%v", key, err)
	}
}

func (r *Redis) Delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := r.client.Del(ctx, key).Err(); err != nil && r.log != nil {
		r.log.Warnf("cache del failed key=%s err=%v", key, err)
	}
}

// Clear deletes keys under a prefix using SCAN, bounded to a few rounds so a
// huge keyspace cannot stall the caller.
func (r *Redis) Clear(prefix string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	var cursor uint64
	for i := 0; i < 10; i++ {
		keys, next, err := r.client.Scan(ctx, cursor, prefix+"*", 1000).Result()
		if err != nil {
			return
		}
		cursor = next
		if len(keys) > 0 {
			pipe := r.client.Pipeline()
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			_, _ = pipe.Exec(ctx)
		}
		if cursor == 0 {
			return
		}
	}
}
