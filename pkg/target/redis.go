package target

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"

	"membench/internal/harness"
)

// RedisTarget measures a Redis backend over a shared client. The client
// maintains its own connection pool, so operations are safe to call from
// many workers at once.
type RedisTarget struct {
	client    *redis.Client
	keyPrefix string
	seq       int64
}

// NewRedisTarget connects to the given Redis address and verifies the
// connection with a ping before returning.
func NewRedisTarget(ctx context.Context, addr, keyPrefix string) (*RedisTarget, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		PoolSize:     100,
		MinIdleConns: 10,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisTarget{
		client:    client,
		keyPrefix: keyPrefix,
	}, nil
}

// Close releases the underlying connection pool.
func (t *RedisTarget) Close() error {
	return t.client.Close()
}

// PingOp returns an operation that round-trips a PING.
func (t *RedisTarget) PingOp() harness.Operation {
	return func(ctx context.Context) error {
		return t.client.Ping(ctx).Err()
	}
}

// SetOp returns an operation that writes a fresh key on every call. Keys
// expire after an hour so repeated runs do not accumulate garbage.
func (t *RedisTarget) SetOp() harness.Operation {
	return func(ctx context.Context) error {
		n := atomic.AddInt64(&t.seq, 1)
		key := fmt.Sprintf("%s:key:%d", t.keyPrefix, n)
		value := fmt.Sprintf("value-%d", n)
		return t.client.Set(ctx, key, value, time.Hour).Err()
	}
}

// GetOp returns an operation that reads keys written by SetOp. A miss is
// not a failure; only transport errors count.
func (t *RedisTarget) GetOp() harness.Operation {
	return func(ctx context.Context) error {
		n := atomic.LoadInt64(&t.seq)
		if n == 0 {
			n = 1
		}
		key := fmt.Sprintf("%s:key:%d", t.keyPrefix, n)
		err := t.client.Get(ctx, key).Err()
		if err == redis.Nil {
			return nil
		}
		return err
	}
}
