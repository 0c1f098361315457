// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	xglog "github.com/ManuGH/m3uingest/internal/log"
	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces all record hashes.
const redisKeyPrefix = "m3uingest:playlist:"

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string // Redis server address (host:port)
	Password string // Redis password (optional)
	DB       int    // Redis database number
}

// redisBackend keeps each record in a hash with payload, source, created_at
// and size fields.
type redisBackend struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and returns a Store backed by it.
func NewRedisStore(config RedisConfig) (Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger := xglog.WithComponent("cache")
	logger.Info().
		Str("addr", config.Addr).
		Int("db", config.DB).
		Msg("connected to Redis cache")

	return newRecordStore(&redisBackend{client: client}), nil
}

func (b *redisBackend) name() string { return "redis" }

func (b *redisBackend) get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	val, err := b.client.HGet(ctx, redisKeyPrefix+key, "payload").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errNotFound
	}
	return val, err
}

func (b *redisBackend) put(ctx context.Context, m meta, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	key := redisKeyPrefix + m.Key
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"payload", payload,
			"source", m.Source,
			"created_at", m.CreatedAt.UTC().Format(time.RFC3339Nano),
			"size", m.Size,
		)
		return nil
	})
	return err
}

func (b *redisBackend) delete(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	n, err := b.client.Del(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (b *redisBackend) scan(ctx context.Context, fn func(meta) error) error {
	iter := b.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		full := iter.Val()
		vals, err := b.client.HMGet(ctx, full, "source", "created_at", "size").Result()
		if err != nil {
			return err
		}
		m := meta{Key: full[len(redisKeyPrefix):]}
		if s, ok := vals[0].(string); ok {
			m.Source = s
		}
		if s, ok := vals[1].(string); ok {
			// unparsable timestamps stay zero and age out on the next cleanup
			m.CreatedAt, _ = time.Parse(time.RFC3339Nano, s)
		}
		if s, ok := vals[2].(string); ok {
			m.Size, _ = strconv.ParseInt(s, 10, 64)
		}
		if err := fn(m); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (b *redisBackend) close() error { return b.client.Close() }

// HealthCheck pings the Redis server.
func (b *redisBackend) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return b.client.Ping(ctx).Err()
}
