package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisClient is the subset of *redis.Client used by Redis.
type RedisClient interface {
	Ping(ctx context.Context) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// Redis is a store shared between instances.
type Redis struct {
	client RedisClient
	logger *logrus.Logger
}

// NewRedis connects to the Redis server at addr.
func NewRedis(ctx context.Context, addr, password string, db int, logger *logrus.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.WithField("addr", addr).Info("Connected to Redis")
	return &Redis{client: client, logger: logger}, nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client RedisClient, logger *logrus.Logger) *Redis {
	return &Redis{client: client, logger: logger}
}

// Seen uses SETNX so that concurrent instances agree on the first sighting.
func (r *Redis) Seen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	set, err := r.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup %s: %w", key, err)
	}
	return !set, nil
}

// AddFragment stores value in the hash at key and returns the whole hash.
func (r *Redis) AddFragment(ctx context.Context, key string, num int, value string, ttl time.Duration) (map[int]string, error) {
	if err := r.client.HSet(ctx, key, strconv.Itoa(num), value).Err(); err != nil {
		return nil, fmt.Errorf("store fragment %s/%d: %w", key, num, err)
	}
	if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
		return nil, fmt.Errorf("expire %s: %w", key, err)
	}

	raw, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("load fragments %s: %w", key, err)
	}

	parts := make(map[int]string, len(raw))
	for field, v := range raw {
		n, err := strconv.Atoi(field)
		if err != nil {
			r.logger.WithField("key", key).WithField("field", field).Warn("Ignoring non-numeric fragment field")
			continue
		}
		parts[n] = v
	}
	return parts, nil
}

// Delete removes key.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Close closes the connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
