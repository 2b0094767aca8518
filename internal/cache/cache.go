// Package cache stores rendered public feed pages. Entries are namespaced by
// a per-variant version counter, so invalidation is a single INCR and stale
// pages simply expire.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// FeedCache is the contract used by the search layer and the services.
// Callers read Version once before querying and pass it to Get and Set, so a
// page computed before an Invalidate is never stored under the newer version.
type FeedCache interface {
	// Version returns the current version of variant.
	Version(ctx context.Context, variant string) (int64, error)
	// Get loads the entry for key at version ver into dst. It reports false
	// on a miss.
	Get(ctx context.Context, variant string, ver int64, key string, dst any) (bool, error)
	// Set stores v under key for version ver of variant.
	Set(ctx context.Context, variant string, ver int64, key string, v any) error
	// Invalidate makes every cached page of variant unreachable.
	Invalidate(ctx context.Context, variant string) error
}

// Noop is used when no Redis address is configured.
type Noop struct{}

func (Noop) Version(context.Context, string) (int64, error) { return 0, nil }
func (Noop) Get(context.Context, string, int64, string, any) (bool, error) { return false, nil }
func (Noop) Set(context.Context, string, int64, string, any) error { return nil }
func (Noop) Invalidate(context.Context, string) error { return nil }

// Redis is a FeedCache backed by go-redis.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// RedisOptions configures NewRedis.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Prefix   string // key namespace, default "feed"
}

// NewRedis connects and pings the server.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	if opts.TTL <= 0 {
		opts.TTL = time.Minute
	}
	if opts.Prefix == "" {
		opts.Prefix = "feed"
	}
	return &Redis{client: client, ttl: opts.TTL, prefix: opts.Prefix}, nil
}

// Close releases the connection pool.
func (r *Redis) Close() error { return r.client.Close() }

func (r *Redis) versionKey(variant string) string {
	return r.prefix + ":ver:" + variant
}

// Version reads the version counter of variant; a missing counter is 0.
func (r *Redis) Version(ctx context.Context, variant string) (int64, error) {
	v, err := r.client.Get(ctx, r.versionKey(variant)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (r *Redis) entryKey(variant string, ver int64, key string) string {
	return r.prefix + ":" + variant + ":v" + strconv.FormatInt(ver, 10) + ":" + key
}

func (r *Redis) Get(ctx context.Context, variant string, ver int64, key string, dst any) (bool, error) {
	data, err := r.client.Get(ctx, r.entryKey(variant, ver, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Redis) Set(ctx context.Context, variant string, ver int64, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.entryKey(variant, ver, key), data, r.ttl).Err()
}

func (r *Redis) Invalidate(ctx context.Context, variant string) error {
	return r.client.Incr(ctx, r.versionKey(variant)).Err()
}
