package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"

	"ewaste-backend/internal/config"
	"ewaste-backend/internal/metrics"
)

// Read cache keys. Both are dropped whenever the request changes status.
const (
	RequestKeyFmt = "request:%d"
	HistoryKeyFmt = "request:%d:history"
)

const localSize = 1024

var (
	client *redis.Client
	ttl    = time.Minute
	// local serves single-node deployments that run without Redis.
	local = expirable.NewLRU[string, []byte](localSize, nil, ttl)
)

// Init connects to Redis when enabled. On failure the package keeps working
// on the in-process cache.
func Init(cfg *config.Config) error {
	if cfg.Redis.TTLSeconds > 0 {
		ttl = time.Duration(cfg.Redis.TTLSeconds) * time.Second
		local = expirable.NewLRU[string, []byte](localSize, nil, ttl)
	}
	if !cfg.Redis.Enabled {
		log.Printf("[Redis] Disabled, using in-process cache")
		return nil
	}

	c := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		c.Close()
		return fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
	}
	client = c
	log.Printf("[Redis] Connected to %s", cfg.Redis.Addr)
	return nil
}

// GetClient returns the Redis client, nil when running on the local cache.
func GetClient() *redis.Client {
	return client
}

func Close() {
	if client != nil {
		client.Close()
		client = nil
	}
}

func get(ctx context.Context, key string) ([]byte, bool) {
	if client == nil {
		data, ok := local.Get(key)
		record(ok, nil)
		return data, ok
	}
	data, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		record(false, nil)
		return nil, false
	}
	if err != nil {
		record(false, err)
		return nil, false
	}
	record(true, nil)
	return data, true
}

func set(ctx context.Context, key string, data []byte) {
	if client == nil {
		local.Add(key, data)
		return
	}
	if err := client.Set(ctx, key, data, ttl).Err(); err != nil {
		log.Printf("[Redis] set %s: %v", key, err)
	}
}

func del(ctx context.Context, keys ...string) {
	if client == nil {
		for _, k := range keys {
			local.Remove(k)
		}
		return
	}
	if err := client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("[Redis] del %v: %v", keys, err)
	}
}

func record(hit bool, err error) {
	switch {
	case err != nil:
		metrics.CacheResults.WithLabelValues("error").Inc()
	case hit:
		metrics.CacheResults.WithLabelValues("hit").Inc()
	default:
		metrics.CacheResults.WithLabelValues("miss").Inc()
	}
}

// GetCachedRequest returns the cached JSON of a request if available
func GetCachedRequest(ctx context.Context, id int) ([]byte, bool) {
	return get(ctx, fmt.Sprintf(RequestKeyFmt, id))
}

func CacheRequest(ctx context.Context, id int, data []byte) {
	set(ctx, fmt.Sprintf(RequestKeyFmt, id), data)
}

// GetCachedHistory returns the cached JSON of a request's history if available
func GetCachedHistory(ctx context.Context, id int) ([]byte, bool) {
	return get(ctx, fmt.Sprintf(HistoryKeyFmt, id))
}

func CacheHistory(ctx context.Context, id int, data []byte) {
	set(ctx, fmt.Sprintf(HistoryKeyFmt, id), data)
}

// InvalidateRequest drops the cached request and history.
func InvalidateRequest(ctx context.Context, id int) {
	del(ctx, fmt.Sprintf(RequestKeyFmt, id), fmt.Sprintf(HistoryKeyFmt, id))
}

// Flush drops every cached request and history entry. Used after a database
// reset so no entry outlives the rows it mirrors.
func Flush(ctx context.Context) error {
	if client == nil {
		local.Purge()
		return nil
	}
	iter := client.Scan(ctx, 0, "request:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return client.Del(ctx, keys...).Err()
}
