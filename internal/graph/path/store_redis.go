// Copyright (c) 2026 Costar. All rights reserved.

package path

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/moviegraph/costar/internal/platform/constants"
)

// Cache stores computed shortest paths keyed by canonical pair.
type Cache interface {
	/*
		Get returns the cached path for a canonical pair.

		Parameters:
		  - context: context.Context
		  - personLow, personHigh: int64 (canonical ordering)

		Returns:
		  - *CacheEntry: Stored path, nil on a miss
		  - error: Connectivity or decoding failures
	*/
	Get(context context.Context, personLow, personHigh int64) (*CacheEntry, error)

	/*
		Set stores a computed path under the canonical pair key.

		Parameters:
		  - context: context.Context
		  - personLow, personHigh: int64 (canonical ordering)
		  - entry: *CacheEntry

		Returns:
		  - error: Encoding or write failures
	*/
	Set(context context.Context, personLow, personHigh int64, entry *CacheEntry) error
}

// RedisCache implements [Cache] on Redis with a fixed TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed path cache. Entries expire ttl after
// they are written.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// key builds the cache key for a canonical pair.
func (cache *RedisCache) key(personLow, personHigh int64) string {
	return constants.RedisPrefixPath + strconv.FormatInt(personLow, 10) + ":" + strconv.FormatInt(personHigh, 10)
}

// Get returns the cached path for a canonical pair, nil on a miss.
func (cache *RedisCache) Get(context context.Context, personLow, personHigh int64) (*CacheEntry, error) {

	// Fetch the raw payload
	payload, err := cache.client.Get(context, cache.key(personLow, personHigh)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("path_cache_get_failed: %w", err)
	}

	// Decode the stored entry
	var entry CacheEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, fmt.Errorf("path_cache_decode_failed: %w", err)
	}
	return &entry, nil
}

// Set stores a computed path under the canonical pair key.
func (cache *RedisCache) Set(context context.Context, personLow, personHigh int64, entry *CacheEntry) error {

	// Encode the entry
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("path_cache_encode_failed: %w", err)
	}

	// Write with TTL
	if err := cache.client.Set(context, cache.key(personLow, personHigh), payload, cache.ttl).Err(); err != nil {
		return fmt.Errorf("path_cache_set_failed: %w", err)
	}
	return nil
}
