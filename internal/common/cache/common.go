package cache

import (
	"context"
	"time"
)

// NullCacheValue is a sentinel value to represent null/empty data in cache
// This prevents cache penetration by caching the absence of data
const NullCacheValue = "$NULL$"

// GetWithCached implements cache-aside pattern with null value caching.
// It tries to get data from cache first; on a miss it calls the fetch
// function and stores the result. Empty results are cached with emptyTTL
// so repeated lookups for missing data do not hit the backing store.
func GetWithCached[T any](
	ctx context.Context,
	cache Cache,
	key string,
	ttl time.Duration,
	emptyTTL time.Duration,
	isEmpty func(T) bool,
	marshal func(T) string,
	unmarshal func(string) (T, error),
	fn func(context.Context) (T, error),
) (T, bool, error) {
	var zero T

	if cached, err := cache.Get(ctx, key); err == nil && cached != "" {
		if cached == NullCacheValue {
			return zero, false, nil
		}
		if result, err := unmarshal(cached); err == nil {
			return result, true, nil
		}
	}

	data, err := fn(ctx)
	if err != nil {
		return zero, false, err
	}

	if isEmpty(data) {
		_ = cache.Set(ctx, key, NullCacheValue, emptyTTL)
		return zero, false, nil
	}

	_ = cache.Set(ctx, key, marshal(data), ttl)
	return data, true, nil
}
