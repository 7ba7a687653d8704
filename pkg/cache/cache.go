// Package cache provides the resolution result cache.
//
// The resolver memoizes completed resolutions keyed by a stable hash of the
// canonicalized request (sorted service refs plus normalized options). The
// cache is the only mutable state shared between concurrent resolutions, so
// every implementation must be safe for concurrent Get/Set/Clear.
//
// Implementations:
//   - [Memory]: lock-protected in-process map with TTL expiry
//   - [Redis]: shared cache for hosted deployments (go-redis)
//   - [Null]: caching disabled
package cache

import (
	"context"
	"time"
)

// TTL values for cached resolution results.
const (
	// TTLResolution is how long a completed resolution stays valid.
	// Catalog updates invalidate earlier via Clear.
	TTLResolution = 1 * time.Hour
)

// Cache stores serialized resolution results.
//
// Get returns (data, true, nil) on a hit and (nil, false, nil) on a miss;
// errors are reserved for infrastructure failures. Set stores data with the
// given TTL (ttl <= 0 means no expiry). Clear removes entries whose keys
// match the glob pattern ("resolve:*"); an empty pattern clears everything.
// Clear returns the number of entries removed.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context, pattern string) (int, error)
	Close() error
}
