// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Consumers register hooks
// at startup to receive events about resolution phases, cache operations,
// and catalog lookups.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, DataDog, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetResolverHooks(&myResolverHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Resolver Hooks
// =============================================================================

// ResolverHooks receives events from the resolution pipeline.
type ResolverHooks interface {
	// OnResolveStart records the beginning of a resolution request.
	OnResolveStart(ctx context.Context, requestID string, serviceCount int)

	// OnPhase records completion of one resolution phase (merging,
	// expanding, detecting-cycles, ordering, validating-compatibility).
	OnPhase(ctx context.Context, requestID, phase string, duration time.Duration)

	// OnResolveComplete records the end of a resolution request.
	// err is nil for successful resolutions.
	OnResolveComplete(ctx context.Context, requestID string, ordered int, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// Catalog Hooks
// =============================================================================

// CatalogHooks receives events from catalog provider lookups.
type CatalogHooks interface {
	// OnLookup records a service lookup and whether it was found.
	OnLookup(ctx context.Context, serviceID string, found bool, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopResolverHooks is a no-op implementation of ResolverHooks.
type NoopResolverHooks struct{}

func (NoopResolverHooks) OnResolveStart(context.Context, string, int)                    {}
func (NoopResolverHooks) OnPhase(context.Context, string, string, time.Duration)         {}
func (NoopResolverHooks) OnResolveComplete(context.Context, string, int, time.Duration, error) {
}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopCatalogHooks is a no-op implementation of CatalogHooks.
type NoopCatalogHooks struct{}

func (NoopCatalogHooks) OnLookup(context.Context, string, bool, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	resolverHooks ResolverHooks = NoopResolverHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	catalogHooks  CatalogHooks  = NoopCatalogHooks{}
	hooksMu       sync.RWMutex
)

// SetResolverHooks registers custom resolver hooks.
// This should be called once at application startup before any resolutions.
func SetResolverHooks(h ResolverHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		resolverHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetCatalogHooks registers custom catalog hooks.
// This should be called once at application startup before any lookups.
func SetCatalogHooks(h CatalogHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		catalogHooks = h
	}
}

// Resolver returns the registered resolver hooks.
func Resolver() ResolverHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return resolverHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Catalog returns the registered catalog hooks.
func Catalog() CatalogHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return catalogHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	resolverHooks = NoopResolverHooks{}
	cacheHooks = NoopCacheHooks{}
	catalogHooks = NoopCatalogHooks{}
}
