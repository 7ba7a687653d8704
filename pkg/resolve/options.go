// Package resolve implements the service dependency resolution engine.
//
// Given requested services and/or bundles, the resolver computes a
// validated, deterministic, conflict-free, dependency-complete injection
// plan: the ordered list of services the scaffolding layer must apply so
// every dependency precedes its dependents.
//
// The pipeline runs per request: merge bundles into one service set, expand
// it into a dependency graph against the catalog, detect cycles, order
// topologically, and validate compatibility. Completed resolutions are
// memoized in a shared cache keyed by the canonicalized request.
//
// # Usage
//
//	resolver := resolve.New(provider,
//	    resolve.WithBundleSource(provider),
//	    resolve.WithCache(cache.NewMemoryCache()),
//	)
//	result := resolver.Resolve(ctx, resolve.Request{
//	    Services: []catalog.Ref{catalog.MustParseRef("auth/clerk")},
//	    Options:  resolve.Options{Framework: "nextjs", IncludeOptional: true},
//	})
//	if !result.OK() {
//	    // inspect result.Errors
//	}
package resolve

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/launchforge/forgekit/pkg/catalog"
	"github.com/launchforge/forgekit/pkg/errors"
)

const (
	// DefaultTimeout bounds the whole expand → validate pipeline.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxDepth is the default dependency expansion depth.
	// Zero means unbounded; the visited set still guarantees termination.
	DefaultMaxDepth = 0
)

// MergeStrategy selects how same-type provider collisions are resolved
// when combining multiple bundles or requests.
type MergeStrategy string

const (
	// StrategyPreferNewer picks the candidate with the higher semantic
	// version; ties break by priority, then lexical provider name.
	StrategyPreferNewer MergeStrategy = "prefer-newer"

	// StrategyPreferCompatible picks the candidate matching the request's
	// framework/platform; among several compatible candidates it falls
	// back to prefer-newer.
	StrategyPreferCompatible MergeStrategy = "prefer-compatible"

	// StrategyManual requires an explicit type -> provider override for
	// every collision; unresolved types fail with AMBIGUOUS_SELECTION.
	StrategyManual MergeStrategy = "manual"
)

// ParseStrategy converts a string to a MergeStrategy.
func ParseStrategy(s string) (MergeStrategy, error) {
	switch MergeStrategy(s) {
	case StrategyPreferNewer, StrategyPreferCompatible, StrategyManual:
		return MergeStrategy(s), nil
	case "":
		return StrategyPreferNewer, nil
	default:
		return "", errors.New(errors.ErrCodeInvalidStrategy,
			"unknown merge strategy %q (must be one of: prefer-newer, prefer-compatible, manual)", s)
	}
}

// Options configures one resolution request.
type Options struct {
	// Framework and Platform describe the target project. When set, every
	// resolved service is checked against its supported lists.
	Framework string `json:"framework,omitempty"`
	Platform  string `json:"platform,omitempty"`

	// Environment names the deployment environment ("development",
	// "production"). It participates in cache keying and is passed through
	// to scorers; the core applies no environment-specific rules itself.
	Environment string `json:"environment,omitempty"`

	// IncludeOptional expands optional dependencies and includes bundles'
	// optional services.
	IncludeOptional bool `json:"include_optional,omitempty"`

	// MaxDepth bounds dependency expansion. Zero means unbounded.
	MaxDepth int `json:"max_depth,omitempty"`

	// Strategy resolves same-type provider collisions during merging.
	Strategy MergeStrategy `json:"strategy,omitempty"`

	// Overrides maps service types to providers for StrategyManual.
	Overrides map[catalog.ServiceType]string `json:"overrides,omitempty"`

	// Timeout bounds the whole pipeline. Zero means DefaultTimeout.
	// Not part of the cache key: it bounds work, not results.
	Timeout time.Duration `json:"-"`

	// Logger receives progress output. Defaults to a discard logger.
	Logger *log.Logger `json:"-"`
}

// WithDefaults returns a copy of Options with zero values replaced by
// defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.Strategy == "" {
		opts.Strategy = StrategyPreferNewer
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return opts
}

// Validate checks the options for consistency.
func (o Options) Validate() error {
	if _, err := ParseStrategy(string(o.Strategy)); err != nil {
		return err
	}
	if o.MaxDepth < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "max depth cannot be negative: %d", o.MaxDepth)
	}
	return nil
}

// Request is the normalized input to a resolution: ad-hoc service refs
// and/or bundle IDs, plus options.
type Request struct {
	// Services are ad-hoc requested services.
	Services []catalog.Ref `json:"services,omitempty"`

	// Bundles are IDs of bundles to merge into the request. Requires a
	// BundleSource on the resolver.
	Bundles []string `json:"bundles,omitempty"`

	// Options configure merging, expansion, and validation.
	Options Options `json:"options"`
}

// Validate checks the request's refs and options.
func (r Request) Validate() error {
	if len(r.Services) == 0 && len(r.Bundles) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "request names no services or bundles")
	}
	for _, ref := range r.Services {
		if err := ref.Validate(); err != nil {
			return err
		}
	}
	for _, id := range r.Bundles {
		if id == "" {
			return errors.New(errors.ErrCodeInvalidInput, "request names an empty bundle ID")
		}
	}
	return r.Options.Validate()
}
