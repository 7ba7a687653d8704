package resolve

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/launchforge/forgekit/pkg/cache"
	"github.com/launchforge/forgekit/pkg/catalog"
	"github.com/launchforge/forgekit/pkg/errors"
	"github.com/launchforge/forgekit/pkg/observability"
)

// Resolver is the public entry point of the resolution engine. It composes
// the bundle merger, graph builder, cycle detector, topological orderer,
// and compatibility checker into one request/response cycle, memoizes
// completed resolutions, and emits lifecycle events.
//
// A single Resolver safely serves many concurrent requests: the catalog
// provider is read-only, per-request graphs are never shared, and the
// cache is the only mutable shared state.
type Resolver struct {
	provider catalog.Provider
	bundles  catalog.BundleSource
	cache    cache.Cache
	logger   *log.Logger
	bus      *eventBus
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithBundleSource enables bundle requests.
func WithBundleSource(src catalog.BundleSource) Option {
	return func(r *Resolver) { r.bundles = src }
}

// WithCache sets the resolution cache. Defaults to a NullCache.
func WithCache(c cache.Cache) Option {
	return func(r *Resolver) {
		if c != nil {
			r.cache = c
		}
	}
}

// WithLogger sets the resolver's logger. Defaults to a discard logger.
func WithLogger(logger *log.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a resolver reading from the given catalog provider.
func New(provider catalog.Provider, opts ...Option) *Resolver {
	r := &Resolver{
		provider: provider,
		cache:    cache.NewNullCache(),
		logger:   log.NewWithOptions(io.Discard, log.Options{}),
		bus:      newEventBus(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe registers a callback for a lifecycle event and returns an
// unsubscribe function. Callbacks run synchronously on the resolving
// goroutine.
func (r *Resolver) Subscribe(event Event, fn Callback) func() {
	return r.bus.subscribe(event, fn)
}

// Resolve runs the full resolution pipeline for the request.
//
// Resolve always returns a non-nil result: expected failure modes (missing
// dependencies, critical cycles, conflicts, ambiguous selections,
// timeouts) populate Result.Errors rather than escaping as panics or Go
// errors. Non-fatal findings populate Result.Warnings.
func (r *Resolver) Resolve(ctx context.Context, req Request) *Result {
	start := time.Now()
	result := &Result{RequestID: uuid.NewString(), State: StatePending}
	opts := req.Options.WithDefaults()

	r.bus.publish(EventPayload{
		Event:     EventResolutionStarted,
		RequestID: result.RequestID,
		Request:   &req,
	})
	observability.Resolver().OnResolveStart(ctx, result.RequestID, len(req.Services)+len(req.Bundles))

	if err := req.Validate(); err != nil {
		result.Errors = append(result.Errors, issueForError(err))
		return r.finish(ctx, &req, result, start)
	}

	key := resolutionKey(req, opts)
	if cached := r.lookupCached(ctx, key); cached != nil {
		cached.RequestID = result.RequestID
		cached.CacheHit = true
		observability.Cache().OnCacheHit(ctx, "resolution")
		return r.finish(ctx, &req, cached, start)
	}
	observability.Cache().OnCacheMiss(ctx, "resolution")

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	r.pipeline(ctx, req, opts, result)
	result.Duration = time.Since(start)

	if result.OK() {
		result.State = StateSucceeded
		r.store(ctx, key, result)
	} else {
		result.State = StateFailed
	}
	return r.finish(ctx, &req, result, start)
}

// pipeline runs the state machine phases. Cancellation is cooperative:
// the context is checked at each phase boundary, never mid-algorithm, so a
// started topological sort always completes but the next phase will not
// begin.
func (r *Resolver) pipeline(ctx context.Context, req Request, opts Options, result *Result) {
	defer func() {
		if p := recover(); p != nil {
			// Expected failures never panic; this guards the guarantee
			// that Resolve always returns a result object.
			result.Errors = append(result.Errors, Issue{
				Code:     errors.ErrCodeInternal,
				Severity: SeverityCritical,
				Message:  fmt.Sprintf("unexpected failure: %v", p),
			})
		}
	}()

	phaseStart := time.Now()
	phase := func(next State) bool {
		observability.Resolver().OnPhase(ctx, result.RequestID, string(result.State), time.Since(phaseStart))
		phaseStart = time.Now()
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, timeoutIssue(err, result.State))
			return false
		}
		result.State = next
		return true
	}

	// Merging
	if !phase(StateMerging) {
		return
	}
	requested, mergeWarnings, err := r.merge(ctx, req, opts)
	if err != nil {
		result.Errors = append(result.Errors, abortIssue(ctx, err, result.State))
		return
	}
	result.Warnings = append(result.Warnings, mergeWarnings...)
	result.requested = requested
	r.logger.Debug("merged request", "services", len(requested), "strategy", opts.Strategy)

	// Expanding
	if !phase(StateExpanding) {
		return
	}
	exp, err := r.expand(ctx, requested, opts)
	if err != nil {
		result.Errors = append(result.Errors, abortIssue(ctx, err, result.State))
		return
	}
	result.graph = exp.graph
	r.logger.Debug("expanded graph", "nodes", exp.graph.NodeCount(), "edges", exp.graph.EdgeCount())

	// Detecting cycles
	if !phase(StateDetecting) {
		return
	}
	cycleErrs, cycleWarns := cycleIssues(analyzeCycles(exp.graph))
	result.Warnings = append(result.Warnings, cycleWarns...)
	if len(cycleErrs) > 0 {
		result.Errors = append(result.Errors, cycleErrs...)
		return
	}

	// Ordering
	if !phase(StateOrdering) {
		return
	}
	order, err := exp.graph.TopoSort()
	if err != nil {
		result.Errors = append(result.Errors, issueForError(err))
		return
	}

	// Validating compatibility
	if !phase(StateValidating) {
		return
	}
	compatErrs, compatWarns := checkCompatibility(exp.services, opts)
	result.Warnings = append(result.Warnings, compatWarns...)
	if len(compatErrs) > 0 {
		result.Errors = append(result.Errors, compatErrs...)
		return
	}

	result.Ordered = make([]*catalog.Service, len(order))
	for i, id := range order {
		result.Ordered[i] = exp.services[id]
	}
}

// finish emits terminal events and returns the result.
func (r *Resolver) finish(ctx context.Context, req *Request, result *Result, start time.Time) *Result {
	if result.Duration == 0 {
		result.Duration = time.Since(start)
	}
	elapsed := time.Since(start)

	event := EventResolutionCompleted
	var err error
	if !result.OK() {
		event = EventResolutionFailed
		err = errors.New(result.Errors[0].Code, "%s", result.Errors[0].Message)
	}
	observability.Resolver().OnResolveComplete(ctx, result.RequestID, len(result.Ordered), elapsed, err)
	r.bus.publish(EventPayload{
		Event:     event,
		RequestID: result.RequestID,
		Request:   req,
		Result:    result,
		Duration:  elapsed,
	})
	return result
}

// lookupCached fetches and decodes a cached resolution. Corrupt entries
// are evicted and treated as misses; corruption never surfaces to the
// caller.
func (r *Resolver) lookupCached(ctx context.Context, key string) *Result {
	data, hit, err := r.cache.Get(ctx, key)
	if err != nil || !hit {
		return nil
	}
	result, err := unmarshalResult(data)
	if err != nil {
		r.logger.Warn("evicting corrupt cache entry", "key", key, "err", err)
		_ = r.cache.Delete(ctx, key)
		return nil
	}
	return result
}

// store caches a successful resolution. Failed and timed-out resolutions
// are never cached.
func (r *Resolver) store(ctx context.Context, key string, result *Result) {
	data, err := marshalResult(result)
	if err != nil {
		r.logger.Warn("cannot serialize resolution for cache", "err", err)
		return
	}
	if err := r.cache.Set(ctx, key, data, cache.TTLResolution); err != nil {
		r.logger.Warn("cache write failed", "key", key, "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, "resolution", len(data))
}

// ClearCache invalidates cached resolutions. An empty pattern clears every
// resolution entry; a glob pattern selects a subset. Call this when the
// catalog provider signals an update.
func (r *Resolver) ClearCache(ctx context.Context, pattern string) (int, error) {
	if pattern == "" {
		pattern = "resolve:*"
	}
	return r.cache.Clear(ctx, pattern)
}

// InjectionOrder resolves the services and returns only the ordered IDs.
// It fails with the first resolution error if the combination is invalid.
func (r *Resolver) InjectionOrder(ctx context.Context, services []catalog.Ref, opts Options) ([]string, error) {
	result := r.Resolve(ctx, Request{Services: services, Options: opts})
	if !result.OK() {
		first := result.Errors[0]
		return nil, errors.New(first.Code, "%s", first.Message)
	}
	return result.OrderedIDs(), nil
}

// DetectCycles expands the services and reports every circular dependency
// without failing on critical ones. Soft cycles are reported as broken,
// exactly as Resolve would treat them.
func (r *Resolver) DetectCycles(ctx context.Context, services []catalog.Ref, opts Options) ([]CycleReport, error) {
	opts = opts.WithDefaults()
	exp, err := r.expand(ctx, services, opts)
	if err != nil {
		return nil, err
	}
	return analyzeCycles(exp.graph), nil
}

// Validation is the outcome of ValidateCombination.
type Validation struct {
	Valid       bool         `json:"valid"`
	Errors      []Issue      `json:"errors,omitempty"`
	Warnings    []Issue      `json:"warnings,omitempty"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
}

// ValidateCombination checks whether the services form a valid,
// conflict-free, dependency-complete selection without committing to a
// resolution. Suggestions list compatible additions.
func (r *Resolver) ValidateCombination(ctx context.Context, services []catalog.Ref, opts Options) (*Validation, error) {
	result := r.Resolve(ctx, Request{Services: services, Options: opts})
	v := &Validation{
		Valid:    result.OK(),
		Errors:   result.Errors,
		Warnings: result.Warnings,
	}
	if v.Valid {
		suggestions, err := r.Suggest(ctx, services, opts)
		if err == nil {
			v.Suggestions = suggestions
		}
	}
	return v, nil
}

// abortIssue classifies an error surfaced by a pipeline phase. A dead
// request context takes precedence over whatever error the phase bubbled
// up: the catalog provider is the pipeline's suspension point, and a
// deadline expiring mid-expansion must report as a timeout, not as the
// provider's raw error.
func abortIssue(ctx context.Context, err error, phase State) Issue {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return timeoutIssue(ctxErr, phase)
	}
	return issueForError(err)
}

// timeoutIssue converts a context error at a phase boundary into an issue.
func timeoutIssue(err error, phase State) Issue {
	code := errors.ErrCodeCanceled
	if err == context.DeadlineExceeded {
		code = errors.ErrCodeTimeout
	}
	return Issue{
		Code:     code,
		Severity: SeverityCritical,
		Message:  fmt.Sprintf("resolution aborted during %s: %v", phase, err),
	}
}

// resolutionKey builds the canonical cache key: sorted requested refs,
// sorted bundle IDs, and the normalized options. Two requests that differ
// only in argument order share a key.
func resolutionKey(req Request, opts Options) string {
	refs := make([]string, len(req.Services))
	for i, ref := range req.Services {
		refs[i] = ref.String()
	}
	slices.Sort(refs)

	bundles := slices.Clone(req.Bundles)
	slices.Sort(bundles)

	type overridePair struct {
		Type     catalog.ServiceType `json:"type"`
		Provider string              `json:"provider"`
	}
	overrides := make([]overridePair, 0, len(opts.Overrides))
	for typ, provider := range opts.Overrides {
		overrides = append(overrides, overridePair{Type: typ, Provider: provider})
	}
	slices.SortFunc(overrides, func(a, b overridePair) int {
		if a.Type != b.Type {
			if a.Type < b.Type {
				return -1
			}
			return 1
		}
		return 0
	})

	normalized := struct {
		Framework       string         `json:"framework"`
		Platform        string         `json:"platform"`
		Environment     string         `json:"environment"`
		IncludeOptional bool           `json:"include_optional"`
		MaxDepth        int            `json:"max_depth"`
		Strategy        MergeStrategy  `json:"strategy"`
		Overrides       []overridePair `json:"overrides"`
	}{
		Framework:       opts.Framework,
		Platform:        opts.Platform,
		Environment:     opts.Environment,
		IncludeOptional: opts.IncludeOptional,
		MaxDepth:        opts.MaxDepth,
		Strategy:        opts.Strategy,
		Overrides:       overrides,
	}

	return cache.Key("resolve", refs, bundles, normalized)
}
