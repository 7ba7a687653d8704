package resolve

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/launchforge/forgekit/pkg/catalog"
	"github.com/launchforge/forgekit/pkg/errors"
)

// candidate is one requested service plus where the request came from.
type candidate struct {
	ref    catalog.Ref
	origin string // "request" or "bundle:<id>"
}

// merge combines ad-hoc refs and bundle contents into a single
// deduplicated requested set, resolving same-type provider collisions via
// the configured strategy.
//
// The output is sorted by service ID and depends only on the input set and
// strategy, never on bundle argument order or map iteration order.
func (r *Resolver) merge(ctx context.Context, req Request, opts Options) ([]catalog.Ref, []Issue, error) {
	candidates, err := r.gather(ctx, req, opts)
	if err != nil {
		return nil, nil, err
	}

	// Group by type, combining duplicate IDs. Distinct constraints on the
	// same service are ANDed (comma syntax).
	byType := make(map[catalog.ServiceType][]candidate)
	for _, c := range candidates {
		group := byType[c.ref.Type]
		merged := false
		for i, existing := range group {
			if existing.ref.ID() != c.ref.ID() {
				continue
			}
			group[i].ref.Constraint = combineConstraints(existing.ref.Constraint, c.ref.Constraint)
			merged = true
			break
		}
		if !merged {
			group = append(group, c)
		}
		byType[c.ref.Type] = group
	}

	var (
		selected []catalog.Ref
		warnings []Issue
	)
	for _, typ := range slices.Sorted(maps.Keys(byType)) {
		group := byType[typ]
		slices.SortFunc(group, func(a, b candidate) int {
			return strings.Compare(a.ref.Provider, b.ref.Provider)
		})

		if len(group) == 1 {
			selected = append(selected, group[0].ref)
			continue
		}

		winner, collisionWarnings, err := r.resolveCollision(ctx, typ, group, opts)
		if err != nil {
			return nil, nil, err
		}
		selected = append(selected, winner)
		warnings = append(warnings, collisionWarnings...)
	}

	slices.SortFunc(selected, func(a, b catalog.Ref) int {
		return strings.Compare(a.ID(), b.ID())
	})
	return selected, warnings, nil
}

// gather flattens the request and its bundles into candidates.
func (r *Resolver) gather(ctx context.Context, req Request, opts Options) ([]candidate, error) {
	var candidates []candidate
	for _, ref := range req.Services {
		candidates = append(candidates, candidate{ref: ref, origin: "request"})
	}

	if len(req.Bundles) > 0 && r.bundles == nil {
		return nil, errors.New(errors.ErrCodeBundleNotFound,
			"request names bundles but the resolver has no bundle source")
	}
	for _, id := range req.Bundles {
		bundle, err := r.bundles.GetBundle(ctx, id)
		if err != nil {
			return nil, err
		}
		origin := "bundle:" + bundle.ID
		for _, ref := range bundle.Required {
			candidates = append(candidates, candidate{ref: ref, origin: origin})
		}
		if opts.IncludeOptional {
			for _, ref := range bundle.Optional {
				candidates = append(candidates, candidate{ref: ref, origin: origin})
			}
		}
	}
	return candidates, nil
}

// resolveCollision picks one provider for a type with several candidates.
func (r *Resolver) resolveCollision(ctx context.Context, typ catalog.ServiceType, group []candidate, opts Options) (catalog.Ref, []Issue, error) {
	switch opts.Strategy {
	case StrategyManual:
		provider, ok := opts.Overrides[typ]
		if !ok {
			return catalog.Ref{}, nil, errors.New(errors.ErrCodeAmbiguousSelection,
				"type %s has %d candidates (%s) and no manual override", typ, len(group), providerList(group))
		}
		for _, c := range group {
			if c.ref.Provider == provider {
				return c.ref, nil, nil
			}
		}
		return catalog.Ref{}, nil, errors.New(errors.ErrCodeAmbiguousSelection,
			"manual override %s=%s matches no candidate (%s)", typ, provider, providerList(group))

	case StrategyPreferCompatible:
		compatible := make([]candidate, 0, len(group))
		for _, c := range group {
			svc, err := r.fetch(ctx, c.ref)
			if err != nil {
				return catalog.Ref{}, nil, err
			}
			if svc.SupportsFramework(opts.Framework) && svc.SupportsPlatform(opts.Platform) {
				compatible = append(compatible, c)
			}
		}
		pool := compatible
		var warnings []Issue
		if len(compatible) == 0 {
			// Nothing matches the target; fall back to prefer-newer over
			// the full group and let the compatibility checker warn.
			pool = group
		}
		winner, newerWarnings, err := r.preferNewer(ctx, typ, pool)
		if err != nil {
			return catalog.Ref{}, nil, err
		}
		warnings = append(warnings, newerWarnings...)
		return winner, warnings, nil

	default: // StrategyPreferNewer
		return r.preferNewer(ctx, typ, group)
	}
}

// preferNewer picks the candidate with the highest semantic version,
// breaking ties by priority then lexical provider name.
func (r *Resolver) preferNewer(ctx context.Context, typ catalog.ServiceType, group []candidate) (catalog.Ref, []Issue, error) {
	type scored struct {
		candidate
		svc     *catalog.Service
		version *semver.Version
	}

	pool := make([]scored, 0, len(group))
	for _, c := range group {
		svc, err := r.fetch(ctx, c.ref)
		if err != nil {
			return catalog.Ref{}, nil, err
		}
		version, err := svc.SemVer()
		if err != nil {
			return catalog.Ref{}, nil, err
		}
		pool = append(pool, scored{candidate: c, svc: svc, version: version})
	}

	best := pool[0]
	for _, c := range pool[1:] {
		switch cmp := c.version.Compare(best.version); {
		case cmp > 0:
			best = c
		case cmp == 0 && c.svc.Priority > best.svc.Priority:
			best = c
		case cmp == 0 && c.svc.Priority == best.svc.Priority && c.ref.Provider < best.ref.Provider:
			best = c
		}
	}

	var warnings []Issue
	for _, c := range pool {
		if c.ref.ID() == best.ref.ID() {
			continue
		}
		warnings = append(warnings, Issue{
			Code:     errors.ErrCodeConflict,
			Severity: SeverityWarning,
			Message: fmt.Sprintf("%s: selected %s@%s over %s@%s (%s)",
				typ, best.ref.Provider, best.svc.Version, c.ref.Provider, c.svc.Version, c.origin),
			Services: []string{best.ref.ID(), c.ref.ID()},
		})
	}
	return best.ref, warnings, nil
}

// fetch looks up a requested candidate. A miss is a MISSING_DEPENDENCY:
// the caller explicitly asked for this service.
func (r *Resolver) fetch(ctx context.Context, ref catalog.Ref) (*catalog.Service, error) {
	svc, err := r.provider.GetService(ctx, ref.Type, ref.Provider, ref.Constraint)
	if err != nil {
		if errors.Is(err, errors.ErrCodeServiceNotFound) {
			return nil, errors.Wrap(errors.ErrCodeMissingDependency, err, "requested service %s", ref)
		}
		return nil, err
	}
	return svc, nil
}

func combineConstraints(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" || a == b {
		return a
	}
	// Masterminds treats comma as AND.
	return a + ", " + b
}

func providerList(group []candidate) string {
	providers := make([]string, len(group))
	for i, c := range group {
		providers[i] = c.ref.Provider
	}
	return strings.Join(providers, ", ")
}
