package resolve

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/launchforge/forgekit/pkg/catalog"
)

// Suggestion recommends one additional service compatible with an
// existing selection.
type Suggestion struct {
	Service *catalog.Service `json:"service"`

	// Reason explains why the service was suggested.
	Reason string `json:"reason"`

	// Score is the relevance in (0, 1]; higher is more relevant.
	Score float64 `json:"score"`

	// Optional reports whether the suggestion came from an optional
	// dependency declaration rather than a bundle.
	Optional bool `json:"optional"`
}

// Suggest recommends services that complement the current selection.
//
// Two signals feed the ranking: optional dependencies declared by the
// resolved services, and co-members of bundles that contain a resolved
// service. Suggestions never conflict with the selection, never duplicate
// a type the selection already covers, and always support the requested
// framework and platform. Results are sorted by score descending, then
// service ID ascending.
func (r *Resolver) Suggest(ctx context.Context, current []catalog.Ref, opts Options) ([]Suggestion, error) {
	opts = opts.WithDefaults()
	exp, err := r.expand(ctx, current, opts)
	if err != nil {
		return nil, err
	}

	selectedTypes := make(map[catalog.ServiceType]bool, len(exp.services))
	for _, svc := range exp.services {
		selectedTypes[svc.Type] = true
	}

	type signal struct {
		score    float64
		reason   string
		optional bool
	}
	signals := make(map[string][]signal)

	// Optional dependencies of the resolved set. A dependency wanted by
	// several services scores higher through signal accumulation below.
	for _, id := range slices.Sorted(maps.Keys(exp.services)) {
		svc := exp.services[id]
		for _, dep := range svc.Optional {
			if _, selected := exp.services[dep.ID()]; selected {
				continue
			}
			signals[dep.ID()] = append(signals[dep.ID()], signal{
				score:    0.5,
				reason:   fmt.Sprintf("optional dependency of %s", id),
				optional: true,
			})
		}
	}

	// Bundle co-members: services curated alongside something already
	// selected.
	if r.bundles != nil {
		bundles, err := r.bundles.ListBundles(ctx)
		if err == nil {
			for _, bundle := range bundles {
				members := append(slices.Clone(bundle.Required), bundle.Optional...)
				if !anySelected(members, exp.services) {
					continue
				}
				for _, ref := range members {
					if _, selected := exp.services[ref.ID()]; selected {
						continue
					}
					signals[ref.ID()] = append(signals[ref.ID()], signal{
						score:  0.35,
						reason: fmt.Sprintf("bundled with your selection in %s", bundle.ID),
					})
				}
			}
		}
	}

	var suggestions []Suggestion
	for _, id := range slices.Sorted(maps.Keys(signals)) {
		ref, err := catalog.ParseRef(id)
		if err != nil {
			continue
		}
		if selectedTypes[ref.Type] {
			continue
		}
		svc, err := r.provider.GetService(ctx, ref.Type, ref.Provider, "")
		if err != nil {
			continue
		}
		if !svc.SupportsFramework(opts.Framework) || !svc.SupportsPlatform(opts.Platform) {
			continue
		}
		if conflictsWithAny(svc, exp.services) {
			continue
		}

		score, reasons, optional := 0.0, []string{}, false
		for _, sig := range signals[id] {
			score += sig.score
			reasons = append(reasons, sig.reason)
			optional = optional || sig.optional
		}
		suggestions = append(suggestions, Suggestion{
			Service:  svc,
			Reason:   strings.Join(reasons, "; "),
			Score:    min(score, 1),
			Optional: optional,
		})
	}

	slices.SortFunc(suggestions, func(a, b Suggestion) int {
		if a.Score != b.Score {
			if a.Score > b.Score {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Service.ID(), b.Service.ID())
	})
	return suggestions, nil
}

func anySelected(refs []catalog.Ref, selected map[string]*catalog.Service) bool {
	for _, ref := range refs {
		if _, ok := selected[ref.ID()]; ok {
			return true
		}
	}
	return false
}

// conflictsWithAny reports whether candidate conflicts with any selected
// service, in either direction.
func conflictsWithAny(candidate *catalog.Service, selected map[string]*catalog.Service) bool {
	for _, svc := range selected {
		if conflicts(candidate, svc) || conflicts(svc, candidate) {
			return true
		}
	}
	return false
}
