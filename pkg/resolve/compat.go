package resolve

import (
	"fmt"
	"maps"
	"slices"

	"github.com/launchforge/forgekit/pkg/catalog"
	"github.com/launchforge/forgekit/pkg/errors"
)

// checkCompatibility validates the finished node set against the request's
// target and against explicit conflict declarations.
//
// Framework/platform mismatches are warnings: the scaffolding layer may
// still proceed with manual wiring. Declared conflicts are errors: two
// services that name each other in ConflictsWith can never be injected
// together.
//
// The checks only read the resolved service set, so the orchestrator may
// run them adjacent to ordering.
func checkCompatibility(services map[string]*catalog.Service, opts Options) (errs, warns []Issue) {
	ids := slices.Sorted(maps.Keys(services))

	for _, id := range ids {
		svc := services[id]
		if opts.Framework != "" && !svc.SupportsFramework(opts.Framework) {
			warns = append(warns, Issue{
				Code:     errors.ErrCodeIncompatible,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("%s does not support framework %q", id, opts.Framework),
				Services: []string{id},
			})
		}
		if opts.Platform != "" && !svc.SupportsPlatform(opts.Platform) {
			warns = append(warns, Issue{
				Code:     errors.ErrCodeIncompatible,
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("%s does not support platform %q", id, opts.Platform),
				Services: []string{id},
			})
		}
	}

	// Pairwise conflict scan. Each unordered pair is reported once even
	// when both sides declare the conflict.
	for i, a := range ids {
		for _, b := range ids[i+1:] {
			if conflicts(services[a], services[b]) || conflicts(services[b], services[a]) {
				errs = append(errs, Issue{
					Code:     errors.ErrCodeConflict,
					Severity: SeverityCritical,
					Message:  fmt.Sprintf("%s conflicts with %s", a, b),
					Services: []string{a, b},
				})
			}
		}
	}
	return errs, warns
}

// conflicts reports whether a declares a conflict matching b.
func conflicts(a, b *catalog.Service) bool {
	for _, ref := range a.ConflictsWith {
		if ref.ID() == b.ID() && ref.Allows(b.Version) {
			return true
		}
	}
	return false
}
