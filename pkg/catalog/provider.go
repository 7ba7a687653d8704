package catalog

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/launchforge/forgekit/pkg/errors"
)

// Provider is the read-only lookup interface the resolver consumes.
//
// GetService returns the service matching (typ, provider) whose version
// satisfies constraint (empty constraint = any version). A miss returns an
// error with code SERVICE_NOT_FOUND; resolution call sites wrap it as
// MISSING_DEPENDENCY.
//
// Implementations must be safe for concurrent use: many resolutions can
// share one provider.
type Provider interface {
	GetService(ctx context.Context, typ ServiceType, provider, constraint string) (*Service, error)
	ListByType(ctx context.Context, typ ServiceType) ([]*Service, error)
}

// BundleSource supplies bundle definitions by id. The loading mechanism is
// implementation-specific; the resolver only needs the resolved object.
type BundleSource interface {
	GetBundle(ctx context.Context, id string) (*Bundle, error)
	ListBundles(ctx context.Context) ([]*Bundle, error)
}

// Memory is an in-memory catalog implementing Provider and BundleSource.
// It is constructed once from a service/bundle list and read-only
// afterwards, except for the explicit Reload lifecycle method.
type Memory struct {
	mu       sync.RWMutex
	services map[string]*Service // keyed by Service.ID()
	byType   map[ServiceType][]*Service
	bundles  map[string]*Bundle
}

// NewMemory builds an in-memory catalog. Definitions are validated and
// duplicate service IDs or bundle IDs are rejected.
func NewMemory(services []*Service, bundles []*Bundle) (*Memory, error) {
	m := &Memory{}
	if err := m.Reload(services, bundles); err != nil {
		return nil, err
	}
	return m, nil
}

// Reload atomically replaces the catalog contents. Lookups running
// concurrently see either the old or the new catalog, never a mix.
func (m *Memory) Reload(services []*Service, bundles []*Bundle) error {
	byID := make(map[string]*Service, len(services))
	byType := make(map[ServiceType][]*Service)
	for _, svc := range services {
		if err := svc.Validate(); err != nil {
			return err
		}
		id := svc.ID()
		if _, dup := byID[id]; dup {
			return errors.New(errors.ErrCodeInvalidCatalog, "duplicate service %s", id)
		}
		byID[id] = svc
		byType[svc.Type] = append(byType[svc.Type], svc)
	}
	for _, list := range byType {
		slices.SortFunc(list, func(a, b *Service) int {
			return strings.Compare(a.ID(), b.ID())
		})
	}

	byBundle := make(map[string]*Bundle, len(bundles))
	for _, b := range bundles {
		if err := b.Validate(); err != nil {
			return err
		}
		if _, dup := byBundle[b.ID]; dup {
			return errors.New(errors.ErrCodeInvalidCatalog, "duplicate bundle %s", b.ID)
		}
		byBundle[b.ID] = b
	}

	m.mu.Lock()
	m.services = byID
	m.byType = byType
	m.bundles = byBundle
	m.mu.Unlock()
	return nil
}

// GetService implements Provider.
func (m *Memory) GetService(ctx context.Context, typ ServiceType, provider, constraint string) (*Service, error) {
	ref := Ref{Type: typ, Provider: provider, Constraint: constraint}

	m.mu.RLock()
	svc, ok := m.services[ref.ID()]
	m.mu.RUnlock()

	if !ok {
		return nil, errors.New(errors.ErrCodeServiceNotFound, "no catalog entry for %s", ref.ID())
	}
	if !ref.Allows(svc.Version) {
		return nil, errors.New(errors.ErrCodeServiceNotFound,
			"catalog entry %s@%s does not satisfy constraint %q", svc.ID(), svc.Version, constraint)
	}
	return svc, nil
}

// ListByType implements Provider. Results are sorted by service ID for
// deterministic iteration.
func (m *Memory) ListByType(ctx context.Context, typ ServiceType) ([]*Service, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.byType[typ]), nil
}

// GetBundle implements BundleSource.
func (m *Memory) GetBundle(ctx context.Context, id string) (*Bundle, error) {
	m.mu.RLock()
	b, ok := m.bundles[id]
	m.mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.ErrCodeBundleNotFound, "no bundle named %q", id)
	}
	return b, nil
}

// ListBundles implements BundleSource. Results are sorted by bundle ID.
func (m *Memory) ListBundles(ctx context.Context) ([]*Bundle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bundles := make([]*Bundle, 0, len(m.bundles))
	for _, b := range m.bundles {
		bundles = append(bundles, b)
	}
	slices.SortFunc(bundles, func(a, b *Bundle) int {
		return strings.Compare(a.ID, b.ID)
	})
	return bundles, nil
}

// Services returns all services sorted by ID. Useful for catalog linting
// and the HTTP API's service listing.
func (m *Memory) Services() []*Service {
	m.mu.RLock()
	defer m.mu.RUnlock()
	services := make([]*Service, 0, len(m.services))
	for _, svc := range m.services {
		services = append(services, svc)
	}
	slices.SortFunc(services, func(a, b *Service) int {
		return strings.Compare(a.ID(), b.ID())
	})
	return services
}

// Lint checks cross-service consistency: every dependency and conflict ref
// must resolve to a known service, and declared constraints must admit the
// cataloged version. Returns one message per problem found.
func (m *Memory) Lint() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var problems []string
	check := func(owner string, kind string, ref Ref) {
		target, ok := m.services[ref.ID()]
		if !ok {
			problems = append(problems, owner+": "+kind+" "+ref.String()+" not in catalog")
			return
		}
		if !ref.Allows(target.Version) {
			problems = append(problems, owner+": "+kind+" "+ref.String()+
				" excludes cataloged version "+target.Version)
		}
	}

	for _, svc := range m.servicesSorted() {
		for _, ref := range svc.Requires {
			check(svc.ID(), "requires", ref)
		}
		for _, ref := range svc.Optional {
			check(svc.ID(), "optional", ref)
		}
		for _, ref := range svc.ConflictsWith {
			// A conflict against an unknown service is legal (the other
			// provider may live in a different catalog), but a constraint
			// that can never match the cataloged version is suspicious.
			if target, ok := m.services[ref.ID()]; ok && !ref.Allows(target.Version) {
				problems = append(problems, svc.ID()+": conflicts "+ref.String()+
					" excludes cataloged version "+target.Version)
			}
		}
	}
	for _, b := range m.bundlesSorted() {
		for _, ref := range b.Required {
			check("bundle "+b.ID, "required", ref)
		}
		for _, ref := range b.Optional {
			check("bundle "+b.ID, "optional", ref)
		}
	}
	return problems
}

func (m *Memory) servicesSorted() []*Service {
	services := make([]*Service, 0, len(m.services))
	for _, svc := range m.services {
		services = append(services, svc)
	}
	slices.SortFunc(services, func(a, b *Service) int {
		return strings.Compare(a.ID(), b.ID())
	})
	return services
}

func (m *Memory) bundlesSorted() []*Bundle {
	bundles := make([]*Bundle, 0, len(m.bundles))
	for _, b := range m.bundles {
		bundles = append(bundles, b)
	}
	slices.SortFunc(bundles, func(a, b *Bundle) int {
		return strings.Compare(a.ID, b.ID)
	})
	return bundles
}

// Ensure Memory implements both catalog interfaces.
var (
	_ Provider     = (*Memory)(nil)
	_ BundleSource = (*Memory)(nil)
)
