// Package catalog defines the service catalog data model and providers.
//
// A catalog is the read-only source of truth for known services: named,
// versioned capability offerings (auth/clerk, database/postgresql) with
// declared dependencies, conflicts, and compatibility metadata. Bundles are
// curated, named sets of services intended to be requested together.
//
// Services are loaded once at catalog initialization and are immutable
// afterwards; the resolver never writes to a catalog. The Memory catalog
// supports an explicit Reload for long-running processes that need to pick
// up catalog updates.
package catalog

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/launchforge/forgekit/pkg/errors"
)

// ServiceType is the category of a service offering.
type ServiceType string

// Well-known service types. Catalogs may define additional types as long as
// they pass errors.ValidateServiceType.
const (
	TypeAuth       ServiceType = "auth"
	TypeAuthz      ServiceType = "authz"
	TypeDatabase   ServiceType = "database"
	TypeCache      ServiceType = "cache"
	TypeStorage    ServiceType = "storage"
	TypeQueue      ServiceType = "queue"
	TypeEmail      ServiceType = "email"
	TypePayments   ServiceType = "payments"
	TypeSearch     ServiceType = "search"
	TypeMonitoring ServiceType = "monitoring"
	TypeAnalytics  ServiceType = "analytics"
	TypeAI         ServiceType = "ai"
)

// Validate checks that the type is a well-formed category token.
func (t ServiceType) Validate() error {
	return errors.ValidateServiceType(string(t))
}

// String returns the type as a plain string.
func (t ServiceType) String() string { return string(t) }

// Ref names a service, either exactly or as a dependency/conflict
// declaration. The Constraint field is an optional semantic version
// constraint ("^2.0", ">=1.4 <2.0"); empty means any version.
//
// Refs serialize as "type/provider[@constraint]" strings in TOML and JSON
// via the encoding.TextMarshaler/TextUnmarshaler implementations.
type Ref struct {
	Type       ServiceType
	Provider   string
	Constraint string
}

// MarshalText implements encoding.TextMarshaler.
func (r Ref) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Ref) UnmarshalText(text []byte) error {
	parsed, err := ParseRef(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// String formats the ref as "type/provider" or "type/provider@constraint".
func (r Ref) String() string {
	if r.Constraint == "" {
		return fmt.Sprintf("%s/%s", r.Type, r.Provider)
	}
	return fmt.Sprintf("%s/%s@%s", r.Type, r.Provider, r.Constraint)
}

// ID returns the service ID the ref points at ("type/provider"),
// ignoring any version constraint.
func (r Ref) ID() string {
	return fmt.Sprintf("%s/%s", r.Type, r.Provider)
}

// Validate checks the ref's tokens and version constraint.
func (r Ref) Validate() error {
	if err := r.Type.Validate(); err != nil {
		return err
	}
	if err := errors.ValidateProviderName(r.Provider); err != nil {
		return err
	}
	if r.Constraint != "" {
		if _, err := semver.NewConstraint(r.Constraint); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidVersion, err, "constraint %q in %s", r.Constraint, r.ID())
		}
	}
	return nil
}

// Allows reports whether the ref's constraint admits the given version.
// An empty constraint admits everything. Unparseable versions or
// constraints are treated as not allowed.
func (r Ref) Allows(version string) bool {
	if r.Constraint == "" {
		return true
	}
	c, err := semver.NewConstraint(r.Constraint)
	if err != nil {
		return false
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return c.Check(v)
}

// ParseRef parses "type/provider" or "type/provider@constraint" notation.
func ParseRef(s string) (Ref, error) {
	spec := s
	constraint := ""
	if at := strings.IndexByte(s, '@'); at >= 0 {
		spec, constraint = s[:at], s[at+1:]
	}
	typ, provider, ok := strings.Cut(spec, "/")
	if !ok {
		return Ref{}, errors.New(errors.ErrCodeInvalidRef, "service ref must be type/provider[@constraint]: %q", s)
	}
	ref := Ref{Type: ServiceType(typ), Provider: provider, Constraint: constraint}
	if err := ref.Validate(); err != nil {
		return Ref{}, err
	}
	return ref, nil
}

// MustParseRef parses a ref and panics on error. Intended for tests and
// static bundle definitions.
func MustParseRef(s string) Ref {
	ref, err := ParseRef(s)
	if err != nil {
		panic(err)
	}
	return ref
}

// Service is a capability offering in the catalog. Services are immutable
// once loaded; the resolver only reads them.
type Service struct {
	Type     ServiceType `json:"type" toml:"type"`
	Provider string      `json:"provider" toml:"provider"`
	Version  string      `json:"version" toml:"version"`

	// Requires lists dependencies that must always be co-injected.
	Requires []Ref `json:"requires,omitempty" toml:"requires,omitempty"`
	// Optional lists dependencies included only on request.
	Optional []Ref `json:"optional,omitempty" toml:"optional,omitempty"`
	// ConflictsWith lists services that cannot coexist with this one.
	ConflictsWith []Ref `json:"conflicts_with,omitempty" toml:"conflicts,omitempty"`

	// Frameworks and Platforms restrict where the service can be injected.
	// Empty slices mean unrestricted.
	Frameworks []string `json:"frameworks,omitempty" toml:"frameworks,omitempty"`
	Platforms  []string `json:"platforms,omitempty" toml:"platforms,omitempty"`

	// Priority is the tie-break weight used by ordering and merging.
	// Higher wins.
	Priority int `json:"priority,omitempty" toml:"priority,omitempty"`

	// Description is a short human-readable summary.
	Description string `json:"description,omitempty" toml:"description,omitempty"`

	// Config carries the service's configuration schema. It is opaque to
	// the resolver and passed through to the scaffolding layer.
	Config map[string]any `json:"config,omitempty" toml:"config,omitempty"`
}

// ID returns the derived service identifier "type/provider".
func (s *Service) ID() string {
	return fmt.Sprintf("%s/%s", s.Type, s.Provider)
}

// Ref returns a ref naming this exact service with no version constraint.
func (s *Service) Ref() Ref {
	return Ref{Type: s.Type, Provider: s.Provider}
}

// SemVer parses the service's version. Returns an error for versions that
// are not valid semantic versions.
func (s *Service) SemVer() (*semver.Version, error) {
	v, err := semver.NewVersion(s.Version)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidVersion, err, "service %s version %q", s.ID(), s.Version)
	}
	return v, nil
}

// SupportsFramework reports whether the service can be injected into the
// given framework. An empty framework or an unrestricted service always
// matches.
func (s *Service) SupportsFramework(framework string) bool {
	return matches(framework, s.Frameworks)
}

// SupportsPlatform reports whether the service can be deployed to the
// given platform. An empty platform or an unrestricted service always
// matches.
func (s *Service) SupportsPlatform(platform string) bool {
	return matches(platform, s.Platforms)
}

func matches(want string, supported []string) bool {
	if want == "" || len(supported) == 0 {
		return true
	}
	for _, s := range supported {
		if strings.EqualFold(s, want) {
			return true
		}
	}
	return false
}

// Validate checks the service definition for internal consistency.
func (s *Service) Validate() error {
	if err := s.Type.Validate(); err != nil {
		return err
	}
	if err := errors.ValidateProviderName(s.Provider); err != nil {
		return err
	}
	if s.Version == "" {
		return errors.New(errors.ErrCodeInvalidVersion, "service %s has no version", s.ID())
	}
	if _, err := s.SemVer(); err != nil {
		return err
	}
	for _, ref := range s.Requires {
		if err := ref.Validate(); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidCatalog, err, "service %s requires", s.ID())
		}
	}
	for _, ref := range s.Optional {
		if err := ref.Validate(); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidCatalog, err, "service %s optional", s.ID())
		}
	}
	for _, ref := range s.ConflictsWith {
		if err := ref.Validate(); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidCatalog, err, "service %s conflicts", s.ID())
		}
	}
	return nil
}

// Bundle is a curated, named collection of services intended to be
// requested together. Bundles are inputs to the merger; they are never
// stored in a dependency graph themselves.
type Bundle struct {
	ID          string `json:"id" toml:"id"`
	Name        string `json:"name,omitempty" toml:"name,omitempty"`
	Description string `json:"description,omitempty" toml:"description,omitempty"`

	// Required services are always part of the merged request.
	Required []Ref `json:"required" toml:"required"`
	// Optional services join the request only when the caller opts in.
	Optional []Ref `json:"optional,omitempty" toml:"optional,omitempty"`
}

// Validate checks the bundle definition.
func (b *Bundle) Validate() error {
	if b.ID == "" {
		return errors.New(errors.ErrCodeInvalidCatalog, "bundle has no id")
	}
	if len(b.Required) == 0 {
		return errors.New(errors.ErrCodeInvalidCatalog, "bundle %s declares no required services", b.ID)
	}
	for _, ref := range b.Required {
		if err := ref.Validate(); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidCatalog, err, "bundle %s required", b.ID)
		}
	}
	for _, ref := range b.Optional {
		if err := ref.Validate(); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidCatalog, err, "bundle %s optional", b.ID)
		}
	}
	return nil
}
