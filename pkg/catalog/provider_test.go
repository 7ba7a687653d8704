package catalog

import (
	"context"
	"strings"
	"testing"
)

func testServices() []*Service {
	return []*Service{
		{Type: "auth", Provider: "clerk", Version: "5.2.0", Requires: []Ref{MustParseRef("database/postgresql")}},
		{Type: "auth", Provider: "lucia", Version: "3.1.0"},
		{Type: "database", Provider: "postgresql", Version: "16.3.0"},
	}
}

func testBundles() []*Bundle {
	return []*Bundle{
		{ID: "starter", Required: []Ref{MustParseRef("auth/clerk")}},
	}
}

func TestMemoryGetService(t *testing.T) {
	ctx := context.Background()
	m, err := NewMemory(testServices(), testBundles())
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}

	svc, err := m.GetService(ctx, "auth", "clerk", "")
	if err != nil {
		t.Fatalf("GetService: %v", err)
	}
	if svc.ID() != "auth/clerk" {
		t.Errorf("got %s, want auth/clerk", svc.ID())
	}

	// Constraint satisfied
	if _, err := m.GetService(ctx, "auth", "clerk", "^5.0.0"); err != nil {
		t.Errorf("constraint ^5.0.0 should admit 5.2.0: %v", err)
	}

	// Constraint excluded
	if _, err := m.GetService(ctx, "auth", "clerk", "^6.0.0"); err == nil {
		t.Error("constraint ^6.0.0 should reject 5.2.0")
	}

	// Unknown service
	if _, err := m.GetService(ctx, "auth", "okta", ""); err == nil {
		t.Error("unknown provider should return an error")
	}
}

func TestMemoryListByTypeSorted(t *testing.T) {
	m, err := NewMemory(testServices(), nil)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}

	services, err := m.ListByType(context.Background(), "auth")
	if err != nil {
		t.Fatalf("ListByType: %v", err)
	}
	if len(services) != 2 {
		t.Fatalf("got %d services, want 2", len(services))
	}
	if services[0].Provider != "clerk" || services[1].Provider != "lucia" {
		t.Errorf("listing not sorted by ID: %s, %s", services[0].Provider, services[1].Provider)
	}
}

func TestMemoryRejectsDuplicates(t *testing.T) {
	dup := []*Service{
		{Type: "auth", Provider: "clerk", Version: "1.0.0"},
		{Type: "auth", Provider: "clerk", Version: "2.0.0"},
	}
	if _, err := NewMemory(dup, nil); err == nil {
		t.Error("duplicate service IDs should be rejected")
	}
}

func TestMemoryReloadAtomic(t *testing.T) {
	m, err := NewMemory(testServices(), nil)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}

	// Reload with an invalid definition must leave the old catalog intact.
	bad := []*Service{{Type: "auth", Provider: "clerk", Version: "latest"}}
	if err := m.Reload(bad, nil); err == nil {
		t.Fatal("Reload with invalid service should fail")
	}
	if _, err := m.GetService(context.Background(), "auth", "clerk", ""); err != nil {
		t.Errorf("failed reload should not clobber the catalog: %v", err)
	}
}

func TestMemoryLint(t *testing.T) {
	services := []*Service{
		{Type: "auth", Provider: "clerk", Version: "5.2.0",
			Requires: []Ref{MustParseRef("database/postgresql")}},
		{Type: "payments", Provider: "stripe", Version: "14.0.0",
			Requires: []Ref{MustParseRef("database/mysql")}}, // dangling
		{Type: "database", Provider: "postgresql", Version: "16.3.0",
			Optional: []Ref{MustParseRef("cache/redis@^8.0.0")}}, // constraint excludes
		{Type: "cache", Provider: "redis", Version: "7.2.0"},
	}
	m, err := NewMemory(services, nil)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}

	problems := m.Lint()
	if len(problems) != 2 {
		t.Fatalf("got %d problems, want 2: %v", len(problems), problems)
	}
	if !strings.Contains(problems[0], "not in catalog") && !strings.Contains(problems[1], "not in catalog") {
		t.Errorf("expected a dangling ref problem: %v", problems)
	}
}

func TestMemoryGetBundle(t *testing.T) {
	m, err := NewMemory(testServices(), testBundles())
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}

	if _, err := m.GetBundle(context.Background(), "starter"); err != nil {
		t.Errorf("GetBundle: %v", err)
	}
	if _, err := m.GetBundle(context.Background(), "nope"); err == nil {
		t.Error("unknown bundle should return an error")
	}
}
