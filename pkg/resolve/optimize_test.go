package resolve

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/launchforge/forgekit/pkg/catalog"
)

// complexityScorer weighs only set size, making optimizer moves easy to
// predict in tests.
func complexityScorer() Scorer {
	return WeightedScorer{Objectives: Objectives{MinimizeComplexity: 1}}
}

func TestOptimizeDropsOptional(t *testing.T) {
	r := newTestResolver(t)

	// payments/stripe pulls cache/redis through an optional edge; nothing
	// requires it, so minimizing complexity drops it.
	out, err := r.Optimize(context.Background(), Request{
		Services: refs("payments/stripe"),
		Options:  Options{IncludeOptional: true},
	}, complexityScorer())
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}

	if got := serviceIDs(out.Services); !slices.Equal(got, []string{"database/postgresql", "payments/stripe"}) {
		t.Errorf("services = %v, want redis dropped", got)
	}
	if !slices.Equal(out.Removed, []string{"cache/redis"}) {
		t.Errorf("removed = %v, want [cache/redis]", out.Removed)
	}
	if len(out.Added) != 0 {
		t.Errorf("added = %v, want none", out.Added)
	}
	if !strings.Contains(out.Explanation, "cache/redis") {
		t.Errorf("explanation should name the dropped service: %q", out.Explanation)
	}
}

func TestOptimizeKeepsRequired(t *testing.T) {
	r := newTestResolver(t)

	out, err := r.Optimize(context.Background(), Request{
		Services: refs("payments/stripe"),
		Options:  Options{IncludeOptional: true},
	}, complexityScorer())
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if !slices.Contains(serviceIDs(out.Services), "database/postgresql") {
		t.Errorf("required dependency dropped: %v", serviceIDs(out.Services))
	}
}

func TestOptimizeSwapsProvider(t *testing.T) {
	r := newTestResolver(t)

	// lucia carries fewer declared dependencies than clerk, so a
	// complexity-only scorer prefers swapping the requested auth provider
	// over merely dropping clerk's optional email service.
	out, err := r.Optimize(context.Background(), Request{
		Services: refs("auth/clerk"),
		Options:  Options{IncludeOptional: true},
	}, complexityScorer())
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}

	if got := serviceIDs(out.Services); !slices.Equal(got, []string{"database/postgresql", "auth/lucia"}) {
		t.Errorf("services = %v, want clerk swapped for lucia", got)
	}
	if !slices.Equal(out.Removed, []string{"auth/clerk", "email/resend"}) {
		t.Errorf("removed = %v", out.Removed)
	}
	if !slices.Equal(out.Added, []string{"auth/lucia"}) {
		t.Errorf("added = %v", out.Added)
	}
}

func TestOptimizeNilScorerDefaults(t *testing.T) {
	r := newTestResolver(t)

	out, err := r.Optimize(context.Background(), Request{Services: refs("cache/redis")}, nil)
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if got := serviceIDs(out.Services); !slices.Equal(got, []string{"cache/redis"}) {
		t.Errorf("services = %v", got)
	}
	if len(out.Removed) != 0 || len(out.Added) != 0 {
		t.Errorf("single-service request should stay untouched: removed=%v added=%v", out.Removed, out.Added)
	}
	if out.Explanation == "" {
		t.Error("explanation should state that no modification was applied")
	}
}

func TestOptimizeInvalidRequest(t *testing.T) {
	r := newTestResolver(t)

	if _, err := r.Optimize(context.Background(), Request{}, nil); err == nil {
		t.Error("empty request should fail validation")
	}
	if _, err := r.Optimize(context.Background(), Request{Services: refs("storage/minio")}, nil); err == nil {
		t.Error("a request that cannot resolve should not optimize")
	}
}

func TestWeightedScorerComplexity(t *testing.T) {
	scorer := complexityScorer()
	small := []*catalog.Service{
		{Type: "cache", Provider: "redis", Version: "7.2.0"},
	}
	large := []*catalog.Service{
		{Type: "cache", Provider: "redis", Version: "7.2.0"},
		{Type: "auth", Provider: "clerk", Version: "5.2.0", Requires: refs("database/postgresql")},
	}

	if scorer.Score(small, Options{}) <= scorer.Score(large, Options{}) {
		t.Error("smaller sets should score higher under complexity minimization")
	}
}

func TestWeightedScorerCompatibility(t *testing.T) {
	scorer := WeightedScorer{Objectives: Objectives{MaximizeCompatibility: 1}}
	opts := Options{Framework: "sveltekit"}

	compatible := []*catalog.Service{
		{Type: "auth", Provider: "lucia", Version: "3.1.0", Frameworks: []string{"sveltekit"}},
	}
	incompatible := []*catalog.Service{
		{Type: "auth", Provider: "clerk", Version: "5.2.0", Frameworks: []string{"nextjs"}},
	}

	if scorer.Score(compatible, opts) <= scorer.Score(incompatible, opts) {
		t.Error("compatible sets should score higher")
	}
}

func TestWeightedScorerCost(t *testing.T) {
	scorer := WeightedScorer{Objectives: Objectives{MinimizeCost: 1}}

	free := []*catalog.Service{
		{Type: "cache", Provider: "redis", Version: "7.2.0"},
	}
	paid := []*catalog.Service{
		{Type: "cache", Provider: "memcached", Version: "1.6.0",
			Config: map[string]any{"cost": 12.5}},
	}

	if scorer.Score(free, Options{}) <= scorer.Score(paid, Options{}) {
		t.Error("costed services should score lower")
	}
}

func TestWeightedScorerEmptySet(t *testing.T) {
	scorer := WeightedScorer{Objectives: DefaultObjectives()}
	if got := scorer.Score(nil, Options{}); got != 0 {
		t.Errorf("empty set score = %v, want 0", got)
	}
}

func TestDiffIDs(t *testing.T) {
	got := diffIDs([]string{"b", "a", "c"}, []string{"c"})
	if !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("diffIDs = %v, want [a b]", got)
	}
	if got := diffIDs(nil, []string{"a"}); len(got) != 0 {
		t.Errorf("diffIDs of empty = %v", got)
	}
}
