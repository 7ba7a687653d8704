package dag

import (
	"errors"
	"slices"
	"testing"
)

// assertTopological fails unless every dependency precedes its dependent
// in order.
func assertTopological(t *testing.T, g *Graph, order []string) {
	t.Helper()
	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	for _, e := range g.Edges() {
		if pos[e.To] > pos[e.From] {
			t.Errorf("dependency %s must precede dependent %s in %v", e.To, e.From, order)
		}
	}
}

func TestTopoSortSimple(t *testing.T) {
	// app depends on db and cache; cache depends on db.
	g := build(t, ids("app", "db", "cache"), []Edge{
		{From: "app", To: "db"},
		{From: "app", To: "cache"},
		{From: "cache", To: "db"},
	})

	order, err := g.TopoSort()
	if err != nil {
		t.Fatalf("TopoSort: %v", err)
	}
	if !slices.Equal(order, []string{"db", "cache", "app"}) {
		t.Errorf("order = %v, want [db cache app]", order)
	}
	assertTopological(t, g, order)
}

func TestTopoSortPriorityTieBreak(t *testing.T) {
	// Three independent nodes: priority descending wins, then ID
	// ascending.
	g := build(t, []Node{
		{ID: "b", Priority: 5},
		{ID: "a", Priority: 1},
		{ID: "c", Priority: 5},
	}, nil)

	order, err := g.TopoSort()
	if err != nil {
		t.Fatalf("TopoSort: %v", err)
	}
	if !slices.Equal(order, []string{"b", "c", "a"}) {
		t.Errorf("order = %v, want [b c a]", order)
	}
}

func TestTopoSortCycleError(t *testing.T) {
	g := build(t, ids("a", "b"), []Edge{
		{From: "a", To: "b"},
		{From: "b", To: "a"},
	})
	if _, err := g.TopoSort(); !errors.Is(err, ErrGraphHasCycle) {
		t.Errorf("got %v, want ErrGraphHasCycle", err)
	}
}

func TestTopoSortDeterministic(t *testing.T) {
	mk := func() *Graph {
		return build(t, []Node{
			{ID: "w", Priority: 2}, {ID: "x"}, {ID: "y", Priority: 2}, {ID: "z", Priority: 9},
		}, []Edge{
			{From: "w", To: "z"},
			{From: "x", To: "z"},
			{From: "y", To: "z"},
		})
	}

	first, err := mk().TopoSort()
	if err != nil {
		t.Fatalf("TopoSort: %v", err)
	}
	for range 10 {
		again, err := mk().TopoSort()
		if err != nil {
			t.Fatalf("TopoSort: %v", err)
		}
		if !slices.Equal(first, again) {
			t.Fatalf("order not deterministic: %v vs %v", first, again)
		}
	}
}

func TestTopoSortEmpty(t *testing.T) {
	order, err := New().TopoSort()
	if err != nil {
		t.Fatalf("TopoSort on empty graph: %v", err)
	}
	if len(order) != 0 {
		t.Errorf("order = %v, want empty", order)
	}
}
