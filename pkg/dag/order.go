package dag

import (
	"cmp"
	"slices"
)

// TopoSort returns a deterministic injection order for an acyclic graph
// using Kahn's algorithm: every dependency appears before its dependents,
// so for an edge A -> B ("A depends on B"), B's index precedes A's.
//
// When several nodes become eligible at once they are emitted by
// (priority descending, ID ascending), which makes the order total and
// reproducible for a given graph.
//
// Returns ErrGraphHasCycle if the graph still contains a cycle; callers
// are expected to run cycle detection (and soft-cycle breaking) first.
func (g *Graph) TopoSort() ([]string, error) {
	// remaining counts unresolved dependencies per node.
	remaining := make(map[string]int, len(g.nodes))
	for id := range g.nodes {
		remaining[id] = len(g.outgoing[id])
	}

	var ready []*Node
	for id, count := range remaining {
		if count == 0 {
			ready = append(ready, g.nodes[id])
		}
	}

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		slices.SortFunc(ready, func(a, b *Node) int {
			if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})

		next := ready[0]
		ready = ready[1:]
		order = append(order, next.ID)

		// The emitted node satisfies one dependency of each dependent.
		for _, e := range g.incoming[next.ID] {
			remaining[e.From]--
			if remaining[e.From] == 0 {
				ready = append(ready, g.nodes[e.From])
			}
		}
	}

	if len(order) != len(g.nodes) {
		return nil, ErrGraphHasCycle
	}
	return order, nil
}
