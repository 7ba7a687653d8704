package dag

import (
	"slices"
)

// Cycle is one elementary cycle: the ordered list of node IDs forming the
// loop, starting at the lexically smallest member. The closing edge from
// the last node back to the first is implied.
type Cycle struct {
	Nodes []string
}

// Contains reports whether the cycle passes through the given node.
func (c Cycle) Contains(id string) bool {
	return slices.Contains(c.Nodes, id)
}

// edgeList returns the consecutive (from, to) pairs of the cycle,
// including the closing edge.
func (c Cycle) edgeList() [][2]string {
	pairs := make([][2]string, 0, len(c.Nodes))
	for i, from := range c.Nodes {
		to := c.Nodes[(i+1)%len(c.Nodes)]
		pairs = append(pairs, [2]string{from, to})
	}
	return pairs
}

// Edges resolves the cycle's consecutive pairs to edges in g, including
// the closing edge. Pairs with no edge in g are skipped; that only happens
// when the graph was mutated after enumeration.
func (c Cycle) Edges(g *Graph) []Edge {
	edges := make([]Edge, 0, len(c.Nodes))
	for _, pair := range c.edgeList() {
		if e, ok := g.EdgeBetween(pair[0], pair[1]); ok {
			edges = append(edges, e)
		}
	}
	return edges
}

// Cycles enumerates every distinct elementary cycle in the graph using
// Johnson's algorithm, considering only edges of the given kinds (no kinds
// means all edges). Partial reporting would misclassify multi-cycle
// catalogs, so enumeration always runs to completion.
//
// Each cycle is reported exactly once, rotated to start at its lexically
// smallest node. The result is ordered by starting node, then discovery
// order, and is deterministic for a given graph.
//
// Self-loops (a service depending on itself) are reported as single-node
// cycles.
func (g *Graph) Cycles(kinds ...EdgeKind) []Cycle {
	ids := g.IDs()
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}

	keep := func(k EdgeKind) bool {
		if len(kinds) == 0 {
			return true
		}
		return slices.Contains(kinds, k)
	}

	// Adjacency over vertex indices, targets sorted for determinism.
	adj := make([][]int, len(ids))
	var cycles []Cycle
	for _, e := range g.edges {
		if !keep(e.Kind) {
			continue
		}
		from, to := index[e.From], index[e.To]
		if from == to {
			cycles = append(cycles, Cycle{Nodes: []string{e.From}})
			continue
		}
		if !slices.Contains(adj[from], to) {
			adj[from] = append(adj[from], to)
		}
	}
	for i := range adj {
		slices.Sort(adj[i])
	}

	j := &johnson{ids: ids, adj: adj, blocked: make([]bool, len(ids)), blockMap: make([][]int, len(ids))}
	for s := 0; s < len(ids); s++ {
		// Restrict to the strongly connected component of the least
		// vertex >= s; vertices below s are excluded so each cycle is
		// found exactly once, rooted at its smallest member.
		scc, least := leastSCC(adj, s)
		if scc == nil {
			break
		}
		j.inSCC = scc
		j.start = least
		for i := range j.blocked {
			j.blocked[i] = false
			j.blockMap[i] = j.blockMap[i][:0]
		}
		j.stack = j.stack[:0]
		j.circuit(least)
		cycles = append(cycles, j.found...)
		j.found = nil
		s = least // next iteration starts past this root
	}

	slices.SortStableFunc(cycles, func(a, b Cycle) int {
		return slices.Compare(a.Nodes, b.Nodes)
	})
	return cycles
}

// johnson holds the mutable state of Johnson's circuit-finding procedure.
type johnson struct {
	ids      []string
	adj      [][]int
	inSCC    []bool
	start    int
	blocked  []bool
	blockMap [][]int
	stack    []int
	found    []Cycle
}

func (j *johnson) circuit(v int) bool {
	foundCycle := false
	j.stack = append(j.stack, v)
	j.blocked[v] = true

	for _, w := range j.adj[v] {
		if w < j.start || !j.inSCC[w] {
			continue
		}
		if w == j.start {
			nodes := make([]string, len(j.stack))
			for i, idx := range j.stack {
				nodes[i] = j.ids[idx]
			}
			j.found = append(j.found, Cycle{Nodes: nodes})
			foundCycle = true
		} else if !j.blocked[w] {
			if j.circuit(w) {
				foundCycle = true
			}
		}
	}

	if foundCycle {
		j.unblock(v)
	} else {
		for _, w := range j.adj[v] {
			if w < j.start || !j.inSCC[w] {
				continue
			}
			if !slices.Contains(j.blockMap[w], v) {
				j.blockMap[w] = append(j.blockMap[w], v)
			}
		}
	}

	j.stack = j.stack[:len(j.stack)-1]
	return foundCycle
}

func (j *johnson) unblock(v int) {
	j.blocked[v] = false
	pending := j.blockMap[v]
	j.blockMap[v] = nil
	for _, w := range pending {
		if j.blocked[w] {
			j.unblock(w)
		}
	}
}

// leastSCC finds the strongly connected component (of size >= 2) that
// contains the smallest vertex >= s, over the subgraph induced by vertices
// >= s. It returns a membership mask and that least vertex, or (nil, 0)
// when no such component remains.
func leastSCC(adj [][]int, s int) (mask []bool, least int) {
	n := len(adj)
	components := tarjan(adj, s)

	bestLeast := -1
	var best []int
	for _, comp := range components {
		if len(comp) < 2 {
			continue
		}
		m := slices.Min(comp)
		if bestLeast == -1 || m < bestLeast {
			bestLeast = m
			best = comp
		}
	}
	if best == nil {
		return nil, 0
	}
	mask = make([]bool, n)
	for _, v := range best {
		mask[v] = true
	}
	return mask, bestLeast
}

// tarjan computes strongly connected components of the subgraph induced by
// vertices >= s using Tarjan's algorithm (iteration order fixed by the
// sorted adjacency lists).
func tarjan(adj [][]int, s int) [][]int {
	n := len(adj)
	const unvisited = -1

	indexOf := make([]int, n)
	lowlink := make([]int, n)
	onStack := make([]bool, n)
	for i := range indexOf {
		indexOf[i] = unvisited
	}

	var (
		counter    int
		stack      []int
		components [][]int
	)

	var strongconnect func(v int)
	strongconnect = func(v int) {
		indexOf[v] = counter
		lowlink[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range adj[v] {
			if w < s {
				continue
			}
			if indexOf[w] == unvisited {
				strongconnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indexOf[w])
			}
		}

		if lowlink[v] == indexOf[v] {
			var comp []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			components = append(components, comp)
		}
	}

	for v := s; v < n; v++ {
		if indexOf[v] == unvisited {
			strongconnect(v)
		}
	}
	return components
}
