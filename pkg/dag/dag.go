// Package dag implements the dependency graph used by the resolver.
//
// Nodes are services keyed by their catalog ID ("type/provider"); edges are
// dependency declarations tagged as required or optional. The direction of
// an edge A -> B reads "A depends on B", so a valid injection order places
// B before A.
//
// The package provides full elementary-cycle enumeration ([Graph.Cycles])
// and deterministic topological ordering ([Graph.TopoSort]). Graphs are
// built per resolution request and are not safe for concurrent mutation.
package dag

import (
	"errors"
	"slices"
	"strings"
)

var (
	// ErrInvalidNodeID is returned by [Graph.AddNode] when the node ID is
	// empty. All nodes must have non-empty identifiers.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Graph.AddNode] when a node with
	// the same ID already exists. Node IDs must be unique.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownSourceNode is returned by [Graph.AddEdge] when the From
	// node does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Graph.AddEdge] when the To
	// node does not exist.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrGraphHasCycle is returned by [Graph.TopoSort] when ordering is
	// attempted on a graph that still contains a cycle.
	ErrGraphHasCycle = errors.New("graph contains a cycle")
)

// EdgeKind distinguishes required from optional dependency edges.
type EdgeKind int

const (
	// EdgeRequired marks a dependency that must always be satisfied.
	EdgeRequired EdgeKind = iota
	// EdgeOptional marks a dependency included only on request.
	EdgeOptional
)

// String returns "required" or "optional".
func (k EdgeKind) String() string {
	if k == EdgeOptional {
		return "optional"
	}
	return "required"
}

// Node represents a service in the dependency graph.
//
// Priority is the tie-break weight used by topological ordering and soft
// cycle breaking; higher wins. The zero value is not usable - ID must be
// set before adding to a Graph.
type Node struct {
	ID       string // Unique service identifier ("type/provider")
	Priority int    // Ordering tie-break weight (higher first)
}

// Edge represents a directed dependency: From depends on To.
type Edge struct {
	From string
	To   string
	Kind EdgeKind
}

// Graph is a directed graph of service dependencies.
//
// The zero value is not usable - use New. Graph is not safe for concurrent
// use without external synchronization; the resolver builds one graph per
// request and never shares it.
type Graph struct {
	nodes    map[string]*Node
	edges    []Edge
	outgoing map[string][]Edge // from -> edges leaving it (dependencies)
	incoming map[string][]Edge // to -> edges entering it (dependents)
}

// New creates an empty dependency graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		outgoing: make(map[string][]Edge),
		incoming: make(map[string][]Edge),
	}
}

// AddNode adds a node to the graph. Returns ErrInvalidNodeID for an empty
// ID or ErrDuplicateNodeID if the node already exists.
func (g *Graph) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := g.nodes[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	node := n
	g.nodes[node.ID] = &node
	return nil
}

// AddEdge adds a directed dependency edge between two existing nodes.
// Returns ErrUnknownSourceNode or ErrUnknownTargetNode if an endpoint is
// missing. Adding an edge identical to an existing one (same endpoints and
// kind) is a no-op, so re-expanding an already-visited service never
// accumulates duplicates.
func (g *Graph) AddEdge(e Edge) error {
	if _, ok := g.nodes[e.From]; !ok {
		return ErrUnknownSourceNode
	}
	if _, ok := g.nodes[e.To]; !ok {
		return ErrUnknownTargetNode
	}
	for _, existing := range g.outgoing[e.From] {
		if existing == e {
			return nil
		}
	}
	g.edges = append(g.edges, e)
	g.outgoing[e.From] = append(g.outgoing[e.From], e)
	g.incoming[e.To] = append(g.incoming[e.To], e)
	return nil
}

// RemoveEdge removes the edge from→to of the given kind if it exists.
// No error is returned if the edge does not exist.
func (g *Graph) RemoveEdge(from, to string, kind EdgeKind) {
	match := func(e Edge) bool { return e.From == from && e.To == to && e.Kind == kind }
	g.edges = slices.DeleteFunc(g.edges, match)
	g.outgoing[from] = slices.DeleteFunc(g.outgoing[from], match)
	g.incoming[to] = slices.DeleteFunc(g.incoming[to], match)
}

// Node returns the node with the given ID and true, or nil and false.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Has reports whether a node with the given ID exists.
func (g *Graph) Has(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Nodes returns all nodes sorted by ID. Sorting keeps every graph
// traversal in the resolver deterministic regardless of insertion order.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	slices.SortFunc(nodes, func(a, b *Node) int { return strings.Compare(a.ID, b.ID) })
	return nodes
}

// IDs returns all node IDs in sorted order.
func (g *Graph) IDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Edges returns a copy of all edges in insertion order.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Dependencies returns the edges leaving the node (what it depends on).
// The returned slice is a read-only view.
func (g *Graph) Dependencies(id string) []Edge { return g.outgoing[id] }

// Dependents returns the edges entering the node (what depends on it).
// The returned slice is a read-only view.
func (g *Graph) Dependents(id string) []Edge { return g.incoming[id] }

// EdgeBetween returns the edge from→to and true if one exists. When both a
// required and an optional edge connect the same pair, the required edge
// wins: required semantics dominate for severity classification.
func (g *Graph) EdgeBetween(from, to string) (Edge, bool) {
	var found Edge
	ok := false
	for _, e := range g.outgoing[from] {
		if e.To != to {
			continue
		}
		if e.Kind == EdgeRequired {
			return e, true
		}
		found, ok = e, true
	}
	return found, ok
}

// Roots returns the IDs of nodes no other node depends on, sorted.
// These are typically the request's entry points.
func (g *Graph) Roots() []string {
	var roots []string
	for id := range g.nodes {
		if len(g.incoming[id]) == 0 {
			roots = append(roots, id)
		}
	}
	slices.Sort(roots)
	return roots
}

// Clone returns a deep copy of the graph. The resolver clones before soft
// cycle breaking so the caller-visible graph is never mutated.
func (g *Graph) Clone() *Graph {
	c := New()
	for _, n := range g.nodes {
		node := *n
		c.nodes[node.ID] = &node
	}
	c.edges = slices.Clone(g.edges)
	for id, edges := range g.outgoing {
		c.outgoing[id] = slices.Clone(edges)
	}
	for id, edges := range g.incoming {
		c.incoming[id] = slices.Clone(edges)
	}
	return c
}
