package resolve

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/launchforge/forgekit/pkg/dag"
	"github.com/launchforge/forgekit/pkg/errors"
)

// CycleReport classifies one detected cycle.
type CycleReport struct {
	// Nodes is the ordered loop, starting at its lexically smallest
	// member.
	Nodes []string `json:"nodes"`

	// Severity is critical for cycles made entirely of required edges,
	// warning for cycles containing at least one optional edge.
	Severity Severity `json:"severity"`

	// Broken reports whether the cycle was auto-broken by dropping an
	// optional edge.
	Broken bool `json:"broken,omitempty"`

	// DroppedEdge names the optional edge removed to break the cycle,
	// as "from -> to".
	DroppedEdge string `json:"dropped_edge,omitempty"`
}

// analyzeCycles inspects the graph for circular dependencies.
//
// Cycles in the required-edge subgraph are critical: they cannot be
// satisfied by any injection order and fail the resolution. Cycles that
// involve at least one optional edge are soft: each is broken by dropping
// the loop's lowest-priority optional edge (the edge whose target service
// has the lowest priority, ties by edge endpoints), then the graph is
// re-checked until no cycles remain.
//
// The graph is mutated by soft-cycle breaking; callers pass the working
// graph of the current request.
func analyzeCycles(g *dag.Graph) []CycleReport {
	var reports []CycleReport

	// Required-only cycles are unconditionally fatal. Every distinct
	// cycle is reported: partial reporting would make a multi-cycle
	// catalog look half-fixed after one correction.
	for _, cycle := range g.Cycles(dag.EdgeRequired) {
		reports = append(reports, CycleReport{
			Nodes:    cycle.Nodes,
			Severity: SeverityCritical,
		})
	}
	if len(reports) > 0 {
		return reports
	}

	// Soft cycles: break one optional edge at a time and re-check, since
	// removing an edge can dissolve several overlapping cycles at once.
	for {
		cycles := g.Cycles()
		if len(cycles) == 0 {
			return reports
		}

		cycle := cycles[0]
		edge, ok := lowestOptionalEdge(g, cycle)
		if !ok {
			// All-required cycle surfacing only in the mixed graph means
			// the required subgraph check above missed it, which cannot
			// happen; guard anyway.
			reports = append(reports, CycleReport{Nodes: cycle.Nodes, Severity: SeverityCritical})
			return reports
		}

		g.RemoveEdge(edge.From, edge.To, dag.EdgeOptional)
		reports = append(reports, CycleReport{
			Nodes:       cycle.Nodes,
			Severity:    SeverityWarning,
			Broken:      true,
			DroppedEdge: fmt.Sprintf("%s -> %s", edge.From, edge.To),
		})
	}
}

// lowestOptionalEdge finds the optional edge in the cycle whose target
// node has the lowest priority. Ties break by (from, to) lexically so the
// choice is deterministic.
func lowestOptionalEdge(g *dag.Graph, cycle dag.Cycle) (dag.Edge, bool) {
	var optional []dag.Edge
	for _, e := range cycle.Edges(g) {
		if e.Kind == dag.EdgeOptional {
			optional = append(optional, e)
		}
	}
	if len(optional) == 0 {
		return dag.Edge{}, false
	}

	slices.SortFunc(optional, func(a, b dag.Edge) int {
		pa, pb := targetPriority(g, a), targetPriority(g, b)
		if c := cmp.Compare(pa, pb); c != 0 {
			return c
		}
		if c := strings.Compare(a.From, b.From); c != 0 {
			return c
		}
		return strings.Compare(a.To, b.To)
	})
	return optional[0], true
}

func targetPriority(g *dag.Graph, e dag.Edge) int {
	if n, ok := g.Node(e.To); ok {
		return n.Priority
	}
	return 0
}

// cycleIssues converts critical cycle reports into result issues.
func cycleIssues(reports []CycleReport) (errs, warns []Issue) {
	for _, report := range reports {
		issue := Issue{
			Code:     errors.ErrCodeCircularDependency,
			Severity: report.Severity,
			Cycle:    report.Nodes,
			Services: report.Nodes,
		}
		switch report.Severity {
		case SeverityCritical:
			issue.Message = fmt.Sprintf("circular dependency: %s", strings.Join(report.Nodes, " -> "))
			errs = append(errs, issue)
		default:
			issue.Message = fmt.Sprintf("soft circular dependency %s broken by dropping optional edge %s",
				strings.Join(report.Nodes, " -> "), report.DroppedEdge)
			warns = append(warns, issue)
		}
	}
	return errs, warns
}
