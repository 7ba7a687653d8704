package resolve

import (
	"context"

	"github.com/launchforge/forgekit/pkg/catalog"
	"github.com/launchforge/forgekit/pkg/dag"
	"github.com/launchforge/forgekit/pkg/errors"
)

// expansion holds the outcome of graph building: the dependency graph and
// the services backing its nodes.
type expansion struct {
	graph    *dag.Graph
	services map[string]*catalog.Service
}

// expand grows the merged requested set into a full dependency graph by
// breadth-first traversal of required (and optionally optional)
// dependencies against the catalog.
//
// Revisiting an already-expanded service only adds an edge, never a
// duplicate node, so expansion terminates even when the catalog contains
// cycles. MaxDepth > 0 stops recursion below that depth; the requested
// services sit at depth zero.
//
// A catalog miss aborts expansion with a MISSING_DEPENDENCY error naming
// the unresolvable ref and the service that declared it.
func (r *Resolver) expand(ctx context.Context, requested []catalog.Ref, opts Options) (*expansion, error) {
	type item struct {
		ref   catalog.Ref
		from  string // declaring service ID, "" for requested roots
		kind  dag.EdgeKind
		depth int
	}

	exp := &expansion{
		graph:    dag.New(),
		services: make(map[string]*catalog.Service),
	}

	queue := make([]item, 0, len(requested))
	for _, ref := range requested {
		queue = append(queue, item{ref: ref, kind: dag.EdgeRequired})
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next := queue[0]
		queue = queue[1:]

		id := next.ref.ID()
		if _, visited := exp.services[id]; visited {
			// Known node: just record the new dependency edge.
			if next.from != "" {
				_ = exp.graph.AddEdge(dag.Edge{From: next.from, To: id, Kind: next.kind})
			}
			continue
		}

		svc, err := r.provider.GetService(ctx, next.ref.Type, next.ref.Provider, next.ref.Constraint)
		if err != nil {
			if errors.Is(err, errors.ErrCodeServiceNotFound) {
				if next.from == "" {
					return nil, errors.Wrap(errors.ErrCodeMissingDependency, err, "requested service %s", next.ref)
				}
				return nil, errors.Wrap(errors.ErrCodeMissingDependency, err,
					"dependency %s of %s", next.ref, next.from)
			}
			return nil, err
		}

		exp.services[id] = svc
		_ = exp.graph.AddNode(dag.Node{ID: id, Priority: svc.Priority})
		if next.from != "" {
			_ = exp.graph.AddEdge(dag.Edge{From: next.from, To: id, Kind: next.kind})
		}

		if opts.MaxDepth > 0 && next.depth >= opts.MaxDepth {
			continue
		}
		for _, dep := range svc.Requires {
			queue = append(queue, item{ref: dep, from: id, kind: dag.EdgeRequired, depth: next.depth + 1})
		}
		if opts.IncludeOptional {
			for _, dep := range svc.Optional {
				queue = append(queue, item{ref: dep, from: id, kind: dag.EdgeOptional, depth: next.depth + 1})
			}
		}
	}

	return exp, nil
}
