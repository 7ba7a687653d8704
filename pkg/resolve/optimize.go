package resolve

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/launchforge/forgekit/pkg/catalog"
	"github.com/launchforge/forgekit/pkg/errors"
)

// maxOptimizeIterations bounds the greedy loop so a pathological scorer
// cannot spin forever.
const maxOptimizeIterations = 32

// Scorer rates a candidate service set; higher is better. Implementations
// must be deterministic: the optimizer compares scores across candidate
// moves and re-scores the same set more than once.
type Scorer interface {
	Score(services []*catalog.Service, opts Options) float64
}

// Objectives weights the built-in scorer. Each weight is expected in
// [0, 1]; zero disables the objective.
type Objectives struct {
	// MinimizeComplexity penalizes large sets with many declared
	// dependencies.
	MinimizeComplexity float64 `json:"minimize_complexity"`

	// MaximizeCompatibility rewards sets where every service supports the
	// requested framework and platform.
	MaximizeCompatibility float64 `json:"maximize_compatibility"`

	// MinimizeCost penalizes the summed "cost" hints from service config
	// schemas.
	MinimizeCost float64 `json:"minimize_cost"`
}

// DefaultObjectives weighs all three objectives equally.
func DefaultObjectives() Objectives {
	return Objectives{MinimizeComplexity: 1, MaximizeCompatibility: 1, MinimizeCost: 1}
}

// WeightedScorer is the built-in Scorer over the three standard
// objectives.
type WeightedScorer struct {
	Objectives Objectives
}

// Score implements Scorer.
func (s WeightedScorer) Score(services []*catalog.Service, opts Options) float64 {
	if len(services) == 0 {
		return 0
	}

	var (
		deps       int
		compatible int
		cost       float64
	)
	for _, svc := range services {
		deps += len(svc.Requires) + len(svc.Optional)
		if svc.SupportsFramework(opts.Framework) && svc.SupportsPlatform(opts.Platform) {
			compatible++
		}
		cost += serviceCost(svc)
	}

	n := float64(len(services))
	score := -s.Objectives.MinimizeComplexity * (n + float64(deps))
	// Compatibility is a fraction; scale it so it competes with the
	// per-service complexity penalty.
	score += s.Objectives.MaximizeCompatibility * (float64(compatible) / n) * 10
	score -= s.Objectives.MinimizeCost * cost
	return score
}

// serviceCost reads the optional "cost" hint from a service's config
// schema. Services without the hint cost nothing.
func serviceCost(svc *catalog.Service) float64 {
	switch v := svc.Config["cost"].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// OptimizeResult is the outcome of an optimizer pass.
type OptimizeResult struct {
	// Services is the adjusted set in injection order.
	Services []*catalog.Service `json:"services"`

	// Removed and Added list the service IDs the optimizer dropped or
	// introduced relative to the unoptimized resolution.
	Removed []string `json:"removed,omitempty"`
	Added   []string `json:"added,omitempty"`

	// Score is the final score of the adjusted set.
	Score float64 `json:"score"`

	// Explanation describes each applied move in order.
	Explanation string `json:"explanation"`
}

// optimizeState is one candidate configuration: the requested roots (swap
// moves rewrite these) and the optional services excluded from expansion
// (drop moves add to these).
type optimizeState struct {
	requested []catalog.Ref
	excluded  map[string]bool
}

func (s optimizeState) clone() optimizeState {
	return optimizeState{
		requested: slices.Clone(s.requested),
		excluded:  maps.Clone(s.excluded),
	}
}

// Optimize resolves the request and then greedily applies improving
// modifications until no candidate move raises the score or the iteration
// budget runs out. Two kinds of move are considered: dropping a service
// held only by optional edges, and swapping a requested provider for
// another provider of the same type.
//
// A nil scorer uses WeightedScorer with DefaultObjectives. The request
// must resolve cleanly; optimization never repairs an invalid set.
func (r *Resolver) Optimize(ctx context.Context, req Request, scorer Scorer) (*OptimizeResult, error) {
	if scorer == nil {
		scorer = WeightedScorer{Objectives: DefaultObjectives()}
	}
	opts := req.Options.WithDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	requested, _, err := r.merge(ctx, req, opts)
	if err != nil {
		return nil, err
	}

	state := optimizeState{requested: requested, excluded: map[string]bool{}}
	current, err := r.materialize(ctx, state, opts)
	if err != nil {
		return nil, err
	}
	initial := serviceIDs(current)
	score := scorer.Score(current, opts)

	var explanation []string
	for range maxOptimizeIterations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		next, nextServices, nextScore, desc := r.bestMove(ctx, state, current, scorer, opts)
		if nextServices == nil || nextScore <= score {
			break
		}
		state, current, score = next, nextServices, nextScore
		explanation = append(explanation, desc)
	}

	if len(explanation) == 0 {
		explanation = []string{"no improving modification found"}
	}
	final := serviceIDs(current)
	return &OptimizeResult{
		Services:    current,
		Removed:     diffIDs(initial, final),
		Added:       diffIDs(final, initial),
		Score:       score,
		Explanation: strings.Join(explanation, "; "),
	}, nil
}

// bestMove evaluates every candidate move from the current state and
// returns the highest-scoring one. Candidates are generated in sorted
// order so equal scores resolve deterministically (first wins).
func (r *Resolver) bestMove(ctx context.Context, state optimizeState, current []*catalog.Service, scorer Scorer, opts Options) (optimizeState, []*catalog.Service, float64, string) {
	var (
		bestState    optimizeState
		bestServices []*catalog.Service
		bestScore    float64
		bestDesc     string
	)
	consider := func(candidate optimizeState, desc string) {
		services, err := r.materialize(ctx, candidate, opts)
		if err != nil {
			return
		}
		score := scorer.Score(services, opts)
		if bestServices == nil || score > bestScore {
			bestState, bestServices, bestScore, bestDesc = candidate, services, score, desc
		}
	}

	roots := make(map[string]int, len(state.requested))
	for i, ref := range state.requested {
		roots[ref.ID()] = i
	}

	// Drop moves: any current service that is not a requested root and is
	// not required by anything kept.
	for _, svc := range current {
		id := svc.ID()
		if _, isRoot := roots[id]; isRoot {
			continue
		}
		if requiredByAny(current, id, state.excluded) {
			continue
		}
		candidate := state.clone()
		candidate.excluded[id] = true
		consider(candidate, fmt.Sprintf("dropped optional %s", id))
	}

	// Swap moves: replace a requested root with an alternative provider of
	// the same type.
	for _, ref := range state.requested {
		alternatives, err := r.provider.ListByType(ctx, ref.Type)
		if err != nil {
			continue
		}
		for _, alt := range alternatives {
			if alt.Provider == ref.Provider {
				continue
			}
			candidate := state.clone()
			candidate.requested[roots[ref.ID()]] = alt.Ref()
			consider(candidate, fmt.Sprintf("swapped %s for %s", ref.ID(), alt.ID()))
		}
	}

	return bestState, bestServices, bestScore, bestDesc
}

// materialize expands a candidate state into an ordered, validated service
// list. It returns an error when the candidate is not a legal resolution:
// a missing dependency, a critical cycle, a dropped service still required
// by a kept one, or a declared conflict.
func (r *Resolver) materialize(ctx context.Context, state optimizeState, opts Options) ([]*catalog.Service, error) {
	exp, err := r.expand(ctx, state.requested, opts)
	if err != nil {
		return nil, err
	}
	for _, report := range analyzeCycles(exp.graph) {
		if report.Severity == SeverityCritical {
			return nil, errors.New(errors.ErrCodeCircularDependency,
				"circular dependency: %s", strings.Join(report.Nodes, " -> "))
		}
	}

	order, err := exp.graph.TopoSort()
	if err != nil {
		return nil, err
	}

	kept := make(map[string]*catalog.Service, len(exp.services))
	for id, svc := range exp.services {
		if !state.excluded[id] {
			kept[id] = svc
		}
	}
	for id, svc := range kept {
		for _, dep := range svc.Requires {
			if _, ok := kept[dep.ID()]; !ok {
				return nil, errors.New(errors.ErrCodeMissingDependency,
					"%s requires dropped service %s", id, dep.ID())
			}
		}
	}

	services := make([]*catalog.Service, 0, len(kept))
	for _, id := range order {
		if svc, ok := kept[id]; ok {
			services = append(services, svc)
		}
	}
	if errs, _ := checkCompatibility(kept, opts); len(errs) > 0 {
		return nil, errors.New(errors.ErrCodeConflict, "%s", errs[0].Message)
	}
	return services, nil
}

// requiredByAny reports whether any non-excluded service declares a
// required dependency on id.
func requiredByAny(services []*catalog.Service, id string, excluded map[string]bool) bool {
	for _, svc := range services {
		if svc.ID() == id || excluded[svc.ID()] {
			continue
		}
		for _, dep := range svc.Requires {
			if dep.ID() == id {
				return true
			}
		}
	}
	return false
}

func serviceIDs(services []*catalog.Service) []string {
	ids := make([]string, len(services))
	for i, svc := range services {
		ids[i] = svc.ID()
	}
	return ids
}

// diffIDs returns the IDs present in a but not in b, sorted.
func diffIDs(a, b []string) []string {
	present := make(map[string]bool, len(b))
	for _, id := range b {
		present[id] = true
	}
	var out []string
	for _, id := range a {
		if !present[id] {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}
