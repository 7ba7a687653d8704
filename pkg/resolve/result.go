package resolve

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/launchforge/forgekit/pkg/catalog"
	"github.com/launchforge/forgekit/pkg/dag"
	"github.com/launchforge/forgekit/pkg/errors"
)

// State is one step of the per-request resolution state machine.
//
// Transitions: Pending → Merging → Expanding → DetectingCycles → Ordering →
// ValidatingCompatibility → (Succeeded | Failed), and Succeeded → Cached.
// Failed is terminal and reachable from Expanding (missing dependency),
// DetectingCycles (critical cycle), and ValidatingCompatibility
// (unresolved conflict).
type State string

const (
	StatePending    State = "pending"
	StateMerging    State = "merging"
	StateExpanding  State = "expanding"
	StateDetecting  State = "detecting-cycles"
	StateOrdering   State = "ordering"
	StateValidating State = "validating-compatibility"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
	StateCached     State = "cached"
)

// Severity classifies a resolution issue.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Issue is one structured problem found during resolution. Critical issues
// land in Result.Errors and abort the pipeline; warnings land in
// Result.Warnings and do not.
type Issue struct {
	Code     errors.Code `json:"code"`
	Severity Severity    `json:"severity"`
	Message  string      `json:"message"`

	// Services names the services involved, when known.
	Services []string `json:"services,omitempty"`

	// Cycle is the ordered node list for circular-dependency issues.
	Cycle []string `json:"cycle,omitempty"`
}

// Result is the outcome of one resolution call. It is created once per
// call and never mutated afterwards; cached results are byte-identical to
// fresh ones except for CacheHit.
type Result struct {
	// RequestID uniquely identifies this resolution run.
	RequestID string `json:"request_id"`

	// Ordered is the injection order: every dependency precedes its
	// dependents. Empty when resolution failed.
	Ordered []*catalog.Service `json:"ordered"`

	// Errors are the critical issues that caused resolution to fail.
	Errors []Issue `json:"errors,omitempty"`

	// Warnings are non-fatal issues: soft cycles that were auto-broken,
	// compatibility mismatches, collision notes from merging.
	Warnings []Issue `json:"warnings,omitempty"`

	// CacheHit reports whether the result came from the resolution cache.
	CacheHit bool `json:"cache_hit"`

	// Score is set when an optimizer pass ran.
	Score *float64 `json:"score,omitempty"`

	// State is the terminal state the request reached.
	State State `json:"state"`

	// Duration is the wall-clock time resolution took.
	Duration time.Duration `json:"duration"`

	// graph and requested survive only in fresh (non-cached) results;
	// the optimizer and suggestions rebuild them when absent.
	graph     *dag.Graph
	requested []catalog.Ref
}

// OK reports whether resolution succeeded.
func (r *Result) OK() bool { return len(r.Errors) == 0 }

// OrderedIDs returns the injection order as service IDs.
func (r *Result) OrderedIDs() []string {
	ids := make([]string, len(r.Ordered))
	for i, svc := range r.Ordered {
		ids[i] = svc.ID()
	}
	return ids
}

// Graph returns the dependency graph backing this result, or nil for
// results restored from cache.
func (r *Result) Graph() *dag.Graph { return r.graph }

// Requested returns the merged requested refs, or nil for results
// restored from cache.
func (r *Result) Requested() []catalog.Ref { return slices.Clone(r.requested) }

// marshalResult serializes a result for caching. CacheHit and RequestID
// are stripped: a hit must be content-identical to a fresh resolution, and
// each call gets its own request ID.
func marshalResult(r *Result) ([]byte, error) {
	clone := *r
	clone.CacheHit = false
	clone.RequestID = ""
	return json.Marshal(&clone)
}

// unmarshalResult restores a cached result. Corrupt payloads return a
// CACHE_CORRUPTION error; the caller evicts and resolves fresh.
func unmarshalResult(data []byte) (*Result, error) {
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCacheCorruption, err, "decode cached resolution")
	}
	if r.State != StateSucceeded && r.State != StateFailed {
		return nil, errors.New(errors.ErrCodeCacheCorruption, "cached resolution in state %q", r.State)
	}
	return &r, nil
}

// issueForError converts an error from a pipeline phase into an Issue.
func issueForError(err error, services ...string) Issue {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	return Issue{
		Code:     code,
		Severity: SeverityCritical,
		Message:  errors.UserMessage(err),
		Services: services,
	}
}
