package relations

import (
	"context"
	"errors"
	"fmt"

	"github.com/steveyegge/j2o/internal/types"
)

// EdgeWriter is the part of the target system the resolver needs.
type EdgeWriter interface {
	GetEntity(ctx context.Context, id int) (*types.WorkPackage, error)
	FindEdge(ctx context.Context, fromID, toID int, rel types.RelationType) (bool, error)
	CreateEdge(ctx context.Context, fromID, toID int, rel types.RelationType) error
}

// Lookup resolves source keys to target IDs. *idmap.Map implements it.
type Lookup interface {
	Get(key string) (int, bool)
}

// Overlay layers extra entries over a base lookup.
type Overlay struct {
	Base  Lookup
	Extra map[string]int
}

// Get checks Base first, then Extra.
func (o Overlay) Get(key string) (int, bool) {
	if id, ok := o.Base.Get(key); ok {
		return id, true
	}
	id, ok := o.Extra[key]
	return id, ok
}

// Outcome is the result of one resolution attempt.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeExisted Outcome = "existed" // already present; counts as success
	OutcomeFailed  Outcome = "failed"
)

// Result records how one declaration was realized.
type Result struct {
	Declaration
	FromID  int
	ToID    int
	Outcome Outcome
	Err     error
}

// Resolver realizes declarations in the target system. A declaration that
// succeeded once is not attempted again by the same Resolver; the source
// reports most links on both issues of a pair.
type Resolver struct {
	Writer EdgeWriter

	done map[Declaration]bool
}

// New returns a resolver writing through w.
func New(w EdgeWriter) *Resolver {
	return &Resolver{Writer: w, done: make(map[Declaration]bool)}
}

// Resolve is phase 1: declarations with both endpoints mapped are realized,
// the others are returned in deferred.
func (r *Resolver) Resolve(ctx context.Context, decls []Declaration, lookup Lookup) (results []Result, deferred []Declaration) {
	for _, d := range decls {
		fromID, fromOK := lookup.Get(d.From)
		toID, toOK := lookup.Get(d.To)
		if !fromOK || !toOK {
			deferred = append(deferred, d)
			continue
		}
		if r.done[d] {
			continue
		}
		res := r.apply(ctx, d, fromID, toID)
		if res.Outcome != OutcomeFailed {
			if r.done == nil {
				r.done = make(map[Declaration]bool)
			}
			r.done[d] = true
		}
		results = append(results, res)
	}
	return results, deferred
}

// Retry is phase 2: one sweep over the deferred declarations with the
// complete lookup. Declarations still unresolved are returned in remaining
// and are not retried again.
func (r *Resolver) Retry(ctx context.Context, deferred []Declaration, lookup Lookup) (results []Result, remaining []Declaration) {
	var set DeferredSet
	for _, d := range deferred {
		set.Add(d)
	}
	return r.Resolve(ctx, set.Items(), lookup)
}

// Missing lists the keys referenced by decls that lookup cannot resolve,
// each once, in order of first appearance.
func Missing(decls []Declaration, lookup Lookup) []string {
	var keys []string
	seen := make(map[string]bool)
	for _, d := range decls {
		for _, k := range []string{d.From, d.To} {
			if seen[k] {
				continue
			}
			seen[k] = true
			if _, ok := lookup.Get(k); !ok {
				keys = append(keys, k)
			}
		}
	}
	return keys
}

func (r *Resolver) apply(ctx context.Context, d Declaration, fromID, toID int) Result {
	res := Result{Declaration: d, FromID: fromID, ToID: toID}

	exists, err := r.exists(ctx, d.Type, fromID, toID)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = fmt.Errorf("check %s %s %s: %w", d.From, d.Type, d.To, err)
		return res
	}
	if exists {
		res.Outcome = OutcomeExisted
		return res
	}

	err = r.Writer.CreateEdge(ctx, fromID, toID, d.Type)
	switch {
	case err == nil:
		res.Outcome = OutcomeCreated
	case errors.Is(err, types.ErrEdgeExists), errors.Is(err, types.ErrEdgeCycle):
		res.Outcome = OutcomeExisted
	default:
		res.Outcome = OutcomeFailed
		res.Err = fmt.Errorf("create %s %s %s: %w", d.From, d.Type, d.To, err)
	}
	return res
}

// exists checks the target for the edge. A hierarchical edge exists when the
// child (fromID) already has the parent (toID) set; other edges are looked up
// in the declared direction, and in reverse for symmetric types.
func (r *Resolver) exists(ctx context.Context, rel types.RelationType, fromID, toID int) (bool, error) {
	if rel.IsHierarchical() {
		child, err := r.Writer.GetEntity(ctx, fromID)
		if err != nil {
			return false, err
		}
		return child.ParentID == toID, nil
	}

	found, err := r.Writer.FindEdge(ctx, fromID, toID, rel)
	if err != nil || found {
		return found, err
	}
	if rel.IsSymmetric() {
		return r.Writer.FindEdge(ctx, toID, fromID, rel)
	}
	return false, nil
}

// Report summarizes a complete reconciliation.
type Report struct {
	Results    []Result
	Suppressed int
	Deferred   int           // declarations deferred in phase 1
	Unresolved []Declaration // still unresolved after the retry sweep
}

// Count returns the number of results with the given outcome.
func (rep *Report) Count(o Outcome) int {
	n := 0
	for _, res := range rep.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Reconcile runs both phases over a set of issues whose identity map is
// already complete.
func (r *Resolver) Reconcile(ctx context.Context, issues []*types.SourceIssue, links LinkTable, lookup Lookup) *Report {
	batch := NewBatch(issues)
	rep := &Report{}
	var deferred DeferredSet

	for _, issue := range issues {
		decls, suppressed := Derive(issue, links, batch)
		rep.Suppressed += suppressed
		results, unresolved := r.Resolve(ctx, decls, lookup)
		rep.Results = append(rep.Results, results...)
		for _, d := range unresolved {
			deferred.Add(d)
		}
	}

	rep.Deferred = deferred.Len()
	results, remaining := r.Retry(ctx, deferred.Items(), lookup)
	rep.Results = append(rep.Results, results...)
	rep.Unresolved = remaining
	return rep
}
