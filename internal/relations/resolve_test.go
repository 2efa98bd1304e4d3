package relations

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/j2o/internal/types"
)

type edge struct {
	from, to int
	rel      types.RelationType
}

// fakeEdges is an in-memory edge store that records create calls.
type fakeEdges struct {
	parents   map[int]int
	edges     map[edge]bool
	creates   []edge
	createErr error
}

func newFakeEdges() *fakeEdges {
	return &fakeEdges{parents: make(map[int]int), edges: make(map[edge]bool)}
}

func (f *fakeEdges) GetEntity(_ context.Context, id int) (*types.WorkPackage, error) {
	return &types.WorkPackage{ID: id, ParentID: f.parents[id]}, nil
}

func (f *fakeEdges) FindEdge(_ context.Context, from, to int, rel types.RelationType) (bool, error) {
	return f.edges[edge{from, to, rel}], nil
}

func (f *fakeEdges) CreateEdge(_ context.Context, from, to int, rel types.RelationType) error {
	f.creates = append(f.creates, edge{from, to, rel})
	if f.createErr != nil {
		return f.createErr
	}
	if rel.IsHierarchical() {
		f.parents[from] = to
		return nil
	}
	f.edges[edge{from, to, rel}] = true
	return nil
}

type mapLookup map[string]int

func (m mapLookup) Get(key string) (int, bool) {
	id, ok := m[key]
	return id, ok
}

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func issue(key string, created time.Time, links ...types.Link) *types.SourceIssue {
	return &types.SourceIssue{Key: key, CreatedAt: created, Links: links}
}

func TestDeriveDirection(t *testing.T) {
	batch := Batch{"A-1": t0, "A-2": t0.Add(time.Hour)}

	tests := []struct {
		name string
		link types.Link
		want Declaration
	}{
		{
			name: "outward keeps owner as from",
			link: types.Link{Name: "Blocks", Direction: types.LinkOutward, OtherKey: "A-2"},
			want: Declaration{From: "A-1", To: "A-2", Type: types.RelBlocks},
		},
		{
			name: "inward puts other as from",
			link: types.Link{Name: "Blocks", Direction: types.LinkInward, OtherKey: "A-2"},
			want: Declaration{From: "A-2", To: "A-1", Type: types.RelBlocks},
		},
		{
			name: "unknown link type defaults to relates",
			link: types.Link{Name: "Frobnicates", Direction: types.LinkOutward, OtherKey: "A-2"},
			want: Declaration{From: "A-1", To: "A-2", Type: types.RelRelates},
		},
		{
			name: "lookup ignores case",
			link: types.Link{Name: "BLOCKS", Direction: types.LinkOutward, OtherKey: "A-2"},
			want: Declaration{From: "A-1", To: "A-2", Type: types.RelBlocks},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decls, suppressed := Derive(issue("A-1", t0, tt.link), DefaultLinks(), batch)
			assert.Zero(t, suppressed)
			assert.Equal(t, []Declaration{tt.want}, decls)
		})
	}
}

func TestDeriveParent(t *testing.T) {
	child := issue("A-2", t0)
	child.ParentKey = "A-1"
	decls, _ := Derive(child, DefaultLinks(), Batch{})
	assert.Equal(t, []Declaration{{From: "A-2", To: "A-1", Type: types.RelParent}}, decls)
}

func TestDeriveSkipsSelfAndEmptyLinks(t *testing.T) {
	i := issue("A-1", t0,
		types.Link{Name: "Blocks", OtherKey: "A-1"},
		types.Link{Name: "Blocks", OtherKey: ""},
	)
	decls, _ := Derive(i, DefaultLinks(), Batch{})
	assert.Empty(t, decls)
}

func TestDuplicatePairSuppression(t *testing.T) {
	a := issue("A-1", t0, types.Link{Name: "Duplicate", Direction: types.LinkOutward, OtherKey: "A-2"})
	b := issue("A-2", t0.Add(time.Minute), types.Link{Name: "Duplicate", Direction: types.LinkInward, OtherKey: "A-1"})
	batch := NewBatch([]*types.SourceIssue{a, b})

	declsA, suppressedA := Derive(a, DefaultLinks(), batch)
	declsB, suppressedB := Derive(b, DefaultLinks(), batch)
	assert.Equal(t, []Declaration{{From: "A-1", To: "A-2", Type: types.RelDuplicates}}, declsA)
	assert.Zero(t, suppressedA)
	assert.Empty(t, declsB)
	assert.Equal(t, 1, suppressedB)

	w := newFakeEdges()
	rep := New(w).Reconcile(context.Background(), []*types.SourceIssue{a, b}, DefaultLinks(), mapLookup{"A-1": 1, "A-2": 2})
	assert.Equal(t, []edge{{1, 2, types.RelDuplicates}}, w.creates)
	assert.Equal(t, 1, rep.Suppressed)
	assert.Equal(t, 1, rep.Count(OutcomeCreated))
}

func TestSuppressionLaterOwnerKeepsDirection(t *testing.T) {
	// The issue declaring "duplicates" outward is the later one; the earlier
	// issue's inward occurrence realizes the edge with the declared direction.
	a := issue("A-5", t0.Add(time.Hour), types.Link{Name: "Duplicate", Direction: types.LinkOutward, OtherKey: "A-3"})
	b := issue("A-3", t0, types.Link{Name: "Duplicate", Direction: types.LinkInward, OtherKey: "A-5"})
	batch := NewBatch([]*types.SourceIssue{a, b})

	declsA, _ := Derive(a, DefaultLinks(), batch)
	declsB, _ := Derive(b, DefaultLinks(), batch)
	assert.Empty(t, declsA)
	assert.Equal(t, []Declaration{{From: "A-5", To: "A-3", Type: types.RelDuplicates}}, declsB)
}

func TestSuppressionTieBreak(t *testing.T) {
	a := issue("A-10", t0, types.Link{Name: "Duplicate", Direction: types.LinkOutward, OtherKey: "A-9"})
	b := issue("A-9", t0, types.Link{Name: "Duplicate", Direction: types.LinkInward, OtherKey: "A-10"})
	batch := NewBatch([]*types.SourceIssue{a, b})

	// "A-10" < "A-9" lexically, so A-10 owns the pair.
	declsA, _ := Derive(a, DefaultLinks(), batch)
	declsB, suppressed := Derive(b, DefaultLinks(), batch)
	assert.Len(t, declsA, 1)
	assert.Empty(t, declsB)
	assert.Equal(t, 1, suppressed)
}

func TestSuppressionOtherOutsideBatch(t *testing.T) {
	b := issue("A-9", t0.Add(time.Hour), types.Link{Name: "Duplicate", Direction: types.LinkInward, OtherKey: "OTHER-1"})
	decls, suppressed := Derive(b, DefaultLinks(), NewBatch([]*types.SourceIssue{b}))
	assert.Zero(t, suppressed)
	assert.Equal(t, []Declaration{{From: "OTHER-1", To: "A-9", Type: types.RelDuplicates}}, decls)
}

func TestParentDirectionFidelity(t *testing.T) {
	for _, order := range [][]string{{"A-1", "A-2"}, {"A-2", "A-1"}} {
		t.Run(order[0]+" first", func(t *testing.T) {
			child := issue("A-1", t0)
			child.ParentKey = "A-2"
			parent := issue("A-2", t0.Add(time.Minute))
			byKey := map[string]*types.SourceIssue{"A-1": child, "A-2": parent}
			issues := []*types.SourceIssue{byKey[order[0]], byKey[order[1]]}

			w := newFakeEdges()
			rep := New(w).Reconcile(context.Background(), issues, DefaultLinks(), mapLookup{"A-1": 1, "A-2": 2})
			require.Empty(t, rep.Unresolved)
			assert.Equal(t, 2, w.parents[1], "child must point at parent")
			assert.Zero(t, w.parents[2], "parent must not be made a child")
		})
	}
}

func TestHierarchicalExistenceUsesChild(t *testing.T) {
	w := newFakeEdges()
	w.parents[1] = 2
	r := New(w)

	results, deferred := r.Resolve(context.Background(),
		[]Declaration{{From: "A-1", To: "A-2", Type: types.RelParent}},
		mapLookup{"A-1": 1, "A-2": 2})
	assert.Empty(t, deferred)
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeExisted, results[0].Outcome)
	assert.Empty(t, w.creates)
}

func TestSymmetricExistenceChecksReverse(t *testing.T) {
	w := newFakeEdges()
	w.edges[edge{2, 1, types.RelRelates}] = true

	results, _ := New(w).Resolve(context.Background(),
		[]Declaration{{From: "A-1", To: "A-2", Type: types.RelRelates}},
		mapLookup{"A-1": 1, "A-2": 2})
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeExisted, results[0].Outcome)
	assert.Empty(t, w.creates)
}

func TestDirectedExistenceIgnoresReverse(t *testing.T) {
	w := newFakeEdges()
	w.edges[edge{2, 1, types.RelBlocks}] = true

	results, _ := New(w).Resolve(context.Background(),
		[]Declaration{{From: "A-1", To: "A-2", Type: types.RelBlocks}},
		mapLookup{"A-1": 1, "A-2": 2})
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeCreated, results[0].Outcome)
}

func TestExpectedRejectionsAreSuccess(t *testing.T) {
	for _, err := range []error{types.ErrEdgeExists, types.ErrEdgeCycle} {
		t.Run(err.Error(), func(t *testing.T) {
			w := newFakeEdges()
			w.createErr = errors.Join(errors.New("422"), err)
			results, _ := New(w).Resolve(context.Background(),
				[]Declaration{{From: "A-1", To: "A-2", Type: types.RelPrecedes}},
				mapLookup{"A-1": 1, "A-2": 2})
			require.Len(t, results, 1)
			assert.Equal(t, OutcomeExisted, results[0].Outcome)
			assert.NoError(t, results[0].Err)
		})
	}
}

func TestFailureIsReportedAndRetryable(t *testing.T) {
	w := newFakeEdges()
	w.createErr = errors.New("boom")
	r := New(w)
	d := []Declaration{{From: "A-1", To: "A-2", Type: types.RelBlocks}}
	lookup := mapLookup{"A-1": 1, "A-2": 2}

	results, _ := r.Resolve(context.Background(), d, lookup)
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeFailed, results[0].Outcome)
	assert.ErrorContains(t, results[0].Err, "boom")

	w.createErr = nil
	results, _ = r.Resolve(context.Background(), d, lookup)
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeCreated, results[0].Outcome)
}

func TestRepeatedDeclarationAttemptedOnce(t *testing.T) {
	a := issue("A-1", t0, types.Link{Name: "Blocks", Direction: types.LinkOutward, OtherKey: "A-2"})
	b := issue("A-2", t0.Add(time.Minute), types.Link{Name: "Blocks", Direction: types.LinkInward, OtherKey: "A-1"})

	w := newFakeEdges()
	rep := New(w).Reconcile(context.Background(), []*types.SourceIssue{a, b}, DefaultLinks(), mapLookup{"A-1": 1, "A-2": 2})
	assert.Len(t, w.creates, 1)
	assert.Len(t, rep.Results, 1)
}

func TestDeferredConvergence(t *testing.T) {
	a := issue("A-1", t0, types.Link{Name: "Blocks", Direction: types.LinkOutward, OtherKey: "A-2"})
	lookup := mapLookup{"A-1": 1}
	w := newFakeEdges()
	r := New(w)

	decls, _ := Derive(a, DefaultLinks(), Batch{"A-1": t0, "A-2": t0.Add(time.Hour)})
	results, deferred := r.Resolve(context.Background(), decls, lookup)
	assert.Empty(t, results)
	require.Equal(t, decls, deferred)

	// A-2 is synchronized later in the run.
	lookup["A-2"] = 2
	results, remaining := r.Retry(context.Background(), deferred, lookup)
	assert.Empty(t, remaining)
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeCreated, results[0].Outcome)
	assert.True(t, w.edges[edge{1, 2, types.RelBlocks}])
}

func TestRetryReportsRemainder(t *testing.T) {
	d := Declaration{From: "A-1", To: "GONE-1", Type: types.RelRelates}
	results, remaining := New(newFakeEdges()).Retry(context.Background(), []Declaration{d, d}, mapLookup{"A-1": 1})
	assert.Empty(t, results)
	assert.Equal(t, []Declaration{d}, remaining)
}

func TestDeferredSetDeduplicates(t *testing.T) {
	var s DeferredSet
	d := Declaration{From: "A", To: "B", Type: types.RelBlocks}
	assert.True(t, s.Add(d))
	assert.False(t, s.Add(d))
	assert.True(t, s.Add(Declaration{From: "B", To: "A", Type: types.RelBlocks}))
	assert.Equal(t, 2, s.Len())
}

func TestMissingAndOverlay(t *testing.T) {
	decls := []Declaration{
		{From: "A-1", To: "X-1", Type: types.RelRelates},
		{From: "X-1", To: "X-2", Type: types.RelBlocks},
	}
	base := mapLookup{"A-1": 1}
	assert.Equal(t, []string{"X-1", "X-2"}, Missing(decls, base))

	o := Overlay{Base: base, Extra: map[string]int{"X-1": 50}}
	assert.Equal(t, []string{"X-2"}, Missing(decls, o))
	id, ok := o.Get("X-1")
	assert.True(t, ok)
	assert.Equal(t, 50, id)
}
