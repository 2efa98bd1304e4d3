// Package relations turns source issue links into target relations.
//
// Resolution runs in two phases. Phase 1 (Resolve) realizes every
// declaration whose endpoints are both mapped and returns the rest. Phase 2
// (Retry) runs once after all issues are synchronized, with the complete
// identity map, and returns what is still unresolved.
package relations

import (
	"time"

	"github.com/steveyegge/j2o/internal/types"
)

// Declaration is one directed relation between two source issues. For
// hierarchical types From is the child and To the parent.
type Declaration struct {
	From string
	To   string
	Type types.RelationType
}

// Batch holds the creation time of every issue in the current run.
type Batch map[string]time.Time

// NewBatch indexes issues by key.
func NewBatch(issues []*types.SourceIssue) Batch {
	b := make(Batch, len(issues))
	for _, issue := range issues {
		b[issue.Key] = issue.CreatedAt
	}
	return b
}

// owns reports whether owner's pass realizes a symmetric link to other: the
// earlier created issue owns the pair, ties go to the smaller key. When the
// other side is not in the batch its pass never happens, so owner keeps it.
func (b Batch) owns(owner, other string) bool {
	ownerAt, ok := b[owner]
	if !ok {
		return true
	}
	otherAt, ok := b[other]
	if !ok {
		return true
	}
	if ownerAt.Equal(otherAt) {
		return owner < other
	}
	return ownerAt.Before(otherAt)
}

// Derive computes the declarations of one issue. Links whose mirror is owned
// by the other issue are dropped and counted in suppressed.
func Derive(issue *types.SourceIssue, links LinkTable, batch Batch) (decls []Declaration, suppressed int) {
	if issue.ParentKey != "" && issue.ParentKey != issue.Key {
		decls = append(decls, Declaration{From: issue.Key, To: issue.ParentKey, Type: types.RelParent})
	}

	for _, link := range issue.Links {
		if link.OtherKey == "" || link.OtherKey == issue.Key {
			continue
		}
		rule := links.Lookup(link.Name)
		if rule.Symmetric && !batch.owns(issue.Key, link.OtherKey) {
			suppressed++
			continue
		}

		d := Declaration{From: issue.Key, To: link.OtherKey, Type: rule.Type}
		if link.Direction == types.LinkInward {
			d.From, d.To = link.OtherKey, issue.Key
		}
		decls = append(decls, d)
	}
	return decls, suppressed
}

// DeferredSet collects declarations that could not be resolved yet. Each
// declaration is held once; insertion order is kept.
type DeferredSet struct {
	items []Declaration
	seen  map[Declaration]bool
}

// Add records d unless it is already present. It reports whether d was new.
func (s *DeferredSet) Add(d Declaration) bool {
	if s.seen == nil {
		s.seen = make(map[Declaration]bool)
	}
	if s.seen[d] {
		return false
	}
	s.seen[d] = true
	s.items = append(s.items, d)
	return true
}

// Items returns the declarations in insertion order.
func (s *DeferredSet) Items() []Declaration {
	out := make([]Declaration, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of declarations.
func (s *DeferredSet) Len() int { return len(s.items) }
