package types

// RelationType is the target system's relation vocabulary.
type RelationType string

// Relation type constants. Every edge is directed "from <type> to":
// "A blocks B", "A duplicates B", "A precedes B", and for RelParent "A is a child of B".
const (
	RelRelates    RelationType = "relates"
	RelDuplicates RelationType = "duplicates"
	RelBlocks     RelationType = "blocks"
	RelPrecedes   RelationType = "precedes"
	RelFollows    RelationType = "follows"
	RelIncludes   RelationType = "includes"
	RelPartOf     RelationType = "partof"
	RelRequires   RelationType = "requires"

	// RelParent is hierarchical: the from side is the child, the to side the parent.
	// It is realized as the child's structural parent rather than a relation row.
	RelParent RelationType = "parent"
)

// IsHierarchical reports whether the relation sets a structural parent.
func (r RelationType) IsHierarchical() bool {
	return r == RelParent
}

// IsSymmetric reports whether "A r B" and "B r A" denote the same edge.
func (r RelationType) IsSymmetric() bool {
	return r == RelRelates
}

// IsWellKnown reports whether r is one of the built-in relation types.
func (r RelationType) IsWellKnown() bool {
	switch r {
	case RelRelates, RelDuplicates, RelBlocks, RelPrecedes, RelFollows,
		RelIncludes, RelPartOf, RelRequires, RelParent:
		return true
	}
	return false
}
