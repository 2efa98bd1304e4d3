package relations

import (
	"strings"

	"github.com/steveyegge/j2o/internal/types"
)

// LinkRule maps one source link type to a target relation.
//
// Symmetric marks link types that the source records on both issues of a
// pair (for example "duplicates" / "is duplicated by"). Only the earlier
// created issue's occurrence is realized.
type LinkRule struct {
	Type      types.RelationType `toml:"type" yaml:"type"`
	Symmetric bool               `toml:"symmetric" yaml:"symmetric"`
}

// LinkTable maps source link type names to rules. Lookups ignore case.
type LinkTable map[string]LinkRule

// DefaultLinks covers Jira's stock link types.
func DefaultLinks() LinkTable {
	return LinkTable{
		"blocks":           {Type: types.RelBlocks},
		"duplicate":        {Type: types.RelDuplicates, Symmetric: true},
		"relates":          {Type: types.RelRelates, Symmetric: true},
		"cloners":          {Type: types.RelRelates},
		"problem/incident": {Type: types.RelRelates},
		"precedes":         {Type: types.RelPrecedes},
		"requires":         {Type: types.RelRequires},
	}
}

// Lookup returns the rule for name, or a plain "relates" rule when the
// name is not in the table.
func (t LinkTable) Lookup(name string) LinkRule {
	if rule, ok := t[name]; ok {
		return rule
	}
	lower := strings.ToLower(name)
	for k, rule := range t {
		if strings.ToLower(k) == lower {
			return rule
		}
	}
	return LinkRule{Type: types.RelRelates}
}

// Merge returns a copy of t with the entries of other added or replaced.
func (t LinkTable) Merge(other LinkTable) LinkTable {
	out := make(LinkTable, len(t)+len(other))
	for k, v := range t {
		out[strings.ToLower(k)] = v
	}
	for k, v := range other {
		out[strings.ToLower(k)] = v
	}
	return out
}
