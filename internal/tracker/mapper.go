package tracker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/steveyegge/j2o/internal/relations"
	"github.com/steveyegge/j2o/internal/types"
)

// Tables map source vocabulary names to target vocabulary names. Keys and
// values are matched without regard to case.
type Tables struct {
	Types      map[string]string `toml:"types" yaml:"types"`
	Statuses   map[string]string `toml:"statuses" yaml:"statuses"`
	Priorities map[string]string `toml:"priorities" yaml:"priorities"`

	// Links maps source link type names to target relations.
	Links relations.LinkTable `toml:"links" yaml:"links"`

	// UnknownStatus names the target status used for unmapped source statuses.
	UnknownStatus string `toml:"unknown_status" yaml:"unknown_status"`
}

// DefaultTables returns mappings for a stock Jira and OpenProject install.
func DefaultTables() *Tables {
	return &Tables{
		Types: map[string]string{
			"bug":         "Bug",
			"epic":        "Epic",
			"story":       "User story",
			"task":        "Task",
			"sub-task":    "Task",
			"subtask":     "Task",
			"feature":     "Feature",
			"new feature": "Feature",
			"improvement": "Feature",
		},
		Statuses: map[string]string{
			"open":        "New",
			"to do":       "New",
			"backlog":     "New",
			"in progress": "In progress",
			"in review":   "In progress",
			"blocked":     "On hold",
			"done":        "Closed",
			"closed":      "Closed",
			"resolved":    "Closed",
			"rejected":    "Rejected",
		},
		Priorities: map[string]string{
			"highest": "Immediate",
			"high":    "High",
			"medium":  "Normal",
			"low":     "Low",
			"lowest":  "Low",
		},
		Links:         relations.DefaultLinks(),
		UnknownStatus: "New",
	}
}

// Merge returns a copy of t overlaid with the non-empty entries of other.
func (t *Tables) Merge(other *Tables) *Tables {
	out := &Tables{
		Types:         mergeNames(t.Types, other.Types),
		Statuses:      mergeNames(t.Statuses, other.Statuses),
		Priorities:    mergeNames(t.Priorities, other.Priorities),
		Links:         t.Links.Merge(other.Links),
		UnknownStatus: t.UnknownStatus,
	}
	if other.UnknownStatus != "" {
		out.UnknownStatus = other.UnknownStatus
	}
	return out
}

func mergeNames(base, over map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(over))
	for k, v := range base {
		out[strings.ToLower(k)] = v
	}
	for k, v := range over {
		out[strings.ToLower(k)] = v
	}
	return out
}

// Vocabulary is the target system's type, status and priority lists.
type Vocabulary struct {
	Types      []types.VocabularyItem
	Statuses   []types.VocabularyItem
	Priorities []types.VocabularyItem
}

// ErrEmptyVocabulary is returned when the target offers no types.
var ErrEmptyVocabulary = errors.New("target has no work package types")

// Mapper resolves source names to target vocabulary IDs. It is built once per
// run and passed to the engine; nothing is cached globally.
type Mapper struct {
	tables *Tables
	vocab  *Vocabulary
}

// NewMapper pairs mapping tables with a loaded vocabulary.
func NewMapper(tables *Tables, vocab *Vocabulary) (*Mapper, error) {
	if vocab == nil || len(vocab.Types) == 0 {
		return nil, ErrEmptyVocabulary
	}
	if tables == nil {
		tables = DefaultTables()
	}
	return &Mapper{tables: tables, vocab: vocab}, nil
}

// TypeID maps a source issue type. Unmapped types get the first target type.
func (m *Mapper) TypeID(name string) (id int, known bool) {
	if item, ok := m.resolve(m.tables.Types, m.vocab.Types, name); ok {
		return item.ID, true
	}
	return m.vocab.Types[0].ID, false
}

// StatusID maps a source status. Unmapped statuses land in the unknown
// status bucket; known is false so the caller can count them.
func (m *Mapper) StatusID(name string) (id int, known bool) {
	if item, ok := m.resolve(m.tables.Statuses, m.vocab.Statuses, name); ok {
		return item.ID, true
	}
	if item, ok := findItem(m.vocab.Statuses, m.tables.UnknownStatus); ok {
		return item.ID, false
	}
	if item, ok := defaultItem(m.vocab.Statuses); ok {
		return item.ID, false
	}
	return 0, false
}

// PriorityID maps a source priority. Unmapped priorities get the target's
// declared default. 0 means the target has no priorities.
func (m *Mapper) PriorityID(name string) (id int, known bool) {
	if item, ok := m.resolve(m.tables.Priorities, m.vocab.Priorities, name); ok {
		return item.ID, true
	}
	if item, ok := defaultItem(m.vocab.Priorities); ok {
		return item.ID, false
	}
	return 0, false
}

// Links returns the link table.
func (m *Mapper) Links() relations.LinkTable {
	return m.tables.Links
}

// resolve maps name through table, then falls back to a target item with
// the same name.
func (m *Mapper) resolve(table map[string]string, items []types.VocabularyItem, name string) (types.VocabularyItem, bool) {
	if name == "" {
		return types.VocabularyItem{}, false
	}
	if target, ok := lookupName(table, name); ok {
		if item, ok := findItem(items, target); ok {
			return item, true
		}
	}
	return findItem(items, name)
}

func lookupName(table map[string]string, name string) (string, bool) {
	if v, ok := table[name]; ok {
		return v, true
	}
	for k, v := range table {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

func findItem(items []types.VocabularyItem, name string) (types.VocabularyItem, bool) {
	if name == "" {
		return types.VocabularyItem{}, false
	}
	for _, item := range items {
		if strings.EqualFold(item.Name, name) {
			return item, true
		}
	}
	return types.VocabularyItem{}, false
}

// defaultItem returns the item flagged default, else the first one.
func defaultItem(items []types.VocabularyItem) (types.VocabularyItem, bool) {
	for _, item := range items {
		if item.IsDefault {
			return item, true
		}
	}
	if len(items) > 0 {
		return items[0], true
	}
	return types.VocabularyItem{}, false
}

// Describe summarizes the vocabulary sizes for logs.
func (v *Vocabulary) Describe() string {
	return fmt.Sprintf("%d types, %d statuses, %d priorities", len(v.Types), len(v.Statuses), len(v.Priorities))
}
