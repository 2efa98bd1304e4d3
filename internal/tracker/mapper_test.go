package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/j2o/internal/relations"
	"github.com/steveyegge/j2o/internal/types"
)

func testVocabulary() *Vocabulary {
	return &Vocabulary{
		Types:      []types.VocabularyItem{{ID: 1, Name: "Task"}, {ID: 2, Name: "Bug"}, {ID: 5, Name: "Feature"}},
		Statuses:   []types.VocabularyItem{{ID: 3, Name: "In progress"}, {ID: 4, Name: "New", IsDefault: true}, {ID: 9, Name: "Closed"}},
		Priorities: []types.VocabularyItem{{ID: 7, Name: "Low"}, {ID: 8, Name: "Normal", IsDefault: true}},
	}
}

func TestMapperResolution(t *testing.T) {
	m, err := NewMapper(DefaultTables(), testVocabulary())
	require.NoError(t, err)

	tests := []struct {
		name  string
		fn    func(string) (int, bool)
		in    string
		want  int
		known bool
	}{
		{"type via table", m.TypeID, "Improvement", 5, true},
		{"type direct name", m.TypeID, "bug", 2, true},
		{"type unmapped", m.TypeID, "Spike", 1, false},
		{"type empty", m.TypeID, "", 1, false},
		{"status via table", m.StatusID, "Done", 9, true},
		{"status case-insensitive", m.StatusID, "IN PROGRESS", 3, true},
		{"status unmapped", m.StatusID, "Waiting for QA", 4, false},
		{"status table target missing", m.StatusID, "Blocked", 4, false},
		{"priority via table", m.PriorityID, "Lowest", 7, true},
		{"priority unmapped", m.PriorityID, "Critical", 8, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, known := tt.fn(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.known, known)
		})
	}
}

func TestMapperUnknownStatusBucket(t *testing.T) {
	tables := DefaultTables()
	tables.UnknownStatus = "closed"
	m, err := NewMapper(tables, testVocabulary())
	require.NoError(t, err)

	id, known := m.StatusID("Limbo")
	assert.Equal(t, 9, id)
	assert.False(t, known)
}

func TestMapperWithoutPriorities(t *testing.T) {
	vocab := testVocabulary()
	vocab.Priorities = nil
	m, err := NewMapper(nil, vocab)
	require.NoError(t, err)

	id, _ := m.PriorityID("High")
	assert.Zero(t, id)
}

func TestNewMapperRejectsEmptyVocabulary(t *testing.T) {
	_, err := NewMapper(DefaultTables(), &Vocabulary{})
	assert.ErrorIs(t, err, ErrEmptyVocabulary)
	_, err = NewMapper(DefaultTables(), nil)
	assert.ErrorIs(t, err, ErrEmptyVocabulary)
}

func TestTablesMerge(t *testing.T) {
	over := &Tables{
		Statuses:      map[string]string{"Awaiting Customer": "On hold", "DONE": "Resolved"},
		Links:         relations.LinkTable{"Causes": {Type: types.RelRelates}},
		UnknownStatus: "Triage",
	}
	merged := DefaultTables().Merge(over)

	assert.Equal(t, "On hold", merged.Statuses["awaiting customer"])
	assert.Equal(t, "Resolved", merged.Statuses["done"])
	assert.Equal(t, "New", merged.Statuses["open"])
	assert.Equal(t, "Triage", merged.UnknownStatus)
	assert.Equal(t, types.RelRelates, merged.Links.Lookup("causes").Type)
	assert.Equal(t, types.RelBlocks, merged.Links.Lookup("Blocks").Type)

	// The receiver is left untouched.
	assert.Equal(t, "Closed", DefaultTables().Statuses["done"])
}

func TestVocabularyDescribe(t *testing.T) {
	assert.Equal(t, "3 types, 3 statuses, 2 priorities", testVocabulary().Describe())
}
