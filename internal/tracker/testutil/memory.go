package testutil

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/steveyegge/j2o/internal/tracker"
	"github.com/steveyegge/j2o/internal/types"
)

type memEdge struct {
	from, to int
	rel      types.RelationType
}

// Upload records one artifact upload.
type Upload struct {
	WorkPackage int
	Filename    string
	Content     string
	ActAs       string
}

// PostedComment records one comment write.
type PostedComment struct {
	WorkPackage int
	Markup      string
	ActAs       string
}

// MemoryTarget is an in-memory target system. It enforces lock versions,
// rejects duplicate and cyclic relations and duplicate watchers the way the
// real system does.
type MemoryTarget struct {
	mu sync.Mutex

	Vocabulary *tracker.Vocabulary

	nextID      int
	nextArtID   int
	packages    map[int]*types.WorkPackage
	edges       map[memEdge]bool
	artifacts   map[int][]*types.Artifact
	activities  map[int][]*types.Activity
	watchers    map[int]map[int]bool
	Uploads     []Upload
	Comments    []PostedComment
	ProjectByID map[int]string
}

// NewMemoryTarget returns an empty target with a small default vocabulary.
func NewMemoryTarget() *MemoryTarget {
	return &MemoryTarget{
		Vocabulary: &tracker.Vocabulary{
			Types: []types.VocabularyItem{
				{ID: 1, Name: "Task"}, {ID: 2, Name: "Bug"}, {ID: 3, Name: "Epic"}, {ID: 4, Name: "User story"},
			},
			Statuses: []types.VocabularyItem{
				{ID: 1, Name: "New", IsDefault: true}, {ID: 7, Name: "In progress"}, {ID: 12, Name: "Closed"},
			},
			Priorities: []types.VocabularyItem{
				{ID: 7, Name: "Low"}, {ID: 8, Name: "Normal", IsDefault: true}, {ID: 9, Name: "High"}, {ID: 10, Name: "Immediate"},
			},
		},
		packages:    make(map[int]*types.WorkPackage),
		edges:       make(map[memEdge]bool),
		artifacts:   make(map[int][]*types.Artifact),
		activities:  make(map[int][]*types.Activity),
		watchers:    make(map[int]map[int]bool),
		ProjectByID: make(map[int]string),
	}
}

var _ tracker.TargetWriter = (*MemoryTarget)(nil)

func (m *MemoryTarget) LoadVocabulary(context.Context) (*tracker.Vocabulary, error) {
	if m.Vocabulary == nil {
		return nil, fmt.Errorf("vocabulary unavailable")
	}
	return m.Vocabulary, nil
}

func (m *MemoryTarget) CreateEntity(_ context.Context, projectID string, p *types.Payload) (*types.WorkPackage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	wp := &types.WorkPackage{ID: m.nextID, LockVersion: 1}
	tracker.ApplyPayload(wp, p)
	m.packages[wp.ID] = wp
	m.ProjectByID[wp.ID] = projectID
	cp := *wp
	return &cp, nil
}

func (m *MemoryTarget) UpdateEntity(_ context.Context, id int, p *types.Payload, expectedVersion int) (*types.WorkPackage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wp, ok := m.packages[id]
	if !ok {
		return nil, fmt.Errorf("work package %d: %w", id, types.ErrNotFound)
	}
	if wp.LockVersion != expectedVersion {
		return nil, fmt.Errorf("work package %d at version %d, got %d: %w", id, wp.LockVersion, expectedVersion, types.ErrStaleVersion)
	}
	tracker.ApplyPayload(wp, p)
	wp.LockVersion++
	cp := *wp
	return &cp, nil
}

func (m *MemoryTarget) GetEntity(_ context.Context, id int) (*types.WorkPackage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wp, ok := m.packages[id]
	if !ok {
		return nil, fmt.Errorf("work package %d: %w", id, types.ErrNotFound)
	}
	cp := *wp
	return &cp, nil
}

// Bump advances a work package's lock version as a concurrent editor would.
func (m *MemoryTarget) Bump(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if wp, ok := m.packages[id]; ok {
		wp.LockVersion++
	}
}

func (m *MemoryTarget) ListEntitiesByCorrelationKey(_ context.Context, projectID string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int)
	for _, id := range m.sortedIDs() {
		wp := m.packages[id]
		if wp.CorrelationKey == "" || m.ProjectByID[id] != projectID {
			continue
		}
		if _, ok := out[wp.CorrelationKey]; !ok {
			out[wp.CorrelationKey] = id
		}
	}
	return out, nil
}

func (m *MemoryTarget) FindEntityByCorrelationKey(_ context.Context, projectID, key string) (*types.WorkPackage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.sortedIDs() {
		wp := m.packages[id]
		if wp.CorrelationKey == key && m.ProjectByID[id] == projectID {
			cp := *wp
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryTarget) CreateEdge(_ context.Context, fromID, toID int, rel types.RelationType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.packages[fromID]; !ok {
		return fmt.Errorf("work package %d: %w", fromID, types.ErrNotFound)
	}
	if _, ok := m.packages[toID]; !ok {
		return fmt.Errorf("work package %d: %w", toID, types.ErrNotFound)
	}
	if fromID == toID {
		return types.ErrEdgeCycle
	}

	if rel.IsHierarchical() {
		child := m.packages[fromID]
		if child.ParentID == toID {
			return types.ErrEdgeExists
		}
		for p := m.packages[toID].ParentID; p != 0; p = m.packages[p].ParentID {
			if p == fromID {
				return types.ErrEdgeCycle
			}
		}
		child.ParentID = toID
		child.LockVersion++
		return nil
	}

	if m.edges[memEdge{fromID, toID, rel}] {
		return types.ErrEdgeExists
	}
	if m.edges[memEdge{toID, fromID, rel}] {
		if rel.IsSymmetric() {
			return types.ErrEdgeExists
		}
		return types.ErrEdgeCycle
	}
	m.edges[memEdge{fromID, toID, rel}] = true
	return nil
}

func (m *MemoryTarget) FindEdge(_ context.Context, fromID, toID int, rel types.RelationType) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.edges[memEdge{fromID, toID, rel}], nil
}

// Edges returns every non-hierarchical relation as "from type to".
func (m *MemoryTarget) Edges() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for e := range m.edges {
		out = append(out, fmt.Sprintf("%d %s %d", e.from, e.rel, e.to))
	}
	sort.Strings(out)
	return out
}

func (m *MemoryTarget) ListArtifacts(_ context.Context, id int) ([]*types.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*types.Artifact(nil), m.artifacts[id]...), nil
}

func (m *MemoryTarget) UploadArtifact(_ context.Context, id int, filename string, content io.Reader, actAs string) (*types.Artifact, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.packages[id]; !ok {
		return nil, fmt.Errorf("work package %d: %w", id, types.ErrNotFound)
	}
	m.nextArtID++
	art := &types.Artifact{
		ID:       m.nextArtID,
		Filename: filename,
		Href:     fmt.Sprintf("/api/v3/attachments/%d/content", m.nextArtID),
	}
	m.artifacts[id] = append(m.artifacts[id], art)
	m.Uploads = append(m.Uploads, Upload{WorkPackage: id, Filename: filename, Content: string(data), ActAs: actAs})
	return art, nil
}

func (m *MemoryTarget) ListActivity(_ context.Context, id int) ([]*types.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*types.Activity(nil), m.activities[id]...), nil
}

func (m *MemoryTarget) PostComment(_ context.Context, id int, markup, actAs string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.packages[id]; !ok {
		return fmt.Errorf("work package %d: %w", id, types.ErrNotFound)
	}
	act := &types.Activity{ID: len(m.Comments) + 1, Comment: markup}
	m.activities[id] = append(m.activities[id], act)
	m.Comments = append(m.Comments, PostedComment{WorkPackage: id, Markup: markup, ActAs: actAs})
	return nil
}

func (m *MemoryTarget) AddWatcher(_ context.Context, id int, user types.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watchers[id] == nil {
		m.watchers[id] = make(map[int]bool)
	}
	if m.watchers[id][user.ID] {
		return types.ErrAlreadyWatching
	}
	m.watchers[id][user.ID] = true
	return nil
}

// Watchers returns the user IDs watching a work package.
func (m *MemoryTarget) Watchers(id int) []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []int
	for uid := range m.watchers[id] {
		out = append(out, uid)
	}
	sort.Ints(out)
	return out
}

// Package returns a copy of a stored work package, or nil.
func (m *MemoryTarget) Package(id int) *types.WorkPackage {
	m.mu.Lock()
	defer m.mu.Unlock()
	wp, ok := m.packages[id]
	if !ok {
		return nil
	}
	cp := *wp
	return &cp
}

// Count returns the number of work packages.
func (m *MemoryTarget) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.packages)
}

func (m *MemoryTarget) sortedIDs() []int {
	ids := make([]int, 0, len(m.packages))
	for id := range m.packages {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
