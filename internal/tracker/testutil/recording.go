package testutil

import (
	"context"
	"io"
	"sync"

	"github.com/steveyegge/j2o/internal/tracker"
	"github.com/steveyegge/j2o/internal/types"
)

// RecordingWriter forwards every call to Inner and records each attempted
// mutation, successful or not.
type RecordingWriter struct {
	Inner tracker.TargetWriter

	mu        sync.Mutex
	mutations []tracker.Mutation
}

// NewRecordingWriter wraps w.
func NewRecordingWriter(w tracker.TargetWriter) *RecordingWriter {
	return &RecordingWriter{Inner: w}
}

var _ tracker.TargetWriter = (*RecordingWriter)(nil)

// Mutations returns the recorded mutations in call order.
func (r *RecordingWriter) Mutations() []tracker.Mutation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tracker.Mutation(nil), r.mutations...)
}

func (r *RecordingWriter) record(m tracker.Mutation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mutations = append(r.mutations, m)
}

func (r *RecordingWriter) LoadVocabulary(ctx context.Context) (*tracker.Vocabulary, error) {
	return r.Inner.LoadVocabulary(ctx)
}

func (r *RecordingWriter) CreateEntity(ctx context.Context, projectID string, p *types.Payload) (*types.WorkPackage, error) {
	r.record(tracker.CreateMutation(p))
	return r.Inner.CreateEntity(ctx, projectID, p)
}

func (r *RecordingWriter) UpdateEntity(ctx context.Context, id int, p *types.Payload, expectedVersion int) (*types.WorkPackage, error) {
	r.record(tracker.UpdateMutation(id, p))
	return r.Inner.UpdateEntity(ctx, id, p, expectedVersion)
}

func (r *RecordingWriter) GetEntity(ctx context.Context, id int) (*types.WorkPackage, error) {
	return r.Inner.GetEntity(ctx, id)
}

func (r *RecordingWriter) ListEntitiesByCorrelationKey(ctx context.Context, projectID string) (map[string]int, error) {
	return r.Inner.ListEntitiesByCorrelationKey(ctx, projectID)
}

func (r *RecordingWriter) FindEntityByCorrelationKey(ctx context.Context, projectID, key string) (*types.WorkPackage, error) {
	return r.Inner.FindEntityByCorrelationKey(ctx, projectID, key)
}

func (r *RecordingWriter) CreateEdge(ctx context.Context, fromID, toID int, rel types.RelationType) error {
	r.record(tracker.EdgeMutation(fromID, toID, rel))
	return r.Inner.CreateEdge(ctx, fromID, toID, rel)
}

func (r *RecordingWriter) FindEdge(ctx context.Context, fromID, toID int, rel types.RelationType) (bool, error) {
	return r.Inner.FindEdge(ctx, fromID, toID, rel)
}

func (r *RecordingWriter) ListArtifacts(ctx context.Context, id int) ([]*types.Artifact, error) {
	return r.Inner.ListArtifacts(ctx, id)
}

func (r *RecordingWriter) UploadArtifact(ctx context.Context, id int, filename string, content io.Reader, actAs string) (*types.Artifact, error) {
	r.record(tracker.UploadMutation(id, filename, actAs))
	return r.Inner.UploadArtifact(ctx, id, filename, content, actAs)
}

func (r *RecordingWriter) ListActivity(ctx context.Context, id int) ([]*types.Activity, error) {
	return r.Inner.ListActivity(ctx, id)
}

func (r *RecordingWriter) PostComment(ctx context.Context, id int, markup, actAs string) error {
	r.record(tracker.CommentMutation(id, markup, actAs))
	return r.Inner.PostComment(ctx, id, markup, actAs)
}

func (r *RecordingWriter) AddWatcher(ctx context.Context, id int, user types.User) error {
	r.record(tracker.WatcherMutation(id, user))
	return r.Inner.AddWatcher(ctx, id, user)
}
