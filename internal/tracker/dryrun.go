package tracker

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/steveyegge/j2o/internal/types"
)

// Mutation describes one write to the target. Target is the work package ID
// the write applies to (0 for creates); Detail carries the write's content
// without IDs, so live and dry runs over the same input describe equal
// mutations.
type Mutation struct {
	Op     string `json:"op" yaml:"op"`
	Target int    `json:"target,omitempty" yaml:"target,omitempty"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Mutation operation names.
const (
	OpCreateEntity   = "create_entity"
	OpUpdateEntity   = "update_entity"
	OpCreateEdge     = "create_edge"
	OpUploadArtifact = "upload_artifact"
	OpPostComment    = "post_comment"
	OpAddWatcher     = "add_watcher"
)

func (m Mutation) String() string {
	if m.Detail == "" {
		return m.Op
	}
	return m.Op + " " + m.Detail
}

// CreateMutation describes a CreateEntity call.
func CreateMutation(p *types.Payload) Mutation {
	return Mutation{Op: OpCreateEntity, Detail: payloadDetail(p)}
}

// UpdateMutation describes an UpdateEntity call.
func UpdateMutation(id int, p *types.Payload) Mutation {
	return Mutation{Op: OpUpdateEntity, Target: id, Detail: payloadDetail(p)}
}

// EdgeMutation describes a CreateEdge call.
func EdgeMutation(fromID, toID int, rel types.RelationType) Mutation {
	return Mutation{Op: OpCreateEdge, Target: fromID, Detail: string(rel)}
}

// UploadMutation describes an UploadArtifact call.
func UploadMutation(id int, filename, actAs string) Mutation {
	return Mutation{Op: OpUploadArtifact, Target: id, Detail: withActor(filename, actAs)}
}

// CommentMutation describes a PostComment call.
func CommentMutation(id int, markup, actAs string) Mutation {
	return Mutation{Op: OpPostComment, Target: id, Detail: withActor(markup, actAs)}
}

// WatcherMutation describes an AddWatcher call.
func WatcherMutation(id int, user types.User) Mutation {
	return Mutation{Op: OpAddWatcher, Target: id, Detail: user.Login}
}

func withActor(detail, actAs string) string {
	if actAs == "" {
		return detail
	}
	return detail + " as " + actAs
}

// payloadDetail names the present fields, plus the correlation key.
func payloadDetail(p *types.Payload) string {
	var fields []string
	add := func(name string, present bool) {
		if present {
			fields = append(fields, name)
		}
	}
	add("subject", p.Subject.Present())
	add("description", p.Description.Present())
	add("type", p.TypeID.Present())
	add("status", p.StatusID.Present())
	add("priority", p.PriorityID.Present())
	add("assignee", p.AssigneeID.Present())
	add("responsible", p.ResponsibleID.Present())
	add("parent", p.ParentID.Present())
	add("start_date", p.StartDate.Present())
	add("due_date", p.DueDate.Present())
	sort.Strings(fields)

	detail := strings.Join(fields, ",")
	if key, ok := p.CorrelationKey.Get(); ok {
		detail = key + " " + detail
	}
	return detail
}

// DryRunWriter passes reads through to the wrapped writer and replaces every
// write with a recorded no-op. Creates return synthetic negative IDs; reads
// for those IDs are answered locally so the rest of the pipeline runs as it
// would live.
type DryRunWriter struct {
	inner TargetWriter

	nextID    int
	synthetic map[int]*types.WorkPackage
	planned   []Mutation
}

// NewDryRunWriter wraps w.
func NewDryRunWriter(w TargetWriter) *DryRunWriter {
	return &DryRunWriter{inner: w, synthetic: make(map[int]*types.WorkPackage)}
}

// Planned returns the recorded mutations in call order.
func (d *DryRunWriter) Planned() []Mutation {
	out := make([]Mutation, len(d.planned))
	copy(out, d.planned)
	return out
}

func (d *DryRunWriter) plan(m Mutation) { d.planned = append(d.planned, m) }

func (d *DryRunWriter) allocate() int {
	d.nextID--
	return d.nextID
}

func isSynthetic(id int) bool { return id < 0 }

func (d *DryRunWriter) LoadVocabulary(ctx context.Context) (*Vocabulary, error) {
	return d.inner.LoadVocabulary(ctx)
}

func (d *DryRunWriter) CreateEntity(_ context.Context, _ string, p *types.Payload) (*types.WorkPackage, error) {
	d.plan(CreateMutation(p))
	wp := &types.WorkPackage{ID: d.allocate()}
	ApplyPayload(wp, p)
	d.synthetic[wp.ID] = wp
	cp := *wp
	return &cp, nil
}

func (d *DryRunWriter) UpdateEntity(ctx context.Context, id int, p *types.Payload, expectedVersion int) (*types.WorkPackage, error) {
	d.plan(UpdateMutation(id, p))
	wp, ok := d.synthetic[id]
	if !ok {
		// Shadow the real work package so later reads see the planned change.
		wp = &types.WorkPackage{ID: id, LockVersion: expectedVersion}
		if cur, err := d.inner.GetEntity(ctx, id); err == nil {
			wp = cur
		}
		d.synthetic[id] = wp
	}
	ApplyPayload(wp, p)
	wp.LockVersion++
	cp := *wp
	return &cp, nil
}

func (d *DryRunWriter) GetEntity(ctx context.Context, id int) (*types.WorkPackage, error) {
	if wp, ok := d.synthetic[id]; ok {
		cp := *wp
		return &cp, nil
	}
	return d.inner.GetEntity(ctx, id)
}

func (d *DryRunWriter) ListEntitiesByCorrelationKey(ctx context.Context, projectID string) (map[string]int, error) {
	return d.inner.ListEntitiesByCorrelationKey(ctx, projectID)
}

func (d *DryRunWriter) FindEntityByCorrelationKey(ctx context.Context, projectID, key string) (*types.WorkPackage, error) {
	return d.inner.FindEntityByCorrelationKey(ctx, projectID, key)
}

func (d *DryRunWriter) CreateEdge(_ context.Context, fromID, toID int, rel types.RelationType) error {
	d.plan(EdgeMutation(fromID, toID, rel))
	if rel.IsHierarchical() {
		if wp, ok := d.synthetic[fromID]; ok {
			wp.ParentID = toID
		}
	}
	return nil
}

func (d *DryRunWriter) FindEdge(ctx context.Context, fromID, toID int, rel types.RelationType) (bool, error) {
	if isSynthetic(fromID) || isSynthetic(toID) {
		return false, nil
	}
	return d.inner.FindEdge(ctx, fromID, toID, rel)
}

func (d *DryRunWriter) ListArtifacts(ctx context.Context, id int) ([]*types.Artifact, error) {
	if isSynthetic(id) {
		return nil, nil
	}
	return d.inner.ListArtifacts(ctx, id)
}

func (d *DryRunWriter) UploadArtifact(_ context.Context, id int, filename string, _ io.Reader, actAs string) (*types.Artifact, error) {
	d.plan(UploadMutation(id, filename, actAs))
	artID := d.allocate()
	return &types.Artifact{
		ID:       artID,
		Filename: filename,
		Href:     fmt.Sprintf("/api/v3/attachments/%d/content", artID),
	}, nil
}

func (d *DryRunWriter) ListActivity(ctx context.Context, id int) ([]*types.Activity, error) {
	if isSynthetic(id) {
		return nil, nil
	}
	return d.inner.ListActivity(ctx, id)
}

func (d *DryRunWriter) PostComment(_ context.Context, id int, markup, actAs string) error {
	d.plan(CommentMutation(id, markup, actAs))
	return nil
}

func (d *DryRunWriter) AddWatcher(_ context.Context, id int, user types.User) error {
	d.plan(WatcherMutation(id, user))
	return nil
}

// ApplyPayload copies the present fields of p onto wp.
func ApplyPayload(wp *types.WorkPackage, p *types.Payload) {
	if v, ok := p.Subject.Get(); ok {
		wp.Subject = v
	}
	if v, ok := p.Description.Get(); ok {
		wp.Description = v
	}
	if v, ok := p.TypeID.Get(); ok {
		wp.TypeID = v
	}
	if v, ok := p.StatusID.Get(); ok {
		wp.StatusID = v
	}
	if v, ok := p.PriorityID.Get(); ok {
		wp.PriorityID = v
	}
	if v, ok := p.ParentID.Get(); ok {
		wp.ParentID = v
	}
	if v, ok := p.CorrelationKey.Get(); ok {
		wp.CorrelationKey = v
	}
}
