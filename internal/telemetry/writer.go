package telemetry

import (
	"context"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/steveyegge/j2o/internal/tracker"
	"github.com/steveyegge/j2o/internal/types"
)

const writerScopeName = "github.com/steveyegge/j2o/target"

// InstrumentedWriter wraps a tracker.TargetWriter with OTel tracing and
// metrics. Every call gets a span and is counted in j2o.target.* metrics.
type InstrumentedWriter struct {
	inner  tracker.TargetWriter
	tracer trace.Tracer
	ops    metric.Int64Counter
	dur    metric.Float64Histogram
	errs   metric.Int64Counter
}

var _ tracker.TargetWriter = (*InstrumentedWriter)(nil)

// WrapWriter returns w decorated with OTel instrumentation.
// When telemetry is disabled, w is returned as-is.
func WrapWriter(w tracker.TargetWriter) tracker.TargetWriter {
	if !Enabled() {
		return w
	}
	m := Meter(writerScopeName)
	ops, _ := m.Int64Counter("j2o.target.operations",
		metric.WithDescription("Total target API operations executed"),
	)
	dur, _ := m.Float64Histogram("j2o.target.operation.duration",
		metric.WithDescription("Target API operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("j2o.target.errors",
		metric.WithDescription("Total target API operation errors"),
	)
	return &InstrumentedWriter{
		inner:  w,
		tracer: Tracer(writerScopeName),
		ops:    ops,
		dur:    dur,
		errs:   errs,
	}
}

// op starts a span and counts the named operation.
func (w *InstrumentedWriter) op(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	all := append([]attribute.KeyValue{attribute.String("j2o.operation", name)}, attrs...)
	ctx, span := w.tracer.Start(ctx, "target."+name,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	w.ops.Add(ctx, 1, metric.WithAttributes(all...))
	return ctx, span, time.Now()
}

// done ends the span, records duration and optional error.
func (w *InstrumentedWriter) done(ctx context.Context, span trace.Span, start time.Time, name string, err error) {
	attrs := metric.WithAttributes(attribute.String("j2o.operation", name))
	w.dur.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		w.errs.Add(ctx, 1, attrs)
	}
	span.End()
}

func (w *InstrumentedWriter) LoadVocabulary(ctx context.Context) (*tracker.Vocabulary, error) {
	ctx, span, t := w.op(ctx, "LoadVocabulary")
	v, err := w.inner.LoadVocabulary(ctx)
	w.done(ctx, span, t, "LoadVocabulary", err)
	return v, err
}

func (w *InstrumentedWriter) CreateEntity(ctx context.Context, projectID string, p *types.Payload) (*types.WorkPackage, error) {
	key, _ := p.CorrelationKey.Get()
	ctx, span, t := w.op(ctx, "CreateEntity", attribute.String("j2o.issue.key", key))
	wp, err := w.inner.CreateEntity(ctx, projectID, p)
	if err == nil {
		span.SetAttributes(attribute.Int("j2o.entity.id", wp.ID))
	}
	w.done(ctx, span, t, "CreateEntity", err)
	return wp, err
}

func (w *InstrumentedWriter) UpdateEntity(ctx context.Context, id int, p *types.Payload, expectedVersion int) (*types.WorkPackage, error) {
	ctx, span, t := w.op(ctx, "UpdateEntity",
		attribute.Int("j2o.entity.id", id),
		attribute.Int("j2o.entity.lock_version", expectedVersion),
	)
	wp, err := w.inner.UpdateEntity(ctx, id, p, expectedVersion)
	w.done(ctx, span, t, "UpdateEntity", err)
	return wp, err
}

func (w *InstrumentedWriter) GetEntity(ctx context.Context, id int) (*types.WorkPackage, error) {
	ctx, span, t := w.op(ctx, "GetEntity", attribute.Int("j2o.entity.id", id))
	wp, err := w.inner.GetEntity(ctx, id)
	w.done(ctx, span, t, "GetEntity", err)
	return wp, err
}

func (w *InstrumentedWriter) ListEntitiesByCorrelationKey(ctx context.Context, projectID string) (map[string]int, error) {
	ctx, span, t := w.op(ctx, "ListEntitiesByCorrelationKey", attribute.String("j2o.project", projectID))
	m, err := w.inner.ListEntitiesByCorrelationKey(ctx, projectID)
	if err == nil {
		span.SetAttributes(attribute.Int("j2o.result.count", len(m)))
	}
	w.done(ctx, span, t, "ListEntitiesByCorrelationKey", err)
	return m, err
}

func (w *InstrumentedWriter) FindEntityByCorrelationKey(ctx context.Context, projectID, key string) (*types.WorkPackage, error) {
	ctx, span, t := w.op(ctx, "FindEntityByCorrelationKey", attribute.String("j2o.issue.key", key))
	wp, err := w.inner.FindEntityByCorrelationKey(ctx, projectID, key)
	w.done(ctx, span, t, "FindEntityByCorrelationKey", err)
	return wp, err
}

func (w *InstrumentedWriter) CreateEdge(ctx context.Context, fromID, toID int, rel types.RelationType) error {
	ctx, span, t := w.op(ctx, "CreateEdge", edgeAttrs(fromID, toID, rel)...)
	err := w.inner.CreateEdge(ctx, fromID, toID, rel)
	w.done(ctx, span, t, "CreateEdge", err)
	return err
}

func (w *InstrumentedWriter) FindEdge(ctx context.Context, fromID, toID int, rel types.RelationType) (bool, error) {
	ctx, span, t := w.op(ctx, "FindEdge", edgeAttrs(fromID, toID, rel)...)
	found, err := w.inner.FindEdge(ctx, fromID, toID, rel)
	w.done(ctx, span, t, "FindEdge", err)
	return found, err
}

func (w *InstrumentedWriter) ListArtifacts(ctx context.Context, id int) ([]*types.Artifact, error) {
	ctx, span, t := w.op(ctx, "ListArtifacts", attribute.Int("j2o.entity.id", id))
	v, err := w.inner.ListArtifacts(ctx, id)
	w.done(ctx, span, t, "ListArtifacts", err)
	return v, err
}

func (w *InstrumentedWriter) UploadArtifact(ctx context.Context, id int, filename string, content io.Reader, actAs string) (*types.Artifact, error) {
	ctx, span, t := w.op(ctx, "UploadArtifact",
		attribute.Int("j2o.entity.id", id),
		attribute.String("j2o.artifact.filename", filename),
	)
	v, err := w.inner.UploadArtifact(ctx, id, filename, content, actAs)
	w.done(ctx, span, t, "UploadArtifact", err)
	return v, err
}

func (w *InstrumentedWriter) ListActivity(ctx context.Context, id int) ([]*types.Activity, error) {
	ctx, span, t := w.op(ctx, "ListActivity", attribute.Int("j2o.entity.id", id))
	v, err := w.inner.ListActivity(ctx, id)
	w.done(ctx, span, t, "ListActivity", err)
	return v, err
}

func (w *InstrumentedWriter) PostComment(ctx context.Context, id int, markup, actAs string) error {
	ctx, span, t := w.op(ctx, "PostComment", attribute.Int("j2o.entity.id", id))
	err := w.inner.PostComment(ctx, id, markup, actAs)
	w.done(ctx, span, t, "PostComment", err)
	return err
}

func (w *InstrumentedWriter) AddWatcher(ctx context.Context, id int, user types.User) error {
	ctx, span, t := w.op(ctx, "AddWatcher",
		attribute.Int("j2o.entity.id", id),
		attribute.Int("j2o.user.id", user.ID),
	)
	err := w.inner.AddWatcher(ctx, id, user)
	w.done(ctx, span, t, "AddWatcher", err)
	return err
}

func edgeAttrs(fromID, toID int, rel types.RelationType) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int("j2o.edge.from", fromID),
		attribute.Int("j2o.edge.to", toID),
		attribute.String("j2o.edge.type", string(rel)),
	}
}
