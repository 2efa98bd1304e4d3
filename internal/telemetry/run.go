package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/steveyegge/j2o/internal/tracker"
)

// RecordRun publishes the outcome counts of a finished run as
// j2o.run.entities (by outcome) and j2o.run.relations (by result).
func RecordRun(ctx context.Context, command string, rep *tracker.RunReport) {
	if rep == nil || !Enabled() {
		return
	}
	m := Meter("")
	entities, _ := m.Int64Counter("j2o.run.entities",
		metric.WithDescription("Source issues processed, by terminal outcome"))
	relations, _ := m.Int64Counter("j2o.run.relations",
		metric.WithDescription("Relation declarations, by result"))

	cmd := attribute.String("j2o.command", command)
	dry := attribute.Bool("j2o.dry_run", rep.DryRun)
	add := func(c metric.Int64Counter, key, value string, n int) {
		if n > 0 {
			c.Add(ctx, int64(n), metric.WithAttributes(cmd, dry, attribute.String(key, value)))
		}
	}

	s := rep.Stats
	add(entities, "j2o.outcome", string(tracker.OutcomeCreated), s.Created)
	add(entities, "j2o.outcome", string(tracker.OutcomeUpdated), s.Updated)
	add(entities, "j2o.outcome", string(tracker.OutcomeSkipped), s.Skipped)
	add(entities, "j2o.outcome", string(tracker.OutcomeErrored), s.Errored)

	add(relations, "j2o.result", "created", s.RelationsCreated)
	add(relations, "j2o.result", "existing", s.RelationsExisting)
	add(relations, "j2o.result", "failed", s.RelationsFailed)
	add(relations, "j2o.result", "suppressed", s.RelationsSuppressed)
	add(relations, "j2o.result", "unresolved", s.RelationsUnresolved)
}
