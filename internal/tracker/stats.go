package tracker

import (
	"time"

	"github.com/steveyegge/j2o/internal/relations"
)

// Outcome is the terminal state of one source issue in a run.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeSkipped Outcome = "skipped"
	OutcomeErrored Outcome = "errored"
)

// RunStats accumulates counters for a run.
type RunStats struct {
	Total   int `json:"total" yaml:"total"`     // Source issues processed
	Created int `json:"created" yaml:"created"` // Work packages created
	Updated int `json:"updated" yaml:"updated"` // Work packages updated
	Skipped int `json:"skipped" yaml:"skipped"` // Already migrated (incremental mode)
	Errored int `json:"errored" yaml:"errored"` // Issues aborted by a collaborator failure

	UnknownStatuses int `json:"unknown_statuses" yaml:"unknown_statuses"` // Issues placed in the unknown status bucket
	UnknownTypes    int `json:"unknown_types" yaml:"unknown_types"`       // Issues given the default type
	LabelsDropped   int `json:"labels_dropped" yaml:"labels_dropped"`     // Issues whose labels have no target field

	AttachmentsUploaded  int `json:"attachments_uploaded" yaml:"attachments_uploaded"`
	AttachmentsReused    int `json:"attachments_reused" yaml:"attachments_reused"`
	DescriptionsRelinked int `json:"descriptions_relinked" yaml:"descriptions_relinked"` // Second, description-only updates
	CommentsPosted       int `json:"comments_posted" yaml:"comments_posted"`
	CommentsSkipped      int `json:"comments_skipped" yaml:"comments_skipped"` // Marker already present
	WatchersAdded        int `json:"watchers_added" yaml:"watchers_added"`
	WatchersUnmapped     int `json:"watchers_unmapped" yaml:"watchers_unmapped"`

	RelationsCreated    int `json:"relations_created" yaml:"relations_created"`
	RelationsExisting   int `json:"relations_existing" yaml:"relations_existing"`
	RelationsFailed     int `json:"relations_failed" yaml:"relations_failed"`
	RelationsSuppressed int `json:"relations_suppressed" yaml:"relations_suppressed"` // Mirror side of a symmetric pair
	RelationsDeferred   int `json:"relations_deferred" yaml:"relations_deferred"`     // Unresolved on first attempt
	RelationsUnresolved int `json:"relations_unresolved" yaml:"relations_unresolved"` // Still unresolved after the retry sweep
}

// EntityResult is the outcome for one source issue.
type EntityResult struct {
	Key      string  `json:"key" yaml:"key"`
	TargetID int     `json:"target_id,omitempty" yaml:"target_id,omitempty"`
	Outcome  Outcome `json:"outcome" yaml:"outcome"`
	Error    string  `json:"error,omitempty" yaml:"error,omitempty"`
}

// MissingRelation is a relation left unresolved after the retry sweep.
type MissingRelation struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
	Type string `json:"type" yaml:"type"`
}

// RunReport is the result of a complete run.
type RunReport struct {
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
	DryRun     bool      `json:"dry_run" yaml:"dry_run"`

	Stats    RunStats       `json:"stats" yaml:"stats"`
	Entities []EntityResult `json:"entities,omitempty" yaml:"entities,omitempty"`

	// UnknownStatuses counts issues per unmapped source status name.
	UnknownStatuses map[string]int `json:"unknown_statuses,omitempty" yaml:"unknown_statuses,omitempty"`

	MissingRelations []MissingRelation `json:"missing_relations,omitempty" yaml:"missing_relations,omitempty"`

	// Planned lists the mutations a dry run would have made.
	Planned []Mutation `json:"planned,omitempty" yaml:"planned,omitempty"`

	// Warnings are non-fatal problems for operator follow-up.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

func (r *RunReport) record(res EntityResult) {
	r.Entities = append(r.Entities, res)
	r.Stats.Total++
	switch res.Outcome {
	case OutcomeCreated:
		r.Stats.Created++
	case OutcomeUpdated:
		r.Stats.Updated++
	case OutcomeSkipped:
		r.Stats.Skipped++
	case OutcomeErrored:
		r.Stats.Errored++
	}
}

func (r *RunReport) addRelations(results []relations.Result) {
	for _, res := range results {
		switch res.Outcome {
		case relations.OutcomeCreated:
			r.Stats.RelationsCreated++
		case relations.OutcomeExisted:
			r.Stats.RelationsExisting++
		case relations.OutcomeFailed:
			r.Stats.RelationsFailed++
		}
	}
}

func (r *RunReport) addMissing(decls []relations.Declaration) {
	for _, d := range decls {
		r.MissingRelations = append(r.MissingRelations, MissingRelation{From: d.From, To: d.To, Type: string(d.Type)})
	}
	r.Stats.RelationsUnresolved += len(decls)
}
