package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/steveyegge/j2o/internal/adf"
	"github.com/steveyegge/j2o/internal/idmap"
	"github.com/steveyegge/j2o/internal/relations"
	"github.com/steveyegge/j2o/internal/types"
)

// Engine migrates the issues of one source project into a target project.
//
// Issues are processed one at a time, oldest first. Each issue ends in one of
// the states created, updated, skipped or errored; a failure aborts only the
// issue it happened on. Relations are attempted right after each issue is
// synchronized, and whatever could not be resolved then is retried once
// after the last issue.
type Engine struct {
	Source     SourceReader
	Target     TargetWriter
	Identities IdentityResolver
	Tables     *Tables
	Logger     *slog.Logger

	// Callbacks for UI feedback (optional).
	OnMessage func(msg string)
	OnWarning func(msg string)
}

// NewEngine creates an engine with the default mapping tables and no
// identity mapping.
func NewEngine(src SourceReader, dst TargetWriter) *Engine {
	return &Engine{
		Source:     src,
		Target:     dst,
		Identities: NoIdentities{},
		Tables:     DefaultTables(),
	}
}

// run holds the state of one Run. It is owned by a single goroutine.
type run struct {
	e        *Engine
	opts     Options
	target   TargetWriter
	mapper   *Mapper
	ids      *idmap.Map
	resolver *relations.Resolver
	batch    relations.Batch
	deferred relations.DeferredSet
	report   *RunReport
	log      *slog.Logger
}

// Run migrates every issue of opts.ProjectKey. The returned error is set
// only when the run could not start (configuration, vocabulary, issue
// listing or identity pre-seeding failed) or ctx was cancelled; per-issue
// failures are recorded in the report.
func (e *Engine) Run(ctx context.Context, opts Options) (*RunReport, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	r, dry := e.newRun(opts)

	vocab, err := r.target.LoadVocabulary(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading target vocabulary: %w", err)
	}
	r.mapper, err = NewMapper(e.tables(), vocab)
	if err != nil {
		return nil, fmt.Errorf("loading target vocabulary: %w", err)
	}
	r.log.Debug("vocabulary loaded", "summary", vocab.Describe())

	issues, err := e.listIssues(ctx, opts.ProjectKey)
	if err != nil {
		return nil, err
	}
	e.msg("Fetched %d issues from %s", len(issues), opts.ProjectKey)

	if opts.Incremental {
		if err := r.preseed(ctx); err != nil {
			return nil, err
		}
	}

	r.batch = relations.NewBatch(issues)
	for _, issue := range issues {
		if err := ctx.Err(); err != nil {
			return r.finish(dry), err
		}
		res := r.syncEntity(ctx, issue)
		r.report.record(res)
		r.logResult(res)
		r.link(ctx, issue)
	}

	r.ids.Freeze()
	r.retry(ctx)
	return r.finish(dry), nil
}

// Relink runs only relationship reconciliation: the identity map is loaded
// from the target and no work package is written.
func (e *Engine) Relink(ctx context.Context, opts Options) (*RunReport, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	r, dry := e.newRun(opts)

	issues, err := e.listIssues(ctx, opts.ProjectKey)
	if err != nil {
		return nil, err
	}
	if err := r.preseed(ctx); err != nil {
		return nil, err
	}
	r.ids.Freeze()

	rep := r.resolver.Reconcile(ctx, issues, e.tables().Links, r.ids)
	r.report.Stats.RelationsSuppressed = rep.Suppressed
	r.report.Stats.RelationsDeferred = rep.Deferred
	r.report.addRelations(rep.Results)
	r.report.addMissing(rep.Unresolved)
	r.warnRelations(rep.Results)
	return r.finish(dry), nil
}

func (e *Engine) newRun(opts Options) (*run, *DryRunWriter) {
	target := e.Target
	var dry *DryRunWriter
	if opts.DryRun {
		dry = NewDryRunWriter(target)
		target = dry
	}
	return &run{
		e:        e,
		opts:     opts,
		target:   target,
		ids:      idmap.New(),
		resolver: relations.New(target),
		report: &RunReport{
			StartedAt:       time.Now().UTC(),
			DryRun:          opts.DryRun,
			UnknownStatuses: make(map[string]int),
		},
		log: e.logger().With("project", opts.ProjectKey, "dry_run", opts.DryRun),
	}, dry
}

// listIssues fetches the batch and orders it oldest first, ties by key.
func (e *Engine) listIssues(ctx context.Context, projectKey string) ([]*types.SourceIssue, error) {
	issues, err := e.Source.ListAll(ctx, projectKey)
	if err != nil {
		return nil, fmt.Errorf("listing issues of %s: %w", projectKey, err)
	}
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.Key < b.Key
	})
	return issues, nil
}

func (r *run) preseed(ctx context.Context) error {
	entries, err := r.target.ListEntitiesByCorrelationKey(ctx, r.opts.ProjectID)
	if err != nil {
		return fmt.Errorf("listing migrated work packages: %w", err)
	}
	if err := r.ids.Preseed(entries); err != nil {
		return err
	}
	r.log.Debug("identity map pre-seeded", "entries", len(entries))
	return nil
}

func (r *run) finish(dry *DryRunWriter) *RunReport {
	if dry != nil {
		r.report.Planned = dry.Planned()
	}
	if len(r.report.UnknownStatuses) == 0 {
		r.report.UnknownStatuses = nil
	}
	r.report.FinishedAt = time.Now().UTC()
	return r.report
}

// syncEntity takes one issue to a terminal state.
func (r *run) syncEntity(ctx context.Context, issue *types.SourceIssue) EntityResult {
	res := EntityResult{Key: issue.Key}
	fail := func(err error) EntityResult {
		res.Outcome = OutcomeErrored
		res.Error = err.Error()
		return res
	}

	id, found, err := r.lookup(ctx, issue.Key)
	if err != nil {
		return fail(fmt.Errorf("looking up %s: %w", issue.Key, err))
	}
	if found && r.opts.Incremental {
		res.TargetID = id
		res.Outcome = OutcomeSkipped
		return res
	}

	description := adf.Convert(issue.Description)
	payload := r.buildPayload(issue, description)

	var wp *types.WorkPackage
	if found {
		res.Outcome = OutcomeUpdated
		wp, err = r.update(ctx, id, payload)
	} else {
		res.Outcome = OutcomeCreated
		wp, err = r.target.CreateEntity(ctx, r.opts.ProjectID, payload)
		if err == nil {
			err = r.ids.Set(issue.Key, wp.ID)
		} else {
			err = fmt.Errorf("creating work package: %w", err)
		}
	}
	if err != nil {
		return fail(err)
	}
	res.TargetID = wp.ID

	refs, err := r.syncAttachments(ctx, issue, wp.ID)
	if err != nil {
		return fail(err)
	}

	// Artifacts exist only now, so the description is written a second time
	// with the placeholders resolved.
	if final, changed := adf.Substitute(description, refs); changed {
		if _, err := r.update(ctx, wp.ID, types.NewPayload().Description(final).Build()); err != nil {
			return fail(fmt.Errorf("finalizing description: %w", err))
		}
		r.report.Stats.DescriptionsRelinked++
	}

	if err := r.syncComments(ctx, issue, wp.ID, refs); err != nil {
		return fail(err)
	}
	if err := r.syncWatchers(ctx, issue, wp.ID); err != nil {
		return fail(err)
	}
	return res
}

// lookup finds the work package for key. With a pre-seeded map a miss is
// final; otherwise the target is queried by correlation key.
func (r *run) lookup(ctx context.Context, key string) (int, bool, error) {
	if id, ok := r.ids.Get(key); ok {
		return id, true, nil
	}
	if r.opts.Incremental {
		return 0, false, nil
	}
	wp, err := r.target.FindEntityByCorrelationKey(ctx, r.opts.ProjectID, key)
	if err != nil {
		return 0, false, err
	}
	if wp == nil {
		return 0, false, nil
	}
	if err := r.ids.Set(key, wp.ID); err != nil {
		return 0, false, err
	}
	return wp.ID, true, nil
}

// update writes p with a lock version fetched immediately before the write.
func (r *run) update(ctx context.Context, id int, p *types.Payload) (*types.WorkPackage, error) {
	cur, err := r.target.GetEntity(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching work package %d: %w", id, err)
	}
	wp, err := r.target.UpdateEntity(ctx, id, p, cur.LockVersion)
	if err != nil {
		return nil, fmt.Errorf("updating work package %d: %w", id, err)
	}
	return wp, nil
}

func (r *run) buildPayload(issue *types.SourceIssue, description string) *types.Payload {
	subject := issue.Summary
	if subject == "" {
		subject = issue.Key
	}
	b := types.NewPayload().
		Subject(subject).
		Description(description).
		CorrelationKey(issue.Key)

	typeID, known := r.mapper.TypeID(issue.Type)
	b.Type(typeID)
	if !known {
		r.report.Stats.UnknownTypes++
		r.log.Debug("type defaulted", "key", issue.Key, "type", issue.Type)
	}

	if statusID, known := r.mapper.StatusID(issue.Status); statusID != 0 {
		b.Status(statusID)
		if !known {
			r.report.Stats.UnknownStatuses++
			r.report.UnknownStatuses[issue.Status]++
		}
	}
	if priorityID, _ := r.mapper.PriorityID(issue.Priority); priorityID != 0 {
		b.Priority(priorityID)
	}

	b.Assignee(r.identity(issue.Assignee)).
		Responsible(r.identity(issue.Reporter)).
		Dates(issue.StartDate, issue.DueDate)

	if len(issue.Labels) > 0 {
		r.report.Stats.LabelsDropped++
	}
	return b.Build()
}

func (r *run) identity(acct *types.Account) types.Opt[types.User] {
	if acct == nil {
		return types.None[types.User]()
	}
	if u, ok := r.e.identities().MapIdentity(acct); ok {
		return types.Some(u)
	}
	return types.None[types.User]()
}

// actor returns the login a write by acct is attributed to.
func (r *run) actor(acct *types.Account) string {
	if u, ok := r.identity(acct).Get(); ok && u.Login != "" {
		return u.Login
	}
	return r.opts.DefaultActor
}

// syncAttachments uploads the artifacts missing on the work package and
// returns filename → inline reference markup for all of them.
func (r *run) syncAttachments(ctx context.Context, issue *types.SourceIssue, id int) (map[string]string, error) {
	if len(issue.Attachments) == 0 {
		return nil, nil
	}
	existing, err := r.target.ListArtifacts(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listing attachments: %w", err)
	}
	byName := make(map[string]*types.Artifact, len(existing))
	for _, a := range existing {
		if _, ok := byName[a.Filename]; !ok {
			byName[a.Filename] = a
		}
	}

	refs := make(map[string]string, len(issue.Attachments))
	for _, att := range issue.Attachments {
		art, ok := byName[att.Filename]
		if ok {
			r.report.Stats.AttachmentsReused++
		} else {
			art, err = r.upload(ctx, id, att)
			if err != nil {
				return nil, fmt.Errorf("uploading %s: %w", att.Filename, err)
			}
			byName[att.Filename] = art
			r.report.Stats.AttachmentsUploaded++
		}
		refs[att.Filename] = adf.ArtifactMarkup(att.Filename, art.Href, att.IsImage())
	}
	return refs, nil
}

func (r *run) upload(ctx context.Context, id int, att *types.Attachment) (*types.Artifact, error) {
	rc, err := r.e.Source.OpenAttachment(ctx, att)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return r.target.UploadArtifact(ctx, id, att.Filename, rc, r.actor(att.Author))
}

// syncComments posts the comments whose marker is not yet in the journal.
func (r *run) syncComments(ctx context.Context, issue *types.SourceIssue, id int, refs map[string]string) error {
	if len(issue.Comments) == 0 {
		return nil
	}
	activities, err := r.target.ListActivity(ctx, id)
	if err != nil {
		return fmt.Errorf("listing activity: %w", err)
	}
	migrated := migratedComments(activities)

	for _, c := range issue.Comments {
		if migrated[c.ID] {
			r.report.Stats.CommentsSkipped++
			continue
		}
		actAs := r.actor(c.Author)
		_, attributed := r.identity(c.Author).Get()
		if err := r.target.PostComment(ctx, id, commentMarkup(c, refs, attributed), actAs); err != nil {
			return fmt.Errorf("posting comment %s: %w", c.ID, err)
		}
		migrated[c.ID] = true
		r.report.Stats.CommentsPosted++
	}
	return nil
}

func (r *run) syncWatchers(ctx context.Context, issue *types.SourceIssue, id int) error {
	watchers, err := r.e.Source.ListWatchers(ctx, issue.Key)
	if err != nil {
		return fmt.Errorf("listing watchers: %w", err)
	}
	for _, w := range watchers {
		user, ok := r.e.identities().MapIdentity(w)
		if !ok {
			r.report.Stats.WatchersUnmapped++
			continue
		}
		err := r.target.AddWatcher(ctx, id, user)
		if err != nil && !errors.Is(err, types.ErrAlreadyWatching) {
			return fmt.Errorf("adding watcher %s: %w", user.Login, err)
		}
		r.report.Stats.WatchersAdded++
	}
	return nil
}

// link is phase 1 for one issue.
func (r *run) link(ctx context.Context, issue *types.SourceIssue) {
	decls, suppressed := relations.Derive(issue, r.mapper.Links(), r.batch)
	r.report.Stats.RelationsSuppressed += suppressed

	results, deferred := r.resolver.Resolve(ctx, decls, r.ids)
	r.report.addRelations(results)
	r.warnRelations(results)
	for _, d := range deferred {
		if r.deferred.Add(d) {
			r.report.Stats.RelationsDeferred++
		}
	}
}

// retry is phase 2: one sweep over the deferred set. Keys outside the batch
// are looked up in the target by correlation key.
func (r *run) retry(ctx context.Context) {
	pending := r.deferred.Items()
	if len(pending) == 0 {
		return
	}

	extra := make(map[string]int)
	for _, key := range relations.Missing(pending, r.ids) {
		wp, err := r.target.FindEntityByCorrelationKey(ctx, r.opts.ProjectID, key)
		if err != nil {
			r.warn("Failed to look up %s: %v", key, err)
			continue
		}
		if wp != nil {
			extra[key] = wp.ID
		}
	}

	results, remaining := r.resolver.Retry(ctx, pending, relations.Overlay{Base: r.ids, Extra: extra})
	r.report.addRelations(results)
	r.warnRelations(results)
	r.report.addMissing(remaining)
	for _, d := range remaining {
		r.warn("Unresolved relation %s %s %s", d.From, d.Type, d.To)
	}
}

func (r *run) warnRelations(results []relations.Result) {
	for _, res := range results {
		if res.Outcome == relations.OutcomeFailed {
			r.warn("Failed relation %s %s %s: %v", res.From, res.Type, res.To, res.Err)
		}
	}
}

func (r *run) logResult(res EntityResult) {
	attrs := []any{"key", res.Key, "target_id", res.TargetID, "outcome", string(res.Outcome)}
	if res.Outcome == OutcomeErrored {
		r.log.Warn("entity failed", append(attrs, "error", res.Error)...)
		r.warn("Failed %s: %s", res.Key, res.Error)
		return
	}
	r.log.Info("entity synchronized", attrs...)

	prefix := ""
	if r.opts.DryRun {
		prefix = "[dry-run] "
	}
	switch res.Outcome {
	case OutcomeCreated:
		r.e.msg("%sCreated %s as #%d", prefix, res.Key, res.TargetID)
	case OutcomeUpdated:
		r.e.msg("%sUpdated %s (#%d)", prefix, res.Key, res.TargetID)
	case OutcomeSkipped:
		r.e.msg("%sSkipped %s (already #%d)", prefix, res.Key, res.TargetID)
	}
}

func (r *run) warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	r.report.Warnings = append(r.report.Warnings, msg)
	r.e.warn("%s", msg)
}

func (e *Engine) tables() *Tables {
	if e.Tables == nil {
		return DefaultTables()
	}
	return e.Tables
}

func (e *Engine) identities() IdentityResolver {
	if e.Identities == nil {
		return NoIdentities{}
	}
	return e.Identities
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}

func (e *Engine) msg(format string, args ...interface{}) {
	if e.OnMessage != nil {
		e.OnMessage(fmt.Sprintf(format, args...))
	}
}

func (e *Engine) warn(format string, args ...interface{}) {
	if e.OnWarning != nil {
		e.OnWarning(fmt.Sprintf(format, args...))
	}
}
