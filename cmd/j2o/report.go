package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/steveyegge/j2o/internal/tracker"
	"github.com/steveyegge/j2o/internal/ui"
)

// writeReport saves the run report as YAML.
func writeReport(path string, rep *tracker.RunReport) error {
	data, err := yaml.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// printSummary renders the human-readable end-of-run summary.
func printSummary(w io.Writer, title string, rep *tracker.RunReport, verbose bool) {
	s := rep.Stats
	heading := title
	if rep.DryRun {
		heading += " " + ui.RenderMuted("(dry run, no changes made)")
	}
	fmt.Fprintf(w, "\n%s\n%s\n", ui.RenderCategory(heading), ui.RenderSeparator())

	if s.Total > 0 {
		fmt.Fprint(w, ui.RenderRows([]ui.Row{
			{Label: "issues", Value: s.Total},
			{Label: "created", Value: s.Created},
			{Label: "updated", Value: s.Updated},
			{Label: "skipped", Value: s.Skipped},
			{Label: "errored", Value: s.Errored, Warn: true},
			{Label: "unknown statuses", Value: s.UnknownStatuses, Warn: true},
			{Label: "unknown types", Value: s.UnknownTypes, Warn: true},
			{Label: "labels dropped", Value: s.LabelsDropped, Warn: true},
			{Label: "attachments uploaded", Value: s.AttachmentsUploaded},
			{Label: "attachments reused", Value: s.AttachmentsReused},
			{Label: "comments posted", Value: s.CommentsPosted},
			{Label: "watchers added", Value: s.WatchersAdded},
			{Label: "watchers unmapped", Value: s.WatchersUnmapped, Warn: true},
		}))
	}
	fmt.Fprint(w, ui.RenderRows([]ui.Row{
		{Label: "relations created", Value: s.RelationsCreated},
		{Label: "relations existing", Value: s.RelationsExisting},
		{Label: "relations failed", Value: s.RelationsFailed, Warn: true},
		{Label: "relations unresolved", Value: s.RelationsUnresolved, Warn: true},
	}))

	for _, e := range rep.Entities {
		if e.Outcome != tracker.OutcomeErrored && !verbose {
			continue
		}
		line := fmt.Sprintf("%s %s", ui.OutcomeIcon(string(e.Outcome)), e.Key)
		if e.TargetID != 0 {
			line += ui.RenderMuted(fmt.Sprintf(" #%d", e.TargetID))
		}
		if e.Error != "" {
			line += " " + ui.RenderFail(e.Error)
		}
		fmt.Fprintln(w, line)
	}

	if len(rep.UnknownStatuses) > 0 {
		names := make([]string, 0, len(rep.UnknownStatuses))
		for name, n := range rep.UnknownStatuses {
			names = append(names, fmt.Sprintf("%s (%d)", name, n))
		}
		sort.Strings(names)
		fmt.Fprintf(w, "%s unmapped statuses: %s\n", ui.RenderWarn(ui.IconWarn), strings.Join(names, ", "))
	}
	for _, m := range rep.MissingRelations {
		fmt.Fprintf(w, "%s %s %s %s not resolved\n", ui.RenderWarn(ui.IconWarn), m.From, m.Type, m.To)
	}
	if rep.DryRun && verbose {
		for _, m := range rep.Planned {
			fmt.Fprintln(w, ui.RenderMuted("  would "+m.String()))
		}
	}
}
