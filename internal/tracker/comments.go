package tracker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/steveyegge/j2o/internal/adf"
	"github.com/steveyegge/j2o/internal/types"
)

// Only a marker that ends the comment counts; the same text earlier in the
// body is content.
var commentMarkerRE = regexp.MustCompile(`<!-- jira-comment-id:(\S+) -->\s*$`)

// CommentMarker is appended to every migrated comment. Re-runs match on it,
// not on comment text.
func CommentMarker(commentID string) string {
	return "<!-- jira-comment-id:" + commentID + " -->"
}

// migratedComments returns the source comment IDs whose markers appear in
// the activity journal.
func migratedComments(activities []*types.Activity) map[string]bool {
	ids := make(map[string]bool)
	for _, a := range activities {
		if a == nil || !strings.Contains(a.Comment, "jira-comment-id:") {
			continue
		}
		if m := commentMarkerRE.FindStringSubmatch(a.Comment); m != nil {
			ids[m[1]] = true
		}
	}
	return ids
}

// commentMarkup renders a comment body, resolves artifact placeholders and
// appends the marker. When the author has no target identity a byline keeps
// the provenance.
func commentMarkup(c *types.Comment, refs map[string]string, attributed bool) string {
	body := adf.Convert(c.Body)
	body, _ = adf.Substitute(body, refs)

	var sb strings.Builder
	if !attributed && c.Author != nil && c.Author.DisplayName != "" {
		fmt.Fprintf(&sb, "*%s wrote", adf.Escape(c.Author.DisplayName))
		if !c.CreatedAt.IsZero() {
			fmt.Fprintf(&sb, " on %s", c.CreatedAt.UTC().Format("2006-01-02 15:04"))
		}
		sb.WriteString(":*\n\n")
	}
	if body != "" {
		sb.WriteString(body)
		sb.WriteString("\n\n")
	}
	sb.WriteString(CommentMarker(c.ID))
	return sb.String()
}
