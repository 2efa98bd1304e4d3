package jira

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/steveyegge/j2o/internal/tracker"
	"github.com/steveyegge/j2o/internal/types"
)

// Reader adapts a Client to the engine's source interface.
type Reader struct {
	Client *Client

	// UpdatedSince, when set, limits listing to issues updated at or after it.
	UpdatedSince time.Time
}

// NewReader wraps c.
func NewReader(c *Client) *Reader {
	return &Reader{Client: c}
}

var _ tracker.SourceReader = (*Reader)(nil)

// JQL returns the listing query for a project, oldest issue first.
func (r *Reader) JQL(projectKey string) string {
	jql := "project = " + jqlQuote(projectKey)
	if !r.UpdatedSince.IsZero() {
		jql += " AND updated >= " + jqlQuote(jqlTime(r.UpdatedSince))
	}
	return jql + " ORDER BY created ASC, key ASC"
}

// ListAll fetches every issue of the project with its comments, links and
// attachment metadata.
func (r *Reader) ListAll(ctx context.Context, projectKey string) ([]*types.SourceIssue, error) {
	issues, err := r.Client.SearchIssues(ctx, r.JQL(projectKey))
	if err != nil {
		return nil, err
	}

	out := make([]*types.SourceIssue, 0, len(issues))
	for i := range issues {
		ji := &issues[i]
		// The embedded comment page is truncated on busy issues.
		if page := ji.Fields.Comment; page != nil && page.Total > len(page.Comments) {
			all, err := r.Client.Comments(ctx, ji.Key)
			if err != nil {
				return nil, err
			}
			page.Comments = all
		}
		issue, err := ToSourceIssue(ji)
		if err != nil {
			return nil, err
		}
		out = append(out, issue)
	}
	return out, nil
}

// ListWatchers returns the accounts watching the issue.
func (r *Reader) ListWatchers(ctx context.Context, key string) ([]*types.Account, error) {
	users, err := r.Client.Watchers(ctx, key)
	if err != nil {
		return nil, err
	}
	out := make([]*types.Account, 0, len(users))
	for _, u := range users {
		if acct := toAccount(u); acct != nil {
			out = append(out, acct)
		}
	}
	return out, nil
}

// OpenAttachment streams the attachment's content.
func (r *Reader) OpenAttachment(ctx context.Context, att *types.Attachment) (io.ReadCloser, error) {
	return r.Client.Download(ctx, att.ID, att.ContentURL)
}

// ToSourceIssue converts the API form of an issue.
func ToSourceIssue(ji *Issue) (*types.SourceIssue, error) {
	f := &ji.Fields
	issue := &types.SourceIssue{
		ID:          ji.ID,
		Key:         ji.Key,
		Summary:     f.Summary,
		Description: f.Description,
		Labels:      f.Labels,
		Assignee:    toAccount(f.Assignee),
		Reporter:    toAccount(f.Reporter),
	}
	if issue.Reporter == nil {
		issue.Reporter = toAccount(f.Creator)
	}
	if f.IssueType != nil {
		issue.Type = f.IssueType.Name
	}
	if f.Status != nil {
		issue.Status = f.Status.Name
	}
	if f.Priority != nil {
		issue.Priority = f.Priority.Name
	}
	if f.Parent != nil {
		issue.ParentKey = f.Parent.Key
	}

	var err error
	if issue.CreatedAt, err = ParseTimestamp(f.Created); err != nil {
		return nil, fmt.Errorf("issue %s: created: %w", ji.Key, err)
	}
	if f.Updated != "" {
		if issue.UpdatedAt, err = ParseTimestamp(f.Updated); err != nil {
			return nil, fmt.Errorf("issue %s: updated: %w", ji.Key, err)
		}
	}
	if issue.DueDate, err = ParseDate(f.DueDate); err != nil {
		return nil, fmt.Errorf("issue %s: duedate: %w", ji.Key, err)
	}

	for _, l := range f.IssueLinks {
		link := types.Link{ID: l.ID, Name: l.Type.Name, Inward: l.Type.Inward, Outward: l.Type.Outward}
		switch {
		case l.OutwardIssue != nil:
			link.Direction = types.LinkOutward
			link.OtherKey = l.OutwardIssue.Key
		case l.InwardIssue != nil:
			link.Direction = types.LinkInward
			link.OtherKey = l.InwardIssue.Key
		default:
			continue
		}
		issue.Links = append(issue.Links, link)
	}

	if f.Comment != nil {
		for _, c := range f.Comment.Comments {
			comment := &types.Comment{ID: c.ID, Author: toAccount(c.Author), Body: c.Body}
			// Comment timestamps only feed the attribution byline.
			comment.CreatedAt, _ = ParseTimestamp(c.Created)
			comment.UpdatedAt, _ = ParseTimestamp(c.Updated)
			issue.Comments = append(issue.Comments, comment)
		}
	}

	for _, a := range f.Attachment {
		att := &types.Attachment{
			ID:         a.ID,
			Filename:   a.Filename,
			MimeType:   a.MimeType,
			Size:       a.Size,
			ContentURL: a.Content,
			Author:     toAccount(a.Author),
		}
		att.CreatedAt, _ = ParseTimestamp(a.Created)
		issue.Attachments = append(issue.Attachments, att)
	}
	return issue, nil
}

func toAccount(u *UserField) *types.Account {
	if u == nil {
		return nil
	}
	id := u.AccountID
	if id == "" {
		id = u.Name
	}
	if id == "" && u.EmailAddress == "" {
		return nil
	}
	return &types.Account{AccountID: id, DisplayName: u.DisplayName, Email: u.EmailAddress}
}
