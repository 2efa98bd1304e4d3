// Package jira reads issues, comments, watchers and attachments from the
// Jira Cloud REST API (v3).
package jira

import "encoding/json"

// Issue represents a Jira issue from the REST API.
type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Self   string      `json:"self"`
	Fields IssueFields `json:"fields"`
}

// IssueFields contains the fields of a Jira issue.
type IssueFields struct {
	Summary     string             `json:"summary"`
	Description json.RawMessage    `json:"description"` // ADF (Atlassian Document Format) or plain text
	Status      *NamedField        `json:"status"`
	Priority    *NamedField        `json:"priority"`
	IssueType   *NamedField        `json:"issuetype"`
	Assignee    *UserField         `json:"assignee"`
	Reporter    *UserField         `json:"reporter"`
	Creator     *UserField         `json:"creator"`
	Labels      []string           `json:"labels"`
	Created     string             `json:"created"`
	Updated     string             `json:"updated"`
	DueDate     string             `json:"duedate"`
	Parent      *IssueRef          `json:"parent"`
	IssueLinks  []IssueLink        `json:"issuelinks"`
	Comment     *CommentPage       `json:"comment"`
	Attachment  []*AttachmentField `json:"attachment"`
}

// NamedField is a status, priority or issue type reference.
type NamedField struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UserField represents a Jira user. Server and Data Center installs send
// name/key instead of accountId.
type UserField struct {
	AccountID    string `json:"accountId"`
	Name         string `json:"name,omitempty"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
}

// IssueRef is a reference to another issue.
type IssueRef struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

// IssueLink is one typed link. Exactly one of InwardIssue and OutwardIssue
// is set: OutwardIssue means "this <outward> other".
type IssueLink struct {
	ID           string    `json:"id"`
	Type         LinkType  `json:"type"`
	InwardIssue  *IssueRef `json:"inwardIssue,omitempty"`
	OutwardIssue *IssueRef `json:"outwardIssue,omitempty"`
}

// LinkType describes the type of link.
type LinkType struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Inward  string `json:"inward"`
	Outward string `json:"outward"`
}

// CommentField is one issue comment.
type CommentField struct {
	ID      string          `json:"id"`
	Author  *UserField      `json:"author"`
	Body    json.RawMessage `json:"body"`
	Created string          `json:"created"`
	Updated string          `json:"updated"`
}

// CommentPage is a page of comments, embedded in the issue or returned by
// the comment endpoint.
type CommentPage struct {
	StartAt    int             `json:"startAt"`
	MaxResults int             `json:"maxResults"`
	Total      int             `json:"total"`
	Comments   []*CommentField `json:"comments"`
}

// AttachmentField is attachment metadata; Content is the download URL.
type AttachmentField struct {
	ID       string     `json:"id"`
	Filename string     `json:"filename"`
	MimeType string     `json:"mimeType"`
	Size     int64      `json:"size"`
	Content  string     `json:"content"`
	Author   *UserField `json:"author"`
	Created  string     `json:"created"`
}

// SearchResult represents a Jira JQL search response.
type SearchResult struct {
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
	Total      int     `json:"total"`
	Issues     []Issue `json:"issues"`
}

// WatchersResult is the response of the watchers endpoint.
type WatchersResult struct {
	WatchCount int          `json:"watchCount"`
	Watchers   []*UserField `json:"watchers"`
}
