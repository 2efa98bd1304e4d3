// Package types defines the core data structures shared by the j2o migration engine.
package types

import (
	"encoding/json"
	"strings"
	"time"
)

// SourceIssue is an immutable work item fetched from the source tracker.
type SourceIssue struct {
	ID          string          `json:"id"`  // Tracker-internal ID (e.g., "10001")
	Key         string          `json:"key"` // Stable human-readable key (e.g., "PROJ-123")
	Type        string          `json:"type"`
	Status      string          `json:"status"`
	Priority    string          `json:"priority,omitempty"`
	Summary     string          `json:"summary"`
	Description json.RawMessage `json:"description,omitempty"` // ADF document, plain string or null
	Labels      []string        `json:"labels,omitempty"`

	Reporter *Account `json:"reporter,omitempty"`
	Assignee *Account `json:"assignee,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DueDate   *time.Time `json:"due_date,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`

	// ParentKey is set for sub-tasks and issues placed under an epic.
	ParentKey string `json:"parent_key,omitempty"`

	Links       []Link        `json:"links,omitempty"`
	Comments    []*Comment    `json:"comments,omitempty"`
	Attachments []*Attachment `json:"attachments,omitempty"`
}

// Account identifies a user in the source tracker.
type Account struct {
	AccountID   string `json:"account_id"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Ref returns the most stable identifier available for the account.
func (a *Account) Ref() string {
	if a == nil {
		return ""
	}
	if a.AccountID != "" {
		return a.AccountID
	}
	return a.Email
}

// LinkDirection says which side of a typed link the owning issue is on.
type LinkDirection string

const (
	// LinkOutward: "<owner> <outward verb> <other>", e.g. "A blocks B".
	LinkOutward LinkDirection = "outward"
	// LinkInward: "<owner> <inward verb> <other>", e.g. "B is blocked by A".
	LinkInward LinkDirection = "inward"
)

// Link is a typed link from the owning issue to another source issue.
// The other issue may not be part of the current migration batch.
type Link struct {
	ID        string        `json:"id,omitempty"`
	Name      string        `json:"name"`              // Link type name (e.g., "Blocks")
	Inward    string        `json:"inward,omitempty"`  // e.g., "is blocked by"
	Outward   string        `json:"outward,omitempty"` // e.g., "blocks"
	Direction LinkDirection `json:"direction"`
	OtherKey  string        `json:"other_key"`
}

// Comment is a source comment with its own identity and authorship.
type Comment struct {
	ID        string          `json:"id"`
	Author    *Account        `json:"author,omitempty"`
	Body      json.RawMessage `json:"body,omitempty"` // ADF document or plain string
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Attachment describes a source artifact. The binary is fetched separately.
type Attachment struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	MimeType   string    `json:"mime_type,omitempty"`
	Size       int64     `json:"size"`
	ContentURL string    `json:"content_url,omitempty"`
	Author     *Account  `json:"author,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// IsImage reports whether the attachment should be embedded as an image.
func (a *Attachment) IsImage() bool {
	return strings.HasPrefix(a.MimeType, "image/")
}

// WorkPackage is the mutable counterpart of a SourceIssue in the target system.
type WorkPackage struct {
	ID             int    `json:"id"`
	LockVersion    int    `json:"lock_version"`
	Subject        string `json:"subject"`
	Description    string `json:"description,omitempty"`
	TypeID         int    `json:"type_id,omitempty"`
	StatusID       int    `json:"status_id,omitempty"`
	PriorityID     int    `json:"priority_id,omitempty"`
	ParentID       int    `json:"parent_id,omitempty"` // 0 when the work package has no parent
	CorrelationKey string `json:"correlation_key,omitempty"`
}

// Artifact is an attachment already stored in the target system.
type Artifact struct {
	ID       int    `json:"id"`
	Filename string `json:"filename"`
	Href     string `json:"href"` // Stable content path used for inline references
}

// Activity is one journal entry on a target work package.
type Activity struct {
	ID      int    `json:"id"`
	Comment string `json:"comment,omitempty"` // Raw markup of the comment, empty for field changes
}

// User is a target system principal that writes can be attributed to.
type User struct {
	ID    int    `json:"id"`
	Login string `json:"login"`
}

// VocabularyItem is one entry of a target vocabulary (type, status or priority).
type VocabularyItem struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default,omitempty"`
}
