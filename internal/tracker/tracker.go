// Package tracker migrates issues from a source tracker into a target
// project-management system. The Engine drives one run: it creates, updates
// or skips one work package per source issue, threads attachments and
// comments through, and reconciles issue links into target relations.
//
// The source and target systems are reached through the SourceReader and
// TargetWriter interfaces; internal/jira and internal/openproject implement
// them.
package tracker

import (
	"context"
	"io"

	"github.com/steveyegge/j2o/internal/types"
)

// SourceReader reads issues from the source tracker.
type SourceReader interface {
	// ListAll returns every issue of the project, oldest first.
	ListAll(ctx context.Context, projectKey string) ([]*types.SourceIssue, error)

	// ListWatchers returns the accounts watching an issue.
	ListWatchers(ctx context.Context, key string) ([]*types.Account, error)

	// OpenAttachment streams the content of an attachment. The caller closes it.
	OpenAttachment(ctx context.Context, att *types.Attachment) (io.ReadCloser, error)
}

// TargetWriter reads and writes work packages in the target system.
//
// Mutating methods take an actAs login where the target supports
// attributing writes to another user; "" writes as the authenticated user.
type TargetWriter interface {
	// LoadVocabulary fetches the target's types, statuses and priorities.
	LoadVocabulary(ctx context.Context) (*Vocabulary, error)

	// CreateEntity creates a work package in the project.
	CreateEntity(ctx context.Context, projectID string, p *types.Payload) (*types.WorkPackage, error)

	// UpdateEntity applies the present fields of p. It fails with
	// types.ErrStaleVersion when expectedVersion is not current.
	UpdateEntity(ctx context.Context, id int, p *types.Payload, expectedVersion int) (*types.WorkPackage, error)

	// GetEntity fetches a work package with its current lock version.
	GetEntity(ctx context.Context, id int) (*types.WorkPackage, error)

	// ListEntitiesByCorrelationKey returns correlation key → ID for every
	// work package in the project that carries a key.
	ListEntitiesByCorrelationKey(ctx context.Context, projectID string) (map[string]int, error)

	// FindEntityByCorrelationKey returns the work package carrying key, or
	// nil when there is none.
	FindEntityByCorrelationKey(ctx context.Context, projectID, key string) (*types.WorkPackage, error)

	// CreateEdge creates a relation. For types.RelParent, fromID becomes a
	// child of toID. It fails with types.ErrEdgeExists or types.ErrEdgeCycle
	// when the target rejects the edge as redundant.
	CreateEdge(ctx context.Context, fromID, toID int, rel types.RelationType) error

	// FindEdge reports whether a relation fromID → toID of type rel exists.
	FindEdge(ctx context.Context, fromID, toID int, rel types.RelationType) (bool, error)

	ListArtifacts(ctx context.Context, id int) ([]*types.Artifact, error)
	UploadArtifact(ctx context.Context, id int, filename string, content io.Reader, actAs string) (*types.Artifact, error)

	ListActivity(ctx context.Context, id int) ([]*types.Activity, error)
	PostComment(ctx context.Context, id int, markup, actAs string) error

	// AddWatcher fails with types.ErrAlreadyWatching when the user already watches.
	AddWatcher(ctx context.Context, id int, user types.User) error
}

// IdentityResolver maps source accounts to target users.
type IdentityResolver interface {
	MapIdentity(acct *types.Account) (types.User, bool)
}

// NoIdentities resolves nobody. Every write runs as the default actor.
type NoIdentities struct{}

func (NoIdentities) MapIdentity(*types.Account) (types.User, bool) { return types.User{}, false }
