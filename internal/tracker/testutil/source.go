package testutil

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/steveyegge/j2o/internal/tracker"
	"github.com/steveyegge/j2o/internal/types"
)

// FakeSource is an in-memory source tracker.
type FakeSource struct {
	Issues   []*types.SourceIssue
	Watchers map[string][]*types.Account // issue key → watchers
	Contents map[string]string           // attachment ID → content

	ListErr     error
	WatchersErr error
}

// NewFakeSource returns a source serving issues.
func NewFakeSource(issues ...*types.SourceIssue) *FakeSource {
	return &FakeSource{
		Issues:   issues,
		Watchers: make(map[string][]*types.Account),
		Contents: make(map[string]string),
	}
}

var _ tracker.SourceReader = (*FakeSource)(nil)

func (s *FakeSource) ListAll(_ context.Context, projectKey string) ([]*types.SourceIssue, error) {
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	var out []*types.SourceIssue
	for _, issue := range s.Issues {
		if strings.HasPrefix(issue.Key, projectKey+"-") {
			out = append(out, issue)
		}
	}
	return out, nil
}

func (s *FakeSource) ListWatchers(_ context.Context, key string) ([]*types.Account, error) {
	if s.WatchersErr != nil {
		return nil, s.WatchersErr
	}
	return s.Watchers[key], nil
}

func (s *FakeSource) OpenAttachment(_ context.Context, att *types.Attachment) (io.ReadCloser, error) {
	content, ok := s.Contents[att.ID]
	if !ok {
		return nil, fmt.Errorf("attachment %s: %w", att.ID, types.ErrNotFound)
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

// StaticIdentities maps account IDs to users.
type StaticIdentities map[string]types.User

func (s StaticIdentities) MapIdentity(acct *types.Account) (types.User, bool) {
	if acct == nil {
		return types.User{}, false
	}
	u, ok := s[acct.Ref()]
	return u, ok
}
