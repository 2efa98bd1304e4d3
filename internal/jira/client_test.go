package jira

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/j2o/internal/tracker/testutil"
	"github.com/steveyegge/j2o/internal/types"
)

func newTestClient(t *testing.T, username string) (*Client, *testutil.MockServer) {
	t.Helper()
	srv := testutil.NewMockServer()
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL(), username, "secret")
	c.NewBackOff = func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 3)
	}
	return c, srv
}

func issueJSON(key, created string, extra map[string]interface{}) map[string]interface{} {
	fields := map[string]interface{}{
		"summary":   "Summary " + key,
		"issuetype": map[string]string{"name": "Task"},
		"status":    map[string]string{"name": "To Do"},
		"created":   created,
		"updated":   created,
	}
	for k, v := range extra {
		fields[k] = v
	}
	return map[string]interface{}{"id": "1" + key[len("PROJ-"):], "key": key, "fields": fields}
}

func TestSearchIssuesPaginates(t *testing.T) {
	c, srv := newTestClient(t, "me@example.com")
	srv.QueueResponses(http.MethodGet, "/rest/api/3/search",
		testutil.MockResponse{StatusCode: 200, Body: map[string]interface{}{
			"startAt": 0, "total": 3,
			"issues": []interface{}{
				issueJSON("PROJ-1", "2024-01-15T10:30:00.000+0000", nil),
				issueJSON("PROJ-2", "2024-01-15T10:31:00.000+0000", nil),
			},
		}},
		testutil.MockResponse{StatusCode: 200, Body: map[string]interface{}{
			"startAt": 2, "total": 3,
			"issues":  []interface{}{issueJSON("PROJ-3", "2024-01-15T10:32:00.000+0000", nil)},
		}},
	)

	issues, err := c.SearchIssues(context.Background(), `project = "PROJ"`)
	require.NoError(t, err)
	require.Len(t, issues, 3)
	assert.Equal(t, "PROJ-3", issues[2].Key)

	reqs := srv.RequestsTo(http.MethodGet, "/rest/api/3/search")
	require.Len(t, reqs, 2)
	first, _ := url.ParseQuery(reqs[0].Query)
	second, _ := url.ParseQuery(reqs[1].Query)
	assert.Equal(t, "0", first.Get("startAt"))
	assert.Equal(t, "2", second.Get("startAt"))
	assert.Contains(t, first.Get("fields"), "issuelinks")
	assert.Contains(t, first.Get("fields"), "attachment")
}

func TestReaderListAll(t *testing.T) {
	c, srv := newTestClient(t, "me@example.com")
	issue := issueJSON("PROJ-7", "2024-01-15T10:30:00.000+0000", map[string]interface{}{
		"description": map[string]interface{}{"type": "doc", "version": 1, "content": []interface{}{}},
		"priority":    map[string]string{"name": "High"},
		"labels":      []string{"a"},
		"duedate":     "2024-02-01",
		"assignee":    map[string]string{"accountId": "acc-1", "displayName": "Ann"},
		"creator":     map[string]string{"accountId": "acc-2"},
		"parent":      map[string]string{"id": "100", "key": "PROJ-1"},
		"issuelinks": []interface{}{
			map[string]interface{}{"id": "9", "type": map[string]string{"name": "Blocks", "inward": "is blocked by", "outward": "blocks"},
				"outwardIssue": map[string]string{"key": "PROJ-8"}},
			map[string]interface{}{"id": "10", "type": map[string]string{"name": "Duplicate"},
				"inwardIssue": map[string]string{"key": "OTHER-1"}},
		},
		"comment": map[string]interface{}{"total": 2, "comments": []interface{}{
			map[string]interface{}{"id": "c1", "body": "first", "created": "2024-01-16T10:30:00.000+0000"},
		}},
		"attachment": []interface{}{
			map[string]interface{}{"id": "55", "filename": "shot.png", "mimeType": "image/png", "size": 3,
				"content": srv.URL() + "/rest/api/3/attachment/content/55", "author": map[string]string{"accountId": "acc-1"}},
		},
	})
	srv.SetResponse(http.MethodGet, "/rest/api/3/search", 200, map[string]interface{}{"total": 1, "issues": []interface{}{issue}})
	srv.SetResponse(http.MethodGet, "/rest/api/3/issue/PROJ-7/comment", 200, map[string]interface{}{
		"total": 2,
		"comments": []interface{}{
			map[string]interface{}{"id": "c1", "body": "first", "author": map[string]string{"accountId": "acc-1"}},
			map[string]interface{}{"id": "c2", "body": "second"},
		},
	})

	issues, err := NewReader(c).ListAll(context.Background(), "PROJ")
	require.NoError(t, err)
	require.Len(t, issues, 1)
	got := issues[0]

	assert.Equal(t, "PROJ-7", got.Key)
	assert.Equal(t, "Task", got.Type)
	assert.Equal(t, "To Do", got.Status)
	assert.Equal(t, "High", got.Priority)
	assert.Equal(t, "PROJ-1", got.ParentKey)
	assert.Equal(t, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), got.CreatedAt)
	require.NotNil(t, got.DueDate)
	assert.Equal(t, "2024-02-01", got.DueDate.Format(time.DateOnly))
	assert.Equal(t, "acc-1", got.Assignee.AccountID)
	assert.Equal(t, "acc-2", got.Reporter.AccountID, "creator stands in for a missing reporter")
	assert.JSONEq(t, `{"type":"doc","version":1,"content":[]}`, string(got.Description))

	assert.Equal(t, []types.Link{
		{ID: "9", Name: "Blocks", Inward: "is blocked by", Outward: "blocks", Direction: types.LinkOutward, OtherKey: "PROJ-8"},
		{ID: "10", Name: "Duplicate", Direction: types.LinkInward, OtherKey: "OTHER-1"},
	}, got.Links)

	require.Len(t, got.Comments, 2, "truncated comment page is completed")
	assert.Equal(t, "c2", got.Comments[1].ID)
	assert.Equal(t, "acc-1", got.Comments[0].Author.AccountID)

	require.Len(t, got.Attachments, 1)
	assert.True(t, got.Attachments[0].IsImage())

	rc, err := NewReader(c).OpenAttachment(context.Background(), got.Attachments[0])
	require.Error(t, err, "no content route configured")
	assert.Nil(t, rc)
	assert.True(t, errors.Is(err, types.ErrNotFound))
}

func TestReaderJQL(t *testing.T) {
	r := NewReader(nil)
	assert.Equal(t, `project = "PROJ" ORDER BY created ASC, key ASC`, r.JQL("PROJ"))

	r.UpdatedSince = time.Date(2024, 3, 1, 8, 5, 0, 0, time.UTC)
	assert.Equal(t, `project = "PROJ" AND updated >= "2024-03-01 08:05" ORDER BY created ASC, key ASC`, r.JQL("PROJ"))
	assert.Equal(t, `project = "A\"B"`+" ORDER BY created ASC, key ASC", NewReader(nil).JQL(`A"B`))
}

func TestWatchers(t *testing.T) {
	c, srv := newTestClient(t, "me@example.com")
	srv.SetResponse(http.MethodGet, "/rest/api/3/issue/PROJ-1/watchers", 200, map[string]interface{}{
		"watchCount": 3,
		"watchers": []interface{}{
			map[string]string{"accountId": "acc-1", "displayName": "Ann"},
			map[string]string{"name": "legacy.user"},
			map[string]string{"displayName": "No identity"},
		},
	})

	accts, err := NewReader(c).ListWatchers(context.Background(), "PROJ-1")
	require.NoError(t, err)
	require.Len(t, accts, 2)
	assert.Equal(t, "acc-1", accts[0].Ref())
	assert.Equal(t, "legacy.user", accts[1].Ref())
}

func TestDownloadStreamsContent(t *testing.T) {
	c, srv := newTestClient(t, "")
	srv.QueueResponses(http.MethodGet, "/rest/api/3/attachment/content/55",
		testutil.MockResponse{StatusCode: 200, RawBody: []byte("binary\x00data")})

	rc, err := NewReader(c).OpenAttachment(context.Background(), &types.Attachment{ID: "55"})
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "binary\x00data", string(data))

	req := srv.RequestsTo(http.MethodGet, "/rest/api/3/attachment/content/55")[0]
	assert.Equal(t, "Bearer secret", req.Headers.Get("Authorization"))
	assert.Equal(t, "*/*", req.Headers.Get("Accept"))
}

func TestBasicAuth(t *testing.T) {
	c, srv := newTestClient(t, "me@example.com")
	srv.SetResponse(http.MethodGet, "/rest/api/3/myself", 200, map[string]string{"accountId": "acc-me"})

	me, err := c.Myself(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "acc-me", me.AccountID)

	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("me@example.com:secret"))
	assert.Equal(t, want, srv.GetRequests()[0].Headers.Get("Authorization"))
}

func TestRetriesTransientFailures(t *testing.T) {
	c, srv := newTestClient(t, "me@example.com")
	srv.SetResponse(http.MethodGet, "/rest/api/3/myself", 200, map[string]string{"accountId": "acc-me"})
	srv.FailNext(2, http.StatusTooManyRequests)

	_, err := c.Myself(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, srv.GetRequestCount())
}

func TestRetriesGiveUp(t *testing.T) {
	c, srv := newTestClient(t, "me@example.com")
	srv.FailNext(10, http.StatusBadGateway)

	_, err := c.Myself(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, 4, srv.GetRequestCount(), "first attempt plus three retries")
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	c, srv := newTestClient(t, "me@example.com")
	srv.SetResponse(http.MethodGet, "/rest/api/3/issue/PROJ-1/watchers", http.StatusForbidden, map[string]string{"message": "no"})

	_, err := c.Watchers(context.Background(), "PROJ-1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "no")
	assert.Equal(t, 1, srv.GetRequestCount())
	assert.False(t, errors.Is(err, types.ErrNotFound))
}

func TestMissingConfiguration(t *testing.T) {
	_, err := NewClient("", "u", "t").Myself(context.Background())
	assert.ErrorContains(t, err, "URL not configured")
	_, err = NewClient("https://x.atlassian.net", "u", "").Myself(context.Background())
	assert.ErrorContains(t, err, "API token not configured")
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2024-01-15T10:30:00.000+0000", want, false},
		{"2024-01-15T11:30:00.000+0100", want, false},
		{"2024-01-15T10:30:00.000Z", want, false},
		{"2024-01-15T10:30:00Z", want, false},
		{"2024-01-15T10:30:00+00:00", want, false},
		{"", time.Time{}, true},
		{"yesterday", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("")
	assert.NoError(t, err)
	assert.Nil(t, d)

	d, err = ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, 29, d.Day())

	_, err = ParseDate("02/29/2024")
	assert.Error(t, err)
}
