package jira

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/steveyegge/j2o/internal/types"
)

// API constants
const (
	DefaultTimeout = 30 * time.Second
	MaxPageSize    = 100

	retryMaxElapsed = 30 * time.Second
)

// searchFields is the set of fields requested in search queries.
const searchFields = "summary,description,status,priority,issuetype,assignee,reporter,creator,labels," +
	"created,updated,duedate,parent,issuelinks,comment,attachment"

// APIError is a non-2xx response from Jira.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("jira API %s %s returned %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Is makes a 404 match types.ErrNotFound.
func (e *APIError) Is(target error) bool {
	return target == types.ErrNotFound && e.StatusCode == http.StatusNotFound
}

// retryable reports whether the request may succeed when repeated.
func (e *APIError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client provides HTTP access to a Jira instance.
type Client struct {
	URL        string
	Username   string
	APIToken   string
	HTTPClient *http.Client
	Logger     *slog.Logger

	// NewBackOff returns the retry policy for one request. BackOff
	// implementations are stateful, so each request gets a fresh one.
	NewBackOff func() backoff.BackOff
}

// NewClient creates a new Jira client.
func NewClient(url, username, apiToken string) *Client {
	return &Client{
		URL:      strings.TrimSuffix(url, "/"),
		Username: username,
		APIToken: apiToken,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		NewBackOff: newRetryBackoff,
	}
}

func newRetryBackoff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = retryMaxElapsed
	return bo
}

// Myself returns the authenticated user. It is the cheapest authenticated
// call and doubles as a credentials check.
func (c *Client) Myself(ctx context.Context) (*UserField, error) {
	var u UserField
	if err := c.getJSON(ctx, c.URL+"/rest/api/3/myself", &u); err != nil {
		return nil, fmt.Errorf("fetch current user: %w", err)
	}
	return &u, nil
}

// SearchIssues queries Jira using JQL and returns all matching issues, handling pagination.
func (c *Client) SearchIssues(ctx context.Context, jql string) ([]Issue, error) {
	var allIssues []Issue
	startAt := 0

	for {
		params := url.Values{
			"jql":        {jql},
			"fields":     {searchFields},
			"startAt":    {strconv.Itoa(startAt)},
			"maxResults": {strconv.Itoa(MaxPageSize)},
		}
		apiURL := fmt.Sprintf("%s/rest/api/3/search?%s", c.URL, params.Encode())

		var result SearchResult
		if err := c.getJSON(ctx, apiURL, &result); err != nil {
			return nil, fmt.Errorf("search issues: %w", err)
		}
		allIssues = append(allIssues, result.Issues...)

		if len(result.Issues) == 0 || startAt+len(result.Issues) >= result.Total {
			break
		}
		startAt += len(result.Issues)
	}

	return allIssues, nil
}

// Comments returns every comment of an issue, oldest first.
func (c *Client) Comments(ctx context.Context, key string) ([]*CommentField, error) {
	var all []*CommentField
	startAt := 0
	for {
		params := url.Values{
			"startAt":    {strconv.Itoa(startAt)},
			"maxResults": {strconv.Itoa(MaxPageSize)},
			"orderBy":    {"created"},
		}
		apiURL := fmt.Sprintf("%s/rest/api/3/issue/%s/comment?%s", c.URL, url.PathEscape(key), params.Encode())

		var page CommentPage
		if err := c.getJSON(ctx, apiURL, &page); err != nil {
			return nil, fmt.Errorf("list comments of %s: %w", key, err)
		}
		all = append(all, page.Comments...)

		if len(page.Comments) == 0 || startAt+len(page.Comments) >= page.Total {
			return all, nil
		}
		startAt += len(page.Comments)
	}
}

// Watchers returns the users watching an issue.
func (c *Client) Watchers(ctx context.Context, key string) ([]*UserField, error) {
	apiURL := fmt.Sprintf("%s/rest/api/3/issue/%s/watchers", c.URL, url.PathEscape(key))
	var result WatchersResult
	if err := c.getJSON(ctx, apiURL, &result); err != nil {
		return nil, fmt.Errorf("list watchers of %s: %w", key, err)
	}
	return result.Watchers, nil
}

// Download streams an attachment. contentURL is the attachment's content
// link; when empty the content endpoint for id is used. The caller closes
// the returned body.
func (c *Client) Download(ctx context.Context, id, contentURL string) (io.ReadCloser, error) {
	if contentURL == "" {
		contentURL = fmt.Sprintf("%s/rest/api/3/attachment/content/%s", c.URL, url.PathEscape(id))
	}
	resp, err := c.send(ctx, http.MethodGet, contentURL, "*/*")
	if err != nil {
		return nil, fmt.Errorf("download attachment %s: %w", id, err)
	}
	return resp.Body, nil
}

func (c *Client) getJSON(ctx context.Context, apiURL string, v interface{}) error {
	resp, err := c.send(ctx, http.MethodGet, apiURL, "application/json")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("parse Jira response: %w", err)
	}
	return nil
}

// send executes an authenticated request, retrying rate limits, server
// errors and transport failures. On success the caller owns resp.Body.
func (c *Client) send(ctx context.Context, method, apiURL, accept string) (*http.Response, error) {
	if c.URL == "" {
		return nil, errors.New("jira URL not configured")
	}
	if c.APIToken == "" {
		return nil, errors.New("jira API token not configured")
	}

	var resp *http.Response
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, method, apiURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		c.setAuth(req)
		req.Header.Set("Accept", accept)
		req.Header.Set("User-Agent", "j2o/1.0")

		r, err := c.httpClient().Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		if r.StatusCode >= 200 && r.StatusCode < 300 {
			resp = r
			return nil
		}

		body, _ := io.ReadAll(io.LimitReader(r.Body, 4096))
		_ = r.Body.Close()
		apiErr := &APIError{Method: method, URL: apiURL, StatusCode: r.StatusCode, Body: strings.TrimSpace(string(body))}
		if apiErr.retryable() {
			return apiErr
		}
		return backoff.Permanent(apiErr)
	}

	notify := func(err error, wait time.Duration) {
		c.logger().Debug("jira request retry", "method", method, "url", apiURL, "wait", wait, "error", err)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(c.backOff(), ctx), notify); err != nil {
		return nil, err
	}
	return resp, nil
}

// setAuth sets the appropriate authentication header on the request.
// Cloud uses basic auth with an API token; Server/DC accepts a bearer PAT.
func (c *Client) setAuth(req *http.Request) {
	if c.Username != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(c.Username + ":" + c.APIToken))
		req.Header.Set("Authorization", "Basic "+auth)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.APIToken)
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient == nil {
		return http.DefaultClient
	}
	return c.HTTPClient
}

func (c *Client) backOff() backoff.BackOff {
	if c.NewBackOff == nil {
		return newRetryBackoff()
	}
	return c.NewBackOff()
}

func (c *Client) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}
