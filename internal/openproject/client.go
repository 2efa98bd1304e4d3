package openproject

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/steveyegge/j2o/internal/types"
)

const (
	DefaultTimeout  = 60 * time.Second
	DefaultPageSize = 500

	retryMaxElapsed = 60 * time.Second
)

// APIError is a non-2xx response from OpenProject.
type APIError struct {
	Method          string
	URL             string
	StatusCode      int
	ErrorIdentifier string
	Message         string
	Body            string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Body
	}
	return fmt.Sprintf("openproject API %s %s returned %d: %s", e.Method, e.URL, e.StatusCode, msg)
}

// Is maps status codes onto the sentinel errors the engine classifies.
func (e *APIError) Is(target error) bool {
	switch target {
	case types.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case types.ErrStaleVersion:
		return e.StatusCode == http.StatusConflict
	}
	return false
}

// contains reports whether the error message mentions any of the phrases.
func (e *APIError) contains(phrases ...string) bool {
	msg := strings.ToLower(e.Message + " " + e.Body)
	for _, p := range phrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// Client talks to one OpenProject instance. It implements the engine's
// target writer.
type Client struct {
	URL        string
	APIKey     string
	HTTPClient *http.Client
	Logger     *slog.Logger

	// CorrelationField is the custom field holding the source key,
	// e.g. "customField12".
	CorrelationField string

	// ActAsHeader names the header carrying the login a write is
	// attributed to. Empty disables attribution.
	ActAsHeader string

	PageSize int

	// NewBackOff returns the retry policy for one request.
	NewBackOff func() backoff.BackOff
}

// NewClient creates a client authenticating with an API key.
func NewClient(url, apiKey, correlationField string) *Client {
	return &Client{
		URL:              strings.TrimSuffix(url, "/"),
		APIKey:           apiKey,
		CorrelationField: correlationField,
		HTTPClient:       &http.Client{Timeout: DefaultTimeout},
		PageSize:         DefaultPageSize,
		NewBackOff:       newRetryBackoff,
	}
}

func newRetryBackoff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = retryMaxElapsed
	return bo
}

// request describes one API call. Body is replayed on every attempt.
type request struct {
	method      string
	path        string // below the API root, with query
	body        []byte
	contentType string
	actAs       string
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, request{method: http.MethodGet, path: path}, out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in, out interface{}, actAs string) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, request{method: method, path: path, body: data, contentType: "application/json", actAs: actAs}, out)
}

// do executes req, retrying transient failures, and decodes a JSON reply
// into out when out is non-nil.
//
// POST is not idempotent here: a create that reached the server must not be
// repeated, so POST retries only on 429 and 503 and on dial failures.
func (c *Client) do(ctx context.Context, req request, out interface{}) error {
	if c.URL == "" {
		return errors.New("openproject URL not configured")
	}
	if c.APIKey == "" {
		return errors.New("openproject API key not configured")
	}
	apiURL := c.URL + apiPrefix + req.path

	var respBody []byte
	op := func() error {
		var body io.Reader
		if req.body != nil {
			body = bytes.NewReader(req.body)
		}
		httpReq, err := http.NewRequestWithContext(ctx, req.method, apiURL, body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		httpReq.SetBasicAuth("apikey", c.APIKey)
		httpReq.Header.Set("Accept", "application/hal+json")
		httpReq.Header.Set("User-Agent", "j2o/1.0")
		if req.contentType != "" {
			httpReq.Header.Set("Content-Type", req.contentType)
		}
		if req.actAs != "" && c.ActAsHeader != "" {
			httpReq.Header.Set(c.ActAsHeader, req.actAs)
		}

		resp, err := c.httpClient().Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			if req.method == http.MethodPost && !isDialError(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			respBody = data
			return nil
		}

		apiErr := newAPIError(req.method, apiURL, resp.StatusCode, data)
		if retryable(req.method, resp.StatusCode) {
			return apiErr
		}
		return backoff.Permanent(apiErr)
	}

	notify := func(err error, wait time.Duration) {
		c.logger().Debug("openproject request retry", "method", req.method, "path", req.path, "wait", wait, "error", err)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(c.backOff(), ctx), notify); err != nil {
		return err
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse OpenProject response: %w", err)
	}
	return nil
}

func newAPIError(method, apiURL string, status int, body []byte) *APIError {
	e := &APIError{Method: method, URL: apiURL, StatusCode: status}
	var hal ErrorResponse
	if json.Unmarshal(body, &hal) == nil && (hal.Message != "" || hal.ErrorIdentifier != "") {
		e.ErrorIdentifier = hal.ErrorIdentifier
		e.Message = strings.Join(hal.messages(), "; ")
	} else {
		e.Body = strings.TrimSpace(string(body))
		if len(e.Body) > 4096 {
			e.Body = e.Body[:4096]
		}
	}
	return e
}

func retryable(method string, status int) bool {
	switch {
	case status == http.StatusTooManyRequests, status == http.StatusServiceUnavailable:
		return true
	case status >= 500:
		return method != http.MethodPost
	}
	return false
}

func isDialError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") || strings.Contains(err.Error(), "no such host")
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

func (c *Client) pageSize() int {
	if c.PageSize <= 0 {
		return DefaultPageSize
	}
	return c.PageSize
}

func (c *Client) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}
