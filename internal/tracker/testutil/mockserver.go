// Package testutil provides test doubles for the source and target systems:
// an httptest server for client tests and in-memory implementations of the
// tracker collaborator interfaces for engine tests.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
)

// RecordedRequest stores information about a request made to the mock server.
type RecordedRequest struct {
	Method  string
	Path    string
	Query   string
	Headers http.Header
	Body    []byte
}

// MockResponse represents a configured response for the mock server.
type MockResponse struct {
	StatusCode int
	Body       interface{}
	RawBody    []byte // Sent as-is when set
	Headers    map[string]string
}

// MockServer is an httptest server that records requests and replies with
// configured responses; unmatched routes get a JSON 404. Routes are keyed by "METHOD /path"; a route may hold
// a queue of responses, the last of which repeats.
type MockServer struct {
	Server *httptest.Server
	mu     sync.Mutex

	requests []RecordedRequest
	routes   map[string][]MockResponse

	// failures counts down: while positive, every request gets failStatus.
	failures   int
	failStatus int
}

// NewMockServer starts a mock server.
func NewMockServer() *MockServer {
	m := &MockServer{routes: make(map[string][]MockResponse)}
	m.Server = httptest.NewServer(http.HandlerFunc(m.handleRequest))
	return m
}

func (m *MockServer) handleRequest(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	_ = r.Body.Close()

	m.mu.Lock()
	m.requests = append(m.requests, RecordedRequest{
		Method:  r.Method,
		Path:    r.URL.Path,
		Query:   r.URL.RawQuery,
		Headers: r.Header.Clone(),
		Body:    body,
	})
	if m.failures > 0 {
		m.failures--
		status := m.failStatus
		m.mu.Unlock()
		w.WriteHeader(status)
		writeJSON(w, map[string]string{"message": http.StatusText(status)})
		return
	}
	resp, found := m.next(r.Method + " " + r.URL.Path)
	m.mu.Unlock()

	if found {
		for k, v := range resp.Headers {
			w.Header().Set(k, v)
		}
		if resp.RawBody != nil {
			if resp.StatusCode != 0 {
				w.WriteHeader(resp.StatusCode)
			}
			_, _ = w.Write(resp.RawBody)
			return
		}
		if resp.Body != nil {
			w.Header().Set("Content-Type", "application/json")
		}
		if resp.StatusCode != 0 {
			w.WriteHeader(resp.StatusCode)
		}
		if resp.Body != nil {
			_ = json.NewEncoder(w).Encode(resp.Body)
		}
		return
	}

	w.WriteHeader(http.StatusNotFound)
	writeJSON(w, map[string]string{"message": "Not found"})
}

// next pops the next response for a route, keeping the last one. Callers hold mu.
func (m *MockServer) next(route string) (MockResponse, bool) {
	queue := m.routes[route]
	if len(queue) == 0 {
		return MockResponse{}, false
	}
	resp := queue[0]
	if len(queue) > 1 {
		m.routes[route] = queue[1:]
	}
	return resp, true
}

// URL returns the mock server URL.
func (m *MockServer) URL() string {
	return m.Server.URL
}

// Close shuts down the mock server.
func (m *MockServer) Close() {
	m.Server.Close()
}

// SetResponse configures the response for "METHOD /path".
func (m *MockServer) SetResponse(method, path string, statusCode int, body interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[method+" "+path] = []MockResponse{{StatusCode: statusCode, Body: body}}
}

// QueueResponses configures a sequence of responses for "METHOD /path".
func (m *MockServer) QueueResponses(method, path string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[method+" "+path] = append([]MockResponse(nil), responses...)
}

// FailNext makes the next n requests fail with status.
func (m *MockServer) FailNext(n, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = n
	m.failStatus = status
}

// GetRequests returns all recorded requests.
func (m *MockServer) GetRequests() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]RecordedRequest, len(m.requests))
	copy(result, m.requests)
	return result
}

// RequestsTo returns the recorded requests for "METHOD /path".
func (m *MockServer) RequestsTo(method, path string) []RecordedRequest {
	var out []RecordedRequest
	for _, r := range m.GetRequests() {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// GetRequestCount returns the number of recorded requests.
func (m *MockServer) GetRequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	_ = json.NewEncoder(w).Encode(v)
}
