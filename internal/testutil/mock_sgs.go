// Package testutil provides testing utilities for the SGS client.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior of one mock SGS endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// MockSGS is a configurable mock SGS upstream for testing. Paths can be
// bound to fixed responses, scripted response sequences, or arbitrary
// handlers; every incoming request is counted per path.
type MockSGS struct {
	server   *httptest.Server
	mu       sync.Mutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	requestCount  int
	countsByPath  map[string]int
	lastRawQuery  string
	lastUserAgent string
}

// NewMockSGS creates a new mock SGS server.
func NewMockSGS() *MockSGS {
	mock := &MockSGS{
		handlers:     make(map[string]func(w http.ResponseWriter, r *http.Request)),
		countsByPath: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.countsByPath[r.URL.Path]++
		mock.lastRawQuery = r.URL.RawQuery
		mock.lastUserAgent = r.Header.Get("User-Agent")
		handler := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if handler != nil {
			handler(w, r)
			return
		}
		http.NotFound(w, r)
	}))

	return mock
}

// URL returns the mock server URL, suitable as the client's BaseURL.
func (m *MockSGS) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockSGS) Close() {
	m.server.Close()
}

// RangePath returns the bounded-range request path for a series.
func RangePath(code int) string {
	return fmt.Sprintf("/bcdata.sgs.%d/dados", code)
}

// LastPath returns the "last N points" request path for a series.
func LastPath(code, n int) string {
	return fmt.Sprintf("/bcdata.sgs.%d/dados/ultimos/%d", code, n)
}

// MetadataPath returns the series root (metadata) path.
func MetadataPath(code int) string {
	return fmt.Sprintf("/bcdata.sgs.%d", code)
}

// SetHandler binds a custom handler to a path.
func (m *MockSGS) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse binds a fixed response to a path.
func (m *MockSGS) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetSequence binds a scripted response sequence to a path. Each request
// consumes the next response; the final one repeats once the script runs
// out.
func (m *MockSGS) SetSequence(path string, responses ...MockResponse) {
	var mu sync.Mutex
	next := 0
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := responses[next]
		if next < len(responses)-1 {
			next++
		}
		mu.Unlock()

		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// RequestCount returns the total number of requests received.
func (m *MockSGS) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestCount
}

// RequestCountFor returns the number of requests received for one path.
func (m *MockSGS) RequestCountFor(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countsByPath[path]
}

// LastRawQuery returns the query string of the most recent request.
func (m *MockSGS) LastRawQuery() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRawQuery
}

// LastUserAgent returns the User-Agent of the most recent request.
func (m *MockSGS) LastUserAgent() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastUserAgent
}

// OKResponse builds a 200 response with a JSON observation array body.
func OKResponse(body string) MockResponse {
	return MockResponse{StatusCode: http.StatusOK, Body: body}
}

// ThrottledResponse builds a 429 response.
func ThrottledResponse() MockResponse {
	return MockResponse{StatusCode: http.StatusTooManyRequests, Body: `{"error": "too many requests"}`}
}

// ServerErrorResponse builds a 500 response.
func ServerErrorResponse() MockResponse {
	return MockResponse{StatusCode: http.StatusInternalServerError, Body: `{"error": "internal error"}`}
}

// Observations builds a JSON observation array from date/value pairs.
func Observations(pairs ...[2]string) string {
	out := "["
	for i, p := range pairs {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf(`{"data":%q,"valor":%q}`, p[0], p[1])
	}
	return out + "]"
}
