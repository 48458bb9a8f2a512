// Package testutil provides a mock EDGAR archive for tests.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/sec-edgar-client/pkg/endpoint"
)

// MockResponse defines the behavior of one mock endpoint.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// DirectoryRow is one row of the mock company directory.
type DirectoryRow struct {
	CIK      int
	Name     string
	Ticker   string
	Exchange string
}

// MockEDGAR is a configurable mock EDGAR server. It serves both the data
// and the www hosts from one address; unknown paths answer 404.
type MockEDGAR struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	requestCount      int
	pathCount         map[string]int
	lastRequestHeader http.Header
}

// NewMockEDGAR starts a mock server.
func NewMockEDGAR() *MockEDGAR {
	mock := &MockEDGAR{
		handlers:  make(map[string]http.HandlerFunc),
		pathCount: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.pathCount[r.URL.Path]++
		mock.lastRequestHeader = r.Header.Clone()
		mock.lastRequestHeader.Set("Host", r.Host)
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}
		http.NotFound(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockEDGAR) URL() string {
	return m.server.URL
}

// Endpoints returns an endpoint catalogue pointing both hosts at the mock.
func (m *MockEDGAR) Endpoints() endpoint.Endpoints {
	return endpoint.Endpoints{DataBaseURL: m.server.URL, WWWBaseURL: m.server.URL}
}

// Close shuts down the mock server.
func (m *MockEDGAR) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockEDGAR) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.pathCount = make(map[string]int)
	m.lastRequestHeader = nil
}

// SetHandler sets a custom handler for a path.
func (m *MockEDGAR) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockEDGAR) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetJSON serves body as a 200 JSON response on path.
func (m *MockEDGAR) SetJSON(path, body string) {
	m.SetResponse(path, NewJSONResponse(body))
}

// SetDirectory serves the company directory.
func (m *MockEDGAR) SetDirectory(rows ...DirectoryRow) {
	var b strings.Builder
	b.WriteString(`{"fields":["cik","name","ticker","exchange"],"data":[`)
	for i, row := range rows {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `[%d,%q,%q,%q]`, row.CIK, row.Name, row.Ticker, row.Exchange)
	}
	b.WriteString(`]}`)
	m.SetJSON("/files/company_tickers_exchange.json", b.String())
}

// SetFlaky serves failures responses with status before answering resp.
func (m *MockEDGAR) SetFlaky(path string, failures, status int, resp MockResponse) {
	var mu sync.Mutex
	remaining := failures
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		fail := remaining > 0
		remaining--
		mu.Unlock()

		if fail {
			w.WriteHeader(status)
			return
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		w.Write([]byte(resp.Body))
	})
}

// RequestCount returns the number of requests made to the server.
func (m *MockEDGAR) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// PathCount returns the number of requests made to path.
func (m *MockEDGAR) PathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCount[path]
}

// LastRequestHeader returns the headers of the latest request, including Host.
func (m *MockEDGAR) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRequestHeader
}

// NewJSONResponse creates a 200 OK JSON response.
func NewJSONResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

// NewFileResponse creates a 200 OK response for a document or archive.
func NewFileResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "application/octet-stream",
		},
	}
}

// NewRateLimitResponse creates the 403 EDGAR sends to callers over the limit.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusForbidden,
		Body:       "Request Rate Threshold Exceeded",
		Headers: map[string]string{
			"Content-Type": "text/html",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       "Internal Server Error",
	}
}
