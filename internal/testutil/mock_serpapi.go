// Package testutil provides testing utilities for the SerpApi client.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock SerpApi endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockSerpApi is a configurable mock SerpApi server for testing.
type MockSerpApi struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	sequence []MockResponse

	// Tracking
	RequestCount      int
	Queries           []url.Values
	LastRequestHeader http.Header
}

// NewMockSerpApi creates a new mock SerpApi server.
func NewMockSerpApi() *MockSerpApi {
	mock := &MockSerpApi{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.Queries = append(mock.Queries, r.URL.Query())
		mock.LastRequestHeader = r.Header.Clone()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockSerpApi) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockSerpApi) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockSerpApi) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.Queries = nil
	m.LastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockSerpApi) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockSerpApi) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, resp)
	})
}

// SetSearchSequence makes /search.json answer with resps in order.
// The last response repeats once the sequence is used up.
func (m *MockSerpApi) SetSearchSequence(resps ...MockResponse) {
	m.mu.Lock()
	m.sequence = resps
	m.mu.Unlock()

	served := 0
	m.SetHandler("/search.json", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		i := served
		if i >= len(m.sequence) {
			i = len(m.sequence) - 1
		}
		served++
		resp := m.sequence[i]
		m.mu.Unlock()

		writeResponse(w, resp)
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockSerpApi) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetQueries returns a copy of the query strings received so far.
func (m *MockSerpApi) GetQueries() []url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]url.Values, len(m.Queries))
	copy(out, m.Queries)
	return out
}

// NextURL builds a serpapi_pagination.next URL pointing back at the mock.
func (m *MockSerpApi) NextURL(query url.Values) string {
	return m.server.URL + "/search.json?" + query.Encode()
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
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
}

// defaultHandler provides SerpApi-like empty responses.
func (m *MockSerpApi) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	switch r.URL.Path {
	case "/account.json":
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"plan_name":"Developer","total_searches_left":1000,"this_hour_searches":0,"account_rate_limit_per_hour":1000}`))
	case "/search.json":
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"search_metadata":{"status":"Success"},"organic_results":[]}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Unknown endpoint"}`))
	}
}

// SearchPage renders a SerpApi page with items under listField and an
// optional serpapi_pagination.next cursor.
func SearchPage(listField string, items []map[string]any, next string) string {
	page := map[string]any{
		"search_metadata":   map[string]any{"status": "Success", "id": "mock"},
		"search_parameters": map[string]any{"engine": "mock"},
	}
	if items != nil {
		page[listField] = items
	}
	if next != "" {
		page["serpapi_pagination"] = map[string]any{"next": next}
	}
	data, _ := json.Marshal(page)
	return string(data)
}

// NewPageResponse creates a standard 200 OK JSON response.
func NewPageResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRemoteErrorResponse creates a 200 OK page that carries an error field,
// as SerpApi does for searches without results.
func NewRemoteErrorResponse(message string) MockResponse {
	data, _ := json.Marshal(map[string]any{
		"search_metadata": map[string]any{"status": "Success"},
		"error":           message,
	})
	return NewPageResponse(string(data))
}

// NewInvalidKeyResponse creates the 401 SerpApi returns for a bad api_key.
func NewInvalidKeyResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusUnauthorized,
		Body:       `{"error":"Invalid API key. Your API key should be here: https://serpapi.com/manage-api-key"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error":"Your account has run out of searches."}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       "Internal Server Error",
		Headers: map[string]string{
			"Content-Type": "text/plain",
		},
	}
}
