// Package testutil provides testing utilities for the Notion client.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

// MockFailure is a canned error response served instead of a page.
type MockFailure struct {
	StatusCode int
	Code       string
	Message    string
	Headers    map[string]string
}

// MockNotion is an in-process fake of the Notion database query endpoint.
// Rows are served in pages; the cursor is the stringified offset.
type MockNotion struct {
	server *httptest.Server

	mu       sync.Mutex
	rows     map[string][]json.RawMessage
	failures []MockFailure

	requestCount int
	pageSizes    []int
	cursors      []string
	lastHeader   http.Header
}

// NewMockNotion starts a new mock server. Call Close when done.
func NewMockNotion() *MockNotion {
	m := &MockNotion{rows: make(map[string][]json.RawMessage)}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// URL returns the base URL to pass as the client BaseURL.
func (m *MockNotion) URL() string {
	return m.server.URL
}

// Close shuts the server down.
func (m *MockNotion) Close() {
	m.server.Close()
}

// AddRows appends raw page objects to a database, creating it if needed.
func (m *MockNotion) AddRows(databaseID string, rows ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[databaseID]; !ok {
		m.rows[databaseID] = []json.RawMessage{}
	}
	for _, r := range rows {
		m.rows[databaseID] = append(m.rows[databaseID], json.RawMessage(r))
	}
}

// FailNext queues failures served, in order, before any successful page.
func (m *MockNotion) FailNext(f ...MockFailure) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, f...)
}

// Requests returns the number of query calls received so far.
func (m *MockNotion) Requests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestCount
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockNotion) LastRequestHeader() http.Header {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastHeader.Clone()
}

// SeenCursors returns the start_cursor of every successful page request.
func (m *MockNotion) SeenCursors() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.cursors...)
}

// SeenPageSizes returns the page_size of every successful page request.
func (m *MockNotion) SeenPageSizes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.pageSizes...)
}

func (m *MockNotion) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requestCount++
	m.lastHeader = r.Header.Clone()

	if len(m.failures) > 0 {
		f := m.failures[0]
		m.failures = m.failures[1:]
		for k, v := range f.Headers {
			w.Header().Set(k, v)
		}
		writeJSON(w, f.StatusCode, map[string]any{
			"object":  "error",
			"status":  f.StatusCode,
			"code":    f.Code,
			"message": f.Message,
		})
		return
	}

	// /v1/databases/{id}/query
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if r.Method != http.MethodPost || len(parts) != 4 || parts[0] != "v1" || parts[1] != "databases" || parts[3] != "query" {
		writeJSON(w, http.StatusNotFound, map[string]any{"object": "error", "status": 404, "code": "invalid_request_url", "message": "Invalid request URL."})
		return
	}
	rows, ok := m.rows[parts[2]]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"object":  "error",
			"status":  404,
			"code":    "object_not_found",
			"message": fmt.Sprintf("Could not find database with ID: %s.", parts[2]),
		})
		return
	}

	var body struct {
		StartCursor string `json:"start_cursor"`
		PageSize    int    `json:"page_size"`
	}
	raw, _ := io.ReadAll(r.Body)
	if err := json.Unmarshal(raw, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"object": "error", "status": 400, "code": "invalid_json", "message": err.Error()})
		return
	}
	m.pageSizes = append(m.pageSizes, body.PageSize)
	m.cursors = append(m.cursors, body.StartCursor)

	size := body.PageSize
	if size <= 0 || size > 100 {
		size = 100
	}
	offset := 0
	if body.StartCursor != "" {
		n, err := strconv.Atoi(body.StartCursor)
		if err != nil || n < 0 || n > len(rows) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"object": "error", "status": 400, "code": "validation_error", "message": "start_cursor is invalid"})
			return
		}
		offset = n
	}
	end := offset + size
	if end > len(rows) {
		end = len(rows)
	}

	resp := map[string]any{
		"object":      "list",
		"results":     rows[offset:end],
		"has_more":    end < len(rows),
		"next_cursor": nil,
	}
	if end < len(rows) {
		resp["next_cursor"] = strconv.Itoa(end)
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Row builds a Notion page object. A nil amount omits the amount property;
// an empty account omits the category property.
func Row(id string, amount *float64, account string) string {
	props := map[string]any{}
	if amount != nil {
		props["Amount"] = map[string]any{"id": "amt", "type": "number", "number": *amount}
	}
	if account != "" {
		props["Account"] = map[string]any{"id": "acc", "type": "select", "select": map[string]any{"name": account}}
	}
	b, _ := json.Marshal(map[string]any{"object": "page", "id": id, "properties": props})
	return string(b)
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
