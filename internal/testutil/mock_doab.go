// Package testutil provides testing utilities for the DOAB scraper.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// SearchPath is the path the mock serves search requests on.
const SearchPath = "/rest/search"

// MockDOAB is a configurable mock of the DOAB search endpoint.
//
// Pages are keyed by the exact "query" parameter (query text plus year) and
// the "offset" parameter. Unknown pages answer with an empty list, which ends
// pagination.
type MockDOAB struct {
	server *httptest.Server

	mu       sync.RWMutex
	pages    map[string]string
	delay    time.Duration
	status   int
	requests []url.Values
	headers  []http.Header
}

// NewMockDOAB starts a new mock server.
func NewMockDOAB() *MockDOAB {
	mock := &MockDOAB{
		pages: make(map[string]string),
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// URL returns the search endpoint URL.
func (m *MockDOAB) URL() string {
	return m.server.URL + SearchPath
}

// Close shuts down the mock server.
func (m *MockDOAB) Close() {
	m.server.Close()
}

// SetPage configures the raw body returned for (query, offset).
func (m *MockDOAB) SetPage(query string, offset int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[pageKey(query, offset)] = body
}

// SetRecords configures a bare-list page of records for (query, offset).
func (m *MockDOAB) SetRecords(query string, offset int, records ...map[string]any) {
	m.SetPage(query, offset, RecordsJSON(records...))
}

// SetDelay makes every response wait d (or until the client gives up).
func (m *MockDOAB) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// SetStatus forces every response to the given status code. 0 restores normal pages.
func (m *MockDOAB) SetStatus(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status
}

// RequestCount returns the number of requests received.
func (m *MockDOAB) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// Requests returns the query parameters of every request, in order.
func (m *MockDOAB) Requests() []url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]url.Values, len(m.requests))
	copy(out, m.requests)
	return out
}

// LastHeader returns the headers of the most recent request.
func (m *MockDOAB) LastHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.headers) == 0 {
		return nil
	}
	return m.headers[len(m.headers)-1]
}

// Queries returns the "query" parameter of every request, in order.
func (m *MockDOAB) Queries() []string {
	var queries []string
	for _, q := range m.Requests() {
		queries = append(queries, q.Get("query"))
	}
	return queries
}

func (m *MockDOAB) handle(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	m.mu.Lock()
	m.requests = append(m.requests, query)
	m.headers = append(m.headers, r.Header.Clone())
	delay := m.delay
	status := m.status
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if r.URL.Path != SearchPath {
		http.NotFound(w, r)
		return
	}

	if status != 0 {
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"error": "%s"}`, http.StatusText(status))
		return
	}

	offset, _ := strconv.Atoi(query.Get("offset"))

	m.mu.RLock()
	body, ok := m.pages[pageKey(query.Get("query"), offset)]
	m.mu.RUnlock()
	if !ok {
		body = `[]`
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

func pageKey(query string, offset int) string {
	return query + "|" + strconv.Itoa(offset)
}

// RecordsJSON encodes records as a bare JSON list.
func RecordsJSON(records ...map[string]any) string {
	if records == nil {
		records = []map[string]any{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		panic(fmt.Sprintf("marshal records: %v", err))
	}
	return string(data)
}

// Record builds a raw record with direct fields. Empty arguments are omitted.
func Record(title, author, publicationDate, handle string) map[string]any {
	rec := map[string]any{}
	if title != "" {
		rec["title"] = title
	}
	if author != "" {
		rec["authors"] = []map[string]any{{"fullName": author}}
	}
	if publicationDate != "" {
		rec["publicationDate"] = publicationDate
	}
	if handle != "" {
		rec["handle"] = handle
	}
	return rec
}

// MetadataRecord builds a raw record that only carries Dublin Core metadata.
// pairs alternates key, value.
func MetadataRecord(pairs ...string) map[string]any {
	entries := make([]map[string]any, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		entries = append(entries, map[string]any{"key": pairs[i], "value": pairs[i+1]})
	}
	return map[string]any{"metadata": entries}
}
