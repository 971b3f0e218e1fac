// Package testutil provides HTTP testing helpers for the cashflow server.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestServer wraps httptest.Server with convenience methods
type TestServer struct {
	Server  *httptest.Server
	BaseURL string
	t       *testing.T
}

// SetTestEnv points the CASHFLOW_* environment at a fresh temp directory
// for the duration of the test and returns that directory
func SetTestEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CASHFLOW_DATA_DIR", dir)
	t.Setenv("CASHFLOW_LISTEN_ADDR", ":0")
	t.Setenv("CASHFLOW_STORAGE_BACKEND", "file")
	t.Setenv("CASHFLOW_LOG_LEVEL", "warn")
	return dir
}

// NewTestServer starts a test server for router; it is closed when the test
// finishes
func NewTestServer(t *testing.T, router http.Handler) *TestServer {
	t.Helper()

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &TestServer{
		Server:  server,
		BaseURL: server.URL,
		t:       t,
	}
}

// GET performs a GET request to the given path
func (ts *TestServer) GET(path string) *http.Response {
	ts.t.Helper()
	return ts.Do(http.MethodGet, path, "", nil)
}

// POST performs a POST request with a raw body
func (ts *TestServer) POST(path string, contentType string, body io.Reader) *http.Response {
	ts.t.Helper()
	return ts.Do(http.MethodPost, path, contentType, body)
}

// POSTJSON encodes v and POSTs it
func (ts *TestServer) POSTJSON(path string, v any) *http.Response {
	ts.t.Helper()
	return ts.Do(http.MethodPost, path, "application/json", encode(ts.t, v))
}

// PUTJSON encodes v and PUTs it
func (ts *TestServer) PUTJSON(path string, v any) *http.Response {
	ts.t.Helper()
	return ts.Do(http.MethodPut, path, "application/json", encode(ts.t, v))
}

// DELETE performs a DELETE request
func (ts *TestServer) DELETE(path string) *http.Response {
	ts.t.Helper()
	return ts.Do(http.MethodDelete, path, "", nil)
}

// Do sends an arbitrary request
func (ts *TestServer) Do(method, path, contentType string, body io.Reader) *http.Response {
	ts.t.Helper()

	req, err := http.NewRequest(method, ts.BaseURL+path, body)
	if err != nil {
		ts.t.Fatalf("%s %s: building request: %v", method, path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := ts.Server.Client().Do(req)
	if err != nil {
		ts.t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return resp
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	ts.Server.Close()
}

// ReadBody reads and returns the response body as a string
func ReadBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	return string(body)
}

func encode(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to encode request body: %v", err)
	}
	return bytes.NewReader(data)
}
