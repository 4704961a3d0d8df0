// Package testutil holds request builders and response assertions shared by
// handler, router and integration tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ErrorBody is the `{error, error_description}` envelope written by httputil.WriteError.
type ErrorBody struct {
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

// NewRequest builds a bodyless request.
func NewRequest(t *testing.T, method, path string) *http.Request {
	t.Helper()
	return httptest.NewRequest(method, path, nil)
}

// NewJSONRequest marshals body (nil sends no body) and sets the JSON content type.
func NewJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	if body == nil {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("Content-Type", "application/json")
		return req
	}
	return NewRequestWithBody(t, method, path, MustMarshal(t, body))
}

// NewRequestWithBody sends raw as a JSON body, for malformed-payload cases.
func NewRequestWithBody(t *testing.T, method, path, raw string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// DoRequest serves req on handler and returns the recorded response.
func DoRequest(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// MustMarshal encodes v as a JSON string.
func MustMarshal(t *testing.T, v any) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(v), "marshal %T", v)
	return strings.TrimSuffix(buf.String(), "\n")
}

// UnmarshalResponse decodes the body into a new T. The recorder's buffer is
// left intact so later assertions can read it again.
func UnmarshalResponse[T any](t *testing.T, rr *httptest.ResponseRecorder) *T {
	t.Helper()
	var out T
	decode(t, rr, &out)
	return &out
}

// AssertStatus checks the status code and prints the body on mismatch.
func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	assert.Equal(t, want, rr.Code, "unexpected status; body: %s", rr.Body.String())
}

func AssertStatusOK(t *testing.T, rr *httptest.ResponseRecorder) {
	t.Helper()
	AssertStatus(t, rr, http.StatusOK)
}

// AssertStatusAndError checks the status and the envelope's error code.
func AssertStatusAndError(t *testing.T, rr *httptest.ResponseRecorder, wantStatus int, wantCode string) {
	t.Helper()
	AssertStatus(t, rr, wantStatus)
	var body ErrorBody
	decode(t, rr, &body)
	assert.Equal(t, wantCode, body.Code, "unexpected error code")
}

// AssertJSONContains checks one top-level field. Numbers decode as float64.
func AssertJSONContains(t *testing.T, rr *httptest.ResponseRecorder, key string, want any) {
	t.Helper()
	fields := topLevel(t, rr)
	assert.Equal(t, want, fields[key], "unexpected value for %q", key)
}

// AssertJSONHasKey checks that a top-level field is present, whatever its value.
func AssertJSONHasKey(t *testing.T, rr *httptest.ResponseRecorder, key string) {
	t.Helper()
	fields := topLevel(t, rr)
	assert.Contains(t, fields, key)
}

func topLevel(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var fields map[string]any
	decode(t, rr, &fields)
	return fields
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, into any) {
	t.Helper()
	require.NotNil(t, rr.Body, "response has no body")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), into), "decode response: %s", rr.Body.String())
}
