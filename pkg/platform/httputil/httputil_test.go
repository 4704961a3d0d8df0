package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "feedlink/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   map[string]string
	}{
		{
			name:       "internal error hides its message",
			err:        dErrors.New(dErrors.CodeInternal, "db failed"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   map[string]string{"error": "internal_error"},
		},
		{
			name:       "invalid token explains itself",
			err:        dErrors.New(dErrors.CodeInvalidToken, "confirmation token does not match"),
			wantStatus: http.StatusBadRequest,
			wantBody: map[string]string{
				"error":             "invalid_token",
				"error_description": "confirmation token does not match",
			},
		},
		{
			name:       "wrapped rate limit keeps the outer message",
			err:        dErrors.Wrap(http.ErrHandlerTimeout, dErrors.CodeRateLimited, "slow down"),
			wantStatus: http.StatusTooManyRequests,
			wantBody:   map[string]string{"error": "rate_limited", "error_description": "slow down"},
		},
		{
			name:       "uncoded errors are internal",
			err:        http.ErrServerClosed,
			wantStatus: http.StatusInternalServerError,
			wantBody:   map[string]string{"error": "internal_error"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantBody, body)
		})
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[dErrors.Code]int{
		dErrors.CodeNotFound:          http.StatusNotFound,
		dErrors.CodeForbidden:         http.StatusForbidden,
		dErrors.CodeNotNotifiable:     http.StatusBadRequest,
		dErrors.CodeInvalidQuery:      http.StatusBadRequest,
		dErrors.CodeConflict:          http.StatusConflict,
		dErrors.CodeDependencyFailure: http.StatusBadGateway,
		dErrors.CodeUnauthorized:      http.StatusUnauthorized,
		dErrors.CodeRateLimited:       http.StatusTooManyRequests,
	}
	for code, want := range cases {
		if got := StatusFor(code); got != want {
			t.Errorf("StatusFor(%s) = %d, want %d", code, got, want)
		}
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	type payload struct {
		Status string `json:"status"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"completed","extra":1}`))
	if _, err := DecodeJSON[payload](req); !dErrors.HasCode(err, dErrors.CodeBadRequest) {
		t.Fatalf("expected bad_request, got %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"completed"}`))
	got, err := DecodeJSON[payload](req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != "completed" {
		t.Fatalf("expected completed, got %q", got.Status)
	}
}
