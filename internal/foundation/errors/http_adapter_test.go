package errors

import (
	"encoding/json"
	stdErrors "errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPErrorAdapter_StatusCodeFor(t *testing.T) {
	adapter := NewHTTPErrorAdapter(slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, http.StatusOK},
		{"validation", ValidationError("Invalid site data provided").Build(), http.StatusBadRequest},
		{"config", ConfigError("GitHub token not configured").Build(), http.StatusInternalServerError},
		{"method", NewError(CategoryMethod, "Method not allowed").Build(), http.StatusMethodNotAllowed},
		{"auth", AuthError("unauthorized").Build(), http.StatusUnauthorized},
		{"conflict", ConflictError("stale").Build(), http.StatusConflict},
		{"store", StoreError("upstream").Build(), http.StatusBadGateway},
		{"publish", PublishError("Failed to update any files").Build(), http.StatusInternalServerError},
		{"unclassified", stdErrors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := adapter.StatusCodeFor(tt.err); got != tt.expected {
				t.Errorf("StatusCodeFor() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestHTTPErrorAdapter_WriteErrorResponse(t *testing.T) {
	adapter := NewHTTPErrorAdapter(slog.Default())

	t.Run("details key is emitted verbatim", func(t *testing.T) {
		err := PublishError("Failed to update any files").
			WithContext(DetailsKey, []string{"primary: boom", "public: boom"}).
			Build()

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/publish", nil)
		adapter.WriteErrorResponse(rec, req, err)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		var body struct {
			Error   string   `json:"error"`
			Details []string `json:"details"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Error != "Failed to update any files" || len(body.Details) != 2 {
			t.Errorf("unexpected body %+v", body)
		}
	})

	t.Run("validation error without context", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/publish", nil)
		adapter.WriteErrorResponse(rec, req, ValidationError("Invalid site data provided").Build())

		var body map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body["error"] != "Invalid site data provided" {
			t.Errorf("unexpected error field %v", body["error"])
		}
		if _, ok := body["details"]; ok {
			t.Error("details should be omitted when context is empty")
		}
	})
}
