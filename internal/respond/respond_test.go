package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/minilibrary/internal/apperror"
	"github.com/aryan0dhankhar/minilibrary/internal/requestctx"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body struct {
		Error map[string]any `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestErrorMapsKinds(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{apperror.NotFound("Book not found"), http.StatusNotFound, "NOT_FOUND"},
		{fmt.Errorf("checkout: %w", apperror.Conflict("Book is already checked out")), http.StatusConflict, "CONFLICT"},
		{apperror.Unauthorized("Missing authentication token"), http.StatusUnauthorized, "UNAUTHORIZED"},
		{apperror.Forbidden("Insufficient permissions"), http.StatusForbidden, "FORBIDDEN"},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/books/x", nil)
		Error(rec, req, nil, tt.err)

		assert.Equal(t, tt.status, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, tt.code, body["code"])
		assert.NotContains(t, body, "details")
	}
}

func TestErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(requestctx.WithRequestID(req.Context(), "req-42"))

	Error(rec, req, nil, errors.New("pq: connection refused to 10.0.0.5"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", body["code"])
	assert.Equal(t, "An unexpected error occurred", body["message"])
	assert.Equal(t, "req-42", body["requestId"])
}

func TestErrorCarriesValidationDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)

	Error(rec, req, nil, apperror.Validation("Validation failed", []apperror.FieldError{
		{Path: "title", Message: "is required"},
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Validation failed", body["message"])
	details := body["details"].(map[string]any)
	assert.Equal(t, []any{map[string]any{"path": "title", "message": "is required"}}, details["errors"])
}

func TestErrorSetsRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	err := &apperror.Error{
		Kind:    apperror.KindRateLimited,
		Message: "Too many requests",
		Details: map[string]any{"retryAfterSeconds": 12},
	}
	Error(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil, err)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "12", rec.Header().Get("Retry-After"))
}
