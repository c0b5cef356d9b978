package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/minilibrary/internal/apperror"
	"github.com/aryan0dhankhar/minilibrary/internal/domain"
	"github.com/aryan0dhankhar/minilibrary/internal/requestctx"
	"github.com/aryan0dhankhar/minilibrary/internal/respond"
	"github.com/aryan0dhankhar/minilibrary/internal/security"
	"github.com/aryan0dhankhar/minilibrary/internal/security/auth"
	"github.com/aryan0dhankhar/minilibrary/internal/security/ratelimit"
)

type stubAuthenticator struct {
	caller *auth.Caller
	err    error
}

func (s stubAuthenticator) Authenticate(context.Context, string, string) (*auth.Caller, error) {
	return s.caller, s.err
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) respond.ErrorBody {
	t.Helper()
	var body respond.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestRequestIDEchoesInboundHeader(t *testing.T) {
	var seen string
	h := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestctx.RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestRequestIDGeneratesWhenAbsent(t *testing.T) {
	h := RequestID(nil)(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)
}

func TestAuthenticateRejectsWithEnvelope(t *testing.T) {
	h := Chain(okHandler(),
		RequestID(nil),
		Authenticate(stubAuthenticator{err: apperror.Unauthorized("Missing authentication token")}, nil),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/books", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, apperror.KindUnauthorized, body.Code)
	assert.Equal(t, "Missing authentication token", body.Message)
	assert.Equal(t, "req-1", body.RequestID)
}

func TestRequireRoles(t *testing.T) {
	authz := security.NewAuthorizationService(nil, nil)

	tests := []struct {
		name   string
		role   domain.Role
		roles  []domain.Role
		status int
	}{
		{name: "member on staff route", role: domain.RoleMember, roles: security.StaffRoles, status: http.StatusForbidden},
		{name: "librarian on staff route", role: domain.RoleLibrarian, roles: security.StaffRoles, status: http.StatusOK},
		{name: "librarian on admin route", role: domain.RoleLibrarian, roles: security.AdminOnlyRole, status: http.StatusForbidden},
		{name: "member on open route", role: domain.RoleMember, roles: security.AnyRole, status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Chain(okHandler(),
				Authenticate(stubAuthenticator{caller: &auth.Caller{ID: "u1", Role: tt.role}}, nil),
				RequireRoles(authz, nil, tt.roles...),
			)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/books", nil))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRequireRolesWithoutCaller(t *testing.T) {
	h := RequireRoles(security.NewAuthorizationService(nil, nil), nil)(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimitPerSubject(t *testing.T) {
	limiter := ratelimit.NewLimiter(2, time.Minute)
	defer limiter.Stop()

	handlerFor := func(id string) http.Handler {
		return Chain(okHandler(),
			Authenticate(stubAuthenticator{caller: &auth.Caller{ID: id, Role: domain.RoleMember}}, nil),
			RateLimit(limiter, nil),
		)
	}

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handlerFor("u1").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	handlerFor("u1").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, apperror.KindRateLimited, decodeError(t, rec).Code)

	rec = httptest.NewRecorder()
	handlerFor("u2").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "budgets are per subject")
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"http://localhost:3001"})(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/books", nil)
	req.Header.Set("Origin", "http://localhost:3001")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3001", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PUT")
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-Request-ID")

	req = httptest.NewRequest(http.MethodGet, "/api/v1/books", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestValidateJSONContentType(t *testing.T) {
	h := ValidateJSONContentType(nil)(okHandler())

	tests := []struct {
		name        string
		method      string
		body        string
		contentType string
		status      int
	}{
		{name: "json", method: http.MethodPost, body: `{}`, contentType: "application/json", status: http.StatusOK},
		{name: "json with charset", method: http.MethodPut, body: `{}`, contentType: "application/json; charset=utf-8", status: http.StatusOK},
		{name: "form", method: http.MethodPost, body: `a=b`, contentType: "application/x-www-form-urlencoded", status: http.StatusBadRequest},
		{name: "missing type", method: http.MethodPost, body: `{}`, status: http.StatusBadRequest},
		{name: "empty body", method: http.MethodPost, status: http.StatusOK},
		{name: "get", method: http.MethodGet, contentType: "text/plain", status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/v1/books", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusBadRequest {
				assert.Equal(t, apperror.KindValidation, decodeError(t, rec).Code)
			}
		})
	}
}
