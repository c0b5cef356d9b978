// Package middleware holds the HTTP pipeline stages that run before a
// handler: request identity, CORS, authentication, role gates and rate
// limiting.
package middleware

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aryan0dhankhar/minilibrary/internal/apperror"
	"github.com/aryan0dhankhar/minilibrary/internal/domain"
	"github.com/aryan0dhankhar/minilibrary/internal/observability/metrics"
	"github.com/aryan0dhankhar/minilibrary/internal/requestctx"
	"github.com/aryan0dhankhar/minilibrary/internal/respond"
	"github.com/aryan0dhankhar/minilibrary/internal/security/auth"
	"github.com/aryan0dhankhar/minilibrary/internal/security/ratelimit"
)

// RequestIDHeader carries the correlation id in both directions.
const RequestIDHeader = "X-Request-ID"

// Authenticator resolves an Authorization header to a caller.
type Authenticator interface {
	Authenticate(ctx context.Context, authHeader, path string) (*auth.Caller, error)
}

// RoleValidator decides whether a role may use a route.
type RoleValidator interface {
	ValidateRole(ctx context.Context, userID string, role domain.Role, required []domain.Role, resource string) error
}

// Chain wraps h so that the first middleware listed runs first.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// RequestID echoes an inbound X-Request-ID or assigns a fresh one, stores it
// on the context and logs one line per completed request.
func RequestID(log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
			if reqID == "" || len(reqID) > 128 {
				reqID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, reqID)

			ctx := requestctx.WithRequestID(r.Context(), reqID)
			ww := &metrics.StatusWriter{ResponseWriter: w, Status: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(ww, r.WithContext(ctx))

			log.Info("request completed",
				slog.String("request_id", reqID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status),
				slog.Duration("duration_ms", time.Since(start)),
			)
		})
	}
}

// SecurityHeaders sets the hardening headers every route carries.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cross-Origin-Resource-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}

// CORS honors the configured origins and answers preflight requests.
func CORS(allowed []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if originAllowed(allowed, origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			w.Header().Add("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, Retry-After")

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	return slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
}

// Authenticate rejects requests without a valid bearer token and attaches
// the resolved caller to the context.
func Authenticate(authn Authenticator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, err := authn.Authenticate(r.Context(), r.Header.Get("Authorization"), r.URL.Path)
			if err != nil {
				respond.Error(w, r, log, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithCaller(r.Context(), caller)))
		})
	}
}

// RequireRoles admits only callers whose role is in roles. An empty set
// admits any authenticated caller. It must run after Authenticate.
func RequireRoles(authz RoleValidator, log *slog.Logger, roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := auth.CallerFromContext(r.Context())
			if !ok {
				respond.Error(w, r, log, apperror.Unauthorized("Missing authentication token"))
				return
			}
			if err := authz.ValidateRole(r.Context(), caller.ID, caller.Role, roles, r.URL.Path); err != nil {
				respond.Error(w, r, log, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit throttles each authenticated subject. Unauthenticated requests
// pass through untouched.
func RateLimit(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := auth.CallerFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			allowed, retryAfter := limiter.Allow(caller.ID)
			if !allowed {
				metrics.ObserveRateLimited()
				seconds := int(math.Ceil(retryAfter.Seconds()))
				if seconds < 1 {
					seconds = 1
				}
				err := &apperror.Error{
					Kind:    apperror.KindRateLimited,
					Message: "Too many requests",
					Details: map[string]any{"retryAfterSeconds": seconds},
				}
				respond.Error(w, r, log, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
