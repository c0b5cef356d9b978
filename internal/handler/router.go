package handler

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aryan0dhankhar/minilibrary/internal/domain"
	"github.com/aryan0dhankhar/minilibrary/internal/observability/metrics"
	"github.com/aryan0dhankhar/minilibrary/internal/security"
	"github.com/aryan0dhankhar/minilibrary/internal/security/middleware"
	"github.com/aryan0dhankhar/minilibrary/internal/security/ratelimit"
)

// APIPrefix is the mount point of every API route.
const APIPrefix = "/api/v1"

// RouterConfig wires the handlers and cross-cutting components of the API.
type RouterConfig struct {
	Health        *HealthHandler
	Auth          *AuthHandler
	Books         *BookHandler
	AI            *AIHandler
	Authenticator middleware.Authenticator
	Authorizer    *security.AuthorizationService
	Limiter       *ratelimit.Limiter
	CORSOrigins   []string
	Logger        *slog.Logger
}

// NewRouter builds the HTTP handler: request id, security headers and CORS
// on every request, then route-level authentication, rate limiting, role
// gates and the JSON body check.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	// Bodies are checked after the route matched and the caller passed its
	// gates, so unknown paths stay 404 and unauthenticated calls stay 401.
	jsonBody := middleware.ValidateJSONContentType(log)
	public := func(h http.Handler) http.Handler {
		return middleware.Chain(h, jsonBody)
	}
	authenticated := func(h http.Handler, roles []domain.Role) http.Handler {
		return middleware.Chain(h,
			middleware.Authenticate(cfg.Authenticator, log),
			middleware.RateLimit(cfg.Limiter, log),
			middleware.RequireRoles(cfg.Authorizer, log, roles...),
			jsonBody,
		)
	}

	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET "+APIPrefix+"/health", cfg.Health.Health)
	mux.HandleFunc("GET "+APIPrefix+"/ready", cfg.Health.Ready)
	mux.Handle("POST "+APIPrefix+"/auth/dev-login", public(handle(log, cfg.Auth.DevLogin)))
	mux.Handle("GET /metrics", promhttp.Handler())

	// Any authenticated caller
	mux.Handle("GET "+APIPrefix+"/me", authenticated(handle(log, cfg.Auth.Me), security.AnyRole))
	mux.Handle("GET "+APIPrefix+"/books", authenticated(handle(log, cfg.Books.List), security.AnyRole))
	mux.Handle("GET "+APIPrefix+"/books/{id}", authenticated(handle(log, cfg.Books.Get), security.AnyRole))
	mux.Handle("POST "+APIPrefix+"/ai/suggest-metadata", authenticated(handle(log, cfg.AI.SuggestMetadata), security.AnyRole))
	mux.Handle("POST "+APIPrefix+"/ai/semantic-search", authenticated(handle(log, cfg.AI.SemanticSearch), security.AnyRole))

	// Staff
	mux.Handle("POST "+APIPrefix+"/books", authenticated(handle(log, cfg.Books.Create), security.StaffRoles))
	mux.Handle("PUT "+APIPrefix+"/books/{id}", authenticated(handle(log, cfg.Books.Update), security.StaffRoles))
	mux.Handle("POST "+APIPrefix+"/books/{id}/checkout", authenticated(handle(log, cfg.Books.Checkout), security.StaffRoles))
	mux.Handle("POST "+APIPrefix+"/books/{id}/checkin", authenticated(handle(log, cfg.Books.Checkin), security.StaffRoles))

	// Admin
	mux.Handle("DELETE "+APIPrefix+"/books/{id}", authenticated(handle(log, cfg.Books.Delete), security.AdminOnlyRole))

	mux.Handle("/", handle(log, routeNotFound))

	return middleware.Chain(metrics.HTTPMetricsMiddleware(mux),
		middleware.RequestID(log),
		middleware.SecurityHeaders,
		middleware.CORS(cfg.CORSOrigins),
	)
}
