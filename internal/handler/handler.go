package handler

import (
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/minilibrary/internal/apperror"
	"github.com/aryan0dhankhar/minilibrary/internal/respond"
	"github.com/aryan0dhankhar/minilibrary/internal/security/auth"
)

// errorHandler is an http.HandlerFunc that reports failures by returning
// them. Every returned error is rendered through respond.Error.
type errorHandler func(w http.ResponseWriter, r *http.Request) error

func handle(logger *slog.Logger, fn errorHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			respond.Error(w, r, logger, err)
		}
	})
}

// callerFrom returns the authenticated caller placed on the context by the
// authentication middleware.
func callerFrom(r *http.Request) (*auth.Caller, error) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		return nil, apperror.Unauthorized("Missing authentication token")
	}
	return caller, nil
}

func routeNotFound(w http.ResponseWriter, r *http.Request) error {
	return apperror.NotFound("Route " + r.Method + " " + r.URL.Path + " not found")
}
