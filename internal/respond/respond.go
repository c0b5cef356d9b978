// Package respond writes JSON bodies and normalizes every failure into the
// {"error":{code,message,details,requestId}} envelope.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aryan0dhankhar/minilibrary/internal/apperror"
	"github.com/aryan0dhankhar/minilibrary/internal/requestctx"
)

const internalMessage = "An unexpected error occurred"

// ErrorBody is the wire shape of a failure.
type ErrorBody struct {
	Code      apperror.Kind  `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
}

// ErrorResponse wraps ErrorBody.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// NoContent writes a 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error maps err to its status and envelope. Unrecognized errors become
// INTERNAL_ERROR with a generic message and are logged with full detail;
// client errors are not logged at error level.
func Error(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	requestID := requestctx.RequestIDFromContext(r.Context())

	body := ErrorBody{
		Code:      apperror.KindInternal,
		Message:   internalMessage,
		RequestID: requestID,
	}

	kind := apperror.KindInternal
	var appErr *apperror.Error
	if errors.As(err, &appErr) && appErr.Kind != apperror.KindInternal {
		kind = appErr.Kind
		body.Code = kind
		body.Message = appErr.Message
		body.Details = appErr.Details
		logger.Debug("request rejected",
			slog.String("code", string(kind)),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", requestID),
		)
	} else {
		logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
	}

	if kind == apperror.KindRateLimited {
		if after, ok := body.Details["retryAfterSeconds"].(int); ok {
			w.Header().Set("Retry-After", strconv.Itoa(after))
		}
	}

	JSON(w, kind.HTTPStatus(), ErrorResponse{Error: body})
}
