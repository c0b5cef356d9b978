// Package audit writes security events (rejected credentials, denied
// routes, issued development tokens) to the structured log. Book mutations
// go to the activity log table instead.
package audit

import (
	"context"
	"log/slog"

	"github.com/aryan0dhankhar/minilibrary/internal/requestctx"
)

// Outcome of an audited decision.
type Outcome string

const (
	OutcomeDenied Outcome = "denied"
	OutcomeIssued Outcome = "issued"
)

// Event is one audited decision.
type Event struct {
	Action  string
	Subject string
	Target  string
	Outcome Outcome
	Reason  string
}

type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger.With(slog.String("component", "audit"))}
}

// Record logs ev tagged with the request id carried by ctx.
func (l *Logger) Record(ctx context.Context, ev Event) {
	attrs := []slog.Attr{
		slog.String("action", ev.Action),
		slog.String("outcome", string(ev.Outcome)),
		slog.String("target", ev.Target),
		slog.String("request_id", requestctx.RequestIDFromContext(ctx)),
	}
	if ev.Subject != "" {
		attrs = append(attrs, slog.String("user_id", ev.Subject))
	}
	if ev.Reason != "" {
		attrs = append(attrs, slog.String("reason", ev.Reason))
	}
	l.logger.LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
}

// LogAuthFailure records a rejected credential.
func (l *Logger) LogAuthFailure(ctx context.Context, path, reason string) {
	l.Record(ctx, Event{Action: "authenticate", Target: path, Outcome: OutcomeDenied, Reason: reason})
}

// LogDenied records a caller lacking the role for a route.
func (l *Logger) LogDenied(ctx context.Context, userID, path, reason string) {
	l.Record(ctx, Event{Action: "authorize", Subject: userID, Target: path, Outcome: OutcomeDenied, Reason: reason})
}

// LogDevLogin records a development token being issued.
func (l *Logger) LogDevLogin(ctx context.Context, userID, role string) {
	l.Record(ctx, Event{Action: "dev_login", Subject: userID, Target: "user/" + userID, Outcome: OutcomeIssued, Reason: "role " + role})
}
