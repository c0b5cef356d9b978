package auth

import (
	"context"

	"github.com/aryan0dhankhar/minilibrary/internal/domain"
)

type callerContextKey struct{}

// Caller is the authenticated principal attached to a request.
type Caller struct {
	ID    string      `json:"id"`
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Role  domain.Role `json:"role"`
}

// CallerFromUser builds the caller view of a stored user.
func CallerFromUser(u *domain.User) *Caller {
	return &Caller{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

// WithCaller returns a context carrying c.
func WithCaller(ctx context.Context, c *Caller) context.Context {
	return context.WithValue(ctx, callerContextKey{}, c)
}

// CallerFromContext returns the authenticated caller, if any.
func CallerFromContext(ctx context.Context) (*Caller, bool) {
	c, ok := ctx.Value(callerContextKey{}).(*Caller)
	return c, ok && c != nil
}
