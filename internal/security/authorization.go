package security

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/aryan0dhankhar/minilibrary/internal/apperror"
	"github.com/aryan0dhankhar/minilibrary/internal/domain"
	"github.com/aryan0dhankhar/minilibrary/internal/security/audit"
)

// Role sets used by the HTTP routes. A nil set admits any authenticated caller.
var (
	AnyRole       []domain.Role
	StaffRoles    = []domain.Role{domain.RoleAdmin, domain.RoleLibrarian}
	AdminOnlyRole = []domain.Role{domain.RoleAdmin}
)

// Authorize fails with Forbidden when required is non-empty and does not
// contain role.
func Authorize(required []domain.Role, role domain.Role) error {
	if len(required) == 0 || slices.Contains(required, role) {
		return nil
	}
	return apperror.Forbidden("Insufficient permissions")
}

// AuthorizationService wraps Authorize with denial logging.
type AuthorizationService struct {
	logger *slog.Logger
	audit  *audit.Logger
}

// NewAuthorizationService creates a new authorization service
func NewAuthorizationService(auditLog *audit.Logger, logger *slog.Logger) *AuthorizationService {
	if logger == nil {
		logger = slog.Default()
	}
	if auditLog == nil {
		auditLog = audit.NewLogger(logger)
	}
	return &AuthorizationService{
		logger: logger,
		audit:  auditLog,
	}
}

// ValidateRole checks that a caller's role is in required.
func (as *AuthorizationService) ValidateRole(ctx context.Context, userID string, role domain.Role, required []domain.Role, resource string) error {
	if err := Authorize(required, role); err != nil {
		as.logger.Warn("permission denied",
			slog.String("user_id", userID),
			slog.String("role", string(role)),
			slog.Any("required", required),
		)
		as.audit.LogDenied(ctx, userID, resource, fmt.Sprintf("role %s not in %v", role, required))
		return err
	}
	return nil
}
