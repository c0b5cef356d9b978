package security

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aryan0dhankhar/minilibrary/internal/apperror"
	"github.com/aryan0dhankhar/minilibrary/internal/domain"
)

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name     string
		required []domain.Role
		role     domain.Role
		allowed  bool
	}{
		{"any role admits member", AnyRole, domain.RoleMember, true},
		{"staff admits librarian", StaffRoles, domain.RoleLibrarian, true},
		{"staff rejects member", StaffRoles, domain.RoleMember, false},
		{"admin only rejects librarian", AdminOnlyRole, domain.RoleLibrarian, false},
		{"admin only admits admin", AdminOnlyRole, domain.RoleAdmin, true},
		{"unknown role rejected", StaffRoles, domain.Role("GUEST"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.required, tt.role)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, apperror.ErrForbidden)
		})
	}
}

func TestValidateRole(t *testing.T) {
	as := NewAuthorizationService(nil, nil)

	err := as.ValidateRole(context.Background(), "member-001", domain.RoleMember, AdminOnlyRole, "/api/v1/books/1")
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
	assert.NoError(t, as.ValidateRole(context.Background(), "admin-001", domain.RoleAdmin, AdminOnlyRole, "/api/v1/books/1"))
}
