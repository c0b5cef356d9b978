package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/minilibrary/internal/domain"
	"github.com/aryan0dhankhar/minilibrary/pkg/config"
)

func TestTokenManagerRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", "")
	token, err := tm.GenerateToken(&domain.User{
		ID: "u1", Email: "u1@library.local", Name: "User One", Role: domain.RoleLibrarian,
	}, time.Hour)
	require.NoError(t, err)

	id, err := tm.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u1", id.Subject)
	assert.Equal(t, "u1@library.local", id.Email)
	assert.Equal(t, domain.RoleLibrarian, id.Role)
}

func TestTokenManagerRejects(t *testing.T) {
	tm := NewTokenManager("secret", "")
	user := &domain.User{ID: "u1", Email: "u1@library.local", Name: "User One"}

	expired, err := tm.GenerateToken(user, -time.Minute)
	require.NoError(t, err)
	_, err = tm.Verify(context.Background(), expired)
	assert.Error(t, err)

	other, err := NewTokenManager("other-secret", "").GenerateToken(user, time.Hour)
	require.NoError(t, err)
	_, err = tm.Verify(context.Background(), other)
	assert.Error(t, err)

	_, err = tm.Verify(context.Background(), "not-a-jwt")
	assert.Error(t, err)

	noSub := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Email: "x@y.z"})
	signed, err := noSub.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = tm.Verify(context.Background(), signed)
	assert.ErrorContains(t, err, "no subject")
}

func TestUnknownRoleClaimIsDropped(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role:             "SUPERUSER",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u2"},
	})
	signed, err := tok.SignedString([]byte("secret"))
	require.NoError(t, err)

	id, err := NewTokenManager("secret", "").Verify(context.Background(), signed)
	require.NoError(t, err)
	assert.Equal(t, domain.Role(""), id.Role)
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		err    error
	}{
		{"Bearer abc", "abc", nil},
		{"", "", ErrMissingToken},
		{"Basic abc", "", ErrInvalidHeader},
		{"Bearer", "", ErrInvalidHeader},
		{"Bearer ", "", ErrInvalidHeader},
		{"Bearer a b", "", ErrInvalidHeader},
	}
	for _, tt := range tests {
		got, err := ExtractToken(tt.header)
		if tt.err != nil {
			assert.ErrorIs(t, err, tt.err, tt.header)
			continue
		}
		assert.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestNewVerifierSelectsMode(t *testing.T) {
	_, ok := NewVerifier(config.AuthConfig{DevAuthEnabled: true, JWTSecret: "s"}, nil).(*TokenManager)
	assert.True(t, ok)

	_, ok = NewVerifier(config.AuthConfig{DevAuthEnabled: true, OIDCIssuerURL: "https://issuer.example"}, nil).(*OIDCVerifier)
	assert.True(t, ok)

	_, err := NewVerifier(config.AuthConfig{}, nil).Verify(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrNoVerifier)
}

func TestCallerContext(t *testing.T) {
	_, ok := CallerFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithCaller(context.Background(), &Caller{ID: "u1", Role: domain.RoleMember})
	c, ok := CallerFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", c.ID)
}
