package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aryan0dhankhar/minilibrary/internal/domain"
)

var (
	ErrMissingToken  = errors.New("missing authentication token")
	ErrInvalidHeader = errors.New("invalid authorization header format")
	ErrNoVerifier    = errors.New("no authentication method configured")
)

// Claims is the token payload shared by dev and issuer tokens.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the verified outcome of a token, before the user is resolved.
type Identity struct {
	Subject string
	Email   string
	Name    string
	Role    domain.Role // empty when the token carries no recognized role
}

// Verifier turns a raw bearer token into an Identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// TokenManager signs and verifies development tokens with a shared HS256 secret.
type TokenManager struct {
	secret string
	issuer string
}

func NewTokenManager(secret, issuer string) *TokenManager {
	if issuer == "" {
		issuer = "minilibrary-dev"
	}
	return &TokenManager{secret: secret, issuer: issuer}
}

// GenerateToken signs a token carrying the user's identity and role.
func (tm *TokenManager) GenerateToken(user *domain.User, expiresIn time.Duration) (string, error) {
	if user == nil || user.ID == "" {
		return "", fmt.Errorf("subject required")
	}
	now := time.Now()
	claims := Claims{
		Email: user.Email,
		Name:  user.Name,
		Role:  string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			Issuer:    tm.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(tm.secret))
}

// Verify implements Verifier for development tokens.
func (tm *TokenManager) Verify(_ context.Context, tokenString string) (*Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tm.secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("parse token failed: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return identityFromClaims(claims, false)
}

func identityFromClaims(claims *Claims, nameFallsBackToEmail bool) (*Identity, error) {
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	id := &Identity{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
	}
	if id.Name == "" && nameFallsBackToEmail {
		id.Name = claims.Email
	}
	if role := domain.Role(claims.Role); role.Valid() {
		id.Role = role
	}
	return id, nil
}

// ExtractToken returns the token of a "Bearer <token>" header.
func ExtractToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingToken
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", ErrInvalidHeader
	}
	return parts[1], nil
}

type noVerifier struct{}

func (noVerifier) Verify(context.Context, string) (*Identity, error) {
	return nil, ErrNoVerifier
}

// NoVerifier rejects every token. It is used when no strategy is configured.
func NoVerifier() Verifier {
	return noVerifier{}
}
