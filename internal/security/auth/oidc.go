package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// OIDCVerifier checks issuer-signed RS256 tokens against a remote key set.
type OIDCVerifier struct {
	issuer   string
	audience string
	keys     *JWKSClient
	logger   *slog.Logger
}

// JWKSURI returns the key set location for an issuer. A trailing slash on
// the issuer is not doubled.
func JWKSURI(issuer string) string {
	return strings.TrimRight(issuer, "/") + "/.well-known/jwks.json"
}

func NewOIDCVerifier(issuer, audience string, keys *JWKSClient, logger *slog.Logger) *OIDCVerifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &OIDCVerifier{issuer: issuer, audience: audience, keys: keys, logger: logger}
}

// Verify implements Verifier.
func (v *OIDCVerifier) Verify(ctx context.Context, tokenString string) (*Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
		jwt.WithIssuer(v.issuer),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("token header has no kid")
		}
		return v.keys.Key(ctx, kid)
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token failed: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return identityFromClaims(claims, true)
}
