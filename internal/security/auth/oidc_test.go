package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/minilibrary/pkg/config"
)

type issuerFixture struct {
	server  *httptest.Server
	key     *rsa.PrivateKey
	fetches atomic.Int32
}

func newIssuerFixture(t *testing.T) *issuerFixture {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	f := &issuerFixture{key: key}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/jwks.json" {
			http.NotFound(w, r)
			return
		}
		f.fetches.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kid": "key-1",
				"kty": "RSA",
				"use": "sig",
				"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
			}},
		})
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *issuerFixture) sign(t *testing.T, kid string, claims Claims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	signed, err := tok.SignedString(f.key)
	require.NoError(t, err)
	return signed
}

func (f *issuerFixture) verifier() *OIDCVerifier {
	keys := NewJWKSClient(JWKSURI(f.server.URL), time.Minute, f.server.Client(), nil)
	return NewOIDCVerifier(f.server.URL, "library-api", keys, nil)
}

func validClaims(issuer string) Claims {
	return Claims{
		Email: "reader@library.local",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "oidc|42",
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{"library-api"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestOIDCVerifierAcceptsIssuerToken(t *testing.T) {
	f := newIssuerFixture(t)
	v := f.verifier()

	id, err := v.Verify(context.Background(), f.sign(t, "key-1", validClaims(f.server.URL)))
	require.NoError(t, err)
	assert.Equal(t, "oidc|42", id.Subject)
	assert.Equal(t, "reader@library.local", id.Name, "name falls back to email")

	_, err = v.Verify(context.Background(), f.sign(t, "key-1", validClaims(f.server.URL)))
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.fetches.Load(), "keys are cached")
}

func TestOIDCVerifierRejects(t *testing.T) {
	f := newIssuerFixture(t)
	v := f.verifier()

	wrongIssuer := validClaims("https://evil.example")
	_, err := v.Verify(context.Background(), f.sign(t, "key-1", wrongIssuer))
	assert.Error(t, err)

	wrongAudience := validClaims(f.server.URL)
	wrongAudience.Audience = jwt.ClaimStrings{"someone-else"}
	_, err = v.Verify(context.Background(), f.sign(t, "key-1", wrongAudience))
	assert.Error(t, err)

	_, err = v.Verify(context.Background(), f.sign(t, "key-unknown", validClaims(f.server.URL)))
	assert.Error(t, err)

	hs := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims(f.server.URL))
	hs.Header["kid"] = "key-1"
	signed, err := hs.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), signed)
	assert.Error(t, err, "symmetric tokens are not accepted in issuer mode")
}

func TestOIDCVerifierIssuerWithTrailingSlash(t *testing.T) {
	f := newIssuerFixture(t)
	issuer := f.server.URL + "/"

	v := NewVerifier(config.AuthConfig{
		OIDCIssuerURL: issuer,
		OIDCAudience:  "library-api",
		JWKSCacheTTL:  time.Minute,
	}, nil)

	id, err := v.Verify(context.Background(), f.sign(t, "key-1", validClaims(issuer)))
	require.NoError(t, err)
	assert.Equal(t, "oidc|42", id.Subject)

	_, err = v.Verify(context.Background(), f.sign(t, "key-1", validClaims(f.server.URL)))
	assert.Error(t, err, "iss must match the configured issuer exactly")
}

func TestJWKSURI(t *testing.T) {
	assert.Equal(t, "https://id.example/.well-known/jwks.json", JWKSURI("https://id.example"))
	assert.Equal(t, "https://id.example/.well-known/jwks.json", JWKSURI("https://id.example/"))
}

func TestParseRSAKeyRejectsGarbage(t *testing.T) {
	_, err := parseRSAKey(jwk{Kty: "RSA", N: "!!", E: "AQAB"})
	assert.Error(t, err)

	_, err = parseRSAKey(jwk{Kty: "RSA", N: "", E: "AQAB"})
	assert.Error(t, err)
}
