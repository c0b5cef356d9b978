package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/aryan0dhankhar/minilibrary/internal/reliability/circuitbreaker"
	"github.com/aryan0dhankhar/minilibrary/internal/reliability/retry"
	"github.com/aryan0dhankhar/minilibrary/pkg/cache"
)

// minRefreshInterval bounds how often an unknown key id can force a refetch.
const minRefreshInterval = 10 * time.Second

type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwkSet struct {
	Keys []jwk `json:"keys"`
}

// JWKSClient resolves RSA signing keys by key id from a remote key set.
type JWKSClient struct {
	uri        string
	httpClient *http.Client
	keys       *cache.Cache[*rsa.PublicKey]
	ttl        time.Duration
	retry      retry.Policy
	breaker    *circuitbreaker.Breaker
	logger     *slog.Logger

	mu          sync.Mutex
	lastRefresh time.Time
}

// NewJWKSClient creates a client for the key set at uri.
func NewJWKSClient(uri string, ttl time.Duration, httpClient *http.Client, logger *slog.Logger) *JWKSClient {
	if logger == nil {
		logger = slog.Default()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	breaker := circuitbreaker.New(circuitbreaker.Config{
		Name:             "jwks",
		FailureThreshold: 5,
		SuccessThreshold: 1,
		Cooldown:         30 * time.Second,
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("uri", uri),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})
	return &JWKSClient{
		uri:        uri,
		httpClient: httpClient,
		keys:       cache.New[*rsa.PublicKey](),
		ttl:        ttl,
		retry:      retry.DefaultPolicy(),
		breaker:    breaker,
		logger:     logger,
	}
}

// Key returns the public key for kid, fetching the key set on a miss.
func (c *JWKSClient) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if key, ok := c.keys.Get(kid); ok {
		return key, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have refreshed while we waited.
	if key, ok := c.keys.Get(kid); ok {
		return key, nil
	}
	if !c.lastRefresh.IsZero() && time.Since(c.lastRefresh) < minRefreshInterval {
		return nil, fmt.Errorf("signing key %q not found", kid)
	}

	if err := c.refresh(ctx); err != nil {
		return nil, err
	}

	if key, ok := c.keys.Get(kid); ok {
		return key, nil
	}
	return nil, fmt.Errorf("signing key %q not found", kid)
}

func (c *JWKSClient) refresh(ctx context.Context) error {
	var set *jwkSet
	err := c.breaker.Call(func() error {
		var err error
		set, err = retry.Do(ctx, c.retry, c.logger, "fetch jwks", c.fetch)
		return err
	})
	if err != nil {
		c.logger.Error("failed to fetch jwks",
			slog.String("uri", c.uri),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("fetch jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		pub, err := parseRSAKey(k)
		if err != nil {
			c.logger.Warn("skipping malformed jwk",
				slog.String("kid", k.Kid),
				slog.String("error", err.Error()),
			)
			continue
		}
		keys[k.Kid] = pub
	}
	c.keys.Replace(keys, c.ttl)
	c.lastRefresh = time.Now()

	c.logger.Debug("jwks refreshed", slog.String("uri", c.uri), slog.Int("keys", len(keys)))
	return nil
}

func (c *JWKSClient) fetch(ctx context.Context) (*jwkSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.uri, nil)
	if err != nil {
		return nil, retry.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("jwks endpoint returned %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, retry.Permanent(fmt.Errorf("jwks endpoint returned %d", resp.StatusCode))
	}

	var set jwkSet
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&set); err != nil {
		return nil, retry.Permanent(fmt.Errorf("decode jwks: %w", err))
	}
	return &set, nil
}

func parseRSAKey(k jwk) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	if len(nBytes) == 0 || len(eBytes) == 0 {
		return nil, fmt.Errorf("empty key material")
	}

	e := new(big.Int).SetBytes(eBytes)
	if !e.IsInt64() || e.Int64() > 1<<31-1 {
		return nil, fmt.Errorf("exponent out of range")
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(e.Int64()),
	}, nil
}
