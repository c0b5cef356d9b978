package auth

import (
	"log/slog"

	"github.com/aryan0dhankhar/minilibrary/pkg/config"
)

// NewVerifier builds the single verification strategy selected by cfg.
func NewVerifier(cfg config.AuthConfig, logger *slog.Logger) Verifier {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Mode() {
	case config.AuthModeOIDC:
		keys := NewJWKSClient(JWKSURI(cfg.OIDCIssuerURL), cfg.JWKSCacheTTL, nil, logger)
		logger.Info("authentication mode selected",
			slog.String("mode", string(config.AuthModeOIDC)),
			slog.String("issuer", cfg.OIDCIssuerURL),
		)
		return NewOIDCVerifier(cfg.OIDCIssuerURL, cfg.OIDCAudience, keys, logger)
	case config.AuthModeDev:
		logger.Warn("authentication mode selected: development tokens are accepted",
			slog.String("mode", string(config.AuthModeDev)),
		)
		return NewTokenManager(cfg.JWTSecret, "")
	default:
		logger.Warn("no authentication method configured; protected routes will reject every request")
		return NoVerifier()
	}
}
