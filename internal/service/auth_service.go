package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/minilibrary/internal/apperror"
	"github.com/aryan0dhankhar/minilibrary/internal/domain"
	"github.com/aryan0dhankhar/minilibrary/internal/observability/metrics"
	"github.com/aryan0dhankhar/minilibrary/internal/security/audit"
	"github.com/aryan0dhankhar/minilibrary/internal/security/auth"
	"github.com/aryan0dhankhar/minilibrary/pkg/config"
)

// DevLoginInput is the identity a development token is minted for.
type DevLoginInput struct {
	Sub   string
	Email string
	Name  string
	Role  domain.Role
}

// DevLoginResult represents dev-login response
type DevLoginResult struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"` // seconds
}

// AuthService resolves bearer tokens to callers and issues dev tokens.
type AuthService struct {
	users    domain.UserRepository
	verifier auth.Verifier
	tokens   *auth.TokenManager
	mode     config.AuthMode
	tokenTTL time.Duration
	audit    *audit.Logger
	logger   *slog.Logger
	now      func() time.Time
}

// NewAuthService creates a new authentication service. Dev tokens can only
// be issued when cfg selects dev mode.
func NewAuthService(
	users domain.UserRepository,
	verifier auth.Verifier,
	cfg config.AuthConfig,
	auditLog *audit.Logger,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	if auditLog == nil {
		auditLog = audit.NewLogger(logger)
	}
	if verifier == nil {
		verifier = auth.NoVerifier()
	}

	s := &AuthService{
		users:    users,
		verifier: verifier,
		mode:     cfg.Mode(),
		tokenTTL: cfg.DevTokenTTL,
		audit:    auditLog,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	if s.tokenTTL <= 0 {
		s.tokenTTL = 24 * time.Hour
	}
	if s.mode == config.AuthModeDev {
		s.tokens = auth.NewTokenManager(cfg.JWTSecret, "")
	}
	return s
}

// Authenticate verifies the Authorization header and resolves the caller,
// creating the user record on first sight.
func (s *AuthService) Authenticate(ctx context.Context, authHeader, path string) (*auth.Caller, error) {
	token, err := auth.ExtractToken(authHeader)
	if err != nil {
		metrics.ObserveAuth(string(s.mode), "rejected")
		if errors.Is(err, auth.ErrMissingToken) {
			return nil, apperror.Unauthorized("Missing authentication token")
		}
		return nil, apperror.Unauthorized("Invalid authorization header format")
	}

	identity, err := s.verifier.Verify(ctx, token)
	if err != nil {
		metrics.ObserveAuth(string(s.mode), "rejected")
		s.audit.LogAuthFailure(ctx, path, err.Error())
		return nil, apperror.Unauthorized("Invalid or expired token")
	}

	role := identity.Role
	if role == "" {
		role = domain.RoleMember
	}
	now := s.now()
	user, err := s.users.ResolveOrCreate(ctx, &domain.User{
		ID:        identity.Subject,
		Email:     identity.Email,
		Name:      identity.Name,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		metrics.ObserveAuth(string(s.mode), "error")
		s.logger.Error("failed to resolve user",
			slog.String("subject", identity.Subject),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Unauthorized("Invalid or expired token")
	}

	metrics.ObserveAuth(string(s.mode), "success")
	return auth.CallerFromUser(user), nil
}

// DevLogin upserts the named user, role included, and signs a token for it.
func (s *AuthService) DevLogin(ctx context.Context, in DevLoginInput) (*DevLoginResult, error) {
	if s.tokens == nil {
		return nil, apperror.Forbidden("Dev auth is not enabled")
	}

	now := s.now()
	user, err := s.users.Upsert(ctx, &domain.User{
		ID:        in.Sub,
		Email:     in.Email,
		Name:      in.Name,
		Role:      in.Role,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert dev user: %w", err)
	}

	token, err := s.tokens.GenerateToken(user, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("sign dev token: %w", err)
	}

	s.audit.LogDevLogin(ctx, user.ID, string(user.Role))
	return &DevLoginResult{
		AccessToken: token,
		ExpiresIn:   int(s.tokenTTL / time.Second),
	}, nil
}

// Me returns the stored profile of the caller.
func (s *AuthService) Me(ctx context.Context, userID string) (*auth.Caller, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperror.NotFound("User not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return auth.CallerFromUser(user), nil
}
