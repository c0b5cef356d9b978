package handler

import (
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/minilibrary/internal/domain"
	"github.com/aryan0dhankhar/minilibrary/internal/respond"
	"github.com/aryan0dhankhar/minilibrary/internal/service"
	"github.com/aryan0dhankhar/minilibrary/internal/validation"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *service.AuthService
	validator   *validation.Validator
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, v *validation.Validator, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthHandler{
		authService: authService,
		validator:   v,
		logger:      logger,
	}
}

// DevLoginRequest is the body of POST /auth/dev-login.
type DevLoginRequest struct {
	Sub   string `json:"sub" validate:"required,min=1"`
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required,min=1"`
	Role  string `json:"role" validate:"required,oneof=ADMIN LIBRARIAN MEMBER"`
}

// DevLogin handles POST /api/v1/auth/dev-login
func (h *AuthHandler) DevLogin(w http.ResponseWriter, r *http.Request) error {
	var req DevLoginRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		return err
	}

	result, err := h.authService.DevLogin(r.Context(), service.DevLoginInput{
		Sub:   req.Sub,
		Email: req.Email,
		Name:  req.Name,
		Role:  domain.Role(req.Role),
	})
	if err != nil {
		return err
	}

	h.logger.Info("dev token issued",
		slog.String("user_id", req.Sub),
		slog.String("role", req.Role),
	)
	respond.JSON(w, http.StatusCreated, result)
	return nil
}

// Me handles GET /api/v1/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) error {
	caller, err := callerFrom(r)
	if err != nil {
		return err
	}

	me, err := h.authService.Me(r.Context(), caller.ID)
	if err != nil {
		return err
	}
	respond.JSON(w, http.StatusOK, me)
	return nil
}
