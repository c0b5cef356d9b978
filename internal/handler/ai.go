package handler

import (
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/minilibrary/internal/respond"
	"github.com/aryan0dhankhar/minilibrary/internal/service"
	"github.com/aryan0dhankhar/minilibrary/internal/validation"
)

// AIHandler serves the assistant endpoints.
type AIHandler struct {
	ai        *service.AIService
	validator *validation.Validator
	logger    *slog.Logger
}

func NewAIHandler(ai *service.AIService, v *validation.Validator, logger *slog.Logger) *AIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AIHandler{ai: ai, validator: v, logger: logger}
}

type SuggestMetadataRequest struct {
	Title  string `json:"title" validate:"required,min=1"`
	Author string `json:"author"`
}

type SemanticSearchRequest struct {
	Query string `json:"query" validate:"required,min=1"`
	Limit *int   `json:"limit" validate:"omitnil,gte=1,lte=20"`
}

// SuggestMetadata handles POST /api/v1/ai/suggest-metadata
func (h *AIHandler) SuggestMetadata(w http.ResponseWriter, r *http.Request) error {
	var req SuggestMetadataRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		return err
	}

	respond.JSON(w, http.StatusCreated, h.ai.SuggestMetadata(r.Context(), req.Title, req.Author))
	return nil
}

// SemanticSearch handles POST /api/v1/ai/semantic-search
func (h *AIHandler) SemanticSearch(w http.ResponseWriter, r *http.Request) error {
	var req SemanticSearchRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		return err
	}

	limit := service.DefaultSearchLimit
	if req.Limit != nil {
		limit = *req.Limit
	}

	res, err := h.ai.SemanticSearch(r.Context(), req.Query, limit)
	if err != nil {
		return err
	}
	respond.JSON(w, http.StatusCreated, res)
	return nil
}
