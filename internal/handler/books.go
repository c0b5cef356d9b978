package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aryan0dhankhar/minilibrary/internal/apperror"
	"github.com/aryan0dhankhar/minilibrary/internal/domain"
	"github.com/aryan0dhankhar/minilibrary/internal/respond"
	"github.com/aryan0dhankhar/minilibrary/internal/service"
	"github.com/aryan0dhankhar/minilibrary/internal/validation"
)

// BookHandler serves the /books resource.
type BookHandler struct {
	books     *service.BookService
	validator *validation.Validator
	logger    *slog.Logger
}

// NewBookHandler creates a new book handler
func NewBookHandler(books *service.BookService, v *validation.Validator, logger *slog.Logger) *BookHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &BookHandler{
		books:     books,
		validator: v,
		logger:    logger,
	}
}

// ListBooksQuery is the parsed query string of GET /books.
type ListBooksQuery struct {
	Page      int    `query:"page" validate:"gte=1"`
	Limit     int    `query:"limit" validate:"gte=1,lte=100"`
	SortBy    string `query:"sortBy"`
	SortOrder string `query:"sortOrder" validate:"oneof=asc desc"`
	Q         string `query:"q"`
	Status    string `query:"status" validate:"omitempty,oneof=AVAILABLE CHECKED_OUT"`
	Genre     string `query:"genre"`
	Author    string `query:"author"`
}

// CreateBookRequest is the body of POST /books.
type CreateBookRequest struct {
	Title         string   `json:"title" validate:"required,min=1"`
	Author        string   `json:"author" validate:"required,min=1"`
	ISBN          *string  `json:"isbn"`
	Genre         *string  `json:"genre"`
	PublishedYear *int     `json:"publishedYear" validate:"omitnil,gte=0,lte=2100"`
	Tags          []string `json:"tags"`
	Description   *string  `json:"description"`
	CoverImageURL *string  `json:"coverImageUrl" validate:"omitnil,url"`
}

// UpdateBookRequest is the body of PUT /books/{id}. Absent fields are left
// unchanged; an explicit empty tags array clears the tags.
type UpdateBookRequest struct {
	Title         *string   `json:"title" validate:"omitnil,min=1"`
	Author        *string   `json:"author" validate:"omitnil,min=1"`
	ISBN          *string   `json:"isbn"`
	Genre         *string   `json:"genre"`
	PublishedYear *int      `json:"publishedYear" validate:"omitnil,gte=0,lte=2100"`
	Tags          *[]string `json:"tags"`
	Description   *string   `json:"description"`
	CoverImageURL *string   `json:"coverImageUrl" validate:"omitnil,url"`
}

func (req UpdateBookRequest) patch() domain.BookPatch {
	return domain.BookPatch{
		Title:         req.Title,
		Author:        req.Author,
		ISBN:          req.ISBN,
		Genre:         req.Genre,
		PublishedYear: req.PublishedYear,
		Tags:          req.Tags,
		Description:   req.Description,
		CoverImageURL: req.CoverImageURL,
	}
}

// List handles GET /api/v1/books
func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) error {
	params, err := h.parseListQuery(r)
	if err != nil {
		return err
	}

	page, err := h.books.List(r.Context(), params)
	if err != nil {
		return err
	}
	respond.JSON(w, http.StatusOK, page)
	return nil
}

func (h *BookHandler) parseListQuery(r *http.Request) (service.ListParams, error) {
	var fieldErrs []apperror.FieldError
	query := r.URL.Query()

	q := ListBooksQuery{
		Page:      validation.QueryInt(r, "page", service.DefaultPage, &fieldErrs),
		Limit:     validation.QueryInt(r, "limit", service.DefaultLimit, &fieldErrs),
		SortBy:    strings.TrimSpace(query.Get("sortBy")),
		SortOrder: strings.TrimSpace(query.Get("sortOrder")),
		Q:         strings.TrimSpace(query.Get("q")),
		Status:    strings.TrimSpace(query.Get("status")),
		Genre:     strings.TrimSpace(query.Get("genre")),
		Author:    strings.TrimSpace(query.Get("author")),
	}
	if q.SortOrder == "" {
		q.SortOrder = string(domain.SortDesc)
	}

	if err := h.validator.Struct(q); err != nil {
		var appErr *apperror.Error
		if !errors.As(err, &appErr) {
			return service.ListParams{}, err
		}
		if more, ok := appErr.Details["errors"].([]apperror.FieldError); ok {
			fieldErrs = append(fieldErrs, more...)
		}
	}
	if len(fieldErrs) > 0 {
		return service.ListParams{}, apperror.Validation("Validation failed", fieldErrs)
	}

	return service.ListParams{
		Filter: domain.BookFilter{
			Status: domain.BookStatus(q.Status),
			Genre:  q.Genre,
			Author: q.Author,
			Query:  q.Q,
		},
		Page:      q.Page,
		Limit:     q.Limit,
		SortBy:    q.SortBy,
		SortOrder: domain.SortOrder(q.SortOrder),
	}, nil
}

// Get handles GET /api/v1/books/{id}
func (h *BookHandler) Get(w http.ResponseWriter, r *http.Request) error {
	book, err := h.books.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		return err
	}
	respond.JSON(w, http.StatusOK, book)
	return nil
}

// Create handles POST /api/v1/books
func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) error {
	caller, err := callerFrom(r)
	if err != nil {
		return err
	}

	var req CreateBookRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		return err
	}

	book, err := h.books.Create(r.Context(), service.CreateBookInput{
		Title:         req.Title,
		Author:        req.Author,
		ISBN:          req.ISBN,
		Genre:         req.Genre,
		PublishedYear: req.PublishedYear,
		Tags:          req.Tags,
		Description:   req.Description,
		CoverImageURL: req.CoverImageURL,
	}, caller.ID)
	if err != nil {
		return err
	}
	respond.JSON(w, http.StatusCreated, book)
	return nil
}

// Update handles PUT /api/v1/books/{id}
func (h *BookHandler) Update(w http.ResponseWriter, r *http.Request) error {
	caller, err := callerFrom(r)
	if err != nil {
		return err
	}

	var req UpdateBookRequest
	if err := h.validator.DecodeJSON(r, &req); err != nil {
		return err
	}

	book, err := h.books.Update(r.Context(), r.PathValue("id"), req.patch(), caller.ID)
	if err != nil {
		return err
	}
	respond.JSON(w, http.StatusOK, book)
	return nil
}

// Delete handles DELETE /api/v1/books/{id}
func (h *BookHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	caller, err := callerFrom(r)
	if err != nil {
		return err
	}

	if err := h.books.Delete(r.Context(), r.PathValue("id"), caller.ID); err != nil {
		return err
	}
	respond.NoContent(w)
	return nil
}

// Checkout handles POST /api/v1/books/{id}/checkout
func (h *BookHandler) Checkout(w http.ResponseWriter, r *http.Request) error {
	caller, err := callerFrom(r)
	if err != nil {
		return err
	}

	book, err := h.books.Checkout(r.Context(), r.PathValue("id"), caller.ID)
	if err != nil {
		return err
	}
	respond.JSON(w, http.StatusCreated, book)
	return nil
}

// Checkin handles POST /api/v1/books/{id}/checkin
func (h *BookHandler) Checkin(w http.ResponseWriter, r *http.Request) error {
	caller, err := callerFrom(r)
	if err != nil {
		return err
	}

	book, err := h.books.Checkin(r.Context(), r.PathValue("id"), caller.ID)
	if err != nil {
		return err
	}
	respond.JSON(w, http.StatusCreated, book)
	return nil
}
