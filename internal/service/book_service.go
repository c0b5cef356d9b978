package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aryan0dhankhar/minilibrary/internal/apperror"
	"github.com/aryan0dhankhar/minilibrary/internal/domain"
	"github.com/aryan0dhankhar/minilibrary/internal/observability/metrics"
	"github.com/aryan0dhankhar/minilibrary/internal/observability/tracing"
)

// Listing defaults and bounds.
const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

var allowedSortFields = map[domain.SortField]bool{
	domain.SortByTitle:         true,
	domain.SortByAuthor:        true,
	domain.SortByCreatedAt:     true,
	domain.SortByUpdatedAt:     true,
	domain.SortByPublishedYear: true,
	domain.SortByStatus:        true,
}

// ListParams is a validated listing request.
type ListParams struct {
	Filter    domain.BookFilter
	Page      int
	Limit     int
	SortBy    string
	SortOrder domain.SortOrder
}

// PageMeta describes the position of a page within the full result set.
type PageMeta struct {
	Total       int  `json:"total"`
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	TotalPages  int  `json:"totalPages"`
	HasNext     bool `json:"hasNext"`
	HasPrevious bool `json:"hasPrevious"`
}

// BookPage is one page of books.
type BookPage struct {
	Data []*domain.Book `json:"data"`
	Meta PageMeta       `json:"meta"`
}

// CreateBookInput carries the caller-settable fields of a new book.
type CreateBookInput struct {
	Title         string
	Author        string
	ISBN          *string
	Genre         *string
	PublishedYear *int
	Tags          []string
	Description   *string
	CoverImageURL *string
}

// BookService owns the book state machine and the activity trail.
type BookService struct {
	books    domain.BookRepository
	activity domain.ActivityRepository
	cache    domain.BookCache
	tracer   trace.Tracer
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// NewBookService creates a new book service. A nil cache disables caching.
func NewBookService(
	books domain.BookRepository,
	activity domain.ActivityRepository,
	cache domain.BookCache,
	logger *slog.Logger,
) *BookService {
	if logger == nil {
		logger = slog.Default()
	}
	if cache == nil {
		cache = noCache{}
	}

	return &BookService{
		books:    books,
		activity: activity,
		cache:    cache,
		tracer:   tracing.Tracer(),
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// List returns a filtered, sorted page of books.
func (s *BookService) List(ctx context.Context, p ListParams) (*BookPage, error) {
	ctx, span := s.tracer.Start(ctx, "BookService.List")
	defer span.End()

	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}

	sortBy, sortOrder := resolveSort(p.SortBy, p.SortOrder)

	books, total, err := s.books.List(ctx, domain.BookQuery{
		Filter:    p.Filter,
		SortBy:    sortBy,
		SortOrder: sortOrder,
		Offset:    (p.Page - 1) * p.Limit,
		Limit:     p.Limit,
	})
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("list books: %w", err)
	}

	totalPages := (total + p.Limit - 1) / p.Limit
	span.SetAttributes(attribute.Int("books.total", total))

	return &BookPage{
		Data: books,
		Meta: PageMeta{
			Total:       total,
			Page:        p.Page,
			Limit:       p.Limit,
			TotalPages:  totalPages,
			HasNext:     p.Page < totalPages,
			HasPrevious: p.Page > 1,
		},
	}, nil
}

// resolveSort clamps the requested ordering to the allow-list. Anything
// outside it falls back to newest first.
func resolveSort(field string, order domain.SortOrder) (domain.SortField, domain.SortOrder) {
	sortBy := domain.SortField(field)
	if field == "" {
		sortBy = domain.SortByCreatedAt
	}
	if !allowedSortFields[sortBy] {
		return domain.SortByCreatedAt, domain.SortDesc
	}
	if order != domain.SortAsc {
		order = domain.SortDesc
	}
	return sortBy, order
}

// Get returns a single book.
func (s *BookService) Get(ctx context.Context, id string) (*domain.Book, error) {
	ctx, span := s.tracer.Start(ctx, "BookService.Get", trace.WithAttributes(attribute.String("book.id", id)))
	defer span.End()

	if book, ok := s.cache.Get(ctx, id); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return book, nil
	}

	book, err := s.load(ctx, id)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	s.cache.Add(ctx, book)
	return book, nil
}

// Create persists a new AVAILABLE book.
func (s *BookService) Create(ctx context.Context, in CreateBookInput, actorID string) (*domain.Book, error) {
	ctx, span := s.tracer.Start(ctx, "BookService.Create")
	defer span.End()

	now := s.now()
	book := &domain.Book{
		ID:            s.newID(),
		Title:         in.Title,
		Author:        in.Author,
		ISBN:          in.ISBN,
		Genre:         in.Genre,
		PublishedYear: in.PublishedYear,
		Tags:          in.Tags,
		Description:   in.Description,
		CoverImageURL: in.CoverImageURL,
		Status:        domain.StatusAvailable,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.books.Create(ctx, book); err != nil {
		metrics.ObserveBookOperation("create", "error")
		recordSpanError(span, err)
		return nil, fmt.Errorf("create book: %w", err)
	}
	span.SetAttributes(attribute.String("book.id", book.ID))

	if err := s.record(ctx, domain.ActivityBookCreated, book.ID, actorID, map[string]any{
		"title": book.Title,
	}); err != nil {
		return nil, err
	}

	metrics.ObserveBookOperation("create", "success")
	s.logger.Info("book created",
		slog.String("book_id", book.ID),
		slog.String("actor_id", actorID),
	)
	return book, nil
}

// Update applies a partial patch to an existing book.
func (s *BookService) Update(ctx context.Context, id string, patch domain.BookPatch, actorID string) (*domain.Book, error) {
	ctx, span := s.tracer.Start(ctx, "BookService.Update", trace.WithAttributes(attribute.String("book.id", id)))
	defer span.End()

	book, err := s.load(ctx, id)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	patch.Apply(book)
	book.UpdatedAt = s.now()

	if err := s.books.Update(ctx, book); err != nil {
		metrics.ObserveBookOperation("update", "error")
		recordSpanError(span, err)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, bookNotFound(id)
		}
		return nil, fmt.Errorf("update book: %w", err)
	}
	s.refreshCache(ctx, id)

	fields := patch.Fields()
	if fields == nil {
		fields = []string{}
	}
	if err := s.record(ctx, domain.ActivityBookUpdated, id, actorID, map[string]any{
		"updatedFields": fields,
	}); err != nil {
		return nil, err
	}

	metrics.ObserveBookOperation("update", "success")
	return book, nil
}

// Delete removes a book permanently.
func (s *BookService) Delete(ctx context.Context, id string, actorID string) error {
	ctx, span := s.tracer.Start(ctx, "BookService.Delete", trace.WithAttributes(attribute.String("book.id", id)))
	defer span.End()

	book, err := s.load(ctx, id)
	if err != nil {
		recordSpanError(span, err)
		return err
	}

	if err := s.books.Delete(ctx, id); err != nil {
		metrics.ObserveBookOperation("delete", "error")
		recordSpanError(span, err)
		if errors.Is(err, domain.ErrNotFound) {
			return bookNotFound(id)
		}
		return fmt.Errorf("delete book: %w", err)
	}
	s.cache.Invalidate(ctx, id)
	if book.IsCheckedOut() {
		metrics.DecrementCheckedOut()
	}

	if err := s.record(ctx, domain.ActivityBookDeleted, id, actorID, map[string]any{
		"title": book.Title,
	}); err != nil {
		return err
	}

	metrics.ObserveBookOperation("delete", "success")
	s.logger.Info("book deleted",
		slog.String("book_id", id),
		slog.String("actor_id", actorID),
	)
	return nil
}

// Checkout lends an AVAILABLE book to actorID.
func (s *BookService) Checkout(ctx context.Context, id string, actorID string) (*domain.Book, error) {
	ctx, span := s.tracer.Start(ctx, "BookService.Checkout", trace.WithAttributes(attribute.String("book.id", id)))
	defer span.End()

	book, err := s.load(ctx, id)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	if book.IsCheckedOut() {
		metrics.ObserveBookOperation("checkout", "conflict")
		return nil, alreadyCheckedOut(book)
	}

	now := s.now()
	holder := actorID
	book.Status = domain.StatusCheckedOut
	book.CheckedOutByUserID = &holder
	book.CheckedOutAt = &now
	book.UpdatedAt = now

	if err := s.transition(ctx, id, domain.StatusAvailable, book, alreadyCheckedOut); err != nil {
		metrics.ObserveBookOperation("checkout", resultLabel(err))
		recordSpanError(span, err)
		return nil, err
	}

	if err := s.record(ctx, domain.ActivityBookCheckedOut, id, actorID, map[string]any{
		"title": book.Title,
	}); err != nil {
		return nil, err
	}

	metrics.ObserveBookOperation("checkout", "success")
	metrics.IncrementCheckedOut()
	return book, nil
}

// Checkin returns a CHECKED_OUT book to the shelf.
func (s *BookService) Checkin(ctx context.Context, id string, actorID string) (*domain.Book, error) {
	ctx, span := s.tracer.Start(ctx, "BookService.Checkin", trace.WithAttributes(attribute.String("book.id", id)))
	defer span.End()

	book, err := s.load(ctx, id)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	if !book.IsCheckedOut() {
		metrics.ObserveBookOperation("checkin", "conflict")
		return nil, notCheckedOut(book)
	}

	var previousHolder any
	if book.CheckedOutByUserID != nil {
		previousHolder = *book.CheckedOutByUserID
	}

	book.Status = domain.StatusAvailable
	book.CheckedOutByUserID = nil
	book.CheckedOutAt = nil
	book.UpdatedAt = s.now()

	if err := s.transition(ctx, id, domain.StatusCheckedOut, book, notCheckedOut); err != nil {
		metrics.ObserveBookOperation("checkin", resultLabel(err))
		recordSpanError(span, err)
		return nil, err
	}

	if err := s.record(ctx, domain.ActivityBookCheckedIn, id, actorID, map[string]any{
		"title":          book.Title,
		"previousHolder": previousHolder,
	}); err != nil {
		return nil, err
	}

	metrics.ObserveBookOperation("checkin", "success")
	metrics.DecrementCheckedOut()
	return book, nil
}

// Activity returns the audit trail of a book, oldest first. It does not
// require the book to still exist.
func (s *BookService) Activity(ctx context.Context, bookID string) ([]*domain.ActivityLogEntry, error) {
	entries, err := s.activity.ListByBook(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return entries, nil
}

// transition performs a conditional status change. When the row no longer
// holds the expected status, the book is re-read to tell a concurrent
// delete (NotFound) from a concurrent transition (Conflict).
func (s *BookService) transition(ctx context.Context, id string, from domain.BookStatus, next *domain.Book, conflict func(*domain.Book) error) error {
	ok, err := s.books.Transition(ctx, id, from, next)
	if err != nil {
		return fmt.Errorf("transition book: %w", err)
	}
	if ok {
		s.refreshCache(ctx, id)
		return nil
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	s.logger.Warn("lost race on book transition",
		slog.String("book_id", id),
		slog.String("expected_status", string(from)),
		slog.String("actual_status", string(current.Status)),
	)
	return conflict(current)
}

// refreshCache caches the stored row after a committed mutation. The copy in
// hand is not used: updates and transitions each write only their own
// columns, so the row may carry a concurrent change the copy lacks.
func (s *BookService) refreshCache(ctx context.Context, id string) {
	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		s.cache.Invalidate(ctx, id)
		return
	}
	s.cache.Set(ctx, book)
}

func (s *BookService) load(ctx context.Context, id string) (*domain.Book, error) {
	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, bookNotFound(id)
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

// record appends one activity entry. The mutation it describes has already
// been committed, so a failure here surfaces to the caller as an internal
// error without undoing the mutation.
func (s *BookService) record(ctx context.Context, kind domain.ActivityType, bookID, actorID string, metadata map[string]any) error {
	entry := &domain.ActivityLogEntry{
		ID:          s.newID(),
		Type:        kind,
		BookID:      bookID,
		ActorUserID: actorID,
		Metadata:    metadata,
		CreatedAt:   s.now(),
	}
	if err := s.activity.Append(ctx, entry); err != nil {
		s.logger.Error("activity append failed after mutation",
			slog.String("type", string(kind)),
			slog.String("book_id", bookID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("append activity: %w", err)
	}
	return nil
}

func bookNotFound(id string) error {
	return apperror.NotFound(fmt.Sprintf("Book with id '%s' not found", id))
}

func alreadyCheckedOut(b *domain.Book) error {
	return apperror.Conflict(fmt.Sprintf("Book '%s' is already checked out", b.Title))
}

func notCheckedOut(b *domain.Book) error {
	return apperror.Conflict(fmt.Sprintf("Book '%s' is not checked out", b.Title))
}

func resultLabel(err error) string {
	switch apperror.KindOf(err) {
	case apperror.KindConflict:
		return "conflict"
	case apperror.KindNotFound:
		return "not_found"
	default:
		return "error"
	}
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

type noCache struct{}

func (noCache) Get(context.Context, string) (*domain.Book, bool) { return nil, false }
func (noCache) Add(context.Context, *domain.Book)                {}
func (noCache) Set(context.Context, *domain.Book)                {}
func (noCache) Invalidate(context.Context, string)               {}
