package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aryan0dhankhar/minilibrary/internal/domain"
	"github.com/aryan0dhankhar/minilibrary/pkg/database"
)

const bookColumns = `id, title, author, isbn, genre, published_year, tags, description,
	cover_image_url, status, checked_out_by_user_id, checked_out_at, created_at, updated_at`

var sortColumns = map[domain.SortField]string{
	domain.SortByTitle:         "title",
	domain.SortByAuthor:        "author",
	domain.SortByCreatedAt:     "created_at",
	domain.SortByUpdatedAt:     "updated_at",
	domain.SortByPublishedYear: "published_year",
	domain.SortByStatus:        "status",
}

// SQLBookRepository implements domain.BookRepository on postgres or sqlite.
type SQLBookRepository struct {
	pool   *database.ConnectionPool
	logger *slog.Logger
}

// NewSQLBookRepository creates a new book repository
func NewSQLBookRepository(pool *database.ConnectionPool, logger *slog.Logger) *SQLBookRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &SQLBookRepository{
		pool:   pool,
		logger: logger,
	}
}

// Create inserts a new book
func (r *SQLBookRepository) Create(ctx context.Context, book *domain.Book) error {
	tags, err := encodeTags(book.Tags)
	if err != nil {
		return err
	}

	query := r.pool.Rebind(`
		INSERT INTO books (` + bookColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err = r.pool.GetDB().ExecContext(ctx, query,
		book.ID,
		book.Title,
		book.Author,
		nullString(book.ISBN),
		nullString(book.Genre),
		nullInt(book.PublishedYear),
		tags,
		nullString(book.Description),
		nullString(book.CoverImageURL),
		string(book.Status),
		nullString(book.CheckedOutByUserID),
		nullTime(book.CheckedOutAt),
		book.CreatedAt,
		book.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to create book",
			slog.String("book_id", book.ID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create book: %w", err)
	}

	return nil
}

// GetByID retrieves a book by ID
func (r *SQLBookRepository) GetByID(ctx context.Context, id string) (*domain.Book, error) {
	query := r.pool.Rebind(`SELECT ` + bookColumns + ` FROM books WHERE id = ?`)

	book, err := scanBook(r.pool.GetDB().QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get book: %w", err)
	}

	return book, nil
}

// Update overwrites the mutable columns of an existing book
func (r *SQLBookRepository) Update(ctx context.Context, book *domain.Book) error {
	tags, err := encodeTags(book.Tags)
	if err != nil {
		return err
	}

	query := r.pool.Rebind(`
		UPDATE books
		SET title = ?, author = ?, isbn = ?, genre = ?, published_year = ?, tags = ?,
			description = ?, cover_image_url = ?, updated_at = ?
		WHERE id = ?
	`)

	result, err := r.pool.GetDB().ExecContext(ctx, query,
		book.Title,
		book.Author,
		nullString(book.ISBN),
		nullString(book.Genre),
		nullInt(book.PublishedYear),
		tags,
		nullString(book.Description),
		nullString(book.CoverImageURL),
		book.UpdatedAt,
		book.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update book: %w", err)
	}

	return expectOneRow(result)
}

// Delete removes a book
func (r *SQLBookRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.GetDB().ExecContext(ctx, r.pool.Rebind(`DELETE FROM books WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}

	return expectOneRow(result)
}

// Transition applies the checkout columns of book only while the row is still
// in the from status, so two concurrent checkouts cannot both succeed.
func (r *SQLBookRepository) Transition(ctx context.Context, id string, from domain.BookStatus, book *domain.Book) (bool, error) {
	query := r.pool.Rebind(`
		UPDATE books
		SET status = ?, checked_out_by_user_id = ?, checked_out_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`)

	result, err := r.pool.GetDB().ExecContext(ctx, query,
		string(book.Status),
		nullString(book.CheckedOutByUserID),
		nullTime(book.CheckedOutAt),
		book.UpdatedAt,
		id,
		string(from),
	)
	if err != nil {
		return false, fmt.Errorf("failed to transition book: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}

	return rows == 1, nil
}

// List returns one page of books matching q and the total match count.
// The count and the page are fetched concurrently.
func (r *SQLBookRepository) List(ctx context.Context, q domain.BookQuery) ([]*domain.Book, int, error) {
	where, args := buildBookWhere(q.Filter)

	column, ok := sortColumns[q.SortBy]
	order := "DESC"
	if !ok {
		column = "created_at"
	} else if q.SortOrder == domain.SortAsc {
		order = "ASC"
	}

	countQuery := r.pool.Rebind(`SELECT COUNT(*) FROM books` + where)
	pageQuery := r.pool.Rebind(fmt.Sprintf(`SELECT %s FROM books%s ORDER BY %s %s, id ASC LIMIT ? OFFSET ?`,
		bookColumns, where, column, order))
	pageArgs := append(append([]any{}, args...), q.Limit, q.Offset)

	var (
		total int
		books []*domain.Book
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := r.pool.GetDB().QueryRowContext(gctx, countQuery, args...).Scan(&total); err != nil {
			return fmt.Errorf("failed to count books: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		books, err = r.queryBooks(gctx, pageQuery, pageArgs...)
		return err
	})

	if err := g.Wait(); err != nil {
		r.logger.Error("failed to list books", slog.String("error", err.Error()))
		return nil, 0, err
	}

	return books, total, nil
}

// ListAll returns every book ordered by creation time.
func (r *SQLBookRepository) ListAll(ctx context.Context) ([]*domain.Book, error) {
	return r.queryBooks(ctx, `SELECT `+bookColumns+` FROM books ORDER BY created_at DESC, id ASC`)
}

func (r *SQLBookRepository) queryBooks(ctx context.Context, query string, args ...any) ([]*domain.Book, error) {
	rows, err := r.pool.GetDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer rows.Close()

	books := make([]*domain.Book, 0)
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, book)
	}

	return books, rows.Err()
}

func buildBookWhere(f domain.BookFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)

	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Genre != "" {
		clauses = append(clauses, `LOWER(COALESCE(genre, '')) LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(f.Genre))
	}
	if f.Author != "" {
		clauses = append(clauses, `LOWER(author) LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(f.Author))
	}
	if f.Query != "" {
		searchable := []string{"title", "author", "genre", "isbn", "description", "tags"}
		ors := make([]string, 0, len(searchable))
		pattern := likePattern(f.Query)
		for _, col := range searchable {
			ors = append(ors, fmt.Sprintf(`LOWER(COALESCE(%s, '')) LIKE ? ESCAPE '\'`, col))
			args = append(args, pattern)
		}
		clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// likePattern builds a case-insensitive substring pattern with LIKE
// metacharacters escaped.
func likePattern(needle string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(needle))
	return "%" + escaped + "%"
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (*domain.Book, error) {
	var (
		book          domain.Book
		isbn          sql.NullString
		genre         sql.NullString
		publishedYear sql.NullInt64
		tags          sql.NullString
		description   sql.NullString
		coverImageURL sql.NullString
		status        string
		checkedOutBy  sql.NullString
		checkedOutAt  sql.NullTime
	)

	err := row.Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&isbn,
		&genre,
		&publishedYear,
		&tags,
		&description,
		&coverImageURL,
		&status,
		&checkedOutBy,
		&checkedOutAt,
		&book.CreatedAt,
		&book.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	book.ISBN = stringPtr(isbn)
	book.Genre = stringPtr(genre)
	book.Description = stringPtr(description)
	book.CoverImageURL = stringPtr(coverImageURL)
	book.CheckedOutByUserID = stringPtr(checkedOutBy)
	book.Status = domain.BookStatus(status)
	if publishedYear.Valid {
		year := int(publishedYear.Int64)
		book.PublishedYear = &year
	}
	if checkedOutAt.Valid {
		at := checkedOutAt.Time.UTC()
		book.CheckedOutAt = &at
	}
	book.CreatedAt = book.CreatedAt.UTC()
	book.UpdatedAt = book.UpdatedAt.UTC()

	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &book.Tags); err != nil {
			return nil, fmt.Errorf("decode tags of book %s: %w", book.ID, err)
		}
	}

	return &book, nil
}

func encodeTags(tags []string) (sql.NullString, error) {
	if tags == nil {
		return sql.NullString{}, nil
	}
	data, err := domain.EncodeTags(tags)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode tags: %w", err)
	}
	return sql.NullString{String: data, Valid: true}, nil
}

func expectOneRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
