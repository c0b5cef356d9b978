// Package seed loads the sample catalog used for local development.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aryan0dhankhar/minilibrary/internal/domain"
)

//go:embed seed.yaml
var defaultCatalog []byte

// User is a seeded account.
type User struct {
	ID    string      `yaml:"id"`
	Email string      `yaml:"email"`
	Name  string      `yaml:"name"`
	Role  domain.Role `yaml:"role"`
}

// Book is a seeded catalog entry. CheckedOutBy, when set, names the holder.
type Book struct {
	ID            string   `yaml:"id"`
	Title         string   `yaml:"title"`
	Author        string   `yaml:"author"`
	ISBN          string   `yaml:"isbn"`
	Genre         string   `yaml:"genre"`
	PublishedYear int      `yaml:"publishedYear"`
	Tags          []string `yaml:"tags"`
	Description   string   `yaml:"description"`
	CheckedOutBy  string   `yaml:"checkedOutBy"`
}

// Catalog is the full seed document.
type Catalog struct {
	Users []User `yaml:"users"`
	Books []Book `yaml:"books"`
}

// Result counts what Apply inserted. Existing records are left untouched.
type Result struct {
	UsersCreated int
	BooksCreated int
	BooksSkipped int
}

// Default returns the embedded sample catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Parse decodes and checks a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode seed catalog: %w", err)
	}
	for _, u := range c.Users {
		if u.ID == "" || !u.Role.Valid() {
			return nil, fmt.Errorf("seed user %q: id and a valid role are required", u.ID)
		}
	}
	for _, b := range c.Books {
		if b.ID == "" || b.Title == "" || b.Author == "" {
			return nil, fmt.Errorf("seed book %q: id, title and author are required", b.ID)
		}
	}
	return &c, nil
}

// Apply inserts every user and book that does not exist yet. Running it
// twice is a no-op.
func Apply(ctx context.Context, c *Catalog, users domain.UserRepository, books domain.BookRepository, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	now := time.Now().UTC()
	res := &Result{}

	for _, u := range c.Users {
		_, err := users.GetByID(ctx, u.ID)
		switch {
		case err == nil:
			continue
		case !errors.Is(err, domain.ErrNotFound):
			return nil, fmt.Errorf("look up seed user %s: %w", u.ID, err)
		}
		if _, err := users.Upsert(ctx, &domain.User{
			ID:        u.ID,
			Email:     u.Email,
			Name:      u.Name,
			Role:      u.Role,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			return nil, fmt.Errorf("create seed user %s: %w", u.ID, err)
		}
		res.UsersCreated++
	}

	for _, b := range c.Books {
		_, err := books.GetByID(ctx, b.ID)
		switch {
		case err == nil:
			res.BooksSkipped++
			continue
		case !errors.Is(err, domain.ErrNotFound):
			return nil, fmt.Errorf("look up seed book %s: %w", b.ID, err)
		}
		if err := books.Create(ctx, b.toDomain(now)); err != nil {
			return nil, fmt.Errorf("create seed book %s: %w", b.ID, err)
		}
		res.BooksCreated++
	}

	logger.Info("seed applied",
		slog.Int("users_created", res.UsersCreated),
		slog.Int("books_created", res.BooksCreated),
		slog.Int("books_skipped", res.BooksSkipped),
	)
	return res, nil
}

func (b Book) toDomain(now time.Time) *domain.Book {
	book := &domain.Book{
		ID:          b.ID,
		Title:       b.Title,
		Author:      b.Author,
		ISBN:        optional(b.ISBN),
		Genre:       optional(b.Genre),
		Tags:        b.Tags,
		Description: optional(b.Description),
		Status:      domain.StatusAvailable,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if b.PublishedYear != 0 {
		year := b.PublishedYear
		book.PublishedYear = &year
	}
	if b.CheckedOutBy != "" {
		holder := b.CheckedOutBy
		at := now
		book.Status = domain.StatusCheckedOut
		book.CheckedOutByUserID = &holder
		book.CheckedOutAt = &at
	}
	return book
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
