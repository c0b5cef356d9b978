package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"time"
)

// BookStatus is the lifecycle state of a catalog item.
type BookStatus string

const (
	StatusAvailable  BookStatus = "AVAILABLE"
	StatusCheckedOut BookStatus = "CHECKED_OUT"
)

// Valid reports whether s is a known status.
func (s BookStatus) Valid() bool {
	return s == StatusAvailable || s == StatusCheckedOut
}

// Book represents one catalog item and its checkout state.
// Status is CHECKED_OUT exactly when CheckedOutByUserID and CheckedOutAt are set.
type Book struct {
	ID                 string     `json:"id" msgpack:"id"`
	Title              string     `json:"title" msgpack:"title"`
	Author             string     `json:"author" msgpack:"author"`
	ISBN               *string    `json:"isbn" msgpack:"isbn"`
	Genre              *string    `json:"genre" msgpack:"genre"`
	PublishedYear      *int       `json:"publishedYear" msgpack:"published_year"`
	Tags               []string   `json:"tags" msgpack:"tags"`
	Description        *string    `json:"description" msgpack:"description"`
	CoverImageURL      *string    `json:"coverImageUrl" msgpack:"cover_image_url"`
	Status             BookStatus `json:"status" msgpack:"status"`
	CheckedOutByUserID *string    `json:"checkedOutByUserId" msgpack:"checked_out_by_user_id"`
	CheckedOutAt       *time.Time `json:"checkedOutAt" msgpack:"checked_out_at"`
	CreatedAt          time.Time  `json:"createdAt" msgpack:"created_at"`
	UpdatedAt          time.Time  `json:"updatedAt" msgpack:"updated_at"`
}

// IsCheckedOut reports whether the book is currently lent out.
func (b *Book) IsCheckedOut() bool {
	return b.Status == StatusCheckedOut
}

// BookPatch carries a partial update. Nil fields are left untouched.
// A non-nil Tags pointing at an empty slice clears the tag list.
type BookPatch struct {
	Title         *string
	Author        *string
	ISBN          *string
	Genre         *string
	PublishedYear *int
	Tags          *[]string
	Description   *string
	CoverImageURL *string
}

// Fields returns the names of the fields set on the patch, in declaration order.
func (p BookPatch) Fields() []string {
	var fields []string
	if p.Title != nil {
		fields = append(fields, "title")
	}
	if p.Author != nil {
		fields = append(fields, "author")
	}
	if p.ISBN != nil {
		fields = append(fields, "isbn")
	}
	if p.Genre != nil {
		fields = append(fields, "genre")
	}
	if p.PublishedYear != nil {
		fields = append(fields, "publishedYear")
	}
	if p.Tags != nil {
		fields = append(fields, "tags")
	}
	if p.Description != nil {
		fields = append(fields, "description")
	}
	if p.CoverImageURL != nil {
		fields = append(fields, "coverImageUrl")
	}
	return fields
}

// Apply copies the set fields of the patch onto b.
func (p BookPatch) Apply(b *Book) {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Author != nil {
		b.Author = *p.Author
	}
	if p.ISBN != nil {
		b.ISBN = p.ISBN
	}
	if p.Genre != nil {
		b.Genre = p.Genre
	}
	if p.PublishedYear != nil {
		b.PublishedYear = p.PublishedYear
	}
	if p.Tags != nil {
		tags := make([]string, len(*p.Tags))
		copy(tags, *p.Tags)
		b.Tags = tags
	}
	if p.Description != nil {
		b.Description = p.Description
	}
	if p.CoverImageURL != nil {
		b.CoverImageURL = p.CoverImageURL
	}
}

// SortField names a sortable book attribute.
type SortField string

const (
	SortByTitle         SortField = "title"
	SortByAuthor        SortField = "author"
	SortByCreatedAt     SortField = "createdAt"
	SortByUpdatedAt     SortField = "updatedAt"
	SortByPublishedYear SortField = "publishedYear"
	SortByStatus        SortField = "status"
)

// SortOrder is the direction of a listing.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// BookFilter narrows a listing. Empty strings mean "no filter".
type BookFilter struct {
	Status BookStatus
	Genre  string
	Author string
	Query  string
}

// BookQuery is a fully resolved listing request handed to the repository.
type BookQuery struct {
	Filter    BookFilter
	SortBy    SortField
	SortOrder SortOrder
	Offset    int
	Limit     int
}

// BookRepository defines data access for books.
type BookRepository interface {
	Create(ctx context.Context, book *Book) error
	GetByID(ctx context.Context, id string) (*Book, error)
	Update(ctx context.Context, book *Book) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, q BookQuery) ([]*Book, int, error)
	ListAll(ctx context.Context) ([]*Book, error)
	// Transition moves a book from one status to the next only if it is
	// currently in from. It reports false when no row matched.
	Transition(ctx context.Context, id string, from BookStatus, book *Book) (bool, error)
}

// BookCache is an optional read-through cache in front of BookRepository.
type BookCache interface {
	Get(ctx context.Context, id string) (*Book, bool)
	// Add stores a book read from the store unless id already has an entry.
	Add(ctx context.Context, book *Book)
	// Set stores a committed state unless a newer one is already cached.
	Set(ctx context.Context, book *Book)
	// Invalidate drops id and keeps Add from restoring it until it expires.
	Invalidate(ctx context.Context, id string)
}

// EncodeTags renders tags as the JSON text stored with a book and matched by
// search. Characters such as & are kept literal so they stay searchable.
func EncodeTags(tags []string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(tags); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
