package domain

import (
	"context"
	"time"
)

// ActivityType names a mutating book operation recorded in the audit trail.
type ActivityType string

const (
	ActivityBookCreated    ActivityType = "BOOK_CREATED"
	ActivityBookUpdated    ActivityType = "BOOK_UPDATED"
	ActivityBookDeleted    ActivityType = "BOOK_DELETED"
	ActivityBookCheckedOut ActivityType = "BOOK_CHECKED_OUT"
	ActivityBookCheckedIn  ActivityType = "BOOK_CHECKED_IN"
)

// ActivityLogEntry is an immutable audit record. Entries are never updated or deleted.
type ActivityLogEntry struct {
	ID          string         `json:"id"`
	Type        ActivityType   `json:"type"`
	BookID      string         `json:"bookId"`
	ActorUserID string         `json:"actorUserId"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// ActivityRepository is the append-only audit store.
type ActivityRepository interface {
	Append(ctx context.Context, entry *ActivityLogEntry) error
	ListByBook(ctx context.Context, bookID string) ([]*ActivityLogEntry, error)
}
