package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aryan0dhankhar/minilibrary/internal/domain"
	"github.com/aryan0dhankhar/minilibrary/pkg/database"
)

// SQLActivityRepository is the append-only audit store.
type SQLActivityRepository struct {
	pool   *database.ConnectionPool
	logger *slog.Logger
}

// NewSQLActivityRepository creates a new activity repository
func NewSQLActivityRepository(pool *database.ConnectionPool, logger *slog.Logger) *SQLActivityRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &SQLActivityRepository{
		pool:   pool,
		logger: logger,
	}
}

// Append records an entry.
func (r *SQLActivityRepository) Append(ctx context.Context, entry *domain.ActivityLogEntry) error {
	var metadata sql.NullString
	if entry.Metadata != nil {
		data, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("encode activity metadata: %w", err)
		}
		metadata = sql.NullString{String: string(data), Valid: true}
	}

	query := r.pool.Rebind(`
		INSERT INTO activity_logs (id, type, book_id, actor_user_id, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)

	_, err := r.pool.GetDB().ExecContext(ctx, query,
		entry.ID,
		string(entry.Type),
		entry.BookID,
		entry.ActorUserID,
		metadata,
		entry.CreatedAt,
	)
	if err != nil {
		r.logger.Error("failed to append activity",
			slog.String("type", string(entry.Type)),
			slog.String("book_id", entry.BookID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to append activity: %w", err)
	}

	return nil
}

// ListByBook returns the entries for a book, oldest first.
func (r *SQLActivityRepository) ListByBook(ctx context.Context, bookID string) ([]*domain.ActivityLogEntry, error) {
	query := r.pool.Rebind(`
		SELECT id, type, book_id, actor_user_id, metadata, created_at
		FROM activity_logs
		WHERE book_id = ?
		ORDER BY created_at ASC, id ASC
	`)

	rows, err := r.pool.GetDB().QueryContext(ctx, query, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	entries := make([]*domain.ActivityLogEntry, 0)
	for rows.Next() {
		var (
			entry    domain.ActivityLogEntry
			kind     string
			metadata sql.NullString
		)
		if err := rows.Scan(&entry.ID, &kind, &entry.BookID, &entry.ActorUserID, &metadata, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		entry.Type = domain.ActivityType(kind)
		entry.CreatedAt = entry.CreatedAt.UTC()
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &entry.Metadata); err != nil {
				return nil, fmt.Errorf("decode activity metadata: %w", err)
			}
		}
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}
