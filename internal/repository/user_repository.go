package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aryan0dhankhar/minilibrary/internal/domain"
	"github.com/aryan0dhankhar/minilibrary/pkg/database"
)

const userColumns = `id, email, name, role, created_at, updated_at`

// SQLUserRepository implements domain.UserRepository on postgres or sqlite.
type SQLUserRepository struct {
	pool   *database.ConnectionPool
	logger *slog.Logger
}

// NewSQLUserRepository creates a new user repository
func NewSQLUserRepository(pool *database.ConnectionPool, logger *slog.Logger) *SQLUserRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &SQLUserRepository{
		pool:   pool,
		logger: logger,
	}
}

// GetByID retrieves a user by ID
func (r *SQLUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := r.pool.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)

	user, err := scanUser(r.pool.GetDB().QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("failed to get user by id",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// ResolveOrCreate inserts the user on first sight. On later calls only the
// profile fields are refreshed; the stored role is kept.
func (r *SQLUserRepository) ResolveOrCreate(ctx context.Context, user *domain.User) (*domain.User, error) {
	return r.upsert(ctx, user, `email = excluded.email, name = excluded.name, updated_at = excluded.updated_at`)
}

// Upsert inserts the user or overwrites email, name and role.
func (r *SQLUserRepository) Upsert(ctx context.Context, user *domain.User) (*domain.User, error) {
	return r.upsert(ctx, user, `email = excluded.email, name = excluded.name, role = excluded.role, updated_at = excluded.updated_at`)
}

func (r *SQLUserRepository) upsert(ctx context.Context, user *domain.User, set string) (*domain.User, error) {
	query := r.pool.Rebind(`
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET ` + set + `
		RETURNING ` + userColumns)

	stored, err := scanUser(r.pool.GetDB().QueryRowContext(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		string(user.Role),
		user.CreatedAt,
		user.UpdatedAt,
	))
	if err != nil {
		r.logger.Error("failed to upsert user",
			slog.String("id", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return stored, nil
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		user domain.User
		role string
	)
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &role, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}
	user.Role = domain.Role(role)
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return &user, nil
}
