package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/minilibrary/internal/domain"
	"github.com/aryan0dhankhar/minilibrary/pkg/database"
)

func newTestPool(t *testing.T) *database.ConnectionPool {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "library.db")
	pool, err := database.NewConnectionPool(context.Background(), &database.Config{
		Driver: database.DriverSQLite,
		DSN:    dsn,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })
	return pool
}

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func newBook(id, title, author string, offset time.Duration) *domain.Book {
	at := baseTime.Add(offset)
	return &domain.Book{
		ID:        id,
		Title:     title,
		Author:    author,
		Status:    domain.StatusAvailable,
		CreatedAt: at,
		UpdatedAt: at,
	}
}
