package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/aryan0dhankhar/minilibrary/internal/domain"
	"github.com/aryan0dhankhar/minilibrary/internal/infrastructure/redis"
)

const (
	bookKeyPrefix = "book:"
	// versionWidth fixes the length of the version prefix so Redis can
	// compare versions as strings.
	versionWidth = 20
	// tombstoneVersion outranks every real version.
	tombstoneVersion = "99999999999999999999"
)

// RedisBookCache keeps msgpack-encoded books in Redis. Each entry is
// prefixed with the book's updatedAt so a committed state is never
// overwritten by an older one. Cache failures are logged and treated as
// misses; the database stays authoritative.
type RedisBookCache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisBookCache creates a book cache
func NewRedisBookCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisBookCache {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisBookCache{redis: client, ttl: ttl, logger: logger}
}

// Get returns a cached book. A tombstone reads as a miss.
func (c *RedisBookCache) Get(ctx context.Context, id string) (*domain.Book, bool) {
	data, err := c.redis.Get(ctx, bookKeyPrefix+id)
	if err != nil {
		if !errors.Is(err, redis.ErrMiss) {
			c.logger.Warn("book cache read failed",
				slog.String("book_id", id),
				slog.String("error", err.Error()),
			)
		}
		return nil, false
	}

	book, err := decodeEntry(data)
	if err != nil {
		c.logger.Warn("book cache entry corrupt",
			slog.String("book_id", id),
			slog.String("error", err.Error()),
		)
		return nil, false
	}
	return book, book != nil
}

// Add stores a book read from the store, unless the key already holds an
// entry written by a mutation or a tombstone.
func (c *RedisBookCache) Add(ctx context.Context, book *domain.Book) {
	data, err := encodeEntry(book)
	if err != nil {
		c.logger.Warn("book cache encode failed", slog.String("error", err.Error()))
		return
	}
	if _, err := c.redis.SetNX(ctx, bookKeyPrefix+book.ID, data, c.ttl); err != nil {
		c.logger.Warn("book cache write failed",
			slog.String("book_id", book.ID),
			slog.String("error", err.Error()),
		)
	}
}

// Set stores a committed state unless a newer one is already cached.
func (c *RedisBookCache) Set(ctx context.Context, book *domain.Book) {
	data, err := encodeEntry(book)
	if err != nil {
		c.logger.Warn("book cache encode failed", slog.String("error", err.Error()))
		return
	}
	stored, err := c.redis.SetIfNewer(ctx, bookKeyPrefix+book.ID, entryVersion(book.UpdatedAt), data, c.ttl)
	if err != nil {
		c.logger.Warn("book cache write failed",
			slog.String("book_id", book.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	if !stored {
		c.logger.Debug("book cache kept newer entry", slog.String("book_id", book.ID))
	}
}

// Invalidate replaces the entry with a tombstone that lives for one TTL.
func (c *RedisBookCache) Invalidate(ctx context.Context, id string) {
	if err := c.redis.Set(ctx, bookKeyPrefix+id, []byte(tombstoneVersion), c.ttl); err != nil {
		c.logger.Warn("book cache invalidate failed",
			slog.String("book_id", id),
			slog.String("error", err.Error()),
		)
	}
}

func entryVersion(updatedAt time.Time) string {
	return fmt.Sprintf("%0*d", versionWidth, updatedAt.UnixNano())
}

func encodeEntry(book *domain.Book) ([]byte, error) {
	payload, err := msgpack.Marshal(book)
	if err != nil {
		return nil, err
	}
	return append([]byte(entryVersion(book.UpdatedAt)), payload...), nil
}

// decodeEntry returns nil, nil for a tombstone.
func decodeEntry(data []byte) (*domain.Book, error) {
	if len(data) < versionWidth {
		return nil, fmt.Errorf("entry shorter than version prefix")
	}
	if len(data) == versionWidth && strings.HasPrefix(string(data), tombstoneVersion) {
		return nil, nil
	}
	var book domain.Book
	if err := msgpack.Unmarshal(data[versionWidth:], &book); err != nil {
		return nil, err
	}
	return &book, nil
}
