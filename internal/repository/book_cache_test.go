package repository

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/minilibrary/internal/domain"
	"github.com/aryan0dhankhar/minilibrary/internal/infrastructure/redis"
)

func TestBookCacheEncoding(t *testing.T) {
	at := baseTime.Add(time.Hour)
	book := newBook("book-001", "Dune", "Frank Herbert", 0)
	book.Tags = []string{"sci-fi"}
	book.PublishedYear = intPtr(1965)
	book.Status = domain.StatusCheckedOut
	book.CheckedOutByUserID = strPtr("member-001")
	book.CheckedOutAt = &at

	data, err := encodeEntry(book)
	require.NoError(t, err)
	assert.Equal(t, entryVersion(book.UpdatedAt), string(data[:versionWidth]))

	got, err := decodeEntry(data)
	require.NoError(t, err)
	assert.Equal(t, book.Title, got.Title)
	assert.Equal(t, book.Tags, got.Tags)
	assert.Equal(t, 1965, *got.PublishedYear)
	assert.Equal(t, "member-001", *got.CheckedOutByUserID)
	assert.True(t, at.Equal(*got.CheckedOutAt))
}

func TestBookCacheTombstoneDecodesAsMiss(t *testing.T) {
	got, err := decodeEntry([]byte(tombstoneVersion))
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = decodeEntry([]byte("123"))
	assert.Error(t, err)
}

func TestEntryVersionOrdersAsString(t *testing.T) {
	earlier := entryVersion(baseTime)
	later := entryVersion(baseTime.Add(time.Nanosecond))

	assert.Len(t, earlier, versionWidth)
	assert.Less(t, earlier, later)
	assert.Less(t, later, tombstoneVersion)
}

func TestBookCacheUnavailableIsMiss(t *testing.T) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	cache := NewRedisBookCache(redis.NewFromUniversal(rdb, nil), time.Minute, nil)
	ctx := context.Background()

	book := newBook("book-001", "Dune", "Frank Herbert", 0)
	cache.Add(ctx, book)
	cache.Set(ctx, book)
	_, ok := cache.Get(ctx, "book-001")
	assert.False(t, ok)
	cache.Invalidate(ctx, "book-001")
}
