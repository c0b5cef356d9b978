package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("checkout: %w", Conflict("already checked out"))

	assert.Equal(t, KindConflict, KindOf(wrapped))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.True(t, errors.Is(wrapped, ErrConflict))
	assert.False(t, errors.Is(wrapped, ErrNotFound))
}

func TestSentinelsMatchByKind(t *testing.T) {
	invalid := fmt.Errorf("create book: %w", Validation("Validation failed", []FieldError{{Path: "title", Message: "is required"}}))

	assert.ErrorIs(t, invalid, ErrValidation)
	assert.NotErrorIs(t, invalid, ErrConflict)
	assert.ErrorIs(t, Unauthorized("Missing authentication token"), ErrUnauthorized)
	assert.ErrorIs(t, Forbidden("Insufficient permissions"), ErrForbidden)
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:   http.StatusBadRequest,
		KindUnauthorized: http.StatusUnauthorized,
		KindForbidden:    http.StatusForbidden,
		KindNotFound:     http.StatusNotFound,
		KindConflict:     http.StatusConflict,
		KindRateLimited:  http.StatusTooManyRequests,
		KindInternal:     http.StatusInternalServerError,
		Kind("other"):    http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.HTTPStatus(), kind)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindInternal, "list books", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "list books: connection refused", err.Error())
}
