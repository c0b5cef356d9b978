package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryan0dhankhar/minilibrary/internal/requestctx"
)

func TestLogDeniedCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	ctx := requestctx.WithRequestID(context.Background(), "req-9")

	l.LogDenied(ctx, "member-001", "/api/v1/books", "role MEMBER not allowed")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "audit", line["msg"])
	assert.Equal(t, "audit", line["component"])
	assert.Equal(t, "authorize", line["action"])
	assert.Equal(t, "denied", line["outcome"])
	assert.Equal(t, "member-001", line["user_id"])
	assert.Equal(t, "req-9", line["request_id"])
}

func TestAuthFailureOmitsSubject(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	l.LogAuthFailure(context.Background(), "/api/v1/me", "token expired")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.NotContains(t, line, "user_id")
	assert.Equal(t, "token expired", line["reason"])
}
