package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"quiz-share-service/internal/app"
	"quiz-share-service/internal/config"
	"quiz-share-service/internal/domain"
	"quiz-share-service/internal/infra/memory"
)

func TestNewLoggerHonoursLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{}
	cfg.Log.Level = "warn"
	cfg.Log.Format = "json"

	logger := newLogger(cfg, &buf)
	require.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	logger.Warn("careful", "quizId", "q1")
	require.True(t, strings.HasPrefix(buf.String(), "{"))
	require.Contains(t, buf.String(), `"quizId":"q1"`)
}

func TestUsersClearRequiresConfirmation(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"users", "clear", "--config", filepath.Join(t.TempDir(), "none.yaml")})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	require.ErrorContains(t, err, "--yes")
}

func TestUsersDeleteNeedsPostgres(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef")
	t.Setenv("DATABASE_URL", "")
	cmd := newRootCmd()
	cmd.SetArgs([]string{"users", "delete", "--email", "a@example.com", "--config", filepath.Join(t.TempDir(), "none.yaml")})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	require.ErrorContains(t, err, "postgres url not configured")
}

func TestDeleteUserReportsZeroMatches(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.UpsertUser(ctx, domain.User{ID: "u1", Email: "a@example.com"}))
	users := app.NewUserService(store, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	var out bytes.Buffer
	require.NoError(t, deleteUser(ctx, users, "nobody@example.com", &out))
	require.Equal(t, "deleted 0 user(s) with email nobody@example.com\n", out.String())

	out.Reset()
	require.NoError(t, deleteUser(ctx, users, "a@example.com", &out))
	require.Equal(t, "deleted 1 user(s) with email a@example.com\n", out.String())
}
