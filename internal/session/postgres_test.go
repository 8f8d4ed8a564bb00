package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/sahajkedia/student-profile-challenge/internal/metrics"
	"github.com/sahajkedia/student-profile-challenge/internal/session"
	"github.com/sahajkedia/student-profile-challenge/internal/testdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresBackend_Shared(t *testing.T) {
	pg := testdb.SetupSharedPostgres(t)
	defer pg.Cleanup(t)

	backend := session.NewPostgresBackend(pg.DB, metrics.NewMock())
	ctx := context.Background()

	t.Run("SetGet", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, "sessions")

		require.NoError(t, backend.Set(ctx, "abc", []byte("payload"), time.Now().Add(time.Hour)))

		data, err := backend.Get(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, []byte("payload"), data)
	})

	t.Run("SetOverwrites", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, "sessions")

		require.NoError(t, backend.Set(ctx, "abc", []byte("v1"), time.Now().Add(time.Hour)))
		require.NoError(t, backend.Set(ctx, "abc", []byte("v2"), time.Now().Add(time.Hour)))

		data, err := backend.Get(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), data)
		assert.Equal(t, 1, testdb.Count(t, pg.DB, "SELECT COUNT(*) FROM sessions"))
	})

	t.Run("ExpiredIsNotFound", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, "sessions")

		require.NoError(t, backend.Set(ctx, "old", []byte("x"), time.Now().Add(-time.Minute)))

		_, err := backend.Get(ctx, "old")
		assert.ErrorIs(t, err, session.ErrSessionNotFound)

		n, err := backend.DeleteExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("Destroy", func(t *testing.T) {
		testdb.CleanupTables(t, pg.DB, "sessions")

		require.NoError(t, backend.Set(ctx, "gone", []byte("x"), time.Now().Add(time.Hour)))
		require.NoError(t, backend.Destroy(ctx, "gone"))

		_, err := backend.Get(ctx, "gone")
		assert.ErrorIs(t, err, session.ErrSessionNotFound)
		assert.NoError(t, backend.Destroy(ctx, "never-existed"))
	})
}
