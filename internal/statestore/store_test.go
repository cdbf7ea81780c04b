package statestore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGetMissingFolder(t *testing.T) {
	s := openTestStore(t)

	state, err := s.Get(context.Background(), "INBOX")
	require.NoError(t, err)
	assert.Empty(t, state)
}

func TestPutGetListDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	require.NoError(t, s.Put(ctx, "INBOX", "uidNext=10"))
	require.NoError(t, s.Put(ctx, "Archive", "uidNext=3"))
	require.NoError(t, s.Put(ctx, "INBOX", "uidNext=12"))

	state, err := s.Get(ctx, "INBOX")
	require.NoError(t, err)
	assert.Equal(t, "uidNext=12", state)

	entries, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Folder: "Archive", State: "uidNext=3", UpdatedAt: fixed},
		{Folder: "INBOX", State: "uidNext=12", UpdatedAt: fixed},
	}, entries)

	removed, err := s.Delete(ctx, "INBOX")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Delete(ctx, "INBOX")
	require.NoError(t, err)
	assert.False(t, removed)

	state, err = s.Get(ctx, "INBOX")
	require.NoError(t, err)
	assert.Empty(t, state)
}

func TestStatePersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "INBOX", "uidNext=42"))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	state, err := s.Get(ctx, "INBOX")
	require.NoError(t, err)
	assert.Equal(t, "uidNext=42", state)
}

func TestRetryOnContention(t *testing.T) {
	t.Run("transient errors are retried", func(t *testing.T) {
		calls := 0
		err := retryOnContention(context.Background(), func() error {
			calls++
			if calls < 3 {
				return errors.New("database is locked (5) (SQLITE_BUSY)")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("other errors are returned at once", func(t *testing.T) {
		calls := 0
		boom := errors.New("no such table: push_state")
		err := retryOnContention(context.Background(), func() error {
			calls++
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after the retry budget", func(t *testing.T) {
		calls := 0
		err := retryOnContention(context.Background(), func() error {
			calls++
			return errors.New("SQLITE_LOCKED")
		})
		assert.Error(t, err)
		assert.Equal(t, retryMaxRetries+1, calls)
	})
}

func TestIsTransientSQLiteErr(t *testing.T) {
	assert.False(t, isTransientSQLiteErr(nil))
	assert.True(t, isTransientSQLiteErr(errors.New("database is locked")))
	assert.True(t, isTransientSQLiteErr(errors.New("database table is locked")))
	assert.False(t, isTransientSQLiteErr(errors.New("constraint failed")))
}
