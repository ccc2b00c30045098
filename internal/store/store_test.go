package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// verifyPragma checks that a pragma is set to the expected value.
func verifyPragma(s *Store, name, expected string) error {
	var value string
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "session.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "user", []byte(`{"id":1}`)))
	require.NoError(t, s.Close())

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "iteration %d", i)
		v, ok, err := s.Get(ctx, "user")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `{"id":1}`, string(v))
		s.Close()
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, verifyPragma(s, "journal_mode", "wal"))
	assert.NoError(t, verifyPragma(s, "busy_timeout", "5000"))
	assert.NoError(t, verifyPragma(s, "user_version", "1"))
}

func TestOpen_RefusesNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.db.Exec("PRAGMA user_version = 2")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNewerSchema)
}

func TestOpen_SlotColumns(t *testing.T) {
	s := createTestStore(t)

	rows, err := s.db.Query(`SELECT name FROM pragma_table_info('slots') ORDER BY cid`)
	require.NoError(t, err)
	defer rows.Close()
	var cols []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		cols = append(cols, name)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"key", "value"}, cols)
}

func TestOpen_Memory(t *testing.T) {
	s, err := Open(MemoryPath)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "k", []byte("v")))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(v))
}

func TestSlots(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "user")
	require.NoError(t, err)
	assert.False(t, ok, "missing slot")

	require.NoError(t, s.Put(ctx, "user", []byte("a")))
	require.NoError(t, s.Put(ctx, "other", []byte("b")))
	require.NoError(t, s.Put(ctx, "user", []byte("c")))

	v, ok, err := s.Get(ctx, "user")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "c", string(v))

	var count int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM slots`).Scan(&count))
	assert.Equal(t, 2, count, "overwrite keeps one row per key")

	require.NoError(t, s.Delete(ctx, "user"))
	require.NoError(t, s.Delete(ctx, "user"), "deleting twice is fine")
	_, ok, err = s.Get(ctx, "user")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPut_EmptyValue(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "blank", nil))
	v, ok, err := s.Get(ctx, "blank")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, v)
}
