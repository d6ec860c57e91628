package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damz/jackalope/internal/ir"
)

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpen_BusyTimeoutOption(t *testing.T) {
	s := createTestStore(t, WithBusyTimeout(1234))
	assert.NoError(t, s.verifyPragma("busy_timeout", "1234"))
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	require.NoError(t, err)
	sess, err := s1.Login(context.Background(), "")
	require.NoError(t, err)
	_, err = sess.Upsert(context.Background(), NodeData{Path: "/kept"})
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	sess, err = s2.Login(context.Background(), "")
	require.NoError(t, err)
	_, ok, err := sess.Exists(context.Background(), "/kept")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOpen_Unavailable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "test.db")

	_, err := Open(path)
	require.Error(t, err)
	assert.True(t, ir.IsRepositoryUnavailable(err), "got %v", err)
}

func TestClose_Twice(t *testing.T) {
	s := &Store{}
	assert.NoError(t, s.Close())
}
