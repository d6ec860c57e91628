package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/damz/jackalope/internal/ir"
	"github.com/damz/jackalope/internal/testutil"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	defaults := []Option{
		WithIdentifierGenerator(testutil.NewSequentialIdentifiers()),
		WithClock(testutil.NewClock(testNow).Now),
	}
	s, err := Open(path, append(defaults, opts...)...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSession opens a session on the default workspace of a new store.
func createTestSession(t *testing.T) *Session {
	t.Helper()
	s := createTestStore(t)
	sess, err := s.Login(context.Background(), "")
	require.NoError(t, err)
	return sess
}

// mustUpsert writes a node and fails the test on error.
func mustUpsert(t *testing.T, sess *Session, identifier, path string, props ...ir.Property) int64 {
	t.Helper()
	id, err := sess.Upsert(context.Background(), NodeData{
		Identifier: identifier,
		Path:       path,
		Properties: props,
	})
	require.NoError(t, err)
	return id
}

func countRows(t *testing.T, s *Store, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.QueryRow(query, args...).Scan(&n))
	return n
}
