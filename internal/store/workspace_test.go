package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damz/jackalope/internal/ir"
	"github.com/damz/jackalope/internal/testutil"
)

func TestLogin_CreatesDefaultWorkspace(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	sess, err := s.Login(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultWorkspace, sess.Workspace())

	root, err := sess.GetNode(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, "", root.Parent)
	assert.Equal(t, RootNodeType, root.PrimaryType)
	assert.Equal(t, testutil.Identifier(1), root.Identifier)
	assert.Empty(t, root.Properties)

	// Logging in again reuses the workspace.
	again, err := s.Login(ctx, DefaultWorkspace)
	require.NoError(t, err)
	assert.Equal(t, sess.WorkspaceID(), again.WorkspaceID())

	names, err := s.WorkspaceNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultWorkspace}, names)
}

func TestLogin_UnknownWorkspace(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Login(context.Background(), "staging")
	require.Error(t, err)
	assert.True(t, ir.IsNotFound(err))
}

func TestCreateWorkspace(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateWorkspace(ctx, "staging"))

	err := s.CreateWorkspace(ctx, "staging")
	require.Error(t, err)
	assert.True(t, ir.IsAlreadyExists(err))

	err = s.CreateWorkspace(ctx, "")
	assert.True(t, ir.IsFormatError(err))

	sess, err := s.Login(ctx, "staging")
	require.NoError(t, err)
	_, ok, err := sess.Exists(ctx, "/")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWorkspacesAreIsolated(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateWorkspace(ctx, "other"))

	def, err := s.Login(ctx, "")
	require.NoError(t, err)
	other, err := s.Login(ctx, "other")
	require.NoError(t, err)

	mustUpsert(t, def, "", "/only-here")

	_, ok, err := other.Exists(ctx, "/only-here")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLogin_MissingSchema(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`DROP TABLE workspaces`)
	require.NoError(t, err)

	_, err = s.Login(context.Background(), "")
	require.Error(t, err)
	assert.True(t, ir.IsRepositoryUnavailable(err), "got %v", err)
}

func TestNamespaces(t *testing.T) {
	sess := createTestSession(t)
	ctx := context.Background()

	_, err := sess.store.db.Exec(`INSERT INTO namespaces (prefix, uri) VALUES ('app', 'urn:app')`)
	require.NoError(t, err)

	ns, err := sess.Namespaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, "urn:app", ns["app"])
	assert.Equal(t, "http://www.jcp.org/jcr/1.0", ns["jcr"])

	// Mutating the result does not leak into the session.
	ns["jcr"] = "changed"
	again, err := sess.Namespaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, "http://www.jcp.org/jcr/1.0", again["jcr"])
}

func TestRegisterNamespace(t *testing.T) {
	sess := createTestSession(t)
	ctx := context.Background()

	require.NoError(t, sess.RegisterNamespace(ctx, "blog", "urn:blog"))
	require.NoError(t, sess.RegisterNamespace(ctx, "blog", "urn:blog"))

	ns, err := sess.Namespaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, "urn:blog", ns["blog"])

	err = sess.RegisterNamespace(ctx, "blog", "urn:other")
	assert.True(t, ir.IsAlreadyExists(err), "got %v", err)

	err = sess.RegisterNamespace(ctx, "jcr", "urn:jcr")
	assert.True(t, ir.IsAlreadyExists(err), "got %v", err)

	err = sess.RegisterNamespace(ctx, "", "urn:x")
	assert.True(t, ir.IsFormatError(err))

	// Other sessions see the row once they load namespaces.
	other, err := sess.Store().Login(ctx, "")
	require.NoError(t, err)
	ns, err = other.Namespaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, "urn:blog", ns["blog"])
}
