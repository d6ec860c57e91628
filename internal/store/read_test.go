package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damz/jackalope/internal/ir"
)

func TestGetNode_Children(t *testing.T) {
	sess := createTestSession(t)
	ctx := context.Background()

	mustUpsert(t, sess, "", "/b")
	mustUpsert(t, sess, "", "/a")
	mustUpsert(t, sess, "", "/a/x")

	root, err := sess.GetNode(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, []string{"/a", "/b"}, root.Children)

	leaf, err := sess.GetNode(ctx, "/a/x")
	require.NoError(t, err)
	assert.Empty(t, leaf.Children)
	assert.NotNil(t, leaf.Children)
}

func TestGetNode_NotFound(t *testing.T) {
	sess := createTestSession(t)

	_, err := sess.GetNode(context.Background(), "/missing")
	require.Error(t, err)
	assert.True(t, ir.IsNotFound(err))

	_, err = sess.GetNode(context.Background(), "missing")
	assert.True(t, ir.IsFormatError(err))
}

func TestGetNodes_SkipsMissing(t *testing.T) {
	sess := createTestSession(t)
	mustUpsert(t, sess, "", "/a")
	mustUpsert(t, sess, "", "/b")

	nodes, err := sess.GetNodes(context.Background(), []string{"/b", "/missing", "/a"})
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "/b", nodes[0].Path)
	assert.Equal(t, "/a", nodes[1].Path)
}

func TestIdentifierFor(t *testing.T) {
	sess := createTestSession(t)
	ctx := context.Background()
	mustUpsert(t, sess, idA, "/a")

	// A fresh session has an empty cache and must go to the table.
	other, err := sess.store.Login(ctx, "")
	require.NoError(t, err)

	identifier, err := other.IdentifierFor(ctx, "/a")
	require.NoError(t, err)
	assert.Equal(t, idA, identifier)

	_, err = other.IdentifierFor(ctx, "/missing")
	assert.True(t, ir.IsNotFound(err))

	_, err = other.PathForIdentifier(ctx, idB)
	assert.True(t, ir.IsNotFound(err))
}

func TestIdentifierFor_EvictedOnDelete(t *testing.T) {
	sess := createTestSession(t)
	ctx := context.Background()
	mustUpsert(t, sess, idA, "/a")
	mustUpsert(t, sess, idB, "/a/b")

	ok, err := sess.DeleteAt(ctx, "/a")
	require.NoError(t, err)
	require.True(t, ok)

	_, err = sess.IdentifierFor(ctx, "/a/b")
	assert.True(t, ir.IsNotFound(err))
}

func TestGetBinary_Errors(t *testing.T) {
	sess := createTestSession(t)
	ctx := context.Background()
	mustUpsert(t, sess, "", "/a", ir.Single("title", ir.TypeString, ir.StringValue("t")))

	_, err := sess.GetBinary(ctx, "/missing/data")
	assert.True(t, ir.IsNotFound(err))

	_, err = sess.GetBinary(ctx, "/a/data")
	assert.True(t, ir.IsNotFound(err))

	_, err = sess.GetBinary(ctx, "/a/title")
	assert.True(t, ir.IsFormatError(err))
}

func TestReferences(t *testing.T) {
	sess := createTestSession(t)
	ctx := context.Background()

	mustUpsert(t, sess, idA, "/target")
	mustUpsert(t, sess, "", "/one",
		ir.Single("ref", ir.TypeReference, ir.StringValue(idA)),
		ir.Single("other", ir.TypeReference, ir.StringValue(idA)),
		ir.Single("soft", ir.TypeWeakReference, ir.StringValue(idA)))
	mustUpsert(t, sess, "", "/two", ir.Single("ref", ir.TypeReference, ir.StringValue(idA)))

	strong, err := sess.References(ctx, "/target", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"/one/other", "/one/ref", "/two/ref"}, strong)

	named, err := sess.References(ctx, "/target", "ref")
	require.NoError(t, err)
	assert.Equal(t, []string{"/one/ref", "/two/ref"}, named)

	weak, err := sess.WeakReferences(ctx, "/target", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"/one/soft"}, weak)

	none, err := sess.WeakReferences(ctx, "/one", "")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = sess.References(ctx, "/missing", "")
	assert.True(t, ir.IsNotFound(err))
}
