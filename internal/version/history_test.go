package version

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damz/jackalope/internal/ir"
	"github.com/damz/jackalope/internal/store"
	"github.com/damz/jackalope/internal/testutil"
)

// fakeSource serves nodes from memory and counts reads.
type fakeSource struct {
	byPath map[string]*ir.Node
	reads  int
}

func newFakeSource(nodes ...*ir.Node) *fakeSource {
	f := &fakeSource{byPath: make(map[string]*ir.Node)}
	for _, n := range nodes {
		f.byPath[n.Path] = n
	}
	return f
}

func (f *fakeSource) GetNode(ctx context.Context, path string) (*ir.Node, error) {
	f.reads++
	n, ok := f.byPath[path]
	if !ok {
		return nil, ir.NewNotFoundError(path, "node does not exist")
	}
	return n, nil
}

func (f *fakeSource) PathForIdentifier(ctx context.Context, identifier string) (string, error) {
	for _, n := range f.byPath {
		if n.Identifier == identifier {
			return n.Path, nil
		}
	}
	return "", ir.NewNotFoundError("", "no node with identifier "+identifier)
}

func versionNode(n int64, path string, successors ...int64) *ir.Node {
	values := make([]ir.Value, 0, len(successors))
	for _, s := range successors {
		values = append(values, ir.StringValue(testutil.Identifier(s)))
	}
	return &ir.Node{
		Path:       path,
		Identifier: testutil.Identifier(n),
		Properties: []ir.Property{ir.Multi("jcr:successors", ir.TypeReference, values...)},
	}
}

func names(nodes []*ir.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Path)
	}
	return out
}

func TestAllVersions_BranchAndMerge(t *testing.T) {
	src := newFakeSource(
		versionNode(1, "/h/jcr:rootVersion", 2, 3),
		versionNode(2, "/h/1.0", 4),
		versionNode(3, "/h/1.1", 4),
		versionNode(4, "/h/2.0"),
	)
	h := NewHistory(src, "/h")

	versions, err := h.AllVersions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/h/jcr:rootVersion", "/h/1.0", "/h/2.0", "/h/1.1"}, names(versions))
}

func TestAllVersions_CycleTerminates(t *testing.T) {
	src := newFakeSource(
		versionNode(1, "/h/jcr:rootVersion", 2),
		versionNode(2, "/h/1.0", 3),
		versionNode(3, "/h/1.1", 1, 2),
	)
	h := NewHistory(src, "/h")

	versions, err := h.AllVersions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/h/jcr:rootVersion", "/h/1.0", "/h/1.1"}, names(versions))
}

func TestAllVersions_Cached(t *testing.T) {
	src := newFakeSource(
		versionNode(1, "/h/jcr:rootVersion", 2),
		versionNode(2, "/h/1.0"),
	)
	h := NewHistory(src, "/h")
	ctx := context.Background()

	_, err := h.AllVersions(ctx)
	require.NoError(t, err)
	reads := src.reads

	v, err := h.Version(ctx, "1.0")
	require.NoError(t, err)
	assert.Equal(t, testutil.Identifier(2), v.Identifier)
	assert.Equal(t, reads, src.reads)
}

func TestAllVersions_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewHistory(newFakeSource(), "/h").AllVersions(ctx)
	assert.True(t, ir.IsNotFound(err))

	dangling := newFakeSource(versionNode(1, "/h/jcr:rootVersion", 9))
	_, err = NewHistory(dangling, "/h").AllVersions(ctx)
	assert.True(t, ir.IsNotFound(err))
}

func TestVersion_NotFound(t *testing.T) {
	h := NewHistory(newFakeSource(versionNode(1, "/h/jcr:rootVersion")), "/h")

	_, err := h.Version(context.Background(), "9.9")
	require.Error(t, err)
	assert.True(t, ir.IsNotFound(err))

	root, err := h.Version(context.Background(), "jcr:rootVersion")
	require.NoError(t, err)
	assert.Equal(t, "/h/jcr:rootVersion", root.Path)
}

func TestNotImplemented(t *testing.T) {
	h := NewHistory(newFakeSource(), "/h")
	ctx := context.Background()

	_, err := h.VersionableIdentifier(ctx)
	assert.True(t, ir.IsNotImplemented(err))
	_, err = h.AllLinearVersions(ctx)
	assert.True(t, ir.IsNotImplemented(err))
	_, err = h.AllFrozenNodes(ctx)
	assert.True(t, ir.IsNotImplemented(err))
	_, err = h.VersionByLabel(ctx, "stable")
	assert.True(t, ir.IsNotImplemented(err))
	assert.True(t, ir.IsNotImplemented(h.AddVersionLabel(ctx, "1.0", "stable", false)))
	assert.True(t, ir.IsNotImplemented(h.RemoveVersionLabel(ctx, "stable")))
	assert.True(t, ir.IsNotImplemented(h.RemoveVersion(ctx, "1.0")))
}

func TestAllVersions_StoredHistory(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	sess, err := s.Login(ctx, "")
	require.NoError(t, err)

	write := func(n *ir.Node) {
		t.Helper()
		_, err := sess.Upsert(ctx, store.NodeData{Identifier: n.Identifier, Path: n.Path, Properties: n.Properties})
		require.NoError(t, err)
	}
	write(&ir.Node{Path: "/h"})
	// Targets must exist before strong references to them are written.
	write(versionNode(2, "/h/1.0"))
	write(versionNode(1, "/h/jcr:rootVersion", 2))
	write(versionNode(2, "/h/1.0", 1))

	versions, err := NewHistory(sess, "/h").AllVersions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/h/jcr:rootVersion", "/h/1.0"}, names(versions))
}
