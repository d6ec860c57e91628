package nodetype_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/damz/jackalope/internal/ir"
	"github.com/damz/jackalope/internal/nodetype"
	"github.com/damz/jackalope/internal/store"
)

func createTestCatalog(t *testing.T) (*store.Store, *nodetype.Catalog) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, nodetype.NewCatalog(s.DB())
}

func article() ir.NodeTypeDefinition {
	return ir.NodeTypeDefinition{
		Name:               "app:article",
		DeclaredSupertypes: []string{"nt:base", "mix:title"},
		IsQueryable:        true,
		PrimaryItemName:    "app:body",
		PropertyDefinitions: []ir.PropertyDefinition{
			{
				Name:            "app:body",
				RequiredType:    ir.TypeString,
				IsMandatory:     true,
				OnParentVersion: ir.OnParentVersionCopy,
				QueryOperators:  []string{"=", "LIKE"},
				DefaultValues:   []string{},
			},
			{
				Name:            "app:status",
				RequiredType:    ir.TypeString,
				IsAutoCreated:   true,
				OnParentVersion: ir.OnParentVersionCopy,
				QueryOperators:  []string{},
				DefaultValues:   []string{"draft", "with space"},
			},
		},
		ChildNodeDefinitions: []ir.ChildNodeDefinition{
			{
				Name:                 "app:attachments",
				OnParentVersion:      ir.OnParentVersionVersion,
				RequiredPrimaryTypes: []string{"nt:folder"},
				DefaultPrimaryType:   "nt:folder",
				AllowsSameNameSibs:   false,
			},
		},
	}
}

func TestCatalog_RegisterAndResolve(t *testing.T) {
	_, c := createTestCatalog(t)
	ctx := context.Background()

	require.NoError(t, c.Register(ctx, []ir.NodeTypeDefinition{article()}, false))

	defs, err := c.Resolve(ctx, "app:article")
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, article(), defs[0])
}

func TestCatalog_ResolveOrderAndUnknown(t *testing.T) {
	_, c := createTestCatalog(t)
	ctx := context.Background()
	require.NoError(t, c.Register(ctx, []ir.NodeTypeDefinition{article()}, false))

	defs, err := c.Resolve(ctx, "nt:folder", "nope:missing", "app:article", "nt:folder")
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "nt:folder", defs[0].Name)
	assert.Equal(t, "app:article", defs[1].Name)

	ok, err := c.HasNodeType(ctx, "nope:missing")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = c.HasNodeType(ctx, "nt:base")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCatalog_RegisterConflicts(t *testing.T) {
	_, c := createTestCatalog(t)
	ctx := context.Background()
	require.NoError(t, c.Register(ctx, []ir.NodeTypeDefinition{article()}, false))

	err := c.Register(ctx, []ir.NodeTypeDefinition{article()}, false)
	require.Error(t, err)
	assert.True(t, ir.IsAlreadyExists(err))

	err = c.Register(ctx, []ir.NodeTypeDefinition{{Name: "nt:folder"}}, true)
	assert.True(t, ir.IsAlreadyExists(err), "built-in names cannot be replaced")

	err = c.Register(ctx, []ir.NodeTypeDefinition{{Name: ""}}, false)
	assert.True(t, ir.IsFormatError(err))
}

func TestCatalog_RegisterIsAtomic(t *testing.T) {
	_, c := createTestCatalog(t)
	ctx := context.Background()
	require.NoError(t, c.Register(ctx, []ir.NodeTypeDefinition{article()}, false))

	err := c.Register(ctx, []ir.NodeTypeDefinition{{Name: "app:fresh"}, article()}, false)
	require.Error(t, err)

	ok, err := c.HasNodeType(ctx, "app:fresh")
	require.NoError(t, err)
	assert.False(t, ok, "the batch rolled back")
}

func TestCatalog_AllowUpdate(t *testing.T) {
	_, c := createTestCatalog(t)
	ctx := context.Background()
	require.NoError(t, c.Register(ctx, []ir.NodeTypeDefinition{article()}, false))

	updated := article()
	updated.PropertyDefinitions = updated.PropertyDefinitions[:1]
	require.NoError(t, c.Register(ctx, []ir.NodeTypeDefinition{updated}, true))

	// All bypasses the cache and sees the replacement.
	all, err := c.All(ctx)
	require.NoError(t, err)
	last := all[len(all)-1]
	assert.Equal(t, "app:article", last.Name)
	assert.Len(t, last.PropertyDefinitions, 1)
}

func TestCatalog_NegativeCacheIsKept(t *testing.T) {
	s, c := createTestCatalog(t)
	ctx := context.Background()

	ok, err := c.HasNodeType(ctx, "app:article")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Register(ctx, []ir.NodeTypeDefinition{article()}, false))

	ok, err = c.HasNodeType(ctx, "app:article")
	require.NoError(t, err)
	assert.False(t, ok, "a cached miss survives registration")

	ok, err = nodetype.NewCatalog(s.DB()).HasNodeType(ctx, "app:article")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCatalog_All(t *testing.T) {
	_, c := createTestCatalog(t)
	ctx := context.Background()

	builtins, err := nodetype.Builtins()
	require.NoError(t, err)

	require.NoError(t, c.Register(ctx, []ir.NodeTypeDefinition{
		{Name: "app:zeta"},
		{Name: "app:alpha"},
	}, false))

	all, err := c.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, len(builtins)+2)
	assert.Equal(t, "app:alpha", all[len(builtins)].Name)
	assert.Equal(t, "app:zeta", all[len(builtins)+1].Name)
}

func TestCatalog_ConcurrentResolve(t *testing.T) {
	_, c := createTestCatalog(t)
	ctx := context.Background()
	require.NoError(t, c.Register(ctx, []ir.NodeTypeDefinition{article()}, false))

	g, gctx := errgroup.WithContext(ctx)
	for range 16 {
		g.Go(func() error {
			defs, err := c.Resolve(gctx, "app:article", "nt:unstructured")
			if err != nil {
				return err
			}
			if len(defs) != 2 {
				t.Errorf("Resolve() returned %d definitions", len(defs))
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}
