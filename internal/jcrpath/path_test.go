package jcrpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damz/jackalope/internal/ir"
)

func TestValidate(t *testing.T) {
	valid := []string{"/", "/a", "/a/b", "/jcr:content", "/a/b[2]", "/a b/c"}
	for _, p := range valid {
		assert.NoError(t, Validate(p), p)
	}

	invalid := []string{"", "a", "/a/", "//a", "/a//b", "/a/../b", "/a/./b", "/a[0]", "/a]", "/a*", "/:a", "/a:b:c"}
	for _, p := range invalid {
		err := Validate(p)
		require.Error(t, err, p)
		assert.True(t, ir.IsFormatError(err), p)
	}
}

func TestNormalize_NFC(t *testing.T) {
	// "e" followed by a combining acute accent composes to U+00E9.
	got, err := Normalize("/cafe\u0301")
	require.NoError(t, err)
	assert.Equal(t, "/caf\u00e9", got)
}

func TestParent(t *testing.T) {
	tests := map[string]string{
		"/":      "",
		"/a":     "/",
		"/a/b":   "/a",
		"/a/b/c": "/a/b",
	}
	for in, want := range tests {
		assert.Equal(t, want, Parent(in), in)
	}
}

func TestSplitName(t *testing.T) {
	prefix, local := SplitName("jcr:content")
	assert.Equal(t, "jcr", prefix)
	assert.Equal(t, "content", local)

	prefix, local = SplitName("item[3]")
	assert.Equal(t, "", prefix)
	assert.Equal(t, "item", local)

	assert.Equal(t, "b[2]", Name("/a/b[2]"))
	assert.Equal(t, "", Name("/"))
}

func TestSubtree(t *testing.T) {
	assert.True(t, IsDescendant("/a/b", "/a"))
	assert.False(t, IsDescendant("/ab", "/a"))
	assert.False(t, IsDescendant("/a", "/a"))
	assert.True(t, InSubtree("/a", "/a"))
	assert.True(t, IsDescendant("/x", "/"))
}

func TestRebase(t *testing.T) {
	assert.Equal(t, "/c", Rebase("/a", "/a", "/c"))
	assert.Equal(t, "/c/b", Rebase("/a/b", "/a", "/c"))
	assert.Equal(t, "/c/a/b", Rebase("/a/b", "/", "/c"))
	assert.Equal(t, "/x/a/b", Rebase("/a/b", "/a", "/x/a"))
}

func TestDescendantGlob(t *testing.T) {
	assert.Equal(t, "/a/*", DescendantGlob("/a"))
	assert.Equal(t, "/100%_x/*", DescendantGlob("/100%_x"))
	assert.Equal(t, "/a[*]b[?]/c[[]2]/*", DescendantGlob("/a*b?/c[2]"))
	assert.Equal(t, "/?*", DescendantGlob("/"))
}

func TestValidValue(t *testing.T) {
	for _, v := range []string{"/", "/a/b", "a/b", "../a", "./jcr:content", "/a/b[2]"} {
		assert.True(t, ValidValue(v), v)
	}
	for _, v := range []string{"", "a//b", "a b", "/a/b[0]"} {
		assert.False(t, ValidValue(v), v)
	}
}
