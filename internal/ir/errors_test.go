package ir

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRepositoryError_Predicates(t *testing.T) {
	err := fmt.Errorf("copy node: %w", NewNotFoundError("/a", "source does not exist"))

	assert.True(t, IsNotFound(err))
	assert.False(t, IsAlreadyExists(err))
	assert.False(t, IsNotFound(errors.New("plain")))
	assert.False(t, IsNotFound(nil))
}

func TestRepositoryError_Message(t *testing.T) {
	err := NewReferentialIntegrityError("/a", "node is referenced")
	assert.Equal(t, "REFERENTIAL_INTEGRITY: node is referenced (path=/a)", err.Error())

	cause := errors.New("unable to open database file")
	unavailable := NewUnavailableError("access denied", cause)
	assert.ErrorIs(t, unavailable, cause)
	assert.Equal(t, "REPOSITORY_UNAVAILABLE: access denied: unable to open database file", unavailable.Error())
}

func TestNotImplemented(t *testing.T) {
	err := NewNotImplementedError("move node")
	assert.True(t, IsNotImplemented(err))
	assert.Contains(t, err.Error(), "move node is not implemented")
}

func TestReferencePropertyPath(t *testing.T) {
	assert.Equal(t, "/a/b/ref", Reference{SourcePath: "/a/b", Property: "ref"}.PropertyPath())
	assert.Equal(t, "/ref", Reference{SourcePath: "/", Property: "ref"}.PropertyPath())
}

func TestParseOnParentVersion(t *testing.T) {
	opv, err := ParseOnParentVersion("")
	assert.NoError(t, err)
	assert.Equal(t, OnParentVersionCopy, opv)

	opv, err = ParseOnParentVersion("COMPUTE")
	assert.NoError(t, err)
	assert.Equal(t, "COMPUTE", opv.String())

	_, err = ParseOnParentVersion("SOMETIMES")
	assert.True(t, IsFormatError(err))
}
