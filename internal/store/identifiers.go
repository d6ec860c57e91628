package store

import (
	"github.com/google/uuid"

	"github.com/damz/jackalope/internal/ir"
)

// IdentifierGenerator produces identifiers for new nodes.
type IdentifierGenerator interface {
	NewIdentifier() string
}

// UUIDGenerator generates random (version 4) UUID identifiers.
//
// Thread-safety: UUIDGenerator is stateless and safe for concurrent use.
type UUIDGenerator struct{}

// NewIdentifier returns a new hyphenated UUID string.
func (UUIDGenerator) NewIdentifier() string {
	return uuid.NewString()
}

// validateIdentifier accepts identifiers in canonical UUID form.
func validateIdentifier(path, identifier string) error {
	u, err := uuid.Parse(identifier)
	if err != nil || u.String() != identifier {
		return ir.NewFormatError(path, "invalid node identifier "+identifier)
	}
	return nil
}
