package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/damz/jackalope/internal/ir"
)

// classifyDriverError maps driver failures at repository access boundaries
// onto the domain taxonomy. Anything unrecognized stays a wrapped backend
// error.
func classifyDriverError(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.Code {
		case sqlite3.ErrCantOpen, sqlite3.ErrNotADB, sqlite3.ErrCorrupt, sqlite3.ErrPerm, sqlite3.ErrAuth:
			return ir.NewUnavailableError("cannot access repository database", err)
		case sqlite3.ErrError:
			if strings.Contains(se.Error(), "no such table") {
				return ir.NewUnavailableError("repository schema is missing", err)
			}
		}
	}
	return fmt.Errorf("unexpected backend error: %w", err)
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrConstraint && se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
