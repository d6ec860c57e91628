// Package refindex maintains the reference edge index: one row per distinct
// (source node, property, target node) for every Reference and
// WeakReference property value that resolves to a node.
//
// Strong edges guard their targets against deletion. Weak edges are kept
// for lookups only and are dropped silently when their target is missing.
package refindex

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/damz/jackalope/internal/ir"
	"github.com/damz/jackalope/internal/jcrpath"
)

// DBTX is the subset of *sql.DB and *sql.Tx used here.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Resolver maps a node identifier to its row id. It must report a missing
// node with an error satisfying ir.IsNotFound.
type Resolver interface {
	ResolveIdentifier(ctx context.Context, identifier string) (int64, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, identifier string) (int64, error)

// ResolveIdentifier implements Resolver.
func (f ResolverFunc) ResolveIdentifier(ctx context.Context, identifier string) (int64, error) {
	return f(ctx, identifier)
}

// Source identifies the node whose edges are rebuilt.
type Source struct {
	ID   int64
	Path string
}

// Rebuild replaces every edge leaving source with the edges implied by
// props. A strong reference that does not resolve fails the rebuild with a
// REFERENTIAL_INTEGRITY error; the caller's transaction must then roll back.
func Rebuild(ctx context.Context, db DBTX, resolver Resolver, source Source, props []ir.Property) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM reference_edges WHERE source_id = ?`, source.ID); err != nil {
		return fmt.Errorf("rebuild references of %s: delete: %w", source.Path, err)
	}

	for _, p := range props {
		if !p.Type.IsReference() {
			continue
		}
		strength := ir.StrengthFor(p.Type)

		seen := make(map[string]bool, len(p.Values))
		for _, v := range p.Values {
			identifier := v.String()
			if seen[identifier] {
				continue
			}
			seen[identifier] = true

			targetID, err := resolver.ResolveIdentifier(ctx, identifier)
			if err != nil {
				if !ir.IsNotFound(err) {
					return fmt.Errorf("rebuild references of %s: resolve %s: %w", source.Path, identifier, err)
				}
				if strength == ir.StrengthWeak {
					continue
				}
				return ir.NewReferentialIntegrityError(source.Path,
					fmt.Sprintf("property %s references unknown node %s", p.Name, identifier))
			}

			_, err = db.ExecContext(ctx, `
				INSERT INTO reference_edges (source_id, source_property_name, target_id, type)
				VALUES (?, ?, ?, ?)
				ON CONFLICT DO NOTHING
			`, source.ID, p.Name, targetID, string(strength))
			if err != nil {
				return fmt.Errorf("rebuild references of %s: insert: %w", source.Path, err)
			}
		}
	}
	return nil
}

// AssertDeletable fails with REFERENTIAL_INTEGRITY when any strong edge
// targets path or a node below it. Edges whose source is inside the same
// subtree count as well.
func AssertDeletable(ctx context.Context, db DBTX, workspaceID int64, path string) error {
	var count int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM reference_edges e
		JOIN nodes n ON n.id = e.target_id
		WHERE n.workspace_id = ?
		  AND (n.path = ? OR n.path GLOB ?)
		  AND e.type = ?
	`, workspaceID, path, jcrpath.DescendantGlob(path), string(ir.StrengthStrong)).Scan(&count)
	if err != nil {
		return fmt.Errorf("check references into %s: %w", path, err)
	}
	if count > 0 {
		return ir.NewReferentialIntegrityError(path,
			fmt.Sprintf("cannot delete: %d strong reference(s) point into this subtree", count))
	}
	return nil
}

// EdgesInto returns the references of the given strength that point at
// targetID, ordered by source path then property. A non-empty name keeps
// only references held by properties of that name.
func EdgesInto(ctx context.Context, db DBTX, targetID int64, strength ir.Strength, name string) ([]ir.Reference, error) {
	query := `
		SELECT n.path, e.source_property_name
		FROM reference_edges e
		JOIN nodes n ON n.id = e.source_id
		WHERE e.target_id = ? AND e.type = ?`
	args := []any{targetID, string(strength)}
	if name != "" {
		query += ` AND e.source_property_name = ?`
		args = append(args, name)
	}
	query += ` ORDER BY n.path ASC, e.source_property_name ASC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("edges into node %d: %w", targetID, err)
	}
	defer rows.Close()

	refs := make([]ir.Reference, 0)
	for rows.Next() {
		var r ir.Reference
		if err := rows.Scan(&r.SourcePath, &r.Property); err != nil {
			return nil, fmt.Errorf("edges into node %d: scan: %w", targetID, err)
		}
		refs = append(refs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("edges into node %d: %w", targetID, err)
	}
	return refs, nil
}
