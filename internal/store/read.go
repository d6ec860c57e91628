package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/damz/jackalope/internal/binstore"
	"github.com/damz/jackalope/internal/codec"
	"github.com/damz/jackalope/internal/ir"
	"github.com/damz/jackalope/internal/jcrpath"
	"github.com/damz/jackalope/internal/refindex"
)

// Exists reports whether a node exists at path and returns its row id.
func (s *Session) Exists(ctx context.Context, path string) (int64, bool, error) {
	path, err := jcrpath.Normalize(path)
	if err != nil {
		return 0, false, err
	}
	return existsTx(ctx, s.store.db, s.workspaceID, path)
}

// GetNode reads the node at path with its decoded properties and the paths
// of its direct children. Returns NOT_FOUND when there is no node.
func (s *Session) GetNode(ctx context.Context, path string) (*ir.Node, error) {
	path, err := jcrpath.Normalize(path)
	if err != nil {
		return nil, fmt.Errorf("get node: %w", err)
	}

	var (
		n       ir.Node
		payload []byte
	)
	err = s.store.db.QueryRowContext(ctx, `
		SELECT id, path, parent, identifier, type, local_name, namespace, props
		FROM nodes WHERE workspace_id = ? AND path = ?
	`, s.workspaceID, path).Scan(&n.ID, &n.Path, &n.Parent, &n.Identifier, &n.PrimaryType,
		&n.LocalName, &n.Namespace, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ir.NewNotFoundError(path, "node does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("get node %s: %w", path, err)
	}

	if n.Properties, err = codec.Decode(payload, nil); err != nil {
		return nil, fmt.Errorf("get node %s: %w", path, err)
	}
	if n.Children, err = s.childPaths(ctx, path); err != nil {
		return nil, fmt.Errorf("get node %s: %w", path, err)
	}

	s.identifiers[n.Path] = n.Identifier
	return &n, nil
}

// GetNodes reads several nodes. Missing paths are skipped; the result
// follows the request order.
func (s *Session) GetNodes(ctx context.Context, paths []string) ([]*ir.Node, error) {
	nodes := make([]*ir.Node, 0, len(paths))
	for _, p := range paths {
		n, err := s.GetNode(ctx, p)
		if ir.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (s *Session) childPaths(ctx context.Context, path string) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT path FROM nodes
		WHERE workspace_id = ? AND parent = ? AND path != ?
		ORDER BY path ASC
	`, s.workspaceID, path, jcrpath.Root)
	if err != nil {
		return nil, fmt.Errorf("children: %w", err)
	}
	defer rows.Close()

	children := make([]string, 0)
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("children: scan: %w", err)
		}
		children = append(children, p)
	}
	return children, rows.Err()
}

// PathForIdentifier returns the path of the node with the given identifier.
func (s *Session) PathForIdentifier(ctx context.Context, identifier string) (string, error) {
	var path string
	err := s.store.db.QueryRowContext(ctx, `
		SELECT path FROM nodes WHERE workspace_id = ? AND identifier = ?
	`, s.workspaceID, identifier).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ir.NewNotFoundError("", "no node with identifier "+identifier)
	}
	if err != nil {
		return "", fmt.Errorf("path for identifier %s: %w", identifier, err)
	}
	s.identifiers[path] = identifier
	return path, nil
}

// IdentifierFor returns the identifier of the node at path, answering from
// the session cache when it can.
func (s *Session) IdentifierFor(ctx context.Context, path string) (string, error) {
	path, err := jcrpath.Normalize(path)
	if err != nil {
		return "", err
	}
	if identifier, ok := s.identifiers[path]; ok {
		return identifier, nil
	}

	var identifier string
	err = s.store.db.QueryRowContext(ctx, `
		SELECT identifier FROM nodes WHERE workspace_id = ? AND path = ?
	`, s.workspaceID, path).Scan(&identifier)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ir.NewNotFoundError(path, "node does not exist")
	}
	if err != nil {
		return "", fmt.Errorf("identifier for %s: %w", path, err)
	}
	s.identifiers[path] = identifier
	return identifier, nil
}

// GetBinary returns the content of the Binary property at propertyPath, one
// entry per value in index order.
func (s *Session) GetBinary(ctx context.Context, propertyPath string) ([][]byte, error) {
	propertyPath, err := jcrpath.Normalize(propertyPath)
	if err != nil {
		return nil, fmt.Errorf("get binary: %w", err)
	}
	nodePath, name := jcrpath.Parent(propertyPath), jcrpath.Name(propertyPath)

	var payload []byte
	var id int64
	err = s.store.db.QueryRowContext(ctx, `
		SELECT id, props FROM nodes WHERE workspace_id = ? AND path = ?
	`, s.workspaceID, nodePath).Scan(&id, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ir.NewNotFoundError(propertyPath, "node does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("get binary %s: %w", propertyPath, err)
	}

	props, err := codec.Decode(payload, func(n string) bool { return n == name })
	if err != nil {
		return nil, fmt.Errorf("get binary %s: %w", propertyPath, err)
	}
	if len(props) == 0 {
		return nil, ir.NewNotFoundError(propertyPath, "property does not exist")
	}
	if props[0].Type != ir.TypeBinary {
		return nil, ir.NewFormatError(propertyPath, "property is not binary")
	}

	return binstore.Fetch(ctx, s.store.db, id, name)
}

// References returns the property paths holding strong references to the
// node at path. A non-empty name keeps only properties of that name.
func (s *Session) References(ctx context.Context, path, name string) ([]string, error) {
	return s.references(ctx, path, name, ir.StrengthStrong)
}

// WeakReferences is References for weak references.
func (s *Session) WeakReferences(ctx context.Context, path, name string) ([]string, error) {
	return s.references(ctx, path, name, ir.StrengthWeak)
}

func (s *Session) references(ctx context.Context, path, name string, strength ir.Strength) ([]string, error) {
	id, ok, err := s.Exists(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("references to %s: %w", path, err)
	}
	if !ok {
		return nil, ir.NewNotFoundError(path, "node does not exist")
	}

	refs, err := refindex.EdgesInto(ctx, s.store.db, id, strength, name)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(refs))
	for _, r := range refs {
		paths = append(paths, r.PropertyPath())
	}
	return paths, nil
}

// GetProperty is not supported; read the node and select the property.
func (s *Session) GetProperty(ctx context.Context, path string) (ir.Property, error) {
	return ir.Property{}, ir.NewNotImplementedError("get property")
}
