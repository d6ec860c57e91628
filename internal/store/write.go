package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/damz/jackalope/internal/binstore"
	"github.com/damz/jackalope/internal/codec"
	"github.com/damz/jackalope/internal/ir"
	"github.com/damz/jackalope/internal/jcrpath"
	"github.com/damz/jackalope/internal/refindex"
)

// NodeData is the input of a node write.
type NodeData struct {
	// Identifier is generated when empty. Ignored when the node exists.
	Identifier string

	Path string

	// Parent defaults to the parent of Path. When set it must match.
	Parent string

	// PrimaryType defaults to nt:unstructured. Ignored when the node exists.
	PrimaryType string

	Properties []ir.Property
}

// nodeWrite is a fully prepared row write.
type nodeWrite struct {
	identifier  string
	path        string
	parent      string
	primaryType string
	payload     []byte
	binaries    map[string][][]byte
	props       []ir.Property
}

// Upsert creates the node at n.Path, or replaces the properties of the
// existing node there. The node row, its binary values and its reference
// edges are written in one transaction. Returns the node's row id.
func (s *Session) Upsert(ctx context.Context, n NodeData) (int64, error) {
	w, err := s.prepareWrite(n)
	if err != nil {
		return 0, fmt.Errorf("upsert node: %w", err)
	}
	ns, err := s.Namespaces(ctx)
	if err != nil {
		return 0, fmt.Errorf("upsert node %s: %w", w.path, err)
	}

	var (
		id       int64
		inserted bool
	)
	err = s.store.withTx(ctx, func(tx *sql.Tx) error {
		id, inserted, err = s.upsertTx(ctx, tx, ns, w)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("upsert node %s: %w", w.path, err)
	}

	if inserted {
		s.identifiers[w.path] = w.identifier
	}
	slog.Debug("node stored", "workspace", s.workspace, "path", w.path, "id", id, "inserted", inserted)
	return id, nil
}

func (s *Session) prepareWrite(n NodeData) (nodeWrite, error) {
	path, err := jcrpath.Normalize(n.Path)
	if err != nil {
		return nodeWrite{}, err
	}

	parent := jcrpath.Parent(path)
	if n.Parent != "" && n.Parent != parent {
		return nodeWrite{}, ir.NewFormatError(path, "parent "+n.Parent+" does not match path")
	}

	identifier := n.Identifier
	if identifier == "" {
		identifier = s.store.ids.NewIdentifier()
	} else if err := validateIdentifier(path, identifier); err != nil {
		return nodeWrite{}, err
	}

	primaryType := n.PrimaryType
	if primaryType == "" {
		primaryType = RootNodeType
	}

	enc, err := codec.Encode(n.Properties)
	if err != nil {
		return nodeWrite{}, err
	}

	return nodeWrite{
		identifier:  identifier,
		path:        path,
		parent:      parent,
		primaryType: primaryType,
		payload:     enc.Payload,
		binaries:    enc.Binaries,
		props:       n.Properties,
	}, nil
}

// upsertTx performs the row write, binary replacement and edge rebuild of w
// inside tx. inserted reports whether a new row was created.
func (s *Session) upsertTx(ctx context.Context, tx *sql.Tx, ns map[string]string, w nodeWrite) (id int64, inserted bool, err error) {
	id, found, err := existsTx(ctx, tx, s.workspaceID, w.path)
	if err != nil {
		return 0, false, err
	}

	if found {
		if _, err := tx.ExecContext(ctx, `UPDATE nodes SET props = ? WHERE id = ?`, w.payload, id); err != nil {
			return 0, false, fmt.Errorf("update: %w", err)
		}
	} else {
		if id, err = s.insertTx(ctx, tx, ns, w); err != nil {
			return 0, false, err
		}
		inserted = true
	}

	if err := s.writeBinariesTx(ctx, tx, id, w); err != nil {
		return 0, false, err
	}

	source := refindex.Source{ID: id, Path: w.path}
	if err := refindex.Rebuild(ctx, tx, s.resolverTx(tx), source, w.props); err != nil {
		return 0, false, err
	}
	return id, inserted, nil
}

// writeBinariesTx makes the binary rows of node id match w. Properties that
// carried content are replaced, empty ones are cleared, and rows of
// properties that are no longer Binary are dropped. A property re-encoded
// from decoded lengths keeps its rows.
func (s *Session) writeBinariesTx(ctx context.Context, tx *sql.Tx, id int64, w nodeWrite) error {
	var names []string
	for _, p := range w.props {
		if p.Type != ir.TypeBinary {
			continue
		}
		names = append(names, p.Name)
		if len(p.Values) == 0 {
			if err := binstore.Replace(ctx, tx, s.workspaceID, id, p.Name, nil); err != nil {
				return err
			}
		}
	}
	if err := binstore.Retain(ctx, tx, id, names); err != nil {
		return err
	}

	replaced := make([]string, 0, len(w.binaries))
	for name := range w.binaries {
		replaced = append(replaced, name)
	}
	slices.Sort(replaced)
	for _, name := range replaced {
		if err := binstore.Replace(ctx, tx, s.workspaceID, id, name, w.binaries[name]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) insertTx(ctx context.Context, tx *sql.Tx, ns map[string]string, w nodeWrite) (int64, error) {
	if w.path != jcrpath.Root {
		_, parentFound, err := existsTx(ctx, tx, s.workspaceID, w.parent)
		if err != nil {
			return 0, err
		}
		if !parentFound {
			return 0, ir.NewNotFoundError(w.parent, "parent node does not exist")
		}
	}

	prefix, local := jcrpath.SplitName(jcrpath.Name(w.path))
	uri, ok := ns[prefix]
	if !ok {
		return 0, ir.NewFormatError(w.path, "unknown namespace prefix "+prefix)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO nodes (path, parent, local_name, namespace, workspace_id, identifier, type, props)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, w.path, w.parent, local, uri, s.workspaceID, w.identifier, w.primaryType, w.payload)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ir.NewAlreadyExistsError(w.path, "a node with this path or identifier already exists")
		}
		return 0, fmt.Errorf("insert: %w", err)
	}
	return res.LastInsertId()
}

// resolverTx resolves reference targets in the session's workspace through tx.
func (s *Session) resolverTx(tx *sql.Tx) refindex.Resolver {
	return refindex.ResolverFunc(func(ctx context.Context, identifier string) (int64, error) {
		var id int64
		err := tx.QueryRowContext(ctx, `
			SELECT id FROM nodes WHERE workspace_id = ? AND identifier = ?
		`, s.workspaceID, identifier).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ir.NewNotFoundError("", "no node with identifier "+identifier)
		}
		return id, err
	})
}

func existsTx(ctx context.Context, db rowQuerier, workspaceID int64, path string) (int64, bool, error) {
	var id int64
	err := db.QueryRowContext(ctx, `
		SELECT id FROM nodes WHERE workspace_id = ? AND path = ?
	`, workspaceID, path).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("check node %s: %w", path, err)
	}
	return id, true, nil
}

// rowQuerier is satisfied by both *sql.DB and *sql.Tx.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type subtreeRow struct {
	id          int64
	path        string
	primaryType string
	payload     []byte
}

// CopySubtree copies the node at src and all its descendants to dst. With a
// non-empty srcWorkspace the source is read from that workspace. Copies get
// fresh identifiers; payloads and binary values are duplicated verbatim.
// Reference values inside the copied payloads are not remapped.
func (s *Session) CopySubtree(ctx context.Context, src, dst, srcWorkspace string) error {
	if jcrpath.HasIndex(dst) {
		return ir.NewFormatError(dst, "invalid destination path")
	}
	dst, err := jcrpath.Normalize(dst)
	if err != nil {
		return fmt.Errorf("copy node: %w", err)
	}
	src, err = jcrpath.Normalize(src)
	if err != nil {
		return fmt.Errorf("copy node: %w", err)
	}

	srcWorkspaceID := s.workspaceID
	if srcWorkspace != "" && srcWorkspace != s.workspace {
		if srcWorkspaceID, err = s.store.workspaceID(ctx, srcWorkspace); err != nil {
			return fmt.Errorf("copy node: source workspace: %w", err)
		}
	}

	ns, err := s.Namespaces(ctx)
	if err != nil {
		return fmt.Errorf("copy node: %w", err)
	}

	var created map[string]string
	err = s.store.withTx(ctx, func(tx *sql.Tx) error {
		if _, ok, err := existsTx(ctx, tx, srcWorkspaceID, src); err != nil {
			return err
		} else if !ok {
			return ir.NewNotFoundError(src, "source node does not exist")
		}
		if _, ok, err := existsTx(ctx, tx, s.workspaceID, dst); err != nil {
			return err
		} else if ok {
			return ir.NewAlreadyExistsError(dst, "destination already exists")
		}
		if _, ok, err := existsTx(ctx, tx, s.workspaceID, jcrpath.Parent(dst)); err != nil {
			return err
		} else if !ok {
			return ir.NewNotFoundError(jcrpath.Parent(dst), "destination parent does not exist")
		}

		rows, err := readSubtreeTx(ctx, tx, srcWorkspaceID, src)
		if err != nil {
			return err
		}

		created = make(map[string]string, len(rows))
		for _, r := range rows {
			props, err := codec.Decode(r.payload, nil)
			if err != nil {
				return fmt.Errorf("decode %s: %w", r.path, err)
			}
			newPath := jcrpath.Rebase(r.path, src, dst)
			w := nodeWrite{
				identifier:  s.store.ids.NewIdentifier(),
				path:        newPath,
				parent:      jcrpath.Parent(newPath),
				primaryType: r.primaryType,
				payload:     r.payload,
				props:       props,
			}
			id, _, err := s.upsertTx(ctx, tx, ns, w)
			if err != nil {
				return err
			}
			if err := binstore.CopyNode(ctx, tx, s.workspaceID, r.id, id); err != nil {
				return err
			}
			created[newPath] = w.identifier
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("copy node %s to %s: %w", src, dst, err)
	}

	for p, identifier := range created {
		s.identifiers[p] = identifier
	}
	slog.Debug("subtree copied", "workspace", s.workspace, "src", src, "dst", dst, "nodes", len(created))
	return nil
}

// readSubtreeTx returns the subtree rows in insertion order, which puts
// every parent before its children.
func readSubtreeTx(ctx context.Context, tx *sql.Tx, workspaceID int64, root string) ([]subtreeRow, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, path, type, props FROM nodes
		WHERE workspace_id = ? AND (path = ? OR path GLOB ?)
		ORDER BY id ASC
	`, workspaceID, root, jcrpath.DescendantGlob(root))
	if err != nil {
		return nil, fmt.Errorf("read subtree %s: %w", root, err)
	}
	defer rows.Close()

	out := make([]subtreeRow, 0)
	for rows.Next() {
		var r subtreeRow
		if err := rows.Scan(&r.id, &r.path, &r.primaryType, &r.payload); err != nil {
			return nil, fmt.Errorf("read subtree %s: scan: %w", root, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read subtree %s: %w", root, err)
	}
	return out, nil
}

// DeleteAt removes the item at path.
//
// When path is a node, the node and its subtree are deleted. A strong
// reference into the subtree fails with REFERENTIAL_INTEGRITY; any other
// failure of the delete transaction is logged and reported as (false, nil).
//
// When path is not a node it names a property of its parent node, which is
// removed together with its binary values and reference edges. Every
// failure in this mode is returned; a missing parent is NOT_FOUND.
func (s *Session) DeleteAt(ctx context.Context, path string) (bool, error) {
	path, err := jcrpath.Normalize(path)
	if err != nil {
		return false, fmt.Errorf("delete: %w", err)
	}
	if path == jcrpath.Root {
		return false, ir.NewFormatError(path, "the root node cannot be deleted")
	}

	_, isNode, err := existsTx(ctx, s.store.db, s.workspaceID, path)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", path, err)
	}
	if !isNode {
		if err := s.removeProperty(ctx, jcrpath.Parent(path), jcrpath.Name(path)); err != nil {
			return false, fmt.Errorf("delete property %s: %w", path, err)
		}
		return true, nil
	}

	err = s.store.withTx(ctx, func(tx *sql.Tx) error {
		if err := refindex.AssertDeletable(ctx, tx, s.workspaceID, path); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			DELETE FROM nodes
			WHERE workspace_id = ? AND (path = ? OR path GLOB ?)
		`, s.workspaceID, path, jcrpath.DescendantGlob(path))
		return err
	})
	if ir.IsReferentialIntegrity(err) {
		return false, fmt.Errorf("delete node %s: %w", path, err)
	}
	if err != nil {
		slog.Warn("delete node failed", "workspace", s.workspace, "path", path, "error", err)
		return false, nil
	}

	for p := range s.identifiers {
		if jcrpath.InSubtree(p, path) {
			delete(s.identifiers, p)
		}
	}
	slog.Debug("node deleted", "workspace", s.workspace, "path", path)
	return true, nil
}

func (s *Session) removeProperty(ctx context.Context, nodePath, name string) error {
	return s.store.withTx(ctx, func(tx *sql.Tx) error {
		var (
			id      int64
			payload []byte
		)
		err := tx.QueryRowContext(ctx, `
			SELECT id, props FROM nodes WHERE workspace_id = ? AND path = ?
		`, s.workspaceID, nodePath).Scan(&id, &payload)
		if errors.Is(err, sql.ErrNoRows) {
			return ir.NewNotFoundError(jcrpath.Join(nodePath, name), "item does not exist")
		}
		if err != nil {
			return err
		}

		props, err := codec.Decode(payload, nil)
		if err != nil {
			return err
		}
		idx := slices.IndexFunc(props, func(p ir.Property) bool { return p.Name == name })
		if idx < 0 {
			return ir.NewNotFoundError(jcrpath.Join(nodePath, name), "item does not exist")
		}
		removed := props[idx]
		props = slices.Delete(props, idx, idx+1)

		enc, err := codec.Encode(props)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE nodes SET props = ? WHERE id = ?`, enc.Payload, id); err != nil {
			return fmt.Errorf("update: %w", err)
		}
		if removed.Type == ir.TypeBinary {
			if err := binstore.Replace(ctx, tx, s.workspaceID, id, name, nil); err != nil {
				return err
			}
		}
		return refindex.Rebuild(ctx, tx, s.resolverTx(tx), refindex.Source{ID: id, Path: nodePath}, props)
	})
}

// MoveNode is not supported by this backend.
func (s *Session) MoveNode(ctx context.Context, src, dst string) error {
	return ir.NewNotImplementedError("move node")
}

// DeleteProperty is not supported as a separate operation; DeleteAt removes
// properties.
func (s *Session) DeleteProperty(ctx context.Context, path string) error {
	return ir.NewNotImplementedError("delete property")
}

// CloneFrom is not supported by this backend.
func (s *Session) CloneFrom(ctx context.Context, srcWorkspace, src, dst string, removeExisting bool) error {
	return ir.NewNotImplementedError("clone from workspace")
}
