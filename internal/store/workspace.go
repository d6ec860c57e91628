package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"github.com/damz/jackalope/internal/codec"
	"github.com/damz/jackalope/internal/ir"
	"github.com/damz/jackalope/internal/jcrpath"
)

// DefaultWorkspace is created on first login when it does not exist.
const DefaultWorkspace = "default"

// RootNodeType is the primary type of every workspace root.
const RootNodeType = "nt:unstructured"

// builtinNamespaces are always registered. Rows of the namespaces table are
// added on top.
var builtinNamespaces = map[string]string{
	"":    "",
	"jcr": "http://www.jcp.org/jcr/1.0",
	"nt":  "http://www.jcp.org/jcr/nt/1.0",
	"mix": "http://www.jcp.org/jcr/mix/1.0",
	"xml": "http://www.w3.org/XML/1998/namespace",
	"sv":  "http://www.jcp.org/jcr/sv/1.0",
}

// Session is a workspace-scoped view of the store.
//
// A Session holds a path to identifier cache and is not safe for
// concurrent use. Open one session per goroutine.
type Session struct {
	store       *Store
	workspace   string
	workspaceID int64

	identifiers map[string]string
	namespaces  map[string]string
}

// Workspace returns the name of the session's workspace.
func (s *Session) Workspace() string {
	return s.workspace
}

// WorkspaceID returns the row id of the session's workspace.
func (s *Session) WorkspaceID() int64 {
	return s.workspaceID
}

// Store returns the store the session belongs to.
func (s *Session) Store() *Store {
	return s.store
}

// CreateWorkspace creates a workspace with its root node.
func (s *Store) CreateWorkspace(ctx context.Context, name string) error {
	if name == "" {
		return ir.NewFormatError("", "workspace name is required")
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO workspaces (name) VALUES (?)`, name)
		if err != nil {
			if isUniqueViolation(err) {
				return ir.NewAlreadyExistsError("", fmt.Sprintf("workspace %s already exists", name))
			}
			return classifyDriverError(err)
		}
		wsID, err := res.LastInsertId()
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO nodes (path, parent, local_name, namespace, workspace_id, identifier, type, props)
			VALUES (?, '', '', '', ?, ?, ?, ?)
		`, jcrpath.Root, wsID, s.ids.NewIdentifier(), RootNodeType, codec.EmptyPayload)
		if err != nil {
			return fmt.Errorf("insert root node: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create workspace %s: %w", name, err)
	}

	slog.Info("workspace created", "workspace", name)
	return nil
}

// WorkspaceNames lists workspaces ordered by name.
func (s *Store) WorkspaceNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM workspaces ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", classifyDriverError(err))
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list workspaces: scan: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Login opens a session on workspace. An empty name means DefaultWorkspace,
// which is created on demand. Other missing workspaces are NOT_FOUND.
func (s *Store) Login(ctx context.Context, workspace string) (*Session, error) {
	if workspace == "" {
		workspace = DefaultWorkspace
	}

	id, err := s.workspaceID(ctx, workspace)
	if ir.IsNotFound(err) && workspace == DefaultWorkspace {
		if err := s.CreateWorkspace(ctx, workspace); err != nil && !ir.IsAlreadyExists(err) {
			return nil, fmt.Errorf("login: %w", err)
		}
		id, err = s.workspaceID(ctx, workspace)
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	return &Session{
		store:       s,
		workspace:   workspace,
		workspaceID: id,
		identifiers: make(map[string]string),
	}, nil
}

// workspaceID resolves a workspace name. This is the access boundary where
// driver failures are classified.
func (s *Store) workspaceID(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM workspaces WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ir.NewNotFoundError("", fmt.Sprintf("workspace %s does not exist", name))
	}
	if err != nil {
		return 0, classifyDriverError(err)
	}
	return id, nil
}

// Namespaces returns the prefix to URI map: built-in namespaces plus rows
// of the namespaces table. The result is loaded once per session.
func (s *Session) Namespaces(ctx context.Context) (map[string]string, error) {
	if s.namespaces == nil {
		ns := maps.Clone(builtinNamespaces)

		rows, err := s.store.db.QueryContext(ctx, `SELECT prefix, uri FROM namespaces ORDER BY prefix ASC`)
		if err != nil {
			return nil, fmt.Errorf("load namespaces: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var prefix, uri string
			if err := rows.Scan(&prefix, &uri); err != nil {
				return nil, fmt.Errorf("load namespaces: scan: %w", err)
			}
			ns[prefix] = uri
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("load namespaces: %w", err)
		}
		s.namespaces = ns
	}
	return maps.Clone(s.namespaces), nil
}

// RegisterNamespace maps prefix to uri. Registering the same mapping twice
// is a no-op; remapping an existing prefix is ALREADY_EXISTS.
func (s *Session) RegisterNamespace(ctx context.Context, prefix, uri string) error {
	if prefix == "" || uri == "" {
		return ir.NewFormatError("", "namespace prefix and uri are required")
	}
	ns, err := s.Namespaces(ctx)
	if err != nil {
		return fmt.Errorf("register namespace %s: %w", prefix, err)
	}
	if existing, ok := ns[prefix]; ok {
		if existing == uri {
			return nil
		}
		return ir.NewAlreadyExistsError("", fmt.Sprintf("namespace prefix %s is mapped to %s", prefix, existing))
	}

	if _, err := s.store.db.ExecContext(ctx, `INSERT INTO namespaces (prefix, uri) VALUES (?, ?)`, prefix, uri); err != nil {
		if isUniqueViolation(err) {
			return ir.NewAlreadyExistsError("", fmt.Sprintf("namespace prefix %s already exists", prefix))
		}
		return fmt.Errorf("register namespace %s: %w", prefix, classifyDriverError(err))
	}
	s.namespaces = nil
	slog.Debug("namespace registered", "prefix", prefix, "uri", uri)
	return nil
}

// Query runs a read-only statement on the store's database.
// Callers are responsible for closing the returned rows.
func (s *Session) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.store.db.QueryContext(ctx, query, args...)
}
