// Package nodetype resolves node type definitions: the immutable built-in
// set compiled from builtin.cue, and user definitions persisted in the
// node_types, type_properties and type_children tables.
//
// User definitions are memoized per name, including misses. A miss stays
// cached after the type is registered later; callers that register types
// and resolve them in the same process should resolve only afterwards.
package nodetype

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/sync/singleflight"

	"github.com/damz/jackalope/internal/ir"
)

// DB is the subset of *sql.DB the catalog needs.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Catalog resolves node type definitions by name. It is safe for
// concurrent use.
type Catalog struct {
	db    DB
	cache *typeCache
	group singleflight.Group
}

// NewCatalog returns a catalog backed by db.
func NewCatalog(db DB) *Catalog {
	return &Catalog{db: db, cache: newTypeCache()}
}

// Resolve returns the definitions of the requested types, in request order
// with duplicates removed. Names that match neither a built-in nor a
// persisted type are omitted.
func (c *Catalog) Resolve(ctx context.Context, names ...string) ([]ir.NodeTypeDefinition, error) {
	builtins, _, err := loadBuiltins()
	if err != nil {
		return nil, fmt.Errorf("resolve node types: %w", err)
	}

	defs := make([]ir.NodeTypeDefinition, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		if def, ok := builtins[name]; ok {
			defs = append(defs, def)
			continue
		}
		entry, err := c.lookup(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("resolve node types: %w", err)
		}
		if entry.found {
			defs = append(defs, entry.def)
		}
	}
	return defs, nil
}

// HasNodeType reports whether name resolves to a definition.
func (c *Catalog) HasNodeType(ctx context.Context, name string) (bool, error) {
	defs, err := c.Resolve(ctx, name)
	if err != nil {
		return false, err
	}
	return len(defs) == 1, nil
}

// All returns the built-in definitions followed by every persisted user
// definition, ordered by name. It bypasses the cache.
func (c *Catalog) All(ctx context.Context) ([]ir.NodeTypeDefinition, error) {
	defs, err := Builtins()
	if err != nil {
		return nil, fmt.Errorf("list node types: %w", err)
	}

	rows, err := c.db.QueryContext(ctx, `SELECT name FROM node_types ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list node types: %w", err)
	}
	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("list node types: scan: %w", err)
		}
		names = append(names, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list node types: %w", err)
	}

	for _, name := range names {
		entry, err := c.fetch(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("list node types: %w", err)
		}
		if entry.found {
			defs = append(defs, entry.def)
		}
	}
	return defs, nil
}

// Register persists defs in one transaction. A name that is built in, or
// already persisted while allowUpdate is false, fails with ALREADY_EXISTS.
// With allowUpdate an existing definition is replaced. The resolution cache
// is left untouched.
func (c *Catalog) Register(ctx context.Context, defs []ir.NodeTypeDefinition, allowUpdate bool) error {
	for _, def := range defs {
		if def.Name == "" {
			return ir.NewFormatError("", "node type name is required")
		}
		if IsBuiltin(def.Name) {
			return ir.NewAlreadyExistsError("", fmt.Sprintf("node type %s is built in", def.Name))
		}
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("register node types: begin: %w", err)
	}
	defer tx.Rollback()

	for _, def := range defs {
		if allowUpdate {
			if _, err := tx.ExecContext(ctx, `DELETE FROM node_types WHERE name = ?`, def.Name); err != nil {
				return fmt.Errorf("register node type %s: replace: %w", def.Name, err)
			}
		}
		if err := insertNodeType(ctx, tx, def); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("register node types: commit: %w", err)
	}

	for _, def := range defs {
		slog.Debug("node type registered", "name", def.Name,
			"properties", len(def.PropertyDefinitions), "children", len(def.ChildNodeDefinitions))
	}
	return nil
}

func insertNodeType(ctx context.Context, tx *sql.Tx, def ir.NodeTypeDefinition) error {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO node_types
		(name, supertypes, is_abstract, is_mixin, queryable, orderable_child_nodes, primary_item)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		def.Name,
		strings.Join(def.DeclaredSupertypes, " "),
		def.IsAbstract,
		def.IsMixin,
		def.IsQueryable,
		def.HasOrderableChildNodes,
		def.PrimaryItemName,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ir.NewAlreadyExistsError("", fmt.Sprintf("node type %s already exists", def.Name))
		}
		return fmt.Errorf("register node type %s: insert: %w", def.Name, err)
	}
	typeID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("register node type %s: %w", def.Name, err)
	}

	for _, pd := range def.PropertyDefinitions {
		defaults, err := json.Marshal(nonNil(pd.DefaultValues))
		if err != nil {
			return fmt.Errorf("register node type %s: defaults of %s: %w", def.Name, pd.Name, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO type_properties
			(node_type_id, name, protected, auto_created, mandatory, on_parent_version,
			 multiple, fulltext_searchable, query_orderable, required_type, query_operators, default_value)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			typeID, pd.Name, pd.IsProtected, pd.IsAutoCreated, pd.IsMandatory, int(pd.OnParentVersion),
			pd.IsMultiple, pd.IsFullTextSearch, pd.IsQueryOrderable, int(pd.RequiredType),
			strings.Join(pd.QueryOperators, " "), string(defaults),
		)
		if err != nil {
			return fmt.Errorf("register node type %s: property %s: %w", def.Name, pd.Name, err)
		}
	}

	for _, cd := range def.ChildNodeDefinitions {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO type_children
			(node_type_id, name, protected, auto_created, mandatory, on_parent_version,
			 primary_types, default_type, same_name_siblings)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			typeID, cd.Name, cd.IsProtected, cd.IsAutoCreated, cd.IsMandatory, int(cd.OnParentVersion),
			strings.Join(cd.RequiredPrimaryTypes, " "), cd.DefaultPrimaryType, cd.AllowsSameNameSibs,
		)
		if err != nil {
			return fmt.Errorf("register node type %s: child %s: %w", def.Name, cd.Name, err)
		}
	}
	return nil
}

// lookup returns the cached entry for a user type, fetching it on a miss.
// Concurrent misses for the same name share one fetch.
func (c *Catalog) lookup(ctx context.Context, name string) (cacheEntry, error) {
	if entry, ok := c.cache.get(name); ok {
		return entry, nil
	}

	v, err, _ := c.group.Do(name, func() (any, error) {
		if entry, ok := c.cache.get(name); ok {
			return entry, nil
		}
		entry, err := c.fetch(ctx, name)
		if err != nil {
			return cacheEntry{}, err
		}
		c.cache.put(name, entry)
		return entry, nil
	})
	if err != nil {
		return cacheEntry{}, err
	}
	return v.(cacheEntry), nil
}

// fetch reads one persisted definition with its property and child rows.
func (c *Catalog) fetch(ctx context.Context, name string) (cacheEntry, error) {
	var (
		id         int64
		supertypes string
		def        = ir.NodeTypeDefinition{Name: name}
	)
	err := c.db.QueryRowContext(ctx, `
		SELECT id, supertypes, is_abstract, is_mixin, queryable, orderable_child_nodes, primary_item
		FROM node_types WHERE name = ?
	`, name).Scan(&id, &supertypes, &def.IsAbstract, &def.IsMixin, &def.IsQueryable,
		&def.HasOrderableChildNodes, &def.PrimaryItemName)
	if errors.Is(err, sql.ErrNoRows) {
		return cacheEntry{found: false}, nil
	}
	if err != nil {
		return cacheEntry{}, fmt.Errorf("fetch node type %s: %w", name, err)
	}
	def.DeclaredSupertypes = strings.Fields(supertypes)

	if def.PropertyDefinitions, err = c.fetchProperties(ctx, id); err != nil {
		return cacheEntry{}, fmt.Errorf("fetch node type %s: %w", name, err)
	}
	if def.ChildNodeDefinitions, err = c.fetchChildren(ctx, id); err != nil {
		return cacheEntry{}, fmt.Errorf("fetch node type %s: %w", name, err)
	}
	return cacheEntry{def: def, found: true}, nil
}

func (c *Catalog) fetchProperties(ctx context.Context, typeID int64) ([]ir.PropertyDefinition, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT name, protected, auto_created, mandatory, on_parent_version, multiple,
		       fulltext_searchable, query_orderable, required_type, query_operators, default_value
		FROM type_properties WHERE node_type_id = ? ORDER BY rowid ASC
	`, typeID)
	if err != nil {
		return nil, fmt.Errorf("properties: %w", err)
	}
	defer rows.Close()

	defs := make([]ir.PropertyDefinition, 0)
	for rows.Next() {
		var (
			pd        ir.PropertyDefinition
			opv, rt   int
			operators string
			defaults  string
		)
		if err := rows.Scan(&pd.Name, &pd.IsProtected, &pd.IsAutoCreated, &pd.IsMandatory, &opv,
			&pd.IsMultiple, &pd.IsFullTextSearch, &pd.IsQueryOrderable, &rt, &operators, &defaults); err != nil {
			return nil, fmt.Errorf("properties: scan: %w", err)
		}
		pd.OnParentVersion = ir.OnParentVersion(opv)
		pd.RequiredType = ir.PropertyType(rt)
		pd.QueryOperators = nonNil(strings.Fields(operators))
		pd.DefaultValues = []string{}
		if err := json.Unmarshal([]byte(defaults), &pd.DefaultValues); err != nil {
			return nil, fmt.Errorf("properties: defaults of %s: %w", pd.Name, err)
		}
		defs = append(defs, pd)
	}
	return defs, rows.Err()
}

func (c *Catalog) fetchChildren(ctx context.Context, typeID int64) ([]ir.ChildNodeDefinition, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT name, protected, auto_created, mandatory, on_parent_version,
		       primary_types, default_type, same_name_siblings
		FROM type_children WHERE node_type_id = ? ORDER BY rowid ASC
	`, typeID)
	if err != nil {
		return nil, fmt.Errorf("children: %w", err)
	}
	defer rows.Close()

	defs := make([]ir.ChildNodeDefinition, 0)
	for rows.Next() {
		var (
			cd           ir.ChildNodeDefinition
			opv          int
			primaryTypes string
		)
		if err := rows.Scan(&cd.Name, &cd.IsProtected, &cd.IsAutoCreated, &cd.IsMandatory, &opv,
			&primaryTypes, &cd.DefaultPrimaryType, &cd.AllowsSameNameSibs); err != nil {
			return nil, fmt.Errorf("children: scan: %w", err)
		}
		cd.OnParentVersion = ir.OnParentVersion(opv)
		cd.RequiredPrimaryTypes = nonNil(strings.Fields(primaryTypes))
		defs = append(defs, cd)
	}
	return defs, rows.Err()
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrConstraint && se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
