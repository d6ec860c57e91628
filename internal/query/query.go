// Package query executes structured queries against a workspace: it checks
// the source node type, compiles the query to SQL through a Walker, runs it
// and assembles typed result rows from the stored payloads.
package query

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/damz/jackalope/internal/codec"
	"github.com/damz/jackalope/internal/ir"
	"github.com/damz/jackalope/internal/queryir"
	"github.com/damz/jackalope/internal/querysql"
)

// Backend is the workspace the query runs in. *store.Session satisfies it.
type Backend interface {
	WorkspaceID() int64
	Namespaces(ctx context.Context) (map[string]string, error)
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// TypeChecker reports whether a node type exists. *nodetype.Catalog
// satisfies it.
type TypeChecker interface {
	HasNodeType(ctx context.Context, name string) (bool, error)
}

// Walker compiles a query to SQL selecting path, type and props. The SQL's
// first placeholder is the workspace id, bound ahead of the returned params.
type Walker interface {
	Compile(q queryir.Query, namespaces map[string]string) (string, []any, error)
}

// Option configures an Executor.
type Option func(*Executor)

// WithWalker replaces the default SQLite walker.
func WithWalker(w Walker) Option {
	return func(e *Executor) {
		e.walker = w
	}
}

// Executor runs queries for one workspace.
type Executor struct {
	backend Backend
	types   TypeChecker
	walker  Walker
}

// NewExecutor creates an executor over backend, checking source types
// against types.
func NewExecutor(backend Backend, types TypeChecker, opts ...Option) *Executor {
	e := &Executor{
		backend: backend,
		types:   types,
		walker:  querysql.NewWalker(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Column is one requested property of a result row. Property is nil when
// the node does not have it.
type Column struct {
	Name     string
	Property *ir.Property
}

// Row is one query result.
type Row struct {
	Path        string
	Score       float64
	PrimaryType string
	Columns     []Column
}

// Get returns the column with the given name.
func (r Row) Get(name string) (*ir.Property, bool) {
	for _, c := range r.Columns {
		if c.Name == name {
			return c.Property, c.Property != nil
		}
	}
	return nil, false
}

// columnSpec maps a result column name to the property it reads.
type columnSpec struct {
	name     string
	property string
}

var defaultColumns = []string{"jcr:primaryType", "jcr:createdBy", "jcr:created"}

const primaryTypeProperty = "jcr:primaryType"

// Execute runs q. An unknown source node type or a malformed query fails
// with INVALID_QUERY. Rows follow the walker's order; Score is always 0.
func (e *Executor) Execute(ctx context.Context, q queryir.Query) ([]Row, error) {
	if res := queryir.Validate(q); !res.IsValid {
		return nil, ir.NewInvalidQueryError(strings.Join(res.Problems, "; "))
	}

	ok, err := e.types.HasNodeType(ctx, q.Source.NodeType)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	if !ok {
		msg := "selected node type does not exist: " + q.Source.NodeType
		if q.Source.Name != "" {
			msg += " AS " + q.Source.Name
		}
		return nil, ir.NewInvalidQueryError(msg)
	}

	ns, err := e.backend.Namespaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	query, params, err := e.walker.Compile(q, ns)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}

	records, err := e.fetch(ctx, query, append([]any{e.backend.WorkspaceID()}, params...))
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}

	specs := columnSpecs(q)
	wanted := make(map[string]bool, len(specs))
	for _, s := range specs {
		wanted[s.property] = true
	}
	filter := func(name string) bool { return wanted[name] }

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		props, err := codec.Decode(rec.payload, filter)
		if err != nil {
			return nil, fmt.Errorf("execute query: decode %s: %w", rec.path, err)
		}
		rows = append(rows, assemble(rec, props, specs))
	}

	slog.Debug("query executed", "type", q.Source.NodeType, "rows", len(rows))
	return rows, nil
}

type record struct {
	path        string
	primaryType string
	payload     []byte
}

// fetch materializes the result set before any decoding happens.
func (e *Executor) fetch(ctx context.Context, query string, args []any) ([]record, error) {
	rows, err := e.backend.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]record, 0)
	for rows.Next() {
		var r record
		if err := rows.Scan(&r.path, &r.primaryType, &r.payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// columnSpecs lists the result columns. Without requested columns the
// defaults are qualified by the selector name. Requested columns are
// qualified by their own selector, or by the source alias when they name
// none, and get an unqualified jcr:primaryType appended when not requested
// already.
func columnSpecs(q queryir.Query) []columnSpec {
	if len(q.Columns) == 0 {
		selector := q.Source.SelectorName()
		specs := make([]columnSpec, 0, len(defaultColumns))
		for _, p := range defaultColumns {
			specs = append(specs, columnSpec{name: selector + "." + p, property: p})
		}
		return specs
	}

	specs := make([]columnSpec, 0, len(q.Columns)+1)
	seen := make(map[string]bool, len(q.Columns))
	for _, c := range q.Columns {
		if c.Selector == "" {
			c.Selector = q.Source.Name
		}
		name := c.Name()
		if seen[name] {
			continue
		}
		seen[name] = true
		specs = append(specs, columnSpec{name: name, property: c.Property})
	}
	if !seen[primaryTypeProperty] {
		specs = append(specs, columnSpec{name: primaryTypeProperty, property: primaryTypeProperty})
	}
	return specs
}

func assemble(rec record, props []ir.Property, specs []columnSpec) Row {
	row := Row{
		Path:        rec.path,
		PrimaryType: rec.primaryType,
		Columns:     make([]Column, 0, len(specs)),
	}
	for _, s := range specs {
		col := Column{Name: s.name}
		if p, ok := ir.FindProperty(props, s.property); ok {
			col.Property = &p
		} else if s.property == primaryTypeProperty {
			p := ir.Single(primaryTypeProperty, ir.TypeName, ir.StringValue(rec.primaryType))
			col.Property = &p
		}
		row.Columns = append(row.Columns, col)
	}
	return row
}
