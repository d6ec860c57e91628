// Package querysql compiles structured queries to parameterized SQLite SQL
// over the nodes table. Property constraints are evaluated against the JSON
// payload with the JSON1 table-valued functions.
package querysql

import (
	"fmt"
	"strings"

	"github.com/damz/jackalope/internal/ir"
	"github.com/damz/jackalope/internal/jcrpath"
	"github.com/damz/jackalope/internal/queryir"
)

// BaseNodeType selects nodes of every type.
const BaseNodeType = "nt:base"

const (
	pathProperty        = "jcr:path"
	primaryTypeProperty = "jcr:primaryType"

	// Payloads are stored as BLOBs, which JSON1 would read as JSONB.
	propertyValues = `EXISTS (SELECT 1 FROM json_each(CAST(n.props AS TEXT), '$.properties') p, ` +
		`json_each(p.value, '$.values') v WHERE json_extract(p.value, '$.name') = ? AND `
	propertyExists = `EXISTS (SELECT 1 FROM json_each(CAST(n.props AS TEXT), '$.properties') p ` +
		`WHERE json_extract(p.value, '$.name') = ?)`
	firstValue = `(SELECT json_extract(p.value, '$.values[0]') FROM json_each(CAST(n.props AS TEXT), '$.properties') p ` +
		`WHERE json_extract(p.value, '$.name') = ?)`
)

// Walker compiles queryir queries for the nodes table.
//
// The generated SQL selects path, type and props. Its first placeholder is
// the workspace id, which the caller binds ahead of the returned params.
// Every query ends with ORDER BY including the node path, so results are
// deterministic.
type Walker struct{}

// NewWalker creates a Walker.
func NewWalker() *Walker {
	return &Walker{}
}

// Compile converts q to SQL. namespaces maps prefixes to URIs and is used
// for node name constraints. Returns (sql, params, error); errors are
// INVALID_QUERY.
func (w *Walker) Compile(q queryir.Query, namespaces map[string]string) (string, []any, error) {
	if q.Source.NodeType == "" {
		return "", nil, ir.NewInvalidQueryError("source node type is required")
	}

	c := &compilation{namespaces: namespaces}
	var sb strings.Builder
	sb.WriteString("SELECT n.path, n.type, n.props FROM nodes n WHERE n.workspace_id = ?")

	if q.Source.NodeType != BaseNodeType {
		sb.WriteString(" AND n.type = ?")
		c.params = append(c.params, q.Source.NodeType)
	}

	if q.Constraint != nil {
		where, err := c.constraint(q.Constraint)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(" AND ")
		sb.WriteString(where)
	}

	sb.WriteString(" ORDER BY ")
	for _, o := range q.Orderings {
		sb.WriteString(c.orderKey(o.Property))
		if o.Descending {
			sb.WriteString(" DESC, ")
		} else {
			sb.WriteString(" ASC, ")
		}
	}
	sb.WriteString("n.path COLLATE BINARY ASC")

	switch {
	case q.Limit > 0 && q.Offset > 0:
		sb.WriteString(" LIMIT ? OFFSET ?")
		c.params = append(c.params, q.Limit, q.Offset)
	case q.Limit > 0:
		sb.WriteString(" LIMIT ?")
		c.params = append(c.params, q.Limit)
	case q.Offset > 0:
		sb.WriteString(" LIMIT -1 OFFSET ?")
		c.params = append(c.params, q.Offset)
	}

	return sb.String(), c.params, nil
}

// compilation collects params in placeholder order.
type compilation struct {
	namespaces map[string]string
	params     []any
}

func (c *compilation) constraint(con queryir.Constraint) (string, error) {
	switch v := con.(type) {
	case queryir.Comparison:
		return c.comparison(v)
	case *queryir.Comparison:
		return c.comparison(*v)
	case queryir.PropertyExistence:
		return c.existence(v)
	case *queryir.PropertyExistence:
		return c.existence(*v)
	case queryir.And:
		return c.junction(v.Constraints, " AND ", "1 = 1")
	case *queryir.And:
		return c.junction(v.Constraints, " AND ", "1 = 1")
	case queryir.Or:
		return c.junction(v.Constraints, " OR ", "1 = 0")
	case *queryir.Or:
		return c.junction(v.Constraints, " OR ", "1 = 0")
	case queryir.Not:
		return c.not(v)
	case *queryir.Not:
		return c.not(*v)
	case queryir.ChildNode:
		return c.pathMatch("n.parent = ?", v.Path, false)
	case *queryir.ChildNode:
		return c.pathMatch("n.parent = ?", v.Path, false)
	case queryir.DescendantNode:
		return c.pathMatch("n.path GLOB ?", v.Path, true)
	case *queryir.DescendantNode:
		return c.pathMatch("n.path GLOB ?", v.Path, true)
	case queryir.SameNode:
		return c.pathMatch("n.path = ?", v.Path, false)
	case *queryir.SameNode:
		return c.pathMatch("n.path = ?", v.Path, false)
	case queryir.NodeName:
		return c.nodeName(v)
	case *queryir.NodeName:
		return c.nodeName(*v)
	default:
		return "", ir.NewInvalidQueryError(fmt.Sprintf("unsupported constraint type: %T", con))
	}
}

func (c *compilation) comparison(cmp queryir.Comparison) (string, error) {
	if !cmp.Operator.Valid() {
		return "", ir.NewInvalidQueryError(fmt.Sprintf("unknown operator %q", cmp.Operator))
	}
	param, numeric, err := valueParam(cmp.Value)
	if err != nil {
		return "", err
	}

	// The primary type lives in its own column.
	if cmp.Property == primaryTypeProperty {
		c.params = append(c.params, param)
		return fmt.Sprintf("n.type %s ?", cmp.Operator), nil
	}

	operand := "v.value"
	if numeric {
		operand = "CAST(v.value AS REAL)"
	}
	c.params = append(c.params, cmp.Property, param)
	return fmt.Sprintf("%s%s %s ?)", propertyValues, operand, cmp.Operator), nil
}

func (c *compilation) existence(e queryir.PropertyExistence) (string, error) {
	if e.Property == "" {
		return "", ir.NewInvalidQueryError("property existence: name is required")
	}
	c.params = append(c.params, e.Property)
	return propertyExists, nil
}

func (c *compilation) junction(cs []queryir.Constraint, sep, empty string) (string, error) {
	if len(cs) == 0 {
		return empty, nil
	}
	parts := make([]string, 0, len(cs))
	for _, con := range cs {
		part, err := c.constraint(con)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}
	return "(" + strings.Join(parts, sep) + ")", nil
}

func (c *compilation) not(n queryir.Not) (string, error) {
	inner, err := c.constraint(n.Constraint)
	if err != nil {
		return "", err
	}
	return "NOT (" + inner + ")", nil
}

func (c *compilation) pathMatch(expr, path string, descendants bool) (string, error) {
	normalized, err := jcrpath.Normalize(path)
	if err != nil {
		return "", ir.NewInvalidQueryError(fmt.Sprintf("invalid path %q", path))
	}
	if descendants {
		c.params = append(c.params, jcrpath.DescendantGlob(normalized))
	} else {
		c.params = append(c.params, normalized)
	}
	return expr, nil
}

func (c *compilation) nodeName(n queryir.NodeName) (string, error) {
	prefix, local := jcrpath.SplitName(n.Name)
	uri, ok := c.namespaces[prefix]
	if !ok {
		return "", ir.NewInvalidQueryError(fmt.Sprintf("node name %s: unknown namespace prefix %q", n.Name, prefix))
	}
	c.params = append(c.params, uri, local)
	return "(n.namespace = ? AND n.local_name = ?)", nil
}

func (c *compilation) orderKey(property string) string {
	switch property {
	case pathProperty:
		return "n.path"
	case primaryTypeProperty:
		return "n.type"
	}
	c.params = append(c.params, property)
	return firstValue
}

// valueParam converts a comparison operand to its SQL parameter, matching
// the payload encoding. numeric reports that the stored text must be cast
// before comparing.
func valueParam(v ir.Value) (param any, numeric bool, err error) {
	switch val := v.(type) {
	case ir.StringValue:
		return string(val), false, nil
	case ir.LongValue:
		return int64(val), false, nil
	case ir.DoubleValue:
		return float64(val), true, nil
	case ir.BooleanValue:
		if val {
			return "1", false, nil
		}
		return "0", false, nil
	case ir.DateValue:
		return val.String(), false, nil
	case ir.DecimalValue:
		if val.Decimal == nil {
			return float64(0), true, nil
		}
		f, err := val.Decimal.Float64()
		if err != nil {
			return nil, false, ir.NewInvalidQueryError(fmt.Sprintf("decimal operand %s: %v", val, err))
		}
		return f, true, nil
	case nil:
		return nil, false, ir.NewInvalidQueryError("comparison value is required")
	default:
		return nil, false, ir.NewInvalidQueryError(fmt.Sprintf("unsupported comparison value type: %T", v))
	}
}
