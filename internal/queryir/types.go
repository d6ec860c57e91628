package queryir

import "github.com/damz/jackalope/internal/ir"

// Query selects the nodes of one node type.
type Query struct {
	Source Selector

	// Constraint filters the selected nodes. nil selects every node of the
	// source type.
	Constraint Constraint

	Orderings []Ordering

	// Columns are the properties returned per row. Empty requests the
	// default columns.
	Columns []Column

	// Limit caps the number of rows; 0 means no limit.
	Limit  int
	Offset int
}

// Selector names the source node type, optionally under an alias.
type Selector struct {
	NodeType string
	Name     string
}

// SelectorName returns the alias, or the node type when there is none.
func (s Selector) SelectorName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.NodeType
}

// Ordering sorts rows by a property. The pseudo-properties jcr:path and
// jcr:primaryType sort by the node's path and type.
type Ordering struct {
	Property   string
	Descending bool
}

// Column requests a property. A non-empty Selector qualifies the column
// name in result rows as "selector.property".
type Column struct {
	Selector string
	Property string
}

// Name returns the column's name in result rows.
func (c Column) Name() string {
	if c.Selector == "" {
		return c.Property
	}
	return c.Selector + "." + c.Property
}

// Constraint is a filter over the selected nodes.
//
// This is a sealed interface - only types in this package implement it.
type Constraint interface {
	constraintNode()
}

// Operator is a comparison operator.
type Operator string

const (
	OpEqual          Operator = "="
	OpNotEqual       Operator = "<>"
	OpLess           Operator = "<"
	OpLessOrEqual    Operator = "<="
	OpGreater        Operator = ">"
	OpGreaterOrEqual Operator = ">="
	OpLike           Operator = "LIKE"
)

// Valid reports whether o is a known operator.
func (o Operator) Valid() bool {
	switch o {
	case OpEqual, OpNotEqual, OpLess, OpLessOrEqual, OpGreater, OpGreaterOrEqual, OpLike:
		return true
	}
	return false
}

// Comparison matches nodes where any value of Property compares true
// against Value.
//
// Example:
//
//	Comparison{Property: "title", Operator: OpLike, Value: ir.StringValue("Hello%")}
type Comparison struct {
	Property string
	Operator Operator
	Value    ir.Value
}

func (Comparison) constraintNode() {}

// PropertyExistence matches nodes that have Property.
type PropertyExistence struct {
	Property string
}

func (PropertyExistence) constraintNode() {}

// And matches when every constraint matches. Empty matches everything.
type And struct {
	Constraints []Constraint
}

func (And) constraintNode() {}

// Or matches when any constraint matches. Empty matches nothing.
type Or struct {
	Constraints []Constraint
}

func (Or) constraintNode() {}

// Not negates a constraint.
type Not struct {
	Constraint Constraint
}

func (Not) constraintNode() {}

// ChildNode matches the direct children of Path.
type ChildNode struct {
	Path string
}

func (ChildNode) constraintNode() {}

// DescendantNode matches every node strictly below Path.
type DescendantNode struct {
	Path string
}

func (DescendantNode) constraintNode() {}

// SameNode matches the node at Path.
type SameNode struct {
	Path string
}

func (SameNode) constraintNode() {}

// NodeName matches nodes by qualified name ("prefix:local" or "local").
type NodeName struct {
	Name string
}

func (NodeName) constraintNode() {}
