package queryir

import (
	"fmt"

	"github.com/damz/jackalope/internal/ir"
	"github.com/damz/jackalope/internal/jcrpath"
)

// ValidationResult lists the structural problems of a query.
type ValidationResult struct {
	IsValid  bool
	Problems []string
}

// Validate checks that q is well formed: a source type is named,
// pagination is not negative, columns refer to the source selector, and
// every constraint is complete with comparable values and valid paths.
//
// Validate does not check that the node type exists; that needs a catalog.
func Validate(q Query) ValidationResult {
	v := &validator{problems: []string{}}
	v.validateQuery(q)

	return ValidationResult{
		IsValid:  len(v.problems) == 0,
		Problems: v.problems,
	}
}

type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	if q.Source.NodeType == "" {
		v.addProblem("source node type is required")
	}
	if q.Limit < 0 {
		v.addProblem("limit must not be negative, got %d", q.Limit)
	}
	if q.Offset < 0 {
		v.addProblem("offset must not be negative, got %d", q.Offset)
	}

	for i, c := range q.Columns {
		if c.Property == "" {
			v.addProblem("column %d: property is required", i)
		}
		if c.Selector != "" && c.Selector != q.Source.SelectorName() {
			v.addProblem("column %s: unknown selector %s", c.Name(), c.Selector)
		}
	}
	for i, o := range q.Orderings {
		if o.Property == "" {
			v.addProblem("ordering %d: property is required", i)
		}
	}

	if q.Constraint != nil {
		v.validateConstraint(q.Constraint)
	}
}

func (v *validator) validateConstraint(c Constraint) {
	switch con := c.(type) {
	case Comparison:
		v.validateComparison(con)
	case *Comparison:
		v.validateComparison(*con)
	case PropertyExistence:
		v.requireProperty("property existence", con.Property)
	case *PropertyExistence:
		v.requireProperty("property existence", con.Property)
	case And:
		v.validateAll(con.Constraints)
	case *And:
		v.validateAll(con.Constraints)
	case Or:
		v.validateAll(con.Constraints)
	case *Or:
		v.validateAll(con.Constraints)
	case Not:
		v.validateNot(con)
	case *Not:
		v.validateNot(*con)
	case ChildNode:
		v.validatePath("child node", con.Path)
	case *ChildNode:
		v.validatePath("child node", con.Path)
	case DescendantNode:
		v.validatePath("descendant node", con.Path)
	case *DescendantNode:
		v.validatePath("descendant node", con.Path)
	case SameNode:
		v.validatePath("same node", con.Path)
	case *SameNode:
		v.validatePath("same node", con.Path)
	case NodeName:
		v.requireProperty("node name", con.Name)
	case *NodeName:
		v.requireProperty("node name", con.Name)
	default:
		v.addProblem("unsupported constraint type: %T", c)
	}
}

func (v *validator) validateComparison(c Comparison) {
	v.requireProperty("comparison", c.Property)
	if !c.Operator.Valid() {
		v.addProblem("comparison on %s: unknown operator %q", c.Property, c.Operator)
	}

	switch c.Value.(type) {
	case nil:
		v.addProblem("comparison on %s: value is required", c.Property)
	case ir.BinaryValue:
		v.addProblem("comparison on %s: binary values cannot be compared", c.Property)
	case ir.StringValue:
	default:
		if c.Operator == OpLike {
			v.addProblem("comparison on %s: LIKE requires a string operand", c.Property)
		}
	}
}

func (v *validator) validateAll(cs []Constraint) {
	for _, c := range cs {
		if c == nil {
			v.addProblem("nil constraint in conjunction or disjunction")
			continue
		}
		v.validateConstraint(c)
	}
}

func (v *validator) validateNot(n Not) {
	if n.Constraint == nil {
		v.addProblem("not: constraint is required")
		return
	}
	v.validateConstraint(n.Constraint)
}

func (v *validator) requireProperty(kind, name string) {
	if name == "" {
		v.addProblem("%s: name is required", kind)
	}
}

func (v *validator) validatePath(kind, path string) {
	if err := jcrpath.Validate(path); err != nil {
		v.addProblem("%s: invalid path %q", kind, path)
	}
}
