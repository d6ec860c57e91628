package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/damz/jackalope/internal/ir"
)

func TestValidate_WellFormed(t *testing.T) {
	q := Query{
		Source: Selector{NodeType: "test:page", Name: "p"},
		Constraint: And{Constraints: []Constraint{
			Comparison{Property: "title", Operator: OpLike, Value: ir.StringValue("Hel%")},
			&Comparison{Property: "count", Operator: OpGreater, Value: ir.LongValue(3)},
			Or{Constraints: []Constraint{
				DescendantNode{Path: "/content"},
				&SameNode{Path: "/other"},
			}},
			Not{Constraint: PropertyExistence{Property: "hidden"}},
			ChildNode{Path: "/"},
			NodeName{Name: "jcr:content"},
		}},
		Orderings: []Ordering{{Property: "jcr:path"}},
		Columns:   []Column{{Selector: "p", Property: "title"}, {Property: "count"}},
		Limit:     10,
		Offset:    5,
	}

	result := Validate(q)
	assert.True(t, result.IsValid, "problems: %v", result.Problems)
	assert.Empty(t, result.Problems)
}

func TestValidate_Problems(t *testing.T) {
	tests := []struct {
		name    string
		query   Query
		problem string
	}{
		{
			name:    "missing source",
			query:   Query{},
			problem: "source node type is required",
		},
		{
			name:    "negative limit",
			query:   Query{Source: Selector{NodeType: "nt:base"}, Limit: -1},
			problem: "limit must not be negative, got -1",
		},
		{
			name:    "negative offset",
			query:   Query{Source: Selector{NodeType: "nt:base"}, Offset: -2},
			problem: "offset must not be negative, got -2",
		},
		{
			name:    "column on foreign selector",
			query:   Query{Source: Selector{NodeType: "nt:base", Name: "a"}, Columns: []Column{{Selector: "b", Property: "x"}}},
			problem: "column b.x: unknown selector b",
		},
		{
			name:    "empty ordering",
			query:   Query{Source: Selector{NodeType: "nt:base"}, Orderings: []Ordering{{}}},
			problem: "ordering 0: property is required",
		},
		{
			name: "unknown operator",
			query: Query{Source: Selector{NodeType: "nt:base"},
				Constraint: Comparison{Property: "x", Operator: "~", Value: ir.StringValue("a")}},
			problem: `comparison on x: unknown operator "~"`,
		},
		{
			name: "missing value",
			query: Query{Source: Selector{NodeType: "nt:base"},
				Constraint: Comparison{Property: "x", Operator: OpEqual}},
			problem: "comparison on x: value is required",
		},
		{
			name: "binary value",
			query: Query{Source: Selector{NodeType: "nt:base"},
				Constraint: Comparison{Property: "x", Operator: OpEqual, Value: ir.BinaryValue("b")}},
			problem: "comparison on x: binary values cannot be compared",
		},
		{
			name: "like on number",
			query: Query{Source: Selector{NodeType: "nt:base"},
				Constraint: Comparison{Property: "x", Operator: OpLike, Value: ir.LongValue(1)}},
			problem: "comparison on x: LIKE requires a string operand",
		},
		{
			name: "relative descendant path",
			query: Query{Source: Selector{NodeType: "nt:base"},
				Constraint: DescendantNode{Path: "content"}},
			problem: `descendant node: invalid path "content"`,
		},
		{
			name: "empty not",
			query: Query{Source: Selector{NodeType: "nt:base"},
				Constraint: &Not{}},
			problem: "not: constraint is required",
		},
		{
			name: "nil in conjunction",
			query: Query{Source: Selector{NodeType: "nt:base"},
				Constraint: And{Constraints: []Constraint{nil}}},
			problem: "nil constraint in conjunction or disjunction",
		},
		{
			name: "empty node name",
			query: Query{Source: Selector{NodeType: "nt:base"},
				Constraint: NodeName{}},
			problem: "node name: name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.query)
			assert.False(t, result.IsValid)
			require.Len(t, result.Problems, 1, "problems: %v", result.Problems)
			assert.Equal(t, tt.problem, result.Problems[0])
		})
	}
}

func TestValidate_NestedProblemsAccumulate(t *testing.T) {
	q := Query{
		Source: Selector{NodeType: "nt:base"},
		Constraint: Or{Constraints: []Constraint{
			PropertyExistence{},
			Not{Constraint: SameNode{Path: "/a/"}},
		}},
	}

	result := Validate(q)
	assert.False(t, result.IsValid)
	assert.Len(t, result.Problems, 2)
}

func TestSelectorName(t *testing.T) {
	assert.Equal(t, "nt:file", Selector{NodeType: "nt:file"}.SelectorName())
	assert.Equal(t, "f", Selector{NodeType: "nt:file", Name: "f"}.SelectorName())
}

func TestColumnName(t *testing.T) {
	assert.Equal(t, "title", Column{Property: "title"}.Name())
	assert.Equal(t, "p.title", Column{Selector: "p", Property: "title"}.Name())
}

func TestOperatorValid(t *testing.T) {
	for _, op := range []Operator{OpEqual, OpNotEqual, OpLess, OpLessOrEqual, OpGreater, OpGreaterOrEqual, OpLike} {
		assert.True(t, op.Valid(), op)
	}
	assert.False(t, Operator("==").Valid())
}
