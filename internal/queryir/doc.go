// Package queryir defines the structured query representation executed by
// the query package: one source node type, an optional constraint tree,
// orderings, requested columns and pagination.
//
// Constraint is a sealed interface using the marker method pattern. Only
// types in this package implement it, so backends can switch over every
// constraint kind:
//
//	switch c := constraint.(type) {
//	case Comparison:
//	    // property value comparison
//	case And:
//	    // conjunction
//	default:
//	    // rejected by Validate
//	}
//
// Both value and pointer forms of each constraint are accepted.
//
// A query compiles to SQL through a walker (see querysql). Validate catches
// structural problems before a walker is involved, so walkers may assume a
// well-formed tree.
package queryir
