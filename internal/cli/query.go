package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/damz/jackalope/internal/ir"
	"github.com/damz/jackalope/internal/query"
	"github.com/damz/jackalope/internal/queryir"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	NodeType string
	Alias    string
	Columns  []string
	Where    []string
	Exists   []string
	Under    string
	ChildOf  string
	Order    []string
	Limit    int
	Offset   int
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Select nodes of a node type",
		Long: `Select the nodes of one node type in the workspace.

Filters are combined with AND:
  --where "prop<op>value"   op is one of = <> < <= > >= ~ (~ is LIKE)
  --exists prop             the node has the property
  --under /path             the node is a descendant of /path
  --child-of /path          the node is a direct child of /path

Rows are ordered by --order (prefix a property with - to sort descending),
then by path. Without --column each row carries jcr:primaryType,
jcr:createdBy and jcr:created.`,
		Example: `  jackalope query --type nt:file --under /docs --db ./repo.db
  jackalope query --type blog:post --alias p --column p.blog:status --where "blog:status=draft"
  jackalope query --type nt:unstructured --where "views>=10" --order -views --limit 5`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.NodeType, "type", "", "node type to select (required)")
	_ = cmd.MarkFlagRequired("type")
	cmd.Flags().StringVar(&opts.Alias, "alias", "", "selector alias")
	cmd.Flags().StringArrayVar(&opts.Columns, "column", nil, "property to return; qualify with the selector as sel.prop")
	cmd.Flags().StringArrayVar(&opts.Where, "where", nil, "property comparison")
	cmd.Flags().StringArrayVar(&opts.Exists, "exists", nil, "require a property")
	cmd.Flags().StringVar(&opts.Under, "under", "", "only descendants of this path")
	cmd.Flags().StringVar(&opts.ChildOf, "child-of", "", "only children of this path")
	cmd.Flags().StringArrayVar(&opts.Order, "order", nil, "order by property (-prop for descending)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of rows (0 for all)")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "rows to skip")

	return cmd
}

func runQuery(opts *QueryOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	q, err := opts.build()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid query", err)
	}

	st, sess, err := opts.openSession(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	rows, err := query.NewExecutor(sess, st.Catalog()).Execute(ctx, q)
	if err != nil {
		return failure("query failed", err)
	}
	opts.formatter(cmd).VerboseLog("%d rows", len(rows))
	return opts.formatter(cmd).Success(newRowsView(rows))
}

// build assembles the structured query from the flags.
func (o *QueryOptions) build() (queryir.Query, error) {
	q := queryir.Query{
		Source: queryir.Selector{NodeType: o.NodeType, Name: o.Alias},
		Limit:  o.Limit,
		Offset: o.Offset,
	}
	selector := q.Source.SelectorName()

	for _, c := range o.Columns {
		if sel, prop, ok := strings.Cut(c, "."); ok && sel == selector {
			q.Columns = append(q.Columns, queryir.Column{Selector: sel, Property: prop})
			continue
		}
		q.Columns = append(q.Columns, queryir.Column{Property: c})
	}

	var constraints []queryir.Constraint
	for _, w := range o.Where {
		c, err := parseComparison(w)
		if err != nil {
			return queryir.Query{}, err
		}
		constraints = append(constraints, c)
	}
	for _, p := range o.Exists {
		constraints = append(constraints, queryir.PropertyExistence{Property: p})
	}
	if o.Under != "" {
		constraints = append(constraints, queryir.DescendantNode{Path: o.Under})
	}
	if o.ChildOf != "" {
		constraints = append(constraints, queryir.ChildNode{Path: o.ChildOf})
	}
	switch len(constraints) {
	case 0:
	case 1:
		q.Constraint = constraints[0]
	default:
		q.Constraint = queryir.And{Constraints: constraints}
	}

	for _, ord := range o.Order {
		prop, desc := strings.CutPrefix(ord, "-")
		q.Orderings = append(q.Orderings, queryir.Ordering{Property: prop, Descending: desc})
	}
	return q, nil
}

// comparisonOperators is ordered so that two-character operators are
// tried before their one-character prefixes.
var comparisonOperators = []struct {
	token string
	op    queryir.Operator
}{
	{"<>", queryir.OpNotEqual},
	{"<=", queryir.OpLessOrEqual},
	{">=", queryir.OpGreaterOrEqual},
	{"=", queryir.OpEqual},
	{"<", queryir.OpLess},
	{">", queryir.OpGreater},
	{"~", queryir.OpLike},
}

// parseComparison parses "prop<op>value". Values that parse as integers or
// floats compare numerically; LIKE always compares text.
func parseComparison(expr string) (queryir.Comparison, error) {
	for _, candidate := range comparisonOperators {
		prop, text, ok := strings.Cut(expr, candidate.token)
		if !ok {
			continue
		}
		if strings.ContainsAny(prop, "<>=~") {
			continue
		}
		prop = strings.TrimSpace(prop)
		if prop == "" {
			return queryir.Comparison{}, fmt.Errorf("where %q: property is required", expr)
		}
		return queryir.Comparison{Property: prop, Operator: candidate.op, Value: comparisonValue(candidate.op, text)}, nil
	}
	return queryir.Comparison{}, fmt.Errorf("where %q: expected prop<op>value", expr)
}

func comparisonValue(op queryir.Operator, text string) ir.Value {
	if op != queryir.OpLike {
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return ir.LongValue(n)
		}
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return ir.DoubleValue(f)
		}
	}
	return ir.StringValue(text)
}
