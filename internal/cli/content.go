package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/damz/jackalope/internal/fixture"
)

// NewImportCommand creates the import command.
func NewImportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <fixture.yaml>",
		Short: "Write the nodes of a YAML fixture",
		Long: `Write the nodes of a YAML fixture into the workspace, in file order.

Every node is validated against its node types before it is stored.
Import stops at the first failing node; nodes written before it are kept.`,
		Example: `  jackalope import ./fixtures/docs.yaml --db ./repo.db
  jackalope import ./fixtures/docs.yaml --db ./repo.db --workspace staging`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			f, err := fixture.Load(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load fixture", err)
			}

			st, sess, err := opts.openSession(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			n, err := fixture.Apply(ctx, sess, f)
			if err != nil {
				return failure(fmt.Sprintf("import failed after %d nodes", n), err)
			}
			return opts.formatter(cmd).Success(message{
				Text:   fmt.Sprintf("Imported %d nodes into workspace %s", n, sess.Workspace()),
				Fields: map[string]string{"workspace": sess.Workspace(), "nodes": fmt.Sprint(n)},
			})
		},
	}
}

// NewExportCommand creates the export command.
func NewExportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "export <path>",
		Short:         "Print a subtree as a YAML fixture",
		Example:       `  jackalope export /docs --db ./repo.db > docs.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			st, sess, err := opts.openSession(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			f, err := fixture.Export(ctx, sess, args[0])
			if err != nil {
				return failure("failed to export subtree", err)
			}
			if opts.Format == "json" {
				return opts.formatter(cmd).Success(f)
			}
			return f.Encode(cmd.OutOrStdout())
		},
	}
}

// NewGetCommand creates the get command.
func NewGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <path>",
		Short:         "Show a node with its properties and children",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			st, sess, err := opts.openSession(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			n, err := sess.GetNode(ctx, args[0])
			if err != nil {
				return failure("failed to read node", err)
			}
			return opts.formatter(cmd).Success(newNodeView(n))
		},
	}
}

// CopyOptions holds flags for the copy command.
type CopyOptions struct {
	*RootOptions
	From string
}

// NewCopyCommand creates the copy command.
func NewCopyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CopyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "copy <src> <dst>",
		Short: "Copy a subtree",
		Long: `Copy the node at <src> and all its descendants to <dst>.

The copies get fresh identifiers. Reference values are copied unchanged.
With --from the source is read from another workspace.`,
		Example: `  jackalope copy /docs /archive/docs --db ./repo.db
  jackalope copy /docs /docs --from staging --db ./repo.db`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			st, sess, err := opts.openSession(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := sess.CopySubtree(ctx, args[0], args[1], opts.From); err != nil {
				return failure("failed to copy subtree", err)
			}
			return opts.formatter(cmd).Success(message{
				Text:   fmt.Sprintf("Copied %s to %s", args[0], args[1]),
				Fields: map[string]string{"src": args[0], "dst": args[1]},
			})
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "source workspace (default: the current workspace)")

	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <path>",
		Short: "Delete a node subtree or a property",
		Long: `Delete the node at <path> with all its descendants. When <path> is not
a node it names a property of its parent node, which is removed.

A node cannot be deleted while a strong reference from outside its
subtree points into it.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			st, sess, err := opts.openSession(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			ok, err := sess.DeleteAt(ctx, args[0])
			if err != nil {
				return failure("failed to delete", err)
			}
			if !ok {
				return NewExitError(ExitFailure, fmt.Sprintf("failed to delete %s", args[0]))
			}
			return opts.formatter(cmd).Success(message{
				Text:   fmt.Sprintf("Deleted %s", args[0]),
				Fields: map[string]string{"path": args[0]},
			})
		},
	}
}

// RefsOptions holds flags for the refs command.
type RefsOptions struct {
	*RootOptions
	Weak bool
	Name string
}

// NewRefsCommand creates the refs command.
func NewRefsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RefsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "refs <path>",
		Short:         "List the properties that reference a node",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			st, sess, err := opts.openSession(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			lookup := sess.References
			if opts.Weak {
				lookup = sess.WeakReferences
			}
			paths, err := lookup(ctx, args[0], opts.Name)
			if err != nil {
				return failure("failed to list references", err)
			}
			return opts.formatter(cmd).Success(lines(paths))
		},
	}

	cmd.Flags().BoolVar(&opts.Weak, "weak", false, "list weak references instead of strong ones")
	cmd.Flags().StringVar(&opts.Name, "name", "", "only references held by properties with this name")

	return cmd
}
