package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewWorkspaceCommand creates the workspace command group.
func NewWorkspaceCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspace",
		Short: "Manage workspaces",
	}
	cmd.AddCommand(newWorkspaceCreateCommand(rootOpts))
	cmd.AddCommand(newWorkspaceListCommand(rootOpts))
	return cmd
}

func newWorkspaceCreateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "create <name>",
		Short:         "Create a workspace with an empty root node",
		Example:       `  jackalope workspace create staging --db ./repo.db`,
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

			if err := sess.Store().CreateWorkspace(ctx, args[0]); err != nil {
				return failure("failed to create workspace", err)
			}
			return opts.formatter(cmd).Success(message{
				Text:   fmt.Sprintf("Created workspace %s", args[0]),
				Fields: map[string]string{"workspace": args[0]},
			})
		},
	}
}

func newWorkspaceListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List workspaces",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			st, sess, err := opts.openSession(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			names, err := sess.Store().WorkspaceNames(ctx)
			if err != nil {
				return failure("failed to list workspaces", err)
			}
			return opts.formatter(cmd).Success(lines(names))
		},
	}
}
