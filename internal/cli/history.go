package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/damz/jackalope/internal/version"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <path>",
		Short: "List the versions of a version history node",
		Long: `List the versions reachable from the jcr:rootVersion of the history
node at <path>, following jcr:successors references. Versions are
printed root first, each before the versions that follow it.`,
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

			versions, err := version.NewHistory(sess, args[0]).AllVersions(ctx)
			if err != nil {
				return failure("failed to read version history", err)
			}
			paths := make(lines, 0, len(versions))
			for _, v := range versions {
				paths = append(paths, v.Path)
			}
			return opts.formatter(cmd).Success(paths)
		},
	}
}
