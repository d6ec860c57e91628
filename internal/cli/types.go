package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/damz/jackalope/internal/ir"
	"github.com/damz/jackalope/internal/nodetype"
)

// TypesRegisterOptions holds flags for the types register command.
type TypesRegisterOptions struct {
	*RootOptions
	Update bool
}

// NewTypesCommand creates the types command group.
func NewTypesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "types",
		Short: "Register and inspect node types",
	}
	cmd.AddCommand(newTypesRegisterCommand(rootOpts))
	cmd.AddCommand(newTypesShowCommand(rootOpts))
	return cmd
}

func newTypesRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TypesRegisterOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "register <dir>",
		Short: "Register the node types defined in a directory of CUE files",
		Long: `Register node types from a CUE package.

Every .cue file in the directory must belong to the same package and
declare types under a top-level "nodetypes" struct:

  package types

  nodetypes: "blog:post": {
    supertypes: ["nt:base"]
    properties: "blog:title": {type: "String", mandatory: true}
  }

All types are registered in one transaction.`,
		Example:       `  jackalope types register ./types --db ./repo.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			f := opts.formatter(cmd)

			defs, err := nodetype.LoadDir(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load node types", err)
			}
			f.VerboseLog("Loaded %d node types from %s", len(defs), args[0])

			st, _, err := opts.openSession(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Catalog().Register(ctx, defs, opts.Update); err != nil {
				return failure("failed to register node types", err)
			}

			names := make([]string, 0, len(defs))
			for _, def := range defs {
				names = append(names, def.Name)
			}
			return f.Success(message{
				Text:   fmt.Sprintf("Registered %d node types", len(defs)),
				Fields: map[string]string{"types": strings.Join(names, ",")},
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "replace types that are already registered")

	return cmd
}

func newTypesShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show [name...]",
		Short: "Show node type definitions",
		Long: `Show the named node type definitions, or every registered and
built-in type when no name is given.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			st, _, err := opts.openSession(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			var defs []ir.NodeTypeDefinition
			if len(args) == 0 {
				defs, err = st.Catalog().All(ctx)
			} else {
				defs, err = st.Catalog().Resolve(ctx, args...)
			}
			if err != nil {
				return failure("failed to read node types", err)
			}
			if missing := missingTypes(args, defs); len(missing) > 0 {
				return failure("failed to read node types",
					ir.NewNotFoundError("", "unknown node types: "+strings.Join(missing, ", ")))
			}

			views := make(typesView, 0, len(defs))
			for _, def := range defs {
				views = append(views, newTypeView(def))
			}
			return opts.formatter(cmd).Success(views)
		},
	}
}

func missingTypes(names []string, defs []ir.NodeTypeDefinition) []string {
	found := make(map[string]bool, len(defs))
	for _, def := range defs {
		found[def.Name] = true
	}
	var missing []string
	for _, name := range names {
		if !found[name] {
			missing = append(missing, name)
		}
	}
	return missing
}
