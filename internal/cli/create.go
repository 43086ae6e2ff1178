package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/thicket/internal/graph"
	"github.com/mesh-intelligence/thicket/pkg/types"
)

type createOptions struct {
	owner  string
	field  string
	index  int
	assign []string
}

func newCreateCmd() *cobra.Command {
	var opts createOptions
	cmd := &cobra.Command{
		Use:   "create <class>",
		Short: "Create an object, optionally inside an owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(cmd, types.ClassID(args[0]), opts)
		},
	}
	cmd.Flags().StringVar(&opts.owner, "owner", "", "id of the owning object")
	cmd.Flags().StringVar(&opts.field, "field", "", "owning field of --owner")
	cmd.Flags().IntVar(&opts.index, "index", types.NoOrdinal, "position in an owning sequence (default: append)")
	cmd.Flags().StringArrayVar(&opts.assign, "set", nil, "field assignment name=value (repeatable)")
	return cmd
}

func runCreate(cmd *cobra.Command, class types.ClassID, opts createOptions) error {
	if (opts.owner == "") != (opts.field == "") {
		return fmt.Errorf("%w: --owner and --field go together", errUsage)
	}
	s, err := openSession(cmd.Context(), current)
	if err != nil {
		return err
	}
	defer s.close()

	var created *graph.Object
	err = s.mutate("create "+string(class), func() error {
		if opts.owner != "" {
			owner, err := s.resolve(opts.owner)
			if err != nil {
				return err
			}
			info, err := s.field(owner, opts.field)
			if err != nil {
				return err
			}
			created, err = s.store.CreateOwned(class, owner, info.ID, opts.index)
			if err != nil {
				return err
			}
		} else {
			created, err = s.store.Create(class)
			if err != nil {
				return err
			}
		}
		for _, a := range opts.assign {
			name, value, err := parseAssignment(a)
			if err != nil {
				return err
			}
			info, err := s.field(created, name)
			if err != nil {
				return err
			}
			if err := s.apply(created, info, value, vectorOp{index: types.NoOrdinal}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if flags.jsonMode {
		return printJSON(cmd, map[string]any{"id": created.ID(), "class": created.Class()})
	}
	fmt.Fprintln(cmd.OutOrStdout(), created.ID())
	return nil
}
