package cli

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/thicket/internal/graph"
)

var errReferenced = errors.New("referenced from outside the deleted objects")

func newDeleteCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete objects and everything they own",
		Long: "Delete objects, cascading to the objects they own. References held by\n" +
			"other objects are cleaned up; without --force the command refuses when\n" +
			"any such reference exists.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), current)
			if err != nil {
				return err
			}
			defer s.close()

			objs := make([]*graph.Object, 0, len(args))
			for _, id := range args {
				o, err := s.resolve(id)
				if err != nil {
					return err
				}
				objs = append(objs, o)
			}
			if !force {
				ok, err := s.store.CanDelete(objs...)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%s: %w (use --force)", strings.Join(args, ", "), errReferenced)
				}
			}
			if err := s.mutate("delete", func() error { return s.store.DeleteAll(objs...) }); err != nil {
				return err
			}
			if !flags.jsonMode {
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d object(s)\n", len(objs))
				return nil
			}
			return printJSON(cmd, map[string]any{"deleted": args})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "delete even when other objects reference the targets")
	return cmd
}

// sortedKeys returns the keys of m in order.
func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
