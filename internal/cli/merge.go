package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMergeCmd() *cobra.Command {
	var loseNoData bool
	cmd := &cobra.Command{
		Use:   "merge <target> <source>",
		Short: "Merge source into target and delete source",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), current)
			if err != nil {
				return err
			}
			defer s.close()

			target, err := s.resolve(args[0])
			if err != nil {
				return err
			}
			source, err := s.resolve(args[1])
			if err != nil {
				return err
			}
			if err := s.mutate("merge", func() error {
				return s.store.Merge(target, source, loseNoData)
			}); err != nil {
				return err
			}
			if flags.jsonMode {
				return printJSON(cmd, map[string]any{"target": target.ID(), "merged": !source.IsLive()})
			}
			if source.IsLive() {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing merged")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "merged %s into %s\n", args[1], args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&loseNoData, "lose-no-data", false, "join differing text values and merge owned objects recursively")
	return cmd
}
