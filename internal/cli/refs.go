package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/thicket/pkg/types"
)

type refView struct {
	Source types.ID      `json:"source"`
	Class  types.ClassID `json:"class"`
	Field  string        `json:"field"`
}

func newRefsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refs <id>",
		Short: "List the objects that reference an object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), current)
			if err != nil {
				return err
			}
			defer s.close()

			o, err := s.resolve(args[0])
			if err != nil {
				return err
			}
			refs, err := s.store.IncomingRefs(o)
			if err != nil {
				return err
			}

			views := make([]refView, 0, len(refs))
			for _, r := range refs {
				src, err := s.store.Resolve(r.Source)
				if err != nil {
					return err
				}
				views = append(views, refView{Source: r.Source, Class: src.Class(), Field: s.fieldName(r.Field)})
			}
			if flags.jsonMode {
				return printJSON(cmd, views)
			}
			out := cmd.OutOrStdout()
			if len(views) == 0 {
				fmt.Fprintln(out, "no references")
				return nil
			}
			for _, v := range views {
				fmt.Fprintf(out, "%s\t%s.%s\n", v.Source, v.Class, v.Field)
			}
			return nil
		},
	}
}
