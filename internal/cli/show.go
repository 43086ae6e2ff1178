package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/thicket/internal/graph"
	"github.com/mesh-intelligence/thicket/pkg/types"
)

type objectView struct {
	ID          types.ID          `json:"id"`
	Class       types.ClassID     `json:"class"`
	Owner       types.ID          `json:"owner,omitempty"`
	OwningField string            `json:"owning_field,omitempty"`
	Ordinal     *int              `json:"ordinal,omitempty"`
	Fields      map[string]string `json:"fields"`
	Custom      map[string]string `json:"custom,omitempty"`
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Display an object with its owner and non-default fields",
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
			v, err := s.view(o)
			if err != nil {
				return err
			}
			if flags.jsonMode {
				return printJSON(cmd, v)
			}
			printView(cmd, v)
			return nil
		},
	}
}

// view collects the displayable state of o.
func (s *session) view(o *graph.Object) (objectView, error) {
	v := objectView{
		ID:     o.ID(),
		Class:  o.Class(),
		Owner:  o.OwnerID(),
		Fields: map[string]string{},
	}
	if v.Owner != "" {
		f, err := o.OwningField()
		if err != nil {
			return v, err
		}
		v.OwningField = s.fieldName(f)
		ord, err := o.Ordinal()
		if err != nil {
			return v, err
		}
		if ord != types.NoOrdinal {
			v.Ordinal = &ord
		}
	}

	for _, info := range s.reg.Table(o.Class()) {
		val, err := o.Value(info.ID)
		if err != nil {
			return v, err
		}
		text, err := formatValue(info.Kind, val)
		if err != nil {
			return v, err
		}
		if text == "" {
			continue
		}
		if info.Custom {
			if v.Custom == nil {
				v.Custom = map[string]string{}
			}
			v.Custom[info.Name] = text
			continue
		}
		v.Fields[info.Name] = text
	}
	return v, nil
}

func printView(cmd *cobra.Command, v objectView) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:     %s\n", v.ID)
	fmt.Fprintf(out, "Class:  %s\n", v.Class)
	if v.Owner != "" {
		owner := fmt.Sprintf("%s.%s", v.Owner, v.OwningField)
		if v.Ordinal != nil {
			owner += fmt.Sprintf("[%d]", *v.Ordinal)
		}
		fmt.Fprintf(out, "Owner:  %s\n", owner)
	}
	printFields(cmd, "Fields", v.Fields)
	printFields(cmd, "Custom", v.Custom)
}

func printFields(cmd *cobra.Command, title string, fields map[string]string) {
	if len(fields) == 0 {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n%s:\n", title)
	for _, name := range sortedKeys(fields) {
		fmt.Fprintf(out, "  %-16s %s\n", name, fields[name])
	}
}
