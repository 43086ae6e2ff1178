package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/thicket/internal/schema"
	"github.com/mesh-intelligence/thicket/pkg/types"
)

type fieldView struct {
	ID          types.FieldID `json:"id"`
	Name        string        `json:"name"`
	Kind        string        `json:"kind"`
	Signature   types.ClassID `json:"signature,omitempty"`
	Custom      bool          `json:"custom,omitempty"`
	Untouchable bool          `json:"untouchable,omitempty"`
}

type classView struct {
	Name     types.ClassID `json:"name"`
	Base     types.ClassID `json:"base,omitempty"`
	Abstract bool          `json:"abstract,omitempty"`
	Fields   []fieldView   `json:"fields"`
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema [class]",
		Short: "Print the classes and fields of the loaded schema",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSchema,
	}
}

func runSchema(cmd *cobra.Command, args []string) error {
	reg, err := schema.LoadYAML(schemaPath(current))
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	classes := reg.Classes()
	if len(args) == 1 {
		c := types.ClassID(args[0])
		if !reg.HasClass(c) {
			return fmt.Errorf("class %q: %w", c, types.ErrUnknownClass)
		}
		classes = []types.ClassID{c}
	}

	views := make([]classView, 0, len(classes))
	for _, c := range classes {
		base, _ := reg.Base(c)
		v := classView{Name: c, Base: base, Abstract: reg.IsAbstract(c), Fields: []fieldView{}}
		for _, id := range reg.FieldsOf(c, false, types.FilterAll) {
			info, _ := reg.Field(id)
			v.Fields = append(v.Fields, fieldView{
				ID:          info.ID,
				Name:        info.Name,
				Kind:        info.Kind.String(),
				Signature:   info.Signature,
				Custom:      info.Custom,
				Untouchable: info.Untouchable,
			})
		}
		views = append(views, v)
	}

	if flags.jsonMode {
		return printJSON(cmd, views)
	}
	out := cmd.OutOrStdout()
	for _, v := range views {
		header := string(v.Name)
		if v.Base != "" {
			header += " : " + string(v.Base)
		}
		if v.Abstract {
			header += " (abstract)"
		}
		fmt.Fprintln(out, header)
		for _, f := range v.Fields {
			line := fmt.Sprintf("  %-16s %s", f.Name, f.Kind)
			if f.Signature != "" {
				line += " -> " + string(f.Signature)
			}
			if f.Custom {
				line += " [custom]"
			}
			fmt.Fprintln(out, line)
		}
	}
	return nil
}
