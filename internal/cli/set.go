package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/thicket/internal/graph"
	"github.com/mesh-intelligence/thicket/pkg/types"
)

// vectorOp selects what set does to a vector field.
type vectorOp struct {
	remove bool
	index  int
}

func newSetCmd() *cobra.Command {
	var op vectorOp
	cmd := &cobra.Command{
		Use:   "set <id> <field> <value>",
		Short: "Set a field of an object",
		Long: "Set a value field, or point an atomic object field at another object\n" +
			"(an empty value clears it). For vector fields the value is an object id\n" +
			"that is appended, inserted at --index, or removed with --remove.",
		Args: cobra.ExactArgs(3),
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
			info, err := s.field(o, args[1])
			if err != nil {
				return err
			}
			return s.mutate("set "+args[1], func() error {
				return s.apply(o, info, args[2], op)
			})
		},
	}
	cmd.Flags().BoolVar(&op.remove, "remove", false, "remove the object from a vector field")
	cmd.Flags().IntVar(&op.index, "index", types.NoOrdinal, "insert position in a vector field (default: append)")
	return cmd
}

// apply writes text into field info of o.
func (s *session) apply(o *graph.Object, info types.FieldInfo, text string, op vectorOp) error {
	switch {
	case info.Kind.IsValue():
		v, err := parseValue(info.Kind, text)
		if err != nil {
			return fmt.Errorf("%s: %w", info.Name, err)
		}
		return o.SetValue(info.ID, v)
	case info.Kind.IsAtomic():
		var target *graph.Object
		if text != "" {
			t, err := s.resolve(text)
			if err != nil {
				return err
			}
			target = t
		}
		return o.SetAtomic(info.ID, target)
	}

	target, err := s.resolve(text)
	if err != nil {
		return err
	}
	switch {
	case op.remove:
		return o.Remove(info.ID, target)
	case op.index >= 0:
		return o.Insert(info.ID, op.index, target)
	default:
		return o.Append(info.ID, target)
	}
}

// parseAssignment splits "name=value".
func parseAssignment(s string) (string, string, error) {
	name, value, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return "", "", fmt.Errorf("%w: expected name=value, got %q", errUsage, s)
	}
	return name, value, nil
}
