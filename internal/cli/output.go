package cli

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/thicket/internal/graph"
	"github.com/mesh-intelligence/thicket/pkg/types"
)

// printJSON writes v indented to the command's output.
func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

// formatValue renders v the way it is persisted. Defaults render empty.
func formatValue(kind types.FieldKind, v any) (string, error) {
	rec, ok, err := graph.EncodeValue(kind, v)
	if err != nil || !ok {
		return "", err
	}
	return rec.Payload, nil
}

// parseValue reads text as a value of kind. Empty text is the default.
func parseValue(kind types.FieldKind, text string) (any, error) {
	if text == "" {
		return types.DefaultValue(kind), nil
	}
	return graph.DecodeValue(kind, types.FieldRecord{Tag: graph.TagFor(kind), Payload: text})
}
