package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// starterSchema is written to schema.yaml by init when none exists.
const starterSchema = `# Thicket schema: classes, their fields, and per-installation custom fields.
classes:
  - name: Folder
    fields:
      - {name: title, kind: string}
      - {name: children, kind: owning_sequence, signature: Item}
      - {name: pinned, kind: reference_collection, signature: Item}
  - name: Item
    fields:
      - {name: note, kind: string}
      - {name: count, kind: integer}
      - {name: done, kind: boolean}
      - {name: due, kind: time}
      - {name: related, kind: reference_sequence, signature: Item}
      - {name: parts, kind: owning_collection, signature: Item}
  - name: Task
    base: Item
custom_fields:
  - {class: Item, name: reviewer, kind: reference_atomic, signature: Item}
  - {class: Item, name: estimate, kind: integer}
`

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize thicket configuration and storage",
		Long: "Create the configuration and data directories, write config.yaml and a\n" +
			"starter schema.yaml when missing, then initialize the storage backend.",
		Args: cobra.NoArgs,
		RunE: runInit,
	}
}

func runInit(cmd *cobra.Command, _ []string) error {
	e := current
	if err := os.MkdirAll(e.configDir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	cfg := e.config
	if flags.dataDir == "" {
		// Leave data_dir unset so the platform default keeps applying.
		cfg.DataDir = ""
	}
	if _, err := writeConfigIfMissing(e.configDir, cfg); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	path := schemaPath(e)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte(starterSchema), 0o644); err != nil {
			return fmt.Errorf("write schema: %w", err)
		}
	}

	backend, err := newBackend(e)
	if err != nil {
		return err
	}
	if err := backend.Attach(e.config); err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	if err := backend.Detach(); err != nil {
		return fmt.Errorf("finalize storage: %w", err)
	}

	e.logger.Info("initialized", "config_dir", e.configDir, "data_dir", e.config.DataDir, "backend", e.config.Backend)
	fmt.Fprintln(cmd.OutOrStdout(), "thicket initialized in", e.config.DataDir)
	return nil
}
