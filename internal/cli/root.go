// Package cli implements the thicket command-line interface: a cobra
// command tree over a persisted object graph.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/thicket/internal/paths"
	"github.com/mesh-intelligence/thicket/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	backend   string
	jsonMode  bool
}

var flags rootFlags

// env is the resolved environment of one invocation, filled in by the
// root command's PersistentPreRunE.
type env struct {
	configDir string
	config    types.Config
	logger    *slog.Logger
}

var current env

// NewRootCmd creates the top-level "thicket" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "thicket",
		Short: "An in-memory object graph with ownership and references",
		Long: "Thicket manages a graph of typed objects: owning containment trees,\n" +
			"cross references with cascading cleanup, custom fields, and merges,\n" +
			"persisted to SQLite or BadgerDB.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: prepare,
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory (default: config data_dir or platform data dir)")
	root.PersistentFlags().StringVar(&flags.backend, "backend", "", "storage backend: sqlite or badger (default: config backend)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(),
		newSchemaCmd(),
		newCreateCmd(),
		newSetCmd(),
		newShowCmd(),
		newRefsCmd(),
		newDeleteCmd(),
		newMergeCmd(),
	)
	return root
}

// prepare resolves directories, loads config.yaml, and builds the logger.
func prepare(cmd *cobra.Command, _ []string) error {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	if flags.backend != "" {
		cfg.Backend = flags.backend
	}
	dataDir, err := paths.ResolveDataDir(flags.dataDir, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}
	cfg.DataDir = dataDir
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	current = env{
		configDir: configDir,
		config:    cfg,
		logger:    newLogger(cmd.ErrOrStderr(), cfg.LogLevel),
	}
	return nil
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "thicket:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// userErrors are failures caused by the request rather than the system.
var userErrors = []error{
	types.ErrNotFound,
	types.ErrInvalidField,
	types.ErrTypeMismatch,
	types.ErrUnknownClass,
	types.ErrReferenceRejected,
	types.ErrInvalidOwnership,
	types.ErrDeletedObject,
	types.ErrClassMismatch,
	types.ErrBackendEmpty,
	types.ErrBackendUnknown,
	types.ErrLogLevelUnknown,
	errUsage,
	errReferenced,
}

func exitCode(err error) int {
	for _, target := range userErrors {
		if errors.Is(err, target) {
			return exitUserError
		}
	}
	return exitSysError
}
