package types

import "strings"

// Config holds backend selection and engine parameters read from
// config.yaml.
type Config struct {
	Backend          string `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir          string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	SchemaFile       string `json:"schema_file" yaml:"schema_file" mapstructure:"schema_file"`
	FastOwningLookup bool   `json:"fast_owning_lookup" yaml:"fast_owning_lookup" mapstructure:"fast_owning_lookup"`
	LogLevel         string `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
	BackendBadger: true,
}

var knownLogLevels = map[string]bool{
	"":      true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if !knownLogLevels[strings.ToLower(c.LogLevel)] {
		return ErrLogLevelUnknown
	}
	return nil
}
