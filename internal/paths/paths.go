// Package paths resolves where thicket keeps its configuration and its
// persisted graph.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName is the directory name used under every platform base directory.
const AppName = "thicket"

// Environment variable overrides.
const (
	EnvConfigDir = "THICKET_CONFIG_DIR"
	EnvDataDir   = "THICKET_DATA_DIR"
)

// ConfigFile is the configuration file name inside the config directory.
const ConfigFile = "config.yaml"

// platform holds lookups replaced in tests.
var platform = struct {
	goos          string
	getenv        func(string) string
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	goos:          runtime.GOOS,
	getenv:        os.Getenv,
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// base describes one XDG directory: its variable and the fallback under home.
type base struct {
	xdgVar   string
	fallback []string
}

var (
	configBase = base{xdgVar: "XDG_CONFIG_HOME", fallback: []string{".config"}}
	dataBase   = base{xdgVar: "XDG_DATA_HOME", fallback: []string{".local", "share"}}
)

// platformDir returns AppName under the platform directory for b. Linux
// follows XDG; macOS and Windows use os.UserConfigDir for both kinds.
func platformDir(b base) (string, error) {
	if platform.goos != "linux" {
		dir, err := platform.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
	if xdg := platform.getenv(b.xdgVar); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := platform.homeDir()
	if err != nil {
		return "", err
	}
	parts := append([]string{home}, b.fallback...)
	return filepath.Join(append(parts, AppName)...), nil
}

// DefaultConfigDir returns the platform default configuration directory.
func DefaultConfigDir() (string, error) {
	return platformDir(configBase)
}

// DefaultDataDir returns the platform default data directory.
func DefaultDataDir() (string, error) {
	return platformDir(dataBase)
}

// firstAbs returns the absolute form of the first non-empty candidate.
func firstAbs(candidates ...string) (string, bool, error) {
	for _, c := range candidates {
		if c != "" {
			abs, err := filepath.Abs(c)
			return abs, true, err
		}
	}
	return "", false, nil
}

// ResolveConfigDir applies flag > THICKET_CONFIG_DIR > platform default.
func ResolveConfigDir(flag string) (string, error) {
	if dir, ok, err := firstAbs(flag, platform.getenv(EnvConfigDir)); ok {
		return dir, err
	}
	return DefaultConfigDir()
}

// ResolveDataDir applies flag > data_dir from config.yaml >
// THICKET_DATA_DIR > platform default.
func ResolveDataDir(flag, configValue string) (string, error) {
	if dir, ok, err := firstAbs(flag, configValue, platform.getenv(EnvDataDir)); ok {
		return dir, err
	}
	return DefaultDataDir()
}

// ConfigPath returns the config.yaml path inside dir.
func ConfigPath(dir string) string {
	return filepath.Join(dir, ConfigFile)
}
