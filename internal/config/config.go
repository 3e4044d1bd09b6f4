// Package config handles loading and validating the optional configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/bral/git-triage/internal/terminal"
)

// ErrConfigNotFound is returned by LoadConfig when the given file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// Repository backends.
const (
	BackendGoGit = "go-git"
	BackendGit   = "git"
)

// Config holds the application configuration settings.
// Tags correspond to the keys in the TOML configuration file.
// The protected branch set is not configurable.
type Config struct {
	Filter    string `toml:"filter"`
	LocalOnly bool   `toml:"local_only"`
	Backend   string `toml:"backend"`
	Color     string `toml:"color"`
	DryRun    bool   `toml:"dry_run"`
}

// DefaultConfig returns a Config struct with default values.
func DefaultConfig() Config {
	return Config{
		Backend: BackendGoGit,
		Color:   string(terminal.ColorAuto),
	}
}

// LoadConfig reads path on top of the defaults. An empty path means no
// config file: nothing is read and the defaults are returned.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, fmt.Errorf("%w: %q", ErrConfigNotFound, path)
		}
		return cfg, fmt.Errorf("error checking config path %q: %w", path, err)
	}

	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("error decoding config file %q: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return cfg, fmt.Errorf("unknown keys in config file %q: %s", path, strings.Join(keys, ", "))
	}

	// Empty values in the file fall back to defaults.
	if cfg.Backend == "" {
		cfg.Backend = BackendGoGit
	}
	if cfg.Color == "" {
		cfg.Color = string(terminal.ColorAuto)
	}
	return cfg, cfg.Validate()
}

// Validate checks enumerated settings.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendGoGit, BackendGit:
	default:
		return fmt.Errorf("invalid backend %q (use %s or %s)", c.Backend, BackendGoGit, BackendGit)
	}
	_, err := terminal.ParseColorMode(c.Color)
	return err
}
