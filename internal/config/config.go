// Package config loads and saves the veiled configuration at
// ~/.config/veiled/config.json. The file uses camelCase keys; missing or
// malformed content falls back to defaults so a bad edit never bricks the
// tool, and the default file is written on first run.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const fileName = "config.json"

// Config is the user configuration. Paths are tilde-expanded by Load.
type Config struct {
	SearchPaths     []string `json:"searchPaths" mapstructure:"searchPaths"`
	ExtraExclusions []string `json:"extraExclusions" mapstructure:"extraExclusions"`
	IgnorePaths     []string `json:"ignorePaths" mapstructure:"ignorePaths"`
	AutoUpdate      bool     `json:"autoUpdate" mapstructure:"autoUpdate"`
}

// Default returns the configuration written on first run.
func Default() *Config {
	return &Config{
		SearchPaths:     []string{"~/Projects"},
		ExtraExclusions: []string{},
		IgnorePaths:     []string{"~/.Trash", "~/Library", "~/Downloads"},
		AutoUpdate:      true,
	}
}

// DefaultPath returns the config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	return filepath.Join(home, ".config", "veiled", fileName), nil
}

// Load reads the config at path, filling defaults for absent keys. A file
// that does not exist is created with defaults. A file that cannot be
// parsed is treated as if it were empty.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := Save(cfg, path); err != nil {
			return nil, err
		}
		expandPaths(cfg)
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	defaults := Default()
	v.SetDefault("searchPaths", defaults.SearchPaths)
	v.SetDefault("extraExclusions", defaults.ExtraExclusions)
	v.SetDefault("ignorePaths", defaults.IgnorePaths)
	v.SetDefault("autoUpdate", defaults.AutoUpdate)

	if err := v.ReadInConfig(); err != nil {
		// Malformed config: keep going on defaults rather than aborting.
		cfg := Default()
		expandPaths(cfg)
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	expandPaths(&cfg)
	return &cfg, nil
}

// Save writes cfg to path with the documented camelCase schema.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ExpandTilde resolves a leading ~ or ~/ against the home directory.
// Anything else is returned unchanged.
func ExpandTilde(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		return filepath.Join(home, rest)
	}
	return path
}

func expandPaths(cfg *Config) {
	for i, p := range cfg.SearchPaths {
		cfg.SearchPaths[i] = ExpandTilde(p)
	}
	for i, p := range cfg.ExtraExclusions {
		cfg.ExtraExclusions[i] = ExpandTilde(p)
	}
	for i, p := range cfg.IgnorePaths {
		cfg.IgnorePaths[i] = ExpandTilde(p)
	}
}
