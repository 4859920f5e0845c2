// Package config loads the sqlrun.yaml project configuration and resolves
// the effective database URL from flags, environment and file.
package config

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/sqlrun/sqlrun/pkg/consts"
)

type (
	// Confirmation configures the interactive confirmation gate.
	Confirmation struct {
		// Required gates every run on confirmation. Defaults to true; a run
		// against a live database should be deliberate.
		Required *bool `yaml:"required,omitempty"`

		// Phrase the user must type to confirm. When empty, the target
		// database name is used.
		Phrase string `yaml:"phrase,omitempty"`
	}

	// Watch configures watch mode.
	Watch struct {
		// DebounceMS is how long to wait after the last file change before
		// re-running, in milliseconds.
		DebounceMS int `yaml:"debounce_ms,omitempty"`
	}

	// Config represents the project configuration for a scripts directory.
	Config struct {
		// URL is the PostgreSQL connection string. Usually supplied via the
		// DATABASE_URL environment variable instead of being committed here.
		URL string `yaml:"url,omitempty"`

		// Dir is the directory containing the SQL scripts.
		Dir string `yaml:"dir"`

		// FilePattern and IgnorePattern override the default file matching
		// regular expressions.
		FilePattern   string `yaml:"file_pattern,omitempty"`
		IgnorePattern string `yaml:"ignore_pattern,omitempty"`

		// SSLMode overrides the URL's sslmode parameter (e.g. "require",
		// "disable").
		SSLMode string `yaml:"ssl_mode,omitempty"`

		// Confirmation configures the confirmation gate.
		Confirmation Confirmation `yaml:"confirmation,omitempty"`

		// Watch configures watch mode.
		Watch Watch `yaml:"watch,omitempty"`
	}
)

// LoadConfig parses a project configuration from the provided io.Reader.
//
// The function expects YAML-formatted configuration data. Defaults are
// applied after decoding: the scripts directory falls back to "sql" and
// confirmation is required unless explicitly disabled.
//
// Example:
//
//	yamlData := `
//	dir: db/scripts
//	confirmation:
//	  required: true
//	  phrase: production
//	`
//
//	cfg, err := config.LoadConfig(strings.NewReader(yamlData))
//	if err != nil {
//		panic(err)
//	}
func LoadConfig(r io.Reader) (*Config, error) {
	var cfg Config
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if cfg.Dir == "" {
		cfg.Dir = consts.DefaultScriptsDir
	}

	return &cfg, nil
}

// LoadConfigFile loads a project configuration from the specified file path.
// This is a convenience function that opens the file and calls LoadConfig.
func LoadConfigFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open file: %s", path)
	}
	defer func() { _ = f.Close() }()

	return LoadConfig(f)
}

// ConfirmRequired reports whether runs must be confirmed interactively.
// Defaults to true when the config doesn't say.
func (c *Config) ConfirmRequired() bool {
	if c == nil || c.Confirmation.Required == nil {
		return true
	}
	return *c.Confirmation.Required
}

// DebounceInterval returns the watch debounce duration.
func (c *Config) DebounceInterval() time.Duration {
	if c == nil || c.Watch.DebounceMS <= 0 {
		return consts.DefaultWatchDebounce
	}
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}
