package config

import (
	"os"

	"go.uber.org/fx"

	"github.com/sqlrun/sqlrun/pkg/consts"
)

var Module = fx.Module("config", fx.Provide(
	// Attempts to load the configuration from sqlrun.yaml if it exists.
	// Returns nil if the file doesn't exist, allowing commands that don't
	// require config (like init, help, version) to function properly.
	func() (*Config, error) {
		if _, err := os.Stat(consts.ConfigFile); os.IsNotExist(err) {
			return nil, nil
		}

		return LoadConfigFile(consts.ConfigFile)
	},
))
