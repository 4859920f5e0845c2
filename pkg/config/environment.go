package config

import (
	"os"

	"github.com/joho/godotenv"
)

// envDatabaseURL is the environment variable consulted when no URL is given
// on the command line.
const envDatabaseURL = "DATABASE_URL"

// ResolveDatabaseURL returns the effective connection URL with flag > env >
// config-file precedence. A .env file in the working directory is loaded
// first (best effort; a missing file is not an error), matching how most
// local setups keep DATABASE_URL out of committed configuration.
func ResolveDatabaseURL(cfg *Config, flagURL string) string {
	if flagURL != "" {
		return flagURL
	}

	_ = godotenv.Load()

	if v := os.Getenv(envDatabaseURL); v != "" {
		return v
	}

	if cfg != nil {
		return cfg.URL
	}

	return ""
}
