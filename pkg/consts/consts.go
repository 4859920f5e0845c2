package consts

import (
	"os"
	"time"
)

const (
	// ConfigFile is the project configuration file sqlrun looks for in the
	// working directory.
	ConfigFile = "sqlrun.yaml"

	// DefaultScriptsDir is the directory scripts are loaded from when the
	// config file doesn't specify one.
	DefaultScriptsDir = "sql"

	// DefaultFilePattern matches the files that should be executed.
	DefaultFilePattern = `\.sql$`

	// DefaultIgnorePattern matches files that are listed but never executed.
	DefaultIgnorePattern = `^_ignored|README`

	// DefaultWatchDebounce is how long the watcher waits after the last file
	// change before triggering a run.
	DefaultWatchDebounce = 500 * time.Millisecond

	// ModeDir is the standard file mode for creating directories
	ModeDir = os.FileMode(0o755)

	// ModeFile is the standard file mode for creating files
	ModeFile = os.FileMode(0o644)
)
