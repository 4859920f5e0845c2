package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"

	"github.com/sqlrun/sqlrun/pkg/config"
	"github.com/sqlrun/sqlrun/pkg/consts"
	"github.com/sqlrun/sqlrun/pkg/diagnose"
	"github.com/sqlrun/sqlrun/pkg/executor"
	"github.com/sqlrun/sqlrun/pkg/logger"
	"github.com/sqlrun/sqlrun/pkg/runner"
)

var (
	urlFlag = &cli.StringFlag{
		Name:    "url",
		Aliases: []string{"u"},
		Usage:   "PostgreSQL connection string (overrides DATABASE_URL and sqlrun.yaml)",
		Config: cli.StringConfig{
			TrimSpace: true,
		},
	}

	dirFlag = &cli.StringFlag{
		Name:    "dir",
		Aliases: []string{"d"},
		Usage:   "scripts directory (overrides sqlrun.yaml)",
		Config: cli.StringConfig{
			TrimSpace: true,
		},
	}
)

// terminalConfirmer asks for confirmation on the terminal. A closed or
// non-interactive input stream declines rather than erroring, so piping into
// sqlrun never hangs or accidentally confirms.
type terminalConfirmer struct {
	in  io.Reader
	out io.Writer
}

func (t *terminalConfirmer) Confirm(prompt, phrase string) (bool, error) {
	fmt.Fprintf(t.out, "%s\nType %q to continue: ", prompt, phrase)

	scanner := bufio.NewScanner(t.in)
	if !scanner.Scan() {
		fmt.Fprintln(t.out)
		return false, scanner.Err()
	}

	return strings.TrimSpace(scanner.Text()) == phrase, nil
}

// newLogger builds the console logger for a command invocation.
func newLogger(cmd *cli.Command) logger.Logger {
	return logger.NewConsole(logger.ConsoleOptions{
		Writer:  cmd.Root().ErrWriter,
		Verbose: cmd.Root().Bool("verbose"),
	})
}

// scriptsDir resolves the scripts directory with flag > config > default
// precedence.
func scriptsDir(cfg *config.Config, cmd *cli.Command) string {
	if dir := cmd.String("dir"); dir != "" {
		return dir
	}
	if cfg != nil && cfg.Dir != "" {
		return cfg.Dir
	}
	return consts.DefaultScriptsDir
}

// buildRunnerConfig assembles the resolved runner configuration for a
// command invocation, wiring console reporting into the lifecycle hooks.
func buildRunnerConfig(cfg *config.Config, cmd *cli.Command, log logger.Logger) (runner.Config, error) {
	url := config.ResolveDatabaseURL(cfg, cmd.String("url"))
	if url == "" {
		return runner.Config{}, errors.New("no database URL: pass --url, set DATABASE_URL, or add url to sqlrun.yaml")
	}

	rc := runner.Config{
		URL: url,
		Dir: scriptsDir(cfg, cmd),
		Confirm: runner.ConfirmPolicy{
			Required: cfg.ConfirmRequired(),
		},
		Logger:    log,
		Confirmer: &terminalConfirmer{in: os.Stdin, out: cmd.Root().ErrWriter},
		Hooks: runner.Hooks{
			OnNotice: func(message string) {
				log.Info("NOTICE: %s", message)
			},
			OnBeforeFile: func(name string, index, total int) {
				log.Info("[%d/%d] %s", index+1, total, name)
			},
			OnAfterFile: func(result *executor.FileResult) {
				if result.Success {
					log.Success("%s (%s)", result.Name, result.Duration.Round(time.Millisecond))
					return
				}
				log.Error("%s failed: %s", result.Name, formatSQLError(result.Err))
				if result.RollbackOK != nil && !*result.RollbackOK {
					log.Warning("savepoint rollback failed; connection state is indeterminate")
				}
			},
			OnError: func(err error, help diagnose.Help) {
				fmt.Fprint(cmd.Root().ErrWriter, diagnose.Render(help))
			},
		},
	}

	if cfg != nil {
		rc.SSLMode = cfg.SSLMode
		rc.FilePattern = cfg.FilePattern
		rc.IgnorePattern = cfg.IgnorePattern
		rc.Confirm.Phrase = cfg.Confirmation.Phrase
	}

	return rc, nil
}

// formatSQLError renders a normalized statement error for a log line.
func formatSQLError(e *executor.SQLError) string {
	if e == nil {
		return "unknown error"
	}

	var b strings.Builder
	b.WriteString(e.Message)

	if e.Line > 0 {
		fmt.Fprintf(&b, " (line %d, column %d)", e.Line, e.Column)
	}
	if e.Detail != "" {
		b.WriteString("\n  Detail: " + e.Detail)
	}
	if e.Hint != "" {
		b.WriteString("\n  Hint: " + e.Hint)
	}
	if e.Where != "" {
		b.WriteString("\n  Where: " + e.Where)
	}

	return b.String()
}

// reportSummary prints the final run report.
func reportSummary(log logger.Logger, sum *runner.Summary) {
	switch {
	case sum.Cancelled:
		log.Warning("run cancelled; transaction rolled back (%d of %d files ran)", len(sum.Results), sum.TotalFiles)
	case sum.TotalFiles == 0:
		log.Info("no files to execute")
	case sum.Committed:
		log.Success("%d file(s) executed and committed in %s", sum.Succeeded, sum.Duration.Round(time.Millisecond))
	case sum.Failed > 0:
		log.Error("%d of %d file(s) failed; transaction rolled back", sum.Failed, sum.TotalFiles)
	default:
		log.Info("dry run: %d file(s) would execute, nothing committed", sum.TotalFiles)
	}

	for _, name := range sum.Ignored {
		log.Debug("ignored: %s", name)
	}
}
