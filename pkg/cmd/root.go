package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"

	"github.com/sqlrun/sqlrun/pkg/config"
)

type (
	Params struct {
		fx.In

		Args       []string
		Commands   []*cli.Command `group:"commands"`
		Ctx        context.Context
		Lifecycle  fx.Lifecycle
		Shutdowner fx.Shutdowner
		Version    *Version
	}

	Version struct {
		Version   string
		Commit    string
		Timestamp string
	}
)

// Run creates and executes the main sqlrun CLI application with the given
// version and command-line arguments. This function serves as the entry
// point for all CLI operations.
//
// The application looks for sqlrun.yaml in the working directory; commands
// that need it guard with requireConfig, everything else (init, help,
// version) works without one.
//
// Global flags:
//   - --verbose, -v: enable debug output
func Run(p Params) {
	cli.VersionPrinter = func(cmd *cli.Command) {
		fmt.Fprintln(cmd.Writer, "Version:", p.Version.Version)
		fmt.Fprintln(cmd.Writer, "Commit:", p.Version.Commit)
		fmt.Fprintln(cmd.Writer, "Date:", p.Version.Timestamp)
	}

	app := &cli.Command{
		Name:  "sqlrun",
		Usage: "Execute a directory of SQL scripts as one transaction",
		Description: `sqlrun runs every SQL file in a directory against a PostgreSQL database
in deterministic order, inside a single outer transaction with per-file
savepoints. A failure in any file rolls the whole run back, so the database
is never left half-migrated.`,
		Version: p.Version.Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "enable debug output",
			},
		},
		Commands: p.Commands,
	}

	p.Lifecycle.Append(fx.StartHook(func() {
		if err := app.Run(p.Ctx, p.Args); err != nil {
			slog.Error("Error running command", "err", err)
			_ = p.Shutdowner.Shutdown(fx.ExitCode(1))
		}

		_ = p.Shutdowner.Shutdown(fx.ExitCode(0))
	}))
}

func requireConfig(cfg *config.Config) func(context.Context, *cli.Command) (context.Context, error) {
	return func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		if cfg == nil {
			return ctx, errors.New("sqlrun.yaml not found (run `sqlrun init` first)")
		}

		return ctx, nil
	}
}
