package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
	"go.uber.org/fx"

	"github.com/sqlrun/sqlrun/pkg/config"
	"github.com/sqlrun/sqlrun/pkg/runner"
	"github.com/sqlrun/sqlrun/pkg/watcher"
)

type watchParams struct {
	fx.In

	Config *config.Config
}

// watch creates the watch command: run once, then re-run whenever a script
// file changes, until interrupted.
//
// Confirmation (when required) is asked once, up front; the watch-triggered
// re-runs inherit it. Triggers arriving while a run is still executing are
// skipped — runs against the same database are never overlapped.
func watch(p watchParams) *cli.Command {
	return &cli.Command{
		Name:   "watch",
		Usage:  "Re-run the scripts whenever a file changes",
		Before: requireConfig(p.Config),
		Flags: []cli.Flag{
			urlFlag,
			dirFlag,
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Skip the confirmation prompt",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runWatch(ctx, cmd, p)
		},
	}
}

func runWatch(ctx context.Context, cmd *cli.Command, p watchParams) error {
	log := newLogger(cmd)

	rc, err := buildRunnerConfig(p.Config, cmd, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := runner.New(rc)

	// First run carries the confirmation gate; subsequent triggered runs
	// skip it, the user already said yes for this session.
	opts := runner.Options{SkipConfirmation: cmd.Bool("yes")}
	summary, err := r.Run(ctx, opts)
	if err != nil {
		return err
	}

	reportSummary(log, summary)

	if summary.Cancelled && ctx.Err() == nil {
		// Confirmation was declined; watching would just re-ask forever.
		return nil
	}

	filePattern, _, err := patterns(p.Config)
	if err != nil {
		return err
	}

	w := watcher.New(watcher.Config{
		Dir:      scriptsDir(p.Config, cmd),
		Debounce: p.Config.DebounceInterval(),
		Pattern:  filePattern,
		Logger:   log,
		OnTrigger: func(ctx context.Context) {
			summary, err := r.Run(ctx, runner.Options{SkipConfirmation: true})
			if err != nil {
				log.Error("run failed: %v", err)
				return
			}
			reportSummary(log, summary)
		},
	})

	return w.Watch(ctx)
}
