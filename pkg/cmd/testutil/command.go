// Package testutil provides helpers for exercising CLI commands in tests.
package testutil

import (
	"bytes"
	"context"
	"testing"

	"github.com/urfave/cli/v3"
)

// CommandResult captures everything a command invocation produced.
type CommandResult struct {
	Stdout string
	Stderr string
	Err    error
}

// RunCommand executes a command under a minimal test application that mirrors
// the real root command: a --verbose flag and captured output streams.
func RunCommand(t *testing.T, command *cli.Command, args ...string) CommandResult {
	t.Helper()
	return RunCommandWithContext(context.Background(), t, command, args...)
}

// RunCommandWithContext is RunCommand with a caller-supplied context, for
// cancellation tests.
func RunCommandWithContext(ctx context.Context, t *testing.T, command *cli.Command, args ...string) CommandResult {
	t.Helper()

	var stdout, stderr bytes.Buffer

	command.Writer = &stdout
	command.ErrWriter = &stderr

	app := &cli.Command{
		Name:      "test",
		Writer:    &stdout,
		ErrWriter: &stderr,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}},
		},
		Commands: []*cli.Command{command},
	}

	err := app.Run(ctx, append([]string{"test", command.Name}, args...))

	return CommandResult{Stdout: stdout.String(), Stderr: stderr.String(), Err: err}
}
