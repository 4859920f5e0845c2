package cmd

import (
	"context"
	"fmt"
	"regexp"

	"github.com/urfave/cli/v3"
	"go.uber.org/fx"

	"github.com/sqlrun/sqlrun/pkg/config"
	"github.com/sqlrun/sqlrun/pkg/consts"
	"github.com/sqlrun/sqlrun/pkg/scanner"
)

type lsParams struct {
	fx.In

	Config *config.Config
}

// ls creates the ls command, which previews file discovery: what would run,
// in what order, and what is ignored. It never touches the database.
func ls(p lsParams) *cli.Command {
	return &cli.Command{
		Name:   "ls",
		Usage:  "List the scripts that would execute, in order",
		Before: requireConfig(p.Config),
		Flags:  []cli.Flag{dirFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runLs(ctx, cmd, p)
		},
	}
}

func runLs(_ context.Context, cmd *cli.Command, p lsParams) error {
	log := newLogger(cmd)

	filePattern, ignorePattern, err := patterns(p.Config)
	if err != nil {
		return err
	}

	res, err := scanner.Scan(scriptsDir(p.Config, cmd), filePattern, ignorePattern)
	if err != nil {
		return err
	}

	for _, f := range res.Files {
		fmt.Fprintf(cmd.Writer, "%3d  %s\n", f.Index+1, f.Name)
	}

	for _, name := range res.Ignored {
		fmt.Fprintf(cmd.Writer, "  -  %s (ignored)\n", name)
	}

	if len(res.Files) == 0 {
		log.Info("no files to execute")
	}

	if mismatched := scanner.NumericOrderMismatch(res.Files); len(mismatched) > 0 {
		log.Warning("numeric prefixes are not zero-padded; execution order is lexicographic (e.g. 10_ runs before 2_)")
	}

	return nil
}

// patterns compiles the file and ignore patterns from the config, falling
// back to the defaults.
func patterns(cfg *config.Config) (filePattern, ignorePattern *regexp.Regexp, err error) {
	fp, ip := consts.DefaultFilePattern, consts.DefaultIgnorePattern
	if cfg != nil && cfg.FilePattern != "" {
		fp = cfg.FilePattern
	}
	if cfg != nil && cfg.IgnorePattern != "" {
		ip = cfg.IgnorePattern
	}

	if filePattern, err = regexp.Compile(fp); err != nil {
		return nil, nil, err
	}
	if ignorePattern, err = regexp.Compile(ip); err != nil {
		return nil, nil, err
	}

	return filePattern, ignorePattern, nil
}
