// Package runner orchestrates a full run: scan, filter, confirm, connect,
// execute every file inside one outer transaction, then commit or roll back
// and summarize.
//
// The runner owns the cancellation policy and the lifecycle callback surface.
// It never writes to a terminal and never parses its own configuration; both
// are supplied by the caller (see pkg/cmd).
package runner

import (
	"context"
	"regexp"
	"time"

	"github.com/pkg/errors"

	"github.com/sqlrun/sqlrun/pkg/consts"
	"github.com/sqlrun/sqlrun/pkg/diagnose"
	"github.com/sqlrun/sqlrun/pkg/executor"
	"github.com/sqlrun/sqlrun/pkg/logger"
	"github.com/sqlrun/sqlrun/pkg/scanner"
)

type (
	// ConfirmPolicy controls the interactive confirmation gate.
	ConfirmPolicy struct {
		// Required blocks the run on confirmation unless the per-invocation
		// options skip it.
		Required bool

		// Phrase the user must type to proceed. Defaults to the target
		// database name.
		Phrase string
	}

	// Hooks are the lifecycle callbacks invoked during a run, in fixed order:
	// zero or more (OnBeforeFile, OnAfterFile) pairs, then at most one of
	// OnComplete or OnError. All hooks are optional and side-effect only.
	Hooks struct {
		OnNotice     func(message string)
		OnBeforeFile func(name string, index, total int)
		OnAfterFile  func(result *executor.FileResult)
		OnComplete   func(summary *Summary)
		OnError      func(err error, help diagnose.Help)
	}

	// Config is the resolved, immutable input to a run. The runner never
	// mutates it.
	Config struct {
		// URL is the PostgreSQL connection string. Required.
		URL string

		// SSLMode, when set, overrides the URL's sslmode parameter.
		SSLMode string

		// Dir is the scripts directory.
		Dir string

		// FilePattern and IgnorePattern override the default file matching
		// regular expressions when non-empty.
		FilePattern   string
		IgnorePattern string

		// Confirm is the confirmation policy.
		Confirm ConfirmPolicy

		// Hooks receive lifecycle events.
		Hooks Hooks

		// Logger receives progress and warnings. Defaults to logger.Nop().
		Logger logger.Logger

		// Confirmer blocks for interactive confirmation. When nil and
		// confirmation is required, the run resolves to cancellation.
		Confirmer Confirmer

		// Classifier explains connection-level failures. Defaults to
		// diagnose.NewRegistry().
		Classifier *diagnose.Registry

		// Connect dials the database. Defaults to executor.Connect; tests
		// inject fakes here.
		Connect ConnectFunc
	}

	// Options are the per-invocation knobs.
	Options struct {
		// SkipConfirmation bypasses the confirmation gate.
		SkipConfirmation bool

		// Only restricts execution to the named files (intersection with the
		// scan result, scan order preserved). Requested names that weren't
		// scanned produce a warning, not a failure.
		Only []string

		// Skip removes the named files from the execution list. Applied
		// after Only.
		Skip []string

		// DryRun performs discovery and filtering but never connects.
		DryRun bool
	}

	// Confirmer blocks for interactive confirmation against a phrase. A
	// declined prompt or a non-interactive input stream both return false,
	// not an error.
	Confirmer interface {
		Confirm(prompt, phrase string) (bool, error)
	}

	// Execer is the executor surface the runner drives. Satisfied by
	// *executor.Executor.
	Execer interface {
		Begin(ctx context.Context) error
		Commit(ctx context.Context) error
		Rollback(ctx context.Context) error
		ExecuteFile(ctx context.Context, file scanner.ScriptFile) *executor.FileResult
		Disconnect()
	}

	// ConnectFunc dials a database session.
	ConnectFunc func(ctx context.Context, cfg executor.ConnectConfig) (Execer, error)

	// Runner executes a directory of SQL scripts as one unit of work. Safe to
	// reuse, but runs against the same configuration must be serialized by
	// the caller: the single connection is exclusively owned for the lifetime
	// of one Run call.
	Runner struct {
		cfg        Config
		log        logger.Logger
		classifier *diagnose.Registry
		connect    ConnectFunc
	}
)

// New creates a Runner from the given configuration, applying defaults for
// the logger, classifier and connect function.
func New(cfg Config) *Runner {
	r := &Runner{
		cfg:        cfg,
		log:        cfg.Logger,
		classifier: cfg.Classifier,
		connect:    cfg.Connect,
	}

	if r.log == nil {
		r.log = logger.Nop()
	}
	if r.classifier == nil {
		r.classifier = diagnose.NewRegistry()
	}
	if r.connect == nil {
		r.connect = func(ctx context.Context, cfg executor.ConnectConfig) (Execer, error) {
			return executor.Connect(ctx, cfg)
		}
	}

	return r
}

// Run performs one full run and returns its summary.
//
// Per-file statement failures are captured in the summary, never returned as
// an error: the first failing file stops the loop, the outer transaction is
// rolled back, and the summary reports exactly the results up to and
// including the failure. Only configuration errors (bad URL, missing
// directory) and unexpected failures outside the per-file loop (connect,
// begin, commit) propagate as errors.
//
// Cancellation is cooperative: ctx is checked before each file and before
// commit, never mid-statement. A cancelled run rolls back and returns a
// non-error summary with Cancelled set.
func (r *Runner) Run(ctx context.Context, opts Options) (*Summary, error) {
	start := time.Now()

	params, err := ResolveURL(r.cfg.URL, r.cfg.SSLMode)
	if err != nil {
		return nil, err
	}

	filePattern, err := compilePattern(r.cfg.FilePattern, consts.DefaultFilePattern)
	if err != nil {
		return nil, errors.Wrap(err, "invalid file pattern")
	}

	ignorePattern, err := compilePattern(r.cfg.IgnorePattern, consts.DefaultIgnorePattern)
	if err != nil {
		return nil, errors.Wrap(err, "invalid ignore pattern")
	}

	scanned, err := scanner.Scan(r.cfg.Dir, filePattern, ignorePattern)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Ignored: scanned.Ignored, AllSuccessful: true}
	defer func() { summary.Duration = time.Since(start) }()

	files := r.filterFiles(scanned.Files, opts)
	summary.TotalFiles = len(files)

	// Zero files to execute is a successful no-op, not an error.
	if len(files) == 0 {
		return summary, nil
	}

	if mismatched := scanner.NumericOrderMismatch(files); len(mismatched) > 0 {
		r.log.Warning("numeric prefixes are not zero-padded; files run in lexicographic order (%s sorts first)", files[0].Name)
	}

	if opts.DryRun {
		return summary, nil
	}

	if r.cfg.Confirm.Required && !opts.SkipConfirmation {
		if !r.confirmRun(params) {
			summary.Cancelled = true
			return summary, nil
		}
	}

	// Statements never run on the cancellable context: cancellation is
	// honored at file boundaries only, and cleanup statements (ROLLBACK)
	// must still reach the server after ctx is done.
	dbCtx := context.WithoutCancel(ctx)

	exec, err := r.connect(ctx, executor.ConnectConfig{
		DSN:      params.DSN,
		OnNotice: r.cfg.Hooks.OnNotice,
		Logger:   r.log,
	})
	if err != nil {
		return nil, r.fail(dbCtx, nil, err, params.Context)
	}
	defer exec.Disconnect()

	if err := exec.Begin(dbCtx); err != nil {
		return nil, r.fail(dbCtx, nil, err, params.Context)
	}

	total := len(files)
	for _, file := range files {
		if ctx.Err() != nil {
			summary.Cancelled = true
			break
		}

		if r.cfg.Hooks.OnBeforeFile != nil {
			r.cfg.Hooks.OnBeforeFile(file.Name, file.Index, total)
		}

		result := exec.ExecuteFile(dbCtx, file)
		summary.append(result)

		if r.cfg.Hooks.OnAfterFile != nil {
			r.cfg.Hooks.OnAfterFile(result)
		}

		// First failure stops the run; later files never execute.
		if !result.Success {
			break
		}
	}

	if ctx.Err() != nil {
		summary.Cancelled = true
	}

	if summary.Failed > 0 || summary.Cancelled {
		if err := exec.Rollback(dbCtx); err != nil {
			r.log.Warning("failed to rollback transaction: %v", err)
		}
		return summary, nil
	}

	if err := exec.Commit(dbCtx); err != nil {
		return nil, r.fail(dbCtx, exec, err, params.Context)
	}

	summary.Committed = true

	if r.cfg.Hooks.OnComplete != nil {
		r.cfg.Hooks.OnComplete(summary)
	}

	return summary, nil
}

// confirmRun blocks for interactive confirmation. Anything other than an
// affirmative answer (including a missing confirmer or a closed input
// stream) resolves to cancellation.
func (r *Runner) confirmRun(params *ConnParams) bool {
	if r.cfg.Confirmer == nil {
		r.log.Warning("confirmation required but no confirmer configured; cancelling")
		return false
	}

	phrase := r.cfg.Confirm.Phrase
	if phrase == "" {
		phrase = params.Context.Database
	}

	prompt := "About to execute scripts against " + params.Context.Host + "/" + params.Context.Database
	ok, err := r.cfg.Confirmer.Confirm(prompt, phrase)
	if err != nil {
		r.log.Warning("confirmation aborted: %v", err)
		return false
	}

	return ok
}

// filterFiles applies Only then Skip, preserving scan order, and reindexes
// the survivors so indexes match the final execution order.
func (r *Runner) filterFiles(files []scanner.ScriptFile, opts Options) []scanner.ScriptFile {
	if len(opts.Only) > 0 {
		requested := make(map[string]bool, len(opts.Only))
		for _, name := range opts.Only {
			requested[name] = true
		}

		var kept []scanner.ScriptFile
		for _, f := range files {
			if requested[f.Name] {
				kept = append(kept, f)
				delete(requested, f.Name)
			}
		}

		for _, name := range opts.Only {
			if requested[name] {
				r.log.Warning("requested file not found in scripts directory: %s", name)
			}
		}

		files = kept
	}

	if len(opts.Skip) > 0 {
		skip := make(map[string]bool, len(opts.Skip))
		for _, name := range opts.Skip {
			skip[name] = true
		}

		var kept []scanner.ScriptFile
		for _, f := range files {
			if !skip[f.Name] {
				kept = append(kept, f)
			}
		}

		files = kept
	}

	for i := range files {
		files[i].Index = i
	}

	return files
}

// fail classifies an unexpected error, notifies OnError, attempts a
// best-effort rollback when a transaction may be open, and returns the error
// for the caller to handle.
func (r *Runner) fail(dbCtx context.Context, exec Execer, err error, cc diagnose.ConnContext) error {
	help := r.classifier.Classify(err, cc)

	if r.cfg.Hooks.OnError != nil {
		r.cfg.Hooks.OnError(err, help)
	}

	if exec != nil {
		if rbErr := exec.Rollback(dbCtx); rbErr != nil {
			r.log.Warning("failed to rollback after error: %v", rbErr)
		}
	}

	return err
}

func compilePattern(pattern, fallback string) (*regexp.Regexp, error) {
	if pattern == "" {
		pattern = fallback
	}
	return regexp.Compile(pattern)
}
