// Package logger defines the logging capability injected into the runner and
// executor, along with a colored console implementation.
//
// The core packages only ever call the Logger interface; where log lines end
// up (and how they're rendered) is decided entirely by the caller. Log calls
// never influence control flow.
package logger

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

type (
	// Logger is the side-effect-only logging capability used throughout the
	// runner, executor and watcher. All methods are Printf-style.
	Logger interface {
		Info(format string, args ...any)
		Success(format string, args ...any)
		Warning(format string, args ...any)
		Error(format string, args ...any)
		Debug(format string, args ...any)
	}

	// Console is a Logger that writes colored, line-oriented output to an
	// io.Writer (usually stderr). Debug output is suppressed unless Verbose
	// is set.
	Console struct {
		mu      sync.Mutex
		w       io.Writer
		verbose bool
	}

	// ConsoleOptions configures a Console logger.
	ConsoleOptions struct {
		// Writer receives all log lines. Required.
		Writer io.Writer

		// Verbose enables Debug output.
		Verbose bool
	}

	nop struct{}
)

var (
	infoColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	debugColor   = color.New(color.Faint)
)

// NewConsole creates a console logger writing to opts.Writer.
func NewConsole(opts ConsoleOptions) *Console {
	return &Console{w: opts.Writer, verbose: opts.Verbose}
}

func (c *Console) Info(format string, args ...any) {
	c.logln(infoColor, "•", format, args...)
}

func (c *Console) Success(format string, args ...any) {
	c.logln(successColor, "✓", format, args...)
}

func (c *Console) Warning(format string, args ...any) {
	c.logln(warningColor, "!", format, args...)
}

func (c *Console) Error(format string, args ...any) {
	c.logln(errorColor, "✗", format, args...)
}

func (c *Console) Debug(format string, args ...any) {
	if !c.verbose {
		return
	}
	c.logln(debugColor, "·", format, args...)
}

func (c *Console) logln(col *color.Color, prefix, format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintln(c.w, col.Sprintf("%s %s", prefix, fmt.Sprintf(format, args...)))
}

// Nop returns a Logger that discards everything. Useful as a default and in
// tests.
func Nop() Logger { return nop{} }

func (nop) Info(string, ...any)    {}
func (nop) Success(string, ...any) {}
func (nop) Warning(string, ...any) {}
func (nop) Error(string, ...any)   {}
func (nop) Debug(string, ...any)   {}
