package cmd

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sqlrun/sqlrun/pkg/executor"
	"github.com/sqlrun/sqlrun/pkg/runner"
)

type captureLogger struct {
	lines []string
}

func (l *captureLogger) log(level, format string, args ...any) {
	l.lines = append(l.lines, level+": "+fmt.Sprintf(format, args...))
}

func (l *captureLogger) Info(f string, a ...any)    { l.log("info", f, a...) }
func (l *captureLogger) Success(f string, a ...any) { l.log("success", f, a...) }
func (l *captureLogger) Warning(f string, a ...any) { l.log("warning", f, a...) }
func (l *captureLogger) Error(f string, a ...any)   { l.log("error", f, a...) }
func (l *captureLogger) Debug(f string, a ...any)   { l.log("debug", f, a...) }

func (l *captureLogger) joined() string { return strings.Join(l.lines, "\n") }

func TestTerminalConfirmer(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{name: "exact phrase confirms", input: "proddb\n", expected: true},
		{name: "surrounding whitespace is trimmed", input: "  proddb  \n", expected: true},
		{name: "wrong phrase declines", input: "nope\n", expected: false},
		{name: "empty line declines", input: "\n", expected: false},
		{name: "closed input declines", input: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			c := &terminalConfirmer{in: strings.NewReader(tt.input), out: &out}

			ok, err := c.Confirm("About to execute scripts against localhost/proddb", "proddb")
			require.NoError(t, err)
			require.Equal(t, tt.expected, ok)

			require.Contains(t, out.String(), `Type "proddb" to continue`)
		})
	}
}

func TestFormatSQLError(t *testing.T) {
	full := &executor.SQLError{
		Message: `relation "missing" does not exist`,
		Code:    "42P01",
		Line:    3,
		Column:  8,
		Detail:  "the detail",
		Hint:    "the hint",
		Where:   "the context",
	}

	out := formatSQLError(full)
	require.Contains(t, out, `relation "missing" does not exist`)
	require.Contains(t, out, "(line 3, column 8)")
	require.Contains(t, out, "Detail: the detail")
	require.Contains(t, out, "Hint: the hint")
	require.Contains(t, out, "Where: the context")

	require.Equal(t, "boom", formatSQLError(&executor.SQLError{Message: "boom"}))
	require.Equal(t, "unknown error", formatSQLError(nil))
}

func TestReportSummary(t *testing.T) {
	tests := []struct {
		name     string
		summary  *runner.Summary
		expected string
	}{
		{
			name:     "cancelled",
			summary:  &runner.Summary{TotalFiles: 3, Cancelled: true},
			expected: "warning: run cancelled",
		},
		{
			name:     "empty",
			summary:  &runner.Summary{},
			expected: "info: no files to execute",
		},
		{
			name:     "committed",
			summary:  &runner.Summary{TotalFiles: 2, Succeeded: 2, Committed: true, AllSuccessful: true},
			expected: "success: 2 file(s) executed and committed",
		},
		{
			name:     "failed",
			summary:  &runner.Summary{TotalFiles: 3, Succeeded: 1, Failed: 1},
			expected: "error: 1 of 3 file(s) failed",
		},
		{
			name:     "dry run",
			summary:  &runner.Summary{TotalFiles: 2, AllSuccessful: true},
			expected: "info: dry run: 2 file(s) would execute",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &captureLogger{}
			reportSummary(log, tt.summary)
			require.Contains(t, log.joined(), tt.expected)
		})
	}
}

func TestReportSummaryListsIgnored(t *testing.T) {
	log := &captureLogger{}
	reportSummary(log, &runner.Summary{Ignored: []string{"README.sql"}})
	require.Contains(t, log.joined(), "debug: ignored: README.sql")
}
