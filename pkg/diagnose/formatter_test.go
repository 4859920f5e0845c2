package diagnose_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
	"gotest.tools/v3/golden"

	"github.com/sqlrun/sqlrun/pkg/diagnose"
)

func TestRenderGolden(t *testing.T) {
	out := diagnose.Render(diagnose.Help{
		Known:       true,
		Title:       "Connection Refused",
		Explanation: "Nothing listens.",
		Suggestions: []string{"Check the port", "Check the host"},
	})

	golden.Assert(t, out, "refused.golden")
}

func TestRenderBoxGeometry(t *testing.T) {
	out := diagnose.Render(diagnose.Help{
		Known: true,
		Title: "A Fairly Long Title That Definitely Wraps Because It Keeps Going On And On",
		Explanation: "This explanation is long enough to be wrapped over multiple " +
			"lines so that the word wrapping logic gets exercised along with padding.",
		Suggestions: []string{
			"A suggestion that is also long enough to wrap onto a continuation line with aligned indentation for readability",
			"Short one",
		},
		DocsURL: "https://example.com/docs",
	})

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Greater(t, len(lines), 5)

	// Every line is exactly as wide as the box.
	for _, line := range lines {
		require.Equal(t, 72, utf8.RuneCountInString(line), "line: %q", line)
	}

	require.True(t, strings.HasPrefix(lines[0], "┌"))
	require.True(t, strings.HasPrefix(lines[len(lines)-1], "└"))
	require.Contains(t, out, "├")
	require.Contains(t, out, "  1. ")
	require.Contains(t, out, "  2. Short one")
	require.Contains(t, out, "Docs: https://example.com/docs")
}

func TestRenderEmptyHelp(t *testing.T) {
	out := diagnose.Render(diagnose.Help{Title: "Connection Error"})

	require.Contains(t, out, "Connection Error")
	require.NotContains(t, out, "Suggestions:")
	require.NotContains(t, out, "Docs:")
}
