package scanner_test

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/sqlrun/sqlrun/pkg/scanner"
)

var (
	filePattern   = regexp.MustCompile(`\.sql$`)
	ignorePattern = regexp.MustCompile(`^_ignored|README`)
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644))
	}
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "c.sql", "a.sql", "b.sql", "notes.txt", "_ignored_scratch.sql", "README.sql")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir.sql"), 0o755))

	res, err := scanner.Scan(dir, filePattern, ignorePattern)
	require.NoError(t, err)

	names := make([]string, 0, len(res.Files))
	for _, f := range res.Files {
		names = append(names, f.Name)
	}
	require.Equal(t, []string{"a.sql", "b.sql", "c.sql"}, names)
	require.Equal(t, []string{"README.sql", "_ignored_scratch.sql"}, res.Ignored)

	for i, f := range res.Files {
		require.Equal(t, i, f.Index)
		require.True(t, filepath.IsAbs(f.Path))
		require.Equal(t, f.Name, filepath.Base(f.Path))
	}
}

func TestScanLexicographicOrder(t *testing.T) {
	// Byte ordering, not numeric-aware: 10_ sorts before 2_.
	dir := t.TempDir()
	writeFiles(t, dir, "2_second.sql", "10_tenth.sql", "1_first.sql")

	res, err := scanner.Scan(dir, filePattern, ignorePattern)
	require.NoError(t, err)

	names := make([]string, 0, len(res.Files))
	for _, f := range res.Files {
		names = append(names, f.Name)
	}
	require.Equal(t, []string{"10_tenth.sql", "1_first.sql", "2_second.sql"}, names)
}

func TestScanDirectoryNotFound(t *testing.T) {
	_, err := scanner.Scan(filepath.Join(t.TempDir(), "missing"), filePattern, ignorePattern)
	require.Error(t, err)
	require.ErrorIs(t, err, scanner.ErrDirectoryNotFound)
}

func TestScanNotADirectory(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "file.sql")

	_, err := scanner.Scan(filepath.Join(dir, "file.sql"), filePattern, ignorePattern)
	require.Error(t, err)
	require.ErrorIs(t, err, scanner.ErrNotADirectory)
}

func TestScanEmptyDirectory(t *testing.T) {
	res, err := scanner.Scan(t.TempDir(), filePattern, ignorePattern)
	require.NoError(t, err)
	require.Empty(t, res.Files)
	require.Empty(t, res.Ignored)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.sql")
	require.NoError(t, os.WriteFile(path, []byte("CREATE TABLE t(id int);"), 0o644))

	content, err := scanner.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "CREATE TABLE t(id int);", content)

	_, err = scanner.ReadFile(filepath.Join(dir, "missing.sql"))
	require.Error(t, err)
	require.True(t, os.IsNotExist(errors.Cause(err)))
	require.Contains(t, err.Error(), "missing.sql")
}

func TestSavepointIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		index    int
		expected string
	}{
		{
			name:     "simple name",
			fileName: "setup.sql",
			index:    0,
			expected: "sp_setup_sql_0",
		},
		{
			name:     "numeric prefix",
			fileName: "01_setup.sql",
			index:    3,
			expected: "sp_01_setup_sql_3",
		},
		{
			name:     "spaces and punctuation",
			fileName: "my file (copy).sql",
			index:    1,
			expected: "sp_my_file__copy__sql_1",
		},
		{
			name:     "unicode collapses to underscores",
			fileName: "héllo.sql",
			index:    7,
			expected: "sp_h_llo_sql_7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, scanner.SavepointIdentifier(tt.fileName, tt.index))
		})
	}
}

func TestSavepointIdentifierUniqueness(t *testing.T) {
	// Distinct names can sanitize to the same string; the index suffix keeps
	// the identifiers unique anyway.
	a := scanner.SavepointIdentifier("a-b.sql", 0)
	b := scanner.SavepointIdentifier("a_b.sql", 1)
	require.NotEqual(t, a, b)

	same0 := scanner.SavepointIdentifier("x.sql", 0)
	same1 := scanner.SavepointIdentifier("x.sql", 1)
	require.NotEqual(t, same0, same1)
}

func TestNumericOrderMismatch(t *testing.T) {
	files := func(names ...string) []scanner.ScriptFile {
		out := make([]scanner.ScriptFile, len(names))
		for i, n := range names {
			out[i] = scanner.ScriptFile{Name: n, Index: i}
		}
		return out
	}

	require.Empty(t, scanner.NumericOrderMismatch(files("01_a.sql", "02_b.sql", "10_c.sql")))
	require.Empty(t, scanner.NumericOrderMismatch(files("a.sql", "b.sql")))

	mismatched := scanner.NumericOrderMismatch(files("10_tenth.sql", "2_second.sql"))
	require.Equal(t, []string{"2_second.sql"}, mismatched)
}
