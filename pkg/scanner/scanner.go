// Package scanner discovers the SQL script files for a run and fixes their
// execution order.
//
// Discovery is intentionally simple: a single (non-recursive) directory
// listing, partitioned into executable and ignored files by two regular
// expressions, then sorted lexicographically. The sort is byte-wise, not
// numeric-aware, so "10_x.sql" orders before "2_x.sql" — zero-pad numeric
// prefixes (01_, 02_, ..., 10_) to get numeric ordering.
package scanner

import (
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type (
	// ScriptFile is one discovered script, immutable once scanned.
	ScriptFile struct {
		// Name is the base file name.
		Name string

		// Path is the absolute path to the file.
		Path string

		// Index is the 0-based position in the sorted execution order.
		Index int
	}

	// Result holds the outcome of one directory scan. Files and Ignored are
	// both sorted lexicographically; Files carries the execution order.
	Result struct {
		Files   []ScriptFile
		Ignored []string
	}
)

var (
	// ErrDirectoryNotFound is returned when the scripts directory doesn't exist.
	ErrDirectoryNotFound = errors.New("directory not found")

	// ErrNotADirectory is returned when the scripts path exists but is a file.
	ErrNotADirectory = errors.New("not a directory")
)

// Scan lists dir (non-recursively), keeps entries matching filePattern,
// partitions those into executable files and ignored files by ignorePattern,
// and sorts both lists lexicographically.
//
// Example:
//
//	res, err := scanner.Scan("./sql", regexp.MustCompile(`\.sql$`), regexp.MustCompile(`^_ignored|README`))
//	if err != nil {
//		log.Fatal(err)
//	}
//	for _, f := range res.Files {
//		fmt.Printf("%d: %s\n", f.Index, f.Name)
//	}
func Scan(dir string, filePattern, ignorePattern *regexp.Regexp) (*Result, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve dir: %s", dir)
	}

	info, err := os.Stat(abs)
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrDirectoryNotFound, "%s", abs)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat dir: %s", abs)
	}
	if !info.IsDir() {
		return nil, errors.Wrapf(ErrNotADirectory, "%s", abs)
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read dir: %s", abs)
	}

	res := &Result{}
	var names []string

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if !filePattern.MatchString(entry.Name()) {
			continue
		}

		if ignorePattern.MatchString(entry.Name()) {
			res.Ignored = append(res.Ignored, entry.Name())
			continue
		}

		names = append(names, entry.Name())
	}

	// Lexicographic byte ordering, on purpose. See the package doc.
	slices.Sort(names)
	slices.Sort(res.Ignored)

	for i, name := range names {
		res.Files = append(res.Files, ScriptFile{
			Name:  name,
			Path:  filepath.Join(abs, name),
			Index: i,
		})
	}

	return res, nil
}

// ReadFile reads the full content of a script file. Any I/O failure is
// wrapped with the offending path; there is no retry.
func ReadFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read file: %s", path)
	}
	return string(content), nil
}

var numericPrefix = regexp.MustCompile(`^(\d+)`)

// NumericOrderMismatch returns the names of files whose numeric prefix would
// order them differently under numeric-aware sorting than under the
// lexicographic sort actually used (e.g. "10_x.sql" running before
// "2_x.sql"). Callers surface this as a warning; the observed lexicographic
// behavior is kept.
func NumericOrderMismatch(files []ScriptFile) []string {
	type prefixed struct {
		name string
		n    int
	}

	var nums []prefixed
	for _, f := range files {
		m := numericPrefix.FindString(f.Name)
		if m == "" {
			continue
		}
		n, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		nums = append(nums, prefixed{name: f.Name, n: n})
	}

	var mismatched []string
	for i := 1; i < len(nums); i++ {
		if nums[i].n < nums[i-1].n {
			mismatched = append(mismatched, nums[i].name)
		}
	}

	return mismatched
}

// SavepointIdentifier derives the savepoint name used to isolate one file's
// statement batch. Every character outside [A-Za-z0-9] is replaced with '_',
// then the name is prefixed with "sp_" and suffixed with the file's sequence
// index.
//
// The transformation is lossy; uniqueness within a run comes from the index
// suffix, so two files that sanitize to the same string still get distinct
// savepoints.
func SavepointIdentifier(fileName string, index int) string {
	var b strings.Builder
	b.WriteString("sp_")

	for _, r := range fileName {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	b.WriteByte('_')
	b.WriteString(strconv.Itoa(index))

	return b.String()
}
