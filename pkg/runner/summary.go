package runner

import (
	"time"

	"github.com/sqlrun/sqlrun/pkg/executor"
)

// Summary is the final, immutable report of one run.
//
// Invariant: Committed implies every result succeeded. The converse doesn't
// hold — a dry run commits nothing despite zero failures.
type Summary struct {
	// TotalFiles is the number of files selected for execution after
	// filtering.
	TotalFiles int

	// Succeeded and Failed count the per-file outcomes. Files after the
	// first failure never run and are not counted.
	Succeeded int
	Failed    int

	// Duration is the wall-clock time of the whole run.
	Duration time.Duration

	// Results holds one entry per executed file, in execution order.
	Results []*executor.FileResult

	// AllSuccessful is true when no executed file failed (vacuously true for
	// an empty run).
	AllSuccessful bool

	// Committed is true only when the outer transaction committed.
	Committed bool

	// Cancelled is true when the run stopped at a file boundary because
	// cancellation was requested. Not an error.
	Cancelled bool

	// Ignored lists file names that matched the ignore pattern.
	Ignored []string
}

func (s *Summary) append(result *executor.FileResult) {
	s.Results = append(s.Results, result)

	if result.Success {
		s.Succeeded++
	} else {
		s.Failed++
		s.AllSuccessful = false
	}
}
