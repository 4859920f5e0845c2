// Package diagnose turns raw connection and statement errors into structured,
// actionable help records.
//
// Classification runs through an ordered registry of detectors. Each detector
// is a pure predicate + explainer pair that pattern-matches on the driver
// error code, a lowercase substring search over the message, and heuristics
// derived from the connection parameters. Detectors are registered
// most-specific-first and the first match wins; when nothing matches, a
// generic fallback Help is returned so callers never need to nil-check.
package diagnose

import (
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"
)

type (
	// Help is the classifier output for one error. It is a pure value,
	// recomputed per error; nothing is cached.
	Help struct {
		// Known is false only for the generic fallback.
		Known bool

		// Title is a short, human-readable name for the failure.
		Title string

		// Explanation describes what went wrong and why.
		Explanation string

		// Suggestions are ordered, concrete next steps.
		Suggestions []string

		// DocsURL points at relevant documentation, when there is some.
		DocsURL string

		// Original is the unmodified error message.
		Original string
	}

	// ConnContext carries the connection parameters detectors use for their
	// heuristics. Derived from the resolved database URL, never from the live
	// connection.
	ConnContext struct {
		Host     string
		Port     string
		Database string
		User     string
	}

	// Detector recognizes one error shape. Matches and Explain must be pure:
	// no I/O, no shared state.
	Detector struct {
		Name    string
		Matches func(err error, cc ConnContext) bool
		Explain func(err error, cc ConnContext) Help
	}

	// Registry holds the ordered detector chain.
	Registry struct {
		detectors []Detector
	}
)

// PoolerConnection reports whether the connection targets a pooled endpoint
// (transaction/session pooler port, or a pooler hostname fragment).
func (cc ConnContext) PoolerConnection() bool {
	return cc.Port == "6543" || strings.Contains(cc.Host, "pooler")
}

// DirectSupabase reports whether the connection targets a Supabase direct
// database host (db.<ref>.supabase.co), which resolves to IPv6 only.
func (cc ConnContext) DirectSupabase() bool {
	return strings.HasPrefix(cc.Host, "db.") && strings.HasSuffix(cc.Host, ".supabase.co")
}

// NewRegistry creates a registry pre-populated with the default detector
// chain, most-specific-first.
func NewRegistry() *Registry {
	r := &Registry{}
	for _, d := range defaultDetectors() {
		r.Register(d)
	}
	return r
}

// Register appends a detector to the chain. Order matters: detectors are
// evaluated in registration order and the first match wins.
func (r *Registry) Register(d Detector) {
	r.detectors = append(r.detectors, d)
}

// Classify finds the first detector matching err and returns its Help. The
// generic fallback is returned when no detector matches; this is a deliberate
// default, not an error path.
func (r *Registry) Classify(err error, cc ConnContext) Help {
	for _, d := range r.detectors {
		if d.Matches(err, cc) {
			return d.Explain(err, cc)
		}
	}

	return Help{
		Known:       false,
		Title:       "Connection Error",
		Explanation: err.Error(),
		Original:    err.Error(),
	}
}

// messageContains reports whether the error message contains any of the given
// fragments, case-insensitively.
func messageContains(err error, fragments ...string) bool {
	msg := strings.ToLower(err.Error())
	for _, f := range fragments {
		if strings.Contains(msg, f) {
			return true
		}
	}
	return false
}

// sqlState extracts the SQLSTATE code from a wrapped pq.Error, or "".
func sqlState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
