package runner

import (
	"net/url"

	"github.com/pkg/errors"

	"github.com/sqlrun/sqlrun/pkg/diagnose"
)

type (
	// ConnParams are the resolved network parameters for a run: the DSN
	// handed to the driver plus the context the error classifier uses for
	// its heuristics.
	ConnParams struct {
		DSN     string
		Context diagnose.ConnContext
	}
)

// ErrInvalidDatabaseURL is returned for connection URLs that are unparsable
// or missing a hostname or username.
var ErrInvalidDatabaseURL = errors.New("invalid database URL")

// ResolveURL validates a PostgreSQL connection URL and derives the connection
// parameters for a run. sslMode, when non-empty, overrides the URL's sslmode
// query parameter.
func ResolveURL(raw, sslMode string) (*ConnParams, error) {
	if raw == "" {
		return nil, errors.Wrap(ErrInvalidDatabaseURL, "no database URL configured")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidDatabaseURL, "%v", err)
	}

	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return nil, errors.Wrapf(ErrInvalidDatabaseURL, "unsupported scheme %q", u.Scheme)
	}

	if u.Hostname() == "" {
		return nil, errors.Wrap(ErrInvalidDatabaseURL, "missing hostname")
	}

	if u.User == nil || u.User.Username() == "" {
		return nil, errors.Wrap(ErrInvalidDatabaseURL, "missing username")
	}

	port := u.Port()
	if port == "" {
		port = "5432"
	}

	database := "postgres"
	if len(u.Path) > 1 {
		database = u.Path[1:]
	}

	if sslMode != "" {
		q := u.Query()
		q.Set("sslmode", sslMode)
		u.RawQuery = q.Encode()
	}

	return &ConnParams{
		DSN: u.String(),
		Context: diagnose.ConnContext{
			Host:     u.Hostname(),
			Port:     port,
			Database: database,
			User:     u.User.Username(),
		},
	}, nil
}
