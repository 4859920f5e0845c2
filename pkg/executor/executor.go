// Package executor owns the single database connection for a run and the
// savepoint-protected execution of individual script files.
//
// The executor is a thin state machine over one PostgreSQL session:
//
//	Disconnected -> Connected -> InTransaction -> (Disconnected)
//
// Transaction control and savepoints are issued as plain SQL statements on a
// pinned connection, so file N+1 always observes the side effects of file N
// and the outer transaction sees a strictly serial history. Invalid
// transitions (e.g. Begin before Connect) fail with ErrNotConnected and never
// auto-connect.
package executor

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/sqlrun/sqlrun/pkg/logger"
	"github.com/sqlrun/sqlrun/pkg/scanner"
)

type (
	// Session is the minimal statement-execution surface the executor needs.
	// It is satisfied by *sql.Conn and by test fakes.
	Session interface {
		ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	}

	// Executor executes script files on a single pinned connection with
	// per-file savepoint isolation.
	Executor struct {
		db   *sql.DB
		conn *sql.Conn
		sess Session
		inTx bool
		log  logger.Logger
	}

	// Config contains options for creating an Executor.
	Config struct {
		// Session to execute statements on. Set directly in tests; Connect
		// fills it with a pinned *sql.Conn.
		Session Session

		// Logger receives debug/warning output. Defaults to logger.Nop().
		Logger logger.Logger
	}

	// ConnectConfig contains options for dialing a new connection.
	ConnectConfig struct {
		// DSN is the PostgreSQL connection string (URL or key/value form).
		DSN string

		// OnNotice receives the message text of server NOTICEs raised while
		// executing scripts. Optional.
		OnNotice func(message string)

		// Logger receives debug/warning output. Defaults to logger.Nop().
		Logger logger.Logger
	}

	// SQLError is the normalized form of a statement failure, built from the
	// server's error response when one is available.
	SQLError struct {
		// Message is the primary error text.
		Message string

		// Code is the SQLSTATE error code, when the server provided one.
		Code string

		// Detail and Hint are the server's secondary diagnostics.
		Detail string
		Hint   string

		// Position is the 1-based character offset into the executed batch
		// text where the error occurred (0 when unknown). Line and Column are
		// derived from it by scanning the batch for newlines.
		Position int
		Line     int
		Column   int

		// Where is the server's context string (e.g. a PL/pgSQL stack).
		Where string

		// File is the base name of the script file that produced the error.
		File string
	}

	// FileResult is the immutable outcome of executing one script file.
	FileResult struct {
		Name      string
		Path      string
		Success   bool
		Duration  time.Duration
		Savepoint string

		// Err is set when Success is false.
		Err *SQLError

		// RollbackOK reports whether the rollback to the file's savepoint
		// succeeded. Only set when a rollback was attempted.
		RollbackOK *bool
	}
)

// ErrNotConnected is returned by transaction and savepoint verbs invoked
// without an open connection.
var ErrNotConnected = errors.New("not connected to the database")

// New creates an executor over an existing session. Used by tests and by
// callers that manage their own connection; most callers want Connect.
func New(cfg Config) *Executor {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Executor{sess: cfg.Session, log: log}
}

// Connect opens a single connection using the resolved connection string and
// pins it so every subsequent statement runs on the same session. Server
// NOTICEs are routed to cfg.OnNotice.
//
// The returned error carries the driver's raw error as its cause so that it
// can be classified (see pkg/diagnose).
func Connect(ctx context.Context, cfg ConnectConfig) (*Executor, error) {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	base, err := pq.NewConnector(cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse connection string")
	}

	connector := pq.ConnectorWithNoticeHandler(base, func(n *pq.Error) {
		if cfg.OnNotice != nil {
			cfg.OnNotice(n.Message)
		}
	})

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to connect")
	}

	return &Executor{db: db, conn: conn, sess: conn, log: log}, nil
}

// Connected reports whether the executor has an open session.
func (e *Executor) Connected() bool { return e.sess != nil }

// InTransaction reports whether Begin has been issued without a matching
// Commit or Rollback.
func (e *Executor) InTransaction() bool { return e.inTx }

// Disconnect closes the connection. It is idempotent: calling it when
// already disconnected is a no-op, and close failures are logged, never
// returned. Server-initiated termination after a rollback commonly makes the
// close fail; that is not actionable for the caller.
func (e *Executor) Disconnect() {
	if e.sess == nil {
		return
	}

	if e.conn != nil {
		if err := e.conn.Close(); err != nil {
			e.log.Debug("closing connection: %v", err)
		}
		e.conn = nil
	}

	if e.db != nil {
		if err := e.db.Close(); err != nil {
			e.log.Debug("closing pool: %v", err)
		}
		e.db = nil
	}

	e.sess = nil
	e.inTx = false
}

// Begin starts the outer transaction.
func (e *Executor) Begin(ctx context.Context) error {
	if e.sess == nil {
		return ErrNotConnected
	}

	if _, err := e.sess.ExecContext(ctx, "BEGIN"); err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	e.inTx = true
	return nil
}

// Commit commits the outer transaction.
func (e *Executor) Commit(ctx context.Context) error {
	if e.sess == nil {
		return ErrNotConnected
	}

	if _, err := e.sess.ExecContext(ctx, "COMMIT"); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	e.inTx = false
	return nil
}

// Rollback rolls back the outer transaction.
func (e *Executor) Rollback(ctx context.Context) error {
	if e.sess == nil {
		return ErrNotConnected
	}

	if _, err := e.sess.ExecContext(ctx, "ROLLBACK"); err != nil {
		return errors.Wrap(err, "failed to rollback transaction")
	}

	e.inTx = false
	return nil
}

// CreateSavepoint creates a named savepoint. The identifier is always
// defensively quoted before interpolation: savepoint names derive from
// user-controlled file names, making this the sole injection boundary in the
// system.
func (e *Executor) CreateSavepoint(ctx context.Context, name string) error {
	if e.sess == nil {
		return ErrNotConnected
	}

	if _, err := e.sess.ExecContext(ctx, "SAVEPOINT "+pq.QuoteIdentifier(name)); err != nil {
		return errors.Wrapf(err, "failed to create savepoint %s", name)
	}

	return nil
}

// ReleaseSavepoint releases a named savepoint.
func (e *Executor) ReleaseSavepoint(ctx context.Context, name string) error {
	if e.sess == nil {
		return ErrNotConnected
	}

	if _, err := e.sess.ExecContext(ctx, "RELEASE SAVEPOINT "+pq.QuoteIdentifier(name)); err != nil {
		return errors.Wrapf(err, "failed to release savepoint %s", name)
	}

	return nil
}

// RollbackToSavepoint rolls back to a named savepoint and reports whether
// that worked. A savepoint rollback that itself fails leaves the connection
// in an indeterminate state; the caller must still attempt the outer
// rollback and disconnect regardless, so the failure is returned as false
// rather than as an error.
func (e *Executor) RollbackToSavepoint(ctx context.Context, name string) bool {
	if e.sess == nil {
		return false
	}

	if _, err := e.sess.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+pq.QuoteIdentifier(name)); err != nil {
		e.log.Warning("failed to rollback to savepoint %s: %v", name, err)
		return false
	}

	return true
}

// ExecuteFile executes one script file as a single statement batch inside a
// fresh savepoint. On success the savepoint is released; on failure the
// server error is normalized into a SQLError and a rollback to the savepoint
// is attempted.
//
// ExecuteFile fails closed: statement errors never propagate, they are
// captured in the returned FileResult. Duration is measured from just before
// the savepoint is created to just after the outcome is determined.
func (e *Executor) ExecuteFile(ctx context.Context, file scanner.ScriptFile) *FileResult {
	result := &FileResult{
		Name:      file.Name,
		Path:      file.Path,
		Savepoint: scanner.SavepointIdentifier(file.Name, file.Index),
	}

	if e.sess == nil {
		result.Err = &SQLError{Message: ErrNotConnected.Error(), File: file.Name}
		return result
	}

	content, err := scanner.ReadFile(file.Path)
	if err != nil {
		result.Err = &SQLError{Message: err.Error(), File: file.Name}
		return result
	}

	start := time.Now()
	defer func() { result.Duration = time.Since(start) }()

	if err := e.CreateSavepoint(ctx, result.Savepoint); err != nil {
		result.Err = normalizeSQLError(err, content, file.Name)
		return result
	}

	if _, err := e.sess.ExecContext(ctx, content); err != nil {
		result.Err = normalizeSQLError(err, content, file.Name)
		ok := e.RollbackToSavepoint(ctx, result.Savepoint)
		result.RollbackOK = &ok
		return result
	}

	if err := e.ReleaseSavepoint(ctx, result.Savepoint); err != nil {
		result.Err = normalizeSQLError(err, content, file.Name)
		ok := e.RollbackToSavepoint(ctx, result.Savepoint)
		result.RollbackOK = &ok
		return result
	}

	result.Success = true
	return result
}

// normalizeSQLError converts a driver error into a SQLError, pulling server
// diagnostics out of pq.Error when present and translating the character
// position into a 1-based line/column by scanning the batch text.
func normalizeSQLError(err error, batch, fileName string) *SQLError {
	sqlErr := &SQLError{
		Message: err.Error(),
		File:    fileName,
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return sqlErr
	}

	sqlErr.Message = pqErr.Message
	sqlErr.Code = string(pqErr.Code)
	sqlErr.Detail = pqErr.Detail
	sqlErr.Hint = pqErr.Hint
	sqlErr.Where = pqErr.Where

	if pos, err := strconv.Atoi(pqErr.Position); err == nil && pos > 0 {
		sqlErr.Position = pos
		sqlErr.Line, sqlErr.Column = locate(batch, pos)
	}

	return sqlErr
}

// locate translates a 1-based character offset into line and column numbers.
// Returns zeros when the offset falls outside the text.
func locate(text string, pos int) (line, column int) {
	line, column = 1, 1

	i := 1
	for _, r := range text {
		if i == pos {
			return line, column
		}

		if r == '\n' {
			line++
			column = 1
		} else {
			column++
		}
		i++
	}

	if i == pos {
		return line, column
	}

	return 0, 0
}

// Error implements the error interface so a SQLError can be wrapped and
// logged like any other failure.
func (e *SQLError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (SQLSTATE %s)", e.Message, e.Code)
	}
	return e.Message
}
