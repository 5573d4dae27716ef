// Package dbopen opens the SQLite databases used by the local sync API on
// the modernc.org/sqlite driver, with pragmas applied through Exec.
//
//	db, err := dbopen.Open("sync.db", dbopen.WithSchema(schema))
package dbopen

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Memory is the DSN for a private in-memory database.
const Memory = ":memory:"

type options struct {
	driver      string
	busyTimeout int
	schemas     []string
	mkdirAll    bool
}

// Option customises Open.
type Option func(*options)

// WithDriver sets the database/sql driver name. Default: "sqlite".
func WithDriver(name string) Option { return func(o *options) { o.driver = name } }

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds. Default: 5000.
func WithBusyTimeout(ms int) Option { return func(o *options) { o.busyTimeout = ms } }

// WithSchema queues SQL executed after the pragmas.
func WithSchema(s string) Option { return func(o *options) { o.schemas = append(o.schemas, s) } }

// WithMkdirAll creates the parent directory of a file database.
func WithMkdirAll() Option { return func(o *options) { o.mkdirAll = true } }

// Open opens path and applies foreign_keys, busy_timeout and, for file
// databases, WAL journaling. An in-memory database is pinned to a single
// connection since every connection to ":memory:" is a separate database.
func Open(path string, opts ...Option) (*sql.DB, error) {
	o := options{driver: "sqlite", busyTimeout: 5000}
	for _, fn := range opts {
		fn(&o)
	}
	if path == "" {
		path = Memory
	}
	mem := path == Memory

	if o.mkdirAll && !mem {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("dbopen: mkdir: %w", err)
		}
	}

	db, err := sql.Open(o.driver, path)
	if err != nil {
		return nil, fmt.Errorf("dbopen: open: %w", err)
	}
	if mem {
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA busy_timeout = %d", o.busyTimeout),
	}
	if !mem {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL", "PRAGMA synchronous = NORMAL")
	}
	for _, p := range append(pragmas, o.schemas...) {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("dbopen: exec %q: %w", firstLine(p), err)
		}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("dbopen: ping: %w", err)
	}
	return db, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// retryDelays is the backoff between RunTx attempts; its length plus one is
// the number of attempts.
var retryDelays = []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}

// IsBusy reports whether err carries SQLITE_BUSY or SQLITE_LOCKED, including
// their extended codes.
func IsBusy(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

// RunTx runs fn in a transaction. A BUSY failure is retried after each delay
// in retryDelays; the last failure is returned without waiting.
func RunTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	for attempt := 0; ; attempt++ {
		err := runOnce(ctx, db, fn)
		if err == nil || !IsBusy(err) || attempt == len(retryDelays) {
			return err
		}
		t := time.NewTimer(retryDelays[attempt])
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("dbopen: retry: %w", ctx.Err())
		case <-t.C:
		}
	}
}

func runOnce(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("dbopen: begin: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("dbopen: commit: %w", err)
	}
	return nil
}
