package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// DefaultBusyTimeout is used when Options.BusyTimeout is zero.
const DefaultBusyTimeout = 5 * time.Second

// SetupFunc runs once against a freshly opened database.
type SetupFunc func(ctx context.Context, exec Executor) error

// Options configures a Database.
type Options struct {
	Path        string
	BusyTimeout time.Duration
}

// Database owns the single live SQLite connection, its transaction state
// and the change-event subscribers. Construct one with New and share it by
// pointer; there is no package-level instance.
type Database struct {
	db          *sql.DB
	events      *eventBus
	path        string
	busyTimeout time.Duration
	mu          sync.Mutex
	initMu      sync.Mutex // serializes Initialize, setup included
	inTx        bool
	resetting   atomic.Bool
}

// New creates an unopened Database. Call Initialize before use.
func New(opts Options) (*Database, error) {
	if err := validateString(opts.Path, "path"); err != nil {
		return nil, err
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = DefaultBusyTimeout
	}
	return &Database{
		path:        opts.Path,
		busyTimeout: opts.BusyTimeout,
		events:      newEventBus(),
	}, nil
}

// Path returns the database location.
func (d *Database) Path() string {
	return d.path
}

// IsOpen reports whether a connection is currently open.
func (d *Database) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.db != nil
}

func (d *Database) inMemory() bool {
	return d.path == MemoryPath
}

// Initialize opens the connection and runs setup against it. Calling it
// while a connection is already open is a no-op. Concurrent callers wait
// for the first one's setup to finish before returning. If setup fails the
// new connection is closed again.
func (d *Database) Initialize(ctx context.Context, setup SetupFunc) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	d.initMu.Lock()
	defer d.initMu.Unlock()

	d.mu.Lock()
	if d.db != nil {
		d.mu.Unlock()
		slog.Debug("database already initialized", "path", d.path)
		return nil
	}
	db, err := d.open(ctx)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	d.db = db
	d.mu.Unlock()

	slog.Info("database opened", "path", d.path)

	if setup != nil {
		if err := setup(ctx, d); err != nil {
			if closeErr := d.Close(); closeErr != nil {
				slog.Warn("failed to close database after setup error", "error", closeErr)
			}
			return fmt.Errorf("failed to run database setup: %w", err)
		}
	}
	return nil
}

func (d *Database) open(ctx context.Context) (*sql.DB, error) {
	if !d.inMemory() {
		dir := filepath.Dir(d.path)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_foreign_keys=on",
		d.path, d.busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: an in-memory database lives and dies with it, and
	// there is never more than one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Close closes the connection. Closing an unopened database is a no-op.
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	if err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// Reset closes and discards the connection and, for a file database, the
// file itself. It does not reopen; call Initialize again. A Reset issued
// while another is running returns immediately.
func (d *Database) Reset() error {
	if !d.resetting.CompareAndSwap(false, true) {
		slog.Debug("database reset already in progress")
		return nil
	}
	defer d.resetting.Store(false)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.inTx {
		return ErrTransactionConflict
	}
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			slog.Warn("failed to close database during reset", "error", err)
		}
		d.db = nil
	}

	if !d.inMemory() {
		for _, suffix := range []string{"", "-wal", "-shm"} {
			if err := os.Remove(d.path + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to remove database file: %w", err)
			}
		}
	}

	slog.Info("database reset", "path", d.path)
	return nil
}

// conn returns the open handle for a non-transactional statement.
func (d *Database) conn() (*sql.DB, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil, ErrNotInitialized
	}
	// The only pooled connection belongs to the open transaction; waiting
	// for it here would block forever.
	if d.inTx {
		return nil, ErrTransactionConflict
	}
	return d.db, nil
}

// ExecuteQuery implements Executor.
func (d *Database) ExecuteQuery(ctx context.Context, query string, args ...any) (*QueryResult, error) {
	db, err := d.conn()
	if err != nil {
		return nil, err
	}
	return executeQueryOn(ctx, db, query, args)
}

// Exec implements Executor.
func (d *Database) Exec(ctx context.Context, query string, args ...any) (ExecResult, error) {
	db, err := d.conn()
	if err != nil {
		return ExecResult{}, err
	}
	return execOn(ctx, db, query, args)
}

// Query implements Executor.
func (d *Database) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	db, err := d.conn()
	if err != nil {
		return nil, err
	}
	return queryOn(ctx, db, query, args)
}

// Transaction implements Executor. Events raised by fn are delivered after
// the commit and discarded on rollback.
func (d *Database) Transaction(ctx context.Context, fn func(ctx context.Context, tx Executor) error) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	d.mu.Lock()
	if d.db == nil {
		d.mu.Unlock()
		return ErrNotInitialized
	}
	if d.inTx {
		d.mu.Unlock()
		return ErrTransactionConflict
	}
	d.inTx = true
	db := d.db
	d.mu.Unlock()

	pending, err := func() ([]Event, error) {
		defer func() {
			d.mu.Lock()
			d.inTx = false
			d.mu.Unlock()
		}()
		return runTx(ctx, db, fn)
	}()
	if err != nil {
		return err
	}

	for _, event := range pending {
		d.events.emit(event)
	}
	return nil
}

func runTx(ctx context.Context, db *sql.DB, fn func(context.Context, Executor) error) (pending []Event, err error) {
	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", newQueryError("BEGIN", err))
	}

	tx := &txExecutor{tx: sqlTx}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			slog.Warn("failed to roll back transaction", "error", rbErr)
		}
		return nil, err
	}

	if err := sqlTx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", newQueryError("COMMIT", err))
	}
	return tx.pending, nil
}

// Notify implements Executor by delivering event immediately.
func (d *Database) Notify(event Event) {
	d.events.emit(event)
}

// On registers fn for event. Delivery order between listeners is not
// guaranteed; treat events as hints and re-query.
func (d *Database) On(event Event, fn Listener) Subscription {
	return d.events.on(event, fn)
}

// Off removes a listener registered with On.
func (d *Database) Off(sub Subscription) {
	d.events.off(sub)
}

// TableExists reports whether table exists. Errors read as false.
func (d *Database) TableExists(ctx context.Context, table string) bool {
	rows, err := d.Query(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table)
	if err != nil {
		slog.Debug("table existence check failed", "table", table, "error", err)
		return false
	}
	defer func() { _ = rows.Close() }()
	return rows.Next()
}

// IsInitialized reports whether all core tables exist and the categories
// table holds at least one row. Errors read as false.
func (d *Database) IsInitialized(ctx context.Context) bool {
	for _, table := range coreTables {
		if !d.TableExists(ctx, table) {
			return false
		}
	}

	n, err := countRows(ctx, d, tableCategories)
	if err != nil {
		slog.Warn("failed to check database initialization", "error", err)
		return false
	}
	return n > 0
}

// Version returns the recorded schema version, or DefaultVersion when it
// cannot be read for any reason.
func (d *Database) Version(ctx context.Context) string {
	rows, err := d.Query(ctx, `SELECT value FROM database_info WHERE key = ?`, versionKey)
	if err != nil {
		slog.Debug("schema version unavailable", "error", err)
		return DefaultVersion
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		return DefaultVersion
	}
	var version string
	if err := rows.Scan(&version); err != nil || version == "" {
		return DefaultVersion
	}
	return version
}
