package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Executor runs statements against the database. It is implemented by the
// connection manager and by the transaction-scoped executor handed to
// Transaction bodies, so repositories work the same way in both.
type Executor interface {
	// ExecuteQuery runs any statement. Reads return rows keyed by column
	// name; writes return the affected row count, and inserts also return
	// the last insert id.
	ExecuteQuery(ctx context.Context, query string, args ...any) (*QueryResult, error)
	// Exec runs a write statement.
	Exec(ctx context.Context, query string, args ...any) (ExecResult, error)
	// Query runs a read statement for typed scanning. Callers close the rows.
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	// Transaction runs fn atomically. fn's error rolls everything back and
	// is returned unchanged. Nesting fails with ErrTransactionConflict.
	Transaction(ctx context.Context, fn func(ctx context.Context, tx Executor) error) error
	// Notify publishes a change event to subscribers.
	Notify(event Event)
}

// Row is one result row keyed by column name.
type Row map[string]any

// QueryResult is the generic outcome of ExecuteQuery.
type QueryResult struct {
	Columns      []string // projection order
	Rows         []Row
	LastInsertID int64
	RowsAffected int64
}

// ExecResult is the outcome of a write statement.
type ExecResult struct {
	LastInsertID int64
	RowsAffected int64
}

// queryable is satisfied by both *sql.DB and *sql.Tx.
type queryable interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func leadingKeyword(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

// isReadStatement reports whether query produces rows.
func isReadStatement(query string) bool {
	switch leadingKeyword(query) {
	case "SELECT", "WITH", "PRAGMA", "EXPLAIN", "VALUES":
		return true
	}
	return false
}

// isInsertStatement reports whether query adds rows. Only inserts report
// a last insert id; the driver otherwise returns the connection's previous
// rowid.
func isInsertStatement(query string) bool {
	switch leadingKeyword(query) {
	case "INSERT", "REPLACE":
		return true
	}
	return false
}

func execOn(ctx context.Context, q queryable, query string, args []any) (ExecResult, error) {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return ExecResult{}, newQueryError(query, err)
	}

	var out ExecResult
	if n, err := res.RowsAffected(); err == nil {
		out.RowsAffected = n
	}
	if !isInsertStatement(query) {
		return out, nil
	}
	if id, err := res.LastInsertId(); err == nil {
		out.LastInsertID = id
	}
	return out, nil
}

func queryOn(ctx context.Context, q queryable, query string, args []any) (*sql.Rows, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, newQueryError(query, err)
	}
	return rows, nil
}

func executeQueryOn(ctx context.Context, q queryable, query string, args []any) (*QueryResult, error) {
	if !isReadStatement(query) {
		res, err := execOn(ctx, q, query, args)
		if err != nil {
			return nil, err
		}
		return &QueryResult{LastInsertID: res.LastInsertID, RowsAffected: res.RowsAffected}, nil
	}

	rows, err := queryOn(ctx, q, query, args)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, newQueryError(query, err)
	}

	result := &QueryResult{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, newQueryError(query, err)
	}
	return result, nil
}

// txExecutor is the Executor handed to Transaction bodies. Events raised
// inside the transaction are held until it commits.
type txExecutor struct {
	tx      *sql.Tx
	pending []Event
}

func (t *txExecutor) ExecuteQuery(ctx context.Context, query string, args ...any) (*QueryResult, error) {
	return executeQueryOn(ctx, t.tx, query, args)
}

func (t *txExecutor) Exec(ctx context.Context, query string, args ...any) (ExecResult, error) {
	return execOn(ctx, t.tx, query, args)
}

func (t *txExecutor) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return queryOn(ctx, t.tx, query, args)
}

func (t *txExecutor) Transaction(_ context.Context, _ func(context.Context, Executor) error) error {
	return ErrTransactionConflict
}

func (t *txExecutor) Notify(event Event) {
	for _, e := range t.pending {
		if e == event {
			return
		}
	}
	t.pending = append(t.pending, event)
}
