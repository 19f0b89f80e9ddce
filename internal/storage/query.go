package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// rowScanner is satisfied by *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// queryAll runs query and scans every row with scan.
func queryAll[T any](ctx context.Context, exec Executor, scan func(rowScanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, newQueryError(query, err)
	}
	return items, nil
}

// queryOne returns the first row of query, or nil when there is none.
func queryOne[T any](ctx context.Context, exec Executor, scan func(rowScanner) (T, error), query string, args ...any) (*T, error) {
	items, err := queryAll(ctx, exec, scan, query, args...)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func scanAmount(row rowScanner) (decimal.Decimal, error) {
	var d decimal.Decimal
	if err := row.Scan(&d); err != nil {
		return d, fmt.Errorf("failed to scan amount: %w", err)
	}
	return d, nil
}

// sumAmounts adds up the single money column selected by query. Money is
// stored as decimal text, so the sum is taken here rather than by SQLite.
func sumAmounts(ctx context.Context, exec Executor, query string, args ...any) (decimal.Decimal, error) {
	amounts, err := queryAll(ctx, exec, scanAmount, query, args...)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.Sum(decimal.Zero, amounts...), nil
}

func countRows(ctx context.Context, exec Executor, table string) (int, error) {
	rows, err := exec.Query(ctx, "SELECT COUNT(*) AS count FROM "+table)
	if err != nil {
		return 0, err
	}
	defer func() { _ = rows.Close() }()

	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, fmt.Errorf("failed to scan %s count: %w", table, err)
		}
	}
	return n, rows.Err()
}

func execAll(ctx context.Context, exec Executor, statements ...string) error {
	for _, stmt := range statements {
		if _, err := exec.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func deleteByID(ctx context.Context, exec Executor, table string, id int64) (bool, error) {
	res, err := exec.Exec(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	return res.RowsAffected > 0, nil
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// updateBuilder assembles an UPDATE from only the fields a caller supplied.
type updateBuilder struct {
	table   string
	columns []string
	args    []any
}

func newUpdate(table string) *updateBuilder {
	return &updateBuilder{table: table}
}

func (b *updateBuilder) set(column string, value any) {
	b.columns = append(b.columns, column+" = ?")
	b.args = append(b.args, value)
}

// setIf adds column when v is non-nil.
func setIf[V any](b *updateBuilder, column string, v *V) {
	if v != nil {
		b.set(column, *v)
	}
}

func (b *updateBuilder) empty() bool {
	return len(b.columns) == 0
}

// run applies the update to row id and reports whether a row matched.
// An empty update touches nothing and reports false.
func (b *updateBuilder) run(ctx context.Context, exec Executor, id int64) (bool, error) {
	if b.empty() {
		return false, nil
	}
	query := fmt.Sprintf("UPDATE %s SET %s, updatedAt = CURRENT_TIMESTAMP WHERE id = ?",
		b.table, strings.Join(b.columns, ", "))
	res, err := exec.Exec(ctx, query, append(b.args, id)...)
	if err != nil {
		return false, err
	}
	return res.RowsAffected > 0, nil
}
