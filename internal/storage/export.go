package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"time"
)

// ExportableTables are the tables ExportTable accepts.
var ExportableTables = []string{tableCategories, tableBudgets, tableTransactions, tableBankBalances}

// ExportFileName returns the conventional file name for an export of
// table taken at now: {table}-{YYYY-MM-DD}.json.
func ExportFileName(table string, now time.Time) string {
	return fmt.Sprintf("%s-%s.json", table, now.Format("2006-01-02"))
}

// ExportTable writes every row of table to w as an indented JSON array.
// Each object keeps the table's column order.
func ExportTable(ctx context.Context, exec Executor, table string, w io.Writer) error {
	if !slices.Contains(ExportableTables, table) {
		return fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}

	result, err := exec.ExecuteQuery(ctx, "SELECT * FROM "+table+" ORDER BY id")
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", table, err)
	}

	var raw bytes.Buffer
	raw.WriteByte('[')
	for i, row := range result.Rows {
		if i > 0 {
			raw.WriteByte(',')
		}
		if err := writeOrderedRow(&raw, result.Columns, row); err != nil {
			return fmt.Errorf("failed to encode %s row %d: %w", table, i, err)
		}
	}
	raw.WriteByte(']')

	var out bytes.Buffer
	if err := json.Indent(&out, raw.Bytes(), "", "  "); err != nil {
		return fmt.Errorf("failed to format %s export: %w", table, err)
	}
	out.WriteByte('\n')

	if _, err := out.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write %s export: %w", table, err)
	}
	return nil
}

func writeOrderedRow(buf *bytes.Buffer, columns []string, row Row) error {
	buf.WriteByte('{')
	for i, col := range columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return err
		}
		value, err := json.Marshal(row[col])
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return nil
}
