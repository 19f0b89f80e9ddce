package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// ErrSnapshotExists is returned when the snapshot destination is taken.
var ErrSnapshotExists = errors.New("snapshot already exists")

// SnapshotInfo describes a snapshot written by Snapshot.
type SnapshotInfo struct {
	CreatedAt time.Time      `json:"createdAt"`
	RowCounts map[string]int `json:"rowCounts"`
	Path      string         `json:"path"`
	Version   string         `json:"version"`
	FileSize  int64          `json:"fileSize"`
}

// SnapshotFileName returns the conventional snapshot name for now.
func SnapshotFileName(now time.Time) string {
	return fmt.Sprintf("tally-%s.db", now.Format("2006-01-02-150405"))
}

// Snapshot writes a consistent copy of the open database to dest and
// checks the copy's integrity. dest must not exist. Works for in-memory
// databases too.
func (d *Database) Snapshot(ctx context.Context, dest string) (*SnapshotInfo, error) {
	if err := validateString(dest, "dest"); err != nil {
		return nil, err
	}
	if _, err := os.Stat(dest); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotExists, dest)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0750); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	counts := make(map[string]int, len(coreTables))
	for _, table := range coreTables {
		n, err := countRows(ctx, d, table)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = n
	}

	if _, err := d.Exec(ctx, "VACUUM INTO ?", dest); err != nil {
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}

	if err := verifySnapshot(ctx, dest); err != nil {
		if rmErr := os.Remove(dest); rmErr != nil {
			slog.Error("failed to remove corrupt snapshot", "path", dest, "error", rmErr)
		}
		return nil, err
	}

	stat, err := os.Stat(dest)
	if err != nil {
		return nil, fmt.Errorf("failed to stat snapshot: %w", err)
	}

	info := &SnapshotInfo{
		Path:      dest,
		CreatedAt: time.Now(),
		Version:   d.Version(ctx),
		RowCounts: counts,
		FileSize:  stat.Size(),
	}
	slog.Info("database snapshot written", "path", dest, "bytes", info.FileSize)
	return info, nil
}

func verifySnapshot(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("failed to close snapshot", "error", err)
		}
	}()

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("failed to check snapshot integrity: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("snapshot integrity check failed: %s", result)
	}
	return nil
}
