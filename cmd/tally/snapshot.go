package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/storage"
)

func snapshotCmd(e *env) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "snapshot [dest]",
		Short: "Write a consistent copy of the database",
		Long: `Write a copy of the database to dest, or to a timestamped file in the
snapshot directory, and verify the copy's integrity.`,
		Example: `  # Snapshot before a large import
  tally snapshot
  tally import big.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			l, cleanup, err := e.openLedger(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			var dest string
			if len(args) == 1 {
				dest = args[0]
			} else {
				if !cmd.Flags().Changed("dir") {
					dir = l.cfg.Snapshot.Dir
				}
				dest = filepath.Join(dir, storage.SnapshotFileName(e.now()))
			}

			info, err := l.db.Snapshot(ctx, dest)
			if err != nil {
				return fmt.Errorf("failed to create snapshot: %w", err)
			}

			tables := make([]string, 0, len(info.RowCounts))
			for table := range info.RowCounts {
				tables = append(tables, table)
			}
			sort.Strings(tables)
			counts := make([]string, 0, len(tables))
			for _, table := range tables {
				counts = append(counts, fmt.Sprintf("%s: %d", table, info.RowCounts[table]))
			}

			content := fmt.Sprintf("Path:    %s\nSize:    %d bytes\nSchema:  %s\n%s",
				info.Path, info.FileSize, info.Version, strings.Join(counts, "\n"))
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox("Snapshot created", content))
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Snapshot directory (default: snapshot.dir)")

	return cmd
}
