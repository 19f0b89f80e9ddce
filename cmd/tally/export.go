package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/storage"
)

func exportCmd(e *env) *cobra.Command {
	var (
		dir    string
		stdout bool
	)

	cmd := &cobra.Command{
		Use:   "export [table]...",
		Short: "Export tables as JSON",
		Long: `Write every row of the named tables, or of all tables, as indented JSON to
{table}-{YYYY-MM-DD}.json in the export directory.`,
		Example: `  # Export everything to the configured export.dir
  tally export

  # Print the categories table
  tally export categories --stdout`,
		ValidArgs: storage.ExportableTables,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			tables := args
			if len(tables) == 0 {
				tables = storage.ExportableTables
			}
			for _, table := range tables {
				if !slices.Contains(storage.ExportableTables, table) {
					return common.NewUserError(fmt.Sprintf("unknown table %q", table), storage.ErrUnknownTable)
				}
			}

			l, cleanup, err := e.openLedger(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			if stdout {
				for _, table := range tables {
					if err := storage.ExportTable(ctx, l.db, table, out); err != nil {
						return err
					}
				}
				return nil
			}

			if !cmd.Flags().Changed("dir") {
				dir = l.cfg.Export.Dir
			}
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create export directory: %w", err)
			}

			for _, table := range tables {
				path := filepath.Join(dir, storage.ExportFileName(table, e.now()))
				if err := exportToFile(cmd, l, table, path); err != nil {
					return err
				}
				fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Exported %s to %s", table, path)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Export directory (default: export.dir)")
	cmd.Flags().BoolVar(&stdout, "stdout", false, "Print to stdout instead of writing files")

	return cmd
}

func exportToFile(cmd *cobra.Command, l *ledger, table, path string) (err error) {
	f, err := os.Create(path) // #nosec G304 -- path is built from the export directory
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close export file: %w", closeErr)
		}
	}()

	if err := storage.ExportTable(cmd.Context(), l.db, table, f); err != nil {
		return err
	}
	slog.Debug("exported table", "table", table, "path", path)
	return nil
}
