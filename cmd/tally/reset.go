package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/storage"
)

func resetCmd(e *env) *cobra.Command {
	var (
		force  bool
		reinit bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the database",
		Long: `Reset closes and deletes the database file. With --init a fresh database is
created right away.

This is a destructive operation. Take a snapshot first if you may want the
data back.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			cfg, err := e.config()
			if err != nil {
				return err
			}

			if !force {
				fmt.Fprintf(out, "This will delete %s.\n\nAre you sure you want to continue? [y/N]: ", cfg.Database.Path)
				response, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && response == "" {
					return fmt.Errorf("failed to read input: %w", err)
				}
				if r := strings.TrimSpace(response); r != "y" && r != "Y" {
					fmt.Fprintln(out, "Reset canceled.")
					return nil
				}
			}

			db, err := storage.New(storage.Options{Path: cfg.Database.Path, BusyTimeout: cfg.Database.BusyTimeout})
			if err != nil {
				return fmt.Errorf("failed to create database: %w", err)
			}
			if err := db.Reset(); err != nil {
				return fmt.Errorf("failed to reset database: %w", err)
			}
			fmt.Fprintln(out, cli.FormatSuccess("Database deleted"))

			if !reinit {
				return nil
			}

			_, cleanup, err := e.openLedger(ctx)
			if err != nil {
				return err
			}
			cleanup()
			fmt.Fprintln(out, cli.FormatSuccess("Fresh database created"))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")
	cmd.Flags().BoolVar(&reinit, "init", false, "Create a fresh database after deleting")

	return cmd
}
