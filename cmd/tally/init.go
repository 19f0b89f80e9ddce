package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/storage"
)

func initCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database",
		Long: `Create the database schema and, unless database.seed is false, the sample
categories, budgets, bank balances and transactions. Running it again on an
existing database changes nothing.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			l, cleanup, err := e.openLedger(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			counts := map[string]func() (int, error){
				"categories":    func() (int, error) { return l.categories.Count(ctx) },
				"budgets":       func() (int, error) { return l.budgets.Count(ctx) },
				"transactions":  func() (int, error) { return l.transactions.Count(ctx) },
				"bank_balances": func() (int, error) { return l.balances.Count(ctx) },
			}

			rows := make([][]string, 0, len(storage.ExportableTables))
			for _, table := range storage.ExportableTables {
				n, err := counts[table]()
				if err != nil {
					return fmt.Errorf("failed to count %s: %w", table, err)
				}
				rows = append(rows, []string{table, fmt.Sprint(n)})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Database ready at %s (schema %s)", l.db.Path(), l.db.Version(ctx))))
			return cli.WriteTable(out, []string{"Table", "Rows"}, rows)
		},
	}
}
