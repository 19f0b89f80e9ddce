package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/model"
)

func balancesCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "balances",
		Aliases: []string{"balance"},
		Short:   "Track monthly bank balances",
	}

	cmd.AddCommand(listBalancesCmd(e))
	cmd.AddCommand(setBalanceCmd(e))
	cmd.AddCommand(initYearCmd(e))

	return cmd
}

func listBalancesCmd(e *env) *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List monthly balances",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			l, cleanup, err := e.openLedger(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			var balances []model.BankBalance
			if year > 0 {
				balances, err = l.balances.FindByYear(ctx, year)
			} else {
				balances, err = l.balances.FindAll(ctx)
			}
			if err != nil {
				return fmt.Errorf("failed to get bank balances: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(balances) == 0 {
				fmt.Fprintln(out, cli.FormatInfo("No bank balances found. Use 'tally balances init-year' to create a year."))
				return nil
			}

			rows := make([][]string, 0, len(balances))
			for _, b := range balances {
				rows = append(rows, []string{
					fmt.Sprintf("%04d-%02d", b.Year, b.Month),
					b.OpeningBalance.StringFixed(2),
					b.ClosingBalance.StringFixed(2),
					cli.FormatAmount(b.Change()),
				})
			}
			return cli.WriteTable(out, []string{"Month", "Opening", "Closing", "Change"}, rows)
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "Only show this year")

	return cmd
}

func setBalanceCmd(e *env) *cobra.Command {
	var opening, closing string

	cmd := &cobra.Command{
		Use:   "set <year> <month>",
		Short: "Set the opening and closing balance of a month",
		Long:  `Set a month's balances, creating the month if it does not exist yet.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			year, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid year %q: %w", args[0], err)
			}
			month, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid month %q: %w", args[1], err)
			}

			var fields model.BankBalanceUpdate
			if cmd.Flags().Changed("opening") {
				v, err := parseAmount(opening)
				if err != nil {
					return err
				}
				fields.OpeningBalance = &v
			}
			if cmd.Flags().Changed("closing") {
				v, err := parseAmount(closing)
				if err != nil {
					return err
				}
				fields.ClosingBalance = &v
			}

			l, cleanup, err := e.openLedger(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			existing, err := l.balances.FindByYearMonth(ctx, year, month)
			if err != nil {
				return fmt.Errorf("failed to get bank balance: %w", err)
			}

			out := cmd.OutOrStdout()
			if existing == nil {
				in := model.NewBankBalance{Year: year, Month: month}
				if fields.OpeningBalance != nil {
					in.OpeningBalance = *fields.OpeningBalance
				}
				if fields.ClosingBalance != nil {
					in.ClosingBalance = *fields.ClosingBalance
				}
				if _, err := l.balances.Create(ctx, in); err != nil {
					return fmt.Errorf("failed to create bank balance: %w", err)
				}
				fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Created balance for %04d-%02d", year, month)))
				return nil
			}

			if _, err := l.balances.Update(ctx, existing.ID, fields); err != nil {
				return fmt.Errorf("failed to update bank balance: %w", err)
			}
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Updated balance for %04d-%02d", year, month)))
			return nil
		},
	}

	cmd.Flags().StringVar(&opening, "opening", "", "Opening balance")
	cmd.Flags().StringVar(&closing, "closing", "", "Closing balance")

	return cmd
}

func initYearCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "init-year <year>",
		Short: "Create zero balances for every month of a year",
		Long:  `Create twelve zero balances for year. Nothing is created if the year already has any balance.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			year, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid year %q: %w", args[0], err)
			}

			l, cleanup, err := e.openLedger(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			created, err := l.balances.InitializeYear(ctx, year)
			if err != nil {
				return fmt.Errorf("failed to initialize year: %w", err)
			}

			out := cmd.OutOrStdout()
			if created == 0 {
				fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("%d already has balances", year)))
				return nil
			}
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Created %d months for %d", created, year)))
			return nil
		},
	}
}
