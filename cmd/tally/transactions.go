package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/storage"
)

func transactionsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"tx"},
		Short:   "Record and list transactions",
	}

	cmd.AddCommand(listTransactionsCmd(e))
	cmd.AddCommand(addTransactionCmd(e))
	cmd.AddCommand(deleteTransactionCmd(e))

	return cmd
}

func listTransactionsCmd(e *env) *cobra.Command {
	var (
		month string
		all   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			start, end, _, err := e.monthRange(month)
			if err != nil {
				return err
			}

			l, cleanup, err := e.openLedger(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			var transactions []model.TransactionWithCategory
			if all {
				transactions, err = l.transactions.FindAllWithCategory(ctx)
			} else {
				transactions, err = l.transactions.FindByDateRangeWithCategory(ctx, start, end)
			}
			if err != nil {
				return fmt.Errorf("failed to get transactions: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(transactions) == 0 {
				fmt.Fprintln(out, cli.FormatInfo("No transactions found."))
				return nil
			}

			rows := make([][]string, 0, len(transactions))
			for _, t := range transactions {
				amount := t.Amount
				if t.Type == model.TransactionExpense {
					amount = amount.Neg()
				}
				rows = append(rows, []string{
					strconv.FormatInt(t.ID, 10),
					displayDate(t.Date),
					deref(t.CategoryIcon, "") + " " + deref(t.CategoryName, "-"),
					deref(t.Description, ""),
					cli.FormatAmount(amount),
				})
			}
			return cli.WriteTable(out, []string{"ID", "Date", "Category", "Description", "Amount"}, rows)
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "Month as YYYY-MM (default: current month)")
	cmd.Flags().BoolVar(&all, "all", false, "List every transaction")

	return cmd
}

// displayDate shortens a stored ISO timestamp to its calendar day.
func displayDate(date string) string {
	if len(date) >= len("2006-01-02") {
		return date[:len("2006-01-02")]
	}
	return date
}

func addTransactionCmd(e *env) *cobra.Command {
	var (
		categoryID  int64
		budgetID    int64
		date        string
		description string
		txType      string
	)

	cmd := &cobra.Command{
		Use:   "add <amount>",
		Short: "Record a transaction",
		Long: `Record a transaction against a category and budget. The type defaults to the
category's type and the date to now.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			amount, err := parseAmount(args[0])
			if err != nil {
				return err
			}

			when := storage.FormatISO(e.now())
			if date != "" {
				parsed, err := time.ParseInLocation("2006-01-02", date, time.Local)
				if err != nil {
					return common.NewUserError(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", date), common.ErrInvalidInput)
				}
				when = storage.FormatISO(parsed)
			}

			l, cleanup, err := e.openLedger(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			category, err := l.categories.FindByID(ctx, categoryID)
			if err != nil {
				return fmt.Errorf("failed to get category: %w", err)
			}
			if category == nil {
				return common.NewUserError(fmt.Sprintf("category %d not found", categoryID), common.ErrNotFound)
			}

			typ := model.TransactionTypeFor(category.Type)
			if txType != "" {
				typ = model.TransactionType(txType)
			}

			in := model.NewTransaction{
				Amount:     amount,
				CategoryID: categoryID,
				BudgetID:   budgetID,
				Date:       when,
				Type:       typ,
			}
			if description != "" {
				in.Description = &description
			}

			txn, err := l.transactions.Create(ctx, in)
			if err != nil {
				return fmt.Errorf("failed to create transaction: %w", err)
			}

			if exceeded, err := l.budgets.RefreshExceeded(ctx, budgetID); err == nil && exceeded {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning(fmt.Sprintf("Budget %d is now exceeded", budgetID)))
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Recorded %s %s (ID: %d)", txn.Type, txn.Amount.StringFixed(2), txn.ID)))
			return nil
		},
	}

	cmd.Flags().Int64Var(&categoryID, "category", 0, "Category ID")
	cmd.Flags().Int64Var(&budgetID, "budget", 0, "Budget ID")
	cmd.Flags().StringVar(&date, "date", "", "Date as YYYY-MM-DD (default: now)")
	cmd.Flags().StringVar(&description, "description", "", "Description")
	cmd.Flags().StringVar(&txType, "type", "", "Type (income, expense; default: from category)")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("budget")

	return cmd
}

func deleteTransactionCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseID(args[0], "transaction")
			if err != nil {
				return err
			}

			l, cleanup, err := e.openLedger(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			deleted, err := l.transactions.Delete(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to delete transaction: %w", err)
			}
			if !deleted {
				return common.NewUserError(fmt.Sprintf("transaction %d not found", id), common.ErrNotFound)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted transaction %d", id)))
			return nil
		},
	}
}
