package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/model"
)

type summaryReport struct {
	Month      string                  `json:"month"`
	Income     decimal.Decimal         `json:"totalIncome"`
	Expense    decimal.Decimal         `json:"totalExpense"`
	Net        decimal.Decimal         `json:"net"`
	Categories []model.CategorySummary `json:"categories"`
	Budgets    []model.BudgetSummary   `json:"budgets"`
}

func summaryCmd(e *env) *cobra.Command {
	var (
		month  string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show totals and spending by category and budget",
		Long: `Show all-time income and expense totals, then the month's spending per
category and per budget.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			start, end, key, err := e.monthRange(month)
			if err != nil {
				return err
			}

			l, cleanup, err := e.openLedger(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			report := summaryReport{Month: key}
			if report.Income, err = l.transactions.TotalIncome(ctx); err != nil {
				return fmt.Errorf("failed to total income: %w", err)
			}
			if report.Expense, err = l.transactions.TotalExpense(ctx); err != nil {
				return fmt.Errorf("failed to total expenses: %w", err)
			}
			report.Net = report.Income.Sub(report.Expense)
			if report.Categories, err = l.transactions.SummaryByCategory(ctx, start, end); err != nil {
				return fmt.Errorf("failed to summarize categories: %w", err)
			}
			if report.Budgets, err = l.transactions.SummaryByBudget(ctx, start, end); err != nil {
				return fmt.Errorf("failed to summarize budgets: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			totals := strings.Join([]string{
				"Income:  " + cli.FormatAmount(report.Income),
				"Expense: " + cli.FormatAmount(report.Expense.Neg()),
				"Net:     " + cli.FormatAmount(report.Net),
			}, "\n")
			fmt.Fprintln(out, cli.RenderBox("Totals", totals))

			fmt.Fprintln(out, cli.FormatTitle("Spending by category, "+key))
			rows := make([][]string, 0, len(report.Categories))
			for _, c := range report.Categories {
				rows = append(rows, []string{deref(c.CategoryName, "-"), strconv.Itoa(c.Count), c.Total.StringFixed(2)})
			}
			if err := cli.WriteTable(out, []string{"Category", "Count", "Total"}, rows); err != nil {
				return err
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, cli.FormatTitle("Budgets, "+key))
			rows = rows[:0]
			for _, b := range report.Budgets {
				status := cli.SuccessStyle.Render("ok")
				if b.IsExceeded {
					status = cli.ErrorStyle.Render("exceeded")
				}
				rows = append(rows, []string{b.BudgetName, b.TotalSpent.StringFixed(2), b.BudgetAmount.StringFixed(2), status})
			}
			return cli.WriteTable(out, []string{"Budget", "Spent", "Amount", "Status"}, rows)
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "Month as YYYY-MM (default: current month)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")

	return cmd
}
