package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

func budgetsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "budgets",
		Aliases: []string{"budget"},
		Short:   "Manage budgets",
	}

	cmd.AddCommand(listBudgetsCmd(e))
	cmd.AddCommand(addBudgetCmd(e))
	cmd.AddCommand(deleteBudgetCmd(e))
	cmd.AddCommand(refreshBudgetCmd(e))

	return cmd
}

func listBudgetsCmd(e *env) *cobra.Command {
	var (
		month string
		all   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List budgets for a month",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			_, _, key, err := e.monthRange(month)
			if err != nil {
				return err
			}

			l, cleanup, err := e.openLedger(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			var budgets []model.BudgetWithCategory
			if all {
				budgets, err = l.budgets.FindAllWithCategory(ctx)
			} else {
				budgets, err = l.budgets.FindByMonthWithCategory(ctx, key)
			}
			if err != nil {
				return fmt.Errorf("failed to get budgets: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(budgets) == 0 {
				fmt.Fprintln(out, cli.FormatInfo("No budgets found. Use 'tally budgets add' to create one."))
				return nil
			}

			rows := make([][]string, 0, len(budgets))
			for _, b := range budgets {
				status := cli.SuccessStyle.Render("ok")
				if b.IsBudgetExceeded {
					status = cli.ErrorStyle.Render("exceeded")
				}
				rows = append(rows, []string{
					strconv.FormatInt(b.ID, 10),
					b.Name,
					deref(b.CategoryName, "-"),
					b.Amount.StringFixed(2),
					string(b.Period),
					b.Month,
					status,
				})
			}
			return cli.WriteTable(out, []string{"ID", "Name", "Category", "Amount", "Period", "Month", "Status"}, rows)
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "Month as YYYY-MM (default: current month)")
	cmd.Flags().BoolVar(&all, "all", false, "List budgets of every month")

	return cmd
}

func addBudgetCmd(e *env) *cobra.Command {
	var (
		categoryID int64
		amount     string
		period     string
		month      string
		regular    bool
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a budget for a category and month",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			value, err := parseAmount(amount)
			if err != nil {
				return err
			}
			start, end, key, err := e.monthRange(month)
			if err != nil {
				return err
			}

			l, cleanup, err := e.openLedger(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			budget, err := l.budgets.Create(ctx, model.NewBudget{
				Name:       args[0],
				CategoryID: categoryID,
				Amount:     value,
				Period:     model.BudgetPeriod(period),
				StartDate:  start,
				EndDate:    end,
				Month:      key,
				IsRegular:  regular,
			})
			if err != nil {
				return fmt.Errorf("failed to create budget: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created budget %q for %s (ID: %d)", budget.Name, budget.Month, budget.ID)))
			return nil
		},
	}

	cmd.Flags().Int64Var(&categoryID, "category", 0, "Category ID")
	cmd.Flags().StringVar(&amount, "amount", "", "Budget amount")
	cmd.Flags().StringVar(&period, "period", string(model.PeriodMonthly), "Period (daily, weekly, monthly, yearly)")
	cmd.Flags().StringVar(&month, "month", "", "Month as YYYY-MM (default: current month)")
	cmd.Flags().BoolVar(&regular, "regular", false, "Mark as a recurring budget")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func deleteBudgetCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseID(args[0], "budget")
			if err != nil {
				return err
			}

			l, cleanup, err := e.openLedger(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			deleted, err := l.budgets.Delete(ctx, id)
			if err != nil {
				return common.NewUserError(fmt.Sprintf("could not delete budget %d; transactions may still use it", id), err)
			}
			if !deleted {
				return common.NewUserError(fmt.Sprintf("budget %d not found", id), common.ErrNotFound)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted budget %d", id)))
			return nil
		},
	}
}

func refreshBudgetCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <id>",
		Short: "Recompute whether a budget is exceeded",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseID(args[0], "budget")
			if err != nil {
				return err
			}

			l, cleanup, err := e.openLedger(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			exceeded, err := l.budgets.RefreshExceeded(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to refresh budget: %w", err)
			}

			out := cmd.OutOrStdout()
			if exceeded {
				fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("Budget %d is exceeded", id)))
			} else {
				fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Budget %d is within its amount", id)))
			}
			return nil
		},
	}
}
