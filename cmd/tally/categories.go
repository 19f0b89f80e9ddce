package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/model"
)

func categoriesCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "categories",
		Aliases: []string{"category"},
		Short:   "Manage income and expense categories",
	}

	cmd.AddCommand(listCategoriesCmd(e))
	cmd.AddCommand(addCategoryCmd(e))
	cmd.AddCommand(updateCategoryCmd(e))
	cmd.AddCommand(deleteCategoryCmd(e))

	return cmd
}

func listCategoriesCmd(e *env) *cobra.Command {
	var categoryType string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List categories by sort order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			l, cleanup, err := e.openLedger(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			var categories []model.Category
			if categoryType != "" {
				categories, err = l.categories.FindByType(ctx, model.CategoryType(categoryType))
			} else {
				categories, err = l.categories.FindAllOrdered(ctx)
			}
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(categories) == 0 {
				fmt.Fprintln(out, cli.FormatInfo("No categories found. Use 'tally categories add' to create one."))
				return nil
			}

			rows := make([][]string, 0, len(categories))
			for _, c := range categories {
				active := "yes"
				if !c.IsActive {
					active = cli.SubtleStyle.Render("no")
				}
				rows = append(rows, []string{
					strconv.FormatInt(c.ID, 10), c.Icon + " " + c.Name, string(c.Type), strconv.Itoa(c.SortOrder), active,
				})
			}
			return cli.WriteTable(out, []string{"ID", "Name", "Type", "Order", "Active"}, rows)
		},
	}

	cmd.Flags().StringVar(&categoryType, "type", "", "Only show categories of this type (income, expense)")

	return cmd
}

func addCategoryCmd(e *env) *cobra.Command {
	var (
		icon         string
		categoryType string
		sortOrder    int
		isDefault    bool
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			l, cleanup, err := e.openLedger(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			category, err := l.categories.Create(ctx, model.NewCategory{
				Name:      args[0],
				Icon:      icon,
				Type:      model.CategoryType(categoryType),
				SortOrder: sortOrder,
				IsDefault: isDefault,
			})
			if err != nil {
				return fmt.Errorf("failed to create category: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created category %q (ID: %d)", category.Name, category.ID)))
			return nil
		},
	}

	cmd.Flags().StringVar(&icon, "icon", "📁", "Category icon")
	cmd.Flags().StringVar(&categoryType, "type", string(model.CategoryTypeExpense), "Category type (income, expense)")
	cmd.Flags().IntVar(&sortOrder, "sort", 0, "Sort order")
	cmd.Flags().BoolVar(&isDefault, "default", false, "Mark as a default category")

	return cmd
}

func updateCategoryCmd(e *env) *cobra.Command {
	var (
		name      string
		icon      string
		sortOrder int
		active    bool
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a category",
		Long:  `Update the fields given as flags. Fields without a flag are left unchanged.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseID(args[0], "category")
			if err != nil {
				return err
			}

			var fields model.CategoryUpdate
			flags := cmd.Flags()
			if flags.Changed("name") {
				fields.Name = &name
			}
			if flags.Changed("icon") {
				fields.Icon = &icon
			}
			if flags.Changed("sort") {
				fields.SortOrder = &sortOrder
			}
			if flags.Changed("active") {
				fields.IsActive = &active
			}

			l, cleanup, err := e.openLedger(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			updated, err := l.categories.Update(ctx, id, fields)
			if err != nil {
				return fmt.Errorf("failed to update category: %w", err)
			}
			if !updated {
				return common.NewUserError(fmt.Sprintf("category %d was not updated", id), common.ErrNotFound)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Updated category %d", id)))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&icon, "icon", "", "New icon")
	cmd.Flags().IntVar(&sortOrder, "sort", 0, "New sort order")
	cmd.Flags().BoolVar(&active, "active", true, "Whether the category is active")

	return cmd
}

func deleteCategoryCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a category",
		Long:  `Delete a category. Categories still used by budgets or transactions cannot be deleted.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseID(args[0], "category")
			if err != nil {
				return err
			}

			l, cleanup, err := e.openLedger(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			deleted, err := l.categories.Delete(ctx, id)
			if err != nil {
				return common.NewUserError(fmt.Sprintf("could not delete category %d; budgets or transactions may still use it", id), err)
			}
			if !deleted {
				return common.NewUserError(fmt.Sprintf("category %d not found", id), common.ErrNotFound)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted category %d", id)))
			return nil
		},
	}
}
