package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/tally/internal/model"
	"github.com/shopspring/decimal"
)

// ISOLayout is the timestamp format used for budget bounds and
// transaction dates: UTC with millisecond precision.
const ISOLayout = "2006-01-02T15:04:05.000Z"

// FormatISO renders t in ISOLayout.
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// MonthBounds returns the first instant and the last millisecond of the
// local calendar month containing t, both rendered in ISOLayout, and the
// month key (YYYY-MM).
func MonthBounds(t time.Time) (start, end, month string) {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, 0).Add(-time.Millisecond)
	return FormatISO(first), FormatISO(last), first.Format(model.MonthLayout)
}

func sampleCategories() []model.NewCategory {
	return []model.NewCategory{
		{Name: "餐饮", Icon: "🍚", Type: model.CategoryTypeExpense, SortOrder: 1, IsDefault: true},
		{Name: "交通", Icon: "🚌", Type: model.CategoryTypeExpense, SortOrder: 2, IsDefault: true},
		{Name: "购物", Icon: "🛍️", Type: model.CategoryTypeExpense, SortOrder: 3, IsDefault: true},
		{Name: "工资", Icon: "💰", Type: model.CategoryTypeIncome, SortOrder: 1, IsDefault: true},
		{Name: "家用", Icon: "🧓", Type: model.CategoryTypeExpense, SortOrder: 5, IsDefault: true},
		{Name: "账单", Icon: "🧾", Type: model.CategoryTypeExpense, SortOrder: 6, IsDefault: true},
	}
}

type sampleBudget struct {
	categoryName string
	budget       model.NewBudget
}

func sampleBudgets(now time.Time) []sampleBudget {
	start, end, month := MonthBounds(now)
	monthly := func(name string, amount int64) sampleBudget {
		return sampleBudget{
			categoryName: name,
			budget: model.NewBudget{
				Name:      name,
				Amount:    decimal.NewFromInt(amount),
				Period:    model.PeriodMonthly,
				StartDate: start,
				EndDate:   end,
				Month:     month,
				IsRegular: true,
			},
		}
	}
	return []sampleBudget{
		monthly("餐饮", 2000),
		monthly("交通", 1000),
	}
}

func sampleBankBalances() []model.NewBankBalance {
	return []model.NewBankBalance{
		{Year: 2025, Month: 7, OpeningBalance: decimal.NewFromInt(1000), ClosingBalance: decimal.NewFromInt(1000)},
		{Year: 2025, Month: 8, OpeningBalance: decimal.NewFromInt(1000), ClosingBalance: decimal.NewFromInt(1200)},
	}
}

type sampleTransaction struct {
	categoryName string
	budgetName   string
	transaction  model.NewTransaction
}

func sampleTransactions(now time.Time) []sampleTransaction {
	date := FormatISO(now)
	expense := func(category string, amount int64, description string) sampleTransaction {
		return sampleTransaction{
			categoryName: category,
			budgetName:   category,
			transaction: model.NewTransaction{
				Amount:      decimal.NewFromInt(amount),
				Description: &description,
				Date:        date,
				Type:        model.TransactionExpense,
			},
		}
	}
	return []sampleTransaction{
		expense("餐饮", 30, "午餐"),
		expense("交通", 100, "地铁票"),
	}
}

// categoryIDsByName maps each category name to its lowest id.
func categoryIDsByName(ctx context.Context, exec Executor) (map[string]int64, error) {
	return idsByName(ctx, exec, tableCategories)
}

// budgetIDsByName maps each budget name to its lowest id.
func budgetIDsByName(ctx context.Context, exec Executor) (map[string]int64, error) {
	return idsByName(ctx, exec, tableBudgets)
}

func idsByName(ctx context.Context, exec Executor, table string) (map[string]int64, error) {
	type pair struct {
		name string
		id   int64
	}
	pairs, err := queryAll(ctx, exec, func(row rowScanner) (pair, error) {
		var p pair
		if err := row.Scan(&p.id, &p.name); err != nil {
			return p, fmt.Errorf("failed to scan %s name: %w", table, err)
		}
		return p, nil
	}, "SELECT id, name FROM "+table+" ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to load %s ids: %w", table, err)
	}

	ids := make(map[string]int64, len(pairs))
	for _, p := range pairs {
		if _, seen := ids[p.name]; !seen {
			ids[p.name] = p.id
		}
	}
	return ids, nil
}
