package storage

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tally/internal/model"
)

type transactionFixture struct {
	db       *Database
	repo     *TransactionRepository
	food     *model.Category
	salary   *model.Category
	foodPlan *model.Budget
	payPlan  *model.Budget
}

func newTransactionFixture(t *testing.T) *transactionFixture {
	t.Helper()
	ctx := context.Background()
	db := newTestDatabase(t, false)

	f := &transactionFixture{
		db:     db,
		repo:   NewTransactionRepository(db),
		food:   createTestCategory(t, db, "Food", model.CategoryTypeExpense),
		salary: createTestCategory(t, db, "Salary", model.CategoryTypeIncome),
	}

	budgets := NewBudgetRepository(db)
	var err error
	f.foodPlan, err = budgets.Create(ctx, monthlyBudget("Food", f.food.ID, 100, "2025-08"))
	require.NoError(t, err)
	f.payPlan, err = budgets.Create(ctx, monthlyBudget("Salary", f.salary.ID, 0, "2025-08"))
	require.NoError(t, err)
	return f
}

func (f *transactionFixture) add(t *testing.T, amount int64, typ model.TransactionType, date string) *model.Transaction {
	t.Helper()
	return f.addDecimal(t, decimal.NewFromInt(amount), typ, date)
}

func (f *transactionFixture) addDecimal(t *testing.T, amount decimal.Decimal, typ model.TransactionType, date string) *model.Transaction {
	t.Helper()
	in := model.NewTransaction{
		Amount:     amount,
		CategoryID: f.food.ID,
		BudgetID:   f.foodPlan.ID,
		Date:       date,
		Type:       typ,
	}
	if typ == model.TransactionIncome {
		in.CategoryID = f.salary.ID
		in.BudgetID = f.payPlan.ID
	}
	created, err := f.repo.Create(context.Background(), in)
	require.NoError(t, err)
	return created
}

func TestTransactionRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	f := newTransactionFixture(t)

	description := "lunch"
	in := model.NewTransaction{
		Amount:      decimal.RequireFromString("12.34"),
		CategoryID:  f.food.ID,
		BudgetID:    f.foodPlan.ID,
		Description: &description,
		Date:        "2025-08-15T12:30:00.000Z",
		Type:        model.TransactionExpense,
	}

	created, err := f.repo.Create(ctx, in)
	require.NoError(t, err)

	found, err := f.repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.True(t, in.Amount.Equal(found.Amount), "amount %s", found.Amount)
	assert.Equal(t, in.CategoryID, found.CategoryID)
	assert.Equal(t, in.BudgetID, found.BudgetID)
	require.NotNil(t, found.Description)
	assert.Equal(t, description, *found.Description)
	assert.Equal(t, in.Date, found.Date)
	assert.Equal(t, in.Type, found.Type)

	noDescription := f.add(t, 5, model.TransactionExpense, "2025-08-16")
	assert.Nil(t, noDescription.Description)
}

func TestTransactionRepository_CreateValidation(t *testing.T) {
	ctx := context.Background()
	f := newTransactionFixture(t)

	tests := []struct {
		wantErr error
		in      model.NewTransaction
		name    string
	}{
		{
			name:    "unknown type",
			in:      model.NewTransaction{CategoryID: f.food.ID, BudgetID: f.foodPlan.ID, Date: "2025-08-01", Type: "refund"},
			wantErr: ErrInvalidTransaction,
		},
		{
			name:    "missing date",
			in:      model.NewTransaction{CategoryID: f.food.ID, BudgetID: f.foodPlan.ID, Type: model.TransactionExpense},
			wantErr: ErrInvalidTransaction,
		},
		{
			name:    "unknown budget",
			in:      model.NewTransaction{CategoryID: f.food.ID, BudgetID: 999, Date: "2025-08-01", Type: model.TransactionExpense},
			wantErr: ErrQueryExecution,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.repo.Create(ctx, tt.in)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTransactionRepository_Update(t *testing.T) {
	ctx := context.Background()
	f := newTransactionFixture(t)
	created := f.add(t, 30, model.TransactionExpense, "2025-08-01")

	note := "groceries"
	changed, err := f.repo.Update(ctx, created.ID, model.TransactionUpdate{Description: &note})
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := f.repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Description)
	assert.Equal(t, note, *got.Description)
	assert.True(t, created.Amount.Equal(got.Amount))
	assert.Equal(t, created.Date, got.Date)
	assert.Equal(t, created.Type, got.Type)
	assert.Equal(t, created.CategoryID, got.CategoryID)
	assert.Equal(t, created.BudgetID, got.BudgetID)

	changed, err = f.repo.Update(ctx, created.ID+100, model.TransactionUpdate{Description: &note})
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = f.repo.Update(ctx, created.ID, model.TransactionUpdate{})
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = f.repo.Update(ctx, created.ID, model.TransactionUpdate{ClearDescription: true})
	require.NoError(t, err)
	assert.True(t, changed)

	got, err = f.repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Description)

	_, err = f.repo.Update(ctx, created.ID, model.TransactionUpdate{Description: &note, ClearDescription: true})
	require.ErrorIs(t, err, ErrInvalidTransaction)
}

func TestTransactionRepository_AmountRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newTransactionFixture(t)

	tests := []struct {
		name   string
		amount string
	}{
		{name: "cents", amount: "19.99"},
		{name: "sub cent", amount: "0.005"},
		{name: "beyond float precision", amount: "12345678901234567.89"},
		{name: "many places", amount: "0.1234567890123456789"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := decimal.RequireFromString(tt.amount)
			created := f.addDecimal(t, want, model.TransactionExpense, "2025-08-10")

			got, err := f.repo.FindByID(ctx, created.ID)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.True(t, want.Equal(got.Amount), "want %s, got %s", want, got.Amount)
		})
	}
}

func TestTransactionRepository_DateQueries(t *testing.T) {
	ctx := context.Background()
	f := newTransactionFixture(t)

	early := f.add(t, 10, model.TransactionExpense, "2025-08-01")
	middle := f.add(t, 20, model.TransactionExpense, "2025-08-15")
	late := f.add(t, 30, model.TransactionIncome, "2025-08-31")

	ids := func(txns []model.Transaction) []int64 {
		out := make([]int64, 0, len(txns))
		for _, txn := range txns {
			out = append(out, txn.ID)
		}
		return out
	}

	all, err := f.repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{late.ID, middle.ID, early.ID}, ids(all))

	inRange, err := f.repo.FindByDateRange(ctx, "2025-08-01", "2025-08-15")
	require.NoError(t, err)
	assert.Equal(t, []int64{middle.ID, early.ID}, ids(inRange))

	byBudget, err := f.repo.FindByBudgetID(ctx, f.foodPlan.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{middle.ID, early.ID}, ids(byBudget))

	byCategory, err := f.repo.FindByCategoryID(ctx, f.salary.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{late.ID}, ids(byCategory))

	joined, err := f.repo.FindByDateRangeWithCategory(ctx, "2025-08-10", "2025-08-31")
	require.NoError(t, err)
	require.Len(t, joined, 2)
	require.NotNil(t, joined[0].CategoryName)
	assert.Equal(t, "Salary", *joined[0].CategoryName)
	require.NotNil(t, joined[0].CategoryIcon)

	one, err := f.repo.FindByIDWithCategory(ctx, early.ID)
	require.NoError(t, err)
	require.NotNil(t, one)
	assert.Equal(t, "Food", *one.CategoryName)

	everything, err := f.repo.FindAllWithCategory(ctx)
	require.NoError(t, err)
	assert.Len(t, everything, 3)

	_, err = f.repo.FindByDateRange(ctx, "2025-09-01", "2025-08-01")
	require.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestTransactionRepository_Totals(t *testing.T) {
	ctx := context.Background()
	f := newTransactionFixture(t)

	income, err := f.repo.TotalIncome(ctx)
	require.NoError(t, err)
	assert.True(t, income.IsZero())

	f.add(t, 30, model.TransactionExpense, "2025-08-02")
	f.add(t, 100, model.TransactionExpense, "2025-08-03")
	f.add(t, 50, model.TransactionIncome, "2025-08-04")

	expense, err := f.repo.TotalExpense(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(130).Equal(expense), "expense %s", expense)

	income, err = f.repo.TotalIncome(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50).Equal(income), "income %s", income)

	summary, err := f.repo.SummaryByCategory(ctx, "2025-08-01", "2025-08-31")
	require.NoError(t, err)
	require.Len(t, summary, 2)

	assert.Equal(t, f.food.ID, summary[0].CategoryID)
	assert.True(t, decimal.NewFromInt(130).Equal(summary[0].Total))
	assert.Equal(t, 2, summary[0].Count)
	require.NotNil(t, summary[0].CategoryName)
	assert.Equal(t, "Food", *summary[0].CategoryName)

	assert.Equal(t, f.salary.ID, summary[1].CategoryID)
	assert.True(t, decimal.NewFromInt(50).Equal(summary[1].Total))
	assert.Equal(t, 1, summary[1].Count)

	outside, err := f.repo.SummaryByCategory(ctx, "2024-01-01", "2024-12-31")
	require.NoError(t, err)
	assert.Empty(t, outside)
}

func TestTransactionRepository_SummaryByBudget(t *testing.T) {
	ctx := context.Background()
	f := newTransactionFixture(t)

	f.add(t, 80, model.TransactionExpense, "2025-08-02")
	f.add(t, 40, model.TransactionExpense, "2025-08-20")
	f.add(t, 999, model.TransactionExpense, "2025-07-20")

	summary, err := f.repo.SummaryByBudget(ctx, "2025-08-01", "2025-08-31")
	require.NoError(t, err)
	require.Len(t, summary, 2)

	assert.Equal(t, f.foodPlan.ID, summary[0].BudgetID)
	assert.Equal(t, "Food", summary[0].BudgetName)
	assert.True(t, decimal.NewFromInt(120).Equal(summary[0].TotalSpent), "spent %s", summary[0].TotalSpent)
	assert.True(t, decimal.NewFromInt(100).Equal(summary[0].BudgetAmount))
	assert.True(t, summary[0].IsExceeded)

	assert.Equal(t, f.payPlan.ID, summary[1].BudgetID)
	assert.True(t, summary[1].TotalSpent.IsZero())
	assert.False(t, summary[1].IsExceeded)

	later, err := f.repo.SummaryByBudget(ctx, "2026-01-01", "2026-01-31")
	require.NoError(t, err)
	assert.Empty(t, later)
}

func TestTransactionRepository_FractionalRollups(t *testing.T) {
	tests := []struct {
		name         string
		budget       string
		expenses     []string
		wantTotal    string
		wantExceeded bool
	}{
		{name: "tenths sum exactly", budget: "0.3", expenses: []string{"0.1", "0.2"}, wantTotal: "0.3"},
		{name: "spent equals amount", budget: "59.97", expenses: []string{"19.99", "19.99", "19.99"}, wantTotal: "59.97"},
		{name: "one cent over", budget: "59.96", expenses: []string{"19.99", "19.99", "19.99"}, wantTotal: "59.97", wantExceeded: true},
		{name: "one cent under", budget: "0.31", expenses: []string{"0.1", "0.2"}, wantTotal: "0.3"},
		{name: "large amounts", budget: "12345678901234567.89", expenses: []string{"12345678901234567.88", "0.01"}, wantTotal: "12345678901234567.89"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newTransactionFixture(t)
			budgets := NewBudgetRepository(f.db)

			amount := decimal.RequireFromString(tt.budget)
			_, err := budgets.Update(ctx, f.foodPlan.ID, model.BudgetUpdate{Amount: &amount})
			require.NoError(t, err)

			for i, e := range tt.expenses {
				f.addDecimal(t, decimal.RequireFromString(e), model.TransactionExpense, fmt.Sprintf("2025-08-%02d", i+2))
			}
			want := decimal.RequireFromString(tt.wantTotal)

			expense, err := f.repo.TotalExpense(ctx)
			require.NoError(t, err)
			assert.True(t, want.Equal(expense), "expense %s", expense)

			byCategory, err := f.repo.SummaryByCategory(ctx, "2025-08-01", "2025-08-31")
			require.NoError(t, err)
			require.Len(t, byCategory, 1)
			assert.True(t, want.Equal(byCategory[0].Total), "category total %s", byCategory[0].Total)
			assert.Equal(t, len(tt.expenses), byCategory[0].Count)

			byBudget, err := f.repo.SummaryByBudget(ctx, "2025-08-01", "2025-08-31")
			require.NoError(t, err)
			require.Len(t, byBudget, 2)
			assert.Equal(t, f.foodPlan.ID, byBudget[0].BudgetID)
			assert.True(t, want.Equal(byBudget[0].TotalSpent), "budget spent %s", byBudget[0].TotalSpent)
			assert.True(t, amount.Equal(byBudget[0].BudgetAmount), "budget amount %s", byBudget[0].BudgetAmount)
			assert.Equal(t, tt.wantExceeded, byBudget[0].IsExceeded)

			exceeded, err := budgets.RefreshExceeded(ctx, f.foodPlan.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantExceeded, exceeded)
		})
	}
}

func TestTransactionRepository_FractionalIncome(t *testing.T) {
	ctx := context.Background()
	f := newTransactionFixture(t)

	f.addDecimal(t, decimal.RequireFromString("0.1"), model.TransactionIncome, "2025-08-02")
	f.addDecimal(t, decimal.RequireFromString("0.2"), model.TransactionIncome, "2025-08-03")

	income, err := f.repo.TotalIncome(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0.3", income.String())
}

func TestTransactionRepository_Events(t *testing.T) {
	ctx := context.Background()
	f := newTransactionFixture(t)
	rec := recordEvents(f.db, EventTransactionUpdated, EventBudgetUpdated)

	created := f.add(t, 10, model.TransactionExpense, "2025-08-01")
	amount := decimal.NewFromInt(11)
	_, err := f.repo.Update(ctx, created.ID, model.TransactionUpdate{Amount: &amount})
	require.NoError(t, err)
	_, err = f.repo.Delete(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, 3, rec.counts[EventTransactionUpdated])
	assert.Zero(t, rec.counts[EventBudgetUpdated])
}
