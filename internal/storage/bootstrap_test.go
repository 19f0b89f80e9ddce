package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tally/internal/model"
)

func TestBootstrap_SeedsOnce(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t, true)

	setup := BootstrapWithOptions(BootstrapOptions{
		SeedSampleData: true,
		Now:            func() time.Time { return fixedNow },
	})
	require.NoError(t, setup(ctx, db))

	counts := map[string]int{
		tableCategories:   6,
		tableBudgets:      2,
		tableBankBalances: 2,
		tableTransactions: 2,
	}
	for table, want := range counts {
		n, err := countRows(ctx, db, table)
		require.NoError(t, err)
		assert.Equal(t, want, n, table)
	}
	assert.Equal(t, SchemaVersion, db.Version(ctx))
	assert.True(t, db.IsInitialized(ctx))
}

func TestBootstrap_SampleData(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t, true)

	categories, err := NewCategoryRepository(db).FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 6)
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.Name)
		assert.True(t, c.IsDefault, c.Name)
		assert.True(t, c.IsActive, c.Name)
	}
	assert.Equal(t, []string{"餐饮", "交通", "购物", "工资", "家用", "账单"}, names)

	budgets, err := NewBudgetRepository(db).FindByMonthWithCategory(ctx, "2025-08")
	require.NoError(t, err)
	require.Len(t, budgets, 2)
	assert.Equal(t, "餐饮", budgets[0].Name)
	assert.Equal(t, "餐饮", *budgets[0].CategoryName)
	assert.True(t, decimal.NewFromInt(2000).Equal(budgets[0].Amount))
	assert.Equal(t, model.PeriodMonthly, budgets[0].Period)
	assert.True(t, budgets[0].IsRegular)
	assert.Equal(t, "2025-08-01T00:00:00.000Z", budgets[0].StartDate)
	assert.Equal(t, "2025-08-31T23:59:59.999Z", budgets[0].EndDate)
	assert.Equal(t, "交通", budgets[1].Name)

	balances, err := NewBankBalanceRepository(db).FindByYear(ctx, 2025)
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.Equal(t, 7, balances[0].Month)
	assert.True(t, decimal.NewFromInt(1200).Equal(balances[1].ClosingBalance))

	txns, err := NewTransactionRepository(db).FindAllWithCategory(ctx)
	require.NoError(t, err)
	require.Len(t, txns, 2)
	for _, txn := range txns {
		assert.Equal(t, "2025-08-15T12:30:00.000Z", txn.Date)
		assert.Equal(t, model.TransactionExpense, txn.Type)
	}

	expense, err := NewTransactionRepository(db).TotalExpense(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(130).Equal(expense))
}

func TestBootstrap_WithoutSeed(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t, false)

	for _, table := range append([]string{tableDatabaseInfo}, coreTables...) {
		assert.True(t, db.TableExists(ctx, table), table)
	}
	n, err := countRows(ctx, db, tableCategories)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.False(t, db.IsInitialized(ctx))
	assert.Equal(t, SchemaVersion, db.Version(ctx))
}

func TestBootstrap_SkipsSeedWhenDataExists(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t, false)

	_, err := NewCategoryRepository(db).Create(ctx, model.NewCategory{
		Name: "Mine", Icon: "⭐", Type: model.CategoryTypeExpense,
	})
	require.NoError(t, err)

	require.NoError(t, Bootstrap(ctx, db))

	n, err := countRows(ctx, db, tableCategories)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = countRows(ctx, db, tableBudgets)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBootstrap_SampleReferencesByName(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t, false)

	// Burn the first ids so the seeded rows do not start at 1.
	repo := NewCategoryRepository(db)
	for i := 0; i < 3; i++ {
		c, err := repo.Create(ctx, model.NewCategory{Name: "tmp", Icon: "x", Type: model.CategoryTypeExpense})
		require.NoError(t, err)
		_, err = repo.Delete(ctx, c.ID)
		require.NoError(t, err)
	}

	require.NoError(t, Bootstrap(ctx, db))

	ids, err := categoryIDsByName(ctx, db)
	require.NoError(t, err)
	budgets, err := NewBudgetRepository(db).FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, budgets, 2)
	for _, b := range budgets {
		assert.Equal(t, ids[b.Name], b.CategoryID, b.Name)
	}
}

func TestMonthBounds(t *testing.T) {
	tests := []struct {
		now       time.Time
		name      string
		wantStart string
		wantEnd   string
		wantMonth string
	}{
		{
			name:      "mid month",
			now:       time.Date(2025, time.August, 15, 9, 0, 0, 0, time.UTC),
			wantStart: "2025-08-01T00:00:00.000Z",
			wantEnd:   "2025-08-31T23:59:59.999Z",
			wantMonth: "2025-08",
		},
		{
			name:      "leap february",
			now:       time.Date(2024, time.February, 29, 23, 59, 0, 0, time.UTC),
			wantStart: "2024-02-01T00:00:00.000Z",
			wantEnd:   "2024-02-29T23:59:59.999Z",
			wantMonth: "2024-02",
		},
		{
			name:      "december",
			now:       time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC),
			wantStart: "2025-12-01T00:00:00.000Z",
			wantEnd:   "2025-12-31T23:59:59.999Z",
			wantMonth: "2025-12",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, month := MonthBounds(tt.now)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
			assert.Equal(t, tt.wantMonth, month)
		})
	}
}
