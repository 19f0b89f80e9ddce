package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tally/internal/model"
)

func TestBankBalanceRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewBankBalanceRepository(newTestDatabase(t, false))

	in := model.NewBankBalance{
		Year:           2025,
		Month:          3,
		OpeningBalance: decimal.RequireFromString("1500.25"),
		ClosingBalance: decimal.RequireFromString("1320.75"),
	}
	created, err := repo.Create(ctx, in)
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, in.Year, found.Year)
	assert.Equal(t, in.Month, found.Month)
	assert.True(t, in.OpeningBalance.Equal(found.OpeningBalance), "opening %s", found.OpeningBalance)
	assert.True(t, in.ClosingBalance.Equal(found.ClosingBalance), "closing %s", found.ClosingBalance)
	assert.True(t, decimal.RequireFromString("-179.5").Equal(found.Change()))

	byMonth, err := repo.FindByYearMonth(ctx, 2025, 3)
	require.NoError(t, err)
	require.NotNil(t, byMonth)
	assert.Equal(t, created.ID, byMonth.ID)

	none, err := repo.FindByYearMonth(ctx, 2025, 4)
	require.NoError(t, err)
	assert.Nil(t, none)

	large, err := repo.Create(ctx, model.NewBankBalance{
		Year:           2025,
		Month:          5,
		OpeningBalance: decimal.RequireFromString("98765432109876543.21"),
		ClosingBalance: decimal.RequireFromString("98765432109876543.31"),
	})
	require.NoError(t, err)
	assert.Equal(t, "98765432109876543.21", large.OpeningBalance.String())
	assert.Equal(t, "0.1", large.Change().String())
}

func TestBankBalanceRepository_Validation(t *testing.T) {
	ctx := context.Background()
	repo := NewBankBalanceRepository(newTestDatabase(t, false))

	tests := []struct {
		name  string
		year  int
		month int
	}{
		{name: "month zero", year: 2025, month: 0},
		{name: "month thirteen", year: 2025, month: 13},
		{name: "year zero", year: 0, month: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.Create(ctx, model.NewBankBalance{Year: tt.year, Month: tt.month})
			require.ErrorIs(t, err, ErrInvalidBankBalance)

			_, err = repo.FindByYearMonth(ctx, tt.year, tt.month)
			require.ErrorIs(t, err, ErrInvalidBankBalance)
		})
	}

	_, err := repo.Update(ctx, 1, model.BankBalanceUpdate{Month: ptr(14)})
	require.ErrorIs(t, err, ErrInvalidBankBalance)
}

func TestBankBalanceRepository_Uniqueness(t *testing.T) {
	ctx := context.Background()
	repo := NewBankBalanceRepository(newTestDatabase(t, false))

	_, err := repo.Create(ctx, model.NewBankBalance{Year: 2025, Month: 5})
	require.NoError(t, err)

	_, err = repo.Create(ctx, model.NewBankBalance{Year: 2025, Month: 5})
	require.ErrorIs(t, err, ErrQueryExecution)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBankBalanceRepository_InitializeYear(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t, false)
	repo := NewBankBalanceRepository(db)

	created, err := repo.InitializeYear(ctx, 2026)
	require.NoError(t, err)
	assert.Equal(t, 12, created)

	year, err := repo.FindByYear(ctx, 2026)
	require.NoError(t, err)
	require.Len(t, year, 12)
	for i, b := range year {
		assert.Equal(t, i+1, b.Month)
		assert.True(t, b.OpeningBalance.IsZero())
		assert.True(t, b.ClosingBalance.IsZero())
	}

	created, err = repo.InitializeYear(ctx, 2026)
	require.NoError(t, err)
	assert.Zero(t, created)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	t.Run("partial year is left alone", func(t *testing.T) {
		_, err := repo.Create(ctx, model.NewBankBalance{Year: 2027, Month: 6})
		require.NoError(t, err)

		created, err := repo.InitializeYear(ctx, 2027)
		require.NoError(t, err)
		assert.Zero(t, created)

		months, err := repo.FindByYear(ctx, 2027)
		require.NoError(t, err)
		assert.Len(t, months, 1)
	})

	t.Run("inside another transaction", func(t *testing.T) {
		err := db.Transaction(ctx, func(ctx context.Context, tx Executor) error {
			_, err := NewBankBalanceRepository(tx).InitializeYear(ctx, 2028)
			return err
		})
		require.True(t, errors.Is(err, ErrTransactionConflict))
	})
}

func TestBankBalanceRepository_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t, false)
	rec := recordEvents(db, EventCategoryUpdated, EventBudgetUpdated, EventTransactionUpdated)
	repo := NewBankBalanceRepository(db)

	created, err := repo.Create(ctx, model.NewBankBalance{Year: 2025, Month: 1})
	require.NoError(t, err)

	closing := decimal.NewFromInt(250)
	changed, err := repo.Update(ctx, created.ID, model.BankBalanceUpdate{ClosingBalance: &closing})
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, closing.Equal(got.ClosingBalance))
	assert.True(t, got.OpeningBalance.IsZero())
	assert.Equal(t, 1, got.Month)

	removed, err := repo.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	assert.Empty(t, rec.counts)
}
