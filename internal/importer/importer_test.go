package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/storage"
	"github.com/Veraticus/tally/internal/testutil"
)

const scenarioDocument = `{
	"categories": [
		{"name": "Food", "icon": "🍚", "type": "expense", "sortOrder": 1},
		{"name": "Salary", "icon": "💰", "type": "income", "sortOrder": 2}
	],
	"budgets": [
		{
			"name": "Ghost",
			"categoryId": 999,
			"amount": 100,
			"period": "monthly",
			"startDate": "2025-08-01T00:00:00.000Z",
			"endDate": "2025-08-31T23:59:59.999Z",
			"month": "2025-08"
		}
	],
	"exportedAt": "2025-08-31"
}`

func TestImporter_InvalidReference(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	result, err := New(db.DB).ImportReader(ctx, strings.NewReader(scenarioDocument))
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 2, result.Imported.Categories)
	assert.Equal(t, 0, result.Imported.Budgets)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "failed to import budget #1")
	assert.Contains(t, result.Errors[0], "FOREIGN KEY")
	assert.Contains(t, result.Message, "2 records imported")

	assert.Equal(t, 2, testutil.Count(t, db.Categories))
	assert.Equal(t, 0, testutil.Count(t, db.Budgets))
}

func TestImporter_AllEntities(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	cat, err := db.Categories.Create(ctx, model.NewCategory{Name: "Food", Icon: "🍚", Type: model.CategoryTypeExpense})
	require.NoError(t, err)
	start, end, month := storage.MonthBounds(testutil.FixedNow)
	budget, err := db.Budgets.Create(ctx, model.NewBudget{
		Name: "Food", CategoryID: cat.ID, Amount: decimal.NewFromInt(500),
		Period: model.PeriodMonthly, StartDate: start, EndDate: end, Month: month,
	})
	require.NoError(t, err)

	doc := Document{
		Categories: []model.NewCategory{
			{Name: "Rent", Icon: "🏠", Type: model.CategoryTypeExpense},
		},
		Transactions: []model.NewTransaction{
			{Amount: decimal.NewFromInt(12), CategoryID: cat.ID, BudgetID: budget.ID, Date: "2025-08-02", Type: model.TransactionExpense},
			{Amount: decimal.NewFromInt(8), CategoryID: cat.ID, BudgetID: budget.ID, Date: "2025-08-03", Type: model.TransactionExpense},
		},
		BankBalances: []model.NewBankBalance{
			{Year: 2025, Month: 8, OpeningBalance: decimal.NewFromInt(100), ClosingBalance: decimal.NewFromInt(80)},
		},
	}

	var calls []int
	imp := New(db.DB, WithProgress(func(_ string, done, total int) {
		assert.Equal(t, doc.Len(), total)
		calls = append(calls, done)
	}))

	result, err := imp.Import(ctx, doc)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.Errors)
	assert.Equal(t, Counts{Categories: 1, Transactions: 2, BankBalances: 1}, result.Imported)
	assert.Equal(t, "imported 4 records", result.Message)
	assert.Equal(t, []int{1, 2, 3, 4}, calls)

	total, err := db.Transactions.TotalExpense(ctx)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(20).Equal(total))
}

func TestImporter_ContinuesAfterFailures(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	doc := Document{
		BankBalances: []model.NewBankBalance{
			{Year: 2025, Month: 1},
			{Year: 2025, Month: 1},
			{Year: 2025, Month: 13},
			{Year: 2025, Month: 2},
		},
	}

	result, err := New(db.DB).Import(ctx, doc)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 2, result.Imported.BankBalances)
	require.Len(t, result.Errors, 2)
	assert.True(t, strings.HasPrefix(result.Errors[0], "failed to import bank balance #2"))
	assert.True(t, strings.HasPrefix(result.Errors[1], "failed to import bank balance #3"))
}

func TestImporter_EmptyDocument(t *testing.T) {
	db := testutil.SetupTestDB(t)

	result, err := New(db.DB).ImportReader(context.Background(), strings.NewReader(`{}`))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Zero(t, result.Imported.Total())
	assert.Equal(t, "imported 0 records", result.Message)
}

func TestImporter_DecodeErrors(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	imp := New(db.DB)

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "categories: []"},
		{name: "wrong shape", body: `{"categories": {"name": "Food"}}`},
		{name: "truncated", body: `{"categories": [`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := imp.ImportReader(ctx, strings.NewReader(tt.body))
			require.NoError(t, err)
			assert.False(t, result.Success)
			require.Len(t, result.Errors, 1)
			assert.Contains(t, result.Errors[0], "failed to decode import document")
			assert.Zero(t, result.Imported.Total())
		})
	}
}

func TestImporter_ImportFile(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	imp := New(db.DB)

	path := filepath.Join(t.TempDir(), "import.json")
	require.NoError(t, os.WriteFile(path, []byte(scenarioDocument), 0600))

	result, err := imp.ImportFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported.Categories)

	result, err = imp.ImportFile(ctx, filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Errors[0], "failed to open import file")
}

func TestImporter_NotInitialized(t *testing.T) {
	db, err := storage.New(storage.Options{Path: storage.MemoryPath})
	require.NoError(t, err)

	result, err := New(db).ImportReader(context.Background(), strings.NewReader(scenarioDocument))
	require.ErrorIs(t, err, storage.ErrNotInitialized)
	assert.Nil(t, result)
}

func TestImporter_Canceled(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())

	doc := Document{Categories: []model.NewCategory{
		{Name: "Food", Icon: "🍚", Type: model.CategoryTypeExpense},
		{Name: "Rent", Icon: "🏠", Type: model.CategoryTypeExpense},
	}}

	imp := New(db.DB, WithProgress(func(_ string, done, _ int) {
		if done == 1 {
			cancel()
		}
	}))

	result, err := imp.Import(ctx, doc)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
	assert.Equal(t, 1, testutil.Count(t, db.Categories))
}
