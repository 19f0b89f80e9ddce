package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/Veraticus/tally/internal/model"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id, amount, categoryId, budgetId, description, date, type, createdAt, updatedAt`

const transactionJoinColumns = `t.id, t.amount, t.categoryId, t.budgetId, t.description, t.date, t.type,
	t.createdAt, t.updatedAt, c.name, c.icon`

// TransactionRepository stores transactions and computes their rollups.
type TransactionRepository struct {
	db  Executor
	now func() time.Time
}

// NewTransactionRepository creates a repository over db.
func NewTransactionRepository(db Executor) *TransactionRepository {
	return &TransactionRepository{db: db, now: time.Now}
}

func scanTransactionInto(row rowScanner, t *model.Transaction, extra ...any) error {
	var description sql.NullString
	dest := append([]any{&t.ID, &t.Amount, &t.CategoryID, &t.BudgetID, &description, &t.Date, &t.Type,
		&t.CreatedAt, &t.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return fmt.Errorf("failed to scan transaction: %w", err)
	}
	t.Description = nullableString(description)
	return nil
}

func scanTransaction(row rowScanner) (model.Transaction, error) {
	var t model.Transaction
	err := scanTransactionInto(row, &t)
	return t, err
}

func scanTransactionWithCategory(row rowScanner) (model.TransactionWithCategory, error) {
	var (
		out          model.TransactionWithCategory
		categoryName sql.NullString
		categoryIcon sql.NullString
	)
	if err := scanTransactionInto(row, &out.Transaction, &categoryName, &categoryIcon); err != nil {
		return out, err
	}
	out.CategoryName = nullableString(categoryName)
	out.CategoryIcon = nullableString(categoryIcon)
	return out, nil
}

// CreateTable implements Repository.
func (r *TransactionRepository) CreateTable(ctx context.Context) error {
	return execAll(ctx, r.db, createTransactionsTable)
}

// CreateIndexes implements Repository.
func (r *TransactionRepository) CreateIndexes(ctx context.Context) error {
	return execAll(ctx, r.db, transactionIndexes...)
}

// InsertSampleData inserts the sample transactions dated now. Each sample
// is attached to the first category and budget with its names; samples
// whose references are missing are skipped.
func (r *TransactionRepository) InsertSampleData(ctx context.Context) error {
	categoryIDs, err := categoryIDsByName(ctx, r.db)
	if err != nil {
		return err
	}
	budgetIDs, err := budgetIDsByName(ctx, r.db)
	if err != nil {
		return err
	}

	for _, s := range sampleTransactions(r.now()) {
		categoryID, okCategory := categoryIDs[s.categoryName]
		budgetID, okBudget := budgetIDs[s.budgetName]
		if !okCategory || !okBudget {
			slog.Warn("skipping sample transaction without references",
				"category", s.categoryName, "budget", s.budgetName)
			continue
		}
		s.transaction.CategoryID = categoryID
		s.transaction.BudgetID = budgetID
		if _, err := r.Create(ctx, s.transaction); err != nil {
			return fmt.Errorf("failed to insert sample transaction: %w", err)
		}
	}
	return nil
}

// FindByID implements Repository.
func (r *TransactionRepository) FindByID(ctx context.Context, id int64) (*model.Transaction, error) {
	return queryOne(ctx, r.db, scanTransaction,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
}

// FindAll returns every transaction, newest date first.
func (r *TransactionRepository) FindAll(ctx context.Context) ([]model.Transaction, error) {
	return queryAll(ctx, r.db, scanTransaction,
		`SELECT `+transactionColumns+` FROM transactions ORDER BY date DESC, id DESC`)
}

// FindByCategoryID returns a category's transactions, newest first.
func (r *TransactionRepository) FindByCategoryID(ctx context.Context, categoryID int64) ([]model.Transaction, error) {
	return queryAll(ctx, r.db, scanTransaction,
		`SELECT `+transactionColumns+` FROM transactions WHERE categoryId = ? ORDER BY date DESC, id DESC`, categoryID)
}

// FindByBudgetID returns a budget's transactions, newest first.
func (r *TransactionRepository) FindByBudgetID(ctx context.Context, budgetID int64) ([]model.Transaction, error) {
	return queryAll(ctx, r.db, scanTransaction,
		`SELECT `+transactionColumns+` FROM transactions WHERE budgetId = ? ORDER BY date DESC, id DESC`, budgetID)
}

// FindByDateRange returns transactions with start <= date <= end, compared
// as text, newest first.
func (r *TransactionRepository) FindByDateRange(ctx context.Context, start, end string) ([]model.Transaction, error) {
	if err := validateDateRange(start, end); err != nil {
		return nil, err
	}
	return queryAll(ctx, r.db, scanTransaction,
		`SELECT `+transactionColumns+` FROM transactions WHERE date BETWEEN ? AND ? ORDER BY date DESC, id DESC`, start, end)
}

// FindAllWithCategory returns every transaction joined to its category.
func (r *TransactionRepository) FindAllWithCategory(ctx context.Context) ([]model.TransactionWithCategory, error) {
	return queryAll(ctx, r.db, scanTransactionWithCategory, `
		SELECT `+transactionJoinColumns+`
		FROM transactions t
		LEFT JOIN categories c ON t.categoryId = c.id
		ORDER BY t.date DESC, t.id DESC`)
}

// FindByIDWithCategory returns one transaction joined to its category.
func (r *TransactionRepository) FindByIDWithCategory(ctx context.Context, id int64) (*model.TransactionWithCategory, error) {
	return queryOne(ctx, r.db, scanTransactionWithCategory, `
		SELECT `+transactionJoinColumns+`
		FROM transactions t
		LEFT JOIN categories c ON t.categoryId = c.id
		WHERE t.id = ?`, id)
}

// FindByDateRangeWithCategory is FindByDateRange joined to categories.
func (r *TransactionRepository) FindByDateRangeWithCategory(ctx context.Context, start, end string) ([]model.TransactionWithCategory, error) {
	if err := validateDateRange(start, end); err != nil {
		return nil, err
	}
	return queryAll(ctx, r.db, scanTransactionWithCategory, `
		SELECT `+transactionJoinColumns+`
		FROM transactions t
		LEFT JOIN categories c ON t.categoryId = c.id
		WHERE t.date BETWEEN ? AND ?
		ORDER BY t.date DESC, t.id DESC`, start, end)
}

// Create implements Repository.
func (r *TransactionRepository) Create(ctx context.Context, in model.NewTransaction) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateNewTransaction(in); err != nil {
		return nil, err
	}

	res, err := r.db.Exec(ctx, `
		INSERT INTO transactions (amount, categoryId, budgetId, description, date, type)
		VALUES (?, ?, ?, ?, ?, ?)`,
		in.Amount, in.CategoryID, in.BudgetID, in.Description, in.Date, string(in.Type))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	if res.LastInsertID == 0 {
		return nil, fmt.Errorf("%w: transaction", ErrCreateFailed)
	}

	created, err := r.FindByID(ctx, res.LastInsertID)
	if err != nil {
		return nil, fmt.Errorf("failed to load created transaction: %w", err)
	}
	if created == nil {
		return nil, fmt.Errorf("%w: transaction %d", ErrCreateFailed, res.LastInsertID)
	}

	r.db.Notify(EventTransactionUpdated)
	slog.Debug("created transaction", "id", created.ID, "amount", created.Amount, "type", created.Type)
	return created, nil
}

// Update implements Repository.
func (r *TransactionRepository) Update(ctx context.Context, id int64, fields model.TransactionUpdate) (bool, error) {
	if err := validateTransactionUpdate(fields); err != nil {
		return false, err
	}

	b := newUpdate(tableTransactions)
	setIf(b, "amount", fields.Amount)
	setIf(b, "categoryId", fields.CategoryID)
	setIf(b, "budgetId", fields.BudgetID)
	setIf(b, "description", fields.Description)
	if fields.ClearDescription {
		b.set("description", nil)
	}
	setIf(b, "date", fields.Date)
	if fields.Type != nil {
		b.set("type", string(*fields.Type))
	}

	changed, err := b.run(ctx, r.db, id)
	if err != nil {
		return false, fmt.Errorf("failed to update transaction %d: %w", id, err)
	}
	if changed {
		r.db.Notify(EventTransactionUpdated)
	}
	return changed, nil
}

// Delete implements Repository.
func (r *TransactionRepository) Delete(ctx context.Context, id int64) (bool, error) {
	removed, err := deleteByID(ctx, r.db, tableTransactions, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete transaction %d: %w", id, err)
	}
	if removed {
		r.db.Notify(EventTransactionUpdated)
	}
	return removed, nil
}

// Count implements Repository.
func (r *TransactionRepository) Count(ctx context.Context) (int, error) {
	return countRows(ctx, r.db, tableTransactions)
}

// TotalIncome sums all income transactions; zero when there are none.
func (r *TransactionRepository) TotalIncome(ctx context.Context) (decimal.Decimal, error) {
	return r.totalByType(ctx, model.TransactionIncome)
}

// TotalExpense sums all expense transactions; zero when there are none.
func (r *TransactionRepository) TotalExpense(ctx context.Context) (decimal.Decimal, error) {
	return r.totalByType(ctx, model.TransactionExpense)
}

func (r *TransactionRepository) totalByType(ctx context.Context, t model.TransactionType) (decimal.Decimal, error) {
	total, err := sumAmounts(ctx, r.db, `SELECT amount FROM transactions WHERE type = ?`, string(t))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to total %s transactions: %w", t, err)
	}
	return total, nil
}

type categoryLine struct {
	name       sql.NullString
	amount     decimal.Decimal
	categoryID int64
}

// SummaryByCategory totals and counts transactions per category within
// [start, end], largest total first.
func (r *TransactionRepository) SummaryByCategory(ctx context.Context, start, end string) ([]model.CategorySummary, error) {
	if err := validateDateRange(start, end); err != nil {
		return nil, err
	}
	lines, err := queryAll(ctx, r.db, func(row rowScanner) (categoryLine, error) {
		var l categoryLine
		if err := row.Scan(&l.categoryID, &l.name, &l.amount); err != nil {
			return l, fmt.Errorf("failed to scan category summary: %w", err)
		}
		return l, nil
	}, `
		SELECT t.categoryId, c.name, t.amount
		FROM transactions t
		LEFT JOIN categories c ON t.categoryId = c.id
		WHERE t.date BETWEEN ? AND ?
		ORDER BY t.categoryId ASC, t.id ASC`, start, end)
	if err != nil {
		return nil, err
	}

	var out []model.CategorySummary
	for _, l := range lines {
		if n := len(out); n > 0 && out[n-1].CategoryID == l.categoryID {
			out[n-1].Total = out[n-1].Total.Add(l.amount)
			out[n-1].Count++
			continue
		}
		out = append(out, model.CategorySummary{
			CategoryID:   l.categoryID,
			CategoryName: nullableString(l.name),
			Total:        l.amount,
			Count:        1,
		})
	}

	// Stable, so equal totals keep ascending category order.
	slices.SortStableFunc(out, func(a, b model.CategorySummary) int {
		return b.Total.Cmp(a.Total)
	})
	return out, nil
}

type budgetLine struct {
	name     string
	amount   decimal.Decimal
	spent    decimal.NullDecimal
	budgetID int64
}

// SummaryByBudget totals the transactions charged to each budget within
// [start, end]. Budgets whose own range overlaps [start, end] are listed
// even when nothing was spent against them. A budget is exceeded when the
// total is strictly greater than its amount.
func (r *TransactionRepository) SummaryByBudget(ctx context.Context, start, end string) ([]model.BudgetSummary, error) {
	if err := validateDateRange(start, end); err != nil {
		return nil, err
	}
	lines, err := queryAll(ctx, r.db, func(row rowScanner) (budgetLine, error) {
		var l budgetLine
		if err := row.Scan(&l.budgetID, &l.name, &l.amount, &l.spent); err != nil {
			return l, fmt.Errorf("failed to scan budget summary: %w", err)
		}
		return l, nil
	}, `
		SELECT b.id, b.name, b.amount, t.amount
		FROM budgets b
		LEFT JOIN transactions t ON t.budgetId = b.id AND t.date BETWEEN ? AND ?
		WHERE (b.startDate <= ? AND b.endDate >= ?) OR t.id IS NOT NULL
		ORDER BY b.id ASC, t.id ASC`, start, end, end, start)
	if err != nil {
		return nil, err
	}

	var out []model.BudgetSummary
	for _, l := range lines {
		if n := len(out); n == 0 || out[n-1].BudgetID != l.budgetID {
			out = append(out, model.BudgetSummary{
				BudgetID:     l.budgetID,
				BudgetName:   l.name,
				BudgetAmount: l.amount,
				TotalSpent:   decimal.Zero,
			})
		}
		if l.spent.Valid {
			s := &out[len(out)-1]
			s.TotalSpent = s.TotalSpent.Add(l.spent.Decimal)
		}
	}
	for i := range out {
		out[i].IsExceeded = out[i].TotalSpent.GreaterThan(out[i].BudgetAmount)
	}
	return out, nil
}
