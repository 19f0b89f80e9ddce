package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/tally/internal/model"
)

const budgetColumns = `id, name, categoryId, amount, period, startDate, endDate, month,
	isRegular, isBudgetExceeded, createdAt, updatedAt`

const budgetJoinColumns = `b.id, b.name, b.categoryId, b.amount, b.period, b.startDate, b.endDate, b.month,
	b.isRegular, b.isBudgetExceeded, b.createdAt, b.updatedAt, c.name, c.type`

// BudgetRepository stores budgets.
type BudgetRepository struct {
	db  Executor
	now func() time.Time
}

// NewBudgetRepository creates a repository over db.
func NewBudgetRepository(db Executor) *BudgetRepository {
	return &BudgetRepository{db: db, now: time.Now}
}

func budgetDest(b *model.Budget) []any {
	return []any{&b.ID, &b.Name, &b.CategoryID, &b.Amount, &b.Period, &b.StartDate, &b.EndDate,
		&b.Month, &b.IsRegular, &b.IsBudgetExceeded, &b.CreatedAt, &b.UpdatedAt}
}

func scanBudget(row rowScanner) (model.Budget, error) {
	var b model.Budget
	if err := row.Scan(budgetDest(&b)...); err != nil {
		return b, fmt.Errorf("failed to scan budget: %w", err)
	}
	return b, nil
}

func scanBudgetWithCategory(row rowScanner) (model.BudgetWithCategory, error) {
	var (
		out          model.BudgetWithCategory
		categoryName sql.NullString
		categoryType sql.NullString
	)
	dest := append(budgetDest(&out.Budget), &categoryName, &categoryType)
	if err := row.Scan(dest...); err != nil {
		return out, fmt.Errorf("failed to scan budget: %w", err)
	}
	out.CategoryName = nullableString(categoryName)
	if categoryType.Valid {
		t := model.CategoryType(categoryType.String)
		out.CategoryType = &t
	}
	return out, nil
}

// CreateTable implements Repository.
func (r *BudgetRepository) CreateTable(ctx context.Context) error {
	return execAll(ctx, r.db, createBudgetsTable)
}

// CreateIndexes implements Repository.
func (r *BudgetRepository) CreateIndexes(ctx context.Context) error {
	return execAll(ctx, r.db, budgetIndexes...)
}

// InsertSampleData inserts the sample budgets for the current month. Each
// sample is attached to the first category with its name; samples whose
// category is missing are skipped.
func (r *BudgetRepository) InsertSampleData(ctx context.Context) error {
	ids, err := categoryIDsByName(ctx, r.db)
	if err != nil {
		return err
	}

	for _, s := range sampleBudgets(r.now()) {
		categoryID, ok := ids[s.categoryName]
		if !ok {
			slog.Warn("skipping sample budget without category", "budget", s.budget.Name, "category", s.categoryName)
			continue
		}
		s.budget.CategoryID = categoryID
		if _, err := r.Create(ctx, s.budget); err != nil {
			return fmt.Errorf("failed to insert sample budget %q: %w", s.budget.Name, err)
		}
	}
	return nil
}

// FindByID implements Repository.
func (r *BudgetRepository) FindByID(ctx context.Context, id int64) (*model.Budget, error) {
	return queryOne(ctx, r.db, scanBudget, `SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id)
}

// FindAll returns budgets by month descending, then category ascending.
func (r *BudgetRepository) FindAll(ctx context.Context) ([]model.Budget, error) {
	return queryAll(ctx, r.db, scanBudget,
		`SELECT `+budgetColumns+` FROM budgets ORDER BY month DESC, categoryId ASC, id ASC`)
}

// FindByCategoryID returns a category's budgets, newest month first.
func (r *BudgetRepository) FindByCategoryID(ctx context.Context, categoryID int64) ([]model.Budget, error) {
	return queryAll(ctx, r.db, scanBudget,
		`SELECT `+budgetColumns+` FROM budgets WHERE categoryId = ? ORDER BY month DESC, id ASC`, categoryID)
}

// FindByCategoryAndMonth returns a category's budgets for month (YYYY-MM).
func (r *BudgetRepository) FindByCategoryAndMonth(ctx context.Context, categoryID int64, month string) ([]model.Budget, error) {
	return queryAll(ctx, r.db, scanBudget,
		`SELECT `+budgetColumns+` FROM budgets WHERE categoryId = ? AND month = ? ORDER BY id ASC`, categoryID, month)
}

// FindByDateRange returns budgets whose [startDate, endDate] overlaps
// [start, end].
func (r *BudgetRepository) FindByDateRange(ctx context.Context, start, end string) ([]model.Budget, error) {
	if err := validateDateRange(start, end); err != nil {
		return nil, err
	}
	return queryAll(ctx, r.db, scanBudget,
		`SELECT `+budgetColumns+` FROM budgets WHERE startDate <= ? AND endDate >= ? ORDER BY startDate, id`, end, start)
}

// FindByPeriod returns the budgets with period p.
func (r *BudgetRepository) FindByPeriod(ctx context.Context, p model.BudgetPeriod) ([]model.Budget, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: period %q", ErrInvalidBudget, p)
	}
	return queryAll(ctx, r.db, scanBudget,
		`SELECT `+budgetColumns+` FROM budgets WHERE period = ? ORDER BY id`, string(p))
}

// FindByMonth returns the budgets of month (YYYY-MM) by category.
func (r *BudgetRepository) FindByMonth(ctx context.Context, month string) ([]model.Budget, error) {
	return queryAll(ctx, r.db, scanBudget,
		`SELECT `+budgetColumns+` FROM budgets WHERE month = ? ORDER BY categoryId ASC, id ASC`, month)
}

// FindActive returns budgets for month (YYYY-MM) or later.
func (r *BudgetRepository) FindActive(ctx context.Context, month string) ([]model.Budget, error) {
	return queryAll(ctx, r.db, scanBudget,
		`SELECT `+budgetColumns+` FROM budgets WHERE month >= ? ORDER BY month DESC, categoryId ASC, id ASC`, month)
}

// FindAllWithCategory returns every budget joined to its category.
func (r *BudgetRepository) FindAllWithCategory(ctx context.Context) ([]model.BudgetWithCategory, error) {
	return queryAll(ctx, r.db, scanBudgetWithCategory, `
		SELECT `+budgetJoinColumns+`
		FROM budgets b
		LEFT JOIN categories c ON b.categoryId = c.id
		ORDER BY b.month DESC, b.categoryId ASC, b.id ASC`)
}

// FindByIDWithCategory returns one budget joined to its category.
func (r *BudgetRepository) FindByIDWithCategory(ctx context.Context, id int64) (*model.BudgetWithCategory, error) {
	return queryOne(ctx, r.db, scanBudgetWithCategory, `
		SELECT `+budgetJoinColumns+`
		FROM budgets b
		LEFT JOIN categories c ON b.categoryId = c.id
		WHERE b.id = ?`, id)
}

// FindByMonthWithCategory returns a month's budgets joined to categories.
func (r *BudgetRepository) FindByMonthWithCategory(ctx context.Context, month string) ([]model.BudgetWithCategory, error) {
	return queryAll(ctx, r.db, scanBudgetWithCategory, `
		SELECT `+budgetJoinColumns+`
		FROM budgets b
		LEFT JOIN categories c ON b.categoryId = c.id
		WHERE b.month = ?
		ORDER BY b.categoryId ASC, b.id ASC`, month)
}

// Create implements Repository.
func (r *BudgetRepository) Create(ctx context.Context, in model.NewBudget) (*model.Budget, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateNewBudget(in); err != nil {
		return nil, err
	}

	res, err := r.db.Exec(ctx, `
		INSERT INTO budgets (name, categoryId, amount, period, startDate, endDate, month, isRegular, isBudgetExceeded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Name, in.CategoryID, in.Amount, string(in.Period), in.StartDate, in.EndDate, in.Month,
		in.IsRegular, in.IsBudgetExceeded)
	if err != nil {
		return nil, fmt.Errorf("failed to create budget: %w", err)
	}
	if res.LastInsertID == 0 {
		return nil, fmt.Errorf("%w: budget %q", ErrCreateFailed, in.Name)
	}

	created, err := r.FindByID(ctx, res.LastInsertID)
	if err != nil {
		return nil, fmt.Errorf("failed to load created budget: %w", err)
	}
	if created == nil {
		return nil, fmt.Errorf("%w: budget %d", ErrCreateFailed, res.LastInsertID)
	}

	r.db.Notify(EventBudgetUpdated)
	slog.Debug("created budget", "id", created.ID, "name", created.Name, "month", created.Month)
	return created, nil
}

// Update implements Repository.
func (r *BudgetRepository) Update(ctx context.Context, id int64, fields model.BudgetUpdate) (bool, error) {
	if err := validateBudgetUpdate(fields); err != nil {
		return false, err
	}

	b := newUpdate(tableBudgets)
	setIf(b, "name", fields.Name)
	setIf(b, "categoryId", fields.CategoryID)
	setIf(b, "amount", fields.Amount)
	if fields.Period != nil {
		b.set("period", string(*fields.Period))
	}
	setIf(b, "startDate", fields.StartDate)
	setIf(b, "endDate", fields.EndDate)
	setIf(b, "month", fields.Month)
	setIf(b, "isRegular", fields.IsRegular)
	setIf(b, "isBudgetExceeded", fields.IsBudgetExceeded)

	changed, err := b.run(ctx, r.db, id)
	if err != nil {
		return false, fmt.Errorf("failed to update budget %d: %w", id, err)
	}
	if changed {
		r.db.Notify(EventBudgetUpdated)
	}
	return changed, nil
}

// RefreshExceeded recomputes isBudgetExceeded for budget id from the
// transactions charged to it within its own date range. A budget is
// exceeded when that total is strictly greater than its amount. It reports
// the new flag value, or false when the budget does not exist.
func (r *BudgetRepository) RefreshExceeded(ctx context.Context, id int64) (bool, error) {
	budget, err := r.FindByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to refresh budget %d: %w", id, err)
	}
	if budget == nil {
		return false, nil
	}

	spent, err := sumAmounts(ctx, r.db, `
		SELECT amount FROM transactions
		WHERE budgetId = ? AND date BETWEEN ? AND ?`, id, budget.StartDate, budget.EndDate)
	if err != nil {
		return false, fmt.Errorf("failed to total spending for budget %d: %w", id, err)
	}
	exceeded := spent.GreaterThan(budget.Amount)

	res, err := r.db.Exec(ctx, `
		UPDATE budgets SET isBudgetExceeded = ?, updatedAt = CURRENT_TIMESTAMP
		WHERE id = ?`, exceeded, id)
	if err != nil {
		return false, fmt.Errorf("failed to refresh budget %d: %w", id, err)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	r.db.Notify(EventBudgetUpdated)
	slog.Debug("refreshed budget", "id", id, "spent", spent, "amount", budget.Amount, "exceeded", exceeded)
	return exceeded, nil
}

// Delete implements Repository. Deleting a budget still referenced by a
// transaction fails with a foreign key violation.
func (r *BudgetRepository) Delete(ctx context.Context, id int64) (bool, error) {
	removed, err := deleteByID(ctx, r.db, tableBudgets, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete budget %d: %w", id, err)
	}
	if removed {
		r.db.Notify(EventBudgetUpdated)
	}
	return removed, nil
}

// Count implements Repository.
func (r *BudgetRepository) Count(ctx context.Context) (int, error) {
	return countRows(ctx, r.db, tableBudgets)
}
