package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/tally/internal/model"
	"github.com/shopspring/decimal"
)

const bankBalanceColumns = `id, year, month, openingBalance, closingBalance, createdAt, updatedAt`

// BankBalanceRepository stores monthly opening and closing balances. It
// raises no change events.
type BankBalanceRepository struct {
	db Executor
}

// NewBankBalanceRepository creates a repository over db.
func NewBankBalanceRepository(db Executor) *BankBalanceRepository {
	return &BankBalanceRepository{db: db}
}

func scanBankBalance(row rowScanner) (model.BankBalance, error) {
	var b model.BankBalance
	err := row.Scan(&b.ID, &b.Year, &b.Month, &b.OpeningBalance, &b.ClosingBalance, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return b, fmt.Errorf("failed to scan bank balance: %w", err)
	}
	return b, nil
}

// CreateTable implements Repository.
func (r *BankBalanceRepository) CreateTable(ctx context.Context) error {
	return execAll(ctx, r.db, createBankBalancesTable)
}

// CreateIndexes implements Repository.
func (r *BankBalanceRepository) CreateIndexes(ctx context.Context) error {
	return execAll(ctx, r.db, bankBalanceIndexes...)
}

// InsertSampleData inserts the sample balances, skipping any month that
// already has one.
func (r *BankBalanceRepository) InsertSampleData(ctx context.Context) error {
	for _, in := range sampleBankBalances() {
		existing, err := r.FindByYearMonth(ctx, in.Year, in.Month)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if _, err := r.Create(ctx, in); err != nil {
			return fmt.Errorf("failed to insert sample bank balance %d-%02d: %w", in.Year, in.Month, err)
		}
	}
	return nil
}

// FindByID implements Repository.
func (r *BankBalanceRepository) FindByID(ctx context.Context, id int64) (*model.BankBalance, error) {
	return queryOne(ctx, r.db, scanBankBalance,
		`SELECT `+bankBalanceColumns+` FROM bank_balances WHERE id = ?`, id)
}

// FindAll returns every balance, most recent month first.
func (r *BankBalanceRepository) FindAll(ctx context.Context) ([]model.BankBalance, error) {
	return queryAll(ctx, r.db, scanBankBalance,
		`SELECT `+bankBalanceColumns+` FROM bank_balances ORDER BY year DESC, month DESC`)
}

// FindByYearMonth returns the balance of one month, or nil when none is
// recorded.
func (r *BankBalanceRepository) FindByYearMonth(ctx context.Context, year, month int) (*model.BankBalance, error) {
	if err := validateYearMonth(year, month); err != nil {
		return nil, err
	}
	return queryOne(ctx, r.db, scanBankBalance,
		`SELECT `+bankBalanceColumns+` FROM bank_balances WHERE year = ? AND month = ?`, year, month)
}

// FindByYear returns a year's balances in month order.
func (r *BankBalanceRepository) FindByYear(ctx context.Context, year int) ([]model.BankBalance, error) {
	return queryAll(ctx, r.db, scanBankBalance,
		`SELECT `+bankBalanceColumns+` FROM bank_balances WHERE year = ? ORDER BY month ASC`, year)
}

// Create implements Repository. A second balance for the same year and
// month violates the unique constraint.
func (r *BankBalanceRepository) Create(ctx context.Context, in model.NewBankBalance) (*model.BankBalance, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateYearMonth(in.Year, in.Month); err != nil {
		return nil, err
	}

	res, err := r.db.Exec(ctx, `
		INSERT INTO bank_balances (year, month, openingBalance, closingBalance)
		VALUES (?, ?, ?, ?)`,
		in.Year, in.Month, in.OpeningBalance, in.ClosingBalance)
	if err != nil {
		return nil, fmt.Errorf("failed to create bank balance: %w", err)
	}
	if res.LastInsertID == 0 {
		return nil, fmt.Errorf("%w: bank balance %d-%02d", ErrCreateFailed, in.Year, in.Month)
	}

	created, err := r.FindByID(ctx, res.LastInsertID)
	if err != nil {
		return nil, fmt.Errorf("failed to load created bank balance: %w", err)
	}
	if created == nil {
		return nil, fmt.Errorf("%w: bank balance %d", ErrCreateFailed, res.LastInsertID)
	}
	return created, nil
}

// Update implements Repository.
func (r *BankBalanceRepository) Update(ctx context.Context, id int64, fields model.BankBalanceUpdate) (bool, error) {
	if err := validateBankBalanceUpdate(fields); err != nil {
		return false, err
	}

	b := newUpdate(tableBankBalances)
	setIf(b, "year", fields.Year)
	setIf(b, "month", fields.Month)
	setIf(b, "openingBalance", fields.OpeningBalance)
	setIf(b, "closingBalance", fields.ClosingBalance)

	changed, err := b.run(ctx, r.db, id)
	if err != nil {
		return false, fmt.Errorf("failed to update bank balance %d: %w", id, err)
	}
	return changed, nil
}

// Delete implements Repository.
func (r *BankBalanceRepository) Delete(ctx context.Context, id int64) (bool, error) {
	removed, err := deleteByID(ctx, r.db, tableBankBalances, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete bank balance %d: %w", id, err)
	}
	return removed, nil
}

// Count implements Repository.
func (r *BankBalanceRepository) Count(ctx context.Context) (int, error) {
	return countRows(ctx, r.db, tableBankBalances)
}

// InitializeYear creates zero balances for all twelve months of year in
// one transaction. A year that already has any balance is left alone and
// reports zero. It must be called on the Database, not inside another
// transaction.
func (r *BankBalanceRepository) InitializeYear(ctx context.Context, year int) (int, error) {
	if err := validateYearMonth(year, 1); err != nil {
		return 0, err
	}

	existing, err := r.FindByYear(ctx, year)
	if err != nil {
		return 0, fmt.Errorf("failed to check balances for %d: %w", year, err)
	}
	if len(existing) > 0 {
		slog.Debug("bank balances already initialized", "year", year, "months", len(existing))
		return 0, nil
	}

	err = r.db.Transaction(ctx, func(ctx context.Context, tx Executor) error {
		repo := NewBankBalanceRepository(tx)
		for month := 1; month <= 12; month++ {
			in := model.NewBankBalance{
				Year:           year,
				Month:          month,
				OpeningBalance: decimal.Zero,
				ClosingBalance: decimal.Zero,
			}
			if _, err := repo.Create(ctx, in); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to initialize balances for %d: %w", year, err)
	}

	slog.Info("initialized bank balances", "year", year)
	return 12, nil
}
