package storage

import (
	"context"

	"github.com/Veraticus/tally/internal/model"
)

// Repository is the contract shared by the entity repositories. T is the
// stored entity, C the creation payload and U the partial update.
type Repository[T, C, U any] interface {
	// CreateTable creates the entity's table if it does not exist.
	CreateTable(ctx context.Context) error
	// CreateIndexes creates the entity's indexes if they do not exist.
	CreateIndexes(ctx context.Context) error
	// InsertSampleData inserts the seed rows. Repeated calls insert again.
	InsertSampleData(ctx context.Context) error
	// FindByID returns nil, nil when no row has id.
	FindByID(ctx context.Context, id int64) (*T, error)
	FindAll(ctx context.Context) ([]T, error)
	// Create inserts in and returns the stored row.
	Create(ctx context.Context, in C) (*T, error)
	// Update applies only the supplied fields and reports whether a row
	// changed.
	Update(ctx context.Context, id int64, fields U) (bool, error)
	// Delete hard-deletes the row and reports whether it existed.
	Delete(ctx context.Context, id int64) (bool, error)
	Count(ctx context.Context) (int, error)
}

var (
	_ Repository[model.Category, model.NewCategory, model.CategoryUpdate]          = (*CategoryRepository)(nil)
	_ Repository[model.Budget, model.NewBudget, model.BudgetUpdate]                = (*BudgetRepository)(nil)
	_ Repository[model.Transaction, model.NewTransaction, model.TransactionUpdate] = (*TransactionRepository)(nil)
	_ Repository[model.BankBalance, model.NewBankBalance, model.BankBalanceUpdate] = (*BankBalanceRepository)(nil)
)

// schemaOwner is the slice of Repository the bootstrap sequence needs.
type schemaOwner interface {
	CreateTable(ctx context.Context) error
	CreateIndexes(ctx context.Context) error
	InsertSampleData(ctx context.Context) error
}
