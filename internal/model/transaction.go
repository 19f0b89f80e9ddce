package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of money movement.
type TransactionType string

const (
	// TransactionIncome is money coming in.
	TransactionIncome TransactionType = "income"
	// TransactionExpense is money going out.
	TransactionExpense TransactionType = "expense"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == TransactionIncome || t == TransactionExpense
}

// TransactionTypeFor returns the transaction type matching a category type.
// Callers use it to default a transaction's type from its category.
func TransactionTypeFor(c CategoryType) TransactionType {
	if c == CategoryTypeIncome {
		return TransactionIncome
	}
	return TransactionExpense
}

// Transaction is a single income or expense entry charged against a budget.
type Transaction struct {
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Description *string         `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"` // ISO-8601
	Type        TransactionType `json:"type"`
	ID          int64           `json:"id"`
	CategoryID  int64           `json:"categoryId"`
	BudgetID    int64           `json:"budgetId"`
}

// NewTransaction holds the fields supplied when creating a transaction.
type NewTransaction struct {
	Description *string         `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	Type        TransactionType `json:"type"`
	CategoryID  int64           `json:"categoryId"`
	BudgetID    int64           `json:"budgetId"`
}

// TransactionUpdate is a partial update; nil fields are left unchanged.
// A nil Description means "not supplied", so ClearDescription is the way
// to set it back to NULL. The two cannot be combined.
type TransactionUpdate struct {
	Amount           *decimal.Decimal `json:"amount,omitempty"`
	CategoryID       *int64           `json:"categoryId,omitempty"`
	BudgetID         *int64           `json:"budgetId,omitempty"`
	Description      *string          `json:"description,omitempty"`
	Date             *string          `json:"date,omitempty"`
	Type             *TransactionType `json:"type,omitempty"`
	ClearDescription bool             `json:"clearDescription,omitempty"`
}

// TransactionWithCategory is a transaction joined to its category. The
// category fields are nil when the referenced category does not exist.
type TransactionWithCategory struct {
	CategoryName *string `json:"categoryName"`
	CategoryIcon *string `json:"categoryIcon"`
	Transaction
}

// CategorySummary totals the transactions of one category in a date range.
type CategorySummary struct {
	CategoryName *string         `json:"categoryName"`
	Total        decimal.Decimal `json:"total"`
	CategoryID   int64           `json:"categoryId"`
	Count        int             `json:"count"`
}
