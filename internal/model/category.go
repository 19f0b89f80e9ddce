// Package model defines the entities stored by the tracker.
package model

import "time"

// CategoryType indicates whether a category is for income or expense.
type CategoryType string

const (
	// CategoryTypeIncome represents categories for income transactions.
	CategoryTypeIncome CategoryType = "income"
	// CategoryTypeExpense represents categories for expense transactions.
	CategoryTypeExpense CategoryType = "expense"
)

// Valid reports whether t is one of the known category types.
func (t CategoryType) Valid() bool {
	return t == CategoryTypeIncome || t == CategoryTypeExpense
}

// Category groups transactions and budgets under a named, typed heading.
type Category struct {
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Name      string       `json:"name"`
	Icon      string       `json:"icon"`
	Type      CategoryType `json:"type"`
	ID        int64        `json:"id"`
	SortOrder int          `json:"sortOrder"`
	IsDefault bool         `json:"isDefault"`
	IsActive  bool         `json:"isActive"`
}

// NewCategory holds the fields supplied when creating a category.
// IsActive defaults to true when omitted.
type NewCategory struct {
	IsActive  *bool        `json:"isActive,omitempty"`
	Name      string       `json:"name"`
	Icon      string       `json:"icon"`
	Type      CategoryType `json:"type"`
	SortOrder int          `json:"sortOrder"`
	IsDefault bool         `json:"isDefault"`
}

// Active returns the effective isActive value for a new category.
func (c NewCategory) Active() bool {
	if c.IsActive == nil {
		return true
	}
	return *c.IsActive
}

// CategoryUpdate is a partial update; nil fields are left unchanged.
type CategoryUpdate struct {
	Name      *string       `json:"name,omitempty"`
	Icon      *string       `json:"icon,omitempty"`
	Type      *CategoryType `json:"type,omitempty"`
	SortOrder *int          `json:"sortOrder,omitempty"`
	IsDefault *bool         `json:"isDefault,omitempty"`
	IsActive  *bool         `json:"isActive,omitempty"`
}
