package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BudgetPeriod is the cadence a budget amount applies to.
type BudgetPeriod string

// Budget periods.
const (
	PeriodDaily   BudgetPeriod = "daily"
	PeriodWeekly  BudgetPeriod = "weekly"
	PeriodMonthly BudgetPeriod = "monthly"
	PeriodYearly  BudgetPeriod = "yearly"
)

// Valid reports whether p is one of the known periods.
func (p BudgetPeriod) Valid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly:
		return true
	}
	return false
}

// MonthLayout is the layout of Budget.Month values (YYYY-MM).
const MonthLayout = "2006-01"

// Budget caps spending for a category over a date range.
// StartDate and EndDate are ISO-8601 strings; StartDate <= EndDate is
// expected but not enforced by the database.
type Budget struct {
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
	Amount           decimal.Decimal `json:"amount"`
	Name             string          `json:"name"`
	Period           BudgetPeriod    `json:"period"`
	StartDate        string          `json:"startDate"`
	EndDate          string          `json:"endDate"`
	Month            string          `json:"month"`
	ID               int64           `json:"id"`
	CategoryID       int64           `json:"categoryId"`
	IsRegular        bool            `json:"isRegular"`
	IsBudgetExceeded bool            `json:"isBudgetExceeded"`
}

// NewBudget holds the fields supplied when creating a budget.
type NewBudget struct {
	Amount           decimal.Decimal `json:"amount"`
	Name             string          `json:"name"`
	Period           BudgetPeriod    `json:"period"`
	StartDate        string          `json:"startDate"`
	EndDate          string          `json:"endDate"`
	Month            string          `json:"month"`
	CategoryID       int64           `json:"categoryId"`
	IsRegular        bool            `json:"isRegular"`
	IsBudgetExceeded bool            `json:"isBudgetExceeded"`
}

// BudgetUpdate is a partial update; nil fields are left unchanged.
type BudgetUpdate struct {
	Name             *string          `json:"name,omitempty"`
	CategoryID       *int64           `json:"categoryId,omitempty"`
	Amount           *decimal.Decimal `json:"amount,omitempty"`
	Period           *BudgetPeriod    `json:"period,omitempty"`
	StartDate        *string          `json:"startDate,omitempty"`
	EndDate          *string          `json:"endDate,omitempty"`
	Month            *string          `json:"month,omitempty"`
	IsRegular        *bool            `json:"isRegular,omitempty"`
	IsBudgetExceeded *bool            `json:"isBudgetExceeded,omitempty"`
}

// BudgetWithCategory is a budget joined to its category. The category
// fields are nil when the referenced category does not exist.
type BudgetWithCategory struct {
	CategoryName *string       `json:"categoryName"`
	CategoryType *CategoryType `json:"categoryType"`
	Budget
}

// BudgetSummary is the spend rolled up against one budget.
type BudgetSummary struct {
	BudgetName   string          `json:"budgetName"`
	TotalSpent   decimal.Decimal `json:"totalSpent"`
	BudgetAmount decimal.Decimal `json:"budgetAmount"`
	BudgetID     int64           `json:"budgetId"`
	IsExceeded   bool            `json:"isExceeded"`
}
