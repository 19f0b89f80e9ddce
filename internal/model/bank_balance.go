package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankBalance records the opening and closing balance of one calendar month.
// (Year, Month) is unique.
type BankBalance struct {
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	ClosingBalance decimal.Decimal `json:"closingBalance"`
	ID             int64           `json:"id"`
	Year           int             `json:"year"`
	Month          int             `json:"month"` // 1-12
}

// Change returns ClosingBalance - OpeningBalance.
func (b BankBalance) Change() decimal.Decimal {
	return b.ClosingBalance.Sub(b.OpeningBalance)
}

// NewBankBalance holds the fields supplied when creating a bank balance.
type NewBankBalance struct {
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	ClosingBalance decimal.Decimal `json:"closingBalance"`
	Year           int             `json:"year"`
	Month          int             `json:"month"`
}

// BankBalanceUpdate is a partial update; nil fields are left unchanged.
type BankBalanceUpdate struct {
	Year           *int             `json:"year,omitempty"`
	Month          *int             `json:"month,omitempty"`
	OpeningBalance *decimal.Decimal `json:"openingBalance,omitempty"`
	ClosingBalance *decimal.Decimal `json:"closingBalance,omitempty"`
}
