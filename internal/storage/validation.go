// Package storage provides the SQLite data-access layer: the connection
// manager, the query executor contract and one repository per entity.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/tally/internal/model"
)

// Connection and execution errors.
var (
	ErrNotInitialized      = errors.New("database not initialized")
	ErrTransactionConflict = errors.New("a transaction is already in progress")
	ErrCreateFailed        = errors.New("failed to resolve created row")
	ErrQueryExecution      = errors.New("query execution failed")
	ErrUnknownTable        = errors.New("unknown table")
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrInvalidDateRange   = errors.New("start date must not be after end date")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidBudget      = errors.New("invalid budget")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidBankBalance = errors.New("invalid bank balance")
)

// QueryError wraps an engine failure together with the statement that
// caused it. It matches ErrQueryExecution with errors.Is.
type QueryError struct {
	Err   error
	Query string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%v: %v", ErrQueryExecution, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Is reports ErrQueryExecution as a match.
func (e *QueryError) Is(target error) bool {
	return target == ErrQueryExecution
}

func newQueryError(query string, err error) error {
	return &QueryError{Query: strings.TrimSpace(query), Err: err}
}

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateDateRange checks that both bounds are set and ordered.
// ISO-8601 strings compare correctly as text.
func validateDateRange(start, end string) error {
	if err := validateString(start, "start"); err != nil {
		return err
	}
	if err := validateString(end, "end"); err != nil {
		return err
	}
	if start > end {
		return fmt.Errorf("%w: %s > %s", ErrInvalidDateRange, start, end)
	}
	return nil
}

func validateNewCategory(c model.NewCategory) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidCategory)
	}
	if strings.TrimSpace(c.Icon) == "" {
		return fmt.Errorf("%w: missing icon", ErrInvalidCategory)
	}
	if !c.Type.Valid() {
		return fmt.Errorf("%w: type %q", ErrInvalidCategory, c.Type)
	}
	return nil
}

func validateCategoryUpdate(u model.CategoryUpdate) error {
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidCategory)
	}
	if u.Type != nil && !u.Type.Valid() {
		return fmt.Errorf("%w: type %q", ErrInvalidCategory, *u.Type)
	}
	return nil
}

func validateMonth(month string) error {
	if _, err := time.Parse(model.MonthLayout, month); err != nil {
		return fmt.Errorf("%w: month %q is not YYYY-MM", ErrInvalidBudget, month)
	}
	return nil
}

func validateNewBudget(b model.NewBudget) error {
	if strings.TrimSpace(b.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidBudget)
	}
	if b.Amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidBudget)
	}
	if !b.Period.Valid() {
		return fmt.Errorf("%w: period %q", ErrInvalidBudget, b.Period)
	}
	if b.StartDate == "" || b.EndDate == "" {
		return fmt.Errorf("%w: missing start or end date", ErrInvalidBudget)
	}
	return validateMonth(b.Month)
}

func validateBudgetUpdate(u model.BudgetUpdate) error {
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidBudget)
	}
	if u.Amount != nil && u.Amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidBudget)
	}
	if u.Period != nil && !u.Period.Valid() {
		return fmt.Errorf("%w: period %q", ErrInvalidBudget, *u.Period)
	}
	if u.Month != nil {
		return validateMonth(*u.Month)
	}
	return nil
}

func validateNewTransaction(t model.NewTransaction) error {
	if !t.Type.Valid() {
		return fmt.Errorf("%w: type %q", ErrInvalidTransaction, t.Type)
	}
	if strings.TrimSpace(t.Date) == "" {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	return nil
}

func validateTransactionUpdate(u model.TransactionUpdate) error {
	if u.Type != nil && !u.Type.Valid() {
		return fmt.Errorf("%w: type %q", ErrInvalidTransaction, *u.Type)
	}
	if u.Date != nil && strings.TrimSpace(*u.Date) == "" {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if u.ClearDescription && u.Description != nil {
		return fmt.Errorf("%w: description both set and cleared", ErrInvalidTransaction)
	}
	return nil
}

func validateYearMonth(year, month int) error {
	if year <= 0 {
		return fmt.Errorf("%w: year %d", ErrInvalidBankBalance, year)
	}
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: month %d is not between 1 and 12", ErrInvalidBankBalance, month)
	}
	return nil
}

func validateBankBalanceUpdate(u model.BankBalanceUpdate) error {
	if u.Year != nil && *u.Year <= 0 {
		return fmt.Errorf("%w: year %d", ErrInvalidBankBalance, *u.Year)
	}
	if u.Month != nil && (*u.Month < 1 || *u.Month > 12) {
		return fmt.Errorf("%w: month %d is not between 1 and 12", ErrInvalidBankBalance, *u.Month)
	}
	return nil
}
