package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/tally/internal/common"
	"github.com/Veraticus/tally/internal/config"
	"github.com/Veraticus/tally/internal/storage"
)

// ledger is an open database with its repositories.
type ledger struct {
	db           *storage.Database
	categories   *storage.CategoryRepository
	budgets      *storage.BudgetRepository
	transactions *storage.TransactionRepository
	balances     *storage.BankBalanceRepository
	cfg          config.Config
}

func (e *env) config() (config.Config, error) {
	return config.FromViper(e.v)
}

// openLedger opens the configured database, creating the schema and, when
// database.seed is set, the sample data on first use.
func (e *env) openLedger(ctx context.Context) (*ledger, func(), error) {
	cfg, err := e.config()
	if err != nil {
		return nil, nil, err
	}

	db, err := storage.New(storage.Options{
		Path:        cfg.Database.Path,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create database: %w", err)
	}

	setup := storage.BootstrapWithOptions(storage.BootstrapOptions{
		Now:            e.now,
		SeedSampleData: cfg.Database.Seed,
	})
	if err := db.Initialize(ctx, setup); err != nil {
		return nil, nil, common.NewUserError("could not open the database at "+cfg.Database.Path, err)
	}

	logChanges(db)

	cleanup := func() {
		if err := db.Close(); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}

	return &ledger{
		db:           db,
		categories:   storage.NewCategoryRepository(db),
		budgets:      storage.NewBudgetRepository(db),
		transactions: storage.NewTransactionRepository(db),
		balances:     storage.NewBankBalanceRepository(db),
		cfg:          cfg,
	}, cleanup, nil
}

func logChanges(db *storage.Database) {
	for _, event := range []storage.Event{
		storage.EventCategoryUpdated,
		storage.EventBudgetUpdated,
		storage.EventTransactionUpdated,
	} {
		db.On(event, func() {
			slog.Debug("data changed", "event", event)
		})
	}
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, common.NewUserError(fmt.Sprintf("invalid %s ID %q", what, s), common.ErrInvalidInput)
	}
	return id, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, common.NewUserError(fmt.Sprintf("invalid amount %q", s), common.ErrInvalidInput)
	}
	return amount, nil
}

// monthRange resolves a YYYY-MM flag value, or the current month when
// empty, to its ISO bounds.
func (e *env) monthRange(month string) (start, end, key string, err error) {
	t := e.now()
	if month != "" {
		t, err = time.ParseInLocation("2006-01", month, time.Local)
		if err != nil {
			return "", "", "", common.NewUserError(fmt.Sprintf("invalid month %q, expected YYYY-MM", month), common.ErrInvalidInput)
		}
	}
	start, end, key = storage.MonthBounds(t)
	return start, end, key, nil
}

func deref(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
