// Package testutil provides shared helpers for tests that need a live
// database: an in-memory storage.Database with its repositories, plus
// builders for the rows a test depends on.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/tally/internal/storage"
)

// FixedNow is a stable clock value for tests that date rows.
var FixedNow = time.Date(2025, time.August, 15, 12, 30, 0, 0, time.UTC)

// TestDB is an initialized in-memory database with one repository per
// entity.
type TestDB struct {
	DB           *storage.Database
	Categories   *storage.CategoryRepository
	Budgets      *storage.BudgetRepository
	Transactions *storage.TransactionRepository
	Balances     *storage.BankBalanceRepository
}

// Options configures SetupTestDB.
type Options struct {
	Now        func() time.Time
	Path       string
	SkipSchema bool
	Seed       bool
}

// Option mutates Options.
type Option func(*Options)

// WithSeed inserts the sample data during bootstrap.
func WithSeed() Option {
	return func(o *Options) { o.Seed = true }
}

// WithoutSchema opens the database without creating any tables.
func WithoutSchema() Option {
	return func(o *Options) { o.SkipSchema = true }
}

// WithPath uses a file database at path instead of memory.
func WithPath(path string) Option {
	return func(o *Options) { o.Path = path }
}

// WithNow fixes the clock used to date sample rows.
func WithNow(now time.Time) Option {
	return func(o *Options) { o.Now = func() time.Time { return now } }
}

// SetupTestDB creates and initializes a database for the test and closes
// it during cleanup. By default the schema is created without sample data.
//
// Example:
//
//	db := testutil.SetupTestDB(t, testutil.WithSeed())
//	n, err := db.Categories.Count(ctx)
func SetupTestDB(t *testing.T, opts ...Option) *TestDB {
	t.Helper()

	o := Options{Path: storage.MemoryPath}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := storage.New(storage.Options{Path: o.Path})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	var setup storage.SetupFunc
	if !o.SkipSchema {
		setup = storage.BootstrapWithOptions(storage.BootstrapOptions{
			SeedSampleData: o.Seed,
			Now:            o.Now,
		})
	}
	if err := db.Initialize(context.Background(), setup); err != nil {
		t.Fatalf("failed to initialize test database: %v", err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})

	return &TestDB{
		DB:           db,
		Categories:   storage.NewCategoryRepository(db),
		Budgets:      storage.NewBudgetRepository(db),
		Transactions: storage.NewTransactionRepository(db),
		Balances:     storage.NewBankBalanceRepository(db),
	}
}

// Count returns a repository's row count or fails the test.
func Count(t *testing.T, counter interface {
	Count(ctx context.Context) (int, error)
}) int {
	t.Helper()
	n, err := counter.Count(context.Background())
	if err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	return n
}
