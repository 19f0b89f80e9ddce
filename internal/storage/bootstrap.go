package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// BootstrapOptions controls schema setup.
type BootstrapOptions struct {
	// Now dates the sample budgets and transactions. Defaults to time.Now.
	Now func() time.Time
	// SeedSampleData inserts the sample rows into an empty database.
	SeedSampleData bool
}

// bootstrapStep is one stage of schema setup.
type bootstrapStep struct {
	Run         func(ctx context.Context, exec Executor) error
	Description string
}

// Bootstrap creates the schema, seeds an empty database with sample data
// and records the schema version. It is safe to run on every start and is
// meant to be passed to Database.Initialize.
func Bootstrap(ctx context.Context, exec Executor) error {
	return BootstrapWithOptions(BootstrapOptions{SeedSampleData: true})(ctx, exec)
}

// BootstrapWithOptions returns a SetupFunc configured by opts.
func BootstrapWithOptions(opts BootstrapOptions) SetupFunc {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	steps := []bootstrapStep{
		{Description: "create database_info table", Run: func(ctx context.Context, exec Executor) error {
			return execAll(ctx, exec, createDatabaseInfoTable)
		}},
		{Description: "create tables", Run: func(ctx context.Context, exec Executor) error {
			for _, owner := range schemaOwners(exec, opts.Now) {
				if err := owner.CreateTable(ctx); err != nil {
					return err
				}
			}
			return nil
		}},
		{Description: "create indexes", Run: func(ctx context.Context, exec Executor) error {
			for _, owner := range schemaOwners(exec, opts.Now) {
				if err := owner.CreateIndexes(ctx); err != nil {
					return err
				}
			}
			return nil
		}},
	}
	if opts.SeedSampleData {
		steps = append(steps, bootstrapStep{Description: "insert sample data", Run: func(ctx context.Context, exec Executor) error {
			return seedIfEmpty(ctx, exec, opts.Now)
		}})
	}
	steps = append(steps, bootstrapStep{Description: "record schema version", Run: recordVersion})

	return func(ctx context.Context, exec Executor) error {
		if err := validateContext(ctx); err != nil {
			return err
		}
		for _, step := range steps {
			if err := step.Run(ctx, exec); err != nil {
				return fmt.Errorf("failed to %s: %w", step.Description, err)
			}
			slog.Debug("bootstrap step complete", "step", step.Description)
		}
		return nil
	}
}

// schemaOwners lists the repositories in dependency order.
func schemaOwners(exec Executor, now func() time.Time) []schemaOwner {
	budgets := NewBudgetRepository(exec)
	budgets.now = now
	transactions := NewTransactionRepository(exec)
	transactions.now = now
	return []schemaOwner{
		NewCategoryRepository(exec),
		budgets,
		NewBankBalanceRepository(exec),
		transactions,
	}
}

// seedIfEmpty inserts every repository's sample data in one transaction
// when the categories table holds no rows.
func seedIfEmpty(ctx context.Context, exec Executor, now func() time.Time) error {
	n, err := countRows(ctx, exec, tableCategories)
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Debug("database already holds data, skipping sample data", "categories", n)
		return nil
	}

	err = exec.Transaction(ctx, func(ctx context.Context, tx Executor) error {
		for _, owner := range schemaOwners(tx, now) {
			if err := owner.InsertSampleData(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("inserted sample data")
	return nil
}

func recordVersion(ctx context.Context, exec Executor) error {
	_, err := exec.Exec(ctx, `
		INSERT INTO database_info (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		versionKey, SchemaVersion)
	return err
}
