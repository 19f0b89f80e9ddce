// Package importer loads categories, budgets, transactions and bank
// balances from a JSON document into the database, record by record.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/storage"
)

// Entity names used in progress callbacks and error messages.
const (
	EntityCategory    = "category"
	EntityBudget      = "budget"
	EntityTransaction = "transaction"
	EntityBankBalance = "bank balance"
)

// Document is the import file shape. Every section is optional and
// unknown fields are ignored.
type Document struct {
	Categories   []model.NewCategory    `json:"categories,omitempty"`
	Budgets      []model.NewBudget      `json:"budgets,omitempty"`
	Transactions []model.NewTransaction `json:"transactions,omitempty"`
	BankBalances []model.NewBankBalance `json:"bankBalances,omitempty"`
}

// Len returns the number of records in d.
func (d Document) Len() int {
	return len(d.Categories) + len(d.Budgets) + len(d.Transactions) + len(d.BankBalances)
}

// Counts holds the number of records imported per entity.
type Counts struct {
	Categories   int `json:"categories"`
	Budgets      int `json:"budgets"`
	Transactions int `json:"transactions"`
	BankBalances int `json:"bankBalances"`
}

// Total sums all entities.
func (c Counts) Total() int {
	return c.Categories + c.Budgets + c.Transactions + c.BankBalances
}

// Result reports the outcome of an import.
type Result struct {
	Message  string   `json:"message"`
	Errors   []string `json:"errors"`
	Imported Counts   `json:"imported"`
	Success  bool     `json:"success"`
}

// ProgressFunc is called after each record with the running count of
// processed records and the document total.
type ProgressFunc func(entity string, done, total int)

// Option configures an Importer.
type Option func(*Importer)

// WithProgress registers fn to observe progress.
func WithProgress(fn ProgressFunc) Option {
	return func(i *Importer) { i.progress = fn }
}

// Importer writes documents through the entity repositories. Records are
// created one at a time outside any transaction, so a failing record does
// not undo the ones before it.
type Importer struct {
	categories   *storage.CategoryRepository
	budgets      *storage.BudgetRepository
	transactions *storage.TransactionRepository
	balances     *storage.BankBalanceRepository
	progress     ProgressFunc
}

// New creates an Importer over exec.
func New(exec storage.Executor, opts ...Option) *Importer {
	imp := &Importer{
		categories:   storage.NewCategoryRepository(exec),
		budgets:      storage.NewBudgetRepository(exec),
		transactions: storage.NewTransactionRepository(exec),
		balances:     storage.NewBankBalanceRepository(exec),
	}
	for _, opt := range opts {
		opt(imp)
	}
	return imp
}

// Import creates every record of doc in the order categories, budgets,
// transactions, bank balances. Individual failures are collected in the
// result and do not stop the import. An error is returned only when there
// is no database to write to (storage.ErrNotInitialized) or ctx is done;
// records created before that stay in place.
func (imp *Importer) Import(ctx context.Context, doc Document) (*Result, error) {
	run := importRun{imp: imp, total: doc.Len(), result: &Result{Errors: []string{}}}

	steps := []struct {
		entity string
		count  *int
		create func(i int) error
		n      int
	}{
		{EntityCategory, &run.result.Imported.Categories, func(i int) error {
			_, err := imp.categories.Create(ctx, doc.Categories[i])
			return err
		}, len(doc.Categories)},
		{EntityBudget, &run.result.Imported.Budgets, func(i int) error {
			_, err := imp.budgets.Create(ctx, doc.Budgets[i])
			return err
		}, len(doc.Budgets)},
		{EntityTransaction, &run.result.Imported.Transactions, func(i int) error {
			_, err := imp.transactions.Create(ctx, doc.Transactions[i])
			return err
		}, len(doc.Transactions)},
		{EntityBankBalance, &run.result.Imported.BankBalances, func(i int) error {
			_, err := imp.balances.Create(ctx, doc.BankBalances[i])
			return err
		}, len(doc.BankBalances)},
	}

	for _, step := range steps {
		for i := 0; i < step.n; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			err := step.create(i)
			if errors.Is(err, storage.ErrNotInitialized) {
				return nil, err
			}
			run.record(step.entity, i, err, step.count)
		}
	}

	run.finish()
	return run.result, nil
}

// ImportReader decodes a Document from r and imports it. A document that
// cannot be decoded yields a failed result carrying the decode error.
func (imp *Importer) ImportReader(ctx context.Context, r io.Reader) (*Result, error) {
	var doc Document
	if err := Decode(r, &doc); err != nil {
		return failed(fmt.Errorf("failed to decode import document: %w", err)), nil
	}
	return imp.Import(ctx, doc)
}

// Decode reads one JSON Document from r.
func Decode(r io.Reader, doc *Document) error {
	return json.NewDecoder(r).Decode(doc)
}

// ImportFile imports the JSON document at path.
func (imp *Importer) ImportFile(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path) // #nosec G304 -- path is chosen by the user
	if err != nil {
		return failed(fmt.Errorf("failed to open import file: %w", err)), nil
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("failed to close import file", "path", path, "error", err)
		}
	}()
	return imp.ImportReader(ctx, f)
}

func failed(err error) *Result {
	return &Result{
		Message: fmt.Sprintf("import failed: %v", err),
		Errors:  []string{err.Error()},
	}
}

type importRun struct {
	imp    *Importer
	result *Result
	total  int
	done   int
}

func (r *importRun) record(entity string, index int, err error, count *int) {
	if err != nil {
		msg := fmt.Sprintf("failed to import %s #%d: %v", entity, index+1, err)
		r.result.Errors = append(r.result.Errors, msg)
		slog.Debug("import record failed", "entity", entity, "index", index, "error", err)
	} else {
		*count++
	}

	r.done++
	if r.imp.progress != nil {
		r.imp.progress(entity, r.done, r.total)
	}
}

func (r *importRun) finish() {
	res := r.result
	res.Success = len(res.Errors) == 0
	if res.Success {
		res.Message = fmt.Sprintf("imported %d records", res.Imported.Total())
	} else {
		res.Message = fmt.Sprintf("partially imported: %d records imported, %d failed",
			res.Imported.Total(), len(res.Errors))
	}
	slog.Info("import finished",
		"categories", res.Imported.Categories,
		"budgets", res.Imported.Budgets,
		"transactions", res.Imported.Transactions,
		"bank_balances", res.Imported.BankBalances,
		"errors", len(res.Errors))
}
