package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tally/internal/cli"
	"github.com/Veraticus/tally/internal/importer"
	"github.com/Veraticus/tally/internal/ofx"
)

func importCmd(e *env) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "import <file.json>",
		Short: "Import records from a JSON export",
		Long: `Import categories, budgets, transactions and bank balances from a JSON
document. Records are created one by one; a record that fails is reported and
the import continues with the next one.`,
		Example: `  # Import a backup
  tally import backup.json

  # Read the document from stdin
  cat backup.json | tally import -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := e.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0]) // #nosec G304 -- path is chosen by the user
				if err != nil {
					return fmt.Errorf("failed to open import file: %w", err)
				}
				defer f.Close()
				r = f
			}

			var doc importer.Document
			if err := decodeDocument(r, &doc); err != nil {
				return err
			}

			return runImport(cmd, l, doc, quiet)
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not draw a progress bar")

	return cmd
}

func importOFXCmd(e *env) *cobra.Command {
	var (
		defaults     ofx.Defaults
		listAccounts bool
		dryRun       bool
		quiet        bool
	)

	cmd := &cobra.Command{
		Use:   "import-ofx <file.ofx>...",
		Short: "Import transactions from OFX/QFX bank statements",
		Long: `Import bank and credit card statement lines as transactions. Debits are
filed under --category and --budget; credits under --income-category and
--income-budget when given.`,
		Example: `  # See which accounts a statement covers
  tally import-ofx statement.qfx --accounts

  # Import debits into category 1 / budget 1 and credits into category 4
  tally import-ofx statement.qfx --category 1 --budget 1 --income-category 4`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			parser := ofx.NewParser()

			if listAccounts {
				for _, path := range args {
					accounts, err := withFile(path, func(f io.Reader) ([]string, error) {
						return parser.Accounts(ctx, f)
					})
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%s: %s\n", path, strings.Join(accounts, ", "))
				}
				return nil
			}

			var doc importer.Document
			for _, path := range args {
				part, err := withFile(path, func(f io.Reader) (importer.Document, error) {
					return parser.ParseDocument(ctx, f, defaults)
				})
				if err != nil {
					return err
				}
				doc.Transactions = append(doc.Transactions, part.Transactions...)
			}

			if dryRun {
				fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Would import %d transactions", len(doc.Transactions))))
				return nil
			}

			l, cleanup, err := e.openLedger(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			return runImport(cmd, l, doc, quiet)
		},
	}

	flags := cmd.Flags()
	flags.Int64Var(&defaults.CategoryID, "category", 0, "Category ID for debits")
	flags.Int64Var(&defaults.BudgetID, "budget", 0, "Budget ID for debits")
	flags.Int64Var(&defaults.IncomeCategoryID, "income-category", 0, "Category ID for credits (default: --category)")
	flags.Int64Var(&defaults.IncomeBudgetID, "income-budget", 0, "Budget ID for credits (default: --budget)")
	flags.BoolVar(&listAccounts, "accounts", false, "Only list the accounts found in the files")
	flags.BoolVar(&dryRun, "dry-run", false, "Parse the files without importing")
	flags.BoolVarP(&quiet, "quiet", "q", false, "Do not draw a progress bar")

	return cmd
}

func withFile[T any](path string, fn func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path) // #nosec G304 -- path is chosen by the user
	if err != nil {
		return zero, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	v, err := fn(f)
	if err != nil {
		return zero, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return v, nil
}

func decodeDocument(r io.Reader, doc *importer.Document) error {
	if err := importer.Decode(r, doc); err != nil {
		return fmt.Errorf("failed to decode import document: %w", err)
	}
	return nil
}

// runImport feeds doc through the importer with a progress bar and an
// interrupt handler, then prints the result.
func runImport(cmd *cobra.Command, l *ledger, doc importer.Document, quiet bool) error {
	out := cmd.OutOrStdout()

	var opts []importer.Option
	var progress *cli.ImportProgress
	if !quiet && doc.Len() > 0 {
		progress = cli.NewImportProgress(cmd.ErrOrStderr(), doc.Len())
		opts = append(opts, importer.WithProgress(progress.Update))
	}

	interrupts := cli.NewInterruptHandler(out)
	ctx, stop := interrupts.HandleInterrupts(cmd.Context(), "Import")
	defer stop()

	result, err := importer.New(l.db, opts...).Import(ctx, doc)
	if progress != nil {
		progress.Finish()
	}
	if err != nil {
		if interrupts.WasInterrupted() {
			return nil
		}
		return fmt.Errorf("failed to import: %w", err)
	}

	return printImportResult(out, result)
}

func printImportResult(out io.Writer, result *importer.Result) error {
	if result.Success {
		fmt.Fprintln(out, cli.FormatSuccess(result.Message))
	} else {
		fmt.Fprintln(out, cli.FormatWarning(result.Message))
		for _, msg := range result.Errors {
			fmt.Fprintln(out, "  "+cli.ErrorStyle.Render(msg))
		}
	}

	c := result.Imported
	return cli.WriteTable(out, []string{"Entity", "Imported"}, [][]string{
		{"categories", fmt.Sprint(c.Categories)},
		{"budgets", fmt.Sprint(c.Budgets)},
		{"transactions", fmt.Sprint(c.Transactions)},
		{"bank balances", fmt.Sprint(c.BankBalances)},
	})
}
