// Package ofx turns OFX/QFX bank and credit card statements into
// transactions ready for the importer.
package ofx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"regexp"
	"sort"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/tally/internal/importer"
	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/storage"
)

// ErrMissingDefaults is returned when no category or budget is given for
// the statement lines.
var ErrMissingDefaults = errors.New("category and budget are required")

// Defaults chooses where statement lines are filed. Debits go to
// CategoryID and BudgetID. Credits go to IncomeCategoryID and
// IncomeBudgetID, falling back to the debit values when those are zero.
type Defaults struct {
	CategoryID       int64
	BudgetID         int64
	IncomeCategoryID int64
	IncomeBudgetID   int64
}

func (d Defaults) validate() error {
	if d.CategoryID <= 0 || d.BudgetID <= 0 {
		return ErrMissingDefaults
	}
	return nil
}

func (d Defaults) forType(t model.TransactionType) (categoryID, budgetID int64) {
	categoryID, budgetID = d.CategoryID, d.BudgetID
	if t != model.TransactionIncome {
		return categoryID, budgetID
	}
	if d.IncomeCategoryID > 0 {
		categoryID = d.IncomeCategoryID
	}
	if d.IncomeBudgetID > 0 {
		budgetID = d.IncomeBudgetID
	}
	return categoryID, budgetID
}

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	openTagRegex  = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Parser reads OFX/QFX statements.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// preprocess repairs formatting that ofxgo rejects but banks emit.
func (p *Parser) preprocess(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// SGML files sometimes drop the closing bracket of an opening tag.
	return openTagRegex.ReplaceAllString(content, "$1>")
}

func (p *Parser) read(reader io.Reader) (*ofxgo.Response, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocess(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}
	return resp, nil
}

// Parse converts every bank and credit card statement line in reader
// into a transaction filed according to defaults.
func (p *Parser) Parse(ctx context.Context, reader io.Reader, defaults Defaults) ([]model.NewTransaction, error) {
	if err := defaults.validate(); err != nil {
		return nil, err
	}

	resp, err := p.read(reader)
	if err != nil {
		return nil, err
	}

	var (
		transactions      []model.NewTransaction
		bankStmts, ccStmt int
	)

	for _, msg := range resp.Bank {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		bankStmts++
		transactions = p.appendLines(transactions, stmt.BankTranList.Transactions, defaults)
	}

	for _, msg := range resp.CreditCard {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		ccStmt++
		transactions = p.appendLines(transactions, stmt.BankTranList.Transactions, defaults)
	}

	slog.Info("Parsed OFX file",
		"total_transactions", len(transactions),
		"bank_statements", bankStmts,
		"cc_statements", ccStmt)

	return transactions, nil
}

// ParseDocument is Parse wrapped as an import document.
func (p *Parser) ParseDocument(ctx context.Context, reader io.Reader, defaults Defaults) (importer.Document, error) {
	transactions, err := p.Parse(ctx, reader, defaults)
	if err != nil {
		return importer.Document{}, err
	}
	return importer.Document{Transactions: transactions}, nil
}

func (p *Parser) appendLines(out []model.NewTransaction, lines []ofxgo.Transaction, defaults Defaults) []model.NewTransaction {
	for _, line := range lines {
		txn, err := p.convert(line, defaults)
		if err != nil {
			slog.Warn("Skipping OFX transaction", "fitid", line.FiTID, "error", err)
			continue
		}
		out = append(out, txn)
	}
	return out
}

// convert maps one statement line. OFX amounts are signed: debits are
// negative and become expenses, credits become income. The posted time is
// stored in the same ISO form as every other transaction date.
func (p *Parser) convert(line ofxgo.Transaction, defaults Defaults) (model.NewTransaction, error) {
	abs := new(big.Rat).Abs(&line.TrnAmt.Rat)
	amount, err := decimal.NewFromString(abs.FloatString(2))
	if err != nil {
		return model.NewTransaction{}, fmt.Errorf("invalid amount: %w", err)
	}

	typ := model.TransactionExpense
	if line.TrnAmt.Sign() > 0 {
		typ = model.TransactionIncome
	}
	categoryID, budgetID := defaults.forType(typ)

	txn := model.NewTransaction{
		Amount:     amount,
		Date:       storage.FormatISO(line.DtPosted.Time),
		Type:       typ,
		CategoryID: categoryID,
		BudgetID:   budgetID,
	}
	if description := p.describe(line); description != "" {
		txn.Description = &description
	}
	return txn, nil
}

// describe picks a readable description: payee, then name, then memo when
// the name says nothing useful.
func (p *Parser) describe(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	name := string(tx.Name)
	if tx.Memo != "" && (strings.TrimSpace(name) == "" || isGenericDescription(name)) {
		name = string(tx.Memo)
	}
	name = strings.TrimSpace(name)

	prefixes := []string{
		"POS PURCHASE ",
		"PURCHASE AUTHORIZED ON ",
		"DEBIT CARD PURCHASE ",
		"ACH DEBIT ",
		"CHECK CARD ",
		"VISA PURCHASE ",
		"MC PURCHASE ",
		"DEBIT PURCHASE ",
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Leading "MM/DD " left over from card processors.
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

func isGenericDescription(name string) bool {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBIT", "CREDIT", "DEPOSIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	}
	return false
}

// Accounts returns the sorted account ids found in reader.
func (p *Parser) Accounts(_ context.Context, reader io.Reader) ([]string, error) {
	resp, err := p.read(reader)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankAcctFrom.AcctID != "" {
			seen[string(stmt.BankAcctFrom.AcctID)] = true
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.CCAcctFrom.AcctID != "" {
			seen[string(stmt.CCAcctFrom.AcctID)] = true
		}
	}

	accounts := make([]string, 0, len(seen))
	for acct := range seen {
		accounts = append(accounts, acct)
	}
	sort.Strings(accounts)
	return accounts, nil
}
