package storage

// Schema version recorded in database_info.
const (
	SchemaVersion  = "1.0.0"
	DefaultVersion = "1.0.0"
	versionKey     = "version"
)

// Table names.
const (
	tableCategories   = "categories"
	tableBudgets      = "budgets"
	tableBankBalances = "bank_balances"
	tableTransactions = "transactions"
	tableDatabaseInfo = "database_info"
)

// coreTables in dependency order: parents before the tables that
// reference them.
var coreTables = []string{tableCategories, tableBudgets, tableBankBalances, tableTransactions}

// Column names are camelCase in the schema and in queries alike.
//
// Money columns are TEXT holding the decimal string, so a value reads back
// exactly as written. SQL never does arithmetic on them; totals are summed
// in Go with decimal.

const createDatabaseInfoTable = `
	CREATE TABLE IF NOT EXISTS database_info (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`

const createCategoriesTable = `
	CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		icon TEXT NOT NULL,
		type TEXT NOT NULL CHECK(type IN ('income', 'expense')),
		sortOrder INTEGER DEFAULT 0,
		isDefault BOOLEAN DEFAULT 0,
		isActive BOOLEAN DEFAULT 1,
		createdAt DATETIME DEFAULT CURRENT_TIMESTAMP,
		updatedAt DATETIME DEFAULT CURRENT_TIMESTAMP
	)`

var categoryIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_categories_type ON categories(type)`,
	`CREATE INDEX IF NOT EXISTS idx_categories_isDefault ON categories(isDefault)`,
	`CREATE INDEX IF NOT EXISTS idx_categories_isActive ON categories(isActive)`,
}

const createBudgetsTable = `
	CREATE TABLE IF NOT EXISTS budgets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		categoryId INTEGER NOT NULL,
		amount TEXT NOT NULL CHECK(CAST(amount AS REAL) >= 0),
		period TEXT NOT NULL CHECK(period IN ('daily', 'weekly', 'monthly', 'yearly')),
		startDate TEXT NOT NULL,
		endDate TEXT NOT NULL,
		month TEXT NOT NULL,
		isRegular BOOLEAN NOT NULL DEFAULT 0,
		isBudgetExceeded BOOLEAN NOT NULL DEFAULT 0,
		createdAt DATETIME DEFAULT CURRENT_TIMESTAMP,
		updatedAt DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (categoryId) REFERENCES categories(id)
	)`

var budgetIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_budgets_category ON budgets(categoryId)`,
	`CREATE INDEX IF NOT EXISTS idx_budgets_month ON budgets(month)`,
	`CREATE INDEX IF NOT EXISTS idx_budgets_startDate ON budgets(startDate)`,
	`CREATE INDEX IF NOT EXISTS idx_budgets_endDate ON budgets(endDate)`,
}

const createBankBalancesTable = `
	CREATE TABLE IF NOT EXISTS bank_balances (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL CHECK(month BETWEEN 1 AND 12),
		openingBalance TEXT NOT NULL,
		closingBalance TEXT NOT NULL,
		createdAt DATETIME DEFAULT CURRENT_TIMESTAMP,
		updatedAt DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(year, month)
	)`

var bankBalanceIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_bank_balances_year_month ON bank_balances(year, month)`,
}

// Transaction dates are TEXT so the ISO string written is the string read.
const createTransactionsTable = `
	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		amount TEXT NOT NULL,
		categoryId INTEGER NOT NULL,
		budgetId INTEGER NOT NULL,
		description TEXT,
		date TEXT NOT NULL,
		type TEXT NOT NULL CHECK(type IN ('income', 'expense')),
		createdAt DATETIME DEFAULT CURRENT_TIMESTAMP,
		updatedAt DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (categoryId) REFERENCES categories(id),
		FOREIGN KEY (budgetId) REFERENCES budgets(id)
	)`

var transactionIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_category ON transactions(categoryId)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_budget ON transactions(budgetId)`,
}
