package store

import (
	"context"
	"fmt"
	"log/slog"
)

// Migrate runs all table creation statements. Safe to call multiple times
// due to IF NOT EXISTS clauses.
func (s *Store) Migrate(ctx context.Context) error {
	slog.Info("running database migrations")

	for _, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w\nstatement: %s", err, stmt)
		}
	}

	slog.Info("database migrations complete")
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS fiscal_years (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		begin TEXT NOT NULL,
		end TEXT NOT NULL,
		status INTEGER NOT NULL DEFAULT 0 CHECK(status IN (0, 1, 2)),
		is_active INTEGER NOT NULL DEFAULT 0,
		previous_id INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS charts_accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		year_id INTEGER NOT NULL,
		code TEXT NOT NULL,
		name TEXT NOT NULL,
		type INTEGER NOT NULL,
		UNIQUE(year_id, code),
		FOREIGN KEY (year_id) REFERENCES fiscal_years(id) ON DELETE CASCADE
	)`,

	`CREATE TABLE IF NOT EXISTS thirds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		contact TEXT NOT NULL,
		status INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS account_thirds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		third_id INTEGER NOT NULL,
		code TEXT NOT NULL,
		FOREIGN KEY (third_id) REFERENCES thirds(id) ON DELETE CASCADE
	)`,

	`CREATE TABLE IF NOT EXISTS cost_accountings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		closed INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS account_links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		year_id INTEGER NOT NULL,
		FOREIGN KEY (year_id) REFERENCES fiscal_years(id) ON DELETE CASCADE
	)`,

	`CREATE TABLE IF NOT EXISTS entry_accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		year_id INTEGER NOT NULL,
		num INTEGER NOT NULL DEFAULT 0,
		journal_id INTEGER NOT NULL,
		link_id INTEGER NOT NULL DEFAULT 0,
		date_entry TEXT,
		date_value TEXT NOT NULL,
		designation TEXT NOT NULL,
		closed INTEGER NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (year_id) REFERENCES fiscal_years(id) ON DELETE CASCADE
	)`,

	`CREATE TABLE IF NOT EXISTS entry_lines (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entry_id INTEGER NOT NULL,
		account_id INTEGER NOT NULL,
		amount TEXT NOT NULL,
		reference TEXT NOT NULL DEFAULT '',
		third_id INTEGER NOT NULL DEFAULT 0,
		cost_accounting_id INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (entry_id) REFERENCES entry_accounts(id) ON DELETE CASCADE,
		FOREIGN KEY (account_id) REFERENCES charts_accounts(id) ON DELETE RESTRICT
	)`,

	`CREATE TABLE IF NOT EXISTS bills (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		year_id INTEGER NOT NULL,
		type INTEGER NOT NULL CHECK(type IN (0, 1, 2, 3)),
		num INTEGER NOT NULL DEFAULT 0,
		date TEXT NOT NULL,
		comment TEXT NOT NULL DEFAULT '',
		status INTEGER NOT NULL DEFAULT 0 CHECK(status IN (0, 1, 2, 3)),
		third_id INTEGER NOT NULL DEFAULT 0,
		entry_id INTEGER NOT NULL DEFAULT 0,
		cost_accounting_id INTEGER NOT NULL DEFAULT 0,
		parent_id INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (year_id) REFERENCES fiscal_years(id) ON DELETE CASCADE
	)`,

	`CREATE TABLE IF NOT EXISTS details (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		bill_id INTEGER NOT NULL,
		article_id INTEGER NOT NULL DEFAULT 0,
		designation TEXT NOT NULL,
		price TEXT NOT NULL,
		unit TEXT NOT NULL DEFAULT '',
		quantity TEXT NOT NULL,
		reduce TEXT NOT NULL DEFAULT '0',
		vat_rate TEXT NOT NULL DEFAULT '0',
		sell_account TEXT NOT NULL DEFAULT '',
		storage_area_id INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (bill_id) REFERENCES bills(id) ON DELETE CASCADE
	)`,

	`CREATE TABLE IF NOT EXISTS payoffs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		bill_id INTEGER NOT NULL,
		date TEXT NOT NULL,
		amount TEXT NOT NULL,
		mode INTEGER NOT NULL DEFAULT 0,
		payer TEXT NOT NULL DEFAULT '',
		reference TEXT NOT NULL DEFAULT '',
		entry_id INTEGER NOT NULL DEFAULT 0,
		bank_account_id INTEGER NOT NULL DEFAULT 0,
		bank_fee TEXT NOT NULL DEFAULT '0',
		FOREIGN KEY (bill_id) REFERENCES bills(id) ON DELETE CASCADE
	)`,

	// Indexes for common queries
	`CREATE INDEX IF NOT EXISTS idx_charts_accounts_year ON charts_accounts(year_id)`,
	`CREATE INDEX IF NOT EXISTS idx_entry_accounts_year ON entry_accounts(year_id)`,
	`CREATE INDEX IF NOT EXISTS idx_entry_accounts_link ON entry_accounts(link_id)`,
	`CREATE INDEX IF NOT EXISTS idx_entry_lines_entry ON entry_lines(entry_id)`,
	`CREATE INDEX IF NOT EXISTS idx_bills_year_type ON bills(year_id, type)`,
	`CREATE INDEX IF NOT EXISTS idx_details_bill ON details(bill_id)`,
	`CREATE INDEX IF NOT EXISTS idx_payoffs_bill ON payoffs(bill_id)`,
	`CREATE INDEX IF NOT EXISTS idx_payoffs_entry ON payoffs(entry_id)`,
	`CREATE INDEX IF NOT EXISTS idx_account_thirds_third ON account_thirds(third_id)`,
}
