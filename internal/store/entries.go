package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/grandlivre-dev/grandlivre/internal/model"
)

// CreateEntry inserts an entry and assigns its ID.
func (q *Queries) CreateEntry(ctx context.Context, e *model.EntryAccount) error {
	var dateEntry any
	if e.DateEntry != nil {
		dateEntry = e.DateEntry.Format(dateFormat)
	}
	res, err := q.q.ExecContext(ctx,
		`INSERT INTO entry_accounts (year_id, num, journal_id, link_id, date_entry, date_value, designation, closed, version)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.YearID, e.Num, e.JournalID, e.LinkID, dateEntry, e.DateValue.Format(dateFormat),
		e.Designation, boolToInt(e.Closed), e.Version)
	if err != nil {
		return fmt.Errorf("inserting entry: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("entry id: %w", err)
	}
	return nil
}

// UpdateEntry persists every mutable entry field.
func (q *Queries) UpdateEntry(ctx context.Context, e *model.EntryAccount) error {
	var dateEntry any
	if e.DateEntry != nil {
		dateEntry = e.DateEntry.Format(dateFormat)
	}
	_, err := q.q.ExecContext(ctx,
		`UPDATE entry_accounts SET year_id = ?, num = ?, journal_id = ?, link_id = ?, date_entry = ?,
		 date_value = ?, designation = ?, closed = ?, version = ? WHERE id = ?`,
		e.YearID, e.Num, e.JournalID, e.LinkID, dateEntry, e.DateValue.Format(dateFormat),
		e.Designation, boolToInt(e.Closed), e.Version, e.ID)
	if err != nil {
		return fmt.Errorf("updating entry %d: %w", e.ID, err)
	}
	return nil
}

// GetEntry fetches one entry by id.
func (q *Queries) GetEntry(ctx context.Context, id int64) (model.EntryAccount, error) {
	row := q.q.QueryRowContext(ctx,
		`SELECT id, year_id, num, journal_id, link_id, date_entry, date_value, designation, closed, version
		 FROM entry_accounts WHERE id = ?`, id)
	return scanEntry(row)
}

// DeleteEntry removes an entry; its lines cascade.
func (q *Queries) DeleteEntry(ctx context.Context, id int64) error {
	if _, err := q.q.ExecContext(ctx, `DELETE FROM entry_accounts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting entry %d: %w", id, err)
	}
	return nil
}

// EntriesOfYear returns a year's entries ordered by id.
func (q *Queries) EntriesOfYear(ctx context.Context, yearID int64) ([]model.EntryAccount, error) {
	return q.queryEntries(ctx,
		`SELECT id, year_id, num, journal_id, link_id, date_entry, date_value, designation, closed, version
		 FROM entry_accounts WHERE year_id = ? ORDER BY id`, yearID)
}

// EntriesByLink returns the entries attached to a reconciliation link.
func (q *Queries) EntriesByLink(ctx context.Context, linkID int64) ([]model.EntryAccount, error) {
	return q.queryEntries(ctx,
		`SELECT id, year_id, num, journal_id, link_id, date_entry, date_value, designation, closed, version
		 FROM entry_accounts WHERE link_id = ? ORDER BY id`, linkID)
}

func (q *Queries) queryEntries(ctx context.Context, query string, args ...any) ([]model.EntryAccount, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()

	var entries []model.EntryAccount
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MaxEntryNum returns the highest closing number assigned in a year.
func (q *Queries) MaxEntryNum(ctx context.Context, yearID int64) (int, error) {
	var num sql.NullInt64
	err := q.q.QueryRowContext(ctx,
		`SELECT MAX(num) FROM entry_accounts WHERE year_id = ? AND closed = 1`, yearID).Scan(&num)
	if err != nil {
		return 0, fmt.Errorf("max entry num: %w", err)
	}
	return int(num.Int64), nil
}

// CountUnclosedEntries counts a year's entries not yet closed, optionally
// restricted to one journal (journalID 0 = all journals).
func (q *Queries) CountUnclosedEntries(ctx context.Context, yearID, journalID int64) (int, error) {
	query := `SELECT COUNT(*) FROM entry_accounts WHERE year_id = ? AND closed = 0`
	args := []any{yearID}
	if journalID != 0 {
		query += ` AND journal_id = ?`
		args = append(args, journalID)
	}
	var n int
	if err := q.q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting unclosed entries: %w", err)
	}
	return n, nil
}

// SumJournalAmounts returns SUM(amount) over all lines of a year's journal.
func (q *Queries) SumJournalAmounts(ctx context.Context, yearID, journalID int64) (decimal.Decimal, int, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT l.amount FROM entry_lines l
		 JOIN entry_accounts e ON e.id = l.entry_id
		 WHERE e.year_id = ? AND e.journal_id = ?`, yearID, journalID)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("summing journal amounts: %w", err)
	}
	defer rows.Close()

	sum := decimal.Zero
	count := 0
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Zero, 0, fmt.Errorf("scanning amount: %w", err)
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, 0, fmt.Errorf("parsing amount %q: %w", raw, err)
		}
		sum = sum.Add(amount)
		count++
	}
	return sum, count, rows.Err()
}

// CreateEntryLine inserts a line and assigns its ID.
func (q *Queries) CreateEntryLine(ctx context.Context, l *model.EntryLine) error {
	res, err := q.q.ExecContext(ctx,
		`INSERT INTO entry_lines (entry_id, account_id, amount, reference, third_id, cost_accounting_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		l.EntryID, l.AccountID, l.Amount.String(), l.Reference, l.ThirdID, l.CostAccountingID)
	if err != nil {
		return fmt.Errorf("inserting entry line: %w", err)
	}
	l.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("entry line id: %w", err)
	}
	return nil
}

// EntryLines returns an entry's lines ordered by id.
func (q *Queries) EntryLines(ctx context.Context, entryID int64) ([]model.EntryLine, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT id, entry_id, account_id, amount, reference, third_id, cost_accounting_id
		 FROM entry_lines WHERE entry_id = ? ORDER BY id`, entryID)
	if err != nil {
		return nil, fmt.Errorf("listing entry lines: %w", err)
	}
	defer rows.Close()

	var lines []model.EntryLine
	for rows.Next() {
		var l model.EntryLine
		var raw string
		if err := rows.Scan(&l.ID, &l.EntryID, &l.AccountID, &raw, &l.Reference, &l.ThirdID, &l.CostAccountingID); err != nil {
			return nil, fmt.Errorf("scanning entry line: %w", err)
		}
		if l.Amount, err = decimal.NewFromString(raw); err != nil {
			return nil, fmt.Errorf("parsing line amount %q: %w", raw, err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// DeleteEntryLines removes every line of an entry.
func (q *Queries) DeleteEntryLines(ctx context.Context, entryID int64) error {
	if _, err := q.q.ExecContext(ctx, `DELETE FROM entry_lines WHERE entry_id = ?`, entryID); err != nil {
		return fmt.Errorf("deleting lines of entry %d: %w", entryID, err)
	}
	return nil
}

func scanEntry(row rowScanner) (model.EntryAccount, error) {
	var e model.EntryAccount
	var dateEntry sql.NullString
	var dateValue string
	var closed int
	err := row.Scan(&e.ID, &e.YearID, &e.Num, &e.JournalID, &e.LinkID, &dateEntry, &dateValue,
		&e.Designation, &closed, &e.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return model.EntryAccount{}, ErrNotFound
	}
	if err != nil {
		return model.EntryAccount{}, fmt.Errorf("scanning entry: %w", err)
	}
	if dateEntry.Valid {
		d, err := time.Parse(dateFormat, dateEntry.String)
		if err != nil {
			return model.EntryAccount{}, fmt.Errorf("parsing entry date %q: %w", dateEntry.String, err)
		}
		e.DateEntry = &d
	}
	if e.DateValue, err = time.Parse(dateFormat, dateValue); err != nil {
		return model.EntryAccount{}, fmt.Errorf("parsing value date %q: %w", dateValue, err)
	}
	e.Closed = closed != 0
	return e, nil
}
