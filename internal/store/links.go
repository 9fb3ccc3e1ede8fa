package store

import (
	"context"
	"fmt"

	"github.com/grandlivre-dev/grandlivre/internal/model"
)

// CreateLink inserts a reconciliation link for a fiscal year.
func (q *Queries) CreateLink(ctx context.Context, l *model.AccountLink) error {
	res, err := q.q.ExecContext(ctx, `INSERT INTO account_links (year_id) VALUES (?)`, l.YearID)
	if err != nil {
		return fmt.Errorf("inserting account link: %w", err)
	}
	l.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("account link id: %w", err)
	}
	return nil
}

// DeleteLink removes a reconciliation link.
func (q *Queries) DeleteLink(ctx context.Context, id int64) error {
	if _, err := q.q.ExecContext(ctx, `DELETE FROM account_links WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting account link %d: %w", id, err)
	}
	return nil
}

// CountLinksBefore counts the links of a year with a smaller id; this is the
// link's ordinal used to derive its letter.
func (q *Queries) CountLinksBefore(ctx context.Context, yearID, linkID int64) (int, error) {
	var n int
	err := q.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM account_links WHERE year_id = ? AND id < ?`, yearID, linkID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting links: %w", err)
	}
	return n, nil
}

// SetEntryLink attaches an entry to a link (0 detaches it).
func (q *Queries) SetEntryLink(ctx context.Context, entryID, linkID int64) error {
	if _, err := q.q.ExecContext(ctx,
		`UPDATE entry_accounts SET link_id = ? WHERE id = ?`, linkID, entryID); err != nil {
		return fmt.Errorf("linking entry %d: %w", entryID, err)
	}
	return nil
}

// CountEntriesInLink counts the entries still attached to a link.
func (q *Queries) CountEntriesInLink(ctx context.Context, linkID int64) (int, error) {
	var n int
	err := q.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entry_accounts WHERE link_id = ?`, linkID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting link entries: %w", err)
	}
	return n, nil
}
