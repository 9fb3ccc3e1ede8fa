package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/grandlivre-dev/grandlivre/internal/model"
)

// CreateThird inserts a third party and assigns its ID.
func (q *Queries) CreateThird(ctx context.Context, t *model.Third) error {
	res, err := q.q.ExecContext(ctx,
		`INSERT INTO thirds (contact, status) VALUES (?, ?)`, t.Contact, int(t.Status))
	if err != nil {
		return fmt.Errorf("inserting third: %w", err)
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("third id: %w", err)
	}
	return nil
}

// GetThird fetches one third party by id.
func (q *Queries) GetThird(ctx context.Context, id int64) (model.Third, error) {
	var t model.Third
	var status int
	err := q.q.QueryRowContext(ctx,
		`SELECT id, contact, status FROM thirds WHERE id = ?`, id).Scan(&t.ID, &t.Contact, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Third{}, ErrNotFound
	}
	if err != nil {
		return model.Third{}, fmt.Errorf("scanning third: %w", err)
	}
	t.Status = model.ThirdStatus(status)
	return t, nil
}

// ListThirds returns all third parties ordered by contact name.
func (q *Queries) ListThirds(ctx context.Context) ([]model.Third, error) {
	rows, err := q.q.QueryContext(ctx, `SELECT id, contact, status FROM thirds ORDER BY contact`)
	if err != nil {
		return nil, fmt.Errorf("listing thirds: %w", err)
	}
	defer rows.Close()

	var thirds []model.Third
	for rows.Next() {
		var t model.Third
		var status int
		if err := rows.Scan(&t.ID, &t.Contact, &status); err != nil {
			return nil, fmt.Errorf("scanning third: %w", err)
		}
		t.Status = model.ThirdStatus(status)
		thirds = append(thirds, t)
	}
	return thirds, rows.Err()
}

// CreateAccountThird attaches an account code to a third party.
func (q *Queries) CreateAccountThird(ctx context.Context, at *model.AccountThird) error {
	res, err := q.q.ExecContext(ctx,
		`INSERT INTO account_thirds (third_id, code) VALUES (?, ?)`, at.ThirdID, at.Code)
	if err != nil {
		return fmt.Errorf("inserting account third: %w", err)
	}
	at.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("account third id: %w", err)
	}
	return nil
}

// AccountThirdCodes returns the account codes a third party is posted under.
func (q *Queries) AccountThirdCodes(ctx context.Context, thirdID int64) ([]string, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT code FROM account_thirds WHERE third_id = ? ORDER BY id`, thirdID)
	if err != nil {
		return nil, fmt.Errorf("listing third account codes: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scanning third account code: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// CreateCostAccounting inserts an analytic bucket and assigns its ID.
func (q *Queries) CreateCostAccounting(ctx context.Context, c *model.CostAccounting) error {
	res, err := q.q.ExecContext(ctx,
		`INSERT INTO cost_accountings (name, closed) VALUES (?, ?)`, c.Name, boolToInt(c.Closed))
	if err != nil {
		return fmt.Errorf("inserting cost accounting: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("cost accounting id: %w", err)
	}
	return nil
}

// GetCostAccounting fetches one analytic bucket by id.
func (q *Queries) GetCostAccounting(ctx context.Context, id int64) (model.CostAccounting, error) {
	var c model.CostAccounting
	var closed int
	err := q.q.QueryRowContext(ctx,
		`SELECT id, name, closed FROM cost_accountings WHERE id = ?`, id).Scan(&c.ID, &c.Name, &closed)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CostAccounting{}, ErrNotFound
	}
	if err != nil {
		return model.CostAccounting{}, fmt.Errorf("scanning cost accounting: %w", err)
	}
	c.Closed = closed != 0
	return c, nil
}
