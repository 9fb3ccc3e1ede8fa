package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/grandlivre-dev/grandlivre/internal/model"
)

// CreateChartsAccount inserts an account and assigns its ID.
func (q *Queries) CreateChartsAccount(ctx context.Context, a *model.ChartsAccount) error {
	res, err := q.q.ExecContext(ctx,
		`INSERT INTO charts_accounts (year_id, code, name, type) VALUES (?, ?, ?, ?)`,
		a.YearID, a.Code, a.Name, int(a.Type))
	if err != nil {
		return fmt.Errorf("inserting charts account %s: %w", a.Code, err)
	}
	a.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("charts account id: %w", err)
	}
	return nil
}

// GetChartsAccount fetches one account by id.
func (q *Queries) GetChartsAccount(ctx context.Context, id int64) (model.ChartsAccount, error) {
	row := q.q.QueryRowContext(ctx,
		`SELECT id, year_id, code, name, type FROM charts_accounts WHERE id = ?`, id)
	return scanChartsAccount(row)
}

// ChartsAccountByCode fetches the account with the given code in a year.
func (q *Queries) ChartsAccountByCode(ctx context.Context, yearID int64, code string) (model.ChartsAccount, error) {
	row := q.q.QueryRowContext(ctx,
		`SELECT id, year_id, code, name, type FROM charts_accounts WHERE year_id = ? AND code = ?`, yearID, code)
	return scanChartsAccount(row)
}

// ListChartsAccounts returns a year's chart ordered by code.
func (q *Queries) ListChartsAccounts(ctx context.Context, yearID int64) ([]model.ChartsAccount, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT id, year_id, code, name, type FROM charts_accounts WHERE year_id = ? ORDER BY code`, yearID)
	if err != nil {
		return nil, fmt.Errorf("listing charts accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.ChartsAccount
	for rows.Next() {
		a, err := scanChartsAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// ChartsAccountsByMask returns the accounts of a year whose code matches the
// given mask. Codes are fetched and filtered with a compiled regexp; the mask
// is anchored on both ends.
func (q *Queries) ChartsAccountsByMask(ctx context.Context, yearID int64, mask string) ([]model.ChartsAccount, error) {
	re, err := regexp.Compile("^(" + mask + ")$")
	if err != nil {
		return nil, fmt.Errorf("compiling account mask %q: %w", mask, err)
	}

	all, err := q.ListChartsAccounts(ctx, yearID)
	if err != nil {
		return nil, err
	}

	var matched []model.ChartsAccount
	for _, a := range all {
		if re.MatchString(a.Code) {
			matched = append(matched, a)
		}
	}
	return matched, nil
}

func scanChartsAccount(row rowScanner) (model.ChartsAccount, error) {
	var a model.ChartsAccount
	var typ int
	err := row.Scan(&a.ID, &a.YearID, &a.Code, &a.Name, &typ)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ChartsAccount{}, ErrNotFound
	}
	if err != nil {
		return model.ChartsAccount{}, fmt.Errorf("scanning charts account: %w", err)
	}
	a.Type = model.AccountType(typ)
	return a, nil
}
