package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/grandlivre-dev/grandlivre/internal/model"
)

const dateFormat = "2006-01-02"

// CreateFiscalYear inserts a year and assigns its ID.
func (q *Queries) CreateFiscalYear(ctx context.Context, y *model.FiscalYear) error {
	res, err := q.q.ExecContext(ctx,
		`INSERT INTO fiscal_years (begin, end, status, is_active, previous_id) VALUES (?, ?, ?, ?, ?)`,
		y.Begin.Format(dateFormat), y.End.Format(dateFormat), int(y.Status), boolToInt(y.IsActive), y.PreviousID)
	if err != nil {
		return fmt.Errorf("inserting fiscal year: %w", err)
	}
	y.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("fiscal year id: %w", err)
	}
	return nil
}

// UpdateFiscalYear persists status, activation and chaining changes.
func (q *Queries) UpdateFiscalYear(ctx context.Context, y *model.FiscalYear) error {
	_, err := q.q.ExecContext(ctx,
		`UPDATE fiscal_years SET begin = ?, end = ?, status = ?, is_active = ?, previous_id = ? WHERE id = ?`,
		y.Begin.Format(dateFormat), y.End.Format(dateFormat), int(y.Status), boolToInt(y.IsActive), y.PreviousID, y.ID)
	if err != nil {
		return fmt.Errorf("updating fiscal year %d: %w", y.ID, err)
	}
	return nil
}

// GetFiscalYear fetches one year by id.
func (q *Queries) GetFiscalYear(ctx context.Context, id int64) (model.FiscalYear, error) {
	row := q.q.QueryRowContext(ctx,
		`SELECT id, begin, end, status, is_active, previous_id FROM fiscal_years WHERE id = ?`, id)
	return scanFiscalYear(row)
}

// ActiveFiscalYear returns the active year, or ErrNotFound if none is active.
func (q *Queries) ActiveFiscalYear(ctx context.Context) (model.FiscalYear, error) {
	row := q.q.QueryRowContext(ctx,
		`SELECT id, begin, end, status, is_active, previous_id FROM fiscal_years WHERE is_active = 1`)
	return scanFiscalYear(row)
}

// LastFiscalYear returns the year with the latest end date.
func (q *Queries) LastFiscalYear(ctx context.Context) (model.FiscalYear, error) {
	row := q.q.QueryRowContext(ctx,
		`SELECT id, begin, end, status, is_active, previous_id FROM fiscal_years ORDER BY end DESC, id DESC LIMIT 1`)
	return scanFiscalYear(row)
}

// NextFiscalYear returns the successor chained to previousID, or ErrNotFound.
func (q *Queries) NextFiscalYear(ctx context.Context, previousID int64) (model.FiscalYear, error) {
	row := q.q.QueryRowContext(ctx,
		`SELECT id, begin, end, status, is_active, previous_id FROM fiscal_years WHERE previous_id = ?`, previousID)
	return scanFiscalYear(row)
}

// ListFiscalYears returns all years ordered by begin date.
func (q *Queries) ListFiscalYears(ctx context.Context) ([]model.FiscalYear, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT id, begin, end, status, is_active, previous_id FROM fiscal_years ORDER BY begin`)
	if err != nil {
		return nil, fmt.Errorf("listing fiscal years: %w", err)
	}
	defer rows.Close()

	var years []model.FiscalYear
	for rows.Next() {
		y, err := scanFiscalYear(rows)
		if err != nil {
			return nil, err
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

// DeactivateFiscalYears clears the active flag on every year.
func (q *Queries) DeactivateFiscalYears(ctx context.Context) error {
	if _, err := q.q.ExecContext(ctx, `UPDATE fiscal_years SET is_active = 0`); err != nil {
		return fmt.Errorf("deactivating fiscal years: %w", err)
	}
	return nil
}

// DeleteFiscalYear removes a year; entries, charts and bills cascade.
func (q *Queries) DeleteFiscalYear(ctx context.Context, id int64) error {
	if _, err := q.q.ExecContext(ctx, `DELETE FROM fiscal_years WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting fiscal year %d: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFiscalYear(row rowScanner) (model.FiscalYear, error) {
	var y model.FiscalYear
	var begin, end string
	var status, active int
	err := row.Scan(&y.ID, &begin, &end, &status, &active, &y.PreviousID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.FiscalYear{}, ErrNotFound
	}
	if err != nil {
		return model.FiscalYear{}, fmt.Errorf("scanning fiscal year: %w", err)
	}
	if y.Begin, err = time.Parse(dateFormat, begin); err != nil {
		return model.FiscalYear{}, fmt.Errorf("parsing begin date %q: %w", begin, err)
	}
	if y.End, err = time.Parse(dateFormat, end); err != nil {
		return model.FiscalYear{}, fmt.Errorf("parsing end date %q: %w", end, err)
	}
	y.Status = model.FiscalYearStatus(status)
	y.IsActive = active != 0
	return y, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
