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

// CreateBill inserts a bill and assigns its ID.
func (q *Queries) CreateBill(ctx context.Context, b *model.Bill) error {
	res, err := q.q.ExecContext(ctx,
		`INSERT INTO bills (year_id, type, num, date, comment, status, third_id, entry_id, cost_accounting_id, parent_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.YearID, int(b.Type), b.Num, b.Date.Format(dateFormat), b.Comment, int(b.Status),
		b.ThirdID, b.EntryID, b.CostAccountingID, b.ParentID)
	if err != nil {
		return fmt.Errorf("inserting bill: %w", err)
	}
	b.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("bill id: %w", err)
	}
	return nil
}

// UpdateBill persists every mutable bill field.
func (q *Queries) UpdateBill(ctx context.Context, b *model.Bill) error {
	_, err := q.q.ExecContext(ctx,
		`UPDATE bills SET year_id = ?, type = ?, num = ?, date = ?, comment = ?, status = ?,
		 third_id = ?, entry_id = ?, cost_accounting_id = ?, parent_id = ? WHERE id = ?`,
		b.YearID, int(b.Type), b.Num, b.Date.Format(dateFormat), b.Comment, int(b.Status),
		b.ThirdID, b.EntryID, b.CostAccountingID, b.ParentID, b.ID)
	if err != nil {
		return fmt.Errorf("updating bill %d: %w", b.ID, err)
	}
	return nil
}

// GetBill fetches one bill by id.
func (q *Queries) GetBill(ctx context.Context, id int64) (model.Bill, error) {
	row := q.q.QueryRowContext(ctx,
		`SELECT id, year_id, type, num, date, comment, status, third_id, entry_id, cost_accounting_id, parent_id
		 FROM bills WHERE id = ?`, id)
	return scanBill(row)
}

// ListBills returns a year's bills ordered by date then id.
func (q *Queries) ListBills(ctx context.Context, yearID int64) ([]model.Bill, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT id, year_id, type, num, date, comment, status, third_id, entry_id, cost_accounting_id, parent_id
		 FROM bills WHERE year_id = ? ORDER BY date, id`, yearID)
	if err != nil {
		return nil, fmt.Errorf("listing bills: %w", err)
	}
	defer rows.Close()

	var bills []model.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

// MaxBillNum returns the highest number assigned for a (year, type),
// ignoring bills still in building state.
func (q *Queries) MaxBillNum(ctx context.Context, yearID int64, typ model.BillType) (int, error) {
	var num sql.NullInt64
	err := q.q.QueryRowContext(ctx,
		`SELECT MAX(num) FROM bills WHERE year_id = ? AND type = ? AND status != ?`,
		yearID, int(typ), int(model.BillBuilding)).Scan(&num)
	if err != nil {
		return 0, fmt.Errorf("max bill num: %w", err)
	}
	return int(num.Int64), nil
}

// CreateDetail inserts a bill line and assigns its ID.
func (q *Queries) CreateDetail(ctx context.Context, d *model.Detail) error {
	res, err := q.q.ExecContext(ctx,
		`INSERT INTO details (bill_id, article_id, designation, price, unit, quantity, reduce, vat_rate, sell_account, storage_area_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.BillID, d.ArticleID, d.Designation, d.Price.String(), d.Unit, d.Quantity.String(),
		d.Reduce.String(), d.VatRate.String(), d.SellAccount, d.StorageAreaID)
	if err != nil {
		return fmt.Errorf("inserting detail: %w", err)
	}
	d.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("detail id: %w", err)
	}
	return nil
}

// DetailsOf returns a bill's lines ordered by id.
func (q *Queries) DetailsOf(ctx context.Context, billID int64) ([]model.Detail, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT id, bill_id, article_id, designation, price, unit, quantity, reduce, vat_rate, sell_account, storage_area_id
		 FROM details WHERE bill_id = ? ORDER BY id`, billID)
	if err != nil {
		return nil, fmt.Errorf("listing details: %w", err)
	}
	defer rows.Close()

	var details []model.Detail
	for rows.Next() {
		var d model.Detail
		var price, quantity, reduce, vatRate string
		if err := rows.Scan(&d.ID, &d.BillID, &d.ArticleID, &d.Designation, &price, &d.Unit,
			&quantity, &reduce, &vatRate, &d.SellAccount, &d.StorageAreaID); err != nil {
			return nil, fmt.Errorf("scanning detail: %w", err)
		}
		if d.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parsing price %q: %w", price, err)
		}
		if d.Quantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, fmt.Errorf("parsing quantity %q: %w", quantity, err)
		}
		if d.Reduce, err = decimal.NewFromString(reduce); err != nil {
			return nil, fmt.Errorf("parsing reduce %q: %w", reduce, err)
		}
		if d.VatRate, err = decimal.NewFromString(vatRate); err != nil {
			return nil, fmt.Errorf("parsing vat rate %q: %w", vatRate, err)
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// CreatePayoff inserts a payment and assigns its ID.
func (q *Queries) CreatePayoff(ctx context.Context, p *model.Payoff) error {
	res, err := q.q.ExecContext(ctx,
		`INSERT INTO payoffs (bill_id, date, amount, mode, payer, reference, entry_id, bank_account_id, bank_fee)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.BillID, p.Date.Format(dateFormat), p.Amount.String(), int(p.Mode), p.Payer,
		p.Reference, p.EntryID, p.BankAccountID, p.BankFee.String())
	if err != nil {
		return fmt.Errorf("inserting payoff: %w", err)
	}
	p.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("payoff id: %w", err)
	}
	return nil
}

// GetPayoff fetches one payment by id.
func (q *Queries) GetPayoff(ctx context.Context, id int64) (model.Payoff, error) {
	payoffs, err := q.queryPayoffs(ctx,
		`SELECT id, bill_id, date, amount, mode, payer, reference, entry_id, bank_account_id, bank_fee
		 FROM payoffs WHERE id = ?`, id)
	if err != nil {
		return model.Payoff{}, err
	}
	if len(payoffs) == 0 {
		return model.Payoff{}, ErrNotFound
	}
	return payoffs[0], nil
}

// UpdatePayoff persists every mutable payoff field.
func (q *Queries) UpdatePayoff(ctx context.Context, p *model.Payoff) error {
	_, err := q.q.ExecContext(ctx,
		`UPDATE payoffs SET bill_id = ?, date = ?, amount = ?, mode = ?, payer = ?, reference = ?,
		 entry_id = ?, bank_account_id = ?, bank_fee = ? WHERE id = ?`,
		p.BillID, p.Date.Format(dateFormat), p.Amount.String(), int(p.Mode), p.Payer,
		p.Reference, p.EntryID, p.BankAccountID, p.BankFee.String(), p.ID)
	if err != nil {
		return fmt.Errorf("updating payoff %d: %w", p.ID, err)
	}
	return nil
}

// DeletePayoff removes a payment row.
func (q *Queries) DeletePayoff(ctx context.Context, id int64) error {
	if _, err := q.q.ExecContext(ctx, `DELETE FROM payoffs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting payoff %d: %w", id, err)
	}
	return nil
}

// PayoffsOf returns the payments applied to a bill ordered by date then id.
func (q *Queries) PayoffsOf(ctx context.Context, billID int64) ([]model.Payoff, error) {
	return q.queryPayoffs(ctx,
		`SELECT id, bill_id, date, amount, mode, payer, reference, entry_id, bank_account_id, bank_fee
		 FROM payoffs WHERE bill_id = ? ORDER BY date, id`, billID)
}

// PayoffsByEntry returns every payment sharing a ledger entry; a multi-payoff
// produces several rows pointing at one entry.
func (q *Queries) PayoffsByEntry(ctx context.Context, entryID int64) ([]model.Payoff, error) {
	return q.queryPayoffs(ctx,
		`SELECT id, bill_id, date, amount, mode, payer, reference, entry_id, bank_account_id, bank_fee
		 FROM payoffs WHERE entry_id = ? ORDER BY id`, entryID)
}

// SumPayoffs returns the total amount paid against a bill.
func (q *Queries) SumPayoffs(ctx context.Context, billID int64) (decimal.Decimal, error) {
	payoffs, err := q.PayoffsOf(ctx, billID)
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, p := range payoffs {
		sum = sum.Add(p.Amount)
	}
	return sum, nil
}

func (q *Queries) queryPayoffs(ctx context.Context, query string, args ...any) ([]model.Payoff, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing payoffs: %w", err)
	}
	defer rows.Close()

	var payoffs []model.Payoff
	for rows.Next() {
		var p model.Payoff
		var date, amount, fee string
		var mode int
		if err := rows.Scan(&p.ID, &p.BillID, &date, &amount, &mode, &p.Payer, &p.Reference,
			&p.EntryID, &p.BankAccountID, &fee); err != nil {
			return nil, fmt.Errorf("scanning payoff: %w", err)
		}
		if p.Date, err = time.Parse(dateFormat, date); err != nil {
			return nil, fmt.Errorf("parsing payoff date %q: %w", date, err)
		}
		if p.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parsing payoff amount %q: %w", amount, err)
		}
		if p.BankFee, err = decimal.NewFromString(fee); err != nil {
			return nil, fmt.Errorf("parsing bank fee %q: %w", fee, err)
		}
		p.Mode = model.PayoffMode(mode)
		payoffs = append(payoffs, p)
	}
	return payoffs, rows.Err()
}

func scanBill(row rowScanner) (model.Bill, error) {
	var b model.Bill
	var typ, status int
	var date string
	err := row.Scan(&b.ID, &b.YearID, &typ, &b.Num, &date, &b.Comment, &status,
		&b.ThirdID, &b.EntryID, &b.CostAccountingID, &b.ParentID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Bill{}, ErrNotFound
	}
	if err != nil {
		return model.Bill{}, fmt.Errorf("scanning bill: %w", err)
	}
	if b.Date, err = time.Parse(dateFormat, date); err != nil {
		return model.Bill{}, fmt.Errorf("parsing bill date %q: %w", date, err)
	}
	b.Type = model.BillType(typ)
	b.Status = model.BillStatus(status)
	return b, nil
}
