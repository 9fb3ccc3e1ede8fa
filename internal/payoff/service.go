// Package payoff applies payments to supporting documents and posts them to
// the ledger: one payment journal entry per payoff (or per multi-payoff,
// shared), and the automatic reconciliation of settled documents.
package payoff

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/grandlivre-dev/grandlivre/internal/billing"
	"github.com/grandlivre-dev/grandlivre/internal/chart"
	"github.com/grandlivre-dev/grandlivre/internal/config"
	"github.com/grandlivre-dev/grandlivre/internal/link"
	"github.com/grandlivre-dev/grandlivre/internal/model"
	"github.com/grandlivre-dev/grandlivre/internal/store"
)

// Service provides payment operations.
type Service struct {
	store   *store.Store
	billing *billing.Service
	chart   *chart.Service
	cfg     *config.Config
}

// NewService creates a payoff Service.
func NewService(st *store.Store, bl *billing.Service, ch *chart.Service, cfg *config.Config) *Service {
	return &Service{store: st, billing: bl, chart: ch, cfg: cfg}
}

// SaveParams holds the fields of a new payment.
type SaveParams struct {
	BillID        int64
	Date          time.Time
	Amount        decimal.Decimal
	Mode          model.PayoffMode
	Payer         string
	Reference     string
	BankAccountID int64
	BankFee       decimal.Decimal
}

// Save records one payment against one document, posts its ledger entry and
// auto-reconciles the document if it is now settled.
func (s *Service) Save(ctx context.Context, p SaveParams) (model.Payoff, error) {
	bill, err := s.store.GetBill(ctx, p.BillID)
	if err != nil {
		return model.Payoff{}, err
	}
	if bill.Status != model.BillValid {
		return model.Payoff{}, fmt.Errorf("bill %d is %s, only a valid bill accepts payments", p.BillID, bill.Status)
	}

	payoff := model.Payoff{
		BillID:        p.BillID,
		Date:          p.Date,
		Amount:        p.Amount,
		Mode:          p.Mode,
		Payer:         p.Payer,
		Reference:     p.Reference,
		BankAccountID: p.BankAccountID,
		BankFee:       p.BankFee,
	}

	err = s.store.WithTx(ctx, func(q *store.Queries) error {
		if err := q.CreatePayoff(ctx, &payoff); err != nil {
			return err
		}
		entryID, err := s.generateEntry(ctx, q, []model.Payoff{payoff}, p.Date)
		if err != nil {
			return err
		}
		payoff.EntryID = entryID
		return q.UpdatePayoff(ctx, &payoff)
	})
	if err != nil {
		return model.Payoff{}, err
	}

	if err := s.GenerateAccountLink(ctx, p.BillID); err != nil {
		return model.Payoff{}, err
	}
	return payoff, nil
}

// MultiSaveParams holds the fields of a payment spread over several documents.
type MultiSaveParams struct {
	BillIDs       []int64
	Date          time.Time
	Amount        decimal.Decimal
	Mode          model.PayoffMode
	Payer         string
	Reference     string
	BankAccountID int64
	Repartition   int
}

// MultiSave applies one payment across several documents. Every created
// payoff shares a single ledger entry; the per-document shares follow the
// chosen repartition mode.
func (s *Service) MultiSave(ctx context.Context, p MultiSaveParams) ([]model.Payoff, error) {
	targets := make([]Target, 0, len(p.BillIDs))
	for _, id := range p.BillIDs {
		bill, err := s.store.GetBill(ctx, id)
		if err != nil {
			return nil, err
		}
		if bill.Status != model.BillValid {
			return nil, fmt.Errorf("bill %d is %s, only a valid bill accepts payments", id, bill.Status)
		}
		rest, err := s.billing.RestToPay(ctx, id)
		if err != nil {
			return nil, err
		}
		targets = append(targets, Target{BillID: id, Date: bill.Date, Rest: rest})
	}

	shares, err := Allocate(targets, p.Amount, p.Repartition, s.cfg.Currency.Decimals)
	if err != nil {
		return nil, err
	}

	var created []model.Payoff
	err = s.store.WithTx(ctx, func(q *store.Queries) error {
		for i, t := range targets {
			if shares[i].IsZero() {
				continue
			}
			payoff := model.Payoff{
				BillID:        t.BillID,
				Date:          p.Date,
				Amount:        shares[i],
				Mode:          p.Mode,
				Payer:         p.Payer,
				Reference:     p.Reference,
				BankAccountID: p.BankAccountID,
			}
			if err := q.CreatePayoff(ctx, &payoff); err != nil {
				return err
			}
			created = append(created, payoff)
		}

		entryID, err := s.generateEntry(ctx, q, created, p.Date)
		if err != nil {
			return err
		}
		for i := range created {
			created[i].EntryID = entryID
			if err := q.UpdatePayoff(ctx, &created[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, c := range created {
		if err := s.GenerateAccountLink(ctx, c.BillID); err != nil {
			return nil, err
		}
	}
	return created, nil
}

// Delete removes a payment and rebuilds the shared ledger entry for any
// sibling payoffs of a multi-payoff: the old entry is unlinked and deleted,
// then regenerated from scratch, never patched.
func (s *Service) Delete(ctx context.Context, payoffID int64) error {
	return s.store.WithTx(ctx, func(q *store.Queries) error {
		p, err := q.GetPayoff(ctx, payoffID)
		if err != nil {
			return err
		}

		var siblings []model.Payoff
		if p.EntryID != 0 {
			all, err := q.PayoffsByEntry(ctx, p.EntryID)
			if err != nil {
				return err
			}
			for _, other := range all {
				if other.ID != p.ID {
					siblings = append(siblings, other)
				}
			}

			entry, err := q.GetEntry(ctx, p.EntryID)
			if err != nil {
				return err
			}
			if err := link.DissolveIn(ctx, q, &entry); err != nil {
				return err
			}
			if err := q.DeleteEntry(ctx, entry.ID); err != nil {
				return err
			}
		}

		if err := q.DeletePayoff(ctx, p.ID); err != nil {
			return err
		}

		if len(siblings) == 0 {
			return nil
		}
		entryID, err := s.generateEntry(ctx, q, siblings, siblings[0].Date)
		if err != nil {
			return err
		}
		for i := range siblings {
			siblings[i].EntryID = entryID
			if err := q.UpdatePayoff(ctx, &siblings[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// generateEntry posts one payment-journal entry for a batch of payoffs that
// share a date: one line per distinct (third account, third), the aggregated
// bank fee on the charges account, and the net movement on the cash account.
func (s *Service) generateEntry(ctx context.Context, q *store.Queries, payoffs []model.Payoff, date time.Time) (int64, error) {
	if len(payoffs) == 0 {
		return 0, nil
	}

	year, err := activeYearIn(ctx, q)
	if err != nil {
		return 0, err
	}
	mask, err := s.chart.ThirdMask(s.cfg.Accounting.CustomerMask)
	if err != nil {
		return 0, err
	}

	type thirdKey struct {
		accountID int64
		thirdID   int64
	}
	thirdSums := make(map[thirdKey]decimal.Decimal)
	var keys []thirdKey
	feeSum := decimal.Zero
	bankSum := decimal.Zero
	var names []string

	for _, p := range payoffs {
		bill, err := q.GetBill(ctx, p.BillID)
		if err != nil {
			return 0, err
		}
		direction := decimal.NewFromInt(1)
		if !bill.IsRevenu() {
			direction = decimal.NewFromInt(-1)
		}

		account, err := chart.ResolveThirdAccountIn(ctx, q, year.ID, bill.ThirdID, mask)
		if err != nil {
			return 0, err
		}
		key := thirdKey{accountID: account.ID, thirdID: bill.ThirdID}
		if _, seen := thirdSums[key]; !seen {
			keys = append(keys, key)
		}
		thirdSums[key] = thirdSums[key].Add(p.Amount.Mul(direction))
		feeSum = feeSum.Add(p.BankFee.Mul(direction))
		bankSum = bankSum.Add(p.Amount.Sub(p.BankFee).Mul(direction))
		names = append(names, billing.Name(bill))
	}

	entry := model.EntryAccount{
		YearID:      year.ID,
		JournalID:   model.JournalPayment,
		DateValue:   date,
		Designation: fmt.Sprintf("payoff for %s", strings.Join(names, ", ")),
	}
	if err := q.CreateEntry(ctx, &entry); err != nil {
		return 0, err
	}

	// Deterministic emission order for the third lines.
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].accountID != keys[j].accountID {
			return keys[i].accountID < keys[j].accountID
		}
		return keys[i].thirdID < keys[j].thirdID
	})
	for _, k := range keys {
		line := model.EntryLine{
			EntryID:   entry.ID,
			AccountID: k.accountID,
			Amount:    thirdSums[k],
			ThirdID:   k.thirdID,
		}
		if err := q.CreateEntryLine(ctx, &line); err != nil {
			return 0, err
		}
	}

	if !feeSum.IsZero() {
		account, err := q.ChartsAccountByCode(ctx, year.ID, s.cfg.Accounting.BankChargesAccount)
		if err != nil {
			return 0, fmt.Errorf("bank charges account %s: %w", s.cfg.Accounting.BankChargesAccount, err)
		}
		line := model.EntryLine{
			EntryID:   entry.ID,
			AccountID: account.ID,
			Amount:    feeSum.Neg(),
		}
		if err := q.CreateEntryLine(ctx, &line); err != nil {
			return 0, err
		}
	}

	bankAccount, err := q.ChartsAccountByCode(ctx, year.ID, s.cfg.Accounting.CashAccount)
	if err != nil {
		return 0, fmt.Errorf("cash account %s: %w", s.cfg.Accounting.CashAccount, err)
	}
	bankLine := model.EntryLine{
		EntryID:   entry.ID,
		AccountID: bankAccount.ID,
		Amount:    bankSum.Neg(),
	}
	if err := q.CreateEntryLine(ctx, &bankLine); err != nil {
		return 0, err
	}

	return entry.ID, nil
}

func activeYearIn(ctx context.Context, q *store.Queries) (model.FiscalYear, error) {
	year, err := q.ActiveFiscalYear(ctx)
	if err != nil {
		return model.FiscalYear{}, fmt.Errorf("no fiscal year defined: %w", err)
	}
	return year, nil
}
