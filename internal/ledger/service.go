// Package ledger owns journal entries: the interactive pending-line editing
// protocol, the balance control, atomic line replacement and the
// numbering-on-close rule.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/grandlivre-dev/grandlivre/internal/link"
	"github.com/grandlivre-dev/grandlivre/internal/model"
	"github.com/grandlivre-dev/grandlivre/internal/money"
	"github.com/grandlivre-dev/grandlivre/internal/serial"
	"github.com/grandlivre-dev/grandlivre/internal/store"
)

// ErrStaleEntry reports that the entry changed since the serial snapshot was
// taken; the caller must reload and redo the edit.
var ErrStaleEntry = errors.New("entry was modified concurrently")

// ErrEntryClosed reports an attempted mutation of a closed entry.
var ErrEntryClosed = errors.New("entry is closed")

// Service provides journal-entry operations.
type Service struct {
	store    *store.Store
	decimals int32
}

// NewService creates a ledger Service with the configured currency precision.
func NewService(st *store.Store, decimals int32) *Service {
	return &Service{store: st, decimals: decimals}
}

// Create opens a new unclosed entry in a year's journal.
func (s *Service) Create(ctx context.Context, yearID, journalID int64, dateValue time.Time, designation string) (model.EntryAccount, error) {
	year, err := s.store.GetFiscalYear(ctx, yearID)
	if err != nil {
		return model.EntryAccount{}, err
	}
	if year.Status == model.FiscalYearClosed {
		return model.EntryAccount{}, fmt.Errorf("fiscal year %d is closed", yearID)
	}
	entry := model.EntryAccount{
		YearID:      yearID,
		JournalID:   journalID,
		DateValue:   dateValue,
		Designation: designation,
	}
	if err := s.store.CreateEntry(ctx, &entry); err != nil {
		return model.EntryAccount{}, err
	}
	return entry, nil
}

// Get fetches one entry.
func (s *Service) Get(ctx context.Context, id int64) (model.EntryAccount, error) {
	return s.store.GetEntry(ctx, id)
}

// Lines returns an entry's persisted lines.
func (s *Service) Lines(ctx context.Context, entryID int64) ([]model.EntryLine, error) {
	return s.store.EntryLines(ctx, entryID)
}

// Serialize renders an entry's persisted lines in the pending-line wire
// format, the starting point of an editing session.
func (s *Service) Serialize(ctx context.Context, entryID int64) (string, error) {
	lines, err := s.store.EntryLines(ctx, entryID)
	if err != nil {
		return "", err
	}
	pending := make([]serial.PendingLine, len(lines))
	for i, l := range lines {
		pending[i] = toPending(l)
	}
	return serial.Serialize(pending), nil
}

// Control is the result of SerialControl. The rest names follow the original
// protocol: DebitRest is the excess sitting on the credit side that still
// needs an offsetting debit line, and CreditRest the reverse.
type Control struct {
	NoChange   bool
	DebitRest  decimal.Decimal
	CreditRest decimal.Decimal
}

// Balanced reports whether both rests are within the serial tolerance and at
// least one line exists, the precondition for closing the entry.
func (c Control) Balanced(hasLines bool) bool {
	return hasLines &&
		c.DebitRest.LessThan(money.SerialEpsilon) &&
		c.CreditRest.LessThan(money.SerialEpsilon)
}

// SerialControl parses the pending set, verifies every referenced account and
// third still exists, compares the set line-by-line against the persisted
// lines, and sums the outstanding debit/credit rests.
func (s *Service) SerialControl(ctx context.Context, entryID int64, text string) (Control, []serial.PendingLine, error) {
	pending, err := serial.Parse(text)
	if err != nil {
		return Control{}, nil, err
	}
	if err := s.resolve(ctx, pending); err != nil {
		return Control{}, nil, err
	}

	persisted, err := s.store.EntryLines(ctx, entryID)
	if err != nil {
		return Control{}, nil, err
	}

	ctl := Control{NoChange: len(pending) == len(persisted)}
	if ctl.NoChange {
		for i, p := range pending {
			if !p.Equal(toPending(persisted[i])) {
				ctl.NoChange = false
				break
			}
		}
	}

	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for _, p := range pending {
		if p.Amount.IsNegative() {
			totalDebit = totalDebit.Add(p.Amount.Neg())
		} else {
			totalCredit = totalCredit.Add(p.Amount)
		}
	}
	ctl.DebitRest = money.Max(decimal.Zero, totalCredit.Sub(totalDebit))
	ctl.CreditRest = money.Max(decimal.Zero, totalDebit.Sub(totalCredit))
	return ctl, pending, nil
}

// SaveLines replaces an entry's persisted lines with the parsed pending set,
// atomically: all old lines are deleted, pending lines inserted in order, and
// temporary negative ids handed to the store for assignment. The expected
// version guards against concurrent edits of the same entry.
func (s *Service) SaveLines(ctx context.Context, entryID int64, text string, expectedVersion int) error {
	pending, err := serial.Parse(text)
	if err != nil {
		return err
	}
	if err := s.resolve(ctx, pending); err != nil {
		return err
	}

	return s.store.WithTx(ctx, func(q *store.Queries) error {
		entry, err := q.GetEntry(ctx, entryID)
		if err != nil {
			return err
		}
		if entry.Closed {
			return ErrEntryClosed
		}
		if entry.Version != expectedVersion {
			return ErrStaleEntry
		}

		if err := q.DeleteEntryLines(ctx, entryID); err != nil {
			return err
		}
		for _, p := range pending {
			l := model.EntryLine{
				EntryID:   entryID,
				AccountID: p.AccountID,
				Amount:    p.Amount,
				Reference: p.Reference,
				ThirdID:   p.ThirdID,
			}
			if err := q.CreateEntryLine(ctx, &l); err != nil {
				return err
			}
		}

		entry.Version++
		return q.UpdateEntry(ctx, &entry)
	})
}

// RemoveLine drops one pending line from a serial string without touching
// persisted state.
func (s *Service) RemoveLine(text string, lineID int64) (string, error) {
	return serial.Remove(text, lineID)
}

// Close finalizes an entry: at least one line, amounts summing to zero within
// the serial tolerance, and the next sequential number of the fiscal year
// assigned inside the same transaction.
func (s *Service) Close(ctx context.Context, entryID int64) error {
	return s.store.WithTx(ctx, func(q *store.Queries) error {
		return CloseIn(ctx, q, entryID)
	})
}

// CloseIn is Close running inside an existing transaction.
func CloseIn(ctx context.Context, q *store.Queries, entryID int64) error {
	entry, err := q.GetEntry(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.Closed {
		return ErrEntryClosed
	}

	lines, err := q.EntryLines(ctx, entryID)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return errors.New("entry has no lines")
	}
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Amount)
	}
	if sum.Abs().GreaterThanOrEqual(money.SerialEpsilon) {
		return fmt.Errorf("entry is unbalanced by %s", sum)
	}

	maxNum, err := q.MaxEntryNum(ctx, entry.YearID)
	if err != nil {
		return err
	}
	now := time.Now()
	entry.Num = maxNum + 1
	entry.Closed = true
	entry.DateEntry = &now
	return q.UpdateEntry(ctx, &entry)
}

// Delete removes an entry, dissolving its reconciliation group first.
func (s *Service) Delete(ctx context.Context, entryID int64) error {
	return s.store.WithTx(ctx, func(q *store.Queries) error {
		entry, err := q.GetEntry(ctx, entryID)
		if err != nil {
			return err
		}
		if err := link.DissolveIn(ctx, q, &entry); err != nil {
			return err
		}
		return q.DeleteEntry(ctx, entryID)
	})
}

// resolve verifies that every account and third referenced by the pending set
// still exists.
func (s *Service) resolve(ctx context.Context, pending []serial.PendingLine) error {
	for _, p := range pending {
		if _, err := s.store.GetChartsAccount(ctx, p.AccountID); err != nil {
			return fmt.Errorf("pending line references account %d: %w", p.AccountID, err)
		}
		if p.ThirdID != 0 {
			if _, err := s.store.GetThird(ctx, p.ThirdID); err != nil {
				return fmt.Errorf("pending line references third %d: %w", p.ThirdID, err)
			}
		}
	}
	return nil
}

func toPending(l model.EntryLine) serial.PendingLine {
	return serial.PendingLine{
		ID:        l.ID,
		AccountID: l.AccountID,
		ThirdID:   l.ThirdID,
		Amount:    l.Amount,
		Reference: l.Reference,
	}
}
