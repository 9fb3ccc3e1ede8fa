package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryAccount is one journal entry, owning a set of EntryLine rows whose
// signed amounts must sum to zero before the entry can be closed. Num is
// assigned sequentially per fiscal year at close time only; an unclosed
// entry shows no number. Version increments on every line save and backs
// the optimistic concurrency check of the editing protocol.
type EntryAccount struct {
	ID          int64
	YearID      int64
	Num         int
	JournalID   int64
	LinkID      int64 // 0 = not reconciled
	DateEntry   *time.Time
	DateValue   time.Time
	Designation string
	Closed      bool
	Version     int
}

// EntryLine is one ledger line. Amount is the single signed field: negative
// amounts sit on the debit side, positive on the credit side, and an entry
// balances when its raw amounts sum to zero. Debit/Credit never get stored
// separately; they are derived for display.
type EntryLine struct {
	ID               int64
	EntryID          int64
	AccountID        int64
	Amount           decimal.Decimal
	Reference        string
	ThirdID          int64 // 0 = none
	CostAccountingID int64 // 0 = none
}

// Debit derives the non-negative debit display value for the line given the
// account type's credit/debit way: the line is a debit when
// amount * way is negative.
func (l EntryLine) Debit(typ AccountType) decimal.Decimal {
	v := l.Amount.Mul(decimal.NewFromInt(int64(typ.CreditDebitWay())))
	if v.IsNegative() {
		return v.Neg()
	}
	return decimal.Zero
}

// Credit derives the non-negative credit display value for the line.
func (l EntryLine) Credit(typ AccountType) decimal.Decimal {
	v := l.Amount.Mul(decimal.NewFromInt(int64(typ.CreditDebitWay())))
	if v.IsPositive() {
		return v
	}
	return decimal.Zero
}

// AccountLink groups reconciled entries ("lettering"). Its display letter is
// derived from its ordinal position among the links of the same fiscal year
// and is never stored.
type AccountLink struct {
	ID     int64
	YearID int64
}
