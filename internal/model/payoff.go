package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PayoffMode is the payment instrument.
type PayoffMode int

const (
	PayoffCash PayoffMode = iota
	PayoffCheque
	PayoffTransfer
	PayoffCreditCard
	PayoffOther
)

// Payoff is one payment applied against a supporting document. A multi-payoff
// creates one Payoff row per document, all sharing a single ledger entry.
type Payoff struct {
	ID            int64
	BillID        int64
	Date          time.Time
	Amount        decimal.Decimal
	Mode          PayoffMode
	Payer         string
	Reference     string
	EntryID       int64 // 0 = not yet posted
	BankAccountID int64 // 0 = default cash account
	BankFee       decimal.Decimal
}
