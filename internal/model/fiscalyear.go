package model

import "time"

// FiscalYearStatus is the lifecycle state of a fiscal year.
type FiscalYearStatus int

const (
	FiscalYearBuilding FiscalYearStatus = iota
	FiscalYearRunning
	FiscalYearClosed
)

func (s FiscalYearStatus) String() string {
	switch s {
	case FiscalYearBuilding:
		return "building"
	case FiscalYearRunning:
		return "running"
	case FiscalYearClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// FiscalYear is one accounting exercise. At most one year is active
// system-wide; PreviousID chains a year to its predecessor (0 = none).
type FiscalYear struct {
	ID         int64
	Begin      time.Time
	End        time.Time
	Status     FiscalYearStatus
	IsActive   bool
	PreviousID int64
}

// Contains reports whether d falls within the year's date range (inclusive).
func (y FiscalYear) Contains(d time.Time) bool {
	return !d.Before(y.Begin) && !d.After(y.End)
}

// Journal identifiers. Journal 1 is reserved for the carry-forward entries
// seeded from the previous year.
const (
	JournalCarryForward int64 = 1
	JournalPurchases    int64 = 2
	JournalSales        int64 = 3
	JournalPayment      int64 = 4
	JournalOther        int64 = 5
)

// JournalName returns the display name of a journal.
func JournalName(id int64) string {
	switch id {
	case JournalCarryForward:
		return "carry-forward"
	case JournalPurchases:
		return "purchases"
	case JournalSales:
		return "sales"
	case JournalPayment:
		return "payment"
	case JournalOther:
		return "other"
	default:
		return "unknown"
	}
}
