package model

// ThirdStatus enables or disables a third party for new postings.
type ThirdStatus int

const (
	ThirdEnabled ThirdStatus = iota
	ThirdDisabled
)

// Third is a customer, supplier or other counterparty.
type Third struct {
	ID      int64
	Contact string
	Status  ThirdStatus
}

// AccountThird is one account code a third party is posted under
// (receivable, payable, ...).
type AccountThird struct {
	ID      int64
	ThirdID int64
	Code    string
}
