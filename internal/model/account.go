package model

// AccountType classifies accounts in the chart of accounts.
type AccountType int

const (
	AccountTypeAsset AccountType = iota
	AccountTypeLiability
	AccountTypeEquity
	AccountTypeRevenue
	AccountTypeExpense
	AccountTypeContra
)

func (t AccountType) String() string {
	switch t {
	case AccountTypeAsset:
		return "asset"
	case AccountTypeLiability:
		return "liability"
	case AccountTypeEquity:
		return "equity"
	case AccountTypeRevenue:
		return "revenue"
	case AccountTypeExpense:
		return "expense"
	case AccountTypeContra:
		return "contra"
	default:
		return "unknown"
	}
}

// CreditDebitWay returns the display sign convention for the type: asset and
// expense accounts grow on the debit side, so their stored amount sign is
// inverted for display (-1); all other types use +1.
func (t AccountType) CreditDebitWay() int {
	if t == AccountTypeAsset || t == AccountTypeExpense {
		return -1
	}
	return 1
}

// ChartsAccount is one account of a fiscal year's chart.
type ChartsAccount struct {
	ID     int64
	YearID int64
	Code   string
	Name   string
	Type   AccountType
}

// CostAccounting is an analytic bucket detail lines can be allocated to.
type CostAccounting struct {
	ID     int64
	Name   string
	Closed bool
}
