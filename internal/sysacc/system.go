// Package sysacc defines the pluggable accounting-system strategy: the regex
// masks that classify account codes for a jurisdiction, plus the hooks run at
// fiscal-year transitions. Exactly one System instance is selected at
// configuration time and injected wherever classification is needed.
package sysacc

import (
	"fmt"

	"github.com/grandlivre-dev/grandlivre/internal/model"
)

// System is a jurisdiction-specific chart-of-accounts strategy.
type System interface {
	// Name identifies the system in config ("french").
	Name() string

	// GeneralMask matches every valid account code.
	GeneralMask() string
	// CashMask matches bank and cash accounts.
	CashMask() string
	// ProviderMask matches supplier (payable) third accounts.
	ProviderMask() string
	// CustomerMask matches customer (receivable) third accounts.
	CustomerMask() string
	// EmployedMask matches employee third accounts.
	EmployedMask() string
	// SocietaryMask matches member/societary third accounts.
	SocietaryMask() string
	// ThirdMask is the alternation of provider|customer|employed|societary.
	ThirdMask() string
	// RevenueMask matches revenue accounts.
	RevenueMask() string
	// ExpenseMask matches expense accounts.
	ExpenseMask() string

	// Classify maps an account code to its semantic type, or ErrInvalidCode.
	Classify(code string) (model.AccountType, error)

	// NewChartsAccount suggests a default name and type for a code.
	NewChartsAccount(code string) (name string, typ model.AccountType, err error)

	// CheckBegin validates a Building year before it moves to Running
	// (e.g. opening balances present and balanced).
	CheckBegin(opening OpeningState) error
	// CheckEnd validates a Running year before it moves to Closed.
	CheckEnd(nbUnclosed int, hasNext bool) error
}

// OpeningState summarizes the carry-forward journal of a year for CheckBegin.
type OpeningState struct {
	CarryForwardLines int
	CarryForwardSum   string
}

// ErrInvalidCode reports that a code does not match the system's general mask.
type ErrInvalidCode struct {
	Code string
}

func (e ErrInvalidCode) Error() string {
	return fmt.Sprintf("invalid account code %q", e.Code)
}

// ByName returns the System registered under name.
func ByName(name string) (System, error) {
	switch name {
	case "", "french":
		return NewFrenchPCG(), nil
	default:
		return nil, fmt.Errorf("unknown accounting system %q", name)
	}
}
