package sysacc

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/grandlivre-dev/grandlivre/internal/model"
)

// FrenchPCG implements System for the French "plan comptable général".
// Codes are numeric, at least three digits, first digit 0-8 selecting the
// class. Class 4 holds third-party accounts, class 5 cash, 6 expenses,
// 7 revenues, 8 contra/special accounts.
type FrenchPCG struct {
	general *regexp.Regexp
}

// NewFrenchPCG returns the French PCG strategy.
func NewFrenchPCG() *FrenchPCG {
	return &FrenchPCG{
		general: regexp.MustCompile(`^[0-8][0-9]{2}[0-9]*$`),
	}
}

func (f *FrenchPCG) Name() string { return "french" }

func (f *FrenchPCG) GeneralMask() string   { return `[0-8][0-9]{2}[0-9]*` }
func (f *FrenchPCG) CashMask() string      { return `5[0-9][0-9]+` }
func (f *FrenchPCG) ProviderMask() string  { return `40[0-9]+` }
func (f *FrenchPCG) CustomerMask() string  { return `41[0-9]+` }
func (f *FrenchPCG) EmployedMask() string  { return `42[0-9]+` }
func (f *FrenchPCG) SocietaryMask() string { return `45[0-9]+` }
func (f *FrenchPCG) RevenueMask() string   { return `7[0-9][0-9]+` }
func (f *FrenchPCG) ExpenseMask() string   { return `6[0-9][0-9]+` }

// ThirdMask is the alternation of the four third-party masks.
func (f *FrenchPCG) ThirdMask() string {
	return strings.Join([]string{
		f.ProviderMask(),
		f.CustomerMask(),
		f.EmployedMask(),
		f.SocietaryMask(),
	}, "|")
}

// Classify maps a code to its account type by PCG class digit.
func (f *FrenchPCG) Classify(code string) (model.AccountType, error) {
	if !f.general.MatchString(code) {
		return 0, ErrInvalidCode{Code: code}
	}
	switch code[0] {
	case '1':
		return model.AccountTypeEquity, nil
	case '2', '3', '5':
		return model.AccountTypeAsset, nil
	case '0', '4':
		// Class 4 carries customers, providers, employees, state: balance
		// sheet third accounts, credited by convention.
		return model.AccountTypeLiability, nil
	case '6':
		return model.AccountTypeExpense, nil
	case '7':
		return model.AccountTypeRevenue, nil
	default:
		return model.AccountTypeContra, nil
	}
}

var frenchClassNames = map[byte]string{
	'1': "capitaux",
	'2': "immobilisations",
	'3': "stocks",
	'4': "tiers",
	'5': "finances",
	'6': "charges",
	'7': "produits",
	'8': "speciaux",
}

// NewChartsAccount suggests a default name and type for a new code.
func (f *FrenchPCG) NewChartsAccount(code string) (string, model.AccountType, error) {
	typ, err := f.Classify(code)
	if err != nil {
		return "", 0, err
	}
	name, ok := frenchClassNames[code[0]]
	if !ok {
		name = "compte"
	}
	return fmt.Sprintf("%s %s", name, code), typ, nil
}

// CheckBegin requires the carry-forward journal, when present, to balance.
func (f *FrenchPCG) CheckBegin(opening OpeningState) error {
	if opening.CarryForwardLines == 0 {
		return nil
	}
	sum, err := decimal.NewFromString(opening.CarryForwardSum)
	if err != nil {
		return fmt.Errorf("parsing carry-forward sum: %w", err)
	}
	if !sum.IsZero() {
		return fmt.Errorf("carry-forward entries are unbalanced by %s", sum)
	}
	return nil
}

// CheckEnd refuses to close a year still holding unclosed entries when no
// successor year is chained to receive them.
func (f *FrenchPCG) CheckEnd(nbUnclosed int, hasNext bool) error {
	if nbUnclosed > 0 && !hasNext {
		return fmt.Errorf("fiscal year has %d entries not closed and not next fiscal year", nbUnclosed)
	}
	return nil
}
