// Package chart manages each fiscal year's chart of accounts: code
// validation and classification through the accounting-system strategy,
// lookups, and carry-forward of the chart when a successor year is created.
package chart

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/grandlivre-dev/grandlivre/internal/model"
	"github.com/grandlivre-dev/grandlivre/internal/store"
	"github.com/grandlivre-dev/grandlivre/internal/sysacc"
)

// Service provides chart-of-accounts operations for one accounting system.
type Service struct {
	store *store.Store
	sys   sysacc.System
}

// NewService creates a chart Service.
func NewService(st *store.Store, sys sysacc.System) *Service {
	return &Service{store: st, sys: sys}
}

// AddAccount validates a code against the system's general mask, classifies
// it and inserts it into the year's chart.
func (s *Service) AddAccount(ctx context.Context, yearID int64, code, name string) (model.ChartsAccount, error) {
	typ, err := s.sys.Classify(code)
	if err != nil {
		return model.ChartsAccount{}, err
	}
	if name == "" {
		name, typ, err = s.sys.NewChartsAccount(code)
		if err != nil {
			return model.ChartsAccount{}, err
		}
	}

	account := model.ChartsAccount{YearID: yearID, Code: code, Name: name, Type: typ}
	if err := s.store.CreateChartsAccount(ctx, &account); err != nil {
		return model.ChartsAccount{}, err
	}
	return account, nil
}

// ByCode fetches the account with the given code in a year.
func (s *Service) ByCode(ctx context.Context, yearID int64, code string) (model.ChartsAccount, error) {
	return s.store.ChartsAccountByCode(ctx, yearID, code)
}

// List returns a year's chart ordered by code.
func (s *Service) List(ctx context.Context, yearID int64) ([]model.ChartsAccount, error) {
	return s.store.ListChartsAccounts(ctx, yearID)
}

// ThirdMask returns the compiled third-account mask, honoring a customer
// mask override from configuration.
func (s *Service) ThirdMask(customerOverride string) (*regexp.Regexp, error) {
	mask := s.sys.ThirdMask()
	if customerOverride != "" {
		mask = customerOverride + "|" + mask
	}
	re, err := regexp.Compile("^(" + mask + ")$")
	if err != nil {
		return nil, fmt.Errorf("compiling third mask: %w", err)
	}
	return re, nil
}

// ResolveThirdAccount picks the first of a third party's account codes that
// matches the given mask and resolves it against the year's chart. It fails
// with a recoverable error when the third has no matching code or the code is
// absent from the chart; the caller lets the user fix configuration and retry.
func (s *Service) ResolveThirdAccount(ctx context.Context, yearID, thirdID int64, mask *regexp.Regexp) (model.ChartsAccount, error) {
	return ResolveThirdAccountIn(ctx, &s.store.Queries, yearID, thirdID, mask)
}

// ResolveThirdAccountIn is ResolveThirdAccount running against an explicit
// query context, so generators can resolve inside their own transaction.
func ResolveThirdAccountIn(ctx context.Context, q *store.Queries, yearID, thirdID int64, mask *regexp.Regexp) (model.ChartsAccount, error) {
	codes, err := q.AccountThirdCodes(ctx, thirdID)
	if err != nil {
		return model.ChartsAccount{}, err
	}
	for _, code := range codes {
		if !mask.MatchString(code) {
			continue
		}
		account, err := q.ChartsAccountByCode(ctx, yearID, code)
		if errors.Is(err, store.ErrNotFound) {
			return model.ChartsAccount{}, fmt.Errorf("third account code %s not in current chart", code)
		}
		if err != nil {
			return model.ChartsAccount{}, err
		}
		return account, nil
	}
	return model.ChartsAccount{}, fmt.Errorf("third %d has no account code matching mask", thirdID)
}

// CarryForward copies a year's chart into its successor, skipping codes the
// successor already has.
func (s *Service) CarryForward(ctx context.Context, fromYearID, toYearID int64) error {
	accounts, err := s.store.ListChartsAccounts(ctx, fromYearID)
	if err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(q *store.Queries) error {
		for _, a := range accounts {
			if _, err := q.ChartsAccountByCode(ctx, toYearID, a.Code); err == nil {
				continue
			} else if !errors.Is(err, store.ErrNotFound) {
				return err
			}
			copied := model.ChartsAccount{YearID: toYearID, Code: a.Code, Name: a.Name, Type: a.Type}
			if err := q.CreateChartsAccount(ctx, &copied); err != nil {
				return err
			}
		}
		return nil
	})
}
