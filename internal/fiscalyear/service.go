// Package fiscalyear implements the fiscal-year lifecycle: building years,
// chaining them, the running/closed transitions and the single-active-year
// rule.
package fiscalyear

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/grandlivre-dev/grandlivre/internal/model"
	"github.com/grandlivre-dev/grandlivre/internal/store"
	"github.com/grandlivre-dev/grandlivre/internal/sysacc"
)

// ErrNoFiscalYear is returned when no year is active; dashboards catch it and
// show a configuration prompt instead of failing.
var ErrNoFiscalYear = errors.New("no fiscal year defined")

// Service provides fiscal-year operations.
type Service struct {
	store *store.Store
	sys   sysacc.System
}

// NewService creates a fiscal-year Service.
func NewService(st *store.Store, sys sysacc.System) *Service {
	return &Service{store: st, sys: sys}
}

// Create opens a new Building year. The first year stands alone; every later
// year must chain to the current last year, and the new year becomes active
// when no other year is.
func (s *Service) Create(ctx context.Context, begin, end time.Time) (model.FiscalYear, error) {
	if !end.After(begin) {
		return model.FiscalYear{}, errors.New("end of fiscal year must be after begin")
	}

	year := model.FiscalYear{Begin: begin, End: end, Status: model.FiscalYearBuilding}

	err := s.store.WithTx(ctx, func(q *store.Queries) error {
		last, err := q.LastFiscalYear(ctx)
		switch {
		case errors.Is(err, store.ErrNotFound):
			// First year of the books.
			year.IsActive = true
		case err != nil:
			return err
		default:
			if begin.Before(last.End) {
				return fmt.Errorf("begin %s overlaps previous fiscal year ending %s",
					begin.Format("2006-01-02"), last.End.Format("2006-01-02"))
			}
			year.PreviousID = last.ID
		}
		return q.CreateFiscalYear(ctx, &year)
	})
	if err != nil {
		return model.FiscalYear{}, err
	}
	return year, nil
}

// Activate makes one year the active year, deactivating every other in the
// same transaction.
func (s *Service) Activate(ctx context.Context, id int64) error {
	return s.store.WithTx(ctx, func(q *store.Queries) error {
		year, err := q.GetFiscalYear(ctx, id)
		if err != nil {
			return err
		}
		if err := q.DeactivateFiscalYears(ctx); err != nil {
			return err
		}
		year.IsActive = true
		return q.UpdateFiscalYear(ctx, &year)
	})
}

// GetCurrent returns the year with the given id, or the active year when id
// is zero. ErrNoFiscalYear when none is active.
func (s *Service) GetCurrent(ctx context.Context, id int64) (model.FiscalYear, error) {
	if id != 0 {
		return s.store.GetFiscalYear(ctx, id)
	}
	year, err := s.store.ActiveFiscalYear(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return model.FiscalYear{}, ErrNoFiscalYear
	}
	return year, err
}

// Begin moves a Building year to Running. The transition is refused while
// unclosed carry-forward entries remain, and the accounting system may veto
// it through its CheckBegin hook.
func (s *Service) Begin(ctx context.Context, id int64) error {
	return s.store.WithTx(ctx, func(q *store.Queries) error {
		year, err := q.GetFiscalYear(ctx, id)
		if err != nil {
			return err
		}
		if year.Status != model.FiscalYearBuilding {
			return fmt.Errorf("fiscal year %d is %s, only a building year can begin", id, year.Status)
		}

		unclosed, err := q.CountUnclosedEntries(ctx, id, model.JournalCarryForward)
		if err != nil {
			return err
		}
		if unclosed > 0 {
			return fmt.Errorf("fiscal year has %d unclosed carry-forward entries", unclosed)
		}

		sum, count, err := q.SumJournalAmounts(ctx, id, model.JournalCarryForward)
		if err != nil {
			return err
		}
		if err := s.sys.CheckBegin(sysacc.OpeningState{
			CarryForwardLines: count,
			CarryForwardSum:   sum.String(),
		}); err != nil {
			return err
		}

		year.Status = model.FiscalYearRunning
		return q.UpdateFiscalYear(ctx, &year)
	})
}

// Close moves a Running year to Closed. Unclosed entries are only tolerated
// when a successor year is chained to receive them; the accounting system's
// CheckEnd hook sees both facts and may refuse.
func (s *Service) Close(ctx context.Context, id int64) error {
	return s.store.WithTx(ctx, func(q *store.Queries) error {
		year, err := q.GetFiscalYear(ctx, id)
		if err != nil {
			return err
		}
		if year.Status != model.FiscalYearRunning {
			return fmt.Errorf("fiscal year %d is %s, only a running year can close", id, year.Status)
		}

		unclosed, err := q.CountUnclosedEntries(ctx, id, 0)
		if err != nil {
			return err
		}

		hasNext := true
		if _, err := q.NextFiscalYear(ctx, id); errors.Is(err, store.ErrNotFound) {
			hasNext = false
		} else if err != nil {
			return err
		}

		if err := s.sys.CheckEnd(unclosed, hasNext); err != nil {
			return err
		}

		year.Status = model.FiscalYearClosed
		return q.UpdateFiscalYear(ctx, &year)
	})
}

// Delete removes a year and cascades its entries. Only the last year by end
// date may be deleted, and never a closed one.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.WithTx(ctx, func(q *store.Queries) error {
		year, err := q.GetFiscalYear(ctx, id)
		if err != nil {
			return err
		}
		last, err := q.LastFiscalYear(ctx)
		if err != nil {
			return err
		}
		if last.ID != id {
			return errors.New("this fiscal year is not the last")
		}
		if year.Status == model.FiscalYearClosed {
			return errors.New("a closed fiscal year cannot be deleted")
		}
		return q.DeleteFiscalYear(ctx, id)
	})
}

// List returns every year ordered by begin date.
func (s *Service) List(ctx context.Context) ([]model.FiscalYear, error) {
	return s.store.ListFiscalYears(ctx)
}
