// Package link implements reconciliation "lettering": anonymous groups of
// ledger entries that settle each other, labeled A, B, ... AA, AB by their
// ordinal within the fiscal year. Labels are derived on demand and never
// stored, so they shift down consistently when an earlier link is deleted.
package link

import (
	"context"
	"errors"
	"fmt"

	"github.com/grandlivre-dev/grandlivre/internal/model"
	"github.com/grandlivre-dev/grandlivre/internal/store"
)

// Service provides reconciliation-link operations.
type Service struct {
	store *store.Store
}

// NewService creates a link Service.
func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// Create groups the given entries under one new link. Any letter group an
// entry already belongs to is dissolved first, then the entry is attached to
// the new one. All entries must belong to the same fiscal year.
func (s *Service) Create(ctx context.Context, entryIDs []int64) (model.AccountLink, error) {
	if len(entryIDs) < 2 {
		return model.AccountLink{}, errors.New("a link needs at least two entries")
	}

	var created model.AccountLink
	err := s.store.WithTx(ctx, func(q *store.Queries) error {
		var err error
		created, err = CreateIn(ctx, q, entryIDs)
		return err
	})
	if err != nil {
		return model.AccountLink{}, err
	}
	return created, nil
}

// CreateIn is Create running inside an existing transaction; the payoff
// auto-linker composes several link creations atomically through it.
func CreateIn(ctx context.Context, q *store.Queries, entryIDs []int64) (model.AccountLink, error) {
	yearID := int64(0)
	entries := make([]model.EntryAccount, 0, len(entryIDs))
	for _, id := range entryIDs {
		e, err := q.GetEntry(ctx, id)
		if err != nil {
			return model.AccountLink{}, fmt.Errorf("loading entry %d: %w", id, err)
		}
		if yearID == 0 {
			yearID = e.YearID
		} else if e.YearID != yearID {
			return model.AccountLink{}, errors.New("linked entries must share one fiscal year")
		}
		entries = append(entries, e)
	}

	for i := range entries {
		if err := DissolveIn(ctx, q, &entries[i]); err != nil {
			return model.AccountLink{}, err
		}
	}

	l := model.AccountLink{YearID: yearID}
	if err := q.CreateLink(ctx, &l); err != nil {
		return model.AccountLink{}, err
	}
	for _, e := range entries {
		if err := q.SetEntryLink(ctx, e.ID, l.ID); err != nil {
			return model.AccountLink{}, err
		}
	}
	return l, nil
}

// DissolveIn removes an entry's whole reconciliation group inside a
// transaction: every member entry is unlinked and the link row deleted. A
// letter group never survives with a single member, so breaking it for one
// entry breaks it for all.
func DissolveIn(ctx context.Context, q *store.Queries, e *model.EntryAccount) error {
	if e.LinkID == 0 {
		return nil
	}
	old := e.LinkID

	members, err := q.EntriesByLink(ctx, old)
	if err != nil {
		return err
	}
	for _, m := range members {
		if err := q.SetEntryLink(ctx, m.ID, 0); err != nil {
			return err
		}
	}
	e.LinkID = 0
	return q.DeleteLink(ctx, old)
}

// Detach dissolves the reconciliation group of an entry.
func (s *Service) Detach(ctx context.Context, entryID int64) error {
	return s.store.WithTx(ctx, func(q *store.Queries) error {
		e, err := q.GetEntry(ctx, entryID)
		if err != nil {
			return err
		}
		return DissolveIn(ctx, q, &e)
	})
}

// Letter returns the derived label of a link: the bijective base-26 encoding
// of its ordinal among the links of its fiscal year, ordered by id.
func (s *Service) Letter(ctx context.Context, l model.AccountLink) (string, error) {
	before, err := s.store.CountLinksBefore(ctx, l.YearID, l.ID)
	if err != nil {
		return "", err
	}
	return FormatLetter(before), nil
}
