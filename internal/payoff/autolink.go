package payoff

import (
	"context"

	"github.com/grandlivre-dev/grandlivre/internal/link"
	"github.com/grandlivre-dev/grandlivre/internal/money"
	"github.com/grandlivre-dev/grandlivre/internal/store"
)

// GenerateAccountLink reconciles a settled document: its ledger entry and the
// entries of its payments are grouped by (account code, third) and each group
// is lettered together. A shared multi-payoff entry can reveal that another
// document is now settled too, so those documents are followed transitively
// through a work queue until a fixed point. Calling it again on an already
// settled document recreates no links.
func (s *Service) GenerateAccountLink(ctx context.Context, billID int64) error {
	queue := []int64{billID}
	visited := make(map[int64]bool)

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true

		rest, err := s.billing.RestToPay(ctx, id)
		if err != nil {
			return err
		}
		if !money.IsZero(rest, s.cfg.Currency.Decimals) {
			continue
		}

		bill, err := s.store.GetBill(ctx, id)
		if err != nil {
			return err
		}
		if bill.EntryID == 0 {
			continue
		}

		// Accumulate every third line touching this document's chain,
		// keyed by (account code, third).
		type groupKey struct {
			code    string
			thirdID int64
		}
		groups := make(map[groupKey][]int64)
		var order []groupKey

		collect := func(entryID int64) error {
			lines, err := s.store.EntryLines(ctx, entryID)
			if err != nil {
				return err
			}
			for _, l := range lines {
				if l.ThirdID == 0 {
					continue
				}
				account, err := s.store.GetChartsAccount(ctx, l.AccountID)
				if err != nil {
					return err
				}
				key := groupKey{code: account.Code, thirdID: l.ThirdID}
				entries := groups[key]
				if len(entries) == 0 {
					order = append(order, key)
				}
				if !containsID(entries, entryID) {
					groups[key] = append(entries, entryID)
				}
			}
			return nil
		}

		if err := collect(bill.EntryID); err != nil {
			return err
		}

		payoffs, err := s.store.PayoffsOf(ctx, id)
		if err != nil {
			return err
		}
		for _, p := range payoffs {
			if p.EntryID == 0 {
				continue
			}
			if err := collect(p.EntryID); err != nil {
				return err
			}
			// A shared entry means other documents were paid by the same
			// payment; their settlement may have changed too.
			siblings, err := s.store.PayoffsByEntry(ctx, p.EntryID)
			if err != nil {
				return err
			}
			for _, sib := range siblings {
				if sib.BillID != id && !visited[sib.BillID] {
					queue = append(queue, sib.BillID)
				}
			}
		}

		err = s.store.WithTx(ctx, func(q *store.Queries) error {
			for _, key := range order {
				entryIDs := groups[key]
				if len(entryIDs) < 2 {
					continue
				}
				already, err := sameLink(ctx, q, entryIDs)
				if err != nil {
					return err
				}
				if already {
					continue
				}
				if _, err := link.CreateIn(ctx, q, entryIDs); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// sameLink reports whether every entry already shares one non-zero link, the
// idempotence guard of re-reconciliation.
func sameLink(ctx context.Context, q *store.Queries, entryIDs []int64) (bool, error) {
	var linkID int64
	for i, id := range entryIDs {
		e, err := q.GetEntry(ctx, id)
		if err != nil {
			return false, err
		}
		if e.LinkID == 0 {
			return false, nil
		}
		if i == 0 {
			linkID = e.LinkID
		} else if e.LinkID != linkID {
			return false, nil
		}
	}
	return true, nil
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
