package billing

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/grandlivre-dev/grandlivre/internal/chart"
	"github.com/grandlivre-dev/grandlivre/internal/config"
	"github.com/grandlivre-dev/grandlivre/internal/model"
	"github.com/grandlivre-dev/grandlivre/internal/money"
	"github.com/grandlivre-dev/grandlivre/internal/store"
)

// generateEntry translates a bill into one balanced sales-journal entry:
// one third-party line for the tax-included total, one line per
// (sell account, cost accounting) group of details, the aggregated reduction
// on the configured reduce account when VAT is active, and one aggregated
// line per VAT account. Credit notes invert every sign. The generated entry
// is re-checked before the transaction commits; an unbalanced result aborts
// as a ConsistencyError.
func (s *Service) generateEntry(ctx context.Context, q *store.Queries, bill *model.Bill) error {
	details, err := q.DetailsOf(ctx, bill.ID)
	if err != nil {
		return err
	}
	decimals := s.decimals()
	vatActive := s.cfg.Invoice.VatMode != config.VatModeNone

	isBill := decimal.NewFromInt(1)
	if bill.Type == model.BillAsset {
		isBill = decimal.NewFromInt(-1)
	}

	entry := model.EntryAccount{
		YearID:      bill.YearID,
		JournalID:   model.JournalSales,
		DateValue:   bill.Date,
		Designation: fmt.Sprintf("%s %s - %s", bill.Type, fmt.Sprintf("#%d", bill.Num), bill.Date.Format("2006-01-02")),
	}
	if err := q.CreateEntry(ctx, &entry); err != nil {
		return err
	}

	// Third-party line for the full tax-included total.
	totalIncl := model.BillTotalInclTax(details, decimals)
	if !totalIncl.IsZero() {
		mask, err := s.chart.ThirdMask(s.cfg.Accounting.CustomerMask)
		if err != nil {
			return err
		}
		thirdAccount, err := chart.ResolveThirdAccountIn(ctx, q, bill.YearID, bill.ThirdID, mask)
		if err != nil {
			return err
		}
		line := model.EntryLine{
			EntryID:   entry.ID,
			AccountID: thirdAccount.ID,
			Amount:    totalIncl.Mul(isBill).Neg(),
			ThirdID:   bill.ThirdID,
		}
		if err := q.CreateEntryLine(ctx, &line); err != nil {
			return err
		}
	}

	// Group detail lines by (sell account, cost accounting). With VAT active
	// the groups carry gross tax-excluded values and reductions move to the
	// reduce account; otherwise values are net of reductions.
	type groupKey struct {
		code   string
		costID int64
	}
	groups := make(map[groupKey]decimal.Decimal)
	totalReduce := decimal.Zero
	for _, d := range details {
		costID := bill.CostAccountingID
		key := groupKey{code: d.SellAccount, costID: costID}

		netExcl := d.TotalExclTax(decimals)
		if vatActive && !d.Reduce.IsZero() {
			// reduceExcl is derived from the same rounded values that feed
			// the revenue and third lines, so the entry stays exact.
			grossExcl := d.GrossExclTax(decimals)
			groups[key] = groups[key].Add(grossExcl)
			totalReduce = totalReduce.Add(grossExcl.Sub(netExcl))
		} else {
			groups[key] = groups[key].Add(netExcl)
		}
	}

	keys := make([]groupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].code != keys[j].code {
			return keys[i].code < keys[j].code
		}
		return keys[i].costID < keys[j].costID
	})

	for _, k := range keys {
		account, err := q.ChartsAccountByCode(ctx, bill.YearID, k.code)
		if err != nil {
			return fmt.Errorf("sell account %s: %w", k.code, err)
		}
		line := model.EntryLine{
			EntryID:          entry.ID,
			AccountID:        account.ID,
			Amount:           groups[k].Mul(isBill),
			CostAccountingID: k.costID,
		}
		if err := q.CreateEntryLine(ctx, &line); err != nil {
			return err
		}
	}

	if vatActive && !totalReduce.IsZero() {
		account, err := q.ChartsAccountByCode(ctx, bill.YearID, s.cfg.Invoice.ReduceAccount)
		if err != nil {
			return fmt.Errorf("reduce account %s: %w", s.cfg.Invoice.ReduceAccount, err)
		}
		line := model.EntryLine{
			EntryID:   entry.ID,
			AccountID: account.ID,
			Amount:    totalReduce.Mul(isBill).Neg(),
		}
		if err := q.CreateEntryLine(ctx, &line); err != nil {
			return err
		}
	}

	if vatActive {
		totalVat := model.BillTotalVat(details, decimals)
		if !totalVat.IsZero() {
			account, err := q.ChartsAccountByCode(ctx, bill.YearID, s.cfg.Invoice.VatSellAccount)
			if err != nil {
				return fmt.Errorf("vat account %s: %w", s.cfg.Invoice.VatSellAccount, err)
			}
			line := model.EntryLine{
				EntryID:   entry.ID,
				AccountID: account.ID,
				Amount:    totalVat.Mul(isBill),
			}
			if err := q.CreateEntryLine(ctx, &line); err != nil {
				return err
			}
		}
	}

	// Self-check of the generator: an entry that nets to nothing is dropped,
	// anything unbalanced denotes a bug and aborts the transaction.
	lines, err := q.EntryLines(ctx, entry.ID)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		if err := q.DeleteEntry(ctx, entry.ID); err != nil {
			return err
		}
		bill.EntryID = 0
		return nil
	}
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Amount)
	}
	if !sum.Abs().LessThan(money.SerialEpsilon) {
		return ConsistencyError{BillID: bill.ID, Detail: fmt.Sprintf("generated entry unbalanced by %s", sum)}
	}

	bill.EntryID = entry.ID
	return nil
}
