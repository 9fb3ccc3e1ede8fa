package payoff

import (
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Repartition selects how one payment spreads across several documents.
const (
	RepartitionProportional = 0
	RepartitionSequential   = 1
)

// Target is one document a multi-payoff can settle.
type Target struct {
	BillID int64
	Date   time.Time
	Rest   decimal.Decimal
}

// Allocate splits amount across the targets and returns one share per target,
// in the input order.
//
// Proportional: each share is amount * rest / total_rest, currency-rounded,
// and the last target absorbs the rounding remainder so the shares always sum
// to amount exactly.
//
// Sequential: targets are walked in ascending date order, each absorbing
// min(rest, remaining). A payment exceeding the total owed leaves the excess
// unallocated: the shares sum to min(amount, total_rest).
func Allocate(targets []Target, amount decimal.Decimal, repartition int, decimals int32) ([]decimal.Decimal, error) {
	if len(targets) == 0 {
		return nil, errors.New("no documents to pay")
	}
	if !amount.IsPositive() {
		return nil, errors.New("payment amount must be positive")
	}

	totalRest := decimal.Zero
	for _, t := range targets {
		totalRest = totalRest.Add(t.Rest)
	}
	if !totalRest.IsPositive() {
		return nil, errors.New("nothing left to pay")
	}

	shares := make([]decimal.Decimal, len(targets))

	switch repartition {
	case RepartitionProportional:
		allocated := decimal.Zero
		for i, t := range targets {
			if i == len(targets)-1 {
				shares[i] = amount.Sub(allocated)
				break
			}
			share := amount.Mul(t.Rest).Div(totalRest).Round(decimals)
			shares[i] = share
			allocated = allocated.Add(share)
		}

	case RepartitionSequential:
		order := make([]int, len(targets))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return targets[order[a]].Date.Before(targets[order[b]].Date)
		})

		remaining := amount
		for _, idx := range order {
			if !remaining.IsPositive() {
				break
			}
			share := decimal.Min(targets[idx].Rest, remaining)
			shares[idx] = share
			remaining = remaining.Sub(share)
		}

	default:
		return nil, errors.New("unknown repartition mode")
	}

	return shares, nil
}
