package payoff

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sum(shares []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, s := range shares {
		total = total.Add(s)
	}
	return total
}

func TestAllocate_Proportional_SumsExactly(t *testing.T) {
	targets := []Target{
		{BillID: 1, Date: date(2026, 1, 10), Rest: dec("10.00")},
		{BillID: 2, Date: date(2026, 1, 11), Rest: dec("10.00")},
		{BillID: 3, Date: date(2026, 1, 12), Rest: dec("10.00")},
	}

	// 10/3 rounds to 3.33 per share; the last target absorbs the remainder.
	shares, err := Allocate(targets, dec("10.00"), RepartitionProportional, 2)
	require.NoError(t, err)
	assert.True(t, dec("3.33").Equal(shares[0]))
	assert.True(t, dec("3.33").Equal(shares[1]))
	assert.True(t, dec("3.34").Equal(shares[2]))
	assert.True(t, dec("10.00").Equal(sum(shares)))
}

func TestAllocate_Proportional_WeightedByRest(t *testing.T) {
	targets := []Target{
		{BillID: 1, Date: date(2026, 1, 10), Rest: dec("75.00")},
		{BillID: 2, Date: date(2026, 1, 11), Rest: dec("25.00")},
	}

	shares, err := Allocate(targets, dec("50.00"), RepartitionProportional, 2)
	require.NoError(t, err)
	assert.True(t, dec("37.50").Equal(shares[0]))
	assert.True(t, dec("12.50").Equal(shares[1]))
}

func TestAllocate_Sequential_AscendingDate(t *testing.T) {
	// Input order differs from date order: the oldest document fills first.
	targets := []Target{
		{BillID: 1, Date: date(2026, 3, 1), Rest: dec("40.00")},
		{BillID: 2, Date: date(2026, 1, 1), Rest: dec("30.00")},
		{BillID: 3, Date: date(2026, 2, 1), Rest: dec("20.00")},
	}

	shares, err := Allocate(targets, dec("45.00"), RepartitionSequential, 2)
	require.NoError(t, err)
	assert.True(t, shares[1].Equal(dec("30.00")), "oldest paid in full")
	assert.True(t, shares[2].Equal(dec("15.00")), "next by date gets the remainder")
	assert.True(t, shares[0].IsZero())
	assert.True(t, dec("45.00").Equal(sum(shares)))
}

func TestAllocate_Sequential_ExcessUnallocated(t *testing.T) {
	targets := []Target{
		{BillID: 1, Date: date(2026, 1, 1), Rest: dec("30.00")},
		{BillID: 2, Date: date(2026, 2, 1), Rest: dec("20.00")},
	}

	// Paying more than owed never over-fills a document.
	shares, err := Allocate(targets, dec("80.00"), RepartitionSequential, 2)
	require.NoError(t, err)
	assert.True(t, dec("30.00").Equal(shares[0]))
	assert.True(t, dec("20.00").Equal(shares[1]))
	assert.True(t, dec("50.00").Equal(sum(shares)))
}

func TestAllocate_Errors(t *testing.T) {
	targets := []Target{{BillID: 1, Date: date(2026, 1, 1), Rest: dec("10.00")}}

	_, err := Allocate(nil, dec("10"), RepartitionProportional, 2)
	assert.Error(t, err)

	_, err = Allocate(targets, dec("0"), RepartitionProportional, 2)
	assert.Error(t, err)

	_, err = Allocate(targets, dec("-5"), RepartitionProportional, 2)
	assert.Error(t, err)

	_, err = Allocate([]Target{{BillID: 1, Rest: dec("0")}}, dec("5"), RepartitionProportional, 2)
	assert.Error(t, err)

	_, err = Allocate(targets, dec("5"), 7, 2)
	assert.Error(t, err)
}
