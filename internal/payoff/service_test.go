package payoff

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grandlivre-dev/grandlivre/internal/billing"
	"github.com/grandlivre-dev/grandlivre/internal/chart"
	"github.com/grandlivre-dev/grandlivre/internal/config"
	"github.com/grandlivre-dev/grandlivre/internal/events"
	"github.com/grandlivre-dev/grandlivre/internal/model"
	"github.com/grandlivre-dev/grandlivre/internal/store"
	"github.com/grandlivre-dev/grandlivre/internal/sysacc"
)

type fixture struct {
	svc     *Service
	billing *billing.Service
	store   *store.Store
	year    model.FiscalYear
	third   model.Third
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))

	cfg := config.Default()

	year := model.FiscalYear{
		Begin:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		Status:   model.FiscalYearRunning,
		IsActive: true,
	}
	require.NoError(t, st.CreateFiscalYear(ctx, &year))

	sys := sysacc.NewFrenchPCG()
	charts := chart.NewService(st, sys)
	for _, code := range []string{"411000", "706000", "531000", "627000"} {
		_, err := charts.AddAccount(ctx, year.ID, code, "")
		require.NoError(t, err)
	}

	third := model.Third{Contact: "Durand & fils", Status: model.ThirdEnabled}
	require.NoError(t, st.CreateThird(ctx, &third))
	at := model.AccountThird{ThirdID: third.ID, Code: "411000"}
	require.NoError(t, st.CreateAccountThird(ctx, &at))

	bl := billing.NewService(st, charts, sys, cfg, events.NewDispatcher())
	return &fixture{
		svc:     NewService(st, bl, charts, cfg),
		billing: bl,
		store:   st,
		year:    year,
		third:   third,
	}
}

// validInvoice creates and validates an invoice of the given amount.
func (f *fixture) validInvoice(t *testing.T, amount string, day int) model.Bill {
	t.Helper()
	ctx := context.Background()
	bill, err := f.billing.Create(ctx, billing.CreateParams{
		YearID:  f.year.ID,
		Type:    model.BillInvoice,
		Date:    time.Date(2026, 2, day, 0, 0, 0, 0, time.UTC),
		ThirdID: f.third.ID,
	})
	require.NoError(t, err)
	_, err = f.billing.AddDetail(ctx, bill.ID, billing.DetailParams{
		Designation: "services",
		Price:       dec(amount),
		Quantity:    dec("1"),
		SellAccount: "706000",
	})
	require.NoError(t, err)
	require.NoError(t, f.billing.Valid(ctx, bill.ID))
	got, err := f.billing.Get(ctx, bill.ID)
	require.NoError(t, err)
	return got
}

func (f *fixture) lineByCode(t *testing.T, entryID int64, code string) model.EntryLine {
	t.Helper()
	ctx := context.Background()
	lines, err := f.store.EntryLines(ctx, entryID)
	require.NoError(t, err)
	for _, l := range lines {
		account, err := f.store.GetChartsAccount(ctx, l.AccountID)
		require.NoError(t, err)
		if account.Code == code {
			return l
		}
	}
	t.Fatalf("no line on account %s", code)
	return model.EntryLine{}
}

func (f *fixture) entrySum(t *testing.T, entryID int64) decimal.Decimal {
	t.Helper()
	lines, err := f.store.EntryLines(context.Background(), entryID)
	require.NoError(t, err)
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Amount)
	}
	return sum
}

func TestSave_GeneratesPaymentEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bill := f.validInvoice(t, "62.50", 10)

	p, err := f.svc.Save(ctx, SaveParams{
		BillID:  bill.ID,
		Date:    bill.Date,
		Amount:  dec("60.00"),
		Payer:   "Durand",
		BankFee: dec("2.00"),
	})
	require.NoError(t, err)
	require.NotZero(t, p.EntryID)

	entry, err := f.store.GetEntry(ctx, p.EntryID)
	require.NoError(t, err)
	assert.Equal(t, model.JournalPayment, entry.JournalID)
	assert.Equal(t, "payoff for invoice #1", entry.Designation)

	third := f.lineByCode(t, p.EntryID, "411000")
	assert.True(t, dec("60.00").Equal(third.Amount))
	assert.Equal(t, f.third.ID, third.ThirdID)

	fee := f.lineByCode(t, p.EntryID, "627000")
	assert.True(t, dec("-2.00").Equal(fee.Amount))

	bank := f.lineByCode(t, p.EntryID, "531000")
	assert.True(t, dec("-58.00").Equal(bank.Amount))

	assert.True(t, f.entrySum(t, p.EntryID).IsZero())
}

func TestSave_RefusesNonValidBill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bill, err := f.billing.Create(ctx, billing.CreateParams{
		YearID:  f.year.ID,
		Type:    model.BillInvoice,
		Date:    time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		ThirdID: f.third.ID,
	})
	require.NoError(t, err)

	_, err = f.svc.Save(ctx, SaveParams{BillID: bill.ID, Date: bill.Date, Amount: dec("10")})
	assert.Error(t, err)
}

// A full payment settles the document: the bill entry and the payment entry
// end up lettered together.
func TestSave_FullPaymentAutoLinks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bill := f.validInvoice(t, "62.50", 10)

	p, err := f.svc.Save(ctx, SaveParams{BillID: bill.ID, Date: bill.Date, Amount: dec("62.50")})
	require.NoError(t, err)

	billEntry, err := f.store.GetEntry(ctx, bill.EntryID)
	require.NoError(t, err)
	payEntry, err := f.store.GetEntry(ctx, p.EntryID)
	require.NoError(t, err)

	require.NotZero(t, billEntry.LinkID)
	assert.Equal(t, billEntry.LinkID, payEntry.LinkID)
}

func TestSave_PartialPaymentDoesNotLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bill := f.validInvoice(t, "62.50", 10)

	_, err := f.svc.Save(ctx, SaveParams{BillID: bill.ID, Date: bill.Date, Amount: dec("30.00")})
	require.NoError(t, err)

	billEntry, err := f.store.GetEntry(ctx, bill.EntryID)
	require.NoError(t, err)
	assert.Zero(t, billEntry.LinkID)
}

// Re-running the reconciliation of a settled document must not move or
// recreate links.
func TestGenerateAccountLink_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bill := f.validInvoice(t, "62.50", 10)

	_, err := f.svc.Save(ctx, SaveParams{BillID: bill.ID, Date: bill.Date, Amount: dec("62.50")})
	require.NoError(t, err)

	before, err := f.store.GetEntry(ctx, bill.EntryID)
	require.NoError(t, err)
	require.NotZero(t, before.LinkID)

	require.NoError(t, f.svc.GenerateAccountLink(ctx, bill.ID))

	after, err := f.store.GetEntry(ctx, bill.EntryID)
	require.NoError(t, err)
	assert.Equal(t, before.LinkID, after.LinkID)
}

func TestMultiSave_Proportional(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.validInvoice(t, "75.00", 10)
	second := f.validInvoice(t, "25.00", 12)

	created, err := f.svc.MultiSave(ctx, MultiSaveParams{
		BillIDs:     []int64{first.ID, second.ID},
		Date:        time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Amount:      dec("50.00"),
		Payer:       "Durand",
		Repartition: RepartitionProportional,
	})
	require.NoError(t, err)
	require.Len(t, created, 2)

	assert.True(t, dec("37.50").Equal(created[0].Amount))
	assert.True(t, dec("12.50").Equal(created[1].Amount))

	// One shared payment entry, with the third line aggregated.
	require.NotZero(t, created[0].EntryID)
	assert.Equal(t, created[0].EntryID, created[1].EntryID)
	third := f.lineByCode(t, created[0].EntryID, "411000")
	assert.True(t, dec("50.00").Equal(third.Amount))
	assert.True(t, f.entrySum(t, created[0].EntryID).IsZero())

	entry, err := f.store.GetEntry(ctx, created[0].EntryID)
	require.NoError(t, err)
	assert.Equal(t, "payoff for invoice #1, invoice #2", entry.Designation)
}

// Sequentially settling two documents in full reconciles both through the
// shared payment entry.
func TestMultiSave_SequentialSettlesByDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.validInvoice(t, "30.00", 10)
	second := f.validInvoice(t, "20.00", 12)

	created, err := f.svc.MultiSave(ctx, MultiSaveParams{
		BillIDs:     []int64{second.ID, first.ID},
		Date:        time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Amount:      dec("40.00"),
		Repartition: RepartitionSequential,
	})
	require.NoError(t, err)
	require.Len(t, created, 2)

	// Oldest document first regardless of input order.
	byBill := map[int64]decimal.Decimal{}
	for _, p := range created {
		byBill[p.BillID] = p.Amount
	}
	assert.True(t, dec("30.00").Equal(byBill[first.ID]))
	assert.True(t, dec("10.00").Equal(byBill[second.ID]))

	// The fully paid document is reconciled, the partially paid one is not.
	firstEntry, err := f.store.GetEntry(ctx, first.EntryID)
	require.NoError(t, err)
	assert.NotZero(t, firstEntry.LinkID)
	secondEntry, err := f.store.GetEntry(ctx, second.EntryID)
	require.NoError(t, err)
	assert.Zero(t, secondEntry.LinkID)
}

func TestMultiSave_SkipsZeroShares(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.validInvoice(t, "30.00", 10)
	second := f.validInvoice(t, "20.00", 12)

	created, err := f.svc.MultiSave(ctx, MultiSaveParams{
		BillIDs:     []int64{first.ID, second.ID},
		Date:        time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Amount:      dec("30.00"),
		Repartition: RepartitionSequential,
	})
	require.NoError(t, err)
	require.Len(t, created, 1, "the newer document gets nothing")
	assert.Equal(t, first.ID, created[0].BillID)
}

func TestDelete_RegeneratesSiblingEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.validInvoice(t, "30.00", 10)
	second := f.validInvoice(t, "20.00", 12)

	created, err := f.svc.MultiSave(ctx, MultiSaveParams{
		BillIDs:     []int64{first.ID, second.ID},
		Date:        time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Amount:      dec("40.00"),
		Repartition: RepartitionProportional,
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	oldEntryID := created[0].EntryID

	require.NoError(t, f.svc.Delete(ctx, created[0].ID))

	// The shared entry is rebuilt, not patched.
	_, err = f.store.GetEntry(ctx, oldEntryID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	sibling, err := f.store.GetPayoff(ctx, created[1].ID)
	require.NoError(t, err)
	require.NotZero(t, sibling.EntryID)
	assert.NotEqual(t, oldEntryID, sibling.EntryID)

	third := f.lineByCode(t, sibling.EntryID, "411000")
	assert.True(t, sibling.Amount.Equal(third.Amount))
	assert.True(t, f.entrySum(t, sibling.EntryID).IsZero())

	_, err = f.store.GetPayoff(ctx, created[0].ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDelete_SinglePayoffRemovesEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bill := f.validInvoice(t, "62.50", 10)

	p, err := f.svc.Save(ctx, SaveParams{BillID: bill.ID, Date: bill.Date, Amount: dec("62.50")})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, p.ID))

	_, err = f.store.GetEntry(ctx, p.EntryID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// The bill entry keeps no dangling link.
	billEntry, err := f.store.GetEntry(ctx, bill.EntryID)
	require.NoError(t, err)
	assert.Zero(t, billEntry.LinkID)
}
