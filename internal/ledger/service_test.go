package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grandlivre-dev/grandlivre/internal/model"
	"github.com/grandlivre-dev/grandlivre/internal/serial"
	"github.com/grandlivre-dev/grandlivre/internal/store"
)

type fixture struct {
	svc     *Service
	store   *store.Store
	year    model.FiscalYear
	cash    model.ChartsAccount
	revenue model.ChartsAccount
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))

	year := model.FiscalYear{
		Begin:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
		Status:   model.FiscalYearRunning,
		IsActive: true,
	}
	require.NoError(t, st.CreateFiscalYear(ctx, &year))

	cash := model.ChartsAccount{YearID: year.ID, Code: "531000", Name: "caisse", Type: model.AccountTypeAsset}
	require.NoError(t, st.CreateChartsAccount(ctx, &cash))
	revenue := model.ChartsAccount{YearID: year.ID, Code: "706000", Name: "prestations", Type: model.AccountTypeRevenue}
	require.NoError(t, st.CreateChartsAccount(ctx, &revenue))

	return &fixture{svc: NewService(st, 2), store: st, year: year, cash: cash, revenue: revenue}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *fixture) newEntry(t *testing.T) model.EntryAccount {
	t.Helper()
	entry, err := f.svc.Create(context.Background(), f.year.ID, model.JournalOther, f.year.Begin, "test entry")
	require.NoError(t, err)
	return entry
}

func pendingSerial(accountA, accountB int64, amount string) string {
	return serial.Serialize([]serial.PendingLine{
		{ID: serial.NewTempID(), AccountID: accountA, Amount: dec(amount).Neg()},
		{ID: serial.NewTempID(), AccountID: accountB, Amount: dec(amount)},
	})
}

func TestCreate_RefusesClosedYear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.year.Status = model.FiscalYearClosed
	require.NoError(t, f.store.UpdateFiscalYear(ctx, &f.year))

	_, err := f.svc.Create(ctx, f.year.ID, model.JournalOther, f.year.Begin, "late entry")
	assert.Error(t, err)
}

func TestSaveLines_PersistsPendingSet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry := f.newEntry(t)

	text := pendingSerial(f.cash.ID, f.revenue.ID, "62.50")
	require.NoError(t, f.svc.SaveLines(ctx, entry.ID, text, 0))

	lines, err := f.svc.Lines(ctx, entry.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.True(t, dec("-62.50").Equal(lines[0].Amount))
	assert.True(t, dec("62.50").Equal(lines[1].Amount))
	assert.Positive(t, lines[0].ID, "temporary ids are replaced at save")

	got, err := f.svc.Get(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
}

func TestSaveLines_VersionConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry := f.newEntry(t)

	text := pendingSerial(f.cash.ID, f.revenue.ID, "10.00")
	require.NoError(t, f.svc.SaveLines(ctx, entry.ID, text, 0))

	// A save against the stale version must be refused.
	err := f.svc.SaveLines(ctx, entry.ID, text, 0)
	assert.ErrorIs(t, err, ErrStaleEntry)

	require.NoError(t, f.svc.SaveLines(ctx, entry.ID, text, 1))
}

func TestSaveLines_UnknownAccount(t *testing.T) {
	f := newFixture(t)
	entry := f.newEntry(t)

	text := pendingSerial(9999, f.revenue.ID, "10.00")
	assert.Error(t, f.svc.SaveLines(context.Background(), entry.ID, text, 0))
}

func TestSerialControl_Rests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry := f.newEntry(t)

	// Only a credit line: the missing counterpart is a debit.
	oneSided := serial.Serialize([]serial.PendingLine{
		{ID: serial.NewTempID(), AccountID: f.revenue.ID, Amount: dec("62.50")},
	})
	ctl, pending, err := f.svc.SerialControl(ctx, entry.ID, oneSided)
	require.NoError(t, err)
	assert.True(t, dec("62.50").Equal(ctl.DebitRest))
	assert.True(t, ctl.CreditRest.IsZero())
	assert.False(t, ctl.Balanced(len(pending) > 0))

	balanced := pendingSerial(f.cash.ID, f.revenue.ID, "62.50")
	ctl, pending, err = f.svc.SerialControl(ctx, entry.ID, balanced)
	require.NoError(t, err)
	assert.True(t, ctl.DebitRest.IsZero())
	assert.True(t, ctl.CreditRest.IsZero())
	assert.True(t, ctl.Balanced(len(pending) > 0))
}

func TestSerialControl_NoChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry := f.newEntry(t)

	text := pendingSerial(f.cash.ID, f.revenue.ID, "10.00")
	require.NoError(t, f.svc.SaveLines(ctx, entry.ID, text, 0))

	persisted, err := f.svc.Serialize(ctx, entry.ID)
	require.NoError(t, err)

	ctl, _, err := f.svc.SerialControl(ctx, entry.ID, persisted)
	require.NoError(t, err)
	assert.True(t, ctl.NoChange)

	// Dropping a line is a change.
	lines, err := f.svc.Lines(ctx, entry.ID)
	require.NoError(t, err)
	shorter, err := f.svc.RemoveLine(persisted, lines[0].ID)
	require.NoError(t, err)
	ctl, _, err = f.svc.SerialControl(ctx, entry.ID, shorter)
	require.NoError(t, err)
	assert.False(t, ctl.NoChange)
}

func TestClose_AssignsSequentialNumbers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		entry := f.newEntry(t)
		text := pendingSerial(f.cash.ID, f.revenue.ID, "10.00")
		require.NoError(t, f.svc.SaveLines(ctx, entry.ID, text, 0))
		require.NoError(t, f.svc.Close(ctx, entry.ID))

		got, err := f.svc.Get(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, i, got.Num)
		assert.True(t, got.Closed)
		require.NotNil(t, got.DateEntry)
	}
}

func TestClose_RefusesUnbalanced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry := f.newEntry(t)

	text := serial.Serialize([]serial.PendingLine{
		{ID: serial.NewTempID(), AccountID: f.cash.ID, Amount: dec("-62.50")},
		{ID: serial.NewTempID(), AccountID: f.revenue.ID, Amount: dec("60.00")},
	})
	require.NoError(t, f.svc.SaveLines(ctx, entry.ID, text, 0))

	assert.Error(t, f.svc.Close(ctx, entry.ID))
}

func TestClose_RefusesEmptyAndClosed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry := f.newEntry(t)

	assert.Error(t, f.svc.Close(ctx, entry.ID), "no lines")

	text := pendingSerial(f.cash.ID, f.revenue.ID, "10.00")
	require.NoError(t, f.svc.SaveLines(ctx, entry.ID, text, 0))
	require.NoError(t, f.svc.Close(ctx, entry.ID))

	assert.ErrorIs(t, f.svc.Close(ctx, entry.ID), ErrEntryClosed)
	assert.ErrorIs(t, f.svc.SaveLines(ctx, entry.ID, text, 1), ErrEntryClosed)
}

func TestSerialize_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry := f.newEntry(t)

	text := pendingSerial(f.cash.ID, f.revenue.ID, "62.50")
	require.NoError(t, f.svc.SaveLines(ctx, entry.ID, text, 0))

	out, err := f.svc.Serialize(ctx, entry.ID)
	require.NoError(t, err)
	assert.Contains(t, out, fmt.Sprintf("|%d|0|-62.500000|None|", f.cash.ID))
	assert.Contains(t, out, fmt.Sprintf("|%d|0|62.500000|None|", f.revenue.ID))
}

func TestDelete_RemovesEntryAndLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	entry := f.newEntry(t)

	text := pendingSerial(f.cash.ID, f.revenue.ID, "10.00")
	require.NoError(t, f.svc.SaveLines(ctx, entry.ID, text, 0))

	require.NoError(t, f.svc.Delete(ctx, entry.ID))

	_, err := f.svc.Get(ctx, entry.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
