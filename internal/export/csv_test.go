package export

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grandlivre-dev/grandlivre/internal/link"
	"github.com/grandlivre-dev/grandlivre/internal/model"
	"github.com/grandlivre-dev/grandlivre/internal/store"
)

type fixture struct {
	svc     *Service
	store   *store.Store
	links   *link.Service
	year    model.FiscalYear
	third   model.Third
	client  model.ChartsAccount
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

	client := model.ChartsAccount{YearID: year.ID, Code: "411000", Name: "clients", Type: model.AccountTypeLiability}
	require.NoError(t, st.CreateChartsAccount(ctx, &client))
	revenue := model.ChartsAccount{YearID: year.ID, Code: "706000", Name: "services", Type: model.AccountTypeRevenue}
	require.NoError(t, st.CreateChartsAccount(ctx, &revenue))

	third := model.Third{Contact: "Dupont SARL", Status: model.ThirdEnabled}
	require.NoError(t, st.CreateThird(ctx, &third))

	links := link.NewService(st)
	return &fixture{
		svc:     NewService(st, links),
		store:   st,
		links:   links,
		year:    year,
		third:   third,
		client:  client,
		revenue: revenue,
	}
}

func (f *fixture) newInvoiceEntry(t *testing.T, num int, designation string) model.EntryAccount {
	t.Helper()
	ctx := context.Background()
	entry := model.EntryAccount{
		YearID:      f.year.ID,
		JournalID:   model.JournalSales,
		DateValue:   time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		Designation: designation,
	}
	require.NoError(t, f.store.CreateEntry(ctx, &entry))

	lines := []model.EntryLine{
		{EntryID: entry.ID, AccountID: f.client.ID, ThirdID: f.third.ID, Amount: decimal.NewFromFloat(-62.5)},
		{EntryID: entry.ID, AccountID: f.revenue.ID, Amount: decimal.NewFromFloat(62.5), Reference: "inv"},
	}
	for i := range lines {
		require.NoError(t, f.store.CreateEntryLine(ctx, &lines[i]))
	}

	if num != 0 {
		closed := time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC)
		entry.Num = num
		entry.Closed = true
		entry.DateEntry = &closed
		require.NoError(t, f.store.UpdateEntry(ctx, &entry))
	}
	return entry
}

func TestRows_DerivesDebitCreditColumns(t *testing.T) {
	f := newFixture(t)
	f.newInvoiceEntry(t, 1, "invoice #1 - 2026-02-10")

	rows, err := f.svc.Rows(context.Background(), f.year.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	clientRow := rows[0]
	assert.Equal(t, 1, clientRow.Num)
	assert.Equal(t, "sales", clientRow.Journal)
	assert.Equal(t, "411000", clientRow.AccountCode)
	assert.Equal(t, "Dupont SARL", clientRow.Third)
	assert.Equal(t, "62.5", clientRow.Debit.String())
	assert.True(t, clientRow.Credit.IsZero())

	revenueRow := rows[1]
	assert.Equal(t, "706000", revenueRow.AccountCode)
	assert.Equal(t, "inv", revenueRow.Reference)
	assert.True(t, revenueRow.Debit.IsZero())
	assert.Equal(t, "62.5", revenueRow.Credit.String())
}

func TestRows_IncludesLetter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.newInvoiceEntry(t, 1, "invoice #1 - 2026-02-10")
	b := f.newInvoiceEntry(t, 2, "payoff for invoice #1")
	_, err := f.links.Create(ctx, []int64{a.ID, b.ID})
	require.NoError(t, err)

	rows, err := f.svc.Rows(ctx, f.year.ID)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	for _, r := range rows {
		assert.Equal(t, "A", r.Letter)
	}
}

func TestExport_WritesCSV(t *testing.T) {
	f := newFixture(t)
	f.newInvoiceEntry(t, 1, "invoice #1 - 2026-02-10")

	var buf bytes.Buffer
	require.NoError(t, f.svc.Export(context.Background(), f.year.ID, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, Header, lines[0])
	assert.Equal(t, "1,2026-02-11,2026-02-10,sales,invoice #1 - 2026-02-10,411000,clients,62.50,,,Dupont SARL,,", lines[1])
	assert.Equal(t, "1,2026-02-11,2026-02-10,sales,invoice #1 - 2026-02-10,706000,services,,62.50,inv,,,", lines[2])
}

func TestMarshalRow_OmitsZeroColumns(t *testing.T) {
	row := MarshalRow(Row{
		DateValue:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Journal:     "other",
		Designation: "draft",
		AccountCode: "531000",
		AccountName: "caisse",
	})
	assert.Equal(t, "", row[colNum], "unclosed entries have no number")
	assert.Equal(t, "", row[colDateEntry])
	assert.Equal(t, "", row[colDebit])
	assert.Equal(t, "", row[colCredit])
	assert.Equal(t, "2026-03-01", row[colDateValue])
}
