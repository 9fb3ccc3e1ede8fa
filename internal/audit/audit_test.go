package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grandlivre-dev/grandlivre/internal/events"
)

func TestMarshalUnmarshalEntry(t *testing.T) {
	e := Entry{
		Timestamp: time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC),
		Action:    "cancel",
		BillID:    7,
		NewBillID: 12,
		Details:   "credit note issued",
	}

	row := MarshalEntry(e)
	require.Equal(t, []string{"2026-02-10T09:30:00Z", "cancel", "7", "12", "credit note issued"}, row)

	back, err := UnmarshalEntry(row)
	require.NoError(t, err)
	assert.Equal(t, e, back)
}

func TestMarshalEntry_OmitsZeroNewBill(t *testing.T) {
	row := MarshalEntry(Entry{
		Timestamp: time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC),
		Action:    "valid",
		BillID:    3,
	})
	assert.Equal(t, "", row[colNewBillID])

	back, err := UnmarshalEntry(row)
	require.NoError(t, err)
	assert.Zero(t, back.NewBillID)
}

func TestUnmarshalEntry_Errors(t *testing.T) {
	_, err := UnmarshalEntry([]string{"too", "short"})
	assert.Error(t, err)

	_, err = UnmarshalEntry([]string{"not-a-time", "valid", "1", "", ""})
	assert.Error(t, err)

	_, err = UnmarshalEntry([]string{"2026-02-10T09:30:00Z", "valid", "x", "", ""})
	assert.Error(t, err)
}

func TestAppend_CreatesFileWithHeaderOnce(t *testing.T) {
	root := t.TempDir()

	e := Entry{Timestamp: time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC), Action: "valid", BillID: 1}
	require.NoError(t, Append(root, e))
	e.BillID = 2
	require.NoError(t, Append(root, e))

	raw, err := os.ReadFile(filepath.Join(root, "logs", "audit-log.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, Header, lines[0])

	entries, err := Read(strings.NewReader(string(raw)))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(1), entries[0].BillID)
	assert.Equal(t, int64(2), entries[1].BillID)
}

func TestRead_EmptyInput(t *testing.T) {
	entries, err := Read(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestListener_RecordsPublishedEvents(t *testing.T) {
	root := t.TempDir()

	bus := events.NewDispatcher()
	bus.Subscribe(Listener(root))
	bus.Publish(events.Event{Action: events.ActionValid, BillID: 5})
	bus.Publish(events.Event{Action: events.ActionConvert, BillID: 5, NewBillID: 6})

	f, err := os.Open(filepath.Join(root, "logs", "audit-log.csv"))
	require.NoError(t, err)
	defer f.Close()

	entries, err := Read(f)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "valid", entries[0].Action)
	assert.Equal(t, "convert", entries[1].Action)
	assert.Equal(t, int64(6), entries[1].NewBillID)
}
