// Package audit persists a CSV trail of the domain events fired on bill
// transitions.
package audit

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/grandlivre-dev/grandlivre/internal/events"
)

// Entry is one row in the audit log.
type Entry struct {
	Timestamp time.Time
	Action    string
	BillID    int64
	NewBillID int64
	Details   string
}

// Header is the CSV header for audit-log.csv.
const Header = "timestamp,action,bill_id,new_bill_id,details"

const (
	numFields    = 5
	logFile      = "logs/audit-log.csv"
	colTimestamp = 0
	colAction    = 1
	colBillID    = 2
	colNewBillID = 3
	colDetails   = 4
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colAction] = e.Action
	row[colBillID] = strconv.FormatInt(e.BillID, 10)
	if e.NewBillID != 0 {
		row[colNewBillID] = strconv.FormatInt(e.NewBillID, 10)
	}
	row[colDetails] = e.Details
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	billID, err := strconv.ParseInt(record[colBillID], 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing bill id %q: %w", record[colBillID], err)
	}
	var newBillID int64
	if record[colNewBillID] != "" {
		newBillID, err = strconv.ParseInt(record[colNewBillID], 10, 64)
		if err != nil {
			return Entry{}, fmt.Errorf("parsing new bill id %q: %w", record[colNewBillID], err)
		}
	}

	return Entry{
		Timestamp: ts,
		Action:    record[colAction],
		BillID:    billID,
		NewBillID: newBillID,
		Details:   record[colDetails],
	}, nil
}

// Append writes one entry to the audit log under root, creating the file and
// header as needed.
func Append(root string, e Entry) error {
	path := filepath.Join(root, logFile)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating log dir: %w", err)
	}

	isNew := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		isNew = true
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	if isNew {
		if _, err := fmt.Fprintln(f, Header); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	cw := csv.NewWriter(f)
	if err := cw.Write(MarshalEntry(e)); err != nil {
		return fmt.Errorf("writing audit row: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

// Read loads every entry from an audit log reader.
func Read(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading audit CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records {
		if i == 0 && strings.Join(rec, ",") == Header {
			continue
		}
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Listener returns an event listener appending every published event to the
// audit log under root.
func Listener(root string) events.Listener {
	return func(ev events.Event) {
		_ = Append(root, Entry{
			Timestamp: time.Now(),
			Action:    string(ev.Action),
			BillID:    ev.BillID,
			NewBillID: ev.NewBillID,
		})
	}
}
