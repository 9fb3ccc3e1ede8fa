// Package serial implements the pending-line wire format used while an entry
// is built interactively across several request/response turns. The format is
// stable and parsed by external tooling, so it is preserved byte for byte:
//
//	{id}|{account_id}|{third_id_or_0}|{amount with 6 decimals}|{reference or 'None'}|
//
// one record per line, joined with "\n", each record ending with a trailing
// pipe. Negative ids mark lines that are not persisted yet; positive ids are
// existing lines under edit.
package serial

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

// PendingLine is one record of the serial format.
type PendingLine struct {
	ID        int64 // negative for not-yet-persisted lines
	AccountID int64
	ThirdID   int64 // 0 = none
	Amount    decimal.Decimal
	Reference string // "" = none, serialized as "None"
}

// IsNew reports whether the line has no persisted counterpart yet.
func (l PendingLine) IsNew() bool {
	return l.ID < 0
}

// Equal is the structural equality used by the no-change check: id, account,
// amount, reference and third must all match.
func (l PendingLine) Equal(o PendingLine) bool {
	return l.ID == o.ID &&
		l.AccountID == o.AccountID &&
		l.ThirdID == o.ThirdID &&
		l.Amount.Equal(o.Amount) &&
		l.Reference == o.Reference
}

const nullReference = "None"

var tempSeq atomic.Int64

// NewTempID returns a fresh negative temporary id for an unsaved line,
// derived from the current timestamp so ids stay unique within a session.
func NewTempID() int64 {
	return -(time.Now().UnixNano() + tempSeq.Add(1))
}

// Marshal renders one pending line as a serial record (without newline).
func Marshal(l PendingLine) string {
	ref := l.Reference
	if ref == "" {
		ref = nullReference
	}
	return fmt.Sprintf("%d|%d|%d|%s|%s|", l.ID, l.AccountID, l.ThirdID, l.Amount.StringFixed(6), ref)
}

// Serialize renders pending lines as the newline-joined wire format.
func Serialize(lines []PendingLine) string {
	records := make([]string, len(lines))
	for i, l := range lines {
		records[i] = Marshal(l)
	}
	return strings.Join(records, "\n")
}

// Unmarshal parses one serial record.
func Unmarshal(record string) (PendingLine, error) {
	fields := strings.Split(record, "|")
	if len(fields) < 5 {
		return PendingLine{}, fmt.Errorf("serial record %q: expected 5 fields, got %d", record, len(fields))
	}

	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return PendingLine{}, fmt.Errorf("serial record %q: parsing id: %w", record, err)
	}
	accountID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return PendingLine{}, fmt.Errorf("serial record %q: parsing account id: %w", record, err)
	}
	thirdID, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return PendingLine{}, fmt.Errorf("serial record %q: parsing third id: %w", record, err)
	}
	amount, err := decimal.NewFromString(fields[3])
	if err != nil {
		return PendingLine{}, fmt.Errorf("serial record %q: parsing amount: %w", record, err)
	}

	ref := fields[4]
	if ref == nullReference {
		ref = ""
	}

	return PendingLine{
		ID:        id,
		AccountID: accountID,
		ThirdID:   thirdID,
		Amount:    amount,
		Reference: ref,
	}, nil
}

// Parse splits a serial string into its ordered pending lines, ignoring
// empty segments.
func Parse(text string) ([]PendingLine, error) {
	var lines []PendingLine
	for _, record := range strings.Split(text, "\n") {
		if strings.TrimSpace(record) == "" {
			continue
		}
		l, err := Unmarshal(record)
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, nil
}

// Remove drops the line with the given id and re-serializes the rest.
func Remove(text string, lineID int64) (string, error) {
	lines, err := Parse(text)
	if err != nil {
		return "", err
	}
	kept := lines[:0]
	for _, l := range lines {
		if l.ID != lineID {
			kept = append(kept, l)
		}
	}
	return Serialize(kept), nil
}
