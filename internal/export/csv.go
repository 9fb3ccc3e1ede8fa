// Package export flattens a fiscal year's ledger into ledger.csv rows, with
// debit and credit derived from the signed line amounts.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/grandlivre-dev/grandlivre/internal/link"
	"github.com/grandlivre-dev/grandlivre/internal/model"
	"github.com/grandlivre-dev/grandlivre/internal/store"
)

// Header is the CSV header for ledger.csv.
const Header = "num,date_entry,date_value,journal,designation,account_code,account_name,debit,credit,reference,third,letter,cost_accounting"

const (
	numFields     = 13
	dateFormat    = "2006-01-02"
	colNum        = 0
	colDateEntry  = 1
	colDateValue  = 2
	colJournal    = 3
	colDesc       = 4
	colAcctCode   = 5
	colAcctName   = 6
	colDebit      = 7
	colCredit     = 8
	colRef        = 9
	colThird      = 10
	colLetter     = 11
	colCostAccntg = 12
)

// Row is one exported ledger line.
type Row struct {
	Num            int
	DateEntry      *time.Time
	DateValue      time.Time
	Journal        string
	Designation    string
	AccountCode    string
	AccountName    string
	Debit          decimal.Decimal
	Credit         decimal.Decimal
	Reference      string
	Third          string
	Letter         string
	CostAccounting string
}

// MarshalRow converts a Row to a CSV row ([]string).
func MarshalRow(r Row) []string {
	row := make([]string, numFields)
	if r.Num != 0 {
		row[colNum] = strconv.Itoa(r.Num)
	}
	if r.DateEntry != nil {
		row[colDateEntry] = r.DateEntry.Format(dateFormat)
	}
	row[colDateValue] = r.DateValue.Format(dateFormat)
	row[colJournal] = r.Journal
	row[colDesc] = r.Designation
	row[colAcctCode] = r.AccountCode
	row[colAcctName] = r.AccountName

	if !r.Debit.IsZero() {
		row[colDebit] = r.Debit.StringFixed(2)
	}
	if !r.Credit.IsZero() {
		row[colCredit] = r.Credit.StringFixed(2)
	}

	row[colRef] = r.Reference
	row[colThird] = r.Third
	row[colLetter] = r.Letter
	row[colCostAccntg] = r.CostAccounting
	return row
}

// WriteRows writes rows to a ledger.csv writer (including header).
func WriteRows(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, r := range rows {
		if err := cw.Write(MarshalRow(r)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// Service builds export rows from the ledger.
type Service struct {
	store *store.Store
	links *link.Service
}

// NewService creates an export Service.
func NewService(st *store.Store, links *link.Service) *Service {
	return &Service{store: st, links: links}
}

// Rows flattens every entry of a fiscal year, lines in entry order.
func (s *Service) Rows(ctx context.Context, yearID int64) ([]Row, error) {
	entries, err := s.store.EntriesOfYear(ctx, yearID)
	if err != nil {
		return nil, err
	}

	accounts := make(map[int64]model.ChartsAccount)
	thirds := make(map[int64]string)
	costs := make(map[int64]string)
	letters := make(map[int64]string)

	var rows []Row
	for _, e := range entries {
		letter := ""
		if e.LinkID != 0 {
			letter, err = s.letterOf(ctx, e, letters)
			if err != nil {
				return nil, err
			}
		}

		lines, err := s.store.EntryLines(ctx, e.ID)
		if err != nil {
			return nil, err
		}
		for _, l := range lines {
			account, ok := accounts[l.AccountID]
			if !ok {
				if account, err = s.store.GetChartsAccount(ctx, l.AccountID); err != nil {
					return nil, err
				}
				accounts[l.AccountID] = account
			}

			third := ""
			if l.ThirdID != 0 {
				if third, ok = thirds[l.ThirdID]; !ok {
					t, err := s.store.GetThird(ctx, l.ThirdID)
					if err != nil {
						return nil, err
					}
					third = t.Contact
					thirds[l.ThirdID] = third
				}
			}

			cost := ""
			if l.CostAccountingID != 0 {
				if cost, ok = costs[l.CostAccountingID]; !ok {
					c, err := s.store.GetCostAccounting(ctx, l.CostAccountingID)
					if err != nil {
						return nil, err
					}
					cost = c.Name
					costs[l.CostAccountingID] = cost
				}
			}

			rows = append(rows, Row{
				Num:            e.Num,
				DateEntry:      e.DateEntry,
				DateValue:      e.DateValue,
				Journal:        model.JournalName(e.JournalID),
				Designation:    e.Designation,
				AccountCode:    account.Code,
				AccountName:    account.Name,
				Debit:          l.Debit(account.Type),
				Credit:         l.Credit(account.Type),
				Reference:      l.Reference,
				Third:          third,
				Letter:         letter,
				CostAccounting: cost,
			})
		}
	}
	return rows, nil
}

// Export writes a fiscal year's ledger to w.
func (s *Service) Export(ctx context.Context, yearID int64, w io.Writer) error {
	rows, err := s.Rows(ctx, yearID)
	if err != nil {
		return err
	}
	return WriteRows(w, rows)
}

func (s *Service) letterOf(ctx context.Context, e model.EntryAccount, cache map[int64]string) (string, error) {
	if letter, ok := cache[e.LinkID]; ok {
		return letter, nil
	}
	letter, err := s.links.Letter(ctx, model.AccountLink{ID: e.LinkID, YearID: e.YearID})
	if err != nil {
		return "", err
	}
	cache[e.LinkID] = letter
	return letter, nil
}
