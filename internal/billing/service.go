// Package billing implements the invoicing documents (quotations, invoices,
// credit notes, receipts): their lifecycle, validation preconditions and the
// generation of balanced ledger entries with VAT splitting, reduction
// accounts and per-line cost-accounting allocation.
package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/grandlivre-dev/grandlivre/internal/chart"
	"github.com/grandlivre-dev/grandlivre/internal/config"
	"github.com/grandlivre-dev/grandlivre/internal/events"
	"github.com/grandlivre-dev/grandlivre/internal/model"
	"github.com/grandlivre-dev/grandlivre/internal/store"
	"github.com/grandlivre-dev/grandlivre/internal/sysacc"
)

// ConsistencyError reports that a generator produced an unbalanced entry.
// This is an internal bug, not a user mistake: the whole operation aborts and
// nothing is persisted.
type ConsistencyError struct {
	BillID int64
	Detail string
}

func (e ConsistencyError) Error() string {
	return fmt.Sprintf("internal consistency failure on bill %d: %s", e.BillID, e.Detail)
}

// Service provides bill operations.
type Service struct {
	store *store.Store
	chart *chart.Service
	sys   sysacc.System
	cfg   *config.Config
	bus   *events.Dispatcher
}

// NewService creates a billing Service.
func NewService(st *store.Store, ch *chart.Service, sys sysacc.System, cfg *config.Config, bus *events.Dispatcher) *Service {
	return &Service{store: st, chart: ch, sys: sys, cfg: cfg, bus: bus}
}

func (s *Service) decimals() int32 {
	return s.cfg.Currency.Decimals
}

// CreateParams holds the fields of a new building bill.
type CreateParams struct {
	YearID           int64
	Type             model.BillType
	Date             time.Time
	Comment          string
	ThirdID          int64
	CostAccountingID int64
}

// Create opens a new bill in building state.
func (s *Service) Create(ctx context.Context, p CreateParams) (model.Bill, error) {
	bill := model.Bill{
		YearID:           p.YearID,
		Type:             p.Type,
		Date:             p.Date,
		Comment:          p.Comment,
		Status:           model.BillBuilding,
		ThirdID:          p.ThirdID,
		CostAccountingID: p.CostAccountingID,
	}
	if err := s.store.CreateBill(ctx, &bill); err != nil {
		return model.Bill{}, err
	}
	return bill, nil
}

// Get fetches one bill.
func (s *Service) Get(ctx context.Context, id int64) (model.Bill, error) {
	return s.store.GetBill(ctx, id)
}

// Details returns a bill's lines.
func (s *Service) Details(ctx context.Context, billID int64) ([]model.Detail, error) {
	return s.store.DetailsOf(ctx, billID)
}

// DetailParams holds the fields of a new bill line. VatRate is the plain
// positive rate (0.05 = 5%); the configured VAT mode decides the stored sign.
type DetailParams struct {
	ArticleID     int64
	Designation   string
	Price         decimal.Decimal
	Unit          string
	Quantity      decimal.Decimal
	Reduce        decimal.Decimal
	VatRate       decimal.Decimal
	SellAccount   string
	StorageAreaID int64
}

// AddDetail appends a line to a building bill, encoding the VAT entry
// convention into the stored rate sign.
func (s *Service) AddDetail(ctx context.Context, billID int64, p DetailParams) (model.Detail, error) {
	bill, err := s.store.GetBill(ctx, billID)
	if err != nil {
		return model.Detail{}, err
	}
	if bill.Status != model.BillBuilding {
		return model.Detail{}, fmt.Errorf("bill %d is %s, details can only be added while building", billID, bill.Status)
	}

	rate := decimal.Zero
	switch s.cfg.Invoice.VatMode {
	case config.VatModeExclTax:
		rate = p.VatRate.Abs().Neg()
	case config.VatModeInclTax:
		rate = p.VatRate.Abs()
	}

	sellAccount := p.SellAccount
	if sellAccount == "" {
		sellAccount = s.cfg.Invoice.DefaultSellAccount
	}

	detail := model.Detail{
		BillID:        billID,
		ArticleID:     p.ArticleID,
		Designation:   p.Designation,
		Price:         p.Price,
		Unit:          p.Unit,
		Quantity:      p.Quantity,
		Reduce:        p.Reduce,
		VatRate:       rate,
		SellAccount:   sellAccount,
		StorageAreaID: p.StorageAreaID,
	}
	if err := s.store.CreateDetail(ctx, &detail); err != nil {
		return model.Detail{}, err
	}
	return detail, nil
}

// InfoState lists everything still blocking validation. An empty slice means
// the bill can be validated.
func (s *Service) InfoState(ctx context.Context, bill model.Bill) ([]string, error) {
	var info []string

	if bill.ThirdID == 0 {
		info = append(info, "no third selected")
	} else {
		mask, err := s.chart.ThirdMask(s.cfg.Accounting.CustomerMask)
		if err != nil {
			return nil, err
		}
		if _, err := s.chart.ResolveThirdAccount(ctx, bill.YearID, bill.ThirdID, mask); err != nil {
			info = append(info, err.Error())
		}
	}

	details, err := s.store.DetailsOf(ctx, bill.ID)
	if err != nil {
		return nil, err
	}
	if len(details) == 0 {
		info = append(info, "no detail line")
	}
	for _, d := range details {
		if _, err := s.chart.ByCode(ctx, bill.YearID, d.SellAccount); errors.Is(err, store.ErrNotFound) {
			info = append(info, fmt.Sprintf("account %s unknown in current chart", d.SellAccount))
		} else if err != nil {
			return nil, err
		}
	}

	if bill.Type != model.BillQuotation {
		year, err := s.store.GetFiscalYear(ctx, bill.YearID)
		if err != nil {
			return nil, err
		}
		if !year.Contains(bill.Date) {
			info = append(info, "bill date outside fiscal year")
		}
	}

	return info, nil
}

// Valid moves a building bill to valid state: the info state must be empty,
// the number is assigned per (year, type) ignoring building bills, and every
// type but quotation gets its ledger entry generated in the same transaction.
func (s *Service) Valid(ctx context.Context, billID int64) error {
	bill, err := s.store.GetBill(ctx, billID)
	if err != nil {
		return err
	}
	if bill.Status != model.BillBuilding {
		return fmt.Errorf("bill %d is %s, only a building bill can be validated", billID, bill.Status)
	}

	info, err := s.InfoState(ctx, bill)
	if err != nil {
		return err
	}
	if len(info) > 0 {
		return fmt.Errorf("bill %d cannot be validated: %v", billID, info)
	}

	err = s.store.WithTx(ctx, func(q *store.Queries) error {
		maxNum, err := q.MaxBillNum(ctx, bill.YearID, bill.Type)
		if err != nil {
			return err
		}
		bill.Num = maxNum + 1
		bill.Status = model.BillValid

		if bill.Type != model.BillQuotation {
			if err := s.generateEntry(ctx, q, &bill); err != nil {
				return err
			}
		}
		return q.UpdateBill(ctx, &bill)
	})
	if err != nil {
		return err
	}

	s.bus.Publish(events.Event{Action: events.ActionValid, BillID: bill.ID})
	return nil
}

// Archive moves a valid bill to archive state.
func (s *Service) Archive(ctx context.Context, billID int64) error {
	bill, err := s.store.GetBill(ctx, billID)
	if err != nil {
		return err
	}
	if bill.Status != model.BillValid {
		return fmt.Errorf("bill %d is %s, only a valid bill can be archived", billID, bill.Status)
	}
	bill.Status = model.BillArchive
	if err := s.store.UpdateBill(ctx, &bill); err != nil {
		return err
	}
	s.bus.Publish(events.Event{Action: events.ActionArchive, BillID: bill.ID})
	return nil
}

// Cancel voids a valid invoice or receipt and spawns the compensating credit
// note, in building state with the details cloned.
func (s *Service) Cancel(ctx context.Context, billID int64) (int64, error) {
	bill, err := s.store.GetBill(ctx, billID)
	if err != nil {
		return 0, err
	}
	if bill.Status != model.BillValid {
		return 0, fmt.Errorf("bill %d is %s, only a valid bill can be canceled", billID, bill.Status)
	}
	if bill.Type != model.BillInvoice && bill.Type != model.BillReceipt {
		return 0, fmt.Errorf("a %s cannot be canceled", bill.Type)
	}

	var asset model.Bill
	err = s.store.WithTx(ctx, func(q *store.Queries) error {
		asset = model.Bill{
			YearID:           bill.YearID,
			Type:             model.BillAsset,
			Date:             bill.Date,
			Comment:          bill.Comment,
			Status:           model.BillBuilding,
			ThirdID:          bill.ThirdID,
			CostAccountingID: bill.CostAccountingID,
			ParentID:         bill.ID,
		}
		if err := q.CreateBill(ctx, &asset); err != nil {
			return err
		}
		if err := s.cloneDetails(ctx, q, bill.ID, asset.ID); err != nil {
			return err
		}
		bill.Status = model.BillCancel
		return q.UpdateBill(ctx, &bill)
	})
	if err != nil {
		return 0, err
	}

	s.bus.Publish(events.Event{Action: events.ActionCancel, BillID: bill.ID, NewBillID: asset.ID})
	return asset.ID, nil
}

// ConvertToBill turns a valid quotation into a building invoice and archives
// the quotation.
func (s *Service) ConvertToBill(ctx context.Context, billID int64) (int64, error) {
	bill, err := s.store.GetBill(ctx, billID)
	if err != nil {
		return 0, err
	}
	if bill.Type != model.BillQuotation {
		return 0, fmt.Errorf("bill %d is a %s, only a quotation can be converted", billID, bill.Type)
	}
	if bill.Status != model.BillValid {
		return 0, fmt.Errorf("bill %d is %s, only a valid quotation can be converted", billID, bill.Status)
	}

	var invoice model.Bill
	err = s.store.WithTx(ctx, func(q *store.Queries) error {
		invoice = model.Bill{
			YearID:           bill.YearID,
			Type:             model.BillInvoice,
			Date:             bill.Date,
			Comment:          bill.Comment,
			Status:           model.BillBuilding,
			ThirdID:          bill.ThirdID,
			CostAccountingID: bill.CostAccountingID,
			ParentID:         bill.ID,
		}
		if err := q.CreateBill(ctx, &invoice); err != nil {
			return err
		}
		if err := s.cloneDetails(ctx, q, bill.ID, invoice.ID); err != nil {
			return err
		}
		bill.Status = model.BillArchive
		return q.UpdateBill(ctx, &bill)
	})
	if err != nil {
		return 0, err
	}

	s.bus.Publish(events.Event{Action: events.ActionConvert, BillID: bill.ID, NewBillID: invoice.ID})
	return invoice.ID, nil
}

// Name is the audit-trail reference of a bill, embedded verbatim in entry
// designations.
func Name(b model.Bill) string {
	return fmt.Sprintf("%s #%d", b.Type, b.Num)
}

// TotalInclTax is the bill's tax-included total.
func (s *Service) TotalInclTax(ctx context.Context, billID int64) (decimal.Decimal, error) {
	details, err := s.store.DetailsOf(ctx, billID)
	if err != nil {
		return decimal.Zero, err
	}
	return model.BillTotalInclTax(details, s.decimals()), nil
}

// RestToPay is the tax-included total minus the payments already applied.
func (s *Service) RestToPay(ctx context.Context, billID int64) (decimal.Decimal, error) {
	total, err := s.TotalInclTax(ctx, billID)
	if err != nil {
		return decimal.Zero, err
	}
	paid, err := s.store.SumPayoffs(ctx, billID)
	if err != nil {
		return decimal.Zero, err
	}
	return total.Sub(paid), nil
}

func (s *Service) cloneDetails(ctx context.Context, q *store.Queries, fromBillID, toBillID int64) error {
	details, err := q.DetailsOf(ctx, fromBillID)
	if err != nil {
		return err
	}
	for _, d := range details {
		clone := d
		clone.ID = 0
		clone.BillID = toBillID
		if err := q.CreateDetail(ctx, &clone); err != nil {
			return err
		}
	}
	return nil
}
