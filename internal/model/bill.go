package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillType discriminates the supporting documents of the invoicing module.
type BillType int

const (
	BillQuotation BillType = iota
	BillInvoice
	BillAsset // credit note
	BillReceipt
)

func (t BillType) String() string {
	switch t {
	case BillQuotation:
		return "quotation"
	case BillInvoice:
		return "invoice"
	case BillAsset:
		return "asset"
	case BillReceipt:
		return "receipt"
	default:
		return "unknown"
	}
}

// BillStatus is the lifecycle state of a bill.
type BillStatus int

const (
	BillBuilding BillStatus = iota
	BillValid
	BillCancel
	BillArchive
)

func (s BillStatus) String() string {
	switch s {
	case BillBuilding:
		return "building"
	case BillValid:
		return "valid"
	case BillCancel:
		return "cancel"
	case BillArchive:
		return "archive"
	default:
		return "unknown"
	}
}

// Bill is an invoicing document (quotation, invoice, credit note or receipt).
// Num is assigned at validation, sequentially per (fiscal year, type).
type Bill struct {
	ID               int64
	YearID           int64
	Type             BillType
	Num              int
	Date             time.Time
	Comment          string
	Status           BillStatus
	ThirdID          int64
	EntryID          int64 // 0 = no ledger entry generated
	CostAccountingID int64 // 0 = none
	ParentID         int64 // 0 = none; set on spawned credit notes / converted quotations
}

// IsRevenu reports the payment direction of the document: credit notes refund
// the third party, every other type collects from it.
func (b Bill) IsRevenu() bool {
	return b.Type != BillAsset
}

// Detail is one line of a bill. VatRate is a signed fraction: a positive rate
// means the price was entered tax-included, a negative rate tax-excluded, and
// zero means no VAT applies. The magnitude is the rate itself (0.05 = 5%).
type Detail struct {
	ID            int64
	BillID        int64
	ArticleID     int64 // 0 = free line
	Designation   string
	Price         decimal.Decimal
	Unit          string
	Quantity      decimal.Decimal
	Reduce        decimal.Decimal
	VatRate       decimal.Decimal
	SellAccount   string
	StorageAreaID int64 // 0 = none
}

// Total is price*quantity - reduce, rounded at the currency precision. Its
// tax convention follows the sign of VatRate.
func (d Detail) Total(decimals int32) decimal.Decimal {
	return d.Price.Mul(d.Quantity).Sub(d.Reduce).Round(decimals)
}

// GrossTotal is price*quantity before reduction, rounded.
func (d Detail) GrossTotal(decimals int32) decimal.Decimal {
	return d.Price.Mul(d.Quantity).Round(decimals)
}

// Vat is the VAT amount of the line. For a tax-included rate r the VAT is
// backed out of the total (total*r/(1+r)); for a tax-excluded rate it is
// added on top (total*|r|).
func (d Detail) Vat(decimals int32) decimal.Decimal {
	if d.VatRate.IsZero() {
		return decimal.Zero
	}
	total := d.Total(decimals)
	if d.VatRate.IsPositive() {
		return total.Mul(d.VatRate).Div(decimal.NewFromInt(1).Add(d.VatRate)).Round(decimals)
	}
	return total.Mul(d.VatRate.Neg()).Round(decimals)
}

// TotalInclTax is the tax-included total of the line.
func (d Detail) TotalInclTax(decimals int32) decimal.Decimal {
	if d.VatRate.IsNegative() {
		return d.Total(decimals).Add(d.Vat(decimals))
	}
	return d.Total(decimals)
}

// TotalExclTax is the tax-excluded total of the line.
func (d Detail) TotalExclTax(decimals int32) decimal.Decimal {
	if d.VatRate.IsPositive() {
		return d.Total(decimals).Sub(d.Vat(decimals))
	}
	return d.Total(decimals)
}

// GrossExclTax is the tax-excluded total before reduction.
func (d Detail) GrossExclTax(decimals int32) decimal.Decimal {
	gross := d.GrossTotal(decimals)
	if d.VatRate.IsZero() {
		return gross
	}
	if d.VatRate.IsPositive() {
		vat := gross.Mul(d.VatRate).Div(decimal.NewFromInt(1).Add(d.VatRate)).Round(decimals)
		return gross.Sub(vat)
	}
	return gross
}

// BillTotalInclTax sums the tax-included totals of a bill's details.
func BillTotalInclTax(details []Detail, decimals int32) decimal.Decimal {
	total := decimal.Zero
	for _, d := range details {
		total = total.Add(d.TotalInclTax(decimals))
	}
	return total
}

// BillTotalExclTax sums the tax-excluded totals of a bill's details.
func BillTotalExclTax(details []Detail, decimals int32) decimal.Decimal {
	total := decimal.Zero
	for _, d := range details {
		total = total.Add(d.TotalExclTax(decimals))
	}
	return total
}

// BillTotalVat sums the VAT amounts of a bill's details.
func BillTotalVat(details []Detail, decimals int32) decimal.Decimal {
	total := decimal.Zero
	for _, d := range details {
		total = total.Add(d.Vat(decimals))
	}
	return total
}
