package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/grandlivre-dev/grandlivre/internal/billing"
	"github.com/grandlivre-dev/grandlivre/internal/model"
	"github.com/grandlivre-dev/grandlivre/internal/payoff"
)

type billJSON struct {
	ID      int64  `json:"id"`
	YearID  int64  `json:"year_id"`
	Type    string `json:"type"`
	Num     int    `json:"num,omitempty"`
	Date    string `json:"date"`
	Comment string `json:"comment,omitempty"`
	Status  string `json:"status"`
	ThirdID int64  `json:"third_id,omitempty"`
	EntryID int64  `json:"entry_id,omitempty"`
	Total   string `json:"total_incl_tax"`
	Rest    string `json:"rest_to_pay"`
}

func (s *Server) toBillJSON(r *http.Request, b model.Bill) (billJSON, error) {
	total, err := s.billing.TotalInclTax(r.Context(), b.ID)
	if err != nil {
		return billJSON{}, err
	}
	rest, err := s.billing.RestToPay(r.Context(), b.ID)
	if err != nil {
		return billJSON{}, err
	}
	return billJSON{
		ID:      b.ID,
		YearID:  b.YearID,
		Type:    b.Type.String(),
		Num:     b.Num,
		Date:    b.Date.Format(dateFormat),
		Comment: b.Comment,
		Status:  b.Status.String(),
		ThirdID: b.ThirdID,
		EntryID: b.EntryID,
		Total:   total.StringFixed(s.cfg.Currency.Decimals),
		Rest:    rest.StringFixed(s.cfg.Currency.Decimals),
	}, nil
}

func parseBillType(s string) (model.BillType, error) {
	switch s {
	case "quotation":
		return model.BillQuotation, nil
	case "invoice":
		return model.BillInvoice, nil
	case "asset":
		return model.BillAsset, nil
	case "receipt":
		return model.BillReceipt, nil
	default:
		return 0, fmt.Errorf("unknown bill type %q", s)
	}
}

func (s *Server) createBill(w http.ResponseWriter, r *http.Request) {
	var input struct {
		YearID           int64  `json:"year_id"`
		Type             string `json:"type"`
		Date             string `json:"date"`
		Comment          string `json:"comment"`
		ThirdID          int64  `json:"third_id"`
		CostAccountingID int64  `json:"cost_accounting_id"`
	}
	if err := decode(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	typ, err := parseBillType(input.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := time.Parse(dateFormat, input.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}

	bill, err := s.billing.Create(r.Context(), billing.CreateParams{
		YearID:           input.YearID,
		Type:             typ,
		Date:             date,
		Comment:          input.Comment,
		ThirdID:          input.ThirdID,
		CostAccountingID: input.CostAccountingID,
	})
	if err != nil {
		fail(w, err)
		return
	}
	out, err := s.toBillJSON(r, bill)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) getBill(w http.ResponseWriter, r *http.Request) {
	bill, err := s.billing.Get(r.Context(), urlID(r))
	if err != nil {
		fail(w, err)
		return
	}
	out, err := s.toBillJSON(r, bill)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) billInfo(w http.ResponseWriter, r *http.Request) {
	bill, err := s.billing.Get(r.Context(), urlID(r))
	if err != nil {
		fail(w, err)
		return
	}
	info, err := s.billing.InfoState(r.Context(), bill)
	if err != nil {
		fail(w, err)
		return
	}
	if info == nil {
		info = []string{}
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) addDetail(w http.ResponseWriter, r *http.Request) {
	var input struct {
		ArticleID   int64  `json:"article_id"`
		Designation string `json:"designation"`
		Price       string `json:"price"`
		Unit        string `json:"unit"`
		Quantity    string `json:"quantity"`
		Reduce      string `json:"reduce"`
		VatRate     string `json:"vat_rate"`
		SellAccount string `json:"sell_account"`
	}
	if err := decode(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	price, err := parseAmount(input.Price, "price")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	quantity, err := parseAmount(input.Quantity, "quantity")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	reduce, err := parseOptionalAmount(input.Reduce, "reduce")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	vatRate, err := parseOptionalAmount(input.VatRate, "vat_rate")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	detail, err := s.billing.AddDetail(r.Context(), urlID(r), billing.DetailParams{
		ArticleID:   input.ArticleID,
		Designation: input.Designation,
		Price:       price,
		Unit:        input.Unit,
		Quantity:    quantity,
		Reduce:      reduce,
		VatRate:     vatRate,
		SellAccount: input.SellAccount,
	})
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": detail.ID})
}

func (s *Server) validBill(w http.ResponseWriter, r *http.Request) {
	if err := s.billing.Valid(r.Context(), urlID(r)); err != nil {
		fail(w, err)
		return
	}
	bill, err := s.billing.Get(r.Context(), urlID(r))
	if err != nil {
		fail(w, err)
		return
	}
	out, err := s.toBillJSON(r, bill)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) archiveBill(w http.ResponseWriter, r *http.Request) {
	if err := s.billing.Archive(r.Context(), urlID(r)); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "archived"})
}

func (s *Server) cancelBill(w http.ResponseWriter, r *http.Request) {
	assetID, err := s.billing.Cancel(r.Context(), urlID(r))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"asset_id": assetID})
}

func (s *Server) convertBill(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := s.billing.ConvertToBill(r.Context(), urlID(r))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoice_id": invoiceID})
}

type payoffJSON struct {
	ID      int64  `json:"id"`
	BillID  int64  `json:"bill_id"`
	Date    string `json:"date"`
	Amount  string `json:"amount"`
	EntryID int64  `json:"entry_id,omitempty"`
}

func toPayoffJSON(p model.Payoff) payoffJSON {
	return payoffJSON{
		ID:      p.ID,
		BillID:  p.BillID,
		Date:    p.Date.Format(dateFormat),
		Amount:  p.Amount.String(),
		EntryID: p.EntryID,
	}
}

func (s *Server) createPayoff(w http.ResponseWriter, r *http.Request) {
	var input struct {
		BillID        int64  `json:"bill_id"`
		Date          string `json:"date"`
		Amount        string `json:"amount"`
		Mode          int    `json:"mode"`
		Payer         string `json:"payer"`
		Reference     string `json:"reference"`
		BankAccountID int64  `json:"bank_account_id"`
		BankFee       string `json:"bank_fee"`
	}
	if err := decode(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := time.Parse(dateFormat, input.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	amount, err := parseAmount(input.Amount, "amount")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	fee, err := parseOptionalAmount(input.BankFee, "bank_fee")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.payoffs.Save(r.Context(), payoff.SaveParams{
		BillID:        input.BillID,
		Date:          date,
		Amount:        amount,
		Mode:          model.PayoffMode(input.Mode),
		Payer:         input.Payer,
		Reference:     input.Reference,
		BankAccountID: input.BankAccountID,
		BankFee:       fee,
	})
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPayoffJSON(created))
}

func (s *Server) createMultiPayoff(w http.ResponseWriter, r *http.Request) {
	var input struct {
		BillIDs       []int64 `json:"bill_ids"`
		Date          string  `json:"date"`
		Amount        string  `json:"amount"`
		Mode          int     `json:"mode"`
		Payer         string  `json:"payer"`
		Reference     string  `json:"reference"`
		BankAccountID int64   `json:"bank_account_id"`
		Repartition   int     `json:"repartition"`
	}
	if err := decode(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := time.Parse(dateFormat, input.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	amount, err := parseAmount(input.Amount, "amount")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.payoffs.MultiSave(r.Context(), payoff.MultiSaveParams{
		BillIDs:       input.BillIDs,
		Date:          date,
		Amount:        amount,
		Mode:          model.PayoffMode(input.Mode),
		Payer:         input.Payer,
		Reference:     input.Reference,
		BankAccountID: input.BankAccountID,
		Repartition:   input.Repartition,
	})
	if err != nil {
		fail(w, err)
		return
	}
	out := make([]payoffJSON, 0, len(created))
	for _, p := range created {
		out = append(out, toPayoffJSON(p))
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) deletePayoff(w http.ResponseWriter, r *http.Request) {
	if err := s.payoffs.Delete(r.Context(), urlID(r)); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

func parseAmount(s, field string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fmt.Errorf("%s is required", field)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q", field, s)
	}
	return d, nil
}

func parseOptionalAmount(s, field string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q", field, s)
	}
	return d, nil
}
