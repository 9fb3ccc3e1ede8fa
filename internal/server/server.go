// Package server exposes the accounting services over a JSON HTTP API.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/grandlivre-dev/grandlivre/internal/billing"
	"github.com/grandlivre-dev/grandlivre/internal/chart"
	"github.com/grandlivre-dev/grandlivre/internal/config"
	"github.com/grandlivre-dev/grandlivre/internal/export"
	"github.com/grandlivre-dev/grandlivre/internal/fiscalyear"
	"github.com/grandlivre-dev/grandlivre/internal/ledger"
	"github.com/grandlivre-dev/grandlivre/internal/link"
	"github.com/grandlivre-dev/grandlivre/internal/payoff"
	"github.com/grandlivre-dev/grandlivre/internal/store"
)

// Server holds the services behind the HTTP handlers.
type Server struct {
	store   *store.Store
	cfg     *config.Config
	years   *fiscalyear.Service
	charts  *chart.Service
	ledger  *ledger.Service
	links   *link.Service
	billing *billing.Service
	payoffs *payoff.Service
	export  *export.Service
}

// New creates a Server over the given services.
func New(st *store.Store, cfg *config.Config, years *fiscalyear.Service, charts *chart.Service,
	ld *ledger.Service, links *link.Service, bl *billing.Service, po *payoff.Service, ex *export.Service) *Server {
	return &Server{
		store:   st,
		cfg:     cfg,
		years:   years,
		charts:  charts,
		ledger:  ld,
		links:   links,
		billing: bl,
		payoffs: po,
		export:  ex,
	}
}

// Router builds the chi router with all routes registered.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		// Fiscal years
		r.Get("/years", s.listYears)
		r.Post("/years", s.createYear)
		r.Post("/years/{id}/activate", s.activateYear)
		r.Post("/years/{id}/begin", s.beginYear)
		r.Post("/years/{id}/close", s.closeYear)
		r.Delete("/years/{id}", s.deleteYear)
		r.Get("/years/{id}/accounts", s.listAccounts)
		r.Post("/years/{id}/accounts", s.createAccount)
		r.Get("/years/{id}/ledger.csv", s.exportLedger)

		// Thirds
		r.Get("/thirds", s.listThirds)
		r.Post("/thirds", s.createThird)

		// Journal entries
		r.Post("/entries", s.createEntry)
		r.Get("/entries/{id}", s.getEntry)
		r.Post("/entries/{id}/control", s.controlEntry)
		r.Post("/entries/{id}/lines", s.saveEntryLines)
		r.Post("/entries/{id}/close", s.closeEntry)
		r.Delete("/entries/{id}", s.deleteEntry)
		r.Post("/entries/{id}/unlink", s.unlinkEntry)
		r.Post("/links", s.createLink)

		// Bills
		r.Post("/bills", s.createBill)
		r.Get("/bills/{id}", s.getBill)
		r.Get("/bills/{id}/info", s.billInfo)
		r.Post("/bills/{id}/details", s.addDetail)
		r.Post("/bills/{id}/valid", s.validBill)
		r.Post("/bills/{id}/archive", s.archiveBill)
		r.Post("/bills/{id}/cancel", s.cancelBill)
		r.Post("/bills/{id}/convert", s.convertBill)

		// Payoffs
		r.Post("/payoffs", s.createPayoff)
		r.Post("/payoffs/multi", s.createMultiPayoff)
		r.Delete("/payoffs/{id}", s.deletePayoff)
	})

	return r
}

// Response is the standard JSON envelope for all API responses.
type Response struct {
	Data  any    `json:"data"`
	Error string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Response{Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Response{Error: msg})
}

// fail maps service errors to HTTP statuses: missing rows are 404, editing
// conflicts 409, generator consistency failures 500, everything else is a
// business rule violation the client can fix.
func fail(w http.ResponseWriter, err error) {
	var consistency billing.ConsistencyError
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrStaleEntry), errors.Is(err, ledger.ErrEntryClosed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &consistency):
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func urlID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid JSON")
	}
	return nil
}
