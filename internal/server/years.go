package server

import (
	"net/http"
	"time"

	"github.com/grandlivre-dev/grandlivre/internal/model"
)

const dateFormat = "2006-01-02"

type yearJSON struct {
	ID       int64  `json:"id"`
	Begin    string `json:"begin"`
	End      string `json:"end"`
	Status   string `json:"status"`
	IsActive bool   `json:"is_active"`
}

func toYearJSON(y model.FiscalYear) yearJSON {
	return yearJSON{
		ID:       y.ID,
		Begin:    y.Begin.Format(dateFormat),
		End:      y.End.Format(dateFormat),
		Status:   y.Status.String(),
		IsActive: y.IsActive,
	}
}

func (s *Server) listYears(w http.ResponseWriter, r *http.Request) {
	years, err := s.years.List(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	out := make([]yearJSON, 0, len(years))
	for _, y := range years {
		out = append(out, toYearJSON(y))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createYear(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Begin string `json:"begin"`
		End   string `json:"end"`
	}
	if err := decode(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	begin, err := time.Parse(dateFormat, input.Begin)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid begin date")
		return
	}
	end, err := time.Parse(dateFormat, input.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end date")
		return
	}

	year, err := s.years.Create(r.Context(), begin, end)
	if err != nil {
		fail(w, err)
		return
	}
	if year.PreviousID != 0 {
		if err := s.charts.CarryForward(r.Context(), year.PreviousID, year.ID); err != nil {
			fail(w, err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, toYearJSON(year))
}

func (s *Server) activateYear(w http.ResponseWriter, r *http.Request) {
	if err := s.years.Activate(r.Context(), urlID(r)); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "activated"})
}

func (s *Server) beginYear(w http.ResponseWriter, r *http.Request) {
	if err := s.years.Begin(r.Context(), urlID(r)); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "running"})
}

func (s *Server) closeYear(w http.ResponseWriter, r *http.Request) {
	if err := s.years.Close(r.Context(), urlID(r)); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "closed"})
}

func (s *Server) deleteYear(w http.ResponseWriter, r *http.Request) {
	if err := s.years.Delete(r.Context(), urlID(r)); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

type accountJSON struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
	Type string `json:"type"`
}

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.charts.List(r.Context(), urlID(r))
	if err != nil {
		fail(w, err)
		return
	}
	out := make([]accountJSON, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountJSON{ID: a.ID, Code: a.Code, Name: a.Name, Type: a.Type.String()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Code string `json:"code"`
		Name string `json:"name"`
	}
	if err := decode(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	account, err := s.charts.AddAccount(r.Context(), urlID(r), input.Code, input.Name)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, accountJSON{ID: account.ID, Code: account.Code, Name: account.Name, Type: account.Type.String()})
}

func (s *Server) exportLedger(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	if err := s.export.Export(r.Context(), urlID(r), w); err != nil {
		fail(w, err)
		return
	}
}

type thirdJSON struct {
	ID      int64  `json:"id"`
	Contact string `json:"contact"`
	Status  int    `json:"status"`
}

func (s *Server) listThirds(w http.ResponseWriter, r *http.Request) {
	thirds, err := s.store.ListThirds(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	out := make([]thirdJSON, 0, len(thirds))
	for _, t := range thirds {
		out = append(out, thirdJSON{ID: t.ID, Contact: t.Contact, Status: int(t.Status)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createThird(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Contact  string   `json:"contact"`
		Accounts []string `json:"accounts"`
	}
	if err := decode(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if input.Contact == "" {
		writeError(w, http.StatusBadRequest, "contact is required")
		return
	}

	third := model.Third{Contact: input.Contact, Status: model.ThirdEnabled}
	if err := s.store.CreateThird(r.Context(), &third); err != nil {
		fail(w, err)
		return
	}
	for _, code := range input.Accounts {
		at := model.AccountThird{ThirdID: third.ID, Code: code}
		if err := s.store.CreateAccountThird(r.Context(), &at); err != nil {
			fail(w, err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, thirdJSON{ID: third.ID, Contact: third.Contact, Status: int(third.Status)})
}
