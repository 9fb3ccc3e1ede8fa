package server

import (
	"net/http"
	"time"

	"github.com/grandlivre-dev/grandlivre/internal/model"
)

type entryJSON struct {
	ID          int64  `json:"id"`
	YearID      int64  `json:"year_id"`
	Num         int    `json:"num,omitempty"`
	JournalID   int64  `json:"journal_id"`
	Journal     string `json:"journal"`
	DateEntry   string `json:"date_entry,omitempty"`
	DateValue   string `json:"date_value"`
	Designation string `json:"designation"`
	Closed      bool   `json:"closed"`
	Version     int    `json:"version"`
	Letter      string `json:"letter,omitempty"`
	Serial      string `json:"serial"`
}

func (s *Server) toEntryJSON(r *http.Request, e model.EntryAccount) (entryJSON, error) {
	out := entryJSON{
		ID:          e.ID,
		YearID:      e.YearID,
		Num:         e.Num,
		JournalID:   e.JournalID,
		Journal:     model.JournalName(e.JournalID),
		DateValue:   e.DateValue.Format(dateFormat),
		Designation: e.Designation,
		Closed:      e.Closed,
		Version:     e.Version,
	}
	if e.DateEntry != nil {
		out.DateEntry = e.DateEntry.Format(dateFormat)
	}
	if e.LinkID != 0 {
		letter, err := s.links.Letter(r.Context(), model.AccountLink{ID: e.LinkID, YearID: e.YearID})
		if err != nil {
			return entryJSON{}, err
		}
		out.Letter = letter
	}
	serial, err := s.ledger.Serialize(r.Context(), e.ID)
	if err != nil {
		return entryJSON{}, err
	}
	out.Serial = serial
	return out, nil
}

func (s *Server) createEntry(w http.ResponseWriter, r *http.Request) {
	var input struct {
		YearID      int64  `json:"year_id"`
		JournalID   int64  `json:"journal_id"`
		DateValue   string `json:"date_value"`
		Designation string `json:"designation"`
	}
	if err := decode(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	dateValue, err := time.Parse(dateFormat, input.DateValue)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date_value")
		return
	}

	entry, err := s.ledger.Create(r.Context(), input.YearID, input.JournalID, dateValue, input.Designation)
	if err != nil {
		fail(w, err)
		return
	}
	out, err := s.toEntryJSON(r, entry)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) getEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.ledger.Get(r.Context(), urlID(r))
	if err != nil {
		fail(w, err)
		return
	}
	out, err := s.toEntryJSON(r, entry)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// controlEntry runs the balance control against a pending serial without
// persisting anything.
func (s *Server) controlEntry(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Serial string `json:"serial"`
	}
	if err := decode(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctl, pending, err := s.ledger.SerialControl(r.Context(), urlID(r), input.Serial)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"no_change":   ctl.NoChange,
		"debit_rest":  ctl.DebitRest.String(),
		"credit_rest": ctl.CreditRest.String(),
		"balanced":    ctl.Balanced(len(pending) > 0),
	})
}

func (s *Server) saveEntryLines(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Serial  string `json:"serial"`
		Version int    `json:"version"`
	}
	if err := decode(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.ledger.SaveLines(r.Context(), urlID(r), input.Serial, input.Version); err != nil {
		fail(w, err)
		return
	}
	entry, err := s.ledger.Get(r.Context(), urlID(r))
	if err != nil {
		fail(w, err)
		return
	}
	out, err := s.toEntryJSON(r, entry)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) closeEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Close(r.Context(), urlID(r)); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "closed"})
}

func (s *Server) deleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Delete(r.Context(), urlID(r)); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

func (s *Server) unlinkEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.links.Detach(r.Context(), urlID(r)); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "unlinked"})
}

func (s *Server) createLink(w http.ResponseWriter, r *http.Request) {
	var input struct {
		EntryIDs []int64 `json:"entry_ids"`
	}
	if err := decode(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.links.Create(r.Context(), input.EntryIDs)
	if err != nil {
		fail(w, err)
		return
	}
	letter, err := s.links.Letter(r.Context(), created)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": created.ID, "letter": letter})
}
