package http

import (
	"net/http"

	"budgetd/internal/core"
)

func (s *Server) handleCreateDebt(w http.ResponseWriter, r *http.Request) {
	var payload debtPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	debt, err := payload.toDebt(core.NewID())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.store.Dispatch(core.AddDebt{Debt: debt})
	s.writeState(w, http.StatusCreated)
}

func (s *Server) handleUpdateDebt(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, ok := findDebt(s.store.State().Debts, id)
	if !ok {
		writeError(w, http.StatusNotFound, "debt not found")
		return
	}

	var payload debtPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	debt, err := payload.toDebt(id)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	// Focus is managed through its own endpoint, so an update keeps it.
	debt.IsFocus = existing.IsFocus

	s.store.Dispatch(core.UpdateDebt{Debt: debt})
	s.writeState(w, http.StatusOK)
}

func (s *Server) handleDeleteDebt(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := findDebt(s.store.State().Debts, id); !ok {
		writeError(w, http.StatusNotFound, "debt not found")
		return
	}

	s.store.Dispatch(core.DeleteDebt{ID: id})
	s.writeState(w, http.StatusOK)
}

// handleFocusDebt sets the payoff focus. An empty id clears focus everywhere.
func (s *Server) handleFocusDebt(w http.ResponseWriter, r *http.Request) {
	var payload focusPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if payload.ID != "" {
		if _, ok := findDebt(s.store.State().Debts, payload.ID); !ok {
			writeError(w, http.StatusNotFound, "debt not found")
			return
		}
	}

	s.store.Dispatch(core.SetFocusDebt{ID: payload.ID})
	s.writeState(w, http.StatusOK)
}

func findDebt(debts []core.Debt, id string) (core.Debt, bool) {
	for _, d := range debts {
		if d.ID == id {
			return d, true
		}
	}
	return core.Debt{}, false
}
