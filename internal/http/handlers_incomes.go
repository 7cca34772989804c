package http

import (
	"net/http"

	"budgetd/internal/core"
)

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	var payload incomePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	income, err := payload.toIncome(core.NewID())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.store.Dispatch(core.AddIncome{Income: income})
	s.writeState(w, http.StatusCreated)
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, ok := findIncome(s.store.State().Incomes, id)
	if !ok {
		writeError(w, http.StatusNotFound, "income not found")
		return
	}

	var payload incomePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	income, err := payload.toIncome(id)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	income.IsReceived = existing.IsReceived

	s.store.Dispatch(core.UpdateIncome{Income: income})
	s.writeState(w, http.StatusOK)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := findIncome(s.store.State().Incomes, id); !ok {
		writeError(w, http.StatusNotFound, "income not found")
		return
	}

	s.store.Dispatch(core.DeleteIncome{ID: id})
	s.writeState(w, http.StatusOK)
}

func (s *Server) handleToggleIncome(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := findIncome(s.store.State().Incomes, id); !ok {
		writeError(w, http.StatusNotFound, "income not found")
		return
	}

	s.store.Dispatch(core.ToggleIncomeReceived{ID: id})
	s.writeState(w, http.StatusOK)
}

func findIncome(incomes []core.Income, id string) (core.Income, bool) {
	for _, in := range incomes {
		if in.ID == id {
			return in, true
		}
	}
	return core.Income{}, false
}
