package http

import (
	"net/http"

	"budgetd/internal/core"
)

func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	var payload billPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bill, err := payload.toBill(core.NewID())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.store.Dispatch(core.AddBill{Bill: bill})
	s.writeState(w, http.StatusCreated)
}

func (s *Server) handleUpdateBill(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, ok := findBill(s.store.State().Bills, id)
	if !ok {
		writeError(w, http.StatusNotFound, "bill not found")
		return
	}

	var payload billPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bill, err := payload.toBill(id)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	bill.IsPaid = existing.IsPaid

	s.store.Dispatch(core.UpdateBill{Bill: bill})
	s.writeState(w, http.StatusOK)
}

func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := findBill(s.store.State().Bills, id); !ok {
		writeError(w, http.StatusNotFound, "bill not found")
		return
	}

	s.store.Dispatch(core.DeleteBill{ID: id})
	s.writeState(w, http.StatusOK)
}

func (s *Server) handleToggleBill(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := findBill(s.store.State().Bills, id); !ok {
		writeError(w, http.StatusNotFound, "bill not found")
		return
	}

	s.store.Dispatch(core.ToggleBillPaid{ID: id})
	s.writeState(w, http.StatusOK)
}

func findBill(bills []core.Bill, id string) (core.Bill, bool) {
	for _, b := range bills {
		if b.ID == id {
			return b, true
		}
	}
	return core.Bill{}, false
}
