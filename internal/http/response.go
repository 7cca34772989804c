package http

import (
	"encoding/json"
	"net/http"

	"budgetd/internal/core"
)

type errorBody struct {
	Error string `json:"error"`
}

// stateBody is the envelope for every mutation response: the committed
// snapshot plus the revision it carries.
type stateBody struct {
	Revision int64            `json:"revision"`
	State    core.BudgetState `json:"state"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeState responds with the store's current snapshot.
func (s *Server) writeState(w http.ResponseWriter, status int) {
	writeJSON(w, status, stateBody{
		Revision: s.store.Revision(),
		State:    s.store.State(),
	})
}
