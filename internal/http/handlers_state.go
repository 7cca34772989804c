package http

import (
	"errors"
	"io"
	"net/http"
	"time"

	"budgetd/internal/core"
	"budgetd/internal/dates"
	"budgetd/internal/log"
)

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	s.writeState(w, http.StatusOK)
}

func (s *Server) handleUpdateBalance(w http.ResponseWriter, r *http.Request) {
	var payload balancePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := payload.validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.store.Dispatch(core.UpdateBankBalance{Balance: payload.Balance})
	s.writeState(w, http.StatusOK)
}

// handleGenerateMonth rolls recurring bills and incomes into the month of the
// given date. An absent or unparseable date targets the current month.
func (s *Server) handleGenerateMonth(w http.ResponseWriter, r *http.Request) {
	var payload generatePayload
	if err := decodeJSON(r, &payload); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	target := dates.ParseOr(payload.Date, time.Now())
	s.store.Dispatch(core.GenerateRecurringItems{TargetDate: target})
	s.writeState(w, http.StatusOK)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.reset(r.Context()); err != nil {
		s.logger.ErrorContext(r.Context(), "Reset failed", log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "reset failed")
		return
	}
	s.writeState(w, http.StatusOK)
}
