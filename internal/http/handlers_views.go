package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"budgetd/internal/views"
)

func (s *Server) handlePaycheckView(w http.ResponseWriter, r *http.Request) {
	state := s.store.State()
	outlook := views.NextPaycheck(state.Bills, state.Incomes, state.BankBalance, time.Now())
	writeJSON(w, http.StatusOK, outlook)
}

// handleMonthView serves the month summary and transaction list. The view is
// pure in (snapshot, month), so responses are cached per month and revision.
func (s *Server) handleMonthView(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil || year < 1970 || year > 9999 {
		writeError(w, http.StatusBadRequest, "invalid year")
		return
	}
	month, err := strconv.Atoi(r.PathValue("month"))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "invalid month")
		return
	}

	revision := s.store.Revision()
	key := fmt.Sprintf("%04d-%02d@%d", year, month, revision)
	if cached, ok := s.monthCache.Get(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	state := s.store.State()
	anchor := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	view := monthView{
		Year:         year,
		Month:        month,
		Totals:       views.MonthlyTotals(state.Bills, state.Incomes, anchor),
		Transactions: views.MonthTransactions(state.Bills, state.Incomes, anchor),
	}
	if view.Transactions == nil {
		view.Transactions = []views.Transaction{}
	}

	s.monthCache.Set(key, view)
	writeJSON(w, http.StatusOK, view)
}
