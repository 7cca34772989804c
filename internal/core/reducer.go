package core

import (
	"sort"
	"time"

	"budgetd/internal/dates"
)

// Reduce applies action to state and returns the resulting snapshot. It is
// pure: the input state is never mutated, and an action carrying an invalid
// payload (non-finite numbers, unknown ids where an id is required) returns
// the input state unchanged. Every successful transition stamps LastUpdated
// from now.
func Reduce(state BudgetState, action Action, now time.Time) BudgetState {
	var next BudgetState

	switch a := action.(type) {
	case UpdateBankBalance:
		if !isFinite(a.Balance) {
			return state
		}
		next = state
		next.BankBalance = clampBalance(a.Balance)

	case AddBill:
		if !isFinite(a.Bill.Amount) {
			return state
		}
		next = state
		next.Bills = append(copyBills(state.Bills), a.Bill)

	case UpdateBill:
		if !isFinite(a.Bill.Amount) {
			return state
		}
		next = state
		next.Bills = copyBills(state.Bills)
		for i := range next.Bills {
			if next.Bills[i].ID == a.Bill.ID {
				next.Bills[i] = a.Bill
			}
		}

	case DeleteBill:
		next = state
		next.Bills = filterBills(state.Bills, a.ID)

	case ToggleBillPaid:
		bill, ok := findBill(state.Bills, a.ID)
		if !ok {
			return state
		}
		amount := safeAmount(bill.Amount)

		next = state
		next.Bills = copyBills(state.Bills)
		next.Debts = copyDebts(state.Debts)
		for i := range next.Bills {
			if next.Bills[i].ID == a.ID {
				next.Bills[i].IsPaid = !bill.IsPaid
			}
		}
		if !bill.IsPaid {
			next.BankBalance = clampBalance(state.BankBalance - amount)
		} else {
			next.BankBalance = clampBalance(state.BankBalance + amount)
		}
		if bill.LinkedDebtID != "" {
			for i := range next.Debts {
				if next.Debts[i].ID != bill.LinkedDebtID {
					continue
				}
				d := &next.Debts[i]
				if !bill.IsPaid {
					d.CurrentBalance = clampDebtBalance(d.CurrentBalance-amount, d.TotalAmount)
				} else {
					d.CurrentBalance = clampDebtBalance(d.CurrentBalance+amount, d.TotalAmount)
				}
			}
		}

	case AddIncome:
		if !isFinite(a.Income.Amount) {
			return state
		}
		next = state
		next.Incomes = append(copyIncomes(state.Incomes), a.Income)

	case UpdateIncome:
		if !isFinite(a.Income.Amount) {
			return state
		}
		next = state
		next.Incomes = copyIncomes(state.Incomes)
		for i := range next.Incomes {
			if next.Incomes[i].ID == a.Income.ID {
				next.Incomes[i] = a.Income
			}
		}

	case DeleteIncome:
		next = state
		next.Incomes = filterIncomes(state.Incomes, a.ID)

	case ToggleIncomeReceived:
		income, ok := findIncome(state.Incomes, a.ID)
		if !ok {
			return state
		}
		amount := safeAmount(income.Amount)

		next = state
		next.Incomes = copyIncomes(state.Incomes)
		for i := range next.Incomes {
			if next.Incomes[i].ID == a.ID {
				next.Incomes[i].IsReceived = !income.IsReceived
			}
		}
		if !income.IsReceived {
			next.BankBalance = clampBalance(state.BankBalance + amount)
		} else {
			next.BankBalance = clampBalance(state.BankBalance - amount)
		}

	case AddDebt:
		if !debtNumbersFinite(a.Debt) {
			return state
		}
		d := a.Debt
		d.CurrentBalance = clampDebtBalance(d.CurrentBalance, d.TotalAmount)
		next = state
		next.Debts = append(copyDebts(state.Debts), d)

	case UpdateDebt:
		if !debtNumbersFinite(a.Debt) {
			return state
		}
		next = state
		next.Debts = copyDebts(state.Debts)
		for i := range next.Debts {
			if next.Debts[i].ID == a.Debt.ID {
				d := a.Debt
				d.CurrentBalance = clampDebtBalance(d.CurrentBalance, d.TotalAmount)
				next.Debts[i] = d
			}
		}

	case DeleteDebt:
		deleted, existed := findDebt(state.Debts, a.ID)
		next = state
		next.Debts = make([]Debt, 0, len(state.Debts))
		for _, d := range state.Debts {
			if d.ID != a.ID {
				next.Debts = append(next.Debts, d)
			}
		}
		next.Bills = copyBills(state.Bills)
		for i := range next.Bills {
			if next.Bills[i].LinkedDebtID == a.ID {
				next.Bills[i].LinkedDebtID = ""
			}
		}
		if existed && deleted.IsFocus && len(next.Debts) > 0 {
			smallest := smallestBalanceDebtID(next.Debts)
			for i := range next.Debts {
				next.Debts[i].IsFocus = next.Debts[i].ID == smallest
			}
		}

	case SetFocusDebt:
		next = state
		next.Debts = copyDebts(state.Debts)
		for i := range next.Debts {
			next.Debts[i].IsFocus = a.ID != "" && next.Debts[i].ID == a.ID
		}

	case AddTask:
		next = state
		next.Tasks = append(copyTasks(state.Tasks), a.Task)

	case UpdateTask:
		next = state
		next.Tasks = copyTasks(state.Tasks)
		for i := range next.Tasks {
			if next.Tasks[i].ID == a.Task.ID {
				next.Tasks[i] = a.Task
			}
		}

	case ToggleTask:
		next = state
		next.Tasks = copyTasks(state.Tasks)
		for i := range next.Tasks {
			if next.Tasks[i].ID == a.ID {
				next.Tasks[i].Completed = !next.Tasks[i].Completed
			}
		}

	case DeleteTask:
		next = state
		next.Tasks = make([]Task, 0, len(state.Tasks))
		for _, t := range state.Tasks {
			if t.ID != a.ID {
				next.Tasks = append(next.Tasks, t)
			}
		}

	case GenerateRecurringItems:
		next = generateRecurring(state, a.TargetDate, now)

	default:
		return state
	}

	next.LastUpdated = dates.FormatStamp(now)
	return next
}

// generateRecurring clears every bill and income dated in the target month
// and appends a fresh copy of each recurring item, dated one calendar month
// after its current date, unpaid and unreceived. Unparseable dates fall back
// to now when bucketing by month, and a recurring item whose date cannot be
// parsed is copied with its date untouched.
func generateRecurring(state BudgetState, target, now time.Time) BudgetState {
	next := state

	seenBills := make(map[string]struct{}, len(state.Bills))
	next.Bills = make([]Bill, 0, len(state.Bills))
	for _, b := range state.Bills {
		if !dates.SameMonth(dates.ParseOr(b.DueDate, now), target) {
			next.Bills = append(next.Bills, b)
		}
	}
	for _, b := range state.Bills {
		if !b.IsRecurring {
			continue
		}
		if _, dup := seenBills[b.ID]; dup {
			continue
		}
		seenBills[b.ID] = struct{}{}

		gen := b
		gen.ID = NewID()
		gen.IsPaid = false
		if due, err := dates.Parse(b.DueDate); err == nil {
			gen.DueDate = dates.Format(dates.AddMonths(due, 1))
		}
		next.Bills = append(next.Bills, gen)
	}

	seenIncomes := make(map[string]struct{}, len(state.Incomes))
	next.Incomes = make([]Income, 0, len(state.Incomes))
	for _, in := range state.Incomes {
		if !dates.SameMonth(dates.ParseOr(in.ExpectedDate, now), target) {
			next.Incomes = append(next.Incomes, in)
		}
	}
	for _, in := range state.Incomes {
		if !in.IsRecurring {
			continue
		}
		if _, dup := seenIncomes[in.ID]; dup {
			continue
		}
		seenIncomes[in.ID] = struct{}{}

		gen := in
		gen.ID = NewID()
		gen.IsReceived = false
		if expected, err := dates.Parse(in.ExpectedDate); err == nil {
			gen.ExpectedDate = dates.Format(dates.AddMonths(expected, 1))
		}
		next.Incomes = append(next.Incomes, gen)
	}

	return next
}

// smallestBalanceDebtID picks the debt with the lowest current balance,
// keeping the earlier entry on ties. Non-finite balances count as zero.
func smallestBalanceDebtID(debts []Debt) string {
	sorted := copyDebts(debts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return safeAmount(sorted[i].CurrentBalance) < safeAmount(sorted[j].CurrentBalance)
	})
	return sorted[0].ID
}

func debtNumbersFinite(d Debt) bool {
	return isFinite(d.TotalAmount) && isFinite(d.CurrentBalance) &&
		isFinite(d.InterestRate) && isFinite(d.MinimumPayment)
}

func findBill(bills []Bill, id string) (Bill, bool) {
	for _, b := range bills {
		if b.ID == id {
			return b, true
		}
	}
	return Bill{}, false
}

func findIncome(incomes []Income, id string) (Income, bool) {
	for _, in := range incomes {
		if in.ID == id {
			return in, true
		}
	}
	return Income{}, false
}

func findDebt(debts []Debt, id string) (Debt, bool) {
	for _, d := range debts {
		if d.ID == id {
			return d, true
		}
	}
	return Debt{}, false
}

func copyBills(bills []Bill) []Bill {
	out := make([]Bill, len(bills))
	copy(out, bills)
	return out
}

func copyIncomes(incomes []Income) []Income {
	out := make([]Income, len(incomes))
	copy(out, incomes)
	return out
}

func copyDebts(debts []Debt) []Debt {
	out := make([]Debt, len(debts))
	copy(out, debts)
	return out
}

func copyTasks(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	copy(out, tasks)
	return out
}

func filterBills(bills []Bill, id string) []Bill {
	out := make([]Bill, 0, len(bills))
	for _, b := range bills {
		if b.ID != id {
			out = append(out, b)
		}
	}
	return out
}

func filterIncomes(incomes []Income, id string) []Income {
	out := make([]Income, 0, len(incomes))
	for _, in := range incomes {
		if in.ID != id {
			out = append(out, in)
		}
	}
	return out
}
