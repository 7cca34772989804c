package core

import "time"

// Action is the closed set of state transitions. Every variant embeds the
// unexported marker method, so the reducer's type switch covers the whole
// set and external packages cannot add variants.
type Action interface {
	isAction()
}

type (
	// UpdateBankBalance replaces the bank balance with Balance, clamped to
	// [-MaxBankBalance, MaxBankBalance].
	UpdateBankBalance struct {
		Balance float64
	}

	// AddBill appends a bill.
	AddBill struct {
		Bill Bill
	}

	// UpdateBill replaces the bill with the matching id.
	UpdateBill struct {
		Bill Bill
	}

	// DeleteBill removes the bill with the given id.
	DeleteBill struct {
		ID string
	}

	// ToggleBillPaid flips a bill's paid state. Paying subtracts the amount
	// from the bank balance and, when the bill is linked to a debt, reduces
	// that debt's current balance; unpaying reverses both.
	ToggleBillPaid struct {
		ID string
	}

	// AddIncome appends an income.
	AddIncome struct {
		Income Income
	}

	// UpdateIncome replaces the income with the matching id.
	UpdateIncome struct {
		Income Income
	}

	// DeleteIncome removes the income with the given id.
	DeleteIncome struct {
		ID string
	}

	// ToggleIncomeReceived flips an income's received state, adding the
	// amount to the bank balance on receive and subtracting it on undo.
	ToggleIncomeReceived struct {
		ID string
	}

	// AddDebt appends a debt.
	AddDebt struct {
		Debt Debt
	}

	// UpdateDebt replaces the debt with the matching id.
	UpdateDebt struct {
		Debt Debt
	}

	// DeleteDebt removes the debt, clears any bill links pointing at it,
	// and moves focus to the surviving debt with the smallest current
	// balance when the deleted debt was focused.
	DeleteDebt struct {
		ID string
	}

	// SetFocusDebt marks the given debt as the single focus. An empty id
	// clears focus everywhere.
	SetFocusDebt struct {
		ID string
	}

	// AddTask appends a task.
	AddTask struct {
		Task Task
	}

	// UpdateTask replaces the task with the matching id.
	UpdateTask struct {
		Task Task
	}

	// ToggleTask flips a task's completed state.
	ToggleTask struct {
		ID string
	}

	// DeleteTask removes the task with the given id.
	DeleteTask struct {
		ID string
	}

	// GenerateRecurringItems clears the target month and regenerates
	// recurring bills and incomes one calendar month after their current
	// dates, unpaid and unreceived, with fresh ids. Duplicate source ids
	// are collapsed within a single application; invoking the action twice
	// for the same month duplicates the generated items, which callers
	// must guard against.
	GenerateRecurringItems struct {
		TargetDate time.Time
	}
)

func (UpdateBankBalance) isAction()      {}
func (AddBill) isAction()                {}
func (UpdateBill) isAction()             {}
func (DeleteBill) isAction()             {}
func (ToggleBillPaid) isAction()         {}
func (AddIncome) isAction()              {}
func (UpdateIncome) isAction()           {}
func (DeleteIncome) isAction()           {}
func (ToggleIncomeReceived) isAction()   {}
func (AddDebt) isAction()                {}
func (UpdateDebt) isAction()             {}
func (DeleteDebt) isAction()             {}
func (SetFocusDebt) isAction()           {}
func (AddTask) isAction()                {}
func (UpdateTask) isAction()             {}
func (ToggleTask) isAction()             {}
func (DeleteTask) isAction()             {}
func (GenerateRecurringItems) isAction() {}
