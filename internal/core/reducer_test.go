package core

import (
	"math"
	"reflect"
	"testing"
	"time"
)

var testNow = time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC)

func baseState() BudgetState {
	return BudgetState{
		BankBalance: 500,
		Bills: []Bill{
			{ID: "b1", Name: "Car payment", Amount: 120, DueDate: "Mar 15, 2025", LinkedDebtID: "d1"},
			{ID: "b2", Name: "Rent", Amount: 900, DueDate: "Mar 1, 2025"},
		},
		Incomes: []Income{
			{ID: "i1", Source: "Salary", Amount: 2000, ExpectedDate: "Mar 14, 2025"},
		},
		Debts: []Debt{
			{ID: "d1", Name: "Car loan", TotalAmount: 1000, CurrentBalance: 400, IsFocus: true},
			{ID: "d2", Name: "Card", TotalAmount: 5000, CurrentBalance: 1200},
		},
		Tasks: []Task{
			{ID: "t1", Text: "Call bank", Category: TaskASAP},
		},
		LastUpdated: "Mar 1, 2025 08:00:00",
	}
}

func TestReduceUpdateBankBalance(t *testing.T) {
	tests := []struct {
		name    string
		balance float64
		want    float64
		noop    bool
	}{
		{"plain update", 1234.56, 1234.56, false},
		{"clamped high", 2e9, MaxBankBalance, false},
		{"clamped low", -2e9, -MaxBankBalance, false},
		{"nan rejected", math.NaN(), 0, true},
		{"inf rejected", math.Inf(1), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := baseState()
			got := Reduce(st, UpdateBankBalance{Balance: tt.balance}, testNow)
			if tt.noop {
				if !reflect.DeepEqual(got, st) {
					t.Fatal("invalid balance should leave state unchanged")
				}
				return
			}
			if got.BankBalance != tt.want {
				t.Errorf("BankBalance = %v, want %v", got.BankBalance, tt.want)
			}
			if got.LastUpdated != "Mar 10, 2025 09:30:00" {
				t.Errorf("LastUpdated = %q", got.LastUpdated)
			}
		})
	}
}

func TestReduceNeverMutatesInput(t *testing.T) {
	st := baseState()
	snapshot := baseState()

	actions := []Action{
		UpdateBankBalance{Balance: 1},
		AddBill{Bill: Bill{ID: "x", Name: "X", Amount: 5}},
		DeleteBill{ID: "b1"},
		ToggleBillPaid{ID: "b1"},
		ToggleIncomeReceived{ID: "i1"},
		DeleteDebt{ID: "d1"},
		SetFocusDebt{ID: "d2"},
		ToggleTask{ID: "t1"},
		GenerateRecurringItems{TargetDate: testNow},
	}
	for _, a := range actions {
		Reduce(st, a, testNow)
	}
	if !reflect.DeepEqual(st, snapshot) {
		t.Fatal("Reduce mutated its input state")
	}
}

func TestReduceToggleBillPaidLinkedDebt(t *testing.T) {
	st := baseState()

	paid := Reduce(st, ToggleBillPaid{ID: "b1"}, testNow)
	if paid.BankBalance != 380 {
		t.Errorf("balance after paying = %v, want 380", paid.BankBalance)
	}
	if d := paid.Debts[0]; d.CurrentBalance != 280 {
		t.Errorf("linked debt balance = %v, want 280", d.CurrentBalance)
	}
	if !paid.Bills[0].IsPaid {
		t.Error("bill should be marked paid")
	}

	unpaid := Reduce(paid, ToggleBillPaid{ID: "b1"}, testNow)
	if unpaid.BankBalance != 500 {
		t.Errorf("balance after undo = %v, want 500", unpaid.BankBalance)
	}
	if d := unpaid.Debts[0]; d.CurrentBalance != 400 {
		t.Errorf("linked debt balance after undo = %v, want 400", d.CurrentBalance)
	}
	if unpaid.Bills[0].IsPaid {
		t.Error("bill should be unpaid again")
	}
}

func TestReduceToggleBillPaidDebtFloorAndCeiling(t *testing.T) {
	st := baseState()
	st.Bills[0].Amount = 600 // more than the debt's remaining 400

	paid := Reduce(st, ToggleBillPaid{ID: "b1"}, testNow)
	if d := paid.Debts[0]; d.CurrentBalance != 0 {
		t.Errorf("debt balance should floor at 0, got %v", d.CurrentBalance)
	}

	// Undoing adds the full amount back but never past the total.
	unpaid := Reduce(paid, ToggleBillPaid{ID: "b1"}, testNow)
	if d := unpaid.Debts[0]; d.CurrentBalance != 600 {
		t.Errorf("debt balance after undo = %v, want 600", d.CurrentBalance)
	}

	st.Debts[0].CurrentBalance = 900
	paid = Reduce(st, ToggleBillPaid{ID: "b1"}, testNow)
	unpaid = Reduce(paid, ToggleBillPaid{ID: "b1"}, testNow)
	if d := unpaid.Debts[0]; d.CurrentBalance != 900 {
		t.Errorf("debt balance should cap at remaining total path, got %v", d.CurrentBalance)
	}
}

func TestReduceToggleBillPaidUnknownID(t *testing.T) {
	st := baseState()
	if got := Reduce(st, ToggleBillPaid{ID: "missing"}, testNow); !reflect.DeepEqual(got, st) {
		t.Fatal("unknown bill id should be a no-op")
	}
}

func TestReduceToggleIncomeReceived(t *testing.T) {
	st := baseState()

	received := Reduce(st, ToggleIncomeReceived{ID: "i1"}, testNow)
	if received.BankBalance != 2500 {
		t.Errorf("balance after receive = %v, want 2500", received.BankBalance)
	}
	if !received.Incomes[0].IsReceived {
		t.Error("income should be marked received")
	}

	undone := Reduce(received, ToggleIncomeReceived{ID: "i1"}, testNow)
	if undone.BankBalance != 500 {
		t.Errorf("balance after undo = %v, want 500", undone.BankBalance)
	}
}

func TestReduceAddRejectsNonFinite(t *testing.T) {
	st := baseState()

	cases := []struct {
		name   string
		action Action
	}{
		{"bill nan amount", AddBill{Bill: Bill{ID: "x", Amount: math.NaN()}}},
		{"income inf amount", AddIncome{Income: Income{ID: "x", Amount: math.Inf(1)}}},
		{"debt nan balance", AddDebt{Debt: Debt{ID: "x", TotalAmount: 100, CurrentBalance: math.NaN()}}},
		{"updated bill nan", UpdateBill{Bill: Bill{ID: "b1", Amount: math.NaN()}}},
		{"updated debt inf rate", UpdateDebt{Debt: Debt{ID: "d1", TotalAmount: 1, InterestRate: math.Inf(-1)}}},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			if got := Reduce(st, tt.action, testNow); !reflect.DeepEqual(got, st) {
				t.Fatal("non-finite payload should leave state unchanged")
			}
		})
	}
}

func TestReduceAddDebtClampsBalance(t *testing.T) {
	st := baseState()
	got := Reduce(st, AddDebt{Debt: Debt{ID: "d3", Name: "Loan", TotalAmount: 100, CurrentBalance: 250}}, testNow)
	if d := got.Debts[len(got.Debts)-1]; d.CurrentBalance != 100 {
		t.Errorf("added debt balance = %v, want clamped to 100", d.CurrentBalance)
	}
}

func TestReduceDeleteDebt(t *testing.T) {
	t.Run("clears bill links and refocuses smallest", func(t *testing.T) {
		st := baseState()
		st.Debts = append(st.Debts, Debt{ID: "d3", Name: "Medical", TotalAmount: 800, CurrentBalance: 300})

		got := Reduce(st, DeleteDebt{ID: "d1"}, testNow)
		if len(got.Debts) != 2 {
			t.Fatalf("debt count = %d, want 2", len(got.Debts))
		}
		if got.Bills[0].LinkedDebtID != "" {
			t.Error("bill link to deleted debt should be cleared")
		}
		// d3 (300) is smaller than d2 (1200).
		for _, d := range got.Debts {
			if d.ID == "d3" && !d.IsFocus {
				t.Error("smallest surviving debt should take focus")
			}
			if d.ID == "d2" && d.IsFocus {
				t.Error("larger debt should not take focus")
			}
		}
	})

	t.Run("ties keep earlier debt", func(t *testing.T) {
		st := baseState()
		st.Debts = []Debt{
			{ID: "d1", CurrentBalance: 100, IsFocus: true},
			{ID: "d2", CurrentBalance: 50},
			{ID: "d3", CurrentBalance: 50},
		}
		got := Reduce(st, DeleteDebt{ID: "d1"}, testNow)
		if !got.Debts[0].IsFocus || got.Debts[1].IsFocus {
			t.Error("tie should resolve to the earlier debt")
		}
	})

	t.Run("unfocused delete leaves focus alone", func(t *testing.T) {
		st := baseState()
		got := Reduce(st, DeleteDebt{ID: "d2"}, testNow)
		if !got.Debts[0].IsFocus {
			t.Error("focus should stay where it was")
		}
	})

	t.Run("last debt deleted", func(t *testing.T) {
		st := baseState()
		st.Debts = st.Debts[:1]
		got := Reduce(st, DeleteDebt{ID: "d1"}, testNow)
		if len(got.Debts) != 0 {
			t.Errorf("debt count = %d, want 0", len(got.Debts))
		}
	})
}

func TestReduceSetFocusDebt(t *testing.T) {
	st := baseState()

	got := Reduce(st, SetFocusDebt{ID: "d2"}, testNow)
	if got.Debts[0].IsFocus || !got.Debts[1].IsFocus {
		t.Error("focus should move to d2 exclusively")
	}

	cleared := Reduce(got, SetFocusDebt{ID: ""}, testNow)
	for _, d := range cleared.Debts {
		if d.IsFocus {
			t.Errorf("debt %s still focused after clear", d.ID)
		}
	}
}

func TestReduceTasks(t *testing.T) {
	st := baseState()

	added := Reduce(st, AddTask{Task: Task{ID: "t2", Text: "File taxes", Category: TaskTodo, CreatedAt: "Mar 10, 2025"}}, testNow)
	if len(added.Tasks) != 2 {
		t.Fatalf("task count = %d, want 2", len(added.Tasks))
	}

	toggled := Reduce(added, ToggleTask{ID: "t1"}, testNow)
	if !toggled.Tasks[0].Completed {
		t.Error("task should be completed after toggle")
	}
	back := Reduce(toggled, ToggleTask{ID: "t1"}, testNow)
	if back.Tasks[0].Completed {
		t.Error("task should be open again after second toggle")
	}

	deleted := Reduce(back, DeleteTask{ID: "t2"}, testNow)
	if len(deleted.Tasks) != 1 || deleted.Tasks[0].ID != "t1" {
		t.Error("wrong task removed")
	}
}

func TestReduceGenerateRecurringItems(t *testing.T) {
	st := BudgetState{
		BankBalance: 100,
		Bills: []Bill{
			{ID: "b1", Name: "Rent", Amount: 900, DueDate: "Mar 1, 2025", IsRecurring: true, IsPaid: true},
			{ID: "b2", Name: "One-off", Amount: 50, DueDate: "Apr 5, 2025"},
			{ID: "b3", Name: "Gym", Amount: 30, DueDate: "Apr 12, 2025", IsRecurring: true},
		},
		Incomes: []Income{
			{ID: "i1", Source: "Salary", Amount: 2000, ExpectedDate: "Mar 14, 2025", IsRecurring: true, IsReceived: true},
		},
		Debts: []Debt{},
		Tasks: []Task{},
	}
	target := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)

	got := Reduce(st, GenerateRecurringItems{TargetDate: target}, testNow)

	// April entries (b2, b3) are dropped; b1 and b3 regenerate one month on.
	var names []string
	for _, b := range got.Bills {
		names = append(names, b.Name+"@"+b.DueDate)
	}
	want := map[string]bool{
		"Rent@Mar 1, 2025": true, // kept, outside target month
		"Rent@Apr 1, 2025": true, // regenerated
		"Gym@May 12, 2025": true, // regenerated from the dropped April entry
	}
	if len(got.Bills) != 3 {
		t.Fatalf("bill count = %d (%v), want 3", len(got.Bills), names)
	}
	for _, b := range got.Bills {
		if !want[b.Name+"@"+b.DueDate] {
			t.Errorf("unexpected bill %s@%s", b.Name, b.DueDate)
		}
		if b.ID == "b2" {
			t.Error("one-off April bill should be gone")
		}
	}
	for _, b := range got.Bills {
		if b.DueDate == "Apr 1, 2025" || b.DueDate == "May 12, 2025" {
			if b.IsPaid {
				t.Errorf("regenerated bill %s should be unpaid", b.Name)
			}
			if b.ID == "b1" || b.ID == "b3" {
				t.Errorf("regenerated bill %s should carry a fresh id", b.Name)
			}
		}
	}

	if len(got.Incomes) != 2 {
		t.Fatalf("income count = %d, want 2", len(got.Incomes))
	}
	var regenerated *Income
	for i := range got.Incomes {
		if got.Incomes[i].ExpectedDate == "Apr 14, 2025" {
			regenerated = &got.Incomes[i]
		}
	}
	if regenerated == nil {
		t.Fatal("regenerated income for Apr 14 not found")
	}
	if regenerated.IsReceived {
		t.Error("regenerated income should be unreceived")
	}
	if regenerated.ID == "i1" {
		t.Error("regenerated income should carry a fresh id")
	}
}

func TestReduceGenerateRecurringEndOfMonthClamp(t *testing.T) {
	st := BudgetState{
		Bills: []Bill{
			{ID: "b1", Name: "Insurance", Amount: 80, DueDate: "Jan 31, 2025", IsRecurring: true},
		},
		Incomes: []Income{},
		Debts:   []Debt{},
		Tasks:   []Task{},
	}
	target := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)

	got := Reduce(st, GenerateRecurringItems{TargetDate: target}, testNow)
	var found bool
	for _, b := range got.Bills {
		if b.DueDate == "Feb 28, 2025" {
			found = true
		}
	}
	if !found {
		t.Errorf("Jan 31 should regenerate as Feb 28, bills: %+v", got.Bills)
	}
}

func TestReduceGenerateRecurringUnparseableDate(t *testing.T) {
	st := BudgetState{
		Bills: []Bill{
			{ID: "b1", Name: "Mystery", Amount: 10, DueDate: "someday", IsRecurring: true, IsPaid: true},
		},
		Incomes: []Income{},
		Debts:   []Debt{},
		Tasks:   []Task{},
	}
	// Target month differs from now's month so the unparseable entry survives
	// the month filter via its now fallback.
	target := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)

	got := Reduce(st, GenerateRecurringItems{TargetDate: target}, testNow)
	if len(got.Bills) != 2 {
		t.Fatalf("bill count = %d, want original plus copy", len(got.Bills))
	}
	var copyFound bool
	for _, b := range got.Bills {
		if b.ID != "b1" {
			copyFound = true
			if b.DueDate != "someday" {
				t.Errorf("copy due date = %q, want untouched", b.DueDate)
			}
			if b.IsPaid {
				t.Error("copy should be unpaid")
			}
		}
	}
	if !copyFound {
		t.Error("recurring bill with bad date should still produce a copy")
	}
}

func TestReduceUnknownActionIsNoop(t *testing.T) {
	st := baseState()
	if got := Reduce(st, nil, testNow); !reflect.DeepEqual(got, st) {
		t.Fatal("nil action should leave state unchanged")
	}
}
