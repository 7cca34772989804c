package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDecodeState(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			"complete document",
			`{"bankBalance":42.5,"bills":[],"incomes":[],"debts":[],"tasks":[],"lastUpdated":"Mar 1, 2025 08:00:00"}`,
			"",
		},
		{
			"missing tasks",
			`{"bankBalance":0,"bills":[],"incomes":[],"debts":[]}`,
			`missing field "tasks"`,
		},
		{
			"missing bankBalance",
			`{"bills":[],"incomes":[],"debts":[],"tasks":[]}`,
			`missing field "bankBalance"`,
		},
		{
			"not json",
			`{"bankBalance":`,
			"parse state document",
		},
		{
			"array instead of object",
			`[1,2,3]`,
			"parse state document",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := DecodeState([]byte(tt.input))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("DecodeState: %v", err)
				}
				if st.BankBalance != 42.5 {
					t.Errorf("BankBalance = %v, want 42.5", st.BankBalance)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("DecodeState error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestDecodeStateClampsBalance(t *testing.T) {
	doc := `{"bankBalance":9e15,"bills":[],"incomes":[],"debts":[],"tasks":[]}`
	st, err := DecodeState([]byte(doc))
	if err != nil {
		t.Fatalf("DecodeState: %v", err)
	}
	if st.BankBalance != MaxBankBalance {
		t.Errorf("BankBalance = %v, want clamped to %v", st.BankBalance, float64(MaxBankBalance))
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	st := BudgetState{
		BankBalance: 123.45,
		Bills:       []Bill{{ID: "b1", Name: "Rent", Amount: 900, DueDate: "Mar 1, 2025", IsRecurring: true, LinkedDebtID: "d1", Frequency: Monthly}},
		Incomes:     []Income{{ID: "i1", Source: "Salary", Amount: 2000, ExpectedDate: "Mar 14, 2025"}},
		Debts:       []Debt{{ID: "d1", Name: "Loan", TotalAmount: 1000, CurrentBalance: 400, InterestRate: 4.5, MinimumPayment: 50, DueDate: "Mar 20, 2025", IsFocus: true}},
		Tasks:       []Task{{ID: "t1", Text: "Call bank", Category: TaskASAP, CreatedAt: "Mar 1, 2025"}},
		LastUpdated: "Mar 1, 2025 08:00:00",
	}

	data, err := EncodeState(st)
	if err != nil {
		t.Fatalf("EncodeState: %v", err)
	}
	back, err := DecodeState(data)
	if err != nil {
		t.Fatalf("DecodeState: %v", err)
	}
	if back.Bills[0] != st.Bills[0] || back.Debts[0] != st.Debts[0] {
		t.Error("entities did not round-trip")
	}
	if back.LastUpdated != st.LastUpdated {
		t.Errorf("LastUpdated = %q", back.LastUpdated)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{"valid bill", Bill{Name: "Rent", Amount: 900}.Validate(), nil},
		{"bill empty name", Bill{Amount: 900}.Validate(), ErrEmptyName},
		{"bill zero amount", Bill{Name: "Rent"}.Validate(), ErrInvalidAmount},
		{"valid income", Income{Source: "Salary", Amount: 1}.Validate(), nil},
		{"income blank source", Income{Source: "  ", Amount: 1}.Validate(), ErrEmptySource},
		{"valid debt", Debt{Name: "Loan", TotalAmount: 100}.Validate(), nil},
		{"debt empty name", Debt{TotalAmount: 100}.Validate(), ErrEmptyName},
		{"valid task", Task{Text: "x", Category: TaskTodo}.Validate(), nil},
		{"task bad category", Task{Text: "x", Category: "later"}.Validate(), ErrInvalidCategory},
		{"task empty text", Task{Category: TaskASAP}.Validate(), ErrEmptyText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantErr == nil {
				if tt.err != nil {
					t.Errorf("Validate = %v, want nil", tt.err)
				}
				return
			}
			if !errors.Is(tt.err, tt.wantErr) {
				t.Errorf("Validate = %v, want %v", tt.err, tt.wantErr)
			}
		})
	}
}

func TestDefaultState(t *testing.T) {
	now := time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC)
	st := DefaultState(now)
	if st.BankBalance != 0 {
		t.Errorf("BankBalance = %v, want 0", st.BankBalance)
	}
	if st.Bills == nil || st.Incomes == nil || st.Debts == nil || st.Tasks == nil {
		t.Error("collections should be empty, not nil")
	}
	if st.LastUpdated != "Mar 10, 2025 09:30:00" {
		t.Errorf("LastUpdated = %q", st.LastUpdated)
	}
}

func TestNewIDUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for range 100 {
		id := NewID()
		if id == "" {
			t.Fatal("empty id")
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = struct{}{}
	}
}
