package recurring

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"budgetd/internal/core"
	"budgetd/internal/log"
)

var march = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func TestNeedsGeneration(t *testing.T) {
	tests := []struct {
		name  string
		state core.BudgetState
		want  bool
	}{
		{
			"no items",
			core.BudgetState{},
			false,
		},
		{
			"recurring bill from last month",
			core.BudgetState{Bills: []core.Bill{
				{ID: "b1", Name: "Rent", Amount: 100, DueDate: "Feb 15, 2025", IsRecurring: true},
			}},
			true,
		},
		{
			"recurring bill already in current month",
			core.BudgetState{Bills: []core.Bill{
				{ID: "b1", Name: "Rent", Amount: 100, DueDate: "Mar 15, 2025", IsRecurring: true},
			}},
			false,
		},
		{
			"stale bill blocked by current income",
			core.BudgetState{
				Bills: []core.Bill{
					{ID: "b1", Name: "Rent", Amount: 100, DueDate: "Feb 15, 2025", IsRecurring: true},
				},
				Incomes: []core.Income{
					{ID: "i1", Source: "Payroll", Amount: 2000, ExpectedDate: "Mar 1, 2025", IsRecurring: true},
				},
			},
			false,
		},
		{
			"non-recurring items never trigger",
			core.BudgetState{Bills: []core.Bill{
				{ID: "b1", Name: "One-off", Amount: 100, DueDate: "Feb 15, 2025"},
			}},
			false,
		},
		{
			"unparseable dates are ignored",
			core.BudgetState{Bills: []core.Bill{
				{ID: "b1", Name: "Rent", Amount: 100, DueDate: "someday", IsRecurring: true},
			}},
			false,
		},
		{
			"future recurring item does not trigger",
			core.BudgetState{Incomes: []core.Income{
				{ID: "i1", Source: "Bonus", Amount: 500, ExpectedDate: "May 1, 2025", IsRecurring: true},
			}},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NeedsGeneration(tt.state, march); got != tt.want {
				t.Errorf("NeedsGeneration = %v, want %v", got, tt.want)
			}
		})
	}
}

func quietLogger() *log.Logger {
	return log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

func TestRunTriggersGeneration(t *testing.T) {
	state := core.BudgetState{Bills: []core.Bill{
		{ID: "b1", Name: "Rent", Amount: 100, DueDate: "Feb 15, 2025", IsRecurring: true},
	}}

	var generated []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/state":
			_ = json.NewEncoder(w).Encode(map[string]any{"revision": 1, "state": state})
		case "/api/months/generate":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			generated = append(generated, body["date"])
			_ = json.NewEncoder(w).Encode(map[string]any{"revision": 2, "state": state})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewProcessor(srv.URL, quietLogger())
	ran, err := p.Run(context.Background(), march)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !ran {
		t.Fatal("expected a generation run")
	}
	if len(generated) != 1 || generated[0] != "Mar 10, 2025" {
		t.Errorf("generated = %v", generated)
	}
}

func TestRunSkipsWhenCurrent(t *testing.T) {
	state := core.BudgetState{Bills: []core.Bill{
		{ID: "b1", Name: "Rent", Amount: 100, DueDate: "Mar 15, 2025", IsRecurring: true},
	}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/state" {
			t.Errorf("unexpected call to %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"revision": 1, "state": state})
	}))
	defer srv.Close()

	p := NewProcessor(srv.URL, quietLogger())
	ran, err := p.Run(context.Background(), march)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ran {
		t.Error("expected no generation run")
	}
}

func TestRunSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewProcessor(srv.URL, quietLogger())
	if _, err := p.Run(context.Background(), march); err == nil {
		t.Error("expected error from failing server")
	}
}
