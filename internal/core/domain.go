package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"budgetd/internal/dates"

	"github.com/google/uuid"
)

// MaxBankBalance bounds the bank balance (its negative bounds the overdraft)
// so repeated arithmetic on the scalar cannot run away.
const MaxBankBalance = 1_000_000_000

const (
	Monthly  Frequency = "monthly"
	Weekly   Frequency = "weekly"
	Biweekly Frequency = "biweekly"
)

const (
	TaskASAP TaskCategory = "asap"
	TaskTodo TaskCategory = "todo"
)

type (
	// Frequency describes how often a recurring bill or income repeats.
	// Only monthly regeneration is implemented; the field is carried so
	// entries round-trip unchanged.
	Frequency string

	// TaskCategory buckets tasks into the two dashboard lists.
	TaskCategory string

	// Bill is a payable entry. DueDate is stored in the canonical display
	// format. LinkedDebtID, when non-empty, references a Debt whose balance
	// moves together with the bill's paid state.
	Bill struct {
		ID           string    `json:"id"`
		Name         string    `json:"name"`
		Amount       float64   `json:"amount"`
		DueDate      string    `json:"dueDate"`
		IsPaid       bool      `json:"isPaid"`
		IsRecurring  bool      `json:"isRecurring"`
		LinkedDebtID string    `json:"linkedDebtId,omitempty"`
		Frequency    Frequency `json:"frequency,omitempty"`
	}

	// Income is an expected deposit.
	Income struct {
		ID           string    `json:"id"`
		Source       string    `json:"source"`
		Amount       float64   `json:"amount"`
		ExpectedDate string    `json:"expectedDate"`
		IsRecurring  bool      `json:"isRecurring"`
		Frequency    Frequency `json:"frequency,omitempty"`
		IsReceived   bool      `json:"isReceived"`
	}

	// Debt tracks a liability. CurrentBalance always stays within
	// [0, TotalAmount]. At most one debt carries IsFocus, the payoff
	// target receiving extra payments.
	Debt struct {
		ID             string  `json:"id"`
		Name           string  `json:"name"`
		TotalAmount    float64 `json:"totalAmount"`
		CurrentBalance float64 `json:"currentBalance"`
		InterestRate   float64 `json:"interestRate"`
		MinimumPayment float64 `json:"minimumPayment"`
		DueDate        string  `json:"dueDate"`
		IsFocus        bool    `json:"isFocus"`
	}

	// Task is a checklist entry.
	Task struct {
		ID        string       `json:"id"`
		Text      string       `json:"text"`
		Completed bool         `json:"completed"`
		Category  TaskCategory `json:"category"`
		CreatedAt string       `json:"createdAt"`
	}

	// BudgetState is the whole ledger. The store owns it and only ever
	// replaces it wholesale; nothing mutates a snapshot in place.
	BudgetState struct {
		BankBalance float64  `json:"bankBalance"`
		Bills       []Bill   `json:"bills"`
		Incomes     []Income `json:"incomes"`
		Debts       []Debt   `json:"debts"`
		Tasks       []Task   `json:"tasks"`
		LastUpdated string   `json:"lastUpdated"`
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyName       = errors.New("empty name")
	ErrEmptySource     = errors.New("empty source")
	ErrEmptyText       = errors.New("empty text")
	ErrInvalidCategory = errors.New("invalid task category")
)

// NewID returns a fresh entity id.
func NewID() string {
	return uuid.NewString()
}

// DefaultState returns the empty ledger a new session starts from.
func DefaultState(now time.Time) BudgetState {
	return BudgetState{
		Bills:       []Bill{},
		Incomes:     []Income{},
		Debts:       []Debt{},
		Tasks:       []Task{},
		LastUpdated: dates.FormatStamp(now),
	}
}

// isFinite reports whether f is a usable number (not NaN, not ±Inf).
func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// safeAmount substitutes 0 for non-finite amounts so sums stay meaningful.
func safeAmount(f float64) float64 {
	if !isFinite(f) {
		return 0
	}
	return f
}

// clampBalance bounds a bank balance to [-MaxBankBalance, MaxBankBalance].
func clampBalance(f float64) float64 {
	return math.Min(math.Max(f, -MaxBankBalance), MaxBankBalance)
}

// clampDebtBalance bounds a debt balance to [0, total].
func clampDebtBalance(f, total float64) float64 {
	return math.Min(math.Max(f, 0), total)
}

func (f Frequency) Valid() bool {
	switch f {
	case "", Monthly, Weekly, Biweekly:
		return true
	default:
		return false
	}
}

func (c TaskCategory) Valid() bool {
	return c == TaskASAP || c == TaskTodo
}

func (b Bill) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if !isFinite(b.Amount) || b.Amount <= 0 {
		return ErrInvalidAmount
	}
	if !b.Frequency.Valid() {
		return fmt.Errorf("invalid frequency %q", b.Frequency)
	}
	return nil
}

func (i Income) Validate() error {
	if strings.TrimSpace(i.Source) == "" {
		return ErrEmptySource
	}
	if !isFinite(i.Amount) || i.Amount <= 0 {
		return ErrInvalidAmount
	}
	if !i.Frequency.Valid() {
		return fmt.Errorf("invalid frequency %q", i.Frequency)
	}
	return nil
}

func (d Debt) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return ErrEmptyName
	}
	for _, f := range []float64{d.TotalAmount, d.CurrentBalance, d.InterestRate, d.MinimumPayment} {
		if !isFinite(f) {
			return ErrInvalidAmount
		}
	}
	return nil
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.Text) == "" {
		return ErrEmptyText
	}
	if !t.Category.Valid() {
		return ErrInvalidCategory
	}
	return nil
}

// requiredStateFields are the top-level keys a persisted snapshot must carry
// before it is trusted as initial state.
var requiredStateFields = []string{"bankBalance", "bills", "incomes", "debts", "tasks"}

// DecodeState deserializes and structurally validates a persisted snapshot.
// A document missing any required top-level field is rejected rather than
// silently defaulting, so a corrupt record never becomes live state.
func DecodeState(data []byte) (BudgetState, error) {
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(data, &shape); err != nil {
		return BudgetState{}, fmt.Errorf("parse state document: %w", err)
	}
	for _, field := range requiredStateFields {
		if _, ok := shape[field]; !ok {
			return BudgetState{}, fmt.Errorf("state document missing field %q", field)
		}
	}
	var st BudgetState
	if err := json.Unmarshal(data, &st); err != nil {
		return BudgetState{}, fmt.Errorf("decode state document: %w", err)
	}
	st.BankBalance = clampBalance(safeAmount(st.BankBalance))
	return st, nil
}

// EncodeState serializes a snapshot for persistence.
func EncodeState(st BudgetState) ([]byte, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encode state document: %w", err)
	}
	return data, nil
}
