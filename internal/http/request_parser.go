package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"budgetd/internal/core"
	"budgetd/internal/dates"
)

// maxBodySize bounds request bodies; the whole ledger serializes well under
// this even for heavy users.
const maxBodySize = 1 << 20

var errBadBody = errors.New("malformed request body")

// decodeJSON reads a single JSON value from the request body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errBadBody, err)
	}
	return nil
}

type (
	balancePayload struct {
		Balance float64 `json:"balance"`
	}

	billPayload struct {
		Name         string  `json:"name"`
		Amount       float64 `json:"amount"`
		DueDate      string  `json:"dueDate"`
		IsRecurring  bool    `json:"isRecurring"`
		LinkedDebtID string  `json:"linkedDebtId"`
		Frequency    string  `json:"frequency"`
	}

	incomePayload struct {
		Source       string  `json:"source"`
		Amount       float64 `json:"amount"`
		ExpectedDate string  `json:"expectedDate"`
		IsRecurring  bool    `json:"isRecurring"`
		Frequency    string  `json:"frequency"`
	}

	debtPayload struct {
		Name           string  `json:"name"`
		TotalAmount    float64 `json:"totalAmount"`
		CurrentBalance float64 `json:"currentBalance"`
		InterestRate   float64 `json:"interestRate"`
		MinimumPayment float64 `json:"minimumPayment"`
		DueDate        string  `json:"dueDate"`
	}

	taskPayload struct {
		Text      string `json:"text"`
		Completed bool   `json:"completed"`
		Category  string `json:"category"`
	}

	focusPayload struct {
		ID string `json:"id"`
	}

	generatePayload struct {
		Date string `json:"date"`
	}
)

// toBill validates the payload and builds the domain entity with the given id.
func (p billPayload) toBill(id string) (core.Bill, error) {
	b := core.Bill{
		ID:           id,
		Name:         strings.TrimSpace(p.Name),
		Amount:       p.Amount,
		DueDate:      p.DueDate,
		IsRecurring:  p.IsRecurring,
		LinkedDebtID: p.LinkedDebtID,
		Frequency:    core.Frequency(p.Frequency),
	}
	if err := b.Validate(); err != nil {
		return core.Bill{}, err
	}
	if _, err := dates.Parse(b.DueDate); err != nil {
		return core.Bill{}, err
	}
	return b, nil
}

func (p incomePayload) toIncome(id string) (core.Income, error) {
	in := core.Income{
		ID:           id,
		Source:       strings.TrimSpace(p.Source),
		Amount:       p.Amount,
		ExpectedDate: p.ExpectedDate,
		IsRecurring:  p.IsRecurring,
		Frequency:    core.Frequency(p.Frequency),
	}
	if err := in.Validate(); err != nil {
		return core.Income{}, err
	}
	if _, err := dates.Parse(in.ExpectedDate); err != nil {
		return core.Income{}, err
	}
	return in, nil
}

func (p debtPayload) toDebt(id string) (core.Debt, error) {
	d := core.Debt{
		ID:             id,
		Name:           strings.TrimSpace(p.Name),
		TotalAmount:    p.TotalAmount,
		CurrentBalance: p.CurrentBalance,
		InterestRate:   p.InterestRate,
		MinimumPayment: p.MinimumPayment,
		DueDate:        p.DueDate,
	}
	if err := d.Validate(); err != nil {
		return core.Debt{}, err
	}
	if d.TotalAmount <= 0 {
		return core.Debt{}, core.ErrInvalidAmount
	}
	return d, nil
}

func (p taskPayload) toTask(id, createdAt string) (core.Task, error) {
	t := core.Task{
		ID:        id,
		Text:      strings.TrimSpace(p.Text),
		Completed: p.Completed,
		Category:  core.TaskCategory(p.Category),
		CreatedAt: createdAt,
	}
	if err := t.Validate(); err != nil {
		return core.Task{}, err
	}
	return t, nil
}

func (p balancePayload) validate() error {
	if math.IsNaN(p.Balance) || math.IsInf(p.Balance, 0) {
		return core.ErrInvalidAmount
	}
	return nil
}
