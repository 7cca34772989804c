// Package views derives read models from budget snapshots. Every function is
// pure and takes the reference time explicitly, so the same snapshot always
// yields the same view for a given clock.
package views

import (
	"math"
	"sort"
	"time"

	"budgetd/internal/core"
	"budgetd/internal/dates"
)

// PaycheckOutlook summarizes the bill load around the next expected paychecks.
type PaycheckOutlook struct {
	UntilNextPaycheck       float64 `json:"untilNextPaycheck"`
	NextPaycheckAmount      float64 `json:"nextPaycheckAmount"`
	NextPaycheckDate        string  `json:"nextPaycheckDate"`
	HasInsufficientFunds    bool    `json:"hasInsufficientFunds"`
	AfterNextPaycheck       float64 `json:"afterNextPaycheck"`
	FollowingPaycheckDate   string  `json:"followingPaycheckDate"`
	FollowingPaycheckAmount float64 `json:"followingPaycheckAmount"`
}

// MonthSummary totals a month's bills and incomes regardless of paid or
// received status.
type MonthSummary struct {
	TotalBills  float64 `json:"totalBills"`
	TotalIncome float64 `json:"totalIncome"`
	Remaining   float64 `json:"remaining"`
}

// TransactionKind tags a month transaction entry.
type TransactionKind string

const (
	KindBill   TransactionKind = "bill"
	KindIncome TransactionKind = "income"
)

// Transaction is one dated entry in a month's combined bill and income list.
type Transaction struct {
	Kind   TransactionKind `json:"type"`
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Amount float64         `json:"amount"`
	Date   string          `json:"date"`
	Done   bool            `json:"done"` // paid for bills, received for incomes
}

// Status classifies a bill's urgency relative to today.
type Status string

const (
	StatusOverdue  Status = "overdue"
	StatusUpcoming Status = "upcoming"
	StatusNormal   Status = "normal"
)

func safeAmount(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// NextPaycheck computes the outlook over unreceived incomes. The next
// paycheck is the earliest unreceived income expected today or later; bills
// due in [today, next] count toward UntilNextPaycheck, bills due in
// (next, following] toward AfterNextPaycheck. Paid bills never count, and
// unparseable dates fall back to now.
func NextPaycheck(bills []core.Bill, incomes []core.Income, balance float64, now time.Time) PaycheckOutlook {
	var outlook PaycheckOutlook

	unreceived := make([]core.Income, 0, len(incomes))
	for _, in := range incomes {
		if !in.IsReceived {
			unreceived = append(unreceived, in)
		}
	}
	sort.SliceStable(unreceived, func(i, j int) bool {
		return dates.ParseOr(unreceived[i].ExpectedDate, now).Before(dates.ParseOr(unreceived[j].ExpectedDate, now))
	})

	nextIdx := -1
	for i, in := range unreceived {
		if dates.OnOrAfter(dates.ParseOr(in.ExpectedDate, now), now) {
			nextIdx = i
			break
		}
	}
	if nextIdx < 0 {
		outlook.HasInsufficientFunds = safeAmount(balance) < 0
		return outlook
	}

	next := unreceived[nextIdx]
	nextDate := dates.ParseOr(next.ExpectedDate, now)
	outlook.NextPaycheckAmount = safeAmount(next.Amount)
	outlook.NextPaycheckDate = next.ExpectedDate

	for _, b := range bills {
		if b.IsPaid {
			continue
		}
		due := dates.ParseOr(b.DueDate, now)
		if dates.OnOrAfter(due, now) && dates.OnOrBefore(due, nextDate) {
			outlook.UntilNextPaycheck += safeAmount(b.Amount)
		}
	}
	outlook.HasInsufficientFunds = safeAmount(balance) < outlook.UntilNextPaycheck

	if nextIdx+1 < len(unreceived) {
		following := unreceived[nextIdx+1]
		followingDate := dates.ParseOr(following.ExpectedDate, now)
		outlook.FollowingPaycheckAmount = safeAmount(following.Amount)
		outlook.FollowingPaycheckDate = following.ExpectedDate

		for _, b := range bills {
			if b.IsPaid {
				continue
			}
			due := dates.ParseOr(b.DueDate, now)
			if dates.StrictlyAfter(due, nextDate) && dates.OnOrBefore(due, followingDate) {
				outlook.AfterNextPaycheck += safeAmount(b.Amount)
			}
		}
	}

	return outlook
}

// MonthlyTotals sums the bills and incomes dated in the given month. Paid
// and received flags are ignored; entries with unparseable dates are skipped.
func MonthlyTotals(bills []core.Bill, incomes []core.Income, month time.Time) MonthSummary {
	var s MonthSummary
	for _, b := range bills {
		if due, err := dates.Parse(b.DueDate); err == nil && dates.SameMonth(due, month) {
			s.TotalBills += safeAmount(b.Amount)
		}
	}
	for _, in := range incomes {
		if expected, err := dates.Parse(in.ExpectedDate); err == nil && dates.SameMonth(expected, month) {
			s.TotalIncome += safeAmount(in.Amount)
		}
	}
	s.Remaining = s.TotalIncome - s.TotalBills
	return s
}

// MonthTransactions lists a month's bills and incomes in date order. Incomes
// sort before bills sharing the same date; entries with unparseable dates are
// skipped.
func MonthTransactions(bills []core.Bill, incomes []core.Income, month time.Time) []Transaction {
	type dated struct {
		tx   Transaction
		when time.Time
	}
	var entries []dated

	for _, b := range bills {
		due, err := dates.Parse(b.DueDate)
		if err != nil || !dates.SameMonth(due, month) {
			continue
		}
		entries = append(entries, dated{
			tx:   Transaction{Kind: KindBill, ID: b.ID, Name: b.Name, Amount: b.Amount, Date: b.DueDate, Done: b.IsPaid},
			when: due,
		})
	}
	for _, in := range incomes {
		expected, err := dates.Parse(in.ExpectedDate)
		if err != nil || !dates.SameMonth(expected, month) {
			continue
		}
		entries = append(entries, dated{
			tx:   Transaction{Kind: KindIncome, ID: in.ID, Name: in.Source, Amount: in.Amount, Date: in.ExpectedDate, Done: in.IsReceived},
			when: expected,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].when.Equal(entries[j].when) {
			return entries[i].tx.Kind == KindIncome && entries[j].tx.Kind == KindBill
		}
		return entries[i].when.Before(entries[j].when)
	})

	out := make([]Transaction, len(entries))
	for i, e := range entries {
		out[i] = e.tx
	}
	return out
}

// BillStatus classifies a due date: overdue when due today or earlier,
// upcoming when due within the next three days, otherwise normal. A due date
// that cannot be parsed is normal.
func BillStatus(dueDate string, now time.Time) Status {
	due, err := dates.Parse(dueDate)
	if err != nil {
		return StatusNormal
	}
	days := dates.DaysBetween(now, due)
	switch {
	case days < 0 || dates.SameDay(due, now):
		return StatusOverdue
	case days <= 3:
		return StatusUpcoming
	default:
		return StatusNormal
	}
}
