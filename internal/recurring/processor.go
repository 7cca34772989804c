// Package recurring rolls recurring bills and incomes forward month by month.
// The processor drives the budgetd API rather than the database, so the
// server's in-memory state, local snapshot and remote mirror all stay in step.
package recurring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"budgetd/internal/core"
	"budgetd/internal/dates"
	"budgetd/internal/log"
)

type Processor struct {
	client  *http.Client
	baseURL string
	logger  *log.Logger
}

func NewProcessor(baseURL string, logger *log.Logger) *Processor {
	return &Processor{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: baseURL,
		logger:  logger.WithComponent("recurring"),
	}
}

type stateResponse struct {
	Revision int64            `json:"revision"`
	State    core.BudgetState `json:"state"`
}

// Run checks whether the current month still needs its recurring items and
// triggers generation when it does. It reports whether a generation ran.
func (p *Processor) Run(ctx context.Context, now time.Time) (bool, error) {
	state, err := p.fetchState(ctx)
	if err != nil {
		return false, err
	}

	if !NeedsGeneration(state, now) {
		p.logger.DebugContext(ctx, "Recurring items already current",
			log.FieldMonth, now.Format("2006-01"))
		return false, nil
	}

	if err := p.generate(ctx, now); err != nil {
		return false, err
	}
	p.logger.InfoContext(ctx, "Generated recurring items",
		log.FieldMonth, now.Format("2006-01"))
	return true, nil
}

// RunPeriodically runs once immediately and then on every tick until the
// context ends.
func (p *Processor) RunPeriodically(ctx context.Context, interval time.Duration) error {
	if _, err := p.Run(ctx, time.Now()); err != nil {
		p.logger.ErrorContext(ctx, "Initial recurring run failed", log.FieldError, err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if _, err := p.Run(ctx, now); err != nil {
				p.logger.ErrorContext(ctx, "Recurring run failed", log.FieldError, err)
			}
		}
	}
}

// NeedsGeneration reports whether recurring items should roll into now's
// month: at least one recurring item is dated before the month and none is
// dated inside it. Generating twice for the same month would duplicate
// entries, so a single dated item in the month blocks the run.
func NeedsGeneration(state core.BudgetState, now time.Time) bool {
	var stale bool
	check := func(dateStr string) bool {
		date, err := dates.Parse(dateStr)
		if err != nil {
			return false
		}
		if dates.SameMonth(date, now) {
			return true
		}
		if date.Before(now) {
			stale = true
		}
		return false
	}

	for _, b := range state.Bills {
		if b.IsRecurring && check(b.DueDate) {
			return false
		}
	}
	for _, in := range state.Incomes {
		if in.IsRecurring && check(in.ExpectedDate) {
			return false
		}
	}
	return stale
}

func (p *Processor) fetchState(ctx context.Context) (core.BudgetState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/state", nil)
	if err != nil {
		return core.BudgetState{}, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return core.BudgetState{}, fmt.Errorf("fetch state: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.BudgetState{}, fmt.Errorf("fetch state: unexpected status %d", resp.StatusCode)
	}

	var body stateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return core.BudgetState{}, fmt.Errorf("decode state: %w", err)
	}
	return body.State, nil
}

func (p *Processor) generate(ctx context.Context, now time.Time) error {
	payload, err := json.Marshal(map[string]string{"date": dates.Format(now)})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/api/months/generate", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("trigger generation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("trigger generation: unexpected status %d", resp.StatusCode)
	}
	return nil
}
