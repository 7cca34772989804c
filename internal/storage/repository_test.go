package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"budgetd/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "budget.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestLoadStateEmpty(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.LoadState(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LoadState on empty db = %v, want ErrNotFound", err)
	}
}

func TestSaveAndLoadState(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	st := core.DefaultState(time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC))
	st.BankBalance = 321.5
	st.Bills = append(st.Bills, core.Bill{ID: "b1", Name: "Rent", Amount: 900, DueDate: "Mar 1, 2025", IsRecurring: true})

	if err := repo.SaveState(ctx, st); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	got, err := repo.LoadState(ctx)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if got.BankBalance != 321.5 || len(got.Bills) != 1 || got.Bills[0] != st.Bills[0] {
		t.Errorf("loaded state = %+v", got)
	}

	// Saving again overwrites the single slot.
	st.BankBalance = 100
	if err := repo.SaveState(ctx, st); err != nil {
		t.Fatalf("SaveState overwrite: %v", err)
	}
	got, err = repo.LoadState(ctx)
	if err != nil {
		t.Fatalf("LoadState after overwrite: %v", err)
	}
	if got.BankBalance != 100 {
		t.Errorf("BankBalance = %v, want 100", got.BankBalance)
	}
}

func TestLoadStateDiscardsCorruptSnapshot(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.db.ExecContext(ctx,
		"INSERT INTO snapshots (slot, document, saved_at) VALUES (?, ?, ?)",
		stateSlot, `{"bills":[]}`, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		t.Fatalf("seed corrupt row: %v", err)
	}

	if _, err := repo.LoadState(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LoadState with corrupt doc = %v, want ErrNotFound", err)
	}

	// The corrupt row is gone, so the timestamp slot is empty too.
	if _, err := repo.LastSavedAt(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LastSavedAt after discard = %v, want ErrNotFound", err)
	}
}

func TestClearState(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.SaveState(ctx, core.DefaultState(time.Now())); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	if err := repo.ClearState(ctx); err != nil {
		t.Fatalf("ClearState: %v", err)
	}
	if _, err := repo.LoadState(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LoadState after clear = %v, want ErrNotFound", err)
	}
}

func TestLastSavedAt(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	before := time.Now().UTC().Add(-time.Second)
	if err := repo.SaveState(ctx, core.DefaultState(time.Now())); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	got, err := repo.LastSavedAt(ctx)
	if err != nil {
		t.Fatalf("LastSavedAt: %v", err)
	}
	if got.Before(before) || got.After(time.Now().UTC().Add(time.Second)) {
		t.Errorf("LastSavedAt = %v, outside expected window", got)
	}
}
