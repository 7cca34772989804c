// Package storage persists budget snapshots to a local SQLite database.
// The whole state is stored as a single JSON document in a keyed slot, so a
// save is one upsert and a load is one row.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"budgetd/internal/core"

	_ "modernc.org/sqlite"
)

const stateSlot = "budget_state"

// ErrNotFound is returned when no snapshot has been saved yet, or when the
// saved snapshot was corrupt and has been discarded.
var ErrNotFound = errors.New("no saved state")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LoadState reads the saved snapshot. A snapshot that fails structural
// validation is deleted so the next start is clean, and ErrNotFound is
// returned so the caller falls back to the default state.
func (r *SQLiteRepository) LoadState(ctx context.Context) (core.BudgetState, error) {
	var document string
	err := r.db.QueryRowContext(ctx,
		"SELECT document FROM snapshots WHERE slot = ?", stateSlot).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BudgetState{}, ErrNotFound
	}
	if err != nil {
		return core.BudgetState{}, fmt.Errorf("read state snapshot: %w", err)
	}

	st, err := core.DecodeState([]byte(document))
	if err != nil {
		slog.WarnContext(ctx, "Discarding corrupt state snapshot", "error", err)
		if _, delErr := r.db.ExecContext(ctx,
			"DELETE FROM snapshots WHERE slot = ?", stateSlot); delErr != nil {
			slog.ErrorContext(ctx, "Failed to delete corrupt snapshot", "error", delErr)
		}
		return core.BudgetState{}, ErrNotFound
	}

	return st, nil
}

// SaveState upserts the snapshot document.
func (r *SQLiteRepository) SaveState(ctx context.Context, st core.BudgetState) error {
	document, err := core.EncodeState(st)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO snapshots (slot, document, saved_at) VALUES (?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET document = excluded.document, saved_at = excluded.saved_at`,
		stateSlot, string(document), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save state snapshot: %w", err)
	}
	return nil
}

// ClearState removes the saved snapshot.
func (r *SQLiteRepository) ClearState(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx,
		"DELETE FROM snapshots WHERE slot = ?", stateSlot); err != nil {
		return fmt.Errorf("clear state snapshot: %w", err)
	}
	return nil
}

// LastSavedAt reports when the snapshot was last written.
func (r *SQLiteRepository) LastSavedAt(ctx context.Context) (time.Time, error) {
	var savedAt string
	err := r.db.QueryRowContext(ctx,
		"SELECT saved_at FROM snapshots WHERE slot = ?", stateSlot).Scan(&savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read snapshot timestamp: %w", err)
	}

	t, err := time.Parse(time.RFC3339, savedAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse snapshot timestamp: %w", err)
	}
	return t, nil
}
