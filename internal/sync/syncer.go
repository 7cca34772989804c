// Package sync mirrors the local budget state to a remote document store so
// the same user sees one ledger across devices. Local commits are pushed
// after a short debounce; remote writes come back through a change feed, or
// by polling when no feed is configured. Conflict resolution is last writer
// wins: an incoming document replaces local state wholesale.
package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"budgetd/internal/core"
	"budgetd/internal/log"
	"budgetd/internal/remote"
	"budgetd/internal/store"
)

const (
	// DefaultDebounce batches bursts of edits into one remote write.
	DefaultDebounce = 300 * time.Millisecond

	// DefaultPollInterval drives hydration when no change feed is available.
	DefaultPollInterval = 30 * time.Second
)

type Syncer struct {
	store  *store.Store
	docs   remote.DocumentStore
	feed   remote.ChangeFeed // nil means poll
	userID string
	logger *log.Logger

	debounce     time.Duration
	pollInterval time.Duration

	mu          sync.Mutex
	timer       *time.Timer
	pending     *core.BudgetState
	lastApplied []byte // last document written to or accepted from the remote
	suppress    bool   // drop the next local commit notification

	lastPublished atomic.Int64

	cancel      context.CancelFunc
	unsubscribe func()
	wg          sync.WaitGroup
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithDebounce overrides the local-write debounce window.
func WithDebounce(d time.Duration) Option {
	return func(s *Syncer) { s.debounce = d }
}

// WithPollInterval overrides the polling cadence used without a feed.
func WithPollInterval(d time.Duration) Option {
	return func(s *Syncer) { s.pollInterval = d }
}

// WithChangeFeed attaches a feed; remote changes then arrive as
// notifications instead of polls.
func WithChangeFeed(feed remote.ChangeFeed) Option {
	return func(s *Syncer) { s.feed = feed }
}

func New(st *store.Store, docs remote.DocumentStore, userID string, logger *log.Logger, opts ...Option) *Syncer {
	s := &Syncer{
		store:        st,
		docs:         docs,
		userID:       userID,
		logger:       logger.WithComponent(log.ComponentSync),
		debounce:     DefaultDebounce,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start hydrates from the remote document, seeds it when absent, and begins
// watching both directions. It returns after the initial round trip; the
// watchers run until Close.
func (s *Syncer) Start(ctx context.Context) error {
	doc, err := s.docs.Get(ctx, s.userID)
	switch {
	case err == nil:
		if applyErr := s.applyRemote(doc.Data); applyErr != nil {
			s.logger.WarnContext(ctx, "Ignoring malformed remote document", "error", applyErr)
		} else {
			s.logger.InfoContext(ctx, "Hydrated state from remote", "revision", doc.Revision)
		}
	case errors.Is(err, remote.ErrNotFound):
		if seedErr := s.push(ctx, s.store.State()); seedErr != nil {
			s.logger.WarnContext(ctx, "Failed to seed remote document", "error", seedErr)
		} else {
			s.logger.InfoContext(ctx, "Seeded remote document with local state")
		}
	default:
		return fmt.Errorf("fetch remote document: %w", err)
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.unsubscribe = s.store.Subscribe(func(state core.BudgetState, _ int64) {
		s.schedule(state)
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if s.feed != nil {
			s.watchFeed(watchCtx)
		} else {
			s.poll(watchCtx)
		}
	}()

	return nil
}

// Reset swaps the in-memory default state in immediately and clears the
// remote document. It never waits for the remote round trip to settle the
// local view.
func (s *Syncer) Reset(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = nil
	s.suppress = true
	s.lastApplied = nil
	s.mu.Unlock()

	s.store.Reset()

	if err := s.docs.Delete(ctx, s.userID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to clear remote document", "error", err)
		return fmt.Errorf("clear remote document: %w", err)
	}
	s.logger.InfoContext(ctx, "Cleared remote document")
	return nil
}

// Close stops the watchers and flushes any pending local write.
func (s *Syncer) Close() error {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	if pending != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.push(ctx, *pending); err != nil {
			return fmt.Errorf("flush pending state: %w", err)
		}
	}
	return nil
}

// schedule arms the debounce timer for a committed snapshot. A newer commit
// cancels and replaces an armed one, so only the latest state is written.
func (s *Syncer) schedule(state core.BudgetState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.suppress {
		s.suppress = false
		return
	}

	s.pending = &state
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.flush)
}

func (s *Syncer) flush() {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.timer = nil
	s.mu.Unlock()

	if pending == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.push(ctx, *pending); err != nil {
		s.logger.ErrorContext(ctx, "Failed to push state to remote", "error", err)
	}
}

// push writes a snapshot to the remote document store and announces it on
// the feed. Snapshots identical to the last applied document are skipped,
// which also absorbs our own hydrations echoing back through the store.
func (s *Syncer) push(ctx context.Context, state core.BudgetState) error {
	data, err := core.EncodeState(state)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if bytes.Equal(data, s.lastApplied) {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	revision := s.store.Revision()
	doc := remote.Document{
		Data:      data,
		Revision:  revision,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.docs.Put(ctx, s.userID, doc); err != nil {
		return fmt.Errorf("put remote document: %w", err)
	}

	s.mu.Lock()
	s.lastApplied = data
	s.mu.Unlock()
	s.lastPublished.Store(revision)

	if s.feed != nil {
		if err := s.feed.Publish(ctx, s.userID, revision); err != nil {
			s.logger.WarnContext(ctx, "Failed to announce state change", "error", err)
		}
	}

	s.logger.DebugContext(ctx, "Pushed state to remote", "revision", revision)
	return nil
}

// applyRemote hydrates local state from a remote document. The incoming
// bytes become the echo-suppression reference before Replace runs, so the
// observer round trip does not immediately push the document back.
func (s *Syncer) applyRemote(data []byte) error {
	state, err := core.DecodeState(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if bytes.Equal(data, s.lastApplied) {
		s.mu.Unlock()
		return nil
	}
	s.lastApplied = data
	s.suppress = true
	s.mu.Unlock()

	s.store.Replace(state)

	s.mu.Lock()
	s.suppress = false
	s.mu.Unlock()
	return nil
}

func (s *Syncer) watchFeed(ctx context.Context) {
	for {
		err := s.feed.Subscribe(ctx, s.userID, func(revision int64) {
			if revision == s.lastPublished.Load() {
				return
			}
			s.refetch(ctx)
		})
		if ctx.Err() != nil {
			return
		}
		s.logger.WarnContext(ctx, "Change feed disconnected, retrying", "error", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

func (s *Syncer) poll(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refetch(ctx)
		}
	}
}

func (s *Syncer) refetch(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	doc, err := s.docs.Get(ctx, s.userID)
	if errors.Is(err, remote.ErrNotFound) {
		return
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to fetch remote document", "error", err)
		return
	}
	if err := s.applyRemote(doc.Data); err != nil {
		s.logger.WarnContext(ctx, "Ignoring malformed remote document", "error", err)
	}
}
