// Package memstore is an in-memory document store and change feed for
// development and tests, standing in for the spreadsheet and broker when no
// credentials are configured.
package memstore

import (
	"context"
	"sync"
	"time"

	"budgetd/internal/remote"
)

type Store struct {
	mu   sync.Mutex
	docs map[string]remote.Document
	subs map[int]subscriber
	next int
}

type subscriber struct {
	userID string
	ch     chan int64
}

var (
	_ remote.DocumentStore = (*Store)(nil)
	_ remote.ChangeFeed    = (*Store)(nil)
)

func New() *Store {
	return &Store{
		docs: make(map[string]remote.Document),
		subs: make(map[int]subscriber),
	}
}

func (s *Store) Get(_ context.Context, userID string) (remote.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[userID]
	if !ok {
		return remote.Document{}, remote.ErrNotFound
	}
	doc.Data = append([]byte(nil), doc.Data...)
	return doc, nil
}

func (s *Store) Put(_ context.Context, userID string, doc remote.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc.Data = append([]byte(nil), doc.Data...)
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now().UTC()
	}
	s.docs[userID] = doc
	return nil
}

func (s *Store) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, userID)
	return nil
}

// Publish notifies in-process subscribers for the user. Slow subscribers drop
// notifications rather than block; the document store still holds the latest
// revision.
func (s *Store) Publish(_ context.Context, userID string, revision int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if sub.userID != userID {
			continue
		}
		select {
		case sub.ch <- revision:
		default:
		}
	}
	return nil
}

// Subscribe delivers published revisions for the user until the context ends.
func (s *Store) Subscribe(ctx context.Context, userID string, handler func(revision int64)) error {
	ch := make(chan int64, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = subscriber{userID: userID, ch: ch}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case revision := <-ch:
			handler(revision)
		}
	}
}
