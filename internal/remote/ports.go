// Package remote defines the ports for mirroring budget state to a shared
// document store and learning about writes made from other devices.
package remote

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no document exists for the user.
var ErrNotFound = errors.New("remote document not found")

// Document is a user's mirrored state snapshot.
type Document struct {
	Data      []byte
	Revision  int64
	UpdatedAt time.Time
}

type (
	// DocumentStore holds one state document per user id.
	DocumentStore interface {
		// Get returns the user's document, or ErrNotFound.
		Get(ctx context.Context, userID string) (Document, error)

		// Put replaces the user's document.
		Put(ctx context.Context, userID string, doc Document) error

		// Delete removes the user's document. Deleting an absent document
		// is not an error.
		Delete(ctx context.Context, userID string) error
	}

	// ChangeFeed notifies about remote writes to a user's document.
	ChangeFeed interface {
		// Publish announces a write of the given revision.
		Publish(ctx context.Context, userID string, revision int64) error

		// Subscribe invokes handler for every announced write to the user's
		// document until ctx is cancelled. It blocks; run it on its own
		// goroutine.
		Subscribe(ctx context.Context, userID string, handler func(revision int64)) error
	}
)
