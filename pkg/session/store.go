// Package session stores conversation transcripts keyed by session id, so
// a conversation can continue across HTTP requests and process restarts.
package session

import (
	"context"
	"errors"

	"github.com/randalmurphal/designflow/pkg/llm"
)

// Store persists the messages of a session in order.
// Implementations must be safe for concurrent use.
type Store interface {
	// Append adds messages to the end of a session's transcript,
	// creating the session if needed.
	Append(ctx context.Context, sessionID string, msgs ...llm.Message) error

	// History returns a session's messages in append order.
	// Returns an empty slice (not an error) for an unknown session.
	History(ctx context.Context, sessionID string) ([]llm.Message, error)

	// Delete removes a session. Returns nil if it does not exist.
	Delete(ctx context.Context, sessionID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Sentinel errors for store operations.
var (
	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("session store closed")

	// ErrEmptySessionID is returned when a session id is empty.
	ErrEmptySessionID = errors.New("session id is empty")
)
