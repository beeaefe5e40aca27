package session

import (
	"context"
	"slices"
	"sync"

	"github.com/randalmurphal/designflow/pkg/llm"
)

// MemoryStore keeps transcripts in memory.
// Data is lost when the process exits.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]llm.Message
	closed   bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]llm.Message)}
}

// Append implements Store.
func (m *MemoryStore) Append(ctx context.Context, sessionID string, msgs ...llm.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if sessionID == "" {
		return ErrEmptySessionID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	for _, msg := range msgs {
		msg.ToolCalls = slices.Clone(msg.ToolCalls)
		m.sessions[sessionID] = append(m.sessions[sessionID], msg)
	}
	return nil
}

// History implements Store.
func (m *MemoryStore) History(ctx context.Context, sessionID string) ([]llm.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	out := make([]llm.Message, len(m.sessions[sessionID]))
	copy(out, m.sessions[sessionID])
	return out, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	delete(m.sessions, sessionID)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.sessions = nil
	return nil
}
