// Package flash queues one-shot user notifications ("Contact log deleted
// successfully.") between requests. Messages are pushed by the services after
// a successful operation and drained by the next list render for that user.
package flash

import (
	"context"
	"sync"
	"time"
)

// Level classifies a message.
type Level string

const (
	LevelStatus Level = "status"
	LevelError  Level = "error"
)

// Message is a single queued notification.
type Message struct {
	Level Level  `json:"type"`
	Text  string `json:"message"`
}

// Store keeps pending messages per user.
type Store interface {
	// Push appends msg to userID's queue.
	Push(ctx context.Context, userID string, msg Message) error
	// Drain returns and clears userID's queue, oldest first.
	Drain(ctx context.Context, userID string) ([]Message, error)
}

// MemoryStore is an in-process Store. Queues expire TTL after their last push.
type MemoryStore struct {
	TTL time.Duration
	now func() time.Time

	mu     sync.Mutex
	queues map[string]*memQueue
}

type memQueue struct {
	msgs      []Message
	expiresAt time.Time
}

// NewMemoryStore returns a MemoryStore with the given TTL (<= 0 means one hour).
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MemoryStore{TTL: ttl, now: time.Now, queues: map[string]*memQueue{}}
}

// Push implements Store.
func (s *MemoryStore) Push(_ context.Context, userID string, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	q, ok := s.queues[userID]
	if !ok || now.After(q.expiresAt) {
		q = &memQueue{}
		s.queues[userID] = q
	}
	q.msgs = append(q.msgs, msg)
	q.expiresAt = now.Add(s.TTL)
	return nil
}

// Drain implements Store.
func (s *MemoryStore) Drain(_ context.Context, userID string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queues[userID]
	delete(s.queues, userID)
	if !ok || s.now().After(q.expiresAt) {
		return []Message{}, nil
	}
	return q.msgs, nil
}
