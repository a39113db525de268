// Package history keeps the messages of each chat session.
package history

import (
	"context"
	"sync"
	"time"

	"github.com/uslanozan/Gollama-the-Navigator/models"
)

type Store interface {
	Load(ctx context.Context, sessionID string) ([]models.Message, error)
	Append(ctx context.Context, sessionID string, msgs ...models.Message) error
}

// MemoryStore is used when no database is configured. Sessions die with the process.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]models.Message
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]models.Message),
		now:      time.Now,
	}
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Message(nil), s.sessions[sessionID]...), nil
}

func (s *MemoryStore) Append(_ context.Context, sessionID string, msgs ...models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range msgs {
		m.SessionID = sessionID
		if m.CreatedAt.IsZero() {
			m.CreatedAt = s.now()
		}
		s.sessions[sessionID] = append(s.sessions[sessionID], m)
	}
	return nil
}
