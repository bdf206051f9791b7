package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrEmptyID is returned when a session is requested without a user identifier.
var ErrEmptyID = errors.New("session: empty user id")

// Store holds one Session per user identifier.
//
// Implementations must hand out copies: mutations are only visible to other
// callers after Save.
type Store interface {
	GetOrCreate(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
}

// MemoryStore keeps sessions for the lifetime of the process.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

var _ Store = (*MemoryStore)(nil)

// GetOrCreate returns a copy of the session for id, creating it on first contact.
func (m *MemoryStore) GetOrCreate(_ context.Context, id string) (*Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrEmptyID
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		s = New(id)
		m.sessions[id] = s
	}
	return s.Clone(), nil
}

// Save replaces the stored session with a copy of s.
func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	if s == nil || strings.TrimSpace(s.ID) == "" {
		return ErrEmptyID
	}
	cp := s.Clone()
	cp.UpdatedAt = time.Now().UTC()

	m.mu.Lock()
	m.sessions[s.ID] = cp
	m.mu.Unlock()
	return nil
}

// Len returns the number of tracked sessions.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
