package session

import (
	"context"
	"sync"
	"time"

	"resumekit/internal/observability"
)

// MemoryStore keeps sessions in process memory
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
	om       *observability.Manager
}

// NewMemoryStore creates an empty store. om may be nil.
func NewMemoryStore(ttl time.Duration, om *observability.Manager) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
		om:       om,
	}
}

// lookup returns the live session for id. Callers hold mu.
func (m *MemoryStore) lookup(ctx context.Context, id string) *Session {
	s, ok := m.sessions[id]
	if !ok {
		return nil
	}
	if expired(s, m.now(), m.ttl) {
		m.remove(ctx, id)
		return nil
	}
	return s
}

func (m *MemoryStore) put(ctx context.Context, id string, s *Session) {
	if _, ok := m.sessions[id]; !ok {
		m.om.AddActiveSessions(ctx, 1)
	}
	m.sessions[id] = s
}

func (m *MemoryStore) remove(ctx context.Context, id string) {
	if _, ok := m.sessions[id]; ok {
		delete(m.sessions, id)
		m.om.AddActiveSessions(ctx, -1)
	}
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.lookup(ctx, id)
	if s == nil {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Save(ctx context.Context, id string, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := s.Clone()
	stored.UpdatedAt = m.now()
	m.put(ctx, id, stored)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.remove(ctx, id)
	return nil
}

func (m *MemoryStore) BeginParse(ctx context.Context, id, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s := m.lookup(ctx, id); s != nil && s.InProgress {
		return ErrParseInProgress
	}
	m.put(ctx, id, newParsing(text, m.now()))
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.lookup(ctx, id)
	if s == nil {
		return nil, ErrNotFound
	}
	next := s.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.UpdatedAt = m.now()
	m.sessions[id] = next
	return next.Clone(), nil
}

// Len reports the number of stored sessions, expired ones included
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *MemoryStore) Close() error { return nil }
