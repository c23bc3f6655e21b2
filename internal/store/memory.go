package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ashureev/maven/internal/domain"
)

// Memory is a process-local SessionStore.
type Memory struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	now      func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]domain.Session),
		now:      time.Now,
	}
}

// Get retrieves a session by run ID.
func (m *Memory) Get(_ context.Context, run string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[run]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", run, domain.ErrNotFound)
	}
	return &s, nil
}

// Save creates or replaces a session record.
func (m *Memory) Save(_ context.Context, s *domain.Session) error {
	if s == nil || s.Run == "" {
		return fmt.Errorf("save session: missing run: %w", domain.ErrInvalidInput)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	m.sessions[s.Run] = *s
	return nil
}

// Advance performs the compare-and-advance under the store lock.
func (m *Memory) Advance(_ context.Context, s *domain.Session, from domain.Stage) error {
	if err := checkAdvance(s, from); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	current, ok := m.sessions[s.Run]
	if ok {
		if current.Stage != from {
			return fmt.Errorf("session %s is %s, not %s: %w", s.Run, current.Stage, from, domain.ErrStaleEvent)
		}
		s.CreatedAt = current.CreatedAt
	} else if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	m.sessions[s.Run] = *s
	return nil
}

// DeleteExpired removes unfinished sessions not updated since pendingBefore
// and completed ones not updated since completeBefore.
func (m *Memory) DeleteExpired(_ context.Context, pendingBefore, completeBefore time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for run, s := range m.sessions {
		before := pendingBefore
		if s.Stage == domain.StageComplete {
			before = completeBefore
		}
		if s.UpdatedAt.Before(before) {
			delete(m.sessions, run)
			deleted++
		}
	}
	return deleted, nil
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error { return nil }

// Close is a no-op.
func (m *Memory) Close() error { return nil }
