// Package store provides the session stage ledger and its implementations.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ashureev/maven/internal/domain"
)

// SessionStore records where each coaching run is in the flow.
type SessionStore interface {
	// Get retrieves a session by run ID. A miss returns domain.ErrNotFound.
	Get(ctx context.Context, run string) (*domain.Session, error)

	// Save creates or replaces a session record.
	Save(ctx context.Context, s *domain.Session) error

	// Advance moves s.Run from stage from to s.Stage atomically and stores the
	// rest of s alongside. A missing row is inserted as-is so runs survive a
	// restart. If the stored stage is not from, nothing changes and
	// domain.ErrStaleEvent is returned.
	Advance(ctx context.Context, s *domain.Session, from domain.Stage) error

	// DeleteExpired removes unfinished sessions not updated since
	// pendingBefore and completed ones not updated since completeBefore.
	DeleteExpired(ctx context.Context, pendingBefore, completeBefore time.Time) (int64, error)

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases the backing store.
	Close() error
}

// New returns a SQLite store for dbPath, or an in-memory store when dbPath is empty.
func New(dbPath string) (SessionStore, error) {
	if dbPath == "" {
		return NewMemory(), nil
	}
	return NewSQLite(dbPath)
}

func checkAdvance(s *domain.Session, from domain.Stage) error {
	if s == nil || s.Run == "" {
		return fmt.Errorf("advance session: missing run: %w", domain.ErrInvalidInput)
	}
	if !from.CanAdvance(s.Stage) {
		return fmt.Errorf("advance session %s: %s -> %s is not a forward transition: %w",
			s.Run, from, s.Stage, domain.ErrInvalidInput)
	}
	return nil
}
