package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ashureev/maven/internal/domain"
	"github.com/ashureev/maven/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements SessionStore using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	writeMu sync.Mutex // serializes writers to avoid SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed session store.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		run TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		channel_id TEXT NOT NULL,
		topic_id TEXT NOT NULL DEFAULT '',
		situation TEXT NOT NULL DEFAULT '',
		stage TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_session_id ON sessions(session_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Get retrieves a session by run ID.
func (s *SQLiteStore) Get(ctx context.Context, run string) (*domain.Session, error) {
	query := `
		SELECT run, session_id, user_id, channel_id, topic_id, situation,
		       stage, display_name, created_at, updated_at
		FROM sessions WHERE run = ?`

	row := s.db.QueryRowContext(ctx, query, run)

	var session domain.Session
	var stage string
	var createdAt, updatedAt int64

	err := row.Scan(
		&session.Run, &session.ID, &session.UserID, &session.ChannelID,
		&session.TopicID, &session.Situation, &stage, &session.DisplayName,
		&createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", run, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	session.Stage = domain.Stage(stage)
	session.CreatedAt = time.UnixMilli(createdAt)
	session.UpdatedAt = time.UnixMilli(updatedAt)
	return &session, nil
}

// Save creates or replaces a session record.
func (s *SQLiteStore) Save(ctx context.Context, session *domain.Session) error {
	if session == nil || session.Run == "" {
		return fmt.Errorf("save session: missing run: %w", domain.ErrInvalidInput)
	}
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	query := `
	INSERT INTO sessions (run, session_id, user_id, channel_id, topic_id, situation,
	                      stage, display_name, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run) DO UPDATE SET
		topic_id = excluded.topic_id,
		situation = excluded.situation,
		stage = excluded.stage,
		display_name = excluded.display_name,
		updated_at = excluded.updated_at`

	return s.write(ctx, "save session", session.Run, func() error {
		_, err := s.db.ExecContext(ctx, query, insertArgs(session)...)
		return err
	})
}

// Advance moves the run forward only if it is still at stage from.
func (s *SQLiteStore) Advance(ctx context.Context, session *domain.Session, from domain.Stage) error {
	if err := checkAdvance(session, from); err != nil {
		return err
	}
	now := time.Now()
	session.UpdatedAt = now
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}

	update := `
	UPDATE sessions SET stage = ?, topic_id = ?, situation = ?, display_name = ?, updated_at = ?
	WHERE run = ? AND stage = ?`
	insert := `
	INSERT INTO sessions (run, session_id, user_id, channel_id, topic_id, situation,
	                      stage, display_name, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run) DO NOTHING`

	var advanced bool
	err := s.write(ctx, "advance session", session.Run, func() error {
		result, err := s.db.ExecContext(ctx, update,
			string(session.Stage), session.TopicID, session.Situation, session.DisplayName,
			now.UnixMilli(), session.Run, string(from),
		)
		if err != nil {
			return err
		}
		if rows, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		} else if rows == 1 {
			advanced = true
			return nil
		}

		// No row at the expected stage: either the run is unknown here or it
		// has already moved on.
		result, err = s.db.ExecContext(ctx, insert, insertArgs(session)...)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if rows == 1 {
			slog.Info("Recovered session missing from store", "run", session.Run, "session_id", session.ID, "stage", session.Stage)
			advanced = true
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !advanced {
		return fmt.Errorf("session %s is no longer %s: %w", session.Run, from, domain.ErrStaleEvent)
	}
	return nil
}

// DeleteExpired removes unfinished sessions not updated since pendingBefore
// and completed ones not updated since completeBefore.
func (s *SQLiteStore) DeleteExpired(ctx context.Context, pendingBefore, completeBefore time.Time) (int64, error) {
	var deleted int64
	err := s.write(ctx, "delete expired sessions", "", func() error {
		result, err := s.db.ExecContext(ctx, `
			DELETE FROM sessions
			WHERE (stage != ? AND updated_at < ?) OR (stage = ? AND updated_at < ?)`,
			string(domain.StageComplete), pendingBefore.UnixMilli(),
			string(domain.StageComplete), completeBefore.UnixMilli(),
		)
		if err != nil {
			return err
		}
		deleted, err = result.RowsAffected()
		return err
	})
	return deleted, err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// write runs fn under the write lock, retrying with exponential backoff
// while SQLite reports lock contention.
func (s *SQLiteStore) write(ctx context.Context, op, run string, fn func() error) error {
	const maxRetries = 3
	baseDelay := 50 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		s.writeMu.Lock()
		err := fn()
		s.writeMu.Unlock()
		if err == nil {
			return nil
		}

		if shared.IsSQLiteConflictError(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i) // 50ms, 100ms
			slog.Debug("SQLite busy, retrying", "op", op, "run", run, "attempt", i+1, "delay", delay)
			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return fmt.Errorf("%s: %w", op, ctx.Err())
			}
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func insertArgs(s *domain.Session) []any {
	return []any{
		s.Run, s.ID, s.UserID, s.ChannelID, s.TopicID, s.Situation,
		string(s.Stage), s.DisplayName, s.CreatedAt.UnixMilli(), s.UpdatedAt.UnixMilli(),
	}
}
