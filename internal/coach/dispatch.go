package coach

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/ashureev/maven/internal/domain"
	"github.com/ashureev/maven/internal/identity"
)

// DefaultEventTimeout bounds a single event's work, generation included.
const DefaultEventTimeout = 2 * time.Minute

// ErrDispatcherClosed is returned by Go after Shutdown has started.
var ErrDispatcherClosed = errors.New("dispatcher closed")

// Dispatcher runs each event on its own goroutine once the host has been
// acknowledged. Work is detached from the request context so it outlives
// the ack, and is bounded by timeout.
type Dispatcher struct {
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher. timeout <= 0 uses DefaultEventTimeout.
func NewDispatcher(timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultEventTimeout
	}
	return &Dispatcher{timeout: timeout, logger: logger}
}

// Go runs fn in the background. Context values from ctx are kept, its
// cancellation is not.
func (d *Dispatcher) Go(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return fmt.Errorf("dispatch %s: %w", name, ErrDispatcherClosed)
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		eventCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("Event handler panicked",
					"event", name,
					"user_id", identity.UserIDFromContext(eventCtx),
					"panic", r,
					"stack", string(debug.Stack()),
				)
			}
		}()

		start := time.Now()
		err := fn(eventCtx)
		d.logResult(eventCtx, name, err, time.Since(start))
	}()
	return nil
}

func (d *Dispatcher) logResult(ctx context.Context, name string, err error, elapsed time.Duration) {
	logger := d.logger.With(
		"user_id", identity.UserIDFromContext(ctx),
		"session_id", identity.SessionIDFromContext(ctx),
	)
	switch {
	case err == nil:
		logger.Debug("Event handled", "event", name, "duration", elapsed)
	case errors.Is(err, domain.ErrStaleEvent):
		logger.Info("Ignored stale event", "event", name, "error", err)
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrRateLimited):
		logger.Info("Event rejected", "event", name, "error", err)
	case errors.Is(err, domain.ErrInvalidInput):
		logger.Warn("Event aborted on invalid input", "event", name, "error", err)
	default:
		logger.Error("Event failed", "event", name, "duration", elapsed, "error", err)
	}
}

// Shutdown stops accepting work and waits for in-flight events or ctx.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for in-flight events: %w", ctx.Err())
	}
}
